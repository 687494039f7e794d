package csv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vibio "github.com/vibewatch/vibewatch/pkg/io"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "waveform.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func collect(t *testing.T, r *Reader) []vibio.Chunk {
	t.Helper()
	ch, err := r.Chunks(context.Background())
	require.NoError(t, err)
	var chunks []vibio.Chunk
	for chunk := range ch {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func TestChunks(t *testing.T) {
	path := writeTempCSV(t, "0,1.0\n0.1,2.0\n0.2,3.0\n0.3,4.0\n0.4,5.0\n")

	r, err := NewReader(path, WithChunkSize(2))
	require.NoError(t, err)
	defer r.Close()

	chunks := collect(t, r)
	// Five samples at chunk size two: the trailing partial chunk is
	// dropped, not scored as an undersized window.
	require.Len(t, chunks, 2)
	assert.Equal(t, []float64{1, 2}, chunks[0].Samples)
	assert.Equal(t, []float64{3, 4}, chunks[1].Samples)
}

func TestChunksSkipsMalformedRows(t *testing.T) {
	path := writeTempCSV(t, "0,1.0\nbad,row\n0.1,2.0\n0.2\n0.3,3.0\n0.4,4.0\n")

	r, err := NewReader(path, WithChunkSize(2))
	require.NoError(t, err)
	defer r.Close()

	chunks := collect(t, r)
	require.Len(t, chunks, 2)
	assert.Equal(t, []float64{1, 2}, chunks[0].Samples)
	assert.Equal(t, []float64{3, 4}, chunks[1].Samples)
}

func TestChunksHeaderAndColumn(t *testing.T) {
	path := writeTempCSV(t, "time,x,value\n0,9,1.0\n0.1,9,2.0\n")

	r, err := NewReader(path, WithChunkSize(2), WithColumn(2), WithHeader(true))
	require.NoError(t, err)
	defer r.Close()

	chunks := collect(t, r)
	require.Len(t, chunks, 1)
	assert.Equal(t, []float64{1, 2}, chunks[0].Samples)
}

func TestChunksCancellation(t *testing.T) {
	path := writeTempCSV(t, "0,1.0\n0.1,2.0\n0.2,3.0\n0.3,4.0\n")

	r, err := NewReader(path, WithChunkSize(1))
	require.NoError(t, err)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := r.Chunks(ctx)
	require.NoError(t, err)

	<-ch
	cancel()
	// The channel must close shortly after cancellation.
	for range ch {
	}

	_, err = NewReader(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}
