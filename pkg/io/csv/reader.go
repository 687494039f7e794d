// Package csv reads recorded waveform files and replays them as fixed-size
// chunks, the offline counterpart of a live sensor feed.
package csv

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"

	vibio "github.com/vibewatch/vibewatch/pkg/io"
)

// Reader reads a waveform CSV and emits chunks of a fixed sample count.
// The file is expected to carry one sample per row, with the sample value
// in a configurable column (recorded files usually pair a time column with
// the amplitude).
type Reader struct {
	file      *os.File
	reader    *csv.Reader
	chunkSize int
	column    int
	hasHeader bool
}

// Option configures a Reader.
type Option func(*Reader)

// WithChunkSize sets the number of samples per emitted chunk.
func WithChunkSize(n int) Option {
	return func(r *Reader) {
		r.chunkSize = n
	}
}

// WithColumn sets the zero-based column holding the sample value.
func WithColumn(col int) Option {
	return func(r *Reader) {
		r.column = col
	}
}

// WithHeader indicates the CSV has a header row to skip.
func WithHeader(has bool) Option {
	return func(r *Reader) {
		r.hasHeader = has
	}
}

// NewReader opens a waveform CSV. Defaults: 2500 samples per chunk (0.1 s
// at 25 kHz), value in the second column, no header.
func NewReader(filename string, opts ...Option) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	r := &Reader{
		file:      file,
		reader:    reader,
		chunkSize: 2500,
		column:    1,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.hasHeader {
		if _, err := r.reader.Read(); err != nil {
			file.Close()
			return nil, err
		}
	}
	return r, nil
}

// Chunks returns a channel of fixed-size chunks. Malformed rows are
// skipped; a trailing partial chunk is dropped rather than scored as an
// undersized window. The channel closes at end of file or when ctx is
// cancelled.
func (r *Reader) Chunks(ctx context.Context) (<-chan vibio.Chunk, error) {
	out := make(chan vibio.Chunk, 4)

	go func() {
		defer close(out)
		samples := make([]float64, 0, r.chunkSize)
		for {
			record, err := r.reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				continue
			}
			if r.column >= len(record) {
				continue
			}
			v, err := strconv.ParseFloat(record[r.column], 64)
			if err != nil {
				continue
			}
			samples = append(samples, v)
			if len(samples) < r.chunkSize {
				continue
			}

			chunk := vibio.Chunk{Samples: samples}
			samples = make([]float64, 0, r.chunkSize)

			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}
