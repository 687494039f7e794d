package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vibio "github.com/vibewatch/vibewatch/pkg/io"
)

func newTestServer(opts ...Option) *Server {
	return New(":0", slog.New(slog.NewTextHandler(&strings.Builder{}, nil)), opts...)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestHandleScores(t *testing.T) {
	s := newTestServer(WithRecentSize(2))

	s.Publish(vibio.Result{Timestamp: 1, Ready: false})
	s.Publish(vibio.Result{Timestamp: 2, Ready: true, PointID: 0, Score: 1.5})
	s.Publish(vibio.Result{Timestamp: 3, Ready: true, PointID: 1, Score: 9.0, IsAnomaly: true})

	req := httptest.NewRequest(http.MethodGet, "/scores", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var results []vibio.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	// Ring keeps the newest two.
	require.Len(t, results, 2)
	assert.Equal(t, int64(2), results[0].Timestamp)
	assert.True(t, results[1].IsAnomaly)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer()
	s.Publish(vibio.Result{Ready: true, Score: 2.5})
	s.ObserveChunkDuration(3 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "vibewatch_chunks_processed_total 1")
	assert.Contains(t, body, "vibewatch_last_score 2.5")
}

func TestStreamDeliversResults(t *testing.T) {
	s := newTestServer()
	ts := httptest.NewServer(s.router)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Registration happens in the upgrade handler, so keep publishing in
	// the background until the first frame makes it through.
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				s.Publish(vibio.Result{Ready: true, PointID: 7, Score: 4.2})
				time.Sleep(10 * time.Millisecond)
			}
		}
	}()

	var got vibio.Result
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, uint64(7), got.PointID)
	assert.InDelta(t, 4.2, got.Score, 1e-12)
}
