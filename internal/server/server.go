// Package server exposes the live score stream to consumers: recent scores
// over HTTP, a websocket feed, prometheus metrics and an optional Redis
// sink. The scoring loop pushes results in; the server never touches the
// pipeline.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	vibio "github.com/vibewatch/vibewatch/pkg/io"
)

const defaultRecentSize = 600

// Server serves scoring results over HTTP and websocket.
type Server struct {
	logger   *slog.Logger
	srv      *http.Server
	router   *mux.Router
	metrics  *metrics
	sink     vibio.Sink
	upgrader websocket.Upgrader

	recentSize int

	mu      sync.Mutex
	recent  []vibio.Result
	clients map[*websocket.Conn]struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithSink forwards every published result to sink, in addition to the
// HTTP surfaces. Sink errors are logged, never fatal.
func WithSink(sink vibio.Sink) Option {
	return func(s *Server) {
		s.sink = sink
	}
}

// WithRecentSize sets how many recent results /scores retains.
func WithRecentSize(n int) Option {
	return func(s *Server) {
		s.recentSize = n
	}
}

// New creates a Server listening on addr once started.
func New(addr string, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		logger:     logger,
		metrics:    newMetrics(),
		recentSize: defaultRecentSize,
		clients:    make(map[*websocket.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/scores", s.handleScores).Methods(http.MethodGet)
	r.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)
	r.Path("/metrics").Handler(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	s.router = r

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("score server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains HTTP connections and closes websocket clients and the
// sink.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for conn := range s.clients {
		conn.Close()
	}
	s.clients = make(map[*websocket.Conn]struct{})
	s.mu.Unlock()

	if s.sink != nil {
		if err := s.sink.Close(); err != nil {
			s.logger.Warn("closing sink", "error", err)
		}
	}
	return s.srv.Shutdown(ctx)
}

// Publish records one result: metrics, the recent ring, websocket clients
// and the optional sink.
func (s *Server) Publish(result vibio.Result) {
	s.metrics.chunksTotal.Inc()
	if result.Ready {
		s.metrics.scoresTotal.Inc()
		s.metrics.lastScore.Set(result.Score)
	}
	if result.IsAnomaly {
		s.metrics.anomaliesTotal.Inc()
	}

	s.mu.Lock()
	s.recent = append(s.recent, result)
	if len(s.recent) > s.recentSize {
		s.recent = s.recent[len(s.recent)-s.recentSize:]
	}
	for conn := range s.clients {
		if err := conn.WriteJSON(result); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
	s.mu.Unlock()

	if s.sink != nil {
		go func() {
			if err := s.sink.Write(result); err != nil {
				s.logger.Warn("sink write failed", "error", err)
			}
		}()
	}
}

// ObserveChunkDuration records how long one chunk took to score.
func (s *Server) ObserveChunkDuration(d time.Duration) {
	s.metrics.chunkSeconds.Observe(d.Seconds())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleScores(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	results := make([]vibio.Result, len(s.recent))
	copy(results, s.recent)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	// Drain the connection to notice the client going away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.mu.Lock()
				delete(s.clients, conn)
				s.mu.Unlock()
				conn.Close()
				return
			}
		}
	}()
}
