package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the server's prometheus instruments on a private registry,
// so multiple servers (as in tests) never collide.
type metrics struct {
	registry *prometheus.Registry

	chunksTotal    prometheus.Counter
	scoresTotal    prometheus.Counter
	anomaliesTotal prometheus.Counter
	lastScore      prometheus.Gauge
	chunkSeconds   prometheus.Histogram
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &metrics{
		registry: registry,
		chunksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "vibewatch_chunks_processed_total",
			Help: "Total number of waveform chunks processed",
		}),
		scoresTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "vibewatch_scores_total",
			Help: "Total number of ready anomaly scores produced",
		}),
		anomaliesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "vibewatch_anomalies_detected_total",
			Help: "Total number of chunks flagged anomalous",
		}),
		lastScore: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vibewatch_last_score",
			Help: "Most recent anomaly score",
		}),
		chunkSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vibewatch_chunk_duration_seconds",
			Help:    "Wall time spent scoring one chunk",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
