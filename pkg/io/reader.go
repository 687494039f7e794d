// Package io provides input/output contracts for waveform ingestion and
// score publication.
package io

import "context"

// Chunk is one fixed-duration window of raw waveform samples, the unit of
// scoring.
type Chunk struct {
	Samples []float64
}

// Source is the interface for waveform chunk producers: a message-bus
// subscription, a recorded-file replay, or anything else that yields
// chunks in stream order.
type Source interface {
	// Chunks returns a channel of chunks. The channel is closed when the
	// stream ends or ctx is cancelled.
	Chunks(ctx context.Context) (<-chan Chunk, error)

	// Close releases resources.
	Close() error
}

// Result is a scored chunk as published to downstream consumers. A result
// with Ready == false reports that the pipeline was still accumulating
// shingle history; consumers must treat it as no decision, not as a score
// of zero.
type Result struct {
	Timestamp int64   `json:"timestamp"`
	Ready     bool    `json:"ready"`
	PointID   uint64  `json:"point_id"`
	Score     float64 `json:"score"`
	IsAnomaly bool    `json:"is_anomaly"`
}

// Sink is the interface for publishing results.
type Sink interface {
	// Write outputs a single result.
	Write(result Result) error

	// Close releases resources.
	Close() error
}
