// Package detectors provides unsupervised anomaly detection algorithms.
package detectors

// StreamScorer is the common interface for streaming anomaly scorers.
//
// Implementations absorb points one at a time and return a score for each,
// evicting old points internally so that memory stays bounded regardless of
// stream length.
type StreamScorer interface {
	// ScorePoint inserts the point under the given id and returns its
	// anomaly score. Higher values indicate anomalies. Ids must be
	// strictly increasing across calls.
	ScorePoint(point []float64, id uint64) (float64, error)

	// Len returns the number of points currently resident.
	Len() int
}

// ScoreResult is the outcome of scoring one input chunk.
//
// Until enough history has accumulated no score can be produced; such
// results carry Ready == false and must be treated as "no decision yet",
// never as a score of zero.
type ScoreResult struct {
	// Ready reports whether a score was produced.
	Ready bool
	// Value is the anomaly score. Only valid when Ready is true.
	Value float64
	// PointID identifies the scored point. Only valid when Ready is true.
	PointID uint64
}

// NotReady returns a ScoreResult signalling insufficient history.
func NotReady() ScoreResult {
	return ScoreResult{}
}

// Scored returns a ready ScoreResult for the given point.
func Scored(id uint64, value float64) ScoreResult {
	return ScoreResult{Ready: true, Value: value, PointID: id}
}
