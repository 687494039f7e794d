// Package threshold layers an unsupervised alert decision on top of the
// score stream. The scoring core deliberately emits raw scores only;
// deciding what is "too anomalous" is a consumer concern, handled here as a
// rolling mean plus k standard deviations with a warmup period.
package threshold

import (
	"math"

	"github.com/vibewatch/vibewatch/pkg/detectors"
)

// Decision is the outcome of observing one score.
type Decision struct {
	// Decided is false while the result was not ready or the monitor is
	// still warming up. An undecided result is "no decision yet", never
	// "normal".
	Decided bool
	// Anomaly reports whether the score exceeded the rolling threshold.
	Anomaly bool
	// Score echoes the observed score.
	Score float64
	// Upper is the threshold the score was compared against.
	Upper float64
}

// Monitor tracks a rolling window of recent scores and flags scores that
// exceed mean + sigmas*stddev of that window.
type Monitor struct {
	window *rollingWindow
	warmup int
	sigmas float64
	seen   int
}

// NewMonitor creates a Monitor keeping windowSize recent scores. No
// decisions are made for the first warmup scored observations.
func NewMonitor(windowSize, warmup int, sigmas float64) *Monitor {
	return &Monitor{
		window: newRollingWindow(windowSize),
		warmup: warmup,
		sigmas: sigmas,
	}
}

// Observe consumes one score result. Not-ready results pass through
// undecided and do not affect the baseline. The decision is made against
// the window as it stood before this score, which then joins the window.
func (m *Monitor) Observe(res detectors.ScoreResult) Decision {
	if !res.Ready {
		return Decision{}
	}
	d := Decision{Score: res.Value}
	if m.seen >= m.warmup && m.window.count >= 2 {
		mean := m.window.mean()
		d.Upper = mean + m.sigmas*m.window.stddev(mean)
		d.Decided = true
		d.Anomaly = res.Value > d.Upper
	}
	m.seen++
	m.window.add(res.Value)
	return d
}

// rollingWindow is a fixed-size circular buffer with an incremental sum.
type rollingWindow struct {
	values []float64
	index  int
	count  int
	sum    float64
}

func newRollingWindow(size int) *rollingWindow {
	return &rollingWindow{values: make([]float64, size)}
}

func (w *rollingWindow) add(value float64) {
	if w.count < len(w.values) {
		w.count++
	} else {
		w.sum -= w.values[w.index]
	}
	w.values[w.index] = value
	w.sum += value
	w.index = (w.index + 1) % len(w.values)
}

func (w *rollingWindow) mean() float64 {
	if w.count == 0 {
		return 0
	}
	return w.sum / float64(w.count)
}

func (w *rollingWindow) stddev(mean float64) float64 {
	if w.count < 2 {
		return 0
	}
	var variance float64
	for _, v := range w.values[:w.count] {
		diff := v - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(w.count))
}
