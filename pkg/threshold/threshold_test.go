package threshold

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vibewatch/vibewatch/pkg/detectors"
)

func TestObserveNotReady(t *testing.T) {
	m := NewMonitor(50, 0, 3)

	d := m.Observe(detectors.NotReady())
	assert.False(t, d.Decided)
	assert.False(t, d.Anomaly)
	assert.Equal(t, 0, m.window.count, "not-ready results must not touch the baseline")
}

func TestWarmupGating(t *testing.T) {
	m := NewMonitor(50, 5, 3)

	for i := 0; i < 5; i++ {
		d := m.Observe(detectors.Scored(uint64(i), 1.0))
		assert.False(t, d.Decided, "observation %d falls inside warmup", i)
	}
	d := m.Observe(detectors.Scored(5, 1.0))
	assert.True(t, d.Decided)
	assert.False(t, d.Anomaly)
}

func TestSpikeTripsThreshold(t *testing.T) {
	m := NewMonitor(50, 10, 3)

	for i := 0; i < 30; i++ {
		v := 1.0
		if i%2 == 0 {
			v = 1.2
		}
		d := m.Observe(detectors.Scored(uint64(i), v))
		if d.Decided {
			assert.False(t, d.Anomaly, "baseline scores must not alert")
		}
	}

	d := m.Observe(detectors.Scored(30, 10.0))
	assert.True(t, d.Decided)
	assert.True(t, d.Anomaly)
	assert.Greater(t, d.Score, d.Upper)

	// One spike in the window must not suppress detection of the next.
	d = m.Observe(detectors.Scored(31, 10.0))
	assert.True(t, d.Decided)
	assert.Greater(t, d.Upper, 1.2)
}

func TestRollingWindowEviction(t *testing.T) {
	w := newRollingWindow(3)
	for _, v := range []float64{1, 2, 3, 4} {
		w.add(v)
	}
	assert.Equal(t, 3, w.count)
	assert.InDelta(t, 3.0, w.mean(), 1e-12)
}
