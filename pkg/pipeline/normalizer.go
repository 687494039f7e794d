package pipeline

import "math"

// epsilon floors the divisor so a zero-spread dimension never divides by
// zero.
const epsilon = 1e-9

// Normalizer z-scores feature vectors against exponentially smoothed
// per-dimension estimates of the mean and the mean absolute deviation. It
// is a causal, forward-only estimator: only past vectors influence the
// current output, never future ones.
type Normalizer struct {
	alpha float64
	mean  []float64
	dev   []float64
}

// NewNormalizer creates a Normalizer with smoothing constant alpha in
// (0, 1]. Smaller values track the baseline more slowly.
func NewNormalizer(alpha float64) *Normalizer {
	return &Normalizer{alpha: alpha}
}

// Update absorbs one feature vector and returns its z-scored form. The
// first call initializes the mean to the vector itself and the deviation
// estimate to ones, so the first output is all zeros without being
// special-cased. The deviation update uses the already-updated mean.
func (n *Normalizer) Update(features []float64) []float64 {
	if n.mean == nil {
		n.mean = append([]float64(nil), features...)
		n.dev = make([]float64, len(features))
		for d := range n.dev {
			n.dev[d] = 1
		}
	} else {
		for d, v := range features {
			n.mean[d] = (1-n.alpha)*n.mean[d] + n.alpha*v
			n.dev[d] = (1-n.alpha)*n.dev[d] + n.alpha*math.Abs(v-n.mean[d])
		}
	}
	out := make([]float64, len(features))
	for d, v := range features {
		out[d] = (v - n.mean[d]) / (n.dev[d] + epsilon)
	}
	return out
}
