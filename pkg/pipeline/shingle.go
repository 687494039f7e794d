package pipeline

import "math/rand"

// ShingleBuffer keeps the last K normalized feature vectors and, once full,
// concatenates them oldest-first into a single spatial point that encodes
// short-term temporal context.
//
// Each emitted coordinate receives a tiny Gaussian jitter, orders of
// magnitude below sensor resolution. The partition trees require that no
// two points be coordinate-identical; a constant signal would otherwise
// produce zero-extent bounding boxes that cannot be cut.
type ShingleBuffer struct {
	size   int
	buf    [][]float64
	start  int
	count  int
	jitter float64
	rng    *rand.Rand
}

// NewShingleBuffer creates a buffer of the given shingle size. jitter is
// the standard deviation of the noise added to emitted points.
func NewShingleBuffer(size int, jitter float64, rng *rand.Rand) *ShingleBuffer {
	return &ShingleBuffer{
		size:   size,
		buf:    make([][]float64, size),
		jitter: jitter,
		rng:    rng,
	}
}

// Len returns the number of vectors currently buffered.
func (s *ShingleBuffer) Len() int { return s.count }

// Push appends vector, evicting the oldest entry once the buffer is full,
// and returns the concatenated shingle point when K vectors are present.
// Before that it returns (nil, false): not ready.
func (s *ShingleBuffer) Push(vector []float64) ([]float64, bool) {
	v := append([]float64(nil), vector...)
	if s.count < s.size {
		s.buf[(s.start+s.count)%s.size] = v
		s.count++
	} else {
		s.buf[s.start] = v
		s.start = (s.start + 1) % s.size
	}
	if s.count < s.size {
		return nil, false
	}

	point := make([]float64, 0, s.size*len(vector))
	for i := 0; i < s.size; i++ {
		point = append(point, s.buf[(s.start+i)%s.size]...)
	}
	for d := range point {
		point[d] += s.rng.NormFloat64() * s.jitter
	}
	return point, true
}
