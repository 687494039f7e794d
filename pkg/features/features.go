// Package features computes scalar waveform features for anomaly scoring.
//
// The scoring core only requires that a chunk of raw samples become a
// fixed-length numeric vector; the functions here are the standard vibration
// set (RMS, kurtosis, spectral centroid), and callers may substitute their
// own Func implementations.
package features

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/stat"
)

// ErrInvalidInput is returned for chunks that cannot be featurized, such as
// an empty sample window.
var ErrInvalidInput = errors.New("invalid input chunk")

// Func maps a raw sample chunk to a single scalar feature. Functions that
// need frequency-domain context receive the sampling rate in hertz;
// time-domain features ignore it. A Func must be deterministic.
type Func func(samples []float64, sampleRate float64) float64

// RMS returns the root mean square of the chunk, the time-domain energy.
func RMS(samples []float64, _ float64) float64 {
	var sum float64
	for _, v := range samples {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Kurtosis returns the excess kurtosis of the chunk using population
// moments, so a Gaussian signal scores near zero. Impulsive faults in
// rotating machinery show up as heavy tails long before RMS moves.
func Kurtosis(samples []float64, _ float64) float64 {
	m2 := stat.Moment(2, samples, nil)
	if m2 < 1e-18 {
		return 0
	}
	return stat.Moment(4, samples, nil)/(m2*m2) - 3
}

// SpectralCentroid applies a Hann window to suppress leakage, takes the
// real FFT and returns the amplitude-weighted mean frequency in hertz.
// An all-zero spectrum yields 0.
func SpectralCentroid(samples []float64, sampleRate float64) float64 {
	buf := make([]float64, len(samples))
	copy(buf, samples)
	window.Hann(buf)

	fft := fourier.NewFFT(len(buf))
	coeffs := fft.Coefficients(nil, buf)

	var total, weighted float64
	for i, c := range coeffs {
		mag := cmplx.Abs(c)
		total += mag
		weighted += fft.Freq(i) * sampleRate * mag
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// Extractor applies a fixed, ordered set of feature functions to a chunk,
// producing one feature vector per chunk.
type Extractor struct {
	funcs []Func
}

// NewExtractor creates an Extractor over the given feature functions.
func NewExtractor(funcs ...Func) *Extractor {
	return &Extractor{funcs: funcs}
}

// Default returns the standard vibration feature set.
func Default() *Extractor {
	return NewExtractor(RMS, Kurtosis, SpectralCentroid)
}

// NumFeatures returns the length of the vectors Extract produces.
func (e *Extractor) NumFeatures() int {
	return len(e.funcs)
}

// Extract converts a raw chunk to a feature vector.
func (e *Extractor) Extract(samples []float64, sampleRate float64) ([]float64, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("empty chunk: %w", ErrInvalidInput)
	}
	out := make([]float64, len(e.funcs))
	for i, fn := range e.funcs {
		out[i] = fn(samples, sampleRate)
	}
	return out, nil
}
