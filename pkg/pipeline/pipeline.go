// Package pipeline turns a stream of raw waveform chunks into a stream of
// anomaly scores: feature extraction, adaptive normalization, temporal
// shingling and random cut forest scoring, one chunk at a time.
package pipeline

import (
	"math/rand"

	"github.com/vibewatch/vibewatch/pkg/detectors"
	"github.com/vibewatch/vibewatch/pkg/detectors/rcforest"
	"github.com/vibewatch/vibewatch/pkg/features"
)

// Pipeline is the scoring entry point. It owns the per-stream state: the
// normalizer, the shingle buffer and the monotonic point id counter shared
// by every tree in the ensemble. Exactly one caller may feed a Pipeline at
// a time; per-chunk state is inherently sequential.
type Pipeline struct {
	extractor *features.Extractor
	norm      *Normalizer
	shingle   *ShingleBuffer
	scorer    detectors.StreamScorer
	nextID    uint64
}

type config struct {
	shingleSize  int
	alpha        float64
	jitter       float64
	seed         int64
	numTrees     int
	treeCapacity int
	parallel     bool
	extractor    *features.Extractor
	scorer       detectors.StreamScorer
}

// Option configures a Pipeline.
type Option func(*config)

// WithShingleSize sets how many consecutive feature vectors form one point.
func WithShingleSize(k int) Option {
	return func(c *config) {
		c.shingleSize = k
	}
}

// WithAlpha sets the normalizer's exponential smoothing constant.
func WithAlpha(alpha float64) Option {
	return func(c *config) {
		c.alpha = alpha
	}
}

// WithJitter sets the standard deviation of the point-uniqueness noise.
func WithJitter(jitter float64) Option {
	return func(c *config) {
		c.jitter = jitter
	}
}

// WithSeed seeds both the jitter source and the default forest, making the
// score sequence reproducible for a fixed input stream.
func WithSeed(seed int64) Option {
	return func(c *config) {
		c.seed = seed
	}
}

// WithTrees sets the default forest's ensemble size.
func WithTrees(n int) Option {
	return func(c *config) {
		c.numTrees = n
	}
}

// WithTreeCapacity sets the default forest's per-tree point limit.
func WithTreeCapacity(n int) Option {
	return func(c *config) {
		c.treeCapacity = n
	}
}

// WithParallel scores the default forest's trees concurrently.
func WithParallel(parallel bool) Option {
	return func(c *config) {
		c.parallel = parallel
	}
}

// WithExtractor replaces the default vibration feature set.
func WithExtractor(e *features.Extractor) Option {
	return func(c *config) {
		c.extractor = e
	}
}

// WithScorer injects a scorer, overriding the default forest and any
// forest-related options.
func WithScorer(s detectors.StreamScorer) Option {
	return func(c *config) {
		c.scorer = s
	}
}

// New creates a Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	c := &config{
		shingleSize:  10,
		alpha:        0.01,
		jitter:       1e-10,
		seed:         42,
		numTrees:     50,
		treeCapacity: 256,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.shingleSize < 1 {
		c.shingleSize = 1
	}
	if c.extractor == nil {
		c.extractor = features.Default()
	}
	if c.scorer == nil {
		c.scorer = rcforest.New(
			rcforest.WithTrees(c.numTrees),
			rcforest.WithTreeCapacity(c.treeCapacity),
			rcforest.WithSeed(c.seed),
			rcforest.WithParallel(c.parallel),
		)
	}
	return &Pipeline{
		extractor: c.extractor,
		norm:      NewNormalizer(c.alpha),
		shingle:   NewShingleBuffer(c.shingleSize, c.jitter, rand.New(rand.NewSource(c.seed))),
		scorer:    c.scorer,
	}
}

// ProcessChunk scores one raw chunk against the stream seen so far. The
// first K-1 chunks (K = shingle size) return a not-ready result while
// temporal context accumulates; every chunk after that returns a score.
func (p *Pipeline) ProcessChunk(samples []float64, sampleRate float64) (detectors.ScoreResult, error) {
	vec, err := p.extractor.Extract(samples, sampleRate)
	if err != nil {
		return detectors.NotReady(), err
	}

	point, ok := p.shingle.Push(p.norm.Update(vec))
	if !ok {
		return detectors.NotReady(), nil
	}

	id := p.nextID
	p.nextID++
	score, err := p.scorer.ScorePoint(point, id)
	if err != nil {
		return detectors.NotReady(), err
	}
	return detectors.Scored(id, score), nil
}

// PointsScored returns how many shingle points have been scored so far.
func (p *Pipeline) PointsScored() uint64 { return p.nextID }
