package rcforest

import (
	"math"
	"math/rand"
	"sync"
)

// Forest is an ensemble of independently randomized random cut trees, all
// fed the same stream of points. Each tree holds at most its configured
// capacity: when full, the oldest resident point is forgotten before the
// new one is inserted. The ensemble score is the arithmetic mean of the
// per-tree collusive displacements, which averages out single-tree noise.
type Forest struct {
	numTrees int
	capacity int
	seed     int64
	parallel bool

	trees []*Tree
}

// Option configures a Forest.
type Option func(*Forest)

// WithTrees sets the number of trees in the ensemble.
func WithTrees(n int) Option {
	return func(f *Forest) {
		f.numTrees = n
	}
}

// WithTreeCapacity sets the maximum number of points held per tree.
func WithTreeCapacity(n int) Option {
	return func(f *Forest) {
		f.capacity = n
	}
}

// WithSeed sets the random seed for reproducibility. Tree i draws its cuts
// from seed+i, so a fixed seed yields an identical score sequence for an
// identical input stream.
func WithSeed(seed int64) Option {
	return func(f *Forest) {
		f.seed = seed
	}
}

// WithParallel scores the trees concurrently. Trees share no mutable state,
// and each owns its random source, so scores are unchanged by scheduling.
func WithParallel(parallel bool) Option {
	return func(f *Forest) {
		f.parallel = parallel
	}
}

// New creates a Forest with the given options.
func New(opts ...Option) *Forest {
	f := &Forest{
		numTrees: 50,
		capacity: 256,
		seed:     42,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.numTrees < 1 {
		f.numTrees = 1
	}
	if f.capacity < 2 {
		f.capacity = 2
	}
	f.trees = make([]*Tree, f.numTrees)
	for i := range f.trees {
		f.trees[i] = NewTree(rand.New(rand.NewSource(f.seed + int64(i))))
	}
	return f
}

// NumTrees returns the ensemble size.
func (f *Forest) NumTrees() int { return f.numTrees }

// Capacity returns the per-tree point limit.
func (f *Forest) Capacity() int { return f.capacity }

// Len returns the number of points currently resident. All trees see the
// same stream, so any tree answers for the ensemble.
func (f *Forest) Len() int {
	return f.trees[0].Len()
}

// ScorePoint feeds the point to every tree and returns the mean collusive
// displacement. Ids must be strictly increasing across calls; eviction
// relies on the smallest resident id being the oldest point.
func (f *Forest) ScorePoint(point []float64, id uint64) (float64, error) {
	scores := make([]float64, len(f.trees))
	errs := make([]error, len(f.trees))

	if f.parallel {
		var wg sync.WaitGroup
		wg.Add(len(f.trees))
		for i, tree := range f.trees {
			go func(i int, tree *Tree) {
				defer wg.Done()
				scores[i], errs[i] = f.scoreTree(tree, point, id)
			}(i, tree)
		}
		wg.Wait()
	} else {
		for i, tree := range f.trees {
			scores[i], errs[i] = f.scoreTree(tree, point, id)
		}
	}

	sum := 0.0
	for i, err := range errs {
		if err != nil {
			return math.NaN(), err
		}
		sum += scores[i]
	}
	return sum / float64(len(f.trees)), nil
}

// scoreTree runs the evict-insert-score cycle on a single tree.
func (f *Forest) scoreTree(t *Tree, point []float64, id uint64) (float64, error) {
	if t.Len() >= f.capacity {
		oldest, _ := t.OldestID()
		if err := t.Forget(oldest); err != nil {
			return 0, err
		}
	}
	if err := t.Insert(point, id); err != nil {
		return 0, err
	}
	return t.CoDisp(id)
}
