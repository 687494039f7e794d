package rcforest

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree(seed int64) *Tree {
	return NewTree(rand.New(rand.NewSource(seed)))
}

// randomPoints returns n distinct pseudo-random points of the given
// dimension, deterministic for a fixed seed.
func randomPoints(n, dims int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	points := make([][]float64, n)
	for i := range points {
		p := make([]float64, dims)
		for d := range p {
			p[d] = rng.NormFloat64()
		}
		points[i] = p
	}
	return points
}

func TestTreeInsert(t *testing.T) {
	tree := newTestTree(1)

	for i, p := range randomPoints(20, 3, 7) {
		require.NoError(t, tree.Insert(p, uint64(i)))
		assert.Equal(t, i+1, tree.Len())
	}
	for i := 0; i < 20; i++ {
		assert.True(t, tree.Contains(uint64(i)))
	}
}

func TestTreeInsertErrors(t *testing.T) {
	tests := []struct {
		name    string
		insert  func(tree *Tree) error
		wantErr error
	}{
		{
			name: "duplicate id",
			insert: func(tree *Tree) error {
				return tree.Insert([]float64{3, 4}, 0)
			},
			wantErr: ErrDuplicateID,
		},
		{
			name: "dimension mismatch",
			insert: func(tree *Tree) error {
				return tree.Insert([]float64{1, 2, 3}, 1)
			},
			wantErr: ErrDimensionMismatch,
		},
		{
			name: "coordinate-identical point",
			insert: func(tree *Tree) error {
				return tree.Insert([]float64{1, 2}, 1)
			},
			wantErr: ErrDegeneratePoint,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := newTestTree(1)
			require.NoError(t, tree.Insert([]float64{1, 2}, 0))
			assert.ErrorIs(t, tt.insert(tree), tt.wantErr)
		})
	}
}

func TestTreeForget(t *testing.T) {
	tree := newTestTree(2)
	points := randomPoints(10, 2, 9)
	for i, p := range points {
		require.NoError(t, tree.Insert(p, uint64(i)))
	}

	require.NoError(t, tree.Forget(3))
	assert.Equal(t, 9, tree.Len())
	assert.False(t, tree.Contains(3))
	checkStructure(t, tree)

	t.Run("unknown id", func(t *testing.T) {
		err := tree.Forget(3)
		assert.ErrorIs(t, err, ErrPointNotFound)
	})

	t.Run("forget down to empty", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			if i == 3 {
				continue
			}
			require.NoError(t, tree.Forget(uint64(i)))
		}
		assert.Equal(t, 0, tree.Len())
		assert.Nil(t, tree.root)
	})
}

func TestForgetRestoresShape(t *testing.T) {
	tree := newTestTree(3)
	points := randomPoints(15, 4, 11)
	for i, p := range points {
		require.NoError(t, tree.Insert(p, uint64(i)))
	}

	before := shapeOf(tree.root)

	require.NoError(t, tree.Insert([]float64{5, 5, 5, 5}, 100))
	require.NoError(t, tree.Forget(100))

	assert.Equal(t, 15, tree.Len())
	assert.False(t, tree.Contains(100))
	assert.Equal(t, before, shapeOf(tree.root))
	checkStructure(t, tree)
}

func TestSolePointCoDisp(t *testing.T) {
	tree := newTestTree(4)
	require.NoError(t, tree.Insert([]float64{1, 2}, 0))

	score, err := tree.CoDisp(0)
	require.NoError(t, err)
	assert.Zero(t, score)
}

func TestCoDispUnknownID(t *testing.T) {
	tree := newTestTree(5)
	require.NoError(t, tree.Insert([]float64{1, 2}, 0))

	_, err := tree.CoDisp(42)
	assert.ErrorIs(t, err, ErrPointNotFound)
}

func TestStructureAfterChurn(t *testing.T) {
	tree := newTestTree(6)
	points := randomPoints(200, 3, 13)

	next := uint64(0)
	for i, p := range points {
		if tree.Len() >= 32 {
			oldest, ok := tree.OldestID()
			require.True(t, ok)
			require.NoError(t, tree.Forget(oldest))
		}
		require.NoError(t, tree.Insert(p, next))
		next++
		if i%17 == 0 {
			checkStructure(t, tree)
		}
	}
	assert.Equal(t, 32, tree.Len())
	checkStructure(t, tree)
}

// shape captures the structural identity of a node for before/after
// comparison: forgetting a point must leave the surviving nodes untouched.
type shape struct {
	leaf     bool
	id       uint64
	cutDim   int
	cutValue float64
	size     int
	children []shape
}

func shapeOf(n *node) shape {
	if n == nil {
		return shape{}
	}
	s := shape{leaf: n.isLeaf(), id: n.id, cutDim: n.cutDim, cutValue: n.cutValue, size: n.size}
	if !n.isLeaf() {
		s.children = []shape{shapeOf(n.left), shapeOf(n.right)}
	}
	return s
}

// checkStructure verifies the tree's internal invariants: cached sizes match
// leaf counts, every branch's box is the union of its children's boxes,
// every point lies inside its ancestors' boxes, and the id index agrees with
// the reachable leaves.
func checkStructure(t *testing.T, tree *Tree) {
	t.Helper()
	seen := map[uint64]bool{}
	if tree.root != nil {
		require.Nil(t, tree.root.parent)
		checkNode(t, tree.root, seen)
	}
	require.Len(t, tree.leaves, len(seen))
	for id, leaf := range tree.leaves {
		require.True(t, seen[id], "indexed id %d not reachable from root", id)
		require.Equal(t, id, leaf.id)
	}
}

func checkNode(t *testing.T, n *node, seen map[uint64]bool) int {
	t.Helper()
	if n.isLeaf() {
		require.Equal(t, 1, n.size)
		seen[n.id] = true
		return 1
	}
	require.Same(t, n, n.left.parent)
	require.Same(t, n, n.right.parent)
	count := checkNode(t, n.left, seen) + checkNode(t, n.right, seen)
	require.Equal(t, count, n.size, "cached size out of step with leaf count")
	for d := range n.boxMin {
		lo, hi := n.left.boxMin[d], n.left.boxMax[d]
		if n.right.boxMin[d] < lo {
			lo = n.right.boxMin[d]
		}
		if n.right.boxMax[d] > hi {
			hi = n.right.boxMax[d]
		}
		require.Equal(t, lo, n.boxMin[d], "box min not the union of children")
		require.Equal(t, hi, n.boxMax[d], "box max not the union of children")
	}
	return count
}
