// Package rcforest implements streaming anomaly detection with an ensemble
// of random cut trees. Unlike a batch isolation forest, the trees here are
// dynamic: points are inserted as they arrive and forgotten as they age out,
// so the model tracks the recent stream under a fixed memory bound.
package rcforest

import (
	"errors"
	"fmt"
	"math/rand"
)

var (
	// ErrPointNotFound is returned when an id is not resident in a tree.
	// Under correct eviction bookkeeping this never happens; seeing it
	// means tree state and eviction order have diverged.
	ErrPointNotFound = errors.New("point not found in tree")

	// ErrDuplicateID is returned when an id is inserted twice.
	ErrDuplicateID = errors.New("duplicate point id")

	// ErrDegeneratePoint is returned when a point coincides with the
	// tree's entire bounding box on every dimension, leaving no extent to
	// cut. Callers avoid this by adding a tiny jitter to their points.
	ErrDegeneratePoint = errors.New("point duplicates the subtree bounding box")

	// ErrDimensionMismatch is returned when a point's length differs from
	// the points already in the tree.
	ErrDimensionMismatch = errors.New("point dimension mismatch")
)

// node is a node in a random cut tree. A leaf holds exactly one point; a
// branch holds an axis-aligned cut and two children. Branches cache their
// subtree point count and bounding box so that forgetting and scoring never
// have to visit leaves.
type node struct {
	parent *node

	// Branch fields. left == nil identifies a leaf.
	left, right *node
	cutDim      int
	cutValue    float64

	// Leaf fields.
	point []float64
	id    uint64

	// Tightest axis-aligned box over the subtree's points. For a leaf
	// both slices alias point.
	boxMin, boxMax []float64

	// Number of points in the subtree.
	size int
}

func (n *node) isLeaf() bool { return n.left == nil }

// sibling returns the parent's other child. Only valid for non-root nodes.
func (n *node) sibling() *node {
	if n.parent.left == n {
		return n.parent.right
	}
	return n.parent.left
}

// refresh recomputes a branch's cached size and bounding box from its
// children. Children must already be current.
func (n *node) refresh() {
	if n.isLeaf() {
		return
	}
	n.size = n.left.size + n.right.size
	for d := range n.boxMin {
		lo, hi := n.left.boxMin[d], n.left.boxMax[d]
		if n.right.boxMin[d] < lo {
			lo = n.right.boxMin[d]
		}
		if n.right.boxMax[d] > hi {
			hi = n.right.boxMax[d]
		}
		n.boxMin[d], n.boxMax[d] = lo, hi
	}
}

func newLeaf(point []float64, id uint64) *node {
	p := make([]float64, len(point))
	copy(p, point)
	return &node{point: p, id: id, boxMin: p, boxMax: p, size: 1}
}

// Tree is a single random cut tree over streaming points, supporting online
// insertion, online deletion ("forgetting") and collusive displacement
// queries. The forward root-to-leaf links are the sole ownership structure;
// the id index is a back-reference kept strictly in step with it.
//
// Tree is not safe for concurrent use. Forest gives each tree exactly one
// goroutine at a time.
type Tree struct {
	root   *node
	leaves map[uint64]*node
	rng    *rand.Rand
}

// NewTree returns an empty tree drawing its cuts from rng.
func NewTree(rng *rand.Rand) *Tree {
	return &Tree{
		leaves: make(map[uint64]*node),
		rng:    rng,
	}
}

// Len returns the number of points in the tree.
func (t *Tree) Len() int { return len(t.leaves) }

// Contains reports whether id is resident in the tree.
func (t *Tree) Contains(id uint64) bool {
	_, ok := t.leaves[id]
	return ok
}

// OldestID returns the smallest resident point id. Points arrive in
// strictly increasing id order, so this is the oldest point in the tree.
func (t *Tree) OldestID() (uint64, bool) {
	if len(t.leaves) == 0 {
		return 0, false
	}
	first := true
	var oldest uint64
	for id := range t.leaves {
		if first || id < oldest {
			oldest = id
			first = false
		}
	}
	return oldest, true
}

// Insert adds point under id. At each level a cut is drawn uniformly over
// the bounding box that would result from adding the point, dimensions
// weighted by their extent; descent stops at the first cut that separates
// the point from the existing subtree, where a new branch is spliced in.
func (t *Tree) Insert(point []float64, id uint64) error {
	if _, ok := t.leaves[id]; ok {
		return fmt.Errorf("insert %d: %w", id, ErrDuplicateID)
	}
	leaf := newLeaf(point, id)
	if t.root == nil {
		t.root = leaf
		t.leaves[id] = leaf
		return nil
	}
	if len(point) != len(t.root.boxMin) {
		return fmt.Errorf("insert %d: got %d dimensions, tree has %d: %w",
			id, len(point), len(t.root.boxMin), ErrDimensionMismatch)
	}

	cur := t.root
	for {
		cutDim, cutValue, err := t.drawCut(cur, leaf.point)
		if err != nil {
			return fmt.Errorf("insert %d: %w", id, err)
		}
		// The cut separates the point from the subtree when it falls
		// between the point's coordinate and the box edge, i.e. outside
		// the current (unexpanded) box.
		if cutValue <= cur.boxMin[cutDim] || cutValue >= cur.boxMax[cutDim] {
			t.splice(cur, leaf, cutDim, cutValue)
			t.leaves[id] = leaf
			return nil
		}
		if cur.isLeaf() {
			// A cut over a two-point box on a positive-extent
			// dimension always separates them.
			panic("rcforest: cut failed to separate distinct points")
		}
		if leaf.point[cur.cutDim] <= cur.cutValue {
			cur = cur.left
		} else {
			cur = cur.right
		}
	}
}

// drawCut samples a cut over the union of n's bounding box and point. The
// combined draw picks a dimension with probability proportional to its
// extent and a value uniform within that extent.
func (t *Tree) drawCut(n *node, point []float64) (int, float64, error) {
	total := 0.0
	for d := range point {
		lo, hi := n.boxMin[d], n.boxMax[d]
		if point[d] < lo {
			lo = point[d]
		}
		if point[d] > hi {
			hi = point[d]
		}
		total += hi - lo
	}
	if total <= 0 {
		return 0, 0, ErrDegeneratePoint
	}
	r := t.rng.Float64() * total
	acc := 0.0
	lastDim, lastLo, lastHi := -1, 0.0, 0.0
	for d := range point {
		lo, hi := n.boxMin[d], n.boxMax[d]
		if point[d] < lo {
			lo = point[d]
		}
		if point[d] > hi {
			hi = point[d]
		}
		if hi <= lo {
			continue
		}
		if acc+(hi-lo) > r {
			return d, lo + (r - acc), nil
		}
		acc += hi - lo
		lastDim, lastLo, lastHi = d, lo, hi
	}
	// Rounding pushed r past the final span; fall back to the midpoint of
	// the last positive-extent dimension.
	return lastDim, lastLo + (lastHi-lastLo)/2, nil
}

// splice replaces cur with a new branch holding cur and leaf, partitioned
// by the given cut, then refreshes counts and boxes up to the root.
func (t *Tree) splice(cur, leaf *node, cutDim int, cutValue float64) {
	dims := len(leaf.point)
	branch := &node{
		parent:   cur.parent,
		cutDim:   cutDim,
		cutValue: cutValue,
		boxMin:   make([]float64, dims),
		boxMax:   make([]float64, dims),
	}
	if leaf.point[cutDim] <= cutValue {
		branch.left, branch.right = leaf, cur
	} else {
		branch.left, branch.right = cur, leaf
	}
	if cur.parent == nil {
		t.root = branch
	} else if cur.parent.left == cur {
		cur.parent.left = branch
	} else {
		cur.parent.right = branch
	}
	cur.parent = branch
	leaf.parent = branch
	for n := branch; n != nil; n = n.parent {
		n.refresh()
	}
}

// Forget removes the point registered under id by replacing its parent
// branch with the point's sibling, then refreshes counts and boxes up to
// the root. An unknown id means eviction bookkeeping and tree state have
// diverged, which is surfaced as ErrPointNotFound and never skipped.
func (t *Tree) Forget(id uint64) error {
	leaf, ok := t.leaves[id]
	if !ok {
		return fmt.Errorf("forget %d: %w", id, ErrPointNotFound)
	}
	delete(t.leaves, id)

	parent := leaf.parent
	if parent == nil {
		if t.root != leaf {
			panic("rcforest: leaf index points outside the tree")
		}
		t.root = nil
		return nil
	}
	sib := leaf.sibling()
	grand := parent.parent
	sib.parent = grand
	if grand == nil {
		t.root = sib
	} else if grand.left == parent {
		grand.left = sib
	} else {
		grand.right = sib
	}
	for n := grand; n != nil; n = n.parent {
		n.refresh()
	}
	return nil
}

// CoDisp returns the collusive displacement of the point registered under
// id: the maximum, over the leaf's ancestor branches, of the fraction of
// that branch's points that would be displaced if the subtree containing
// the point were removed. A sole point has no ancestor branch and scores 0.
func (t *Tree) CoDisp(id uint64) (float64, error) {
	leaf, ok := t.leaves[id]
	if !ok {
		return 0, fmt.Errorf("codisp %d: %w", id, ErrPointNotFound)
	}
	best := 0.0
	for n := leaf; n.parent != nil; n = n.parent {
		ratio := float64(n.sibling().size) / float64(n.parent.size)
		if ratio > best {
			best = ratio
		}
	}
	return best, nil
}
