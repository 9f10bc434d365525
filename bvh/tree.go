package bvh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Bounds is an axis-aligned box.
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// Join is the smallest box containing both operands.
func (b Bounds) Join(o Bounds) Bounds {
	return Bounds{
		Min: mgl32.Vec3{
			minf(b.Min.X(), o.Min.X()),
			minf(b.Min.Y(), o.Min.Y()),
			minf(b.Min.Z(), o.Min.Z()),
		},
		Max: mgl32.Vec3{
			maxf(b.Max.X(), o.Max.X()),
			maxf(b.Max.Y(), o.Max.Y()),
			maxf(b.Max.Z(), o.Max.Z()),
		},
	}
}

func (b Bounds) Volume() float32 {
	e := b.Max.Sub(b.Min)
	return e.X() * e.Y() * e.Z()
}

func (b Bounds) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b Bounds) Extents() mgl32.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

type node[T any] struct {
	parent     *node[T]
	rightChild bool
	bounds     Bounds
	// height above the deepest leaf; leaves are 0
	height int

	left  *node[T]
	right *node[T]
	value T
}

func (n *node[T]) isLeaf() bool {
	return n.left == nil
}

func (n *node[T]) child(right bool) *node[T] {
	if right {
		return n.right
	}
	return n.left
}

func (n *node[T]) setChild(right bool, c *node[T]) {
	if right {
		n.right = c
	} else {
		n.left = c
	}
}

// Leaf is the handle returned by Insert; pass it back to Remove or Update.
type Leaf[T any] struct {
	n    *node[T]
	tree *Tree[T]
}

func (l *Leaf[T]) Value() T {
	return l.n.value
}

func (l *Leaf[T]) Bounds() Bounds {
	return l.n.bounds
}

// Tree is an incrementally maintained hierarchy of axis-aligned boxes. New
// leaves descend toward the sibling whose box grows the least, and removals
// collapse the vacated branch; rotations keep sibling heights within one of
// each other.
type Tree[T any] struct {
	root *node[T]
	size int
}

func NewTree[T any]() *Tree[T] {
	return &Tree[T]{}
}

func (t *Tree[T]) Len() int {
	return t.size
}

// Height is the root's height; an empty tree reports 0.
func (t *Tree[T]) Height() int {
	if t.root == nil {
		return 0
	}
	return t.root.height
}

func (t *Tree[T]) Insert(bounds Bounds, value T) *Leaf[T] {
	leaf := &node[T]{bounds: bounds, value: value}
	t.attach(leaf)
	t.size++
	return &Leaf[T]{n: leaf, tree: t}
}

func (t *Tree[T]) Remove(leaf *Leaf[T]) error {
	if leaf.tree != t {
		return fmt.Errorf("leaf does not belong to this tree")
	}
	if leaf.n.parent == nil && t.root != leaf.n {
		return fmt.Errorf("leaf already removed")
	}
	t.detach(leaf.n)
	t.size--
	leaf.tree = nil
	return nil
}

// Update moves a leaf to new bounds by detaching and reinserting it; the
// handle stays valid.
func (t *Tree[T]) Update(leaf *Leaf[T], bounds Bounds) error {
	if leaf.tree != t {
		return fmt.Errorf("leaf does not belong to this tree")
	}
	t.detach(leaf.n)
	leaf.n.bounds = bounds
	leaf.n.parent = nil
	t.attach(leaf.n)
	return nil
}

// Walk visits every node, branches included, with its bounds and height.
func (t *Tree[T]) Walk(visit func(bounds Bounds, height int)) {
	if t.root == nil {
		return
	}
	stack := []*node[T]{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		visit(n.bounds, n.height)
		if !n.isLeaf() {
			stack = append(stack, n.left, n.right)
		}
	}
}

func (t *Tree[T]) attach(leaf *node[T]) {
	if t.root == nil {
		leaf.rightChild = false
		t.root = leaf
		return
	}

	// Descend toward the child whose box grows the least, inflating bounds
	// along the path.
	cur := t.root
	newBounds := cur.bounds.Join(leaf.bounds)
	for !cur.isLeaf() {
		cur.bounds = newBounds

		newLeft := cur.left.bounds.Join(leaf.bounds)
		newRight := cur.right.bounds.Join(leaf.bounds)
		if newLeft.Volume()-cur.left.bounds.Volume() <= newRight.Volume()-cur.right.bounds.Volume() {
			cur = cur.left
			newBounds = newLeft
		} else {
			cur = cur.right
			newBounds = newRight
		}
	}

	// Split the chosen leaf into a branch holding it and the newcomer.
	branch := &node[T]{
		parent:     cur.parent,
		rightChild: cur.rightChild,
		bounds:     newBounds,
		height:     1,
		left:       cur,
		right:      leaf,
	}
	cur.parent = branch
	cur.rightChild = false
	leaf.parent = branch
	leaf.rightChild = true

	if branch.parent != nil {
		branch.parent.setChild(branch.rightChild, branch)
	} else {
		t.root = branch
	}

	for p := branch.parent; p != nil; p = p.parent {
		old := p.height
		p.rebalance()
		if p.height == old {
			break
		}
	}
}

func (t *Tree[T]) detach(leaf *node[T]) {
	parent := leaf.parent
	if parent == nil {
		t.root = nil
		return
	}
	leaf.parent = nil

	sibling := parent.child(!leaf.rightChild)
	sibling.parent = parent.parent
	if parent.parent == nil {
		t.root = sibling
	} else {
		parent.parent.setChild(parent.rightChild, sibling)
		sibling.rightChild = parent.rightChild
	}

	depthChanged, boundsChanged := true, true
	for p := sibling.parent; p != nil; p = p.parent {
		if depthChanged {
			old := p.height
			p.rebalance()
			depthChanged = old != p.height
		}
		if boundsChanged {
			joined := p.left.bounds.Join(p.right.bounds)
			boundsChanged = joined != p.bounds
			p.bounds = joined
		}
		if !depthChanged && !boundsChanged {
			break
		}
	}
}

// rebalance restores the height invariant at this branch by swapping the
// shallow child with the deep grandchild when sibling heights drift more
// than one apart.
func (n *node[T]) rebalance() {
	if n.isLeaf() {
		return
	}

	lh, rh := n.left.height, n.right.height
	balance := lh - rh

	var larger *node[T]
	switch {
	case balance > 1:
		larger = n.left
	case balance < -1:
		larger = n.right
	default:
		n.height = maxi(lh, rh) + 1
		return
	}

	small := n.child(!larger.rightChild)
	grand := larger.left
	if larger.left.height < larger.right.height {
		grand = larger.right
	}

	smallRight := small.rightChild
	grandRight := grand.rightChild
	n.setChild(smallRight, grand)
	larger.setChild(grandRight, small)
	small.parent, grand.parent = larger, n
	small.rightChild, grand.rightChild = grandRight, smallRight

	larger.height = maxi(larger.left.height, larger.right.height) + 1
	larger.bounds = larger.left.bounds.Join(larger.right.bounds)
	n.height = maxi(grand.height, larger.height) + 1
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func maxi(a, b int) int {
	if a > b {
		return a
	}
	return b
}
