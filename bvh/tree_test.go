package bvh

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func box(minX, minY, minZ, maxX, maxY, maxZ float32) Bounds {
	return Bounds{
		Min: mgl32.Vec3{minX, minY, minZ},
		Max: mgl32.Vec3{maxX, maxY, maxZ},
	}
}

var (
	unitBox = box(0, 0, 0, 1, 1, 1)
	box2    = box(1, 1, 1, 2, 2, 2)
	box3    = box(4, 2, 4, 5, 5, 6)
	box4    = box(-1, -1, -1, 1, 1, 1)
	box5    = box(-5, -2, -5, 0, -1, 0)
	box6    = box(2, -5, 5, 5, -1, 20)
)

var mixedBoxes = []Bounds{
	unitBox, box2, box3, box4, unitBox, box5, box6, box2, box4, box6,
}

// validateNode checks parent wiring, side flags, bounds joins and heights for
// the whole subtree and returns the number of leaves below n.
func validateNode(t *testing.T, n, parent *node[int], rightChild bool) int {
	t.Helper()

	if n.parent != parent {
		t.Fatalf("node parent = %p, want %p", n.parent, parent)
	}
	if parent != nil && n.rightChild != rightChild {
		t.Fatalf("node side = %v, want %v", n.rightChild, rightChild)
	}

	if n.isLeaf() {
		if n.right != nil {
			t.Fatal("leaf has a right child")
		}
		if n.height != 0 {
			t.Fatalf("leaf height = %d, want 0", n.height)
		}
		return 1
	}

	if n.right == nil {
		t.Fatal("branch missing right child")
	}
	if joined := n.left.bounds.Join(n.right.bounds); n.bounds != joined {
		t.Fatalf("branch bounds = %v, want join of children %v", n.bounds, joined)
	}
	want := maxi(n.left.height, n.right.height) + 1
	if n.height != want {
		t.Fatalf("branch height = %d, want %d", n.height, want)
	}
	if diff := n.left.height - n.right.height; diff < -1 || diff > 1 {
		t.Fatalf("branch unbalanced: left %d, right %d", n.left.height, n.right.height)
	}

	leaves := validateNode(t, n.left, n, false)
	leaves += validateNode(t, n.right, n, true)
	return leaves
}

func validateTree(t *testing.T, tree *Tree[int]) {
	t.Helper()

	if tree.root == nil {
		if tree.Len() != 0 {
			t.Fatalf("empty tree reports %d leaves", tree.Len())
		}
		return
	}
	leaves := validateNode(t, tree.root, nil, false)
	if leaves != tree.Len() {
		t.Fatalf("counted %d leaves, Len() = %d", leaves, tree.Len())
	}
}

func TestTreeInsert(t *testing.T) {
	tree := NewTree[int]()
	tree.Insert(unitBox, 0)
	tree.Insert(box2, 1)
	tree.Insert(box2, 2)

	validateTree(t, tree)
	if tree.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tree.Len())
	}
}

func TestTreeRemove(t *testing.T) {
	tree := NewTree[int]()
	tree.Insert(unitBox, 0)
	b := tree.Insert(box2, 1)
	tree.Insert(box2, 2)

	if err := tree.Remove(b); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	validateTree(t, tree)
	if tree.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tree.Len())
	}
}

func TestTreeBigInsert(t *testing.T) {
	tree := NewTree[int]()
	for i, b := range mixedBoxes {
		tree.Insert(b, i)
	}

	validateTree(t, tree)
	if tree.Len() != len(mixedBoxes) {
		t.Fatalf("Len() = %d, want %d", tree.Len(), len(mixedBoxes))
	}

	nodes := 0
	tree.Walk(func(Bounds, int) { nodes++ })
	if want := 2*len(mixedBoxes) - 1; nodes != want {
		t.Fatalf("walked %d nodes, want %d", nodes, want)
	}
}

func TestTreeBigRemove(t *testing.T) {
	tree := NewTree[int]()
	a := tree.Insert(box6, -1)
	for i, b := range mixedBoxes {
		tree.Insert(b, i)
	}
	b := tree.Insert(box2, -2)

	if err := tree.Remove(a); err != nil {
		t.Fatalf("Remove(a): %v", err)
	}
	if err := tree.Remove(b); err != nil {
		t.Fatalf("Remove(b): %v", err)
	}

	validateTree(t, tree)
	if tree.Len() != len(mixedBoxes) {
		t.Fatalf("Len() = %d, want %d", tree.Len(), len(mixedBoxes))
	}
}

func TestTreeRemoveBranchRoot(t *testing.T) {
	tree := NewTree[int]()
	tree.Insert(unitBox, 0)
	b := tree.Insert(box2, 1)

	if err := tree.Remove(b); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	validateTree(t, tree)
	if tree.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tree.Len())
	}
	if tree.root == nil || !tree.root.isLeaf() {
		t.Fatal("root should be the surviving leaf")
	}
	if tree.root.bounds != unitBox {
		t.Fatalf("root bounds = %v, want %v", tree.root.bounds, unitBox)
	}
}

func TestTreeRemoveLeafRoot(t *testing.T) {
	tree := NewTree[int]()
	a := tree.Insert(unitBox, 0)

	if err := tree.Remove(a); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if tree.root != nil {
		t.Fatal("tree should be empty")
	}
	if tree.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", tree.Len())
	}
	if tree.Height() != 0 {
		t.Fatalf("Height() = %d, want 0", tree.Height())
	}
}

func TestTreeRemoveTwice(t *testing.T) {
	tree := NewTree[int]()
	tree.Insert(unitBox, 0)
	b := tree.Insert(box2, 1)

	if err := tree.Remove(b); err != nil {
		t.Fatalf("first Remove: %v", err)
	}
	if err := tree.Remove(b); err == nil {
		t.Fatal("second Remove should fail")
	}
}

func TestTreeRemoveForeignLeaf(t *testing.T) {
	a := NewTree[int]()
	b := NewTree[int]()
	leaf := a.Insert(unitBox, 0)

	if err := b.Remove(leaf); err == nil {
		t.Fatal("removing a foreign leaf should fail")
	}
	validateTree(t, a)
	if a.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", a.Len())
	}
}

func TestTreeUpdate(t *testing.T) {
	tree := NewTree[int]()
	for i, b := range mixedBoxes {
		tree.Insert(b, i)
	}
	moved := tree.Insert(unitBox, -1)

	far := box(40, 40, 40, 41, 41, 41)
	if err := tree.Update(moved, far); err != nil {
		t.Fatalf("Update: %v", err)
	}

	validateTree(t, tree)
	if moved.Bounds() != far {
		t.Fatalf("leaf bounds = %v, want %v", moved.Bounds(), far)
	}
	if tree.Len() != len(mixedBoxes)+1 {
		t.Fatalf("Len() = %d, want %d", tree.Len(), len(mixedBoxes)+1)
	}

	// handle stays usable after a move
	if err := tree.Remove(moved); err != nil {
		t.Fatalf("Remove after Update: %v", err)
	}
	validateTree(t, tree)
}

func TestTreeWalkHeights(t *testing.T) {
	tree := NewTree[int]()
	for i, b := range mixedBoxes {
		tree.Insert(b, i)
	}

	leaves, maxHeight := 0, 0
	tree.Walk(func(b Bounds, height int) {
		if height == 0 {
			leaves++
		}
		if height > maxHeight {
			maxHeight = height
		}
	})
	if leaves != tree.Len() {
		t.Fatalf("walked %d leaves, Len() = %d", leaves, tree.Len())
	}
	if maxHeight != tree.Height() {
		t.Fatalf("max walked height = %d, Height() = %d", maxHeight, tree.Height())
	}
}

func TestBoundsJoinVolume(t *testing.T) {
	joined := unitBox.Join(box2)
	if joined != box(0, 0, 0, 2, 2, 2) {
		t.Fatalf("Join = %v", joined)
	}
	if v := joined.Volume(); v != 8 {
		t.Fatalf("Volume = %v, want 8", v)
	}
	if c := joined.Center(); c != (mgl32.Vec3{1, 1, 1}) {
		t.Fatalf("Center = %v", c)
	}
	if e := joined.Extents(); e != (mgl32.Vec3{1, 1, 1}) {
		t.Fatalf("Extents = %v", e)
	}
}

func TestTreeValueRoundTrip(t *testing.T) {
	tree := NewTree[int]()
	leaf := tree.Insert(box3, 42)
	if leaf.Value() != 42 {
		t.Fatalf("Value() = %d, want 42", leaf.Value())
	}
	if leaf.Bounds() != box3 {
		t.Fatalf("Bounds() = %v, want %v", leaf.Bounds(), box3)
	}
}
