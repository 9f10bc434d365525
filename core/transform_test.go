package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestTransformLocalModel(t *testing.T) {
	tr := NewTransform()
	tr.SetTranslation(mgl32.Vec3{10, 20, 30})
	tr.SetScale(mgl32.Vec3{2, 2, 2})

	p := tr.LocalModel().Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	want := mgl32.Vec4{12, 20, 30, 1}
	for i := 0; i < 4; i++ {
		if !almostEqual(p[i], want[i], 1e-5) {
			t.Fatalf("expected %v, got %v", want, p)
		}
	}
}

func TestTransformCacheInvalidation(t *testing.T) {
	tr := NewTransform()
	first := tr.LocalModel()

	tr.SetTranslation(mgl32.Vec3{5, 0, 0})
	second := tr.LocalModel()

	if first == second {
		t.Error("setting translation should invalidate the cached model")
	}
	if !almostEqual(second.At(0, 3), 5, 1e-6) {
		t.Errorf("expected x translation 5, got %f", second.At(0, 3))
	}
}

func TestTransformParentChain(t *testing.T) {
	sys := NewTransformSystem()

	root := NewTransform()
	root.SetTranslation(mgl32.Vec3{0, 10, 0})
	rootID := sys.Add(root)

	child := NewTransform()
	child.SetTranslation(mgl32.Vec3{1, 0, 0})
	child.SetParent(rootID)
	childID := sys.Add(child)

	grandchild := NewTransform()
	grandchild.SetTranslation(mgl32.Vec3{0, 0, 2})
	grandchild.SetParent(childID)
	grandchildID := sys.Add(grandchild)

	model, err := sys.WorldModel(grandchildID)
	if err != nil {
		t.Fatal(err)
	}

	p := model.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	want := mgl32.Vec4{1, 10, 2, 1}
	for i := 0; i < 4; i++ {
		if !almostEqual(p[i], want[i], 1e-5) {
			t.Fatalf("expected world position %v, got %v", want, p)
		}
	}
}

func TestTransformParentRotationAppliesToChild(t *testing.T) {
	sys := NewTransformSystem()

	root := NewTransform()
	root.SetRotation(mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0}))
	rootID := sys.Add(root)

	child := NewTransform()
	child.SetTranslation(mgl32.Vec3{1, 0, 0})
	child.SetParent(rootID)
	childID := sys.Add(child)

	model, err := sys.WorldModel(childID)
	if err != nil {
		t.Fatal(err)
	}

	// +X offset rotated 90 degrees around Y lands on -Z.
	p := model.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if !almostEqual(p.X(), 0, 1e-5) || !almostEqual(p.Z(), -1, 1e-5) {
		t.Errorf("expected child at (0,0,-1), got %v", p)
	}
}

func TestTransformMissingParent(t *testing.T) {
	sys := NewTransformSystem()

	orphan := NewTransform()
	orphan.SetParent(TransformID(999))
	id := sys.Add(orphan)

	if _, err := sys.WorldModel(id); err == nil {
		t.Error("expected error for missing parent")
	}
	if _, err := sys.WorldModel(TransformID(12345)); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestTransformSystemNext(t *testing.T) {
	sys := NewTransformSystem()
	a := sys.Next()
	b := sys.Next()
	if a == b {
		t.Error("Next should allocate distinct ids")
	}
	if _, ok := sys.Get(a); !ok {
		t.Error("Next should register a default transform")
	}
}

func TestNormalMatrixNonUniformScale(t *testing.T) {
	model := mgl32.Scale3D(2, 1, 1)
	normal := NormalMatrix(model)

	// A +Z face normal on a surface stretched along X must stay +Z after
	// renormalization, while naive model transform of the tangent plane
	// would shear it.
	n := normal.Mul4x1(mgl32.Vec4{0, 0, 1, 0}).Vec3().Normalize()
	if !almostEqual(n.Z(), 1, 1e-5) {
		t.Errorf("expected +Z normal, got %v", n)
	}

	// Diagonal normal: scaling X by 2 must shrink the normal's X component.
	n = normal.Mul4x1(mgl32.Vec4{1, 0, 1, 0}).Vec3().Normalize()
	if n.X() >= n.Z() {
		t.Errorf("normal should tilt away from the stretched axis, got %v", n)
	}
}
