package core

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

type TransformID uint32

// Transform is a translation/rotation/scale triple with an optional parent.
// The local model matrix is cached and invalidated by the setters.
type Transform struct {
	parent     TransformID
	hasParent  bool
	localModel *mgl32.Mat4

	translation mgl32.Vec3
	rotation    mgl32.Quat
	scale       mgl32.Vec3
}

func NewTransform() Transform {
	return Transform{
		rotation: mgl32.QuatIdent(),
		scale:    mgl32.Vec3{1, 1, 1},
	}
}

func (t *Transform) Translation() mgl32.Vec3 { return t.translation }
func (t *Transform) Rotation() mgl32.Quat    { return t.rotation }
func (t *Transform) Scale() mgl32.Vec3       { return t.scale }

func (t *Transform) SetTranslation(v mgl32.Vec3) {
	t.translation = v
	t.localModel = nil
}

func (t *Transform) SetRotation(q mgl32.Quat) {
	t.rotation = q
	t.localModel = nil
}

func (t *Transform) SetScale(s mgl32.Vec3) {
	t.scale = s
	t.localModel = nil
}

func (t *Transform) SetParent(id TransformID) {
	t.parent = id
	t.hasParent = true
}

func (t *Transform) ClearParent() {
	t.hasParent = false
}

func (t *Transform) LocalModel() mgl32.Mat4 {
	if t.localModel == nil {
		m := mgl32.Translate3D(t.translation.X(), t.translation.Y(), t.translation.Z()).
			Mul4(t.rotation.Mat4()).
			Mul4(mgl32.Scale3D(t.scale.X(), t.scale.Y(), t.scale.Z()))
		t.localModel = &m
	}
	return *t.localModel
}

// TransformSystem owns all transforms, keyed by id. World models are the
// product of the parent chain, root first.
type TransformSystem struct {
	transforms map[TransformID]*Transform
	nextID     TransformID
}

func NewTransformSystem() *TransformSystem {
	return &TransformSystem{
		transforms: make(map[TransformID]*Transform),
	}
}

func (s *TransformSystem) Add(t Transform) TransformID {
	id := s.nextID
	s.nextID++
	s.transforms[id] = &t
	return id
}

// Next allocates a fresh default transform and returns its id.
func (s *TransformSystem) Next() TransformID {
	return s.Add(NewTransform())
}

func (s *TransformSystem) Get(id TransformID) (*Transform, bool) {
	t, ok := s.transforms[id]
	return t, ok
}

func (s *TransformSystem) WorldModel(id TransformID) (mgl32.Mat4, error) {
	t, ok := s.transforms[id]
	if !ok {
		return mgl32.Ident4(), fmt.Errorf("transform %d not found", id)
	}

	chain := []*Transform{t}
	for t.hasParent {
		parent, ok := s.transforms[t.parent]
		if !ok {
			return mgl32.Ident4(), fmt.Errorf("transform %d: parent %d not found", id, t.parent)
		}
		chain = append(chain, parent)
		t = parent
	}

	model := mgl32.Ident4()
	for i := len(chain) - 1; i >= 0; i-- {
		model = model.Mul4(chain[i].LocalModel())
	}
	return model, nil
}

// NormalMatrix transforms normals correctly under non-uniform scale.
func NormalMatrix(model mgl32.Mat4) mgl32.Mat4 {
	return model.Inv().Transpose()
}
