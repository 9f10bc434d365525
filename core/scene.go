package core

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// RenderObject binds a mesh to a material through a transform.
type RenderObject struct {
	Mesh      AssetID
	Material  AssetID
	Transform TransformID
}

// InstanceData is one object's per-instance GPU record. Normal is the
// transpose of the inverse of Model so normals stay correct under
// non-uniform scale.
type InstanceData struct {
	Model  mgl32.Mat4
	Normal mgl32.Mat4
}

// DrawBatch is a run of consecutive instances sharing one mesh and material.
// FirstInstance addresses the run inside the frame's instance buffer.
type DrawBatch struct {
	Mesh          AssetID
	Material      AssetID
	FirstInstance uint32
	InstanceCount uint32
}

// FrameDraws is a scene flattened for upload: instances ordered by batch,
// light records and overlay boxes as packed slices.
type FrameDraws struct {
	Instances       []InstanceData
	Batches         []DrawBatch
	PointLights     []PointLight
	DirectionLights []DirectionLight
	Boxes           []BoxRecord
	Ambient         mgl32.Vec4
}

// Scene holds everything drawn in a frame. Lights carry explicit world
// positions; callers that want a light to follow an object update the
// position themselves.
type Scene struct {
	Transforms      *TransformSystem
	Objects         []*RenderObject
	PointLights     []PointLight
	DirectionLights []DirectionLight
	Ambient         mgl32.Vec4
	Boxes           []BoxRecord
}

func NewScene() *Scene {
	return &Scene{
		Transforms: NewTransformSystem(),
	}
}

func (s *Scene) AddObject(obj *RenderObject) {
	s.Objects = append(s.Objects, obj)
}

func (s *Scene) RemoveObject(obj *RenderObject) {
	for i, o := range s.Objects {
		if o == obj {
			s.Objects = append(s.Objects[:i], s.Objects[i+1:]...)
			return
		}
	}
}

// Spawn adds an object at translation and returns it with its transform id.
func (s *Scene) Spawn(mesh, material AssetID, translation mgl32.Vec3) (*RenderObject, TransformID) {
	t := NewTransform()
	t.SetTranslation(translation)
	id := s.Transforms.Add(t)

	obj := &RenderObject{
		Mesh:      mesh,
		Material:  material,
		Transform: id,
	}
	s.AddObject(obj)
	return obj, id
}

// Collect flattens the scene into per-frame draw data. Objects are grouped
// into batches keyed by material and mesh so the geometry pass can draw each
// group with one instanced call; instance order matches batch order, making
// FirstInstance the object's index in the instance buffer. Material kinds
// come from assets so batches sharing a pipeline end up adjacent.
func (s *Scene) Collect(assets *Assets) (FrameDraws, error) {
	type drawKey struct {
		kind     MaterialKind
		material AssetID
		mesh     AssetID
	}

	keys := make([]drawKey, len(s.Objects))
	order := make([]int, len(s.Objects))
	for i, obj := range s.Objects {
		mat, ok := assets.Material(obj.Material)
		if !ok {
			return FrameDraws{}, fmt.Errorf("object %d: material %s not found", i, obj.Material)
		}
		keys[i] = drawKey{kind: mat.Kind, material: obj.Material, mesh: obj.Mesh}
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ka, kb := keys[order[a]], keys[order[b]]
		if ka.kind != kb.kind {
			return ka.kind < kb.kind
		}
		if ka.material != kb.material {
			return ka.material < kb.material
		}
		return ka.mesh < kb.mesh
	})

	draws := FrameDraws{
		Instances:       make([]InstanceData, 0, len(s.Objects)),
		PointLights:     s.PointLights,
		DirectionLights: s.DirectionLights,
		Boxes:           s.Boxes,
		Ambient:         s.Ambient,
	}

	for _, i := range order {
		obj := s.Objects[i]
		model, err := s.Transforms.WorldModel(obj.Transform)
		if err != nil {
			return FrameDraws{}, err
		}

		key := keys[i]
		n := len(draws.Batches)
		if n > 0 && draws.Batches[n-1].Material == key.material && draws.Batches[n-1].Mesh == key.mesh {
			draws.Batches[n-1].InstanceCount++
		} else {
			draws.Batches = append(draws.Batches, DrawBatch{
				Mesh:          key.mesh,
				Material:      key.material,
				FirstInstance: uint32(len(draws.Instances)),
				InstanceCount: 1,
			})
		}
		draws.Instances = append(draws.Instances, InstanceData{
			Model:  model,
			Normal: NormalMatrix(model),
		})
	}
	return draws, nil
}
