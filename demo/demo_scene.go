package main

import (
	"math"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Dolbhi/deferred-renderer/app"
	"github.com/Dolbhi/deferred-renderer/bvh"
	"github.com/Dolbhi/deferred-renderer/core"
)

// demoState drives the per-frame scene animation: the light that follows the
// camera, the spinning center piece and the overlay tree fed from its bounds.
type demoState struct {
	app    *app.App
	window *glfw.Window

	tree       *bvh.Tree[*core.RenderObject]
	centerLeaf *bvh.Leaf[*core.RenderObject]
	centerID   core.TransformID
	centerBase bvh.Bounds
	whiteLight int
	angle      float32

	mouseCaptured bool
}

func buildScene(a *app.App, window *glfw.Window, modelPath string) (*demoState, error) {
	assets, scene := a.Assets, a.Scene

	centerMesh := core.CubeMesh()
	cube := assets.AddMesh(centerMesh)
	square := assets.AddMesh(core.SquareMesh())

	center := cube
	if modelPath != "" {
		if ids, err := assets.LoadMeshOBJ(modelPath); err != nil {
			a.Log.Warnf("load %s: %v, using the unit cube", modelPath, err)
		} else if len(ids) > 0 {
			center = ids[0]
			centerMesh, _ = assets.Mesh(center)
		}
	}

	uv := assets.AddMaterial(core.Material{Kind: core.MaterialUV})
	gradient := assets.AddMaterial(core.Material{Kind: core.MaterialGradient})
	green := assets.AddMaterial(core.NewColorMaterial([4]uint8{0, 255, 0, 255}))
	red := assets.AddMaterial(core.NewColorMaterial([4]uint8{255, 0, 0, 255}))
	blue := assets.AddMaterial(core.NewColorMaterial([4]uint8{0, 0, 255, 255}))
	marker := assets.AddMaterial(core.NewBillboardMaterial([4]uint8{255, 0, 255, 255}))

	checkerTex := assets.AddTexture(checkerTexels(64, 8), 64, 64)
	nearest := assets.AddSampler(core.SamplerFilterNearest)
	checker := assets.AddMaterial(core.NewTexturedMaterial(checkerTex, nearest))

	// Spinning center piece.
	centerObj, centerID := scene.Spawn(center, uv, mgl32.Vec3{0, 0, 0})

	// Floor grid. Cubes alternate between the checker texture and flat green.
	for x := 0; x < 8; x++ {
		for z := 0; z < 8; z++ {
			mat := checker
			if (x+z)%2 == 1 {
				mat = green
			}
			scene.Spawn(cube, mat, mgl32.Vec3{float32(x*3) - 10.5, -2, float32(z*3) - 10.5})
		}
	}

	// Gradient squares marking the unit axes.
	for _, p := range []mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}} {
		scene.Spawn(square, gradient, p)
	}

	// Billboard marker above the center piece.
	scene.Spawn(square, marker, mgl32.Vec3{0, 2, 0})

	sunAngle := math.Pi / 4
	scene.PointLights = []core.PointLight{
		{Color: mgl32.Vec3{1, 0, 0}, Intensity: 3, Position: mgl32.Vec3{0, 5, -1}, Radius: 9},
		{Color: mgl32.Vec3{0, 0, 1}, Intensity: 2, Position: mgl32.Vec3{0, 6, -1}, Radius: 9},
		{Color: mgl32.Vec3{1, 1, 1}, Intensity: 1, Position: a.Camera.Position, Radius: 9},
	}
	scene.DirectionLights = []core.DirectionLight{
		{
			Color:     mgl32.Vec3{1, 1, 0},
			Intensity: 1,
			Direction: mgl32.Vec3{float32(math.Sin(sunAngle)), -1, float32(math.Cos(sunAngle))}.Normalize(),
		},
	}
	scene.Ambient = mgl32.Vec4{0.2, 0.2, 0.2, 1}

	// Small solid cubes marking the fixed light positions.
	for i, mat := range []core.AssetID{red, blue} {
		_, id := scene.Spawn(cube, mat, scene.PointLights[i].Position)
		if t, ok := scene.Transforms.Get(id); ok {
			t.SetScale(mgl32.Vec3{0.1, 0.1, 0.1})
		}
	}

	tree := bvh.NewTree[*core.RenderObject]()
	var centerLeaf *bvh.Leaf[*core.RenderObject]
	centerBase := meshBounds(centerMesh)
	for _, obj := range scene.Objects {
		mesh, ok := assets.Mesh(obj.Mesh)
		if !ok {
			continue
		}
		model, err := scene.Transforms.WorldModel(obj.Transform)
		if err != nil {
			return nil, err
		}
		leaf := tree.Insert(transformedBounds(model, meshBounds(mesh)), obj)
		if obj == centerObj {
			centerLeaf = leaf
		}
	}

	return &demoState{
		app:        a,
		window:     window,
		tree:       tree,
		centerLeaf: centerLeaf,
		centerID:   centerID,
		centerBase: centerBase,
		whiteLight: 2,
	}, nil
}

func (d *demoState) update(dt float32) {
	cam := d.app.Camera
	win := d.window

	if win.GetKey(glfw.KeyW) == glfw.Press {
		cam.MoveForward(dt)
	}
	if win.GetKey(glfw.KeyS) == glfw.Press {
		cam.MoveBack(dt)
	}
	if win.GetKey(glfw.KeyD) == glfw.Press {
		cam.MoveRight(dt)
	}
	if win.GetKey(glfw.KeyA) == glfw.Press {
		cam.MoveLeft(dt)
	}
	if win.GetKey(glfw.KeySpace) == glfw.Press {
		cam.MoveUp(dt)
	}
	if win.GetKey(glfw.KeyLeftShift) == glfw.Press {
		cam.MoveDown(dt)
	}

	scene := d.app.Scene
	scene.PointLights[d.whiteLight].Position = cam.Position

	// Spin the center piece and keep its tree leaf current.
	d.angle += dt
	if t, ok := scene.Transforms.Get(d.centerID); ok {
		t.SetRotation(mgl32.QuatRotate(d.angle, mgl32.Vec3{1, 1, 0}.Normalize()))
	}
	if d.centerLeaf != nil {
		if model, err := scene.Transforms.WorldModel(d.centerID); err == nil {
			d.tree.Update(d.centerLeaf, transformedBounds(model, d.centerBase))
		}
	}

	scene.Boxes = scene.Boxes[:0]
	if d.app.ShowOverlay {
		d.tree.Walk(func(bounds bvh.Bounds, height int) {
			scene.Boxes = append(scene.Boxes, core.BoxRecord{
				Min:   bounds.Min,
				Max:   bounds.Max,
				Color: heightColor(height),
			})
		})
	}
}

func checkerTexels(size, cell uint32) []uint8 {
	texels := make([]uint8, size*size*4)
	for y := uint32(0); y < size; y++ {
		for x := uint32(0); x < size; x++ {
			c := uint8(60)
			if (x/cell+y/cell)%2 == 0 {
				c = 200
			}
			i := (y*size + x) * 4
			texels[i+0] = c
			texels[i+1] = c
			texels[i+2] = c
			texels[i+3] = 255
		}
	}
	return texels
}

func meshBounds(mesh core.MeshData) bvh.Bounds {
	if len(mesh.Vertices) == 0 {
		return bvh.Bounds{}
	}
	b := bvh.Bounds{Min: mesh.Vertices[0].Position, Max: mesh.Vertices[0].Position}
	for _, v := range mesh.Vertices[1:] {
		for i := 0; i < 3; i++ {
			if v.Position[i] < b.Min[i] {
				b.Min[i] = v.Position[i]
			}
			if v.Position[i] > b.Max[i] {
				b.Max[i] = v.Position[i]
			}
		}
	}
	return b
}

func transformedBounds(model mgl32.Mat4, b bvh.Bounds) bvh.Bounds {
	first := true
	var out bvh.Bounds
	for _, x := range []float32{b.Min[0], b.Max[0]} {
		for _, y := range []float32{b.Min[1], b.Max[1]} {
			for _, z := range []float32{b.Min[2], b.Max[2]} {
				p := mgl32.TransformCoordinate(mgl32.Vec3{x, y, z}, model)
				if first {
					out = bvh.Bounds{Min: p, Max: p}
					first = false
					continue
				}
				out = out.Join(bvh.Bounds{Min: p, Max: p})
			}
		}
	}
	return out
}

// Leaves are green; each level up the tree steps through the palette.
var overlayPalette = []mgl32.Vec4{
	{0, 1, 0, 1},
	{0, 1, 1, 1},
	{0, 0, 1, 1},
	{1, 0, 1, 1},
	{1, 0, 0, 1},
	{1, 1, 0, 1},
}

func heightColor(height int) mgl32.Vec4 {
	return overlayPalette[height%len(overlayPalette)]
}
