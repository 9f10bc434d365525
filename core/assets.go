package core

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
)

type AssetID string

type SamplerFilter uint8

const (
	SamplerFilterLinear SamplerFilter = iota
	SamplerFilterNearest
)

// TextureAsset is decoded RGBA8 texel data awaiting upload.
type TextureAsset struct {
	Texels []uint8
	Width  uint32
	Height uint32
}

type SamplerAsset struct {
	Filter SamplerFilter
}

// Assets owns all host-side resources, keyed by id. The renderer looks ids up
// at draw-batch time and uploads GPU copies on first use.
type Assets struct {
	meshes    map[AssetID]MeshData
	textures  map[AssetID]TextureAsset
	materials map[AssetID]Material
	samplers  map[AssetID]SamplerAsset
}

func NewAssets() *Assets {
	return &Assets{
		meshes:    make(map[AssetID]MeshData),
		textures:  make(map[AssetID]TextureAsset),
		materials: make(map[AssetID]Material),
		samplers:  make(map[AssetID]SamplerAsset),
	}
}

func (a *Assets) AddMesh(mesh MeshData) AssetID {
	id := makeAssetID()
	a.meshes[id] = mesh
	return id
}

func (a *Assets) Mesh(id AssetID) (MeshData, bool) {
	m, ok := a.meshes[id]
	return m, ok
}

// LoadMeshOBJ parses an OBJ file and registers every object in it, returning
// the ids in file order.
func (a *Assets) LoadMeshOBJ(filename string) ([]AssetID, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	meshes, err := ParseOBJ(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	ids := make([]AssetID, len(meshes))
	for i, m := range meshes {
		ids[i] = a.AddMesh(m)
	}
	return ids, nil
}

func (a *Assets) AddMaterial(mat Material) AssetID {
	id := makeAssetID()
	a.materials[id] = mat
	return id
}

func (a *Assets) Material(id AssetID) (Material, bool) {
	m, ok := a.materials[id]
	return m, ok
}

func (a *Assets) AddTexture(texels []uint8, width, height uint32) AssetID {
	id := makeAssetID()
	a.textures[id] = TextureAsset{
		Texels: texels,
		Width:  width,
		Height: height,
	}
	return id
}

func (a *Assets) Texture(id AssetID) (TextureAsset, bool) {
	t, ok := a.textures[id]
	return t, ok
}

// LoadTexturePNG decodes a PNG into RGBA8. Images larger than maxDim on
// either side are scaled down to fit; maxDim 0 means no limit.
func (a *Assets) LoadTexturePNG(filename string, maxDim uint32) (AssetID, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return "", fmt.Errorf("%s: %w", filename, err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	target := bounds
	if maxDim > 0 && (width > int(maxDim) || height > int(maxDim)) {
		scale := float64(maxDim) / float64(width)
		if height > width {
			scale = float64(maxDim) / float64(height)
		}
		target = image.Rect(0, 0, int(float64(width)*scale), int(float64(height)*scale))
	}

	rgba := image.NewRGBA(image.Rect(0, 0, target.Dx(), target.Dy()))
	if target == bounds {
		xdraw.Draw(rgba, rgba.Bounds(), img, bounds.Min, xdraw.Src)
	} else {
		xdraw.ApproxBiLinear.Scale(rgba, rgba.Bounds(), img, bounds, xdraw.Src, nil)
	}

	return a.AddTexture(rgba.Pix, uint32(target.Dx()), uint32(target.Dy())), nil
}

func (a *Assets) AddSampler(filter SamplerFilter) AssetID {
	id := makeAssetID()
	a.samplers[id] = SamplerAsset{Filter: filter}
	return id
}

func (a *Assets) Sampler(id AssetID) (SamplerAsset, bool) {
	s, ok := a.samplers[id]
	return s, ok
}

func makeAssetID() AssetID {
	return AssetID(uuid.NewString())
}
