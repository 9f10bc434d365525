package core

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestAssetsMeshRoundTrip(t *testing.T) {
	assets := NewAssets()

	id := assets.AddMesh(SquareMesh())
	mesh, ok := assets.Mesh(id)
	if !ok {
		t.Fatal("mesh should be retrievable by id")
	}
	if len(mesh.Vertices) != 4 {
		t.Errorf("expected 4 vertices, got %d", len(mesh.Vertices))
	}

	if _, ok := assets.Mesh(AssetID("missing")); ok {
		t.Error("unknown id should not resolve")
	}
}

func TestAssetsUniqueIDs(t *testing.T) {
	assets := NewAssets()
	a := assets.AddMaterial(DefaultMaterial())
	b := assets.AddMaterial(DefaultMaterial())
	if a == b {
		t.Error("each asset should get a distinct id")
	}
}

func TestAssetsSampler(t *testing.T) {
	assets := NewAssets()
	id := assets.AddSampler(SamplerFilterNearest)
	s, ok := assets.Sampler(id)
	if !ok || s.Filter != SamplerFilterNearest {
		t.Errorf("expected nearest sampler, got %+v ok=%v", s, ok)
	}
}

func writeTestPNG(t *testing.T, path string, width, height int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestLoadTexturePNG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tex.png")
	writeTestPNG(t, path, 8, 4)

	assets := NewAssets()
	id, err := assets.LoadTexturePNG(path, 0)
	if err != nil {
		t.Fatal(err)
	}

	tex, ok := assets.Texture(id)
	if !ok {
		t.Fatal("texture should be retrievable")
	}
	if tex.Width != 8 || tex.Height != 4 {
		t.Errorf("expected 8x4, got %dx%d", tex.Width, tex.Height)
	}
	if len(tex.Texels) != 8*4*4 {
		t.Errorf("expected %d texel bytes, got %d", 8*4*4, len(tex.Texels))
	}
	// RGBA8: pixel (3, 2) encodes its own coordinates.
	off := (2*8 + 3) * 4
	if tex.Texels[off] != 3 || tex.Texels[off+1] != 2 || tex.Texels[off+3] != 255 {
		t.Errorf("unexpected texel at (3,2): %v", tex.Texels[off:off+4])
	}
}

func TestLoadTexturePNGClamp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.png")
	writeTestPNG(t, path, 64, 16)

	assets := NewAssets()
	id, err := assets.LoadTexturePNG(path, 32)
	if err != nil {
		t.Fatal(err)
	}

	tex, _ := assets.Texture(id)
	if tex.Width != 32 || tex.Height != 8 {
		t.Errorf("expected downscale to 32x8, got %dx%d", tex.Width, tex.Height)
	}
	if len(tex.Texels) != 32*8*4 {
		t.Errorf("expected %d texel bytes, got %d", 32*8*4, len(tex.Texels))
	}
}

func TestLoadTexturePNGMissing(t *testing.T) {
	assets := NewAssets()
	if _, err := assets.LoadTexturePNG("/does/not/exist.png", 0); err == nil {
		t.Error("missing file should fail")
	}
}

func TestLoadMeshOBJ(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tri.obj")
	if err := os.WriteFile(path, []byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	assets := NewAssets()
	ids, err := assets.LoadMeshOBJ(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(ids))
	}
	mesh, ok := assets.Mesh(ids[0])
	if !ok || len(mesh.Indices) != 3 {
		t.Errorf("loaded mesh should have 3 indices, got %+v ok=%v", mesh, ok)
	}
}
