package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Attachment formats of the geometry pass. Diffuse trades alpha depth for
// ten bits per channel, normals keep sign and precision in half floats.
const (
	GBufferDiffuseFormat = wgpu.TextureFormatRGB10A2Unorm
	GBufferNormalFormat  = wgpu.TextureFormatRGBA16Float
	GBufferDepthFormat   = wgpu.TextureFormatDepth32Float
)

// GBuffer holds the geometry pass attachments at the current surface size.
// It owns only textures and views; the lighting pass binds them.
type GBuffer struct {
	Width  uint32
	Height uint32

	DiffuseView *wgpu.TextureView
	NormalView  *wgpu.TextureView
	DepthView   *wgpu.TextureView

	diffuse *wgpu.Texture
	normal  *wgpu.Texture
	depth   *wgpu.Texture
}

func NewGBuffer(device *wgpu.Device, width, height uint32) (*GBuffer, error) {
	g := &GBuffer{Width: width, Height: height}

	var err error
	g.diffuse, g.DiffuseView, err = createAttachment(device, "GBuffer Diffuse", width, height, GBufferDiffuseFormat)
	if err != nil {
		return nil, err
	}
	g.normal, g.NormalView, err = createAttachment(device, "GBuffer Normal", width, height, GBufferNormalFormat)
	if err != nil {
		g.Release()
		return nil, err
	}
	g.depth, g.DepthView, err = createAttachment(device, "GBuffer Depth", width, height, GBufferDepthFormat)
	if err != nil {
		g.Release()
		return nil, err
	}
	return g, nil
}

func createAttachment(device *wgpu.Device, label string, width, height uint32, format wgpu.TextureFormat) (*wgpu.Texture, *wgpu.TextureView, error) {
	texture, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", label, err)
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return nil, nil, fmt.Errorf("view %s: %w", label, err)
	}
	return texture, view, nil
}

func (g *GBuffer) Release() {
	if g.depth != nil {
		g.depth.Release()
		g.depth = nil
		g.DepthView = nil
	}
	if g.normal != nil {
		g.normal.Release()
		g.normal = nil
		g.NormalView = nil
	}
	if g.diffuse != nil {
		g.diffuse.Release()
		g.diffuse = nil
		g.DiffuseView = nil
	}
}
