package gpu

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/Dolbhi/deferred-renderer/core"
)

// ErrFrameSkipped reports a frame that produced no image: the window had zero
// size or the surface was outdated and had to be reconfigured.
var ErrFrameSkipped = errors.New("frame skipped")

// Context holds the WebGPU handles shared by every pass.
type Context struct {
	Window   *glfw.Window
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	log core.Logger
}

func NewContext(window *glfw.Window, log core.Logger) (*Context, error) {
	c := &Context{Window: window, log: log}

	c.Instance = wgpu.CreateInstance(nil)
	c.Surface = c.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(window))

	adapter, err := c.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: c.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	c.Adapter = adapter

	c.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	c.Queue = c.Device.GetQueue()

	width, height := window.GetFramebufferSize()
	caps := c.Surface.GetCapabilities(adapter)
	c.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	c.Surface.Configure(adapter, c.Device, c.Config)

	c.log.Infof("gpu context ready: %dx%d, surface format %v", width, height, c.Config.Format)
	return c, nil
}

func (c *Context) SurfaceFormat() wgpu.TextureFormat {
	return c.Config.Format
}

func (c *Context) Size() (uint32, uint32) {
	return c.Config.Width, c.Config.Height
}

// Resize drains in-flight work, then reconfigures the surface. Zero sizes are
// ignored; the caller keeps skipping frames until the window has area again.
func (c *Context) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.Device.Poll(true, nil)
	c.Config.Width = uint32(width)
	c.Config.Height = uint32(height)
	c.Surface.Configure(c.Adapter, c.Device, c.Config)
	c.log.Debugf("surface reconfigured to %dx%d", width, height)
}

// AcquireFrame returns the next swapchain texture and its view. An outdated
// or lost surface is reconfigured and the frame reported skipped.
func (c *Context) AcquireFrame() (*wgpu.Texture, *wgpu.TextureView, error) {
	if c.Config.Width == 0 || c.Config.Height == 0 {
		return nil, nil, ErrFrameSkipped
	}

	texture, err := c.Surface.GetCurrentTexture()
	if err != nil {
		c.log.Warnf("surface texture unavailable, reconfiguring: %v", err)
		c.Surface.Configure(c.Adapter, c.Device, c.Config)
		return nil, nil, ErrFrameSkipped
	}

	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return nil, nil, fmt.Errorf("create surface view: %w", err)
	}
	return texture, view, nil
}

func (c *Context) Release() {
	if c.Device != nil {
		c.Device.Poll(true, nil)
	}
}
