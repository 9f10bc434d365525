package app

import (
	"errors"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/Dolbhi/deferred-renderer/core"
	"github.com/Dolbhi/deferred-renderer/gpu"
)

// App owns the GPU context, the render passes and the scene being drawn.
// The caller creates the window, installs input callbacks and drives
// RenderFrame from its main loop.
type App struct {
	Config Config
	Window *glfw.Window

	Ctx      *gpu.Context
	Cache    *gpu.PipelineCache
	Store    *gpu.FrameStore
	GBuffer  *gpu.GBuffer
	Geometry *gpu.GeometryPass
	Lighting *gpu.LightingPass
	Boxes    *gpu.BoxPass

	Scene  *core.Scene
	Assets *core.Assets
	Camera *core.Camera

	Log     core.Logger
	Watcher *ShaderWatcher

	ShowOverlay bool
}

func NewApp(window *glfw.Window, cfg Config, log core.Logger) (*App, error) {
	ctx, err := gpu.NewContext(window, log)
	if err != nil {
		return nil, err
	}

	cache := gpu.NewPipelineCache(ctx.Device, log)

	store, err := gpu.NewFrameStore(ctx.Device, ctx.Queue, cfg.FramesInFlight, cfg.ObjectCapacity, cfg.LightCapacity, cfg.AttenuationK, log)
	if err != nil {
		return nil, err
	}

	width, height := ctx.Size()
	gbuffer, err := gpu.NewGBuffer(ctx.Device, width, height)
	if err != nil {
		return nil, err
	}

	geometry, err := gpu.NewGeometryPass(ctx.Device, ctx.Queue, cache, log)
	if err != nil {
		return nil, err
	}
	lighting, err := gpu.NewLightingPass(ctx.Device, cache, ctx.SurfaceFormat(), log)
	if err != nil {
		return nil, err
	}
	if err := lighting.RebindGBuffer(gbuffer); err != nil {
		return nil, err
	}
	boxes, err := gpu.NewBoxPass(ctx.Device, cache, ctx.SurfaceFormat(), log)
	if err != nil {
		return nil, err
	}

	camera := core.NewCamera()
	camera.Fov = cfg.Fov

	a := &App{
		Config:      cfg,
		Window:      window,
		Ctx:         ctx,
		Cache:       cache,
		Store:       store,
		GBuffer:     gbuffer,
		Geometry:    geometry,
		Lighting:    lighting,
		Boxes:       boxes,
		Scene:       core.NewScene(),
		Assets:      core.NewAssets(),
		Camera:      camera,
		Log:         log,
		ShowOverlay: cfg.Overlay,
	}

	if cfg.ShaderDir != "" {
		watcher, err := NewShaderWatcher(cfg.ShaderDir, cache, log)
		if err != nil {
			log.Warnf("shader overrides disabled: %v", err)
		} else {
			a.Watcher = watcher
		}
	}

	return a, nil
}

func (a *App) Aspect() float32 {
	width, height := a.Ctx.Size()
	if height == 0 {
		return 1
	}
	return float32(width) / float32(height)
}

// Resize reconfigures the surface and rebuilds the gbuffer at the new size.
// Pipelines survive; attachment formats do not change with size.
func (a *App) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	a.Ctx.Resize(width, height)

	w, h := a.Ctx.Size()
	a.GBuffer.Release()
	gbuffer, err := gpu.NewGBuffer(a.Ctx.Device, w, h)
	if err != nil {
		a.Log.Errorf("resize: recreate gbuffer: %v", err)
		return
	}
	a.GBuffer = gbuffer
	if err := a.Lighting.RebindGBuffer(gbuffer); err != nil {
		a.Log.Errorf("resize: rebind gbuffer: %v", err)
	}
}

func (a *App) ToggleOverlay() {
	a.ShowOverlay = !a.ShowOverlay
	a.Log.Infof("bounding box overlay: %v", a.ShowOverlay)
}

// RenderFrame collects the scene, uploads frame data and records the
// geometry, lighting and overlay passes into one submission. A skipped
// frame (zero-size or lost surface) is not an error.
func (a *App) RenderFrame() error {
	if a.Watcher != nil && a.Watcher.ConsumeReload() {
		a.Cache.InvalidateAll()
	}

	draws, err := a.Scene.Collect(a.Assets)
	if err != nil {
		return err
	}

	a.Store.BeginFrame(a.Camera.Data(a.Aspect()))
	if err := a.Store.SetInstances(draws.Instances); err != nil {
		return err
	}
	if err := a.Store.SetPointLights(draws.PointLights); err != nil {
		return err
	}
	if err := a.Store.SetDirectionLights(draws.DirectionLights); err != nil {
		return err
	}
	boxes := draws.Boxes
	if !a.ShowOverlay {
		boxes = nil
	}
	if err := a.Store.SetBoxes(boxes); err != nil {
		return err
	}
	a.Store.SetAmbient(draws.Ambient)

	texture, view, err := a.Ctx.AcquireFrame()
	if err != nil {
		if errors.Is(err, gpu.ErrFrameSkipped) {
			return nil
		}
		return err
	}
	defer texture.Release()
	defer view.Release()

	encoder, err := a.Ctx.Device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}

	if err := a.Geometry.Record(encoder, a.Store, a.GBuffer, a.Assets, &draws); err != nil {
		return err
	}
	if err := a.Lighting.Record(encoder, a.Store, view); err != nil {
		return err
	}
	if a.ShowOverlay {
		if err := a.Boxes.Record(encoder, a.Store, view); err != nil {
			return err
		}
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	a.Ctx.Queue.Submit(cmd)
	a.Ctx.Surface.Present()

	a.Store.Advance()
	return nil
}

func (a *App) Release() {
	if a.Watcher != nil {
		a.Watcher.Close()
	}
	a.Cache.InvalidateAll()
	a.Store.Release()
	a.GBuffer.Release()
	a.Ctx.Release()
}
