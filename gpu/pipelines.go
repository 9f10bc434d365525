package gpu

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Dolbhi/deferred-renderer/core"
	"github.com/Dolbhi/deferred-renderer/shaders"
)

// BlendMode selects the color blend state baked into a pipeline.
type BlendMode uint8

const (
	BlendNone BlendMode = iota
	BlendAdditive
	BlendAlpha
)

// PipelineKey identifies one compiled render pipeline. Shader names the WGSL
// source, Pass and Layout distinguish attachment and vertex configurations
// that share entry points.
type PipelineKey struct {
	Shader   string
	Vertex   string
	Fragment string
	Pass     string
	Layout   string
	Blend    BlendMode
}

type cacheEntry struct {
	ready    chan struct{}
	pipeline *wgpu.RenderPipeline
	err      error
}

// PipelineCache builds render pipelines on first use and reuses them after.
// Shader sources can be replaced at runtime; InvalidateAll drops every
// compiled pipeline and module so the next lookup rebuilds from the new
// source.
type PipelineCache struct {
	device *wgpu.Device
	log    core.Logger

	mu      sync.Mutex
	sources map[string]string
	modules map[string]*wgpu.ShaderModule
	entries map[PipelineKey]*cacheEntry
}

func NewPipelineCache(device *wgpu.Device, log core.Logger) *PipelineCache {
	return &PipelineCache{
		device: device,
		log:    log,
		sources: map[string]string{
			"geometry": shaders.GeometryWGSL,
			"lighting": shaders.LightingWGSL,
			"bbox":     shaders.BoxWGSL,
		},
		modules: make(map[string]*wgpu.ShaderModule),
		entries: make(map[PipelineKey]*cacheEntry),
	}
}

// SetSource replaces a named shader source. Compiled pipelines keep running
// on the old code until InvalidateAll.
func (c *PipelineCache) SetSource(name, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[name] = code
}

// Module returns the compiled module for a shader name, compiling on first
// use.
func (c *PipelineCache) Module(name string) (*wgpu.ShaderModule, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.modules[name]; ok {
		return m, nil
	}
	source, ok := c.sources[name]
	if !ok {
		return nil, fmt.Errorf("unknown shader %q", name)
	}
	module, err := c.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: source},
	})
	if err != nil {
		return nil, fmt.Errorf("compile shader %q: %w", name, err)
	}
	c.modules[name] = module
	return module, nil
}

// GetOrBuild returns the pipeline for key, invoking build at most once per
// key even under concurrent lookups. A failed build is not cached; the next
// lookup retries.
func (c *PipelineCache) GetOrBuild(key PipelineKey, build func() (*wgpu.RenderPipeline, error)) (*wgpu.RenderPipeline, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		<-e.ready
		return e.pipeline, e.err
	}
	e := &cacheEntry{ready: make(chan struct{})}
	c.entries[key] = e
	c.mu.Unlock()

	e.pipeline, e.err = build()
	if e.err != nil {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		c.log.Errorf("pipeline %s/%s+%s build failed: %v", key.Shader, key.Vertex, key.Fragment, e.err)
	}
	close(e.ready)
	return e.pipeline, e.err
}

// InvalidateAll releases every compiled pipeline and shader module. Call only
// from the render thread, between frames.
func (c *PipelineCache) InvalidateAll() {
	c.mu.Lock()
	entries := c.entries
	modules := c.modules
	c.entries = make(map[PipelineKey]*cacheEntry)
	c.modules = make(map[string]*wgpu.ShaderModule)
	c.mu.Unlock()

	for _, e := range entries {
		<-e.ready
		if e.pipeline != nil {
			e.pipeline.Release()
		}
	}
	for _, m := range modules {
		m.Release()
	}
	c.log.Infof("pipeline cache invalidated: %d pipelines dropped", len(entries))
}

// Len reports the number of cached pipelines.
func (c *PipelineCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
