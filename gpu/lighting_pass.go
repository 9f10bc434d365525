package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Dolbhi/deferred-renderer/core"
)

// One oversized triangle covers the screen.
var fullscreenTriangle = []float32{
	-1, -1,
	-1, 3,
	3, -1,
}

// Two triangles spanning the point light's billboard quad.
var pointQuad = []float32{
	-1, -1,
	-1, 1,
	1, -1,
	1, -1,
	-1, 1,
	1, 1,
}

// LightingPass reads the gbuffer and accumulates light onto the swapchain:
// one fullscreen ambient draw, one fullscreen draw instanced per directional
// light, one billboard quad instanced per point light. All three blend
// additively into a target cleared to transparent black.
type LightingPass struct {
	Device *wgpu.Device

	cache  *PipelineCache
	log    core.Logger
	format wgpu.TextureFormat

	globalBGL  *wgpu.BindGroupLayout
	lightsBGL  *wgpu.BindGroupLayout
	gbufferBGL *wgpu.BindGroupLayout
	layout     *wgpu.PipelineLayout

	fullscreenVB *wgpu.Buffer
	quadVB       *wgpu.Buffer

	gbufferBG   *wgpu.BindGroup
	frameGroups [3]passFrameGroups
}

func NewLightingPass(device *wgpu.Device, cache *PipelineCache, format wgpu.TextureFormat, log core.Logger) (*LightingPass, error) {
	p := &LightingPass{
		Device: device,
		cache:  cache,
		log:    log,
		format: format,
	}

	var err error
	p.globalBGL, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "LightingGlobalBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: GlobalDataSize,
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	// One layout serves all three sub-draws; each shader uses the subset it
	// declares.
	p.lightsBGL, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "LightingLightsBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeReadOnlyStorage,
					MinBindingSize: PointLightSize,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeReadOnlyStorage,
					MinBindingSize: DirectionLightSize,
				},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: LightingParamsSize,
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	p.gbufferBGL, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "LightingGBufferBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
					Multisampled:  false,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
					Multisampled:  false,
				},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeDepth,
					ViewDimension: wgpu.TextureViewDimension2D,
					Multisampled:  false,
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	p.layout, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.globalBGL, p.lightsBGL, p.gbufferBGL},
	})
	if err != nil {
		return nil, err
	}

	p.fullscreenVB, err = device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Fullscreen Triangle",
		Contents: wgpu.ToBytes(fullscreenTriangle),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return nil, err
	}
	p.quadVB, err = device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Point Light Quad",
		Contents: wgpu.ToBytes(pointQuad),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}

// RebindGBuffer points group 2 at a new set of attachments. Call after the
// gbuffer is recreated on resize.
func (p *LightingPass) RebindGBuffer(g *GBuffer) error {
	bg, err := p.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Lighting GBuffer BG",
		Layout: p.gbufferBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: g.DiffuseView},
			{Binding: 1, TextureView: g.NormalView},
			{Binding: 2, TextureView: g.DepthView},
		},
	})
	if err != nil {
		return fmt.Errorf("gbuffer bind group: %w", err)
	}
	if p.gbufferBG != nil {
		p.gbufferBG.Release()
	}
	p.gbufferBG = bg
	return nil
}

func (p *LightingPass) pipeline(vertex, fragment string) (*wgpu.RenderPipeline, error) {
	key := PipelineKey{Shader: "lighting", Vertex: vertex, Fragment: fragment, Pass: "lighting", Layout: "vertex2d", Blend: BlendAdditive}
	return p.cache.GetOrBuild(key, func() (*wgpu.RenderPipeline, error) {
		return p.buildPipeline(vertex, fragment)
	})
}

func (p *LightingPass) buildPipeline(vertex, fragment string) (*wgpu.RenderPipeline, error) {
	module, err := p.cache.Module("lighting")
	if err != nil {
		return nil, err
	}
	return p.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "LightingPipeline " + fragment,
		Layout: p.layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: vertex,
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: 8,
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: fragment,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    p.format,
					WriteMask: wgpu.ColorWriteMaskAll,
					Blend: &wgpu.BlendState{
						Color: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorOne,
							DstFactor: wgpu.BlendFactorOne,
						},
						Alpha: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorOne,
							DstFactor: wgpu.BlendFactorOne,
						},
					},
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: nil,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
}

func (p *LightingPass) frameBindGroups(store *FrameStore) (*wgpu.BindGroup, *wgpu.BindGroup, error) {
	fg := &p.frameGroups[store.FrameSlot()]

	if fg.global == nil {
		bg, err := p.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "Lighting Global BG",
			Layout: p.globalBGL,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: store.GlobalBuffer(), Size: GlobalDataSize},
			},
		})
		if err != nil {
			return nil, nil, err
		}
		fg.global = bg
	}

	if fg.scene == nil || fg.gen != store.Generation() {
		if fg.scene != nil {
			fg.scene.Release()
		}
		points := store.PointLightBuffer()
		directions := store.DirectionLightBuffer()
		bg, err := p.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "Lighting Lights BG",
			Layout: p.lightsBGL,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: points, Size: points.GetSize()},
				{Binding: 1, Buffer: directions, Size: directions.GetSize()},
				{Binding: 2, Buffer: store.ParamsBuffer(), Size: LightingParamsSize},
			},
		})
		if err != nil {
			return nil, nil, err
		}
		fg.scene = bg
		fg.gen = store.Generation()
	}

	return fg.global, fg.scene, nil
}

// Record encodes the lighting pass onto target. The target is cleared to
// transparent black so the additive sub-draws start from zero light.
func (p *LightingPass) Record(encoder *wgpu.CommandEncoder, store *FrameStore, target *wgpu.TextureView) error {
	if p.gbufferBG == nil {
		return fmt.Errorf("lighting pass has no gbuffer bound")
	}
	globalBG, lightsBG, err := p.frameBindGroups(store)
	if err != nil {
		return err
	}

	ambient, err := p.pipeline("vs_fullscreen", "fs_ambient")
	if err != nil {
		return err
	}
	directional, err := p.pipeline("vs_fullscreen", "fs_directional")
	if err != nil {
		return err
	}
	point, err := p.pipeline("vs_point", "fs_point")
	if err != nil {
		return err
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Lighting Pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       target,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 0},
			},
		},
	})

	pass.SetBindGroup(0, globalBG, nil)
	pass.SetBindGroup(1, lightsBG, nil)
	pass.SetBindGroup(2, p.gbufferBG, nil)

	pass.SetVertexBuffer(0, p.fullscreenVB, 0, p.fullscreenVB.GetSize())
	pass.SetPipeline(ambient)
	pass.Draw(3, 1, 0, 0)

	if n := store.DirectionLightCount(); n > 0 {
		pass.SetPipeline(directional)
		pass.Draw(3, uint32(n), 0, 0)
	}

	if n := store.PointLightCount(); n > 0 {
		pass.SetVertexBuffer(0, p.quadVB, 0, p.quadVB.GetSize())
		pass.SetPipeline(point)
		pass.Draw(6, uint32(n), 0, 0)
	}

	return pass.End()
}
