package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Dolbhi/deferred-renderer/core"
)

// Unit cube wireframe as a line list, three edges fanning out of each of
// four corners. The vertex shader stretches it onto each box record.
var boxCubeLines = []float32{
	0, 0, 0, 1, 0, 0,
	0, 0, 0, 0, 1, 0,
	0, 0, 0, 0, 0, 1,
	1, 0, 0, 1, 1, 0,
	1, 0, 0, 1, 0, 1,
	0, 1, 0, 1, 1, 0,
	0, 1, 0, 0, 1, 1,
	0, 0, 1, 1, 0, 1,
	0, 0, 1, 0, 1, 1,
	1, 1, 0, 1, 1, 1,
	1, 0, 1, 1, 1, 1,
	0, 1, 1, 1, 1, 1,
}

const boxCubeVertexCount = 24

// BoxPass draws wireframe boxes over the lit image. It loads the target
// instead of clearing and runs without a depth attachment, so boxes show
// through geometry.
type BoxPass struct {
	Device *wgpu.Device

	cache  *PipelineCache
	log    core.Logger
	format wgpu.TextureFormat

	globalBGL *wgpu.BindGroupLayout
	boxBGL    *wgpu.BindGroupLayout
	layout    *wgpu.PipelineLayout

	vertexBuf   *wgpu.Buffer
	frameGroups [3]passFrameGroups
}

func NewBoxPass(device *wgpu.Device, cache *PipelineCache, format wgpu.TextureFormat, log core.Logger) (*BoxPass, error) {
	p := &BoxPass{
		Device: device,
		cache:  cache,
		log:    log,
		format: format,
	}

	var err error
	p.globalBGL, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "BoxGlobalBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
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

	p.boxBGL, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "BoxRecordsBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeReadOnlyStorage,
					MinBindingSize: BoxRecordSize,
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	p.layout, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.globalBGL, p.boxBGL},
	})
	if err != nil {
		return nil, err
	}

	p.vertexBuf, err = device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Box Cube Lines",
		Contents: wgpu.ToBytes(boxCubeLines),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}

func (p *BoxPass) pipeline() (*wgpu.RenderPipeline, error) {
	key := PipelineKey{Shader: "bbox", Vertex: "vs_main", Fragment: "fs_main", Pass: "overlay", Layout: "vertex3d", Blend: BlendAlpha}
	return p.cache.GetOrBuild(key, p.buildPipeline)
}

func (p *BoxPass) buildPipeline() (*wgpu.RenderPipeline, error) {
	module, err := p.cache.Module("bbox")
	if err != nil {
		return nil, err
	}
	return p.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "BoxPipeline",
		Layout: p.layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: 12,
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    p.format,
					WriteMask: wgpu.ColorWriteMaskAll,
					Blend: &wgpu.BlendState{
						Color: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorSrcAlpha,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						},
						Alpha: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorOne,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						},
					},
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyLineList,
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

func (p *BoxPass) frameBindGroups(store *FrameStore) (*wgpu.BindGroup, *wgpu.BindGroup, error) {
	fg := &p.frameGroups[store.FrameSlot()]

	if fg.global == nil {
		bg, err := p.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "Box Global BG",
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
		boxes := store.BoxBuffer()
		bg, err := p.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "Box Records BG",
			Layout: p.boxBGL,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: boxes, Size: boxes.GetSize()},
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

// Record draws the overlay on top of the lit frame. A frame with no boxes
// records nothing.
func (p *BoxPass) Record(encoder *wgpu.CommandEncoder, store *FrameStore, target *wgpu.TextureView) error {
	count := store.BoxCount()
	if count == 0 {
		return nil
	}

	globalBG, boxBG, err := p.frameBindGroups(store)
	if err != nil {
		return err
	}
	pipeline, err := p.pipeline()
	if err != nil {
		return err
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Box Pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    target,
				LoadOp:  wgpu.LoadOpLoad,
				StoreOp: wgpu.StoreOpStore,
			},
		},
	})

	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, globalBG, nil)
	pass.SetBindGroup(1, boxBG, nil)
	pass.SetVertexBuffer(0, p.vertexBuf, 0, p.vertexBuf.GetSize())
	pass.Draw(boxCubeVertexCount, uint32(count), 0, 0)

	return pass.End()
}
