package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Dolbhi/deferred-renderer/core"
)

// MeshBuffers is one mesh uploaded for drawing.
type MeshBuffers struct {
	Vertex     *wgpu.Buffer
	Index      *wgpu.Buffer
	IndexCount uint32
}

// materialBinding is a material's group 2 state. bindGroup is nil for the
// uv and gradient variants, which bind nothing beyond globals and objects.
type materialBinding struct {
	kind      core.MaterialKind
	bindGroup *wgpu.BindGroup
	colorBuf  *wgpu.Buffer
}

type passFrameGroups struct {
	global *wgpu.BindGroup
	scene  *wgpu.BindGroup
	gen    uint64
}

// GeometryPass rasterizes every batch into the gbuffer: diffuse and normal
// attachments plus depth. Meshes, textures and materials are uploaded
// lazily the first time a batch references them.
type GeometryPass struct {
	Device *wgpu.Device
	Queue  *wgpu.Queue

	cache *PipelineCache
	log   core.Logger

	globalBGL  *wgpu.BindGroupLayout
	objectBGL  *wgpu.BindGroupLayout
	solidBGL   *wgpu.BindGroupLayout
	textureBGL *wgpu.BindGroupLayout

	layoutBare     *wgpu.PipelineLayout
	layoutSolid    *wgpu.PipelineLayout
	layoutTextured *wgpu.PipelineLayout

	meshes    map[core.AssetID]*MeshBuffers
	textures  map[core.AssetID]*wgpu.TextureView
	samplers  map[core.AssetID]*wgpu.Sampler
	materials map[core.AssetID]*materialBinding

	frameGroups [3]passFrameGroups
}

func NewGeometryPass(device *wgpu.Device, queue *wgpu.Queue, cache *PipelineCache, log core.Logger) (*GeometryPass, error) {
	p := &GeometryPass{
		Device:    device,
		Queue:     queue,
		cache:     cache,
		log:       log,
		meshes:    make(map[core.AssetID]*MeshBuffers),
		textures:  make(map[core.AssetID]*wgpu.TextureView),
		samplers:  make(map[core.AssetID]*wgpu.Sampler),
		materials: make(map[core.AssetID]*materialBinding),
	}

	var err error
	p.globalBGL, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "GeometryGlobalBGL",
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

	p.objectBGL, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "GeometryObjectBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeReadOnlyStorage,
					MinBindingSize: ObjectDataSize,
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	p.solidBGL, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "GeometryMaterialColorBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: MaterialDataSize,
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	p.textureBGL, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "GeometryMaterialTextureBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
					Multisampled:  false,
				},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	p.layoutBare, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.globalBGL, p.objectBGL},
	})
	if err != nil {
		return nil, err
	}
	p.layoutSolid, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.globalBGL, p.objectBGL, p.solidBGL},
	})
	if err != nil {
		return nil, err
	}
	p.layoutTextured, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.globalBGL, p.objectBGL, p.textureBGL},
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}

// geometryEntryPoints maps a material kind to its shader entry points.
func geometryEntryPoints(kind core.MaterialKind) (vertex, fragment string) {
	switch kind {
	case core.MaterialTextured:
		return "vs_main", "fs_textured"
	case core.MaterialUV:
		return "vs_main", "fs_uv"
	case core.MaterialGradient:
		return "vs_main", "fs_gradient"
	case core.MaterialBillboard:
		return "vs_billboard", "fs_solid"
	default:
		return "vs_main", "fs_solid"
	}
}

func (p *GeometryPass) layoutForKind(kind core.MaterialKind) *wgpu.PipelineLayout {
	switch kind {
	case core.MaterialSolidColor, core.MaterialBillboard:
		return p.layoutSolid
	case core.MaterialTextured:
		return p.layoutTextured
	default:
		return p.layoutBare
	}
}

func (p *GeometryPass) pipelineForKind(kind core.MaterialKind) (*wgpu.RenderPipeline, error) {
	vertex, fragment := geometryEntryPoints(kind)
	key := PipelineKey{Shader: "geometry", Vertex: vertex, Fragment: fragment, Pass: "gbuffer", Layout: "vertex_full"}
	layout := p.layoutForKind(kind)
	return p.cache.GetOrBuild(key, func() (*wgpu.RenderPipeline, error) {
		return p.buildPipeline(vertex, fragment, layout)
	})
}

func (p *GeometryPass) buildPipeline(vertex, fragment string, layout *wgpu.PipelineLayout) (*wgpu.RenderPipeline, error) {
	module, err := p.cache.Module("geometry")
	if err != nil {
		return nil, err
	}
	return p.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "GeometryPipeline " + fragment,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: vertex,
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: core.VertexFullSize,
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
						{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
						{Format: wgpu.VertexFormatFloat32x3, Offset: 24, ShaderLocation: 2},
						{Format: wgpu.VertexFormatFloat32x2, Offset: 36, ShaderLocation: 3},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: fragment,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    GBufferDiffuseFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
				{
					Format:    GBufferNormalFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            GBufferDepthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
}

// UploadMesh creates GPU buffers for a mesh and remembers them under id.
func (p *GeometryPass) UploadMesh(id core.AssetID, mesh core.MeshData) (*MeshBuffers, error) {
	if len(mesh.Vertices) == 0 || len(mesh.Indices) == 0 {
		return nil, fmt.Errorf("mesh %s has no geometry", id)
	}

	vertexBuf, err := p.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Mesh Vertices " + mesh.Name,
		Contents: wgpu.ToBytes(mesh.Vertices),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return nil, fmt.Errorf("mesh %s vertices: %w", id, err)
	}
	indexBuf, err := p.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Mesh Indices " + mesh.Name,
		Contents: wgpu.ToBytes(mesh.Indices),
		Usage:    wgpu.BufferUsageIndex,
	})
	if err != nil {
		vertexBuf.Release()
		return nil, fmt.Errorf("mesh %s indices: %w", id, err)
	}

	m := &MeshBuffers{
		Vertex:     vertexBuf,
		Index:      indexBuf,
		IndexCount: uint32(len(mesh.Indices)),
	}
	p.meshes[id] = m
	p.log.Debugf("uploaded mesh %s: %d vertices, %d indices", mesh.Name, len(mesh.Vertices), len(mesh.Indices))
	return m, nil
}

// UploadTexture copies RGBA8 texels into a GPU texture and keeps its view.
func (p *GeometryPass) UploadTexture(id core.AssetID, asset core.TextureAsset) (*wgpu.TextureView, error) {
	extent := wgpu.Extent3D{
		Width:              asset.Width,
		Height:             asset.Height,
		DepthOrArrayLayers: 1,
	}
	texture, err := p.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Material Texture",
		Size:          extent,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("texture %s: %w", id, err)
	}
	defer texture.Release()

	view, err := texture.CreateView(nil)
	if err != nil {
		return nil, fmt.Errorf("texture %s view: %w", id, err)
	}

	err = p.Queue.WriteTexture(
		texture.AsImageCopy(),
		asset.Texels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  4 * asset.Width,
			RowsPerImage: asset.Height,
		},
		&extent,
	)
	if err != nil {
		view.Release()
		return nil, fmt.Errorf("texture %s upload: %w", id, err)
	}

	p.textures[id] = view
	return view, nil
}

func (p *GeometryPass) ensureSampler(assets *core.Assets, id core.AssetID) (*wgpu.Sampler, error) {
	if s, ok := p.samplers[id]; ok {
		return s, nil
	}
	asset, ok := assets.Sampler(id)
	if !ok {
		return nil, fmt.Errorf("sampler %s not registered", id)
	}
	filter := wgpu.FilterModeLinear
	if asset.Filter == core.SamplerFilterNearest {
		filter = wgpu.FilterModeNearest
	}
	sampler, err := p.Device.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter:     filter,
		MagFilter:     filter,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("sampler %s: %w", id, err)
	}
	p.samplers[id] = sampler
	return sampler, nil
}

func (p *GeometryPass) ensureMesh(assets *core.Assets, id core.AssetID) (*MeshBuffers, error) {
	if m, ok := p.meshes[id]; ok {
		return m, nil
	}
	data, ok := assets.Mesh(id)
	if !ok {
		return nil, fmt.Errorf("mesh %s not registered", id)
	}
	return p.UploadMesh(id, data)
}

func (p *GeometryPass) ensureTexture(assets *core.Assets, id core.AssetID) (*wgpu.TextureView, error) {
	if v, ok := p.textures[id]; ok {
		return v, nil
	}
	asset, ok := assets.Texture(id)
	if !ok {
		return nil, fmt.Errorf("texture %s not registered", id)
	}
	return p.UploadTexture(id, asset)
}

func (p *GeometryPass) ensureMaterial(assets *core.Assets, id core.AssetID) (*materialBinding, error) {
	if m, ok := p.materials[id]; ok {
		return m, nil
	}
	mat, ok := assets.Material(id)
	if !ok {
		return nil, fmt.Errorf("material %s not registered", id)
	}

	binding := &materialBinding{kind: mat.Kind}
	switch mat.Kind {
	case core.MaterialSolidColor, core.MaterialBillboard:
		buf, err := p.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
			Label:    "Material Color",
			Contents: PackMaterialColor(mat.BaseColor),
			Usage:    wgpu.BufferUsageUniform,
		})
		if err != nil {
			return nil, fmt.Errorf("material %s color: %w", id, err)
		}
		bg, err := p.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "Material Color BG",
			Layout: p.solidBGL,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: buf, Size: MaterialDataSize},
			},
		})
		if err != nil {
			buf.Release()
			return nil, fmt.Errorf("material %s: %w", id, err)
		}
		binding.colorBuf = buf
		binding.bindGroup = bg

	case core.MaterialTextured:
		view, err := p.ensureTexture(assets, mat.Texture)
		if err != nil {
			return nil, fmt.Errorf("material %s: %w", id, err)
		}
		sampler, err := p.ensureSampler(assets, mat.Sampler)
		if err != nil {
			return nil, fmt.Errorf("material %s: %w", id, err)
		}
		bg, err := p.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "Material Texture BG",
			Layout: p.textureBGL,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 1, TextureView: view},
				{Binding: 2, Sampler: sampler},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("material %s: %w", id, err)
		}
		binding.bindGroup = bg
	}

	p.materials[id] = binding
	return binding, nil
}

// frameBindGroups returns the group 0 and group 1 bind groups for the
// store's current slot, rebuilding the object group when the slot's buffer
// was replaced.
func (p *GeometryPass) frameBindGroups(store *FrameStore) (*wgpu.BindGroup, *wgpu.BindGroup, error) {
	fg := &p.frameGroups[store.FrameSlot()]

	if fg.global == nil {
		bg, err := p.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "Geometry Global BG",
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
		objects := store.ObjectBuffer()
		bg, err := p.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "Geometry Object BG",
			Layout: p.objectBGL,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: objects, Size: objects.GetSize()},
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

// Record encodes the geometry pass: both gbuffer attachments cleared to
// transparent black, depth cleared to 1, then one instanced indexed draw per
// batch.
func (p *GeometryPass) Record(encoder *wgpu.CommandEncoder, store *FrameStore, gbuffer *GBuffer, assets *core.Assets, draws *core.FrameDraws) error {
	globalBG, objectBG, err := p.frameBindGroups(store)
	if err != nil {
		return err
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Geometry Pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       gbuffer.DiffuseView,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 0},
			},
			{
				View:       gbuffer.NormalView,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 0},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            gbuffer.DepthView,
			DepthClearValue: 1.0,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
		},
	})

	pass.SetBindGroup(0, globalBG, nil)
	pass.SetBindGroup(1, objectBG, nil)

	for _, batch := range draws.Batches {
		mesh, err := p.ensureMesh(assets, batch.Mesh)
		if err != nil {
			pass.End()
			return err
		}
		material, err := p.ensureMaterial(assets, batch.Material)
		if err != nil {
			pass.End()
			return err
		}
		pipeline, err := p.pipelineForKind(material.kind)
		if err != nil {
			pass.End()
			return err
		}

		pass.SetPipeline(pipeline)
		if material.bindGroup != nil {
			pass.SetBindGroup(2, material.bindGroup, nil)
		}
		pass.SetVertexBuffer(0, mesh.Vertex, 0, mesh.Vertex.GetSize())
		pass.SetIndexBuffer(mesh.Index, wgpu.IndexFormatUint32, 0, mesh.Index.GetSize())
		pass.DrawIndexed(mesh.IndexCount, batch.InstanceCount, 0, 0, batch.FirstInstance)
	}

	return pass.End()
}
