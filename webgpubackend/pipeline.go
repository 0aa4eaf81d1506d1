package webgpubackend

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/kestrelgfx/corerender/gapi"
	"github.com/kestrelgfx/corerender/name"
)

// Pipeline wraps either a wgpu.RenderPipeline or a wgpu.ComputePipeline
// plus the single wgpu.BindGroupLayout generated from its
// DescriptorBindings. The core only ever pushes one descriptor set per
// pipeline (UsePushDescriptors / PushDescriptors write to slot 0), so one
// layout is enough — CommandList.PushDescriptors builds a fresh BindGroup
// against it on every call, the same per-draw BindGroup construction
// mod_client.go's frame loop already does for materials.
type Pipeline struct {
	workType gapi.WorkType
	render   *wgpu.RenderPipeline
	compute  *wgpu.ComputePipeline
	layout   *wgpu.BindGroupLayout
	bindings []gapi.DescriptorType
}

func (p *Pipeline) WorkType() gapi.WorkType { return p.workType }

func (p *Pipeline) Release() {
	if p.render != nil {
		p.render.Release()
	}
	if p.compute != nil {
		p.compute.Release()
	}
	p.layout.Release()
}

// bindGroupLayoutEntries builds one wgpu.BindGroupLayoutEntry per
// declared binding, visible to every stage the pipeline uses — the core's
// DescriptorWrite doesn't distinguish which stage reads a binding, so
// ShaderStage visibility can't be narrowed further than "all stages this
// pipeline has".
func bindGroupLayoutEntries(bindings []gapi.DescriptorType, visibility wgpu.ShaderStage) []wgpu.BindGroupLayoutEntry {
	entries := make([]wgpu.BindGroupLayoutEntry, len(bindings))
	for i, b := range bindings {
		e := wgpu.BindGroupLayoutEntry{Binding: uint32(i), Visibility: visibility}
		switch b {
		case gapi.DescriptorUniformBuffer, gapi.DescriptorUniformBufferArray:
			e.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}
		case gapi.DescriptorStorageBuffer:
			e.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage}
		case gapi.DescriptorSampledTexture, gapi.DescriptorSampledTextureArray:
			e.Texture = wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeFloat, ViewDimension: wgpu.TextureViewDimension2D}
		case gapi.DescriptorStorageTexture:
			e.StorageTexture = wgpu.StorageTextureBindingLayout{Access: wgpu.StorageTextureAccessWriteOnly, ViewDimension: wgpu.TextureViewDimension2D}
		}
		entries[i] = e
	}
	return entries
}

func (d *Device) CreateGraphicsPipeline(desc gapi.GraphicsPipelineDesc, shaders map[name.Name]gapi.Shader) (gapi.Pipeline, error) {
	vs, err := shaderOf(shaders[desc.VertexShader])
	if err != nil {
		return nil, gapi.NewError(gapi.PSOCreationFailed, "CreateGraphicsPipeline", err)
	}
	fs, err := shaderOf(shaders[desc.FragmentShader])
	if err != nil {
		return nil, gapi.NewError(gapi.PSOCreationFailed, "CreateGraphicsPipeline", err)
	}

	layout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Entries: bindGroupLayoutEntries(desc.DescriptorBindings, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment),
	})
	if err != nil {
		return nil, gapi.NewError(gapi.PSOCreationFailed, "CreateGraphicsPipeline", err)
	}
	pipelineLayout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{layout},
	})
	if err != nil {
		return nil, gapi.NewError(gapi.PSOCreationFailed, "CreateGraphicsPipeline", err)
	}

	attrs := make([]wgpu.VertexAttribute, len(desc.VertexLayout.Attributes))
	for i, a := range desc.VertexLayout.Attributes {
		attrs[i] = wgpu.VertexAttribute{Format: toWGPUVertexFormat(a.Format), Offset: uint64(a.Offset), ShaderLocation: uint32(i)}
	}

	colorTargets := make([]wgpu.ColorTargetState, len(desc.ColorFormats))
	for i, f := range desc.ColorFormats {
		ct := wgpu.ColorTargetState{Format: toWGPUTextureFormat(f), WriteMask: wgpu.ColorWriteMaskAll}
		if desc.BlendingEnabled {
			ct.Blend = &wgpu.BlendState{
				Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorSrcAlpha, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha, Operation: wgpu.BlendOperationAdd},
				Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha, Operation: wgpu.BlendOperationAdd},
			}
		}
		colorTargets[i] = ct
	}

	var depthStencil *wgpu.DepthStencilState
	if desc.HasDepthFormat {
		depthStencil = &wgpu.DepthStencilState{
			Format:            toWGPUTextureFormat(desc.DepthFormat),
			DepthWriteEnabled: desc.DepthTestEnabled,
			DepthCompare:      wgpu.CompareFunctionGreaterEqual,
		}
	}

	pipeline, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs.module,
			EntryPoint: vs.entry,
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: uint64(desc.VertexLayout.Stride),
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes:  attrs,
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs.module,
			EntryPoint: fs.entry,
			Targets:    colorTargets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  toWGPUTopology(desc.Topology),
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		DepthStencil: depthStencil,
		Multisample: wgpu.MultisampleState{
			Count:                  1,
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: false,
		},
	})
	if err != nil {
		return nil, gapi.NewError(gapi.PSOCreationFailed, "CreateGraphicsPipeline", err)
	}

	return &Pipeline{workType: gapi.WorkTypeGraphics, render: pipeline, layout: layout, bindings: desc.DescriptorBindings}, nil
}

func (d *Device) CreateComputePipeline(desc gapi.ComputePipelineDesc, shaders map[name.Name]gapi.Shader) (gapi.Pipeline, error) {
	cs, err := shaderOf(shaders[desc.ComputeShader])
	if err != nil {
		return nil, gapi.NewError(gapi.PSOCreationFailed, "CreateComputePipeline", err)
	}

	layout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Entries: bindGroupLayoutEntries(desc.DescriptorBindings, wgpu.ShaderStageCompute),
	})
	if err != nil {
		return nil, gapi.NewError(gapi.PSOCreationFailed, "CreateComputePipeline", err)
	}
	pipelineLayout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{layout},
	})
	if err != nil {
		return nil, gapi.NewError(gapi.PSOCreationFailed, "CreateComputePipeline", err)
	}

	pipeline, err := d.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Layout:  pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{Module: cs.module, EntryPoint: cs.entry},
	})
	if err != nil {
		return nil, gapi.NewError(gapi.PSOCreationFailed, "CreateComputePipeline", err)
	}

	return &Pipeline{workType: gapi.WorkTypeCompute, compute: pipeline, layout: layout, bindings: desc.DescriptorBindings}, nil
}

func pipelineOf(p gapi.Pipeline) (*Pipeline, error) {
	wp, ok := p.(*Pipeline)
	if !ok {
		return nil, fmt.Errorf("webgpubackend: foreign gapi.Pipeline %T", p)
	}
	return wp, nil
}
