package webgpubackend

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/kestrelgfx/corerender/gapi"
)

// toWGPUTextureFormat maps the core's small ColorFormat enum onto the
// wgpu.TextureFormat the pack's shaders and render targets actually use
// (RGBA32Float GBuffer channels and R16Float/RGBA16Float accumulation
// targets in voxelrt/rt/gpu/manager.go, BGRA8UNormSRGB swapchain surfaces
// in gpu_operations.go).
func toWGPUTextureFormat(f gapi.ColorFormat) wgpu.TextureFormat {
	switch f {
	case gapi.FormatRGBA8UNorm:
		return wgpu.TextureFormatRGBA8Unorm
	case gapi.FormatRGBA16Float:
		return wgpu.TextureFormatRGBA16Float
	case gapi.FormatR32Float:
		return wgpu.TextureFormatR32Float
	case gapi.FormatR16Float:
		return wgpu.TextureFormatR16Float
	case gapi.FormatDepth32Float:
		return wgpu.TextureFormatDepth32Float
	case gapi.FormatDepth24Stencil8:
		return wgpu.TextureFormatDepth24PlusStencil8
	case gapi.FormatBGRA8UNormSRGB:
		return wgpu.TextureFormatBGRA8UnormSrgb
	case gapi.FormatRGB32Float:
		return wgpu.TextureFormatRGBA32Float
	case gapi.FormatRG32Float:
		return wgpu.TextureFormatRG32Float
	case gapi.FormatR32Uint:
		return wgpu.TextureFormatR32Uint
	default:
		return wgpu.TextureFormatRGBA8Unorm
	}
}

func toWGPUBufferUsage(u gapi.BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if u&gapi.BufferUsageUniform != 0 {
		out |= wgpu.BufferUsageUniform
	}
	if u&gapi.BufferUsageStorage != 0 {
		out |= wgpu.BufferUsageStorage
	}
	if u&gapi.BufferUsageIndirect != 0 {
		out |= wgpu.BufferUsageIndirect
	}
	if u&gapi.BufferUsageVertex != 0 {
		out |= wgpu.BufferUsageVertex
	}
	if u&gapi.BufferUsageIndex != 0 {
		out |= wgpu.BufferUsageIndex
	}
	// Every buffer the core creates may be the target of a CopyBuffer or
	// FillBuffer DSL command, and host-visible buffers are written via
	// queue.WriteBuffer, so CopySrc/CopyDst ride along unconditionally the
	// way manager.go's ensureBuffer widens usage with CopyDst|CopySrc.
	out |= wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst
	if u&gapi.BufferUsageHostVisible != 0 {
		out |= wgpu.BufferUsageMapWrite
	}
	return out
}

func toWGPUTextureUsage(u gapi.TextureUsage) wgpu.TextureUsage {
	var out wgpu.TextureUsage
	if u&gapi.TextureUsageSampled != 0 {
		out |= wgpu.TextureUsageTextureBinding
	}
	if u&gapi.TextureUsageStorage != 0 {
		out |= wgpu.TextureUsageStorageBinding
	}
	if u&gapi.TextureUsageColorAttachment != 0 || u&gapi.TextureUsageDepthStencilAttachment != 0 {
		out |= wgpu.TextureUsageRenderAttachment
	}
	if u&gapi.TextureUsageTransferSrc != 0 {
		out |= wgpu.TextureUsageCopySrc
	}
	if u&gapi.TextureUsageTransferDst != 0 {
		out |= wgpu.TextureUsageCopyDst
	}
	return out
}

func toWGPUFilterMode(f gapi.FilterMode) wgpu.FilterMode {
	if f == gapi.FilterLinear {
		return wgpu.FilterModeLinear
	}
	return wgpu.FilterModeNearest
}

func toWGPUAddressMode(w gapi.WrapMode) wgpu.AddressMode {
	if w == gapi.WrapRepeat {
		return wgpu.AddressModeRepeat
	}
	return wgpu.AddressModeClampToEdge
}

func toWGPUVertexFormat(f gapi.ColorFormat) wgpu.VertexFormat {
	switch f {
	case gapi.FormatRGB32Float:
		return wgpu.VertexFormatFloat32x3
	case gapi.FormatRG32Float:
		return wgpu.VertexFormatFloat32x2
	case gapi.FormatR32Float:
		return wgpu.VertexFormatFloat32
	case gapi.FormatR32Uint:
		return wgpu.VertexFormatUint32
	default:
		return wgpu.VertexFormatFloat32x3
	}
}

func toWGPUTopology(t gapi.VertexTopology) wgpu.PrimitiveTopology {
	switch t {
	case gapi.TopologyTriangleStrip:
		return wgpu.PrimitiveTopologyTriangleStrip
	case gapi.TopologyLineList:
		return wgpu.PrimitiveTopologyLineList
	case gapi.TopologyPointList:
		return wgpu.PrimitiveTopologyPointList
	default:
		return wgpu.PrimitiveTopologyTriangleList
	}
}
