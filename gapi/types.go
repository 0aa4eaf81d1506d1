// Package gapi specifies the pluggable graphics-API backend the
// render-graph core consumes: buffer/texture/sampler creation, pipeline
// compilation, command recording, queue submission, descriptor pools,
// acceleration-structure builds, and timestamp/statistics query pools.
// The core never talks to a concrete API directly; webgpubackend is the
// one shipped implementation.
package gapi

// MemorySize is a byte count, matching the data model's MemorySize.
type MemorySize = uint64

// Resolution is a 2D pixel extent.
type Resolution struct {
	Width  uint32
	Height uint32
}

// ColorFormat names a texture pixel format. Only the subset the core
// actually declares (GBuffer, shadow maps, Hi-Z, swapchain) is enumerated.
type ColorFormat int

const (
	FormatRGBA8UNorm ColorFormat = iota
	FormatRGBA16Float
	FormatR32Float
	FormatR16Float
	FormatDepth32Float
	FormatDepth24Stencil8
	FormatBGRA8UNormSRGB
	// FormatRGB32Float and FormatRG32Float are vertex-attribute-only
	// formats (position/normal vec3, uv vec2 at full float32 precision);
	// no render target or texture ever uses them.
	FormatRGB32Float
	FormatRG32Float
	FormatR32Uint
)

// ColorSpace names a swapchain color space.
type ColorSpace int

const (
	ColorSpaceSRGBNonlinear ColorSpace = iota
)

// PresentMode selects swapchain presentation behavior.
type PresentMode int

const (
	PresentModeFifo PresentMode = iota
	PresentModeMailbox
	PresentModeImmediate
)

func ParsePresentMode(s string) (PresentMode, bool) {
	switch s {
	case "fifo":
		return PresentModeFifo, true
	case "mailbox":
		return PresentModeMailbox, true
	case "immediate":
		return PresentModeImmediate, true
	default:
		return PresentModeFifo, false
	}
}

// TextureUsage is a bitmask of how a texture will be accessed.
type TextureUsage uint32

const (
	TextureUsageSampled TextureUsage = 1 << iota
	TextureUsageStorage
	TextureUsageColorAttachment
	TextureUsageDepthStencilAttachment
	TextureUsageTransferSrc
	TextureUsageTransferDst
)

// BufferUsage is a bitmask of how a buffer will be accessed.
type BufferUsage uint32

const (
	BufferUsageNone BufferUsage = 0
	BufferUsageHostVisible BufferUsage = 1 << iota
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageIndirect
	BufferUsageVertex
	BufferUsageIndex
	BufferUsageTransferSrc
	BufferUsageTransferDst
	BufferUsageAccelerationStructure
)

// TextureState is the GPU-visible state/layout of a texture at a point in
// the command stream.
type TextureState int

const (
	TextureStateUndefined TextureState = iota
	TextureStateGeneral
	TextureStateShaderRead
	TextureStateRenderTarget
	TextureStateDepthStencilTarget
	TextureStateTransferSrc
	TextureStateTransferDst
	TextureStatePresentSrc
)

// BufferAccess is the GPU-visible access mode of a buffer at a point in
// the command stream.
type BufferAccess int

const (
	BufferAccessNone BufferAccess = iota
	BufferAccessUniformRead
	BufferAccessStorageRead
	BufferAccessStorageWrite
	BufferAccessIndirectRead
	BufferAccessVertexRead
	BufferAccessIndexRead
	BufferAccessTransferRead
	BufferAccessTransferWrite
)

// PipelineStage is a bitmask of pipeline stages, used for barrier source
// and destination stage masks.
type PipelineStage uint32

const (
	PipelineStageEntrypoint PipelineStage = 1 << iota
	PipelineStageVertexShader
	PipelineStageFragmentShader
	PipelineStageComputeShader
	PipelineStageTransfer
	PipelineStageColorAttachmentOutput
	PipelineStageEarlyDepthTest
	PipelineStageLateDepthTest
	PipelineStageIndirectCommand
	PipelineStageBottom
)

// MemoryAccess classifies an access as a read or a write, driving barrier
// coalescing decisions: consecutive reads may extend an existing barrier,
// any write always starts a fresh one.
type MemoryAccess int

const (
	MemoryAccessRead MemoryAccess = iota
	MemoryAccessWrite
)

// MemoryAccess classifies a TextureState's access kind.
func (s TextureState) MemoryAccess() MemoryAccess {
	switch s {
	case TextureStateRenderTarget, TextureStateDepthStencilTarget, TextureStateGeneral, TextureStateTransferDst:
		return MemoryAccessWrite
	default:
		return MemoryAccessRead
	}
}

// MemoryAccess classifies a BufferAccess's access kind.
func (a BufferAccess) MemoryAccess() MemoryAccess {
	switch a {
	case BufferAccessStorageWrite, BufferAccessTransferWrite:
		return MemoryAccessWrite
	default:
		return MemoryAccessRead
	}
}

// VertexTopology is the primitive topology a graphics pipeline draws.
type VertexTopology int

const (
	TopologyTriangleList VertexTopology = iota
	TopologyTriangleStrip
	TopologyLineList
	TopologyPointList
)

// VertexAttribute describes one vertex-buffer attribute within a VertexLayout.
type VertexAttribute struct {
	Format ColorFormat
	Offset uint32
}

// VertexLayout describes a single vertex buffer's binding stride and its
// attributes.
type VertexLayout struct {
	Stride     uint32
	Attributes []VertexAttribute
}

// SamplerProperties configures texture sampling (filtering, wrap mode).
type SamplerProperties struct {
	MinFilter, MagFilter FilterMode
	WrapMode             WrapMode
}

type FilterMode int

const (
	FilterNearest FilterMode = iota
	FilterLinear
)

type WrapMode int

const (
	WrapClampToEdge WrapMode = iota
	WrapRepeat
)

// DescriptorType names the kind of resource a descriptor binding refers to.
type DescriptorType int

const (
	DescriptorUniformBuffer DescriptorType = iota
	DescriptorStorageBuffer
	DescriptorSampledTexture
	DescriptorSampledTextureArray
	DescriptorStorageTexture
	DescriptorUniformBufferArray
)

// ClearValue is either a color or depth/stencil clear value for a render
// target attachment.
type ClearValue struct {
	IsDepth        bool
	Color          [4]float32
	Depth          float32
	Stencil        uint32
}

func ClearColor(r, g, b, a float32) ClearValue {
	return ClearValue{Color: [4]float32{r, g, b, a}}
}

func ClearDepthStencil(depth float32, stencil uint32) ClearValue {
	return ClearValue{IsDepth: true, Depth: depth, Stencil: stencil}
}

// WorkType is a bitmask naming which queue(s) a job's commands target.
type WorkType uint32

const (
	WorkTypeGraphics WorkType = 1 << iota
	WorkTypeCompute
	WorkTypeTransfer
)

// AccelerationStructureType distinguishes bottom-level (per-mesh) from
// top-level (per-scene instance) acceleration structures.
type AccelerationStructureType int

const (
	AccelStructureBottomLevel AccelerationStructureType = iota
	AccelStructureTopLevel
)

// QueryKind names what a QueryPool measures.
type QueryKind int

const (
	QueryKindTimestamp QueryKind = iota
	QueryKindStatistics
)

// CommandListBeginMode mirrors begin(OneTime|Normal).
type CommandListBeginMode int

const (
	BeginNormal CommandListBeginMode = iota
	BeginOneTime
)
