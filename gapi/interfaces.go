package gapi

import "github.com/kestrelgfx/corerender/name"

// Buffer is a GPU-visible linear memory allocation. Buffers carry a device
// address for GPU-pointer use unless they are host-visible.
type Buffer interface {
	Size() MemorySize
	Usage() BufferUsage
	DeviceAddress() uint64
	// Map returns a writable view of a host-visible buffer's bytes, or nil
	// if the buffer was not created with BufferUsageHostVisible.
	Map() []byte
	Release()
}

// Texture is a GPU-visible image, optionally multi-mip and multi-layer.
type Texture interface {
	Resolution() Resolution
	Format() ColorFormat
	Usage() TextureUsage
	MipCount() uint32
	SampleCount() uint32
	CreateMipView(mip uint32) (TextureView, error)
	Release()
}

// TextureView is a view over a subset of a Texture's mip chain, used for
// binding individual mip levels (Hi-Z pyramid passes) and for render-target
// attachments.
type TextureView interface {
	Texture() Texture
	BaseMip() uint32
	Release()
}

// Sampler configures how a texture is filtered when sampled.
type Sampler interface {
	Release()
}

// Shader is a compiled shader stage.
type Shader interface {
	Stage() ShaderStage
	Entrypoint() string
}

type ShaderStage int

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStageFragment
	ShaderStageCompute
)

// Pipeline is a compiled graphics or compute pipeline, as returned by
// PipelineCache on a cache miss.
type Pipeline interface {
	WorkType() WorkType
	Release()
}

// GraphicsPipelineDesc is the key material for compiling/caching a
// graphics pipeline: shaders + layout + render-target formats.
type GraphicsPipelineDesc struct {
	VertexShader        name.Name
	FragmentShader      name.Name
	VertexLayout        VertexLayout
	ColorFormats        []ColorFormat
	DepthFormat         ColorFormat
	HasDepthFormat      bool
	DepthTestEnabled    bool
	BlendingEnabled     bool
	Topology            VertexTopology
	DescriptorBindings  []DescriptorType
	UsePushDescriptors  bool
}

// ComputePipelineDesc is the key material for compiling/caching a compute
// pipeline.
type ComputePipelineDesc struct {
	ComputeShader      name.Name
	DescriptorBindings []DescriptorType
	UsePushDescriptors bool
}

// Fence is a host-waitable GPU completion signal.
type Fence interface {
	Await()
	Reset()
	Release()
}

// Semaphore is a GPU-side wait/signal synchronization primitive used to
// order submissions without the host blocking.
type Semaphore interface {
	Release()
}

// DescriptorPool allocates descriptor sets sized up-front from declared
// binding counts.
type DescriptorPool interface {
	Release()
}

// DescriptorCounts sizes a DescriptorPool from the binding counts a
// BuildContext accumulated while recording.
type DescriptorCounts struct {
	UniformBufferCount        uint32
	StorageBufferCount        uint32
	SamplableTextureCount     uint32
	StorageTextureCount       uint32
	SampledTextureArrayCount  uint32
	TotalDescriptorSets       uint32
}

// QueryPool is a pool of GPU timestamp or pipeline-statistics queries.
type QueryPool interface {
	Kind() QueryKind
	Count() uint32
	// Resolve reads back query results recorded in prior frames. Index i
	// corresponds to the i-th WriteTimestamp/EndQuery call in that frame.
	Resolve() ([]uint64, error)
	Release()
}

// TextureBarrierInfo describes a texture state transition.
type TextureBarrierInfo struct {
	Texture       Texture
	SourceState   TextureState
	TargetState   TextureState
	BaseMipLevel  uint32
	MipLevelCount uint32
}

// BufferBarrierInfo describes a buffer access transition.
type BufferBarrierInfo struct {
	Buffer        Buffer
	SourceAccess  BufferAccess
	TargetAccess  BufferAccess
}

// RenderAttachment is one color or depth attachment of a render pass.
type RenderAttachment struct {
	Texture    Texture
	View       TextureView
	State      TextureState
	ClearValue ClearValue
	Clear      bool
	Store      bool
}

// RenderingInfo describes a begin_rendering call.
type RenderingInfo struct {
	ColorAttachments []RenderAttachment
	DepthAttachment  *RenderAttachment
	RenderAreaExtent Resolution
	LayerCount       uint32
}

// DescriptorWrite is a single push-descriptor binding: slot index plus
// exactly one of the resource fields below.
type DescriptorWrite struct {
	Binding        uint32
	Type           DescriptorType
	UniformBuffer  Buffer
	StorageBuffer  Buffer
	BufferOffset   MemorySize
	BufferSize     MemorySize
	SampledTexture TextureView
	TextureArray   []TextureView
	StorageTexture TextureView
	BufferArray    []Buffer
}

// CommandList is the recorded sequence of GPU commands submitted as one
// unit. The render-graph core emits commands into a CommandList when a Job
// is executed; BuildContext owns deciding which commands to emit.
type CommandList interface {
	Begin(mode CommandListBeginMode) error
	BeginRendering(info RenderingInfo)
	EndRendering()

	BindGraphicsPipeline(p Pipeline)
	BindComputePipeline(p Pipeline)
	BindVertexBuffer(b Buffer, offset MemorySize)
	BindIndexBuffer(b Buffer)
	PushDescriptors(set uint32, writes []DescriptorWrite)

	Draw(vertexCount, firstVertex, instanceCount, firstInstance uint32)
	DrawIndexed(indexCount, firstIndex uint32, vertexOffset int32, instanceCount, firstInstance uint32)
	DrawIndexedIndirectCount(indirectBuffer Buffer, indirectOffset MemorySize, countBuffer Buffer, countOffset MemorySize, maxDraws uint32, stride uint32)
	Dispatch(x, y, z uint32)

	CopyBuffer(src, dst Buffer, srcOffset, dstOffset, size MemorySize)
	CopyBufferToTexture(src Buffer, srcOffset MemorySize, dst Texture)
	CopyTextureToBuffer(src Texture, dst Buffer, dstOffset MemorySize)
	FillBuffer(dst Buffer, offset MemorySize, data []byte)

	TextureBarrier(srcStage, dstStage PipelineStage, info TextureBarrierInfo)
	BufferBarrier(srcStage, dstStage PipelineStage, info BufferBarrierInfo)
	ExecutionBarrier(srcStage, dstStage PipelineStage)

	BeginQuery(pool QueryPool, index uint32)
	EndQuery(pool QueryPool, index uint32)
	WriteTimestamp(pool QueryPool, index uint32)
	ResetTimestampArray(pool QueryPool)

	BuildAccelerationStructures(builds []AccelerationStructureBuild)

	Finish() error
}

// AccelerationStructureBuild describes one acceleration-structure build
// command recorded into a CommandList.
type AccelerationStructureBuild struct {
	Target AccelerationStructure
}

// AccelerationStructure is an opaque GPU data structure accelerating
// ray-scene intersection, backed by a byte range handed out by a BufferHeap
// section.
type AccelerationStructure interface {
	Type() AccelerationStructureType
	Size() MemorySize
	Release()
}

// Swapchain owns the presentable framebuffer-capable textures for a
// surface.
type Swapchain interface {
	ImageCount() uint32
	Resolution() Resolution
	Format() ColorFormat
	Texture(index uint32) Texture
	AcquireNextImage(signal Semaphore) (index uint32, err error)
	Present(wait []Semaphore, imageIndex uint32) error
	Release()
}

// Device is the root factory for all GPU objects the core consumes.
type Device interface {
	CreateBuffer(usage BufferUsage, size MemorySize) (Buffer, error)
	CreateTexture(format ColorFormat, resolution Resolution, usage TextureUsage, initialState TextureState, sampleCount uint32, mipCount uint32) (Texture, error)
	CreateTextureFromKTX2(data []byte) (Texture, error)
	CreateSampler(props SamplerProperties) (Sampler, error)
	CreateSwapchain(resolution Resolution, format ColorFormat, colorSpace ColorSpace, presentMode PresentMode) (Swapchain, error)
	CreateShader(stage ShaderStage, entrypoint string, bytecode []byte) (Shader, error)
	CreateGraphicsPipeline(desc GraphicsPipelineDesc, shaders map[name.Name]Shader) (Pipeline, error)
	CreateComputePipeline(desc ComputePipelineDesc, shaders map[name.Name]Shader) (Pipeline, error)
	CreateDescriptorPool(counts DescriptorCounts, maxSets uint32) (DescriptorPool, error)
	CreateFence() (Fence, error)
	CreateSemaphore() (Semaphore, error)
	CreateQueryPool(kind QueryKind, count uint32) (QueryPool, error)
	CreateCommandList(workType WorkType) (CommandList, error)
	CreateAccelerationStructure(kind AccelerationStructureType, backing Buffer, offset, size MemorySize) (AccelerationStructure, error)

	// SubmitCommandList submits cmdList for execution, waiting on
	// waitSemaphores and signalling signalSemaphores; fence (if non-nil)
	// is signalled once the submission completes. workType selects which
	// queue the list is submitted to.
	SubmitCommandList(cmdList CommandList, waitSemaphores, signalSemaphores []Semaphore, fence Fence, workType WorkType) error

	WaitIdle() error
	Release()
}
