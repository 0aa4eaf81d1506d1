package rendercore

import (
	"github.com/kestrelgfx/corerender/gapi"
	"github.com/kestrelgfx/corerender/name"
)

// cmdKind tags the single flat record every recorded command is stored as,
// in place of a boxed command interface.
type cmdKind int

const (
	cmdBindGraphicsPipeline cmdKind = iota
	cmdBindComputePipeline
	cmdBindDescriptors
	cmdDispatch
	cmdCopyTextureToBuffer
	cmdCopyBufferToTexture
	cmdPlaceBufferBarrier
	cmdPlaceTextureBarrier
	cmdBindVertexBuffer
	cmdBindIndexBuffer
	cmdFillBuffer
	cmdBeginRenderPass
	cmdEndRenderPass
	cmdDraw
	cmdDrawIndexed
	cmdDrawIndexedIndirectCount
	cmdWriteTimestamp
)

type textureBarrier struct {
	ref            TextureRef
	srcStageFlags  gapi.PipelineStage
	dstStageFlags  gapi.PipelineStage
	srcState       gapi.TextureState
	dstState       gapi.TextureState
}

type bufferBarrier struct {
	ref           BufferRef
	srcStageFlags gapi.PipelineStage
	dstStageFlags gapi.PipelineStage
	srcAccess     gapi.BufferAccess
	dstAccess     gapi.BufferAccess
}

type descriptorKind int

const (
	descRWTexture descriptorKind = iota
	descSamplableTexture
	descSamplableTextureArray
	descUniformBuffer
	descUniformBufferArray
	descStorageBuffer
	descRWStorageBuffer
)

type pendingDescriptor struct {
	valid    bool
	binding  uint32
	kind     descriptorKind
	texRef   TextureRef
	views    []gapi.TextureView
	buffRef  BufferRef
	buffRefs []BufferRef
}

// command is a single recorded step. Only the fields relevant to kind are
// populated; this flat layout stands in for a tagged union.
type command struct {
	kind cmdKind

	graphicsDesc gapi.GraphicsPipelineDesc
	computeDesc  gapi.ComputePipelineDesc
	descriptors  []pendingDescriptor

	dispatchX, dispatchY, dispatchZ uint32

	srcTexture TextureRef
	dstTexture TextureRef
	srcBuffer  BufferRef
	dstBuffer  BufferRef

	textureBarrier *textureBarrier
	bufferBarrier  *bufferBarrier

	buffName name.Name
	fillBuffer BufferRef
	fillData []byte

	vertexBuffer BufferRef
	indexBuffer  BufferRef

	passName      name.Name
	renderTargets []name.Name

	vertexCount, firstVertex, instanceCount, firstInstance uint32
	indexCount, firstIndex                                 uint32
	vertexOffset                                            int32

	indirectBuffer BufferRef
	indirectOffset gapi.MemorySize
	countBuffer    BufferRef
	countOffset    gapi.MemorySize
	maxDraws       uint32

	queryPool  gapi.QueryPool
	queryIndex uint32
}

type textureDecl struct {
	name        name.Name
	dims        gapi.Resolution
	sized       bool
	format      gapi.ColorFormat
	usage       gapi.TextureUsage
	external    bool
	currentState gapi.TextureState
	lastStages  gapi.PipelineStage
	lastBarrier *textureBarrier
}

type bufferDecl struct {
	name          name.Name
	size          gapi.MemorySize
	usage         gapi.BufferUsage
	currentAccess gapi.BufferAccess
	lastStages    gapi.PipelineStage
	lastBarrier   *bufferBarrier
}

type renderTarget struct {
	clearValue gapi.ClearValue
	isDepth    bool
	clear      bool
	store      bool
}

// BuildContext is the command-recording DSL a RenderingJob uses to declare
// the resources and commands of one job, once per job rather than once per
// frame. Recording infers resource barriers automatically: every bind/draw/
// dispatch/transfer call that touches a declared resource compares its
// requested state against the resource's last-known state and, if they
// differ (or the access is a write), hoists a new barrier command in front
// of the job's render pass; compatible reads instead extend the dst-stage
// mask of the barrier already in flight. A resource's first access within
// the job records its state and stages but emits no barrier.
type BuildContext struct {
	device     gapi.Device
	screenSize gapi.Resolution

	textureDecls map[name.Name]*textureDecl
	textureOrder []name.Name
	bufferDecls  map[name.Name]*bufferDecl
	bufferOrder  []name.Name
	renderTargets map[name.Name]*renderTarget

	commands          []command
	renderPassStart   int // index of the currently open BeginRenderPass command, or -1
	activeStage       gapi.PipelineStage
	workTypes         gapi.WorkType

	graphicsDesc gapi.GraphicsPipelineDesc
	computeDesc  gapi.ComputePipelineDesc
	pendingDescriptors []pendingDescriptor

	descriptorCounts gapi.DescriptorCounts
}

// NewBuildContext creates an empty BuildContext targeting device, with
// screenSize used as the default resolution for unsized texture
// declarations.
func NewBuildContext(device gapi.Device, screenSize gapi.Resolution) *BuildContext {
	return &BuildContext{
		device:        device,
		screenSize:    screenSize,
		textureDecls:  make(map[name.Name]*textureDecl),
		bufferDecls:   make(map[name.Name]*bufferDecl),
		renderTargets: make(map[name.Name]*renderTarget),
		renderPassStart: -1,
	}
}

// --- Declarations ---

func (c *BuildContext) declareTextureWith(texName name.Name, dims gapi.Resolution, sized bool, format gapi.ColorFormat, usage gapi.TextureUsage) {
	if _, exists := c.textureDecls[texName]; exists {
		return
	}
	c.textureDecls[texName] = &textureDecl{name: texName, dims: dims, sized: sized, format: format, usage: usage}
	c.textureOrder = append(c.textureOrder, texName)
}

// DeclareTexture declares a texture sized texDims in texFormat.
func (c *BuildContext) DeclareTexture(texName name.Name, texDims gapi.Resolution, texFormat gapi.ColorFormat) {
	c.declareTextureWith(texName, texDims, true, texFormat, 0)
}

// DeclareRenderTarget declares a screen-sized color render target, cleared
// to black and stored at the end of the pass that writes it.
func (c *BuildContext) DeclareRenderTarget(rtName name.Name, rtFormat gapi.ColorFormat) {
	c.renderTargets[rtName] = &renderTarget{clearValue: gapi.ClearColor(0, 0, 0, 1), clear: true, store: true}
	c.declareTextureWith(rtName, gapi.Resolution{}, false, rtFormat, gapi.TextureUsageColorAttachment)
}

// DeclareSizedRenderTarget declares a color render target sized rtDims.
func (c *BuildContext) DeclareSizedRenderTarget(rtName name.Name, rtDims gapi.Resolution, rtFormat gapi.ColorFormat) {
	c.renderTargets[rtName] = &renderTarget{clearValue: gapi.ClearColor(0, 0, 0, 1), clear: true, store: true}
	c.declareTextureWith(rtName, rtDims, true, rtFormat, gapi.TextureUsageColorAttachment)
}

// DeclareSizedDepthTarget declares a depth render target sized dtDims,
// cleared to 1.0 and not stored by default (callers that need to sample it
// later get Store set automatically the first time it's bound for reading).
func (c *BuildContext) DeclareSizedDepthTarget(dtName name.Name, dtDims gapi.Resolution, dtFormat gapi.ColorFormat) {
	c.renderTargets[dtName] = &renderTarget{clearValue: gapi.ClearDepthStencil(1, 0), isDepth: true, clear: true}
	c.declareTextureWith(dtName, dtDims, true, dtFormat, gapi.TextureUsageDepthStencilAttachment)
}

// DeclareExternalRenderTarget declares a color render target whose backing
// texture the caller registers directly into a job's ResourceStorage (via
// ResourceStorage.RegisterTexture, or JobGraph.SetExternalTexture) before
// BuildJob runs, rather than one BuildContext.createResources creates
// fresh — used for the swapchain's acquired image, whose identity is
// owned by the swapchain, not by this job.
func (c *BuildContext) DeclareExternalRenderTarget(rtName name.Name, rtFormat gapi.ColorFormat) {
	c.renderTargets[rtName] = &renderTarget{clearValue: gapi.ClearColor(0, 0, 0, 1), clear: true, store: true}
	if _, exists := c.textureDecls[rtName]; exists {
		return
	}
	c.textureDecls[rtName] = &textureDecl{name: rtName, format: rtFormat, usage: gapi.TextureUsageColorAttachment, external: true}
	c.textureOrder = append(c.textureOrder, rtName)
}

// DeclareBuffer declares a device-local buffer of size bytes.
func (c *BuildContext) DeclareBuffer(buffName name.Name, size gapi.MemorySize) {
	if _, exists := c.bufferDecls[buffName]; exists {
		return
	}
	c.bufferDecls[buffName] = &bufferDecl{name: buffName, size: size, usage: gapi.BufferUsageNone}
	c.bufferOrder = append(c.bufferOrder, buffName)
}

// DeclareStagingBuffer declares a host-visible buffer of size bytes, used
// for upload/readback transfers.
func (c *BuildContext) DeclareStagingBuffer(buffName name.Name, size gapi.MemorySize) {
	if _, exists := c.bufferDecls[buffName]; exists {
		return
	}
	c.bufferDecls[buffName] = &bufferDecl{name: buffName, size: size, usage: gapi.BufferUsageHostVisible}
	c.bufferOrder = append(c.bufferOrder, buffName)
}

// --- Pipeline state ---

func (c *BuildContext) BindVertexShader(vsName name.Name) {
	c.workTypes |= gapi.WorkTypeGraphics
	c.graphicsDesc.VertexShader = vsName
	c.activeStage = gapi.PipelineStageVertexShader
}

func (c *BuildContext) BindFragmentShader(fsName name.Name) {
	c.workTypes |= gapi.WorkTypeGraphics
	c.graphicsDesc.FragmentShader = fsName
	c.activeStage = gapi.PipelineStageFragmentShader
}

func (c *BuildContext) BindComputeShader(csName name.Name) {
	c.workTypes |= gapi.WorkTypeCompute
	c.computeDesc.ComputeShader = csName
	c.activeStage = gapi.PipelineStageComputeShader
}

func (c *BuildContext) BindVertexLayout(layout gapi.VertexLayout) {
	c.graphicsDesc.VertexLayout = layout
}

func (c *BuildContext) SetVertexTopology(topology gapi.VertexTopology) {
	c.graphicsDesc.Topology = topology
}

// --- Resource binding ---

func (c *BuildContext) BindRWTexture(binding uint32, ref TextureRef) {
	if ref.Kind != RefRaw {
		c.prepareTexture(ref.Name, gapi.TextureStateGeneral, gapi.TextureUsageStorage)
	}
	c.descriptorCounts.StorageTextureCount++
	c.trackDescriptorBinding(binding, gapi.DescriptorStorageTexture)
	c.setDescriptor(binding, pendingDescriptor{kind: descRWTexture, texRef: ref})
}

func (c *BuildContext) BindSamplableTexture(binding uint32, ref TextureRef) {
	if ref.Kind != RefRaw {
		c.prepareTexture(ref.Name, gapi.TextureStateShaderRead, gapi.TextureUsageSampled)
	}
	c.descriptorCounts.SamplableTextureCount++
	c.trackDescriptorBinding(binding, gapi.DescriptorSampledTexture)
	c.setDescriptor(binding, pendingDescriptor{kind: descSamplableTexture, texRef: ref})
}

// BindSampledTextureArray binds a bindless array of sampled texture views
// (e.g. a scene's whole texture set), addressed by integer index in the
// shader instead of one descriptor per object. The views are owned
// externally (e.g. by a bindless.Scene) and are never barrier-tracked by
// the job graph: bindless scene textures are uploaded once and read-only
// for the lifetime of the scene.
func (c *BuildContext) BindSampledTextureArray(binding uint32, views []gapi.TextureView) {
	c.descriptorCounts.SampledTextureArrayCount++
	c.trackDescriptorBinding(binding, gapi.DescriptorSampledTextureArray)
	c.setDescriptor(binding, pendingDescriptor{kind: descSamplableTextureArray, views: append([]gapi.TextureView(nil), views...)})
}

// BindStorageBuffer binds a read-only storage buffer.
func (c *BuildContext) BindStorageBuffer(binding uint32, ref BufferRef) {
	if ref.Kind != RefRaw {
		c.prepareBuffer(ref.Name, gapi.BufferAccessStorageRead, gapi.BufferUsageStorage)
	}
	c.descriptorCounts.StorageBufferCount++
	c.trackDescriptorBinding(binding, gapi.DescriptorStorageBuffer)
	c.setDescriptor(binding, pendingDescriptor{kind: descStorageBuffer, buffRef: ref})
}

// BindRWStorageBuffer binds a storage buffer for read-write compute access.
func (c *BuildContext) BindRWStorageBuffer(binding uint32, ref BufferRef) {
	if ref.Kind != RefRaw {
		c.prepareBuffer(ref.Name, gapi.BufferAccessStorageWrite, gapi.BufferUsageStorage)
	}
	c.descriptorCounts.StorageBufferCount++
	c.trackDescriptorBinding(binding, gapi.DescriptorStorageBuffer)
	c.setDescriptor(binding, pendingDescriptor{kind: descRWStorageBuffer, buffRef: ref})
}

func (c *BuildContext) BindUniformBuffer(binding uint32, ref BufferRef) {
	if ref.Kind != RefRaw {
		c.prepareBuffer(ref.Name, gapi.BufferAccessUniformRead, gapi.BufferUsageUniform)
	}
	c.descriptorCounts.UniformBufferCount++
	c.trackDescriptorBinding(binding, gapi.DescriptorUniformBuffer)
	c.setDescriptor(binding, pendingDescriptor{kind: descUniformBuffer, buffRef: ref})
}

func (c *BuildContext) BindUniformBuffers(binding uint32, refs []BufferRef) {
	for _, ref := range refs {
		if ref.Kind != RefRaw {
			c.prepareBuffer(ref.Name, gapi.BufferAccessUniformRead, gapi.BufferUsageUniform)
		}
	}
	c.descriptorCounts.UniformBufferCount += uint32(len(refs))
	c.trackDescriptorBinding(binding, gapi.DescriptorUniformBufferArray)
	c.setDescriptor(binding, pendingDescriptor{kind: descUniformBufferArray, buffRefs: append([]BufferRef(nil), refs...)})
}

func (c *BuildContext) trackDescriptorBinding(binding uint32, t gapi.DescriptorType) {
	if c.activeStage == gapi.PipelineStageComputeShader {
		for uint32(len(c.computeDesc.DescriptorBindings)) <= binding {
			c.computeDesc.DescriptorBindings = append(c.computeDesc.DescriptorBindings, gapi.DescriptorType(0))
		}
		c.computeDesc.DescriptorBindings[binding] = t
		c.computeDesc.UsePushDescriptors = true
		return
	}
	for uint32(len(c.graphicsDesc.DescriptorBindings)) <= binding {
		c.graphicsDesc.DescriptorBindings = append(c.graphicsDesc.DescriptorBindings, gapi.DescriptorType(0))
	}
	c.graphicsDesc.DescriptorBindings[binding] = t
	c.graphicsDesc.UsePushDescriptors = true
}

func (c *BuildContext) setDescriptor(binding uint32, pd pendingDescriptor) {
	for uint32(len(c.pendingDescriptors)) <= binding {
		c.pendingDescriptors = append(c.pendingDescriptors, pendingDescriptor{})
	}
	pd.binding = binding
	pd.valid = true
	c.pendingDescriptors[binding] = pd
}

// --- Vertex/index buffers ---

func (c *BuildContext) BindVertexBuffer(buffName name.Name) {
	c.setupBufferBarrier(buffName, gapi.BufferAccessVertexRead, gapi.PipelineStageVertexShader)
	c.addBufferFlag(buffName, gapi.BufferUsageVertex)
	c.addCommand(command{kind: cmdBindVertexBuffer, buffName: buffName, vertexBuffer: LocalBuffer(buffName)})
}

func (c *BuildContext) BindIndexBuffer(buffName name.Name) {
	c.setupBufferBarrier(buffName, gapi.BufferAccessIndexRead, gapi.PipelineStageVertexShader)
	c.addBufferFlag(buffName, gapi.BufferUsageIndex)
	c.addCommand(command{kind: cmdBindIndexBuffer, buffName: buffName, indexBuffer: LocalBuffer(buffName)})
}

// BindVertexBufferRaw binds a vertex buffer owned and barrier-tracked
// externally to the job graph (e.g. a bindless.Scene's combined vertex
// buffer, uploaded once and read-only for the scene's lifetime).
func (c *BuildContext) BindVertexBufferRaw(buf gapi.Buffer) {
	c.addCommand(command{kind: cmdBindVertexBuffer, vertexBuffer: RawBuffer(buf)})
}

// BindIndexBufferRaw binds an index buffer owned externally; see
// BindVertexBufferRaw.
func (c *BuildContext) BindIndexBufferRaw(buf gapi.Buffer) {
	c.addCommand(command{kind: cmdBindIndexBuffer, indexBuffer: RawBuffer(buf)})
}

// --- Render passes ---

func (c *BuildContext) BeginRenderPass(passName name.Name, targets []name.Name) {
	for _, rtName := range targets {
		decl := c.textureDecls[rtName]
		rt := c.renderTargets[rtName]

		targetStage := gapi.PipelineStageColorAttachmentOutput
		lastUsedStage := gapi.PipelineStageColorAttachmentOutput
		state := gapi.TextureStateRenderTarget
		if rt.isDepth {
			targetStage = gapi.PipelineStageEarlyDepthTest
			lastUsedStage = gapi.PipelineStageLateDepthTest
			state = gapi.TextureStateDepthStencilTarget
		}
		c.setupTextureBarrierStages(rtName, state, targetStage, lastUsedStage)

		if rt.isDepth {
			c.graphicsDesc.DepthFormat = decl.format
			c.graphicsDesc.HasDepthFormat = true
		} else {
			c.graphicsDesc.ColorFormats = append(c.graphicsDesc.ColorFormats, decl.format)
		}
	}

	c.addCommand(command{kind: cmdBeginRenderPass, passName: passName, renderTargets: append([]name.Name(nil), targets...)})
	c.renderPassStart = len(c.commands) - 1
}

func (c *BuildContext) EndRenderPass() {
	c.graphicsDesc.HasDepthFormat = false
	c.graphicsDesc.ColorFormats = nil
	c.addCommand(command{kind: cmdEndRenderPass})
	c.renderPassStart = -1
}

// --- Barrier inference ---

func (c *BuildContext) setupTextureBarrierStages(texName name.Name, targetState gapi.TextureState, targetStage, lastUsedStage gapi.PipelineStage) {
	decl := c.textureDecls[texName]

	if targetState.MemoryAccess() == gapi.MemoryAccessWrite || decl.currentState != targetState || decl.lastBarrier == nil {
		if decl.lastStages != 0 {
			tb := &textureBarrier{
				ref: LocalTexture(texName), srcStageFlags: decl.lastStages, dstStageFlags: targetStage,
				srcState: decl.currentState, dstState: targetState,
			}
			c.insertBeforeRenderPass(command{kind: cmdPlaceTextureBarrier, textureBarrier: tb})
			decl.lastBarrier = tb
		}
		decl.lastStages = lastUsedStage
	} else {
		decl.lastBarrier.dstStageFlags |= targetStage
		decl.lastStages |= lastUsedStage
	}

	decl.currentState = targetState
}

func (c *BuildContext) setupTextureBarrier(texName name.Name, targetState gapi.TextureState, targetStage gapi.PipelineStage) {
	c.setupTextureBarrierStages(texName, targetState, targetStage, targetStage)
}

func (c *BuildContext) setupBufferBarrier(buffName name.Name, targetAccess gapi.BufferAccess, targetStage gapi.PipelineStage) {
	decl := c.bufferDecls[buffName]

	if targetAccess.MemoryAccess() == gapi.MemoryAccessWrite || decl.lastBarrier == nil {
		if decl.lastStages != 0 {
			bb := &bufferBarrier{
				ref: LocalBuffer(buffName), srcStageFlags: decl.lastStages, dstStageFlags: targetStage,
				srcAccess: decl.currentAccess, dstAccess: targetAccess,
			}
			c.insertBeforeRenderPass(command{kind: cmdPlaceBufferBarrier, bufferBarrier: bb})
			decl.lastBarrier = bb
		}
		decl.lastStages = targetStage
	} else {
		decl.lastBarrier.dstStageFlags |= targetStage
		decl.lastBarrier.dstAccess |= targetAccess
		decl.lastStages |= targetStage
	}

	decl.currentAccess = targetAccess
}

func (c *BuildContext) prepareTexture(texName name.Name, state gapi.TextureState, usage gapi.TextureUsage) {
	c.setupTextureBarrier(texName, state, c.activeStage)
	c.addTextureFlag(texName, usage)

	if state.MemoryAccess() == gapi.MemoryAccessRead {
		if rt, ok := c.renderTargets[texName]; ok {
			rt.store = true
		}
	}
}

func (c *BuildContext) prepareBuffer(buffName name.Name, access gapi.BufferAccess, usage gapi.BufferUsage) {
	c.setupBufferBarrier(buffName, access, c.activeStage)
	c.addBufferFlag(buffName, usage)
}

func (c *BuildContext) addTextureFlag(texName name.Name, flag gapi.TextureUsage) {
	c.textureDecls[texName].usage |= flag
}

func (c *BuildContext) addBufferFlag(buffName name.Name, flag gapi.BufferUsage) {
	c.bufferDecls[buffName].usage |= flag
}

// addCommand appends cmd at the tail of the stream.
func (c *BuildContext) addCommand(cmd command) {
	c.commands = append(c.commands, cmd)
}

// insertBeforeRenderPass hoists cmd to just before the currently open
// render pass, so barrier commands raised by bindings recorded mid-pass
// still land outside it (most APIs forbid pipeline barriers mid-pass).
// Outside a render pass it is equivalent to addCommand.
func (c *BuildContext) insertBeforeRenderPass(cmd command) {
	if c.renderPassStart < 0 {
		c.addCommand(cmd)
		return
	}
	idx := c.renderPassStart
	c.commands = append(c.commands, command{})
	copy(c.commands[idx+1:], c.commands[idx:])
	c.commands[idx] = cmd
	c.renderPassStart++
}

// --- Draw / dispatch / transfer ---

func (c *BuildContext) handlePendingGraphicState() {
	c.addCommand(command{kind: cmdBindGraphicsPipeline, graphicsDesc: c.graphicsDesc})
	c.graphicsDesc.DescriptorBindings = nil
	c.graphicsDesc.VertexLayout = gapi.VertexLayout{}
	c.descriptorCounts.TotalDescriptorSets++
	c.handleDescriptorBindings()
}

func (c *BuildContext) handleDescriptorBindings() {
	if len(c.pendingDescriptors) == 0 {
		return
	}
	c.addCommand(command{kind: cmdBindDescriptors, descriptors: c.pendingDescriptors})
	c.pendingDescriptors = nil
}

func (c *BuildContext) DrawPrimitives(vertexCount, vertexOffset uint32) {
	c.handlePendingGraphicState()
	c.addCommand(command{kind: cmdDraw, vertexCount: vertexCount, firstVertex: vertexOffset, instanceCount: 1})
}

func (c *BuildContext) DrawIndexedPrimitives(indexCount, indexOffset uint32, vertexOffset int32) {
	c.handlePendingGraphicState()
	c.addCommand(command{kind: cmdDrawIndexed, indexCount: indexCount, firstIndex: indexOffset, vertexOffset: vertexOffset, instanceCount: 1})
}

func (c *BuildContext) DrawIndexedPrimitivesInstanced(indexCount, indexOffset uint32, vertexOffset int32, instanceCount, instanceOffset uint32) {
	c.handlePendingGraphicState()
	c.addCommand(command{
		kind: cmdDrawIndexed, indexCount: indexCount, firstIndex: indexOffset, vertexOffset: vertexOffset,
		instanceCount: instanceCount, firstInstance: instanceOffset,
	})
}

// DrawFullScreenTriangle binds the shared full-screen vertex shader and
// issues a single oversized triangle covering the viewport — the modern
// replacement for a full-screen quad, needing one draw call and no index
// buffer.
func (c *BuildContext) DrawFullScreenTriangle(fullScreenVS name.Name) {
	c.BindVertexShader(fullScreenVS)
	c.SetVertexTopology(gapi.TopologyTriangleList)
	c.DrawPrimitives(3, 0)
}

func (c *BuildContext) Dispatch(x, y, z uint32) {
	c.addCommand(command{kind: cmdBindComputePipeline, computeDesc: c.computeDesc})
	c.computeDesc.DescriptorBindings = nil
	c.handleDescriptorBindings()
	c.addCommand(command{kind: cmdDispatch, dispatchX: x, dispatchY: y, dispatchZ: z})
	c.descriptorCounts.TotalDescriptorSets++
}

func (c *BuildContext) DrawIndexedIndirectCount(indirectBuffer, countBuffer BufferRef, maxDraws, stride uint32) {
	c.DrawIndexedIndirectCountAt(indirectBuffer, 0, countBuffer, 0, maxDraws, stride)
}

// DrawIndexedIndirectCountAt is DrawIndexedIndirectCount with explicit byte
// offsets into indirectBuffer/countBuffer — needed when several draws share
// one underlying buffer at different offsets (e.g. one countBuffer slot per
// material template).
func (c *BuildContext) DrawIndexedIndirectCountAt(indirectBuffer BufferRef, indirectOffset gapi.MemorySize, countBuffer BufferRef, countOffset gapi.MemorySize, maxDraws, stride uint32) {
	if indirectBuffer.Kind != RefRaw {
		c.prepareBuffer(indirectBuffer.Name, gapi.BufferAccessIndirectRead, gapi.BufferUsageIndirect)
	}
	if countBuffer.Kind != RefRaw {
		c.prepareBuffer(countBuffer.Name, gapi.BufferAccessIndirectRead, gapi.BufferUsageIndirect)
	}
	c.handlePendingGraphicState()
	c.addCommand(command{
		kind: cmdDrawIndexedIndirectCount, indirectBuffer: indirectBuffer, indirectOffset: indirectOffset,
		countBuffer: countBuffer, countOffset: countOffset, maxDraws: maxDraws, dispatchX: stride,
	})
}

// WriteTimestamp records a GPU timestamp into pool at index, outside any
// render pass. Recording it mid-job is how statistics.StatisticManager
// brackets a stage's commands with begin/end regions without the DSL
// needing to know anything about GPU timing itself.
func (c *BuildContext) WriteTimestamp(pool gapi.QueryPool, index uint32) {
	c.addCommand(command{kind: cmdWriteTimestamp, queryPool: pool, queryIndex: index})
}

func (c *BuildContext) FillBuffer(buffName name.Name, data []byte) {
	c.activeStage = gapi.PipelineStageTransfer
	c.prepareBuffer(buffName, gapi.BufferAccessTransferWrite, gapi.BufferUsageTransferDst)
	c.addCommand(command{kind: cmdFillBuffer, buffName: buffName, fillBuffer: LocalBuffer(buffName), fillData: append([]byte(nil), data...)})
	c.workTypes |= gapi.WorkTypeTransfer
}

// FillBufferRaw fills a buffer owned externally to the job graph (e.g. a
// per-material-template visible-object count buffer reset once per frame
// before the cull compute dispatch re-populates it).
func (c *BuildContext) FillBufferRaw(buf gapi.Buffer, data []byte) {
	c.activeStage = gapi.PipelineStageTransfer
	c.addCommand(command{kind: cmdFillBuffer, fillBuffer: RawBuffer(buf), fillData: append([]byte(nil), data...)})
	c.workTypes |= gapi.WorkTypeTransfer
}

func (c *BuildContext) CopyTextureToBuffer(srcTex TextureRef, dstBuff BufferRef) {
	c.activeStage = gapi.PipelineStageTransfer
	if srcTex.Kind != RefRaw {
		c.prepareTexture(srcTex.Name, gapi.TextureStateTransferSrc, gapi.TextureUsageTransferSrc)
	}
	if dstBuff.Kind != RefRaw {
		c.prepareBuffer(dstBuff.Name, gapi.BufferAccessTransferWrite, gapi.BufferUsageTransferDst)
	}
	c.addCommand(command{kind: cmdCopyTextureToBuffer, srcTexture: srcTex, dstBuffer: dstBuff})
	c.workTypes |= gapi.WorkTypeTransfer
}

func (c *BuildContext) CopyBufferToTexture(srcBuff BufferRef, dstTex TextureRef) {
	c.activeStage = gapi.PipelineStageTransfer
	if srcBuff.Kind != RefRaw {
		c.prepareBuffer(srcBuff.Name, gapi.BufferAccessTransferRead, gapi.BufferUsageTransferSrc)
	}
	if dstTex.Kind != RefRaw {
		c.prepareTexture(dstTex.Name, gapi.TextureStateTransferDst, gapi.TextureUsageTransferDst)
	}
	c.addCommand(command{kind: cmdCopyBufferToTexture, srcBuffer: srcBuff, dstTexture: dstTex})
	c.workTypes |= gapi.WorkTypeTransfer
}

// WorkTypes reports the union of queue types this context's commands need.
func (c *BuildContext) WorkTypes() gapi.WorkType {
	return c.workTypes
}
