package rendercore

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/kestrelgfx/corerender/gapi"
	"github.com/kestrelgfx/corerender/name"
	"github.com/kestrelgfx/corerender/rlog"
)

var log = rlog.Category("rendercore")

// JobState models a Job's lifecycle as it moves from pure declaration
// through to steady-state per-frame execution.
type JobState int

const (
	JobDeclared JobState = iota
	JobBuilt
	JobRecording
	JobExecutable
	JobExecuting
	JobDone
)

func (s JobState) String() string {
	switch s {
	case JobDeclared:
		return "Declared"
	case JobBuilt:
		return "Built"
	case JobRecording:
		return "Recording"
	case JobExecutable:
		return "Executable"
	case JobExecuting:
		return "Executing"
	case JobDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// Job is the built, submittable form of a BuildContext: one pre-recorded
// CommandList per in-flight frame slot, plus the descriptor pool sized for
// it. Jobs are recorded once; subsequent frames only resubmit the command
// list for their frame slot; live resource data changes through buffer
// writes, not re-recording.
type Job struct {
	name      name.Name
	device    gapi.Device
	pool      gapi.DescriptorPool
	frames    []gapi.CommandList
	workTypes gapi.WorkType
	state     JobState
	debugID   uuid.UUID
}

func (j *Job) Name() name.Name          { return j.name }
func (j *Job) State() JobState          { return j.state }
func (j *Job) WorkTypes() gapi.WorkType { return j.workTypes }

// DebugID is a per-build session identifier minted once when the job is
// built, used only to correlate this job's submissions across log lines
// (a rebuilt job after a swapchain recreate gets a fresh one).
func (j *Job) DebugID() uuid.UUID { return j.debugID }

// Execute submits the frameIndex'th pre-recorded command list, waiting on
// waitSemaphores and signalling signalSemaphores; fence is signalled once
// the GPU finishes. Moves Executable -> Executing -> Done.
func (j *Job) Execute(frameIndex uint32, waitSemaphores, signalSemaphores []gapi.Semaphore, fence gapi.Fence) error {
	if int(frameIndex) >= len(j.frames) {
		return fmt.Errorf("rendercore: job %q has no command list for frame %d", j.name, frameIndex)
	}
	j.state = JobExecuting
	log.Tracef("job %q [%s] submitting frame %d", j.name, j.debugID, frameIndex)
	if err := j.device.SubmitCommandList(j.frames[frameIndex], waitSemaphores, signalSemaphores, fence, j.workTypes); err != nil {
		return err
	}
	j.state = JobDone
	return nil
}

// Reset transitions a Done job back to Executable, ready for its frame
// slot to be resubmitted next cycle.
func (j *Job) Reset() {
	if j.state == JobDone {
		j.state = JobExecutable
	}
}

// Release frees the job's descriptor pool.
func (j *Job) Release() {
	if j.pool != nil {
		j.pool.Release()
	}
}

// BuildJob compiles the recorded commands into one CommandList per frame
// slot in storages, creating backing GPU resources as it goes. shaders
// supplies every compiled Shader this job's pipelines may reference, keyed
// by shader name.
func (c *BuildContext) BuildJob(jobName name.Name, cache *PipelineCache, shaders map[name.Name]gapi.Shader, storages []*ResourceStorage) (*Job, error) {
	if len(storages) == 0 {
		return nil, fmt.Errorf("rendercore: BuildJob requires at least one frame-slot ResourceStorage")
	}

	pool, err := c.createDescriptorPool()
	if err != nil {
		return nil, err
	}

	frames := make([]gapi.CommandList, 0, len(storages))
	for frameIndex := range storages {
		if err := c.createResources(storages[frameIndex], uint32(frameIndex)); err != nil {
			return nil, err
		}

		cmdList, err := c.device.CreateCommandList(c.workTypes)
		if err != nil {
			return nil, gapi.NewError(gapi.UnsupportedDevice, "BuildContext.BuildJob", err)
		}
		if err := cmdList.Begin(gapi.BeginNormal); err != nil {
			return nil, err
		}

		if err := c.writeCommands(storages[frameIndex], uint32(frameIndex), cmdList, cache, shaders); err != nil {
			return nil, err
		}

		if err := cmdList.Finish(); err != nil {
			return nil, err
		}
		frames = append(frames, cmdList)
	}

	return &Job{name: jobName, device: c.device, pool: pool, frames: frames, workTypes: c.workTypes, state: JobExecutable, debugID: uuid.New()}, nil
}

func (c *BuildContext) createDescriptorPool() (gapi.DescriptorPool, error) {
	counts := c.descriptorCounts
	pool, err := c.device.CreateDescriptorPool(counts, counts.TotalDescriptorSets)
	if err != nil {
		return nil, gapi.NewError(gapi.UnsupportedDevice, "BuildContext.createDescriptorPool", err)
	}
	return pool, nil
}

func (c *BuildContext) createResources(storage *ResourceStorage, frameIndex uint32) error {
	for _, texName := range c.textureOrder {
		decl := c.textureDecls[texName]
		if decl.external {
			continue
		}
		dims := decl.dims
		if !decl.sized {
			dims = c.screenSize
		}
		tex, err := c.device.CreateTexture(decl.format, dims, decl.usage, gapi.TextureStateUndefined, 1, 1)
		if err != nil {
			return gapi.NewError(gapi.UnsupportedFormat, "BuildContext.createResources:texture:"+texName.String(), err)
		}
		storage.RegisterTexture(texName, frameIndex, tex)
	}
	for _, buffName := range c.bufferOrder {
		decl := c.bufferDecls[buffName]
		buf, err := c.device.CreateBuffer(decl.usage, decl.size)
		if err != nil {
			return gapi.NewError(gapi.UnsupportedDevice, "BuildContext.createResources:buffer:"+buffName.String(), err)
		}
		storage.RegisterBuffer(buffName, frameIndex, buf)
	}
	return nil
}

func (c *BuildContext) resolveTextureRef(storage *ResourceStorage, frameIndex uint32, ref TextureRef) gapi.Texture {
	switch ref.Kind {
	case RefRaw:
		return ref.Raw.(gapi.Texture)
	default:
		return storage.Texture(ref.Name, frameIndex)
	}
}

func (c *BuildContext) resolveBufferRef(storage *ResourceStorage, frameIndex uint32, ref BufferRef) gapi.Buffer {
	switch ref.Kind {
	case RefRaw:
		return ref.Raw.(gapi.Buffer)
	default:
		return storage.Buffer(ref.Name, frameIndex)
	}
}

func (c *BuildContext) createRenderingInfo(storage *ResourceStorage, frameIndex uint32, cmd command) gapi.RenderingInfo {
	var info gapi.RenderingInfo
	var resolution gapi.Resolution

	for _, rtName := range cmd.renderTargets {
		rt := c.renderTargets[rtName]
		tex := storage.Texture(rtName, frameIndex)

		attachment := gapi.RenderAttachment{
			Texture:    tex,
			ClearValue: rt.clearValue,
			Clear:      rt.clear,
			Store:      rt.store,
		}
		resolution = tex.Resolution()

		if rt.isDepth {
			attachment.State = gapi.TextureStateDepthStencilTarget
			info.DepthAttachment = &attachment
		} else {
			attachment.State = gapi.TextureStateRenderTarget
			info.ColorAttachments = append(info.ColorAttachments, attachment)
		}
	}

	info.LayerCount = 1
	info.RenderAreaExtent = resolution
	return info
}

func (c *BuildContext) writeCommands(storage *ResourceStorage, frameIndex uint32, cmdList gapi.CommandList, cache *PipelineCache, shaders map[name.Name]gapi.Shader) error {
	var currentPipeline gapi.Pipeline

	for _, cmd := range c.commands {
		switch cmd.kind {
		case cmdBindGraphicsPipeline:
			p, err := cache.Graphics(cmd.graphicsDesc, shaders)
			if err != nil {
				return err
			}
			if p != currentPipeline {
				currentPipeline = p
				cmdList.BindGraphicsPipeline(p)
			}

		case cmdBindComputePipeline:
			p, err := cache.Compute(cmd.computeDesc, shaders)
			if err != nil {
				return err
			}
			if p != currentPipeline {
				currentPipeline = p
				cmdList.BindComputePipeline(p)
			}

		case cmdBindDescriptors:
			writes, err := c.resolveDescriptorWrites(storage, frameIndex, cmd.descriptors)
			if err != nil {
				return err
			}
			if len(writes) > 0 {
				cmdList.PushDescriptors(0, writes)
			}

		case cmdDispatch:
			cmdList.Dispatch(cmd.dispatchX, cmd.dispatchY, cmd.dispatchZ)

		case cmdCopyTextureToBuffer:
			cmdList.CopyTextureToBuffer(c.resolveTextureRef(storage, frameIndex, cmd.srcTexture), c.resolveBufferRef(storage, frameIndex, cmd.dstBuffer), 0)

		case cmdCopyBufferToTexture:
			cmdList.CopyBufferToTexture(c.resolveBufferRef(storage, frameIndex, cmd.srcBuffer), 0, c.resolveTextureRef(storage, frameIndex, cmd.dstTexture))

		case cmdPlaceBufferBarrier:
			b := cmd.bufferBarrier
			info := gapi.BufferBarrierInfo{
				Buffer:       c.resolveBufferRef(storage, frameIndex, b.ref),
				SourceAccess: b.srcAccess,
				TargetAccess: b.dstAccess,
			}
			cmdList.BufferBarrier(b.srcStageFlags, b.dstStageFlags, info)

		case cmdPlaceTextureBarrier:
			b := cmd.textureBarrier
			info := gapi.TextureBarrierInfo{
				Texture:       c.resolveTextureRef(storage, frameIndex, b.ref),
				SourceState:   b.srcState,
				TargetState:   b.dstState,
				BaseMipLevel:  0,
				MipLevelCount: 1,
			}
			cmdList.TextureBarrier(b.srcStageFlags, b.dstStageFlags, info)

		case cmdBindVertexBuffer:
			cmdList.BindVertexBuffer(c.resolveBufferRef(storage, frameIndex, cmd.vertexBuffer), 0)

		case cmdBindIndexBuffer:
			cmdList.BindIndexBuffer(c.resolveBufferRef(storage, frameIndex, cmd.indexBuffer))

		case cmdFillBuffer:
			cmdList.FillBuffer(c.resolveBufferRef(storage, frameIndex, cmd.fillBuffer), 0, cmd.fillData)

		case cmdBeginRenderPass:
			cmdList.BeginRendering(c.createRenderingInfo(storage, frameIndex, cmd))

		case cmdEndRenderPass:
			cmdList.EndRendering()

		case cmdDraw:
			cmdList.Draw(cmd.vertexCount, cmd.firstVertex, cmd.instanceCount, cmd.firstInstance)

		case cmdDrawIndexed:
			cmdList.DrawIndexed(cmd.indexCount, cmd.firstIndex, cmd.vertexOffset, cmd.instanceCount, cmd.firstInstance)

		case cmdDrawIndexedIndirectCount:
			cmdList.DrawIndexedIndirectCount(
				c.resolveBufferRef(storage, frameIndex, cmd.indirectBuffer), cmd.indirectOffset,
				c.resolveBufferRef(storage, frameIndex, cmd.countBuffer), cmd.countOffset,
				cmd.maxDraws, cmd.dispatchX,
			)

		case cmdWriteTimestamp:
			cmdList.WriteTimestamp(cmd.queryPool, cmd.queryIndex)
		}
	}

	return nil
}

func (c *BuildContext) resolveDescriptorWrites(storage *ResourceStorage, frameIndex uint32, pending []pendingDescriptor) ([]gapi.DescriptorWrite, error) {
	writes := make([]gapi.DescriptorWrite, 0, len(pending))
	for _, pd := range pending {
		if !pd.valid {
			continue
		}
		switch pd.kind {
		case descRWTexture:
			tex := c.resolveTextureRef(storage, frameIndex, pd.texRef)
			view, err := tex.CreateMipView(0)
			if err != nil {
				return nil, err
			}
			writes = append(writes, gapi.DescriptorWrite{Binding: pd.binding, Type: gapi.DescriptorStorageTexture, StorageTexture: view})

		case descSamplableTexture:
			tex := c.resolveTextureRef(storage, frameIndex, pd.texRef)
			view, err := tex.CreateMipView(0)
			if err != nil {
				return nil, err
			}
			writes = append(writes, gapi.DescriptorWrite{Binding: pd.binding, Type: gapi.DescriptorSampledTexture, SampledTexture: view})

		case descSamplableTextureArray:
			writes = append(writes, gapi.DescriptorWrite{Binding: pd.binding, Type: gapi.DescriptorSampledTextureArray, TextureArray: pd.views})

		case descStorageBuffer, descRWStorageBuffer:
			buf := c.resolveBufferRef(storage, frameIndex, pd.buffRef)
			writes = append(writes, gapi.DescriptorWrite{Binding: pd.binding, Type: gapi.DescriptorStorageBuffer, StorageBuffer: buf, BufferSize: buf.Size()})

		case descUniformBuffer:
			buf := c.resolveBufferRef(storage, frameIndex, pd.buffRef)
			writes = append(writes, gapi.DescriptorWrite{Binding: pd.binding, Type: gapi.DescriptorUniformBuffer, UniformBuffer: buf, BufferSize: buf.Size()})

		case descUniformBufferArray:
			bufs := make([]gapi.Buffer, 0, len(pd.buffRefs))
			for _, ref := range pd.buffRefs {
				bufs = append(bufs, c.resolveBufferRef(storage, frameIndex, ref))
			}
			writes = append(writes, gapi.DescriptorWrite{Binding: pd.binding, Type: gapi.DescriptorUniformBufferArray, BufferArray: bufs})
		}
	}
	return writes, nil
}
