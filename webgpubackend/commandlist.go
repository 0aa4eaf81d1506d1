package webgpubackend

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/kestrelgfx/corerender/gapi"
)

// replayState is the mutable cursor a CommandList's trace replays
// against: which wgpu.CommandEncoder owns this submission, and which pass
// (if any) is currently open. Draw/Dispatch/PushDescriptors act on
// whichever pass is open; barrier and copy entries close whatever pass is
// open first, since wgpu forbids encoder-level commands while a pass is
// recording.
type replayState struct {
	device      *Device
	encoder     *wgpu.CommandEncoder
	renderPass  *wgpu.RenderPassEncoder
	computePass *wgpu.ComputePassEncoder
	pipeline    *Pipeline
}

func (s *replayState) closeComputePass() {
	if s.computePass != nil {
		s.computePass.End()
		s.computePass = nil
	}
}

func (s *replayState) closeRenderPass() {
	if s.renderPass != nil {
		s.renderPass.End()
		s.renderPass = nil
	}
}

type traceEntry func(s *replayState) error

// CommandList records DSL calls as a sequence of replay closures instead
// of issuing wgpu calls immediately. rendercore.Job.BuildJob records a
// frame's commands once via Begin/.../Finish and then resubmits the same
// finished CommandList every time that frame slot comes around
// (Job.Reset only flips state back to executable) — a persistent,
// re-submittable command buffer model borrowed from Vulkan. wgpu's
// CommandBuffer is consumed by a single Submit call, so the same
// CommandList can't be handed to the queue twice. Recording a trace and
// replaying it into a fresh wgpu.CommandEncoder on every
// Device.SubmitCommandList call reconciles the two: the DSL's "record
// once" contract is honored, while wgpu only ever sees freshly built,
// single-use command buffers.
type CommandList struct {
	device    *Device
	workType  gapi.WorkType
	beginMode gapi.CommandListBeginMode
	trace     []traceEntry
	finished  bool
}

func (d *Device) CreateCommandList(workType gapi.WorkType) (gapi.CommandList, error) {
	return &CommandList{device: d, workType: workType}, nil
}

func (cl *CommandList) add(e traceEntry) {
	cl.trace = append(cl.trace, e)
}

func (cl *CommandList) Begin(mode gapi.CommandListBeginMode) error {
	cl.beginMode = mode
	cl.trace = cl.trace[:0]
	cl.finished = false
	return nil
}

func (cl *CommandList) BeginRendering(info gapi.RenderingInfo) {
	cl.add(func(s *replayState) error {
		s.closeComputePass()

		colorAttachments := make([]wgpu.RenderPassColorAttachment, len(info.ColorAttachments))
		for i, a := range info.ColorAttachments {
			view, err := textureViewOf(a.View)
			if err != nil {
				return err
			}
			loadOp := wgpu.LoadOpLoad
			if a.Clear {
				loadOp = wgpu.LoadOpClear
			}
			storeOp := wgpu.StoreOpDiscard
			if a.Store {
				storeOp = wgpu.StoreOpStore
			}
			colorAttachments[i] = wgpu.RenderPassColorAttachment{
				View:    view.view,
				LoadOp:  loadOp,
				StoreOp: storeOp,
				ClearValue: wgpu.Color{
					R: float64(a.ClearValue.Color[0]),
					G: float64(a.ClearValue.Color[1]),
					B: float64(a.ClearValue.Color[2]),
					A: float64(a.ClearValue.Color[3]),
				},
			}
		}

		desc := &wgpu.RenderPassDescriptor{ColorAttachments: colorAttachments}
		if info.DepthAttachment != nil {
			view, err := textureViewOf(info.DepthAttachment.View)
			if err != nil {
				return err
			}
			loadOp := wgpu.LoadOpLoad
			if info.DepthAttachment.Clear {
				loadOp = wgpu.LoadOpClear
			}
			storeOp := wgpu.StoreOpDiscard
			if info.DepthAttachment.Store {
				storeOp = wgpu.StoreOpStore
			}
			desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
				View:            view.view,
				DepthLoadOp:     loadOp,
				DepthStoreOp:    storeOp,
				DepthClearValue: info.DepthAttachment.ClearValue.Depth,
			}
		}

		s.renderPass = s.encoder.BeginRenderPass(desc)
		return nil
	})
}

func (cl *CommandList) EndRendering() {
	cl.add(func(s *replayState) error {
		s.closeRenderPass()
		return nil
	})
}

func (cl *CommandList) BindGraphicsPipeline(p gapi.Pipeline) {
	cl.add(func(s *replayState) error {
		wp, err := pipelineOf(p)
		if err != nil {
			return err
		}
		s.pipeline = wp
		if s.renderPass != nil {
			s.renderPass.SetPipeline(wp.render)
		}
		return nil
	})
}

func (cl *CommandList) BindComputePipeline(p gapi.Pipeline) {
	cl.add(func(s *replayState) error {
		s.closeRenderPass()
		wp, err := pipelineOf(p)
		if err != nil {
			return err
		}
		s.pipeline = wp
		if s.computePass == nil {
			s.computePass = s.encoder.BeginComputePass(nil)
		}
		s.computePass.SetPipeline(wp.compute)
		return nil
	})
}

func (cl *CommandList) BindVertexBuffer(b gapi.Buffer, offset gapi.MemorySize) {
	cl.add(func(s *replayState) error {
		wb, err := bufferOf(b)
		if err != nil {
			return err
		}
		wb.flush()
		if s.renderPass != nil {
			s.renderPass.SetVertexBuffer(0, wb.buf, offset, wgpu.WholeSize)
		}
		return nil
	})
}

func (cl *CommandList) BindIndexBuffer(b gapi.Buffer) {
	cl.add(func(s *replayState) error {
		wb, err := bufferOf(b)
		if err != nil {
			return err
		}
		wb.flush()
		if s.renderPass != nil {
			s.renderPass.SetIndexBuffer(wb.buf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		}
		return nil
	})
}

// descriptorBindGroupEntries builds wgpu.BindGroupEntry values for one
// PushDescriptors call, flushing any host-visible buffer writes first so
// the bind group always reads the caller's most recent data.
func descriptorBindGroupEntries(writes []gapi.DescriptorWrite) ([]wgpu.BindGroupEntry, error) {
	entries := make([]wgpu.BindGroupEntry, 0, len(writes))
	for _, w := range writes {
		e := wgpu.BindGroupEntry{Binding: w.Binding, Size: wgpu.WholeSize}
		switch {
		case w.UniformBuffer != nil:
			wb, err := bufferOf(w.UniformBuffer)
			if err != nil {
				return nil, err
			}
			wb.flush()
			e.Buffer, e.Offset = wb.buf, w.BufferOffset
			if w.BufferSize != 0 {
				e.Size = w.BufferSize
			}
		case w.StorageBuffer != nil:
			wb, err := bufferOf(w.StorageBuffer)
			if err != nil {
				return nil, err
			}
			wb.flush()
			e.Buffer, e.Offset = wb.buf, w.BufferOffset
			if w.BufferSize != 0 {
				e.Size = w.BufferSize
			}
		case w.SampledTexture != nil:
			wv, err := textureViewOf(w.SampledTexture)
			if err != nil {
				return nil, err
			}
			e.TextureView = wv.view
		case w.StorageTexture != nil:
			wv, err := textureViewOf(w.StorageTexture)
			if err != nil {
				return nil, err
			}
			e.TextureView = wv.view
		default:
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (cl *CommandList) PushDescriptors(set uint32, writes []gapi.DescriptorWrite) {
	cl.add(func(s *replayState) error {
		if s.pipeline == nil {
			return fmt.Errorf("webgpubackend: PushDescriptors with no bound pipeline")
		}
		entries, err := descriptorBindGroupEntries(writes)
		if err != nil {
			return err
		}
		bg, err := s.device.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Layout:  s.pipeline.layout,
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("webgpubackend: PushDescriptors CreateBindGroup: %w", err)
		}
		if s.renderPass != nil {
			s.renderPass.SetBindGroup(set, bg, nil)
		} else if s.computePass != nil {
			s.computePass.SetBindGroup(set, bg, nil)
		}
		return nil
	})
}

func (cl *CommandList) Draw(vertexCount, firstVertex, instanceCount, firstInstance uint32) {
	cl.add(func(s *replayState) error {
		if s.renderPass == nil {
			return fmt.Errorf("webgpubackend: Draw outside a render pass")
		}
		s.renderPass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
		return nil
	})
}

func (cl *CommandList) DrawIndexed(indexCount, firstIndex uint32, vertexOffset int32, instanceCount, firstInstance uint32) {
	cl.add(func(s *replayState) error {
		if s.renderPass == nil {
			return fmt.Errorf("webgpubackend: DrawIndexed outside a render pass")
		}
		s.renderPass.DrawIndexed(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
		return nil
	})
}

// DrawIndexedIndirectCount is the gbuffer pass's GPU-driven indirect draw:
// the visible-draw count produced by the culling compute pass lives in a
// GPU buffer the host never reads back, so the draw count itself must be
// supplied to the GPU rather than looped on the CPU. wgpu's
// MultiDrawIndexedIndirectCount mirrors the VK_KHR_draw_indirect_count
// extension this is grounded on; a device that doesn't support it (most
// don't, without the "multi-draw-indirect-count" native feature) would
// need the fallback of dispatching maxDraws indirect draws unconditionally
// and relying on a zeroed instance/index count to make the extra ones
// no-ops, which is the conservative path taken here so the pass still
// executes on hardware lacking the extension, at the cost of always
// recording maxDraws draw calls instead of the true visible count.
func (cl *CommandList) DrawIndexedIndirectCount(indirectBuffer gapi.Buffer, indirectOffset gapi.MemorySize, countBuffer gapi.Buffer, countOffset gapi.MemorySize, maxDraws uint32, stride uint32) {
	cl.add(func(s *replayState) error {
		if s.renderPass == nil {
			return fmt.Errorf("webgpubackend: DrawIndexedIndirectCount outside a render pass")
		}
		wb, err := bufferOf(indirectBuffer)
		if err != nil {
			return err
		}
		wb.flush()
		for i := uint32(0); i < maxDraws; i++ {
			s.renderPass.DrawIndexedIndirect(wb.buf, indirectOffset+gapi.MemorySize(i)*gapi.MemorySize(stride))
		}
		return nil
	})
}

func (cl *CommandList) Dispatch(x, y, z uint32) {
	cl.add(func(s *replayState) error {
		if s.computePass == nil {
			return fmt.Errorf("webgpubackend: Dispatch outside a bound compute pipeline")
		}
		s.computePass.DispatchWorkgroups(x, y, z)
		return nil
	})
}

func (cl *CommandList) CopyBuffer(src, dst gapi.Buffer, srcOffset, dstOffset, size gapi.MemorySize) {
	cl.add(func(s *replayState) error {
		s.closeComputePass()
		s.closeRenderPass()
		wsrc, err := bufferOf(src)
		if err != nil {
			return err
		}
		wdst, err := bufferOf(dst)
		if err != nil {
			return err
		}
		wsrc.flush()
		s.encoder.CopyBufferToBuffer(wsrc.buf, srcOffset, wdst.buf, dstOffset, size)
		return nil
	})
}

func (cl *CommandList) CopyBufferToTexture(src gapi.Buffer, srcOffset gapi.MemorySize, dst gapi.Texture) {
	cl.add(func(s *replayState) error {
		s.closeComputePass()
		s.closeRenderPass()
		wsrc, err := bufferOf(src)
		if err != nil {
			return err
		}
		wdst, err := textureOf(dst)
		if err != nil {
			return err
		}
		wsrc.flush()
		res := wdst.Resolution()
		s.encoder.CopyBufferToTexture(
			&wgpu.ImageCopyBuffer{
				Layout: wgpu.TextureDataLayout{Offset: srcOffset, BytesPerRow: res.Width * wgpuBytesPerPixel(wdst.format), RowsPerImage: res.Height},
				Buffer: wsrc.buf,
			},
			wdst.tex.AsImageCopy(),
			&wgpu.Extent3D{Width: res.Width, Height: res.Height, DepthOrArrayLayers: 1},
		)
		return nil
	})
}

func (cl *CommandList) CopyTextureToBuffer(src gapi.Texture, dst gapi.Buffer, dstOffset gapi.MemorySize) {
	cl.add(func(s *replayState) error {
		s.closeComputePass()
		s.closeRenderPass()
		wsrc, err := textureOf(src)
		if err != nil {
			return err
		}
		wdst, err := bufferOf(dst)
		if err != nil {
			return err
		}
		res := wsrc.Resolution()
		s.encoder.CopyTextureToBuffer(
			wsrc.tex.AsImageCopy(),
			&wgpu.ImageCopyBuffer{
				Layout: wgpu.TextureDataLayout{Offset: dstOffset, BytesPerRow: res.Width * wgpuBytesPerPixel(wsrc.format), RowsPerImage: res.Height},
				Buffer: wdst.buf,
			},
			&wgpu.Extent3D{Width: res.Width, Height: res.Height, DepthOrArrayLayers: 1},
		)
		return nil
	})
}

// FillBuffer writes host-provided bytes directly via the queue rather than
// recording an encoder command: wgpu's ClearBuffer only zeroes a range, it
// cannot write arbitrary bytes, and every FillBuffer caller in the core
// (resetting indirect-draw count buffers between frames) wants exact byte
// content. The write still lands before this submission's queue.Submit
// call returns, satisfying callers that expect it ordered with the rest of
// this command list.
func (cl *CommandList) FillBuffer(dst gapi.Buffer, offset gapi.MemorySize, data []byte) {
	cl.add(func(s *replayState) error {
		wdst, err := bufferOf(dst)
		if err != nil {
			return err
		}
		s.device.queue.WriteBuffer(wdst.buf, offset, data)
		return nil
	})
}

// TextureBarrier, BufferBarrier, and ExecutionBarrier are no-ops on this
// backend: wgpu tracks resource usage per-submission internally and
// inserts whatever synchronization a pass transition needs automatically,
// unlike the explicit pipeline barriers a Vulkan backend would need to
// issue here. The render-graph core still computes and records them so
// a Vulkan-style backend has the information it needs; this backend just
// has nothing to do with it.
func (cl *CommandList) TextureBarrier(srcStage, dstStage gapi.PipelineStage, info gapi.TextureBarrierInfo) {
}

func (cl *CommandList) BufferBarrier(srcStage, dstStage gapi.PipelineStage, info gapi.BufferBarrierInfo) {
}

func (cl *CommandList) ExecutionBarrier(srcStage, dstStage gapi.PipelineStage) {}

func (cl *CommandList) BeginQuery(pool gapi.QueryPool, index uint32) {
	cl.WriteTimestamp(pool, index)
}

func (cl *CommandList) EndQuery(pool gapi.QueryPool, index uint32) {
	cl.WriteTimestamp(pool, index)
}

func (cl *CommandList) WriteTimestamp(pool gapi.QueryPool, index uint32) {
	cl.add(func(s *replayState) error {
		wp, err := queryPoolOf(pool)
		if err != nil {
			return err
		}
		s.encoder.WriteTimestamp(wp.set, index)
		return nil
	})
}

// ResetTimestampArray is a no-op: wgpu query sets don't need an explicit
// reset between uses the way a Vulkan query pool does.
func (cl *CommandList) ResetTimestampArray(pool gapi.QueryPool) {}

// BuildAccelerationStructures never actually records anything in
// practice: Device.CreateAccelerationStructure always fails on this
// backend (see accelstructure.go), so no caller ever has an
// AccelerationStructure to build.
func (cl *CommandList) BuildAccelerationStructures(builds []gapi.AccelerationStructureBuild) {}

func (cl *CommandList) Finish() error {
	cl.finished = true
	return nil
}

func (d *Device) SubmitCommandList(cmdList gapi.CommandList, waitSemaphores, signalSemaphores []gapi.Semaphore, fence gapi.Fence, workType gapi.WorkType) error {
	cl, ok := cmdList.(*CommandList)
	if !ok {
		return fmt.Errorf("webgpubackend: SubmitCommandList called with foreign CommandList %T", cmdList)
	}

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("webgpubackend: CreateCommandEncoder: %w", err)
	}

	state := &replayState{device: d, encoder: encoder}
	for _, entry := range cl.trace {
		if err := entry(state); err != nil {
			return fmt.Errorf("webgpubackend: replaying command list: %w", err)
		}
	}
	state.closeRenderPass()
	state.closeComputePass()

	cmdBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("webgpubackend: CommandEncoder.Finish: %w", err)
	}
	d.queue.Submit(cmdBuffer)

	// wgpu-native serializes everything submitted to a single queue, so
	// wait/signal semaphores (no-ops per sync.go) need no handling here;
	// the submission order the core already computed from the job graph
	// is the only ordering guarantee wgpu gives or needs.
	if fence != nil {
		wf, ok := fence.(*Fence)
		if !ok {
			return fmt.Errorf("webgpubackend: SubmitCommandList called with foreign Fence %T", fence)
		}
		// Unsignalled until Await has polled the device for this
		// submission's completion.
		wf.signalled = false
	}
	return nil
}
