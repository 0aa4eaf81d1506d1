package fakegapi

import "github.com/kestrelgfx/corerender/gapi"

// TraceEntry is one recorded CommandList call, used by tests to assert the
// exact emitted command sequence (barrier inference, draw ordering) matches
// a reference trace.
type TraceEntry struct {
	Kind string
	// Only the fields relevant to Kind are populated.
	TextureBarrier TextureBarrierTrace
	BufferBarrier  BufferBarrierTrace
	DispatchX      uint32
	DispatchY      uint32
	DispatchZ      uint32
}

type TextureBarrierTrace struct {
	SrcStage gapi.PipelineStage
	DstStage gapi.PipelineStage
	Info     gapi.TextureBarrierInfo
}

type BufferBarrierTrace struct {
	SrcStage gapi.PipelineStage
	DstStage gapi.PipelineStage
	Info     gapi.BufferBarrierInfo
}

// CommandList is the fake gapi.CommandList: every call appends a TraceEntry
// instead of touching real GPU state.
type CommandList struct {
	workType gapi.WorkType
	Trace    []TraceEntry
	began    bool
	finished bool
}

func (c *CommandList) Begin(mode gapi.CommandListBeginMode) error {
	c.began = true
	c.Trace = append(c.Trace, TraceEntry{Kind: "Begin"})
	return nil
}

func (c *CommandList) BeginRendering(info gapi.RenderingInfo) {
	c.Trace = append(c.Trace, TraceEntry{Kind: "BeginRendering"})
}

func (c *CommandList) EndRendering() {
	c.Trace = append(c.Trace, TraceEntry{Kind: "EndRendering"})
}

func (c *CommandList) BindGraphicsPipeline(p gapi.Pipeline) {
	c.Trace = append(c.Trace, TraceEntry{Kind: "BindGraphicsPipeline"})
}

func (c *CommandList) BindComputePipeline(p gapi.Pipeline) {
	c.Trace = append(c.Trace, TraceEntry{Kind: "BindComputePipeline"})
}

func (c *CommandList) BindVertexBuffer(b gapi.Buffer, offset gapi.MemorySize) {
	c.Trace = append(c.Trace, TraceEntry{Kind: "BindVertexBuffer"})
}

func (c *CommandList) BindIndexBuffer(b gapi.Buffer) {
	c.Trace = append(c.Trace, TraceEntry{Kind: "BindIndexBuffer"})
}

func (c *CommandList) PushDescriptors(set uint32, writes []gapi.DescriptorWrite) {
	c.Trace = append(c.Trace, TraceEntry{Kind: "PushDescriptors"})
}

func (c *CommandList) Draw(vertexCount, firstVertex, instanceCount, firstInstance uint32) {
	c.Trace = append(c.Trace, TraceEntry{Kind: "Draw"})
}

func (c *CommandList) DrawIndexed(indexCount, firstIndex uint32, vertexOffset int32, instanceCount, firstInstance uint32) {
	c.Trace = append(c.Trace, TraceEntry{Kind: "DrawIndexed"})
}

func (c *CommandList) DrawIndexedIndirectCount(indirectBuffer gapi.Buffer, indirectOffset gapi.MemorySize, countBuffer gapi.Buffer, countOffset gapi.MemorySize, maxDraws uint32, stride uint32) {
	c.Trace = append(c.Trace, TraceEntry{Kind: "DrawIndexedIndirectCount"})
}

func (c *CommandList) Dispatch(x, y, z uint32) {
	c.Trace = append(c.Trace, TraceEntry{Kind: "Dispatch", DispatchX: x, DispatchY: y, DispatchZ: z})
}

func (c *CommandList) CopyBuffer(src, dst gapi.Buffer, srcOffset, dstOffset, size gapi.MemorySize) {
	c.Trace = append(c.Trace, TraceEntry{Kind: "CopyBuffer"})
}

func (c *CommandList) CopyBufferToTexture(src gapi.Buffer, srcOffset gapi.MemorySize, dst gapi.Texture) {
	c.Trace = append(c.Trace, TraceEntry{Kind: "CopyBufferToTexture"})
}

func (c *CommandList) CopyTextureToBuffer(src gapi.Texture, dst gapi.Buffer, dstOffset gapi.MemorySize) {
	c.Trace = append(c.Trace, TraceEntry{Kind: "CopyTextureToBuffer"})
}

func (c *CommandList) FillBuffer(dst gapi.Buffer, offset gapi.MemorySize, data []byte) {
	c.Trace = append(c.Trace, TraceEntry{Kind: "FillBuffer"})
	if b, ok := dst.(*Buffer); ok && b.data != nil {
		copy(b.data[offset:], data)
	}
}

func (c *CommandList) TextureBarrier(srcStage, dstStage gapi.PipelineStage, info gapi.TextureBarrierInfo) {
	c.Trace = append(c.Trace, TraceEntry{
		Kind:           "TextureBarrier",
		TextureBarrier: TextureBarrierTrace{SrcStage: srcStage, DstStage: dstStage, Info: info},
	})
}

func (c *CommandList) BufferBarrier(srcStage, dstStage gapi.PipelineStage, info gapi.BufferBarrierInfo) {
	c.Trace = append(c.Trace, TraceEntry{
		Kind:          "BufferBarrier",
		BufferBarrier: BufferBarrierTrace{SrcStage: srcStage, DstStage: dstStage, Info: info},
	})
}

func (c *CommandList) ExecutionBarrier(srcStage, dstStage gapi.PipelineStage) {
	c.Trace = append(c.Trace, TraceEntry{Kind: "ExecutionBarrier"})
}

func (c *CommandList) BeginQuery(pool gapi.QueryPool, index uint32) {
	c.Trace = append(c.Trace, TraceEntry{Kind: "BeginQuery"})
}

func (c *CommandList) EndQuery(pool gapi.QueryPool, index uint32) {
	c.Trace = append(c.Trace, TraceEntry{Kind: "EndQuery"})
}

func (c *CommandList) WriteTimestamp(pool gapi.QueryPool, index uint32) {
	c.Trace = append(c.Trace, TraceEntry{Kind: "WriteTimestamp"})
}

func (c *CommandList) ResetTimestampArray(pool gapi.QueryPool) {
	c.Trace = append(c.Trace, TraceEntry{Kind: "ResetTimestampArray"})
}

func (c *CommandList) BuildAccelerationStructures(builds []gapi.AccelerationStructureBuild) {
	c.Trace = append(c.Trace, TraceEntry{Kind: "BuildAccelerationStructures"})
}

func (c *CommandList) Finish() error {
	c.finished = true
	c.Trace = append(c.Trace, TraceEntry{Kind: "Finish"})
	return nil
}

// TextureBarriers filters the trace down to just the texture-barrier
// entries, in emission order — the shape BuildContext barrier-inference
// tests compare against a reference trace.
func (c *CommandList) TextureBarriers() []TextureBarrierTrace {
	var out []TextureBarrierTrace
	for _, e := range c.Trace {
		if e.Kind == "TextureBarrier" {
			out = append(out, e.TextureBarrier)
		}
	}
	return out
}

// BufferBarriers filters the trace down to just the buffer-barrier entries.
func (c *CommandList) BufferBarriers() []BufferBarrierTrace {
	var out []BufferBarrierTrace
	for _, e := range c.Trace {
		if e.Kind == "BufferBarrier" {
			out = append(out, e.BufferBarrier)
		}
	}
	return out
}
