package rendercore

import (
	"testing"

	"github.com/kestrelgfx/corerender/fakegapi"
	"github.com/kestrelgfx/corerender/gapi"
	"github.com/kestrelgfx/corerender/name"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(dev gapi.Device) *BuildContext {
	return NewBuildContext(dev, gapi.Resolution{Width: 640, Height: 480})
}

// TestBuildContext_WriteThenReadEmitsExactlyOneBarrier exercises a render
// target written in one pass and sampled in a later one: the very first
// touch of a resource never emits a barrier (there is no prior state to
// transition from), so the render-target write itself is silent; the
// subsequent read is the one transition that must produce a barrier.
func TestBuildContext_WriteThenReadEmitsExactlyOneBarrier(t *testing.T) {
	dev := fakegapi.New()
	ctx := newTestContext(dev)

	albedo := name.New("albedo")
	vs := name.New("fullscreen.vs")
	fs := name.New("flat.fs")
	cs := name.New("sample.cs")

	ctx.DeclareRenderTarget(albedo, gapi.FormatRGBA8UNorm)
	ctx.BeginRenderPass(name.New("pass"), []name.Name{albedo})
	ctx.BindVertexShader(vs)
	ctx.BindFragmentShader(fs)
	ctx.SetVertexTopology(gapi.TopologyTriangleList)
	ctx.DrawPrimitives(3, 0)
	ctx.EndRenderPass()

	ctx.BindComputeShader(cs)
	ctx.BindSamplableTexture(0, LocalTexture(albedo))
	ctx.Dispatch(1, 1, 1)

	shaders := map[name.Name]gapi.Shader{vs: &fakegapi.Shader{}, fs: &fakegapi.Shader{}, cs: &fakegapi.Shader{}}
	cache := NewPipelineCache(dev)
	storages := []*ResourceStorage{NewResourceStorage()}

	job, err := ctx.BuildJob(name.New("job"), cache, shaders, storages)
	require.NoError(t, err)
	require.Len(t, dev.CommandLists, 1)

	barriers := dev.CommandLists[0].TextureBarriers()
	require.Len(t, barriers, 1)
	assert.Equal(t, gapi.TextureStateRenderTarget, barriers[0].Info.SourceState)
	assert.Equal(t, gapi.TextureStateShaderRead, barriers[0].Info.TargetState)
	assert.Equal(t, JobExecutable, job.State())
}

// TestBuildContext_CoalescesConsecutiveReads establishes a first real
// barrier, then touches the same resource from a second stage with a
// compatible (read) access: the barrier count must stay at one, with the
// dst-stage mask extended to cover both stages, instead of a second barrier
// being emitted.
func TestBuildContext_CoalescesConsecutiveReads(t *testing.T) {
	dev := fakegapi.New()
	ctx := newTestContext(dev)

	noise := name.New("noise")
	cs := name.New("ssao.cs")
	fs := name.New("flat.fs")

	ctx.DeclareTexture(noise, gapi.Resolution{Width: 4, Height: 4}, gapi.FormatRGBA8UNorm)

	// First-ever touch: no barrier, just seeds lastStages/currentState.
	ctx.BindComputeShader(cs)
	ctx.BindSamplableTexture(0, LocalTexture(noise))
	ctx.Dispatch(1, 1, 1)

	// Second touch, same state: this is the first *emitted* barrier.
	ctx.BindComputeShader(cs)
	ctx.BindSamplableTexture(0, LocalTexture(noise))
	ctx.Dispatch(1, 1, 1)

	// Third touch from a different stage, still a compatible read: must
	// extend the existing barrier's dst-stage mask rather than add a new one.
	ctx.BindFragmentShader(fs)
	ctx.BindSamplableTexture(1, LocalTexture(noise))

	shaders := map[name.Name]gapi.Shader{cs: &fakegapi.Shader{}, fs: &fakegapi.Shader{}}
	cache := NewPipelineCache(dev)
	storages := []*ResourceStorage{NewResourceStorage()}

	_, err := ctx.BuildJob(name.New("job"), cache, shaders, storages)
	require.NoError(t, err)

	barriers := dev.CommandLists[0].TextureBarriers()
	require.Len(t, barriers, 1, "a compatible read must extend the existing barrier, not add a new one")
	assert.NotZero(t, barriers[0].DstStage&gapi.PipelineStageComputeShader)
	assert.NotZero(t, barriers[0].DstStage&gapi.PipelineStageFragmentShader)
}

// TestBuildContext_WriteAfterReadEmitsNewBarrier seeds a resource with an
// initial read (silent, first touch), follows it with a second compatible
// read (which emits the first barrier), then switches to a write access: a
// write must always start a fresh
// barrier even though it is not the resource's first-ever transition.
func TestBuildContext_WriteAfterReadEmitsNewBarrier(t *testing.T) {
	dev := fakegapi.New()
	ctx := newTestContext(dev)

	tex := name.New("scratch")
	cs := name.New("cs")

	ctx.DeclareTexture(tex, gapi.Resolution{Width: 4, Height: 4}, gapi.FormatRGBA8UNorm)

	// First-ever touch: no barrier, just seeds lastStages/currentState.
	ctx.BindComputeShader(cs)
	ctx.BindSamplableTexture(0, LocalTexture(tex))
	ctx.Dispatch(1, 1, 1)

	// Second touch, same read state: this is the first *emitted* barrier.
	ctx.BindComputeShader(cs)
	ctx.BindSamplableTexture(0, LocalTexture(tex))
	ctx.Dispatch(1, 1, 1)

	// Third touch is a write: must start a fresh barrier rather than extend
	// the existing read barrier.
	ctx.BindComputeShader(cs)
	ctx.BindRWTexture(0, LocalTexture(tex))
	ctx.Dispatch(1, 1, 1)

	shaders := map[name.Name]gapi.Shader{cs: &fakegapi.Shader{}}
	cache := NewPipelineCache(dev)
	storages := []*ResourceStorage{NewResourceStorage()}

	_, err := ctx.BuildJob(name.New("job"), cache, shaders, storages)
	require.NoError(t, err)

	barriers := dev.CommandLists[0].TextureBarriers()
	require.Len(t, barriers, 2, "a write access must always start a fresh barrier")
	assert.Equal(t, gapi.TextureStateShaderRead, barriers[0].Info.TargetState)
	assert.Equal(t, gapi.TextureStateGeneral, barriers[1].Info.TargetState)
}

func TestBuildContext_BufferBarrierHoistedBeforeRenderPass(t *testing.T) {
	dev := fakegapi.New()
	ctx := newTestContext(dev)

	rt := name.New("color")
	vbuf := name.New("vbuf")
	vs := name.New("vs")
	fs := name.New("fs")

	ctx.DeclareRenderTarget(rt, gapi.FormatRGBA8UNorm)
	ctx.DeclareBuffer(vbuf, 1024)

	// Seed a prior access so the vertex-buffer bind below actually has a
	// transition to perform — a resource's very first-ever access never
	// emits a barrier, since there is no prior state to transition from.
	ctx.FillBuffer(vbuf, make([]byte, 1024))

	ctx.BeginRenderPass(name.New("pass"), []name.Name{rt})
	// Binding the vertex buffer mid-pass must still hoist its barrier
	// before BeginRenderPass in the recorded stream.
	ctx.BindVertexBuffer(vbuf)
	ctx.BindVertexShader(vs)
	ctx.BindFragmentShader(fs)
	ctx.DrawPrimitives(3, 0)
	ctx.EndRenderPass()

	shaders := map[name.Name]gapi.Shader{vs: &fakegapi.Shader{}, fs: &fakegapi.Shader{}}
	cache := NewPipelineCache(dev)
	storages := []*ResourceStorage{NewResourceStorage()}

	_, err := ctx.BuildJob(name.New("job"), cache, shaders, storages)
	require.NoError(t, err)

	trace := dev.CommandLists[0].Trace
	var bufferBarrierIdx, beginRenderingIdx, bindVertexBufIdx int = -1, -1, -1
	for i, e := range trace {
		switch e.Kind {
		case "BufferBarrier":
			if bufferBarrierIdx < 0 {
				bufferBarrierIdx = i
			}
		case "BeginRendering":
			beginRenderingIdx = i
		case "BindVertexBuffer":
			bindVertexBufIdx = i
		}
	}
	require.GreaterOrEqual(t, bufferBarrierIdx, 0)
	require.GreaterOrEqual(t, beginRenderingIdx, 0)
	require.GreaterOrEqual(t, bindVertexBufIdx, 0)
	assert.Less(t, bufferBarrierIdx, beginRenderingIdx, "buffer barrier must be hoisted before the render pass begins")
	assert.Less(t, beginRenderingIdx, bindVertexBufIdx, "bind-vertex-buffer itself stays inside the pass")
}
