package culling

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelgfx/corerender/bindless"
	"github.com/kestrelgfx/corerender/fakegapi"
	"github.com/kestrelgfx/corerender/gapi"
	"github.com/kestrelgfx/corerender/name"
	"github.com/kestrelgfx/corerender/rendercore"
)

func TestMipCountFor(t *testing.T) {
	cases := []struct {
		w, h uint32
		want uint32
	}{
		{1, 1, 1},
		{2, 2, 2},
		{8, 4, 4},
		{1920, 1080, 11},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, mipCountFor(c.w, c.h))
	}
}

func triangle(offset float32) bindless.Mesh {
	return bindless.Mesh{
		Vertices: []bindless.Vertex{
			{Position: mgl32.Vec3{offset, 0, 0}},
			{Position: mgl32.Vec3{offset + 1, 0, 0}},
			{Position: mgl32.Vec3{offset, 1, 0}},
		},
		Indices: []uint32{0, 1, 2},
	}
}

func buildTestScene(t *testing.T, dev gapi.Device, n int) *bindless.Scene {
	t.Helper()
	scene := bindless.NewScene(dev)
	renderables := make([]bindless.Renderable, 0, n)
	for i := 0; i < n; i++ {
		renderables = append(renderables, bindless.Renderable{
			Mesh:           triangle(float32(i)),
			Material:       bindless.Material{TemplateIndex: uint32(i % bindless.MaterialTemplateCount), PropertyStride: 16, Properties: make([]byte, 16)},
			Model:          mgl32.Ident4(),
			BoundingSphere: mgl32.Vec4{float32(i), 0, 0, 1},
		})
	}
	require.NoError(t, scene.Build(renderables, nil))
	return scene
}

// TestOcclusionCulling_RecordEmitsDepthPrepassHiZAndCullPasses verifies the
// three-stage shape of Record against a fake device: one render pass (the
// depth prepass's indirect draw), one compute dispatch per Hi-Z mip
// transition, and a final cull compute dispatch, in that order.
func TestOcclusionCulling_RecordEmitsDepthPrepassHiZAndCullPasses(t *testing.T) {
	dev := fakegapi.New()
	scene := buildTestScene(t, dev, 6)

	screen := gapi.Resolution{Width: 16, Height: 16}
	culling := NewOcclusionCulling(dev, screen)
	require.NoError(t, culling.Allocate(scene.ObjectCount()))

	ctx := rendercore.NewBuildContext(dev, screen)
	shaders := ShaderSet{
		DepthPrepassVS: name.New("depth.vs"),
		DepthPrepassFS: name.New("depth.fs"),
		HiZBuildCS:     name.New("hiz.cs"),
		CullCS:         name.New("cull.cs"),
	}
	depthTarget := name.New("sceneDepth")

	require.NoError(t, culling.Record(ctx, scene, shaders, depthTarget))

	shaderMap := map[name.Name]gapi.Shader{
		shaders.DepthPrepassVS: &fakegapi.Shader{},
		shaders.DepthPrepassFS: &fakegapi.Shader{},
		shaders.HiZBuildCS:     &fakegapi.Shader{},
		shaders.CullCS:         &fakegapi.Shader{},
	}
	cache := rendercore.NewPipelineCache(dev)
	storages := []*rendercore.ResourceStorage{rendercore.NewResourceStorage()}

	_, err := ctx.BuildJob(name.New("cullJob"), cache, shaderMap, storages)
	require.NoError(t, err)
	require.Len(t, dev.CommandLists, 1)

	trace := dev.CommandLists[0].Trace

	var beginCount, endCount, dispatchCount, drawIndirectCount int
	var firstBegin, lastDispatch, firstDispatch int = -1, -1, -1
	for i, e := range trace {
		switch e.Kind {
		case "BeginRendering":
			beginCount++
			if firstBegin < 0 {
				firstBegin = i
			}
		case "EndRendering":
			endCount++
		case "Dispatch":
			dispatchCount++
			if firstDispatch < 0 {
				firstDispatch = i
			}
			lastDispatch = i
		case "DrawIndexedIndirectCount":
			drawIndirectCount++
		}
	}

	assert.Equal(t, 1, beginCount, "exactly one render pass: the depth prepass")
	assert.Equal(t, 1, endCount)
	assert.Equal(t, 1, drawIndirectCount, "the depth prepass issues one indirect-with-count draw over the whole scene")
	assert.Equal(t, int(culling.MipCount())+1, dispatchCount, "one dispatch per Hi-Z mip transition plus one cull compute dispatch")
	assert.Less(t, firstBegin, firstDispatch, "the depth prepass must record before any compute dispatch")
	assert.Greater(t, lastDispatch, firstDispatch, "multiple dispatches were recorded in sequence")
}

// TestOcclusionCulling_AllocateSizesVisibleBuffersToObjectCount checks that
// Allocate sizes each material template's visible-object buffer to hold the
// full scene (the worst case where nothing is culled).
func TestOcclusionCulling_AllocateSizesVisibleBuffersToObjectCount(t *testing.T) {
	dev := fakegapi.New()
	culling := NewOcclusionCulling(dev, gapi.Resolution{Width: 8, Height: 8})
	require.NoError(t, culling.Allocate(10))

	for i := uint32(0); i < bindless.MaterialTemplateCount; i++ {
		buf := culling.VisibleObjects(i)
		require.NotNil(t, buf)
		assert.Equal(t, gapi.MemorySize(10*96), buf.Size())
	}
	require.NotNil(t, culling.VisibleCounts())
	assert.Equal(t, gapi.MemorySize(bindless.MaterialTemplateCount*4), culling.VisibleCounts().Size())
}

// TestOcclusionCulling_EmptySceneAllocatesMinimalBuffers checks the
// zero-object edge case never creates a zero-size buffer (invalid on real
// backends).
func TestOcclusionCulling_EmptySceneAllocatesMinimalBuffers(t *testing.T) {
	dev := fakegapi.New()
	culling := NewOcclusionCulling(dev, gapi.Resolution{Width: 8, Height: 8})
	require.NoError(t, culling.Allocate(0))

	for i := uint32(0); i < bindless.MaterialTemplateCount; i++ {
		assert.Equal(t, gapi.MemorySize(96), culling.VisibleObjects(i).Size())
	}
}

func TestBuildViewUniforms_PacksColumnMajorMatrixRowMajor(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3)
	var planes [6]mgl32.Vec4
	v := BuildViewUniforms(m, planes, mgl32.Vec3{4, 5, 6}, gapi.Resolution{Width: 1920, Height: 1080})

	// Translate3D places the translation in the last column; row-major
	// flattening puts tx/ty/tz at indices 3, 7, 11.
	assert.Equal(t, float32(1), v.ViewProjection[3])
	assert.Equal(t, float32(2), v.ViewProjection[7])
	assert.Equal(t, float32(3), v.ViewProjection[11])
	assert.Equal(t, [4]float32{4, 5, 6, 1}, v.CameraPosition)
	assert.Equal(t, [2]float32{1920, 1080}, v.ScreenSize)
}
