package frame

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelgfx/corerender/bindless"
	"github.com/kestrelgfx/corerender/culling"
	"github.com/kestrelgfx/corerender/fakegapi"
	"github.com/kestrelgfx/corerender/gapi"
	"github.com/kestrelgfx/corerender/name"
	"github.com/kestrelgfx/corerender/rendercore"
	"github.com/kestrelgfx/corerender/stage"
)

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

func testShaderSets() ShaderSets {
	sets := ShaderSets{
		GBuffer: stage.GBufferShaderSet{
			SkyboxVS:   name.New("skybox.vs"),
			SkyboxFS:   name.New("skybox.fs"),
			GeometryVS: name.New("geometry.vs"),
			Culling: culling.ShaderSet{
				DepthPrepassVS: name.New("depth.vs"),
				DepthPrepassFS: name.New("depth.fs"),
				HiZBuildCS:     name.New("hiz.cs"),
				CullCS:         name.New("cull.cs"),
			},
		},
		ShadowMap: stage.ShadowMapShaderSet{
			DepthVS: name.New("shadow.depth.vs"),
			DepthFS: name.New("shadow.depth.fs"),
		},
		AmbientOcclusion: stage.AmbientOcclusionShaderSet{
			VS: name.New("ao.vs"),
			FS: name.New("ao.fs"),
		},
		Shading: stage.ShadingShaderSet{
			VS: name.New("shading.vs"),
			FS: name.New("shading.fs"),
		},
		PostProcess: stage.PostProcessShaderSet{
			VS:          name.New("postprocess.vs"),
			CompositeFS: name.New("postprocess.composite.fs"),
			UIFS:        name.New("postprocess.ui.fs"),
		},
	}
	for i := 0; i < bindless.MaterialTemplateCount; i++ {
		sets.GBuffer.GeometryFS[i] = name.New("geometry.fs." + string(rune('0'+i)))
	}

	compiled := map[name.Name]gapi.Shader{
		sets.GBuffer.SkyboxVS:               &fakegapi.Shader{},
		sets.GBuffer.SkyboxFS:               &fakegapi.Shader{},
		sets.GBuffer.GeometryVS:             &fakegapi.Shader{},
		sets.GBuffer.Culling.DepthPrepassVS: &fakegapi.Shader{},
		sets.GBuffer.Culling.DepthPrepassFS: &fakegapi.Shader{},
		sets.GBuffer.Culling.HiZBuildCS:     &fakegapi.Shader{},
		sets.GBuffer.Culling.CullCS:         &fakegapi.Shader{},
		sets.ShadowMap.DepthVS:              &fakegapi.Shader{},
		sets.ShadowMap.DepthFS:              &fakegapi.Shader{},
		sets.AmbientOcclusion.VS:            &fakegapi.Shader{},
		sets.AmbientOcclusion.FS:            &fakegapi.Shader{},
		sets.Shading.VS:                     &fakegapi.Shader{},
		sets.Shading.FS:                     &fakegapi.Shader{},
		sets.PostProcess.VS:                 &fakegapi.Shader{},
		sets.PostProcess.CompositeFS:        &fakegapi.Shader{},
		sets.PostProcess.UIFS:               &fakegapi.Shader{},
	}
	for _, fs := range sets.GBuffer.GeometryFS {
		compiled[fs] = &fakegapi.Shader{}
	}
	sets.Compiled = compiled
	return sets
}

func newTestRenderer(t *testing.T) (*Renderer, gapi.Device) {
	t.Helper()
	dev := fakegapi.New()
	scene := buildTestScene(t, dev, 6)
	cache := rendercore.NewPipelineCache(dev)

	surface, err := NewRenderSurface(dev, gapi.Resolution{Width: 16, Height: 16}, gapi.FormatBGRA8UNormSRGB, gapi.PresentModeFifo)
	require.NoError(t, err)

	r, err := NewRenderer(dev, cache, scene, surface, gapi.Resolution{Width: 8, Height: 8}, testShaderSets())
	require.NoError(t, err)
	return r, dev
}

func TestRenderer_RenderFrameExecutesOneCombinedJobPerFrame(t *testing.T) {
	r, dev := newTestRenderer(t)
	fdev := dev.(*fakegapi.Device)

	view := BuildViewParams(mgl32.Ident4(), [6]mgl32.Vec4{}, mgl32.Vec3{0, 0, 5})
	var lights LightParams
	for i := range lights.CascadeViewProjections {
		lights.CascadeViewProjections[i] = mgl32.Ident4()
	}

	for frame := 0; frame < 5; frame++ {
		require.NoError(t, r.RenderFrame(view, lights))
	}

	assert.Len(t, fdev.Submissions, 5, "one submission per frame, since all five stages share one Job")

	timings, err := r.StageTimings()
	require.NoError(t, err)
	assert.Contains(t, timings, "gbuffer")
	assert.Contains(t, timings, "postprocess")
}

func TestRenderer_ResizeStormCoalescesToFinalExtent(t *testing.T) {
	r, _ := newTestRenderer(t)

	view := BuildViewParams(mgl32.Ident4(), [6]mgl32.Vec4{}, mgl32.Vec3{0, 0, 5})
	var lights LightParams
	for i := range lights.CascadeViewProjections {
		lights.CascadeViewProjections[i] = mgl32.Ident4()
	}

	widths := []uint32{800, 1200, 640, 1920, 960, 800, 1280, 1024, 1600, 800}
	for _, w := range widths {
		r.Resize(gapi.Resolution{Width: w, Height: 600})
	}

	require.NoError(t, r.RenderFrame(view, lights))

	assert.Equal(t, gapi.Resolution{Width: 800, Height: 600}, r.screenSize)
}

func TestRenderer_PresentModeSwitchRebuildsWithoutError(t *testing.T) {
	r, _ := newTestRenderer(t)

	view := BuildViewParams(mgl32.Ident4(), [6]mgl32.Vec4{}, mgl32.Vec3{0, 0, 5})
	var lights LightParams
	for i := range lights.CascadeViewProjections {
		lights.CascadeViewProjections[i] = mgl32.Ident4()
	}

	r.SetPresentMode(gapi.PresentModeMailbox)
	require.NoError(t, r.RenderFrame(view, lights))
}
