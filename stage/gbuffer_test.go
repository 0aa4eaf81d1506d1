package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelgfx/corerender/bindless"
	"github.com/kestrelgfx/corerender/culling"
	"github.com/kestrelgfx/corerender/fakegapi"
	"github.com/kestrelgfx/corerender/gapi"
	"github.com/kestrelgfx/corerender/name"
	"github.com/kestrelgfx/corerender/rendercore"
)

func TestGBufferStage_RecordEmitsSkyboxCullingAndPerTemplateDraws(t *testing.T) {
	dev := fakegapi.New()
	scene := buildTestScene(t, dev, 8)

	screen := gapi.Resolution{Width: 16, Height: 16}
	g := NewGBufferStage(dev, screen)
	require.NoError(t, g.Allocate(scene.ObjectCount()))

	ctx := rendercore.NewBuildContext(dev, screen)
	shaders := GBufferShaderSet{
		SkyboxVS:   name.New("skybox.vs"),
		SkyboxFS:   name.New("skybox.fs"),
		GeometryVS: name.New("geometry.vs"),
		Culling: culling.ShaderSet{
			DepthPrepassVS: name.New("depth.vs"),
			DepthPrepassFS: name.New("depth.fs"),
			HiZBuildCS:     name.New("hiz.cs"),
			CullCS:         name.New("cull.cs"),
		},
	}
	for i := 0; i < bindless.MaterialTemplateCount; i++ {
		shaders.GeometryFS[i] = name.New("geometry.fs." + string(rune('0'+i)))
	}

	require.NoError(t, g.Record(ctx, scene, shaders))

	shaderMap := map[name.Name]gapi.Shader{
		shaders.SkyboxVS:               &fakegapi.Shader{},
		shaders.SkyboxFS:               &fakegapi.Shader{},
		shaders.GeometryVS:             &fakegapi.Shader{},
		shaders.Culling.DepthPrepassVS: &fakegapi.Shader{},
		shaders.Culling.DepthPrepassFS: &fakegapi.Shader{},
		shaders.Culling.HiZBuildCS:     &fakegapi.Shader{},
		shaders.Culling.CullCS:         &fakegapi.Shader{},
	}
	for i := range shaders.GeometryFS {
		shaderMap[shaders.GeometryFS[i]] = &fakegapi.Shader{}
	}

	cache := rendercore.NewPipelineCache(dev)
	storages := []*rendercore.ResourceStorage{rendercore.NewResourceStorage()}

	_, err := ctx.BuildJob(name.New("gbufferJob"), cache, shaderMap, storages)
	require.NoError(t, err)
	require.Len(t, dev.CommandLists, 1)

	trace := dev.CommandLists[0].Trace
	var beginCount, drawIndirectCount, dispatchCount, drawCount int
	for _, e := range trace {
		switch e.Kind {
		case "BeginRendering":
			beginCount++
		case "DrawIndexedIndirectCount":
			drawIndirectCount++
		case "Dispatch":
			dispatchCount++
		case "Draw":
			drawCount++
		}
	}

	assert.Equal(t, 2, beginCount, "one render pass for the depth prepass, one for the gbuffer pass")
	assert.Equal(t, 1+bindless.MaterialTemplateCount, drawIndirectCount, "the depth prepass plus one indirect-with-count draw per material template")
	assert.Equal(t, int(g.occlusion.MipCount())+1, dispatchCount)
	assert.Equal(t, 1, drawCount, "the skybox full-screen triangle")
}
