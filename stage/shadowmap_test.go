package stage

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelgfx/corerender/fakegapi"
	"github.com/kestrelgfx/corerender/gapi"
	"github.com/kestrelgfx/corerender/name"
	"github.com/kestrelgfx/corerender/rendercore"
)

func TestShadowMapStage_RecordEmitsThreeCascades(t *testing.T) {
	dev := fakegapi.New()
	scene := buildTestScene(t, dev, 5)

	cascadeSize := gapi.Resolution{Width: 8, Height: 8}
	s := NewShadowMapStage(dev, cascadeSize)
	require.NoError(t, s.Allocate())
	for i := 0; i < ShadowCascadeCount; i++ {
		require.NoError(t, s.WriteCascadeViewProjection(i, mgl32.Ident4()))
	}

	ctx := rendercore.NewBuildContext(dev, cascadeSize)
	shaders := ShadowMapShaderSet{DepthVS: name.New("depth.vs"), DepthFS: name.New("depth.fs")}
	require.NoError(t, s.Record(ctx, scene, shaders))

	shaderMap := map[name.Name]gapi.Shader{
		shaders.DepthVS: &fakegapi.Shader{},
		shaders.DepthFS: &fakegapi.Shader{},
	}
	cache := rendercore.NewPipelineCache(dev)
	storages := []*rendercore.ResourceStorage{rendercore.NewResourceStorage()}

	_, err := ctx.BuildJob(name.New("shadowJob"), cache, shaderMap, storages)
	require.NoError(t, err)
	require.Len(t, dev.CommandLists, 1)

	trace := dev.CommandLists[0].Trace
	var beginCount, drawIndirectCount int
	for _, e := range trace {
		switch e.Kind {
		case "BeginRendering":
			beginCount++
		case "DrawIndexedIndirectCount":
			drawIndirectCount++
		}
	}

	assert.Equal(t, ShadowCascadeCount, beginCount)
	assert.Equal(t, ShadowCascadeCount, drawIndirectCount, "each cascade draws the whole scene with no per-cascade culling")
}

func TestShadowMapStage_WriteCascadeViewProjectionRejectsOutOfRange(t *testing.T) {
	dev := fakegapi.New()
	s := NewShadowMapStage(dev, gapi.Resolution{Width: 8, Height: 8})
	require.NoError(t, s.Allocate())

	assert.Error(t, s.WriteCascadeViewProjection(-1, mgl32.Ident4()))
	assert.Error(t, s.WriteCascadeViewProjection(ShadowCascadeCount, mgl32.Ident4()))
}
