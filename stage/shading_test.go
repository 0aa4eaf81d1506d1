package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelgfx/corerender/fakegapi"
	"github.com/kestrelgfx/corerender/gapi"
	"github.com/kestrelgfx/corerender/name"
	"github.com/kestrelgfx/corerender/rendercore"
)

func TestShadingStage_RecordSamplesGBufferAOAndAllCascades(t *testing.T) {
	dev := fakegapi.New()
	screen := gapi.Resolution{Width: 16, Height: 16}

	shadowMap := NewShadowMapStage(dev, gapi.Resolution{Width: 8, Height: 8})
	require.NoError(t, shadowMap.Allocate())

	ctx := rendercore.NewBuildContext(dev, screen)
	ctx.DeclareSizedRenderTarget(TargetAlbedo, screen, gapi.FormatRGBA8UNorm)
	ctx.DeclareSizedRenderTarget(TargetPosition, screen, gapi.FormatRGBA16Float)
	ctx.DeclareSizedRenderTarget(TargetNormal, screen, gapi.FormatRGBA16Float)
	ctx.DeclareSizedRenderTarget(TargetAmbientOcclusion, screen, gapi.FormatR16Float)
	for i := 0; i < ShadowCascadeCount; i++ {
		ctx.DeclareSizedDepthTarget(shadowCascadeTarget(i), gapi.Resolution{Width: 8, Height: 8}, gapi.FormatDepth32Float)
	}

	s := NewShadingStage(screen)
	shaders := ShadingShaderSet{VS: name.New("shading.vs"), FS: name.New("shading.fs")}
	s.Record(ctx, shadowMap, shaders)

	shaderMap := map[name.Name]gapi.Shader{shaders.VS: &fakegapi.Shader{}, shaders.FS: &fakegapi.Shader{}}
	cache := rendercore.NewPipelineCache(dev)
	storages := []*rendercore.ResourceStorage{rendercore.NewResourceStorage()}

	_, err := ctx.BuildJob(name.New("shadingJob"), cache, shaderMap, storages)
	require.NoError(t, err)

	trace := dev.CommandLists[len(dev.CommandLists)-1].Trace
	var beginCount, drawCount int
	for _, e := range trace {
		switch e.Kind {
		case "BeginRendering":
			beginCount++
		case "Draw":
			drawCount++
		}
	}
	assert.Equal(t, 1, beginCount)
	assert.Equal(t, 1, drawCount)
}
