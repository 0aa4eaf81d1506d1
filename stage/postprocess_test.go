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

func TestPostProcessStage_RecordEmitsCompositeAndUIPasses(t *testing.T) {
	dev := fakegapi.New()
	screen := gapi.Resolution{Width: 16, Height: 16}

	ctx := rendercore.NewBuildContext(dev, screen)
	ctx.DeclareSizedRenderTarget(TargetShading, screen, gapi.FormatRGBA16Float)

	p := NewPostProcessStage(screen)
	shaders := PostProcessShaderSet{
		VS:          name.New("postprocess.vs"),
		CompositeFS: name.New("postprocess.composite.fs"),
		UIFS:        name.New("postprocess.ui.fs"),
	}
	p.Record(ctx, shaders)

	shaderMap := map[name.Name]gapi.Shader{
		shaders.VS:          &fakegapi.Shader{},
		shaders.CompositeFS: &fakegapi.Shader{},
		shaders.UIFS:        &fakegapi.Shader{},
	}
	cache := rendercore.NewPipelineCache(dev)
	storages := []*rendercore.ResourceStorage{rendercore.NewResourceStorage()}

	colorOut, err := dev.CreateTexture(gapi.FormatBGRA8UNormSRGB, screen, gapi.TextureUsageColorAttachment, gapi.TextureStateUndefined, 1, 1)
	require.NoError(t, err)
	storages[0].RegisterTexture(TargetColorOut, 0, colorOut)

	_, err = ctx.BuildJob(name.New("postProcessJob"), cache, shaderMap, storages)
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
	assert.Equal(t, 1, beginCount, "both passes draw into the same declared render target, within one render pass")
	assert.Equal(t, 2, drawCount, "the composite pass and the UI overlay pass each draw one full-screen triangle")
}
