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

func TestAmbientOcclusionStage_AllocateUploadsNoiseTexture(t *testing.T) {
	dev := fakegapi.New()
	cache := rendercore.NewPipelineCache(dev)

	a := NewAmbientOcclusionStage(dev, gapi.Resolution{Width: 16, Height: 16})
	require.NoError(t, a.Allocate(cache))

	require.NotNil(t, a.kernelBuffer)
	require.NotNil(t, a.noiseTexture)

	var sawUpload bool
	for _, cl := range dev.CommandLists {
		for _, e := range cl.Trace {
			if e.Kind == "CopyBufferToTexture" {
				sawUpload = true
			}
		}
	}
	assert.True(t, sawUpload, "buildNoiseTexture must upload through the staging-buffer transfer path")
}

func TestAmbientOcclusionStage_AllocateIsDeterministic(t *testing.T) {
	dev := fakegapi.New()
	cache := rendercore.NewPipelineCache(dev)

	a1 := NewAmbientOcclusionStage(dev, gapi.Resolution{Width: 16, Height: 16})
	require.NoError(t, a1.Allocate(cache))
	k1 := append([]byte(nil), a1.kernelBuffer.Map()...)

	a2 := NewAmbientOcclusionStage(dev, gapi.Resolution{Width: 16, Height: 16})
	require.NoError(t, a2.Allocate(cache))
	k2 := append([]byte(nil), a2.kernelBuffer.Map()...)

	assert.Equal(t, k1, k2, "the fixed aoKernelSeed must produce the same kernel every time")
}

func TestAmbientOcclusionStage_RecordEmitsFullScreenPass(t *testing.T) {
	dev := fakegapi.New()
	cache := rendercore.NewPipelineCache(dev)
	screen := gapi.Resolution{Width: 16, Height: 16}

	a := NewAmbientOcclusionStage(dev, screen)
	require.NoError(t, a.Allocate(cache))

	ctx := rendercore.NewBuildContext(dev, screen)
	ctx.DeclareSizedRenderTarget(TargetPosition, screen, gapi.FormatRGBA16Float)
	ctx.DeclareSizedRenderTarget(TargetNormal, screen, gapi.FormatRGBA16Float)

	shaders := AmbientOcclusionShaderSet{VS: name.New("ao.vs"), FS: name.New("ao.fs")}
	a.Record(ctx, shaders)

	shaderMap := map[name.Name]gapi.Shader{shaders.VS: &fakegapi.Shader{}, shaders.FS: &fakegapi.Shader{}}
	storages := []*rendercore.ResourceStorage{rendercore.NewResourceStorage()}

	_, err := ctx.BuildJob(name.New("aoJob"), cache, shaderMap, storages)
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

func TestFloat32ToHalf_RoundTripsCommonValues(t *testing.T) {
	assert.Equal(t, uint16(0), float32ToHalf(0))
	assert.Equal(t, uint16(0x3c00), float32ToHalf(1))
	assert.Equal(t, uint16(0xbc00), float32ToHalf(-1))
}
