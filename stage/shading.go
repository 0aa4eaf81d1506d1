package stage

import (
	"github.com/kestrelgfx/corerender/gapi"
	"github.com/kestrelgfx/corerender/name"
	"github.com/kestrelgfx/corerender/rendercore"
)

// ShadingShaderSet names the full-screen shading shader.
type ShadingShaderSet struct {
	VS name.Name
	FS name.Name
}

// ShadingStage is an optional full-screen pass combining the GBuffer,
// shadow cascades, and AO texture into shading.target. Per spec section
// 4.9 it may additionally sample ray-traced shadow visibility; that path is
// out of scope here — the spec's Non-goals exclude "full ray-tracing
// pipeline beyond the accelpool hooks", and accelpool is the hook this
// stage would bind an acceleration-structure descriptor through once a
// backend exposes one.
type ShadingStage struct {
	screenSize gapi.Resolution
}

// NewShadingStage creates a ShadingStage targeting a screenSize-sized frame.
func NewShadingStage(screenSize gapi.Resolution) *ShadingStage {
	return &ShadingStage{screenSize: screenSize}
}

// Record declares shading.target and draws the full-screen composite,
// sampling the GBuffer, the three shadow cascades, and the AO target. Must
// run after GBufferStage, ShadowMapStage, and AmbientOcclusionStage have
// recorded into the same BuildContext.
func (s *ShadingStage) Record(ctx *rendercore.BuildContext, shadowMap *ShadowMapStage, shaders ShadingShaderSet) {
	ctx.DeclareSizedRenderTarget(TargetShading, s.screenSize, gapi.FormatRGBA16Float)
	ctx.BeginRenderPass(name.New("shadingPass"), []name.Name{TargetShading})

	ctx.BindFragmentShader(shaders.FS)
	ctx.BindSamplableTexture(0, rendercore.LocalTexture(TargetAlbedo))
	ctx.BindSamplableTexture(1, rendercore.LocalTexture(TargetPosition))
	ctx.BindSamplableTexture(2, rendercore.LocalTexture(TargetNormal))
	ctx.BindSamplableTexture(3, rendercore.LocalTexture(TargetAmbientOcclusion))
	for i := 0; i < ShadowCascadeCount; i++ {
		ctx.BindSamplableTexture(uint32(4+i), rendercore.LocalTexture(shadowMap.CascadeTarget(i)))
	}
	ctx.DrawFullScreenTriangle(shaders.VS)

	ctx.EndRenderPass()
}
