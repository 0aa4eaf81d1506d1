package stage

import (
	"github.com/kestrelgfx/corerender/gapi"
	"github.com/kestrelgfx/corerender/name"
	"github.com/kestrelgfx/corerender/rendercore"
)

// PostProcessShaderSet names the tonemap composite shader and the
// UI-overlay shader PostProcessStage draws with.
type PostProcessShaderSet struct {
	VS          name.Name
	CompositeFS name.Name
	UIFS        name.Name
}

// PostProcessStage runs a Reinhard tone map over shading.target (no FXAA
// and no bloom), then composites the UI overlay on top, writing the result
// to core.color_out — the frame package's Renderer registers each swapchain
// image under that same name, one per frame slot, when it builds the job.
type PostProcessStage struct {
	screenSize gapi.Resolution
}

// NewPostProcessStage creates a PostProcessStage targeting a
// screenSize-sized frame.
func NewPostProcessStage(screenSize gapi.Resolution) *PostProcessStage {
	return &PostProcessStage{screenSize: screenSize}
}

// Record declares core.color_out and draws the tonemap composite pass
// followed by the UI overlay pass, both full-screen.
func (p *PostProcessStage) Record(ctx *rendercore.BuildContext, shaders PostProcessShaderSet) {
	ctx.DeclareExternalRenderTarget(TargetColorOut, gapi.FormatBGRA8UNormSRGB)
	ctx.BeginRenderPass(name.New("postProcessPass"), []name.Name{TargetColorOut})

	ctx.BindFragmentShader(shaders.CompositeFS)
	ctx.BindSamplableTexture(0, rendercore.LocalTexture(TargetShading))
	ctx.DrawFullScreenTriangle(shaders.VS)

	ctx.BindFragmentShader(shaders.UIFS)
	ctx.DrawFullScreenTriangle(shaders.VS)

	ctx.EndRenderPass()
}
