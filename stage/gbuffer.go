package stage

import (
	"github.com/kestrelgfx/corerender/bindless"
	"github.com/kestrelgfx/corerender/culling"
	"github.com/kestrelgfx/corerender/gapi"
	"github.com/kestrelgfx/corerender/name"
	"github.com/kestrelgfx/corerender/rendercore"
)

// GBufferShaderSet names every shader GBufferStage.Record references.
// GeometryFS holds one fragment shader per material template (spec section
// 4.9: "one fragment shader per template").
type GBufferShaderSet struct {
	SkyboxVS name.Name
	SkyboxFS name.Name

	GeometryVS name.Name
	GeometryFS [bindless.MaterialTemplateCount]name.Name

	Culling culling.ShaderSet
}

// GBufferStage drives the occlusion-culling pipeline for the frame's depth
// prepass and visibility test, declares the GBuffer render targets, then in
// the GBuffer pass draws the skybox and issues one indirect-draw-with-count
// per material template against the culled result (cull -> skybox ->
// per-template draws). Grounded on spec section 4.9's GBufferStage
// description and BindlessGeometry.cpp's record_commands.
type GBufferStage struct {
	screenSize gapi.Resolution
	occlusion  *culling.OcclusionCulling
}

// NewGBufferStage creates a GBufferStage targeting a screenSize-sized
// frame. Call Allocate once the scene's object count is known.
func NewGBufferStage(device gapi.Device, screenSize gapi.Resolution) *GBufferStage {
	return &GBufferStage{
		screenSize: screenSize,
		occlusion:  culling.NewOcclusionCulling(device, screenSize),
	}
}

// Allocate (re-)sizes the occlusion-culling buffers to maxObjects. Call
// again whenever the scene is rebuilt with a different object count.
func (g *GBufferStage) Allocate(maxObjects uint32) error {
	return g.occlusion.Allocate(maxObjects)
}

// WriteViewUniforms uploads this frame's camera/frustum data, shared by the
// cull compute, the skybox pass, and the per-template geometry passes.
func (g *GBufferStage) WriteViewUniforms(v culling.ViewUniforms) {
	g.occlusion.WriteViewUniforms(v)
}

// Occlusion exposes the underlying culling pipeline, for ShadingStage or
// diagnostics that need the per-template visible-object counts directly.
func (g *GBufferStage) Occlusion() *culling.OcclusionCulling { return g.occlusion }

// Record records the occlusion-culling pipeline (depth prepass, Hi-Z, cull
// compute), declares gbuffer.{albedo,position,normal,depth}, then records
// the skybox draw and finally one indirect-draw-with-count per material
// template.
func (g *GBufferStage) Record(ctx *rendercore.BuildContext, scene *bindless.Scene, shaders GBufferShaderSet) error {
	if err := g.occlusion.Record(ctx, scene, shaders.Culling, TargetDepthPrepass); err != nil {
		return err
	}

	ctx.DeclareSizedRenderTarget(TargetAlbedo, g.screenSize, gapi.FormatRGBA8UNorm)
	ctx.DeclareSizedRenderTarget(TargetPosition, g.screenSize, gapi.FormatRGBA16Float)
	ctx.DeclareSizedRenderTarget(TargetNormal, g.screenSize, gapi.FormatRGBA16Float)
	ctx.DeclareSizedDepthTarget(TargetDepth, g.screenSize, gapi.FormatDepth32Float)

	ctx.BeginRenderPass(name.New("gbufferPass"), []name.Name{TargetAlbedo, TargetPosition, TargetNormal, TargetDepth})

	ctx.BindFragmentShader(shaders.SkyboxFS)
	ctx.BindUniformBuffer(0, rendercore.RawBuffer(g.occlusion.ViewUniformsBuffer()))
	ctx.DrawFullScreenTriangle(shaders.SkyboxVS)

	for t := uint32(0); t < bindless.MaterialTemplateCount; t++ {
		ctx.BindVertexShader(shaders.GeometryVS)
		ctx.BindFragmentShader(shaders.GeometryFS[t])
		ctx.SetVertexTopology(gapi.TopologyTriangleList)
		ctx.BindVertexLayout(bindless.VertexLayout())
		ctx.BindVertexBufferRaw(scene.CombinedVertexBuffer())
		ctx.BindIndexBufferRaw(scene.CombinedIndexBuffer())
		ctx.BindUniformBuffer(0, rendercore.RawBuffer(g.occlusion.ViewUniformsBuffer()))
		ctx.BindStorageBuffer(1, rendercore.RawBuffer(scene.SceneObjectBuffer()))
		ctx.BindStorageBuffer(2, rendercore.RawBuffer(scene.MaterialTemplateProperties(t)))
		ctx.BindSampledTextureArray(3, scene.SceneTextureViews())

		ctx.DrawIndexedIndirectCountAt(
			rendercore.RawBuffer(g.occlusion.VisibleObjects(t)), 0,
			rendercore.RawBuffer(g.occlusion.VisibleCounts()), gapi.MemorySize(t*4),
			scene.ObjectCount(), 96,
		)
	}

	ctx.EndRenderPass()
	return nil
}

// Release tears down the occlusion-culling pipeline's persistent buffers.
func (g *GBufferStage) Release() { g.occlusion.Release() }
