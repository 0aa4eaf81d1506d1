package frame

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kestrelgfx/corerender/bindless"
	"github.com/kestrelgfx/corerender/culling"
	"github.com/kestrelgfx/corerender/gapi"
	"github.com/kestrelgfx/corerender/name"
	"github.com/kestrelgfx/corerender/rendercore"
	"github.com/kestrelgfx/corerender/rlog"
	"github.com/kestrelgfx/corerender/stage"
	"github.com/kestrelgfx/corerender/statistics"
)

// statRegions names the GPU timing regions StatisticManager brackets
// around each stage's recorded commands, in recording order.
var statRegions = []string{"gbuffer", "shadowmap", "ao", "shading", "postprocess"}

var renderLog = rlog.Category("frame.renderer")

// renderingJobName is the single Job every frame's five stages record
// into — spec section 2's "RenderingJob" that "composes GBuffer, ShadowMap,
// AO, Shading, PostProcess stages into one coherent frame".
var renderingJobName = name.New("renderingJob")

// ShaderSets bundles every stage's compiled-shader name set, plus the
// compiled gapi.Shader objects themselves keyed by name, so Renderer can
// hand both to rendercore.JobGraph in one place.
type ShaderSets struct {
	GBuffer          stage.GBufferShaderSet
	ShadowMap        stage.ShadowMapShaderSet
	AmbientOcclusion stage.AmbientOcclusionShaderSet
	Shading          stage.ShadingShaderSet
	PostProcess      stage.PostProcessShaderSet
	Compiled         map[name.Name]gapi.Shader
}

// ViewParams is the per-frame camera state RenderFrame uploads into the
// culling view-uniform buffer before recording — see BuildViewParams for how it
// is derived from a view and projection matrix.
type ViewParams struct {
	ViewProjection mgl32.Mat4
	FrustumPlanes  [6]mgl32.Vec4
	CameraPosition mgl32.Vec3
}

// LightParams is the per-cascade light view-projection set ShadowMapStage
// draws each cascade with.
type LightParams struct {
	CascadeViewProjections [stage.ShadowCascadeCount]mgl32.Mat4
}

// Renderer owns one RenderingJob's worth of per-frame state: the JobGraph
// wrapping the combined five-stage Job, the swapchain (RenderSurface), and
// the per-frame-slot fences/semaphores bracketing each Execute per spec
// section 5's concurrency model — the host thread blocks only at
// frameFence.Await() at the top of each frame.
//
// UpdateViewParams and UpdateUserInterface, named as separate jobs in spec
// section 2's data flow, collapse here into direct host-side buffer writes
// (GBufferStage.WriteViewUniforms, ShadowMapStage.WriteCascadeViewProjection)
// performed before Execute rather than recorded GPU commands — matching
// rendercore.Job's documented "live resource data changes through buffer
// writes, not re-recording" design. Likewise spec's "CopyPresentImage" step
// is realized as PostProcessStage's own final pass writing directly into
// the swapchain's acquired image (declared via
// rendercore.BuildContext.DeclareExternalRenderTarget) rather than a
// separate blit job, since gapi.CommandList has no texture-to-texture copy
// command to implement a literal copy with.
type Renderer struct {
	device gapi.Device
	cache  *rendercore.PipelineCache
	shaders map[name.Name]gapi.Shader

	scene  *bindless.Scene
	shaderSets ShaderSets

	gbuffer     *stage.GBufferStage
	shadowMap   *stage.ShadowMapStage
	ao          *stage.AmbientOcclusionStage
	shading     *stage.ShadingStage
	postProcess *stage.PostProcessStage

	surface *RenderSurface
	graph   *rendercore.JobGraph

	screenSize     gapi.Resolution
	cascadeSize    gapi.Resolution
	framesInFlight uint32

	frameFences       []gapi.Fence
	acquireSemaphores []gapi.Semaphore
	presentSemaphores []gapi.Semaphore

	frameIndex uint32

	stats *statistics.StatisticManager
	clock *statistics.FrameClock
}

// NewRenderer builds every stage, the JobGraph wrapping their combined
// Job, and wires the swapchain's images into the external color_out
// render target for every frame slot. surface's image count becomes
// framesInFlight — see DESIGN.md's DeclareExternalRenderTarget entry for
// why the two must match.
func NewRenderer(device gapi.Device, cache *rendercore.PipelineCache, scene *bindless.Scene, surface *RenderSurface, cascadeSize gapi.Resolution, shaderSets ShaderSets) (*Renderer, error) {
	framesInFlight := surface.ImageCount()
	screenSize := surface.Resolution()

	r := &Renderer{
		device:         device,
		cache:          cache,
		shaders:        shaderSets.Compiled,
		scene:          scene,
		shaderSets:     shaderSets,
		gbuffer:        stage.NewGBufferStage(device, screenSize),
		shadowMap:      stage.NewShadowMapStage(device, cascadeSize),
		ao:             stage.NewAmbientOcclusionStage(device, screenSize),
		shading:        stage.NewShadingStage(screenSize),
		postProcess:    stage.NewPostProcessStage(screenSize),
		surface:        surface,
		screenSize:     screenSize,
		cascadeSize:    cascadeSize,
		framesInFlight: framesInFlight,
	}

	stats, err := statistics.NewStatisticManager(device, statRegions)
	if err != nil {
		return nil, fmt.Errorf("frame: creating statistic manager: %w", err)
	}
	r.stats = stats
	r.clock = statistics.NewFrameClock()

	if err := r.allocateStages(); err != nil {
		return nil, err
	}
	if err := r.buildGraph(); err != nil {
		return nil, err
	}
	if err := r.createSyncObjects(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Renderer) allocateStages() error {
	if err := r.gbuffer.Allocate(r.scene.ObjectCount()); err != nil {
		return fmt.Errorf("frame: allocating gbuffer stage: %w", err)
	}
	if err := r.shadowMap.Allocate(); err != nil {
		return fmt.Errorf("frame: allocating shadow map stage: %w", err)
	}
	if err := r.ao.Allocate(r.cache); err != nil {
		return fmt.Errorf("frame: allocating ambient occlusion stage: %w", err)
	}
	return nil
}

func (r *Renderer) recordStages(ctx *rendercore.BuildContext) error {
	r.stats.Begin(ctx, "gbuffer")
	if err := r.gbuffer.Record(ctx, r.scene, r.shaderSets.GBuffer); err != nil {
		return fmt.Errorf("frame: recording gbuffer stage: %w", err)
	}
	r.stats.End(ctx, "gbuffer")

	r.stats.Begin(ctx, "shadowmap")
	if err := r.shadowMap.Record(ctx, r.scene, r.shaderSets.ShadowMap); err != nil {
		return fmt.Errorf("frame: recording shadow map stage: %w", err)
	}
	r.stats.End(ctx, "shadowmap")

	r.stats.Begin(ctx, "ao")
	r.ao.Record(ctx, r.shaderSets.AmbientOcclusion)
	r.stats.End(ctx, "ao")

	r.stats.Begin(ctx, "shading")
	r.shading.Record(ctx, r.shadowMap, r.shaderSets.Shading)
	r.stats.End(ctx, "shading")

	r.stats.Begin(ctx, "postprocess")
	r.postProcess.Record(ctx, r.shaderSets.PostProcess)
	r.stats.End(ctx, "postprocess")
	return nil
}

func (r *Renderer) buildGraph() error {
	graph := rendercore.NewJobGraph(r.device, r.cache, r.shaders, r.framesInFlight, r.screenSize)

	ctx := graph.AddJob(renderingJobName)
	if err := r.recordStages(ctx); err != nil {
		return err
	}

	for i := uint32(0); i < r.framesInFlight; i++ {
		graph.SetExternalTexture(renderingJobName, stage.TargetColorOut, i, r.surface.Texture(i))
	}

	if err := graph.BuildJobs(renderingJobName); err != nil {
		return fmt.Errorf("frame: building rendering job: %w", err)
	}
	r.graph = graph
	return nil
}

func (r *Renderer) createSyncObjects() error {
	r.frameFences = make([]gapi.Fence, r.framesInFlight)
	r.acquireSemaphores = make([]gapi.Semaphore, r.framesInFlight)
	r.presentSemaphores = make([]gapi.Semaphore, r.framesInFlight)

	for i := uint32(0); i < r.framesInFlight; i++ {
		fence, err := r.device.CreateFence()
		if err != nil {
			return fmt.Errorf("frame: creating frame fence %d: %w", i, err)
		}
		r.frameFences[i] = fence

		acquireSem, err := r.device.CreateSemaphore()
		if err != nil {
			return fmt.Errorf("frame: creating acquire semaphore %d: %w", i, err)
		}
		r.acquireSemaphores[i] = acquireSem
		r.graph.SetExternalWait(renderingJobName, i, acquireSem)

		presentSem, err := r.device.CreateSemaphore()
		if err != nil {
			return fmt.Errorf("frame: creating present semaphore %d: %w", i, err)
		}
		r.presentSemaphores[i] = presentSem
		r.graph.SetExternalSignal(renderingJobName, i, presentSem)
	}
	return nil
}

// BuildViewParams is a small convenience wrapper around
// culling.BuildViewUniforms for callers that already have a view/
// projection matrix and frustum planes.
func BuildViewParams(viewProj mgl32.Mat4, planes [6]mgl32.Vec4, camPos mgl32.Vec3) ViewParams {
	return ViewParams{ViewProjection: viewProj, FrustumPlanes: planes, CameraPosition: camPos}
}

// RenderFrame runs one full frame: recreates the swapchain first if a
// prior Acquire/Present/Resize left it pending, waits for this frame
// slot's fence, uploads view/light parameters, acquires the next
// swapchain image, executes the combined rendering Job, and presents.
//
// A recoverable OutOfDateSwapchain returned from Acquire simply skips this
// frame (the caller should try again next tick); Present surfaces the same
// condition for the frame after that, per the error handling design.
func (r *Renderer) RenderFrame(view ViewParams, lights LightParams) error {
	r.clock.Tick()

	if r.surface.NeedsRecreate() {
		if err := r.handleSurfaceRecreate(); err != nil {
			return err
		}
	}

	i := r.frameIndex
	r.frameFences[i].Await()
	r.frameFences[i].Reset()

	uniforms := culling.BuildViewUniforms(view.ViewProjection, view.FrustumPlanes, view.CameraPosition, r.screenSize)
	r.gbuffer.WriteViewUniforms(uniforms)
	for c := 0; c < stage.ShadowCascadeCount; c++ {
		if err := r.shadowMap.WriteCascadeViewProjection(c, lights.CascadeViewProjections[c]); err != nil {
			return fmt.Errorf("frame: writing shadow cascade %d view projection: %w", c, err)
		}
	}

	imageIndex, err := r.surface.Acquire(r.acquireSemaphores[i])
	if err != nil {
		if gapi.IsOutOfDateSwapchain(err) {
			renderLog.Warnf("swapchain out of date on acquire, skipping frame %d", i)
			return nil
		}
		return fmt.Errorf("frame: acquiring swapchain image: %w", err)
	}
	if imageIndex != i {
		renderLog.Warnf("acquired swapchain image %d does not match frame slot %d; color_out was pre-bound assuming they match", imageIndex, i)
	}

	if err := r.graph.Execute(renderingJobName, i, r.frameFences[i]); err != nil {
		return fmt.Errorf("frame: executing rendering job: %w", err)
	}

	if err := r.surface.Present([]gapi.Semaphore{r.presentSemaphores[i]}, imageIndex); err != nil {
		if gapi.IsOutOfDateSwapchain(err) {
			renderLog.Warnf("swapchain out of date on present, will recreate next frame")
		} else {
			return fmt.Errorf("frame: presenting swapchain image: %w", err)
		}
	}

	r.frameIndex = (i + 1) % r.framesInFlight
	return nil
}

// FramesPerSecond reports the most recently completed one-second
// window's average frame rate, per spec section 8's startup scenario
// assertion that it becomes positive once frames have been rendering for
// a second.
func (r *Renderer) FramesPerSecond() float64 { return r.clock.FramesPerSecond() }

// StageTimings reads back the prior frame's per-stage GPU timing. See
// StatisticManager's doc comment for why this is a single shared query
// pool rather than one per frame slot.
func (r *Renderer) StageTimings() (map[string]time.Duration, error) {
	return r.stats.Resolve()
}

// Resize records a pending surface resize, applied at the top of the next
// RenderFrame call. Repeated calls between frames (a resize storm) simply
// overwrite the pending extent.
func (r *Renderer) Resize(resolution gapi.Resolution) {
	r.surface.Resize(resolution)
}

// SetPresentMode records a pending present-mode switch, applied at the top
// of the next RenderFrame call.
func (r *Renderer) SetPresentMode(mode gapi.PresentMode) {
	r.surface.SetPresentMode(mode)
}

// handleSurfaceRecreate recreates the swapchain and rebuilds the
// rendering Job against the new extent and image set — per the error
// handling design's "awaits device idle, recreates swapchain at current
// surface extent, rebuilds present jobs, continues" policy.
func (r *Renderer) handleSurfaceRecreate() error {
	if err := r.surface.Recreate(); err != nil {
		return fmt.Errorf("frame: recreating swapchain: %w", err)
	}

	r.screenSize = r.surface.Resolution()
	newFramesInFlight := r.surface.ImageCount()

	r.gbuffer = stage.NewGBufferStage(r.device, r.screenSize)
	r.ao = stage.NewAmbientOcclusionStage(r.device, r.screenSize)
	r.shading = stage.NewShadingStage(r.screenSize)
	r.postProcess = stage.NewPostProcessStage(r.screenSize)
	if err := r.allocateStages(); err != nil {
		return err
	}

	if newFramesInFlight != r.framesInFlight {
		renderLog.Warnf("swapchain image count changed %d -> %d on recreate; rebuilding frame graph and sync objects", r.framesInFlight, newFramesInFlight)
		r.graph.Release()
		r.framesInFlight = newFramesInFlight
		if err := r.buildGraph(); err != nil {
			return err
		}
		if err := r.createSyncObjects(); err != nil {
			return err
		}
		r.frameIndex = 0
		return nil
	}

	ctx := rendercore.NewBuildContext(r.device, r.screenSize)
	if err := r.recordStages(ctx); err != nil {
		return err
	}
	for i := uint32(0); i < r.framesInFlight; i++ {
		r.graph.SetExternalTexture(renderingJobName, stage.TargetColorOut, i, r.surface.Texture(i))
	}
	if err := r.graph.RebuildJob(renderingJobName, ctx); err != nil {
		return fmt.Errorf("frame: rebuilding rendering job after resize: %w", err)
	}
	return nil
}

// Release tears down the rendering job, swapchain, and per-frame sync objects.
func (r *Renderer) Release() {
	r.graph.Release()
	r.gbuffer.Release()
	r.shadowMap.Release()
	r.surface.Release()
	r.stats.Release()
	for _, fence := range r.frameFences {
		fence.Release()
	}
	for _, sem := range r.acquireSemaphores {
		sem.Release()
	}
	for _, sem := range r.presentSemaphores {
		sem.Release()
	}
}
