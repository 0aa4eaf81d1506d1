// Command demo brings up one window and drives the five-stage renderer
// over a small procedural scene, the way Gekko3D-gekko's cmd entry points
// (mod_client.go's per-frame loop, app_builder.go's flag-driven bootstrap)
// wire a window, a device, and a scene together into a running host.
package main

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kestrelgfx/corerender/bindless"
	"github.com/kestrelgfx/corerender/config"
	"github.com/kestrelgfx/corerender/culling"
	"github.com/kestrelgfx/corerender/frame"
	"github.com/kestrelgfx/corerender/gapi"
	"github.com/kestrelgfx/corerender/name"
	"github.com/kestrelgfx/corerender/rendercore"
	"github.com/kestrelgfx/corerender/rlog"
	"github.com/kestrelgfx/corerender/shaders"
	"github.com/kestrelgfx/corerender/stage"
	"github.com/kestrelgfx/corerender/webgpubackend"
)

var log = rlog.Category("demo")

func main() {
	if err := run(); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		return fmt.Errorf("demo: %w", err)
	}

	window, err := webgpubackend.NewWindow(int(cfg.Width), int(cfg.Height), "corerender demo")
	if err != nil {
		return fmt.Errorf("demo: creating window: %w", err)
	}
	defer window.Release()

	device, err := webgpubackend.NewDevice(window, cfg.EnableValidation, cfg.EnableRayTracing)
	if err != nil {
		return fmt.Errorf("demo: creating device: %w", err)
	}
	defer device.Release()

	shaderSets, err := compileShaderSets(device)
	if err != nil {
		return fmt.Errorf("demo: compiling shaders: %w", err)
	}

	scene := bindless.NewScene(device)
	defer scene.Release()
	if err := scene.Build(demoRenderables(), nil); err != nil {
		return fmt.Errorf("demo: building scene: %w", err)
	}
	if err := scene.WriteObjectsToBuffer(); err != nil {
		return fmt.Errorf("demo: uploading scene objects: %w", err)
	}

	resolution := gapi.Resolution{Width: cfg.Width, Height: cfg.Height}
	surface, err := frame.NewRenderSurface(device, resolution, gapi.FormatBGRA8UNormSRGB, cfg.PresentMode)
	if err != nil {
		return fmt.Errorf("demo: creating render surface: %w", err)
	}
	defer surface.Release()

	cache := rendercore.NewPipelineCache(device)
	cascadeSize := gapi.Resolution{Width: 2048, Height: 2048}

	renderer, err := frame.NewRenderer(device, cache, scene, surface, cascadeSize, shaderSets)
	if err != nil {
		return fmt.Errorf("demo: creating renderer: %w", err)
	}
	defer renderer.Release()

	return mainLoop(window, device, renderer, resolution)
}

func mainLoop(window *webgpubackend.Window, device *webgpubackend.Device, renderer *frame.Renderer, resolution gapi.Resolution) error {
	view := frame.BuildViewParams(
		mgl32.Perspective(mgl32.DegToRad(60), float32(resolution.Width)/float32(resolution.Height), 0.1, 1000).
			Mul4(mgl32.LookAtV(mgl32.Vec3{0, 2, 6}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})),
		demoFrustumPlanes(),
		mgl32.Vec3{0, 2, 6},
	)
	var lights frame.LightParams
	for i := range lights.CascadeViewProjections {
		lights.CascadeViewProjections[i] = mgl32.Ortho(-10, 10, -10, 10, 0.1, 200).
			Mul4(mgl32.LookAtV(mgl32.Vec3{-5, 10, -5}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}))
	}

	lastWidth, lastHeight := window.FramebufferSize()
	for !window.ShouldClose() {
		window.PollEvents()

		w, h := window.FramebufferSize()
		if w != lastWidth || h != lastHeight {
			lastWidth, lastHeight = w, h
			renderer.Resize(gapi.Resolution{Width: uint32(w), Height: uint32(h)})
		}

		if err := renderer.RenderFrame(view, lights); err != nil {
			return fmt.Errorf("demo: rendering frame: %w", err)
		}
	}

	return device.WaitIdle()
}

// demoRenderables assembles a tiny procedural scene: one triangle per
// material template so every GBuffer indirect-draw slot has at least one
// object, since sceneio's OBJ/KTX2 loaders need asset files this command
// does not ship.
func demoRenderables() []bindless.Renderable {
	renderables := make([]bindless.Renderable, 0, bindless.MaterialTemplateCount)
	for t := uint32(0); t < bindless.MaterialTemplateCount; t++ {
		offset := float32(t) * 2.5
		mesh := bindless.Mesh{
			Vertices: []bindless.Vertex{
				{Position: mgl32.Vec3{offset - 1, 0, 0}, Normal: mgl32.Vec3{0, 0, 1}, UV: mgl32.Vec2{0, 0}},
				{Position: mgl32.Vec3{offset + 1, 0, 0}, Normal: mgl32.Vec3{0, 0, 1}, UV: mgl32.Vec2{1, 0}},
				{Position: mgl32.Vec3{offset, 2, 0}, Normal: mgl32.Vec3{0, 0, 1}, UV: mgl32.Vec2{0.5, 1}},
			},
			Indices: []uint32{0, 1, 2},
		}
		renderables = append(renderables, bindless.Renderable{
			Mesh:           mesh,
			Material:       bindless.Material{TemplateIndex: t, PropertyStride: 16, Properties: make([]byte, 16)},
			Model:          mgl32.Ident4(),
			BoundingSphere: mgl32.Vec4{offset, 1, 0, 2},
		})
	}
	return renderables
}

func demoFrustumPlanes() [6]mgl32.Vec4 {
	var planes [6]mgl32.Vec4
	for i := range planes {
		planes[i] = mgl32.Vec4{0, 0, 0, 1000}
	}
	return planes
}

// compileShaderSets compiles every WGSL entry point the stage.*ShaderSet
// fields name and assembles the frame.ShaderSets bundle Renderer expects,
// keyed by the same name.Name values used at record time.
func compileShaderSets(device gapi.Device) (frame.ShaderSets, error) {
	c := &shaderCompiler{device: device, compiled: make(map[name.Name]gapi.Shader)}

	gbuffer := stage.GBufferShaderSet{
		SkyboxVS:   c.vertex("skybox.vs", shaders.Fullscreen, "vs_main"),
		SkyboxFS:   c.fragment("skybox.fs", shaders.Skybox, "fs_main"),
		GeometryVS: c.vertex("geometry.vs", shaders.Geometry, "vs_main"),
		Culling: culling.ShaderSet{
			DepthPrepassVS: c.vertex("depthprepass.vs", shaders.DepthPrepass, "vs_main"),
			DepthPrepassFS: c.fragment("depthprepass.fs", shaders.DepthPrepass, "fs_main"),
			HiZBuildCS:     c.compute("hiz.cs", shaders.HiZ, "cs_main"),
			CullCS:         c.compute("cull.cs", shaders.Cull, "cs_main"),
		},
	}
	for t := 0; t < bindless.MaterialTemplateCount; t++ {
		gbuffer.GeometryFS[t] = c.fragment(fmt.Sprintf("geometry.fs.template%d", t), shaders.Geometry, fmt.Sprintf("fs_template%d", t))
	}

	shadowMap := stage.ShadowMapShaderSet{
		DepthVS: c.vertex("shadowdepth.vs", shaders.ShadowDepth, "vs_main"),
		DepthFS: c.fragment("shadowdepth.fs", shaders.ShadowDepth, "fs_main"),
	}
	ao := stage.AmbientOcclusionShaderSet{
		VS: c.vertex("ao.vs", shaders.Fullscreen, "vs_main"),
		FS: c.fragment("ao.fs", shaders.AmbientOcclusion, "fs_main"),
	}
	shading := stage.ShadingShaderSet{
		VS: c.vertex("shading.vs", shaders.Fullscreen, "vs_main"),
		FS: c.fragment("shading.fs", shaders.Shading, "fs_main"),
	}
	postProcess := stage.PostProcessShaderSet{
		VS:          c.vertex("postprocess.vs", shaders.Fullscreen, "vs_main"),
		CompositeFS: c.fragment("postprocess.composite.fs", shaders.PostProcess, "fs_composite"),
		UIFS:        c.fragment("postprocess.ui.fs", shaders.PostProcess, "fs_ui"),
	}

	if c.err != nil {
		return frame.ShaderSets{}, c.err
	}

	return frame.ShaderSets{
		GBuffer:          gbuffer,
		ShadowMap:        shadowMap,
		AmbientOcclusion: ao,
		Shading:          shading,
		PostProcess:      postProcess,
		Compiled:         c.compiled,
	}, nil
}

// shaderCompiler wraps gapi.Device.CreateShader so compileShaderSets reads
// as a flat list of name/source/entrypoint triples instead of repeated
// error-checked calls; the first failure short-circuits every subsequent
// compile.
type shaderCompiler struct {
	device   gapi.Device
	compiled map[name.Name]gapi.Shader
	err      error
}

func (c *shaderCompiler) create(stage gapi.ShaderStage, key, source, entrypoint string) name.Name {
	n := name.New(key)
	if c.err != nil {
		return n
	}
	shader, err := c.device.CreateShader(stage, entrypoint, []byte(source))
	if err != nil {
		c.err = fmt.Errorf("compiling shader %q entrypoint %q: %w", key, entrypoint, err)
		return n
	}
	c.compiled[n] = shader
	return n
}

func (c *shaderCompiler) vertex(key, source, entrypoint string) name.Name {
	return c.create(gapi.ShaderStageVertex, key, source, entrypoint)
}

func (c *shaderCompiler) fragment(key, source, entrypoint string) name.Name {
	return c.create(gapi.ShaderStageFragment, key, source, entrypoint)
}

func (c *shaderCompiler) compute(key, source, entrypoint string) name.Name {
	return c.create(gapi.ShaderStageCompute, key, source, entrypoint)
}
