// Package stage implements the closed set of per-frame stages a
// RenderingJob composes into one Job's BuildContext: GBufferStage,
// ShadowMapStage, AmbientOcclusionStage, ShadingStage, and PostProcessStage,
// grounded on spec section 4.9.
//
// Stages are plain structs with a Record method, not an interface hierarchy
// dispatched by virtual call — the same closed-enum-over-dispatch choice
// rendercore.BuildContext makes for its own command stream. RenderingJob
// (the frame package) knows the fixed stage order and calls each Record in
// turn; there is no generic Stage interface to satisfy.
package stage

import "github.com/kestrelgfx/corerender/name"

// Kind names the five stage kinds a frame composes, in recording order.
type Kind int

const (
	KindGBuffer Kind = iota
	KindShadowMap
	KindAmbientOcclusion
	KindShading
	KindPostProcess
)

func (k Kind) String() string {
	switch k {
	case KindGBuffer:
		return "GBuffer"
	case KindShadowMap:
		return "ShadowMap"
	case KindAmbientOcclusion:
		return "AmbientOcclusion"
	case KindShading:
		return "Shading"
	case KindPostProcess:
		return "PostProcess"
	default:
		return "Unknown"
	}
}

// Shared render-target names. These are declared into a single frame's
// BuildContext by the stage that produces them and read by name (via
// rendercore.LocalTexture) by every later stage in the same Job — all
// stages of a frame share one BuildContext, per spec section 4.9's "one
// coherent frame" composition.
var (
	TargetAlbedo       = name.New("gbuffer.albedo")
	TargetPosition     = name.New("gbuffer.position")
	TargetNormal       = name.New("gbuffer.normal")
	TargetDepth        = name.New("gbuffer.depth")
	TargetDepthPrepass = name.New("gbuffer.depthPrepass")

	TargetAmbientOcclusion = name.New("ambientOcclusion.target")
	TargetShading          = name.New("shading.target")
	TargetColorOut         = name.New("core.color_out")
)

// ShadowCascadeCount is the fixed number of shadow cascades spec section
// 4.9 specifies for ShadowMapStage.
const ShadowCascadeCount = 3

func shadowCascadeTarget(i int) name.Name {
	switch i {
	case 0:
		return name.New("shadow.cascade0")
	case 1:
		return name.New("shadow.cascade1")
	default:
		return name.New("shadow.cascade2")
	}
}
