// Package shaders embeds the WGSL source every stage's ShaderSet names
// reference. Grounded on voxelrt/rt/shaders/shaders.go's //go:embed
// wrapper, which exposes hand-authored WGSL as plain Go string constants
// rather than compiling to a binary shader format at build time — wgpu
// itself does that compilation, from source text, at CreateShaderModule
// time (gpu_operations.go's createRenderPipeline).
package shaders

import (
	_ "embed"
)

//go:embed fullscreen.wgsl
var Fullscreen string

//go:embed skybox.wgsl
var Skybox string

//go:embed geometry.wgsl
var Geometry string

//go:embed depthprepass.wgsl
var DepthPrepass string

//go:embed hiz.wgsl
var HiZ string

//go:embed cull.wgsl
var Cull string

//go:embed shadowdepth.wgsl
var ShadowDepth string

//go:embed ao.wgsl
var AmbientOcclusion string

//go:embed shading.wgsl
var Shading string

//go:embed postprocess.wgsl
var PostProcess string
