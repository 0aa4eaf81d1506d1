// Package culling implements OcclusionCulling: the two-pass GPU-driven
// visibility step that turns a bindless.Scene's full object set into, per
// frame, a per-material-template subset of indirect draw commands that
// actually need rasterizing.
//
// The pipeline, grounded on BindlessGeometry.{hpp,cpp}'s record_commands and
// Gekko3D-gekko/voxelrt/rt/gpu/manager_hiz.go's mip-chain construction:
//
//  1. Depth prepass: every scene object is indirect-drawn against a
//     depth-only render target, establishing the frame's true occluders.
//  2. Hi-Z construction: the depth buffer is reduced into a mip pyramid by
//     one compute dispatch per mip transition, each output texel taking the
//     max of the four texels below it, with an automatic barrier between
//     every mip (via rendercore.BuildContext's resource tracking).
//  3. Cull compute: one thread per scene object tests a view-frustum
//     rejection and a conservative Hi-Z depth comparison, appending
//     survivors into the appropriate material template's visible-object
//     buffer via an atomic counter.
//  4. The per-template visible-object buffers and their counts are handed
//     back for a geometry pass to indirect-draw-with-count, once per
//     template (the stage package's GBufferStage does this).
package culling

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kestrelgfx/corerender/bindless"
	"github.com/kestrelgfx/corerender/gapi"
	"github.com/kestrelgfx/corerender/name"
	"github.com/kestrelgfx/corerender/rendercore"
)

// ViewUniforms is the per-frame camera/frustum data the depth prepass, the
// Hi-Z build, and the cull compute all read from the same uniform buffer,
// grounded on BindlessGeometry.cpp's "view properties" uniform binding.
type ViewUniforms struct {
	ViewProjection [16]float32
	FrustumPlanes  [6][4]float32 // left,right,bottom,top,near,far; xyz=normal, w=distance
	CameraPosition [4]float32    // xyz + pad
	ScreenSize     [2]float32
	_pad           [2]float32
}

const viewUniformsSize = 192 // 16 + 6*4 + 4 + 2 + 2 float32s

// ShaderSet names the compiled shaders OcclusionCulling's record needs.
// Supplying the same names for every frame lets the caller's PipelineCache
// memoize pipeline compilation across frames.
type ShaderSet struct {
	DepthPrepassVS name.Name
	DepthPrepassFS name.Name
	HiZBuildCS     name.Name
	CullCS         name.Name
}

// OcclusionCulling owns the persistent (not job-local) GPU resources a
// cull pass reads and writes across frames: the Hi-Z mip chain and the
// per-material-template visible-object buffers. These outlive any single
// Job recording, unlike a BuildContext's declared resources, because the
// cull compute's output must survive into a later geometry-pass Job.
type OcclusionCulling struct {
	device     gapi.Device
	screenSize gapi.Resolution

	mipCount  uint32
	mipNames  []name.Name
	mipSizes  []gapi.Resolution

	viewUniforms gapi.Buffer

	visibleObjects [bindless.MaterialTemplateCount]gapi.Buffer
	visibleCounts  gapi.Buffer
}

// NewOcclusionCulling creates the persistent culling state for a
// screenSize-sized depth buffer. Call Allocate once the scene's object
// count is known, then Record once per job-graph build.
func NewOcclusionCulling(device gapi.Device, screenSize gapi.Resolution) *OcclusionCulling {
	o := &OcclusionCulling{device: device, screenSize: screenSize}
	o.mipCount = mipCountFor(screenSize.Width, screenSize.Height)
	w, h := screenSize.Width, screenSize.Height
	for i := uint32(0); i < o.mipCount; i++ {
		o.mipNames = append(o.mipNames, name.New(fmt.Sprintf("hiz_mip%d", i)))
		o.mipSizes = append(o.mipSizes, gapi.Resolution{Width: w, Height: h})
		if w > 1 {
			w /= 2
		}
		if h > 1 {
			h /= 2
		}
	}
	return o
}

// mipCountFor returns the number of mip levels a full Hi-Z pyramid needs
// to reduce down to a 1x1 texel, matching manager_hiz.go's SetupHiZ count.
func mipCountFor(width, height uint32) uint32 {
	dim := width
	if height > dim {
		dim = height
	}
	mips := uint32(0)
	for dim > 0 {
		mips++
		dim >>= 1
	}
	if mips == 0 {
		mips = 1
	}
	return mips
}

// MipCount reports the Hi-Z pyramid's depth.
func (o *OcclusionCulling) MipCount() uint32 { return o.mipCount }

// Allocate (re-)creates the view-uniforms buffer and the per-template
// visible-object/count buffers sized to maxObjects, the scene's current
// object count. Call again whenever the scene is rebuilt with a different
// object count.
func (o *OcclusionCulling) Allocate(maxObjects uint32) error {
	if o.viewUniforms != nil {
		o.viewUniforms.Release()
	}
	viewBuf, err := o.device.CreateBuffer(gapi.BufferUsageHostVisible|gapi.BufferUsageUniform, viewUniformsSize)
	if err != nil {
		return fmt.Errorf("culling: creating view uniforms buffer: %w", err)
	}
	o.viewUniforms = viewBuf

	size := uint64(maxObjects) * 96 // bindless.SceneObject's GPU size
	if size == 0 {
		size = 96
	}
	for t := 0; t < bindless.MaterialTemplateCount; t++ {
		if o.visibleObjects[t] != nil {
			o.visibleObjects[t].Release()
		}
		buf, err := o.device.CreateBuffer(gapi.BufferUsageStorage|gapi.BufferUsageIndirect, size)
		if err != nil {
			return fmt.Errorf("culling: creating visible-object buffer for template %d: %w", t, err)
		}
		o.visibleObjects[t] = buf
	}

	if o.visibleCounts != nil {
		o.visibleCounts.Release()
	}
	countBuf, err := o.device.CreateBuffer(gapi.BufferUsageStorage|gapi.BufferUsageIndirect|gapi.BufferUsageTransferDst, bindless.MaterialTemplateCount*4)
	if err != nil {
		return fmt.Errorf("culling: creating visible-count buffer: %w", err)
	}
	o.visibleCounts = countBuf
	return nil
}

// BuildViewUniforms packs a camera's view-projection matrix, frustum
// planes, and position into a ViewUniforms record ready for
// WriteViewUniforms. viewProj is column-major per mgl32 convention; it is
// flattened row-major to match the shader's expected layout.
func BuildViewUniforms(viewProj mgl32.Mat4, planes [6]mgl32.Vec4, camPos mgl32.Vec3, screen gapi.Resolution) ViewUniforms {
	var v ViewUniforms
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			v.ViewProjection[row*4+col] = viewProj[col*4+row]
		}
	}
	for i, p := range planes {
		v.FrustumPlanes[i] = [4]float32{p[0], p[1], p[2], p[3]}
	}
	v.CameraPosition = [4]float32{camPos[0], camPos[1], camPos[2], 1}
	v.ScreenSize = [2]float32{float32(screen.Width), float32(screen.Height)}
	return v
}

// WriteViewUniforms uploads this frame's camera/frustum data.
func (o *OcclusionCulling) WriteViewUniforms(v ViewUniforms) {
	b := o.viewUniforms.Map()
	if b == nil {
		return
	}
	off := 0
	putFloats(b[off:off+64], v.ViewProjection[:])
	off += 64
	for _, plane := range v.FrustumPlanes {
		putFloats(b[off:off+16], plane[:])
		off += 16
	}
	putFloats(b[off:off+16], v.CameraPosition[:])
	off += 16
	putFloats(b[off:off+8], v.ScreenSize[:])
}

func putFloats(dst []byte, vals []float32) {
	for i, v := range vals {
		putFloat32(dst[i*4:i*4+4], v)
	}
}

func putFloat32(b []byte, v float32) {
	bits := math.Float32bits(v)
	b[0] = byte(bits)
	b[1] = byte(bits >> 8)
	b[2] = byte(bits >> 16)
	b[3] = byte(bits >> 24)
}

// Record builds the depth prepass, Hi-Z pyramid, and cull compute commands
// into ctx against scene, using the shaders named in shaders and targeting
// depthTargetName for the prepass's depth attachment. It must be called
// after Allocate(scene.ObjectCount()).
func (o *OcclusionCulling) Record(ctx *rendercore.BuildContext, scene *bindless.Scene, shaders ShaderSet, depthTargetName name.Name) error {
	if err := o.recordDepthPrepass(ctx, scene, shaders, depthTargetName); err != nil {
		return err
	}
	o.recordHiZBuild(ctx, shaders, depthTargetName)
	o.recordCullCompute(ctx, scene, shaders)
	return nil
}

func (o *OcclusionCulling) recordDepthPrepass(ctx *rendercore.BuildContext, scene *bindless.Scene, shaders ShaderSet, depthTargetName name.Name) error {
	if scene.CombinedVertexBuffer() == nil {
		return fmt.Errorf("culling: scene has no combined vertex buffer; Build it first")
	}

	ctx.DeclareSizedDepthTarget(depthTargetName, o.screenSize, gapi.FormatDepth32Float)
	ctx.BeginRenderPass(name.New("depthPrepass"), []name.Name{depthTargetName})
	ctx.BindVertexShader(shaders.DepthPrepassVS)
	ctx.BindFragmentShader(shaders.DepthPrepassFS)
	ctx.SetVertexTopology(gapi.TopologyTriangleList)
	ctx.BindVertexLayout(bindless.VertexLayout())
	ctx.BindVertexBufferRaw(scene.CombinedVertexBuffer())
	ctx.BindIndexBufferRaw(scene.CombinedIndexBuffer())
	ctx.BindUniformBuffer(0, rendercore.RawBuffer(o.viewUniforms))
	ctx.BindStorageBuffer(1, rendercore.RawBuffer(scene.SceneObjectBuffer()))
	ctx.DrawIndexedIndirectCount(
		rendercore.RawBuffer(scene.SceneObjectBuffer()), rendercore.RawBuffer(scene.TotalCountBuffer()),
		scene.ObjectCount(), 96,
	)
	ctx.EndRenderPass()
	return nil
}

// recordHiZBuild transfers the depth prepass result into mip0 of the Hi-Z
// pyramid, then reduces each subsequent mip from the one below it. Every
// transition between mips is a fresh compute dispatch; BuildContext's
// automatic barrier insertion places a barrier between each (matching
// BindlessGeometry.cpp's per-mip-transition barrier sequence).
func (o *OcclusionCulling) recordHiZBuild(ctx *rendercore.BuildContext, shaders ShaderSet, depthTargetName name.Name) {
	for i := uint32(0); i < o.mipCount; i++ {
		ctx.DeclareTexture(o.mipNames[i], o.mipSizes[i], gapi.FormatR32Float)
	}

	ctx.BindComputeShader(shaders.HiZBuildCS)
	ctx.BindSamplableTexture(0, rendercore.LocalTexture(depthTargetName))
	ctx.BindRWTexture(1, rendercore.LocalTexture(o.mipNames[0]))
	dispatchMip(ctx, o.mipSizes[0])

	for i := uint32(1); i < o.mipCount; i++ {
		ctx.BindComputeShader(shaders.HiZBuildCS)
		ctx.BindSamplableTexture(0, rendercore.LocalTexture(o.mipNames[i-1]))
		ctx.BindRWTexture(1, rendercore.LocalTexture(o.mipNames[i]))
		dispatchMip(ctx, o.mipSizes[i])
	}
}

// dispatchMip sizes a compute dispatch so every output texel of a mip-sized
// at res gets exactly one thread, with an 8x8 workgroup (the size
// manager_hiz.go's DispatchHiZ uses).
func dispatchMip(ctx *rendercore.BuildContext, res gapi.Resolution) {
	const workgroup = 8
	x := (res.Width + workgroup - 1) / workgroup
	y := (res.Height + workgroup - 1) / workgroup
	if x == 0 {
		x = 1
	}
	if y == 0 {
		y = 1
	}
	ctx.Dispatch(x, y, 1)
}

func (o *OcclusionCulling) recordCullCompute(ctx *rendercore.BuildContext, scene *bindless.Scene, shaders ShaderSet) {
	ctx.FillBufferRaw(o.visibleCounts, make([]byte, bindless.MaterialTemplateCount*4))

	ctx.BindComputeShader(shaders.CullCS)
	ctx.BindUniformBuffer(0, rendercore.RawBuffer(o.viewUniforms))
	ctx.BindStorageBuffer(1, rendercore.RawBuffer(scene.SceneObjectBuffer()))
	ctx.BindSamplableTexture(2, rendercore.LocalTexture(o.mipNames[o.mipCount-1]))
	for t := 0; t < bindless.MaterialTemplateCount; t++ {
		ctx.BindRWStorageBuffer(uint32(3+t), rendercore.RawBuffer(o.visibleObjects[t]))
	}
	ctx.BindRWStorageBuffer(3+bindless.MaterialTemplateCount, rendercore.RawBuffer(o.visibleCounts))

	const threadsPerGroup = 1024
	groups := (scene.ObjectCount() + threadsPerGroup - 1) / threadsPerGroup
	if groups == 0 {
		groups = 1
	}
	ctx.Dispatch(groups, 1, 1)
}

// VisibleObjects returns the i-th material template's culled indirect-draw
// buffer, populated by the most recent cull compute dispatch.
func (o *OcclusionCulling) VisibleObjects(template uint32) gapi.Buffer {
	if template >= bindless.MaterialTemplateCount {
		return nil
	}
	return o.visibleObjects[template]
}

// VisibleCounts returns the draw-count buffer indexed per material
// template, for drawIndexedIndirectWithCount.
func (o *OcclusionCulling) VisibleCounts() gapi.Buffer { return o.visibleCounts }

// ViewUniformsBuffer returns the camera/frustum uniform buffer written by
// WriteViewUniforms, for stages that need to share the same view (e.g. the
// GBuffer stage's skybox and geometry passes bind the same buffer the cull
// compute already consumed).
func (o *OcclusionCulling) ViewUniformsBuffer() gapi.Buffer { return o.viewUniforms }

// Release tears down every GPU object OcclusionCulling owns directly (the
// Hi-Z mip textures are job-local and released by the job's ResourceStorage
// instead).
func (o *OcclusionCulling) Release() {
	if o.viewUniforms != nil {
		o.viewUniforms.Release()
	}
	for _, buf := range o.visibleObjects {
		if buf != nil {
			buf.Release()
		}
	}
	if o.visibleCounts != nil {
		o.visibleCounts.Release()
	}
}
