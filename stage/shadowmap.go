package stage

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kestrelgfx/corerender/bindless"
	"github.com/kestrelgfx/corerender/gapi"
	"github.com/kestrelgfx/corerender/name"
	"github.com/kestrelgfx/corerender/rendercore"
)

// ShadowMapShaderSet names the depth-only shaders every cascade draws with.
type ShadowMapShaderSet struct {
	DepthVS name.Name
	DepthFS name.Name
}

// ShadowMapStage declares ShadowCascadeCount depth cascades and, per spec
// section 4.9, reuses the scene's sceneObjectBuffer directly instead of
// running a per-cascade cull pass: every object is indirect-drawn against
// every cascade, driven only by that cascade's own view-projection buffer.
type ShadowMapStage struct {
	device      gapi.Device
	cascadeSize gapi.Resolution

	cascadeUniforms [ShadowCascadeCount]gapi.Buffer
}

// NewShadowMapStage creates a ShadowMapStage whose cascades are each
// cascadeSize texels. Call Allocate before the first Record.
func NewShadowMapStage(device gapi.Device, cascadeSize gapi.Resolution) *ShadowMapStage {
	return &ShadowMapStage{device: device, cascadeSize: cascadeSize}
}

// Allocate creates the three per-cascade view-projection uniform buffers.
func (s *ShadowMapStage) Allocate() error {
	for i := 0; i < ShadowCascadeCount; i++ {
		if s.cascadeUniforms[i] != nil {
			s.cascadeUniforms[i].Release()
		}
		buf, err := s.device.CreateBuffer(gapi.BufferUsageHostVisible|gapi.BufferUsageUniform, 64)
		if err != nil {
			return fmt.Errorf("stage: creating shadow cascade %d uniform buffer: %w", i, err)
		}
		s.cascadeUniforms[i] = buf
	}
	return nil
}

// WriteCascadeViewProjection uploads cascade i's light view-projection
// matrix, row-major flattened per culling.BuildViewUniforms' convention.
func (s *ShadowMapStage) WriteCascadeViewProjection(cascade int, viewProj mgl32.Mat4) error {
	if cascade < 0 || cascade >= ShadowCascadeCount {
		return fmt.Errorf("stage: shadow cascade index %d out of range [0,%d)", cascade, ShadowCascadeCount)
	}
	b := s.cascadeUniforms[cascade].Map()
	if b == nil {
		return fmt.Errorf("stage: shadow cascade %d uniform buffer is not host-visible", cascade)
	}
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			putFloat32(b[(row*4+col)*4:], viewProj[col*4+row])
		}
	}
	return nil
}

// CascadeTarget returns the depth target name for cascade i.
func (s *ShadowMapStage) CascadeTarget(i int) name.Name { return shadowCascadeTarget(i) }

// Record declares and draws all three shadow cascades against scene, each
// an indirect-draw-with-count over the whole scene object set (no culling).
func (s *ShadowMapStage) Record(ctx *rendercore.BuildContext, scene *bindless.Scene, shaders ShadowMapShaderSet) error {
	if scene.CombinedVertexBuffer() == nil {
		return fmt.Errorf("stage: scene has no combined vertex buffer; Build it first")
	}

	for i := 0; i < ShadowCascadeCount; i++ {
		target := shadowCascadeTarget(i)
		ctx.DeclareSizedDepthTarget(target, s.cascadeSize, gapi.FormatDepth32Float)
		ctx.BeginRenderPass(name.New(fmt.Sprintf("shadowCascade%d", i)), []name.Name{target})

		ctx.BindVertexShader(shaders.DepthVS)
		ctx.BindFragmentShader(shaders.DepthFS)
		ctx.SetVertexTopology(gapi.TopologyTriangleList)
		ctx.BindVertexLayout(bindless.VertexLayout())
		ctx.BindVertexBufferRaw(scene.CombinedVertexBuffer())
		ctx.BindIndexBufferRaw(scene.CombinedIndexBuffer())
		ctx.BindUniformBuffer(0, rendercore.RawBuffer(s.cascadeUniforms[i]))
		ctx.BindStorageBuffer(1, rendercore.RawBuffer(scene.SceneObjectBuffer()))

		ctx.DrawIndexedIndirectCount(
			rendercore.RawBuffer(scene.SceneObjectBuffer()), rendercore.RawBuffer(scene.TotalCountBuffer()),
			scene.ObjectCount(), 96,
		)
		ctx.EndRenderPass()
	}
	return nil
}

// Release frees the per-cascade uniform buffers.
func (s *ShadowMapStage) Release() {
	for _, buf := range s.cascadeUniforms {
		if buf != nil {
			buf.Release()
		}
	}
}

func putFloat32(b []byte, v float32) {
	bits := math.Float32bits(v)
	b[0] = byte(bits)
	b[1] = byte(bits >> 8)
	b[2] = byte(bits >> 16)
	b[3] = byte(bits >> 24)
}
