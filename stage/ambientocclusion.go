package stage

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/kestrelgfx/corerender/gapi"
	"github.com/kestrelgfx/corerender/name"
	"github.com/kestrelgfx/corerender/rendercore"
)

// AOKernelSize is the hemispherical sample-kernel size spec section 4.9
// specifies for AmbientOcclusionStage.
const AOKernelSize = 64

// AONoiseDim is the side length (in texels) of the screen-tiled rotation
// noise texture.
const AONoiseDim = 4

// aoKernelSeed fixes the sample kernel's randomness so repeated Allocate
// calls (and repeated frames of a deterministic test harness) produce the
// same kernel every time.
const aoKernelSeed = 0x4f43_4c55 // "OCLU"

// AmbientOcclusionShaderSet names the full-screen shader AmbientOcclusionStage draws with.
type AmbientOcclusionShaderSet struct {
	VS name.Name
	FS name.Name
}

// AmbientOcclusionStage samples gbuffer.{position,normal} through a
// hemispherical sample kernel and a screen-tiled rotation-noise texture to
// produce ambientOcclusion.target, per spec section 4.9.
type AmbientOcclusionStage struct {
	device     gapi.Device
	screenSize gapi.Resolution

	kernelBuffer gapi.Buffer
	noiseTexture gapi.Texture
}

// NewAmbientOcclusionStage creates an AmbientOcclusionStage targeting a
// screenSize-sized frame. Call Allocate before the first Record.
func NewAmbientOcclusionStage(device gapi.Device, screenSize gapi.Resolution) *AmbientOcclusionStage {
	return &AmbientOcclusionStage{device: device, screenSize: screenSize}
}

// Allocate (re-)builds the sample-kernel storage buffer and the noise
// texture. cache is used only to compile the one-shot transfer job that
// uploads the noise texture's initial contents.
func (a *AmbientOcclusionStage) Allocate(cache *rendercore.PipelineCache) error {
	if err := a.buildKernel(); err != nil {
		return err
	}
	return a.buildNoiseTexture(cache)
}

func (a *AmbientOcclusionStage) buildKernel() error {
	if a.kernelBuffer != nil {
		a.kernelBuffer.Release()
	}
	buf, err := a.device.CreateBuffer(gapi.BufferUsageHostVisible|gapi.BufferUsageStorage, AOKernelSize*16)
	if err != nil {
		return fmt.Errorf("stage: creating AO sample-kernel buffer: %w", err)
	}

	rng := rand.New(rand.NewSource(aoKernelSeed))
	b := buf.Map()
	for i := 0; i < AOKernelSize; i++ {
		// Hemispherical sample: unit vector with z >= 0, scaled so samples
		// cluster closer to the origin (accelerating-interpolation weighting),
		// the same distribution classic SSAO kernels use.
		x := rng.Float32()*2 - 1
		y := rng.Float32()*2 - 1
		z := rng.Float32()
		length := float32(math.Sqrt(float64(x*x + y*y + z*z)))
		if length < 1e-6 {
			length = 1
		}
		x, y, z = x/length, y/length, z/length

		scale := float32(i) / float32(AOKernelSize)
		scale = 0.1 + 0.9*scale*scale
		x, y, z = x*scale, y*scale, z*scale

		off := i * 16
		putFloat32(b[off:], x)
		putFloat32(b[off+4:], y)
		putFloat32(b[off+8:], z)
		putFloat32(b[off+12:], 0)
	}

	a.kernelBuffer = buf
	return nil
}

// buildNoiseTexture generates an AONoiseDim x AONoiseDim texture of random
// tangent-space rotation vectors and uploads it through a one-shot transfer
// job — the same staging-buffer + CopyBufferToTexture path a real frame
// uses, run once immediately rather than recorded into a per-frame Job.
func (a *AmbientOcclusionStage) buildNoiseTexture(cache *rendercore.PipelineCache) error {
	rng := rand.New(rand.NewSource(aoKernelSeed ^ 0x5a5a5a5a))
	texels := AONoiseDim * AONoiseDim
	data := make([]byte, texels*8) // RGBA16Float stored as 4x uint16 per texel
	for i := 0; i < texels; i++ {
		x := rng.Float32()*2 - 1
		y := rng.Float32()*2 - 1
		off := i * 8
		putHalf(data[off:], x)
		putHalf(data[off+2:], y)
		putHalf(data[off+4:], 0)
		putHalf(data[off+6:], 0)
	}

	stagingName := name.New("aoNoiseStaging")
	texName := name.New("aoNoiseTexture")
	dims := gapi.Resolution{Width: AONoiseDim, Height: AONoiseDim}

	ctx := rendercore.NewBuildContext(a.device, dims)
	ctx.DeclareStagingBuffer(stagingName, gapi.MemorySize(len(data)))
	ctx.DeclareTexture(texName, dims, gapi.FormatRGBA16Float)
	ctx.CopyBufferToTexture(rendercore.LocalBuffer(stagingName), rendercore.LocalTexture(texName))

	storage := rendercore.NewResourceStorage()
	job, err := ctx.BuildJob(name.New("aoNoiseUpload"), cache, map[name.Name]gapi.Shader{}, []*rendercore.ResourceStorage{storage})
	if err != nil {
		return fmt.Errorf("stage: building AO noise upload job: %w", err)
	}

	stagingBuf := storage.Buffer(stagingName, 0)
	copy(stagingBuf.Map(), data)

	fence, err := a.device.CreateFence()
	if err != nil {
		return fmt.Errorf("stage: creating AO noise upload fence: %w", err)
	}
	defer fence.Release()

	if err := job.Execute(0, nil, nil, fence); err != nil {
		return fmt.Errorf("stage: executing AO noise upload: %w", err)
	}
	fence.Await()

	if a.noiseTexture != nil {
		a.noiseTexture.Release()
	}
	a.noiseTexture = storage.Texture(texName, 0)
	job.Release()
	return nil
}

func putHalf(b []byte, v float32) {
	h := float32ToHalf(v)
	b[0] = byte(h)
	b[1] = byte(h >> 8)
}

// float32ToHalf converts v to IEEE754 binary16 without clamping: values too
// small for a normal half flush to signed zero, values too large (and NaN)
// become signed infinity, and the mantissa is truncated rather than rounded.
func float32ToHalf(v float32) uint16 {
	bits := math.Float32bits(v)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xff) - 127 + 15
	mant := bits & 0x7fffff
	if exp <= 0 {
		return sign
	}
	if exp >= 0x1f {
		return sign | 0x7c00
	}
	return sign | uint16(exp)<<10 | uint16(mant>>13)
}

// Record declares ambientOcclusion.target and issues the full-screen
// sampling pass against the GBuffer's position/normal targets. Must be
// called after the GBuffer stage's Record in the same BuildContext.
func (a *AmbientOcclusionStage) Record(ctx *rendercore.BuildContext, shaders AmbientOcclusionShaderSet) {
	ctx.DeclareSizedRenderTarget(TargetAmbientOcclusion, a.screenSize, gapi.FormatR16Float)
	ctx.BeginRenderPass(name.New("aoPass"), []name.Name{TargetAmbientOcclusion})

	ctx.BindFragmentShader(shaders.FS)
	ctx.BindStorageBuffer(0, rendercore.RawBuffer(a.kernelBuffer))
	ctx.BindSamplableTexture(1, rendercore.RawTexture(a.noiseTexture))
	ctx.BindSamplableTexture(2, rendercore.LocalTexture(TargetPosition))
	ctx.BindSamplableTexture(3, rendercore.LocalTexture(TargetNormal))
	ctx.DrawFullScreenTriangle(shaders.VS)

	ctx.EndRenderPass()
}

// Release frees the sample-kernel buffer and the noise texture.
func (a *AmbientOcclusionStage) Release() {
	if a.kernelBuffer != nil {
		a.kernelBuffer.Release()
	}
	if a.noiseTexture != nil {
		a.noiseTexture.Release()
	}
}
