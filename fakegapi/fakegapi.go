// Package fakegapi is an in-memory gapi.Device implementation used by unit
// tests across rendercore, bindless, and culling so the job graph and
// barrier inference are testable without a real GPU — the same role the
// pack's GPU-adjacent test doubles play for BVH/volume logic that would
// otherwise need a device.
package fakegapi

import (
	"fmt"
	"sync/atomic"

	"github.com/kestrelgfx/corerender/gapi"
	"github.com/kestrelgfx/corerender/name"
)

type Buffer struct {
	size  gapi.MemorySize
	usage gapi.BufferUsage
	addr  uint64
	data  []byte
}

func (b *Buffer) Size() gapi.MemorySize       { return b.size }
func (b *Buffer) Usage() gapi.BufferUsage     { return b.usage }
func (b *Buffer) DeviceAddress() uint64       { return b.addr }
func (b *Buffer) Map() []byte {
	if b.usage&gapi.BufferUsageHostVisible == 0 {
		return nil
	}
	return b.data
}
func (b *Buffer) Release() {}

type TextureView struct {
	tex     *Texture
	baseMip uint32
}

func (v *TextureView) Texture() gapi.Texture { return v.tex }
func (v *TextureView) BaseMip() uint32       { return v.baseMip }
func (v *TextureView) Release()              {}

type Texture struct {
	format      gapi.ColorFormat
	resolution  gapi.Resolution
	usage       gapi.TextureUsage
	mipCount    uint32
	sampleCount uint32
}

func (t *Texture) Resolution() gapi.Resolution { return t.resolution }
func (t *Texture) Format() gapi.ColorFormat     { return t.format }
func (t *Texture) Usage() gapi.TextureUsage     { return t.usage }
func (t *Texture) MipCount() uint32             { return t.mipCount }
func (t *Texture) SampleCount() uint32          { return t.sampleCount }
func (t *Texture) CreateMipView(mip uint32) (gapi.TextureView, error) {
	if mip >= t.mipCount {
		return nil, fmt.Errorf("fakegapi: mip %d out of range (count=%d)", mip, t.mipCount)
	}
	return &TextureView{tex: t, baseMip: mip}, nil
}
func (t *Texture) Release() {}

type Sampler struct{}

func (s *Sampler) Release() {}

type Shader struct {
	stage gapi.ShaderStage
	entry string
}

func (s *Shader) Stage() gapi.ShaderStage { return s.stage }
func (s *Shader) Entrypoint() string      { return s.entry }

type Pipeline struct {
	workType gapi.WorkType
	desc     any
}

func (p *Pipeline) WorkType() gapi.WorkType { return p.workType }
func (p *Pipeline) Release()                {}

type DescriptorPool struct {
	counts  gapi.DescriptorCounts
	maxSets uint32
}

func (p *DescriptorPool) Release() {}

type Fence struct {
	signalled bool
}

func (f *Fence) Await()   { f.signalled = true }
func (f *Fence) Reset()   { f.signalled = false }
func (f *Fence) Release() {}

type Semaphore struct{}

func (s *Semaphore) Release() {}

type QueryPool struct {
	kind    gapi.QueryKind
	count   uint32
	results []uint64
}

func (q *QueryPool) Kind() gapi.QueryKind { return q.kind }
func (q *QueryPool) Count() uint32        { return q.count }
func (q *QueryPool) Resolve() ([]uint64, error) {
	return q.results, nil
}
func (q *QueryPool) Release() {}

type AccelerationStructure struct {
	kind gapi.AccelerationStructureType
	size gapi.MemorySize
}

func (a *AccelerationStructure) Type() gapi.AccelerationStructureType { return a.kind }
func (a *AccelerationStructure) Size() gapi.MemorySize                { return a.size }
func (a *AccelerationStructure) Release()                             {}

// Swapchain is a fixed-size ring of fake textures; AcquireNextImage
// round-robins over them. Setting OutOfDate makes both AcquireNextImage and
// Present fail with OutOfDateSwapchain, which is how tests drive resize
// storms.
type Swapchain struct {
	resolution gapi.Resolution
	format     gapi.ColorFormat
	images     []gapi.Texture
	next       uint32
	OutOfDate  bool
}

func (s *Swapchain) ImageCount() uint32          { return uint32(len(s.images)) }
func (s *Swapchain) Resolution() gapi.Resolution { return s.resolution }
func (s *Swapchain) Format() gapi.ColorFormat     { return s.format }
func (s *Swapchain) Texture(index uint32) gapi.Texture { return s.images[index] }
func (s *Swapchain) AcquireNextImage(signal gapi.Semaphore) (uint32, error) {
	if s.OutOfDate {
		return 0, gapi.NewError(gapi.OutOfDateSwapchain, "AcquireNextImage", nil)
	}
	idx := s.next
	s.next = (s.next + 1) % uint32(len(s.images))
	return idx, nil
}
func (s *Swapchain) Present(wait []gapi.Semaphore, imageIndex uint32) error {
	if s.OutOfDate {
		return gapi.NewError(gapi.OutOfDateSwapchain, "Present", nil)
	}
	return nil
}
func (s *Swapchain) Release() {}

// Device is the fake gapi.Device. Every create call always succeeds unless
// FailNextCreate is armed, letting tests exercise the fatal-startup-failure
// path described in the error handling design.
type Device struct {
	FailNextCreate error
	nextAddr       atomic.Uint64

	CommandLists []*CommandList
	Submissions  []Submission
}

type Submission struct {
	CmdList         *CommandList
	WaitSemaphores  []gapi.Semaphore
	SignalSemaphores []gapi.Semaphore
	Fence           gapi.Fence
	WorkType        gapi.WorkType
}

func New() *Device {
	return &Device{}
}

func (d *Device) takeFailure() error {
	if d.FailNextCreate == nil {
		return nil
	}
	err := d.FailNextCreate
	d.FailNextCreate = nil
	return err
}

func (d *Device) CreateBuffer(usage gapi.BufferUsage, size gapi.MemorySize) (gapi.Buffer, error) {
	if err := d.takeFailure(); err != nil {
		return nil, err
	}
	b := &Buffer{size: size, usage: usage, addr: d.nextAddr.Add(256)}
	if usage&gapi.BufferUsageHostVisible != 0 {
		b.data = make([]byte, size)
	}
	return b, nil
}

func (d *Device) CreateTexture(format gapi.ColorFormat, resolution gapi.Resolution, usage gapi.TextureUsage, initialState gapi.TextureState, sampleCount uint32, mipCount uint32) (gapi.Texture, error) {
	if err := d.takeFailure(); err != nil {
		return nil, err
	}
	if mipCount == 0 {
		mipCount = 1
	}
	if sampleCount == 0 {
		sampleCount = 1
	}
	return &Texture{format: format, resolution: resolution, usage: usage, mipCount: mipCount, sampleCount: sampleCount}, nil
}

func (d *Device) CreateTextureFromKTX2(data []byte) (gapi.Texture, error) {
	if err := d.takeFailure(); err != nil {
		return nil, err
	}
	return &Texture{format: gapi.FormatRGBA8UNorm, resolution: gapi.Resolution{Width: 1, Height: 1}, mipCount: 1, sampleCount: 1}, nil
}

func (d *Device) CreateSampler(props gapi.SamplerProperties) (gapi.Sampler, error) {
	return &Sampler{}, nil
}

func (d *Device) CreateSwapchain(resolution gapi.Resolution, format gapi.ColorFormat, colorSpace gapi.ColorSpace, presentMode gapi.PresentMode) (gapi.Swapchain, error) {
	if err := d.takeFailure(); err != nil {
		return nil, err
	}
	images := make([]gapi.Texture, 3)
	for i := range images {
		images[i] = &Texture{format: format, resolution: resolution, usage: gapi.TextureUsageColorAttachment, mipCount: 1, sampleCount: 1}
	}
	return &Swapchain{resolution: resolution, format: format, images: images}, nil
}

func (d *Device) CreateShader(stage gapi.ShaderStage, entrypoint string, bytecode []byte) (gapi.Shader, error) {
	if err := d.takeFailure(); err != nil {
		return nil, err
	}
	return &Shader{stage: stage, entry: entrypoint}, nil
}

func (d *Device) CreateGraphicsPipeline(desc gapi.GraphicsPipelineDesc, shaders map[name.Name]gapi.Shader) (gapi.Pipeline, error) {
	if err := d.takeFailure(); err != nil {
		return nil, err
	}
	if desc.VertexShader == name.None {
		return nil, gapi.NewError(gapi.PSOCreationFailed, "CreateGraphicsPipeline", fmt.Errorf("no vertex shader bound"))
	}
	return &Pipeline{workType: gapi.WorkTypeGraphics, desc: desc}, nil
}

func (d *Device) CreateComputePipeline(desc gapi.ComputePipelineDesc, shaders map[name.Name]gapi.Shader) (gapi.Pipeline, error) {
	if err := d.takeFailure(); err != nil {
		return nil, err
	}
	if desc.ComputeShader == name.None {
		return nil, gapi.NewError(gapi.PSOCreationFailed, "CreateComputePipeline", fmt.Errorf("no compute shader bound"))
	}
	return &Pipeline{workType: gapi.WorkTypeCompute, desc: desc}, nil
}

func (d *Device) CreateDescriptorPool(counts gapi.DescriptorCounts, maxSets uint32) (gapi.DescriptorPool, error) {
	if err := d.takeFailure(); err != nil {
		return nil, err
	}
	return &DescriptorPool{counts: counts, maxSets: maxSets}, nil
}

func (d *Device) CreateFence() (gapi.Fence, error)         { return &Fence{}, nil }
func (d *Device) CreateSemaphore() (gapi.Semaphore, error) { return &Semaphore{}, nil }

func (d *Device) CreateQueryPool(kind gapi.QueryKind, count uint32) (gapi.QueryPool, error) {
	return &QueryPool{kind: kind, count: count, results: make([]uint64, count)}, nil
}

func (d *Device) CreateCommandList(workType gapi.WorkType) (gapi.CommandList, error) {
	cl := &CommandList{workType: workType}
	d.CommandLists = append(d.CommandLists, cl)
	return cl, nil
}

func (d *Device) CreateAccelerationStructure(kind gapi.AccelerationStructureType, backing gapi.Buffer, offset, size gapi.MemorySize) (gapi.AccelerationStructure, error) {
	if err := d.takeFailure(); err != nil {
		return nil, err
	}
	return &AccelerationStructure{kind: kind, size: size}, nil
}

func (d *Device) SubmitCommandList(cmdList gapi.CommandList, waitSemaphores, signalSemaphores []gapi.Semaphore, fence gapi.Fence, workType gapi.WorkType) error {
	cl, ok := cmdList.(*CommandList)
	if !ok {
		return fmt.Errorf("fakegapi: SubmitCommandList called with foreign CommandList")
	}
	d.Submissions = append(d.Submissions, Submission{
		CmdList:          cl,
		WaitSemaphores:   waitSemaphores,
		SignalSemaphores: signalSemaphores,
		Fence:            fence,
		WorkType:         workType,
	})
	if fence != nil {
		fence.(*Fence).signalled = true
	}
	return nil
}

func (d *Device) WaitIdle() error { return nil }
func (d *Device) Release()        {}
