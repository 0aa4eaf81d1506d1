package webgpubackend

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/kestrelgfx/corerender/gapi"
)

type Texture struct {
	tex         *wgpu.Texture
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
		return nil, fmt.Errorf("webgpubackend: mip %d out of range (count=%d)", mip, t.mipCount)
	}
	view, err := t.tex.CreateView(&wgpu.TextureViewDescriptor{
		Format:          toWGPUTextureFormat(t.format),
		Dimension:       wgpu.TextureViewDimension2D,
		BaseMipLevel:    mip,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpubackend: CreateMipView(%d): %w", mip, err)
	}
	return &TextureView{tex: t, view: view, baseMip: mip}, nil
}

func (t *Texture) Release() { t.tex.Release() }

type TextureView struct {
	tex     *Texture
	view    *wgpu.TextureView
	baseMip uint32
}

func (v *TextureView) Texture() gapi.Texture { return v.tex }
func (v *TextureView) BaseMip() uint32       { return v.baseMip }
func (v *TextureView) Release()              { v.view.Release() }

func (d *Device) CreateTexture(format gapi.ColorFormat, resolution gapi.Resolution, usage gapi.TextureUsage, initialState gapi.TextureState, sampleCount uint32, mipCount uint32) (gapi.Texture, error) {
	if mipCount == 0 {
		mipCount = 1
	}
	if sampleCount == 0 {
		sampleCount = 1
	}

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "corerender texture",
		Size: wgpu.Extent3D{
			Width:              resolution.Width,
			Height:             resolution.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: mipCount,
		SampleCount:   sampleCount,
		Dimension:     wgpu.TextureDimension2D,
		Format:        toWGPUTextureFormat(format),
		Usage:         toWGPUTextureUsage(usage),
	})
	if err != nil {
		return nil, gapi.NewError(gapi.UnsupportedFormat, "CreateTexture", err)
	}

	return &Texture{tex: tex, format: format, resolution: resolution, usage: usage, mipCount: mipCount, sampleCount: sampleCount}, nil
}

type Sampler struct {
	s *wgpu.Sampler
}

func (s *Sampler) Release() { s.s.Release() }

func (d *Device) CreateSampler(props gapi.SamplerProperties) (gapi.Sampler, error) {
	s, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU: toWGPUAddressMode(props.WrapMode),
		AddressModeV: toWGPUAddressMode(props.WrapMode),
		AddressModeW: toWGPUAddressMode(props.WrapMode),
		MagFilter:    toWGPUFilterMode(props.MagFilter),
		MinFilter:    toWGPUFilterMode(props.MinFilter),
		MipmapFilter: toWGPUFilterMode(props.MinFilter),
		LodMinClamp:  0,
		LodMaxClamp:  32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, gapi.NewError(gapi.UnsupportedDevice, "CreateSampler", err)
	}
	return &Sampler{s: s}, nil
}

func textureOf(t gapi.Texture) (*Texture, error) {
	wt, ok := t.(*Texture)
	if !ok {
		return nil, fmt.Errorf("webgpubackend: foreign gapi.Texture %T", t)
	}
	return wt, nil
}

func textureViewOf(v gapi.TextureView) (*TextureView, error) {
	wv, ok := v.(*TextureView)
	if !ok {
		return nil, fmt.Errorf("webgpubackend: foreign gapi.TextureView %T", v)
	}
	return wv, nil
}
