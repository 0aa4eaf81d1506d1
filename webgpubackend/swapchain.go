package webgpubackend

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/kestrelgfx/corerender/gapi"
)

// Swapchain wraps wgpu's surface-configure-then-GetCurrentTexture flow
// behind the core's indexed-image gapi.Swapchain interface. Unlike a
// Vulkan swapchain, wgpu hands back one texture per AcquireNextImage call
// rather than letting the caller index a fixed ring up front, so images is
// a small rolling cache sized to the surface's own configured frame count
// (3, matching gpu_operations.go's FIFO triple-buffered configuration)
// that frame.RenderSurface's existing index bookkeeping still works
// against.
type Swapchain struct {
	device      *Device
	surface     *wgpu.Surface
	config      wgpu.SurfaceConfiguration
	format      gapi.ColorFormat
	resolution  gapi.Resolution
	presentMode gapi.PresentMode
	images      []*Texture
	next        uint32
}

const swapchainImageCount = 3

func (s *Swapchain) ImageCount() uint32          { return uint32(len(s.images)) }
func (s *Swapchain) Resolution() gapi.Resolution { return s.resolution }
func (s *Swapchain) Format() gapi.ColorFormat     { return s.format }

func (s *Swapchain) Texture(index uint32) gapi.Texture {
	if s.images[index] == nil {
		return nil
	}
	return s.images[index]
}

func (s *Swapchain) AcquireNextImage(signal gapi.Semaphore) (uint32, error) {
	surfaceTexture, err := s.surface.GetCurrentTexture()
	if err != nil {
		return 0, gapi.NewError(gapi.OutOfDateSwapchain, "AcquireNextImage", err)
	}

	idx := s.next
	s.next = (s.next + 1) % uint32(len(s.images))

	s.images[idx] = &Texture{
		tex:         surfaceTexture.Texture,
		format:      s.format,
		resolution:  s.resolution,
		usage:       gapi.TextureUsageColorAttachment,
		mipCount:    1,
		sampleCount: 1,
	}
	return idx, nil
}

func (s *Swapchain) Present(wait []gapi.Semaphore, imageIndex uint32) error {
	// Submission order already serializes the waited-on work (see
	// sync.go), so Present only needs to flip the surface.
	s.surface.Present()
	return nil
}

func (s *Swapchain) Release() {
	s.surface.Release()
}

func (d *Device) CreateSwapchain(resolution gapi.Resolution, format gapi.ColorFormat, colorSpace gapi.ColorSpace, presentMode gapi.PresentMode) (gapi.Swapchain, error) {
	caps := d.surface.GetCapabilities(d.adapter)

	cfg := wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      toWGPUTextureFormat(format),
		Width:       resolution.Width,
		Height:      resolution.Height,
		PresentMode: toWGPUPresentMode(presentMode),
		AlphaMode:   caps.AlphaModes[0],
	}
	d.surface.Configure(d.adapter, d.device, &cfg)

	return &Swapchain{
		device:      d,
		surface:     d.surface,
		config:      cfg,
		format:      format,
		resolution:  resolution,
		presentMode: presentMode,
		images:      make([]*Texture, swapchainImageCount),
	}, nil
}

func toWGPUPresentMode(m gapi.PresentMode) wgpu.PresentMode {
	switch m {
	case gapi.PresentModeMailbox:
		return wgpu.PresentModeMailbox
	case gapi.PresentModeImmediate:
		return wgpu.PresentModeImmediate
	default:
		return wgpu.PresentModeFifo
	}
}
