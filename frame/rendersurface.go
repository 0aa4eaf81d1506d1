// Package frame composes the stage package's five per-frame stages into
// one steady-state rendercore.Job per spec section 2's data flow, and owns
// the swapchain lifecycle the rest of the core stays agnostic to.
package frame

import (
	"fmt"

	"github.com/kestrelgfx/corerender/gapi"
	"github.com/kestrelgfx/corerender/rlog"
)

var surfaceLog = rlog.Category("frame.surface")

// RenderSurface owns the swapchain: creation, resize, present-mode
// switches, and OutOfDateSwapchain recovery, per the error handling design
// (section 7): a recoverable swapchain failure sets a pending-recreate
// flag rather than aborting the frame loop; the next frame awaits device
// idle, recreates at the current extent/present mode, and continues.
type RenderSurface struct {
	device gapi.Device

	resolution  gapi.Resolution
	format      gapi.ColorFormat
	colorSpace  gapi.ColorSpace
	presentMode gapi.PresentMode

	swapchain     gapi.Swapchain
	needsRecreate bool
}

// NewRenderSurface creates the swapchain at resolution/format/presentMode
// and returns the owning RenderSurface. A create-time failure here is
// fatal per the error handling design — unlike a recoverable
// OutOfDateSwapchain mid-session, there is no fallback for a swapchain
// that cannot be created at all.
func NewRenderSurface(device gapi.Device, resolution gapi.Resolution, format gapi.ColorFormat, presentMode gapi.PresentMode) (*RenderSurface, error) {
	s := &RenderSurface{
		device:      device,
		resolution:  resolution,
		format:      format,
		colorSpace:  gapi.ColorSpaceSRGBNonlinear,
		presentMode: presentMode,
	}
	if err := s.create(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *RenderSurface) create() error {
	sc, err := s.device.CreateSwapchain(s.resolution, s.format, s.colorSpace, s.presentMode)
	if err != nil {
		return fmt.Errorf("frame: creating swapchain: %w", err)
	}
	s.swapchain = sc
	return nil
}

// ImageCount reports the swapchain's image count. Renderer treats this as
// its frames-in-flight count — see DESIGN.md's DeclareExternalRenderTarget
// entry for why the two are tied together.
func (s *RenderSurface) ImageCount() uint32 { return s.swapchain.ImageCount() }

// Resolution reports the swapchain's current extent.
func (s *RenderSurface) Resolution() gapi.Resolution { return s.swapchain.Resolution() }

// Format reports the swapchain's current color format.
func (s *RenderSurface) Format() gapi.ColorFormat { return s.format }

// Texture returns the swapchain image backing frame slot index.
func (s *RenderSurface) Texture(index uint32) gapi.Texture { return s.swapchain.Texture(index) }

// Acquire blocks until the next swapchain image is ready, signaling signal
// when it is, and returns its index. An OutOfDateSwapchain error marks the
// surface pending-recreate and is returned unwrapped so the caller can
// detect it with gapi.IsOutOfDateSwapchain and skip the frame.
func (s *RenderSurface) Acquire(signal gapi.Semaphore) (uint32, error) {
	idx, err := s.swapchain.AcquireNextImage(signal)
	if err != nil {
		if gapi.IsOutOfDateSwapchain(err) {
			s.needsRecreate = true
		}
		return 0, err
	}
	return idx, nil
}

// Present submits imageIndex for display, waiting on wait. An
// OutOfDateSwapchain error marks the surface pending-recreate; it is
// otherwise non-fatal the same way Acquire's is.
func (s *RenderSurface) Present(wait []gapi.Semaphore, imageIndex uint32) error {
	err := s.swapchain.Present(wait, imageIndex)
	if err != nil && gapi.IsOutOfDateSwapchain(err) {
		s.needsRecreate = true
	}
	return err
}

// NeedsRecreate reports whether a prior Acquire/Present/Resize/
// SetPresentMode call requires Recreate before the next Acquire.
func (s *RenderSurface) NeedsRecreate() bool { return s.needsRecreate }

// Resize records a pending surface extent change. It does not recreate the
// swapchain immediately — repeated calls (a resize storm) simply overwrite
// the pending extent, so only the final size takes effect once Recreate
// runs, matching the error handling design's deferred-recreate policy.
func (s *RenderSurface) Resize(resolution gapi.Resolution) {
	s.resolution = resolution
	s.needsRecreate = true
}

// SetPresentMode records a pending present-mode switch, applied on the
// next Recreate.
func (s *RenderSurface) SetPresentMode(mode gapi.PresentMode) {
	s.presentMode = mode
	s.needsRecreate = true
}

// Recreate awaits device idle, releases the current swapchain, and
// creates a fresh one at the surface's current pending extent/present
// mode. Callers must rebuild any job touching swapchain images afterward
// (Renderer.handleSurfaceRecreate does this), since image identities and
// possibly the image count have changed.
func (s *RenderSurface) Recreate() error {
	if err := s.device.WaitIdle(); err != nil {
		return fmt.Errorf("frame: waiting for device idle before swapchain recreate: %w", err)
	}
	if s.swapchain != nil {
		s.swapchain.Release()
	}
	if err := s.create(); err != nil {
		return err
	}
	s.needsRecreate = false
	surfaceLog.Infof("swapchain recreated at %dx%d, present mode %v", s.resolution.Width, s.resolution.Height, s.presentMode)
	return nil
}

// Release tears down the swapchain.
func (s *RenderSurface) Release() {
	if s.swapchain != nil {
		s.swapchain.Release()
	}
}
