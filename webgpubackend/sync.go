package webgpubackend

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/kestrelgfx/corerender/gapi"
)

// Fence is a host-waitable completion signal. wgpu has no native fence
// object; Await blocks on the device's work-done queue via Device.Poll the
// way a single-queue submitter serializes everything already, so a simple
// signalled flag plus a blocking poll stands in for it. SubmitCommandList
// clears the flag, so the first Await after a submit always polls.
type Fence struct {
	device    *wgpu.Device
	signalled bool
}

func (f *Fence) Await() {
	if f.signalled {
		return
	}
	f.device.Poll(true, nil)
	f.signalled = true
}

func (f *Fence) Reset()   { f.signalled = false }
func (f *Fence) Release() {}

func (d *Device) CreateFence() (gapi.Fence, error) {
	return &Fence{device: d.device}, nil
}

// Semaphore has no wgpu equivalent either: wgpu-native serializes all work
// submitted to a single queue in submission order, so the Vulkan-style
// explicit wait/signal the core's job graph wires between jobs is already
// guaranteed by submission order on this backend. Semaphore is kept as a
// typed no-op so CommandList.TextureBarrier/ExecutionBarrier callers and
// Device.SubmitCommandList's wait/signal parameters still type-check
// against gapi.Semaphore without this backend silently dropping them.
type Semaphore struct{}

func (s *Semaphore) Release() {}

func (d *Device) CreateSemaphore() (gapi.Semaphore, error) {
	return &Semaphore{}, nil
}
