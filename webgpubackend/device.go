package webgpubackend

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"

	"github.com/kestrelgfx/corerender/gapi"
	"github.com/kestrelgfx/corerender/rlog"
)

var log = rlog.Category("webgpubackend")

// Device is the one shipped gapi.Device. Bootstrap follows
// gpu_operations.go's createGpuState exactly: create an instance, wrap the
// GLFW window into a surface, pick a high-performance adapter compatible
// with that surface, then request a logical device and its queue.
type Device struct {
	window   *Window
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface
}

// NewDevice brings up the wgpu instance/adapter/device/queue against
// window's surface. enableRayTracing is accepted only to be rejected: no
// Go wgpu binding in the example pack exposes ray-tracing acceleration
// structures, so a caller requesting it gets a warning and the
// already-documented NoDeviceSupportsRequestedFeatures fallback path
// (accelstructure.go) applies for the life of the device. enableValidation
// only adds the timestamp-query feature to the device request; it does not
// switch on any wgpu validation or debug logging.
func NewDevice(window *Window, enableValidation, enableRayTracing bool) (*Device, error) {
	if enableRayTracing {
		log.Warnf("ray tracing requested but unsupported by webgpubackend; acceleration structure creation will fail")
	}

	instance := wgpu.CreateInstance(nil)
	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(window.glfw))

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, gapi.NewError(gapi.NoSupportedDevicesFound, "RequestAdapter", err)
	}

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:            "corerender device",
		RequiredFeatures: requiredFeatures(enableValidation),
	})
	if err != nil {
		return nil, gapi.NewError(gapi.UnsupportedDevice, "RequestDevice", err)
	}

	return &Device{
		window:   window,
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    device.GetQueue(),
		surface:  surface,
	}, nil
}

func requiredFeatures(enableValidation bool) []wgpu.FeatureName {
	if !enableValidation {
		return nil
	}
	return []wgpu.FeatureName{wgpu.FeatureNameTimestampQuery}
}

func (d *Device) WaitIdle() error {
	d.device.Poll(true, nil)
	return nil
}

func (d *Device) Release() {
	d.queue.Release()
	d.device.Release()
	d.adapter.Release()
	d.surface.Release()
	d.instance.Release()
}
