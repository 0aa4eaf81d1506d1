package webgpubackend

import "github.com/kestrelgfx/corerender/gapi"

// AccelerationStructure is never actually constructed on this backend: no
// Go wgpu binding in the retrieved example pack exposes ray-tracing
// acceleration structures (wgpu-native itself has no such extension), so
// CreateAccelerationStructure always fails with
// NoDeviceSupportsRequestedFeatures. This is the exact fallback path
// spec.md's ray-tracing-optional design already requires a host to handle
// for any device that doesn't advertise the feature; config.EnableRayTracing
// defaulting to false keeps a demo host off this path unless it opts in.
type AccelerationStructure struct {
	kind gapi.AccelerationStructureType
	size gapi.MemorySize
}

func (a *AccelerationStructure) Type() gapi.AccelerationStructureType { return a.kind }
func (a *AccelerationStructure) Size() gapi.MemorySize                { return a.size }
func (a *AccelerationStructure) Release()                             {}

func (d *Device) CreateAccelerationStructure(kind gapi.AccelerationStructureType, backing gapi.Buffer, offset, size gapi.MemorySize) (gapi.AccelerationStructure, error) {
	return nil, gapi.NewError(gapi.NoDeviceSupportsRequestedFeatures, "CreateAccelerationStructure", nil)
}
