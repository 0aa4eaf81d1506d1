package webgpubackend

import "github.com/kestrelgfx/corerender/gapi"

// DescriptorPool has no wgpu-native counterpart: wgpu allocates bind
// groups individually rather than from a fixed-capacity pool, and
// CommandList.PushDescriptors creates one BindGroup per push the way
// mod_client.go's per-draw BindGroup creation already does. DescriptorPool
// is kept only so Renderer's up-front DescriptorCounts sizing (the same
// sizing the core would hand a Vulkan descriptor pool) has somewhere to
// go, and so a maxSets budget can still be enforced as a sanity check.
type DescriptorPool struct {
	counts  gapi.DescriptorCounts
	maxSets uint32
}

func (p *DescriptorPool) Release() {}

func (d *Device) CreateDescriptorPool(counts gapi.DescriptorCounts, maxSets uint32) (gapi.DescriptorPool, error) {
	return &DescriptorPool{counts: counts, maxSets: maxSets}, nil
}
