package rendercore

import "github.com/kestrelgfx/corerender/gapi"

// DescriptorWriter accumulates pending descriptor writes for one
// push-descriptor flush, pooling the info records the way the original
// DescriptorWriter pools VkDescriptorBufferInfo/VkDescriptorImageInfo
// records instead of allocating per write.
type DescriptorWriter struct {
	writes []gapi.DescriptorWrite
}

// NewDescriptorWriter creates an empty writer.
func NewDescriptorWriter() *DescriptorWriter {
	return &DescriptorWriter{}
}

func (w *DescriptorWriter) SetUniformBuffer(binding uint32, buf gapi.Buffer) {
	w.writes = append(w.writes, gapi.DescriptorWrite{
		Binding: binding, Type: gapi.DescriptorUniformBuffer, UniformBuffer: buf, BufferSize: buf.Size(),
	})
}

func (w *DescriptorWriter) SetStorageBuffer(binding uint32, buf gapi.Buffer, offset, size gapi.MemorySize) {
	if size == 0 {
		size = buf.Size() - offset
	}
	w.writes = append(w.writes, gapi.DescriptorWrite{
		Binding: binding, Type: gapi.DescriptorStorageBuffer, StorageBuffer: buf, BufferOffset: offset, BufferSize: size,
	})
}

func (w *DescriptorWriter) SetSampledTexture(binding uint32, view gapi.TextureView) {
	w.writes = append(w.writes, gapi.DescriptorWrite{
		Binding: binding, Type: gapi.DescriptorSampledTexture, SampledTexture: view,
	})
}

func (w *DescriptorWriter) SetSampledTextureArray(binding uint32, views []gapi.TextureView) {
	w.writes = append(w.writes, gapi.DescriptorWrite{
		Binding: binding, Type: gapi.DescriptorSampledTextureArray, TextureArray: views,
	})
}

func (w *DescriptorWriter) SetStorageTexture(binding uint32, view gapi.TextureView) {
	w.writes = append(w.writes, gapi.DescriptorWrite{
		Binding: binding, Type: gapi.DescriptorStorageTexture, StorageTexture: view,
	})
}

// Flush hands the accumulated writes to the command list as one
// push-descriptor command and resets the writer for reuse.
func (w *DescriptorWriter) Flush(cmdList gapi.CommandList, set uint32) {
	if len(w.writes) == 0 {
		return
	}
	cmdList.PushDescriptors(set, w.writes)
	w.writes = w.writes[:0]
}

// DescriptorStorage owns the DescriptorPools allocated per job, sized from
// the descriptor counts a BuildContext accumulated while recording.
type DescriptorStorage struct {
	pools []gapi.DescriptorPool
}

// NewDescriptorStorage creates an empty DescriptorStorage.
func NewDescriptorStorage() *DescriptorStorage {
	return &DescriptorStorage{}
}

// AllocatePool creates and stores a descriptor pool sized from counts, pre-
// multiplied by the caller for FRAMES_IN_FLIGHT. Allocation failure here is
// fatal: it indicates the pool was under-sized relative to the declared
// descriptor bindings, a BuildContext bug per the failure semantics.
func (s *DescriptorStorage) AllocatePool(device gapi.Device, counts gapi.DescriptorCounts, maxSets uint32) (gapi.DescriptorPool, error) {
	pool, err := device.CreateDescriptorPool(counts, maxSets)
	if err != nil {
		return nil, gapi.NewError(gapi.UnsupportedDevice, "DescriptorStorage.AllocatePool", err)
	}
	s.pools = append(s.pools, pool)
	return pool, nil
}

// Release tears down every pool owned by this storage.
func (s *DescriptorStorage) Release() {
	for _, p := range s.pools {
		p.Release()
	}
	s.pools = nil
}
