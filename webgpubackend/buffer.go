package webgpubackend

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/kestrelgfx/corerender/gapi"
)

// Buffer wraps a wgpu.Buffer. A host-visible buffer keeps a shadow copy in
// staging so Map can hand back a plain Go slice the way gapi.Buffer.Map
// promises — wgpu's own mapped-range API is async and tied to the frame
// queue, which the core's synchronous upload paths (bindless scene upload,
// sceneio callers) don't expect.
type Buffer struct {
	buf     *wgpu.Buffer
	queue   *wgpu.Queue
	size    gapi.MemorySize
	usage   gapi.BufferUsage
	staging []byte
}

func (b *Buffer) Size() gapi.MemorySize   { return b.size }
func (b *Buffer) Usage() gapi.BufferUsage { return b.usage }

// DeviceAddress has no wgpu equivalent (no raw GPU pointers); the
// acceleration-structure path that would want one is itself unsupported
// on this backend (see accelstructure.go), and indirect draws bind the
// buffer directly, so this is never read on the wgpu path.
func (b *Buffer) DeviceAddress() uint64 { return 0 }

func (b *Buffer) Map() []byte {
	if b.usage&gapi.BufferUsageHostVisible == 0 {
		return nil
	}
	return b.staging
}

// flush uploads the staging copy to the real GPU buffer. Called by
// CommandList replay whenever a host-visible buffer may have been written
// to since the last submission.
func (b *Buffer) flush() {
	if b.staging == nil {
		return
	}
	b.queue.WriteBuffer(b.buf, 0, b.staging)
}

func (b *Buffer) Release() {
	b.buf.Release()
}

func (d *Device) CreateBuffer(usage gapi.BufferUsage, size gapi.MemorySize) (gapi.Buffer, error) {
	wusage := toWGPUBufferUsage(usage)
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            "corerender buffer",
		Size:             uint64(size),
		Usage:            wusage,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, gapi.NewError(gapi.UnsupportedDevice, "CreateBuffer", err)
	}

	b := &Buffer{buf: buf, queue: d.queue, size: size, usage: usage}
	if usage&gapi.BufferUsageHostVisible != 0 {
		b.staging = make([]byte, size)
	}
	return b, nil
}

func bufferOf(b gapi.Buffer) (*Buffer, error) {
	wb, ok := b.(*Buffer)
	if !ok {
		return nil, fmt.Errorf("webgpubackend: foreign gapi.Buffer %T", b)
	}
	return wb, nil
}
