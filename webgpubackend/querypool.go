package webgpubackend

import (
	"encoding/binary"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/kestrelgfx/corerender/gapi"
)

// QueryPool wraps a wgpu.QuerySet of timestamp queries plus a host-visible
// buffer that Resolve reads back from. Nothing on this backend resolves the
// query set into that buffer, so Resolve returns zeros. wgpu has
// no pipeline-statistics query kind exposed the way Vulkan does, so
// QueryKindStatistics is rejected at creation time rather than silently
// behaving like a timestamp pool.
type QueryPool struct {
	device   *Device
	set      *wgpu.QuerySet
	kind     gapi.QueryKind
	count    uint32
	resolved *Buffer
}

func (q *QueryPool) Kind() gapi.QueryKind { return q.kind }
func (q *QueryPool) Count() uint32        { return q.count }

func (q *QueryPool) Resolve() ([]uint64, error) {
	out := make([]uint64, q.count)
	raw := q.resolved.Map()
	if raw == nil {
		return out, nil
	}
	for i := range out {
		off := i * 8
		if off+8 > len(raw) {
			break
		}
		out[i] = binary.LittleEndian.Uint64(raw[off : off+8])
	}
	return out, nil
}

func (q *QueryPool) Release() {
	q.set.Release()
	if q.resolved != nil {
		q.resolved.Release()
	}
}

func (d *Device) CreateQueryPool(kind gapi.QueryKind, count uint32) (gapi.QueryPool, error) {
	if kind != gapi.QueryKindTimestamp {
		return nil, gapi.NewError(gapi.NoDeviceSupportsRequestedFeatures, "CreateQueryPool", fmt.Errorf("wgpu-native exposes no pipeline-statistics query type"))
	}

	set, err := d.device.CreateQuerySet(&wgpu.QuerySetDescriptor{
		Label: "corerender timestamp queries",
		Type:  wgpu.QueryTypeTimestamp,
		Count: count,
	})
	if err != nil {
		return nil, gapi.NewError(gapi.UnsupportedDevice, "CreateQueryPool", err)
	}

	resolvedIface, err := d.CreateBuffer(gapi.BufferUsageHostVisible|gapi.BufferUsageStorage, gapi.MemorySize(count)*8)
	if err != nil {
		return nil, err
	}

	return &QueryPool{device: d, set: set, kind: kind, count: count, resolved: resolvedIface.(*Buffer)}, nil
}

func queryPoolOf(p gapi.QueryPool) (*QueryPool, error) {
	wp, ok := p.(*QueryPool)
	if !ok {
		return nil, fmt.Errorf("webgpubackend: foreign gapi.QueryPool %T", p)
	}
	return wp, nil
}
