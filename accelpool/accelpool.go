// Package accelpool implements AccelerationStructurePool: recycling of GPU
// acceleration structures by size class, backed by a bufferheap.Heap.
package accelpool

import (
	"sort"

	"github.com/kestrelgfx/corerender/bufferheap"
	"github.com/kestrelgfx/corerender/gapi"
)

// entry tracks one pooled (but currently free) acceleration structure and
// the backing section it was carved from.
type entry struct {
	as      gapi.AccelerationStructure
	section bufferheap.Section
	size    gapi.MemorySize
}

// Pool recycles acceleration structures by (type, size class). Acquire
// first looks for a free entry of at least the requested size for the
// requested type; on a miss it carves a new backing section from the heap
// and creates a fresh acceleration structure over it.
type Pool struct {
	device gapi.Device
	heap   *bufferheap.Heap

	// freeByType holds, per type, entries sorted by ascending size — a
	// multimap<size, AS*> in the original design, modeled here as a sorted
	// slice since acquisitions are infrequent relative to frame count.
	freeByType map[gapi.AccelerationStructureType][]entry
	live       map[gapi.AccelerationStructure]entry
}

// New creates an AccelerationStructurePool over device, backed by a
// bufferheap.Heap configured with the acceleration-structure usage flag.
func New(device gapi.Device) *Pool {
	return &Pool{
		device:     device,
		heap:       bufferheap.New(device, gapi.BufferUsageAccelerationStructure, 0),
		freeByType: make(map[gapi.AccelerationStructureType][]entry),
		live:       make(map[gapi.AccelerationStructure]entry),
	}
}

// Acquire returns an acceleration structure of at least size size/type
// kind, reusing a pooled one if available.
func (p *Pool) Acquire(kind gapi.AccelerationStructureType, size gapi.MemorySize) (gapi.AccelerationStructure, error) {
	free := p.freeByType[kind]
	idx := sort.Search(len(free), func(i int) bool { return free[i].size >= size })
	if idx < len(free) {
		e := free[idx]
		p.freeByType[kind] = append(free[:idx], free[idx+1:]...)
		p.live[e.as] = e
		return e.as, nil
	}

	section, err := p.heap.AllocateSection(size)
	if err != nil {
		return nil, err
	}
	as, err := p.device.CreateAccelerationStructure(kind, section.Buffer, section.Offset, section.Size)
	if err != nil {
		p.heap.ReleaseSection(section)
		return nil, err
	}
	p.live[as] = entry{as: as, section: section, size: section.Size}
	return as, nil
}

// Release returns as to the free map, keyed by its backing size, so a
// future Acquire of a compatible size class can reuse it without touching
// the backing heap. The caller is responsible for ensuring no in-flight
// GPU work still references as (frame fences provide that guarantee).
func (p *Pool) Release(as gapi.AccelerationStructure) {
	e, ok := p.live[as]
	if !ok {
		return
	}
	delete(p.live, as)

	free := p.freeByType[e.Type()]
	idx := sort.Search(len(free), func(i int) bool { return free[i].size >= e.size })
	free = append(free, entry{})
	copy(free[idx+1:], free[idx:])
	free[idx] = e
	p.freeByType[e.Type()] = free
}

func (e entry) Type() gapi.AccelerationStructureType {
	return e.as.Type()
}

// FreeCount reports how many pooled (unused) structures of kind are
// currently held, for tests and diagnostics.
func (p *Pool) FreeCount(kind gapi.AccelerationStructureType) int {
	return len(p.freeByType[kind])
}
