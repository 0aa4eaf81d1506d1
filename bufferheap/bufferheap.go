// Package bufferheap implements BufferHeap: a paged sub-allocator that
// returns {buffer, offset, size, node} sections from pooled device
// buffers, rounding requests up to fixed-size chunks and growing by
// allocating whole new pages when no existing page has room.
package bufferheap

import (
	"fmt"

	"github.com/kestrelgfx/corerender/gapi"
)

// ChunkSize is the granularity sections are rounded up to, matching the
// original design's "chunks of CHUNK_SIZE (~1 KiB)".
const ChunkSize uint64 = 1024

// DefaultChunksPerPage is the chunk count of a freshly allocated page when
// the caller does not override it.
const DefaultChunksPerPage uint64 = 8192

// node is one entry of a page's doubly-linked run list: a contiguous span
// of chunkCount chunks, either free or in use. The prev link lets
// ReleaseSection coalesce backward into an earlier-freed neighbor, not
// just forward into a later one.
type node struct {
	chunkCount uint64
	isFree     bool
	prev       *node
	next       *node
}

// page owns one GPU buffer of chunkCount*ChunkSize bytes and its node list.
type page struct {
	buffer          gapi.Buffer
	availableChunks uint64
	chunkCount      uint64
	head            *node
}

// Section is a live allocation returned by AllocateSection: a byte range
// within one page's buffer, plus the node backing it (needed by
// ReleaseSection to mark it free again).
type Section struct {
	Buffer gapi.Buffer
	Offset gapi.MemorySize
	Size   gapi.MemorySize

	page *page
	node *node
}

// Heap is a BufferHeap: it owns zero or more Pages, each backed by a device
// buffer with a fixed usage mask, and sub-allocates fixed-chunk sections
// from them. A new page is created on demand when no existing page has
// room. Allocate returns an error for a request larger than one page, and
// when the device fails to create a new page's buffer.
type Heap struct {
	device          gapi.Device
	usage           gapi.BufferUsage
	chunksPerPage   uint64
	pages           []*page
}

// New creates a BufferHeap over device, allocating pages with the given
// usage flags and chunksPerPage chunks each (default DefaultChunksPerPage
// when chunksPerPage is 0).
func New(device gapi.Device, usage gapi.BufferUsage, chunksPerPage uint64) *Heap {
	if chunksPerPage == 0 {
		chunksPerPage = DefaultChunksPerPage
	}
	return &Heap{device: device, usage: usage, chunksPerPage: chunksPerPage}
}

func chunksFor(size uint64) uint64 {
	if size%ChunkSize == 0 {
		return size / ChunkSize
	}
	return size/ChunkSize + 1
}

// AllocateSection rounds requiredSize up to whole chunks, walks pages in
// insertion order looking for a free node with enough chunks, and grows a
// new page if none fit.
func (h *Heap) AllocateSection(requiredSize gapi.MemorySize) (Section, error) {
	requiredChunks := chunksFor(requiredSize)
	if requiredChunks > h.chunksPerPage {
		return Section{}, fmt.Errorf("bufferheap: requested %d bytes exceeds page capacity of %d chunks", requiredSize, h.chunksPerPage)
	}

	var target *page
	var curr *node
	var offset uint64

	for _, p := range h.pages {
		if p.availableChunks < requiredChunks {
			continue
		}
		n := p.head
		off := uint64(0)
		for n != nil {
			if n.isFree && n.chunkCount >= requiredChunks {
				break
			}
			off += n.chunkCount * ChunkSize
			n = n.next
		}
		if n != nil {
			target, curr, offset = p, n, off
			break
		}
	}

	if target == nil {
		p, err := h.allocatePage()
		if err != nil {
			return Section{}, err
		}
		target = p
		curr = p.head
		offset = 0
	}

	target.availableChunks -= requiredChunks

	if curr.chunkCount == requiredChunks {
		curr.isFree = false
	} else {
		tail := &node{chunkCount: curr.chunkCount - requiredChunks, isFree: true, prev: curr, next: curr.next}
		if tail.next != nil {
			tail.next.prev = tail
		}
		curr.isFree = false
		curr.chunkCount = requiredChunks
		curr.next = tail
	}

	return Section{
		Buffer: target.buffer,
		Offset: offset,
		Size:   requiredChunks * ChunkSize,
		page:   target,
		node:   curr,
	}, nil
}

// ReleaseSection marks the section's node free and greedily merges it with
// any immediately adjacent free nodes, forward and backward — a node freed
// after its successor (or its predecessor) must still collapse into one
// run, regardless of release order.
func (h *Heap) ReleaseSection(s Section) {
	if s.node == nil {
		return
	}
	n := s.node
	n.isFree = true
	if s.page != nil {
		s.page.availableChunks += n.chunkCount
	}

	for n.next != nil && n.next.isFree {
		n.chunkCount += n.next.chunkCount
		n.next = n.next.next
		if n.next != nil {
			n.next.prev = n
		}
	}

	for n.prev != nil && n.prev.isFree {
		prev := n.prev
		prev.chunkCount += n.chunkCount
		prev.next = n.next
		if prev.next != nil {
			prev.next.prev = prev
		}
		n = prev
	}
}

func (h *Heap) allocatePage() (*page, error) {
	buf, err := h.device.CreateBuffer(h.usage, h.chunksPerPage*ChunkSize)
	if err != nil {
		return nil, gapi.NewError(gapi.UnsupportedDevice, "bufferheap.allocatePage", err)
	}
	p := &page{
		buffer:          buf,
		availableChunks: h.chunksPerPage,
		chunkCount:      h.chunksPerPage,
		head:            &node{chunkCount: h.chunksPerPage, isFree: true},
	}
	h.pages = append(h.pages, p)
	return p, nil
}

// PageCount reports how many pages have been allocated so far, for tests
// and diagnostics.
func (h *Heap) PageCount() int {
	return len(h.pages)
}

// IsPageFullyFree reports whether page index i's node list is a single
// free node spanning the whole page — the post-condition BufferHeap tests
// check after releasing every section.
func (h *Heap) IsPageFullyFree(i int) bool {
	if i < 0 || i >= len(h.pages) {
		return false
	}
	p := h.pages[i]
	return p.head != nil && p.head.next == nil && p.head.isFree && p.head.chunkCount == p.chunkCount
}
