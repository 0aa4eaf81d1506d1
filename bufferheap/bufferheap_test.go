package bufferheap

import (
	"testing"

	"github.com/kestrelgfx/corerender/fakegapi"
	"github.com/kestrelgfx/corerender/gapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeap_AllocateRoundsUpToChunk(t *testing.T) {
	dev := fakegapi.New()
	h := New(dev, gapi.BufferUsageStorage, 64)

	s, err := h.AllocateSection(1)
	require.NoError(t, err)
	assert.Equal(t, ChunkSize, s.Size)
	assert.Equal(t, gapi.MemorySize(0), s.Offset)
	assert.Equal(t, 1, h.PageCount())
}

func TestHeap_SplitsRemainderAsFreeNode(t *testing.T) {
	dev := fakegapi.New()
	h := New(dev, gapi.BufferUsageStorage, 64)

	s1, err := h.AllocateSection(ChunkSize * 2)
	require.NoError(t, err)
	s2, err := h.AllocateSection(ChunkSize)
	require.NoError(t, err)

	assert.Equal(t, gapi.MemorySize(0), s1.Offset)
	assert.Equal(t, gapi.MemorySize(ChunkSize*2), s2.Offset)
}

func TestHeap_ReleaseMergesFollowingFreeNodes(t *testing.T) {
	dev := fakegapi.New()
	h := New(dev, gapi.BufferUsageStorage, 64)

	a, _ := h.AllocateSection(ChunkSize)
	b, _ := h.AllocateSection(ChunkSize)
	c, _ := h.AllocateSection(ChunkSize)

	h.ReleaseSection(b)
	h.ReleaseSection(a)
	h.ReleaseSection(c)

	assert.True(t, h.IsPageFullyFree(0))
}

func TestHeap_GrowsNewPageWhenNoneFit(t *testing.T) {
	dev := fakegapi.New()
	h := New(dev, gapi.BufferUsageStorage, 4)

	_, err := h.AllocateSection(ChunkSize * 4)
	require.NoError(t, err)
	assert.Equal(t, 1, h.PageCount())

	_, err = h.AllocateSection(ChunkSize)
	require.NoError(t, err)
	assert.Equal(t, 2, h.PageCount())
}

func TestHeap_RejectsOversizeRequest(t *testing.T) {
	dev := fakegapi.New()
	h := New(dev, gapi.BufferUsageStorage, 4)

	_, err := h.AllocateSection(ChunkSize * 5)
	assert.Error(t, err)
}
