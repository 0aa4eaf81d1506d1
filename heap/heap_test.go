package heap

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocator_SimpleRoundTrip(t *testing.T) {
	a := New(1024)
	off, ok := a.Allocate(128)
	require.True(t, ok)
	assert.Equal(t, uint64(0), off)

	off2, ok := a.Allocate(128)
	require.True(t, ok)
	assert.Equal(t, uint64(128), off2)

	a.Free(Area{Offset: off, Size: 128})
	a.Free(Area{Offset: off2, Size: 128})

	assert.Equal(t, []Area{{Offset: 0, Size: 1024}}, a.FreeList())
}

func TestAllocator_FailsWhenExhausted(t *testing.T) {
	a := New(256)
	_, ok := a.Allocate(256)
	require.True(t, ok)

	_, ok = a.Allocate(1)
	assert.False(t, ok)
}

func TestAllocator_CoalescesOutOfOrderFrees(t *testing.T) {
	a := New(300)
	o1, _ := a.Allocate(100)
	o2, _ := a.Allocate(100)
	o3, _ := a.Allocate(100)

	// Free both edges first (last, then first), then the middle, which
	// must coalesce with both neighbours.
	a.Free(Area{Offset: o3, Size: 100})
	a.Free(Area{Offset: o1, Size: 100})
	a.Free(Area{Offset: o2, Size: 100})

	assert.Equal(t, []Area{{Offset: 0, Size: 300}}, a.FreeList())
}

// TestAllocator_Fuzz mirrors the original HeapAllocatorTest.Default: random
// interleaved allocate/free sequences must preserve total-size conservation
// and the no-adjacent-free-entries invariant at every observation point.
func TestAllocator_Fuzz(t *testing.T) {
	const capacity = 1 << 14
	rng := rand.New(rand.NewSource(2000))
	a := New(capacity)

	type liveAlloc struct {
		offset, size uint64
	}
	var allocations []liveAlloc

	for i := 0; i < 500; i++ {
		size := uint64(1 + rng.Intn(1024))
		offset, ok := a.Allocate(size)
		if ok {
			allocations = append(allocations, liveAlloc{offset: offset, size: size})
		}

		if rng.Intn(4) == 0 && len(allocations) > 0 {
			idx := rng.Intn(len(allocations))
			victim := allocations[idx]
			a.Free(Area{Offset: victim.offset, Size: victim.size})
			allocations = append(allocations[:idx], allocations[idx+1:]...)
		}

		var total uint64
		for _, area := range a.FreeList() {
			total += area.Size
		}
		for _, live := range allocations {
			total += live.size
		}
		require.Equal(t, uint64(capacity), total, "size conservation broken at iteration %d", i)

		freeList := a.FreeList()
		for j := 1; j < len(freeList); j++ {
			require.Less(t, freeList[j-1].Offset+freeList[j-1].Size, freeList[j].Offset,
				"adjacent free-list entries at iteration %d", i)
		}
	}
}
