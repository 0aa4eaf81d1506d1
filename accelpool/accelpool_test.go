package accelpool

import (
	"testing"

	"github.com/kestrelgfx/corerender/fakegapi"
	"github.com/kestrelgfx/corerender/gapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_AcquireReleaseRecycles(t *testing.T) {
	dev := fakegapi.New()
	p := New(dev)

	as1, err := p.Acquire(gapi.AccelStructureBottomLevel, 2048)
	require.NoError(t, err)
	assert.Equal(t, 0, p.FreeCount(gapi.AccelStructureBottomLevel))

	p.Release(as1)
	assert.Equal(t, 1, p.FreeCount(gapi.AccelStructureBottomLevel))

	as2, err := p.Acquire(gapi.AccelStructureBottomLevel, 2048)
	require.NoError(t, err)
	assert.Same(t, as1, as2)
	assert.Equal(t, 0, p.FreeCount(gapi.AccelStructureBottomLevel))
}

func TestPool_SeparatesByType(t *testing.T) {
	dev := fakegapi.New()
	p := New(dev)

	blas, err := p.Acquire(gapi.AccelStructureBottomLevel, 1024)
	require.NoError(t, err)
	p.Release(blas)

	_, err = p.Acquire(gapi.AccelStructureTopLevel, 1024)
	require.NoError(t, err)
	assert.Equal(t, 1, p.FreeCount(gapi.AccelStructureBottomLevel))
	assert.Equal(t, 0, p.FreeCount(gapi.AccelStructureTopLevel))
}

func TestPool_DoesNotReuseSmallerThanRequested(t *testing.T) {
	dev := fakegapi.New()
	p := New(dev)

	small, err := p.Acquire(gapi.AccelStructureBottomLevel, 512)
	require.NoError(t, err)
	p.Release(small)

	big, err := p.Acquire(gapi.AccelStructureBottomLevel, 4096)
	require.NoError(t, err)
	assert.NotSame(t, small, big)
}
