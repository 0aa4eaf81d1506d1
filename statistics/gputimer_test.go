package statistics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelgfx/corerender/fakegapi"
	"github.com/kestrelgfx/corerender/gapi"
	"github.com/kestrelgfx/corerender/rendercore"
)

func TestStatisticManager_ResolveReturnsEveryDeclaredRegion(t *testing.T) {
	dev := fakegapi.New()
	regions := []string{"gbuffer", "shadowmap", "ao", "shading", "postprocess"}

	m, err := NewStatisticManager(dev, regions)
	require.NoError(t, err)
	defer m.Release()

	ctx := rendercore.NewBuildContext(dev, gapi.Resolution{Width: 8, Height: 8})
	for _, r := range regions {
		m.Begin(ctx, r)
		m.End(ctx, r)
	}

	got, err := m.Resolve()
	require.NoError(t, err)
	assert.Len(t, got, len(regions))
	for _, r := range regions {
		_, ok := got[r]
		assert.True(t, ok, "region %q missing from resolved statistics", r)
	}
}

func TestStatisticManager_UnknownRegionIsANoOp(t *testing.T) {
	dev := fakegapi.New()
	m, err := NewStatisticManager(dev, []string{"gbuffer"})
	require.NoError(t, err)
	defer m.Release()

	ctx := rendercore.NewBuildContext(dev, gapi.Resolution{Width: 8, Height: 8})

	assert.NotPanics(t, func() {
		m.Begin(ctx, "nonexistent")
		m.End(ctx, "nonexistent")
	})
}
