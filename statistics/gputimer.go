package statistics

import (
	"fmt"
	"time"

	"github.com/kestrelgfx/corerender/gapi"
	"github.com/kestrelgfx/corerender/rendercore"
)

// StatisticManager reads back per-stage GPU timing via one timestamp
// QueryPool, generalizing voxel_rt_profiler.go's Profiler (a fixed set of
// named time.Duration fields) to an open, caller-declared set of named
// regions — the stage list recorded into a frame's Job is fixed at
// Renderer construction time, not at compile time, so the region set must
// be too.
//
// A rendercore.Job records its commands once and replays the identical
// command stream against every in-flight frame slot's CommandList (see
// rendercore.BuildContext's doc comment), so a region's begin/end
// timestamps land in the same QueryPool regardless of which frame slot is
// executing — one pool, not one per frame slot. Resolve racing a
// still-in-flight frame's writes is the same kind of single-buffering
// simplification this engine already accepts for the culling view-uniform
// buffer; a production build would multi-buffer both the same way.
type StatisticManager struct {
	regionIndex map[string]int
	regions     []string
	pool        gapi.QueryPool
}

// NewStatisticManager creates a timestamp QueryPool sized for 2
// timestamps (begin/end) per named region in regionNames. The region set
// and order are fixed at construction; Begin/End index regions by
// position within it.
func NewStatisticManager(device gapi.Device, regionNames []string) (*StatisticManager, error) {
	m := &StatisticManager{
		regionIndex: make(map[string]int, len(regionNames)),
		regions:     append([]string(nil), regionNames...),
	}
	for i, r := range regionNames {
		m.regionIndex[r] = i
	}

	pool, err := device.CreateQueryPool(gapi.QueryKindTimestamp, uint32(len(regionNames))*2)
	if err != nil {
		return nil, fmt.Errorf("statistics: creating query pool: %w", err)
	}
	m.pool = pool
	return m, nil
}

// Begin records the start timestamp for region into ctx, the BuildContext
// a stage's Record call is recording into. A name outside the
// construction-time region set is a no-op rather than a panic, so an
// optional/disabled region can be skipped by a caller without a branch.
func (m *StatisticManager) Begin(ctx *rendercore.BuildContext, region string) {
	if idx, ok := m.regionIndex[region]; ok {
		ctx.WriteTimestamp(m.pool, uint32(idx*2))
	}
}

// End records the end timestamp for region into ctx.
func (m *StatisticManager) End(ctx *rendercore.BuildContext, region string) {
	if idx, ok := m.regionIndex[region]; ok {
		ctx.WriteTimestamp(m.pool, uint32(idx*2+1))
	}
}

// Resolve reads back the query pool and returns each region's elapsed GPU
// time. Backends report raw device timestamp ticks; this implementation
// treats a tick as one nanosecond, which holds exactly for fakegapi's
// synchronous stub and is the documented simplification for real backends
// without a queried timestamp period (see DESIGN.md).
func (m *StatisticManager) Resolve() (map[string]time.Duration, error) {
	raw, err := m.pool.Resolve()
	if err != nil {
		return nil, fmt.Errorf("statistics: resolving query pool: %w", err)
	}

	out := make(map[string]time.Duration, len(m.regions))
	for _, region := range m.regions {
		idx := m.regionIndex[region]
		begin, end := 2*idx, 2*idx+1
		if end >= len(raw) {
			continue
		}
		var elapsed uint64
		if raw[end] > raw[begin] {
			elapsed = raw[end] - raw[begin]
		}
		out[region] = time.Duration(elapsed)
	}
	return out, nil
}

// Release releases the query pool.
func (m *StatisticManager) Release() {
	if m.pool != nil {
		m.pool.Release()
	}
}
