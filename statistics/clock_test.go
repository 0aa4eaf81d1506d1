package statistics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrameClock_FirstTickDoesNotAdvanceCounters(t *testing.T) {
	c := NewFrameClock()
	c.Tick()
	assert.Equal(t, uint64(0), c.FrameCount)
	assert.Equal(t, time.Duration(0), c.Dt)
}

func TestFrameClock_FramesPerSecondAfterOneSecond(t *testing.T) {
	c := NewFrameClock()
	c.Tick()
	c.windowStart = c.windowStart.Add(-1100 * time.Millisecond)

	for i := 0; i < 10; i++ {
		c.Tick()
	}

	assert.Greater(t, c.FramesPerSecond(), 0.0)
	assert.Equal(t, uint64(10), c.FrameCount)
}

func TestFrameClock_ClampsLongDt(t *testing.T) {
	c := NewFrameClock()
	c.Tick()
	c.last = c.last.Add(-5 * time.Second)
	c.Tick()

	assert.LessOrEqual(t, c.Dt, 100*time.Millisecond)
}
