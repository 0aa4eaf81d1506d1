// Package statistics tracks frame pacing and per-stage GPU timing:
// StatisticManager reads back named GPU timestamp regions per job, and
// FrameClock tracks wall-clock dt and a smoothed frames-per-second figure,
// generalized from Gekko3D-gekko's mod_time.go timeSystem.
package statistics

import "time"

// FrameClock tracks wall-clock frame pacing: delta time, frame count, and
// a smoothed FPS figure. Mirrors mod_time.go's Time/timeSystem pair, with
// FPS added since the end-to-end startup scenario asserts
// FramesPerSecond > 0 after one second of frames.
type FrameClock struct {
	last       time.Time
	started    bool
	Dt         time.Duration
	FrameCount uint64

	windowStart time.Time
	windowCount uint64
	fps         float64
}

// NewFrameClock returns a clock ready to start ticking on the first Tick
// call.
func NewFrameClock() *FrameClock {
	return &FrameClock{}
}

// Tick records the passage of one frame, called once per RenderFrame. dt
// is clamped to a 10fps-equivalent maximum (100ms) the same way
// timeSystem clamps physics dt, so a debugger-induced hitch or a slow
// first frame does not report a misleadingly long single-frame dt.
func (c *FrameClock) Tick() {
	now := time.Now()
	if !c.started {
		c.last = now
		c.windowStart = now
		c.started = true
		return
	}

	dt := now.Sub(c.last)
	const maxDt = 100 * time.Millisecond
	if dt > maxDt {
		dt = maxDt
	}
	c.Dt = dt
	c.last = now
	c.FrameCount++
	c.windowCount++

	if elapsed := now.Sub(c.windowStart); elapsed >= time.Second {
		c.fps = float64(c.windowCount) / elapsed.Seconds()
		c.windowCount = 0
		c.windowStart = now
	}
}

// FramesPerSecond reports the most recently completed one-second window's
// average frame rate. It is 0 until at least one full window has elapsed.
func (c *FrameClock) FramesPerSecond() float64 { return c.fps }
