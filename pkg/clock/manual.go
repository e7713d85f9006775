package clock

import "time"

// ManualClock is a Source whose readings only move when told to.
// Intended for tests and simulations where timing must be deterministic.
type ManualClock struct {
	mono time.Duration
	wall time.Time
}

// NewManualClock creates a manual clock starting at the given wall time
// with a zero monotonic reading.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{wall: start}
}

// Monotonic returns the current monotonic reading.
func (c *ManualClock) Monotonic() time.Duration {
	return c.mono
}

// Now returns the current wall reading.
func (c *ManualClock) Now() time.Time {
	return c.wall
}

// Advance moves both the monotonic and wall readings forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mono += d
	c.wall = c.wall.Add(d)
}

// Adjust shifts the wall reading only, like an active system clock.
func (c *ManualClock) Adjust(delta time.Duration) error {
	c.wall = c.wall.Add(delta)
	return nil
}

// Mode reports ModeActive; a manual clock always accepts adjustments.
func (c *ManualClock) Mode() AdjustmentMode {
	return ModeActive
}

// Compile-time interface satisfaction check.
var _ Source = (*ManualClock)(nil)
