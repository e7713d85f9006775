package clock

import (
	"errors"
	"time"
)

// Clock errors.
var (
	// ErrPassiveClock indicates an adjustment was requested on a clock
	// constructed in passive (read-only) mode.
	ErrPassiveClock = errors.New("clock is passive (read-only)")
)

// AdjustmentMode describes how the clock tracks bus time.
// Selected once at construction, immutable thereafter.
type AdjustmentMode uint8

const (
	// ModeAuto selects the preferred adjustment mode for this host.
	ModeAuto AdjustmentMode = iota

	// ModePassive reads the host clock without ever adjusting it.
	ModePassive

	// ModeActive applies adjustments to a private offset; the host
	// clock itself is never modified.
	ModeActive
)

// String returns the mode name.
func (m AdjustmentMode) String() string {
	switch m {
	case ModeAuto:
		return "AUTO"
	case ModePassive:
		return "PASSIVE"
	case ModeActive:
		return "ACTIVE"
	default:
		return "UNKNOWN"
	}
}

// DetectPreferredAdjustmentMode returns the adjustment mode that should be
// used on this host when the caller expresses no preference. Private-offset
// adjustment never requires privileges, so it is always preferred.
func DetectPreferredAdjustmentMode() AdjustmentMode {
	return ModeActive
}

// Source is the clock capability consumed by the node and transport stack.
//
// Implementations are not required to be safe for concurrent use; the node
// runtime is strictly single-threaded.
type Source interface {
	// Monotonic returns the monotonic reading since an arbitrary epoch.
	// It never goes backwards and is unaffected by Adjust.
	Monotonic() time.Duration

	// Now returns the wall-time reading with any applied adjustment.
	Now() time.Time

	// Adjust shifts the wall-time reading by delta.
	// Returns ErrPassiveClock if the clock is passive.
	Adjust(delta time.Duration) error

	// Mode returns the adjustment mode fixed at construction.
	Mode() AdjustmentMode
}

// SystemClock reads the host clock. In active mode, Adjust accumulates a
// private offset applied to Now; the host clock is never modified.
type SystemClock struct {
	mode   AdjustmentMode
	epoch  time.Time
	offset time.Duration
}

// NewSystemClock creates a system clock with the given adjustment mode.
// ModeAuto resolves to DetectPreferredAdjustmentMode.
func NewSystemClock(mode AdjustmentMode) *SystemClock {
	if mode == ModeAuto {
		mode = DetectPreferredAdjustmentMode()
	}
	return &SystemClock{
		mode:  mode,
		epoch: time.Now(),
	}
}

// Monotonic returns the time elapsed since the clock was constructed.
// The reading uses the runtime's monotonic clock, so host clock steps do
// not affect it.
func (c *SystemClock) Monotonic() time.Duration {
	return time.Since(c.epoch)
}

// Now returns the host wall time shifted by the accumulated adjustment.
func (c *SystemClock) Now() time.Time {
	return time.Now().Add(c.offset)
}

// Adjust shifts subsequent Now readings by delta.
func (c *SystemClock) Adjust(delta time.Duration) error {
	if c.mode != ModeActive {
		return ErrPassiveClock
	}
	c.offset += delta
	return nil
}

// Mode returns the adjustment mode fixed at construction.
func (c *SystemClock) Mode() AdjustmentMode {
	return c.mode
}

// Compile-time interface satisfaction check.
var _ Source = (*SystemClock)(nil)
