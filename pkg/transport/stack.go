package transport

import (
	"github.com/dronebus-protocol/dronebus-go/pkg/clock"
)

// Stack owns a clock source and a frame transport bound to that clock.
// The two share the Stack's lifetime exactly: the transport never outlives
// the clock, and Close tears both down.
type Stack struct {
	clk clock.Source
	tr  FrameTransport
}

// NewStack builds a stack with a system clock in the given adjustment mode
// and a memory-bus transport on DefaultBus bound to it. Construction never
// fails; interfaces are attached afterwards.
func NewStack(mode clock.AdjustmentMode) *Stack {
	return NewStackOnBus(DefaultBus, mode)
}

// NewStackOnBus is NewStack on an explicit bus instead of DefaultBus.
func NewStackOnBus(bus *Bus, mode clock.AdjustmentMode) *Stack {
	clk := clock.NewSystemClock(mode)
	return &Stack{
		clk: clk,
		tr:  NewMemTransport(bus, clk),
	}
}

// NewStackWith pairs an externally built clock and transport. The caller
// must have bound the transport to the same clock.
func NewStackWith(clk clock.Source, tr FrameTransport) *Stack {
	return &Stack{clk: clk, tr: tr}
}

// Clock returns the owned clock source.
func (s *Stack) Clock() clock.Source {
	return s.clk
}

// Transport returns the owned frame transport.
func (s *Stack) Transport() FrameTransport {
	return s.tr
}

// Close shuts the transport down. The clock has no teardown of its own.
// It is safe to call Close multiple times.
func (s *Stack) Close() error {
	return s.tr.Close()
}
