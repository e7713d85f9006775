// Package clock provides the clock source capability consumed by the node
// and its transport stack.
//
// A Source pairs a monotonic reading (used for all scheduling decisions)
// with an adjustable wall-time reading (used for frame timestamps). The
// adjustment mode is fixed at construction: a passive clock only observes
// the host clock, an active clock applies a private offset so bus time can
// be tracked without touching the host clock.
//
// ManualClock is a fully controllable implementation for tests and
// simulations.
package clock
