// Package transport defines the frame-transport capability consumed by the
// node, and the transport stack that pairs a transport with the clock it is
// bound to.
//
// The package does not implement a physical driver. Real deployments supply
// their own FrameTransport; the in-process memory bus provided here exists
// so nodes can be exercised without hardware, and is what the node factory
// helpers attach to by interface name.
//
// # Stack ownership
//
// A Stack owns exactly one clock source and one transport bound to that
// clock. The transport never outlives the clock: both share the Stack's
// lifetime and are torn down together by Close.
package transport
