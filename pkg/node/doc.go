// Package node implements the host-side adaptation layer for one bus node:
// endpoint factories backed by a bounded memory pool, the spin step that
// drives all asynchronous work, and a blocking wrapper that bridges the
// callback-driven service client into synchronous call semantics.
//
// # Threading
//
// A Node is strictly single-threaded and cooperative. Incoming frames,
// timer firings and service resolutions only make progress while Spin is
// executing on the controlling goroutine. Calling Spin or issuing requests
// concurrently from multiple goroutines is out of contract.
//
// # Ownership
//
// The Node owns its transport stack (when constructed through New or the
// MakeNode helpers) and its memory pool. Endpoint handles are owned by the
// caller: the Node keeps only the dispatch registration, which the handle's
// Close method drops. Close is idempotent on every handle.
//
// # Typical usage
//
//	n, err := node.MakeNodeAuto([]string{"ifA"})
//	if err != nil { ... }
//	defer n.Close()
//	n.SetID(42)
//
//	sub, err := node.NewSubscriber(n, func(m demo.Status) { ... })
//	if err != nil { ... }
//	defer sub.Close()
//
//	for {
//	    if err := n.Spin(100 * time.Millisecond); err != nil { ... }
//	}
package node
