package transport

import "time"

// NodeID identifies a node on the bus. Zero is reserved: message frames
// from an unconfigured node carry it as an anonymous source, and service
// frames must never use it.
type NodeID uint8

// Broadcast is the destination of message frames; they are not addressed
// to a single node.
const Broadcast NodeID = 0

// Priority is the bus arbitration priority of a frame. Lower values win.
type Priority uint8

const (
	PriorityHigh   Priority = 0
	PriorityNormal Priority = 16
	PriorityLow    Priority = 24
)

// FrameKind discriminates the three transfer kinds on the bus.
type FrameKind uint8

const (
	// KindMessage is a broadcast publication on a subject port.
	KindMessage FrameKind = iota

	// KindRequest is a service request addressed to one node.
	KindRequest

	// KindResponse is a service response addressed to the requester.
	KindResponse
)

// String returns the kind name.
func (k FrameKind) String() string {
	switch k {
	case KindMessage:
		return "MESSAGE"
	case KindRequest:
		return "REQUEST"
	case KindResponse:
		return "RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// Frame is one reassembled transfer as seen by the node. Wire-level
// fragmentation and encoding belong to the transport implementation.
type Frame struct {
	// Priority is the arbitration priority.
	Priority Priority

	// Kind discriminates message, request and response frames.
	Kind FrameKind

	// PortID is the subject ID (messages) or service ID (requests and
	// responses).
	PortID uint16

	// Source is the sending node, zero for anonymous message frames.
	Source NodeID

	// Dest is the addressed node for service frames, Broadcast for
	// message frames.
	Dest NodeID

	// TransferID pairs a response with its request.
	TransferID uint8

	// Payload is the encoded data-type payload.
	Payload []byte

	// Timestamp is the receive time, stamped by the receiving transport
	// from its bound clock. Zero on outgoing frames.
	Timestamp time.Time

	// Iface names the interface the frame arrived on. Empty on outgoing
	// frames; the transport sends on every attached interface.
	Iface string
}
