package log

import "time"

// Event represents a node diagnostic event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// NodeUID uniquely identifies the node instance (UUID).
	NodeUID string `cbor:"2,keyasint"`

	// Direction indicates frame flow, DirectionNone for local events.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// NodeID is the bus node ID, zero while unset.
	NodeID uint8 `cbor:"6,keyasint,omitempty"`

	// Iface is the interface a frame travelled on, if any.
	Iface string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"8,keyasint,omitempty"`  // Frame send/receive
	Call        *CallEvent        `cbor:"9,keyasint,omitempty"`  // Service call lifecycle
	StateChange *StateChangeEvent `cbor:"10,keyasint,omitempty"` // Node/endpoint state
	Error       *ErrorEventData   `cbor:"11,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of frame flow.
type Direction uint8

const (
	// DirectionNone marks an event with no frame flow.
	DirectionNone Direction = 0
	// DirectionIn indicates an incoming frame.
	DirectionIn Direction = 1
	// DirectionOut indicates an outgoing frame.
	DirectionOut Direction = 2
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionNone:
		return "none"
	case DirectionIn:
		return "in"
	case DirectionOut:
		return "out"
	default:
		return "unknown"
	}
}

// Layer identifies where in the stack an event was captured.
type Layer uint8

const (
	// LayerTransport covers frame transmit and receive.
	LayerTransport Layer = 0
	// LayerNode covers spin, registration and pool events.
	LayerNode Layer = 1
	// LayerService covers service call resolution.
	LayerService Layer = 2
	// LayerClock covers clock adjustments.
	LayerClock Layer = 3
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "transport"
	case LayerNode:
		return "node"
	case LayerService:
		return "service"
	case LayerClock:
		return "clock"
	default:
		return "unknown"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryFrame is a frame send or receive.
	CategoryFrame Category = 0
	// CategoryCall is a service call issuance or resolution.
	CategoryCall Category = 1
	// CategoryState is a node or endpoint state change.
	CategoryState Category = 2
	// CategoryError is a failure at any layer.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryFrame:
		return "frame"
	case CategoryCall:
		return "call"
	case CategoryState:
		return "state"
	case CategoryError:
		return "error"
	default:
		return "unknown"
	}
}

// FrameEvent captures one frame crossing the transport boundary.
type FrameEvent struct {
	// Kind is the frame kind (message, request, response).
	Kind uint8 `cbor:"1,keyasint"`

	// PortID is the subject or service ID.
	PortID uint16 `cbor:"2,keyasint"`

	// Size is the payload size in bytes.
	Size int `cbor:"3,keyasint"`

	// TransferID pairs service requests with responses.
	TransferID uint8 `cbor:"4,keyasint,omitempty"`

	// Source and Dest are bus node IDs.
	Source uint8 `cbor:"5,keyasint,omitempty"`
	Dest   uint8 `cbor:"6,keyasint,omitempty"`
}

// CallEvent captures a service call lifecycle step.
type CallEvent struct {
	// PortID is the service ID.
	PortID uint16 `cbor:"1,keyasint"`

	// ServerNodeID is the addressed server.
	ServerNodeID uint8 `cbor:"2,keyasint"`

	// TransferID identifies the call.
	TransferID uint8 `cbor:"3,keyasint"`

	// Succeeded is set on resolution: true when a response arrived and
	// decoded, false on timeout or decode failure. Nil on issuance.
	Succeeded *bool `cbor:"4,keyasint,omitempty"`
}

// StateChangeEvent captures a node or endpoint state transition.
type StateChangeEvent struct {
	// Entity names what changed ("node", "subscriber", "timer", ...).
	Entity string `cbor:"1,keyasint"`

	// OldState and NewState are the transition endpoints.
	OldState string `cbor:"2,keyasint"`
	NewState string `cbor:"3,keyasint"`

	// Reason optionally explains the transition.
	Reason string `cbor:"4,keyasint,omitempty"`
}

// ErrorEventData captures a failure at any layer.
type ErrorEventData struct {
	// Message is the error text.
	Message string `cbor:"1,keyasint"`

	// Context describes what was being attempted.
	Context string `cbor:"2,keyasint,omitempty"`

	// Code is the raw status code when one exists.
	Code *int `cbor:"3,keyasint,omitempty"`
}
