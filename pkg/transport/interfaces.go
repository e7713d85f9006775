package transport

import (
	"errors"
	"fmt"
	"time"
)

// Transport status codes. Negative values are errors; they are preserved
// end to end so callers that branch on the exact code still can.
const (
	StatusOK               = 0
	StatusClosed           = -1
	StatusUnknownInterface = -2
	StatusNoInterfaces     = -3
	StatusTxTimeout        = -4
	StatusFrameTooLarge    = -5
)

// Transport errors. StatusError wraps these so callers can branch with
// errors.Is while still reading the numeric code with errors.As.
var (
	ErrClosed           = errors.New("transport closed")
	ErrUnknownInterface = errors.New("unknown interface")
	ErrNoInterfaces     = errors.New("no interfaces attached")
	ErrTxTimeout        = errors.New("transmit deadline expired")
	ErrFrameTooLarge    = errors.New("frame payload too large")
)

// StatusError is a transport failure carrying the raw negative status code
// reported by the driver layer.
type StatusError struct {
	// Op is the failing operation ("send", "receive", "add interface").
	Op string

	// Code is the negative status code.
	Code int

	// Err is the sentinel describing the failure.
	Err error
}

// Error returns the operation, sentinel and code.
func (e *StatusError) Error() string {
	return fmt.Sprintf("transport %s: %v [%d]", e.Op, e.Err, e.Code)
}

// Unwrap returns the sentinel error.
func (e *StatusError) Unwrap() error {
	return e.Err
}

// FrameTransport is the transport capability consumed by the node.
//
// Send and Receive are not required to be safe for concurrent use from
// multiple goroutines driving the same node; the node runtime is strictly
// single-threaded. Implementations must however tolerate frames being
// delivered by peers on other goroutines.
type FrameTransport interface {
	// AddInterface attaches one physical interface by name. There is no
	// partial recovery: a caller that sees an error abandons the whole
	// stack.
	AddInterface(name string) error

	// Interfaces returns the attached interface names in attach order.
	Interfaces() []string

	// Send transmits a frame on every attached interface. The frame is
	// dropped with ErrTxTimeout if it cannot be sent before deadline; a
	// zero deadline means no limit.
	Send(f Frame, deadline time.Time) error

	// Receive waits up to timeout for the next reassembled frame.
	// The second result is false if the timeout elapsed with no frame;
	// that is not an error.
	Receive(timeout time.Duration) (Frame, bool, error)

	// Closed reports whether the transport has been shut down.
	Closed() bool

	// Close shuts the transport down and detaches all interfaces.
	// It is safe to call Close multiple times.
	Close() error
}
