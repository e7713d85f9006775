package node

import (
	"errors"
	"fmt"

	"github.com/dronebus-protocol/dronebus-go/pkg/transport"
)

// Node errors.
var (
	// ErrNodeClosed indicates an operation on a node after Close.
	ErrNodeClosed = errors.New("node is closed")

	// ErrEndpointClosed indicates an operation on a closed handle.
	ErrEndpointClosed = errors.New("endpoint is closed")

	// ErrPoolExhausted indicates an endpoint allocation did not fit in
	// the node's memory pool.
	ErrPoolExhausted = errors.New("node memory pool exhausted")

	// ErrPortInUse indicates a service port that already has a server.
	ErrPortInUse = errors.New("service port already served")

	// ErrNilCallback indicates a factory call without a callback.
	ErrNilCallback = errors.New("callback is nil")

	// ErrAnonymousNode indicates a service call from a node with no ID.
	ErrAnonymousNode = errors.New("node ID is not set")

	// ErrInvalidServerID indicates a service call addressed to node 0.
	ErrInvalidServerID = errors.New("invalid server node ID")
)

// Numeric statuses carried by InitializationError for failures that do not
// originate in the transport. Transport failures keep their own codes.
const (
	StatusInvalidParam = -2
	StatusOutOfMemory  = -3
)

// ConfigurationError reports an interface name that could not be attached
// during node construction. Construction aborts entirely; no partial node
// is returned.
type ConfigurationError struct {
	// Interface is the name that failed to attach.
	Interface string

	// Err is the underlying attach failure.
	Err error
}

// Error names the failing interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("failed to add interface %q: %v", e.Interface, e.Err)
}

// Unwrap returns the underlying attach failure.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// InitializationError reports an endpoint that failed to start or
// initialize. It carries the data-type name and the underlying numeric
// status so callers can branch on the failure kind.
type InitializationError struct {
	// DataType is the full data-type name of the endpoint.
	DataType string

	// Status is the underlying numeric status code.
	Status int

	// Err is the underlying failure.
	Err error
}

// Error mirrors the driver-layer "init failure [status]" form.
func (e *InitializationError) Error() string {
	return fmt.Sprintf("%s init failure [%d]: %v", e.DataType, e.Status, e.Err)
}

// Unwrap returns the underlying failure.
func (e *InitializationError) Unwrap() error {
	return e.Err
}

// statusOf maps an error to the numeric status carried by
// InitializationError. Transport statuses pass through unchanged.
func statusOf(err error) int {
	var se *transport.StatusError
	switch {
	case errors.As(err, &se):
		return se.Code
	case errors.Is(err, transport.ErrClosed):
		return transport.StatusClosed
	case errors.Is(err, ErrPoolExhausted):
		return StatusOutOfMemory
	default:
		return StatusInvalidParam
	}
}

// initError wraps err into an InitializationError for data type name.
func initError(name string, err error) error {
	return &InitializationError{DataType: name, Status: statusOf(err), Err: err}
}
