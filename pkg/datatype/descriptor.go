package datatype

import (
	"errors"
	"time"
)

// Descriptor errors.
var (
	ErrEmptyName   = errors.New("data type name is empty")
	ErrInvalidKind = errors.New("invalid data type kind")
)

// Default timing parameters applied when a descriptor leaves them zero.
const (
	// DefaultTxTimeout bounds how long an outgoing transfer may sit in
	// the transmit path before it is dropped.
	DefaultTxTimeout = 500 * time.Millisecond
)

// Kind discriminates subject (broadcast message) types from service
// (request/response) types.
type Kind uint8

const (
	// KindMessage is a broadcast message type published on a subject.
	KindMessage Kind = iota

	// KindService is a request/response service type.
	KindService
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "MESSAGE"
	case KindService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// Descriptor is the static type tag of a message or service data type.
type Descriptor struct {
	// Name is the full data-type name, e.g. "demo.LightCommand".
	Name string

	// Kind discriminates message and service types.
	Kind Kind

	// PortID is the subject ID for messages, the service ID for services.
	PortID uint16

	// TxTimeout is the default transmit timeout for this type.
	// Zero means DefaultTxTimeout.
	TxTimeout time.Duration
}

// Validate checks the descriptor fields.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return ErrEmptyName
	}
	if d.Kind != KindMessage && d.Kind != KindService {
		return ErrInvalidKind
	}
	return nil
}

// DefaultTxTimeout returns the descriptor's transmit timeout, falling back
// to the package default.
func (d Descriptor) DefaultTxTimeout() time.Duration {
	if d.TxTimeout > 0 {
		return d.TxTimeout
	}
	return DefaultTxTimeout
}

// Message is implemented by every value that can travel on the bus.
// DataType must be callable on the zero value and always return the same
// descriptor.
type Message interface {
	DataType() Descriptor
}

// DescriptorOf returns the descriptor of message type T.
func DescriptorOf[T Message]() Descriptor {
	var zero T
	return zero.DataType()
}
