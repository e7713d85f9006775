package node

import (
	"fmt"
	"time"

	"github.com/dronebus-protocol/dronebus-go/pkg/datatype"
	"github.com/dronebus-protocol/dronebus-go/pkg/log"
	"github.com/dronebus-protocol/dronebus-go/pkg/transport"
)

// Publisher broadcasts messages of type T on the type's subject port.
type Publisher[T datatype.Message] struct {
	node      *Node
	desc      datatype.Descriptor
	txTimeout time.Duration
	priority  transport.Priority
	closed    bool
}

// PublisherOption configures a Publisher at construction.
type PublisherOption func(*publisherOptions)

type publisherOptions struct {
	txTimeout time.Duration
	priority  transport.Priority
}

// WithTxTimeout overrides the data type's default transmit timeout.
func WithTxTimeout(d time.Duration) PublisherOption {
	return func(o *publisherOptions) {
		if d > 0 {
			o.txTimeout = d
		}
	}
}

// WithPriority sets the bus arbitration priority of published frames.
func WithPriority(p transport.Priority) PublisherOption {
	return func(o *publisherOptions) { o.priority = p }
}

// NewPublisher allocates and initializes a publisher for T. The transmit
// timeout defaults to the data type's own default. On failure it returns
// an InitializationError carrying the data-type name and status.
func NewPublisher[T datatype.Message](n *Node, opts ...PublisherOption) (*Publisher[T], error) {
	d := datatype.DescriptorOf[T]()
	if err := n.checkEndpoint(d, datatype.KindMessage); err != nil {
		return nil, initError(d.Name, err)
	}
	if err := n.pool.allocate(endpointCost); err != nil {
		return nil, initError(d.Name, err)
	}

	o := publisherOptions{
		txTimeout: d.DefaultTxTimeout(),
		priority:  transport.PriorityNormal,
	}
	for _, opt := range opts {
		opt(&o)
	}

	n.endpoints++
	return &Publisher[T]{
		node:      n,
		desc:      d,
		txTimeout: o.txTimeout,
		priority:  o.priority,
	}, nil
}

// Publish encodes msg and sends it on every attached interface. The frame
// is dropped by the transport if it cannot be sent within the transmit
// timeout.
func (p *Publisher[T]) Publish(msg T) error {
	if p.closed {
		return ErrEndpointClosed
	}
	if p.node.closed {
		return ErrNodeClosed
	}

	payload, err := datatype.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", p.desc.Name, err)
	}

	f := transport.Frame{
		Priority: p.priority,
		Kind:     transport.KindMessage,
		PortID:   p.desc.PortID,
		Source:   p.node.id,
		Dest:     transport.Broadcast,
		Payload:  payload,
	}
	deadline := p.node.clk.Now().Add(p.txTimeout)
	if err := p.node.tr.Send(f, deadline); err != nil {
		p.node.logError("publish "+p.desc.Name, err)
		return err
	}
	p.node.logFrame(log.DirectionOut, f)
	return nil
}

// DataType returns the published data-type descriptor.
func (p *Publisher[T]) DataType() datatype.Descriptor {
	return p.desc
}

// TxTimeout returns the configured transmit timeout.
func (p *Publisher[T]) TxTimeout() time.Duration {
	return p.txTimeout
}

// SetTxTimeout reconfigures the transmit timeout.
func (p *Publisher[T]) SetTxTimeout(d time.Duration) {
	if d > 0 {
		p.txTimeout = d
	}
}

// SetPriority reconfigures the bus arbitration priority.
func (p *Publisher[T]) SetPriority(pr transport.Priority) {
	p.priority = pr
}

// Close returns the publisher's pool reservation.
// It is safe to call Close multiple times.
func (p *Publisher[T]) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if !p.node.closed {
		p.node.pool.release(endpointCost)
		p.node.endpoints--
	}
	return nil
}
