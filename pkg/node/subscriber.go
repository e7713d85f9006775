package node

import (
	"github.com/dronebus-protocol/dronebus-go/pkg/datatype"
	"github.com/dronebus-protocol/dronebus-go/pkg/transport"
)

// Subscriber receives broadcast messages of type T. The handle is owned by
// the caller; Close deregisters it from the node.
type Subscriber[T datatype.Message] struct {
	node   *Node
	desc   datatype.Descriptor
	entry  *subscriberEntry
	cb     func(T)
	closed bool
}

// NewSubscriber allocates a subscriber for T from the node's pool and
// starts it with cb. On failure it returns an InitializationError carrying
// the data-type name and status; the node is left unchanged.
func NewSubscriber[T datatype.Message](n *Node, cb func(T)) (*Subscriber[T], error) {
	d := datatype.DescriptorOf[T]()
	if cb == nil {
		return nil, initError(d.Name, ErrNilCallback)
	}
	if err := n.checkEndpoint(d, datatype.KindMessage); err != nil {
		return nil, initError(d.Name, err)
	}
	if err := n.pool.allocate(endpointCost); err != nil {
		return nil, initError(d.Name, err)
	}

	s := &Subscriber[T]{node: n, desc: d, cb: cb}
	s.entry = &subscriberEntry{deliver: s.deliver}
	n.subscribers[d.PortID] = append(n.subscribers[d.PortID], s.entry)
	n.endpoints++
	return s, nil
}

// deliver decodes one message frame and invokes the callback. Frames that
// fail to decode are dropped and logged.
func (s *Subscriber[T]) deliver(f transport.Frame) {
	cb := s.cb
	if cb == nil {
		return
	}
	var msg T
	if err := datatype.Unmarshal(f.Payload, &msg); err != nil {
		s.node.logError("decode "+s.desc.Name, err)
		return
	}
	cb(msg)
}

// DataType returns the subscribed data-type descriptor.
func (s *Subscriber[T]) DataType() datatype.Descriptor {
	return s.desc
}

// SetCallback replaces the message callback. A nil callback pauses
// delivery without deregistering.
func (s *Subscriber[T]) SetCallback(cb func(T)) {
	s.cb = cb
}

// Close deregisters the subscriber and returns its pool reservation.
// It is safe to call Close multiple times.
func (s *Subscriber[T]) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if !s.node.closed {
		s.node.removeSubscriber(s.desc.PortID, s.entry)
		s.node.pool.release(endpointCost)
		s.node.endpoints--
	}
	return nil
}
