package node

import (
	"github.com/dronebus-protocol/dronebus-go/pkg/datatype"
	"github.com/dronebus-protocol/dronebus-go/pkg/log"
	"github.com/dronebus-protocol/dronebus-go/pkg/transport"
)

// ServiceServer answers requests of type Req with responses of type Resp
// on the service port of Req's descriptor. One server per port.
type ServiceServer[Req, Resp datatype.Message] struct {
	node    *Node
	desc    datatype.Descriptor
	handler func(Req) (Resp, error)
	closed  bool
}

// NewServiceServer allocates a service server and starts it with handler.
// A handler error suppresses the response; the caller's request then
// resolves by timeout. On failure it returns an InitializationError
// carrying the data-type name and status.
func NewServiceServer[Req, Resp datatype.Message](n *Node, handler func(Req) (Resp, error)) (*ServiceServer[Req, Resp], error) {
	d := datatype.DescriptorOf[Req]()
	if handler == nil {
		return nil, initError(d.Name, ErrNilCallback)
	}
	if err := n.checkEndpoint(d, datatype.KindService); err != nil {
		return nil, initError(d.Name, err)
	}
	if _, exists := n.servers[d.PortID]; exists {
		return nil, initError(d.Name, ErrPortInUse)
	}
	if err := n.pool.allocate(endpointCost); err != nil {
		return nil, initError(d.Name, err)
	}

	s := &ServiceServer[Req, Resp]{node: n, desc: d, handler: handler}
	n.servers[d.PortID] = &serverEntry{handle: s.handle}
	n.endpoints++
	return s, nil
}

// handle decodes one request frame, invokes the handler and sends the
// response back to the requester under the same transfer ID.
func (s *ServiceServer[Req, Resp]) handle(f transport.Frame) {
	var req Req
	if err := datatype.Unmarshal(f.Payload, &req); err != nil {
		s.node.logError("decode "+s.desc.Name, err)
		return
	}

	resp, err := s.handler(req)
	if err != nil {
		s.node.logError("serve "+s.desc.Name, err)
		return
	}

	payload, err := datatype.Marshal(resp)
	if err != nil {
		s.node.logError("encode "+s.desc.Name, err)
		return
	}

	out := transport.Frame{
		Priority:   f.Priority,
		Kind:       transport.KindResponse,
		PortID:     s.desc.PortID,
		Source:     s.node.id,
		Dest:       f.Source,
		TransferID: f.TransferID,
		Payload:    payload,
	}
	deadline := s.node.clk.Now().Add(s.desc.DefaultTxTimeout())
	if err := s.node.tr.Send(out, deadline); err != nil {
		s.node.logError("respond "+s.desc.Name, err)
		return
	}
	s.node.logFrame(log.DirectionOut, out)
}

// DataType returns the served data-type descriptor.
func (s *ServiceServer[Req, Resp]) DataType() datatype.Descriptor {
	return s.desc
}

// Close deregisters the server and returns its pool reservation.
// It is safe to call Close multiple times.
func (s *ServiceServer[Req, Resp]) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if !s.node.closed {
		delete(s.node.servers, s.desc.PortID)
		s.node.pool.release(endpointCost)
		s.node.endpoints--
	}
	return nil
}
