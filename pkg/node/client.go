package node

import (
	"fmt"
	"time"

	"github.com/dronebus-protocol/dronebus-go/pkg/datatype"
	"github.com/dronebus-protocol/dronebus-go/pkg/log"
	"github.com/dronebus-protocol/dronebus-go/pkg/transport"
)

// DefaultRequestTimeout is how long a service call stays pending before it
// resolves as failed.
const DefaultRequestTimeout = time.Second

// Result is the resolution of one service call. Succeeded is true only
// when a response frame arrived and decoded before the request timeout.
type Result[Resp any] struct {
	// ServerNodeID is the node the request was addressed to.
	ServerNodeID transport.NodeID

	// Response is the decoded response, zero-valued on failure.
	Response Resp

	// Succeeded reports whether the call fully succeeded.
	Succeeded bool
}

// ServiceClient issues requests of type Req and resolves responses of type
// Resp through a callback during Spin. At most one call is outstanding;
// issuing a new call cancels the previous one.
type ServiceClient[Req, Resp datatype.Message] struct {
	node           *Node
	desc           datatype.Descriptor
	cb             func(Result[Resp])
	requestTimeout time.Duration
	key            *pendingKey
	closed         bool
}

// NewServiceClient allocates and initializes a service client with cb
// attached. On failure it returns an InitializationError carrying the
// data-type name and status.
func NewServiceClient[Req, Resp datatype.Message](n *Node, cb func(Result[Resp])) (*ServiceClient[Req, Resp], error) {
	d := datatype.DescriptorOf[Req]()
	if err := n.checkEndpoint(d, datatype.KindService); err != nil {
		return nil, initError(d.Name, err)
	}
	if err := n.pool.allocate(endpointCost); err != nil {
		return nil, initError(d.Name, err)
	}

	n.endpoints++
	return &ServiceClient[Req, Resp]{
		node:           n,
		desc:           d,
		cb:             cb,
		requestTimeout: DefaultRequestTimeout,
	}, nil
}

// Call issues a request to server. The outcome arrives through the
// callback during a later Spin; a nil return means only that the request
// was issued. Transport failures keep their raw status code.
func (c *ServiceClient[Req, Resp]) Call(server transport.NodeID, req Req) error {
	if c.closed {
		return ErrEndpointClosed
	}
	if c.node.closed {
		return ErrNodeClosed
	}
	if c.node.id == 0 {
		return ErrAnonymousNode
	}
	if server == 0 {
		return ErrInvalidServerID
	}

	c.Cancel()

	payload, err := datatype.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.desc.Name, err)
	}

	tid := c.node.nextTransferID(c.desc.PortID)
	key := pendingKey{port: c.desc.PortID, server: server, transfer: tid}
	c.node.pending[key] = &pendingCall{
		deadline: c.node.clk.Monotonic() + c.requestTimeout,
		onFrame: func(f transport.Frame) {
			c.key = nil
			c.resolve(server, tid, f)
		},
		onTimeout: func() {
			c.key = nil
			c.resolveTimeout(server, tid)
		},
	}
	c.key = &key

	f := transport.Frame{
		Priority:   transport.PriorityNormal,
		Kind:       transport.KindRequest,
		PortID:     c.desc.PortID,
		Source:     c.node.id,
		Dest:       server,
		TransferID: tid,
		Payload:    payload,
	}
	deadline := c.node.clk.Now().Add(c.desc.DefaultTxTimeout())
	if err := c.node.tr.Send(f, deadline); err != nil {
		delete(c.node.pending, key)
		c.key = nil
		c.node.logError("call "+c.desc.Name, err)
		return err
	}

	c.node.logFrame(log.DirectionOut, f)
	c.node.logCall(c.desc.PortID, server, tid, nil)
	return nil
}

// resolve decodes the response frame and fires the callback.
func (c *ServiceClient[Req, Resp]) resolve(server transport.NodeID, tid uint8, f transport.Frame) {
	var resp Resp
	succeeded := true
	if err := datatype.Unmarshal(f.Payload, &resp); err != nil {
		c.node.logError("decode "+c.desc.Name, err)
		var zero Resp
		resp = zero
		succeeded = false
	}

	c.node.logCall(c.desc.PortID, server, tid, &succeeded)
	if c.cb != nil {
		c.cb(Result[Resp]{ServerNodeID: server, Response: resp, Succeeded: succeeded})
	}
}

// resolveTimeout fires the callback with a failed, zero-valued result.
func (c *ServiceClient[Req, Resp]) resolveTimeout(server transport.NodeID, tid uint8) {
	succeeded := false
	c.node.logCall(c.desc.PortID, server, tid, &succeeded)
	if c.cb != nil {
		var zero Resp
		c.cb(Result[Resp]{ServerNodeID: server, Response: zero, Succeeded: false})
	}
}

// IsPending reports whether a call is outstanding.
func (c *ServiceClient[Req, Resp]) IsPending() bool {
	return c.key != nil
}

// Cancel drops the outstanding call, if any, without firing the callback.
func (c *ServiceClient[Req, Resp]) Cancel() {
	if c.key != nil {
		delete(c.node.pending, *c.key)
		c.key = nil
	}
}

// DataType returns the service data-type descriptor.
func (c *ServiceClient[Req, Resp]) DataType() datatype.Descriptor {
	return c.desc
}

// RequestTimeout returns the configured request timeout.
func (c *ServiceClient[Req, Resp]) RequestTimeout() time.Duration {
	return c.requestTimeout
}

// SetRequestTimeout bounds how long the next calls stay pending.
func (c *ServiceClient[Req, Resp]) SetRequestTimeout(d time.Duration) {
	if d > 0 {
		c.requestTimeout = d
	}
}

// SetCallback replaces the resolution callback.
func (c *ServiceClient[Req, Resp]) SetCallback(cb func(Result[Resp])) {
	c.cb = cb
}

// Close cancels any outstanding call, deregisters the client and returns
// its pool reservation. It is safe to call Close multiple times.
func (c *ServiceClient[Req, Resp]) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if !c.node.closed {
		c.Cancel()
		c.node.pool.release(endpointCost)
		c.node.endpoints--
	}
	return nil
}
