package node

import (
	"time"

	"github.com/dronebus-protocol/dronebus-go/pkg/datatype"
	"github.com/dronebus-protocol/dronebus-go/pkg/transport"
)

// blockingSpinSlice is the fixed spin slice used while a blocking call is
// pending.
const blockingSpinSlice = 2 * time.Millisecond

// BlockingServiceClient wraps a ServiceClient and spins the node until the
// outstanding call resolves or the node reports an error, turning the
// callback-driven client into a synchronous one without a second thread.
//
// One instance may be reused across many sequential calls; each call
// resets the recorded outcome first. The return value of Call reflects
// issuance and spin only - callers must inspect WasSuccessful separately,
// since a call that timed out still returns nil.
type BlockingServiceClient[Req, Resp datatype.Message] struct {
	client    *ServiceClient[Req, Resp]
	response  Resp
	succeeded bool
}

// NewBlockingServiceClient allocates the wrapped service client on n.
// On failure it returns the client's InitializationError.
func NewBlockingServiceClient[Req, Resp datatype.Message](n *Node) (*BlockingServiceClient[Req, Resp], error) {
	b := &BlockingServiceClient[Req, Resp]{}
	c, err := NewServiceClient[Req, Resp](n, b.record)
	if err != nil {
		return nil, err
	}
	b.client = c
	return b, nil
}

// record is the wrapped client's callback.
func (b *BlockingServiceClient[Req, Resp]) record(res Result[Resp]) {
	b.response = res.Response
	b.succeeded = res.Succeeded
}

func (b *BlockingServiceClient[Req, Resp]) reset() {
	var zero Resp
	b.response = zero
	b.succeeded = false
}

// Call issues a request to server and spins the node until the call
// resolves. If issuance fails, the error is returned without entering the
// spin loop. If a spin fails, its error is returned immediately with the
// raw status code preserved; the request timeout on the wrapped client is
// what eventually resolves a call that never receives a response.
func (b *BlockingServiceClient[Req, Resp]) Call(server transport.NodeID, req Req) error {
	b.reset()

	if err := b.client.Call(server, req); err != nil {
		return err
	}
	for b.client.IsPending() {
		if err := b.client.node.Spin(blockingSpinSlice); err != nil {
			return err
		}
	}
	return nil
}

// CallWithTimeout sets the request timeout on the wrapped client, then
// calls. The timeout setting persists for subsequent calls.
func (b *BlockingServiceClient[Req, Resp]) CallWithTimeout(server transport.NodeID, req Req, timeout time.Duration) error {
	b.client.SetRequestTimeout(timeout)
	return b.Call(server, req)
}

// WasSuccessful reports the outcome of the last resolved call. It is false
// before any call and while a call is pending.
func (b *BlockingServiceClient[Req, Resp]) WasSuccessful() bool {
	return b.succeeded
}

// Response returns the last resolved response, zero-valued before any call
// and while a call is pending.
func (b *BlockingServiceClient[Req, Resp]) Response() Resp {
	return b.response
}

// Client returns the wrapped service client for timeout configuration.
func (b *BlockingServiceClient[Req, Resp]) Client() *ServiceClient[Req, Resp] {
	return b.client
}

// Close closes the wrapped service client.
func (b *BlockingServiceClient[Req, Resp]) Close() error {
	return b.client.Close()
}
