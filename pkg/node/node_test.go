package node

import (
	"errors"
	"testing"
	"time"

	"github.com/dronebus-protocol/dronebus-go/pkg/clock"
	"github.com/dronebus-protocol/dronebus-go/pkg/datatype"
	"github.com/dronebus-protocol/dronebus-go/pkg/log"
	"github.com/dronebus-protocol/dronebus-go/pkg/transport"
)

// Test data types.

type statusMsg struct {
	Seq uint32 `cbor:"1,keyasint"`
}

func (statusMsg) DataType() datatype.Descriptor {
	return datatype.Descriptor{Name: "test.Status", Kind: datatype.KindMessage, PortID: 100}
}

type echoRequest struct {
	Text string `cbor:"1,keyasint"`
}

func (echoRequest) DataType() datatype.Descriptor {
	return datatype.Descriptor{Name: "test.Echo", Kind: datatype.KindService, PortID: 200}
}

type echoResponse struct {
	Text string `cbor:"1,keyasint"`
}

func (echoResponse) DataType() datatype.Descriptor {
	return datatype.Descriptor{Name: "test.Echo", Kind: datatype.KindService, PortID: 200}
}

// newTestNode builds a node on a private bus segment with logging off.
func newTestNode(t *testing.T, bus *transport.Bus, id transport.NodeID, opts ...Option) *Node {
	t.Helper()
	opts = append([]Option{WithLogger(log.NoopLogger{}), WithID(id)}, opts...)
	n, err := MakeNodeOnBus(bus, []string{"ifA"}, clock.ModeAuto, opts...)
	if err != nil {
		t.Fatalf("MakeNodeOnBus: %v", err)
	}
	t.Cleanup(func() { n.Close() })
	return n
}

func newTestBus(t *testing.T) *transport.Bus {
	t.Helper()
	bus := transport.NewBus()
	bus.AddSegment("ifA")
	return bus
}

func TestMakeNode_Success(t *testing.T) {
	bus := transport.NewBus()
	bus.AddSegment("ifA")
	bus.AddSegment("ifB")

	n, err := MakeNodeOnBus(bus, []string{"ifA", "ifB"}, clock.ModePassive, WithLogger(log.NoopLogger{}))
	if err != nil {
		t.Fatalf("MakeNodeOnBus: %v", err)
	}
	defer n.Close()

	ifaces := n.Transport().Interfaces()
	if len(ifaces) != 2 || ifaces[0] != "ifA" || ifaces[1] != "ifB" {
		t.Errorf("unexpected interfaces: %v", ifaces)
	}
	if n.Clock().Mode() != clock.ModePassive {
		t.Errorf("clock mode: %v", n.Clock().Mode())
	}
	if n.UID() == "" {
		t.Error("node has no UID")
	}
}

func TestMakeNode_FailedInterfaceAbortsConstruction(t *testing.T) {
	bus := transport.NewBus()
	bus.AddSegment("ifA")

	n, err := MakeNodeOnBus(bus, []string{"ifA", "ifB"}, clock.ModeAuto)
	if n != nil {
		t.Fatal("node produced despite interface failure")
	}

	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if ce.Interface != "ifB" {
		t.Errorf("wrong interface named: %q", ce.Interface)
	}
	if !errors.Is(err, transport.ErrUnknownInterface) {
		t.Errorf("cause not preserved: %v", err)
	}
}

func TestSubscriber_InjectedFramesInOrder(t *testing.T) {
	bus := newTestBus(t)
	n := newTestNode(t, bus, 0)

	var got []uint32
	sub, err := NewSubscriber(n, func(m statusMsg) { got = append(got, m.Seq) })
	if err != nil {
		t.Fatalf("NewSubscriber: %v", err)
	}
	defer sub.Close()

	for i := uint32(0); i < 3; i++ {
		payload, err := datatype.Marshal(statusMsg{Seq: i})
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		err = bus.Inject("ifA", transport.Frame{
			Kind:    transport.KindMessage,
			PortID:  100,
			Source:  9,
			Payload: payload,
		})
		if err != nil {
			t.Fatalf("Inject %d: %v", i, err)
		}
	}

	if err := n.Spin(20 * time.Millisecond); err != nil {
		t.Fatalf("Spin: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected exactly 3 callback invocations, got %d", len(got))
	}
	for i, seq := range got {
		if seq != uint32(i) {
			t.Errorf("callback %d out of order: seq %d", i, seq)
		}
	}
}

func TestPublishSubscribe_EndToEnd(t *testing.T) {
	bus := newTestBus(t)
	sender := newTestNode(t, bus, 1)
	receiver := newTestNode(t, bus, 2)

	var got []uint32
	sub, err := NewSubscriber(receiver, func(m statusMsg) { got = append(got, m.Seq) })
	if err != nil {
		t.Fatalf("NewSubscriber: %v", err)
	}
	defer sub.Close()

	pub, err := NewPublisher[statusMsg](sender)
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	defer pub.Close()

	if pub.TxTimeout() != datatype.DefaultTxTimeout {
		t.Errorf("tx timeout default: %v", pub.TxTimeout())
	}
	if err := pub.Publish(statusMsg{Seq: 7}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := receiver.Spin(20 * time.Millisecond); err != nil {
		t.Fatalf("Spin: %v", err)
	}

	if len(got) != 1 || got[0] != 7 {
		t.Errorf("expected [7], got %v", got)
	}
}

func TestFactory_PoolExhausted(t *testing.T) {
	bus := newTestBus(t)
	n := newTestNode(t, bus, 1, WithPoolSize(100))

	sub, err := NewSubscriber(n, func(statusMsg) {})
	if sub != nil {
		t.Fatal("subscriber produced despite pool exhaustion")
	}

	var ie *InitializationError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InitializationError, got %v", err)
	}
	if ie.DataType != "test.Status" {
		t.Errorf("wrong data type: %q", ie.DataType)
	}
	if ie.Status != StatusOutOfMemory {
		t.Errorf("wrong status: %d", ie.Status)
	}
	if !errors.Is(err, ErrPoolExhausted) {
		t.Errorf("cause not branchable: %v", err)
	}
	if n.LiveEndpoints() != 0 {
		t.Errorf("failed factory left %d live endpoints", n.LiveEndpoints())
	}
	if n.PoolUsed() != 0 {
		t.Errorf("failed factory left pool bytes reserved: %d", n.PoolUsed())
	}
}

func TestFactory_NilCallback(t *testing.T) {
	bus := newTestBus(t)
	n := newTestNode(t, bus, 1)

	_, err := NewSubscriber[statusMsg](n, nil)
	if !errors.Is(err, ErrNilCallback) {
		t.Errorf("expected ErrNilCallback, got %v", err)
	}

	_, err = NewServiceServer[echoRequest, echoResponse](n, nil)
	if !errors.Is(err, ErrNilCallback) {
		t.Errorf("server: expected ErrNilCallback, got %v", err)
	}
}

func TestFactory_KindMismatch(t *testing.T) {
	bus := newTestBus(t)
	n := newTestNode(t, bus, 1)

	// A service type cannot be subscribed to as a message.
	_, err := NewSubscriber(n, func(echoRequest) {})
	if !errors.Is(err, datatype.ErrInvalidKind) {
		t.Errorf("expected ErrInvalidKind, got %v", err)
	}

	var ie *InitializationError
	if !errors.As(err, &ie) || ie.Status != StatusInvalidParam {
		t.Errorf("expected status %d, got %v", StatusInvalidParam, err)
	}
}

func TestServiceServer_DuplicatePort(t *testing.T) {
	bus := newTestBus(t)
	n := newTestNode(t, bus, 1)

	handler := func(req echoRequest) (echoResponse, error) {
		return echoResponse{Text: req.Text}, nil
	}

	first, err := NewServiceServer(n, handler)
	if err != nil {
		t.Fatalf("first server: %v", err)
	}
	defer first.Close()

	_, err = NewServiceServer(n, handler)
	if !errors.Is(err, ErrPortInUse) {
		t.Errorf("expected ErrPortInUse, got %v", err)
	}
	if n.LiveEndpoints() != 1 {
		t.Errorf("live endpoints after failed factory: %d", n.LiveEndpoints())
	}
}

func TestFactory_TransportNotReady(t *testing.T) {
	bus := newTestBus(t)
	n := newTestNode(t, bus, 1)
	n.Transport().Close()

	_, err := NewPublisher[statusMsg](n)
	if !errors.Is(err, transport.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}

	var ie *InitializationError
	if !errors.As(err, &ie) || ie.Status != transport.StatusClosed {
		t.Errorf("expected status %d, got %v", transport.StatusClosed, err)
	}
}

func TestEndpointClose_ReleasesPool(t *testing.T) {
	bus := newTestBus(t)
	n := newTestNode(t, bus, 1)

	sub, err := NewSubscriber(n, func(statusMsg) {})
	if err != nil {
		t.Fatalf("NewSubscriber: %v", err)
	}
	if n.PoolUsed() == 0 || n.LiveEndpoints() != 1 {
		t.Fatalf("endpoint not accounted: used=%d live=%d", n.PoolUsed(), n.LiveEndpoints())
	}

	if err := sub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if n.PoolUsed() != 0 || n.LiveEndpoints() != 0 {
		t.Errorf("close did not deregister: used=%d live=%d", n.PoolUsed(), n.LiveEndpoints())
	}
}

func TestNodeClose_Idempotent(t *testing.T) {
	bus := newTestBus(t)
	n := newTestNode(t, bus, 1)

	sub, err := NewSubscriber(n, func(statusMsg) {})
	if err != nil {
		t.Fatalf("NewSubscriber: %v", err)
	}

	if err := n.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := n.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	// Handle close after node close is a no-op, not a panic.
	if err := sub.Close(); err != nil {
		t.Errorf("handle Close after node Close: %v", err)
	}

	if err := n.Spin(time.Millisecond); !errors.Is(err, ErrNodeClosed) {
		t.Errorf("Spin after Close: expected ErrNodeClosed, got %v", err)
	}
	if _, err := NewSubscriber(n, func(statusMsg) {}); !errors.Is(err, ErrNodeClosed) {
		t.Errorf("factory after Close: expected ErrNodeClosed, got %v", err)
	}
}

func TestServiceClient_RequiresNodeID(t *testing.T) {
	bus := newTestBus(t)
	n := newTestNode(t, bus, 0)

	c, err := NewServiceClient[echoRequest, echoResponse](n, func(Result[echoResponse]) {})
	if err != nil {
		t.Fatalf("NewServiceClient: %v", err)
	}
	defer c.Close()

	if err := c.Call(2, echoRequest{Text: "x"}); !errors.Is(err, ErrAnonymousNode) {
		t.Errorf("expected ErrAnonymousNode, got %v", err)
	}
	if err := func() error { n.SetID(1); return c.Call(0, echoRequest{}) }(); !errors.Is(err, ErrInvalidServerID) {
		t.Errorf("expected ErrInvalidServerID, got %v", err)
	}
}

func TestServiceClient_NewCallCancelsPrevious(t *testing.T) {
	bus := newTestBus(t)
	n := newTestNode(t, bus, 1)

	c, err := NewServiceClient[echoRequest, echoResponse](n, func(Result[echoResponse]) {})
	if err != nil {
		t.Fatalf("NewServiceClient: %v", err)
	}
	defer c.Close()

	if err := c.Call(2, echoRequest{Text: "a"}); err != nil {
		t.Fatalf("first Call: %v", err)
	}
	if !c.IsPending() {
		t.Fatal("call not pending")
	}
	if err := c.Call(2, echoRequest{Text: "b"}); err != nil {
		t.Fatalf("second Call: %v", err)
	}
	if len(n.pending) != 1 {
		t.Errorf("previous call not cancelled: %d pending", len(n.pending))
	}

	c.Cancel()
	if c.IsPending() || len(n.pending) != 0 {
		t.Error("Cancel left the call pending")
	}
}
