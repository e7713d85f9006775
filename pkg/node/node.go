package node

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dronebus-protocol/dronebus-go/pkg/clock"
	"github.com/dronebus-protocol/dronebus-go/pkg/datatype"
	"github.com/dronebus-protocol/dronebus-go/pkg/log"
	"github.com/dronebus-protocol/dronebus-go/pkg/transport"
)

// receiveSlice bounds a single transport receive wait inside Spin, so
// timers and call timeouts are checked at least this often.
const receiveSlice = time.Millisecond

// pendingKey identifies one outstanding service call.
type pendingKey struct {
	port     uint16
	server   transport.NodeID
	transfer uint8
}

// pendingCall tracks one outstanding service call until a response frame
// arrives or the request deadline passes.
type pendingCall struct {
	deadline  time.Duration // monotonic
	onFrame   func(transport.Frame)
	onTimeout func()
}

type subscriberEntry struct {
	deliver func(transport.Frame)
}

type serverEntry struct {
	handle func(transport.Frame)
}

// Node is one participant on the bus. It owns a bounded memory pool and
// (optionally) a transport stack, and acts as the factory for endpoint
// handles. All asynchronous work progresses only inside Spin.
type Node struct {
	clk    clock.Source
	tr     transport.FrameTransport
	stack  *transport.Stack // owned; nil when drivers are supplied externally
	logger log.Logger
	uid    string
	id     transport.NodeID
	pool   *memPool

	subscribers map[uint16][]*subscriberEntry
	servers     map[uint16]*serverEntry
	pending     map[pendingKey]*pendingCall
	timers      map[*Timer]struct{}
	transferIDs map[uint16]uint8
	endpoints   int

	closed bool
}

// Option configures a Node at construction.
type Option func(*Node)

// WithLogger replaces the default stderr log sink.
func WithLogger(l log.Logger) Option {
	return func(n *Node) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithPoolSize overrides the memory pool capacity in bytes.
func WithPoolSize(bytes int) Option {
	return func(n *Node) {
		if bytes > 0 {
			n.pool = newMemPool(bytes)
		}
	}
}

// WithID sets the bus node ID at construction.
func WithID(id transport.NodeID) Option {
	return func(n *Node) { n.id = id }
}

// New constructs a Node that takes ownership of the stack: Close tears the
// stack down with the node.
func New(stack *transport.Stack, opts ...Option) *Node {
	n := newNode(stack.Clock(), stack.Transport(), opts)
	n.stack = stack
	return n
}

// NewWithDrivers constructs a Node on an externally owned clock and
// transport. The caller keeps ownership of both; the transport must be
// bound to the same clock.
func NewWithDrivers(clk clock.Source, tr transport.FrameTransport, opts ...Option) *Node {
	return newNode(clk, tr, opts)
}

func newNode(clk clock.Source, tr transport.FrameTransport, opts []Option) *Node {
	n := &Node{
		clk:         clk,
		tr:          tr,
		logger:      log.NewStderrLogger(),
		uid:         uuid.NewString(),
		pool:        newMemPool(DefaultPoolSize),
		subscribers: make(map[uint16][]*subscriberEntry),
		servers:     make(map[uint16]*serverEntry),
		pending:     make(map[pendingKey]*pendingCall),
		timers:      make(map[*Timer]struct{}),
		transferIDs: make(map[uint16]uint8),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logState("node", "", "created", "")
	return n
}

// UID returns the node instance UUID stamped into diagnostic events.
func (n *Node) UID() string {
	return n.uid
}

// ID returns the bus node ID, zero while unset.
func (n *Node) ID() transport.NodeID {
	return n.id
}

// SetID assigns the bus node ID. Service calls require a non-zero ID
// because responses route by destination.
func (n *Node) SetID(id transport.NodeID) {
	n.id = id
}

// Clock returns the node's clock source.
func (n *Node) Clock() clock.Source {
	return n.clk
}

// Transport returns the node's frame transport.
func (n *Node) Transport() transport.FrameTransport {
	return n.tr
}

// Logger returns the registered log sink.
func (n *Node) Logger() log.Logger {
	return n.logger
}

// SetLogger replaces the registered log sink. Pass log.NoopLogger{} to
// disable logging.
func (n *Node) SetLogger(l log.Logger) {
	if l != nil {
		n.logger = l
	}
}

// PoolCapacity returns the memory pool capacity in bytes.
func (n *Node) PoolCapacity() int {
	return n.pool.capacity
}

// PoolUsed returns the bytes currently reserved by endpoint handles.
func (n *Node) PoolUsed() int {
	return n.pool.used
}

// LiveEndpoints returns the number of open endpoint handles, timers
// excluded.
func (n *Node) LiveEndpoints() int {
	return n.endpoints
}

// Spin advances the node's internal scheduling for up to d, processing all
// bus-level work queued in that window: due timers, received frames and
// request timeouts. A transport receive failure aborts the spin immediately
// and is returned with its raw status code preserved.
func (n *Node) Spin(d time.Duration) error {
	if n.closed {
		return ErrNodeClosed
	}

	deadline := n.clk.Monotonic() + d
	for {
		n.fireTimers()
		n.expireCalls()

		remaining := deadline - n.clk.Monotonic()
		if remaining <= 0 {
			return nil
		}
		slice := remaining
		if slice > receiveSlice {
			slice = receiveSlice
		}

		f, ok, err := n.tr.Receive(slice)
		if err != nil {
			n.logError("spin receive", err)
			return fmt.Errorf("spin: %w", err)
		}
		if ok {
			n.dispatch(f)
		}
	}
}

// dispatch routes one received frame. Callbacks fire in the order the spin
// step discovers completed work.
func (n *Node) dispatch(f transport.Frame) {
	n.logFrame(log.DirectionIn, f)

	switch f.Kind {
	case transport.KindMessage:
		// Copy: a callback may close its own subscription.
		entries := append([]*subscriberEntry(nil), n.subscribers[f.PortID]...)
		for _, e := range entries {
			e.deliver(f)
		}

	case transport.KindRequest:
		if n.id == 0 || f.Dest != n.id {
			return
		}
		if s := n.servers[f.PortID]; s != nil {
			s.handle(f)
		}

	case transport.KindResponse:
		if n.id == 0 || f.Dest != n.id {
			return
		}
		key := pendingKey{port: f.PortID, server: f.Source, transfer: f.TransferID}
		if pc, ok := n.pending[key]; ok {
			delete(n.pending, key)
			pc.onFrame(f)
		}
	}
}

// fireTimers invokes every due timer, ordered by deadline.
func (n *Node) fireTimers() {
	now := n.clk.Monotonic()

	var due []*Timer
	for t := range n.timers {
		if t.active && now >= t.next {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].next < due[j].next })

	for _, t := range due {
		if !t.active {
			continue // stopped by an earlier callback
		}
		if t.periodic {
			t.next += t.period
			if t.next <= now {
				t.next = now + t.period
			}
		} else {
			t.active = false
			delete(n.timers, t)
		}
		t.cb(n.clk.Now())
	}
}

// expireCalls times out pending service calls whose deadline has passed.
func (n *Node) expireCalls() {
	now := n.clk.Monotonic()
	for key, pc := range n.pending {
		if now >= pc.deadline {
			delete(n.pending, key)
			pc.onTimeout()
		}
	}
}

// nextTransferID returns the next transfer ID for a service port,
// wrapping at 256.
func (n *Node) nextTransferID(port uint16) uint8 {
	id := n.transferIDs[port]
	n.transferIDs[port]++
	return id
}

// checkEndpoint validates a factory request against the node and the
// data-type descriptor.
func (n *Node) checkEndpoint(d datatype.Descriptor, kind datatype.Kind) error {
	if n.closed {
		return ErrNodeClosed
	}
	if err := d.Validate(); err != nil {
		return err
	}
	if d.Kind != kind {
		return datatype.ErrInvalidKind
	}
	if n.tr.Closed() {
		return transport.ErrClosed
	}
	return nil
}

func (n *Node) removeSubscriber(port uint16, e *subscriberEntry) {
	kept := n.subscribers[port][:0]
	for _, s := range n.subscribers[port] {
		if s != e {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		delete(n.subscribers, port)
	} else {
		n.subscribers[port] = kept
	}
}

// Close tears the node down: timers are disarmed, pending calls dropped,
// and the owned transport stack (if any) closed. Endpoint handles closed
// afterwards deregister as no-ops. It is safe to call Close multiple times.
func (n *Node) Close() error {
	if n.closed {
		return nil
	}
	n.closed = true

	for t := range n.timers {
		t.active = false
	}
	n.timers = make(map[*Timer]struct{})
	n.pending = make(map[pendingKey]*pendingCall)
	n.subscribers = make(map[uint16][]*subscriberEntry)
	n.servers = make(map[uint16]*serverEntry)

	n.logState("node", "running", "closed", "")

	if n.stack != nil {
		return n.stack.Close()
	}
	return nil
}

// logFrame records a frame crossing the transport boundary.
func (n *Node) logFrame(dir log.Direction, f transport.Frame) {
	n.logger.Log(log.Event{
		Timestamp: n.clk.Now(),
		NodeUID:   n.uid,
		Direction: dir,
		Layer:     log.LayerTransport,
		Category:  log.CategoryFrame,
		NodeID:    uint8(n.id),
		Iface:     f.Iface,
		Frame: &log.FrameEvent{
			Kind:       uint8(f.Kind),
			PortID:     f.PortID,
			Size:       len(f.Payload),
			TransferID: f.TransferID,
			Source:     uint8(f.Source),
			Dest:       uint8(f.Dest),
		},
	})
}

// logCall records a service call lifecycle step.
func (n *Node) logCall(port uint16, server transport.NodeID, transfer uint8, succeeded *bool) {
	n.logger.Log(log.Event{
		Timestamp: n.clk.Now(),
		NodeUID:   n.uid,
		Layer:     log.LayerService,
		Category:  log.CategoryCall,
		NodeID:    uint8(n.id),
		Call: &log.CallEvent{
			PortID:       port,
			ServerNodeID: uint8(server),
			TransferID:   transfer,
			Succeeded:    succeeded,
		},
	})
}

// logState records a node or endpoint state transition.
func (n *Node) logState(entity, oldState, newState, reason string) {
	n.logger.Log(log.Event{
		Timestamp: n.clk.Now(),
		NodeUID:   n.uid,
		Layer:     log.LayerNode,
		Category:  log.CategoryState,
		NodeID:    uint8(n.id),
		StateChange: &log.StateChangeEvent{
			Entity:   entity,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

// logError records a failure, preserving the raw status code if one exists.
func (n *Node) logError(context string, err error) {
	data := &log.ErrorEventData{Message: err.Error(), Context: context}
	if code := statusOf(err); code != StatusInvalidParam {
		c := code
		data.Code = &c
	}
	n.logger.Log(log.Event{
		Timestamp: n.clk.Now(),
		NodeUID:   n.uid,
		Layer:     log.LayerNode,
		Category:  log.CategoryError,
		NodeID:    uint8(n.id),
		Error:     data,
	})
}
