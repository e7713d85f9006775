package transport

import (
	"sync"
	"time"

	"github.com/dronebus-protocol/dronebus-go/pkg/clock"
)

// Memory bus limits.
const (
	// MaxPayloadSize is the largest payload a frame may carry.
	MaxPayloadSize = 65536

	// rxQueueDepth is the per-transport receive queue depth. Frames
	// beyond it are dropped and counted.
	rxQueueDepth = 256
)

// Bus is an in-process frame bus with named segments. Transports attach to
// segments by interface name; a frame sent by one transport is delivered to
// every other transport attached to the same segment.
//
// A Bus is safe for concurrent use: each attached node runs single-threaded,
// but different nodes may spin on different goroutines.
type Bus struct {
	mu       sync.Mutex
	segments map[string][]*MemTransport
}

// NewBus creates a bus with no segments.
func NewBus() *Bus {
	return &Bus{segments: make(map[string][]*MemTransport)}
}

// DefaultBus is the bus the convenience stack constructor attaches to.
var DefaultBus = NewBus()

// AddSegment creates a named segment. Adding an existing segment is a no-op.
func (b *Bus) AddSegment(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.segments[name]; !ok {
		b.segments[name] = nil
	}
}

// Segments returns the existing segment names.
func (b *Bus) Segments() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.segments))
	for name := range b.segments {
		names = append(names, name)
	}
	return names
}

// Inject delivers a frame to every transport attached to the named segment,
// as if it had arrived from outside the process.
func (b *Bus) Inject(segment string, f Frame) error {
	b.mu.Lock()
	ports, ok := b.segments[segment]
	ports = append([]*MemTransport(nil), ports...)
	b.mu.Unlock()

	if !ok {
		return &StatusError{Op: "inject", Code: StatusUnknownInterface, Err: ErrUnknownInterface}
	}
	for _, t := range ports {
		t.deliver(f, segment)
	}
	return nil
}

func (b *Bus) attach(name string, t *MemTransport) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.segments[name]; !ok {
		return &StatusError{Op: "add interface", Code: StatusUnknownInterface, Err: ErrUnknownInterface}
	}
	b.segments[name] = append(b.segments[name], t)
	return nil
}

func (b *Bus) detach(t *MemTransport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for name, ports := range b.segments {
		kept := ports[:0]
		for _, p := range ports {
			if p != t {
				kept = append(kept, p)
			}
		}
		b.segments[name] = kept
	}
}

// broadcast delivers f on every segment the sender is attached to,
// excluding the sender itself.
func (b *Bus) broadcast(from *MemTransport, segments []string, f Frame) {
	for _, name := range segments {
		b.mu.Lock()
		ports := append([]*MemTransport(nil), b.segments[name]...)
		b.mu.Unlock()
		for _, t := range ports {
			if t != from {
				t.deliver(f, name)
			}
		}
	}
}

// busItem is a queued frame with the segment it arrived on.
type busItem struct {
	frame Frame
	iface string
}

// MemTransport is a FrameTransport attached to an in-process Bus. It is
// bound to a clock source for transmit deadlines and receive timestamps.
type MemTransport struct {
	bus *Bus
	clk clock.Source

	mu      sync.Mutex
	ifaces  []string
	closed  bool
	dropped int

	rx chan busItem
}

// NewMemTransport creates a transport on the given bus, bound to clk.
// No interfaces are attached yet.
func NewMemTransport(bus *Bus, clk clock.Source) *MemTransport {
	return &MemTransport{
		bus: bus,
		clk: clk,
		rx:  make(chan busItem, rxQueueDepth),
	}
}

// AddInterface attaches one bus segment by name.
func (t *MemTransport) AddInterface(name string) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return &StatusError{Op: "add interface", Code: StatusClosed, Err: ErrClosed}
	}
	t.mu.Unlock()

	if err := t.bus.attach(name, t); err != nil {
		return err
	}

	t.mu.Lock()
	t.ifaces = append(t.ifaces, name)
	t.mu.Unlock()
	return nil
}

// Interfaces returns the attached segment names in attach order.
func (t *MemTransport) Interfaces() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.ifaces...)
}

// Send delivers f to every peer on every attached segment.
func (t *MemTransport) Send(f Frame, deadline time.Time) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return &StatusError{Op: "send", Code: StatusClosed, Err: ErrClosed}
	}
	segments := append([]string(nil), t.ifaces...)
	t.mu.Unlock()

	if len(segments) == 0 {
		return &StatusError{Op: "send", Code: StatusNoInterfaces, Err: ErrNoInterfaces}
	}
	if len(f.Payload) > MaxPayloadSize {
		return &StatusError{Op: "send", Code: StatusFrameTooLarge, Err: ErrFrameTooLarge}
	}
	if !deadline.IsZero() && t.clk.Now().After(deadline) {
		return &StatusError{Op: "send", Code: StatusTxTimeout, Err: ErrTxTimeout}
	}

	t.bus.broadcast(t, segments, f)
	return nil
}

// deliver queues an incoming frame. A full queue drops the frame.
func (t *MemTransport) deliver(f Frame, iface string) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	select {
	case t.rx <- busItem{frame: f, iface: iface}:
	default:
		t.mu.Lock()
		t.dropped++
		t.mu.Unlock()
	}
}

// Receive waits up to timeout for the next frame. The frame is stamped
// with the receive time from the bound clock and the arrival interface.
func (t *MemTransport) Receive(timeout time.Duration) (Frame, bool, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return Frame{}, false, &StatusError{Op: "receive", Code: StatusClosed, Err: ErrClosed}
	}
	t.mu.Unlock()

	if timeout <= 0 {
		select {
		case item := <-t.rx:
			return t.stamp(item), true, nil
		default:
			return Frame{}, false, nil
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case item := <-t.rx:
		return t.stamp(item), true, nil
	case <-timer.C:
		return Frame{}, false, nil
	}
}

func (t *MemTransport) stamp(item busItem) Frame {
	f := item.frame
	f.Timestamp = t.clk.Now()
	f.Iface = item.iface
	return f
}

// Dropped returns the number of frames lost to receive queue overflow.
func (t *MemTransport) Dropped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// Closed reports whether Close has been called.
func (t *MemTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Close detaches the transport from the bus. Queued frames are discarded.
// It is safe to call Close multiple times.
func (t *MemTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.ifaces = nil
	t.mu.Unlock()

	t.bus.detach(t)
	return nil
}

// Compile-time interface satisfaction check.
var _ FrameTransport = (*MemTransport)(nil)
