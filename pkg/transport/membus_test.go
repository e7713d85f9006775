package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/dronebus-protocol/dronebus-go/pkg/clock"
)

func newTestTransport(t *testing.T, bus *Bus, ifaces ...string) *MemTransport {
	t.Helper()
	tr := NewMemTransport(bus, clock.NewSystemClock(clock.ModePassive))
	for _, name := range ifaces {
		if err := tr.AddInterface(name); err != nil {
			t.Fatalf("AddInterface(%q): %v", name, err)
		}
	}
	return tr
}

func TestMemTransport_UnknownInterface(t *testing.T) {
	bus := NewBus()
	tr := NewMemTransport(bus, clock.NewSystemClock(clock.ModePassive))

	err := tr.AddInterface("nope")
	if !errors.Is(err, ErrUnknownInterface) {
		t.Fatalf("expected ErrUnknownInterface, got %v", err)
	}

	var se *StatusError
	if !errors.As(err, &se) || se.Code != StatusUnknownInterface {
		t.Errorf("expected status %d, got %+v", StatusUnknownInterface, se)
	}
	if len(tr.Interfaces()) != 0 {
		t.Errorf("failed attach left interface registered: %v", tr.Interfaces())
	}
}

func TestMemTransport_SendReceiveInOrder(t *testing.T) {
	bus := NewBus()
	bus.AddSegment("ifA")
	a := newTestTransport(t, bus, "ifA")
	b := newTestTransport(t, bus, "ifA")

	for i := 0; i < 3; i++ {
		f := Frame{Kind: KindMessage, PortID: 100, Source: 1, Payload: []byte{byte(i)}}
		if err := a.Send(f, time.Time{}); err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
	}

	for i := 0; i < 3; i++ {
		f, ok, err := b.Receive(100 * time.Millisecond)
		if err != nil || !ok {
			t.Fatalf("Receive %d: ok=%v err=%v", i, ok, err)
		}
		if f.Payload[0] != byte(i) {
			t.Errorf("frame %d out of order: payload %v", i, f.Payload)
		}
		if f.Iface != "ifA" {
			t.Errorf("frame %d missing iface stamp: %q", i, f.Iface)
		}
		if f.Timestamp.IsZero() {
			t.Errorf("frame %d missing receive timestamp", i)
		}
	}

	// Sender must not hear its own frame.
	if _, ok, _ := a.Receive(0); ok {
		t.Error("sender received its own frame")
	}
}

func TestMemTransport_ReceiveTimeout(t *testing.T) {
	bus := NewBus()
	bus.AddSegment("ifA")
	tr := newTestTransport(t, bus, "ifA")

	start := time.Now()
	_, ok, err := tr.Receive(20 * time.Millisecond)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if ok {
		t.Fatal("Receive reported a frame on an idle bus")
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("Receive returned too early: %v", elapsed)
	}
}

func TestMemTransport_SendWithoutInterfaces(t *testing.T) {
	tr := NewMemTransport(NewBus(), clock.NewSystemClock(clock.ModePassive))

	err := tr.Send(Frame{Kind: KindMessage, PortID: 1}, time.Time{})
	if !errors.Is(err, ErrNoInterfaces) {
		t.Errorf("expected ErrNoInterfaces, got %v", err)
	}
}

func TestMemTransport_TxDeadlineExpired(t *testing.T) {
	bus := NewBus()
	bus.AddSegment("ifA")
	clk := clock.NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	tr := NewMemTransport(bus, clk)
	if err := tr.AddInterface("ifA"); err != nil {
		t.Fatalf("AddInterface: %v", err)
	}

	deadline := clk.Now().Add(10 * time.Millisecond)
	clk.Advance(20 * time.Millisecond)

	err := tr.Send(Frame{Kind: KindMessage, PortID: 1}, deadline)
	if !errors.Is(err, ErrTxTimeout) {
		t.Errorf("expected ErrTxTimeout, got %v", err)
	}
}

func TestMemTransport_ClosedOperations(t *testing.T) {
	bus := NewBus()
	bus.AddSegment("ifA")
	tr := newTestTransport(t, bus, "ifA")

	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if !tr.Closed() {
		t.Fatal("Closed() false after Close")
	}

	_, _, err := tr.Receive(0)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != StatusClosed {
		t.Errorf("Receive after Close: expected status %d, got %v", StatusClosed, err)
	}
	if err := tr.Send(Frame{}, time.Time{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close: expected ErrClosed, got %v", err)
	}
	if err := tr.AddInterface("ifA"); !errors.Is(err, ErrClosed) {
		t.Errorf("AddInterface after Close: expected ErrClosed, got %v", err)
	}
}

func TestBus_Inject(t *testing.T) {
	bus := NewBus()
	bus.AddSegment("ifA")
	tr := newTestTransport(t, bus, "ifA")

	if err := bus.Inject("ifB", Frame{}); !errors.Is(err, ErrUnknownInterface) {
		t.Errorf("Inject on unknown segment: expected ErrUnknownInterface, got %v", err)
	}

	want := Frame{Kind: KindMessage, PortID: 7, Source: 42, Payload: []byte("hi")}
	if err := bus.Inject("ifA", want); err != nil {
		t.Fatalf("Inject: %v", err)
	}

	got, ok, err := tr.Receive(100 * time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("Receive: ok=%v err=%v", ok, err)
	}
	if got.PortID != want.PortID || got.Source != want.Source || string(got.Payload) != "hi" {
		t.Errorf("injected frame mismatch: %+v", got)
	}
}

func TestStack_OwnsClockAndTransport(t *testing.T) {
	bus := NewBus()
	bus.AddSegment("ifA")
	s := NewStackOnBus(bus, clock.ModePassive)

	if s.Clock().Mode() != clock.ModePassive {
		t.Errorf("clock mode: %v", s.Clock().Mode())
	}
	if err := s.Transport().AddInterface("ifA"); err != nil {
		t.Fatalf("AddInterface: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !s.Transport().Closed() {
		t.Error("Close did not shut the transport down")
	}
}
