package dronebus_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dronebus-protocol/dronebus-go/pkg/clock"
	"github.com/dronebus-protocol/dronebus-go/pkg/config"
	"github.com/dronebus-protocol/dronebus-go/pkg/datatype"
	buslog "github.com/dronebus-protocol/dronebus-go/pkg/log"
	"github.com/dronebus-protocol/dronebus-go/pkg/node"
	"github.com/dronebus-protocol/dronebus-go/pkg/transport"
)

// Test data types shared by the end-to-end scenarios.

type telemetrySample struct {
	Seq     uint32  `cbor:"1,keyasint"`
	Voltage float64 `cbor:"2,keyasint"`
}

func (telemetrySample) DataType() datatype.Descriptor {
	return datatype.Descriptor{Name: "e2e.TelemetrySample", Kind: datatype.KindMessage, PortID: 300}
}

type navQuery struct {
	Waypoint string `cbor:"1,keyasint"`
}

func (navQuery) DataType() datatype.Descriptor {
	return datatype.Descriptor{Name: "e2e.NavFix", Kind: datatype.KindService, PortID: 400}
}

type navFix struct {
	Waypoint string `cbor:"1,keyasint"`
	Reached  bool   `cbor:"2,keyasint"`
}

func (navFix) DataType() datatype.Descriptor {
	return datatype.Descriptor{Name: "e2e.NavFix", Kind: datatype.KindService, PortID: 400}
}

// TestE2E_ConfigBringUp tests that a node can be brought up entirely from a
// YAML configuration file: interfaces, node ID, pool size and clock mode.
func TestE2E_ConfigBringUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.yaml")
	data := []byte("node_id: 42\ninterfaces: [vcan0, vcan1]\nclock_mode: passive\npool_size: 65536\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	mode, err := cfg.AdjustmentMode()
	if err != nil {
		t.Fatalf("Failed to resolve clock mode: %v", err)
	}

	bus := transport.NewBus()
	for _, name := range cfg.Interfaces {
		bus.AddSegment(name)
	}

	n, err := node.MakeNodeOnBus(bus, cfg.Interfaces, mode,
		node.WithID(transport.NodeID(cfg.NodeID)),
		node.WithPoolSize(cfg.PoolSize),
		node.WithLogger(buslog.NoopLogger{}),
	)
	if err != nil {
		t.Fatalf("Failed to make node: %v", err)
	}
	defer n.Close()

	if n.ID() != 42 {
		t.Errorf("Node ID mismatch: expected 42, got %d", n.ID())
	}
	if n.PoolCapacity() != 65536 {
		t.Errorf("Pool capacity mismatch: expected 65536, got %d", n.PoolCapacity())
	}
	ifaces := n.Transport().Interfaces()
	if len(ifaces) != 2 || ifaces[0] != "vcan0" || ifaces[1] != "vcan1" {
		t.Errorf("Interface mismatch: %v", ifaces)
	}
	if err := n.Clock().Adjust(time.Second); err == nil {
		t.Error("Passive clock accepted an adjustment")
	}
}

// TestE2E_PubSub tests broadcast delivery between two nodes sharing a bus
// segment. The publisher and subscriber each spin on their own node.
func TestE2E_PubSub(t *testing.T) {
	bus := transport.NewBus()
	bus.AddSegment("vcan0")

	sender, err := node.MakeNodeOnBus(bus, []string{"vcan0"}, clock.ModeAuto,
		node.WithID(10), node.WithLogger(buslog.NoopLogger{}))
	if err != nil {
		t.Fatalf("Failed to make sender node: %v", err)
	}
	defer sender.Close()

	receiver, err := node.MakeNodeOnBus(bus, []string{"vcan0"}, clock.ModeAuto,
		node.WithID(11), node.WithLogger(buslog.NoopLogger{}))
	if err != nil {
		t.Fatalf("Failed to make receiver node: %v", err)
	}
	defer receiver.Close()

	var got []telemetrySample
	sub, err := node.NewSubscriber(receiver, func(m telemetrySample) {
		got = append(got, m)
	})
	if err != nil {
		t.Fatalf("Failed to make subscriber: %v", err)
	}
	defer sub.Close()

	pub, err := node.NewPublisher[telemetrySample](sender)
	if err != nil {
		t.Fatalf("Failed to make publisher: %v", err)
	}
	defer pub.Close()

	for seq := uint32(1); seq <= 3; seq++ {
		if err := pub.Publish(telemetrySample{Seq: seq, Voltage: 11.1 * float64(seq)}); err != nil {
			t.Fatalf("Failed to publish sample %d: %v", seq, err)
		}
	}

	if err := receiver.Spin(20 * time.Millisecond); err != nil {
		t.Fatalf("Spin failed: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("Expected 3 samples, got %d", len(got))
	}
	for i, m := range got {
		if m.Seq != uint32(i+1) {
			t.Errorf("Sample %d out of order: seq=%d", i, m.Seq)
		}
	}
}

// TestE2E_BlockingServiceRoundTrip tests a synchronous service call between
// two nodes: the server spins on its own goroutine while the client blocks.
func TestE2E_BlockingServiceRoundTrip(t *testing.T) {
	bus := transport.NewBus()
	bus.AddSegment("vcan0")

	server, err := node.MakeNodeOnBus(bus, []string{"vcan0"}, clock.ModeAuto,
		node.WithID(20), node.WithLogger(buslog.NoopLogger{}))
	if err != nil {
		t.Fatalf("Failed to make server node: %v", err)
	}
	defer server.Close()

	srv, err := node.NewServiceServer(server, func(req navQuery) (navFix, error) {
		return navFix{Waypoint: strings.ToUpper(req.Waypoint), Reached: true}, nil
	})
	if err != nil {
		t.Fatalf("Failed to make service server: %v", err)
	}
	defer srv.Close()

	// Server spin loop on its own goroutine; the bus handles cross-goroutine
	// frame delivery.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				if err := server.Spin(5 * time.Millisecond); err != nil {
					return
				}
			}
		}
	}()
	defer func() {
		close(stop)
		wg.Wait()
	}()

	client, err := node.MakeNodeOnBus(bus, []string{"vcan0"}, clock.ModeAuto,
		node.WithID(21), node.WithLogger(buslog.NoopLogger{}))
	if err != nil {
		t.Fatalf("Failed to make client node: %v", err)
	}
	defer client.Close()

	blocking, err := node.NewBlockingServiceClient[navQuery, navFix](client)
	if err != nil {
		t.Fatalf("Failed to make blocking client: %v", err)
	}
	defer blocking.Close()

	if err := blocking.CallWithTimeout(20, navQuery{Waypoint: "alpha"}, time.Second); err != nil {
		t.Fatalf("Blocking call failed: %v", err)
	}
	if !blocking.WasSuccessful() {
		t.Fatal("Expected call to succeed")
	}
	fix := blocking.Response()
	if fix.Waypoint != "ALPHA" || !fix.Reached {
		t.Errorf("Unexpected response: %+v", fix)
	}

	// A call to an absent server returns nil from Call but reports failure
	// through WasSuccessful once the request timeout resolves it.
	if err := blocking.CallWithTimeout(99, navQuery{Waypoint: "bravo"}, 30*time.Millisecond); err != nil {
		t.Fatalf("Blocking call to absent server errored: %v", err)
	}
	if blocking.WasSuccessful() {
		t.Error("Call to absent server reported success")
	}

	t.Logf("Round trip successful - response %+v", fix)
}

// TestE2E_EventLogRoundTrip tests that frames logged to a CBOR event file
// can be read back and filtered by direction.
func TestE2E_EventLogRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.cbor")

	logger, err := buslog.NewFileLogger(path)
	if err != nil {
		t.Fatalf("Failed to create file logger: %v", err)
	}

	bus := transport.NewBus()
	bus.AddSegment("vcan0")

	n, err := node.MakeNodeOnBus(bus, []string{"vcan0"}, clock.ModeAuto,
		node.WithID(30), node.WithLogger(logger))
	if err != nil {
		t.Fatalf("Failed to make node: %v", err)
	}
	defer n.Close()

	pub, err := node.NewPublisher[telemetrySample](n)
	if err != nil {
		t.Fatalf("Failed to make publisher: %v", err)
	}
	defer pub.Close()

	for seq := uint32(1); seq <= 2; seq++ {
		if err := pub.Publish(telemetrySample{Seq: seq}); err != nil {
			t.Fatalf("Failed to publish: %v", err)
		}
	}

	if err := logger.Close(); err != nil {
		t.Fatalf("Failed to close logger: %v", err)
	}

	reader, err := buslog.NewReader(path)
	if err != nil {
		t.Fatalf("Failed to open event log: %v", err)
	}
	defer reader.Close()

	out := buslog.DirectionOut
	frames := buslog.CategoryFrame
	reader.SetFilter(&buslog.Filter{Direction: &out, Category: &frames})

	events, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read events: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("Expected 2 outgoing frame events, got %d", len(events))
	}
	for i, e := range events {
		if e.Frame == nil {
			t.Fatalf("Event %d has no frame payload", i)
		}
		if e.Frame.PortID != 300 {
			t.Errorf("Event %d port mismatch: expected 300, got %d", i, e.Frame.PortID)
		}
		if e.NodeID != 30 {
			t.Errorf("Event %d node ID mismatch: expected 30, got %d", i, e.NodeID)
		}
		if e.NodeUID != n.UID() {
			t.Errorf("Event %d UID mismatch", i)
		}
	}
}
