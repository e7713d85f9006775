// Command dronebus-shell is an interactive playground for the node layer.
//
// It brings up two nodes on an in-process memory bus: a local node driven
// from the prompt, and a peer node running an uppercasing echo service and
// a subscriber that prints every received publication. Commands publish
// messages, issue blocking service calls and spin the local node.
//
// Usage:
//
//	dronebus-shell [flags]
//
// Flags:
//
//	-config string     Path to a YAML node configuration
//	-ifaces string     Comma-separated interface names (default "ifA")
//	-node-id uint      Local bus node ID (default 1)
//	-peer-id uint      Peer bus node ID (default 2)
//	-event-log string  File path for diagnostic event logging (CBOR format)
//	-verbose           Mirror diagnostic events to the console via slog
//
// Examples:
//
//	# Default two-node playground
//	dronebus-shell
//
//	# Record a diagnostic trace while experimenting
//	dronebus-shell -event-log /tmp/session.blog
//
//	# Bring the local node up from a config file
//	dronebus-shell -config node.yaml
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dronebus-protocol/dronebus-go/pkg/config"
	buslog "github.com/dronebus-protocol/dronebus-go/pkg/log"
	"github.com/dronebus-protocol/dronebus-go/pkg/node"
	"github.com/dronebus-protocol/dronebus-go/pkg/transport"
)

var (
	configPath = flag.String("config", "", "Path to a YAML node configuration")
	ifaces     = flag.String("ifaces", "ifA", "Comma-separated interface names")
	nodeID     = flag.Uint("node-id", 1, "Local bus node ID")
	peerID     = flag.Uint("peer-id", 2, "Peer bus node ID")
	eventLog   = flag.String("event-log", "", "File path for diagnostic event logging (CBOR format)")
	verbose    = flag.Bool("verbose", false, "Mirror diagnostic events to the console via slog")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	cfg.NodeID = uint8(*nodeID)
	cfg.Interfaces = strings.Split(*ifaces, ",")
	cfg.EventLog = *eventLog
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	logger, cleanup, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	mode, err := cfg.AdjustmentMode()
	if err != nil {
		return err
	}

	bus := transport.NewBus()
	for _, name := range cfg.Interfaces {
		bus.AddSegment(name)
	}

	local, err := node.MakeNodeOnBus(bus, cfg.Interfaces, mode,
		node.WithLogger(logger),
		node.WithID(transport.NodeID(cfg.NodeID)),
		node.WithPoolSize(cfg.PoolSize))
	if err != nil {
		return err
	}
	defer local.Close()

	peer, stopPeer, err := startPeer(bus, cfg.Interfaces, transport.NodeID(uint8(*peerID)))
	if err != nil {
		return err
	}
	defer stopPeer()
	defer peer.Close()

	sh, err := newShell(local, transport.NodeID(uint8(*peerID)))
	if err != nil {
		return err
	}
	defer sh.Close()
	return sh.Run()
}

// buildLogger assembles the diagnostic sink from the flags: file, console,
// both, or none.
func buildLogger(cfg config.Config) (buslog.Logger, func(), error) {
	var sinks []buslog.Logger
	cleanup := func() {}

	if cfg.EventLog != "" {
		fl, err := buslog.NewFileLogger(cfg.EventLog)
		if err != nil {
			return nil, nil, fmt.Errorf("open event log: %w", err)
		}
		sinks = append(sinks, fl)
		cleanup = func() { fl.Close() }
	}
	if *verbose {
		h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		sinks = append(sinks, buslog.NewSlogAdapter(slog.New(h)))
	}

	switch len(sinks) {
	case 0:
		return buslog.NoopLogger{}, cleanup, nil
	case 1:
		return sinks[0], cleanup, nil
	default:
		return buslog.NewMultiLogger(sinks...), cleanup, nil
	}
}
