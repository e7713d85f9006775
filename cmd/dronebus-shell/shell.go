package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/dronebus-protocol/dronebus-go/pkg/node"
	"github.com/dronebus-protocol/dronebus-go/pkg/transport"
)

// shell drives the local node from an interactive prompt.
type shell struct {
	n      *node.Node
	peerID transport.NodeID
	rl     *readline.Instance

	pub    *node.Publisher[sensorReading]
	caller *node.BlockingServiceClient[echoRequest, echoResponse]
	seq    uint32
}

func newShell(n *node.Node, peerID transport.NodeID) (*shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "bus> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	pub, err := node.NewPublisher[sensorReading](n)
	if err != nil {
		rl.Close()
		return nil, err
	}
	caller, err := node.NewBlockingServiceClient[echoRequest, echoResponse](n)
	if err != nil {
		rl.Close()
		return nil, err
	}

	return &shell{n: n, peerID: peerID, rl: rl, pub: pub, caller: caller}, nil
}

// Run starts the interactive command loop.
func (s *shell) Run() error {
	s.printHelp()

	for {
		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			return nil
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			s.printHelp()

		case "pub", "p":
			s.cmdPub(args)

		case "call", "c":
			s.cmdCall(args)

		case "spin":
			s.cmdSpin(args)

		case "status", "s":
			s.cmdStatus()

		case "exit", "quit", "q":
			return nil

		default:
			fmt.Fprintf(s.rl.Stdout(), "Unknown command %q; try help\n", cmd)
		}
	}
}

func (s *shell) cmdPub(args []string) {
	value := 0.0
	if len(args) > 0 {
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			fmt.Fprintf(s.rl.Stdout(), "pub: bad value %q\n", args[0])
			return
		}
		value = v
	}

	s.seq++
	if err := s.pub.Publish(sensorReading{Seq: s.seq, Value: value}); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "pub: %v\n", err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "published reading #%d (%.3f)\n", s.seq, value)
}

func (s *shell) cmdCall(args []string) {
	text := strings.Join(args, " ")
	if text == "" {
		fmt.Fprintln(s.rl.Stdout(), "usage: call <text>")
		return
	}

	start := time.Now()
	if err := s.caller.CallWithTimeout(s.peerID, echoRequest{Text: text}, time.Second); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "call: %v\n", err)
		return
	}
	if !s.caller.WasSuccessful() {
		fmt.Fprintf(s.rl.Stdout(), "call: no response within timeout (%.0fms)\n",
			time.Since(start).Seconds()*1000)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "-> %q (%.1fms)\n",
		s.caller.Response().Text, time.Since(start).Seconds()*1000)
}

func (s *shell) cmdSpin(args []string) {
	d := 100 * time.Millisecond
	if len(args) > 0 {
		ms, err := strconv.Atoi(args[0])
		if err != nil || ms <= 0 {
			fmt.Fprintf(s.rl.Stdout(), "spin: bad duration %q (milliseconds)\n", args[0])
			return
		}
		d = time.Duration(ms) * time.Millisecond
	}

	if err := s.n.Spin(d); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "spin: %v\n", err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "spun %v\n", d)
}

func (s *shell) cmdStatus() {
	out := s.rl.Stdout()
	fmt.Fprintf(out, "node ID:        %d\n", s.n.ID())
	fmt.Fprintf(out, "node UID:       %s\n", s.n.UID())
	fmt.Fprintf(out, "interfaces:     %s\n", strings.Join(s.n.Transport().Interfaces(), ", "))
	fmt.Fprintf(out, "clock mode:     %s\n", s.n.Clock().Mode())
	fmt.Fprintf(out, "pool:           %d/%d bytes\n", s.n.PoolUsed(), s.n.PoolCapacity())
	fmt.Fprintf(out, "live endpoints: %d\n", s.n.LiveEndpoints())
}

func (s *shell) printHelp() {
	fmt.Fprint(s.rl.Stdout(), `Commands:
  pub [value]   publish a sensor reading (peer prints it)
  call <text>   blocking echo call to the peer
  spin [ms]     spin the local node (default 100ms)
  status        show node state
  help          this help
  exit          quit
`)
}

func (s *shell) Close() error {
	s.caller.Close()
	s.pub.Close()
	return s.rl.Close()
}
