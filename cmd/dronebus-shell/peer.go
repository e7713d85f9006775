package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dronebus-protocol/dronebus-go/pkg/clock"
	buslog "github.com/dronebus-protocol/dronebus-go/pkg/log"
	"github.com/dronebus-protocol/dronebus-go/pkg/node"
	"github.com/dronebus-protocol/dronebus-go/pkg/transport"
)

// startPeer brings up the peer node with an uppercasing echo service and a
// subscriber that prints every received publication, and spins it on its
// own goroutine until the returned stop function is called.
func startPeer(bus *transport.Bus, ifaceNames []string, id transport.NodeID) (*node.Node, func(), error) {
	peer, err := node.MakeNodeOnBus(bus, ifaceNames, clock.ModeAuto,
		node.WithLogger(buslog.NoopLogger{}),
		node.WithID(id))
	if err != nil {
		return nil, nil, err
	}

	if _, err := node.NewServiceServer(peer, func(req echoRequest) (echoResponse, error) {
		return echoResponse{Text: strings.ToUpper(req.Text)}, nil
	}); err != nil {
		peer.Close()
		return nil, nil, err
	}

	if _, err := node.NewSubscriber(peer, func(m sensorReading) {
		fmt.Printf("[peer %d] reading #%d: %.3f\n", id, m.Seq, m.Value)
	}); err != nil {
		peer.Close()
		return nil, nil, err
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				if err := peer.Spin(10 * time.Millisecond); err != nil {
					fmt.Printf("[peer %d] spin failed: %v\n", id, err)
					return
				}
			}
		}
	}()

	return peer, func() {
		close(stop)
		<-done
	}, nil
}
