package node

import (
	"github.com/dronebus-protocol/dronebus-go/pkg/clock"
	"github.com/dronebus-protocol/dronebus-go/pkg/transport"
)

// MakeNode builds a transport stack with the given clock adjustment mode,
// attaches every interface name in order, and constructs a Node owning the
// stack. Bring-up is all or nothing: the first interface that fails to
// attach aborts construction with a ConfigurationError naming it, and no
// node is produced.
func MakeNode(ifaceNames []string, mode clock.AdjustmentMode, opts ...Option) (*Node, error) {
	return MakeNodeOnBus(transport.DefaultBus, ifaceNames, mode, opts...)
}

// MakeNodeAuto is MakeNode with the preferred clock adjustment mode for
// this host. This is the usual way to make a Node.
func MakeNodeAuto(ifaceNames []string, opts ...Option) (*Node, error) {
	return MakeNode(ifaceNames, clock.ModeAuto, opts...)
}

// MakeNodeOnBus is MakeNode on an explicit memory bus instead of
// transport.DefaultBus.
func MakeNodeOnBus(bus *transport.Bus, ifaceNames []string, mode clock.AdjustmentMode, opts ...Option) (*Node, error) {
	stack := transport.NewStackOnBus(bus, mode)
	for _, name := range ifaceNames {
		if err := stack.Transport().AddInterface(name); err != nil {
			stack.Close()
			return nil, &ConfigurationError{Interface: name, Err: err}
		}
	}
	return New(stack, opts...), nil
}
