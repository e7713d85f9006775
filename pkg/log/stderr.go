package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// StderrLogger formats every event as one text line on stderr. It is the
// sink registered by default at node construction.
type StderrLogger struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStderrLogger creates a logger writing to stderr.
func NewStderrLogger() *StderrLogger {
	return &StderrLogger{w: os.Stderr}
}

// NewTextLogger creates a StderrLogger writing to an arbitrary writer.
func NewTextLogger(w io.Writer) *StderrLogger {
	return &StderrLogger{w: w}
}

// Log writes the event as a single line.
func (l *StderrLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, formatEvent(event))
}

// formatEvent renders an event as a human-readable line.
func formatEvent(event Event) string {
	var b strings.Builder

	b.WriteString("### DRONEBUS ")
	b.WriteString(event.Timestamp.Format(time.RFC3339Nano))
	fmt.Fprintf(&b, " uid=%s", event.NodeUID)
	if event.NodeID != 0 {
		fmt.Fprintf(&b, " node=%d", event.NodeID)
	}
	fmt.Fprintf(&b, " %s/%s", event.Layer, event.Category)
	if event.Direction != DirectionNone {
		fmt.Fprintf(&b, " dir=%s", event.Direction)
	}
	if event.Iface != "" {
		fmt.Fprintf(&b, " iface=%s", event.Iface)
	}

	switch {
	case event.Frame != nil:
		fmt.Fprintf(&b, " port=%d size=%d tid=%d src=%d dst=%d",
			event.Frame.PortID, event.Frame.Size, event.Frame.TransferID,
			event.Frame.Source, event.Frame.Dest)
	case event.Call != nil:
		fmt.Fprintf(&b, " port=%d server=%d tid=%d",
			event.Call.PortID, event.Call.ServerNodeID, event.Call.TransferID)
		if event.Call.Succeeded != nil {
			fmt.Fprintf(&b, " ok=%t", *event.Call.Succeeded)
		}
	case event.StateChange != nil:
		fmt.Fprintf(&b, " %s: %s -> %s",
			event.StateChange.Entity, event.StateChange.OldState, event.StateChange.NewState)
		if event.StateChange.Reason != "" {
			fmt.Fprintf(&b, " (%s)", event.StateChange.Reason)
		}
	case event.Error != nil:
		fmt.Fprintf(&b, " error=%q", event.Error.Message)
		if event.Error.Context != "" {
			fmt.Fprintf(&b, " ctx=%s", event.Error.Context)
		}
		if event.Error.Code != nil {
			fmt.Fprintf(&b, " code=%d", *event.Error.Code)
		}
	}

	return b.String()
}

// Compile-time interface satisfaction check.
var _ Logger = (*StderrLogger)(nil)
