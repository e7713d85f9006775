package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes diagnostic events to an slog.Logger.
// Useful for development when you want node events in the console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter writing to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("node_uid", event.NodeUID),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	if event.Direction != DirectionNone {
		attrs = append(attrs, slog.String("direction", event.Direction.String()))
	}
	if event.NodeID != 0 {
		attrs = append(attrs, slog.Uint64("node_id", uint64(event.NodeID)))
	}
	if event.Iface != "" {
		attrs = append(attrs, slog.String("iface", event.Iface))
	}

	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.Uint64("port", uint64(event.Frame.PortID)),
			slog.Int("size", event.Frame.Size),
			slog.Uint64("transfer_id", uint64(event.Frame.TransferID)),
			slog.Uint64("source", uint64(event.Frame.Source)),
			slog.Uint64("dest", uint64(event.Frame.Dest)),
		)
	case event.Call != nil:
		attrs = append(attrs,
			slog.Uint64("port", uint64(event.Call.PortID)),
			slog.Uint64("server", uint64(event.Call.ServerNodeID)),
			slog.Uint64("transfer_id", uint64(event.Call.TransferID)),
		)
		if event.Call.Succeeded != nil {
			attrs = append(attrs, slog.Bool("succeeded", *event.Call.Succeeded))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_msg", event.Error.Message),
		)
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
		if event.Error.Code != nil {
			attrs = append(attrs, slog.Int("code", *event.Error.Code))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "bus event", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
