package log

// Logger is the interface applications implement to receive node events.
// Pass NoopLogger to disable logging.
type Logger interface {
	// Log records one event. Implementations must be safe for use from
	// the goroutine spinning the node; they should process or queue the
	// event quickly, since blocking stalls the spin loop.
	Log(event Event)
}

// NoopLogger discards all events. Use when logging is disabled.
// NoopLogger is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// Compile-time interface satisfaction check.
var _ Logger = NoopLogger{}
