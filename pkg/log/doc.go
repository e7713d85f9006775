// Package log provides structured diagnostic logging for a bus node.
//
// This package defines the Logger interface and Event types for capturing
// node-level events at multiple layers (transport, node, service). It is
// separate from operational logging (slog) - event capture provides a
// complete machine-readable trace for debugging and analysis.
//
// # Basic Usage
//
// A node registers a Logger at construction. The default is StderrLogger;
// applications override it explicitly:
//
//	// For development: console output via slog
//	n := node.New(stack, node.WithLogger(log.NewSlogAdapter(slog.Default())))
//
//	// For production analysis: binary CBOR file
//	fl, _ := log.NewFileLogger("/var/log/dronebus/node.blog")
//	n := node.New(stack, node.WithLogger(fl))
//
//	// Both at once
//	n := node.New(stack, node.WithLogger(log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()), fl)))
//
// Recorded files are read back with Reader, optionally filtered.
package log
