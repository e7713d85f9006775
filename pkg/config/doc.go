// Package config loads node configuration from YAML files.
//
// The configuration covers what the node factory helpers need: interface
// names, the clock adjustment policy, the memory pool size, the bus node
// ID, and an optional event log path. Every field except the interface
// list has a default.
package config
