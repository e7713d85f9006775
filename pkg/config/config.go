package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dronebus-protocol/dronebus-go/pkg/clock"
)

// Configuration errors.
var (
	ErrNoInterfaces    = errors.New("no interfaces configured")
	ErrInvalidPoolSize = errors.New("pool size must be positive")
	ErrInvalidNodeID   = errors.New("node ID out of range")
)

// Default values applied by Load for fields left empty.
const (
	// DefaultPoolSize is the node memory pool capacity in bytes.
	DefaultPoolSize = 512 * 1024

	// DefaultClockMode is the clock adjustment policy.
	DefaultClockMode = "auto"
)

// Config describes one node.
type Config struct {
	// NodeID is the bus node ID, 1..127. Zero leaves the node anonymous
	// until SetID is called.
	NodeID uint8 `yaml:"node_id"`

	// Interfaces are the interface names attached at construction.
	Interfaces []string `yaml:"interfaces"`

	// ClockMode is the clock adjustment policy: auto, passive or active.
	ClockMode string `yaml:"clock_mode"`

	// PoolSize is the memory pool capacity in bytes.
	PoolSize int `yaml:"pool_size"`

	// EventLog is an optional path for the CBOR diagnostic event log.
	EventLog string `yaml:"event_log"`
}

// Default returns a configuration with all defaults applied and no
// interfaces.
func Default() Config {
	return Config{
		ClockMode: DefaultClockMode,
		PoolSize:  DefaultPoolSize,
	}
}

// Load reads a YAML configuration file, applies defaults and validates.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.ClockMode == "" {
		cfg.ClockMode = DefaultClockMode
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = DefaultPoolSize
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration fields.
func (c Config) Validate() error {
	if len(c.Interfaces) == 0 {
		return ErrNoInterfaces
	}
	if c.PoolSize <= 0 {
		return ErrInvalidPoolSize
	}
	if c.NodeID > 127 {
		return ErrInvalidNodeID
	}
	if _, err := c.AdjustmentMode(); err != nil {
		return err
	}
	return nil
}

// AdjustmentMode maps the configured clock mode string to the clock
// package's enum.
func (c Config) AdjustmentMode() (clock.AdjustmentMode, error) {
	switch c.ClockMode {
	case "", "auto":
		return clock.ModeAuto, nil
	case "passive":
		return clock.ModePassive, nil
	case "active":
		return clock.ModeActive, nil
	default:
		return clock.ModeAuto, fmt.Errorf("unknown clock mode %q", c.ClockMode)
	}
}
