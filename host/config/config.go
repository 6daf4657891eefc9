// Package config loads the shutterctl YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"shutterfw/protocol"
)

// Config is the root of the shutterctl configuration file.
type Config struct {
	Serial  SerialConfig `yaml:"serial"`
	Dialect string       `yaml:"dialect"`

	// CommandTimeoutMs bounds each response wait; Retries is how many
	// attempts a query or handshake gets before giving up.
	CommandTimeoutMs int `yaml:"command_timeout_ms"`
	Retries          int `yaml:"retries"`
}

// SerialConfig selects and configures the serial device.
type SerialConfig struct {
	Device    string `yaml:"device"`
	Baud      int    `yaml:"baud"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// Load reads, parses, and normalizes a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills in unset fields with the values the shutter boards
// expect. Load calls it; callers assembling a Config from flags call it
// themselves.
func (c *Config) ApplyDefaults() {
	if c.Serial.Baud == 0 {
		c.Serial.Baud = 115200
	}
	if c.Serial.TimeoutMs == 0 {
		c.Serial.TimeoutMs = 500
	}
	if c.Dialect == "" {
		c.Dialect = "structured"
	}
	if c.CommandTimeoutMs == 0 {
		c.CommandTimeoutMs = 500
	}
	if c.Retries == 0 {
		c.Retries = 3
	}
}

// Validate rejects configurations the client cannot run with.
func (c *Config) Validate() error {
	if c.Serial.Device == "" {
		return fmt.Errorf("serial.device is required")
	}
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud)
	}
	if c.Serial.TimeoutMs <= 0 {
		return fmt.Errorf("serial.timeout_ms must be positive, got %d", c.Serial.TimeoutMs)
	}
	if c.CommandTimeoutMs <= 0 {
		return fmt.Errorf("command_timeout_ms must be positive, got %d", c.CommandTimeoutMs)
	}
	if c.Retries <= 0 {
		return fmt.Errorf("retries must be positive, got %d", c.Retries)
	}
	if _, err := c.DialectValue(); err != nil {
		return err
	}
	return nil
}

// DialectValue resolves the configured dialect name.
func (c *Config) DialectValue() (protocol.Dialect, error) {
	switch c.Dialect {
	case "legacy":
		return protocol.DialectLegacy, nil
	case "delimiter":
		return protocol.DialectDelimiter, nil
	case "structured":
		return protocol.DialectStructured, nil
	}
	return 0, fmt.Errorf("unknown dialect %q (want legacy, delimiter, or structured)", c.Dialect)
}
