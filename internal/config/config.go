package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied when no configuration file is given.
const (
	DefaultMaxDepth      = 64
	DefaultMaxInputBytes = 32 << 20
	DefaultHTTPAddress   = "0.0.0.0"
	DefaultHTTPPort      = 8080
)

// Config represents the complete tool configuration
type Config struct {
	Decode  DecodeConfig  `yaml:"decode"`
	HTTP    HTTPConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
}

// DecodeConfig contains decoder engine limits
type DecodeConfig struct {
	MaxDepth      int `yaml:"max_depth"`       // nesting depth cap
	MaxInputBytes int `yaml:"max_input_bytes"` // largest accepted input buffer
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	return &Config{
		Decode: DecodeConfig{
			MaxDepth:      DefaultMaxDepth,
			MaxInputBytes: DefaultMaxInputBytes,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Address: DefaultHTTPAddress,
			Port:    DefaultHTTPPort,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs validation of the configuration
func (c *Config) Validate() error {
	if err := c.Decode.Validate(); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates decoder limits
func (d *DecodeConfig) Validate() error {
	if d.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be at least 1, got %d", d.MaxDepth)
	}

	if d.MaxInputBytes < 1 {
		return fmt.Errorf("max_input_bytes must be at least 1, got %d", d.MaxInputBytes)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}
