package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the client binary's startup configuration.
type Config struct {
	Network NetworkConfig `yaml:"network"`
	World   WorldConfig   `yaml:"world"`
	Logging LoggingConfig `yaml:"logging"`
}

// NetworkConfig controls which server the client dials.
type NetworkConfig struct {
	ServerHost string `yaml:"server_host"`
	TCPPort    int    `yaml:"tcp_port"`
	UDPPort    int    `yaml:"udp_port"`
}

// WorldConfig controls the client's local simulation tick rate.
type WorldConfig struct {
	TickRateHz int `yaml:"tick_rate_hz"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	OutputFile string `yaml:"output_file"` // empty = stdout
}

// DefaultConfig returns the client's out-of-the-box configuration.
func DefaultConfig() *Config {
	return &Config{
		Network: NetworkConfig{
			ServerHost: "127.0.0.1",
			TCPPort:    9183,
			UDPPort:    9184,
		},
		World: WorldConfig{
			TickRateHz: 60,
		},
		Logging: LoggingConfig{
			Level:      "info",
			OutputFile: "",
		},
	}
}

// LoadConfig reads and validates a YAML config file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// LoadOrCreateConfig loads path if present, otherwise writes and
// returns the default configuration.
func LoadOrCreateConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); err == nil {
		return LoadConfig(path)
	}

	config := DefaultConfig()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := config.Save(path); err != nil {
		return nil, fmt.Errorf("failed to save default config: %w", err)
	}
	fmt.Printf("Created default config at: %s\n", path)
	return config, nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for obviously invalid values.
func (c *Config) Validate() error {
	if c.Network.ServerHost == "" {
		return fmt.Errorf("network.server_host is required")
	}
	if c.Network.TCPPort <= 0 || c.Network.TCPPort > 65535 {
		return fmt.Errorf("network.tcp_port must be between 1 and 65535")
	}
	if c.Network.UDPPort <= 0 || c.Network.UDPPort > 65535 {
		return fmt.Errorf("network.udp_port must be between 1 and 65535")
	}
	if c.World.TickRateHz < 1 || c.World.TickRateHz > 240 {
		return fmt.Errorf("world.tick_rate_hz must be between 1 and 240")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	return nil
}
