// Package config loads the realtime client configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a realtime client instance.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Connection ConnectionConfig `yaml:"connection"`
	Session    SessionConfig    `yaml:"session"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Debug      bool             `yaml:"debug"`
}

// ServerConfig identifies the realtime endpoint.
type ServerConfig struct {
	Host   string `yaml:"host"`   // host[:port], no scheme
	Path   string `yaml:"path"`   // WebSocket path, e.g. /ws
	Secure bool   `yaml:"secure"` // wss when true
	Token  string `yaml:"token"`  // bearer credential for the authenticate handshake
}

// ConnectionConfig holds connection manager settings.
type ConnectionConfig struct {
	ReconnectInterval    time.Duration `yaml:"reconnect_interval"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	PingInterval         time.Duration `yaml:"ping_interval"`
	StaleTimeout         time.Duration `yaml:"stale_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	HandshakeTimeout     time.Duration `yaml:"handshake_timeout"`
	BufferSize           int           `yaml:"buffer_size"`
	AuthAckType          string        `yaml:"auth_ack_type"`
	AutoConnect          bool          `yaml:"auto_connect"`
}

// SessionConfig controls session identity persistence.
type SessionConfig struct {
	Persist bool   `yaml:"persist"`
	Dir     string `yaml:"dir"`
	Key     string `yaml:"key"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// URL derives the transport URL, selecting the secure scheme when configured.
func (c *Config) URL() string {
	scheme := "ws"
	if c.Server.Secure {
		scheme = "wss"
	}
	return scheme + "://" + c.Server.Host + c.Server.Path
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config and applies default values.
func LoadWithDefaults(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
