package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultPath                 = "/ws"
	DefaultReconnectInterval    = 1 * time.Second
	DefaultMaxReconnectAttempts = 10
	DefaultPingInterval         = 15 * time.Second
	DefaultStaleTimeout         = 45 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultHandshakeTimeout     = 10 * time.Second
	DefaultBufferSize           = 256
	DefaultAuthAckType          = "auth_success"
	DefaultSessionKey           = "session_id"
	DefaultMetricsPort          = 9090
	DefaultMetricsPath          = "/metrics"
)

func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Path == "" {
		c.Server.Path = DefaultPath
	}

	// Connection defaults
	if c.Connection.ReconnectInterval == 0 {
		c.Connection.ReconnectInterval = DefaultReconnectInterval
	}
	if c.Connection.MaxReconnectAttempts == 0 {
		c.Connection.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Connection.PingInterval == 0 {
		c.Connection.PingInterval = DefaultPingInterval
	}
	if c.Connection.StaleTimeout == 0 {
		c.Connection.StaleTimeout = DefaultStaleTimeout
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.HandshakeTimeout == 0 {
		c.Connection.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Connection.BufferSize == 0 {
		c.Connection.BufferSize = DefaultBufferSize
	}
	if c.Connection.AuthAckType == "" {
		c.Connection.AuthAckType = DefaultAuthAckType
	}

	// Session defaults
	if c.Session.Key == "" {
		c.Session.Key = DefaultSessionKey
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
