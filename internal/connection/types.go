package connection

import (
	"errors"
	"time"

	"github.com/ekalbevoldog/Contesttest-sub006/internal/metrics"
	"github.com/ekalbevoldog/Contesttest-sub006/internal/protocol"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no traffic)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// State is the connection lifecycle state. Only the Manager mutates it;
// everything else reads.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateAuthenticated
	StateError
)

// String returns the wire-friendly state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// live reports whether the transport is usable for writes.
func (s State) live() bool {
	return s == StateConnected || s == StateAuthenticated
}

// StateChange is delivered to state-change handlers.
type StateChange struct {
	Old State
	New State
}

// TimestampedMessage wraps a raw frame with its receive timestamp.
type TimestampedMessage struct {
	Data       []byte
	ReceivedAt time.Time
}

// Inbound is delivered to message handlers. When the frame failed envelope
// decoding, Decoded is false and Raw still carries the original bytes so
// non-JSON diagnostic frames stay observable.
type Inbound struct {
	Envelope   protocol.Envelope
	Raw        []byte
	Decoded    bool
	ReceivedAt time.Time
}

// ClientConfig configures a single WebSocket transport.
type ClientConfig struct {
	URL              string        // WebSocket URL (e.g., wss://host/ws)
	HandshakeTimeout time.Duration // Dial deadline
	WriteTimeout     time.Duration // Write deadline for sends
	PingInterval     time.Duration // Transport-level keepalive ping interval
	StaleTimeout     time.Duration // Max time without traffic before the connection is stale
	BufferSize       int           // Inbound message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		PingInterval:     15 * time.Second,
		StaleTimeout:     45 * time.Second,
		BufferSize:       256,
	}
}

// Config configures the Connection Manager.
type Config struct {
	URL   string // WebSocket URL
	Token string // Bearer credential for the authenticate handshake; empty skips it

	// AuthAckType is the inbound envelope type acknowledging a successful
	// authenticate. Application-defined; defaults to protocol.DefaultAuthAckType.
	AuthAckType string

	ReconnectInterval    time.Duration // Backoff base delay
	MaxReconnectAttempts int           // Reconnect ceiling; 0 means DefaultMaxReconnectAttempts

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
	StaleTimeout     time.Duration
	BufferSize       int

	// Metrics receives instrumentation updates when non-nil.
	Metrics *metrics.Metrics
}

// DefaultMaxReconnectAttempts is the reconnect ceiling when unconfigured.
const DefaultMaxReconnectAttempts = 10

// DefaultConfig returns sensible defaults (URL and Token must be set by the
// caller).
func DefaultConfig() Config {
	cc := DefaultClientConfig()
	return Config{
		AuthAckType:          protocol.DefaultAuthAckType,
		ReconnectInterval:    time.Second,
		MaxReconnectAttempts: DefaultMaxReconnectAttempts,
		HandshakeTimeout:     cc.HandshakeTimeout,
		WriteTimeout:         cc.WriteTimeout,
		PingInterval:         cc.PingInterval,
		StaleTimeout:         cc.StaleTimeout,
		BufferSize:           cc.BufferSize,
	}
}

// Stats provides a point-in-time view of the manager.
type Stats struct {
	State             State
	ReconnectAttempts int
	QueueDepth        int
	Subscriptions     int
	SessionID         string
}
