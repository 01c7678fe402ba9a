// Package protocol defines the wire envelope exchanged with the realtime
// server and its JSON codec.
//
// Every logical message is a single text frame carrying a JSON object tagged
// with a "type" field. The tag set is open: the client recognizes a handful
// of types for its own bookkeeping and passes everything else through to
// message handlers untouched.
package protocol

import (
	"encoding/json"
	"errors"
	"time"
)

// Outbound envelope types.
const (
	TypeAuthenticate = "authenticate"
	TypeSubscribe    = "subscribe"
	TypeUnsubscribe  = "unsubscribe"
	TypeMessage      = "message"
	TypePing         = "ping"
)

// Inbound envelope types the client inspects. Anything else is treated as an
// application-defined broadcast type.
const (
	TypeSystem = "system"
	TypePong   = "pong"

	// DefaultAuthAckType is the acknowledgment tag the server sends after a
	// successful authenticate. Overridable via configuration since the tag
	// is application-defined.
	DefaultAuthAckType = "auth_success"
)

// Errors
var (
	ErrEmptyFrame = errors.New("empty frame")
)

// Envelope is the structured unit of data exchanged over the connection.
// Fields beyond Type are type-specific; unused ones are omitted on the wire.
type Envelope struct {
	Type      string          `json:"type"`
	Token     string          `json:"token,omitempty"`
	Channel   string          `json:"channel,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"` // Unix milliseconds
}

// Authenticate builds the credential-bearing handshake envelope.
func Authenticate(token string) Envelope {
	return Envelope{Type: TypeAuthenticate, Token: token}
}

// Subscribe builds a subscribe envelope for a channel.
func Subscribe(channel string) Envelope {
	return Envelope{Type: TypeSubscribe, Channel: channel}
}

// Unsubscribe builds an unsubscribe envelope for a channel.
func Unsubscribe(channel string) Envelope {
	return Envelope{Type: TypeUnsubscribe, Channel: channel}
}

// Ping builds a liveness probe envelope.
func Ping() Envelope {
	return Envelope{Type: TypePing}
}

// Pong builds the liveness reply envelope.
func Pong() Envelope {
	return Envelope{Type: TypePong}
}

// Message builds an application message envelope on a channel. Content is
// marshaled to JSON.
func Message(channel string, content any) (Envelope, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: TypeMessage, Channel: channel, Content: raw}, nil
}

// Stamp sets the timestamp to now if unset and the session ID if the caller
// did not provide one. Returns the envelope for chaining at send sites.
func (e Envelope) Stamp(sessionID string) Envelope {
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().UnixMilli()
	}
	if e.SessionID == "" {
		e.SessionID = sessionID
	}
	return e
}

// Encode serializes an envelope to its wire form.
func Encode(e Envelope) ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a wire frame into an envelope. Malformed input returns an
// error; callers are expected to forward the raw frame rather than drop it.
// A valid JSON object without a "type" field decodes with an empty Type.
func Decode(data []byte) (Envelope, error) {
	if len(data) == 0 {
		return Envelope{}, ErrEmptyFrame
	}

	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, err
	}
	return e, nil
}
