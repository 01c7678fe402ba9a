package devserver

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ekalbevoldog/Contesttest-sub006/internal/protocol"
)

// hub tracks connected clients and their channel subscriptions.
type hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

func (h *hub) register(conn *websocket.Conn) *client {
	c := &client{
		conn:     conn,
		channels: make(map[string]struct{}),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.conn.Close()
}

// broadcast delivers an envelope to every client subscribed to the channel.
func (h *hub) broadcast(channel string, env protocol.Envelope) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if c.isSubscribed(channel) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.send(env); err != nil {
			h.logger.Debug("broadcast write failed", "channel", channel, "error", err)
		}
	}
}

// client is one connected peer.
type client struct {
	conn *websocket.Conn

	mu       sync.Mutex
	session  string
	channels map[string]struct{}
}

func (c *client) setSession(id string) {
	c.mu.Lock()
	c.session = id
	c.mu.Unlock()
}

func (c *client) subscribe(channel string) {
	if channel == "" {
		return
	}
	c.mu.Lock()
	c.channels[channel] = struct{}{}
	c.mu.Unlock()
}

func (c *client) unsubscribe(channel string) {
	c.mu.Lock()
	delete(c.channels, channel)
	c.mu.Unlock()
}

func (c *client) isSubscribed(channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.channels[channel]
	return ok
}

// send serializes writes so broadcasts and replies cannot interleave.
func (c *client) send(env protocol.Envelope) error {
	data, err := protocol.Encode(env.Stamp(""))
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}
