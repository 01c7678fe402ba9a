// Package devserver provides a local realtime peer for development and
// integration testing: a WebSocket endpoint speaking the envelope protocol,
// plus health and metrics routes.
package devserver

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ekalbevoldog/Contesttest-sub006/internal/protocol"
)

// Config configures the development server.
type Config struct {
	// Path is the WebSocket route. Defaults to /ws.
	Path string

	// AuthAckType is the envelope type sent back after authenticate.
	// Defaults to protocol.DefaultAuthAckType.
	AuthAckType string

	// Token, when set, is required in authenticate envelopes; mismatches
	// are answered with a system notice instead of the acknowledgment.
	Token string
}

// Server is the development peer.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	hub      *hub
	upgrader websocket.Upgrader
}

// New creates a development server.
func New(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}
	if cfg.AuthAckType == "" {
		cfg.AuthAckType = protocol.DefaultAuthAckType
	}

	return &Server{
		cfg:    cfg,
		logger: logger,
		hub:    newHub(logger),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP routes: the WebSocket endpoint, a health check,
// and Prometheus metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get(s.cfg.Path, s.handleWS)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// handleWS upgrades the connection and runs the envelope loop.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "error", err)
		return
	}

	c := s.hub.register(conn)
	defer s.hub.unregister(c)

	s.logger.Debug("client connected", "remote", conn.RemoteAddr())

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.logger.Debug("client gone", "remote", conn.RemoteAddr(), "error", err)
			return
		}

		env, err := protocol.Decode(data)
		if err != nil {
			s.logger.Debug("ignoring undecodable frame", "error", err)
			continue
		}

		s.dispatch(c, env)
	}
}

func (s *Server) dispatch(c *client, env protocol.Envelope) {
	switch env.Type {
	case protocol.TypeAuthenticate:
		if s.cfg.Token != "" && env.Token != s.cfg.Token {
			s.logger.Warn("authenticate rejected", "session", env.SessionID)
			c.send(systemNotice("authentication failed"))
			return
		}
		c.setSession(env.SessionID)
		c.send(protocol.Envelope{Type: s.cfg.AuthAckType})

	case protocol.TypeSubscribe:
		c.subscribe(env.Channel)
		c.send(systemNotice("subscribed " + env.Channel))

	case protocol.TypeUnsubscribe:
		c.unsubscribe(env.Channel)
		c.send(systemNotice("unsubscribed " + env.Channel))

	case protocol.TypePing:
		c.send(protocol.Pong())

	default:
		// Application messages fan out to every subscriber of the channel.
		if env.Channel != "" {
			s.hub.broadcast(env.Channel, env)
		}
	}
}

func systemNotice(text string) protocol.Envelope {
	env, _ := protocol.Message("", text)
	env.Type = protocol.TypeSystem
	return env
}
