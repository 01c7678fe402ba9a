package connection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ekalbevoldog/Contesttest-sub006/internal/bus"
	"github.com/ekalbevoldog/Contesttest-sub006/internal/protocol"
	"github.com/ekalbevoldog/Contesttest-sub006/internal/session"
)

// Manager owns one realtime connection: lifecycle, handshake, subscription
// replay, outbound buffering, and event fan-out. All methods return
// immediately; work happens on transport callbacks and timers.
type Manager interface {
	// Connect opens the transport. Idempotent: a no-op while a connection
	// is open or opening. Also the opportunistic external trigger for hosts
	// wiring network-online or visibility signals; calling it does not
	// consume the backoff counter.
	Connect()

	// Disconnect closes the transport, cancels any pending reconnect, and
	// clears the outbound queue. The manager stays down until Connect.
	Disconnect()

	// Send transmits an envelope when connected, queueing it otherwise.
	// Returns true when the envelope went out immediately.
	Send(env protocol.Envelope) bool

	// Subscribe tracks a channel and, when connected, sends the subscribe
	// envelope. Tracked channels are replayed after every reconnect.
	Subscribe(channel string)

	// Unsubscribe stops tracking a channel and, when connected, sends the
	// unsubscribe envelope.
	Unsubscribe(channel string)

	// State returns the current connection state.
	State() State

	// SessionID returns the session identity attached to outbound envelopes.
	SessionID() string

	// OnMessage registers a handler for inbound frames.
	OnMessage(fn func(Inbound)) (cancel func())

	// OnConnect registers a handler fired once per successful open. A
	// handler registered while already connected fires immediately for the
	// current open.
	OnConnect(fn func()) (cancel func())

	// OnDisconnect registers a handler fired when the transport closes.
	// The error is nil for caller-initiated disconnects.
	OnDisconnect(fn func(err error)) (cancel func())

	// OnStateChange registers a handler for state transitions.
	OnStateChange(fn func(StateChange)) (cancel func())

	// Stats returns a point-in-time snapshot.
	Stats() Stats
}

// manager implements the Manager interface.
type manager struct {
	cfg     Config
	logger  *slog.Logger
	ident   *session.Identity
	backoff Backoff

	mu             sync.Mutex
	state          State
	client         Client
	connDone       chan struct{}
	gen            uint64
	opens          uint64
	attempts       int
	reconnectTimer *time.Timer
	userClosed     bool
	handshakeSent  bool
	queue          *queue
	registry       *registry

	msgFeed        bus.Feed[Inbound]
	connectFeed    bus.Feed[uint64]
	disconnectFeed bus.Feed[error]
	stateFeed      bus.Feed[StateChange]
}

// NewManager creates a Connection Manager. A nil identity gets a fresh
// non-persisted one.
func NewManager(cfg Config, ident *session.Identity, logger *slog.Logger) Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if ident == nil {
		ident = session.Load(session.Options{}, logger)
	}

	def := DefaultConfig()
	if cfg.AuthAckType == "" {
		cfg.AuthAckType = def.AuthAckType
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = def.ReconnectInterval
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = def.MaxReconnectAttempts
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.StaleTimeout <= 0 {
		cfg.StaleTimeout = def.StaleTimeout
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}

	backoff := DefaultBackoff()
	backoff.Base = cfg.ReconnectInterval

	return &manager{
		cfg:      cfg,
		logger:   logger,
		ident:    ident,
		backoff:  backoff,
		state:    StateDisconnected,
		queue:    &queue{},
		registry: newRegistry(),
	}
}

// Connect opens the transport unless one is open or opening.
func (m *manager) Connect() {
	m.mu.Lock()
	if m.state == StateConnecting || m.state.live() {
		m.mu.Unlock()
		return
	}
	m.userClosed = false
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	m.gen++
	gen := m.gen
	change, changed := m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	m.emitState(change, changed)
	go m.dial(gen)
}

// Disconnect closes the transport and stops all recovery.
func (m *manager) Disconnect() {
	m.mu.Lock()
	m.userClosed = true
	m.gen++
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	if m.connDone != nil {
		close(m.connDone)
		m.connDone = nil
	}
	cli := m.client
	m.client = nil
	m.handshakeSent = false
	m.attempts = 0
	dropped := m.queue.clear()
	change, changed := m.setStateLocked(StateDisconnected)
	m.updateGaugesLocked()
	m.mu.Unlock()

	if cli != nil {
		cli.Close()
	}
	if dropped > 0 {
		m.logger.Debug("cleared outbound queue", "dropped", dropped)
	}
	m.emitState(change, changed)
	if cli != nil {
		m.disconnectFeed.Publish(nil)
	}
}

// Send transmits or queues one envelope.
func (m *manager) Send(env protocol.Envelope) bool {
	data, err := protocol.Encode(env.Stamp(m.ident.ID()))
	if err != nil {
		m.logger.Warn("dropping unencodable envelope", "type", env.Type, "error", err)
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Immediate writes are only valid while nothing is queued, so queued
	// and live sends can never interleave out of order.
	if m.state.live() && m.client != nil && m.queue.len() == 0 {
		err := m.client.Send(data)
		if err == nil {
			m.countSentLocked(1)
			return true
		}
		m.logger.Warn("send failed, queueing envelope", "type", env.Type, "error", err)
	}

	m.queue.push(data)
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.MessagesQueued.Inc()
	}
	m.updateGaugesLocked()
	return false
}

// Subscribe tracks a channel and sends the subscribe envelope when connected.
func (m *manager) Subscribe(channel string) {
	m.mu.Lock()
	added := m.registry.add(channel)
	if added && m.state.live() && m.client != nil {
		m.writeLocked(protocol.Subscribe(channel))
	}
	m.updateGaugesLocked()
	m.mu.Unlock()
}

// Unsubscribe stops tracking a channel and sends the unsubscribe envelope
// when connected.
func (m *manager) Unsubscribe(channel string) {
	m.mu.Lock()
	removed := m.registry.remove(channel)
	if removed && m.state.live() && m.client != nil {
		m.writeLocked(protocol.Unsubscribe(channel))
	}
	m.updateGaugesLocked()
	m.mu.Unlock()
}

// State returns the current connection state.
func (m *manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SessionID returns the current session identity.
func (m *manager) SessionID() string {
	return m.ident.ID()
}

// OnMessage registers an inbound frame handler.
func (m *manager) OnMessage(fn func(Inbound)) func() {
	return m.msgFeed.Subscribe(fn)
}

// OnConnect registers a connect handler, firing it immediately when already
// connected so late subscribers do not miss an already-true condition. Each
// open carries a sequence number; the per-handler guard keeps the immediate
// fire and the in-flight publish for the same open from both delivering.
func (m *manager) OnConnect(fn func()) func() {
	var mu sync.Mutex
	var last uint64
	fire := func(seq uint64) {
		mu.Lock()
		if seq <= last {
			mu.Unlock()
			return
		}
		last = seq
		mu.Unlock()
		fn()
	}

	cancel := m.connectFeed.Subscribe(fire)

	m.mu.Lock()
	var current uint64
	if m.state.live() {
		current = m.opens
	}
	m.mu.Unlock()
	if current > 0 {
		fire(current)
	}

	return cancel
}

// OnDisconnect registers a disconnect handler.
func (m *manager) OnDisconnect(fn func(error)) func() {
	return m.disconnectFeed.Subscribe(fn)
}

// OnStateChange registers a state transition handler.
func (m *manager) OnStateChange(fn func(StateChange)) func() {
	return m.stateFeed.Subscribe(fn)
}

// Stats returns a point-in-time snapshot.
func (m *manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		State:             m.state,
		ReconnectAttempts: m.attempts,
		QueueDepth:        m.queue.len(),
		Subscriptions:     m.registry.len(),
		SessionID:         m.ident.ID(),
	}
}

// dial opens a transport for the given connect generation. A generation that
// went stale (Disconnect or a newer Connect) discards its result instead of
// promoting it.
func (m *manager) dial(gen uint64) {
	cli := NewClient(ClientConfig{
		URL:              m.cfg.URL,
		HandshakeTimeout: m.cfg.HandshakeTimeout,
		WriteTimeout:     m.cfg.WriteTimeout,
		PingInterval:     m.cfg.PingInterval,
		StaleTimeout:     m.cfg.StaleTimeout,
		BufferSize:       m.cfg.BufferSize,
	}, m.logger)

	err := cli.Connect(context.Background())

	m.mu.Lock()
	if gen != m.gen || m.userClosed {
		m.mu.Unlock()
		if err == nil {
			cli.Close()
		}
		return
	}

	if err != nil {
		m.logger.Warn("connect failed", "url", m.cfg.URL, "error", err)
		change, changed := m.setStateLocked(StateError)
		final, finalChanged := m.scheduleReconnectLocked()
		m.mu.Unlock()
		m.emitState(change, changed)
		m.emitState(final, finalChanged)
		return
	}

	m.client = cli
	m.connDone = make(chan struct{})
	done := m.connDone
	m.attempts = 0
	m.handshakeSent = false
	m.opens++
	openSeq := m.opens
	change, changed := m.setStateLocked(StateConnected)

	// Post-open sequence: handshake first, then subscription replay, then
	// the queue flush. Holding the lock keeps new sends from interleaving.
	if m.cfg.Token != "" {
		if err := m.writeLocked(protocol.Authenticate(m.cfg.Token)); err == nil {
			m.handshakeSent = true
		}
	}

	for _, channel := range m.registry.channels() {
		m.writeLocked(protocol.Subscribe(channel))
	}

	if sent, err := m.queue.drain(cli.Send); err != nil {
		m.logger.Warn("queue flush interrupted",
			"sent", sent,
			"remaining", m.queue.len(),
			"error", err,
		)
		m.countSentLocked(sent)
	} else if sent > 0 {
		m.logger.Debug("outbound queue flushed", "sent", sent)
		m.countSentLocked(sent)
	}
	m.updateGaugesLocked()
	m.mu.Unlock()

	m.logger.Info("connected", "url", m.cfg.URL)
	m.emitState(change, changed)
	m.connectFeed.Publish(openSeq)

	go m.readLoop(cli, gen, done)
	go m.heartbeatLoop(gen, done)
}

// heartbeatLoop sends envelope-level pings while the connection is live and
// refreshes the queue and subscription gauges. Transport liveness itself is
// tracked by the client's keepalive; this is the application-level probe the
// server answers with a pong envelope.
func (m *manager) heartbeatLoop(gen uint64, done chan struct{}) {
	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			m.mu.Lock()
			if gen != m.gen || !m.state.live() || m.client == nil {
				m.mu.Unlock()
				return
			}
			m.writeLocked(protocol.Ping())
			m.updateGaugesLocked()
			m.mu.Unlock()
		}
	}
}

// readLoop pumps inbound frames until the transport dies or Disconnect.
func (m *manager) readLoop(cli Client, gen uint64, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg, ok := <-cli.Messages():
			if !ok {
				return
			}
			m.handleInbound(msg)
		case err := <-cli.Errors():
			m.handleClosed(gen, err)
			return
		}
	}
}

// handleInbound decodes one frame and fans it out. Undecodable frames are
// forwarded raw rather than dropped.
func (m *manager) handleInbound(msg TimestampedMessage) {
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.MessagesReceived.Inc()
	}

	in := Inbound{Raw: msg.Data, ReceivedAt: msg.ReceivedAt}

	env, err := protocol.Decode(msg.Data)
	if err != nil {
		m.logger.Debug("forwarding undecodable frame", "error", err)
		if m.cfg.Metrics != nil {
			m.cfg.Metrics.ParseFailures.Inc()
		}
	} else {
		in.Envelope = env
		in.Decoded = true
	}

	// The authenticated transition requires that we actually sent an
	// authenticate on this transport; a stray ack does not count.
	if in.Decoded && env.Type == m.cfg.AuthAckType {
		m.mu.Lock()
		var change StateChange
		var changed bool
		if m.handshakeSent && m.state == StateConnected {
			change, changed = m.setStateLocked(StateAuthenticated)
		}
		m.mu.Unlock()
		m.emitState(change, changed)
	}

	m.msgFeed.Publish(in)
}

// handleClosed reacts to unexpected transport closure.
func (m *manager) handleClosed(gen uint64, err error) {
	m.mu.Lock()
	if gen != m.gen || m.userClosed {
		m.mu.Unlock()
		return
	}

	m.logger.Warn("connection closed unexpectedly", "error", err)
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}
	if m.connDone != nil {
		close(m.connDone)
		m.connDone = nil
	}
	m.handshakeSent = false
	change, changed := m.setStateLocked(StateDisconnected)
	final, finalChanged := m.scheduleReconnectLocked()
	m.mu.Unlock()

	m.emitState(change, changed)
	m.disconnectFeed.Publish(err)
	m.emitState(final, finalChanged)
}

// scheduleReconnectLocked arms the backoff timer for the next attempt, or
// settles into disconnected once the ceiling is reached.
func (m *manager) scheduleReconnectLocked() (StateChange, bool) {
	if m.attempts >= m.cfg.MaxReconnectAttempts {
		m.logger.Warn("reconnect ceiling reached, staying disconnected",
			"attempts", m.attempts,
		)
		return m.setStateLocked(StateDisconnected)
	}

	m.attempts++
	delay := m.backoff.Delay(m.attempts)
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.ReconnectAttempts.Inc()
	}
	m.logger.Info("scheduling reconnect",
		"attempt", m.attempts,
		"max", m.cfg.MaxReconnectAttempts,
		"delay", delay,
	)

	gen := m.gen
	m.reconnectTimer = time.AfterFunc(delay, func() { m.retry(gen) })
	return StateChange{}, false
}

// retry is the reconnect timer callback.
func (m *manager) retry(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.userClosed || m.state == StateConnecting || m.state.live() {
		m.mu.Unlock()
		return
	}
	m.reconnectTimer = nil
	m.gen++
	newGen := m.gen
	change, changed := m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	m.emitState(change, changed)
	go m.dial(newGen)
}

// writeLocked stamps, encodes, and transmits one envelope on the live
// transport. Caller holds m.mu with m.client non-nil.
func (m *manager) writeLocked(env protocol.Envelope) error {
	data, err := protocol.Encode(env.Stamp(m.ident.ID()))
	if err != nil {
		m.logger.Warn("dropping unencodable envelope", "type", env.Type, "error", err)
		return err
	}
	if err := m.client.Send(data); err != nil {
		m.logger.Warn("envelope send failed", "type", env.Type, "error", err)
		return err
	}
	m.countSentLocked(1)
	return nil
}

// setStateLocked records a transition. The returned change must be emitted
// after m.mu is released so handlers can call back into the manager.
func (m *manager) setStateLocked(s State) (StateChange, bool) {
	if m.state == s {
		return StateChange{}, false
	}
	change := StateChange{Old: m.state, New: s}
	m.state = s
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.ConnectionState.Set(float64(s))
	}
	return change, true
}

func (m *manager) emitState(change StateChange, changed bool) {
	if changed {
		m.stateFeed.Publish(change)
	}
}

func (m *manager) countSentLocked(n int) {
	if m.cfg.Metrics != nil && n > 0 {
		m.cfg.Metrics.MessagesSent.Add(float64(n))
	}
}

func (m *manager) updateGaugesLocked() {
	if m.cfg.Metrics == nil {
		return
	}
	m.cfg.Metrics.QueueDepth.Set(float64(m.queue.len()))
	m.cfg.Metrics.Subscriptions.Set(float64(m.registry.len()))
}
