// Package metrics provides Prometheus metrics for monitoring the realtime
// connection layer.
//
// Key metrics:
//   - Connection state and reconnect attempts
//   - Message send/receive/queue rates
//   - Outbound queue depth and tracked subscriptions
//   - Envelope parse failures
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "realtime"

// Metrics holds the collectors for one connection manager instance.
type Metrics struct {
	ConnectionState   prometheus.Gauge
	ReconnectAttempts prometheus.Counter
	MessagesSent      prometheus.Counter
	MessagesReceived  prometheus.Counter
	MessagesQueued    prometheus.Counter
	ParseFailures     prometheus.Counter
	QueueDepth        prometheus.Gauge
	Subscriptions     prometheus.Gauge
}

// New registers and returns the collectors. A nil registry uses the default
// registerer; tests pass their own to avoid cross-test collisions.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ConnectionState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "Current connection state (0=disconnected, 1=connecting, 2=connected, 3=authenticated, 4=error).",
		}),
		ReconnectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnect_attempts_total",
			Help:      "Number of scheduled reconnection attempts.",
		}),
		MessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Envelopes transmitted to the server.",
		}),
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Frames received from the server.",
		}),
		MessagesQueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_queued_total",
			Help:      "Envelopes buffered while disconnected.",
		}),
		ParseFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_failures_total",
			Help:      "Inbound frames that failed envelope decoding.",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Envelopes currently waiting in the outbound queue.",
		}),
		Subscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions",
			Help:      "Channels currently tracked for resubscription.",
		}),
	}
}
