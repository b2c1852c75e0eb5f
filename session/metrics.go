package session

import (
	"github.com/aalemi-dev/schema-evolution-lab/metrics"
)

// Metrics are shared by every session. A nil *Metrics records nothing.
type Metrics struct {
	sessions      metrics.Gauge
	subscriptions metrics.Gauge
	generates     metrics.Counter
}

// NewMetrics registers the session metrics on collector.
func NewMetrics(collector metrics.MetricsCollector) *Metrics {
	return &Metrics{
		sessions: collector.CreateGauge(
			"sessions_active",
			"Connected observer sessions",
			nil,
		),
		subscriptions: collector.CreateGauge(
			"subscriptions_active",
			"Running stream routers by topic",
			[]string{"topic"},
		),
		generates: collector.CreateCounter(
			"generate_requests_total",
			"Generate requests from observers",
			[]string{"topic", "status"},
		),
	}
}

func (m *Metrics) sessionOpened() {
	if m != nil {
		m.sessions.Inc()
	}
}

func (m *Metrics) sessionClosed() {
	if m != nil {
		m.sessions.Dec()
	}
}

func (m *Metrics) subscribed(topic string) {
	if m != nil {
		m.subscriptions.WithLabelValues(topic).Inc()
	}
}

func (m *Metrics) unsubscribed(topic string) {
	if m != nil {
		m.subscriptions.WithLabelValues(topic).Dec()
	}
}

func (m *Metrics) generate(topic, status string) {
	if m != nil {
		m.generates.WithLabelValues(topic, status).Inc()
	}
}
