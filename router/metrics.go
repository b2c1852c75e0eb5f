package router

import (
	"github.com/aalemi-dev/schema-evolution-lab/metrics"
)

// Message statuses counted by router_messages_total.
const (
	statusDecoded     = "decoded"
	statusMalformed   = "malformed"
	statusUnresolved  = "unresolved"
	statusUndecodable = "undecodable"
)

// Metrics are shared by every router in the process. A nil *Metrics records
// nothing.
type Metrics struct {
	messages  metrics.Counter
	emissions metrics.Counter
	latency   metrics.Histogram
}

// NewMetrics registers the router metrics on collector.
func NewMetrics(collector metrics.MetricsCollector) *Metrics {
	return &Metrics{
		messages: collector.CreateCounter(
			"router_messages_total",
			"Records consumed by stream routers",
			[]string{"topic", "status"},
		),
		emissions: collector.CreateCounter(
			"router_emissions_total",
			"Emissions delivered to observers",
			[]string{"topic", "display_area", "outcome"},
		),
		latency: collector.CreateHistogram(
			"router_process_duration_seconds",
			"Time to decode, transcode and deliver one record",
			[]string{"topic"},
			[]float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		),
	}
}

func (m *Metrics) message(topic, status string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(topic, status).Inc()
}

func (m *Metrics) emission(e Emission) {
	if m == nil {
		return
	}
	m.emissions.WithLabelValues(e.Topic, e.DisplayArea, string(e.Outcome)).Inc()
}

func (m *Metrics) processed(topic string, seconds float64) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(topic).Observe(seconds)
}
