package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the system and application registries and their HTTP servers.
type Metrics struct {
	// SystemServer serves /metrics for the system registry; nil when disabled.
	SystemServer *http.Server

	// ApplicationServer serves /metrics for the application registry; nil when disabled.
	ApplicationServer *http.Server

	// SystemRegistry holds the Go runtime, process and build info collectors.
	// nil when the system endpoint is disabled.
	SystemRegistry *prometheus.Registry

	// ApplicationRegistry holds every metric created through MetricsCollector.
	// It always exists so components can register metrics even when the
	// endpoint is not served.
	ApplicationRegistry *prometheus.Registry

	// wrappedApplicationRegisterer adds the constant service label.
	wrappedApplicationRegisterer prometheus.Registerer
}

// NewMetrics builds the registries and, for every enabled address, an
// http.Server. Servers are started by RegisterMetricsLifecycle.
//
// Example:
//
//	m := metrics.NewMetrics(metrics.Config{ServiceName: "schema-evolution-lab"})
//	go m.ApplicationServer.ListenAndServe()
func NewMetrics(cfg Config) *Metrics {
	m := &Metrics{}

	if systemAddr := resolveAddress(cfg.SystemMetricsAddress, DefaultSystemMetricsAddress); systemAddr != "" {
		systemRegistry := prometheus.NewRegistry()
		prometheus.WrapRegistererWith(
			prometheus.Labels{"service": cfg.ServiceName},
			systemRegistry,
		).MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)

		m.SystemRegistry = systemRegistry
		m.SystemServer = &http.Server{
			Addr:    systemAddr,
			Handler: promhttp.HandlerFor(systemRegistry, promhttp.HandlerOpts{}),
		}
	}

	m.ApplicationRegistry = prometheus.NewRegistry()
	m.wrappedApplicationRegisterer = prometheus.WrapRegistererWith(
		prometheus.Labels{"service": cfg.ServiceName},
		m.ApplicationRegistry,
	)

	if appAddr := resolveAddress(cfg.ApplicationMetricsAddress, DefaultApplicationMetricsAddress); appAddr != "" {
		m.ApplicationServer = &http.Server{
			Addr:    appAddr,
			Handler: promhttp.HandlerFor(m.ApplicationRegistry, promhttp.HandlerOpts{}),
		}
	}

	return m
}
