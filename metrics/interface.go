package metrics

// MetricsCollector creates metrics on the application registry.
//
// Implemented by *Metrics. Names must be unique per process; creating the same
// name twice panics, so components create their metrics once at construction.
type MetricsCollector interface {
	// CreateCounter registers a counter vector.
	//
	// Example:
	//   emissions := m.CreateCounter("router_emissions_total", "Emitted results", []string{"topic", "outcome"})
	//   emissions.WithLabelValues("person-v1", "compatible").Inc()
	CreateCounter(name, help string, labels []string) Counter

	// CreateHistogram registers a histogram vector with the given buckets.
	CreateHistogram(name, help string, labels []string, buckets []float64) Histogram

	// CreateGauge registers a gauge vector.
	CreateGauge(name, help string, labels []string) Gauge
}
