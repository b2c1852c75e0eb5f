package metrics

// Default listen addresses.
const (
	DefaultSystemMetricsAddress      = ":9090"
	DefaultApplicationMetricsAddress = ":9091"
)

// Config controls the two Prometheus endpoints.
//
// The system endpoint exposes Go runtime, process and build info collectors.
// The application endpoint exposes the router, session and infrastructure
// metrics created through MetricsCollector.
type Config struct {
	// SystemMetricsAddress is the listen address of the system endpoint.
	// nil means DefaultSystemMetricsAddress; a pointer to "" disables the endpoint.
	SystemMetricsAddress *string `yaml:"system_metrics_address" envconfig:"METRICS_SYSTEM_ADDRESS"`

	// ApplicationMetricsAddress is the listen address of the application endpoint.
	// nil means DefaultApplicationMetricsAddress; a pointer to "" disables the
	// HTTP server. Metrics are still registered, they are just not served.
	ApplicationMetricsAddress *string `yaml:"application_metrics_address" envconfig:"METRICS_APPLICATION_ADDRESS"`

	// ServiceName is attached as the constant "service" label.
	ServiceName string `yaml:"service_name" envconfig:"METRICS_SERVICE_NAME" default:"schema-evolution-lab"`
}

// Ptr returns a pointer to s, for building Config literals.
func Ptr(s string) *string {
	return &s
}

func resolveAddress(addr *string, fallback string) string {
	if addr == nil {
		return fallback
	}
	return *addr
}
