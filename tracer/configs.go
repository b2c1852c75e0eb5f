package tracer

// Config controls the OpenTelemetry tracer provider.
type Config struct {
	// ServiceName is recorded as the service.name resource attribute.
	ServiceName string `envconfig:"TRACING_SERVICE_NAME" default:"schema-evolution-lab"`

	// AppEnv is recorded as deployment.environment.
	AppEnv string `envconfig:"APP_ENV" default:"development"`

	// EnableExport turns on the OTLP HTTP exporter. Without it spans are still
	// created so trace ids show up in logs, they are just never shipped.
	EnableExport bool `envconfig:"TRACING_ENABLE_EXPORT" default:"false"`

	// Endpoint overrides the collector host:port. Empty falls back to the
	// standard OTEL_EXPORTER_OTLP_* environment variables.
	Endpoint string `envconfig:"TRACING_ENDPOINT"`

	// Insecure disables TLS towards Endpoint.
	Insecure bool `envconfig:"TRACING_INSECURE" default:"true"`
}
