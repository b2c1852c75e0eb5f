package logger

// Log levels accepted by Config.Level.
const (
	Debug   = "debug"
	Info    = "info"
	Warning = "warning"
	Error   = "error"
)

// Config controls the zap logger built by NewLoggerClient.
type Config struct {
	// Level is the minimum level written: "debug", "info", "warning" or "error".
	// Unknown values fall back to "info".
	Level string `envconfig:"LOG_LEVEL" default:"info"`

	// EnableTracing adds "trace_id" and "span_id" to entries written through the
	// *WithContext methods when the context carries a recording span.
	EnableTracing bool `envconfig:"LOG_ENABLE_TRACING" default:"true"`

	// ServiceName populates the "service" field of every entry.
	ServiceName string `envconfig:"SERVICE_NAME" default:"schema-evolution-lab"`

	// CallerSkip is the number of stack frames skipped when reporting the caller.
	// Values <= 0 default to 1.
	CallerSkip int `envconfig:"LOG_CALLER_SKIP"`
}
