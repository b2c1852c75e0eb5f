package kafka

import (
	"context"
	"time"
)

// Config holds the cluster-wide settings shared by every reader and writer the
// Broker creates. Topic, GroupID and IsConsumer are filled in per client.
type Config struct {
	// Brokers is the bootstrap list, comma separated in the environment.
	Brokers []string `envconfig:"KAFKA_CLUSTER_HOSTNAME" required:"true"`

	// Topic is the topic of a single consumer client. Publisher clients leave it
	// empty and name the topic per message.
	Topic string `ignored:"true"`

	// GroupID is the consumer group of a single consumer client.
	GroupID string `ignored:"true"`

	// IsConsumer selects a reader (true) or a writer (false).
	IsConsumer bool `ignored:"true"`

	// MinBytes is the minimum fetch size. Default: 1 byte
	MinBytes int `envconfig:"KAFKA_MIN_BYTES"`

	// MaxBytes is the maximum fetch size. Default: 10MB
	MaxBytes int `envconfig:"KAFKA_MAX_BYTES"`

	// MaxWait bounds how long a fetch waits for MinBytes. Default: 500ms
	MaxWait time.Duration `envconfig:"KAFKA_MAX_WAIT"`

	// StartOffset applies when the group has no committed offset:
	// FirstOffset (-2) or LastOffset (-1). Default: LastOffset, observers see a
	// live view.
	StartOffset int64 `envconfig:"KAFKA_START_OFFSET"`

	// CommitInterval is how often the reader commits. Default: 1s
	CommitInterval time.Duration `envconfig:"KAFKA_COMMIT_INTERVAL"`

	// RequiredAcks: RequireNone (0), RequireOne (1) or RequireAll (-1).
	// Default: RequireAll
	RequiredAcks int `envconfig:"KAFKA_REQUIRED_ACKS"`

	// WriteTimeout bounds a publish. Default: 10s
	WriteTimeout time.Duration `envconfig:"KAFKA_WRITE_TIMEOUT"`

	// MaxAttempts is the number of delivery attempts per publish. Default: 10
	MaxAttempts int `envconfig:"KAFKA_MAX_ATTEMPTS"`

	// CompressionCodec is one of "", gzip, snappy, lz4, zstd.
	CompressionCodec string `envconfig:"KAFKA_COMPRESSION"`

	// AllowAutoTopicCreation lets the writer create missing topics.
	AllowAutoTopicCreation bool `envconfig:"KAFKA_ALLOW_AUTO_TOPIC_CREATION" default:"true"`

	// RetryBackoff is the pause after a retryable fetch error. Default: 1s
	RetryBackoff time.Duration `envconfig:"KAFKA_RETRY_BACKOFF"`

	TLS  TLSConfig  `split_words:"true"`
	SASL SASLConfig `split_words:"true"`
}

// Logger is the logging surface the client needs; *logger.LoggerClient satisfies it.
type Logger interface {
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

// TLSConfig contains TLS settings for the broker connection.
type TLSConfig struct {
	Enabled        bool   `envconfig:"KAFKA_TLS_ENABLED"`
	CACertPath     string `envconfig:"KAFKA_TLS_CA_CERT_PATH"`
	ClientCertPath string `envconfig:"KAFKA_TLS_CLIENT_CERT_PATH"`
	ClientKeyPath  string `envconfig:"KAFKA_TLS_CLIENT_KEY_PATH"`

	// InsecureSkipVerify is only meant for local clusters.
	InsecureSkipVerify bool `envconfig:"KAFKA_TLS_INSECURE_SKIP_VERIFY"`
}

// SASLConfig contains SASL authentication settings.
type SASLConfig struct {
	Enabled bool `envconfig:"KAFKA_SASL_ENABLED"`

	// Mechanism is "PLAIN", "SCRAM-SHA-256" or "SCRAM-SHA-512".
	Mechanism string `envconfig:"KAFKA_SASL_MECHANISM"`
	Username  string `envconfig:"KAFKA_SASL_USERNAME"`
	Password  string `envconfig:"KAFKA_SASL_PASSWORD"` //nolint:gosec
}

// Default values for configuration
const (
	DefaultMinBytes       = 1
	DefaultMaxBytes       = 10e6 // 10MB
	DefaultMaxWait        = 500 * time.Millisecond
	DefaultCommitInterval = 1 * time.Second
	DefaultStartOffset    = LastOffset
	DefaultRequiredAcks   = RequireAll
	DefaultMaxAttempts    = 10
	DefaultWriteTimeout   = 10 * time.Second
	DefaultRetryBackoff   = 1 * time.Second

	// Producer acknowledgment modes
	RequireNone = 0
	RequireOne  = 1
	RequireAll  = -1

	// Consumer offset modes
	FirstOffset = -2
	LastOffset  = -1
)
