package session

import "time"

// Consumer group modes accepted by Config.GroupMode.
const (
	// GroupPerSession gives every session its own group, "<topic>.<session id>",
	// so each observer sees every record.
	GroupPerSession = "session"

	// GroupPerTopic shares one group, "<topic>", across sessions; records are
	// split between concurrent observers.
	GroupPerTopic = "topic"
)

const (
	DefaultAddress       = "0.0.0.0:5678"
	DefaultWriteTimeout  = 5 * time.Second
	DefaultReadLimit     = 64 * 1024
	DefaultGenerateRate  = 2.0
	DefaultGenerateBurst = 5
)

// Config configures the observer server and sessions.
type Config struct {
	Address string `envconfig:"SERVER_ADDRESS" default:"0.0.0.0:5678"`

	// WriteTimeout bounds every write to an observer.
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"5s"`

	// ReadLimit is the largest inbound frame accepted, in bytes.
	ReadLimit int64 `envconfig:"SERVER_READ_LIMIT" default:"65536"`

	// SourceTopics are subscribed on "setup-connect".
	SourceTopics []string `envconfig:"SOURCE_TOPICS" default:"person-v1,person-v2"`

	GroupMode string `envconfig:"CONSUMER_GROUP_MODE" default:"session"`

	// GenerateRate and GenerateBurst limit generate requests per session.
	GenerateRate  float64 `envconfig:"GENERATE_RATE_PER_SECOND" default:"2"`
	GenerateBurst int     `envconfig:"GENERATE_BURST" default:"5"`
}

func (c Config) withDefaults() Config {
	if c.Address == "" {
		c.Address = DefaultAddress
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = DefaultReadLimit
	}
	if c.GroupMode == "" {
		c.GroupMode = GroupPerSession
	}
	if c.GenerateRate <= 0 {
		c.GenerateRate = DefaultGenerateRate
	}
	if c.GenerateBurst <= 0 {
		c.GenerateBurst = DefaultGenerateBurst
	}
	return c
}

// groupID returns the consumer group for topic in session id.
func (c Config) groupID(topic, id string) string {
	if c.GroupMode == GroupPerTopic {
		return topic
	}
	return topic + "." + id
}
