package kafka

import (
	"context"
	"time"
)

// Broker opens per-topic subscriptions and publishes records.
//
// Implemented by *KafkaBroker.
type Broker interface {
	// Subscribe joins groupID on topic and starts fetching. The subscription
	// lives until Close is called or ctx is cancelled.
	Subscribe(ctx context.Context, topic, groupID string) (Subscription, error)

	// Publish writes one record to topic.
	Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error
}

// Subscription is one live consumer-group membership.
type Subscription interface {
	// Messages delivers records in partition order. It is closed when the
	// subscription stops, after which Err reports why.
	Messages() <-chan Message

	// Err returns the fatal fetch error that stopped the subscription, or nil
	// if it was closed or cancelled.
	Err() error

	// Close stops fetching, waits for the fetch goroutine and closes the reader,
	// which leaves the consumer group. It is safe to call more than once.
	Close() error
}

// Message is one consumed record.
type Message interface {
	// CommitMsg commits the record's offset for the group.
	CommitMsg() error

	Body() []byte
	Key() string
	Header() map[string]string
	Topic() string
	Partition() int
	Offset() int64

	// Time is the broker timestamp of the record.
	Time() time.Time
}
