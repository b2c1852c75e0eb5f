package kafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/aalemi-dev/schema-evolution-lab/observability"
)

// KafkaBroker implements Broker. Each Subscribe creates a dedicated consumer
// client; Publish goes through one lazily created writer shared by all callers.
type KafkaBroker struct {
	cfg      Config
	logger   Logger
	observer observability.Observer

	mu        sync.Mutex
	publisher *KafkaClient
	subs      map[*subscription]struct{}
	closed    bool
}

// NewBroker validates cfg. No connection is made until the first Subscribe or Publish.
func NewBroker(cfg Config) (*KafkaBroker, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	return &KafkaBroker{
		cfg:  cfg,
		subs: make(map[*subscription]struct{}),
	}, nil
}

// WithObserver sets the observer handed to every client the broker creates.
func (b *KafkaBroker) WithObserver(observer observability.Observer) *KafkaBroker {
	b.observer = observer
	return b
}

// WithLogger sets the logger handed to every client the broker creates.
func (b *KafkaBroker) WithLogger(logger Logger) *KafkaBroker {
	b.logger = logger
	return b
}

// Subscribe starts a consumer for topic in groupID.
func (b *KafkaBroker) Subscribe(ctx context.Context, topic, groupID string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrSubscriptionClosed
	}

	cfg := b.cfg
	cfg.Topic = topic
	cfg.GroupID = groupID
	cfg.IsConsumer = true

	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer for %s: %w", topic, err)
	}
	client.WithLogger(b.logger).WithObserver(b.observer)

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		client: client,
		cancel: cancel,
		broker: b,
	}
	sub.messages, sub.errCh = client.Consume(subCtx, &sub.wg)
	b.subs[sub] = struct{}{}

	client.logInfo(ctx, "Subscribed", map[string]interface{}{
		"topic":    topic,
		"group_id": groupID,
	})
	return sub, nil
}

// Publish writes one record through the shared publisher.
func (b *KafkaBroker) Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error {
	publisher, err := b.getPublisher()
	if err != nil {
		return err
	}
	return publisher.Publish(ctx, topic, key, value, headers)
}

func (b *KafkaBroker) getPublisher() (*KafkaClient, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrSubscriptionClosed
	}
	if b.publisher != nil {
		return b.publisher, nil
	}

	cfg := b.cfg
	cfg.IsConsumer = false
	cfg.Topic = ""

	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}
	b.publisher = client.WithLogger(b.logger).WithObserver(b.observer)
	return b.publisher, nil
}

// ActiveSubscriptions returns the number of subscriptions not yet closed.
func (b *KafkaBroker) ActiveSubscriptions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// GracefulShutdown closes every live subscription and the publisher.
// Subsequent Subscribe and Publish calls fail with ErrSubscriptionClosed.
func (b *KafkaBroker) GracefulShutdown() {
	b.mu.Lock()
	b.closed = true
	subs := make([]*subscription, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	publisher := b.publisher
	b.mu.Unlock()

	for _, s := range subs {
		_ = s.Close()
	}
	if publisher != nil {
		publisher.GracefulShutdown()
	}
}

func (b *KafkaBroker) forget(s *subscription) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

type subscription struct {
	client   *KafkaClient
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	messages <-chan Message
	errCh    <-chan error
	broker   *KafkaBroker

	errMu sync.Mutex
	err   error

	closeOnce sync.Once
}

func (s *subscription) Messages() <-chan Message { return s.messages }

func (s *subscription) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		select {
		case err := <-s.errCh:
			s.err = err
		default:
		}
	}
	return s.err
}

// Close cancels the fetch loop, waits for it to exit and then closes the
// reader so the member leaves its group before Close returns.
func (s *subscription) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
		s.client.GracefulShutdown()
		s.broker.forget(s)
	})
	return nil
}
