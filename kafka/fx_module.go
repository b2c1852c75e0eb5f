package kafka

import (
	"context"

	"go.uber.org/fx"

	"github.com/aalemi-dev/schema-evolution-lab/observability"
)

// FXModule provides *KafkaBroker and the Broker interface and shuts every
// subscription down on application stop.
var FXModule = fx.Module("kafka",
	fx.Provide(
		NewBrokerWithDI,
		fx.Annotate(
			func(b *KafkaBroker) Broker { return b },
			fx.As(new(Broker)),
		),
	),
	fx.Invoke(RegisterKafkaLifecycle),
)

// KafkaParams groups the broker dependencies. Logger and Observer are optional.
type KafkaParams struct {
	fx.In

	Config   Config
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

// NewBrokerWithDI builds a KafkaBroker from injected dependencies.
func NewBrokerWithDI(params KafkaParams) (*KafkaBroker, error) {
	broker, err := NewBroker(params.Config)
	if err != nil {
		return nil, err
	}

	if params.Logger != nil {
		broker.logger = params.Logger
	}

	if params.Observer != nil {
		broker.observer = params.Observer
	}

	return broker, nil
}

// KafkaLifecycleParams groups the lifecycle dependencies.
type KafkaLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Broker    *KafkaBroker
}

// RegisterKafkaLifecycle shuts the broker down on application stop.
func RegisterKafkaLifecycle(params KafkaLifecycleParams) {
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			params.Broker.GracefulShutdown()
			return nil
		},
	})
}

// GracefulShutdown closes the reader or writer. Errors are logged, not returned.
func (k *KafkaClient) GracefulShutdown() {
	k.closeShutdownOnce.Do(func() {
		close(k.shutdownSignal)
	})

	k.mu.Lock()
	defer k.mu.Unlock()

	ctx := context.Background()

	if k.writer != nil {
		if err := k.writer.Close(); err != nil {
			k.logWarn(ctx, "Failed to close Kafka writer", map[string]interface{}{
				"error": err.Error(),
			})
		}
		k.writer = nil
	}

	if k.reader != nil {
		if err := k.reader.Close(); err != nil {
			k.logWarn(ctx, "Failed to close Kafka reader", map[string]interface{}{
				"topic": k.cfg.Topic,
				"error": err.Error(),
			})
		}
		k.reader = nil
		k.logInfo(ctx, "Left consumer group", map[string]interface{}{
			"topic":    k.cfg.Topic,
			"group_id": k.cfg.GroupID,
		})
	}
}
