package producer

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/aalemi-dev/schema-evolution-lab/kafka"
	"github.com/aalemi-dev/schema-evolution-lab/observability"
	"github.com/aalemi-dev/schema-evolution-lab/schema_registry"
	"github.com/aalemi-dev/schema-evolution-lab/tracer"
)

// FXModule provides the Invoker selected by Config.Mode.
var FXModule = fx.Module("producer",
	fx.Provide(NewInvokerWithDI),
)

// ProducerParams groups the invoker dependencies. Registry and Broker are only
// used in ModeLocal.
type ProducerParams struct {
	fx.In

	Config   Config
	Registry schema_registry.Registry `optional:"true"`
	Broker   kafka.Broker             `optional:"true"`
	Tracer   tracer.Tracer            `optional:"true"`
	Observer observability.Observer   `optional:"true"`
	Logger   Logger                   `optional:"true"`
}

// NewInvokerWithDI builds the configured Invoker.
func NewInvokerWithDI(params ProducerParams) (Invoker, error) {
	observer := params.Observer
	if observer == nil {
		observer = observability.NewNoOpObserver()
	}

	switch params.Config.Mode {
	case ModeLambda, "":
		inv, err := NewLambdaInvoker(context.Background(), params.Config)
		if err != nil {
			return nil, err
		}
		inv.observer = observer
		inv.logger = params.Logger
		return inv, nil

	case ModeLocal:
		if params.Registry == nil || params.Broker == nil {
			return nil, fmt.Errorf("producer mode %q needs a schema registry and a broker", ModeLocal)
		}
		gen := NewLocalGenerator(params.Registry, params.Broker, params.Config)
		gen.tracer = params.Tracer
		gen.observer = observer
		gen.logger = params.Logger
		return gen, nil
	}
	return nil, fmt.Errorf("unknown producer mode %q", params.Config.Mode)
}
