package router

import (
	"go.uber.org/fx"

	"github.com/aalemi-dev/schema-evolution-lab/catalog"
	"github.com/aalemi-dev/schema-evolution-lab/envelope"
	"github.com/aalemi-dev/schema-evolution-lab/kafka"
	"github.com/aalemi-dev/schema-evolution-lab/metrics"
	"github.com/aalemi-dev/schema-evolution-lab/tracer"
)

// FXModule provides a *Factory.
var FXModule = fx.Module("router",
	fx.Provide(NewFactoryWithDI),
)

// RouterParams groups the factory's dependencies. Logger, Tracer and
// Collector are optional.
type RouterParams struct {
	fx.In

	Broker    kafka.Broker
	Codec     *envelope.Codec
	Catalog   *catalog.Catalog
	Logger    Logger                   `optional:"true"`
	Tracer    tracer.Tracer            `optional:"true"`
	Collector metrics.MetricsCollector `optional:"true"`
}

// NewFactoryWithDI builds a Factory from injected dependencies.
func NewFactoryWithDI(params RouterParams) *Factory {
	f := NewFactory(params.Broker, params.Codec, params.Catalog)
	if params.Logger != nil {
		f.WithLogger(params.Logger)
	}
	if params.Tracer != nil {
		f.WithTracer(params.Tracer)
	}
	if params.Collector != nil {
		f.WithMetrics(NewMetrics(params.Collector))
	}
	return f
}
