package tracer

import (
	"context"

	"go.uber.org/fx"

	"github.com/aalemi-dev/schema-evolution-lab/logger"
)

// FXModule provides *TracerClient and the Tracer interface and flushes the
// provider on shutdown.
var FXModule = fx.Module("tracer",
	fx.Provide(
		NewClient,
		fx.Annotate(
			func(t *TracerClient) Tracer { return t },
			fx.As(new(Tracer)),
		),
	),
	fx.Invoke(RegisterTracerLifecycle),
)

// TracerLifecycleParams groups the lifecycle dependencies. The logger is optional.
type TracerLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Tracer    *TracerClient
	Logger    *logger.LoggerClient `optional:"true"`
}

// RegisterTracerLifecycle shuts the provider down on application stop,
// flushing buffered spans to the exporter.
func RegisterTracerLifecycle(p TracerLifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if p.Tracer.tracer == nil {
				return nil
			}
			if p.Logger != nil {
				p.Logger.Info("Shutting down tracer", nil)
			}
			return p.Tracer.tracer.Shutdown(ctx)
		},
	})
}
