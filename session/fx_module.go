package session

import (
	"context"

	"go.uber.org/fx"

	"github.com/aalemi-dev/schema-evolution-lab/metrics"
	"github.com/aalemi-dev/schema-evolution-lab/producer"
	"github.com/aalemi-dev/schema-evolution-lab/router"
)

// FXModule provides the session Manager and the observer Server and runs the
// server for the lifetime of the application.
var FXModule = fx.Module("session",
	fx.Provide(
		NewManagerWithDI,
		NewServerWithDI,
	),
	fx.Invoke(RegisterServerLifecycle),
)

// SessionParams groups the manager dependencies. Invoker, Logger and
// Collector are optional.
type SessionParams struct {
	fx.In

	Config    Config
	Factory   *router.Factory
	Invoker   producer.Invoker         `optional:"true"`
	Logger    Logger                   `optional:"true"`
	Collector metrics.MetricsCollector `optional:"true"`
}

// NewManagerWithDI builds a Manager from injected dependencies.
func NewManagerWithDI(params SessionParams) *Manager {
	m := NewManager(params.Config, params.Factory, params.Invoker)
	if params.Logger != nil {
		m.WithLogger(params.Logger)
	}
	if params.Collector != nil {
		m.WithMetrics(NewMetrics(params.Collector))
	}
	return m
}

// ServerParams groups the server dependencies.
type ServerParams struct {
	fx.In

	Config  Config
	Manager *Manager
	Logger  Logger `optional:"true"`
}

// NewServerWithDI builds a Server from injected dependencies.
func NewServerWithDI(params ServerParams) *Server {
	s := NewServer(params.Config, params.Manager)
	if params.Logger != nil {
		s.WithLogger(params.Logger)
	}
	return s
}

// RegisterServerLifecycle starts the server on application start and closes
// every session on stop.
func RegisterServerLifecycle(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return s.Start()
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
}
