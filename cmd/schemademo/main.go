// Command schemademo serves the schema evolution demo: records consumed from
// Kafka are shown to websocket observers as written and as read through every
// catalog schema.
package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/aalemi-dev/schema-evolution-lab/catalog"
	"github.com/aalemi-dev/schema-evolution-lab/config"
	"github.com/aalemi-dev/schema-evolution-lab/envelope"
	"github.com/aalemi-dev/schema-evolution-lab/kafka"
	"github.com/aalemi-dev/schema-evolution-lab/logger"
	"github.com/aalemi-dev/schema-evolution-lab/metrics"
	"github.com/aalemi-dev/schema-evolution-lab/producer"
	"github.com/aalemi-dev/schema-evolution-lab/router"
	"github.com/aalemi-dev/schema-evolution-lab/schema_registry"
	"github.com/aalemi-dev/schema-evolution-lab/session"
	"github.com/aalemi-dev/schema-evolution-lab/tracer"
)

func main() {
	fx.New(
		config.FXModule,
		logger.FXModule,
		metrics.FXModule,
		tracer.FXModule,
		schema_registry.FXModule,
		kafka.FXModule,
		envelope.FXModule,
		catalog.FXModule,
		router.FXModule,
		producer.FXModule,
		session.FXModule,
		fx.Provide(componentLoggers...),
		fx.WithLogger(func(l *logger.LoggerClient) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx").Zap}
		}),
	).Run()
}

// componentLoggers hands every package its narrow Logger, tagged with the
// package name.
var componentLoggers = []interface{}{
	func(l *logger.LoggerClient) schema_registry.Logger { return l.Named("schema_registry") },
	func(l *logger.LoggerClient) kafka.Logger { return l.Named("kafka") },
	func(l *logger.LoggerClient) catalog.Logger { return l.Named("catalog") },
	func(l *logger.LoggerClient) router.Logger { return l.Named("router") },
	func(l *logger.LoggerClient) producer.Logger { return l.Named("producer") },
	func(l *logger.LoggerClient) session.Logger { return l.Named("session") },
}
