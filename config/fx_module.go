package config

import (
	"go.uber.org/fx"

	"github.com/aalemi-dev/schema-evolution-lab/catalog"
	"github.com/aalemi-dev/schema-evolution-lab/kafka"
	"github.com/aalemi-dev/schema-evolution-lab/logger"
	"github.com/aalemi-dev/schema-evolution-lab/metrics"
	"github.com/aalemi-dev/schema-evolution-lab/producer"
	"github.com/aalemi-dev/schema-evolution-lab/schema_registry"
	"github.com/aalemi-dev/schema-evolution-lab/session"
	"github.com/aalemi-dev/schema-evolution-lab/tracer"
)

// FXModule loads Config once and provides every component config from it.
var FXModule = fx.Module("config",
	fx.Provide(
		Load,
		func(c Config) logger.Config { return c.Logger },
		func(c Config) metrics.Config { return c.Metrics },
		func(c Config) tracer.Config { return c.Tracer },
		func(c Config) schema_registry.Config { return c.SchemaRegistry },
		func(c Config) kafka.Config { return c.Kafka },
		func(c Config) catalog.Config { return c.Catalog },
		func(c Config) session.Config { return c.Session },
		func(c Config) producer.Config { return c.Producer },
	),
)
