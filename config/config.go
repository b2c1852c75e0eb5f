// Package config loads every component configuration from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/aalemi-dev/schema-evolution-lab/catalog"
	"github.com/aalemi-dev/schema-evolution-lab/kafka"
	"github.com/aalemi-dev/schema-evolution-lab/logger"
	"github.com/aalemi-dev/schema-evolution-lab/metrics"
	"github.com/aalemi-dev/schema-evolution-lab/producer"
	"github.com/aalemi-dev/schema-evolution-lab/schema_registry"
	"github.com/aalemi-dev/schema-evolution-lab/session"
	"github.com/aalemi-dev/schema-evolution-lab/tracer"
)

// Config is the configuration of the whole demo server.
type Config struct {
	Logger         logger.Config
	Metrics        metrics.Config
	Tracer         tracer.Config
	SchemaRegistry schema_registry.Config
	Kafka          kafka.Config
	Catalog        catalog.Config
	Session        session.Config
	Producer       producer.Config
}

// Load reads Config from the environment. Each component's variables are
// unprefixed, e.g. LOG_LEVEL or KAFKA_CLUSTER_HOSTNAME.
func Load() (Config, error) {
	var cfg Config
	parts := []struct {
		name string
		spec interface{}
	}{
		{"logger", &cfg.Logger},
		{"metrics", &cfg.Metrics},
		{"tracer", &cfg.Tracer},
		{"schema registry", &cfg.SchemaRegistry},
		{"kafka", &cfg.Kafka},
		// Nested structs would otherwise be read as TLS_KAFKA_TLS_*.
		{"kafka tls", &cfg.Kafka.TLS},
		{"kafka sasl", &cfg.Kafka.SASL},
		{"catalog", &cfg.Catalog},
		{"session", &cfg.Session},
		{"producer", &cfg.Producer},
	}
	for _, p := range parts {
		if err := envconfig.Process("", p.spec); err != nil {
			return Config{}, fmt.Errorf("load %s config: %w", p.name, err)
		}
	}
	return cfg, nil
}
