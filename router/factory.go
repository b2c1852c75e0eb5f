package router

import (
	"github.com/aalemi-dev/schema-evolution-lab/catalog"
	"github.com/aalemi-dev/schema-evolution-lab/kafka"
	"github.com/aalemi-dev/schema-evolution-lab/tracer"
)

// Factory builds routers that share one broker, decoder and catalog.
type Factory struct {
	broker  kafka.Broker
	decoder Decoder
	catalog *catalog.Catalog

	logger  Logger
	tracer  tracer.Tracer
	metrics *Metrics
}

// NewFactory returns a Factory. Logger, tracer and metrics are optional and
// set with the With* methods.
func NewFactory(broker kafka.Broker, decoder Decoder, cat *catalog.Catalog) *Factory {
	return &Factory{broker: broker, decoder: decoder, catalog: cat}
}

// WithLogger sets the logger passed to every router.
func (f *Factory) WithLogger(logger Logger) *Factory {
	f.logger = logger
	return f
}

// WithTracer sets the tracer used to open one span per record.
func (f *Factory) WithTracer(t tracer.Tracer) *Factory {
	f.tracer = t
	return f
}

// WithMetrics sets the shared router metrics.
func (f *Factory) WithMetrics(m *Metrics) *Factory {
	f.metrics = m
	return f
}

// New returns a router for topic delivering to sink. It does nothing until Run.
func (f *Factory) New(topic, groupID string, sink Sink) *Router {
	return &Router{
		topic:   topic,
		groupID: groupID,
		sink:    sink,
		broker:  f.broker,
		decoder: f.decoder,
		catalog: f.catalog,
		logger:  f.logger,
		tracer:  f.tracer,
		metrics: f.metrics,
	}
}
