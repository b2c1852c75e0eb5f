// Package router runs one stream per subscribed topic: every record is decoded
// with its writer schema, emitted as written, then read with every catalog
// schema and emitted once per catalog entry.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aalemi-dev/schema-evolution-lab/catalog"
	"github.com/aalemi-dev/schema-evolution-lab/envelope"
	"github.com/aalemi-dev/schema-evolution-lab/kafka"
	"github.com/aalemi-dev/schema-evolution-lab/tracer"
	"github.com/aalemi-dev/schema-evolution-lab/transcoder"
)

// Sink receives emissions in order. An error from Deliver stops the router.
type Sink interface {
	Deliver(ctx context.Context, e Emission) error
}

// Decoder turns wire bytes into a record with its writer schema.
// Implemented by *envelope.Codec.
type Decoder interface {
	Decode(ctx context.Context, topic string, data []byte) (*envelope.Decoded, error)
}

// Logger is the logging surface the router needs; *logger.LoggerClient satisfies it.
type Logger interface {
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

// Router is one topic subscription being polled for one sink.
type Router struct {
	topic   string
	groupID string
	sink    Sink

	broker  kafka.Broker
	decoder Decoder
	catalog *catalog.Catalog

	logger  Logger
	tracer  tracer.Tracer
	metrics *Metrics
}

// Run subscribes and processes records until ctx is cancelled, the sink fails
// or the subscription stops. The subscription is closed, leaving the
// consumer group, before Run returns. Cancellation returns nil.
func (r *Router) Run(ctx context.Context) error {
	sub, err := r.broker.Subscribe(ctx, r.topic, r.groupID)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", r.topic, err)
	}
	defer func() {
		if err := sub.Close(); err != nil {
			r.logWarn(ctx, "Failed to close subscription", err, nil)
		}
		r.logInfo(ctx, "Stream router stopped", nil)
	}()

	r.logInfo(ctx, "Stream router started", nil)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.Messages():
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return sub.Err()
			}
			if err := r.process(ctx, msg); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// process handles one record. Only a sink failure is returned; bad records
// are logged and skipped.
func (r *Router) process(ctx context.Context, msg kafka.Message) error {
	start := time.Now()
	defer func() { r.metrics.processed(r.topic, time.Since(start).Seconds()) }()

	if r.tracer != nil {
		ctx = r.tracer.SetCarrierOnContext(ctx, msg.Header())
		var span tracer.Span
		ctx, span = r.tracer.StartSpan(ctx, "router.process")
		span.SetAttributes(map[string]interface{}{
			"topic":     msg.Topic(),
			"partition": msg.Partition(),
			"offset":    msg.Offset(),
			"group_id":  r.groupID,
		})
		defer span.End()
		ctx = withSpan(ctx, span)
	}

	fields := map[string]interface{}{
		"partition": msg.Partition(),
		"offset":    msg.Offset(),
	}

	decoded, err := r.decoder.Decode(ctx, msg.Topic(), msg.Body())
	if err != nil {
		status := statusUndecodable
		switch {
		case errors.Is(err, envelope.ErrMalformedEnvelope):
			status = statusMalformed
		case errors.Is(err, envelope.ErrSchemaNotFound):
			status = statusUnresolved
		}
		r.metrics.message(r.topic, status)
		r.logWarn(ctx, "Dropping record", err, merge(fields, map[string]interface{}{"status": status}))
		recordSpanError(ctx, err)
		r.commit(ctx, msg)
		return nil
	}
	r.metrics.message(r.topic, statusDecoded)
	if s := spanFrom(ctx); s != nil {
		s.SetAttributes(map[string]interface{}{"schema_id": decoded.Envelope.SchemaID})
	}

	base := Emission{
		Topic:     msg.Topic(),
		Timestamp: msg.Time(),
		Partition: msg.Partition(),
		Offset:    msg.Offset(),
	}

	received := DirectVersion(msg.Topic(), decoded.Writer.Version)
	direct := base
	direct.DisplayArea = DirectDisplayArea
	direct.Outcome = OutcomeDirect
	direct.Record = decoded.Record
	direct.Version = received
	if err := r.deliver(ctx, direct); err != nil {
		return err
	}

	for _, entry := range r.catalog.Entries() {
		res := transcoder.Attempt(decoded.Record, decoded.Writer, entry.Definition)
		switch res.Outcome {
		case transcoder.Incompatible:
			r.logWarn(ctx, "Record incompatible with catalog entry", res.Err, merge(fields, map[string]interface{}{
				"label": entry.Label,
			}))
		case transcoder.PartialWarning:
			r.logInfo(ctx, "Record narrowed to older catalog entry", merge(fields, map[string]interface{}{
				"label":   entry.Label,
				"dropped": res.Dropped,
				"note":    res.Note,
			}))
		}
		if err := r.deliver(ctx, catalogEmission(base, entry, received, res)); err != nil {
			return err
		}
	}

	r.commit(ctx, msg)
	return nil
}

func (r *Router) deliver(ctx context.Context, e Emission) error {
	if err := r.sink.Deliver(ctx, e); err != nil {
		recordSpanError(ctx, err)
		return fmt.Errorf("deliver %s/%s: %w", e.Topic, e.DisplayArea, err)
	}
	r.metrics.emission(e)
	return nil
}

func (r *Router) commit(ctx context.Context, msg kafka.Message) {
	if err := msg.CommitMsg(); err != nil && ctx.Err() == nil {
		r.logWarn(ctx, "Failed to commit offset", err, map[string]interface{}{
			"partition": msg.Partition(),
			"offset":    msg.Offset(),
		})
	}
}

// Topic is the topic this router polls.
func (r *Router) Topic() string {
	return r.topic
}

// GroupID is the consumer group this router joins.
func (r *Router) GroupID() string {
	return r.groupID
}

func merge(a, b map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
