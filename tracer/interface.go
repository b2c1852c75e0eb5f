package tracer

import (
	"context"
)

// Tracer creates spans and moves trace context across process boundaries.
//
// The router starts one span per consumed record and continues the trace
// found in the record headers; the local producer injects its own context
// into the headers of every record it publishes.
type Tracer interface {
	// StartSpan starts a span as a child of whatever span ctx carries.
	// The caller must End the returned span.
	StartSpan(ctx context.Context, name string) (context.Context, Span)

	// GetCarrier serializes the trace context of ctx into header form.
	GetCarrier(ctx context.Context) map[string]string

	// SetCarrierOnContext returns ctx continued from the trace in carrier.
	SetCarrierOnContext(ctx context.Context, carrier map[string]string) context.Context
}

// Span is a single traced unit of work.
type Span interface {
	// End finishes the span. Nothing may be recorded on it afterwards.
	End()

	// SetAttributes attaches key/value pairs. Strings, ints, float64 and bool
	// keep their type; everything else is formatted with fmt.Sprint.
	SetAttributes(attrs map[string]interface{})

	// RecordError records err as an event and marks the span failed.
	RecordError(err error)
}
