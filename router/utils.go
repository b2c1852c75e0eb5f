package router

import (
	"context"

	"github.com/aalemi-dev/schema-evolution-lab/tracer"
)

type spanKey struct{}

func withSpan(ctx context.Context, span tracer.Span) context.Context {
	return context.WithValue(ctx, spanKey{}, span)
}

func spanFrom(ctx context.Context) tracer.Span {
	span, _ := ctx.Value(spanKey{}).(tracer.Span)
	return span
}

func recordSpanError(ctx context.Context, err error) {
	if span := spanFrom(ctx); span != nil {
		span.RecordError(err)
	}
}

func (r *Router) fields(extra map[string]interface{}) map[string]interface{} {
	fields := map[string]interface{}{
		"topic":    r.topic,
		"group_id": r.groupID,
	}
	for k, v := range extra {
		fields[k] = v
	}
	return fields
}

func (r *Router) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if r.logger != nil {
		r.logger.InfoWithContext(ctx, msg, nil, r.fields(fields))
	}
}

func (r *Router) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if r.logger != nil {
		r.logger.WarnWithContext(ctx, msg, err, r.fields(fields))
	}
}
