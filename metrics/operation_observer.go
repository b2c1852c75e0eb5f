package metrics

import (
	"github.com/aalemi-dev/schema-evolution-lab/observability"
)

var operationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// OperationObserver records observability notifications as Prometheus metrics:
//
//	infrastructure_operation_total{component,operation,status}
//	infrastructure_operation_duration_seconds{component,operation,status}
//	infrastructure_operation_bytes_total{component,operation}
type OperationObserver struct {
	total    Counter
	duration Histogram
	bytes    Counter
}

// NewOperationObserver registers the operation metrics on collector.
// It must be called at most once per collector.
func NewOperationObserver(collector MetricsCollector) *OperationObserver {
	labels := []string{"component", "operation", "status"}
	return &OperationObserver{
		total: collector.CreateCounter(
			"infrastructure_operation_total",
			"Completed infrastructure operations",
			labels,
		),
		duration: collector.CreateHistogram(
			"infrastructure_operation_duration_seconds",
			"Duration of infrastructure operations",
			labels,
			operationBuckets,
		),
		bytes: collector.CreateCounter(
			"infrastructure_operation_bytes_total",
			"Payload bytes moved by infrastructure operations",
			[]string{"component", "operation"},
		),
	}
}

// ObserveOperation implements observability.Observer.
func (o *OperationObserver) ObserveOperation(ctx observability.OperationContext) {
	status := ctx.Status()
	o.total.WithLabelValues(ctx.Component, ctx.Operation, status).Inc()
	o.duration.WithLabelValues(ctx.Component, ctx.Operation, status).Observe(ctx.Duration.Seconds())
	if ctx.Size > 0 {
		o.bytes.WithLabelValues(ctx.Component, ctx.Operation).Add(float64(ctx.Size))
	}
}
