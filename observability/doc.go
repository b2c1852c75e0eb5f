// Package observability defines the hook infrastructure clients use to report
// completed operations.
//
// The kafka, schema_registry and producer packages accept an optional Observer and
// call it with an OperationContext after every broker fetch, publish, registry
// lookup or producer invocation. The metrics package ships an Observer that turns
// those notifications into Prometheus counters and histograms:
//
//	observer := metrics.NewOperationObserver(collector)
//	registry := schema_registry.NewClient(cfg)
//	registry = registry.WithObserver(observer)
//
// Packages never import a metrics or tracing library directly; they only depend on
// this package, which has no third-party dependencies.
package observability
