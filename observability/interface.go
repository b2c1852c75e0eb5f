package observability

import "time"

// Observer receives a notification every time an infrastructure client finishes an
// operation. The kafka broker, the schema registry client and the producer
// invokers report through it so metrics and tracing stay out of their code paths.
//
// A nil Observer is always allowed; callers must check before notifying.
type Observer interface {
	// ObserveOperation is called once per completed operation.
	ObserveOperation(ctx OperationContext)
}

// Component names reported in OperationContext.Component.
const (
	ComponentKafka          = "kafka"
	ComponentSchemaRegistry = "schema_registry"
	ComponentProducer       = "producer"
)

// OperationContext describes one completed operation.
type OperationContext struct {
	// Component identifies the client that performed the operation
	// (one of the Component* constants).
	Component string

	// Operation is the verb, e.g. "consume", "produce", "get_schema_by_id",
	// "lookup_schema", "invoke".
	Operation string

	// Resource is the primary object: a topic name, a registry subject, or
	// "registry" for lookups by schema id.
	Resource string

	// SubResource narrows Resource: a partition number, a schema id or a
	// subject version.
	SubResource string

	// Duration is the wall time of the operation.
	Duration time.Duration

	// Error is non-nil when the operation failed.
	Error error

	// Size is the payload size in bytes, when meaningful.
	Size int64

	// Metadata carries operation specific details such as "cache_hit".
	Metadata map[string]interface{}
}

// Status returns "error" when the operation failed and "ok" otherwise.
func (c OperationContext) Status() string {
	if c.Error != nil {
		return "error"
	}
	return "ok"
}
