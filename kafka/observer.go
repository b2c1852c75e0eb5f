package kafka

import (
	"time"

	"github.com/aalemi-dev/schema-evolution-lab/observability"
)

// observeOperation reports one fetch or publish. resource is the topic and
// subResource the partition; consumer clients add their group id.
func (k *KafkaClient) observeOperation(operation, resource, subResource string, duration time.Duration, err error, size int64) {
	if k.observer == nil {
		return
	}

	var metadata map[string]interface{}
	if k.cfg.GroupID != "" {
		metadata = map[string]interface{}{"group_id": k.cfg.GroupID}
	}

	k.observer.ObserveOperation(observability.OperationContext{
		Component:   observability.ComponentKafka,
		Operation:   operation,
		Resource:    resource,
		SubResource: subResource,
		Duration:    duration,
		Error:       err,
		Size:        size,
		Metadata:    metadata,
	})
}
