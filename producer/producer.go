// Package producer asks something outside the observer session to write
// synthetic records to a topic: an AWS Lambda function in the deployed demo,
// or an in-process generator for local runs.
package producer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aalemi-dev/schema-evolution-lab/observability"
)

// Modes accepted by Config.Mode.
const (
	ModeLambda = "lambda"
	ModeLocal  = "local"
)

// NoVersion is the stream_version observers send when no version is chosen.
const NoVersion = "na"

// ErrInvalidRequest is returned for a request that cannot be invoked.
var ErrInvalidRequest = errors.New("invalid producer request")

// Request asks for RecordCount synthetic records on Topic.
type Request struct {
	Topic       string
	RecordCount int
	Seed        int64

	// Version selects the writer schema version; empty means latest.
	Version string
}

// Validate checks the request against maxRecords. maxRecords <= 0 means
// unbounded.
func (r Request) Validate(maxRecords int) error {
	if r.Topic == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidRequest)
	}
	if r.RecordCount <= 0 {
		return fmt.Errorf("%w: record count must be positive, got %d", ErrInvalidRequest, r.RecordCount)
	}
	if maxRecords > 0 && r.RecordCount > maxRecords {
		return fmt.Errorf("%w: record count %d exceeds %d", ErrInvalidRequest, r.RecordCount, maxRecords)
	}
	return nil
}

// Invoker starts a producer run. Implementations return once the run has been
// handed off or finished; callers do not wait on the records themselves.
type Invoker interface {
	Invoke(ctx context.Context, req Request) error
}

// Logger is the logging surface the invokers need.
type Logger interface {
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

func observe(observer observability.Observer, operation string, req Request, start time.Time, size int64, err error) {
	if observer == nil {
		return
	}
	observer.ObserveOperation(observability.OperationContext{
		Component:   observability.ComponentProducer,
		Operation:   operation,
		Resource:    req.Topic,
		SubResource: req.Version,
		Duration:    time.Since(start),
		Error:       err,
		Size:        size,
		Metadata: map[string]interface{}{
			"record_count": req.RecordCount,
		},
	})
}
