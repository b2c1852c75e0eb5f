package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aalemi-dev/schema-evolution-lab/observability"
)

// TestObserver is a mock observer for testing
type TestObserver struct {
	mu         sync.Mutex
	operations []observability.OperationContext
}

func (t *TestObserver) ObserveOperation(ctx observability.OperationContext) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.operations = append(t.operations, ctx)
}

func (t *TestObserver) GetOperationsByType(operation string) []observability.OperationContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	var result []observability.OperationContext
	for _, op := range t.operations {
		if op.Operation == operation {
			result = append(result, op)
		}
	}
	return result
}

type MockLogger struct {
	mu          sync.Mutex
	InfoCalled  bool
	WarnCalled  bool
	ErrorCalled bool
}

func (m *MockLogger) InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InfoCalled = true
}

func (m *MockLogger) WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WarnCalled = true
}

func (m *MockLogger) ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ErrorCalled = true
}

func TestObserverHelperMethod(t *testing.T) {
	obs := &TestObserver{}
	client := &KafkaClient{observer: obs, cfg: Config{Topic: "person-v1", GroupID: "person-v1.s1"}}

	client.observeOperation("consume", "person-v1", "0", 5*time.Millisecond, nil, 128)

	ops := obs.GetOperationsByType("consume")
	require.Len(t, ops, 1)
	assert.Equal(t, observability.ComponentKafka, ops[0].Component)
	assert.Equal(t, "person-v1", ops[0].Resource)
	assert.Equal(t, "0", ops[0].SubResource)
	assert.Equal(t, int64(128), ops[0].Size)
	assert.Equal(t, "person-v1.s1", ops[0].Metadata["group_id"])
}

func TestObserverNilObserver(t *testing.T) {
	client := &KafkaClient{}
	assert.NotPanics(t, func() {
		client.observeOperation("produce", "t", "", time.Millisecond, nil, 0)
	})
}

func TestPublish_ObservesFailure(t *testing.T) {
	obs := &TestObserver{}
	client := &KafkaClient{observer: obs, shutdownSignal: make(chan struct{})}

	err := client.Publish(context.Background(), "person-v1", "k", []byte("value"), nil)
	require.ErrorIs(t, err, ErrWriterNotInitialized)

	ops := obs.GetOperationsByType("produce")
	require.Len(t, ops, 1)
	assert.Equal(t, "person-v1", ops[0].Resource)
	assert.Equal(t, int64(5), ops[0].Size)
	assert.True(t, errors.Is(ops[0].Error, ErrWriterNotInitialized))
	assert.Nil(t, ops[0].Metadata)
}

func TestPublish_CancelledContext(t *testing.T) {
	client, err := NewClient(Config{Brokers: []string{"127.0.0.1:1"}})
	require.NoError(t, err)
	defer client.GracefulShutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = client.Publish(ctx, "person-v1", "", []byte("x"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithObserverAndLoggerChaining(t *testing.T) {
	obs := &TestObserver{}
	log := &MockLogger{}
	client := &KafkaClient{}

	out := client.WithObserver(obs).WithLogger(log)

	assert.Same(t, client, out)
	assert.Equal(t, obs, client.observer)
	assert.Equal(t, log, client.logger)
}
