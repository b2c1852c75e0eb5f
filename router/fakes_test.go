package router

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aalemi-dev/schema-evolution-lab/catalog"
	"github.com/aalemi-dev/schema-evolution-lab/envelope"
	"github.com/aalemi-dev/schema-evolution-lab/kafka"
	"github.com/aalemi-dev/schema-evolution-lab/schema"
	"github.com/aalemi-dev/schema-evolution-lab/schema_registry/registrytest"
	"github.com/aalemi-dev/schema-evolution-lab/tracer"
)

type fakeMessage struct {
	topic     string
	partition int
	offset    int64
	body      []byte
	headers   map[string]string
	at        time.Time

	mu        sync.Mutex
	committed bool
}

func (m *fakeMessage) CommitMsg() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed = true
	return nil
}
func (m *fakeMessage) Body() []byte              { return m.body }
func (m *fakeMessage) Key() string               { return "" }
func (m *fakeMessage) Header() map[string]string { return m.headers }
func (m *fakeMessage) Topic() string             { return m.topic }
func (m *fakeMessage) Partition() int            { return m.partition }
func (m *fakeMessage) Offset() int64             { return m.offset }
func (m *fakeMessage) Time() time.Time           { return m.at }

func (m *fakeMessage) isCommitted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.committed
}

type fakeSubscription struct {
	messages chan kafka.Message
	err      error

	once   sync.Once
	closed chan struct{}
}

func (s *fakeSubscription) Messages() <-chan kafka.Message { return s.messages }
func (s *fakeSubscription) Err() error                     { return s.err }
func (s *fakeSubscription) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeSubscription) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// fakeBroker hands out one subscription per Subscribe call.
type fakeBroker struct {
	mu   sync.Mutex
	subs []*fakeSubscription
	fail error
}

func (b *fakeBroker) Subscribe(_ context.Context, _, _ string) (kafka.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return nil, b.fail
	}
	s := &fakeSubscription{messages: make(chan kafka.Message), closed: make(chan struct{})}
	b.subs = append(b.subs, s)
	return s, nil
}

func (b *fakeBroker) Publish(context.Context, string, string, []byte, map[string]string) error {
	return errors.New("not supported")
}

func (b *fakeBroker) last() *fakeSubscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.subs) == 0 {
		return nil
	}
	return b.subs[len(b.subs)-1]
}

// recordingSink collects emissions; failAfter > 0 makes the n-th delivery fail.
type recordingSink struct {
	mu        sync.Mutex
	emissions []Emission
	failAfter int
}

func (s *recordingSink) Deliver(_ context.Context, e Emission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter > 0 && len(s.emissions)+1 >= s.failAfter {
		return errors.New("observer gone")
	}
	s.emissions = append(s.emissions, e)
	return nil
}

func (s *recordingSink) snapshot() []Emission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Emission(nil), s.emissions...)
}

type fakeSpan struct {
	mu    sync.Mutex
	name  string
	attrs map[string]interface{}
	errs  []error
	ended bool
}

func (s *fakeSpan) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = true
}

func (s *fakeSpan) SetAttributes(attrs map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range attrs {
		s.attrs[k] = v
	}
}

func (s *fakeSpan) RecordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

type fakeTracer struct {
	mu       sync.Mutex
	spans    []*fakeSpan
	carriers []map[string]string
}

func (t *fakeTracer) StartSpan(ctx context.Context, name string) (context.Context, tracer.Span) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := &fakeSpan{name: name, attrs: map[string]interface{}{}}
	t.spans = append(t.spans, s)
	return ctx, s
}

func (t *fakeTracer) GetCarrier(context.Context) map[string]string { return map[string]string{} }

func (t *fakeTracer) SetCarrierOnContext(ctx context.Context, carrier map[string]string) context.Context {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.carriers = append(t.carriers, carrier)
	return ctx
}

type captureLogger struct {
	mu         sync.Mutex
	warns      []string
	infos      []string
	infoFields []map[string]interface{}
}

func (l *captureLogger) InfoWithContext(_ context.Context, msg string, _ error, fields ...map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
	var f map[string]interface{}
	if len(fields) > 0 {
		f = fields[0]
	}
	l.infoFields = append(l.infoFields, f)
}

// info returns the fields of the first info entry logged as msg.
func (l *captureLogger) info(msg string) (map[string]interface{}, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, m := range l.infos {
		if m == msg {
			return l.infoFields[i], true
		}
	}
	return nil, false
}

func (l *captureLogger) WarnWithContext(_ context.Context, msg string, _ error, _ ...map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *captureLogger) ErrorWithContext(context.Context, string, error, ...map[string]interface{}) {}

func (l *captureLogger) warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}

// fixture wires a router over the seeded registry.
type fixture struct {
	registry *registrytest.Registry
	broker   *fakeBroker
	sink     *recordingSink
	factory  *Factory
	catalog  *catalog.Catalog
}

func newFixture(t *testing.T, entries string) *fixture {
	t.Helper()
	reg := registrytest.Seeded()
	specs, err := catalog.ParseSpecs(entries)
	require.NoError(t, err)
	cat, err := catalog.New(context.Background(), reg, specs)
	require.NoError(t, err)

	broker := &fakeBroker{}
	return &fixture{
		registry: reg,
		broker:   broker,
		sink:     &recordingSink{},
		factory:  NewFactory(broker, envelope.NewCodec(reg), cat),
		catalog:  cat,
	}
}

// encode writes rec with the given version of subject.
func (f *fixture) encode(t *testing.T, subject, version string, rec schema.Record) []byte {
	t.Helper()
	meta, err := f.registry.GetSchemaBySubjectVersion(context.Background(), subject, version)
	require.NoError(t, err)
	def, err := schema.NewDefinition(meta.Schema)
	require.NoError(t, err)
	payload, err := def.Encode(rec)
	require.NoError(t, err)
	return envelope.Encode(meta.ID, payload)
}

// start runs r in the background and waits for its subscription.
func (f *fixture) start(t *testing.T, r *Router) (context.CancelFunc, <-chan error, *fakeSubscription) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return f.broker.last() != nil }, time.Second, time.Millisecond)
	return cancel, done, f.broker.last()
}

func send(t *testing.T, sub *fakeSubscription, msg kafka.Message) {
	t.Helper()
	select {
	case sub.messages <- msg:
	case <-time.After(time.Second):
		t.Fatal("router did not accept message")
	}
}
