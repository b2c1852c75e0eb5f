package session

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/aalemi-dev/schema-evolution-lab/catalog"
	"github.com/aalemi-dev/schema-evolution-lab/envelope"
	"github.com/aalemi-dev/schema-evolution-lab/kafka"
	"github.com/aalemi-dev/schema-evolution-lab/producer"
	"github.com/aalemi-dev/schema-evolution-lab/router"
	"github.com/aalemi-dev/schema-evolution-lab/schema"
	"github.com/aalemi-dev/schema-evolution-lab/schema_registry/registrytest"
)

const demoEntries = "person-v1.0=person-v1-value:1,person-v1.1=person-v1-value:2"

// fakeTransport feeds inbound frames from a channel and records writes.
type fakeTransport struct {
	inbound chan []byte

	mu         sync.Mutex
	written    [][]byte
	failWrites bool
	closed     bool
	closeCh    chan struct{}
	peerGone   chan struct{}
	closeOnce  sync.Once
	leaveOnce  sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inbound:  make(chan []byte, 16),
		closeCh:  make(chan struct{}),
		peerGone: make(chan struct{}),
	}
}

func (t *fakeTransport) ReadMessage(context.Context) ([]byte, error) {
	select {
	case data := <-t.inbound:
		return data, nil
	case <-t.peerGone:
		return nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	case <-t.closeCh:
		return nil, net.ErrClosed
	}
}

func (t *fakeTransport) WriteMessage(_ context.Context, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failWrites || t.closed {
		return errors.New("broken pipe")
	}
	t.written = append(t.written, data)
	return nil
}

func (t *fakeTransport) Close() error {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		t.mu.Unlock()
		close(t.closeCh)
	})
	return nil
}

func (t *fakeTransport) RemoteAddr() string { return "127.0.0.1:40000" }

func (t *fakeTransport) send(data string) { t.inbound <- []byte(data) }

// leave simulates the observer closing the connection.
func (t *fakeTransport) leave() { t.leaveOnce.Do(func() { close(t.peerGone) }) }

func (t *fakeTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *fakeTransport) frames() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.written...)
}

type fakeMessage struct {
	topic string
	body  []byte
	at    time.Time
}

func (m *fakeMessage) CommitMsg() error          { return nil }
func (m *fakeMessage) Body() []byte              { return m.body }
func (m *fakeMessage) Key() string               { return "" }
func (m *fakeMessage) Header() map[string]string { return nil }
func (m *fakeMessage) Topic() string             { return m.topic }
func (m *fakeMessage) Partition() int            { return 0 }
func (m *fakeMessage) Offset() int64             { return 0 }
func (m *fakeMessage) Time() time.Time           { return m.at }

type fakeSubscription struct {
	topic    string
	groupID  string
	messages chan kafka.Message

	once   sync.Once
	closed chan struct{}
}

func (s *fakeSubscription) Messages() <-chan kafka.Message { return s.messages }
func (s *fakeSubscription) Err() error                     { return nil }
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

type fakeBroker struct {
	mu   sync.Mutex
	subs []*fakeSubscription
}

func (b *fakeBroker) Subscribe(_ context.Context, topic, groupID string) (kafka.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := &fakeSubscription{
		topic:    topic,
		groupID:  groupID,
		messages: make(chan kafka.Message),
		closed:   make(chan struct{}),
	}
	b.subs = append(b.subs, s)
	return s, nil
}

func (b *fakeBroker) Publish(context.Context, string, string, []byte, map[string]string) error {
	return errors.New("not supported")
}

func (b *fakeBroker) all() []*fakeSubscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*fakeSubscription(nil), b.subs...)
}

// open returns the most recent live subscription for topic.
func (b *fakeBroker) open(topic string) *fakeSubscription {
	subs := b.all()
	for i := len(subs) - 1; i >= 0; i-- {
		if subs[i].topic == topic && !subs[i].isClosed() {
			return subs[i]
		}
	}
	return nil
}

// fakeInvoker records requests. When block is set, Invoke waits for ctx.
type fakeInvoker struct {
	block bool

	mu       sync.Mutex
	requests []producer.Request
	errs     []error
}

func (i *fakeInvoker) Invoke(ctx context.Context, req producer.Request) error {
	i.mu.Lock()
	i.requests = append(i.requests, req)
	i.mu.Unlock()

	if !i.block {
		return nil
	}
	<-ctx.Done()
	i.mu.Lock()
	i.errs = append(i.errs, ctx.Err())
	i.mu.Unlock()
	return ctx.Err()
}

func (i *fakeInvoker) seen() []producer.Request {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]producer.Request(nil), i.requests...)
}

func (i *fakeInvoker) cancelled() []error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]error(nil), i.errs...)
}

type fixture struct {
	registry *registrytest.Registry
	broker   *fakeBroker
	invoker  *fakeInvoker
	manager  *Manager
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	reg := registrytest.Seeded()
	specs, err := catalog.ParseSpecs(demoEntries)
	require.NoError(t, err)
	cat, err := catalog.New(context.Background(), reg, specs)
	require.NoError(t, err)

	broker := &fakeBroker{}
	invoker := &fakeInvoker{}
	factory := router.NewFactory(broker, envelope.NewCodec(reg), cat)
	m := NewManager(cfg, factory, invoker)
	t.Cleanup(m.CloseAll)

	return &fixture{registry: reg, broker: broker, invoker: invoker, manager: m}
}

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

func (f *fixture) waitSub(t *testing.T, topic string) *fakeSubscription {
	t.Helper()
	require.Eventually(t, func() bool { return f.broker.open(topic) != nil }, time.Second, time.Millisecond)
	return f.broker.open(topic)
}

func push(t *testing.T, sub *fakeSubscription, msg kafka.Message) {
	t.Helper()
	select {
	case sub.messages <- msg:
	case <-time.After(time.Second):
		t.Fatal("router did not accept message")
	}
}
