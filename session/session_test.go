package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aalemi-dev/schema-evolution-lab/metrics"
	"github.com/aalemi-dev/schema-evolution-lab/producer"
	"github.com/aalemi-dev/schema-evolution-lab/router"
	"github.com/aalemi-dev/schema-evolution-lab/schema"
)

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest([]byte(`{"type":"generate","batch_count":"25","stream_topic":"person-v1","stream_version":"na"}`))
	require.NoError(t, err)
	n, err := req.Count()
	require.NoError(t, err)
	assert.Equal(t, 25, n)
	assert.Equal(t, "person-v1", req.StreamTopic)
	assert.Equal(t, producer.NoVersion, req.StreamVersion)

	req, err = ParseRequest([]byte(`{"type":"generate","batch_count":3}`))
	require.NoError(t, err)
	n, err = req.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	req, err = ParseRequest([]byte(`{"type":"setup-connect"}`))
	require.NoError(t, err)
	assert.Equal(t, TypeSetupConnect, req.Type)
	_, err = req.Count()
	assert.Error(t, err)

	_, err = ParseRequest([]byte(`{"batch_count":1}`))
	assert.Error(t, err)
	_, err = ParseRequest([]byte(`not json`))
	assert.Error(t, err)

	req, err = ParseRequest([]byte(`{"type":"generate","batch_count":"many"}`))
	require.NoError(t, err)
	_, err = req.Count()
	assert.Error(t, err)
}

func TestFormatTimestamp(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 5, 7, 42_000_000, time.UTC)
	assert.Equal(t, "09:05:07-042", FormatTimestamp(at))
}

func TestNewFrame(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 30, 45, 123_000_000, time.UTC)

	frame := NewFrame(router.Emission{
		DisplayArea: "person-v1.0",
		Topic:       "person-v1",
		Outcome:     "compatible",
		Record:      schema.Record{"name": "Ada", "age": int32(30)},
		Version:     "v1.0",
		Timestamp:   at,
	})
	assert.Equal(t, "person-v1.0", frame.DisplayArea)
	assert.Equal(t, "person-v1", frame.TopicName)
	require.Len(t, frame.Messages, 1)
	assert.Equal(t, map[string]interface{}{
		"name":      "Ada",
		"age":       int32(30),
		"timestamp": "12:30:45-123",
		"version":   "v1.0",
	}, frame.Messages[0])

	data, err := frame.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"display_area":"person-v1.0","topic_name":"person-v1","messages":[{"name":"Ada","age":30,"timestamp":"12:30:45-123","version":"v1.0"}]}`, string(data))

	failed := NewFrame(router.Emission{
		DisplayArea: "person-v2.0",
		Topic:       "person-v1",
		Outcome:     "incompatible",
		Error:       "field email: missing and has no default",
		Version:     "v2.0",
		Timestamp:   at,
	})
	assert.Equal(t, map[string]interface{}{
		"error":     "field email: missing and has no default",
		"timestamp": "12:30:45-123",
		"version":   "v2.0",
	}, failed.Messages[0])
}

func TestConfig_GroupID(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, GroupPerSession, cfg.GroupMode)
	assert.Equal(t, "person-v1.abc", cfg.groupID("person-v1", "abc"))

	cfg.GroupMode = GroupPerTopic
	assert.Equal(t, "person-v1", cfg.groupID("person-v1", "abc"))
}

func TestSession_SubscribeIsIdempotent(t *testing.T) {
	f := newFixture(t, Config{})
	s, err := f.manager.Open(newFakeTransport())
	require.NoError(t, err)

	started, err := s.Subscribe("person-v1")
	require.NoError(t, err)
	assert.True(t, started)
	sub := f.waitSub(t, "person-v1")
	assert.Equal(t, "person-v1."+s.ID(), sub.groupID)

	started, err = s.Subscribe("person-v1")
	require.NoError(t, err)
	assert.False(t, started)
	assert.Len(t, f.broker.all(), 1)
	assert.Equal(t, []string{"person-v1"}, s.Topics())

	_, err = s.Subscribe("")
	assert.Error(t, err)
}

func TestSession_SharedGroupMode(t *testing.T) {
	f := newFixture(t, Config{GroupMode: GroupPerTopic})
	s, err := f.manager.Open(newFakeTransport())
	require.NoError(t, err)

	_, err = s.Subscribe("person-v2")
	require.NoError(t, err)
	assert.Equal(t, "person-v2", f.waitSub(t, "person-v2").groupID)
}

func TestSession_Unsubscribe(t *testing.T) {
	f := newFixture(t, Config{})
	s, err := f.manager.Open(newFakeTransport())
	require.NoError(t, err)

	_, err = s.Subscribe("person-v1")
	require.NoError(t, err)
	sub := f.waitSub(t, "person-v1")

	assert.True(t, s.Unsubscribe("person-v1"))
	assert.True(t, sub.isClosed())
	assert.Empty(t, s.Topics())
	assert.False(t, s.Unsubscribe("person-v1"))
}

func TestSession_ForwardsRecords(t *testing.T) {
	f := newFixture(t, Config{})
	transport := newFakeTransport()
	s, err := f.manager.Open(transport)
	require.NoError(t, err)

	_, err = s.Subscribe("person-v1")
	require.NoError(t, err)
	sub := f.waitSub(t, "person-v1")

	push(t, sub, &fakeMessage{
		topic: "person-v1",
		at:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		body:  f.encode(t, "person-v1-value", "2", schema.Record{"name": "Bo", "age": int32(41), "email": "bo@example.com"}),
	})

	require.Eventually(t, func() bool { return len(transport.frames()) == 3 }, time.Second, time.Millisecond)
	frames := transport.frames()
	assert.JSONEq(t,
		`{"display_area":"producer","topic_name":"person-v1","messages":[{"name":"Bo","age":41,"email":"bo@example.com","timestamp":"12:00:00-000","version":"v1.1"}]}`,
		string(frames[0]))
	assert.JSONEq(t,
		`{"display_area":"person-v1.0","topic_name":"person-v1","messages":[{"name":"Bo","age":41,"timestamp":"12:00:00-000","version":"Warning - expected v1.0, received v1.1"}]}`,
		string(frames[1]))
	assert.Contains(t, string(frames[2]), `"display_area":"person-v1.1"`)
}

func TestSession_DisconnectReleasesSubscriptions(t *testing.T) {
	f := newFixture(t, Config{SourceTopics: []string{"person-v1", "person-v2"}})
	transport := newFakeTransport()
	s, err := f.manager.Open(transport)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Serve() }()

	transport.send(`{"type":"setup-connect"}`)
	f.waitSub(t, "person-v1")
	f.waitSub(t, "person-v2")
	assert.Equal(t, 1, f.manager.Active())

	transport.leave()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("session did not stop")
	}

	for _, sub := range f.broker.all() {
		assert.True(t, sub.isClosed(), "subscription %s still open", sub.topic)
	}
	assert.Equal(t, 0, f.manager.Active())
	assert.True(t, transport.isClosed())

	_, err = s.Subscribe("person-v1")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSession_IgnoresInvalidRequests(t *testing.T) {
	f := newFixture(t, Config{})
	transport := newFakeTransport()
	s, err := f.manager.Open(transport)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Serve() }()

	transport.send(`{{{`)
	transport.send(`{"type":"generate","batch_count":"x","stream_topic":"person-v1"}`)
	transport.send(`{"type":"subscribe","stream_topic":"person-v2"}`)
	f.waitSub(t, "person-v2")
	assert.Empty(t, f.invoker.seen())

	transport.leave()
	require.NoError(t, <-done)
}

func TestSession_WriteFailureClosesSession(t *testing.T) {
	f := newFixture(t, Config{})
	transport := newFakeTransport()
	transport.failWrites = true
	s, err := f.manager.Open(transport)
	require.NoError(t, err)

	_, err = s.Subscribe("person-v1")
	require.NoError(t, err)
	_, err = s.Subscribe("person-v2")
	require.NoError(t, err)
	sub := f.waitSub(t, "person-v1")
	other := f.waitSub(t, "person-v2")

	push(t, sub, &fakeMessage{
		topic: "person-v1",
		body:  f.encode(t, "person-v1-value", "1", schema.Record{"name": "Ada", "age": int32(30)}),
	})

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("session was not closed")
	}
	require.Eventually(t, func() bool { return f.manager.Active() == 0 }, time.Second, time.Millisecond)
	assert.True(t, sub.isClosed())
	assert.True(t, other.isClosed())
	assert.True(t, transport.isClosed())
}

func TestSession_DeliverWrapsTransportErrors(t *testing.T) {
	f := newFixture(t, Config{})
	transport := newFakeTransport()
	transport.failWrites = true
	s, err := f.manager.Open(transport)
	require.NoError(t, err)

	err = s.Deliver(context.Background(), router.Emission{DisplayArea: "producer", Topic: "person-v1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrObserverTransport)

	var terr *ObserverTransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "write", terr.Op)
	assert.Equal(t, s.ID(), terr.SessionID)
}

func TestSession_Generate(t *testing.T) {
	f := newFixture(t, Config{})
	transport := newFakeTransport()
	s, err := f.manager.Open(transport)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Serve() }()

	transport.send(`{"type":"generate","batch_count":"3","stream_topic":"person-v1","stream_version":"na"}`)
	transport.send(`{"type":"generate","batch_count":2,"stream_topic":"person-v1","stream_version":"2"}`)

	require.Eventually(t, func() bool { return len(f.invoker.seen()) == 2 }, time.Second, time.Millisecond)
	reqs := f.invoker.seen()
	byVersion := map[string]producer.Request{}
	for _, r := range reqs {
		byVersion[r.Version] = r
	}
	assert.Equal(t, 3, byVersion[""].RecordCount)
	assert.Equal(t, "person-v1", byVersion[""].Topic)
	assert.NotZero(t, byVersion[""].Seed)
	assert.Equal(t, 2, byVersion["2"].RecordCount)

	transport.leave()
	require.NoError(t, <-done)
}

func TestSession_GenerateRateLimited(t *testing.T) {
	f := newFixture(t, Config{GenerateRate: 0.001, GenerateBurst: 1})
	s, err := f.manager.Open(newFakeTransport())
	require.NoError(t, err)

	req := producer.Request{Topic: "person-v1", RecordCount: 1}
	require.NoError(t, s.Generate(req))
	assert.ErrorIs(t, s.Generate(req), ErrRateLimited)
}

func TestSession_CloseCancelsGenerate(t *testing.T) {
	f := newFixture(t, Config{})
	f.invoker.block = true
	s, err := f.manager.Open(newFakeTransport())
	require.NoError(t, err)

	require.NoError(t, s.Generate(producer.Request{Topic: "person-v1", RecordCount: 5}))
	require.Eventually(t, func() bool { return len(f.invoker.seen()) == 1 }, time.Second, time.Millisecond)

	s.Close()
	assert.Equal(t, []error{context.Canceled}, f.invoker.cancelled())
	assert.ErrorIs(t, s.Generate(producer.Request{Topic: "person-v1", RecordCount: 1}), ErrSessionClosed)
}

func TestManager_Metrics(t *testing.T) {
	m := metrics.NewMetrics(metrics.Config{
		SystemMetricsAddress:      metrics.Ptr(""),
		ApplicationMetricsAddress: metrics.Ptr(""),
	})
	f := newFixture(t, Config{})
	f.manager.WithMetrics(NewMetrics(m))

	s, err := f.manager.Open(newFakeTransport())
	require.NoError(t, err)
	_, err = s.Subscribe("person-v1")
	require.NoError(t, err)
	f.waitSub(t, "person-v1")

	assert.Equal(t, 1.0, gaugeValue(t, m.ApplicationRegistry, "sessions_active"))
	assert.Equal(t, 1.0, gaugeValue(t, m.ApplicationRegistry, "subscriptions_active"))

	s.Close()
	assert.Equal(t, 0.0, gaugeValue(t, m.ApplicationRegistry, "sessions_active"))
	assert.Equal(t, 0.0, gaugeValue(t, m.ApplicationRegistry, "subscriptions_active"))
}

func TestManager_CloseAllRefusesNewSessions(t *testing.T) {
	f := newFixture(t, Config{})
	first := newFakeTransport()
	_, err := f.manager.Open(first)
	require.NoError(t, err)

	f.manager.CloseAll()
	assert.True(t, first.isClosed())
	assert.Equal(t, 0, f.manager.Active())

	late := newFakeTransport()
	_, err = f.manager.Open(late)
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.True(t, late.isClosed())
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		total := 0.0
		for _, m := range family.GetMetric() {
			total += m.GetGauge().GetValue()
		}
		return total
	}
	t.Fatalf("metric %s not found", name)
	return 0
}
