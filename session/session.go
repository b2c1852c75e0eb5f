// Package session serves observers over websockets. Each connection is a
// Session owning zero or more topic subscriptions, each backed by one stream
// router delivering into the connection.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/aalemi-dev/schema-evolution-lab/producer"
	"github.com/aalemi-dev/schema-evolution-lab/router"
)

// ErrRateLimited is returned by Generate when the session is over its limit.
var ErrRateLimited = errors.New("generate rate limit exceeded")

// RouterFactory builds stream routers. Implemented by *router.Factory.
type RouterFactory interface {
	New(topic, groupID string, sink router.Sink) *router.Router
}

// Logger is the logging surface sessions need; *logger.LoggerClient satisfies it.
type Logger interface {
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

type subscription struct {
	topic  string
	cancel context.CancelFunc
	done   chan struct{}
}

// Session is one observer connection.
type Session struct {
	id        string
	cfg       Config
	transport Transport
	factory   RouterFactory
	invoker   producer.Invoker
	limiter   *rate.Limiter

	logger  Logger
	metrics *Metrics
	onClose func(*Session)

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	subs   map[string]*subscription
	closed bool
	tasks  sync.WaitGroup

	closeOnce sync.Once
}

func newSession(parent context.Context, cfg Config, transport Transport, factory RouterFactory, invoker producer.Invoker) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		id:        uuid.NewString(),
		cfg:       cfg,
		transport: transport,
		factory:   factory,
		invoker:   invoker,
		limiter:   rate.NewLimiter(rate.Limit(cfg.GenerateRate), cfg.GenerateBurst),
		ctx:       ctx,
		cancel:    cancel,
		subs:      make(map[string]*subscription),
	}
}

// ID is the session's unique id.
func (s *Session) ID() string {
	return s.id
}

// Serve reads requests until the observer disconnects or the session is
// closed, then closes the session. A clean disconnect returns nil.
func (s *Session) Serve() error {
	defer s.Close()

	s.logInfo(s.ctx, "Observer connected", map[string]interface{}{"remote_addr": s.transport.RemoteAddr()})

	for {
		data, err := s.transport.ReadMessage(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil || isNormalClose(err) {
				return nil
			}
			return &ObserverTransportError{SessionID: s.id, Op: "read", Err: err}
		}

		req, err := ParseRequest(data)
		if err != nil {
			s.logWarn(s.ctx, "Ignoring observer request", err, nil)
			continue
		}
		if err := s.handle(req); err != nil {
			if errors.Is(err, ErrSessionClosed) {
				return nil
			}
			s.logWarn(s.ctx, "Observer request failed", err, map[string]interface{}{
				"type":  req.Type,
				"topic": req.StreamTopic,
			})
		}
	}
}

func (s *Session) handle(req Request) error {
	switch req.Type {
	case TypeSetupConnect:
		for _, topic := range s.cfg.SourceTopics {
			if _, err := s.Subscribe(topic); err != nil {
				return err
			}
		}
		return nil
	case TypeSubscribe:
		_, err := s.Subscribe(req.StreamTopic)
		return err
	case TypeUnsubscribe:
		s.Unsubscribe(req.StreamTopic)
		return nil
	}

	count, err := req.Count()
	if err != nil {
		return err
	}
	version := req.StreamVersion
	if version == producer.NoVersion {
		version = ""
	}
	return s.Generate(producer.Request{
		Topic:       req.StreamTopic,
		RecordCount: count,
		Seed:        time.Now().UnixMilli(),
		Version:     version,
	})
}

// Subscribe starts a router for topic delivering into this session. It
// reports whether a new subscription was started; subscribing to an active
// topic does nothing.
func (s *Session) Subscribe(topic string) (bool, error) {
	if topic == "" {
		return false, fmt.Errorf("topic is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrSessionClosed
	}
	if _, ok := s.subs[topic]; ok {
		return false, nil
	}

	ctx, cancel := context.WithCancel(s.ctx)
	sub := &subscription{topic: topic, cancel: cancel, done: make(chan struct{})}
	s.subs[topic] = sub
	s.metrics.subscribed(topic)

	r := s.factory.New(topic, s.cfg.groupID(topic, s.id), s)
	go s.run(ctx, sub, r)

	s.logInfo(s.ctx, "Subscribed", map[string]interface{}{"topic": topic, "group_id": r.GroupID()})
	return true, nil
}

func (s *Session) run(ctx context.Context, sub *subscription, r *router.Router) {
	err := r.Run(ctx)

	s.mu.Lock()
	if s.subs[sub.topic] == sub {
		delete(s.subs, sub.topic)
	}
	s.mu.Unlock()
	s.metrics.unsubscribed(sub.topic)
	sub.cancel()
	close(sub.done)

	switch {
	case err == nil:
	case errors.Is(err, ErrObserverTransport):
		s.logInfo(s.ctx, "Observer unreachable, closing session", map[string]interface{}{"topic": sub.topic})
		s.Close()
	default:
		s.logError(s.ctx, "Stream router stopped", err, map[string]interface{}{"topic": sub.topic})
	}
}

// Unsubscribe stops the router for topic and waits until its broker
// subscription is released. It reports whether one was running.
func (s *Session) Unsubscribe(topic string) bool {
	s.mu.Lock()
	sub, ok := s.subs[topic]
	if ok {
		delete(s.subs, topic)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}

	sub.cancel()
	<-sub.done
	s.logInfo(s.ctx, "Unsubscribed", map[string]interface{}{"topic": topic})
	return true
}

// Topics lists the active subscriptions.
func (s *Session) Topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.subs))
	for topic := range s.subs {
		out = append(out, topic)
	}
	return out
}

// Generate hands req to the producer invoker in a task owned by the session.
// It returns once the task is started; the task is cancelled on Close.
func (s *Session) Generate(req producer.Request) error {
	if s.invoker == nil {
		s.metrics.generate(req.Topic, "unavailable")
		return fmt.Errorf("no producer configured")
	}
	if !s.limiter.Allow() {
		s.metrics.generate(req.Topic, "rate_limited")
		return ErrRateLimited
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.tasks.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.tasks.Done()
		if err := s.invoker.Invoke(s.ctx, req); err != nil {
			s.metrics.generate(req.Topic, "error")
			s.logError(s.ctx, "Generate request failed", err, map[string]interface{}{
				"topic":        req.Topic,
				"record_count": req.RecordCount,
			})
			return
		}
		s.metrics.generate(req.Topic, "ok")
	}()
	return nil
}

// Deliver writes one emission to the observer. It implements router.Sink.
func (s *Session) Deliver(ctx context.Context, e router.Emission) error {
	data, err := NewFrame(e).Encode()
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := s.transport.WriteMessage(ctx, data); err != nil {
		return &ObserverTransportError{SessionID: s.id, Op: "write", Err: err}
	}
	return nil
}

// Close stops every router, waiting for their broker subscriptions to be
// released, cancels running generate tasks and closes the connection. It is
// safe to call more than once and from any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		subs := make([]*subscription, 0, len(s.subs))
		for _, sub := range s.subs {
			subs = append(subs, sub)
		}
		s.subs = make(map[string]*subscription)
		s.mu.Unlock()

		s.cancel()
		_ = s.transport.Close()

		for _, sub := range subs {
			<-sub.done
		}
		s.tasks.Wait()

		s.logInfo(context.Background(), "Observer session closed", map[string]interface{}{
			"subscriptions": len(subs),
		})
		if s.onClose != nil {
			s.onClose(s)
		}
	})
}

// Done is closed once Close has started.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

func (s *Session) fields(extra map[string]interface{}) map[string]interface{} {
	fields := map[string]interface{}{"session_id": s.id}
	for k, v := range extra {
		fields[k] = v
	}
	return fields
}

func (s *Session) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.InfoWithContext(ctx, msg, nil, s.fields(fields))
	}
}

func (s *Session) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.WarnWithContext(ctx, msg, err, s.fields(fields))
	}
}

func (s *Session) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.ErrorWithContext(ctx, msg, err, s.fields(fields))
	}
}
