package session

import (
	"context"
	"sync"

	"github.com/aalemi-dev/schema-evolution-lab/producer"
)

// Manager owns every open session.
type Manager struct {
	cfg     Config
	factory RouterFactory
	invoker producer.Invoker

	logger  Logger
	metrics *Metrics

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns a Manager. invoker may be nil, in which case generate
// requests fail.
func NewManager(cfg Config, factory RouterFactory, invoker producer.Invoker) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:      cfg.withDefaults(),
		factory:  factory,
		invoker:  invoker,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

// WithLogger sets the logger shared by sessions.
func (m *Manager) WithLogger(logger Logger) *Manager {
	m.logger = logger
	return m
}

// WithMetrics sets the shared session metrics.
func (m *Manager) WithMetrics(metrics *Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Open registers a session on transport without reading from it.
func (m *Manager) Open(transport Transport) (*Session, error) {
	s := newSession(m.ctx, m.cfg, transport, m.factory, m.invoker)
	s.logger = m.logger
	s.metrics = m.metrics
	s.onClose = m.remove

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx.Err() != nil {
		_ = transport.Close()
		return nil, ErrSessionClosed
	}
	m.sessions[s.id] = s
	m.metrics.sessionOpened()
	return s, nil
}

// Serve opens a session on transport and runs it until the observer leaves.
func (m *Manager) Serve(transport Transport) error {
	s, err := m.Open(transport)
	if err != nil {
		return err
	}
	err = s.Serve()
	if err != nil && m.logger != nil {
		m.logger.WarnWithContext(context.Background(), "Observer session ended", err, map[string]interface{}{
			"session_id": s.id,
		})
	}
	return err
}

func (m *Manager) remove(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.id]; ok {
		delete(m.sessions, s.id)
		m.metrics.sessionClosed()
	}
}

// Active returns the number of open sessions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Session returns the open session with id.
func (m *Manager) Session(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// CloseAll closes every session and refuses new ones.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	m.cancel()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Close()
		}(s)
	}
	wg.Wait()
}
