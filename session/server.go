package session

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// Server accepts observer websocket connections on "/" and reports liveness
// on "/healthz".
type Server struct {
	cfg      Config
	manager  *Manager
	upgrader websocket.Upgrader
	logger   Logger

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	done     chan struct{}
}

// NewServer returns a Server handing connections to manager.
func NewServer(cfg Config, manager *Manager) *Server {
	return &Server{
		cfg:     cfg.withDefaults(),
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Observers are served from any origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// WithLogger sets the server logger.
func (s *Server) WithLogger(logger Logger) *Server {
	s.logger = logger
	return s
}

// Handler routes the observer endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/", s.handleObserver)
	return mux
}

func (s *Server) handleObserver(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.logWarn(r.Context(), "Websocket upgrade failed", err, map[string]interface{}{"remote_addr": r.RemoteAddr})
		return
	}
	transport := NewWebsocketTransport(conn, s.cfg.WriteTimeout, s.cfg.ReadLimit)
	_ = s.manager.Serve(transport)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body, _ := sonic.Marshal(map[string]interface{}{
		"status":   "ok",
		"sessions": s.manager.Active(),
	})
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return errors.New("server already started")
	}

	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	s.listener = ln
	s.srv = &http.Server{Handler: s.Handler()}
	s.done = make(chan struct{})

	s.logInfo(context.Background(), "Starting observer server", map[string]interface{}{"address": ln.Addr().String()})
	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logError(context.Background(), "Observer server failed", err, nil)
		}
	}(s.srv, s.done)
	return nil
}

// Addr is the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop closes every session, then shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.mu.Unlock()

	s.manager.CloseAll()
	if srv == nil {
		return nil
	}

	s.logInfo(ctx, "Shutting down observer server", nil)
	err := srv.Shutdown(ctx)
	select {
	case <-done:
	case <-ctx.Done():
	}
	return err
}

func (s *Server) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

func (s *Server) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.WarnWithContext(ctx, msg, err, fields)
	}
}

func (s *Server) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.ErrorWithContext(ctx, msg, err, fields)
	}
}
