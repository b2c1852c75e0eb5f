package session

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport is one observer connection. Writes are serialized by the
// implementation; ReadMessage is only called from the session's read loop.
type Transport interface {
	ReadMessage(ctx context.Context) ([]byte, error)
	WriteMessage(ctx context.Context, data []byte) error
	Close() error
	RemoteAddr() string
}

// WebsocketTransport adapts a gorilla websocket connection.
type WebsocketTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewWebsocketTransport wraps conn. Every write must finish within writeTimeout.
func NewWebsocketTransport(conn *websocket.Conn, writeTimeout time.Duration, readLimit int64) *WebsocketTransport {
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	if readLimit > 0 {
		conn.SetReadLimit(readLimit)
	}
	return &WebsocketTransport{conn: conn, writeTimeout: writeTimeout}
}

// ReadMessage blocks until the next text or binary frame. It does not watch
// ctx; Close unblocks it.
func (t *WebsocketTransport) ReadMessage(_ context.Context) ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

// WriteMessage sends data as one text frame. The write deadline is the sooner
// of the write timeout and ctx's deadline.
func (t *WebsocketTransport) WriteMessage(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	deadline := time.Now().Add(t.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame, best effort, and closes the connection.
func (t *WebsocketTransport) Close() error {
	t.closeOnce.Do(func() {
		t.writeMu.Lock()
		_ = t.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(time.Second),
		)
		t.writeMu.Unlock()
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}

// RemoteAddr is the peer address.
func (t *WebsocketTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

// isNormalClose reports whether err is the peer going away cleanly.
func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}
