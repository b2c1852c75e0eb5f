package session

import (
	"errors"
	"fmt"
)

// ErrObserverTransport is wrapped by ObserverTransportError.
var ErrObserverTransport = errors.New("observer transport failed")

// ErrSessionClosed is returned by operations on a closed session.
var ErrSessionClosed = errors.New("session closed")

// ObserverTransportError reports a failed read or write on an observer's
// connection. It tears down the session that owns the connection.
type ObserverTransportError struct {
	SessionID string
	Op        string
	Err       error
}

func (e *ObserverTransportError) Error() string {
	return fmt.Sprintf("session %s: %s: %v", e.SessionID, e.Op, e.Err)
}

func (e *ObserverTransportError) Unwrap() []error {
	return []error{ErrObserverTransport, e.Err}
}
