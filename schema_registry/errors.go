package schema_registry

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned when the registry answers 404 for a schema id,
// subject or version.
var ErrNotFound = errors.New("schema registry: not found")

// StatusError carries a non-200 registry response.
type StatusError struct {
	StatusCode int
	// ErrorCode is the registry's own error_code field, 0 if absent.
	ErrorCode int
	Message   string
}

func (e *StatusError) Error() string {
	if e.ErrorCode != 0 {
		return fmt.Sprintf("schema registry returned status %d (error_code %d): %s", e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("schema registry returned status %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps 404 responses onto ErrNotFound so callers can use errors.Is.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}
