package transcoder

import (
	"errors"
	"fmt"
)

// ErrIncompatibleSchema is wrapped by IncompatibleSchemaError.
var ErrIncompatibleSchema = errors.New("incompatible schema")

// IncompatibleSchemaError explains why a record cannot be read with a target
// schema. Field is the dotted path of the offending field, empty for the root.
type IncompatibleSchemaError struct {
	Field  string
	Reason string
}

func (e *IncompatibleSchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrIncompatibleSchema, e.Reason)
	}
	return fmt.Sprintf("%s: field %q: %s", ErrIncompatibleSchema, e.Field, e.Reason)
}

func (e *IncompatibleSchemaError) Unwrap() error {
	return ErrIncompatibleSchema
}

func incompatible(field, format string, args ...interface{}) *IncompatibleSchemaError {
	return &IncompatibleSchemaError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
