package envelope

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// MagicByte opens every Confluent wire-format record.
	MagicByte byte = 0x0

	// HeaderSize is the magic byte plus a 4-byte big-endian schema id.
	HeaderSize = 5
)

var (
	// ErrMalformedEnvelope is wrapped by MalformedEnvelopeError.
	ErrMalformedEnvelope = errors.New("malformed envelope")

	// ErrSchemaNotFound is returned when the registry has no schema for an
	// envelope's id.
	ErrSchemaNotFound = errors.New("schema not found")
)

// MalformedEnvelopeError reports a record whose header cannot be read.
type MalformedEnvelopeError struct {
	Reason string
	Length int
}

func (e *MalformedEnvelopeError) Error() string {
	return fmt.Sprintf("malformed envelope (%d bytes): %s", e.Length, e.Reason)
}

func (e *MalformedEnvelopeError) Unwrap() error {
	return ErrMalformedEnvelope
}

// Envelope is a record split into its schema id and Avro payload.
type Envelope struct {
	SchemaID int
	Payload  []byte
}

// Parse splits data into header and payload. Payload aliases data.
func Parse(data []byte) (Envelope, error) {
	if len(data) < HeaderSize {
		return Envelope{}, &MalformedEnvelopeError{
			Reason: fmt.Sprintf("need at least %d bytes", HeaderSize),
			Length: len(data),
		}
	}
	if data[0] != MagicByte {
		return Envelope{}, &MalformedEnvelopeError{
			Reason: fmt.Sprintf("unexpected magic byte 0x%02x", data[0]),
			Length: len(data),
		}
	}
	return Envelope{
		SchemaID: int(binary.BigEndian.Uint32(data[1:HeaderSize])),
		Payload:  data[HeaderSize:],
	}, nil
}

// Encode prepends the header for schemaID to payload.
func Encode(schemaID int, payload []byte) []byte {
	out := make([]byte, HeaderSize, HeaderSize+len(payload))
	out[0] = MagicByte
	binary.BigEndian.PutUint32(out[1:HeaderSize], uint32(schemaID))
	return append(out, payload...)
}

// Bytes is the wire form of e.
func (e Envelope) Bytes() []byte {
	return Encode(e.SchemaID, e.Payload)
}
