package schema

import (
	"fmt"
	"math/big"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/linkedin/goavro/v2"
)

// Record is a decoded Avro record in logical form: field name to value, with
// union values unwrapped.
type Record = map[string]interface{}

// Definition is a parsed record schema bound to its registry coordinates.
// ID, Subject and Version are zero until set with WithVersion.
type Definition struct {
	ID      int
	Subject string
	Version int
	Raw     string
	Root    *Type

	codec *goavro.Codec
}

// NewDefinition parses raw and compiles its codec. The root must be a record.
func NewDefinition(raw string) (*Definition, error) {
	root, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	if root.Kind != KindRecord {
		return nil, fmt.Errorf("%w: root must be a record, got %s", ErrInvalidSchema, root.Kind)
	}
	codec, err := goavro.NewCodec(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return &Definition{Raw: raw, Root: root, codec: codec}, nil
}

// WithVersion returns a copy of d carrying registry coordinates.
func (d *Definition) WithVersion(subject string, version, id int) *Definition {
	c := *d
	c.Subject = subject
	c.Version = version
	c.ID = id
	return &c
}

// Name is the full name of the root record.
func (d *Definition) Name() string {
	return d.Root.Name
}

// Fields are the root record's fields in declaration order.
func (d *Definition) Fields() []*Field {
	return d.Root.Fields
}

// Decode reads one record from payload. Trailing bytes are an error.
func (d *Definition) Decode(payload []byte) (Record, error) {
	native, rest, err := d.codec.NativeFromBinary(payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", d.Root.Name, err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("decode %s: %d trailing bytes", d.Root.Name, len(rest))
	}
	v, err := Unwrap(d.Root, native)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", d.Root.Name, err)
	}
	return v.(map[string]interface{}), nil
}

// Encode writes rec as Avro binary. Missing fields take their defaults.
func (d *Definition) Encode(rec Record) ([]byte, error) {
	native, err := Wrap(d.Root, rec)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", d.Root.Name, err)
	}
	out, err := d.codec.BinaryFromNative(nil, native)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", d.Root.Name, err)
	}
	return out, nil
}

var equalOpts = cmp.Options{
	cmpopts.EquateEmpty(),
	cmpopts.EquateApproxTime(time.Millisecond),
	cmp.Comparer(func(a, b *big.Rat) bool {
		if a == nil || b == nil {
			return a == b
		}
		return a.Cmp(b) == 0
	}),
}

// Equal reports whether two records hold the same values. Nil and empty
// collections compare equal. Times within a millisecond are equal, and
// decimals compare by value.
func Equal(a, b Record) bool {
	return cmp.Equal(a, b, equalOpts)
}

// Diff is a human-readable difference between two records, empty when equal.
func Diff(a, b Record) string {
	return cmp.Diff(a, b, equalOpts)
}
