package schema

import (
	"math/big"
	"time"
)

// logicalTypes are the annotations goavro decodes to a Go value of their own.
// Any other annotation reads as the plain primitive.
var logicalTypes = map[Kind][]string{
	KindInt:   {"date", "time-millis"},
	KindLong:  {"timestamp-millis", "timestamp-micros", "time-micros"},
	KindBytes: {"decimal"},
	KindFixed: {"decimal"},
}

var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// Logical returns t's logical type when values of t decode to something other
// than the underlying primitive, such as time.Time for an int date or
// *big.Rat for a decimal. It returns "" otherwise.
func (t *Type) Logical() string {
	for _, l := range logicalTypes[t.Kind] {
		if l == t.LogicalType {
			return l
		}
	}
	return ""
}

// Physical converts a logical value of t to the value of its underlying
// primitive: days for a date, milliseconds for timestamp-millis, unscaled
// two's-complement bytes for a decimal. Other values are returned unchanged.
func Physical(t *Type, v interface{}) interface{} {
	switch x := v.(type) {
	case time.Time:
		switch t.Logical() {
		case "date":
			return int32(x.Unix() / 86400)
		case "timestamp-millis":
			return x.Unix()*1e3 + int64(x.Nanosecond()/1e6)
		case "timestamp-micros":
			return x.Unix()*1e6 + int64(x.Nanosecond()/1e3)
		}
	case time.Duration:
		switch t.Logical() {
		case "time-millis":
			return int32(x / time.Millisecond)
		case "time-micros":
			return int64(x / time.Microsecond)
		}
	case *big.Rat:
		if t.Logical() == "decimal" && x != nil {
			n := new(big.Int).Mul(x.Num(), pow10(t.Scale))
			n.Div(n, x.Denom())
			return signedBytes(n, t.Size)
		}
	}
	return v
}

// FromPhysical is the inverse of Physical. It gives a primitive value the Go
// form goavro decodes for t's logical type.
func FromPhysical(t *Type, v interface{}) interface{} {
	logical := t.Logical()
	if logical == "decimal" {
		if b, ok := v.([]byte); ok {
			return new(big.Rat).SetFrac(fromSignedBytes(b), pow10(t.Scale))
		}
		return v
	}
	if logical == "" {
		return v
	}

	var n int64
	switch x := v.(type) {
	case int32:
		n = int64(x)
	case int64:
		n = x
	case int:
		n = int64(x)
	default:
		return v
	}
	switch logical {
	case "date":
		return epoch.AddDate(0, 0, int(n))
	case "timestamp-millis":
		return time.UnixMilli(n).UTC()
	case "timestamp-micros":
		return time.UnixMicro(n).UTC()
	case "time-millis":
		return time.Duration(n) * time.Millisecond
	case "time-micros":
		return time.Duration(n) * time.Microsecond
	}
	return v
}

func pow10(scale int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil)
}

// signedBytes is the big-endian two's complement of n, sign-extended to size
// bytes when size is larger.
func signedBytes(n *big.Int, size int) []byte {
	var b []byte
	switch n.Sign() {
	case 0:
		b = []byte{0}
	case 1:
		b = n.Bytes()
		if b[0]&0x80 != 0 {
			b = append([]byte{0}, b...)
		}
	default:
		width := (n.BitLen() + 8) / 8
		b = new(big.Int).Add(n, new(big.Int).Lsh(big.NewInt(1), uint(width*8))).Bytes()
	}
	if len(b) >= size {
		return b
	}
	pad := byte(0)
	if n.Sign() < 0 {
		pad = 0xff
	}
	out := make([]byte, size)
	for i := 0; i < size-len(b); i++ {
		out[i] = pad
	}
	copy(out[size-len(b):], b)
	return out
}

func fromSignedBytes(b []byte) *big.Int {
	n := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	return n
}
