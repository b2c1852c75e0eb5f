package schema

import (
	"fmt"
	"math/big"
	"time"
)

// Wrap converts a logical value of t into the native form goavro encodes.
// Unions become single-entry maps keyed by the chosen branch.
func Wrap(t *Type, v interface{}) (interface{}, error) {
	switch t.Kind {
	case KindUnion:
		if v == nil {
			if !t.Nullable() {
				return nil, fmt.Errorf("null is not a member of the union")
			}
			return nil, nil
		}
		b := t.BranchFor(v)
		if b == nil {
			return nil, fmt.Errorf("no union branch accepts %T", v)
		}
		inner, err := Wrap(b, v)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{b.UnionName(): inner}, nil
	case KindRecord:
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("record %s: expected map, got %T", t.Name, v)
		}
		out := make(map[string]interface{}, len(t.Fields))
		for _, f := range t.Fields {
			fv, present := m[f.Name]
			if !present {
				if !f.HasDefault {
					return nil, fmt.Errorf("record %s: missing field %q", t.Name, f.Name)
				}
				fv = f.Default
			}
			w, err := Wrap(f.Type, fv)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			out[f.Name] = w
		}
		return out, nil
	case KindArray:
		items, ok := v.([]interface{})
		if !ok {
			return nil, fmt.Errorf("array: expected []interface{}, got %T", v)
		}
		out := make([]interface{}, len(items))
		for i, item := range items {
			w, err := Wrap(t.Items, item)
			if err != nil {
				return nil, err
			}
			out[i] = w
		}
		return out, nil
	case KindMap:
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("map: expected map, got %T", v)
		}
		out := make(map[string]interface{}, len(m))
		for k, mv := range m {
			w, err := Wrap(t.Values, mv)
			if err != nil {
				return nil, err
			}
			out[k] = w
		}
		return out, nil
	}
	return v, nil
}

// Unwrap converts a goavro native value of t into its logical form.
func Unwrap(t *Type, native interface{}) (interface{}, error) {
	switch t.Kind {
	case KindUnion:
		if native == nil {
			return nil, nil
		}
		m, ok := native.(map[string]interface{})
		if !ok || len(m) != 1 {
			return nil, fmt.Errorf("union: expected single-entry map, got %T", native)
		}
		for key, inner := range m {
			for _, b := range t.Branches {
				if b.UnionName() == key {
					return Unwrap(b, inner)
				}
			}
			return nil, fmt.Errorf("union: unknown branch %q", key)
		}
	case KindRecord:
		m, ok := native.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("record %s: expected map, got %T", t.Name, native)
		}
		out := make(map[string]interface{}, len(t.Fields))
		for _, f := range t.Fields {
			u, err := Unwrap(f.Type, m[f.Name])
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			out[f.Name] = u
		}
		return out, nil
	case KindArray:
		items, ok := native.([]interface{})
		if !ok {
			return nil, fmt.Errorf("array: expected []interface{}, got %T", native)
		}
		out := make([]interface{}, len(items))
		for i, item := range items {
			u, err := Unwrap(t.Items, item)
			if err != nil {
				return nil, err
			}
			out[i] = u
		}
		return out, nil
	case KindMap:
		m, ok := native.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("map: expected map, got %T", native)
		}
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			u, err := Unwrap(t.Values, v)
			if err != nil {
				return nil, err
			}
			out[k] = u
		}
		return out, nil
	}
	return native, nil
}

// BranchFor returns the branch of union t that holds v, or nil if none does.
// For a non-union t it returns t itself.
func (t *Type) BranchFor(v interface{}) *Type {
	if t.Kind != KindUnion {
		return t
	}
	for _, b := range t.Branches {
		if b.Kind == KindNull {
			if v == nil {
				return b
			}
			continue
		}
		if v != nil && matches(b, v) {
			return b
		}
	}
	return nil
}

// matches reports whether a logical value plausibly belongs to t. It is used
// to pick a union branch and checks shape, not full validity.
func matches(t *Type, v interface{}) bool {
	switch t.Kind {
	case KindNull:
		return v == nil
	case KindBoolean:
		_, ok := v.(bool)
		return ok
	case KindInt, KindLong:
		switch v.(type) {
		case int, int32, int64:
			return true
		case time.Time:
			l := t.Logical()
			return l == "date" || l == "timestamp-millis" || l == "timestamp-micros"
		case time.Duration:
			l := t.Logical()
			return l == "time-millis" || l == "time-micros"
		}
		return false
	case KindFloat, KindDouble:
		switch v.(type) {
		case float32, float64, int, int32, int64:
			return true
		}
		return false
	case KindString:
		_, ok := v.(string)
		return ok
	case KindBytes:
		if t.Logical() == "decimal" {
			_, ok := v.(*big.Rat)
			return ok
		}
		_, ok := v.([]byte)
		return ok
	case KindFixed:
		if t.Logical() == "decimal" {
			_, ok := v.(*big.Rat)
			return ok
		}
		b, ok := v.([]byte)
		return ok && len(b) == t.Size
	case KindEnum:
		s, ok := v.(string)
		return ok && t.HasSymbol(s)
	case KindArray:
		_, ok := v.([]interface{})
		return ok
	case KindMap:
		_, ok := v.(map[string]interface{})
		return ok
	case KindRecord:
		m, ok := v.(map[string]interface{})
		if !ok {
			return false
		}
		for _, f := range t.Fields {
			if _, present := m[f.Name]; !present && !f.HasDefault {
				return false
			}
		}
		for k := range m {
			if t.Field(k) == nil {
				return false
			}
		}
		return true
	}
	return false
}
