package transcoder

import (
	"fmt"

	"github.com/aalemi-dev/schema-evolution-lab/schema"
)

// resolver reads a value written with one schema as another, following the
// Avro schema resolution rules. Writer fields the reader has no slot for are
// collected in dropped.
type resolver struct {
	dropped []string
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func (r *resolver) resolve(w, rd *schema.Type, v interface{}, path string) (interface{}, error) {
	if w.Kind == schema.KindUnion {
		branch := w.BranchFor(v)
		if branch == nil {
			return nil, incompatible(path, "value %T does not match the writer union", v)
		}
		return r.resolve(branch, rd, v, path)
	}

	if rd.Kind == schema.KindUnion {
		for _, b := range rd.Branches {
			if readable(w, b) {
				return r.resolve(w, b, v, path)
			}
		}
		return nil, incompatible(path, "no branch of the reader union accepts %s", describe(w))
	}

	switch rd.Kind {
	case schema.KindRecord:
		if w.Kind != schema.KindRecord || !namesMatch(w, rd) {
			return nil, mismatch(path, w, rd)
		}
		return r.record(w, rd, v, path)

	case schema.KindEnum:
		if w.Kind != schema.KindEnum || !namesMatch(w, rd) {
			return nil, mismatch(path, w, rd)
		}
		sym, _ := v.(string)
		if rd.HasSymbol(sym) {
			return sym, nil
		}
		if rd.HasEnumDefault {
			return rd.EnumDefault, nil
		}
		return nil, incompatible(path, "symbol %q is not defined by %s", sym, rd.Name)

	case schema.KindFixed:
		if w.Kind != schema.KindFixed || !namesMatch(w, rd) || w.Size != rd.Size {
			return nil, mismatch(path, w, rd)
		}
		return schema.FromPhysical(rd, schema.Physical(w, v)), nil

	case schema.KindArray:
		if w.Kind != schema.KindArray {
			return nil, mismatch(path, w, rd)
		}
		items, _ := v.([]interface{})
		out := make([]interface{}, len(items))
		for i, item := range items {
			c, err := r.resolve(w.Items, rd.Items, item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil

	case schema.KindMap:
		if w.Kind != schema.KindMap {
			return nil, mismatch(path, w, rd)
		}
		m, _ := v.(map[string]interface{})
		out := make(map[string]interface{}, len(m))
		for k, mv := range m {
			c, err := r.resolve(w.Values, rd.Values, mv, join(path, k))
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	}

	// Resolution works on the underlying primitives; logical types are
	// stripped with the writer's annotation and reapplied with the reader's.
	out, ok := promote(w.Kind, rd.Kind, schema.Physical(w, v))
	if !ok {
		if w.Kind == rd.Kind {
			return nil, incompatible(path, "value %T is not a valid %s", v, rd.Kind)
		}
		return nil, mismatch(path, w, rd)
	}
	return schema.FromPhysical(rd, out), nil
}

func (r *resolver) record(w, rd *schema.Type, v interface{}, path string) (interface{}, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, incompatible(path, "expected a record value, got %T", v)
	}

	used := make(map[string]bool, len(w.Fields))
	out := make(map[string]interface{}, len(rd.Fields))
	for _, rf := range rd.Fields {
		fieldPath := join(path, rf.Name)
		wf := writerField(w, rf)
		if wf == nil {
			if !rf.HasDefault {
				return nil, incompatible(fieldPath, "required by %s but absent from the record and has no default", rd.Name)
			}
			out[rf.Name] = rf.Default
			continue
		}
		used[wf.Name] = true

		c, err := r.resolve(wf.Type, rf.Type, m[wf.Name], fieldPath)
		if err != nil {
			return nil, err
		}
		out[rf.Name] = c
	}

	for _, wf := range w.Fields {
		if !used[wf.Name] {
			r.dropped = append(r.dropped, join(path, wf.Name))
		}
	}
	return out, nil
}

func writerField(w *schema.Type, rf *schema.Field) *schema.Field {
	if f := w.Field(rf.Name); f != nil {
		return f
	}
	for _, alias := range rf.Aliases {
		if f := w.Field(alias); f != nil {
			return f
		}
	}
	return nil
}

func namesMatch(w, rd *schema.Type) bool {
	return rd.MatchesName(w.Name)
}

// readable reports whether a writer of type w can be read as rd without
// looking at a value. Used to pick a reader union branch.
func readable(w, rd *schema.Type) bool {
	switch rd.Kind {
	case schema.KindRecord, schema.KindEnum:
		return w.Kind == rd.Kind && namesMatch(w, rd)
	case schema.KindFixed:
		return w.Kind == rd.Kind && namesMatch(w, rd) && w.Size == rd.Size
	case schema.KindArray, schema.KindMap:
		return w.Kind == rd.Kind
	case schema.KindUnion:
		return false
	}
	if w.Kind == rd.Kind {
		return true
	}
	_, ok := promote(w.Kind, rd.Kind, zero(w.Kind))
	return ok
}

func zero(k schema.Kind) interface{} {
	switch k {
	case schema.KindInt:
		return int32(0)
	case schema.KindLong:
		return int64(0)
	case schema.KindFloat:
		return float32(0)
	case schema.KindDouble:
		return float64(0)
	case schema.KindString:
		return ""
	case schema.KindBytes:
		return []byte{}
	case schema.KindBoolean:
		return false
	}
	return nil
}

// promote converts a primitive written as from into the Go type of to,
// allowing only the Avro promotions.
func promote(from, to schema.Kind, v interface{}) (interface{}, bool) {
	switch to {
	case schema.KindNull:
		return nil, from == schema.KindNull
	case schema.KindBoolean:
		b, ok := v.(bool)
		return b, ok && from == schema.KindBoolean
	case schema.KindInt:
		if from != schema.KindInt {
			return nil, false
		}
		n, ok := asInt64(v)
		return int32(n), ok
	case schema.KindLong:
		if from != schema.KindInt && from != schema.KindLong {
			return nil, false
		}
		n, ok := asInt64(v)
		return n, ok
	case schema.KindFloat:
		if from != schema.KindInt && from != schema.KindLong && from != schema.KindFloat {
			return nil, false
		}
		f, ok := asFloat64(v)
		return float32(f), ok
	case schema.KindDouble:
		if from != schema.KindInt && from != schema.KindLong && from != schema.KindFloat && from != schema.KindDouble {
			return nil, false
		}
		f, ok := asFloat64(v)
		return f, ok
	case schema.KindString:
		switch from {
		case schema.KindString:
			s, ok := v.(string)
			return s, ok
		case schema.KindBytes:
			b, ok := v.([]byte)
			return string(b), ok
		}
	case schema.KindBytes:
		switch from {
		case schema.KindBytes:
			b, ok := v.([]byte)
			return b, ok
		case schema.KindString:
			s, ok := v.(string)
			return []byte(s), ok
		}
	}
	return nil, false
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

func asFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	if i, ok := asInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

func describe(t *schema.Type) string {
	if t.IsNamed() {
		return fmt.Sprintf("%s %s", t.Kind, t.Name)
	}
	return string(t.Kind)
}

func mismatch(path string, w, rd *schema.Type) error {
	return incompatible(path, "written as %s, cannot be read as %s", describe(w), describe(rd))
}
