package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// ErrInvalidSchema is wrapped by every Parse failure.
var ErrInvalidSchema = errors.New("invalid avro schema")

var numberAPI = sonic.Config{UseNumber: true}.Froze()

// Parse parses Avro schema JSON into a Type graph. Field defaults are converted
// to the logical form used by Record values.
func Parse(raw string) (*Type, error) {
	var node interface{}
	if err := numberAPI.UnmarshalFromString(raw, &node); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	p := &parser{named: make(map[string]*Type)}
	t, err := p.parse(node, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return t, nil
}

type parser struct {
	named map[string]*Type
}

func (p *parser) parse(node interface{}, namespace string) (*Type, error) {
	switch n := node.(type) {
	case string:
		return p.reference(n, namespace)
	case []interface{}:
		return p.union(n, namespace)
	case map[string]interface{}:
		return p.complex(n, namespace)
	default:
		return nil, fmt.Errorf("unexpected schema node %T", node)
	}
}

func (p *parser) reference(name, namespace string) (*Type, error) {
	if k, ok := primitives[name]; ok {
		return &Type{Kind: k}, nil
	}
	if t, ok := p.named[name]; ok {
		return t, nil
	}
	if namespace != "" {
		if t, ok := p.named[namespace+"."+name]; ok {
			return t, nil
		}
	}
	return nil, fmt.Errorf("unknown type %q", name)
}

func (p *parser) union(branches []interface{}, namespace string) (*Type, error) {
	t := &Type{Kind: KindUnion}
	seen := make(map[string]bool)
	for _, b := range branches {
		bt, err := p.parse(b, namespace)
		if err != nil {
			return nil, err
		}
		if bt.Kind == KindUnion {
			return nil, fmt.Errorf("union may not directly contain a union")
		}
		key := bt.UnionName()
		if seen[key] {
			return nil, fmt.Errorf("duplicate union branch %q", key)
		}
		seen[key] = true
		t.Branches = append(t.Branches, bt)
	}
	if len(t.Branches) == 0 {
		return nil, fmt.Errorf("empty union")
	}
	return t, nil
}

func (p *parser) complex(n map[string]interface{}, namespace string) (*Type, error) {
	typ, ok := n["type"]
	if !ok {
		return nil, fmt.Errorf("missing \"type\"")
	}

	name, _ := typ.(string)
	switch name {
	case "record", "error":
		return p.record(n, namespace)
	case "enum":
		return p.enum(n, namespace)
	case "fixed":
		return p.fixed(n, namespace)
	case "array":
		items, err := p.parse(n["items"], namespace)
		if err != nil {
			return nil, fmt.Errorf("array items: %w", err)
		}
		return &Type{Kind: KindArray, Items: items}, nil
	case "map":
		values, err := p.parse(n["values"], namespace)
		if err != nil {
			return nil, fmt.Errorf("map values: %w", err)
		}
		return &Type{Kind: KindMap, Values: values}, nil
	}

	if k, ok := primitives[name]; ok {
		t := &Type{Kind: k}
		if err := annotate(t, n); err != nil {
			return nil, err
		}
		return t, nil
	}

	// {"type": <nested schema or reference>}
	return p.parse(typ, namespace)
}

// fullName resolves name and namespace per the Avro naming rules.
func fullName(n map[string]interface{}, enclosing string) (string, string, error) {
	name, _ := n["name"].(string)
	if name == "" {
		return "", "", fmt.Errorf("named type without a name")
	}
	if strings.Contains(name, ".") {
		return name, name[:strings.LastIndex(name, ".")], nil
	}
	ns := enclosing
	if v, ok := n["namespace"].(string); ok {
		ns = v
	}
	if ns == "" {
		return name, "", nil
	}
	return ns + "." + name, ns, nil
}

func (p *parser) define(t *Type) error {
	if _, dup := p.named[t.Name]; dup {
		return fmt.Errorf("type %q defined twice", t.Name)
	}
	p.named[t.Name] = t
	return nil
}

func aliases(n map[string]interface{}, namespace string) []string {
	raw, _ := n["aliases"].([]interface{})
	out := make([]string, 0, len(raw))
	for _, a := range raw {
		s, ok := a.(string)
		if !ok {
			continue
		}
		if !strings.Contains(s, ".") && namespace != "" {
			s = namespace + "." + s
		}
		out = append(out, s)
	}
	return out
}

func (p *parser) record(n map[string]interface{}, enclosing string) (*Type, error) {
	name, ns, err := fullName(n, enclosing)
	if err != nil {
		return nil, err
	}
	t := &Type{Kind: KindRecord, Name: name, Aliases: aliases(n, ns)}
	if err := p.define(t); err != nil {
		return nil, err
	}

	rawFields, ok := n["fields"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("record %q: fields must be an array", name)
	}

	seen := make(map[string]bool, len(rawFields))
	for _, rf := range rawFields {
		fm, ok := rf.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("record %q: field must be an object", name)
		}
		fname, _ := fm["name"].(string)
		if fname == "" {
			return nil, fmt.Errorf("record %q: field without a name", name)
		}
		if seen[fname] {
			return nil, fmt.Errorf("record %q: duplicate field %q", name, fname)
		}
		seen[fname] = true

		ft, err := p.parse(fm["type"], ns)
		if err != nil {
			return nil, fmt.Errorf("record %q field %q: %w", name, fname, err)
		}

		f := &Field{Name: fname, Type: ft}
		if rawAliases, ok := fm["aliases"].([]interface{}); ok {
			for _, a := range rawAliases {
				if s, ok := a.(string); ok {
					f.Aliases = append(f.Aliases, s)
				}
			}
		}
		if def, ok := fm["default"]; ok {
			v, err := convertDefault(ft, def)
			if err != nil {
				return nil, fmt.Errorf("record %q field %q default: %w", name, fname, err)
			}
			f.Default = v
			f.HasDefault = true
		}
		t.Fields = append(t.Fields, f)
	}
	return t, nil
}

func (p *parser) enum(n map[string]interface{}, enclosing string) (*Type, error) {
	name, ns, err := fullName(n, enclosing)
	if err != nil {
		return nil, err
	}
	t := &Type{Kind: KindEnum, Name: name, Aliases: aliases(n, ns)}

	rawSymbols, ok := n["symbols"].([]interface{})
	if !ok || len(rawSymbols) == 0 {
		return nil, fmt.Errorf("enum %q: symbols must be a non-empty array", name)
	}
	for _, s := range rawSymbols {
		sym, ok := s.(string)
		if !ok {
			return nil, fmt.Errorf("enum %q: symbol must be a string", name)
		}
		t.Symbols = append(t.Symbols, sym)
	}
	if def, ok := n["default"].(string); ok {
		if !t.HasSymbol(def) {
			return nil, fmt.Errorf("enum %q: default %q is not a symbol", name, def)
		}
		t.EnumDefault = def
		t.HasEnumDefault = true
	}
	return t, p.define(t)
}

func (p *parser) fixed(n map[string]interface{}, enclosing string) (*Type, error) {
	name, ns, err := fullName(n, enclosing)
	if err != nil {
		return nil, err
	}
	size, err := toInt64(n["size"])
	if err != nil || size < 0 {
		return nil, fmt.Errorf("fixed %q: invalid size", name)
	}
	t := &Type{Kind: KindFixed, Name: name, Aliases: aliases(n, ns), Size: int(size)}
	if err := annotate(t, n); err != nil {
		return nil, err
	}
	return t, p.define(t)
}

// annotate copies the logical type of n onto t, with precision and scale for
// decimals.
func annotate(t *Type, n map[string]interface{}) error {
	t.LogicalType, _ = n["logicalType"].(string)
	if t.LogicalType != "decimal" {
		return nil
	}
	precision, err := toInt64(n["precision"])
	if err != nil || precision < 1 {
		return fmt.Errorf("decimal: invalid precision")
	}
	t.Precision = int(precision)
	if raw, ok := n["scale"]; ok {
		scale, err := toInt64(raw)
		if err != nil || scale < 0 || scale > precision {
			return fmt.Errorf("decimal: invalid scale")
		}
		t.Scale = int(scale)
	}
	return nil
}

// convertDefault turns a JSON default into the logical value of t.
// Union defaults apply to the first branch.
func convertDefault(t *Type, v interface{}) (interface{}, error) {
	switch t.Kind {
	case KindNull:
		if v != nil {
			return nil, fmt.Errorf("null default must be null")
		}
		return nil, nil
	case KindBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean, got %T", v)
		}
		return b, nil
	case KindInt:
		n, err := toInt64(v)
		return FromPhysical(t, int32(n)), err
	case KindLong:
		n, err := toInt64(v)
		return FromPhysical(t, n), err
	case KindFloat:
		f, err := toFloat64(v)
		return float32(f), err
	case KindDouble:
		return toFloat64(v)
	case KindString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return s, nil
	case KindBytes, KindFixed:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return FromPhysical(t, []byte(s)), nil
	case KindEnum:
		s, ok := v.(string)
		if !ok || !t.HasSymbol(s) {
			return nil, fmt.Errorf("invalid enum default %v", v)
		}
		return s, nil
	case KindArray:
		items, ok := v.([]interface{})
		if !ok {
			return nil, fmt.Errorf("expected array, got %T", v)
		}
		out := make([]interface{}, 0, len(items))
		for _, item := range items {
			c, err := convertDefault(t.Items, item)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
		return out, nil
	case KindMap:
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("expected object, got %T", v)
		}
		out := make(map[string]interface{}, len(m))
		for k, mv := range m {
			c, err := convertDefault(t.Values, mv)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case KindRecord:
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("expected object, got %T", v)
		}
		out := make(map[string]interface{}, len(t.Fields))
		for _, f := range t.Fields {
			fv, present := m[f.Name]
			switch {
			case present:
				c, err := convertDefault(f.Type, fv)
				if err != nil {
					return nil, err
				}
				out[f.Name] = c
			case f.HasDefault:
				out[f.Name] = f.Default
			default:
				return nil, fmt.Errorf("record default missing field %q", f.Name)
			}
		}
		return out, nil
	case KindUnion:
		return convertDefault(t.Branches[0], v)
	}
	return nil, fmt.Errorf("unsupported default for %s", t.Kind)
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Int64()
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}

func toFloat64(v interface{}) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Float64()
	case float64:
		return n, nil
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}
