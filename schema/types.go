package schema

// Kind is the Avro type of a schema node.
type Kind string

const (
	KindNull    Kind = "null"
	KindBoolean Kind = "boolean"
	KindInt     Kind = "int"
	KindLong    Kind = "long"
	KindFloat   Kind = "float"
	KindDouble  Kind = "double"
	KindBytes   Kind = "bytes"
	KindString  Kind = "string"
	KindRecord  Kind = "record"
	KindEnum    Kind = "enum"
	KindArray   Kind = "array"
	KindMap     Kind = "map"
	KindFixed   Kind = "fixed"
	KindUnion   Kind = "union"
)

var primitives = map[string]Kind{
	"null":    KindNull,
	"boolean": KindBoolean,
	"int":     KindInt,
	"long":    KindLong,
	"float":   KindFloat,
	"double":  KindDouble,
	"bytes":   KindBytes,
	"string":  KindString,
}

// Type is one node of a parsed Avro schema. Named types (record, enum, fixed)
// are shared by pointer wherever they are referenced, so a Type graph can be
// cyclic for recursive records.
//
// A Type is never mutated after Parse returns.
type Type struct {
	Kind Kind

	// Name is the full name of a record, enum or fixed.
	Name    string
	Aliases []string

	// LogicalType is the annotation on a primitive or fixed, e.g. "timestamp-millis".
	LogicalType string
	Precision   int // decimal
	Scale       int // decimal

	Fields []*Field // record

	Symbols        []string // enum
	EnumDefault    string
	HasEnumDefault bool

	Items  *Type // array
	Values *Type // map
	Size   int   // fixed

	Branches []*Type // union
}

// Field is one record field. Default holds the default already converted to
// the field type's logical form.
type Field struct {
	Name       string
	Type       *Type
	Default    interface{}
	HasDefault bool
	Aliases    []string
}

// IsNamed reports whether t is a record, enum or fixed.
func (t *Type) IsNamed() bool {
	return t.Kind == KindRecord || t.Kind == KindEnum || t.Kind == KindFixed
}

// UnionName is the key goavro uses for t inside a union. Primitives with a
// logical type are keyed "<primitive>.<logicalType>", e.g. "long.timestamp-millis".
func (t *Type) UnionName() string {
	if t.IsNamed() {
		return t.Name
	}
	if l := t.Logical(); l != "" {
		return string(t.Kind) + "." + l
	}
	return string(t.Kind)
}

// Field returns the field called name, or nil.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// MatchesName reports whether name equals t's full name, its short name or one
// of its aliases.
func (t *Type) MatchesName(name string) bool {
	if name == t.Name || shortName(name) == shortName(t.Name) {
		return true
	}
	for _, a := range t.Aliases {
		if a == name || shortName(a) == shortName(name) {
			return true
		}
	}
	return false
}

// HasSymbol reports whether an enum declares symbol.
func (t *Type) HasSymbol(symbol string) bool {
	for _, s := range t.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// Nullable reports whether t is a union with a null branch.
func (t *Type) Nullable() bool {
	if t.Kind != KindUnion {
		return t.Kind == KindNull
	}
	for _, b := range t.Branches {
		if b.Kind == KindNull {
			return true
		}
	}
	return false
}

func shortName(full string) string {
	for i := len(full) - 1; i >= 0; i-- {
		if full[i] == '.' {
			return full[i+1:]
		}
	}
	return full
}
