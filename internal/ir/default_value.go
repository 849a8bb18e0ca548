package ir

// DefaultKind tags the shape of a DefaultValue.
type DefaultKind string

const (
	DefaultValueLiteral DefaultKind = "value"
	DefaultNow          DefaultKind = "now"
	DefaultSequence     DefaultKind = "sequence"
	DefaultAutoIncr     DefaultKind = "auto_increment"
	DefaultUniqueRowid  DefaultKind = "unique_rowid" // CockroachDB
	DefaultDbGenerated  DefaultKind = "db_generated"
	DefaultAuto         DefaultKind = "auto" // MongoDB ObjectId
)

// ScalarKind is the PrismaValue-equivalent literal kind carried by a
// DefaultValueLiteral default.
type ScalarKind string

const (
	ScalarInt      ScalarKind = "int"
	ScalarFloat    ScalarKind = "float"
	ScalarString   ScalarKind = "string"
	ScalarBoolean  ScalarKind = "boolean"
	ScalarBytes    ScalarKind = "bytes"
	ScalarEnum     ScalarKind = "enum"
	ScalarList     ScalarKind = "list"
)

// Scalar is a single literal value as decoded from a catalog default
// string or a data-model @default(...) argument.
type Scalar struct {
	Kind     ScalarKind
	Text     string   // canonical textual form
	Elements []Scalar // populated when Kind == ScalarList
}

// DefaultValue is the tagged union of spec §3.2.
type DefaultValue struct {
	Kind DefaultKind

	Literal      Scalar // Kind == DefaultValueLiteral
	SequenceName string // Kind == DefaultSequence
	RawSQL       string // Kind == DefaultDbGenerated: the original, unparsed catalog text
}

// Now is a convenience constructor used by both the calculator (lowering
// of @default(now())) and the introspector's default-value tokenizer.
func Now() DefaultValue { return DefaultValue{Kind: DefaultNow} }

// Sequence constructs a Sequence(name) default.
func Sequence(name string) DefaultValue {
	return DefaultValue{Kind: DefaultSequence, SequenceName: name}
}

// DbGenerated wraps an unrecognized catalog default string verbatim,
// per spec §4.5 "Unrecognized strings are preserved as DbGenerated(raw)".
func DbGenerated(raw string) DefaultValue {
	return DefaultValue{Kind: DefaultDbGenerated, RawSQL: raw}
}

// Equal reports whether two defaults are semantically identical. This is
// the canonicalization point the differ relies on for MariaDB vs MySQL
// string-escaping asymmetries (spec §9 open question #2): callers must
// pass already-tokenized DefaultValues, never raw catalog strings, so
// that e.g. a literal "\n" and an escaped newline compare equal once
// both have gone through the same tokenizer.
func (d DefaultValue) Equal(o DefaultValue) bool {
	if d.Kind != o.Kind {
		return false
	}
	switch d.Kind {
	case DefaultValueLiteral:
		return scalarEqual(d.Literal, o.Literal)
	case DefaultSequence:
		return d.SequenceName == o.SequenceName
	case DefaultDbGenerated:
		return d.RawSQL == o.RawSQL
	default:
		return true
	}
}

func scalarEqual(a, b Scalar) bool {
	if a.Kind != b.Kind || a.Text != b.Text {
		return false
	}
	if len(a.Elements) != len(b.Elements) {
		return false
	}
	for i := range a.Elements {
		if !scalarEqual(a.Elements[i], b.Elements[i]) {
			return false
		}
	}
	return true
}
