// Package datamodel implements the high-level data-model language: a
// hand-written lexer and recursive-descent parser that produce a lossless
// AST (spans retained for the reformatter), and a validation pipeline
// that resolves every name to an id and enforces the invariants of spec
// §3.1, producing a ValidatedSchema ("parser database").
//
// The parser is grounded on the teacher's own style of walking a parsed
// tree by type-switching over node kinds (internal/schema/parser.go's
// parseCreateTable/parseColumnDef/parseColumnConstraint), generalized
// from walking a pg_query AST to walking a hand-rolled token stream,
// since the data-model language is not SQL.
package datamodel

// Span is a byte range in the source, used for diagnostics and for the
// reformatter to recover exact source text.
type Span struct {
	Start, End int
	Line       int // 1-based line of Start, for human-readable diagnostics
}

// Comment is either a `///` doc-comment or a `//` line comment, anchored
// to the line immediately following it (leading) or the same line
// (trailing), per spec §4.2 rule 2.
type Comment struct {
	Text      string // without the leading slashes
	Doc       bool   // true for `///`
	Trailing  bool   // attached to the end of the previous line
	Span      Span
}

// Arity is a field's cardinality.
type Arity int

const (
	ArityRequired Arity = iota
	ArityOptional
	ArityList
)

// TypeRefKind distinguishes what a field's type name resolves to.
type TypeRefKind int

const (
	TypeScalar TypeRefKind = iota
	TypeReference            // model, enum, or composite type name
	TypeUnsupported
)

// TypeRef is a field's declared type before resolution.
type TypeRef struct {
	Name        string // scalar name, reference name, or the raw Unsupported("...") literal
	Kind        TypeRefKind
	Span        Span
}

// Arg is a single attribute argument, positional or named.
type Arg struct {
	Name  string // empty for positional args
	Value string // raw textual value (string/number/list/identifier literal)
	Span  Span
}

// Attribute is a field-level (`@foo`) or block-level (`@@foo`) attribute.
type Attribute struct {
	Name  string // without leading @ / @@
	Block bool
	Args  []Arg
	Span  Span
	// TrailingComment is set when the source line ends with `//...` right
	// after this attribute, which the reformatter must preserve verbatim
	// (spec §9 "deliberately left for a future revision" clause).
	TrailingComment string
}

// Field is a member of a model, view, or composite type.
type Field struct {
	Name       string
	Type       TypeRef
	Arity      Arity
	Attributes []Attribute
	Leading    []Comment
	Trailing   *Comment
	Span       Span
	// Synthesized marks fields materialized by implicit-relation
	// completion (spec §4.3) rather than present in the source text.
	Synthesized bool
	// BlankLinesBefore is the number of blank source lines preceding this
	// field (or its leading comments, if any). A contiguous alignment run
	// breaks whenever this is nonzero.
	BlankLinesBefore int
}

// EnumValue is one member of an enum.
type EnumValue struct {
	Name       string
	Attributes []Attribute
	Leading    []Comment
	Trailing   *Comment
	Span       Span
}

// ItemKind tags a top-level item.
type ItemKind int

const (
	ItemDatasource ItemKind = iota
	ItemGenerator
	ItemModel
	ItemView
	ItemCompositeType
	ItemEnum
	ItemTypeAlias
)

// Property is a simple `key = value` pair inside datasource/generator
// blocks.
type Property struct {
	Name  string
	Value string
	Span  Span
}

// Item is one top-level declaration.
type Item struct {
	Kind       ItemKind
	Name       string
	Fields     []Field     // model, view, composite type
	EnumValues []EnumValue // enum
	Properties []Property  // datasource, generator
	Attributes []Attribute // block attributes on model/view/enum
	AliasOf    TypeRef     // type alias
	Leading    []Comment
	Span       Span
	// BlankLinesBefore preserves the number of blank lines that preceded
	// this item in the source, collapsed by the reformatter to at most 1
	// between top-level items (spec §4.2 rule 6) but needed here to know
	// there *was* a gap at all.
	BlankLinesBefore int
}

// Document is the full lossless parse tree of one source file.
type Document struct {
	Items []Item
	// TrailingComments holds comments after the last item, preserved by
	// the reformatter per rule 2.
	TrailingComments []Comment
}
