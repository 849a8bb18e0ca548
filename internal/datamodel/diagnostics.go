package datamodel

import "fmt"

// Code names one error from the taxonomy of spec §4.1. Kept as a string
// enum (rather than an int) so diagnostics remain stable identifiers
// across versions, the same reasoning the teacher's own error constants
// in internal/locks/detector.go use for lock-mode names.
type Code string

const (
	ErrUnexpectedToken       Code = "unexpected_token"
	ErrUnterminatedString    Code = "unterminated_string"
	ErrDuplicateName         Code = "duplicate_name"
	ErrUnknownType           Code = "unknown_type"
	ErrMultiplePrimaryKeys   Code = "multiple_primary_keys"
	ErrMissingPrimaryKey     Code = "missing_primary_key"
	ErrAmbiguousRelation     Code = "ambiguous_relation"
	ErrRelationFieldCount    Code = "relation_field_count_mismatch"
	ErrRelationTypeMismatch  Code = "relation_type_mismatch"
	ErrRelationArityInvalid  Code = "relation_arity_invalid"
	ErrUnresolvedReference   Code = "unresolved_reference"
	ErrInvalidAttributeArg   Code = "invalid_attribute_argument"
	ErrDuplicateAttribute    Code = "duplicate_attribute"
	ErrMissingDatasource     Code = "missing_datasource"
	ErrInvalidNativeType     Code = "invalid_native_type"
	ErrCompositeTypeUnsupported Code = "composite_type_unsupported_by_connector"
)

// Diagnostic is one validation or parse error, carrying the source span
// so CLI output (and, eventually, editor tooling) can underline it.
type Diagnostic struct {
	Code    Code
	Message string
	Span    Span
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s:%d: %s", d.Code, d.Span.Line, d.Message)
}

// Diagnostics is an accumulating error list. Parsing and validation never
// stop at the first error: both collect as many diagnostics as possible
// in one pass, matching spec §4.1's "report every error found, not just
// the first" requirement.
type Diagnostics struct {
	items []Diagnostic
}

func (d *Diagnostics) Add(code Code, span Span, format string, args ...any) {
	d.items = append(d.items, Diagnostic{Code: code, Message: fmt.Sprintf(format, args...), Span: span})
}

func (d *Diagnostics) HasErrors() bool { return len(d.items) > 0 }

func (d *Diagnostics) Items() []Diagnostic { return d.items }

func (d *Diagnostics) Error() string {
	if len(d.items) == 0 {
		return ""
	}
	msg := d.items[0].Error()
	if len(d.items) > 1 {
		msg = fmt.Sprintf("%s (and %d more)", msg, len(d.items)-1)
	}
	return msg
}
