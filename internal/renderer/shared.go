// Package renderer holds SQL-text formatting helpers shared by the
// Postgres and SQLite renderer bodies (internal/renderer/postgres,
// internal/renderer/sqlite). Grounded on the teacher's
// FormatColumnDefinition / ParameterPlaceholder-style per-dialect
// helpers in database/postgres/generator.go and
// database/sqlite/generator.go.
package renderer

import (
	"fmt"
	"strings"

	"github.com/lockforge/schemaengine/internal/ir"
)

// FormatAction renders a ReferentialAction as DDL text.
func FormatAction(a ir.ReferentialAction) string {
	switch a {
	case ir.ActionCascade:
		return "CASCADE"
	case ir.ActionSetNull:
		return "SET NULL"
	case ir.ActionSetDefault:
		return "SET DEFAULT"
	case ir.ActionRestrict:
		return "RESTRICT"
	default:
		return "NO ACTION"
	}
}

// FormatDefault renders a DefaultValue as a DDL default expression.
func FormatDefault(d ir.DefaultValue) string {
	switch d.Kind {
	case ir.DefaultNow:
		return "CURRENT_TIMESTAMP"
	case ir.DefaultSequence:
		if d.SequenceName == "" {
			return ""
		}
		return fmt.Sprintf("nextval('%s')", d.SequenceName)
	case ir.DefaultDbGenerated:
		return d.RawSQL
	case ir.DefaultValueLiteral:
		return formatScalar(d.Literal)
	default:
		return ""
	}
}

func formatScalar(s ir.Scalar) string {
	switch s.Kind {
	case ir.ScalarString:
		return "'" + strings.ReplaceAll(s.Text, "'", "''") + "'"
	case ir.ScalarBoolean:
		return s.Text
	default:
		return s.Text
	}
}

// QuoteColumnList renders a comma-joined, unquoted column-name list —
// identifiers in this engine's data model are always already valid SQL
// identifiers (sanitized at introspection reverse-calculation time), so
// no quoting layer is needed here, matching the teacher's own
// generators which never quote identifiers either.
func QuoteColumnList(names []string) string { return strings.Join(names, ", ") }
