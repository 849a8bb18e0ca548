// Package introspect holds the dialect-aware default-value tokenizer
// shared by internal/introspect/postgres and internal/introspect/sqlite,
// grounded on the teacher's formatExpr/parseColumnConstraint
// expression-formatting switch in internal/schema/parser.go, generalized
// from "format AST node to string" to "parse catalog default string to
// tagged DefaultValue".
package introspect

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/lockforge/schemaengine/internal/ir"
)

var (
	castSuffixRe = regexp.MustCompile(`::[A-Za-z_][A-Za-z0-9_."]*$`)
	nextvalRe    = regexp.MustCompile(`^nextval\('([^']+)'(?:::regclass)?\)$`)
	enumCastRe   = regexp.MustCompile(`^'([^']*)'::"?([A-Za-z_][A-Za-z0-9_]*)"?$`)
	arrayLitRe   = regexp.MustCompile(`^ARRAY\[(.*)\]$`)
	cStyleArrRe  = regexp.MustCompile(`^\{(.*)\}$`)
)

// ParseDefault tokenizes a raw catalog default-value string into a
// DefaultValue, per spec-equivalent §4.5. Unrecognized strings are
// preserved verbatim as DbGenerated so no information is lost.
func ParseDefault(raw string) ir.DefaultValue {
	s := strings.TrimSpace(raw)

	switch strings.ToLower(s) {
	case "now()", "current_timestamp", "datetime('now')":
		return ir.Now()
	case "unique_rowid()":
		return ir.DefaultValue{Kind: ir.DefaultUniqueRowid}
	case "t", "true":
		return ir.DefaultValue{Kind: ir.DefaultValueLiteral, Literal: ir.Scalar{Kind: ir.ScalarBoolean, Text: "true"}}
	case "f", "false":
		return ir.DefaultValue{Kind: ir.DefaultValueLiteral, Literal: ir.Scalar{Kind: ir.ScalarBoolean, Text: "false"}}
	}

	if m := nextvalRe.FindStringSubmatch(s); m != nil {
		return ir.Sequence(m[1])
	}

	if m := enumCastRe.FindStringSubmatch(s); m != nil {
		return ir.DefaultValue{Kind: ir.DefaultValueLiteral, Literal: ir.Scalar{Kind: ir.ScalarEnum, Text: unescapeQuoted(m[1])}}
	}

	// Strip a trailing ::type cast (e.g. '-4'::integer) before re-checking
	// the simpler literal forms, same normalization the teacher's
	// normalizeDefault performs for comparison purposes.
	if m := castSuffixRe.FindStringIndex(s); m != nil && balancedQuotes(s[:m[0]]) {
		inner := s[:m[0]]
		if inner != s {
			return ParseDefault(inner)
		}
	}

	if strings.HasPrefix(s, "E'") && strings.HasSuffix(s, "'") {
		return ir.DefaultValue{Kind: ir.DefaultValueLiteral, Literal: ir.Scalar{Kind: ir.ScalarString, Text: unescapeCStyle(s[2 : len(s)-1])}}
	}

	if strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'") && len(s) >= 2 {
		return ir.DefaultValue{Kind: ir.DefaultValueLiteral, Literal: ir.Scalar{Kind: ir.ScalarString, Text: unescapeQuoted(s[1 : len(s)-1])}}
	}

	if strings.HasPrefix(s, `\x`) {
		return ir.DefaultValue{Kind: ir.DefaultValueLiteral, Literal: ir.Scalar{Kind: ir.ScalarBytes, Text: s}}
	}

	if m := arrayLitRe.FindStringSubmatch(s); m != nil {
		return ir.DefaultValue{Kind: ir.DefaultValueLiteral, Literal: ir.Scalar{Kind: ir.ScalarList, Elements: splitListElements(m[1])}}
	}
	if m := cStyleArrRe.FindStringSubmatch(s); m != nil {
		return ir.DefaultValue{Kind: ir.DefaultValueLiteral, Literal: ir.Scalar{Kind: ir.ScalarList, Elements: splitListElements(m[1])}}
	}

	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ir.DefaultValue{Kind: ir.DefaultValueLiteral, Literal: ir.Scalar{Kind: ir.ScalarInt, Text: s}}
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return ir.DefaultValue{Kind: ir.DefaultValueLiteral, Literal: ir.Scalar{Kind: ir.ScalarFloat, Text: s}}
	}

	return ir.DbGenerated(raw)
}

func splitListElements(inner string) []ir.Scalar {
	if strings.TrimSpace(inner) == "" {
		return nil
	}
	var out []ir.Scalar
	for _, part := range strings.Split(inner, ",") {
		v := ParseDefault(strings.TrimSpace(part))
		if v.Kind == ir.DefaultValueLiteral {
			out = append(out, v.Literal)
		} else {
			out = append(out, ir.Scalar{Kind: ir.ScalarString, Text: strings.TrimSpace(part)})
		}
	}
	return out
}

func balancedQuotes(s string) bool { return strings.Count(s, "'")%2 == 0 }

// unescapeQuoted handles standard SQL '' escaping of a single quote.
func unescapeQuoted(s string) string { return strings.ReplaceAll(s, "''", "'") }

// unescapeCStyle handles Postgres/CockroachDB E'...' escape sequences:
// \n \r \t \uXXXX \UXXXXXXXX plus the standard '' quote escape.
func unescapeCStyle(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			sb.WriteByte(c)
			continue
		}
		next := s[i+1]
		switch next {
		case 'n':
			sb.WriteByte('\n')
			i++
		case 'r':
			sb.WriteByte('\r')
			i++
		case 't':
			sb.WriteByte('\t')
			i++
		case 'u':
			if i+6 <= len(s) {
				if r, err := strconv.ParseInt(s[i+2:i+6], 16, 32); err == nil {
					sb.WriteRune(rune(r))
					i += 5
					continue
				}
			}
			sb.WriteByte(c)
		case 'U':
			if i+10 <= len(s) {
				if r, err := strconv.ParseInt(s[i+2:i+10], 16, 32); err == nil {
					sb.WriteRune(rune(r))
					i += 9
					continue
				}
			}
			sb.WriteByte(c)
		default:
			sb.WriteByte(next)
			i++
		}
	}
	return unescapeQuoted(sb.String())
}

// IgnoredSQLiteTable reports system tables the introspector must skip.
func IgnoredSQLiteTable(name string) bool {
	lower := strings.ToLower(name)
	switch {
	case lower == "sqlite_sequence":
		return true
	case strings.HasPrefix(lower, "sqlite_stat"):
		return true
	case lower == "d1_migrations":
		return true
	case strings.HasPrefix(lower, "_cf_"):
		return true
	}
	return false
}

// IgnoredPostgresTable reports PostGIS/raster objects to skip.
func IgnoredPostgresTable(name string) bool {
	switch strings.ToLower(name) {
	case "spatial_ref_sys", "geometry_columns", "geography_columns", "raster_columns", "raster_overviews":
		return true
	}
	return false
}
