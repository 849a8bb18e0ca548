// Package reformat implements the pure text-to-text pretty-printer for
// the data-model language: a stable, idempotent formatter that
// preserves comments and blank-line structure while normalizing
// attribute order and aligning columns, grounded on the teacher's own
// strings.Builder column-padding discipline in its SQL generators
// (database/postgres/generator.go), generalized from assembling SQL
// text to assembling data-model text.
package reformat

import (
	"sort"
	"strings"

	"github.com/lockforge/schemaengine/internal/datamodel"
)

// blockAttributeOrder is the canonical sort key for block-level
// attributes (rule 3).
var blockAttributeOrder = map[string]int{
	"id": 0, "unique": 1, "index": 2, "fulltext": 3, "map": 4, "ignore": 5,
}

// fieldAttributeOrder is the canonical sort key for field-level
// attributes (rule 4). Native-type attributes (`@db.*`) are matched by
// prefix, handled specially in fieldAttributeRank.
var fieldAttributeOrder = map[string]int{
	"id": 0, "unique": 1, "default": 2, "updatedAt": 3, "map": 4, "relation": 6, "ignore": 7,
}

const dbAttributeRank = 5

func fieldAttributeRank(name string) int {
	if strings.HasPrefix(name, "db.") {
		return dbAttributeRank
	}
	if r, ok := fieldAttributeOrder[name]; ok {
		return r
	}
	return len(fieldAttributeOrder) + 1
}

// Format parses src, completes implicit relations, and renders it back
// to canonical text. It is idempotent: Format(Format(x)) == Format(x),
// because every non-structural decision (attribute order, alignment,
// blank-line collapsing) is a pure function of the parsed AST, not of
// the previous formatting pass's output.
func Format(src string) (string, error) {
	doc, diag := datamodel.Parse(src)
	if diag.HasErrors() {
		return "", diag
	}
	CompleteImplicitRelations(doc)
	return render(doc), nil
}

func render(doc *datamodel.Document) string {
	var sb strings.Builder
	for i, item := range doc.Items {
		if i > 0 {
			sb.WriteString("\n") // rule 6: exactly one blank line between top-level blocks
		}
		renderItem(&sb, item)
	}
	for _, c := range doc.TrailingComments {
		writeComment(&sb, c)
	}
	out := sb.String()
	out = strings.TrimLeft(out, "\n") // rule 6: no leading blank lines
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}

func renderItem(sb *strings.Builder, item datamodel.Item) {
	for _, c := range item.Leading {
		writeComment(sb, c)
	}
	switch item.Kind {
	case datamodel.ItemDatasource:
		renderPropsBlock(sb, "datasource", item)
	case datamodel.ItemGenerator:
		renderPropsBlock(sb, "generator", item)
	case datamodel.ItemTypeAlias:
		sb.WriteString("type " + item.Name + " = " + item.AliasOf.Name + "\n")
	case datamodel.ItemEnum:
		renderEnum(sb, item)
	default:
		renderFieldsBlock(sb, item)
	}
}

func renderPropsBlock(sb *strings.Builder, keyword string, item datamodel.Item) {
	sb.WriteString(keyword + " " + item.Name + " {\n")
	width := 0
	for _, p := range item.Properties {
		if len(p.Name) > width {
			width = len(p.Name)
		}
	}
	for _, p := range item.Properties {
		sb.WriteString("  " + padRight(p.Name, width) + " = " + p.Value + "\n")
	}
	sb.WriteString("}\n")
}

func renderEnum(sb *strings.Builder, item datamodel.Item) {
	sb.WriteString("enum " + item.Name + " {\n")
	for _, ev := range item.EnumValues {
		for _, c := range ev.Leading {
			sb.WriteString("  ")
			writeComment(sb, c)
		}
		sb.WriteString("  " + ev.Name)
		for _, a := range ev.Attributes {
			sb.WriteString(" " + renderAttribute(a))
		}
		if ev.Trailing != nil {
			sb.WriteString(" // " + ev.Trailing.Text)
		}
		sb.WriteString("\n")
	}
	renderBlockAttributes(sb, item.Attributes, len(item.EnumValues) > 0)
	sb.WriteString("}\n")
}

func renderFieldsBlock(sb *strings.Builder, item datamodel.Item) {
	keyword := "model"
	if item.Kind == datamodel.ItemView {
		keyword = "view"
	} else if item.Kind == datamodel.ItemCompositeType {
		keyword = "type"
	}
	sb.WriteString(keyword + " " + item.Name + " {\n")

	runs := splitAlignmentRuns(item.Fields)
	for i, run := range runs {
		if i > 0 && run.blankBefore > 0 {
			sb.WriteString(strings.Repeat("\n", run.blankBefore))
		}
		renderFieldRun(sb, run)
	}

	renderBlockAttributes(sb, item.Attributes, len(item.Fields) > 0)
	sb.WriteString("}\n")
}

// fieldRun is a contiguous, well-formed alignment run (rule 5).
type fieldRun struct {
	fields      []datamodel.Field
	blankBefore int
}

func splitAlignmentRuns(fields []datamodel.Field) []fieldRun {
	var runs []fieldRun
	for _, f := range fields {
		breaksRun := len(f.Leading) > 0 || f.BlankLinesBefore > 0
		if breaksRun || len(runs) == 0 {
			runs = append(runs, fieldRun{blankBefore: f.BlankLinesBefore})
		}
		last := &runs[len(runs)-1]
		last.fields = append(last.fields, f)
	}
	return runs
}

func renderFieldRun(sb *strings.Builder, run fieldRun) {
	nameWidth, typeWidth := 0, 0
	typeTexts := make([]string, len(run.fields))
	for i, f := range run.fields {
		if len(f.Name) > nameWidth {
			nameWidth = len(f.Name)
		}
		typeTexts[i] = renderTypeRef(f)
		if len(typeTexts[i]) > typeWidth {
			typeWidth = len(typeTexts[i])
		}
	}
	for i, f := range run.fields {
		for _, c := range f.Leading {
			sb.WriteString("  ")
			writeComment(sb, c)
		}
		sortAttrs(f.Attributes)
		var attrParts []string
		for _, a := range f.Attributes {
			attrParts = append(attrParts, renderAttribute(a))
		}
		line := "  " + padRight(f.Name, nameWidth) + " " + padRight(typeTexts[i], typeWidth)
		if len(attrParts) > 0 {
			line += " " + strings.Join(attrParts, " ")
		}
		sb.WriteString(strings.TrimRight(line, " "))
		if f.Trailing != nil {
			sb.WriteString(" // " + f.Trailing.Text)
		}
		sb.WriteString("\n")
	}
}

func renderTypeRef(f datamodel.Field) string {
	s := f.Type.Name
	switch f.Arity {
	case datamodel.ArityOptional:
		s += "?"
	case datamodel.ArityList:
		s += "[]"
	}
	return s
}

func sortAttrs(attrs []datamodel.Attribute) {
	sort.SliceStable(attrs, func(i, j int) bool {
		return fieldAttributeRank(attrs[i].Name) < fieldAttributeRank(attrs[j].Name)
	})
}

// renderBlockAttributes implements rule 3: canonical order, moved to the
// block's end, separated from the last field/value by exactly one blank
// line (unless the block is otherwise empty).
func renderBlockAttributes(sb *strings.Builder, attrs []datamodel.Attribute, hadBody bool) {
	if len(attrs) == 0 {
		return
	}
	ordered := append([]datamodel.Attribute(nil), attrs...)
	// Stable sort preserves source order among attributes whose relative
	// placement must not change per Open Question 3 (a trailing comment
	// pins the existing order).
	hasTrailingComment := false
	for _, a := range ordered {
		if a.TrailingComment != "" {
			hasTrailingComment = true
			break
		}
	}
	if !hasTrailingComment {
		sort.SliceStable(ordered, func(i, j int) bool {
			ri, oki := blockAttributeOrder[ordered[i].Name]
			rj, okj := blockAttributeOrder[ordered[j].Name]
			if !oki {
				ri = len(blockAttributeOrder) + 1
			}
			if !okj {
				rj = len(blockAttributeOrder) + 1
			}
			return ri < rj
		})
	}
	if hadBody {
		sb.WriteString("\n")
	}
	for _, a := range ordered {
		sb.WriteString("  " + renderAttribute(a))
		if a.TrailingComment != "" {
			sb.WriteString(" // " + a.TrailingComment)
		}
		sb.WriteString("\n")
	}
}

func renderAttribute(a datamodel.Attribute) string {
	prefix := "@"
	if a.Block {
		prefix = "@@"
	}
	s := prefix + a.Name
	if len(a.Args) > 0 {
		var parts []string
		for _, arg := range a.Args {
			if arg.Name != "" {
				parts = append(parts, arg.Name+": "+arg.Value)
			} else {
				parts = append(parts, arg.Value)
			}
		}
		s += "(" + strings.Join(parts, ", ") + ")"
	}
	return s
}

func writeComment(sb *strings.Builder, c datamodel.Comment) {
	slashes := "//"
	if c.Doc {
		slashes = "///"
	}
	sb.WriteString(slashes + " " + c.Text + "\n")
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
