// Package sqlite renders an ordered []ir.MigrationStep into SQLite DDL
// text, adapted from the teacher's database/sqlite/generator.go
// method-per-step-kind shape. Unlike the teacher's ModifyColumn (a
// comment-only placeholder citing "would require table recreation"),
// this renderer implements the real five-step CREATE/INSERT/DROP/RENAME
// sequence for RedefineTables steps (spec-equivalent §4.6.4).
package sqlite

import (
	"fmt"
	"strings"

	"github.com/lockforge/schemaengine/internal/ir"
	"github.com/lockforge/schemaengine/internal/renderer"
)

// Renderer implements flavour.Renderer for SQLite.
type Renderer struct{}

func (r *Renderer) Render(prev, next *ir.SqlSchema, steps []ir.MigrationStep) (string, error) {
	var sb strings.Builder
	for _, step := range steps {
		stmt, err := r.renderStep(prev, next, step)
		if err != nil {
			return "", err
		}
		if stmt == "" {
			continue
		}
		sb.WriteString(stmt)
		if !strings.HasSuffix(stmt, "\n") {
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

// RenderStep renders one step in isolation, for callers (the destructive-
// change checker) that need per-step SQL rather than a whole script.
func (r *Renderer) RenderStep(prev, next *ir.SqlSchema, step ir.MigrationStep) (string, error) {
	return r.renderStep(prev, next, step)
}

func (r *Renderer) renderStep(prev, next *ir.SqlSchema, step ir.MigrationStep) (string, error) {
	switch step.Kind {
	case ir.StepCreateTable:
		return r.createTable(next, step.TableID), nil
	case ir.StepDropTable:
		t, _ := prev.Table(step.TableID)
		return fmt.Sprintf("DROP TABLE %s;", t.Name), nil
	case ir.StepCreateIndex:
		return r.createIndex(next, step.IndexID), nil
	case ir.StepDropIndex:
		idx := findIndex(prev, step.IndexID)
		return fmt.Sprintf("DROP INDEX %s;", idx.Name), nil
	case ir.StepAlterTable:
		return r.alterTable(prev, next, step.AlterTable), nil
	case ir.StepRedefineTables:
		return r.redefineTables(prev, next, step.RedefineTables), nil
	case ir.StepRedefineIndex:
		// SQLite has no ALTER INDEX RENAME; a pure name change (the only
		// reason the differ emits this for an index whose shape didn't
		// change) is a plain drop-and-recreate under the new name.
		p := findIndex(prev, step.PreviousIndexID)
		return fmt.Sprintf("DROP INDEX %s;\n%s", p.Name, r.createIndex(next, step.NextIndexID)), nil
	default:
		// AddForeignKey/DropForeignKey/RenameForeignKey and PK changes
		// never reach SQLite directly: the differ routes every table
		// needing one of those into RedefineTables instead (its
		// can_rename_index / can_rename_foreign_key flavour flags are
		// false), so no rendering is needed for those kinds here.
		return "", nil
	}
}

func (r *Renderer) createTable(schema *ir.SqlSchema, tableID ir.ID) string {
	t, _ := schema.Table(tableID)
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n);", t.Name, columnDefinitionsBlock(schema, tableID))
}

func columnDefinitionsBlock(schema *ir.SqlSchema, tableID ir.ID) string {
	w := schema.Walk(tableID)
	cols := w.Columns()
	pk, hasPK := w.PrimaryKey()
	pkCols := map[ir.ID]bool{}
	if hasPK {
		for _, ic := range schema.IndexColumns(pk.ID) {
			pkCols[ic.ColumnID] = true
		}
	}
	var lines []string
	for _, c := range cols {
		lines = append(lines, "  "+formatColumnDefinition(schema, c, pkCols[c.ID]))
	}
	for _, fk := range w.ForeignKeys() {
		lines = append(lines, "  "+foreignKeyClause(schema, fk))
	}
	return strings.Join(lines, ",\n")
}

func formatColumnDefinition(schema *ir.SqlSchema, c ir.Column, isPK bool) string {
	var sb strings.Builder
	sb.WriteString(c.Name + " " + sqlType(c.Type))
	if isPK {
		sb.WriteString(" PRIMARY KEY")
		if c.AutoIncrement {
			sb.WriteString(" AUTOINCREMENT")
		}
	}
	if c.Type.Arity == ir.ArityRequired {
		sb.WriteString(" NOT NULL")
	}
	if dv, ok := schema.DefaultFor(c.ID); ok {
		if text := renderer.FormatDefault(dv); text != "" {
			sb.WriteString(" DEFAULT " + text)
		}
	}
	return sb.String()
}

func foreignKeyClause(schema *ir.SqlSchema, fk ir.ForeignKey) string {
	refT, _ := schema.Table(fk.ReferencedTableID)
	var cols, refCols []string
	for _, fc := range schema.ForeignKeyColumns(fk.ID) {
		c, _ := schema.Column(fc.ConstrainedColumn)
		rc, _ := schema.Column(fc.ReferencedColumn)
		cols = append(cols, c.Name)
		refCols = append(refCols, rc.Name)
	}
	return fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s ON UPDATE %s",
		renderer.QuoteColumnList(cols), refT.Name, renderer.QuoteColumnList(refCols),
		renderer.FormatAction(fk.OnDelete), renderer.FormatAction(fk.OnUpdate))
}

func sqlType(ct ir.ColumnType) string {
	if ct.Native != nil {
		return strings.ToUpper(ct.Native.Name)
	}
	return ct.FullDataType
}

func (r *Renderer) createIndex(schema *ir.SqlSchema, indexID ir.ID) string {
	idx := findIndex(schema, indexID)
	t, _ := schema.Table(idx.TableID)
	unique := ""
	if idx.Kind == ir.IndexUnique {
		unique = "UNIQUE "
	}
	var names []string
	for _, ic := range schema.IndexColumns(idx.ID) {
		col, _ := schema.Column(ic.ColumnID)
		names = append(names, col.Name)
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s);", unique, idx.Name, t.Name, renderer.QuoteColumnList(names))
}

// alterTable handles only the subset SQLite supports in-place: adding
// and dropping a plain column. Anything structurally heavier (FK
// changes, primary-key changes, not-castable type changes) is routed by
// the differ into a RedefineTables step instead (spec-equivalent §4.6.4),
// so AlterTable.Changes here never contains those kinds for SQLite.
func (r *Renderer) alterTable(prev, next *ir.SqlSchema, at *ir.AlterTable) string {
	if at == nil {
		return ""
	}
	t, _ := next.Table(at.NextTableID)
	if t.Name == "" {
		t, _ = prev.Table(at.PreviousTableID)
	}
	var stmts []string
	for _, ch := range at.Changes {
		switch ch.Kind {
		case ir.ChangeDropColumn:
			col, _ := prev.Column(ch.PreviousColumnID)
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", t.Name, col.Name))
		case ir.ChangeAddColumn:
			col, _ := next.Column(ch.NextColumnID)
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", t.Name, formatColumnDefinition(next, col, false)))
		}
	}
	return strings.Join(stmts, "\n")
}

// redefineTables emits the canonical SQLite table-rewrite sequence for
// every RedefineTable entry: disable FK checks, CREATE TABLE new_X,
// INSERT INTO new_X SELECT <casts> FROM X, DROP TABLE X, ALTER TABLE
// new_X RENAME TO X, recreate surviving indexes, re-enable FK checks.
func (r *Renderer) redefineTables(prev, next *ir.SqlSchema, tables []ir.RedefineTable) string {
	if len(tables) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("PRAGMA foreign_keys=OFF;\n")
	for _, rt := range tables {
		nextT, _ := next.Table(rt.NextTableID)
		prevT, _ := prev.Table(rt.PreviousTableID)
		tmpName := "new_" + nextT.Name

		sb.WriteString(fmt.Sprintf("CREATE TABLE %s (\n%s\n);\n", tmpName, columnDefinitionsBlock(next, rt.NextTableID)))

		w := next.Walk(rt.NextTableID)
		cols := w.Columns()
		var destNames, selectExprs []string
		for _, c := range cols {
			destNames = append(destNames, c.Name)
			if expr, ok := rt.ColumnCasts[c.ID]; ok {
				selectExprs = append(selectExprs, expr)
			} else {
				selectExprs = append(selectExprs, c.Name)
			}
		}
		sb.WriteString(fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s;\n",
			tmpName, renderer.QuoteColumnList(destNames), renderer.QuoteColumnList(selectExprs), prevT.Name))

		sb.WriteString(fmt.Sprintf("DROP TABLE %s;\n", prevT.Name))
		sb.WriteString(fmt.Sprintf("ALTER TABLE %s RENAME TO %s;\n", tmpName, nextT.Name))

		for _, idx := range w.Indexes() {
			if idx.Kind == ir.IndexPrimaryKey {
				continue // PRIMARY KEY is declared inline in the CREATE TABLE above
			}
			sb.WriteString(r.createIndex(next, idx.ID) + "\n")
		}
	}
	sb.WriteString("PRAGMA foreign_keys=ON;")
	return sb.String()
}

func findIndex(schema *ir.SqlSchema, id ir.ID) ir.Index {
	for _, i := range schema.Indexes {
		if i.ID == id {
			return i
		}
	}
	return ir.Index{}
}
