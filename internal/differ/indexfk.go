package differ

import (
	"fmt"
	"strings"

	"github.com/lockforge/schemaengine/internal/ir"
)

// indexShape is the pairing key of spec-equivalent §4.6.1: indexes pair
// by shape, not by name, so a bare rename produces RenameIndex rather
// than a drop/create.
func indexShape(schema *ir.SqlSchema, idx ir.Index) string {
	var sb strings.Builder
	sb.WriteString(string(idx.Kind))
	for _, ic := range schema.IndexColumns(idx.ID) {
		c, _ := schema.Column(ic.ColumnID)
		fmt.Fprintf(&sb, "|%s:%s:%d:%s", c.Name, ic.SortOrder, ic.LengthPrefix, ic.Opclass)
	}
	return sb.String()
}

func (d *differ) pairIndexes(prevTableID, nextTableID ir.ID) (added, removed []ir.Index, paired []struct{ prev, next ir.Index }) {
	prevIdx := d.prev.Walk(prevTableID).Indexes()
	nextIdx := d.next.Walk(nextTableID).Indexes()
	matched := map[ir.ID]bool{}

	for _, p := range prevIdx {
		pShape := indexShape(d.prev, p)
		found := false
		for _, n := range nextIdx {
			if matched[n.ID] {
				continue
			}
			if indexShape(d.next, n) == pShape {
				paired = append(paired, struct{ prev, next ir.Index }{p, n})
				matched[n.ID] = true
				found = true
				break
			}
		}
		if !found {
			removed = append(removed, p)
		}
	}
	for _, n := range nextIdx {
		if !matched[n.ID] {
			added = append(added, n)
		}
	}
	return added, removed, paired
}

// fkShape is the pairing key of spec-equivalent §4.6.1: (referencing
// columns ordered, referenced table, referenced columns ordered,
// on_delete, on_update) — deliberately name-blind so a bare constraint
// rename produces RenameForeignKey instead of drop+add.
func fkShape(schema *ir.SqlSchema, fk ir.ForeignKey) string {
	refT, _ := schema.Table(fk.ReferencedTableID)
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|%s|%s", refT.Name, fk.OnDelete, fk.OnUpdate)
	for _, fc := range schema.ForeignKeyColumns(fk.ID) {
		c, _ := schema.Column(fc.ConstrainedColumn)
		rc, _ := schema.Column(fc.ReferencedColumn)
		fmt.Fprintf(&sb, "|%s>%s", c.Name, rc.Name)
	}
	return sb.String()
}

func (d *differ) pairForeignKeys(prevTableID, nextTableID ir.ID) (added, removed []ir.ForeignKey, paired []struct{ prev, next ir.ForeignKey }) {
	prevFKs := d.prev.Walk(prevTableID).ForeignKeys()
	nextFKs := d.next.Walk(nextTableID).ForeignKeys()
	matched := map[ir.ID]bool{}

	for _, p := range prevFKs {
		pShape := fkShape(d.prev, p)
		found := false
		for _, n := range nextFKs {
			if matched[n.ID] {
				continue
			}
			if fkShape(d.next, n) == pShape {
				paired = append(paired, struct{ prev, next ir.ForeignKey }{p, n})
				matched[n.ID] = true
				found = true
				break
			}
		}
		if !found {
			removed = append(removed, p)
		}
	}
	for _, n := range nextFKs {
		if !matched[n.ID] {
			added = append(added, n)
		}
	}
	return added, removed, paired
}
