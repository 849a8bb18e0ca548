// Package differ compares two ir.SqlSchema values and emits an ordered
// []ir.MigrationStep, generalized from the teacher's
// internal/schema/diff.go DiffSchemas/diffTables/diffColumns
// name-keyed-map comparison (still the right data structure for
// column pairing, kept) into the richer step algebra the IR's steps.go
// already models: pairing-by-shape for indexes and foreign keys instead
// of the teacher's pairing-by-name, dialect policy callbacks from
// internal/flavour instead of hardcoded Postgres assumptions, and a
// final ordering/permutation pass.
package differ

import (
	"sort"

	"github.com/lockforge/schemaengine/internal/flavour"
	"github.com/lockforge/schemaengine/internal/ir"
)

// Diff compares prev against next and returns the ordered step list
// that transforms a database matching prev into one matching next.
func Diff(prev, next *ir.SqlSchema, fl *flavour.Flavour) []ir.MigrationStep {
	d := &differ{prev: prev, next: next, fl: fl}
	var steps []ir.MigrationStep

	steps = append(steps, d.diffNamespaces()...)
	steps = append(steps, d.diffEnums()...)
	steps = append(steps, d.diffSequences()...)
	steps = append(steps, d.diffExtensions()...)

	tables := d.pairTables()
	redefine := d.redefineSet(tables)

	for _, t := range tables {
		switch {
		case t.PrevID == ir.NoID:
			steps = append(steps, d.createTableSteps(t.NextID)...)
		case t.NextID == ir.NoID:
			steps = append(steps, d.dropTableSteps(t.PrevID)...)
		case redefine[t.NextID]:
			steps = append(steps, d.redefineTableStep(t))
		default:
			steps = append(steps, d.diffPairedTable(t)...)
		}
	}

	return d.order(steps)
}

type differ struct {
	prev, next *ir.SqlSchema
	fl         *flavour.Flavour
}

func (d *differ) tableNamesMatch(a, b string) bool {
	if d.fl.Differ.TableNamesMatch != nil {
		return d.fl.Differ.TableNamesMatch(a, b)
	}
	return a == b
}

func (d *differ) namespaceName(schema *ir.SqlSchema, id ir.ID) string {
	for _, n := range schema.Namespaces {
		if n.ID == id {
			return n.Name
		}
	}
	return ""
}

// tablePair is one entry of the table pairing pass: PrevID/NextID is
// ir.NoID when the table only exists on one side.
type tablePair struct {
	Name           string
	PrevID, NextID ir.ID
}

func (d *differ) pairTables() []tablePair {
	var pairs []tablePair
	matchedNext := map[ir.ID]bool{}

	for _, pt := range d.prev.Tables {
		pns := d.namespaceName(d.prev, pt.NamespaceID)
		found := false
		for _, nt := range d.next.Tables {
			if matchedNext[nt.ID] {
				continue
			}
			if d.namespaceName(d.next, nt.NamespaceID) == pns && d.tableNamesMatch(pt.Name, nt.Name) {
				pairs = append(pairs, tablePair{Name: nt.Name, PrevID: pt.ID, NextID: nt.ID})
				matchedNext[nt.ID] = true
				found = true
				break
			}
		}
		if !found {
			pairs = append(pairs, tablePair{Name: pt.Name, PrevID: pt.ID, NextID: ir.NoID})
		}
	}
	for _, nt := range d.next.Tables {
		if !matchedNext[nt.ID] {
			pairs = append(pairs, tablePair{Name: nt.Name, PrevID: ir.NoID, NextID: nt.ID})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Name < pairs[j].Name })
	return pairs
}

func (d *differ) diffNamespaces() []ir.MigrationStep {
	var steps []ir.MigrationStep
	for _, ns := range d.next.Namespaces {
		exists := false
		for _, pns := range d.prev.Namespaces {
			if pns.Name == ns.Name {
				exists = true
				break
			}
		}
		if !exists {
			steps = append(steps, ir.MigrationStep{Kind: ir.StepCreateSchema, NamespaceID: ns.ID, Description: "create schema " + ns.Name})
		}
	}
	return steps
}

func (d *differ) createTableSteps(tableID ir.ID) []ir.MigrationStep {
	t, _ := d.next.Table(tableID)
	steps := []ir.MigrationStep{{Kind: ir.StepCreateTable, TableID: tableID, Description: "create table " + t.Name}}

	if d.fl.Differ.ShouldPushForeignKeysFromCreatedTables {
		for _, fk := range d.next.Walk(tableID).ForeignKeys() {
			steps = append(steps, ir.MigrationStep{Kind: ir.StepAddForeignKey, ForeignKeyID: fk.ID, Description: "add foreign key " + fk.ConstraintName})
		}
	}
	if d.fl.Differ.ShouldCreateIndexesFromCreatedTables {
		for _, idx := range d.next.Walk(tableID).Indexes() {
			if idx.Kind == ir.IndexPrimaryKey {
				continue // created inline with the table
			}
			if d.fl.Differ.ShouldSkipIndexForNewTable != nil && d.fl.Differ.ShouldSkipIndexForNewTable(d.next, idx) {
				continue
			}
			steps = append(steps, ir.MigrationStep{Kind: ir.StepCreateIndex, IndexID: idx.ID, Description: "create index " + idx.Name})
		}
	}
	return steps
}

func (d *differ) dropTableSteps(tableID ir.ID) []ir.MigrationStep {
	t, _ := d.prev.Table(tableID)
	var steps []ir.MigrationStep
	if d.fl.Differ.ShouldDropForeignKeysFromDroppedTables {
		for _, fk := range d.prev.Walk(tableID).ForeignKeys() {
			steps = append(steps, ir.MigrationStep{Kind: ir.StepDropForeignKey, PreviousForeignKeyID: fk.ID, Description: "drop foreign key " + fk.ConstraintName})
		}
	}
	steps = append(steps, ir.MigrationStep{Kind: ir.StepDropTable, TableID: tableID, Description: "drop table " + t.Name})
	return steps
}
