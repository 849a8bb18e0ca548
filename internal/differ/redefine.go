package differ

import "github.com/lockforge/schemaengine/internal/ir"

// redefineSet computes the set of paired next-table ids that must go
// through the SQLite/MSSQL five-step rewrite instead of in-place ALTER
// (spec-equivalent §4.6.4): a structural change that adds/removes a
// foreign key, changes the primary key, or forces a NotCastable column
// recreation, plus transitive propagation to tables with an inbound FK
// when the dialect lacks can_redefine_tables_with_inbound_foreign_keys.
func (d *differ) redefineSet(pairs []tablePair) map[ir.ID]bool {
	set := map[ir.ID]bool{}
	if !d.dialectNeedsRedefine() {
		return set // Postgres/CockroachDB can ALTER everything in place
	}

	for _, t := range pairs {
		if t.PrevID == ir.NoID || t.NextID == ir.NoID {
			continue
		}
		if d.needsRedefine(t) {
			set[t.NextID] = true
		}
	}

	if d.fl.Differ.CanRedefineTablesWithInboundForeignKeys {
		return set // dialect can add/drop FKs on the referencing side in place
	}

	// Propagate to any table with an inbound FK pointing at a table
	// already in the redefine set, since recreating the referenced table
	// invalidates the constraint on the referencing side too.
	changed := true
	for changed {
		changed = false
		for _, t := range pairs {
			if t.NextID == ir.NoID || set[t.NextID] {
				continue
			}
			for _, fk := range d.next.Walk(t.NextID).ForeignKeys() {
				if set[fk.ReferencedTableID] {
					set[t.NextID] = true
					changed = true
					break
				}
			}
		}
	}
	return set
}

// dialectNeedsRedefine reports whether this dialect ever routes a table
// through RedefineTables at all. A dialect that can rename foreign keys
// and indexes in place (Postgres, CockroachDB) always has an ALTER TABLE
// path for every structural change this engine emits.
func (d *differ) dialectNeedsRedefine() bool {
	return !d.fl.Differ.CanRenameForeignKey
}

func (d *differ) needsRedefine(t tablePair) bool {
	addedFKs, removedFKs, _ := d.pairForeignKeys(t.PrevID, t.NextID)
	if len(addedFKs) > 0 || len(removedFKs) > 0 {
		return true
	}

	prevPK, hasPrev := d.primaryKeyShape(d.prev, t.PrevID)
	nextPK, hasNext := d.primaryKeyShape(d.next, t.NextID)
	if hasPrev != hasNext || (hasPrev && hasNext && !sameColumns(prevPK.cols, nextPK.cols)) {
		return true
	}

	nextByName := map[string]ir.Column{}
	for _, c := range d.next.Walk(t.NextID).Columns() {
		nextByName[c.Name] = c
	}
	for _, pc := range d.prev.Walk(t.PrevID).Columns() {
		nc, ok := nextByName[pc.Name]
		if !ok {
			continue
		}
		if !sameColumnType(pc.Type, nc.Type) && d.fl.Differ.ColumnTypeChange(pc.Type, nc.Type) == ir.NotCastable {
			return true
		}
	}
	return false
}

// redefineTableStep builds the RedefineTables step for one table,
// projecting every surviving next-schema column from the previous
// table's matching column by name. Because columns are paired by name
// only, ColumnCasts is always left empty: same-name columns need no
// projection expression since the INSERT ... SELECT can reference them
// directly, and a renamed column has no previous counterpart, so its
// data is not carried over.
func (d *differ) redefineTableStep(t tablePair) ir.MigrationStep {
	casts := map[ir.ID]string{}
	prevByName := map[string]ir.Column{}
	for _, c := range d.prev.Walk(t.PrevID).Columns() {
		prevByName[c.Name] = c
	}
	for _, nc := range d.next.Walk(t.NextID).Columns() {
		if pc, ok := prevByName[nc.Name]; ok && pc.Name != nc.Name {
			casts[nc.ID] = pc.Name
		}
	}
	rt := ir.RedefineTable{PreviousTableID: t.PrevID, NextTableID: t.NextID, ColumnCasts: casts}
	return ir.MigrationStep{Kind: ir.StepRedefineTables, RedefineTables: []ir.RedefineTable{rt}, Description: "redefine table " + t.Name}
}
