package differ

import "github.com/lockforge/schemaengine/internal/ir"

// diffPairedTable builds every step for a table that exists on both
// sides: top-level foreign-key and index steps, plus one AlterTable
// step whose Changes list follows the fixed internal order of
// spec-equivalent §4.6.3 (FKs and index renames are top-level, not part
// of Changes, since TableChangeKind has no FK- or index-shaped variant).
func (d *differ) diffPairedTable(t tablePair) []ir.MigrationStep {
	var steps []ir.MigrationStep

	addedFKs, removedFKs, pairedFKs := d.pairForeignKeys(t.PrevID, t.NextID)
	for _, fk := range addedFKs {
		steps = append(steps, ir.MigrationStep{Kind: ir.StepAddForeignKey, ForeignKeyID: fk.ID, Description: "add foreign key " + fk.ConstraintName})
	}
	for _, fk := range removedFKs {
		steps = append(steps, ir.MigrationStep{Kind: ir.StepDropForeignKey, PreviousForeignKeyID: fk.ID, Description: "drop foreign key " + fk.ConstraintName})
	}
	for _, p := range pairedFKs {
		if p.prev.ConstraintName == p.next.ConstraintName {
			continue
		}
		if d.fl.Differ.HasUnnamedForeignKeys {
			continue // nothing to rename: the dialect never surfaced a stable name
		}
		if d.fl.Differ.CanRenameForeignKey {
			steps = append(steps, ir.MigrationStep{Kind: ir.StepRenameForeignKey, PreviousForeignKeyID: p.prev.ID, NextForeignKeyID: p.next.ID,
				Description: "rename foreign key " + p.prev.ConstraintName + " to " + p.next.ConstraintName})
		} else {
			steps = append(steps, ir.MigrationStep{Kind: ir.StepDropForeignKey, PreviousForeignKeyID: p.prev.ID})
			steps = append(steps, ir.MigrationStep{Kind: ir.StepAddForeignKey, ForeignKeyID: p.next.ID})
		}
	}

	addedIdx, removedIdx, pairedIdx := d.pairIndexes(t.PrevID, t.NextID)
	for _, idx := range removedIdx {
		if idx.Kind == ir.IndexPrimaryKey {
			continue // flows through DropPrimaryKey below
		}
		if d.fl.Differ.ShouldSkipFkIndexes && d.indexBacksAnyForeignKey(d.prev, idx, removedFKs) {
			continue
		}
		steps = append(steps, ir.MigrationStep{Kind: ir.StepDropIndex, IndexID: idx.ID, Description: "drop index " + idx.Name})
	}
	for _, idx := range addedIdx {
		if idx.Kind == ir.IndexPrimaryKey {
			continue // flows through AddPrimaryKey below
		}
		if d.fl.Differ.ShouldSkipIndexForNewTable != nil && d.fl.Differ.ShouldSkipIndexForNewTable(d.next, idx) {
			continue
		}
		steps = append(steps, ir.MigrationStep{Kind: ir.StepCreateIndex, IndexID: idx.ID, Description: "create index " + idx.Name})
	}
	for _, p := range pairedIdx {
		if p.prev.Name == p.next.Name {
			continue
		}
		if d.fl.Differ.CanRenameIndex {
			steps = append(steps, ir.MigrationStep{Kind: ir.StepRenameIndex, PreviousIndexID: p.prev.ID, NextIndexID: p.next.ID,
				Description: "rename index " + p.prev.Name + " to " + p.next.Name})
		} else {
			steps = append(steps, ir.MigrationStep{Kind: ir.StepRedefineIndex, PreviousIndexID: p.prev.ID, NextIndexID: p.next.ID,
				Description: "redefine index " + p.prev.Name})
		}
	}

	if d.fl.Differ.CanAlterPrimaryKeys {
		if prevPK, hasPrev := d.primaryKeyShape(d.prev, t.PrevID); hasPrev {
			if nextPK, hasNext := d.primaryKeyShape(d.next, t.NextID); !hasNext || !sameColumns(prevPK.cols, nextPK.cols) {
				steps = append(steps, ir.MigrationStep{Kind: ir.StepAlterPrimaryKey, PreviousPrimaryKeyTableID: t.PrevID, NextPrimaryKeyTableID: t.NextID})
			}
		} else if _, hasNext := d.primaryKeyShape(d.next, t.NextID); hasNext {
			steps = append(steps, ir.MigrationStep{Kind: ir.StepAlterPrimaryKey, PreviousPrimaryKeyTableID: t.PrevID, NextPrimaryKeyTableID: t.NextID})
		}
	}

	at := &ir.AlterTable{PreviousTableID: t.PrevID, NextTableID: t.NextID}
	if !d.fl.Differ.CanAlterPrimaryKeys {
		d.buildPrimaryKeyChanges(t, at)
	}
	d.buildColumnChanges(t, at)
	if len(at.Changes) > 0 {
		steps = append(steps, ir.MigrationStep{Kind: ir.StepAlterTable, AlterTable: at, Description: "alter table " + t.Name})
	}

	return steps
}

func (d *differ) indexBacksAnyForeignKey(schema *ir.SqlSchema, idx ir.Index, fks []ir.ForeignKey) bool {
	idxCols := columnNameSet(schema, schema.IndexColumns(idx.ID), func(ic ir.IndexColumn) ir.ID { return ic.ColumnID })
	for _, fk := range fks {
		fkCols := columnNameSet(schema, schema.ForeignKeyColumns(fk.ID), func(fc ir.ForeignKeyColumn) ir.ID { return fc.ConstrainedColumn })
		if setsEqual(idxCols, fkCols) {
			return true
		}
	}
	return false
}

func columnNameSet[T any](schema *ir.SqlSchema, items []T, id func(T) ir.ID) map[string]bool {
	out := map[string]bool{}
	for _, item := range items {
		if c, ok := schema.Column(id(item)); ok {
			out[c.Name] = true
		}
	}
	return out
}

func setsEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// pkShape is the ordered column-name list a table's primary key covers,
// plus its constraint name.
type pkShape struct {
	name string
	cols []string
}

func (d *differ) primaryKeyShape(schema *ir.SqlSchema, tableID ir.ID) (pkShape, bool) {
	idx, ok := schema.Walk(tableID).PrimaryKey()
	if !ok {
		return pkShape{}, false
	}
	var cols []string
	for _, ic := range schema.IndexColumns(idx.ID) {
		c, _ := schema.Column(ic.ColumnID)
		cols = append(cols, c.Name)
	}
	return pkShape{name: idx.Name, cols: cols}, true
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// buildPrimaryKeyChanges appends the DropPrimaryKey/RenamePrimaryKey
// entries (positions 5-6 of §4.6.3); AddPrimaryKey (position 10) is
// appended later by buildColumnChanges once any forced column
// recreation affecting PK columns is known.
func (d *differ) buildPrimaryKeyChanges(t tablePair, at *ir.AlterTable) {
	prevPK, hasPrev := d.primaryKeyShape(d.prev, t.PrevID)
	nextPK, hasNext := d.primaryKeyShape(d.next, t.NextID)

	switch {
	case hasPrev && !hasNext:
		at.Changes = append(at.Changes, ir.TableChange{Kind: ir.ChangeDropPrimaryKey})
	case hasPrev && hasNext && !sameColumns(prevPK.cols, nextPK.cols):
		at.Changes = append(at.Changes, ir.TableChange{Kind: ir.ChangeDropPrimaryKey})
	case hasPrev && hasNext && prevPK.name != nextPK.name:
		at.Changes = append(at.Changes, ir.TableChange{Kind: ir.ChangeRenamePrimaryKey})
	}
}

// buildColumnChanges appends DropColumn, AddColumn, AlterColumn /
// DropAndRecreateColumn, and finally AddPrimaryKey (positions 7-10).
func (d *differ) buildColumnChanges(t tablePair, at *ir.AlterTable) {
	prevCols := d.prev.Walk(t.PrevID).Columns()
	nextCols := d.next.Walk(t.NextID).Columns()

	nextByName := map[string]ir.Column{}
	for _, c := range nextCols {
		nextByName[c.Name] = c
	}
	prevByName := map[string]ir.Column{}
	for _, c := range prevCols {
		prevByName[c.Name] = c
	}

	pkColumnsChanged := false
	if len(at.Changes) > 0 && at.Changes[0].Kind == ir.ChangeDropPrimaryKey {
		pkColumnsChanged = true
	}

	var dropped, added []ir.TableChange
	for _, c := range prevCols {
		if _, ok := nextByName[c.Name]; !ok {
			dropped = append(dropped, ir.TableChange{Kind: ir.ChangeDropColumn, PreviousColumnID: c.ID})
		}
	}
	for _, c := range nextCols {
		if _, ok := prevByName[c.Name]; !ok {
			added = append(added, ir.TableChange{Kind: ir.ChangeAddColumn, NextColumnID: c.ID, HasVirtualDefault: needsVirtualDefault(d.next, c)})
		}
	}
	at.Changes = append(at.Changes, dropped...)
	at.Changes = append(at.Changes, added...)

	fkColumns := d.foreignKeyColumnNames(t.NextID)

	for _, pc := range prevCols {
		nc, ok := nextByName[pc.Name]
		if !ok {
			continue
		}
		inPK := d.columnInPrimaryKeyShape(nc.Name, t)
		forceRecreate := inPK && d.fl.Differ.ShouldRecreateThePrimaryKeyOnColumnRecreate
		if !forceRecreate && fkColumns[nc.Name] &&
			pc.Type.Arity != ir.ArityRequired && nc.Type.Arity == ir.ArityRequired &&
			!d.fl.Differ.CanCopeWithForeignKeyColumnBecomingNonNullable {
			forceRecreate = true
		}
		change, recreated := d.diffColumn(pc, nc, forceRecreate)
		if change == nil {
			continue
		}
		at.Changes = append(at.Changes, *change)
		if recreated && inPK {
			pkColumnsChanged = true
		}
	}

	if _, hasNext := d.primaryKeyShape(d.next, t.NextID); hasNext && pkColumnsChanged && !d.fl.Differ.CanAlterPrimaryKeys {
		at.Changes = append(at.Changes, ir.TableChange{Kind: ir.ChangeAddPrimaryKey})
	}
}

// foreignKeyColumnNames collects every column name participating in any
// of the table's (next-schema) outbound foreign keys.
func (d *differ) foreignKeyColumnNames(tableID ir.ID) map[string]bool {
	out := map[string]bool{}
	for _, fk := range d.next.Walk(tableID).ForeignKeys() {
		for _, fc := range d.next.ForeignKeyColumns(fk.ID) {
			if c, ok := d.next.Column(fc.ConstrainedColumn); ok {
				out[c.Name] = true
			}
		}
	}
	return out
}

func (d *differ) columnInPrimaryKeyShape(name string, t tablePair) bool {
	pk, ok := d.primaryKeyShape(d.next, t.NextID)
	if !ok {
		return false
	}
	for _, c := range pk.cols {
		if c == name {
			return true
		}
	}
	return false
}

// needsVirtualDefault reports whether a newly added column's default is
// computed by the engine at insert time rather than embeddable as a
// literal SQL DEFAULT clause (spec-equivalent §4.6.3): for a required
// column, a sequence, db-generated or auto default, or no default at all
// on a non-autoincrement column. Literal and now() defaults are
// embeddable and do not count.
func needsVirtualDefault(schema *ir.SqlSchema, c ir.Column) bool {
	if c.Type.Arity != ir.ArityRequired {
		return false
	}
	dv, ok := schema.DefaultFor(c.ID)
	if !ok {
		return !c.AutoIncrement
	}
	return dv.Kind == ir.DefaultSequence || dv.Kind == ir.DefaultDbGenerated || dv.Kind == ir.DefaultAuto
}

// diffColumn compares one paired column and returns the TableChange to
// emit (nil if unchanged), plus whether the column would be physically
// recreated (used to decide whether a PK covering it must be rebuilt).
func (d *differ) diffColumn(prev, next ir.Column, forceRecreate bool) (*ir.TableChange, bool) {
	var bits ir.ColumnChangeBit
	typeClass := d.fl.Differ.ColumnTypeChange(prev.Type, next.Type)
	typeChanged := !sameColumnType(prev.Type, next.Type)
	if typeChanged {
		bits |= ir.ChangeTypeChanged
	}
	if prev.Type.Arity != next.Type.Arity {
		bits |= ir.ChangeArity
		if prev.Type.Arity != ir.ArityRequired && next.Type.Arity == ir.ArityRequired {
			bits |= ir.ChangeNotNullAdded
		}
		if prev.Type.Arity == ir.ArityRequired && next.Type.Arity != ir.ArityRequired {
			bits |= ir.ChangeNotNullRemoved
		}
	}
	if prev.AutoIncrement != next.AutoIncrement {
		bits |= ir.ChangeAutoIncrementChanged
	}
	if prev.Description != next.Description {
		bits |= ir.ChangeDescriptionChanged
	}
	prevDefault, prevHasDefault := d.prev.DefaultFor(prev.ID)
	nextDefault, nextHasDefault := d.next.DefaultFor(next.ID)
	if prevHasDefault != nextHasDefault || (prevHasDefault && nextHasDefault && !prevDefault.Equal(nextDefault)) {
		bits |= ir.ChangeDefaultChanged
	}

	if bits == 0 {
		return nil, false
	}

	recreate := typeChanged && typeClass == ir.NotCastable
	if !recreate && (next.Type.Arity == ir.ArityList) != (prev.Type.Arity == ir.ArityList) {
		recreate = true // list-arity transitions have no safe in-place cast path
	}
	if !recreate && forceRecreate {
		recreate = true
	}

	if recreate {
		return &ir.TableChange{
			Kind: ir.ChangeDropAndRecreateColumn, PreviousColumnID: prev.ID, NextColumnID: next.ID,
			Changes: bits, TypeChange: typeClass,
		}, true
	}
	return &ir.TableChange{
		Kind: ir.ChangeAlterColumn, PreviousColumnID: prev.ID, NextColumnID: next.ID,
		Changes: bits, TypeChange: typeClass,
	}, false
}

func sameColumnType(a, b ir.ColumnType) bool {
	if a.Family != b.Family || a.FullDataType != b.FullDataType || a.Arity != b.Arity {
		return false
	}
	if (a.Native == nil) != (b.Native == nil) {
		return false
	}
	if a.Native == nil {
		return true
	}
	if a.Native.Name != b.Native.Name || len(a.Native.Args) != len(b.Native.Args) {
		return false
	}
	for i := range a.Native.Args {
		if a.Native.Args[i] != b.Native.Args[i] {
			return false
		}
	}
	return true
}
