package differ

import (
	"sort"

	"github.com/lockforge/schemaengine/internal/ir"
)

// order applies the engine's final ordering pass: a stable sort by
// StepKind's natural numeric value, followed by one targeted
// permutation. A DropIndex step for a unique index replaced by a new
// primary key on the exact same columns (an AddPrimaryKey change entry)
// is moved to immediately follow that AlterTable step — spec §8.1's
// testable invariant, "DropIndex appears after AddPrimaryKey" — since
// the DBMS rejects dropping a still-relied-upon unique index before its
// replacement primary key exists.
func (d *differ) order(steps []ir.MigrationStep) []ir.MigrationStep {
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Kind < steps[j].Kind })
	return d.moveFollowingDropIndexes(steps)
}

func (d *differ) moveFollowingDropIndexes(steps []ir.MigrationStep) []ir.MigrationStep {
	for i := 0; i < len(steps); i++ {
		s := steps[i]
		if s.Kind != ir.StepAlterTable || s.AlterTable == nil || !addsPrimaryKey(s.AlterTable) {
			continue
		}
		pkColumns := newPrimaryKeyColumnNames(d.next, s.AlterTable.NextTableID)
		if pkColumns == nil {
			continue
		}
		for j := 0; j < i; j++ {
			drop := steps[j]
			if drop.Kind != ir.StepDropIndex {
				continue
			}
			idx, ok := d.prev.Index(drop.IndexID)
			if !ok || idx.TableID != s.AlterTable.PreviousTableID {
				continue
			}
			if !sameColumnNames(indexColumnNames(d.prev, idx.ID), pkColumns) {
				continue
			}
			without := append([]ir.MigrationStep{}, steps[:j]...)
			without = append(without, steps[j+1:]...)
			// i shifts down by one in without, since j < i.
			newI := i - 1
			moved := append([]ir.MigrationStep{}, without[:newI+1]...)
			moved = append(moved, drop)
			moved = append(moved, without[newI+1:]...)
			steps = moved
			break
		}
	}
	return steps
}

func addsPrimaryKey(at *ir.AlterTable) bool {
	for _, ch := range at.Changes {
		if ch.Kind == ir.ChangeAddPrimaryKey {
			return true
		}
	}
	return false
}

// newPrimaryKeyColumnNames returns the column names of tableID's primary
// key in schema, or nil if it has none. Names, not ids, since the
// dropped index being matched against lives in the other schema's
// independently id-numbered arenas.
func newPrimaryKeyColumnNames(schema *ir.SqlSchema, tableID ir.ID) []string {
	idx, ok := schema.Walk(tableID).PrimaryKey()
	if !ok {
		return nil
	}
	return indexColumnNames(schema, idx.ID)
}

func indexColumnNames(schema *ir.SqlSchema, indexID ir.ID) []string {
	cols := schema.IndexColumns(indexID)
	names := make([]string, len(cols))
	for i, ic := range cols {
		col, _ := schema.Column(ic.ColumnID)
		names[i] = col.Name
	}
	return names
}

func sameColumnNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sortedA := append([]string{}, a...)
	sortedB := append([]string{}, b...)
	sort.Strings(sortedA)
	sort.Strings(sortedB)
	for i := range sortedA {
		if sortedA[i] != sortedB[i] {
			return false
		}
	}
	return true
}
