package differ

import (
	"testing"

	"github.com/lockforge/schemaengine/internal/ir"
)

func fixtureDropIndexAndNewPK(sameColumns bool) (*differ, []ir.MigrationStep) {
	prev := ir.New(ir.DialectSQLite)
	prev.Tables = []ir.Table{{ID: 0, Name: "User"}}
	prev.Columns = []ir.Column{{ID: 0, TableID: 0, Name: "email"}}
	prev.Indexes = []ir.Index{{ID: 0, TableID: 0, Kind: ir.IndexUnique, Name: "User_email_key"}}
	prev.IndexColumns = []ir.IndexColumn{{IndexID: 0, ColumnID: 0}}

	next := ir.New(ir.DialectSQLite)
	next.Tables = []ir.Table{{ID: 5, Name: "User"}}
	pkColumnName := "email"
	if !sameColumns {
		pkColumnName = "id"
	}
	next.Columns = []ir.Column{{ID: 7, TableID: 5, Name: pkColumnName}}
	next.Indexes = []ir.Index{{ID: 3, TableID: 5, Kind: ir.IndexPrimaryKey, Name: "User_pkey"}}
	next.IndexColumns = []ir.IndexColumn{{IndexID: 3, ColumnID: 7}}

	d := &differ{prev: prev, next: next}
	steps := []ir.MigrationStep{
		{Kind: ir.StepDropIndex, IndexID: 0, Description: "drop index User_email_key"},
		{Kind: ir.StepAlterTable, AlterTable: &ir.AlterTable{
			PreviousTableID: 0,
			NextTableID:     5,
			Changes:         []ir.TableChange{{Kind: ir.ChangeAddPrimaryKey}},
		}},
	}
	return d, steps
}

func TestMoveFollowingDropIndexes_MovesDropAfterMatchingAddPrimaryKey(t *testing.T) {
	d, steps := fixtureDropIndexAndNewPK(true)

	got := d.moveFollowingDropIndexes(steps)
	if len(got) != 2 || got[0].Kind != ir.StepAlterTable || got[1].Kind != ir.StepDropIndex {
		t.Fatalf("expected [AlterTable, DropIndex], got %+v", got)
	}
}

func TestMoveFollowingDropIndexes_LeavesOrderWhenColumnsDiffer(t *testing.T) {
	d, steps := fixtureDropIndexAndNewPK(false)

	got := d.moveFollowingDropIndexes(steps)
	if len(got) != 2 || got[0].Kind != ir.StepDropIndex || got[1].Kind != ir.StepAlterTable {
		t.Fatalf("expected the original [DropIndex, AlterTable] order preserved, got %+v", got)
	}
}

func TestSameColumnNames(t *testing.T) {
	if !sameColumnNames([]string{"a", "b"}, []string{"b", "a"}) {
		t.Error("expected order-independent match")
	}
	if sameColumnNames([]string{"a"}, []string{"a", "b"}) {
		t.Error("expected length mismatch to report false")
	}
}
