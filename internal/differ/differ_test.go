package differ

import (
	"testing"

	"github.com/lockforge/schemaengine/internal/flavour"
	_ "github.com/lockforge/schemaengine/internal/flavour/register"
	"github.com/lockforge/schemaengine/internal/ir"
)

func sqliteFlavourForTest(t *testing.T) *flavour.Flavour {
	t.Helper()
	fl, ok := flavour.Get(ir.DialectSQLite)
	if !ok {
		t.Fatal("sqlite flavour not registered")
	}
	return fl
}

func hasStep(steps []ir.MigrationStep, kind ir.StepKind) bool {
	for _, s := range steps {
		if s.Kind == kind {
			return true
		}
	}
	return false
}

func TestDiff_NewTableProducesCreateTable(t *testing.T) {
	prev := ir.New(ir.DialectSQLite)

	next := ir.New(ir.DialectSQLite)
	next.Tables = []ir.Table{{ID: 0, Name: "users"}}
	next.Columns = []ir.Column{
		{ID: 0, TableID: 0, Name: "id", Type: ir.ColumnType{Family: ir.FamilyInt, Arity: ir.ArityRequired, FullDataType: "integer"}},
	}

	steps := Diff(prev, next, sqliteFlavourForTest(t))
	if !hasStep(steps, ir.StepCreateTable) {
		t.Errorf("expected a CreateTable step, got %+v", steps)
	}
}

func TestDiff_RemovedTableProducesDropTable(t *testing.T) {
	prev := ir.New(ir.DialectSQLite)
	prev.Tables = []ir.Table{{ID: 0, Name: "users"}}

	next := ir.New(ir.DialectSQLite)

	steps := Diff(prev, next, sqliteFlavourForTest(t))
	if !hasStep(steps, ir.StepDropTable) {
		t.Errorf("expected a DropTable step, got %+v", steps)
	}
}

func TestDiff_IdenticalSchemasProduceNoSteps(t *testing.T) {
	prev := ir.New(ir.DialectSQLite)
	prev.Tables = []ir.Table{{ID: 0, Name: "users"}}
	prev.Columns = []ir.Column{
		{ID: 0, TableID: 0, Name: "id", Type: ir.ColumnType{Family: ir.FamilyInt, Arity: ir.ArityRequired, FullDataType: "integer"}},
	}
	next := ir.New(ir.DialectSQLite)
	next.Tables = []ir.Table{{ID: 0, Name: "users"}}
	next.Columns = []ir.Column{
		{ID: 0, TableID: 0, Name: "id", Type: ir.ColumnType{Family: ir.FamilyInt, Arity: ir.ArityRequired, FullDataType: "integer"}},
	}

	steps := Diff(prev, next, sqliteFlavourForTest(t))
	if len(steps) != 0 {
		t.Errorf("expected no steps for identical schemas, got %+v", steps)
	}
}

func TestDiff_NewNamespaceProducesCreateSchema(t *testing.T) {
	prev := ir.New(ir.DialectPostgres)

	next := ir.New(ir.DialectPostgres)
	next.Namespaces = []ir.Namespace{{ID: 0, Name: "billing"}}

	steps := Diff(prev, next, mustPostgresFlavour(t))
	if !hasStep(steps, ir.StepCreateSchema) {
		t.Errorf("expected a CreateSchema step, got %+v", steps)
	}
}

func mustPostgresFlavour(t *testing.T) *flavour.Flavour {
	t.Helper()
	fl, ok := flavour.Get(ir.DialectPostgres)
	if !ok {
		t.Fatal("postgres flavour not registered")
	}
	return fl
}

func TestPairTables_MatchesByNameAndNamespace(t *testing.T) {
	prev := ir.New(ir.DialectSQLite)
	prev.Tables = []ir.Table{{ID: 0, Name: "users"}, {ID: 1, Name: "old_only"}}
	next := ir.New(ir.DialectSQLite)
	next.Tables = []ir.Table{{ID: 0, Name: "users"}, {ID: 1, Name: "new_only"}}

	d := &differ{prev: prev, next: next, fl: sqliteFlavourForTest(t)}
	pairs := d.pairTables()

	var sawMatched, sawPrevOnly, sawNextOnly bool
	for _, p := range pairs {
		switch {
		case p.Name == "users":
			if p.PrevID == ir.NoID || p.NextID == ir.NoID {
				t.Errorf("expected users to be paired on both sides, got %+v", p)
			}
			sawMatched = true
		case p.Name == "old_only":
			if p.NextID != ir.NoID {
				t.Errorf("expected old_only to have no next side, got %+v", p)
			}
			sawPrevOnly = true
		case p.Name == "new_only":
			if p.PrevID != ir.NoID {
				t.Errorf("expected new_only to have no prev side, got %+v", p)
			}
			sawNextOnly = true
		}
	}
	if !sawMatched || !sawPrevOnly || !sawNextOnly {
		t.Errorf("pairTables() missing expected pairs: %+v", pairs)
	}
}

func TestAddsPrimaryKey(t *testing.T) {
	at := &ir.AlterTable{Changes: []ir.TableChange{{Kind: ir.ChangeAddPrimaryKey}}}
	if !addsPrimaryKey(at) {
		t.Error("expected addsPrimaryKey to detect ChangeAddPrimaryKey")
	}
	at2 := &ir.AlterTable{Changes: []ir.TableChange{{Kind: ir.ChangeNotNullAdded}}}
	if addsPrimaryKey(at2) {
		t.Error("expected addsPrimaryKey to be false without a ChangeAddPrimaryKey entry")
	}
}
