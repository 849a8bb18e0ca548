package checker

import (
	"context"
	"testing"

	"github.com/lockforge/schemaengine/internal/flavour"
	"github.com/lockforge/schemaengine/internal/ir"
	renderpg "github.com/lockforge/schemaengine/internal/renderer/postgres"
)

func fixtureSchemas() (*ir.SqlSchema, *ir.SqlSchema) {
	prev := ir.New(ir.DialectPostgres)
	prev.Tables = []ir.Table{{ID: 0, Name: "users"}}
	prev.Columns = []ir.Column{
		{ID: 0, TableID: 0, Name: "id", Type: ir.ColumnType{Family: ir.FamilyInt, Arity: ir.ArityRequired, FullDataType: "integer"}},
		{ID: 1, TableID: 0, Name: "email", Type: ir.ColumnType{Family: ir.FamilyString, Arity: ir.ArityNullable, FullDataType: "text"}},
	}

	next := ir.New(ir.DialectPostgres)
	next.Tables = []ir.Table{{ID: 0, Name: "users"}}
	next.Columns = []ir.Column{
		{ID: 0, TableID: 0, Name: "id", Type: ir.ColumnType{Family: ir.FamilyInt, Arity: ir.ArityRequired, FullDataType: "integer"}},
		{ID: 1, TableID: 0, Name: "email", Type: ir.ColumnType{Family: ir.FamilyString, Arity: ir.ArityRequired, FullDataType: "text"}},
	}
	return prev, next
}

func fixtureFlavour() *flavour.Flavour {
	return &flavour.Flavour{
		Dialect:  ir.DialectPostgres,
		Renderer: &renderpg.Renderer{},
	}
}

func TestChecker_DropTable_NoSuppression(t *testing.T) {
	prev, next := fixtureSchemas()
	c := New(prev, next, fixtureFlavour(), nil)

	steps := []ir.MigrationStep{{Kind: ir.StepDropTable, TableID: 0, Description: "drop table users"}}
	diags, err := c.Check(context.Background(), steps)
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if len(diags) != 1 {
		t.Fatalf("expected one diagnostic, got %d", len(diags))
	}
	if diags[0].Severity != Warning {
		t.Errorf("Severity = %v, want %v (no row-count hook means conservative non-empty assumption)", diags[0].Severity, Warning)
	}
	if diags[0].Lock == nil {
		t.Error("expected lock impact attached to a non-Safe diagnostic")
	}
}

func TestChecker_AlterTable_NotNullAddedWithoutDefault(t *testing.T) {
	prev, next := fixtureSchemas()
	c := New(prev, next, fixtureFlavour(), nil)

	at := &ir.AlterTable{
		PreviousTableID: 0,
		NextTableID:     0,
		Changes: []ir.TableChange{
			{Kind: ir.ChangeAlterColumn, PreviousColumnID: 1, NextColumnID: 1, Changes: ir.ChangeNotNullAdded},
		},
	}
	steps := []ir.MigrationStep{{Kind: ir.StepAlterTable, AlterTable: at, Description: "alter table users"}}

	diags, err := c.Check(context.Background(), steps)
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if diags[0].Severity != Unexecutable {
		t.Errorf("Severity = %v, want %v", diags[0].Severity, Unexecutable)
	}
}

func TestChecker_SafeSteps(t *testing.T) {
	prev, next := fixtureSchemas()
	c := New(prev, next, fixtureFlavour(), nil)

	steps := []ir.MigrationStep{
		{Kind: ir.StepCreateTable, TableID: 0, Description: "create table users"},
		{Kind: ir.StepCreateIndex, IndexID: 0, Description: "create index"},
		{Kind: ir.StepDropIndex, IndexID: 0, Description: "drop index"},
	}
	diags, err := c.Check(context.Background(), steps)
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	for i, d := range diags {
		if d.Severity != Safe {
			t.Errorf("step %d: Severity = %v, want Safe", i, d.Severity)
		}
		if d.Lock != nil {
			t.Errorf("step %d: expected no lock impact on a Safe diagnostic", i)
		}
	}
}

// Row-count suppression against a live *sql.DB is exercised alongside
// internal/migrate's integration tests, once a real shadow-DB connection
// exists to drive CountRows; the nil-db fast path above already covers
// the conservative "assume non-empty" behavior this hook falls back to.
