package state

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/lockforge/schemaengine/internal/ir"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestLoad_NoTableReturnsNilNoError(t *testing.T) {
	db := openTestDB(t)
	rows, err := Load(context.Background(), db, ir.DialectSQLite)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if rows != nil {
		t.Errorf("expected nil rows before the table exists, got %v", rows)
	}
}

func TestEnsureTable_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := EnsureTable(ctx, db, ir.DialectSQLite); err != nil {
		t.Fatalf("EnsureTable() error: %v", err)
	}
	if err := EnsureTable(ctx, db, ir.DialectSQLite); err != nil {
		t.Fatalf("EnsureTable() second call error: %v", err)
	}
}

func TestInsertStarted_MarkFinished_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := EnsureTable(ctx, db, ir.DialectSQLite); err != nil {
		t.Fatal(err)
	}

	if err := InsertStarted(ctx, db, ir.DialectSQLite, "id-1", "20240101000000_init", "deadbeef"); err != nil {
		t.Fatalf("InsertStarted() error: %v", err)
	}

	rows, err := Load(ctx, db, ir.DialectSQLite)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if !rows[0].IsFailed() {
		t.Error("expected a just-started row to look failed (finished_at and rolled_back_at both NULL)")
	}
	if rows[0].IsApplied() {
		t.Error("a just-started row must not look applied")
	}

	if err := MarkFinished(ctx, db, ir.DialectSQLite, "id-1", 3); err != nil {
		t.Fatalf("MarkFinished() error: %v", err)
	}

	rows, err = Load(ctx, db, ir.DialectSQLite)
	if err != nil {
		t.Fatal(err)
	}
	if !rows[0].IsApplied() {
		t.Error("expected the row to report applied after MarkFinished")
	}
	if rows[0].AppliedStepsCount != 3 {
		t.Errorf("AppliedStepsCount = %d, want 3", rows[0].AppliedStepsCount)
	}
}

func TestRecordLogs_LeavesRowFailed(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := EnsureTable(ctx, db, ir.DialectSQLite); err != nil {
		t.Fatal(err)
	}
	if err := InsertStarted(ctx, db, ir.DialectSQLite, "id-2", "20240101000000_bad", "abc123"); err != nil {
		t.Fatal(err)
	}
	if err := RecordLogs(ctx, db, ir.DialectSQLite, "id-2", "syntax error near FOO"); err != nil {
		t.Fatalf("RecordLogs() error: %v", err)
	}

	rows, err := Load(ctx, db, ir.DialectSQLite)
	if err != nil {
		t.Fatal(err)
	}
	if !rows[0].IsFailed() {
		t.Error("expected the row to still report failed after RecordLogs")
	}
	if rows[0].Logs == nil || *rows[0].Logs != "syntax error near FOO" {
		t.Errorf("Logs = %v, want \"syntax error near FOO\"", rows[0].Logs)
	}
}

func TestMarkRolledBack_NoLongerFailed(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := EnsureTable(ctx, db, ir.DialectSQLite); err != nil {
		t.Fatal(err)
	}
	if err := InsertStarted(ctx, db, ir.DialectSQLite, "id-3", "20240101000000_bad", "abc123"); err != nil {
		t.Fatal(err)
	}
	if err := MarkRolledBack(ctx, db, ir.DialectSQLite, "id-3"); err != nil {
		t.Fatalf("MarkRolledBack() error: %v", err)
	}

	rows, err := Load(ctx, db, ir.DialectSQLite)
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].IsFailed() {
		t.Error("a rolled-back row must not report failed")
	}
	if rows[0].IsApplied() {
		t.Error("a rolled-back row must not report applied either")
	}
}

func TestMarkApplied_RecordsAppliedRowDirectly(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := EnsureTable(ctx, db, ir.DialectSQLite); err != nil {
		t.Fatal(err)
	}
	if err := MarkApplied(ctx, db, ir.DialectSQLite, "id-4", "20240101000000_baseline", "cafef00d"); err != nil {
		t.Fatalf("MarkApplied() error: %v", err)
	}

	rows, err := Load(ctx, db, ir.DialectSQLite)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || !rows[0].IsApplied() {
		t.Fatalf("expected one applied row, got %+v", rows)
	}
}
