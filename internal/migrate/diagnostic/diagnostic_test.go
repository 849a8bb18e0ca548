package diagnostic

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/lockforge/schemaengine/internal/ir"
	"github.com/lockforge/schemaengine/internal/migrate/history"
	"github.com/lockforge/schemaengine/internal/migrate/state"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := state.EnsureTable(context.Background(), db, ir.DialectSQLite); err != nil {
		t.Fatal(err)
	}
	return db
}

func writeMigration(t *testing.T, dir, name, sql string) history.Migration {
	t.Helper()
	m, err := history.Write(dir, name, sql)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestDiagnose_NoHistoryNoState_CreatesMigration(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()

	action, err := Diagnose(context.Background(), Input{DB: db, Dialect: ir.DialectSQLite, MigrationsDir: dir})
	if err != nil {
		t.Fatalf("Diagnose() error: %v", err)
	}
	if action.Kind != CreateMigration {
		t.Errorf("Kind = %v, want CreateMigration", action.Kind)
	}
}

func TestDiagnose_AppliedButMissingFromDisk_Resets(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	ctx := context.Background()

	if err := state.MarkApplied(ctx, db, ir.DialectSQLite, "id-1", "20240101000000_init", "checksum1"); err != nil {
		t.Fatal(err)
	}

	action, err := Diagnose(ctx, Input{DB: db, Dialect: ir.DialectSQLite, MigrationsDir: dir})
	if err != nil {
		t.Fatalf("Diagnose() error: %v", err)
	}
	if action.Kind != Reset {
		t.Fatalf("Kind = %v, want Reset", action.Kind)
	}
	if action.Reason == "" {
		t.Error("expected a non-empty reason")
	}
}

func TestDiagnose_ChecksumMismatch_Resets(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	ctx := context.Background()

	m := writeMigration(t, dir, "20240101000000_init", "CREATE TABLE a (id int);")
	if err := state.MarkApplied(ctx, db, ir.DialectSQLite, "id-1", m.Name, "not-the-real-checksum"); err != nil {
		t.Fatal(err)
	}

	action, err := Diagnose(ctx, Input{DB: db, Dialect: ir.DialectSQLite, MigrationsDir: dir})
	if err != nil {
		t.Fatalf("Diagnose() error: %v", err)
	}
	if action.Kind != Reset {
		t.Fatalf("Kind = %v, want Reset", action.Kind)
	}
}

func TestDiagnose_FailedMigrationRow_Resets(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	ctx := context.Background()

	m := writeMigration(t, dir, "20240101000000_init", "CREATE TABLE a (id int);")
	if err := state.InsertStarted(ctx, db, ir.DialectSQLite, "id-1", m.Name, m.Checksum); err != nil {
		t.Fatal(err)
	}

	action, err := Diagnose(ctx, Input{DB: db, Dialect: ir.DialectSQLite, MigrationsDir: dir})
	if err != nil {
		t.Fatalf("Diagnose() error: %v", err)
	}
	if action.Kind != Reset {
		t.Fatalf("Kind = %v, want Reset", action.Kind)
	}
}

func TestDiagnose_HistoryDivergesAfterAppliedPrefix_Resets(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	ctx := context.Background()

	first := writeMigration(t, dir, "20240101000000_first", "CREATE TABLE a (id int);")
	if err := state.MarkApplied(ctx, db, ir.DialectSQLite, "id-1", first.Name, first.Checksum); err != nil {
		t.Fatal(err)
	}
	if err := state.MarkApplied(ctx, db, ir.DialectSQLite, "id-2", "20240102000000_second_in_db_only", "deadbeef"); err != nil {
		t.Fatal(err)
	}

	action, err := Diagnose(ctx, Input{DB: db, Dialect: ir.DialectSQLite, MigrationsDir: dir})
	if err != nil {
		t.Fatalf("Diagnose() error: %v", err)
	}
	if action.Kind != Reset {
		t.Fatalf("Kind = %v, want Reset", action.Kind)
	}
}

func TestDiagnose_AppliedMatchesDiskExactly_CreatesMigration(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	ctx := context.Background()

	m := writeMigration(t, dir, "20240101000000_init", "CREATE TABLE a (id int);")
	if err := state.MarkApplied(ctx, db, ir.DialectSQLite, "id-1", m.Name, m.Checksum); err != nil {
		t.Fatal(err)
	}

	action, err := Diagnose(ctx, Input{DB: db, Dialect: ir.DialectSQLite, MigrationsDir: dir})
	if err != nil {
		t.Fatalf("Diagnose() error: %v", err)
	}
	if action.Kind != CreateMigration {
		t.Errorf("Kind = %v, want CreateMigration (no drift detector wired, steps 1-4 all pass)", action.Kind)
	}
}

func TestDiagnose_UnpendableMigrationsDirDoesNotPanic(t *testing.T) {
	db := openTestDB(t)
	_, err := Diagnose(context.Background(), Input{DB: db, Dialect: ir.DialectSQLite, MigrationsDir: filepath.Join(t.TempDir(), "nested", "missing")})
	if err != nil {
		t.Fatalf("Diagnose() error: %v", err)
	}
}
