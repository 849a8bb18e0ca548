package reset

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/lockforge/schemaengine/internal/flavour"
	_ "github.com/lockforge/schemaengine/internal/flavour/register"
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

func sqliteFlavour(t *testing.T) *flavour.Flavour {
	t.Helper()
	fl, ok := flavour.Get(ir.DialectSQLite)
	if !ok {
		t.Fatal("sqlite flavour not registered")
	}
	return fl
}

func TestBestEffortReset_DropsExistingTables(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)`); err != nil {
		t.Fatal(err)
	}

	if err := BestEffortReset(ctx, db, sqliteFlavour(t), nil); err != nil {
		t.Fatalf("BestEffortReset() error: %v", err)
	}

	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='widgets'`).Scan(&count)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("expected widgets to be dropped, sqlite_master still reports %d", count)
	}
}

func TestBestEffortReset_EmptyDatabaseIsNoop(t *testing.T) {
	db := openTestDB(t)
	if err := BestEffortReset(context.Background(), db, sqliteFlavour(t), nil); err != nil {
		t.Fatalf("BestEffortReset() on an empty database should be a no-op, got error: %v", err)
	}
}

func TestReset_FallsBackToBestEffortForSQLite(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `CREATE TABLE gadgets (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatal(err)
	}

	if err := Reset(ctx, db, sqliteFlavour(t), nil); err != nil {
		t.Fatalf("Reset() error: %v", err)
	}

	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='gadgets'`).Scan(&count)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("expected gadgets to be dropped, got count %d", count)
	}
}
