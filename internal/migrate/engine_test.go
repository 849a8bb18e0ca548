package migrate

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	_ "github.com/lockforge/schemaengine/internal/flavour/register"
	"github.com/lockforge/schemaengine/internal/ir"
)

func openSQLite(ctx context.Context, connString string) (*sql.DB, error) {
	return sql.Open("sqlite", connString)
}

func TestEngine_RequiresWithParamsBeforeConnect(t *testing.T) {
	e := New()
	if err := e.Connect(context.Background(), openSQLite); err == nil {
		t.Error("expected Connect before WithParams to fail")
	}
}

func TestEngine_RejectsUnregisteredDialect(t *testing.T) {
	e := New()
	if err := e.WithParams(Params{Dialect: ir.DialectMongoDB}); err == nil {
		t.Error("expected WithParams to reject an unregistered dialect")
	}
}

func TestEngine_ConnectThenClose(t *testing.T) {
	e := New()
	if err := e.WithParams(Params{Dialect: ir.DialectSQLite, ConnString: ":memory:", DisableAdvisoryLock: true}); err != nil {
		t.Fatalf("WithParams() error: %v", err)
	}
	if err := e.Connect(context.Background(), openSQLite); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if e.DB() == nil {
		t.Error("expected DB() to return a live connection once connected")
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if e.DB() != nil {
		t.Error("expected DB() to return nil after Close()")
	}
}

func TestEngine_MethodsRequireConnection(t *testing.T) {
	e := New()
	if err := e.WithParams(Params{Dialect: ir.DialectSQLite, ConnString: ":memory:"}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.ApplyMigrations(context.Background()); err == nil {
		t.Error("expected ApplyMigrations to require a connection")
	}
	if err := e.Reset(context.Background()); err == nil {
		t.Error("expected Reset to require a connection")
	}
}

func TestEngine_ApplyMigrations_EmptyHistory(t *testing.T) {
	e := New()
	if err := e.WithParams(Params{
		Dialect:             ir.DialectSQLite,
		ConnString:          ":memory:",
		MigrationsDir:       t.TempDir(),
		DisableAdvisoryLock: true,
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.Connect(context.Background(), openSQLite); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = e.Close() }()

	result, err := e.ApplyMigrations(context.Background())
	if err != nil {
		t.Fatalf("ApplyMigrations() error: %v", err)
	}
	if len(result.Applied) != 0 {
		t.Errorf("expected no migrations applied, got %v", result.Applied)
	}
}
