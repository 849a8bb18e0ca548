package register

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/lockforge/schemaengine/internal/flavour"
	"github.com/lockforge/schemaengine/internal/ir"
)

func TestInit_RegistersAllDialects(t *testing.T) {
	for _, d := range []ir.Dialect{
		ir.DialectPostgres, ir.DialectCockroach, ir.DialectSQLite,
		ir.DialectMySQL, ir.DialectMariaDB, ir.DialectSQLServer,
	} {
		if _, ok := flavour.Get(d); !ok {
			t.Errorf("dialect %v not registered", d)
		}
	}
	if _, ok := flavour.Get(ir.DialectMongoDB); ok {
		t.Error("MongoDB should not be registered, no flavour wired for it")
	}
}

func TestPostgresColumnTypeChange(t *testing.T) {
	cases := []struct {
		name string
		prev ir.ColumnType
		next ir.ColumnType
		want ir.ColumnTypeChangeClass
	}{
		{"same family", ir.ColumnType{Family: ir.FamilyInt}, ir.ColumnType{Family: ir.FamilyInt}, ir.SafeCast},
		{"int widens to bigint", ir.ColumnType{Family: ir.FamilyInt}, ir.ColumnType{Family: ir.FamilyBigInt}, ir.SafeCast},
		{"string to string", ir.ColumnType{Family: ir.FamilyString}, ir.ColumnType{Family: ir.FamilyString}, ir.SafeCast},
		{"int to bool not castable", ir.ColumnType{Family: ir.FamilyInt}, ir.ColumnType{Family: ir.FamilyBoolean}, ir.NotCastable},
		{
			"int widens to text",
			ir.ColumnType{Family: ir.FamilyInt},
			ir.ColumnType{Family: ir.FamilyString, FullDataType: "text"},
			ir.RiskyCast,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := postgresColumnTypeChange(tc.prev, tc.next); got != tc.want {
				t.Errorf("postgresColumnTypeChange() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSqliteColumnTypeChange(t *testing.T) {
	if got := sqliteColumnTypeChange(ir.ColumnType{Family: ir.FamilyInt}, ir.ColumnType{Family: ir.FamilyInt}); got != ir.SafeCast {
		t.Errorf("same family = %v, want SafeCast", got)
	}
	if got := sqliteColumnTypeChange(ir.ColumnType{Family: ir.FamilyInt}, ir.ColumnType{Family: ir.FamilyString}); got != ir.NotCastable {
		t.Errorf("family change = %v, want NotCastable (SQLite has no USING cast)", got)
	}
}

func TestQuoteIdent(t *testing.T) {
	if got := quoteIdent("users"); got != `"users"` {
		t.Errorf("quoteIdent(%q) = %q", "users", got)
	}
	if got := quoteIdent(`weird"name`); got != `"weird""name"` {
		t.Errorf("quoteIdent with embedded quote = %q", got)
	}
}

func TestSqliteCountRows(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `CREATE TABLE widgets (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO widgets (id) VALUES (1), (2), (3)`); err != nil {
		t.Fatal(err)
	}

	n, err := sqliteCountRows(ctx, db, "", "widgets")
	if err != nil {
		t.Fatalf("sqliteCountRows() error: %v", err)
	}
	if n != 3 {
		t.Errorf("sqliteCountRows() = %d, want 3", n)
	}
}

func TestWidensToString(t *testing.T) {
	if !widensToString(ir.ColumnType{Family: ir.FamilyString, FullDataType: "text"}) {
		t.Error("expected text column to widen to string")
	}
	if widensToString(ir.ColumnType{Family: ir.FamilyString, FullDataType: "varchar(10)"}) {
		t.Error("varchar(10) should not be classified as widening")
	}
	if widensToString(ir.ColumnType{Family: ir.FamilyInt, FullDataType: "int"}) {
		t.Error("non-string family should never widen to string")
	}
}
