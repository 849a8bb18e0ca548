package sqlite

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

func TestIntrospectSchema_TableColumnsAndPrimaryKey(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL, bio TEXT)`); err != nil {
		t.Fatal(err)
	}

	schema, err := (&Introspector{}).IntrospectSchema(ctx, db, nil)
	if err != nil {
		t.Fatalf("IntrospectSchema() error: %v", err)
	}

	if len(schema.Tables) != 1 || schema.Tables[0].Name != "users" {
		t.Fatalf("expected one table named users, got %+v", schema.Tables)
	}
	tableID := schema.Tables[0].ID

	email, ok := schema.ColumnByName(tableID, "email")
	if !ok {
		t.Fatal("expected an email column")
	}
	if email.Type.Arity != ir.ArityRequired {
		t.Errorf("email arity = %v, want required", email.Type.Arity)
	}

	bio, ok := schema.ColumnByName(tableID, "bio")
	if !ok {
		t.Fatal("expected a bio column")
	}
	if bio.Type.Arity != ir.ArityNullable {
		t.Errorf("bio arity = %v, want nullable", bio.Type.Arity)
	}

	var sawPK bool
	for _, idx := range schema.Indexes {
		if idx.Kind == ir.IndexPrimaryKey && idx.TableID == tableID {
			sawPK = true
		}
	}
	if !sawPK {
		t.Error("expected a primary key index on users")
	}
}

func TestIntrospectSchema_UniqueIndex(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ExecContext(ctx, `CREATE UNIQUE INDEX users_email_key ON users (email)`); err != nil {
		t.Fatal(err)
	}

	schema, err := (&Introspector{}).IntrospectSchema(ctx, db, nil)
	if err != nil {
		t.Fatalf("IntrospectSchema() error: %v", err)
	}

	var found bool
	for _, idx := range schema.Indexes {
		if idx.Name == "users_email_key" {
			found = true
			if idx.Kind != ir.IndexUnique {
				t.Errorf("index kind = %v, want unique", idx.Kind)
			}
		}
	}
	if !found {
		t.Error("expected users_email_key to be introspected")
	}
}

func TestIntrospectSchema_ForeignKey(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `CREATE TABLE authors (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE books (id INTEGER PRIMARY KEY, author_id INTEGER REFERENCES authors(id) ON DELETE CASCADE)`); err != nil {
		t.Fatal(err)
	}

	schema, err := (&Introspector{}).IntrospectSchema(ctx, db, nil)
	if err != nil {
		t.Fatalf("IntrospectSchema() error: %v", err)
	}
	if len(schema.ForeignKeys) != 1 {
		t.Fatalf("expected one foreign key, got %d", len(schema.ForeignKeys))
	}
	if schema.ForeignKeys[0].OnDelete != ir.ActionCascade {
		t.Errorf("OnDelete = %v, want cascade", schema.ForeignKeys[0].OnDelete)
	}
}

func TestIntrospectSchema_IgnoresSqliteInternalTables(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `CREATE TABLE widgets (id INTEGER PRIMARY KEY AUTOINCREMENT)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO widgets DEFAULT VALUES`); err != nil {
		t.Fatal(err)
	}

	schema, err := (&Introspector{}).IntrospectSchema(ctx, db, nil)
	if err != nil {
		t.Fatalf("IntrospectSchema() error: %v", err)
	}
	for _, tbl := range schema.Tables {
		if tbl.Name == "sqlite_sequence" {
			t.Error("expected sqlite_sequence to be filtered out as an internal table")
		}
	}
}

func TestFamilyFromSQLiteType(t *testing.T) {
	cases := map[string]ir.Family{
		"INTEGER":  ir.FamilyInt,
		"int":      ir.FamilyInt,
		"BIGINT":   ir.FamilyBigInt,
		"REAL":     ir.FamilyFloat,
		"NUMERIC":  ir.FamilyDecimal,
		"BOOLEAN":  ir.FamilyBoolean,
		"TEXT":     ir.FamilyString,
		"DATETIME": ir.FamilyDateTime,
		"BLOB":     ir.FamilyBinary,
		"FOOBAR":   ir.FamilyUnsupported,
	}
	for in, want := range cases {
		if got := familyFromSQLiteType(in); got != want {
			t.Errorf("familyFromSQLiteType(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestQuoteIdent(t *testing.T) {
	if got := quoteIdent(`weird"table`); got != `"weird""table"` {
		t.Errorf("quoteIdent() = %q", got)
	}
}
