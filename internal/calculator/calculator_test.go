package calculator

import (
	"testing"

	"github.com/lockforge/schemaengine/internal/datamodel"
	"github.com/lockforge/schemaengine/internal/ir"

	_ "github.com/lockforge/schemaengine/internal/flavour/register"
)

func mustValidate(t *testing.T, src string) *datamodel.ValidatedSchema {
	t.Helper()
	doc, diag := datamodel.Parse(src)
	if diag.HasErrors() {
		t.Fatalf("parse errors: %+v", diag.Items())
	}
	vs, diag := datamodel.Validate(doc)
	if diag.HasErrors() {
		t.Fatalf("validate errors: %+v", diag.Items())
	}
	return vs
}

func TestCalculate_SimpleModelProducesTableAndColumns(t *testing.T) {
	vs := mustValidate(t, `
datasource db {
  provider = "postgresql"
  url      = env("DATABASE_URL")
}
model User {
  id    Int    @id @default(autoincrement())
  email String @unique
}`)

	schema, err := Calculate(vs, ir.DialectPostgres)
	if err != nil {
		t.Fatalf("Calculate() error: %v", err)
	}
	if len(schema.Tables) != 1 || schema.Tables[0].Name != "User" {
		t.Fatalf("got tables %+v", schema.Tables)
	}
	if len(schema.Columns) != 2 {
		t.Fatalf("got columns %+v", schema.Columns)
	}
	idCol, ok := schema.ColumnByName(schema.Tables[0].ID, "id")
	if !ok || !idCol.AutoIncrement {
		t.Errorf("expected id column to be auto-increment, got %+v (ok=%v)", idCol, ok)
	}
	if _, ok := schema.ColumnByName(schema.Tables[0].ID, "email"); !ok {
		t.Errorf("expected an email column")
	}

	// @id produces a primary key index, @unique produces a unique index.
	var sawPK, sawUnique bool
	for _, idx := range schema.Indexes {
		switch idx.Kind {
		case ir.IndexPrimaryKey:
			sawPK = true
			if idx.Name != "User_pkey" {
				t.Errorf("pk index name = %q, want User_pkey", idx.Name)
			}
		case ir.IndexUnique:
			sawUnique = true
		}
	}
	if !sawPK || !sawUnique {
		t.Errorf("expected both a primary key and a unique index, got %+v", schema.Indexes)
	}

	// autoincrement() default produces no separate Default row (carried on
	// the column itself).
	for _, d := range schema.Defaults {
		if d.ColumnID == idCol.ID {
			t.Errorf("expected no Default row for an autoincrement column, got %+v", d)
		}
	}
}

func TestCalculate_DefaultNowProducesNowDefault(t *testing.T) {
	vs := mustValidate(t, `
datasource db {
  provider = "postgresql"
  url      = env("DATABASE_URL")
}
model Event {
  id        Int      @id
  createdAt DateTime @default(now())
}`)

	schema, err := Calculate(vs, ir.DialectPostgres)
	if err != nil {
		t.Fatalf("Calculate() error: %v", err)
	}
	col, ok := schema.ColumnByName(schema.Tables[0].ID, "createdAt")
	if !ok {
		t.Fatalf("expected a createdAt column")
	}
	def, ok := schema.DefaultFor(col.ID)
	if !ok {
		t.Fatalf("expected a default value for createdAt")
	}
	if def.Kind != ir.DefaultNow {
		t.Errorf("default kind = %v, want DefaultNow", def.Kind)
	}
}

func TestCalculate_StringLiteralDefault(t *testing.T) {
	vs := mustValidate(t, `
datasource db {
  provider = "postgresql"
  url      = env("DATABASE_URL")
}
model User {
  id   Int    @id
  role String @default("member")
}`)

	schema, err := Calculate(vs, ir.DialectPostgres)
	if err != nil {
		t.Fatalf("Calculate() error: %v", err)
	}
	col, _ := schema.ColumnByName(schema.Tables[0].ID, "role")
	def, ok := schema.DefaultFor(col.ID)
	if !ok {
		t.Fatalf("expected a default value for role")
	}
	if def.Kind != ir.DefaultValueLiteral || def.Literal.Kind != ir.ScalarString || def.Literal.Text != "member" {
		t.Errorf("got %+v", def)
	}
}

func TestCalculate_DbGeneratedDefaultFallsThrough(t *testing.T) {
	vs := mustValidate(t, `
datasource db {
  provider = "postgresql"
  url      = env("DATABASE_URL")
}
model Widget {
  id   Int    @id
  slug String @default(dbgenerated("gen_random_uuid()"))
}`)

	schema, err := Calculate(vs, ir.DialectPostgres)
	if err != nil {
		t.Fatalf("Calculate() error: %v", err)
	}
	col, _ := schema.ColumnByName(schema.Tables[0].ID, "slug")
	def, ok := schema.DefaultFor(col.ID)
	if !ok {
		t.Fatalf("expected a default value for slug")
	}
	if def.Kind != ir.DefaultDbGenerated {
		t.Errorf("got %+v, want DefaultDbGenerated", def)
	}
}

func TestCalculate_MapAttributeRenamesTableAndColumn(t *testing.T) {
	vs := mustValidate(t, `
datasource db {
  provider = "postgresql"
  url      = env("DATABASE_URL")
}
model User {
  id        Int    @id
  firstName String @map("first_name")

  @@map("users")
}`)

	schema, err := Calculate(vs, ir.DialectPostgres)
	if err != nil {
		t.Fatalf("Calculate() error: %v", err)
	}
	if schema.Tables[0].Name != "users" {
		t.Errorf("table name = %q, want users (from @@map)", schema.Tables[0].Name)
	}
	if _, ok := schema.ColumnByName(schema.Tables[0].ID, "first_name"); !ok {
		t.Errorf("expected a first_name column (from @map), got %+v", schema.Columns)
	}
}

func TestCalculate_CompositeIndexFromBlockAttribute(t *testing.T) {
	vs := mustValidate(t, `
datasource db {
  provider = "postgresql"
  url      = env("DATABASE_URL")
}
model Membership {
  id     Int @id
  userId Int
  teamId Int

  @@unique([userId, teamId])
}`)

	schema, err := Calculate(vs, ir.DialectPostgres)
	if err != nil {
		t.Fatalf("Calculate() error: %v", err)
	}
	var found bool
	for _, idx := range schema.Indexes {
		if idx.Kind == ir.IndexUnique {
			cols := schema.IndexColumns(idx.ID)
			if len(cols) == 2 {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("expected a two-column unique index from @@unique([userId, teamId]), got %+v", schema.Indexes)
	}
}

func TestCalculate_RelationProducesForeignKey(t *testing.T) {
	vs := mustValidate(t, `
datasource db {
  provider = "postgresql"
  url      = env("DATABASE_URL")
}
model User {
  id    Int    @id
  posts Post[]
}
model Post {
  id     Int  @id
  userId Int
  user   User @relation(fields: [userId], references: [id])
}`)

	schema, err := Calculate(vs, ir.DialectPostgres)
	if err != nil {
		t.Fatalf("Calculate() error: %v", err)
	}
	if len(schema.ForeignKeys) != 1 {
		t.Fatalf("expected one foreign key, got %+v", schema.ForeignKeys)
	}
	fk := schema.ForeignKeys[0]
	if fk.OnDelete != ir.ActionRestrict || fk.OnUpdate != ir.ActionCascade {
		t.Errorf("got %+v", fk)
	}
	fkCols := schema.ForeignKeyColumns(fk.ID)
	if len(fkCols) != 1 {
		t.Fatalf("got %+v", fkCols)
	}
}

func TestCalculate_EnumLoweredAsObjectForPostgres(t *testing.T) {
	vs := mustValidate(t, `
datasource db {
  provider = "postgresql"
  url      = env("DATABASE_URL")
}
enum Role {
  ADMIN
  MEMBER
}
model User {
  id   Int  @id
  role Role
}`)

	schema, err := Calculate(vs, ir.DialectPostgres)
	if err != nil {
		t.Fatalf("Calculate() error: %v", err)
	}
	if len(schema.Enums) != 1 || schema.Enums[0].Name != "Role" {
		t.Fatalf("got %+v", schema.Enums)
	}
	if len(schema.EnumVariants) != 2 {
		t.Fatalf("got %+v", schema.EnumVariants)
	}
}

func TestCalculate_EnumErasedToStringForSqlite(t *testing.T) {
	vs := mustValidate(t, `
datasource db {
  provider = "sqlite"
  url      = env("DATABASE_URL")
}
enum Role {
  ADMIN
  MEMBER
}
model User {
  id   Int  @id
  role Role
}`)

	schema, err := Calculate(vs, ir.DialectSQLite)
	if err != nil {
		t.Fatalf("Calculate() error: %v", err)
	}
	if len(schema.Enums) != 0 {
		t.Errorf("expected no Enum objects for sqlite (erased to string), got %+v", schema.Enums)
	}
}

func TestCalculate_UnknownDialectReturnsError(t *testing.T) {
	vs := mustValidate(t, `
datasource db {
  provider = "postgresql"
  url      = env("DATABASE_URL")
}
model User {
  id Int @id
}`)

	if _, err := Calculate(vs, ir.DialectMongoDB); err == nil {
		t.Fatal("expected an error for a dialect with no registered flavour")
	}
}

func TestConstraintName(t *testing.T) {
	cases := []struct {
		table string
		cols  []string
		kind  ir.IndexKind
		want  string
	}{
		{"users", nil, ir.IndexPrimaryKey, "users_pkey"},
		{"users", []string{"email"}, ir.IndexUnique, "users_email_key"},
		{"users", []string{"name"}, ir.IndexNormal, "users_name_idx"},
	}
	for _, c := range cases {
		if got := constraintName(c.table, c.cols, c.kind, 63); got != c.want {
			t.Errorf("constraintName(%q, %v, %v) = %q, want %q", c.table, c.cols, c.kind, got, c.want)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := clamp("short", 63); got != "short" {
		t.Errorf("got %q", got)
	}
	long := "this_is_a_very_long_constraint_name_that_exceeds_the_postgres_identifier_limit"
	if got := clamp(long, 10); len(got) != 10 {
		t.Errorf("clamp len = %d, want 10", len(got))
	}
}
