package ir

import "testing"

func fixtureWalkerSchema() *SqlSchema {
	s := New(DialectPostgres)
	s.Tables = []Table{
		{ID: 0, NamespaceID: NoID, Name: "users"},
		{ID: 1, NamespaceID: NoID, Name: "posts"},
	}
	s.Columns = []Column{
		{ID: 0, TableID: 0, Name: "id", Type: ColumnType{Family: FamilyInt}},
		{ID: 1, TableID: 0, Name: "email", Type: ColumnType{Family: FamilyString}},
		{ID: 2, TableID: 1, Name: "id", Type: ColumnType{Family: FamilyInt}},
		{ID: 3, TableID: 1, Name: "userId", Type: ColumnType{Family: FamilyInt}},
	}
	s.Indexes = []Index{
		{ID: 0, TableID: 0, Name: "users_pkey", Kind: IndexPrimaryKey},
		{ID: 1, TableID: 0, Name: "users_email_key", Kind: IndexUnique},
	}
	s.IndexColumns = []IndexColumn{
		{IndexID: 0, ColumnID: 0, Position: 0},
		{IndexID: 1, ColumnID: 1, Position: 0},
	}
	s.ForeignKeys = []ForeignKey{
		{ID: 0, ConstrainedTableID: 1, ReferencedTableID: 0, ConstraintName: "posts_userId_fkey"},
	}
	s.ForeignKeyColumns = []ForeignKeyColumn{
		{ForeignKeyID: 0, Position: 0, ConstrainedColumn: 3, ReferencedColumn: 0},
	}
	s.Defaults = []Default{
		{ColumnID: 0, Value: DefaultValue{Kind: DefaultAutoIncr}},
	}
	s.Enums = []Enum{{ID: 0, Name: "Role"}}
	s.EnumVariants = []EnumVariant{
		{EnumID: 0, Name: "ADMIN"},
		{EnumID: 0, Name: "MEMBER"},
	}
	return s
}

func TestTableWalker_ColumnsIndexesAndForeignKeys(t *testing.T) {
	s := fixtureWalkerSchema()

	users := s.Walk(0)
	if _, ok := users.Get(); !ok {
		t.Fatal("expected table id 0 to resolve")
	}
	if cols := users.Columns(); len(cols) != 2 {
		t.Errorf("expected 2 columns on users, got %+v", cols)
	}
	pk, ok := users.PrimaryKey()
	if !ok || pk.Name != "users_pkey" {
		t.Errorf("expected users_pkey as the primary key, got %+v (ok=%v)", pk, ok)
	}
	if inbound := users.InboundForeignKeys(); len(inbound) != 1 || inbound[0].ConstraintName != "posts_userId_fkey" {
		t.Errorf("expected one inbound FK from posts, got %+v", inbound)
	}

	posts := s.Walk(1)
	if fks := posts.ForeignKeys(); len(fks) != 1 {
		t.Errorf("expected posts to own one foreign key, got %+v", fks)
	}
	if _, ok := posts.PrimaryKey(); ok {
		t.Error("expected posts to have no primary key in this fixture")
	}
}

func TestSqlSchema_ByNameLookups(t *testing.T) {
	s := fixtureWalkerSchema()

	if _, ok := s.TableByName(NoID, "posts"); !ok {
		t.Error("expected to find posts by name")
	}
	if _, ok := s.TableByName(NoID, "missing"); ok {
		t.Error("expected no table named missing")
	}

	col, ok := s.ColumnByName(0, "email")
	if !ok || col.ID != 1 {
		t.Errorf("expected users.email to resolve to column id 1, got %+v (ok=%v)", col, ok)
	}
}

func TestSqlSchema_DefaultForAndEnumVariantsOf(t *testing.T) {
	s := fixtureWalkerSchema()

	def, ok := s.DefaultFor(0)
	if !ok || def.Kind != DefaultAutoIncr {
		t.Errorf("expected column 0's default to be auto_increment, got %+v (ok=%v)", def, ok)
	}
	if _, ok := s.DefaultFor(1); ok {
		t.Error("expected no default on column 1")
	}

	variants := s.EnumVariantsOf(0)
	if len(variants) != 2 || variants[0].Name != "ADMIN" || variants[1].Name != "MEMBER" {
		t.Errorf("expected ordered [ADMIN MEMBER], got %+v", variants)
	}
}

func TestSqlSchema_IndexAndForeignKeyColumnLookups(t *testing.T) {
	s := fixtureWalkerSchema()

	ics := s.IndexColumns(1)
	if len(ics) != 1 || ics[0].ColumnID != 1 {
		t.Errorf("expected index 1 to cover column 1, got %+v", ics)
	}

	fcs := s.ForeignKeyColumns(0)
	if len(fcs) != 1 || fcs[0].ConstrainedColumn != 3 || fcs[0].ReferencedColumn != 0 {
		t.Errorf("expected FK 0 to pair (userId -> id), got %+v", fcs)
	}
}

func TestSqlSchema_NextIDHelpersReflectArenaLength(t *testing.T) {
	s := fixtureWalkerSchema()

	if got := s.NextTableID(); got != ID(len(s.Tables)) {
		t.Errorf("NextTableID() = %v, want %v", got, len(s.Tables))
	}
	if got := s.NextColumnID(); got != ID(len(s.Columns)) {
		t.Errorf("NextColumnID() = %v, want %v", got, len(s.Columns))
	}
	if got := s.NextIndexID(); got != ID(len(s.Indexes)) {
		t.Errorf("NextIndexID() = %v, want %v", got, len(s.Indexes))
	}
}
