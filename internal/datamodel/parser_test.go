package datamodel

import "testing"

func TestParse_SimpleModel(t *testing.T) {
	src := `model User {
  id    Int    @id
  email String @unique
  bio   String?
  tags  String[]
}`
	doc, diag := Parse(src)
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", diag.Items())
	}
	if len(doc.Items) != 1 {
		t.Fatalf("expected one item, got %d", len(doc.Items))
	}
	item := doc.Items[0]
	if item.Kind != ItemModel || item.Name != "User" {
		t.Fatalf("got %+v", item)
	}
	if len(item.Fields) != 4 {
		t.Fatalf("expected 4 fields, got %d: %+v", len(item.Fields), item.Fields)
	}

	id := item.Fields[0]
	if id.Name != "id" || id.Type.Name != "Int" || id.Arity != ArityRequired {
		t.Errorf("got %+v", id)
	}
	if len(id.Attributes) != 1 || id.Attributes[0].Name != "id" {
		t.Errorf("expected @id attribute, got %+v", id.Attributes)
	}

	bio := item.Fields[2]
	if bio.Arity != ArityOptional {
		t.Errorf("bio arity = %v, want optional", bio.Arity)
	}

	tags := item.Fields[3]
	if tags.Arity != ArityList {
		t.Errorf("tags arity = %v, want list", tags.Arity)
	}
}

func TestParse_AttributeWithArgs(t *testing.T) {
	src := `model User {
  id Int @default(autoincrement())
  name String @db.VarChar(255)
}`
	doc, diag := Parse(src)
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", diag.Items())
	}
	idField := doc.Items[0].Fields[0]
	if len(idField.Attributes) != 1 || len(idField.Attributes[0].Args) != 1 {
		t.Fatalf("got %+v", idField.Attributes)
	}
	if got := idField.Attributes[0].Args[0].Value; got != "autoincrement()" {
		t.Errorf("rendered @default arg = %q, want %q (calculator.go matches this literally)", got, "autoincrement()")
	}

	field := doc.Items[0].Fields[1]
	if field.Type.Name != "String" {
		t.Errorf("got %+v", field.Type)
	}
}

func TestParse_DefaultNowCall(t *testing.T) {
	src := `model Event {
  createdAt DateTime @default(now())
}`
	doc, diag := Parse(src)
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", diag.Items())
	}
	arg := doc.Items[0].Fields[0].Attributes[0].Args[0]
	if arg.Value != "now()" {
		t.Errorf("got %q, want now()", arg.Value)
	}
}

func TestParse_BlockAttribute(t *testing.T) {
	src := `model User {
  a Int
  b Int
  @@unique([a, b])
}`
	doc, diag := Parse(src)
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", diag.Items())
	}
	item := doc.Items[0]
	if len(item.Attributes) != 1 || !item.Attributes[0].Block || item.Attributes[0].Name != "unique" {
		t.Fatalf("got %+v", item.Attributes)
	}
	if len(item.Attributes[0].Args) != 1 || item.Attributes[0].Args[0].Value != "[a, b]" {
		t.Errorf("got %+v", item.Attributes[0].Args)
	}
}

func TestParse_Enum(t *testing.T) {
	src := `enum Role {
  ADMIN
  MEMBER
}`
	doc, diag := Parse(src)
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", diag.Items())
	}
	item := doc.Items[0]
	if item.Kind != ItemEnum || len(item.EnumValues) != 2 {
		t.Fatalf("got %+v", item)
	}
	if item.EnumValues[0].Name != "ADMIN" || item.EnumValues[1].Name != "MEMBER" {
		t.Errorf("got %+v", item.EnumValues)
	}
}

func TestParse_Datasource(t *testing.T) {
	src := `datasource db {
  provider = "postgresql"
  url      = env("DATABASE_URL")
}`
	doc, diag := Parse(src)
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", diag.Items())
	}
	item := doc.Items[0]
	if item.Kind != ItemDatasource || len(item.Properties) != 2 {
		t.Fatalf("got %+v", item)
	}
	if item.Properties[0].Name != "provider" || item.Properties[0].Value != `"postgresql"` {
		t.Errorf("got %+v", item.Properties[0])
	}
}

func TestParse_TypeAlias(t *testing.T) {
	doc, diag := Parse(`type Money = Decimal`)
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", diag.Items())
	}
	item := doc.Items[0]
	if item.Kind != ItemTypeAlias || item.AliasOf.Name != "Decimal" {
		t.Fatalf("got %+v", item)
	}
}

func TestParse_UnsupportedType(t *testing.T) {
	src := `model T {
  geom Unsupported("geometry")
}`
	doc, diag := Parse(src)
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", diag.Items())
	}
	field := doc.Items[0].Fields[0]
	if field.Type.Kind != TypeUnsupported || field.Type.Name != "geometry" {
		t.Errorf("got %+v", field.Type)
	}
}

func TestParse_UnknownTopLevelKeywordRecovers(t *testing.T) {
	src := `bogus Foo {
  x Int
}
model Real {
  id Int
}`
	doc, diag := Parse(src)
	if !diag.HasErrors() {
		t.Fatal("expected a diagnostic for the unknown keyword")
	}
	var sawReal bool
	for _, it := range doc.Items {
		if it.Name == "Real" {
			sawReal = true
		}
	}
	if !sawReal {
		t.Errorf("expected parsing to recover and still find model Real, got %+v", doc.Items)
	}
}

func TestParse_ReferenceFieldType(t *testing.T) {
	src := `model Post {
  author User
}`
	doc, diag := Parse(src)
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", diag.Items())
	}
	field := doc.Items[0].Fields[0]
	if field.Type.Kind != TypeReference || field.Type.Name != "User" {
		t.Errorf("got %+v", field.Type)
	}
}
