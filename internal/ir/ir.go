// Package ir implements the dialect-neutral SQL schema intermediate
// representation: a single SqlSchema value holding parallel id-indexed
// arenas for every catalog object, plus small Walker views that borrow
// an arena and an id the way the rest of the engine expects to navigate
// the schema graph.
package ir

// Dialect identifies which database a SqlSchema or MigrationStep targets.
type Dialect string

const (
	DialectPostgres   Dialect = "postgres"
	DialectCockroach  Dialect = "cockroachdb"
	DialectMySQL      Dialect = "mysql"
	DialectMariaDB    Dialect = "mariadb"
	DialectSQLite     Dialect = "sqlite"
	DialectSQLServer  Dialect = "sqlserver"
	DialectMongoDB    Dialect = "mongodb"
	DialectUnknown    Dialect = ""
)

// ID is a stable arena index. NoID (-1) never denotes a real row.
type ID int32

const NoID ID = -1

// Namespace is a SQL schema/catalog (e.g. Postgres "public").
type Namespace struct {
	ID   ID
	Name string
}

// Table is a row in the tables arena.
type Table struct {
	ID          ID
	NamespaceID ID // NoID if the dialect has no namespaces (SQLite, MySQL)
	Name        string
	Description string
}

// Column is a row in the table-columns arena.
type Column struct {
	ID            ID
	TableID       ID
	Name          string
	Type          ColumnType
	AutoIncrement bool
	Description   string
}

// Default maps a column id to its DefaultValue. Kept in a side table
// (not embedded in Column) so that editing a default never requires
// renumbering column ids, per the IR's stability invariant.
type Default struct {
	ColumnID ID
	Value    DefaultValue
}

// IndexKind classifies what an index enforces.
type IndexKind string

const (
	IndexPrimaryKey IndexKind = "primary_key"
	IndexUnique     IndexKind = "unique"
	IndexNormal     IndexKind = "normal"
	IndexFulltext   IndexKind = "fulltext"
)

// SortOrder of an index column, when the dialect tracks it.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
	SortNone SortOrder = ""
)

// Index is a row in the indexes arena.
type Index struct {
	ID        ID
	TableID   ID
	Name      string
	Kind      IndexKind
	Algorithm string // dialect-specific, e.g. "btree", "gin"; empty if n/a
}

// IndexColumn is one ordered member of an index.
type IndexColumn struct {
	IndexID      ID
	ColumnID     ID
	Position     int // 0-based ordinal within the index
	SortOrder    SortOrder
	LengthPrefix int // 0 means "not set"; MySQL prefix indexes
	Opclass      string
}

// ReferentialAction is the ON DELETE / ON UPDATE behavior of a foreign key.
type ReferentialAction string

const (
	ActionNoAction   ReferentialAction = "no_action"
	ActionRestrict   ReferentialAction = "restrict"
	ActionCascade    ReferentialAction = "cascade"
	ActionSetNull    ReferentialAction = "set_null"
	ActionSetDefault ReferentialAction = "set_default"
)

// ForeignKey is a row in the foreign-keys arena.
type ForeignKey struct {
	ID                 ID
	ConstrainedTableID ID
	ReferencedTableID  ID
	OnDelete           ReferentialAction
	OnUpdate           ReferentialAction
	ConstraintName     string // empty if the dialect has no stable FK names (SQLite)
}

// ForeignKeyColumn is one ordered constrained/referenced column pair.
type ForeignKeyColumn struct {
	ForeignKeyID      ID
	Position          int
	ConstrainedColumn ID
	ReferencedColumn  ID
}

// Enum is a row in the enums arena (Postgres CREATE TYPE ... AS ENUM).
type Enum struct {
	ID          ID
	NamespaceID ID
	Name        string
}

// EnumVariant is one ordered value of an Enum.
type EnumVariant struct {
	EnumID ID
	Name   string
}

// SequenceObject is a row in the sequences arena (Postgres/CockroachDB).
// Named distinctly from the DefaultValue constructor Sequence(name).
type SequenceObject struct {
	NamespaceID    ID
	Name           string
	InitialValue   int64
	AllocationSize int64
}

// View is a row in the views arena.
type View struct {
	ID          ID
	NamespaceID ID
	Name        string
	Definition  string
}

// UserDefinedType is an opaque-by-name row (Postgres domains, MSSQL UDTs).
type UserDefinedType struct {
	ID          ID
	NamespaceID ID
	Name        string
}

// Extension is a row in the extensions arena (Postgres only).
type Extension struct {
	Name    string
	Schema  string
	Version string
}

// SqlSchema is the complete dialect-neutral description of one database.
type SqlSchema struct {
	Dialect Dialect

	Namespaces        []Namespace
	Tables            []Table
	Columns           []Column
	Defaults          []Default
	Indexes           []Index
	IndexColumns      []IndexColumn
	ForeignKeys       []ForeignKey
	ForeignKeyColumns []ForeignKeyColumn
	Enums             []Enum
	EnumVariants      []EnumVariant
	Sequences         []SequenceObject
	Views             []View
	UserDefinedTypes  []UserDefinedType
	Extensions        []Extension
}

// New returns an empty schema for the given dialect.
func New(dialect Dialect) *SqlSchema {
	return &SqlSchema{Dialect: dialect}
}
