// Package flavour is the dialect registry: one small bundle of policy
// objects per supported database (spec §4.7), resolved by Dialect tag
// rather than through deep per-database inheritance (spec §9 "Flavour
// polymorphism"). It generalizes the teacher's database.Driver interface
// (Introspector embedded with SQLGenerator) into the five policy groups
// the spec names: renderer, differ policy, calculator hints, destructive
// checker, and datamodel-connector capability flags.
package flavour

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lockforge/schemaengine/internal/ir"
)

// ErrDialectNotImplemented is returned by stub introspectors/renderers
// for dialects the teacher never had a concrete implementation for
// (MySQL/MariaDB, SQL Server, MongoDB — see DESIGN.md's introspection
// gap entry). It is a distinct sentinel so callers can surface a clear
// "not supported yet" message instead of a generic failure.
var ErrDialectNotImplemented = errors.New("flavour: dialect not implemented")

// DifferPolicy bundles the per-dialect callbacks spec §4.7 lists for the
// schema differ.
type DifferPolicy struct {
	CanRenameIndex                            bool
	CanRenameForeignKey                       bool
	CanAlterPrimaryKeys                       bool
	CanRedefineTablesWithInboundForeignKeys    bool
	HasUnnamedForeignKeys                     bool
	ShouldSkipFkIndexes                       bool
	ShouldPushForeignKeysFromCreatedTables     bool
	ShouldDropForeignKeysFromDroppedTables     bool
	ShouldCreateIndexesFromCreatedTables       bool
	ShouldDropIndexesFromDroppedTables         bool
	ShouldRecreateThePrimaryKeyOnColumnRecreate bool
	IndexesShouldBeRecreatedAfterColumnDrop    bool
	PushEnumSteps                             bool
	PushExtensionSteps                        bool
	PushAlterSequenceSteps                    bool

	// TableNamesMatch compares two table names per the dialect's case
	// sensitivity (e.g. MSSQL schemas are case-insensitive).
	TableNamesMatch func(a, b string) bool

	// ShouldSkipIndexForNewTable reports whether idx, on a table being
	// newly created, should be skipped because the dialect creates it
	// implicitly (e.g. MySQL auto-creates an index backing a new FK).
	ShouldSkipIndexForNewTable func(schema *ir.SqlSchema, idx ir.Index) bool

	// ColumnTypeChange classifies a column type transition.
	ColumnTypeChange func(prev, next ir.ColumnType) ir.ColumnTypeChangeClass

	// CanCopeWithForeignKeyColumnBecomingNonNullable reports whether an
	// FK's constrained column can tighten from nullable to required
	// in-place, without dropping and recreating the constraint.
	CanCopeWithForeignKeyColumnBecomingNonNullable bool

	// ViewShouldBeIgnored reports system/extension views the differ and
	// introspector should never surface (spec §4.5 "Ignored objects").
	ViewShouldBeIgnored func(name string) bool

	// ContainsTable reports whether an externally-supplied table list
	// (e.g. "tables managed outside this tool") contains (ns, name).
	ContainsTable func(externalTables []string, namespace, name string) bool
}

// CalculatorPolicy bundles schema-calculator overrides (spec §4.4).
type CalculatorPolicy struct {
	// MaxConstraintNameLength clamps generated constraint names
	// (63 Postgres, 64 MySQL, 128 MSSQL per spec §4.4).
	MaxConstraintNameLength int

	// EnumLowering controls how an enum scalar is represented: as a real
	// enum object (Postgres), an inline CHECK/ENUM column type (MySQL/
	// MSSQL), or erased to a plain string (SQLite).
	EnumLowering EnumLowering
}

// EnumLowering is how the calculator represents a data-model enum.
type EnumLowering string

const (
	EnumAsObject EnumLowering = "object"  // CREATE TYPE ... AS ENUM
	EnumAsCheck  EnumLowering = "check"   // inline CHECK or native ENUM column
	EnumAsString EnumLowering = "string"  // erased, e.g. SQLite
)

// Renderer turns an ordered migration-step list into dialect-specific
// DDL text. prev and next are the two schemas the differ compared to
// produce steps: a step's Previous* fields index into prev's arenas,
// its Next*/plain fields (TableID, IndexID, ...) index into next's —
// the two are independently id-numbered, so both schemas must be
// available to resolve a full step list. Render returns
// ErrDialectNotImplemented for stub flavours (spec §1 "specified only by
// its contract" for dialects beyond Postgres/SQLite).
type Renderer interface {
	Render(prev, next *ir.SqlSchema, steps []ir.MigrationStep) (string, error)

	// RenderStep renders exactly one step, for callers that need
	// per-step DDL text rather than the whole migration script — the
	// destructive-change checker's lock-impact annotation (spec §4.8)
	// classifies lock mode from one step's rendered SQL at a time.
	RenderStep(prev, next *ir.SqlSchema, step ir.MigrationStep) (string, error)
}

// Introspector reads a live database into the IR (spec §4.5).
type Introspector interface {
	IntrospectSchema(ctx context.Context, db *sql.DB, namespaces []string) (*ir.SqlSchema, error)
}

// DestructiveCheckPolicy supplies the data-query hooks the destructive
// change checker needs (spec §4.8): suppressing warnings when a table
// the checker flags is actually empty.
type DestructiveCheckPolicy struct {
	// CountRows returns the row count of a table, used to suppress
	// data-loss warnings on empty tables.
	CountRows func(ctx context.Context, db *sql.DB, schemaName, tableName string) (int64, error)
}

// ConnectorFlags are datamodel-connector capability flags: what the
// calculator and validator may assume this dialect supports.
type ConnectorFlags struct {
	SupportsEnums            bool
	SupportsNamespaces       bool
	SupportsSequences        bool
	SupportsFullTextIndex    bool
	SupportsNamedForeignKeys bool
	MaxIdentifierLength      int
}

// Flavour is the complete per-dialect bundle (spec §4.7).
type Flavour struct {
	Dialect      ir.Dialect
	Differ       DifferPolicy
	Calculator   CalculatorPolicy
	Renderer     Renderer
	Introspector Introspector
	Destructive  DestructiveCheckPolicy
	Connector    ConnectorFlags
}

var registry = map[ir.Dialect]*Flavour{}

// Register adds a flavour to the process-wide dialect registry. Called
// from each dialect subpackage's init().
func Register(f *Flavour) { registry[f.Dialect] = f }

// Get resolves a flavour by dialect tag, or ok=false if unregistered.
func Get(d ir.Dialect) (*Flavour, bool) {
	f, ok := registry[d]
	return f, ok
}

// MustGet is a convenience for call sites that already know the dialect
// is registered (e.g. after CLI flag validation).
func MustGet(d ir.Dialect) *Flavour {
	f, ok := Get(d)
	if !ok {
		panic("flavour: dialect not registered: " + string(d))
	}
	return f
}
