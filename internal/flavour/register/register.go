// Package register wires every concrete dialect implementation into the
// internal/flavour registry. It is imported for its side effect only
// (blank import from cmd/ and from test packages that need a populated
// registry), the same shape as the teacher's main.go wiring one
// database.Driver per supported connection string scheme.
package register

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lockforge/schemaengine/internal/flavour"
	introspectMssql "github.com/lockforge/schemaengine/internal/introspect/mssql"
	introspectMysql "github.com/lockforge/schemaengine/internal/introspect/mysql"
	"github.com/lockforge/schemaengine/internal/introspect/postgres"
	"github.com/lockforge/schemaengine/internal/introspect/sqlite"
	"github.com/lockforge/schemaengine/internal/ir"
	renderMssql "github.com/lockforge/schemaengine/internal/renderer/mssql"
	renderMysql "github.com/lockforge/schemaengine/internal/renderer/mysql"
	renderPostgres "github.com/lockforge/schemaengine/internal/renderer/postgres"
	renderSqlite "github.com/lockforge/schemaengine/internal/renderer/sqlite"
)

func init() {
	flavour.Register(postgresFlavour(ir.DialectPostgres, false))
	flavour.Register(postgresFlavour(ir.DialectCockroach, true))
	flavour.Register(sqliteFlavour())
	flavour.Register(stubFlavour(ir.DialectMySQL, &renderMysql.Renderer{}, &introspectMysql.Introspector{}))
	flavour.Register(stubFlavour(ir.DialectMariaDB, &renderMysql.Renderer{}, &introspectMysql.Introspector{}))
	flavour.Register(stubFlavour(ir.DialectSQLServer, &renderMssql.Renderer{}, &introspectMssql.Introspector{}))
}

// postgresFlavour builds the Postgres bundle; CockroachDB reuses it
// almost unchanged (same wire protocol, same information_schema shape)
// aside from the unique_rowid() default and sequence-less serial columns
// the calculator/introspector already special-case by scalar text, not
// by dialect branch.
func postgresFlavour(dialect ir.Dialect, canAlterPrimaryKeys bool) *flavour.Flavour {
	return &flavour.Flavour{
		Dialect: dialect,
		Differ: flavour.DifferPolicy{
			CanRenameIndex:                              true,
			CanRenameForeignKey:                          true,
			CanAlterPrimaryKeys:                          canAlterPrimaryKeys,
			CanRedefineTablesWithInboundForeignKeys:      true,
			ShouldPushForeignKeysFromCreatedTables:       true,
			ShouldCreateIndexesFromCreatedTables:         true,
			ShouldDropIndexesFromDroppedTables:           true,
			ShouldRecreateThePrimaryKeyOnColumnRecreate:  false,
			IndexesShouldBeRecreatedAfterColumnDrop:      false,
			PushEnumSteps:                                true,
			PushExtensionSteps:                           true,
			PushAlterSequenceSteps:                       true,
			CanCopeWithForeignKeyColumnBecomingNonNullable: true,
			TableNamesMatch:             func(a, b string) bool { return a == b },
			ColumnTypeChange:            postgresColumnTypeChange,
			ViewShouldBeIgnored:         func(name string) bool { return false },
			ShouldSkipIndexForNewTable:  func(schema *ir.SqlSchema, idx ir.Index) bool { return false },
		},
		Calculator: flavour.CalculatorPolicy{
			MaxConstraintNameLength: 63,
			EnumLowering:            flavour.EnumAsObject,
		},
		Renderer:     &renderPostgres.Renderer{},
		Introspector: &postgres.Introspector{},
		Destructive: flavour.DestructiveCheckPolicy{
			CountRows: postgresCountRows,
		},
		Connector: flavour.ConnectorFlags{
			SupportsEnums:            true,
			SupportsNamespaces:       true,
			SupportsSequences:        true,
			SupportsFullTextIndex:    true,
			SupportsNamedForeignKeys: true,
			MaxIdentifierLength:      63,
		},
	}
}

func sqliteFlavour() *flavour.Flavour {
	return &flavour.Flavour{
		Dialect: ir.DialectSQLite,
		Differ: flavour.DifferPolicy{
			CanRenameIndex:                             false,
			CanRenameForeignKey:                        false,
			CanAlterPrimaryKeys:                        false,
			CanRedefineTablesWithInboundForeignKeys:    true,
			HasUnnamedForeignKeys:                      true,
			ShouldSkipFkIndexes:                        false,
			ShouldCreateIndexesFromCreatedTables:       true,
			ShouldDropIndexesFromDroppedTables:         true,
			ShouldRecreateThePrimaryKeyOnColumnRecreate: true,
			IndexesShouldBeRecreatedAfterColumnDrop:     true,
			PushEnumSteps:                               false,
			PushExtensionSteps:                          false,
			PushAlterSequenceSteps:                      false,
			CanCopeWithForeignKeyColumnBecomingNonNullable: false,
			TableNamesMatch:            func(a, b string) bool { return a == b },
			ColumnTypeChange:           sqliteColumnTypeChange,
			ViewShouldBeIgnored:        func(name string) bool { return false },
			ShouldSkipIndexForNewTable: func(schema *ir.SqlSchema, idx ir.Index) bool { return false },
		},
		Calculator: flavour.CalculatorPolicy{
			MaxConstraintNameLength: 128,
			EnumLowering:            flavour.EnumAsString,
		},
		Renderer:     &renderSqlite.Renderer{},
		Introspector: &sqlite.Introspector{},
		Destructive: flavour.DestructiveCheckPolicy{
			CountRows: sqliteCountRows,
		},
		Connector: flavour.ConnectorFlags{
			SupportsEnums:            false,
			SupportsNamespaces:       false,
			SupportsSequences:        false,
			SupportsFullTextIndex:    false,
			SupportsNamedForeignKeys: false,
			MaxIdentifierLength:      128,
		},
	}
}

func stubFlavour(dialect ir.Dialect, r flavour.Renderer, i flavour.Introspector) *flavour.Flavour {
	return &flavour.Flavour{
		Dialect:      dialect,
		Renderer:     r,
		Introspector: i,
	}
}

// postgresColumnTypeChange classifies widening/narrowing transitions a
// Postgres ALTER COLUMN ... TYPE can attempt automatically versus one
// that needs an explicit USING cast or a table rewrite.
func postgresColumnTypeChange(prev, next ir.ColumnType) ir.ColumnTypeChangeClass {
	if prev.Family == next.Family {
		return ir.SafeCast
	}
	switch {
	case prev.Family == ir.FamilyInt && next.Family == ir.FamilyBigInt:
		return ir.SafeCast
	case prev.Family == ir.FamilyString && next.Family == ir.FamilyString:
		return ir.SafeCast
	case widensToString(next):
		return ir.RiskyCast
	default:
		return ir.NotCastable
	}
}

// sqliteColumnTypeChange is conservative: SQLite's dynamic typing makes
// most same-affinity changes safe, but any family change routes the
// table through RedefineTables rather than risk silently truncating
// values, since SQLite has no USING-cast ALTER COLUMN at all.
func sqliteColumnTypeChange(prev, next ir.ColumnType) ir.ColumnTypeChangeClass {
	if prev.Family == next.Family {
		return ir.SafeCast
	}
	return ir.NotCastable
}

func widensToString(t ir.ColumnType) bool {
	return t.Family == ir.FamilyString && strings.Contains(t.FullDataType, "text")
}

// postgresCountRows backs the destructive checker's row-count suppression
// (spec §4.8). Table/schema names come from the introspected IR, never
// from user input, so interpolating them as quoted identifiers carries
// no injection risk the way interpolating a value would.
func postgresCountRows(ctx context.Context, db *sql.DB, schemaName, tableName string) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s.%s`, quoteIdent(schemaName), quoteIdent(tableName))
	var n int64
	if err := db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// sqliteCountRows is the same query without a schema qualifier — SQLite
// has no per-table schema namespace to prefix.
func sqliteCountRows(ctx context.Context, db *sql.DB, _, tableName string) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, quoteIdent(tableName))
	var n int64
	if err := db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
