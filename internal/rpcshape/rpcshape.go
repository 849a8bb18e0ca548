// Package rpcshape declares the method names and signatures of the
// JSON-RPC surface spec §6.2 names, as a plain Go interface, so a future
// cmd/ entry point has a concrete contract to bind a wire transport to.
// No transport is implemented here — no JSON-RPC server, no C-ABI — per
// spec §1's explicit exclusion; this package exists only so the shape of
// that boundary is recorded in code instead of prose.
package rpcshape

import (
	"context"

	"github.com/lockforge/schemaengine/internal/checker"
	"github.com/lockforge/schemaengine/internal/ir"
	"github.com/lockforge/schemaengine/internal/migrate/diagnostic"
)

// IntrospectRequest/Result, SchemaPushRequest/Result, and friends are
// deliberately thin: this package's job is naming the operations, not
// defining a wire format for them.

type IntrospectRequest struct {
	ConnectionString string
	Namespaces       []string
}

type IntrospectResult struct {
	Schema *ir.SqlSchema
}

type SchemaPushRequest struct {
	ConnectionString string
	DatamodelSource  string
	ForceReset       bool
}

type SchemaPushResult struct {
	ExecutedSteps int
	Warnings      []string
}

type CreateMigrationRequest struct {
	MigrationsDirectory string
	DatamodelSource     string
	MigrationName       string
	Draft               bool
}

type CreateMigrationResult struct {
	GeneratedMigrationName string
}

type ApplyMigrationsRequest struct {
	MigrationsDirectory string
	ConnectionString    string
}

type ApplyMigrationsResult struct {
	AppliedMigrationNames []string
}

type DevDiagnosticRequest struct {
	MigrationsDirectory string
	ConnectionString    string
}

type DevDiagnosticResult struct {
	Action diagnostic.Action
}

type DiagnoseMigrationHistoryRequest struct {
	MigrationsDirectory string
	ConnectionString    string
}

type DiagnoseMigrationHistoryResult struct {
	Action diagnostic.Action
}

type ListMigrationDirectoriesRequest struct {
	MigrationsDirectory string
}

type ListMigrationDirectoriesResult struct {
	Names []string
}

type MarkMigrationAppliedRequest struct {
	ConnectionString string
	MigrationName    string
}

type MarkMigrationRolledBackRequest struct {
	ConnectionString string
	MigrationID      string
}

type ResetRequest struct {
	ConnectionString string
	Namespaces       []string
}

type EvaluateDataLossRequest struct {
	MigrationsDirectory string
	DatamodelSource     string
}

type EvaluateDataLossResult struct {
	Diagnostics []checker.Diagnostic
}

type DbExecuteRequest struct {
	ConnectionString string
	Script           string
}

type EnsureConnectionValidityRequest struct {
	ConnectionString string
}

type DiffRequest struct {
	FromConnectionString string
	ToDatamodelSource     string
}

type DiffResult struct {
	Script string
}

type IntrospectSqlRequest struct {
	ConnectionString string
	Query            string
}

type IntrospectSqlResult struct {
	ColumnNames []string
}

// Engine is the full RPC surface of spec §6.2, one method per named
// operation. internal/engine.Service implements it; its
// migration-persistence subset (ApplyMigrations, DevDiagnostic, Reset,
// and friends) delegates to an internal/migrate.Engine, while
// introspect/schemaPush/diff/evaluateDataLoss route through
// internal/introspect, internal/calculator, internal/differ, and
// internal/checker directly, without needing connection-state at all.
type Engine interface {
	Introspect(ctx context.Context, req IntrospectRequest) (IntrospectResult, error)
	SchemaPush(ctx context.Context, req SchemaPushRequest) (SchemaPushResult, error)
	CreateMigration(ctx context.Context, req CreateMigrationRequest) (CreateMigrationResult, error)
	ApplyMigrations(ctx context.Context, req ApplyMigrationsRequest) (ApplyMigrationsResult, error)
	DevDiagnostic(ctx context.Context, req DevDiagnosticRequest) (DevDiagnosticResult, error)
	DiagnoseMigrationHistory(ctx context.Context, req DiagnoseMigrationHistoryRequest) (DiagnoseMigrationHistoryResult, error)
	ListMigrationDirectories(ctx context.Context, req ListMigrationDirectoriesRequest) (ListMigrationDirectoriesResult, error)
	MarkMigrationApplied(ctx context.Context, req MarkMigrationAppliedRequest) error
	MarkMigrationRolledBack(ctx context.Context, req MarkMigrationRolledBackRequest) error
	Reset(ctx context.Context, req ResetRequest) error
	EvaluateDataLoss(ctx context.Context, req EvaluateDataLossRequest) (EvaluateDataLossResult, error)
	DbExecute(ctx context.Context, req DbExecuteRequest) error
	EnsureConnectionValidity(ctx context.Context, req EnsureConnectionValidityRequest) error
	Diff(ctx context.Context, req DiffRequest) (DiffResult, error)
	IntrospectSql(ctx context.Context, req IntrospectSqlRequest) (IntrospectSqlResult, error)
}
