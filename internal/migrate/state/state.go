// Package state persists migration application history to the
// `_prisma_migrations` table (spec §3.4, §6.4), generalized from the
// teacher's JSON-file internal/state/state.go: the teacher's
// ActiveMigration phase-tracking fields (StartedAt/LastUpdated/
// PhasesCompleted) become this table's started_at/finished_at/
// rolled_back_at columns, backed by the target database itself instead
// of a local `.lockplane-state.json`, since a schema engine's durable
// state has to survive on the same machine the migrations run against.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lockforge/schemaengine/internal/ir"
)

// TableName is the table spec §3.4 names.
const TableName = "_prisma_migrations"

// Row is one entry of the migrations table, exactly the columns spec
// §3.4 lists, in that order.
type Row struct {
	ID                string
	Checksum          string
	FinishedAt        *time.Time
	MigrationName     string
	Logs              *string
	RolledBackAt      *time.Time
	StartedAt         time.Time
	AppliedStepsCount int
}

// IsApplied reports whether this row represents a successfully applied,
// non-rolled-back migration (spec §3.4).
func (r Row) IsApplied() bool {
	return r.FinishedAt != nil && r.RolledBackAt == nil
}

// IsFailed reports whether this row represents a migration that started
// but never finished and was never rolled back (spec §3.4).
func (r Row) IsFailed() bool {
	return r.FinishedAt == nil && r.RolledBackAt == nil
}

// EnsureTable creates the migrations table if it doesn't already exist,
// with column types adapted per dialect (spec §6.4).
func EnsureTable(ctx context.Context, db *sql.DB, dialect ir.Dialect) error {
	ddl, err := createTableDDL(dialect)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("state: create %s: %w", TableName, err)
	}
	return nil
}

func createTableDDL(dialect ir.Dialect) (string, error) {
	switch dialect {
	case ir.DialectPostgres, ir.DialectCockroach:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id VARCHAR(36) PRIMARY KEY NOT NULL,
	checksum VARCHAR(64) NOT NULL,
	finished_at TIMESTAMPTZ,
	migration_name VARCHAR(255) NOT NULL,
	logs TEXT,
	rolled_back_at TIMESTAMPTZ,
	started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	applied_steps_count INTEGER NOT NULL DEFAULT 0
)`, TableName), nil
	case ir.DialectSQLite:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY NOT NULL,
	checksum TEXT NOT NULL,
	finished_at DATETIME,
	migration_name TEXT NOT NULL,
	logs TEXT,
	rolled_back_at DATETIME,
	started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	applied_steps_count INTEGER NOT NULL DEFAULT 0
)`, TableName), nil
	default:
		return "", fmt.Errorf("state: unsupported dialect %s", dialect)
	}
}

func placeholder(dialect ir.Dialect, n int) string {
	if dialect == ir.DialectPostgres || dialect == ir.DialectCockroach {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Load reads every row of the migrations table, ordered by started_at so
// callers see migrations in application order. Returns a nil slice (not
// an error) if the table doesn't exist yet — a fresh database has no
// history to report.
func Load(ctx context.Context, db *sql.DB, dialect ir.Dialect) ([]Row, error) {
	query := fmt.Sprintf(`SELECT id, checksum, finished_at, migration_name, logs, rolled_back_at, started_at, applied_steps_count
FROM %s ORDER BY started_at ASC`, TableName)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		if tableMissing(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("state: load: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.Checksum, &r.FinishedAt, &r.MigrationName, &r.Logs, &r.RolledBackAt, &r.StartedAt, &r.AppliedStepsCount); err != nil {
			return nil, fmt.Errorf("state: scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// tableMissing reports whether err looks like "relation does not exist" /
// "no such table" from Postgres or SQLite, the two dialects this package
// concretely supports — a narrower and more portable check than parsing
// driver-specific error codes.
func tableMissing(err error) bool {
	msg := err.Error()
	return containsAny(msg, "does not exist", "no such table")
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if len(s) >= len(sub) {
			for i := 0; i+len(sub) <= len(s); i++ {
				if s[i:i+len(sub)] == sub {
					return true
				}
			}
		}
	}
	return false
}

// InsertStarted records a new migration attempt before its script runs
// (spec §4.9.1 step 1): finished_at is left NULL until MarkFinished is
// called, so a crash mid-apply leaves a correctly "failed" row behind.
func InsertStarted(ctx context.Context, db *sql.DB, dialect ir.Dialect, id, name, checksum string) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, checksum, migration_name, started_at, applied_steps_count)
VALUES (%s, %s, %s, %s, 0)`, TableName,
		placeholder(dialect, 1), placeholder(dialect, 2), placeholder(dialect, 3), placeholder(dialect, 4))

	_, err := db.ExecContext(ctx, query, id, checksum, name, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("state: insert started row for %s: %w", name, err)
	}
	return nil
}

// MarkFinished records successful completion (spec §4.9.1 step 3).
func MarkFinished(ctx context.Context, db *sql.DB, dialect ir.Dialect, id string, appliedSteps int) error {
	query := fmt.Sprintf(`UPDATE %s SET finished_at = %s, applied_steps_count = %s WHERE id = %s`,
		TableName, placeholder(dialect, 1), placeholder(dialect, 2), placeholder(dialect, 3))
	_, err := db.ExecContext(ctx, query, time.Now().UTC(), appliedSteps, id)
	if err != nil {
		return fmt.Errorf("state: mark finished %s: %w", id, err)
	}
	return nil
}

// RecordLogs attaches captured error output to a failed row without
// setting finished_at or rolled_back_at (spec §4.9.1 step 2 error path).
func RecordLogs(ctx context.Context, db *sql.DB, dialect ir.Dialect, id, logs string) error {
	query := fmt.Sprintf(`UPDATE %s SET logs = %s WHERE id = %s`, TableName, placeholder(dialect, 1), placeholder(dialect, 2))
	_, err := db.ExecContext(ctx, query, logs, id)
	if err != nil {
		return fmt.Errorf("state: record logs for %s: %w", id, err)
	}
	return nil
}

// MarkRolledBack implements the markMigrationRolledBack RPC (spec §6.2):
// an operator has manually reverted a failed migration's effects and
// wants the history to stop reporting it as failed.
func MarkRolledBack(ctx context.Context, db *sql.DB, dialect ir.Dialect, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET rolled_back_at = %s WHERE id = %s`, TableName, placeholder(dialect, 1), placeholder(dialect, 2))
	_, err := db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("state: mark rolled back %s: %w", id, err)
	}
	return nil
}

// MarkApplied implements the markMigrationApplied RPC (spec §6.2): records
// a migration as already-applied without executing it, for baselining an
// existing database onto a fresh migration history.
func MarkApplied(ctx context.Context, db *sql.DB, dialect ir.Dialect, id, name, checksum string) error {
	now := time.Now().UTC()
	query := fmt.Sprintf(`INSERT INTO %s (id, checksum, migration_name, started_at, finished_at, applied_steps_count)
VALUES (%s, %s, %s, %s, %s, 0)`, TableName,
		placeholder(dialect, 1), placeholder(dialect, 2), placeholder(dialect, 3), placeholder(dialect, 4), placeholder(dialect, 5))
	_, err := db.ExecContext(ctx, query, id, checksum, name, now, now)
	if err != nil {
		return fmt.Errorf("state: mark applied %s: %w", name, err)
	}
	return nil
}
