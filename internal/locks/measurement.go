package locks

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Measurement is the timing result of running one step's statements
// against the shadow database inside a rolled-back transaction.
type Measurement struct {
	DurationMS int64
	Success    bool
	Error      string
	LockMode   LockMode
	SQL        string
}

// MeasureLockDuration measures how long a DDL statement holds its lock
// by executing it against db inside a transaction that is always rolled
// back, so the shadow database this runs against is left untouched.
func MeasureLockDuration(ctx context.Context, db *sql.DB, statements []string) (*Measurement, error) {
	if db == nil {
		return nil, fmt.Errorf("locks: database connection is nil")
	}

	lockMode := DetectLockMode(statements)
	stmt := firstStatement(statements)
	if stmt == "" {
		return &Measurement{Success: false, Error: "no SQL to measure", LockMode: lockMode}, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return &Measurement{Success: false, Error: fmt.Sprintf("begin transaction: %v", err), LockMode: lockMode, SQL: stmt}, err
	}
	defer func() { _ = tx.Rollback() }()

	start := time.Now()
	_, execErr := tx.ExecContext(ctx, stmt)
	durationMS := time.Since(start).Milliseconds()

	if execErr != nil {
		if strings.Contains(execErr.Error(), "CONCURRENTLY") && strings.Contains(execErr.Error(), "cannot run inside a transaction") {
			return measureConcurrent(ctx, db, stmt, lockMode)
		}
		return &Measurement{Success: false, Error: fmt.Sprintf("execute: %v", execErr), LockMode: lockMode, SQL: stmt, DurationMS: durationMS}, nil
	}

	return &Measurement{Success: true, DurationMS: durationMS, LockMode: lockMode, SQL: stmt}, nil
}

// measureConcurrent measures a CREATE INDEX CONCURRENTLY statement, which
// Postgres refuses to run inside a transaction. It runs for real against
// the shadow database and drops the resulting index afterward.
func measureConcurrent(ctx context.Context, db *sql.DB, stmt string, lockMode LockMode) (*Measurement, error) {
	indexName := extractIndexName(stmt)

	start := time.Now()
	_, execErr := db.ExecContext(ctx, stmt)
	durationMS := time.Since(start).Milliseconds()

	if execErr != nil {
		return &Measurement{Success: false, Error: fmt.Sprintf("concurrent operation failed: %v", execErr), LockMode: lockMode, SQL: stmt, DurationMS: durationMS}, nil
	}

	if indexName != "" {
		_, _ = db.ExecContext(ctx, fmt.Sprintf("DROP INDEX IF EXISTS %s", indexName))
	}
	return &Measurement{Success: true, DurationMS: durationMS, LockMode: lockMode, SQL: stmt}, nil
}

func extractIndexName(sql string) string {
	re := regexp.MustCompile(`(?i)INDEX\s+(?:CONCURRENTLY\s+)?([a-zA-Z_][a-zA-Z0-9_]*)\s+ON`)
	if m := re.FindStringSubmatch(sql); len(m) > 1 {
		return m[1]
	}
	return ""
}

// MeasureStepImpact enriches a step's lock impact with a real measured
// duration from the shadow database, falling back to the unmeasured
// impact if the measurement itself fails.
func MeasureStepImpact(ctx context.Context, db *sql.DB, operation string, statements []string) (*LockImpact, error) {
	impact := AnalyzeLockImpact(operation, statements)

	m, err := MeasureLockDuration(ctx, db, statements)
	if err != nil {
		return impact, err
	}
	if m.Success {
		impact.EstimatedDurationMS = m.DurationMS
		impact.MeasuredOnShadowDB = true
	}
	return impact, nil
}
