package locks

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/lockforge/schemaengine/internal/ir"
)

// disableAdvisoryLockEnv matches the env var apply/reset/dev-diagnostic
// check before acquiring a lock (spec §6.5).
const disableAdvisoryLockEnv = "PRISMA_SCHEMA_DISABLE_ADVISORY_LOCK"

// advisoryLockKey is a fixed, process-wide lock key: every engine
// instance contending for the same database contends for the same key,
// so migrations never run concurrently against one target.
const advisoryLockKey = 72707369

const advisoryLockName = "lockforge_schemaengine_migrate"

// AdvisoryLock acquires a process-wide advisory lock before apply, reset,
// or dev-diagnostic touch the database (spec §4.9.5). It blocks until the
// lock is available. The returned unlock func must be called (typically
// via defer) once the caller is done, and is a no-op when advisory
// locking is disabled or the dialect has no server-side lock primitive.
func AdvisoryLock(ctx context.Context, db *sql.DB, dialect ir.Dialect) (unlock func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	if v := os.Getenv(disableAdvisoryLockEnv); v != "" && v != "0" {
		return noop, nil
	}

	switch dialect {
	case ir.DialectPostgres, ir.DialectCockroach:
		if _, err := db.ExecContext(ctx, "SELECT pg_advisory_lock($1)", advisoryLockKey); err != nil {
			return nil, fmt.Errorf("acquire advisory lock: %w", err)
		}
		return func(ctx context.Context) error {
			_, err := db.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockKey)
			return err
		}, nil

	case ir.DialectMySQL, ir.DialectMariaDB:
		var got sql.NullInt64
		if err := db.QueryRowContext(ctx, "SELECT GET_LOCK(?, -1)", advisoryLockName).Scan(&got); err != nil {
			return nil, fmt.Errorf("acquire advisory lock: %w", err)
		}
		if !got.Valid || got.Int64 != 1 {
			return nil, fmt.Errorf("acquire advisory lock: GET_LOCK did not succeed")
		}
		return func(ctx context.Context) error {
			_, err := db.ExecContext(ctx, "SELECT RELEASE_LOCK(?)", advisoryLockName)
			return err
		}, nil

	case ir.DialectSQLServer:
		var result int
		query := "DECLARE @res int; EXEC @res = sp_getapplock @Resource = @p1, @LockMode = 'Exclusive', @LockOwner = 'Session'; SELECT @res"
		if err := db.QueryRowContext(ctx, query, advisoryLockName).Scan(&result); err != nil {
			return nil, fmt.Errorf("acquire advisory lock: %w", err)
		}
		if result < 0 {
			return nil, fmt.Errorf("acquire advisory lock: sp_getapplock returned %d", result)
		}
		return func(ctx context.Context) error {
			_, err := db.ExecContext(ctx, "EXEC sp_releaseapplock @Resource = @p1, @LockOwner = 'Session'", advisoryLockName)
			return err
		}, nil

	default:
		// SQLite has no server process to contend with; the OS-level file
		// lock sqlite itself takes during a write is exclusion enough.
		return noop, nil
	}
}
