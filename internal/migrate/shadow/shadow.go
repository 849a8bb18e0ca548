// Package shadow provisions the throwaway database the engine replays a
// migration history against before trusting it (spec §4.9.3). It
// generalizes the teacher's internal/shadow/reservation.go, which only
// tracked an externally-supplied shadow URL across CLI invocations
// (LoadReservation/SaveReservation's atomic JSON file), into the full
// external/internal mode split the spec requires, including internal
// mode's own throwaway-database lifecycle that the teacher never had.
package shadow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lockforge/schemaengine/internal/engineerr"
	"github.com/lockforge/schemaengine/internal/ir"
)

// Mode selects how the shadow database is obtained (spec §4.9.3).
type Mode int

const (
	// Internal has the engine create and drop a randomly-named database
	// on the same server as the main connection.
	Internal Mode = iota
	// External points at a user-supplied database that the engine
	// connects to as it is: the database is not reset before replay,
	// and it is left in place afterwards.
	External
)

// Config selects and parameters a shadow database acquisition.
type Config struct {
	Mode Mode
	// URL is required when Mode == External: a full connection string to
	// an already-provisioned, otherwise-empty database.
	URL string
}

// ErrManagedServiceNoShadowDB is returned by Prepare when Internal mode is
// requested against a connector that forbids CREATE DATABASE (spec
// §4.9.3's Azure SQL example) — the caller must fall back to asking the
// user for an External shadow URL instead.
var ErrManagedServiceNoShadowDB = errors.New("shadow: this connector does not allow creating a shadow database; supply one explicitly")

// Handle is a prepared shadow database connection plus its cleanup. Close
// must always be called, even when the caller's own context was
// cancelled — shadow DB teardown is cancellation-shielded (spec §5).
type Handle struct {
	DB    *sql.DB
	Name  string
	close func(context.Context) error
}

// Close drops the shadow database (internal mode) or simply closes the
// connection (external mode), using a detached context so cancellation
// of the caller's context never skips cleanup.
func (h *Handle) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return h.close(ctx)
}

// OpenFunc dials a fresh *sql.DB for a connection string, supplied by the
// caller so this package stays driver-agnostic (it never imports
// database/sql drivers directly).
type OpenFunc func(ctx context.Context, connString string) (*sql.DB, error)

// Prepare acquires a shadow database per cfg.Mode and returns a connected
// handle ready for replay. baseConnString is the main connection's
// connection string, used by Internal mode to derive a sibling
// connection string pointing at the new throwaway database.
func Prepare(ctx context.Context, dialect ir.Dialect, baseConnString string, cfg Config, open OpenFunc, adminDB *sql.DB) (*Handle, error) {
	switch cfg.Mode {
	case External:
		return prepareExternal(ctx, cfg.URL, open)
	case Internal:
		return prepareInternal(ctx, dialect, baseConnString, open, adminDB)
	default:
		return nil, fmt.Errorf("shadow: unknown mode %d", cfg.Mode)
	}
}

func prepareExternal(ctx context.Context, url string, open OpenFunc) (*Handle, error) {
	if url == "" {
		return nil, errors.New("shadow: external mode requires a shadow database URL")
	}
	db, err := open(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("shadow: connect to external shadow database: %w", err)
	}
	return &Handle{
		DB:   db,
		Name: "external",
		close: func(context.Context) error {
			return db.Close()
		},
	}, nil
}

// prepareInternal creates a randomly-named database on the same server as
// adminDB (the main connection), in the style of
// "prisma_migrate_shadow_db_<uuid>" (spec §4.9.3), and returns a handle
// connected to it.
func prepareInternal(ctx context.Context, dialect ir.Dialect, baseConnString string, open OpenFunc, adminDB *sql.DB) (*Handle, error) {
	switch dialect {
	case ir.DialectPostgres, ir.DialectCockroach:
		return prepareInternalPostgres(ctx, baseConnString, open, adminDB)
	case ir.DialectSQLite:
		return prepareInternalSQLite(ctx, open)
	case ir.DialectSQLServer:
		// Azure SQL is the spec's named example of a managed host that
		// forbids CREATE DATABASE; give the operator explicit guidance
		// instead of a bare sentinel.
		return nil, &engineerr.ShadowDbCreationError{Cause: ErrManagedServiceNoShadowDB, KnownHost: "azure-sql"}
	default:
		return nil, ErrManagedServiceNoShadowDB
	}
}

func prepareInternalPostgres(ctx context.Context, baseConnString string, open OpenFunc, adminDB *sql.DB) (*Handle, error) {
	if adminDB == nil {
		return nil, errors.New("shadow: internal mode requires an admin connection to create the shadow database")
	}
	name := "prisma_migrate_shadow_db_" + uuid.NewString()[:8]

	if _, err := adminDB.ExecContext(ctx, fmt.Sprintf(`CREATE DATABASE %s`, quoteIdent(name))); err != nil {
		return nil, &engineerr.ShadowDbCreationError{Cause: err}
	}

	shadowConnString, err := withDatabaseName(baseConnString, name)
	if err != nil {
		_, _ = adminDB.ExecContext(ctx, fmt.Sprintf(`DROP DATABASE IF EXISTS %s`, quoteIdent(name)))
		return nil, err
	}

	db, err := open(ctx, shadowConnString)
	if err != nil {
		_, _ = adminDB.ExecContext(ctx, fmt.Sprintf(`DROP DATABASE IF EXISTS %s`, quoteIdent(name)))
		return nil, fmt.Errorf("shadow: connect to shadow database %s: %w", name, err)
	}

	return &Handle{
		DB:   db,
		Name: name,
		close: func(cctx context.Context) error {
			closeErr := db.Close()
			// Postgres refuses DROP DATABASE while other sessions hold it
			// open; force-disconnect any stragglers first.
			_, _ = adminDB.ExecContext(cctx, `SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1 AND pid <> pg_backend_pid()`, name)
			_, dropErr := adminDB.ExecContext(cctx, fmt.Sprintf(`DROP DATABASE IF EXISTS %s`, quoteIdent(name)))
			if dropErr != nil {
				return fmt.Errorf("shadow: drop shadow database %s: %w", name, dropErr)
			}
			return closeErr
		},
	}, nil
}

// prepareInternalSQLite uses an in-memory database as the shadow, matching
// the teacher's cmd/apply.go default shadow behavior for SQLite — no
// server-side CREATE/DROP DATABASE exists for a file-less engine.
func prepareInternalSQLite(ctx context.Context, open OpenFunc) (*Handle, error) {
	db, err := open(ctx, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("shadow: open in-memory shadow database: %w", err)
	}
	return &Handle{
		DB:   db,
		Name: ":memory:",
		close: func(context.Context) error {
			return db.Close()
		},
	}, nil
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}

// withDatabaseName substitutes the database name in a libpq-style
// connection string or URL with name, so the shadow handle connects to
// the newly created database rather than the main one.
func withDatabaseName(connString, name string) (string, error) {
	if connString == "" {
		return "", errors.New("shadow: empty base connection string")
	}
	if idx := lastSlash(connString); idx >= 0 {
		base := connString[:idx+1]
		rest := connString[idx+1:]
		if q := indexByte(rest, '?'); q >= 0 {
			return base + name + rest[q:], nil
		}
		return base + name, nil
	}
	return "", fmt.Errorf("shadow: cannot derive shadow database name from connection string")
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
