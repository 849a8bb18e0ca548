// Package migrate ties history, state, shadow, apply, diagnostic, and
// reset together behind a single stateful Engine, the shape spec §5
// describes: a connection handle that moves Initial -> WithParams ->
// Connected -> WithParams, exclusively owned by whichever call currently
// holds it. It is grounded on the teacher's database.Driver construction
// in internal/executor/executor.go (DetectDriver/NewDriver/sql.Open),
// generalized from "build one driver for one CLI invocation" into a
// long-lived handle multiple RPC-shaped calls share sequentially.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/lockforge/schemaengine/internal/flavour"
	"github.com/lockforge/schemaengine/internal/ir"
	"github.com/lockforge/schemaengine/internal/locks"
	"github.com/lockforge/schemaengine/internal/migrate/apply"
	"github.com/lockforge/schemaengine/internal/migrate/diagnostic"
	"github.com/lockforge/schemaengine/internal/migrate/history"
	"github.com/lockforge/schemaengine/internal/migrate/reset"
	"github.com/lockforge/schemaengine/internal/migrate/shadow"
	"github.com/lockforge/schemaengine/internal/migrate/state"
)

// connState is the handle's position in the state machine spec §5 names.
type connState int

const (
	stateInitial connState = iota
	stateWithParams
	stateConnected
)

// Params configures an Engine before it connects, the WithParams state.
type Params struct {
	Dialect             ir.Dialect
	ConnString          string
	MigrationsDir       string
	Namespaces          []string
	Shadow              shadow.Config
	DisableAdvisoryLock bool
}

// Engine is the long-lived handle behind the §6.2 RPC surface's
// migration-persistence methods. Every exported method that touches the
// database takes the internal mutex for its duration, matching spec §5's
// "single logical task per request" rule — two calls never interleave
// their database round-trips. ListMigrationDirectories and
// CreateMigration work on the migrations directory only and do not take
// the mutex.
type Engine struct {
	mu     sync.Mutex
	state  connState
	params Params
	db     *sql.DB
	fl     *flavour.Flavour
}

// New builds an unconnected Engine in the Initial state.
func New() *Engine {
	return &Engine{state: stateInitial}
}

// WithParams moves the engine into the WithParams state, validating the
// dialect is registered before any connection is attempted.
func (e *Engine) WithParams(p Params) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	fl, ok := flavour.Get(p.Dialect)
	if !ok {
		return fmt.Errorf("migrate: dialect %s is not registered", p.Dialect)
	}
	e.params = p
	e.fl = fl
	e.state = stateWithParams
	if e.db != nil {
		_ = e.db.Close()
		e.db = nil
	}
	return nil
}

// Connect opens the database connection, moving WithParams -> Connected.
func (e *Engine) Connect(ctx context.Context, open OpenFunc) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == stateInitial {
		return fmt.Errorf("migrate: WithParams must be called before Connect")
	}
	db, err := open(ctx, e.params.ConnString)
	if err != nil {
		return fmt.Errorf("migrate: connect: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("migrate: ensureConnectionValidity: %w", err)
	}
	e.db = db
	e.state = stateConnected
	return nil
}

// OpenFunc dials a database connection for a connection string. The
// engine never imports a specific sql driver package directly, so
// callers supply one grounded on internal/executor.DetectDriver-style
// dispatch in their cmd/ wiring.
type OpenFunc func(ctx context.Context, connString string) (*sql.DB, error)

// DB exposes the live connection for callers that need it as an admin
// connection elsewhere (internal-mode shadow database creation runs
// CREATE/DROP DATABASE on the same server as the main connection).
// Returns nil when not Connected.
func (e *Engine) DB() *sql.DB {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.db
}

// Close releases the connection, returning the engine to WithParams —
// matching spec §5's description of the handle cycling back after use
// rather than being torn down.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	e.state = stateWithParams
	return err
}

func (e *Engine) requireConnected() error {
	if e.state != stateConnected || e.db == nil {
		return fmt.Errorf("migrate: not connected")
	}
	return nil
}

// withAdvisoryLock acquires the process-wide advisory lock spec §4.9.5
// requires before apply, reset, or dev-diagnostic touch the database, runs
// fn, and releases the lock whether or not fn succeeds. Skipped entirely
// when the engine was configured with DisableAdvisoryLock.
func (e *Engine) withAdvisoryLock(ctx context.Context, fn func() error) error {
	if e.params.DisableAdvisoryLock {
		return fn()
	}
	unlock, err := locks.AdvisoryLock(ctx, e.db, e.params.Dialect)
	if err != nil {
		return err
	}
	defer func() { _ = unlock(ctx) }()
	return fn()
}

// ApplyMigrations implements the applyMigrations RPC (spec §6.2, §4.9.1).
func (e *Engine) ApplyMigrations(ctx context.Context) (apply.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireConnected(); err != nil {
		return apply.Result{}, err
	}
	var result apply.Result
	err := e.withAdvisoryLock(ctx, func() error {
		var err error
		result, err = apply.Apply(ctx, e.db, e.params.Dialect, e.params.MigrationsDir)
		return err
	})
	return result, err
}

// DevDiagnostic implements the devDiagnostic RPC (spec §6.2, §4.9.2).
func (e *Engine) DevDiagnostic(ctx context.Context, open OpenFunc, adminDB *sql.DB) (diagnostic.Action, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireConnected(); err != nil {
		return diagnostic.Action{}, err
	}

	in := diagnostic.Input{
		DB:            e.db,
		Dialect:       e.params.Dialect,
		Flavour:       e.fl,
		MigrationsDir: e.params.MigrationsDir,
		Namespaces:    e.params.Namespaces,
		Shadow: func(ctx context.Context) (*shadow.Handle, error) {
			return shadow.Prepare(ctx, e.params.Dialect, e.params.ConnString, e.params.Shadow, shadow.OpenFunc(open), adminDB)
		},
	}
	var action diagnostic.Action
	err := e.withAdvisoryLock(ctx, func() error {
		var err error
		action, err = diagnostic.Diagnose(ctx, in)
		return err
	})
	return action, err
}

// Reset implements the reset RPC (spec §6.2, §4.9.4).
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireConnected(); err != nil {
		return err
	}
	return e.withAdvisoryLock(ctx, func() error {
		return reset.Reset(ctx, e.db, e.fl, e.params.Namespaces)
	})
}

// ListMigrationDirectories implements listMigrationDirectories (spec
// §6.2): the on-disk half of the history, no database access required.
func (e *Engine) ListMigrationDirectories() ([]string, error) {
	migrations, err := history.Load(e.params.MigrationsDir)
	if err != nil {
		return nil, err
	}
	return history.Names(migrations), nil
}

// CreateMigration implements createMigration (spec §6.2): writes a new
// migration directory to disk without touching the database, so the SQL
// text passed in has already been produced by a differ+renderer run
// against the current and desired schemas.
func (e *Engine) CreateMigration(slug, sql string) (history.Migration, error) {
	name := history.NewName(slug)
	return history.Write(e.params.MigrationsDir, name, sql)
}

// MarkMigrationApplied implements markMigrationApplied (spec §6.2).
func (e *Engine) MarkMigrationApplied(ctx context.Context, id, name, checksum string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireConnected(); err != nil {
		return err
	}
	return state.MarkApplied(ctx, e.db, e.params.Dialect, id, name, checksum)
}

// MarkMigrationRolledBack implements markMigrationRolledBack (spec §6.2).
func (e *Engine) MarkMigrationRolledBack(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireConnected(); err != nil {
		return err
	}
	return state.MarkRolledBack(ctx, e.db, e.params.Dialect, id)
}

// DiagnoseMigrationHistory implements diagnoseMigrationHistory (spec
// §6.2): a read-only report of drift between the on-disk history and the
// database's recorded state, steps 1-4 of DevDiagnostic's tree without
// the shadow-database replay step.
func (e *Engine) DiagnoseMigrationHistory(ctx context.Context) (diagnostic.Action, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireConnected(); err != nil {
		return diagnostic.Action{}, err
	}
	in := diagnostic.Input{
		DB:            e.db,
		Dialect:       e.params.Dialect,
		Flavour:       e.fl,
		MigrationsDir: e.params.MigrationsDir,
		Namespaces:    e.params.Namespaces,
	}
	return diagnostic.Diagnose(ctx, in)
}
