// Package reset empties a database back to nothing (spec §4.9.4),
// generalized from the teacher's executor.CleanupShadowDB (which dropped
// every table inside one transaction ahead of a shadow-DB replay) into
// the full privileged drop/recreate cycle the spec wants for a user's
// real database, with a best-effort diff-and-execute fallback for
// connectors that can't drop and recreate their own schema.
package reset

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lockforge/schemaengine/internal/differ"
	"github.com/lockforge/schemaengine/internal/flavour"
	"github.com/lockforge/schemaengine/internal/ir"
)

// Reset empties every namespace the engine manages. It first attempts a
// privileged drop/recreate (Postgres: DROP SCHEMA ... CASCADE, CREATE
// SCHEMA); if that fails — insufficient privilege is the common case on
// managed Postgres — it falls back to BestEffortReset.
func Reset(ctx context.Context, db *sql.DB, fl *flavour.Flavour, namespaces []string) error {
	if fl.Dialect == ir.DialectPostgres || fl.Dialect == ir.DialectCockroach {
		if err := dropRecreateSchemas(ctx, db, namespaces); err == nil {
			return nil
		}
	}
	return BestEffortReset(ctx, db, fl, namespaces)
}

func dropRecreateSchemas(ctx context.Context, db *sql.DB, namespaces []string) error {
	if len(namespaces) == 0 {
		namespaces = []string{"public"}
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("reset: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, ns := range namespaces {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP SCHEMA IF EXISTS %q CASCADE`, ns)); err != nil {
			return fmt.Errorf("reset: drop schema %s: %w", ns, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA %q`, ns)); err != nil {
			return fmt.Errorf("reset: create schema %s: %w", ns, err)
		}
	}
	return tx.Commit()
}

// BestEffortReset introspects the live schema, diffs it against an empty
// schema of the same dialect, renders the resulting drop-everything
// script, and executes it in one shot (spec §4.9.4's fallback path). It
// works on connectors that forbid DROP SCHEMA / CREATE SCHEMA, since it
// only ever issues ordinary DDL the differ already knows how to produce
// (foreign keys and views dropped before the tables they depend on, by
// virtue of the differ's step-kind ordering).
func BestEffortReset(ctx context.Context, db *sql.DB, fl *flavour.Flavour, namespaces []string) error {
	if fl.Introspector == nil {
		return fmt.Errorf("reset: dialect %s has no introspector wired", fl.Dialect)
	}

	current, err := fl.Introspector.IntrospectSchema(ctx, db, namespaces)
	if err != nil {
		return fmt.Errorf("reset: introspect current schema: %w", err)
	}

	empty := ir.New(fl.Dialect)
	steps := differ.Diff(current, empty, fl)
	if len(steps) == 0 {
		return nil
	}

	script, err := fl.Renderer.Render(current, empty, steps)
	if err != nil {
		return fmt.Errorf("reset: render drop script: %w", err)
	}
	if script == "" {
		return nil
	}

	if _, err := db.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("reset: execute drop script: %w", err)
	}
	return nil
}
