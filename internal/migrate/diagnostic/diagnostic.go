// Package diagnostic implements dev_diagnostic (spec §4.9.2): the six-step
// decision tree that decides whether the next command against a
// migrations directory can safely create a new migration, or must first
// reset the target database. It keeps the teacher's diagnostic/
// package's "collector gathers findings, one at a time, in priority
// order" shape, adapted from lint-style SQL diagnostics to drift
// diagnostics — the same first-match-wins discipline, a different
// subject.
package diagnostic

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lockforge/schemaengine/internal/differ"
	"github.com/lockforge/schemaengine/internal/flavour"
	"github.com/lockforge/schemaengine/internal/ir"
	"github.com/lockforge/schemaengine/internal/migrate/apply"
	"github.com/lockforge/schemaengine/internal/migrate/history"
	"github.com/lockforge/schemaengine/internal/migrate/shadow"
	"github.com/lockforge/schemaengine/internal/migrate/state"
)

// ActionKind distinguishes the two terminal outcomes dev_diagnostic can
// reach (spec §4.9.2).
type ActionKind string

const (
	CreateMigration ActionKind = "create_migration"
	Reset           ActionKind = "reset"
)

// Action is the single decision dev_diagnostic returns.
type Action struct {
	Kind   ActionKind
	Reason string // populated when Kind == Reset
}

// Input bundles everything dev_diagnostic needs to reach a verdict.
type Input struct {
	DB            *sql.DB
	Dialect       ir.Dialect
	Flavour       *flavour.Flavour
	MigrationsDir string
	Namespaces    []string

	// Shadow prepares the replay database for step 5. Supplying it lazily
	// (rather than a pre-opened *sql.DB) lets steps 1-4 short-circuit
	// without ever provisioning a shadow database.
	Shadow func(ctx context.Context) (*shadow.Handle, error)
}

// Diagnose runs the six-step decision tree, first match wins.
func Diagnose(ctx context.Context, in Input) (Action, error) {
	rows, err := state.Load(ctx, in.DB, in.Dialect)
	if err != nil {
		return Action{}, fmt.Errorf("diagnostic: load migration state: %w", err)
	}
	migrations, err := history.Load(in.MigrationsDir)
	if err != nil {
		return Action{}, fmt.Errorf("diagnostic: load migration history: %w", err)
	}
	onDisk := history.ByName(migrations)

	appliedRows := make([]state.Row, 0, len(rows))
	for _, r := range rows {
		if r.IsApplied() {
			appliedRows = append(appliedRows, r)
		}
	}

	// Step 1: applied-but-missing-from-disk.
	var missing []string
	for _, r := range appliedRows {
		if _, ok := onDisk[r.MigrationName]; !ok {
			missing = append(missing, r.MigrationName)
		}
	}
	if len(missing) > 0 {
		return Action{Kind: Reset, Reason: fmt.Sprintf(
			"drift detected: the following migration(s) are applied to the database but missing from the local migrations directory: %s",
			joinNames(missing))}, nil
	}

	// Step 2: checksum mismatch.
	for _, r := range appliedRows {
		m := onDisk[r.MigrationName]
		if m.Checksum != r.Checksum {
			return Action{Kind: Reset, Reason: fmt.Sprintf(
				"the migration `%s` was modified after it was applied", r.MigrationName)}, nil
		}
	}

	// Step 3: a failed migration row exists.
	for _, r := range rows {
		if r.IsFailed() {
			return Action{Kind: Reset, Reason: fmt.Sprintf(
				"the migration `%s` failed", r.MigrationName)}, nil
		}
	}

	// Step 4: applied prefix and on-disk prefix diverge.
	onDiskNames := history.Names(migrations)
	commonLen := 0
	for commonLen < len(appliedRows) && commonLen < len(onDiskNames) {
		if appliedRows[commonLen].MigrationName != onDiskNames[commonLen] {
			break
		}
		commonLen++
	}
	if commonLen < len(appliedRows) {
		var lastCommon string
		if commonLen > 0 {
			lastCommon = appliedRows[commonLen-1].MigrationName
		}
		var dbOnly []string
		for _, r := range appliedRows[commonLen:] {
			dbOnly = append(dbOnly, r.MigrationName)
		}
		return Action{Kind: Reset, Reason: fmt.Sprintf(
			"the migration history diverges after `%s`; the following migration(s) exist only in the database: %s",
			lastCommon, joinNames(dbOnly))}, nil
	}

	// Step 5: replay history against a shadow database, introspect the
	// live database, and diff the two.
	if in.Shadow != nil {
		driftAction, err := diagnoseDrift(ctx, in, migrations)
		if err != nil {
			return Action{}, err
		}
		if driftAction != nil {
			return *driftAction, nil
		}
	}

	return Action{Kind: CreateMigration}, nil
}

func diagnoseDrift(ctx context.Context, in Input, migrations []history.Migration) (*Action, error) {
	sh, err := in.Shadow(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagnostic: prepare shadow database: %w", err)
	}
	defer func() { _ = sh.Close() }()

	for _, m := range migrations {
		if err := apply.ValidateSyntax(m.SQL); err != nil {
			return nil, fmt.Errorf("diagnostic: migration %s does not parse: %w", m.Name, err)
		}
		if _, err := sh.DB.ExecContext(ctx, m.SQL); err != nil {
			return nil, fmt.Errorf("diagnostic: replay %s against shadow database: %w", m.Name, err)
		}
	}

	if in.Flavour.Introspector == nil {
		return nil, fmt.Errorf("diagnostic: dialect %s has no introspector wired", in.Dialect)
	}

	shadowSchema, err := in.Flavour.Introspector.IntrospectSchema(ctx, sh.DB, in.Namespaces)
	if err != nil {
		return nil, fmt.Errorf("diagnostic: introspect shadow database: %w", err)
	}
	liveSchema, err := in.Flavour.Introspector.IntrospectSchema(ctx, in.DB, in.Namespaces)
	if err != nil {
		return nil, fmt.Errorf("diagnostic: introspect live database: %w", err)
	}
	stripMigrationsTable(liveSchema)
	stripMigrationsTable(shadowSchema)

	steps := differ.Diff(liveSchema, shadowSchema, in.Flavour)
	if len(steps) == 0 {
		return nil, nil
	}

	hasHistoryTable := false
	for _, t := range liveSchema.Tables {
		if t.Name == state.TableName {
			hasHistoryTable = true
			break
		}
	}

	reason := "Drift detected: Your database schema is not in sync with your migration history."
	if !hasHistoryTable {
		reason += " This looks like the first time dev_diagnostic has run against this database; it has no migration history table yet."
	}
	return &Action{Kind: Reset, Reason: reason}, nil
}

// stripMigrationsTable removes the bookkeeping table itself from a schema
// before diffing, since it is engine-managed and never part of the user's
// data model (spec §4.5 "ignored objects").
func stripMigrationsTable(schema *ir.SqlSchema) {
	kept := schema.Tables[:0]
	for _, t := range schema.Tables {
		if t.Name != state.TableName {
			kept = append(kept, t)
		}
	}
	schema.Tables = kept
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}
