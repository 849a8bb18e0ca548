// Package checker classifies every step a differ run produces as
// Safe, Warning, or Unexecutable (spec §4.8), grounded on the teacher's
// internal/locks/detector.go pattern-matching approach but generalized
// from "classify lock mode from SQL text" to "classify data-loss risk
// from a typed ir.MigrationStep" — a strictly richer input than the
// teacher had, since the teacher only ever saw rendered SQL. Lock-impact
// metadata is attached to every non-Safe diagnostic by calling back into
// internal/locks, exercising that package's detector instead of leaving
// it wired only to CLI display.
package checker

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/lockforge/schemaengine/internal/flavour"
	"github.com/lockforge/schemaengine/internal/ir"
	"github.com/lockforge/schemaengine/internal/locks"
)

// Severity is the three-valued classification spec §4.8 names.
type Severity string

const (
	Safe         Severity = "safe"
	Warning      Severity = "warning"
	Unexecutable Severity = "unexecutable"
)

// Diagnostic is one finding attached to a single migration step. The
// full ordered slice of Diagnostics for a migration is its
// DestructiveChangeDiagnostics (spec §4.8).
type Diagnostic struct {
	Severity  Severity
	Message   string
	StepIndex int
	Lock      *locks.LockImpact
}

// Checker evaluates a step list against the schemas the differ compared
// it from, optionally querying row counts on db to suppress warnings on
// tables that are actually empty. db may be nil — in that case every
// row-count-gated check assumes the table is non-empty, the safer
// default per spec §4.8 ("the checker may issue queries to suppress
// warnings", implying it must still warn without them).
type Checker struct {
	prev, next *ir.SqlSchema
	fl         *flavour.Flavour
	db         *sql.DB
}

// New builds a Checker for one differ run. db is the live connection
// used for COUNT(*) suppression queries; pass nil to skip suppression
// entirely (e.g. when checking a migration before a connection exists).
func New(prev, next *ir.SqlSchema, fl *flavour.Flavour, db *sql.DB) *Checker {
	return &Checker{prev: prev, next: next, fl: fl, db: db}
}

// Check classifies every step, in order, attaching lock-impact metadata
// to every diagnostic whose severity is above Safe.
func (c *Checker) Check(ctx context.Context, steps []ir.MigrationStep) ([]Diagnostic, error) {
	var diags []Diagnostic
	for i, step := range steps {
		d, err := c.checkStep(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("check step %d: %w", i, err)
		}
		d.StepIndex = i
		if d.Severity != Safe {
			d.Lock = c.lockImpact(step)
		}
		diags = append(diags, d)
	}
	return diags, nil
}

func (c *Checker) checkStep(ctx context.Context, step ir.MigrationStep) (Diagnostic, error) {
	switch step.Kind {
	case ir.StepDropTable:
		return c.checkDropTable(ctx, step)
	case ir.StepAlterTable:
		return c.checkAlterTable(ctx, step)
	case ir.StepRedefineTables:
		return c.checkRedefineTables(ctx, step)
	case ir.StepAlterEnum:
		return c.checkAlterEnum(step)
	default:
		return safe(), nil
	}
}

func safe() Diagnostic { return Diagnostic{Severity: Safe, Message: "no data loss"} }

func (c *Checker) checkDropTable(ctx context.Context, step ir.MigrationStep) (Diagnostic, error) {
	t, _ := c.prev.Table(step.TableID)
	n, err := c.rowCount(ctx, c.prev, step.TableID)
	if err != nil {
		return Diagnostic{}, err
	}
	if n == 0 {
		return safe(), nil
	}
	return Diagnostic{
		Severity: Warning,
		Message:  fmt.Sprintf("dropping table %q loses %s row(s) of data", t.Name, humanize.Comma(n)),
	}, nil
}

func (c *Checker) checkAlterEnum(step ir.MigrationStep) (Diagnostic, error) {
	if len(step.EnumRemoved) == 0 {
		return safe(), nil
	}
	return Diagnostic{
		Severity: Warning,
		Message:  fmt.Sprintf("removing enum value(s) %v breaks any row still storing one of them", step.EnumRemoved),
	}, nil
}

func (c *Checker) checkRedefineTables(ctx context.Context, step ir.MigrationStep) (Diagnostic, error) {
	var worst Diagnostic = safe()
	var messages []string

	for _, rt := range step.RedefineTables {
		nextCols := map[string]bool{}
		for _, col := range c.next.Walk(rt.NextTableID).Columns() {
			nextCols[col.Name] = true
		}
		// ColumnCasts maps a surviving next-schema column id to the
		// previous column name it projects from; a renamed column shows
		// up here under its old name even though it has no same-named
		// match in nextCols, so it must not be counted as dropped.
		renamedFrom := map[string]bool{}
		for _, prevName := range rt.ColumnCasts {
			renamedFrom[prevName] = true
		}
		var dropped []string
		for _, col := range c.prev.Walk(rt.PreviousTableID).Columns() {
			if !nextCols[col.Name] && !renamedFrom[col.Name] {
				dropped = append(dropped, col.Name)
			}
		}

		n, err := c.rowCount(ctx, c.prev, rt.PreviousTableID)
		if err != nil {
			return Diagnostic{}, err
		}
		t, _ := c.prev.Table(rt.PreviousTableID)
		if len(dropped) > 0 && n > 0 {
			messages = append(messages, fmt.Sprintf("rewriting table %q drops column(s) %v, losing %s row(s)", t.Name, dropped, humanize.Comma(n)))
			worst = Diagnostic{Severity: Warning}
		} else if n > 0 {
			messages = append(messages, fmt.Sprintf("table %q is rewritten in place (%s row(s)); this is a full table copy", t.Name, humanize.Comma(n)))
			if worst.Severity == Safe {
				worst = Diagnostic{Severity: Warning}
			}
		}
	}

	if len(messages) == 0 {
		return safe(), nil
	}
	worst.Message = fmt.Sprintf("%v", messages)
	return worst, nil
}

func (c *Checker) checkAlterTable(ctx context.Context, step ir.MigrationStep) (Diagnostic, error) {
	at := step.AlterTable
	if at == nil || len(at.Changes) == 0 {
		return safe(), nil
	}

	worst := Safe
	var messages []string
	note := func(sev Severity, msg string) {
		messages = append(messages, msg)
		if severityRank(sev) > severityRank(worst) {
			worst = sev
		}
	}

	for _, ch := range at.Changes {
		switch ch.Kind {
		case ir.ChangeDropColumn:
			col, _ := c.prev.Column(ch.PreviousColumnID)
			n, err := c.rowCount(ctx, c.prev, at.PreviousTableID)
			if err != nil {
				return Diagnostic{}, err
			}
			if n > 0 {
				note(Warning, fmt.Sprintf("dropping column %q loses %s row(s) of data", col.Name, humanize.Comma(n)))
			}

		case ir.ChangeDropAndRecreateColumn:
			col, _ := c.prev.Column(ch.PreviousColumnID)
			n, err := c.rowCount(ctx, c.prev, at.PreviousTableID)
			if err != nil {
				return Diagnostic{}, err
			}
			if n > 0 {
				note(Warning, fmt.Sprintf("column %q is dropped and recreated, losing %s row(s) of existing values", col.Name, humanize.Comma(n)))
			}

		case ir.ChangeAddColumn:
			col, _ := c.next.Column(ch.NextColumnID)
			if col.Type.Arity != ir.ArityRequired || ch.HasVirtualDefault {
				continue
			}
			if _, hasDefault := c.next.DefaultFor(col.ID); hasDefault {
				continue
			}
			n, err := c.rowCount(ctx, c.prev, at.PreviousTableID)
			if err != nil {
				return Diagnostic{}, err
			}
			if n > 0 {
				note(Unexecutable, fmt.Sprintf("adding required column %q with no default violates NOT NULL on %s existing row(s)", col.Name, humanize.Comma(n)))
			}

		case ir.ChangeAddPrimaryKey:
			n, err := c.rowCount(ctx, c.prev, at.PreviousTableID)
			if err != nil {
				return Diagnostic{}, err
			}
			if n > 0 {
				note(Warning, fmt.Sprintf("adding a primary key scans %s existing row(s) and fails if any duplicate exists", humanize.Comma(n)))
			}

		case ir.ChangeAlterColumn:
			col, _ := c.next.Column(ch.NextColumnID)

			if ch.Changes.Has(ir.ChangeTypeChanged) {
				switch ch.TypeChange {
				case ir.NotCastable:
					note(Unexecutable, fmt.Sprintf("column %q changes to a type with no cast path", col.Name))
				case ir.RiskyCast:
					note(Warning, fmt.Sprintf("column %q changes type via a risky cast that may fail or truncate data", col.Name))
				}
			}

			if ch.Changes.Has(ir.ChangeNotNullAdded) {
				n, err := c.rowCount(ctx, c.prev, at.PreviousTableID)
				if err != nil {
					return Diagnostic{}, err
				}
				_, hasDefault := c.next.DefaultFor(col.ID)
				switch {
				case n == 0:
					// nothing to validate against
				case !hasDefault:
					note(Unexecutable, fmt.Sprintf("column %q becomes required with no default, violating NOT NULL on %s existing row(s)", col.Name, humanize.Comma(n)))
				default:
					note(Warning, fmt.Sprintf("column %q becomes required on a non-empty table (%s row(s)); existing NULLs backfill from the default", col.Name, humanize.Comma(n)))
				}
			}
		}
	}

	if len(messages) == 0 {
		return safe(), nil
	}
	return Diagnostic{Severity: worst, Message: fmt.Sprintf("%v", messages)}, nil
}

func severityRank(s Severity) int {
	switch s {
	case Unexecutable:
		return 2
	case Warning:
		return 1
	default:
		return 0
	}
}

// rowCount queries the live row count of a table, via the dialect's
// CountRows hook, for warning suppression. Returns a conservative
// non-zero estimate (1) when no db/hook is wired, so checks still fire.
func (c *Checker) rowCount(ctx context.Context, schema *ir.SqlSchema, tableID ir.ID) (int64, error) {
	if c.db == nil || c.fl.Destructive.CountRows == nil {
		return 1, nil
	}
	t, ok := schema.Table(tableID)
	if !ok {
		return 1, nil
	}
	ns := ""
	for _, n := range schema.Namespaces {
		if n.ID == t.NamespaceID {
			ns = n.Name
			break
		}
	}
	n, err := c.fl.Destructive.CountRows(ctx, c.db, ns, t.Name)
	if err != nil {
		return 0, fmt.Errorf("count rows in %s: %w", t.Name, err)
	}
	return n, nil
}

// lockImpact renders the step in isolation and classifies its lock mode,
// attaching the result to any diagnostic above Safe.
func (c *Checker) lockImpact(step ir.MigrationStep) *locks.LockImpact {
	ddl, err := c.fl.Renderer.RenderStep(c.prev, c.next, step)
	if err != nil || ddl == "" {
		return nil
	}
	return locks.AnalyzeLockImpact(step.Description, splitStatements(ddl))
}

func splitStatements(ddl string) []string {
	var out []string
	start := 0
	for i := 0; i < len(ddl); i++ {
		if ddl[i] == '\n' {
			out = append(out, ddl[start:i])
			start = i + 1
		}
	}
	out = append(out, ddl[start:])
	return out
}
