package locks

import (
	"fmt"
	"regexp"
	"strings"
)

// SaferRewrite is a lock-safer alternative to a rendered DDL statement.
type SaferRewrite struct {
	Description           string
	SQL                   []string
	LockMode              LockMode
	EstimatedDurationMS   int64
	Tradeoffs             []string
	RequiresMultipleSteps bool
	Notes                 string
}

// GenerateSaferRewrite attempts to produce a lock-safer alternative for
// one step's rendered statements. Returns nil if none of the known
// patterns apply.
func GenerateSaferRewrite(statements []string) *SaferRewrite {
	sql := strings.TrimSpace(firstStatement(statements))
	if sql == "" {
		return nil
	}
	sqlUpper := strings.ToUpper(sql)

	if rewrite := rewriteCreateIndex(sql, sqlUpper); rewrite != nil {
		return rewrite
	}
	if rewrite := rewriteAddConstraint(sql, sqlUpper); rewrite != nil {
		return rewrite
	}
	if rewrite := suggestMultiPhaseForAlterType(sql, sqlUpper); rewrite != nil {
		return rewrite
	}
	return nil
}

func rewriteCreateIndex(sql, sqlUpper string) *SaferRewrite {
	if strings.Contains(sqlUpper, "CONCURRENTLY") {
		return nil
	}
	if !strings.HasPrefix(sqlUpper, "CREATE INDEX") && !strings.HasPrefix(sqlUpper, "CREATE UNIQUE INDEX") {
		return nil
	}

	var rewritten string
	if strings.HasPrefix(sqlUpper, "CREATE UNIQUE INDEX") {
		rewritten = regexp.MustCompile(`(?i)^(CREATE\s+UNIQUE\s+INDEX)`).ReplaceAllString(sql, "$1 CONCURRENTLY")
	} else {
		rewritten = regexp.MustCompile(`(?i)^(CREATE\s+INDEX)`).ReplaceAllString(sql, "$1 CONCURRENTLY")
	}

	return &SaferRewrite{
		Description: "Use CREATE INDEX CONCURRENTLY to avoid blocking writes",
		SQL:         []string{rewritten},
		LockMode:    LockShareUpdateExclusive,
		Tradeoffs: []string{
			"Takes longer to build (requires multiple table scans)",
			"Cannot run inside a transaction",
			"May create an invalid index if interrupted; monitor completion",
			"Allows concurrent INSERT/UPDATE/DELETE during build",
		},
		Notes: "Monitor index creation: SELECT * FROM pg_stat_progress_create_index",
	}
}

func rewriteAddConstraint(sql, sqlUpper string) *SaferRewrite {
	if !strings.Contains(sqlUpper, "ALTER TABLE") || !strings.Contains(sqlUpper, "ADD CONSTRAINT") {
		return nil
	}
	if strings.Contains(sqlUpper, "NOT VALID") || strings.Contains(sqlUpper, "VALIDATE CONSTRAINT") {
		return nil
	}

	tableName := extractTableName(sql)
	if tableName == "" {
		return nil
	}
	constraintName := extractConstraintName(sql)

	phase1 := strings.TrimSuffix(strings.TrimSpace(sql), ";") + " NOT VALID;"
	phase2 := fmt.Sprintf("ALTER TABLE %s VALIDATE CONSTRAINT %s;", tableName, constraintName)

	return &SaferRewrite{
		Description: "Add the constraint in two phases: NOT VALID, then VALIDATE, to avoid a long exclusive lock",
		SQL:         []string{phase1, phase2},
		LockMode:    LockShareUpdateExclusive,
		Tradeoffs: []string{
			"Requires two separate statements",
			"Phase 1 takes a brief ACCESS EXCLUSIVE lock",
			"Phase 2 takes a longer SHARE UPDATE EXCLUSIVE lock, allowing reads and writes",
			"New rows are validated immediately; existing rows validate in phase 2",
		},
		RequiresMultipleSteps: true,
		Notes:                 "Run phase 1, then phase 2 once phase 1 has committed",
	}
}

func suggestMultiPhaseForAlterType(sql, sqlUpper string) *SaferRewrite {
	if !strings.Contains(sqlUpper, "ALTER TABLE") ||
		!strings.Contains(sqlUpper, "ALTER COLUMN") ||
		!strings.Contains(sqlUpper, "TYPE") {
		return nil
	}
	tableName := extractTableName(sql)
	columnName := extractColumnNameFromAlter(sql)
	if tableName == "" || columnName == "" {
		return nil
	}

	return &SaferRewrite{
		Description: "ALTER COLUMN TYPE can rewrite the entire table; prefer a multi-phase migration to avoid downtime",
		LockMode:    LockShareUpdateExclusive,
		Tradeoffs: []string{
			"Requires multiple phases with application deploys between them",
			"Add a new column with the new type",
			"Dual-write to both columns",
			"Backfill data into the new column",
			"Migrate reads to the new column",
			"Drop the old column",
		},
		RequiresMultipleSteps: true,
		Notes:                 fmt.Sprintf("multi-phase plan needed for %s.%s", tableName, columnName),
	}
}

// InjectLockTimeout prepends a lock_timeout setting to a statement.
func InjectLockTimeout(sql string, timeoutSeconds int) string {
	if timeoutSeconds <= 0 {
		return sql
	}
	trimmed := strings.TrimSuffix(strings.TrimSpace(sql), ";")
	return fmt.Sprintf("SET lock_timeout = '%ds'; %s;", timeoutSeconds, trimmed)
}

// ShouldRewrite reports whether a SaferRewrite should be offered for a
// step with the given lock impact.
func ShouldRewrite(impact *LockImpact) bool {
	return impact.IsHighImpact() || impact.EstimatedDurationMS > 1000 || impact.BlocksWrites
}

func extractTableName(sql string) string {
	re := regexp.MustCompile(`(?i)ALTER\s+TABLE\s+([a-zA-Z_][a-zA-Z0-9_]*)`)
	if m := re.FindStringSubmatch(sql); len(m) > 1 {
		return m[1]
	}
	return ""
}

func extractConstraintName(sql string) string {
	re := regexp.MustCompile(`(?i)ADD\s+CONSTRAINT\s+([a-zA-Z_][a-zA-Z0-9_]*)\s+`)
	if m := re.FindStringSubmatch(sql); len(m) > 1 {
		upper := strings.ToUpper(m[1])
		if upper != "CHECK" && upper != "UNIQUE" && upper != "FOREIGN" && upper != "PRIMARY" {
			return m[1]
		}
	}

	tableName := extractTableName(sql)
	if tableName == "" {
		return "constraint_name"
	}
	upperSQL := strings.ToUpper(sql)
	switch {
	case strings.Contains(upperSQL, "CHECK"):
		return tableName + "_check"
	case strings.Contains(upperSQL, "UNIQUE"):
		return tableName + "_unique"
	case strings.Contains(upperSQL, "FOREIGN KEY"):
		return tableName + "_fkey"
	default:
		return "constraint_name"
	}
}

func extractColumnNameFromAlter(sql string) string {
	re := regexp.MustCompile(`(?i)ALTER\s+COLUMN\s+([a-zA-Z_][a-zA-Z0-9_]*)`)
	if m := re.FindStringSubmatch(sql); len(m) > 1 {
		return m[1]
	}
	return ""
}
