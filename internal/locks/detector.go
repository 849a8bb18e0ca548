package locks

import "strings"

// DetectLockMode classifies the Postgres lock mode one rendered step's
// DDL text acquires, by pattern-matching the leading statement the same
// way the teacher's detector.go does — adapted from a planner.PlanStep
// input (this engine has no planner package) to the renderer's
// []string-of-statements shape, with only the first statement inspected
// per step, matching the teacher's own step.SQL[0] convention.
func DetectLockMode(statements []string) LockMode {
	sql := firstStatement(statements)
	if sql == "" {
		return LockAccessShare
	}
	sqlUpper := strings.ToUpper(sql)

	if strings.HasPrefix(sqlUpper, "CREATE INDEX") || strings.HasPrefix(sqlUpper, "CREATE UNIQUE INDEX") {
		if strings.Contains(sqlUpper, "CONCURRENTLY") {
			return LockShareUpdateExclusive
		}
		return LockShare
	}

	if strings.HasPrefix(sqlUpper, "ALTER TABLE") {
		if strings.Contains(sqlUpper, "ADD CONSTRAINT") {
			// ADD CONSTRAINT NOT VALID still takes a brief ACCESS EXCLUSIVE
			// while the constraint row is added; the cheaper SHARE UPDATE
			// EXCLUSIVE only applies to the later VALIDATE CONSTRAINT.
			return LockAccessExclusive
		}
		if strings.Contains(sqlUpper, "VALIDATE CONSTRAINT") {
			return LockShareUpdateExclusive
		}
		return LockAccessExclusive
	}

	if strings.HasPrefix(sqlUpper, "DROP TABLE") ||
		strings.HasPrefix(sqlUpper, "DROP INDEX") ||
		strings.HasPrefix(sqlUpper, "TRUNCATE") {
		return LockAccessExclusive
	}

	if strings.HasPrefix(sqlUpper, "CREATE TABLE") {
		return LockAccessShare
	}

	if strings.HasPrefix(sqlUpper, "INSERT") ||
		strings.HasPrefix(sqlUpper, "UPDATE") ||
		strings.HasPrefix(sqlUpper, "DELETE") {
		return LockRowExclusive
	}

	if strings.HasPrefix(sqlUpper, "SELECT") {
		return LockAccessShare
	}

	return LockAccessExclusive
}

// AnalyzeLockImpact returns the enriched lock-impact description for one
// step, given a short operation label (the step's Description) and its
// rendered DDL statements.
func AnalyzeLockImpact(operation string, statements []string) *LockImpact {
	mode := DetectLockMode(statements)
	return &LockImpact{
		Operation:    operation,
		LockMode:     mode,
		BlocksReads:  mode.BlocksReads(),
		BlocksWrites: mode.BlocksWrites(),
		Impact:       mode.ImpactLevel(),
		Explanation:  explainLockMode(statements, mode),
	}
}

// explainLockMode gives a human-readable reason for the classified lock.
func explainLockMode(statements []string, mode LockMode) string {
	sql := firstStatement(statements)
	if sql == "" {
		return "No SQL operations"
	}
	sqlUpper := strings.ToUpper(sql)

	switch mode {
	case LockAccessExclusive:
		if strings.Contains(sqlUpper, "ALTER TABLE") {
			if strings.Contains(sqlUpper, "ADD COLUMN") {
				if containsDefault(sqlUpper) {
					return "ALTER TABLE ADD COLUMN with DEFAULT requires rewriting the entire table"
				}
				return "ALTER TABLE requires exclusive access to modify table structure"
			}
			if strings.Contains(sqlUpper, "DROP COLUMN") {
				return "DROP COLUMN requires exclusive access to modify table structure"
			}
			if strings.Contains(sqlUpper, "ALTER COLUMN") && strings.Contains(sqlUpper, "TYPE") {
				return "Changing column type may require rewriting the entire table"
			}
			if strings.Contains(sqlUpper, "ADD CONSTRAINT") {
				return "ADD CONSTRAINT scans all existing rows to validate the constraint"
			}
			return "ALTER TABLE operation requires exclusive access"
		}
		if strings.Contains(sqlUpper, "DROP TABLE") {
			return "DROP TABLE requires exclusive access to remove the table"
		}
		if strings.Contains(sqlUpper, "TRUNCATE") {
			return "TRUNCATE requires exclusive access to delete all rows"
		}
		return "This operation requires exclusive table access"

	case LockShare:
		if strings.Contains(sqlUpper, "CREATE INDEX") && !strings.Contains(sqlUpper, "CONCURRENTLY") {
			return "CREATE INDEX requires SHARE lock, blocking writes during index build"
		}
		return "This operation blocks writes but allows reads"

	case LockShareUpdateExclusive:
		if strings.Contains(sqlUpper, "CONCURRENTLY") {
			return "CREATE INDEX CONCURRENTLY allows concurrent reads and writes"
		}
		if strings.Contains(sqlUpper, "VALIDATE CONSTRAINT") {
			return "VALIDATE CONSTRAINT allows concurrent reads and writes"
		}
		return "This operation allows concurrent reads and writes"

	case LockRowExclusive:
		return "Normal DML operation (INSERT/UPDATE/DELETE)"

	case LockAccessShare:
		return "Read-only operation"

	default:
		return "Standard locking for this operation type"
	}
}

func containsDefault(sqlUpper string) bool {
	return strings.Contains(sqlUpper, "DEFAULT")
}

func firstStatement(statements []string) string {
	for _, s := range statements {
		if t := strings.TrimSpace(s); t != "" {
			return t
		}
	}
	return ""
}

// IsCreateIndexConcurrently reports whether the statements create an
// index with CONCURRENTLY, which cannot run inside a transaction.
func IsCreateIndexConcurrently(statements []string) bool {
	sqlUpper := strings.ToUpper(firstStatement(statements))
	return strings.HasPrefix(sqlUpper, "CREATE INDEX CONCURRENTLY") ||
		strings.HasPrefix(sqlUpper, "CREATE UNIQUE INDEX CONCURRENTLY")
}

// IsAddConstraintNotValid reports whether the statements add a
// constraint with NOT VALID.
func IsAddConstraintNotValid(statements []string) bool {
	sqlUpper := strings.ToUpper(firstStatement(statements))
	return strings.Contains(sqlUpper, "ADD CONSTRAINT") && strings.Contains(sqlUpper, "NOT VALID")
}

// IsValidateConstraint reports whether the statements validate a
// previously NOT VALID constraint.
func IsValidateConstraint(statements []string) bool {
	sqlUpper := strings.ToUpper(firstStatement(statements))
	return strings.Contains(sqlUpper, "VALIDATE CONSTRAINT")
}
