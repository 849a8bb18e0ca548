// Package dbopen maps a connection string to a dialect and opens it,
// grounded directly on the teacher's executor.DetectDriver/
// GetSQLDriverName (internal/executor/executor.go): same prefix-sniffing
// approach, generalized from the teacher's three drivers (postgres,
// sqlite, libsql) to the dialects this engine's renderer/introspector
// pairs actually implement (Postgres, CockroachDB and SQLite, with
// libsql:// URLs opened as SQLite), defaulting unknown schemes to
// Postgres the same way the teacher does "for backward compatibility".
package dbopen

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"

	"github.com/lockforge/schemaengine/internal/engineerr"
	"github.com/lockforge/schemaengine/internal/ir"
)

// DetectDialect infers a dialect tag from a connection string's scheme,
// the way executor.DetectDriver does.
func DetectDialect(connString string) ir.Dialect {
	lower := strings.ToLower(connString)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return ir.DialectPostgres
	case strings.HasPrefix(lower, "libsql://"):
		return ir.DialectSQLite
	case strings.HasPrefix(lower, "sqlite://"),
		strings.HasPrefix(lower, "file:"),
		strings.HasSuffix(lower, ".db"),
		strings.HasSuffix(lower, ".sqlite"),
		strings.HasSuffix(lower, ".sqlite3"),
		lower == ":memory:":
		return ir.DialectSQLite
	default:
		return ir.DialectPostgres
	}
}

func sqlDriverName(dialect ir.Dialect) (string, error) {
	switch dialect {
	case ir.DialectPostgres, ir.DialectCockroach:
		return "postgres", nil
	case ir.DialectSQLite:
		return "sqlite", nil
	default:
		return "", fmt.Errorf("dbopen: no sql.DB driver registered for dialect %s", dialect)
	}
}

// Open dials connString, picking the registered database/sql driver for
// its detected dialect.
func Open(ctx context.Context, connString string) (*sql.DB, error) {
	driverName, err := sqlDriverName(DetectDialect(connString))
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, normalizeForDriver(driverName, connString))
	if err != nil {
		// Whatever the driver rejected about the DSN at this point has no
		// named shape in spec §7; it isn't a shadow DB, a migration, or a
		// data-model conversion failure, so it falls to the catch-all.
		return nil, engineerr.NewRaw(err, fmt.Sprintf("dbopen: open %s", driverName))
	}
	return db, nil
}

// normalizeForDriver strips URL schemes the Go driver itself doesn't
// expect (modernc.org/sqlite takes a bare path, not a sqlite:// URL).
func normalizeForDriver(driverName, connString string) string {
	if driverName == "sqlite" {
		for _, prefix := range []string{"sqlite://", "file:"} {
			if strings.HasPrefix(connString, prefix) {
				return strings.TrimPrefix(connString, prefix)
			}
		}
	}
	return connString
}
