// Package mysql is a placeholder introspector for a dialect the teacher
// never implemented (see DESIGN.md's introspection-gap entry).
package mysql

import (
	"context"
	"database/sql"

	"github.com/lockforge/schemaengine/internal/flavour"
	"github.com/lockforge/schemaengine/internal/ir"
)

// Introspector implements flavour.Introspector by always reporting not-implemented.
type Introspector struct{}

func (in *Introspector) IntrospectSchema(ctx context.Context, db *sql.DB, namespaces []string) (*ir.SqlSchema, error) {
	return nil, flavour.ErrDialectNotImplemented
}
