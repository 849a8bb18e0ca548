// Package mongodb is a placeholder introspector: MongoDB has no SQL
// catalog to walk with database/sql, so it can never share the
// flavour.Introspector contract the relational dialects use (see
// DESIGN.md's introspection-gap entry). Kept as a named stub; the flavour
// registry does not register it for the mongodb dialect tag.
package mongodb

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
