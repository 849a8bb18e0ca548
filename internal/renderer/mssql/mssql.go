// Package mssql is a placeholder renderer for a dialect the teacher
// never implemented (see DESIGN.md's introspection-gap entry).
package mssql

import (
	"github.com/lockforge/schemaengine/internal/flavour"
	"github.com/lockforge/schemaengine/internal/ir"
)

// Renderer implements flavour.Renderer by always reporting not-implemented.
type Renderer struct{}

func (r *Renderer) Render(prev, next *ir.SqlSchema, steps []ir.MigrationStep) (string, error) {
	return "", flavour.ErrDialectNotImplemented
}

func (r *Renderer) RenderStep(prev, next *ir.SqlSchema, step ir.MigrationStep) (string, error) {
	return "", flavour.ErrDialectNotImplemented
}
