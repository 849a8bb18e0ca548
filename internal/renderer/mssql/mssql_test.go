package mssql

import (
	"errors"
	"testing"

	"github.com/lockforge/schemaengine/internal/flavour"
	"github.com/lockforge/schemaengine/internal/ir"
)

func TestRenderer_AlwaysReportsNotImplemented(t *testing.T) {
	r := &Renderer{}
	if _, err := r.Render(nil, nil, nil); !errors.Is(err, flavour.ErrDialectNotImplemented) {
		t.Errorf("Render() error = %v, want %v", err, flavour.ErrDialectNotImplemented)
	}
	if _, err := r.RenderStep(nil, nil, ir.MigrationStep{}); !errors.Is(err, flavour.ErrDialectNotImplemented) {
		t.Errorf("RenderStep() error = %v, want %v", err, flavour.ErrDialectNotImplemented)
	}
}
