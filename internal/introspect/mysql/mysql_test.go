package mysql

import (
	"context"
	"errors"
	"testing"

	"github.com/lockforge/schemaengine/internal/flavour"
)

func TestIntrospector_AlwaysReportsNotImplemented(t *testing.T) {
	in := &Introspector{}
	if _, err := in.IntrospectSchema(context.Background(), nil, nil); !errors.Is(err, flavour.ErrDialectNotImplemented) {
		t.Errorf("IntrospectSchema() error = %v, want %v", err, flavour.ErrDialectNotImplemented)
	}
}
