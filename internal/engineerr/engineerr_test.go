package engineerr

import (
	"errors"
	"testing"
)

func TestIsUserFacing(t *testing.T) {
	err := NewUserFacing(CodeDatasourceConfigInvalid, "bad url %q", "postgres://")
	if !IsUserFacing(err) {
		t.Error("expected IsUserFacing to report true for a UserFacing error")
	}
	if IsUserFacing(errors.New("plain")) {
		t.Error("expected IsUserFacing to report false for a plain error")
	}
}

func TestIsUserFacing_ThroughWrapping(t *testing.T) {
	inner := NewUserFacing(CodeDatasourceConfigInvalid, "bad url")
	wrapped := &MigrationDoesNotApplyCleanly{MigrationName: "x", Inner: inner}
	if !IsUserFacing(wrapped) {
		t.Error("expected IsUserFacing to see through Unwrap()")
	}
}

func TestIsInternal(t *testing.T) {
	err := NewInternalError("differ produced a step with no table")
	if !IsInternal(err) {
		t.Error("expected IsInternal to report true for an InternalError")
	}
	if IsInternal(errors.New("plain")) {
		t.Error("expected IsInternal to report false for a plain error")
	}
}

func TestShadowDbCreationError_KnownHostGuidance(t *testing.T) {
	err := &ShadowDbCreationError{Cause: errors.New("permission denied"), KnownHost: "azure-sql"}
	if got := err.Error(); got == "" {
		t.Fatal("expected a non-empty message")
	}
	if !errors.Is(errors.Unwrap(err), err.Cause) {
		t.Error("expected Unwrap to return the cause")
	}
}

func TestMigrationDoesNotApplyCleanly_Unwrap(t *testing.T) {
	cause := errors.New("syntax error")
	err := &MigrationDoesNotApplyCleanly{MigrationName: "20240101000000_init", Inner: cause}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to see through to the inner cause")
	}
}

func TestMigrationDoesNotApplyCleanly_MessageIncludesDBCode(t *testing.T) {
	err := &MigrationDoesNotApplyCleanly{
		MigrationName: "20240101000000_init",
		Inner:         errors.New(`relation "Dog" does not exist`),
		DBCode:        "42P01",
	}
	if got := err.Error(); got == "" || !errors.Is(err, err.Inner) {
		t.Fatalf("Error() = %q", got)
	}
	withoutCode := &MigrationDoesNotApplyCleanly{MigrationName: "20240101000000_init", Inner: err.Inner}
	if err.Error() == withoutCode.Error() {
		t.Error("expected a present DBCode to change the rendered message")
	}
}

func TestConversion_Unwrap(t *testing.T) {
	cause := errors.New("invalid port")
	err := NewConversion("postgres://bad", cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to see through to the cause")
	}
}
