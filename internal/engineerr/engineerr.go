// Package engineerr implements the second and third layers of the error
// taxonomy spec §7 names (the first, data-model Diagnostics, lives in
// internal/datamodel). It lifts the teacher's consistent
// `fmt.Errorf("...: %w", err)` wrapping discipline — visible throughout
// internal/executor/executor.go and internal/state/state.go — into named
// error types a caller can switch on with errors.As, instead of parsing
// error strings.
package engineerr

import (
	"errors"
	"fmt"
)

// Code is a stable, user-facing error identifier (spec §7: "UserFacing
// (knownError) (stable error code + template)").
type Code string

const (
	CodeShadowDbCreationFailed    Code = "P3001" // mirrors familiar schema-engine-style numbering so messages read naturally
	CodeMigrationDoesNotApply     Code = "P3006"
	CodeDatasourceConfigInvalid   Code = "P1001"
	CodeManagedServiceNoShadowDB  Code = "P3014"
	CodeAdvisoryLockUnavailable   Code = "P3015"
)

// UserFacing is a connector error with a stable code and a message meant
// to be surfaced to an operator verbatim (spec §7 layer 2: "User-facing
// errors are surfaced verbatim to callers").
type UserFacing struct {
	Code    Code
	Message string
}

func (e *UserFacing) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewUserFacing builds a UserFacing error with a formatted message.
func NewUserFacing(code Code, format string, args ...any) *UserFacing {
	return &UserFacing{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Conversion wraps a URL/config parse failure, keeping the offending
// source text for the caller to echo back (spec §7: "Conversion(cause,
// source_text)").
type Conversion struct {
	SourceText string
	Cause      error
}

func (e *Conversion) Error() string {
	return fmt.Sprintf("failed to parse %q: %v", e.SourceText, e.Cause)
}

func (e *Conversion) Unwrap() error { return e.Cause }

// NewConversion builds a Conversion error.
func NewConversion(sourceText string, cause error) *Conversion {
	return &Conversion{SourceText: sourceText, Cause: cause}
}

// ShadowDbCreationError reports a shadow database that could not be
// created (spec §7, §4.9.3). Known-host is set for the dedicated guidance
// case spec §7 calls for: "Shadow-DB creation failure on known hosted
// environments (e.g. Azure SQL) maps to a dedicated known-error-code with
// operator guidance."
type ShadowDbCreationError struct {
	Cause     error
	KnownHost string // e.g. "azure-sql"; empty if the host isn't recognized
}

func (e *ShadowDbCreationError) Error() string {
	if e.KnownHost != "" {
		return fmt.Sprintf("%s: could not create a shadow database on %s; supply one explicitly via the shadow database URL setting: %v",
			CodeManagedServiceNoShadowDB, e.KnownHost, e.Cause)
	}
	return fmt.Sprintf("%s: could not create a shadow database: %v", CodeShadowDbCreationFailed, e.Cause)
}

func (e *ShadowDbCreationError) Unwrap() error { return e.Cause }

// MigrationDoesNotApplyCleanly reports a migration script that failed
// during apply or a dev-diagnostic replay (spec §7:
// "MigrationDoesNotApplyCleanly{migration_name, inner}"). DBCode and
// DBPosition carry the driver's own SQLSTATE and byte-offset-into-
// statement, when the failure came from a driver that reports them (e.g.
// lib/pq's *pq.Error) — empty when the driver gave no such structure.
type MigrationDoesNotApplyCleanly struct {
	MigrationName string
	Inner         error
	DBCode        string
	DBPosition    string
}

func (e *MigrationDoesNotApplyCleanly) Error() string {
	if e.DBCode != "" {
		return fmt.Sprintf("%s: migration `%s` does not apply cleanly (%s): %v", CodeMigrationDoesNotApply, e.MigrationName, e.DBCode, e.Inner)
	}
	return fmt.Sprintf("%s: migration `%s` does not apply cleanly: %v", CodeMigrationDoesNotApply, e.MigrationName, e.Inner)
}

func (e *MigrationDoesNotApplyCleanly) Unwrap() error { return e.Inner }

// Raw is the catch-all connector error variant (spec §7: "Raw(msg)") for
// failures with no more specific shape — wrapped with a trace rather than
// surfaced verbatim, per spec §7's "non-user-facing errors are wrapped
// with a trace".
type Raw struct {
	Cause error
	Trace string
}

func (e *Raw) Error() string {
	return fmt.Sprintf("%s\n%s", e.Cause, e.Trace)
}

func (e *Raw) Unwrap() error { return e.Cause }

// NewRaw wraps cause with the caller's trace note (a short description of
// where the failure occurred, not a full stack trace — this engine never
// captures runtime.Stack, matching the teacher's own plain-error style).
func NewRaw(cause error, trace string) *Raw {
	return &Raw{Cause: cause, Trace: trace}
}

// InternalError reports an invariant violation in the differ or
// calculator (spec §7 layer 3): these are bugs, and callers should not
// try to recover from them.
type InternalError struct {
	Description string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %s", e.Description)
}

// NewInternalError builds an InternalError with a formatted description.
func NewInternalError(format string, args ...any) *InternalError {
	return &InternalError{Description: fmt.Sprintf(format, args...)}
}

// IsUserFacing reports whether err (or anything it wraps) is a UserFacing
// error, the signal a caller uses to decide whether a message can go
// straight to an operator unmodified.
func IsUserFacing(err error) bool {
	var uf *UserFacing
	return errors.As(err, &uf)
}

// IsInternal reports whether err (or anything it wraps) is an
// InternalError — a bug, not a condition to retry or work around.
func IsInternal(err error) bool {
	var ie *InternalError
	return errors.As(err, &ie)
}
