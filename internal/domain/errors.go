package domain

import (
	"errors"
	"strings"
)

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConflict            = errors.New("conflict")
	ErrPreconditionFailed  = errors.New("precondition failed")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrExternalDependency  = errors.New("external dependency failed")
	ErrIdempotencyRequired = errors.New("idempotency key required")
	ErrIdempotencyConflict = errors.New("idempotency conflict")
	ErrNDARequired         = errors.New("nda acceptance required")
)

type FieldViolation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError aggregates every violation found in one pass so callers
// see the complete set of offending fields, not only the first.
type ValidationError struct {
	Violations []FieldViolation
}

func NewValidationError(violations ...FieldViolation) *ValidationError {
	return &ValidationError{Violations: violations}
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return ErrInvalidInput.Error()
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Reason)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// AsValidationError unwraps err into a *ValidationError when present.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
