package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrPermission   = errors.New("permission denied")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("concurrent modification")
	ErrTemporary    = errors.New("temporary failure")

	// ErrClearanceRequired and ErrPrecondition are specializations of
	// ErrInvalidState: errors.Is matches both the specific and the parent kind.
	ErrClearanceRequired = fmt.Errorf("clearance required: %w", ErrInvalidState)
	ErrPrecondition      = fmt.Errorf("precondition failed: %w", ErrInvalidState)
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

// NewError builds a typed error from a plain message.
func NewError(kind error, operation, message string) error {
	return WrapError(kind, operation, errors.New(message))
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// KindOf reports the most specific known kind of err, or "internal".
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case IsKind(err, ErrClearanceRequired):
		return "clearance_required"
	case IsKind(err, ErrPrecondition):
		return "precondition_failed"
	case IsKind(err, ErrInvalidState):
		return "invalid_state"
	case IsKind(err, ErrValidation):
		return "validation"
	case IsKind(err, ErrPermission):
		return "permission_denied"
	case IsKind(err, ErrUnauthorized):
		return "unauthorized"
	case IsKind(err, ErrNotFound):
		return "not_found"
	case IsKind(err, ErrConflict):
		return "conflict"
	case IsKind(err, ErrTemporary):
		return "temporary"
	default:
		return "internal"
	}
}
