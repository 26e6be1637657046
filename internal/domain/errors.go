package domain

import (
	"errors"
	"fmt"
)

// Failure kinds. Every error returned by the domain and by repositories wraps one of these.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidState     = errors.New("invalid state")
	ErrTargetMissing    = errors.New("target location missing")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
)

// Resource-specific not-found errors
var (
	ErrItemNotFound      = fmt.Errorf("item %w", ErrNotFound)
	ErrLocationNotFound  = fmt.Errorf("location %w", ErrNotFound)
	ErrWarehouseNotFound = fmt.Errorf("warehouse %w", ErrNotFound)
	ErrRequestNotFound   = fmt.Errorf("request %w", ErrNotFound)
	ErrUserNotFound      = fmt.Errorf("user %w", ErrNotFound)
)

// Resource-specific conflicts
var (
	ErrDuplicateSKU       = fmt.Errorf("internal sku already exists: %w", ErrConflict)
	ErrDuplicateWarehouse = fmt.Errorf("warehouse name already exists: %w", ErrConflict)
	ErrDuplicateUser      = fmt.Errorf("user already registered: %w", ErrConflict)
	ErrItemReferenced     = fmt.Errorf("item is still stocked at one or more locations: %w", ErrConflict)
	ErrSentinelWarehouse  = fmt.Errorf("the sentinel warehouse cannot be changed: %w", ErrConflict)
)

// ValidationError reports a rejected input field. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
