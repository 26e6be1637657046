// Package errors defines the error shape every HTTP reply carries.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "RESOURCE_NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeInvalidState       = "INVALID_STATE"
	CodeTargetMissing      = "TARGET_MISSING"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeTimeout            = "TIMEOUT"
)

var statusByCode = map[string]int{
	CodeValidationError:    http.StatusBadRequest,
	CodeBadRequest:         http.StatusBadRequest,
	CodeUnauthorized:       http.StatusUnauthorized,
	CodeForbidden:          http.StatusForbidden,
	CodeNotFound:           http.StatusNotFound,
	CodeConflict:           http.StatusConflict,
	CodeInvalidState:       http.StatusConflict,
	CodeTargetMissing:      http.StatusConflict,
	CodeInternalError:      http.StatusInternalServerError,
	CodeServiceUnavailable: http.StatusServiceUnavailable,
	CodeTimeout:            http.StatusGatewayTimeout,
}

// AppError is an error with a stable code, a client-facing message and the
// HTTP status to answer with. Err keeps the cause for logs and errors.Is.
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails replaces the details.
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail sets one detail.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = map[string]string{}
	}
	e.Details[key] = value
	return e
}

// Wrap records the cause.
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// NewAppError creates an AppError with an explicit status, for codes outside the table.
func NewAppError(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

func coded(code, message string) *AppError {
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return NewAppError(code, message, status)
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}

func ErrValidation(message string) *AppError { return coded(CodeValidationError, message) }

// ErrValidationWithFields carries a message per offending field.
func ErrValidationWithFields(message string, fields map[string]string) *AppError {
	return ErrValidation(message).WithDetails(fields)
}

func ErrBadRequest(message string) *AppError { return coded(CodeBadRequest, message) }

func ErrNotFound(resource string) *AppError { return coded(CodeNotFound, resource+" not found") }

func ErrConflict(message string) *AppError { return coded(CodeConflict, message) }

// ErrInvalidState rejects a transition the entity's current state does not allow.
func ErrInvalidState(message string) *AppError { return coded(CodeInvalidState, message) }

// ErrTargetMissing reports that a referenced record vanished before the change applied.
func ErrTargetMissing(resource string) *AppError {
	return coded(CodeTargetMissing, resource+" no longer exists")
}

func ErrUnauthorized(message string) *AppError {
	return coded(CodeUnauthorized, orDefault(message, "authentication required"))
}

func ErrForbidden(message string) *AppError {
	return coded(CodeForbidden, orDefault(message, "access denied"))
}

func ErrInternal(message string) *AppError {
	return coded(CodeInternalError, orDefault(message, "an internal error occurred"))
}

func ErrServiceUnavailable(service string) *AppError {
	return coded(CodeServiceUnavailable, service+" is temporarily unavailable")
}

func ErrTimeout(operation string) *AppError {
	return coded(CodeTimeout, operation+" timed out")
}

// AsAppError finds the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsAppError reports whether err's chain holds an AppError.
func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// FromError returns the AppError in err's chain, or wraps err as an internal error.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return ErrInternal("").Wrap(err)
}
