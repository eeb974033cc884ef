package shared

import "errors"

// ErrorKind classifies a domain error for the caller.
// The HTTP layer turns it into a status code and a user-facing message.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindPermissionDenied ErrorKind = "permission_denied"
	KindUnexpected       ErrorKind = "unexpected"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string    `json:"code"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches another DomainError by code, so wrapped copies with a custom
// message still satisfy errors.Is against the common errors below.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// NewDomainError creates a new validation-kind domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Kind:    KindValidation,
		Message: message,
	}
}

// NewPermissionError creates a permission-denied domain error
func NewPermissionError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Kind:    KindPermissionDenied,
		Message: message,
	}
}

// NewUnexpectedError creates an unexpected-kind domain error
func NewUnexpectedError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Kind:    KindUnexpected,
		Message: message,
	}
}

// WithMessage returns a copy of the error carrying a different message
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{Code: e.Code, Kind: e.Kind, Message: message}
}

// Common domain errors
var (
	ErrNotFound      = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput  = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState  = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInUse         = NewDomainError("IN_USE", "Resource is referenced by other records")
	ErrUnauthorized  = NewPermissionError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden     = NewPermissionError("FORBIDDEN", "Access to this resource is forbidden")
	ErrUnexpected    = NewUnexpectedError("UNEXPECTED", "An unexpected error occurred")
)

// KindOf returns the error kind of err. Errors that are not domain errors are unexpected.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnexpected
}

// IsNotFound reports whether err is, or wraps, ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
