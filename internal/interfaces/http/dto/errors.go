package dto

import (
	"net/http"

	"github.com/ribotflow/backend/internal/domain/shared"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation    = "ERR_VALIDATION"
	ErrCodeBadRequest    = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput  = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON   = "ERR_INVALID_JSON"
	ErrCodeInvalidState  = "ERR_INVALID_STATE"
	ErrCodeBusinessRule  = "ERR_BUSINESS_RULE"
	ErrCodeTooLarge      = "ERR_TOO_LARGE"
	ErrCodeUnsupported   = "ERR_UNSUPPORTED_MEDIA"
	ErrCodeIdempotency   = "ERR_IDEMPOTENCY_CONFLICT"
	ErrCodeAccountLocked = "ERR_ACCOUNT_LOCKED"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	ErrCodeTokenRevoked = "ERR_TOKEN_REVOKED"
)

// Resource error codes
const (
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	ErrCodeConflict      = "ERR_CONFLICT"
	ErrCodeInUse         = "ERR_IN_USE"
)

// Availability error codes
const (
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
	ErrCodeUnavailable = "ERR_SERVICE_UNAVAILABLE"
	ErrCodeUpstream    = "ERR_UPSTREAM"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors
	ErrCodeValidation:    http.StatusBadRequest,
	ErrCodeBadRequest:    http.StatusBadRequest,
	ErrCodeInvalidInput:  http.StatusBadRequest,
	ErrCodeInvalidJSON:   http.StatusBadRequest,
	ErrCodeInvalidState:  http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:  http.StatusUnprocessableEntity,
	ErrCodeTooLarge:      http.StatusRequestEntityTooLarge,
	ErrCodeUnsupported:   http.StatusUnsupportedMediaType,
	ErrCodeIdempotency:   http.StatusConflict,
	ErrCodeAccountLocked: http.StatusLocked,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeTokenRevoked: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,
	ErrCodeInUse:         http.StatusConflict,

	ErrCodeRateLimited: http.StatusTooManyRequests,
	ErrCodeUnavailable: http.StatusServiceUnavailable,
	ErrCodeUpstream:    http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to standardized codes.
// Domain codes that are not listed keep their own code.
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":              ErrCodeNotFound,
	"ALREADY_EXISTS":         ErrCodeAlreadyExists,
	"EMAIL_EXISTS":           ErrCodeAlreadyExists,
	"SLUG_EXISTS":            ErrCodeAlreadyExists,
	"IN_USE":                 ErrCodeInUse,
	"INVALID_INPUT":          ErrCodeInvalidInput,
	"INVALID_STATE":          ErrCodeInvalidState,
	"UNAUTHORIZED":           ErrCodeUnauthorized,
	"FORBIDDEN":              ErrCodeForbidden,
	"INVALID_CREDENTIALS":    ErrCodeUnauthorized,
	"TOKEN_EXPIRED":          ErrCodeTokenExpired,
	"TOKEN_INVALID":          ErrCodeTokenInvalid,
	"TOKEN_REVOKED":          ErrCodeTokenRevoked,
	"ACCOUNT_LOCKED":         ErrCodeAccountLocked,
	"FILE_TOO_LARGE":         ErrCodeTooLarge,
	"AUDIO_TOO_LARGE":        ErrCodeTooLarge,
	"REQUEST_TOO_LARGE":      ErrCodeTooLarge,
	"UNSUPPORTED_FILE_TYPE":  ErrCodeUnsupported,
	"UNSUPPORTED_AUDIO":      ErrCodeUnsupported,
	"EXTRACTION_UNAVAILABLE": ErrCodeUnavailable,
	"EXTRACTION_FAILED":      ErrCodeUpstream,
	"EMAIL_FAILED":           ErrCodeUpstream,
	"VALIDATION_ERROR":       ErrCodeValidation,
	"BAD_REQUEST":            ErrCodeBadRequest,
	"UNEXPECTED":             ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the standardized format.
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}

// StatusFor returns the HTTP status of a domain error. Codes without an
// explicit mapping fall back to their kind.
func StatusFor(code string, kind shared.ErrorKind) int {
	if status, ok := ErrorCodeHTTPStatus[NormalizeErrorCode(code)]; ok {
		return status
	}
	switch kind {
	case shared.KindValidation:
		return http.StatusBadRequest
	case shared.KindPermissionDenied:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// KindForStatus classifies a status code for errors raised outside the domain
func KindForStatus(status int) shared.ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return shared.KindPermissionDenied
	case status >= 500:
		return shared.KindUnexpected
	}
	return shared.KindValidation
}
