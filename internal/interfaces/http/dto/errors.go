package dto

import (
	"context"
	"errors"
	"net/http"

	"github.com/ledger/backend/internal/domain/shared"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeUnavailable is used when the store cannot be reached
	ErrCodeUnavailable = "ERR_UNAVAILABLE"
)

// Validation error codes
const (
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
	ErrCodeValidationRange    = "ERR_VALIDATION_RANGE"
)

// Resource error codes
const (
	ErrCodeNotFound = "ERR_NOT_FOUND"
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeDuplicateRequest is used while an earlier request with the
	// same idempotency key is still running
	ErrCodeDuplicateRequest = "ERR_DUPLICATE_REQUEST"
)

// Business rule error codes
const (
	ErrCodeEmptyName   = "ERR_EMPTY_NAME"
	ErrCodeEmptyOrders = "ERR_EMPTY_ORDERS"
	ErrCodeOutOfRange  = "ERR_OUT_OF_RANGE"
	ErrCodeConstraint  = "ERR_CONSTRAINT"
)

// Input error codes
const (
	ErrCodeBadRequest    = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON   = "ERR_INVALID_JSON"
	ErrCodeBodyTooLarge  = "ERR_BODY_TOO_LARGE"
	ErrCodeRequestCancel = "ERR_REQUEST_CANCELED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:     http.StatusInternalServerError,
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodeUnavailable: http.StatusServiceUnavailable,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodeConflict:         http.StatusConflict,
	ErrCodeDuplicateRequest: http.StatusConflict,

	// Name and order checks are input errors, range checks are business rules
	ErrCodeEmptyName:   http.StatusBadRequest,
	ErrCodeEmptyOrders: http.StatusBadRequest,
	ErrCodeOutOfRange:  http.StatusUnprocessableEntity,
	ErrCodeConstraint:  http.StatusUnprocessableEntity,

	ErrCodeBadRequest:    http.StatusBadRequest,
	ErrCodeInvalidJSON:   http.StatusBadRequest,
	ErrCodeBodyTooLarge:  http.StatusRequestEntityTooLarge,
	ErrCodeRequestCancel: 499,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API codes
var DomainErrorCodeMapping = map[string]string{
	shared.CodeEmptyName:   ErrCodeEmptyName,
	shared.CodeEmptyOrders: ErrCodeEmptyOrders,
	shared.CodeOutOfRange:  ErrCodeOutOfRange,
	shared.CodeNotFound:    ErrCodeNotFound,
}

// StoreErrorCodeMapping maps store failure kinds to API codes
var StoreErrorCodeMapping = map[shared.StoreErrorKind]string{
	shared.StoreConflict:   ErrCodeConflict,
	shared.StoreConstraint: ErrCodeConstraint,
	shared.StoreIO:         ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Unknown codes are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}

// ClassifyError returns the API code and client-facing message for err.
// Store failures never expose their cause.
func ClassifyError(err error) (code, message string) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return NormalizeErrorCode(domainErr.Code), domainErr.Message
	}

	var storeErr *shared.StoreError
	if errors.As(err, &storeErr) {
		code, ok := StoreErrorCodeMapping[storeErr.Kind]
		if !ok {
			code = ErrCodeInternal
		}
		switch storeErr.Kind {
		case shared.StoreConflict:
			return code, "The record was changed or locked by another writer"
		case shared.StoreConstraint:
			return code, "The record violates a storage constraint"
		}
		return code, "An unexpected error occurred"
	}

	if errors.Is(err, context.Canceled) {
		return ErrCodeRequestCancel, "The request was canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrCodeUnavailable, "The request timed out"
	}
	return ErrCodeInternal, "An unexpected error occurred"
}
