package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Domain error codes
const (
	CodeEmptyName   = "EMPTY_NAME"
	CodeEmptyOrders = "EMPTY_ORDERS"
	CodeOutOfRange  = "OUT_OF_RANGE"
	CodeNotFound    = "NOT_FOUND"
)

// Common domain errors
var (
	ErrNotFound    = NewDomainError(CodeNotFound, "Resource not found")
	ErrEmptyName   = NewDomainError(CodeEmptyName, "Name cannot be empty")
	ErrEmptyOrders = NewDomainError(CodeEmptyOrders, "Queue must contain at least one product order")
	ErrOutOfRange  = NewDomainError(CodeOutOfRange, "Value is out of range")
)

// StoreErrorKind classifies persistence failures.
type StoreErrorKind string

const (
	StoreConflict   StoreErrorKind = "CONFLICT"
	StoreIO         StoreErrorKind = "IO"
	StoreConstraint StoreErrorKind = "CONSTRAINT"
)

// StoreError is returned by stores and repositories when the underlying
// storage rejects or fails an operation.
type StoreError struct {
	Kind  StoreErrorKind
	Op    string
	Cause error
}

// NewStoreError wraps cause as a StoreError of the given kind.
func NewStoreError(kind StoreErrorKind, op string, cause error) *StoreError {
	return &StoreError{Kind: kind, Op: op, Cause: cause}
}

// Error implements the error interface
func (e *StoreError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("store %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("store %s: %s: %v", e.Op, e.Kind, e.Cause)
}

// Unwrap returns the underlying cause
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// IsStoreError reports whether err carries a StoreError of the given kind.
func IsStoreError(err error, kind StoreErrorKind) bool {
	var se *StoreError
	if !errors.As(err, &se) {
		return false
	}
	return se.Kind == kind
}
