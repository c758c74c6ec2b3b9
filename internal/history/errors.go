package history

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes history errors.
type ErrorCode string

const (
	// CodeValidation indicates malformed input the store cannot normalise.
	// The operation had no side effect.
	CodeValidation ErrorCode = "VALIDATION_ERROR"

	// CodeStorageUnavailable indicates the durable medium could not be read
	// or written. It is never retried by the store.
	CodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
)

// Error is the error type returned by history backends.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the failed operation (e.g. "insert", "list recent").
	// Empty for validation errors.
	Op string

	// Field names the offending input for validation errors.
	Field string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var msg string
	switch {
	case e.Field != "":
		msg = fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	case e.Op != "":
		msg = fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Message)
	default:
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError creates a CodeValidation error for the named field.
func NewValidationError(field, message string, err error) *Error {
	return &Error{
		Code:    CodeValidation,
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// NewStorageError creates a CodeStorageUnavailable error for a failed operation.
func NewStorageError(op string, err error) *Error {
	return &Error{
		Code:    CodeStorageUnavailable,
		Op:      op,
		Message: "storage unavailable",
		Err:     err,
	}
}

// IsValidation returns true if err is, or wraps, a validation error.
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation)
}

// IsStorageUnavailable returns true if err is, or wraps, a storage error.
func IsStorageUnavailable(err error) bool {
	return hasCode(err, CodeStorageUnavailable)
}

func hasCode(err error, code ErrorCode) bool {
	var he *Error
	if errors.As(err, &he) {
		return he.Code == code
	}
	return false
}
