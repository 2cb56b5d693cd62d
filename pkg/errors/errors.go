// Package errors provides structured error types for taxtree.
//
// Error codes let the CLI and the HTTP API react to failures without parsing
// messages: a NOT_FOUND from the store becomes a 404, a NOT_POPULATED becomes
// a hint to run "taxtree populate", and so on.
//
// # Error Codes
//
// Codes follow a hierarchical naming convention:
//   - INVALID_*: input validation failures
//   - NOT_*: missing resources (unknown taxa, empty database)
//   - MALFORMED_RECORD: records that break the taxonomy contract
//   - NETWORK / INTEGRITY: dump acquisition failures
//   - INTERNAL_ERROR: broken invariants inside taxtree itself
//
// # Usage
//
//	err := errors.New(errors.ErrCodeNotFound, "no such taxonomy ID: %d", id)
//	if errors.Is(err, errors.ErrCodeNotFound) {
//	    // Handle unknown taxon
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "fetch %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidTerm     Code = "INVALID_TERM"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"
	ErrCodeInvalidTemplate Code = "INVALID_TEMPLATE"
	ErrCodeInvalidSource   Code = "INVALID_SOURCE"

	// Resource errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeNotPopulated Code = "NOT_POPULATED"

	// Data contract errors
	ErrCodeMalformedRecord Code = "MALFORMED_RECORD"

	// Acquisition errors
	ErrCodeNetwork   Code = "NETWORK_ERROR"
	ErrCodeTimeout   Code = "TIMEOUT"
	ErrCodeIntegrity Code = "INTEGRITY"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsInvalid reports whether err carries one of the INVALID_* codes.
func IsInvalid(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidTerm, ErrCodeInvalidFormat,
		ErrCodeInvalidTemplate, ErrCodeInvalidSource:
		return true
	}
	return false
}
