// Package errors provides structured error types for nodebundle.
//
// Policy problems found while validating a package (an invalid license, an
// outdated NOTICE) are not errors; they are reported as violations. This
// package covers the structural failures that abort an operation:
//   - RESOLUTION_FAILED: an installed dependency cannot be located or read
//   - ENTRYPOINT_NOT_FOUND: a configured entry point does not exist
//   - VALIDATION_FAILED: pack was asked to run with violations present
//   - COLLABORATOR_FAILED: the bundler, test command or archiver failed
//   - INVALID_*: configuration input rejected before a run starts
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidConfig, "copyright is required")
//	if errors.Is(err, errors.ErrCodeInvalidConfig) {
//	    // Handle configuration error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeResolution, origErr, "resolve %s", name)
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
	ErrCodeInvalidConfig  Code = "INVALID_CONFIG"
	ErrCodeInvalidPackage Code = "INVALID_PACKAGE"
	ErrCodeInvalidPath    Code = "INVALID_PATH"

	// Structural errors raised while running a command
	ErrCodeResolution         Code = "RESOLUTION_FAILED"
	ErrCodeEntrypointNotFound Code = "ENTRYPOINT_NOT_FOUND"
	ErrCodeValidationFailed   Code = "VALIDATION_FAILED"
	ErrCodeCollaborator       Code = "COLLABORATOR_FAILED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
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
