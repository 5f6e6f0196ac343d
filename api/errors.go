// File: api/errors.go
// Package api defines common error types and error handling utilities.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "fmt"

// Common errors used across the library.
var (
	ErrLoopAlreadyRunning = fmt.Errorf("hub runloop is already running")
	ErrListenerExists     = fmt.Errorf("listener already active for descriptor and direction")
	ErrDescriptorClosed   = fmt.Errorf("descriptor closed while watched")
	ErrTimeout            = fmt.Errorf("operation timeout")
	ErrInterrupted        = fmt.Errorf("runloop interrupted by signal")
	ErrBackendClosed      = fmt.Errorf("backend is closed")
	ErrNotSupported       = fmt.Errorf("operation not supported")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeAlreadyRunning
	ErrCodeAlreadyExists
	ErrCodeClosed
	ErrCodeTimeout
	ErrCodeInterrupted
	ErrCodeNotSupported
	ErrCodeInternal
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap exposes the wrapped sentinel, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WrapError creates a structured error wrapping a sentinel so that
// errors.Is keeps working across the api boundary.
func WrapError(code ErrorCode, cause error, message string) *Error {
	e := NewError(code, message)
	e.cause = cause
	return e
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
