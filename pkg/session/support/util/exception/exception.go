// Package exception provides the error types shared by the Lighter session service.
// Storage and backend failures are wrapped in ServiceError so callers can tell where they came from;
// the conflict and precondition errors of the session coordinator are distinct types the REST layer maps
// to specific status codes.
package exception

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ServiceError is an error raised by one of the service modules.
type ServiceError struct {
	// Module is where the error occurred (e.g., "session", "storage", "backend", "statement").
	Module string
	// Message is a concise description of the failed operation.
	Message string
	// OriginalErr is the wrapped cause.
	OriginalErr error
	// isRetryable reports whether the operation may succeed when repeated.
	isRetryable bool
	// StackTrace is the stack at creation time, for debugging.
	StackTrace string
}

// NewServiceError creates a new ServiceError.
func NewServiceError(module, message string, originalErr error, isRetryable bool) *ServiceError {
	return &ServiceError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		StackTrace:  captureStack(),
	}
}

// NewServiceErrorf creates a new ServiceError using a format string.
// If the last argument is an error it becomes the wrapped cause and is not used for formatting.
// The result is never retryable.
//
//	NewServiceErrorf("storage", "failed to save application %s", id, err)
func NewServiceErrorf(module, format string, a ...interface{}) *ServiceError {
	var originalErr error
	if len(a) > 0 {
		if err, ok := a[len(a)-1].(error); ok {
			originalErr = err
			a = a[:len(a)-1]
		}
	}
	return &ServiceError{
		Module:      module,
		Message:     fmt.Sprintf(format, a...),
		OriginalErr: originalErr,
		StackTrace:  captureStack(),
	}
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *ServiceError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable reports whether this error is retryable.
func (e *ServiceError) IsRetryable() bool {
	return e.isRetryable
}

// SessionAlreadyExistsError is returned when a permanent session is requested while one already exists.
// SessionID is the id of the existing session.
type SessionAlreadyExistsError struct {
	SessionID string
}

// NewSessionAlreadyExistsError creates a SessionAlreadyExistsError for the existing session.
func NewSessionAlreadyExistsError(sessionID string) *SessionAlreadyExistsError {
	return &SessionAlreadyExistsError{SessionID: sessionID}
}

func (e *SessionAlreadyExistsError) Error() string {
	return fmt.Sprintf("permanent session already exists: %s", e.SessionID)
}

// ErrPermanentSessionNotFound is returned by synchronous statement execution when no permanent session exists.
var ErrPermanentSessionNotFound = errors.New("permanent session not found")

// IsConflict reports whether err, or any error it wraps, is a SessionAlreadyExistsError.
// The existing session id is returned alongside.
func IsConflict(err error) (string, bool) {
	var conflict *SessionAlreadyExistsError
	if errors.As(err, &conflict) {
		return conflict.SessionID, true
	}
	return "", false
}

// IsTemporary determines whether an error is transient (network errors, connection drops).
// The IsRetryable flag of a ServiceError in the chain takes precedence.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se.IsRetryable()
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset")
}

// ExtractErrorMessage returns the Message of a ServiceError, or err.Error() otherwise.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}
