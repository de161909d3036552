package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeInvalidCredentials indicates the backend rejected an email/password pair.
	ErrCodeInvalidCredentials ErrorCode = "invalid_credentials"
	// ErrCodeSessionExpired indicates an authenticated call failed with 401 after a failed refresh.
	ErrCodeSessionExpired ErrorCode = "session_expired"
	// ErrCodeNetwork indicates the backend could not be reached.
	ErrCodeNetwork ErrorCode = "network"
	// ErrCodeUpstream indicates the backend answered with an unexpected status.
	ErrCodeUpstream ErrorCode = "upstream"
	// ErrCodeCorruptState indicates the locally persisted user record could not be parsed.
	ErrCodeCorruptState ErrorCode = "corrupt_state"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
)

// DefaultInvalidCredentialsMessage is shown when the backend supplies no detail.
const DefaultInvalidCredentialsMessage = "Invalid credentials"

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Status is the backend HTTP status that produced the error, when there was one.
	Status int
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// InvalidCredentials creates an InvalidCredentials error carrying a user-visible message.
// An empty detail falls back to DefaultInvalidCredentialsMessage.
func InvalidCredentials(detail string) *AppError {
	if detail == "" {
		detail = DefaultInvalidCredentialsMessage
	}
	return &AppError{
		Code:    ErrCodeInvalidCredentials,
		Message: detail,
	}
}

// SessionExpired wraps the error that ended an authenticated call after refresh failed.
func SessionExpired(cause error) *AppError {
	return &AppError{
		Code:    ErrCodeSessionExpired,
		Message: "session expired",
		Cause:   cause,
		Status:  401,
	}
}

// Network wraps a transport failure.
func Network(cause error) *AppError {
	return &AppError{
		Code:    ErrCodeNetwork,
		Message: "backend unreachable",
		Cause:   cause,
	}
}

// Upstream creates an error for an unexpected backend status.
func Upstream(status int, detail string) *AppError {
	msg := fmt.Sprintf("backend returned status %d", status)
	if detail != "" {
		msg += ": " + detail
	}
	return &AppError{
		Code:    ErrCodeUpstream,
		Message: msg,
		Status:  status,
	}
}

// CorruptState wraps a decode failure of the persisted user record.
func CorruptState(cause error) *AppError {
	return &AppError{
		Code:    ErrCodeCorruptState,
		Message: "cached user record is corrupt",
		Cause:   cause,
	}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: message,
	}
}

// Internalf creates a new Internal error with formatted message.
func Internalf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsInvalidCredentials checks if an error is an InvalidCredentials error.
func IsInvalidCredentials(err error) bool {
	return isCode(err, ErrCodeInvalidCredentials)
}

// IsSessionExpired checks if an error is a SessionExpired error.
func IsSessionExpired(err error) bool {
	return isCode(err, ErrCodeSessionExpired)
}

// IsNetwork checks if an error is a Network error.
func IsNetwork(err error) bool {
	return isCode(err, ErrCodeNetwork)
}

// IsUpstream checks if an error is an Upstream error.
func IsUpstream(err error) bool {
	return isCode(err, ErrCodeUpstream)
}

// IsCorruptState checks if an error is a CorruptState error.
func IsCorruptState(err error) bool {
	return isCode(err, ErrCodeCorruptState)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetStatus returns the backend HTTP status carried by an error, or 0.
func GetStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return 0
}

// UserMessage returns the message suitable for showing to an end user.
// Only InvalidCredentials and Validation messages are passed through verbatim.
func UserMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case ErrCodeInvalidCredentials, ErrCodeValidation:
			return appErr.Message
		case ErrCodeNetwork:
			return "The finance service is unreachable. Please try again."
		case ErrCodeSessionExpired:
			return "Your session has expired. Please sign in again."
		}
	}
	return "An unexpected error occurred. Please try again."
}
