package utils

import (
	"errors"
	"fmt"
)

// ErrorCode is the closed set of recoverable failure classes returned by
// the lifecycle and matching services. The API layer maps each code to an
// HTTP status; callers branch on the code, never on message text.
type ErrorCode string

const (
	CodeInvalidInput  ErrorCode = "INVALID_INPUT"
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	CodeInvalidState  ErrorCode = "INVALID_STATE"
	CodeConflict      ErrorCode = "CONFLICT"
	CodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	CodeUnavailable   ErrorCode = "UNAVAILABLE"
)

type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func NewInvalidInput(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func NewNotFound(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewUnauthorized(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func NewInvalidState(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeInvalidState, Message: fmt.Sprintf(format, args...)}
}

func NewConflict(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

func NewConfigurationError(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeConfiguration, Message: fmt.Sprintf(format, args...)}
}

// NewUnavailable wraps a storage-layer failure. These are the only errors
// treated as fatal to the current operation rather than a caller mistake.
func NewUnavailable(err error, format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeUnavailable, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the error code, defaulting to CodeUnavailable for
// anything that is not an AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnavailable
}

func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
