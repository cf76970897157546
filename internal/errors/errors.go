package errors

import (
	"errors"
	"fmt"
)

// ErrorCode is the machine-readable reason reported to clients
type ErrorCode string

const (
	// PIN issuance
	ErrCodeUnknownUser    ErrorCode = "UnknownUser"
	ErrCodeRateLimited    ErrorCode = "RateLimited"
	ErrCodeDeliveryFailed ErrorCode = "DeliveryFailed"

	// PIN validation
	ErrCodeNoPendingVerification ErrorCode = "NoPendingVerification"
	ErrCodeExpired               ErrorCode = "Expired"
	ErrCodeTooManyAttempts       ErrorCode = "TooManyAttempts"
	ErrCodeInvalidCode           ErrorCode = "InvalidCode"

	// Authentication & Authorization
	ErrCodeUnauthorized    ErrorCode = "Unauthorized"
	ErrCodeNotConfigured   ErrorCode = "NotConfigured"
	ErrCodeTooManyRequests ErrorCode = "TooManyRequests"

	// Validation
	ErrCodeValidation   ErrorCode = "ValidationError"
	ErrCodeInvalidInput ErrorCode = "InvalidInput"

	// Internal
	ErrCodeInternal ErrorCode = "InternalError"
	ErrCodeDatabase ErrorCode = "DatabaseError"
	ErrCodeStore    ErrorCode = "StoreError"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// IsInfrastructure reports whether the error describes a failure of a backing
// service rather than a problem with the request.
func (e *AppError) IsInfrastructure() bool {
	switch e.Code {
	case ErrCodeInternal, ErrCodeDatabase, ErrCodeStore:
		return true
	}
	return false
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func NotConfigured(feature string) *AppError {
	return New(ErrCodeNotConfigured, fmt.Sprintf("%s is not configured", feature))
}

func TooManyRequests() *AppError {
	return New(ErrCodeTooManyRequests, "Too many requests. Please try again later.")
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason))
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

func Store(cause error) *AppError {
	return Wrap(ErrCodeStore, "PIN store error", cause)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
