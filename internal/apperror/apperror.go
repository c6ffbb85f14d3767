// Package apperror defines the typed errors returned by uploads and how
// they map onto HTTP status codes.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeConfiguration = "configuration_error"
	CodeValidation    = "validation_error"
	CodeProvider      = "provider_error"
)

// Error carries a stable code, a message safe to show callers, and an
// optional underlying cause.
type Error struct {
	Code       string
	Message    string
	StatusCode int
	Internal   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Internal }

// Sentinels. Compare with Is, which matches on Code.
var (
	// ErrConfiguration reports 500: the operator owns the storage settings.
	ErrConfiguration = New(CodeConfiguration, "invalid storage configuration", http.StatusInternalServerError)
	ErrValidation    = New(CodeValidation, "invalid upload request", http.StatusBadRequest)
	ErrProvider      = New(CodeProvider, "storage provider rejected the request", http.StatusBadGateway)

	ErrBadRequest         = New("bad_request", "malformed request", http.StatusBadRequest)
	ErrMissingFile        = New("missing_file", "multipart field \"file\" is required", http.StatusBadRequest)
	ErrFileTooLarge       = New("file_too_large", "file exceeds the maximum upload size", http.StatusRequestEntityTooLarge)
	ErrInternal           = New("internal_error", "internal server error", http.StatusInternalServerError)
	ErrServiceUnavailable = New("service_unavailable", "service unavailable", http.StatusServiceUnavailable)
)

func New(code, message string, status int) *Error {
	return &Error{Code: code, Message: message, StatusCode: status}
}

// Wrap attaches err as the cause of a copy of kind.
func Wrap(err error, kind *Error) *Error {
	return WrapWithMessage(err, kind.Code, kind.Message, kind.StatusCode)
}

func WrapWithMessage(err error, code, message string, status int) *Error {
	return &Error{Code: code, Message: message, StatusCode: status, Internal: err}
}

// Configuration reports a missing or invalid storage configuration field.
func Configuration(field, reason string) *Error {
	return New(CodeConfiguration,
		fmt.Sprintf("invalid storage configuration: %s %s", field, reason),
		ErrConfiguration.StatusCode)
}

func Validation(format string, args ...any) *Error {
	return New(CodeValidation, fmt.Sprintf(format, args...), ErrValidation.StatusCode)
}

func as(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Is reports whether err, or anything it wraps, has kind's code.
func Is(err error, kind *Error) bool {
	e, ok := as(err)
	return ok && e.Code == kind.Code
}

func IsConfiguration(err error) bool { return Is(err, ErrConfiguration) }

func IsValidation(err error) bool { return Is(err, ErrValidation) }

// StatusCode defaults to 500 for untyped errors.
func StatusCode(err error) int {
	if e, ok := as(err); ok {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}
