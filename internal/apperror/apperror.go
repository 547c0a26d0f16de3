// Package apperror defines the error kinds shared by every layer of the
// application.
//
// Services and repositories return *AppError values that wrap one of the
// sentinel kinds below. The HTTP layer never inspects messages; it matches
// kinds with errors.Is and picks the status code from that.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrConflict           = errors.New("conflict")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrMissingToken       = errors.New("missing token")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrTokenReused        = errors.New("token reused")
	ErrInternal           = errors.New("internal error")
)

type AppError struct {
	Err     error  // kind, one of the sentinels above
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	cause   error  // underlying failure, never shown to clients
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *AppError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Err, e.cause}
	}
	return []error{e.Err}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s already exists with %s", resource, key),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// InvalidCredentials is returned by login and password checks. The message
// is the same whether the account is missing or the password is wrong.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "email or password is invalid",
	}
}

func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

func MissingToken(message string) *AppError {
	return &AppError{
		Err:     ErrMissingToken,
		Message: message,
	}
}

func TokenInvalid(cause error) *AppError {
	return &AppError{
		Err:     ErrTokenInvalid,
		Message: "refresh token is invalid or expired",
		cause:   cause,
	}
}

func TokenReused() *AppError {
	return &AppError{
		Err:     ErrTokenReused,
		Message: "refresh token has already been used",
	}
}

// Internal wraps an unexpected downstream failure. Only message reaches the
// client; cause is kept for logs.
func Internal(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrInternal,
		Message: message,
		cause:   cause,
	}
}
