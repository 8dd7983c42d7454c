package auth

import (
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/taskhub-server/internal/errors"
)

// Code is the machine-readable reason a request was not authenticated.
type Code string

const (
	CodeNoSession       Code = "NO_SESSION"
	CodeTokenInvalid    Code = "TOKEN_INVALID"
	CodeSessionMismatch Code = "SESSION_MISMATCH"
	CodeSessionInvalid  Code = "SESSION_INVALID"
	CodeUserMismatch    Code = "USER_MISMATCH"
	CodeSessionError    Code = "SESSION_ERROR"
)

// Failure is a rejected authentication. Status is the HTTP status clients see.
type Failure struct {
	Status  int
	Code    Code
	Message string
	Err     error // internal cause, never sent to clients
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Code, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func unauthorized(code Code, message string) *Failure {
	return &Failure{Status: http.StatusUnauthorized, Code: code, Message: message}
}

func sessionError(err error) *Failure {
	return &Failure{
		Status:  http.StatusInternalServerError,
		Code:    CodeSessionError,
		Message: "Session validation failed",
		Err:     err,
	}
}

// UnverifiedError rejects a login with correct credentials whose email is not verified.
type UnverifiedError struct {
	Email string
}

func (e *UnverifiedError) Error() string {
	return fmt.Sprintf("user %s is not verified", e.Email)
}

func (e *UnverifiedError) Unwrap() error {
	return apperrors.ErrUserNotVerified
}

// MaintenanceError rejects a non-admin login while maintenance mode is on.
type MaintenanceError struct {
	Message string
}

func (e *MaintenanceError) Error() string {
	return "maintenance: " + e.Message
}

func (e *MaintenanceError) Unwrap() error {
	return apperrors.ErrMaintenance
}
