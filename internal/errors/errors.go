package errors

import (
	"errors"
	"fmt"
)

// Common error types shared across the server packages
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotVerified    = errors.New("user is not verified")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("email or username already registered")
	ErrMaintenance        = errors.New("maintenance mode active")

	// Role errors
	ErrRoleNotFound      = errors.New("role not found")
	ErrUnknownPermission = errors.New("unknown permission")
	ErrUnknownRole       = errors.New("unknown role")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	// General errors
	ErrInvalidRequest    = errors.New("invalid request")
	ErrWeakPassword      = errors.New("password does not meet requirements")
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
