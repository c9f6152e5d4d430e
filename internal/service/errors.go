package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a task does not exist.
	ErrNotFound = errors.New("not found")

	// ErrClosed is returned after the store has been closed.
	ErrClosed = errors.New("store closed")
)

// Auth error codes.
const (
	CodeInvalidEmail      = "auth/invalid-email"
	CodeUserNotFound      = "auth/user-not-found"
	CodeMissingPassword   = "auth/missing-password"
	CodeTooManyRequests   = "auth/too-many-requests"
	CodeInvalidCredential = "auth/invalid-credential"
	CodeEmailAlreadyInUse = "auth/email-already-in-use"
	CodeWeakPassword      = "auth/weak-password"
	CodeInvalidActionCode = "auth/invalid-action-code"
	CodeUserTokenExpired  = "auth/user-token-expired"
)

// AuthError is a failure reported by the Auth collaborator.
type AuthError struct {
	Code string
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NewAuthError builds an AuthError with a formatted cause.
func NewAuthError(code, format string, args ...any) error {
	return &AuthError{Code: code, Err: fmt.Errorf(format, args...)}
}

// AuthCode extracts the auth error code from err, or "" if none.
func AuthCode(err error) string {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
