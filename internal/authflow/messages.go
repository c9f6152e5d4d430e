package authflow

import (
	"regexp"
	"strings"

	"remindo/internal/service"
)

// User-facing messages.
const (
	MsgFieldsRequired     = "All fields are required!"
	MsgInvalidEmail       = "Please enter a valid email address."
	MsgWeakPassword       = "Password must be at least 6 characters long, include a number, and a special character."
	MsgVerificationSent   = "Verification email sent! Please check your inbox and verify your email to proceed."
	MsgVerifyFirst        = "Please verify your email before logging in."
	MsgResetEmailRequired = "Please enter your email address to reset your password."
	MsgResetSent          = "A password reset email has been sent! Check your inbox to reset your password."
	MsgUserNotFound       = "User not found"
	MsgMissingPassword    = "Please enter your password"
	MsgTooManyRequests    = "Too many login attempts. Please try again later."
	MsgInvalidCredential  = "Please check your email and password and try again."
	MsgEmailInUse         = "An account with this email address already exists."
	MsgSessionExpired     = "Your session has expired. Please log in again."
	MsgInvalidLink        = "This link is invalid or has expired."
	MsgGeneric            = "Authentication error. Please try again."
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether email has the shape name@domain.tld.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidPassword reports whether password has at least 6 characters, a
// digit and one of !@#$%^&*.
func ValidPassword(password string) bool {
	return len(password) >= 6 &&
		strings.ContainsAny(password, "0123456789") &&
		strings.ContainsAny(password, "!@#$%^&*")
}

// Message maps an auth error code to the message shown to the user.
func Message(code string) string {
	switch code {
	case service.CodeInvalidEmail:
		return MsgInvalidEmail
	case service.CodeUserNotFound:
		return MsgUserNotFound
	case service.CodeMissingPassword:
		return MsgMissingPassword
	case service.CodeTooManyRequests:
		return MsgTooManyRequests
	case service.CodeInvalidCredential:
		return MsgInvalidCredential
	default:
		return MsgGeneric
	}
}

// registerMessage extends Message with the codes sign-up can produce.
func registerMessage(code string) string {
	switch code {
	case service.CodeEmailAlreadyInUse:
		return MsgEmailInUse
	case service.CodeWeakPassword:
		return MsgWeakPassword
	default:
		return Message(code)
	}
}
