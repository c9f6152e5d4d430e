// Package authflow drives registration, login, password reset and logout
// against the Auth collaborator.
//
// Only identities with a verified email reach the SignedIn state.
package authflow

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"remindo/internal/logging"
	"remindo/internal/service"
)

// State is the position in the authentication flow.
type State int

const (
	SignedOut State = iota
	PendingVerification
	SignedIn
	PasswordResetRequested
)

func (s State) String() string {
	switch s {
	case PendingVerification:
		return "pending-verification"
	case SignedIn:
		return "signed-in"
	case PasswordResetRequested:
		return "password-reset-requested"
	default:
		return "signed-out"
	}
}

// Kind classifies an Error.
type Kind int

const (
	// Validation errors are found locally before any collaborator call.
	Validation Kind = iota
	// Collaborator errors come back from the Auth collaborator.
	Collaborator
	// Verification errors reject an identity whose email is unverified.
	Verification
)

// Error is a failure with the message to show the user.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func validation(msg string) error {
	return &Error{Kind: Validation, Message: msg}
}

func collaborator(msg string, err error) error {
	return &Error{Kind: Collaborator, Message: msg, Err: err}
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// Flow tracks one client's authentication state.
type Flow struct {
	auth service.Auth
	log  zerolog.Logger

	mu       sync.Mutex
	state    State
	identity service.Identity
}

// New creates a Flow in the SignedOut state.
func New(auth service.Auth) *Flow {
	return &Flow{auth: auth, log: logging.For("authflow")}
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Identity returns the signed-in identity, or the zero value.
func (f *Flow) Identity() service.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identity
}

func (f *Flow) set(s State, id service.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
	f.identity = id
}

// Register creates an account, stores the display name, sends the
// verification email and signs the new session out again. On success the
// flow is in PendingVerification.
func (f *Flow) Register(ctx context.Context, name, email, password string) error {
	if name == "" || email == "" || password == "" {
		return validation(MsgFieldsRequired)
	}
	if !ValidEmail(email) {
		return validation(MsgInvalidEmail)
	}
	if !ValidPassword(password) {
		return validation(MsgWeakPassword)
	}

	id, err := f.auth.SignUp(ctx, email, password)
	if err != nil {
		f.log.Warn().Err(err).Str("email", email).Msg("sign up failed")
		return collaborator(registerMessage(service.AuthCode(err)), err)
	}
	defer f.signOut(ctx, id)

	named, err := f.auth.UpdateProfile(ctx, id, name)
	if err != nil {
		f.log.Warn().Err(err).Str("uid", id.UID).Msg("profile update failed")
		return collaborator(registerMessage(service.AuthCode(err)), err)
	}
	if err := f.auth.SendVerification(ctx, named); err != nil {
		f.log.Warn().Err(err).Str("uid", id.UID).Msg("sending verification failed")
		return collaborator(registerMessage(service.AuthCode(err)), err)
	}

	f.set(PendingVerification, service.Identity{})
	f.log.Info().Str("uid", id.UID).Msg("registered, verification pending")
	return nil
}

// signOut ends a collaborator session that must not stay signed in.
func (f *Flow) signOut(ctx context.Context, id service.Identity) {
	if err := f.auth.SignOut(ctx, id); err != nil {
		f.log.Warn().Err(err).Str("uid", id.UID).Msg("sign out failed")
	}
}

// Login signs in. An identity with an unverified email is signed out and
// rejected with a Verification error.
func (f *Flow) Login(ctx context.Context, email, password string) (service.Identity, error) {
	id, err := f.auth.SignIn(ctx, email, password)
	if err != nil {
		f.log.Debug().Err(err).Str("email", email).Msg("sign in failed")
		return service.Identity{}, collaborator(Message(service.AuthCode(err)), err)
	}
	return f.admit(ctx, id)
}

// Resume restores a session from a token saved by an earlier Login.
func (f *Flow) Resume(ctx context.Context, token string) (service.Identity, error) {
	id, err := f.auth.Resume(ctx, token)
	if err != nil {
		f.set(SignedOut, service.Identity{})
		msg := MsgSessionExpired
		if code := service.AuthCode(err); code != service.CodeUserTokenExpired && code != service.CodeUserNotFound {
			msg = Message(code)
		}
		return service.Identity{}, collaborator(msg, err)
	}
	return f.admit(ctx, id)
}

func (f *Flow) admit(ctx context.Context, id service.Identity) (service.Identity, error) {
	if !id.EmailVerified {
		f.signOut(ctx, id)
		f.set(SignedOut, service.Identity{})
		return service.Identity{}, &Error{Kind: Verification, Message: MsgVerifyFirst}
	}
	f.set(SignedIn, id)
	f.log.Debug().Str("uid", id.UID).Msg("signed in")
	return id, nil
}

// ResetPassword asks the collaborator to email a reset link. The outcome is
// the same whether or not the email is registered.
func (f *Flow) ResetPassword(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return validation(MsgResetEmailRequired)
	}
	if err := f.auth.SendPasswordReset(ctx, email); err != nil {
		return collaborator(Message(service.AuthCode(err)), err)
	}
	f.set(PasswordResetRequested, service.Identity{})
	return nil
}

// Logout signs the current identity out. Local state is cleared even if
// the collaborator call fails.
func (f *Flow) Logout(ctx context.Context) error {
	id := f.Identity()
	f.set(SignedOut, service.Identity{})
	if !id.SignedIn() {
		return nil
	}
	if err := f.auth.SignOut(ctx, id); err != nil {
		return collaborator(Message(service.AuthCode(err)), err)
	}
	return nil
}
