// Package localauth is a self-hosted email/password identity provider.
// Accounts live in a JSON file, passwords are bcrypt hashed, sessions and
// action codes are signed JWTs and outgoing mail goes through a Mailer.
package localauth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"remindo/internal/logging"
	"remindo/internal/service"
)

const issuer = "remindo"

// MinPasswordLength is the shortest password the provider stores.
const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Options configures an Auth.
type Options struct {
	// UsersPath is the accounts file. Empty keeps accounts in memory.
	UsersPath string

	Secret      []byte
	SessionTTL  time.Duration
	ActionTTL   time.Duration
	LinkBaseURL string

	// MaxFailures consecutive wrong passwords lock the account for Lockout.
	// Zero disables locking.
	MaxFailures int
	Lockout     time.Duration

	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int

	Mailer Mailer
	Now    func() time.Time
}

// Auth implements service.Auth and service.ActionCodes.
type Auth struct {
	mu   sync.Mutex
	file accountFile
	opts Options
	now  func() time.Time
	log  zerolog.Logger

	secret []byte
}

var (
	_ service.Auth        = (*Auth)(nil)
	_ service.ActionCodes = (*Auth)(nil)
)

// New creates an Auth.
func New(opts Options) (*Auth, error) {
	if len(opts.Secret) == 0 {
		return nil, errors.New("signing secret is required")
	}
	if opts.Mailer == nil {
		return nil, errors.New("mailer is required")
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * 24 * time.Hour
	}
	if opts.ActionTTL <= 0 {
		opts.ActionTTL = 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Auth{
		file:   accountFile{path: opts.UsersPath},
		opts:   opts,
		now:    now,
		log:    logging.For("localauth"),
		secret: opts.Secret,
	}, nil
}

func identity(a *account, token string) service.Identity {
	return service.Identity{
		UID:           a.UID,
		Email:         a.Email,
		DisplayName:   a.DisplayName,
		EmailVerified: a.EmailVerified,
		Token:         token,
	}
}

func checkEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return service.NewAuthError(service.CodeInvalidEmail, "malformed email %q", email)
	}
	return nil
}

// SignUp creates an unverified account and signs it in.
func (a *Auth) SignUp(ctx context.Context, email, password string) (service.Identity, error) {
	email = strings.TrimSpace(email)
	if err := checkEmail(email); err != nil {
		return service.Identity{}, err
	}
	if password == "" {
		return service.Identity{}, &service.AuthError{Code: service.CodeMissingPassword}
	}
	if len(password) < MinPasswordLength {
		return service.Identity{}, service.NewAuthError(service.CodeWeakPassword,
			"password should be at least %d characters", MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.opts.BcryptCost)
	if err != nil {
		return service.Identity{}, fmt.Errorf("failed to hash password: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	as, err := a.file.load()
	if err != nil {
		return service.Identity{}, err
	}
	key := normalizeEmail(email)
	if _, ok := as[key]; ok {
		return service.Identity{}, &service.AuthError{Code: service.CodeEmailAlreadyInUse}
	}

	now := a.now()
	acct := &account{
		UID:               uuid.NewString(),
		Email:             email,
		PasswordHash:      string(hash),
		CreatedAt:         now,
		PasswordChangedAt: now,
	}
	as[key] = acct
	if err := a.file.save(as); err != nil {
		return service.Identity{}, fmt.Errorf("failed to save account: %w", err)
	}

	token, err := a.issue(purposeSession, acct, a.opts.SessionTTL)
	if err != nil {
		return service.Identity{}, err
	}
	a.log.Info().Str("uid", acct.UID).Str("email", email).Msg("account created")
	return identity(acct, token), nil
}

// SignIn checks the password and issues a session.
func (a *Auth) SignIn(ctx context.Context, email, password string) (service.Identity, error) {
	email = strings.TrimSpace(email)
	if err := checkEmail(email); err != nil {
		return service.Identity{}, err
	}
	if password == "" {
		return service.Identity{}, &service.AuthError{Code: service.CodeMissingPassword}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	as, err := a.file.load()
	if err != nil {
		return service.Identity{}, err
	}
	acct, ok := as[normalizeEmail(email)]
	if !ok {
		return service.Identity{}, &service.AuthError{Code: service.CodeUserNotFound}
	}

	now := a.now()
	if now.Before(acct.LockedUntil) {
		return service.Identity{}, service.NewAuthError(service.CodeTooManyRequests,
			"locked until %s", acct.LockedUntil.Format(time.RFC3339))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		acct.Failures++
		if a.opts.MaxFailures > 0 && acct.Failures >= a.opts.MaxFailures {
			acct.Failures = 0
			acct.LockedUntil = now.Add(a.opts.Lockout)
			a.log.Warn().Str("uid", acct.UID).Time("until", acct.LockedUntil).Msg("account locked")
		}
		if err := a.file.save(as); err != nil {
			return service.Identity{}, err
		}
		return service.Identity{}, &service.AuthError{Code: service.CodeInvalidCredential}
	}

	if acct.Failures != 0 || !acct.LockedUntil.IsZero() {
		acct.Failures = 0
		acct.LockedUntil = time.Time{}
		if err := a.file.save(as); err != nil {
			return service.Identity{}, err
		}
	}

	token, err := a.issue(purposeSession, acct, a.opts.SessionTTL)
	if err != nil {
		return service.Identity{}, err
	}
	a.log.Debug().Str("uid", acct.UID).Msg("signed in")
	return identity(acct, token), nil
}

// SignOut ends the session. Tokens are stateless, so this only logs.
func (a *Auth) SignOut(ctx context.Context, id service.Identity) error {
	a.log.Debug().Str("uid", id.UID).Msg("signed out")
	return nil
}

// SendVerification mails a verification link. Verified accounts get nothing.
func (a *Auth) SendVerification(ctx context.Context, id service.Identity) error {
	a.mu.Lock()
	as, err := a.file.load()
	if err != nil {
		a.mu.Unlock()
		return err
	}
	acct := as.byUID(id.UID)
	a.mu.Unlock()

	if acct == nil {
		return &service.AuthError{Code: service.CodeUserNotFound}
	}
	if acct.EmailVerified {
		return nil
	}

	code, err := a.issue(purposeVerify, acct, a.opts.ActionTTL)
	if err != nil {
		return err
	}
	return a.opts.Mailer.Send(ctx, Message{
		To:      acct.Email,
		Subject: "Verify your email for remindo",
		Body: fmt.Sprintf("Follow this link to verify your email address.\n\n%s/verify?code=%s\n\nOr run: remindo verify %s\n",
			strings.TrimRight(a.opts.LinkBaseURL, "/"), code, code),
		Kind: purposeVerify,
		Code: code,
	})
}

// SendPasswordReset mails a reset link if the email is registered.
func (a *Auth) SendPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := checkEmail(email); err != nil {
		return err
	}

	a.mu.Lock()
	as, err := a.file.load()
	if err != nil {
		a.mu.Unlock()
		return err
	}
	acct, ok := as[normalizeEmail(email)]
	a.mu.Unlock()

	if !ok {
		a.log.Debug().Str("email", email).Msg("password reset for unknown email ignored")
		return nil
	}

	code, err := a.issue(purposeReset, acct, a.opts.ActionTTL)
	if err != nil {
		return err
	}
	return a.opts.Mailer.Send(ctx, Message{
		To:      acct.Email,
		Subject: "Reset your password for remindo",
		Body: fmt.Sprintf("Follow this link to reset your password.\n\n%s/reset?code=%s\n\nOr run: remindo reset-password --password <new password> %s\n\nIf you didn't ask to reset your password, you can ignore this email.\n",
			strings.TrimRight(a.opts.LinkBaseURL, "/"), code, code),
		Kind: purposeReset,
		Code: code,
	})
}

// UpdateProfile sets the display name.
func (a *Auth) UpdateProfile(ctx context.Context, id service.Identity, displayName string) (service.Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	as, err := a.file.load()
	if err != nil {
		return service.Identity{}, err
	}
	acct := as.byUID(id.UID)
	if acct == nil {
		return service.Identity{}, &service.AuthError{Code: service.CodeUserNotFound}
	}
	acct.DisplayName = strings.TrimSpace(displayName)
	if err := a.file.save(as); err != nil {
		return service.Identity{}, err
	}
	return identity(acct, id.Token), nil
}

// Resume validates a session token and returns the current account state.
func (a *Auth) Resume(ctx context.Context, token string) (service.Identity, error) {
	c, err := a.parse(token, purposeSession)
	if err != nil {
		return service.Identity{}, &service.AuthError{Code: service.CodeUserTokenExpired, Err: err}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	as, err := a.file.load()
	if err != nil {
		return service.Identity{}, err
	}
	acct := as.byUID(c.Subject)
	if acct == nil {
		return service.Identity{}, &service.AuthError{Code: service.CodeUserNotFound}
	}
	if revoked(c, acct) {
		return service.Identity{}, service.NewAuthError(service.CodeUserTokenExpired, "password changed")
	}
	return identity(acct, token), nil
}

// revoked reports whether the session predates the last password change.
func revoked(c *claims, acct *account) bool {
	if c.IssuedAt == nil {
		return true
	}
	return c.IssuedAt.Time.Before(acct.PasswordChangedAt.Truncate(jwt.TimePrecision))
}

// ApplyVerification marks the account behind code as verified.
func (a *Auth) ApplyVerification(ctx context.Context, code string) error {
	c, err := a.parse(code, purposeVerify)
	if err != nil {
		return &service.AuthError{Code: service.CodeInvalidActionCode, Err: err}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	as, err := a.file.load()
	if err != nil {
		return err
	}
	acct := as.byUID(c.Subject)
	if acct == nil {
		return &service.AuthError{Code: service.CodeUserNotFound}
	}
	if acct.EmailVerified {
		return nil
	}
	acct.EmailVerified = true
	if err := a.file.save(as); err != nil {
		return err
	}
	a.log.Info().Str("uid", acct.UID).Msg("email verified")
	return nil
}

// ConfirmPasswordReset replaces the password of the account behind code.
// Existing sessions stop resuming.
func (a *Auth) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	c, err := a.parse(code, purposeReset)
	if err != nil {
		return &service.AuthError{Code: service.CodeInvalidActionCode, Err: err}
	}
	if len(newPassword) < MinPasswordLength {
		return service.NewAuthError(service.CodeWeakPassword,
			"password should be at least %d characters", MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), a.opts.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	as, err := a.file.load()
	if err != nil {
		return err
	}
	acct := as.byUID(c.Subject)
	if acct == nil {
		return &service.AuthError{Code: service.CodeUserNotFound}
	}
	if c.PasswordTag != passwordTag(acct.PasswordHash) {
		return service.NewAuthError(service.CodeInvalidActionCode, "code already used")
	}

	acct.PasswordHash = string(hash)
	acct.PasswordChangedAt = a.now()
	acct.Failures = 0
	acct.LockedUntil = time.Time{}
	if err := a.file.save(as); err != nil {
		return err
	}
	a.log.Info().Str("uid", acct.UID).Msg("password reset")
	return nil
}
