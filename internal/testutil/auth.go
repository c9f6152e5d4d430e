package testutil

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"remindo/internal/backend/localauth"
	"remindo/internal/service"
)

// NewAuth creates an in-memory localauth provider wired to a RecordingMailer.
func NewAuth(t *testing.T, now func() time.Time) (*localauth.Auth, *RecordingMailer) {
	t.Helper()
	mailer := &RecordingMailer{}
	a, err := localauth.New(localauth.Options{
		Secret:      []byte("testutil-secret"),
		LinkBaseURL: "http://localhost:8086",
		MaxFailures: 5,
		Lockout:     time.Minute,
		BcryptCost:  bcrypt.MinCost,
		Mailer:      mailer,
		Now:         now,
	})
	if err != nil {
		t.Fatalf("localauth.New() error = %v", err)
	}
	return a, mailer
}

// VerifiedUser signs up, verifies and signs in a user, returning the identity.
func VerifiedUser(t *testing.T, a *localauth.Auth, mailer *RecordingMailer, email, password string) service.Identity {
	t.Helper()
	ctx := context.Background()

	id, err := a.SignUp(ctx, email, password)
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if err := a.SendVerification(ctx, id); err != nil {
		t.Fatalf("SendVerification() error = %v", err)
	}
	m, ok := mailer.Last("verify")
	if !ok {
		t.Fatal("no verification message sent")
	}
	if err := a.ApplyVerification(ctx, m.Code); err != nil {
		t.Fatalf("ApplyVerification() error = %v", err)
	}
	id, err = a.SignIn(ctx, email, password)
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	return id
}
