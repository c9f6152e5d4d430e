package localauth

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"remindo/internal/service"
)

type mailbox struct {
	mu   sync.Mutex
	sent []Message
}

func (m *mailbox) Send(ctx context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mailbox) last(t *testing.T) Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no message sent")
	}
	return m.sent[len(m.sent)-1]
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newAuth(t *testing.T, path string) (*Auth, *mailbox, *clock) {
	t.Helper()
	mb := &mailbox{}
	clk := &clock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	a, err := New(Options{
		UsersPath:   path,
		Secret:      []byte("test-secret"),
		LinkBaseURL: "http://localhost:8086/",
		MaxFailures: 3,
		Lockout:     time.Minute,
		BcryptCost:  bcrypt.MinCost,
		Mailer:      mb,
		Now:         clk.now,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a, mb, clk
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	if got := service.AuthCode(err); got != code {
		t.Fatalf("error = %v, want code %q", err, code)
	}
}

func TestNew_RequiresSecretAndMailer(t *testing.T) {
	if _, err := New(Options{Mailer: &mailbox{}}); err == nil {
		t.Error("expected error without secret")
	}
	if _, err := New(Options{Secret: []byte("x")}); err == nil {
		t.Error("expected error without mailer")
	}
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newAuth(t, "")

	id, err := a.SignUp(ctx, "amy@example.com", "abc123!")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if id.UID == "" || id.Token == "" {
		t.Errorf("identity = %+v, want uid and token", id)
	}
	if id.EmailVerified {
		t.Error("new account should be unverified")
	}

	_, err = a.SignUp(ctx, "AMY@example.com", "abc123!")
	wantCode(t, err, service.CodeEmailAlreadyInUse)
}

func TestSignUp_Rejects(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newAuth(t, "")

	tests := []struct {
		email, password, code string
	}{
		{"amy", "abc123!", service.CodeInvalidEmail},
		{"amy@example.com", "", service.CodeMissingPassword},
		{"amy@example.com", "a1!", service.CodeWeakPassword},
	}
	for _, tt := range tests {
		_, err := a.SignUp(ctx, tt.email, tt.password)
		wantCode(t, err, tt.code)
	}
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newAuth(t, "")
	created, _ := a.SignUp(ctx, "amy@example.com", "abc123!")

	id, err := a.SignIn(ctx, " Amy@Example.com ", "abc123!")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if id.UID != created.UID {
		t.Errorf("uid = %q, want %q", id.UID, created.UID)
	}

	_, err = a.SignIn(ctx, "bob@example.com", "abc123!")
	wantCode(t, err, service.CodeUserNotFound)

	_, err = a.SignIn(ctx, "amy@example.com", "wrong")
	wantCode(t, err, service.CodeInvalidCredential)

	_, err = a.SignIn(ctx, "amy@example.com", "")
	wantCode(t, err, service.CodeMissingPassword)

	_, err = a.SignIn(ctx, "not-an-email", "abc123!")
	wantCode(t, err, service.CodeInvalidEmail)
}

func TestSignIn_Lockout(t *testing.T) {
	ctx := context.Background()
	a, _, clk := newAuth(t, "")
	a.SignUp(ctx, "amy@example.com", "abc123!")

	for i := 0; i < 3; i++ {
		_, err := a.SignIn(ctx, "amy@example.com", "wrong")
		wantCode(t, err, service.CodeInvalidCredential)
	}

	_, err := a.SignIn(ctx, "amy@example.com", "abc123!")
	wantCode(t, err, service.CodeTooManyRequests)

	clk.advance(2 * time.Minute)
	if _, err := a.SignIn(ctx, "amy@example.com", "abc123!"); err != nil {
		t.Fatalf("SignIn() after lockout error = %v", err)
	}
}

func TestVerification(t *testing.T) {
	ctx := context.Background()
	a, mb, _ := newAuth(t, "")
	id, _ := a.SignUp(ctx, "amy@example.com", "abc123!")

	if err := a.SendVerification(ctx, id); err != nil {
		t.Fatalf("SendVerification() error = %v", err)
	}
	msg := mb.last(t)
	if msg.To != "amy@example.com" || msg.Kind != "verify" {
		t.Errorf("message = %+v", msg)
	}
	if !strings.Contains(msg.Body, "http://localhost:8086/verify?code="+msg.Code) {
		t.Errorf("body missing link:\n%s", msg.Body)
	}

	// A session token is not a verification code.
	wantCode(t, a.ApplyVerification(ctx, id.Token), service.CodeInvalidActionCode)
	wantCode(t, a.ApplyVerification(ctx, "garbage"), service.CodeInvalidActionCode)

	if err := a.ApplyVerification(ctx, msg.Code); err != nil {
		t.Fatalf("ApplyVerification() error = %v", err)
	}
	got, err := a.SignIn(ctx, "amy@example.com", "abc123!")
	if err != nil {
		t.Fatal(err)
	}
	if !got.EmailVerified {
		t.Error("account should be verified")
	}

	// Verified accounts get no further mail.
	before := len(mb.sent)
	a.SendVerification(ctx, got)
	if len(mb.sent) != before {
		t.Error("verified account received another message")
	}
}

func TestVerification_Expired(t *testing.T) {
	ctx := context.Background()
	a, mb, clk := newAuth(t, "")
	id, _ := a.SignUp(ctx, "amy@example.com", "abc123!")
	a.SendVerification(ctx, id)

	clk.advance(25 * time.Hour)
	wantCode(t, a.ApplyVerification(ctx, mb.last(t).Code), service.CodeInvalidActionCode)
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	a, mb, clk := newAuth(t, "")
	old, _ := a.SignUp(ctx, "amy@example.com", "abc123!")

	if err := a.SendPasswordReset(ctx, "nobody@example.com"); err != nil {
		t.Errorf("SendPasswordReset(unknown) error = %v", err)
	}
	if len(mb.sent) != 0 {
		t.Error("unknown email should not receive mail")
	}
	wantCode(t, a.SendPasswordReset(ctx, "bad"), service.CodeInvalidEmail)

	if err := a.SendPasswordReset(ctx, "amy@example.com"); err != nil {
		t.Fatalf("SendPasswordReset() error = %v", err)
	}
	code := mb.last(t).Code

	wantCode(t, a.ConfirmPasswordReset(ctx, code, "x"), service.CodeWeakPassword)

	clk.advance(time.Second)
	if err := a.ConfirmPasswordReset(ctx, code, "new456!"); err != nil {
		t.Fatalf("ConfirmPasswordReset() error = %v", err)
	}
	wantCode(t, a.ConfirmPasswordReset(ctx, code, "other789!"), service.CodeInvalidActionCode)

	_, err := a.SignIn(ctx, "amy@example.com", "abc123!")
	wantCode(t, err, service.CodeInvalidCredential)
	if _, err := a.SignIn(ctx, "amy@example.com", "new456!"); err != nil {
		t.Errorf("SignIn(new password) error = %v", err)
	}

	_, err = a.Resume(ctx, old.Token)
	wantCode(t, err, service.CodeUserTokenExpired)
}

func TestResumeAndProfile(t *testing.T) {
	ctx := context.Background()
	a, _, clk := newAuth(t, "")
	id, _ := a.SignUp(ctx, "amy@example.com", "abc123!")

	id, err := a.UpdateProfile(ctx, id, " Amy ")
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if id.DisplayName != "Amy" {
		t.Errorf("DisplayName = %q, want Amy", id.DisplayName)
	}

	got, err := a.Resume(ctx, id.Token)
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if got.UID != id.UID || got.DisplayName != "Amy" || got.Token != id.Token {
		t.Errorf("Resume() = %+v, want %+v", got, id)
	}

	_, err = a.Resume(ctx, "garbage")
	wantCode(t, err, service.CodeUserTokenExpired)

	clk.advance(31 * 24 * time.Hour)
	_, err = a.Resume(ctx, id.Token)
	wantCode(t, err, service.CodeUserTokenExpired)

	if err := a.SignOut(ctx, id); err != nil {
		t.Errorf("SignOut() error = %v", err)
	}
}

func TestAccountsPersist(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.json")

	a, _, _ := newAuth(t, path)
	id, err := a.SignUp(ctx, "amy@example.com", "abc123!")
	if err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("accounts file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("mode = %o, want 600", perm)
	}

	b, _, _ := newAuth(t, path)
	got, err := b.Resume(ctx, id.Token)
	if err != nil {
		t.Fatalf("Resume() from second instance error = %v", err)
	}
	if got.Email != "amy@example.com" {
		t.Errorf("Email = %q", got.Email)
	}
}

func TestLoadOrCreateSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.key")

	first, err := LoadOrCreateSecret(path)
	if err != nil {
		t.Fatalf("LoadOrCreateSecret() error = %v", err)
	}
	if len(first) != 32 {
		t.Errorf("len = %d, want 32", len(first))
	}
	second, err := LoadOrCreateSecret(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("secret changed between loads")
	}
}

func TestOutbox(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outbox")
	o := NewOutbox(dir)

	err := o.Send(context.Background(), Message{
		To: "amy@example.com", Subject: "Hi", Body: "hello", Kind: "verify",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("outbox entries = %v, err = %v", entries, err)
	}
	name := entries[0].Name()
	if !strings.HasSuffix(name, "-verify-amy_example.com.txt") {
		t.Errorf("file name = %q", name)
	}
	data, _ := os.ReadFile(filepath.Join(dir, name))
	if !strings.Contains(string(data), "To: amy@example.com\nSubject: Hi\n\nhello") {
		t.Errorf("content = %q", data)
	}
}
