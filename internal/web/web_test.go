package web_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"remindo/internal/authflow"
	"remindo/internal/testutil"
	"remindo/internal/web"
)

func fixedClock() func() time.Time {
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	return func() time.Time { return now }
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func postForm(t *testing.T, h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	auth, mailer := testutil.NewAuth(t, fixedClock())
	id, err := auth.SignUp(ctx, "a@x.com", "abc123!")
	if err != nil {
		t.Fatal(err)
	}
	auth.SendVerification(ctx, id)
	m, _ := mailer.Last("verify")

	router := web.NewRouter(auth)

	if rec := get(t, router, "/verify"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing code: status = %d", rec.Code)
	}
	if rec := get(t, router, "/verify?code=bogus"); rec.Code != http.StatusBadRequest || rec.Body.String() != authflow.MsgInvalidLink {
		t.Errorf("bad code: status = %d, body = %q", rec.Code, rec.Body.String())
	}

	rec := get(t, router, "/verify?code="+url.QueryEscape(m.Code))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %q", rec.Code, rec.Body.String())
	}

	got, err := auth.SignIn(ctx, "a@x.com", "abc123!")
	if err != nil || !got.EmailVerified {
		t.Errorf("account not verified: %+v, %v", got, err)
	}
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	auth, mailer := testutil.NewAuth(t, fixedClock())
	testutil.VerifiedUser(t, auth, mailer, "a@x.com", "abc123!")
	auth.SendPasswordReset(ctx, "a@x.com")
	m, _ := mailer.Last("reset")

	router := web.NewRouter(auth)

	rec := get(t, router, "/reset?code="+url.QueryEscape(m.Code))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `name="password"`) {
		t.Fatalf("form: status = %d, body = %q", rec.Code, rec.Body.String())
	}

	rec = postForm(t, router, "/reset", url.Values{"code": {m.Code}, "password": {"abc123"}})
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "include a number") {
		t.Errorf("weak password: status = %d, body = %q", rec.Code, rec.Body.String())
	}

	rec = postForm(t, router, "/reset", url.Values{"code": {m.Code}, "password": {"new456!"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("reset: status = %d, body = %q", rec.Code, rec.Body.String())
	}
	if _, err := auth.SignIn(ctx, "a@x.com", "new456!"); err != nil {
		t.Errorf("SignIn(new password) error = %v", err)
	}

	rec = postForm(t, router, "/reset", url.Values{"code": {m.Code}, "password": {"other789!"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("reused code: status = %d", rec.Code)
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	auth, _ := testutil.NewAuth(t, fixedClock())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- web.Serve(ctx, "127.0.0.1:0", web.NewRouter(auth)) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(web.ShutdownTimeout + time.Second):
		t.Fatal("Serve() did not return")
	}
}
