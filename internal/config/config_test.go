package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"remindo/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("REMINDO_STORE_TYPE", "")

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dir != dir {
		t.Errorf("expected dir %q, got %q", dir, cfg.Dir)
	}
	if cfg.Store.Type != config.StorePostgres {
		t.Errorf("expected default store %q, got %q", config.StorePostgres, cfg.Store.Type)
	}
	if cfg.Reminders.Interval != time.Minute {
		t.Errorf("expected 1m reminder interval, got %v", cfg.Reminders.Interval)
	}
	if cfg.Reminders.Policy != "exact-minute" {
		t.Errorf("expected exact-minute policy, got %q", cfg.Reminders.Policy)
	}
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	yml := `
store:
  type: mongo
  url: mongodb://db:27017
  poll_interval: 3s
reminders:
  policy: catch-up
  interval: 30s
`
	if err := os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte(yml), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, config.EnvFile), []byte("REMINDO_AUTH_SECRET=from-dotenv\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("REMINDO_STORE_URL", "mongodb://override:27017")
	t.Setenv("REMINDO_AUTH_SECRET", "")
	t.Setenv("REMINDO_STORE_TYPE", "")
	os.Unsetenv("REMINDO_AUTH_SECRET")

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Type != config.StoreMongo {
		t.Errorf("expected store type from yaml, got %q", cfg.Store.Type)
	}
	if cfg.Store.URL != "mongodb://override:27017" {
		t.Errorf("expected env to override yaml url, got %q", cfg.Store.URL)
	}
	if cfg.Store.PollInterval != 3*time.Second {
		t.Errorf("expected 3s poll interval, got %v", cfg.Store.PollInterval)
	}
	if cfg.Reminders.Interval != 30*time.Second {
		t.Errorf("expected 30s interval, got %v", cfg.Reminders.Interval)
	}
	if cfg.Auth.Secret != "from-dotenv" {
		t.Errorf("expected secret from .env, got %q", cfg.Auth.Secret)
	}
	// Untouched sections keep their defaults.
	if cfg.Auth.MaxFailures != 5 {
		t.Errorf("expected default max failures, got %d", cfg.Auth.MaxFailures)
	}
}

func TestLoad_InvalidStoreType(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("REMINDO_STORE_TYPE", "sqlite")

	if _, err := config.Load(dir); err == nil {
		t.Fatal("expected error for unknown store type")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("REMINDO_STORE_TYPE", "")
	if err := os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte("store: ["), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := config.Load(dir); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestSession_RoundTrip(t *testing.T) {
	cfg := config.Default(filepath.Join(t.TempDir(), "nested"))

	if _, err := cfg.LoadSession(); err != config.ErrNoSession {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if err := cfg.SaveSession(config.Session{Token: "tok", UID: "u1", Email: "a@x.com"}); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	info, err := os.Stat(cfg.SessionPath())
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}

	s, err := cfg.LoadSession()
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if s.Token != "tok" || s.UID != "u1" {
		t.Errorf("unexpected session %+v", s)
	}

	if err := cfg.RemoveSession(); err != nil {
		t.Fatalf("RemoveSession: %v", err)
	}
	if cfg.HasSession() {
		t.Error("session file still present")
	}
	if err := cfg.RemoveSession(); err != nil {
		t.Errorf("second RemoveSession should be a no-op, got %v", err)
	}
}
