package localauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// account is a stored user record.
type account struct {
	UID               string    `json:"uid"`
	Email             string    `json:"email"`
	DisplayName       string    `json:"display_name,omitempty"`
	PasswordHash      string    `json:"password_hash"`
	EmailVerified     bool      `json:"email_verified"`
	CreatedAt         time.Time `json:"created_at"`
	PasswordChangedAt time.Time `json:"password_changed_at"`
	Failures          int       `json:"failures,omitempty"`
	LockedUntil       time.Time `json:"locked_until,omitempty"`
}

// accounts maps normalized email to account.
type accounts map[string]*account

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (as accounts) byUID(uid string) *account {
	for _, a := range as {
		if a.UID == uid {
			return a
		}
	}
	return nil
}

// accountFile persists accounts as JSON. An empty path keeps them in memory.
type accountFile struct {
	path string
	mem  accounts
}

func (f *accountFile) load() (accounts, error) {
	if f.path == "" {
		if f.mem == nil {
			f.mem = make(accounts)
		}
		return f.mem, nil
	}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(accounts), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts: %w", err)
	}
	as := make(accounts)
	if err := json.Unmarshal(data, &as); err != nil {
		return nil, fmt.Errorf("invalid accounts file: %w", err)
	}
	return as, nil
}

// save writes atomically with mode 0600.
func (f *accountFile) save(as accounts) error {
	if f.path == "" {
		f.mem = as
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(as, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}
