package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrNoSession is returned when no session file exists.
var ErrNoSession = errors.New("not logged in")

// Session is the persisted sign-in state.
type Session struct {
	Token   string    `json:"token"`
	UID     string    `json:"uid"`
	Email   string    `json:"email"`
	SavedAt time.Time `json:"saved_at"`
}

// SaveSession writes the session file with mode 0600.
func (c *Config) SaveSession(s Session) error {
	if err := c.EnsureDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.SessionPath(), data, 0600)
}

// LoadSession reads the session file.
func (c *Config) LoadSession() (Session, error) {
	data, err := os.ReadFile(c.SessionPath())
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("invalid %s: %w", SessionFile, err)
	}
	if s.Token == "" {
		return Session{}, ErrNoSession
	}
	return s, nil
}

// RemoveSession deletes the session file. A missing file is not an error.
func (c *Config) RemoveSession() error {
	err := os.Remove(c.SessionPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
