// Package config handles the XDG configuration directory, the config.yaml
// file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "remindo"

	// ConfigFile is the optional YAML settings file.
	ConfigFile = "config.yaml"

	// EnvFile is the optional dotenv file.
	EnvFile = ".env"

	// SessionFile holds the signed-in session token.
	SessionFile = "session.json"

	// UsersFile holds the local identity provider's accounts.
	UsersFile = "users.json"

	// SecretFile holds the generated token signing key.
	SecretFile = "auth.key"

	// OutboxDir receives verification and password reset messages.
	OutboxDir = "outbox"

	// OAuthClientFile is the Google OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored Google OAuth token filename.
	TokenFile = "token.json"
)

// Store backend types.
const (
	StoreMemory      = "memory"
	StorePostgres    = "postgres"
	StoreMongo       = "mongo"
	StoreGoogleTasks = "googletasks"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string `yaml:"-"`

	// Debug enables debug logging.
	Debug bool `yaml:"-"`

	// Quiet suppresses informational output.
	Quiet bool `yaml:"-"`

	Store         StoreConfig        `yaml:"store"`
	Auth          AuthConfig         `yaml:"auth"`
	Notifications NotificationConfig `yaml:"notifications"`
	Reminders     ReminderConfig     `yaml:"reminders"`
	Serve         ServeConfig        `yaml:"serve"`
}

// StoreConfig selects and addresses the Remote Store.
type StoreConfig struct {
	Type     string `yaml:"type"`
	URL      string `yaml:"url"`
	Database string `yaml:"database"`

	// PollInterval applies to backends without push notifications.
	PollInterval time.Duration `yaml:"poll_interval"`

	// Timeout bounds each store round trip.
	Timeout time.Duration `yaml:"timeout"`
}

// AuthConfig configures the local identity provider.
type AuthConfig struct {
	// Secret signs session and action tokens. Generated into the config
	// directory when empty.
	Secret      string        `yaml:"secret"`
	SessionTTL  time.Duration `yaml:"session_ttl"`
	ActionTTL   time.Duration `yaml:"action_ttl"`
	LinkBaseURL string        `yaml:"link_base_url"`
	MaxFailures int           `yaml:"max_failures"`
	Lockout     time.Duration `yaml:"lockout"`
	BcryptCost  int           `yaml:"bcrypt_cost"`
}

// NotificationConfig configures local alert delivery.
type NotificationConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bell    bool   `yaml:"bell"`
	Title   string `yaml:"title"`
}

// ReminderConfig configures the reminder scanner.
type ReminderConfig struct {
	Interval time.Duration `yaml:"interval"`
	Policy   string        `yaml:"policy"`
}

// ServeConfig configures the action-link HTTP server.
type ServeConfig struct {
	Addr string `yaml:"addr"`
}

// New creates a Config with defaults and the default or specified config
// directory. It does not read any file; see Load.
// If configDir is empty, uses XDG_CONFIG_HOME/remindo or $HOME/.config/remindo.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return Default(dir), nil
}

// Default returns a Config rooted at dir with every setting at its default.
func Default(dir string) *Config {
	return &Config{
		Dir: dir,
		Store: StoreConfig{
			Type:         StorePostgres,
			URL:          "postgres://localhost:5432/remindo",
			Database:     AppName,
			PollInterval: 10 * time.Second,
			Timeout:      5 * time.Second,
		},
		Auth: AuthConfig{
			SessionTTL:  30 * 24 * time.Hour,
			ActionTTL:   24 * time.Hour,
			LinkBaseURL: "http://localhost:8086",
			MaxFailures: 5,
			Lockout:     15 * time.Minute,
		},
		Notifications: NotificationConfig{
			Enabled: true,
			Bell:    true,
			Title:   "Task Reminder",
		},
		Reminders: ReminderConfig{
			Interval: time.Minute,
			Policy:   "exact-minute",
		},
		Serve: ServeConfig{
			Addr: "localhost:8086",
		},
	}
}

// Load builds a Config from defaults, config.yaml, dotenv files and the
// environment, in increasing order of precedence.
func Load(configDir string) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}

	if err := loadDotenv(filepath.Join(cfg.Dir, EnvFile), EnvFile); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(cfg.Path(ConfigFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", ConfigFile, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", ConfigFile, err)
		}
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// loadDotenv loads each existing file. Variables already present in the
// environment win.
func loadDotenv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("invalid %s: %w", p, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("REMINDO_STORE_TYPE", &c.Store.Type)
	setString("REMINDO_STORE_URL", &c.Store.URL)
	setString("REMINDO_STORE_DATABASE", &c.Store.Database)
	setString("REMINDO_AUTH_SECRET", &c.Auth.Secret)
	setString("REMINDO_LINK_BASE_URL", &c.Auth.LinkBaseURL)
	setString("REMINDO_REMINDER_POLICY", &c.Reminders.Policy)
	setString("REMINDO_SERVE_ADDR", &c.Serve.Addr)
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Store.Type {
	case StoreMemory, StorePostgres, StoreMongo, StoreGoogleTasks:
	default:
		return fmt.Errorf("unknown store type: %s", c.Store.Type)
	}
	switch c.Reminders.Policy {
	case "exact-minute", "catch-up":
	default:
		return fmt.Errorf("unknown reminder policy: %s", c.Reminders.Policy)
	}
	if c.Reminders.Interval <= 0 {
		return fmt.Errorf("reminder interval must be positive")
	}
	return nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// Path joins name onto the config directory.
func (c *Config) Path(name string) string {
	return filepath.Join(c.Dir, name)
}

// SessionPath returns the path to the stored session file.
func (c *Config) SessionPath() string { return c.Path(SessionFile) }

// UsersPath returns the path to the local accounts file.
func (c *Config) UsersPath() string { return c.Path(UsersFile) }

// SecretPath returns the path to the generated signing key.
func (c *Config) SecretPath() string { return c.Path(SecretFile) }

// OutboxPath returns the directory receiving outgoing messages.
func (c *Config) OutboxPath() string { return c.Path(OutboxDir) }

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string { return c.Path(OAuthClientFile) }

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string { return c.Path(TokenFile) }

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	return exists(c.OAuthClientPath())
}

// HasToken checks if the OAuth token file exists.
func (c *Config) HasToken() bool {
	return exists(c.TokenPath())
}

// HasSession checks if a session file exists.
func (c *Config) HasSession() bool {
	return exists(c.SessionPath())
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
