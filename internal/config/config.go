// Package config loads timekeeper settings from built-in defaults, an
// optional TOML file and TIMEKEEPER_* environment variables, in that order.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// StartPolicy decides what happens when a user starts a timer while another
// one is running.
type StartPolicy string

const (
	PolicyReject   StartPolicy = "reject"
	PolicyAutoStop StartPolicy = "auto_stop"
)

// DefaultActionTimeout bounds a single timer action.
const DefaultActionTimeout = 5 * time.Second

// Config is the merged configuration.
type Config struct {
	DBPath        string        `toml:"db-path"`
	User          string        `toml:"user"`
	StartPolicy   StartPolicy   `toml:"start-policy"`
	ActionTimeout time.Duration `toml:"action-timeout"`

	Log  Log  `toml:"log"`
	OTel OTel `toml:"otel"`

	// Projects seeds the project registry. An empty list accepts any id.
	Projects []Project `toml:"projects"`
	// Grants lists elevated permissions per user.
	Grants []Grant `toml:"grants"`
}

type Log struct {
	// Calls enables one structured log line per service use case.
	Calls bool   `toml:"calls"`
	Level string `toml:"level"`
}

// SlogLevel parses Level. Empty means info.
func (l Log) SlogLevel() (slog.Level, error) {
	if strings.TrimSpace(l.Level) == "" {
		return slog.LevelInfo, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return 0, fmt.Errorf("log level %q: %w", l.Level, err)
	}
	return lvl, nil
}

type OTel struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
}

type Project struct {
	ID       string `toml:"id"`
	Name     string `toml:"name"`
	Archived bool   `toml:"archived"`
}

type Grant struct {
	User        string   `toml:"user"`
	Permissions []string `toml:"permissions"`
}

// envOverrides holds the scalar settings that may come from the
// environment. Pointer fields stay nil when the variable is unset.
type envOverrides struct {
	DBPath        *string        `env:"TIMEKEEPER_DB"`
	User          *string        `env:"TIMEKEEPER_USER"`
	StartPolicy   *string        `env:"TIMEKEEPER_START_POLICY"`
	ActionTimeout *time.Duration `env:"TIMEKEEPER_ACTION_TIMEOUT"`
	LogCalls      *bool          `env:"TIMEKEEPER_LOG_CALLS"`
	LogLevel      *string        `env:"TIMEKEEPER_LOG_LEVEL"`
	OTelEnabled   *bool          `env:"TIMEKEEPER_OTEL_ENABLED"`
	OTelEndpoint  *string        `env:"TIMEKEEPER_OTEL_ENDPOINT"`
}

// Default returns a Config with sensible defaults rooted at homeDir.
func Default(homeDir string) Config {
	return Config{
		DBPath:        filepath.Join(homeDir, ".timekeeper", "timekeeper.db"),
		StartPolicy:   PolicyReject,
		ActionTimeout: DefaultActionTimeout,
		Log:           Log{Level: "info"},
		OTel:          OTel{Enabled: true},
	}
}

// DefaultPath returns the config file location: TIMEKEEPER_CONFIG if set,
// otherwise ~/.timekeeper/config.toml.
func DefaultPath(homeDir string) string {
	if p := os.Getenv("TIMEKEEPER_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(homeDir, ".timekeeper", "config.toml")
}

// Load builds the effective configuration. path may be empty to use
// DefaultPath. A missing file is not an error.
func Load(path string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("finding home directory: %w", err)
	}
	if path == "" {
		path = DefaultPath(home)
	}

	cfg := Default(home)
	if err := loadFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if cfg.User == "" {
		cfg.User = currentUsername()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	meta, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("config file %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.DBPath != nil {
		cfg.DBPath = *o.DBPath
	}
	if o.User != nil {
		cfg.User = strings.TrimSpace(*o.User)
	}
	if o.StartPolicy != nil {
		cfg.StartPolicy = StartPolicy(strings.TrimSpace(*o.StartPolicy))
	}
	if o.ActionTimeout != nil {
		cfg.ActionTimeout = *o.ActionTimeout
	}
	if o.LogCalls != nil {
		cfg.Log.Calls = *o.LogCalls
	}
	if o.LogLevel != nil {
		cfg.Log.Level = *o.LogLevel
	}
	if o.OTelEnabled != nil {
		cfg.OTel.Enabled = *o.OTelEnabled
	}
	if o.OTelEndpoint != nil {
		cfg.OTel.Endpoint = *o.OTelEndpoint
	}
	return nil
}

// Validate rejects settings the engine cannot honour.
func (c *Config) Validate() error {
	switch c.StartPolicy {
	case PolicyReject, PolicyAutoStop:
	default:
		return fmt.Errorf("start-policy %q must be %q or %q", c.StartPolicy, PolicyReject, PolicyAutoStop)
	}
	if c.ActionTimeout <= 0 {
		return fmt.Errorf("action-timeout must be positive, got %s", c.ActionTimeout)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db-path is required")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Projects))
	for _, p := range c.Projects {
		if p.ID == "" {
			return fmt.Errorf("project entries require an id")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate project id %q", p.ID)
		}
		seen[p.ID] = true
	}
	for _, g := range c.Grants {
		if g.User == "" {
			return fmt.Errorf("grant entries require a user")
		}
	}
	return nil
}

func currentUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return CoalesceEnv("USER", "USERNAME")
}

// CoalesceEnv returns the first non-empty environment variable among names.
func CoalesceEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}
