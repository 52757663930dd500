// Package config loads the daybook runtime configuration from an
// optional YAML file overlaid with environment variables. A missing
// file is not an error; the built-in defaults keep the application
// runnable with zero setup.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvMasterKey is the environment variable that supplies the master
// passphrase. It takes precedence over the config file.
const EnvMasterKey = "DAYBOOK_MASTER_KEY"

// insecureDefaultPassphrase keeps a fresh install runnable before any
// passphrase is configured. Content encrypted under it is readable by
// anyone with a copy of this source, so startup must warn until it is
// replaced (see CheckSecure).
const insecureDefaultPassphrase = "daybook-insecure-default-passphrase-change-me"

// Defaults applied when the config file is absent or leaves a field unset.
const (
	DefaultDatabasePath = "daybook.db"
	DefaultSessionTTL   = 30 * 24 * time.Hour
)

// ErrDefaultPassphrase reports that the built-in fallback passphrase is
// still in place. It is a startup warning, never a fatal error: the
// application stays available, the operator gets told.
var ErrDefaultPassphrase = errors.New("master passphrase is the built-in default; set " + EnvMasterKey)

// Config is the resolved runtime configuration.
// Instances are built once at startup and treated as immutable afterwards.
type Config struct {
	// DatabasePath locates the SQLite database file. Parent directories
	// are created on open when missing.
	DatabasePath string

	// MasterPassphrase feeds the at-rest key derivation. Resolution
	// order: DAYBOOK_MASTER_KEY, then the config file, then the
	// known-insecure built-in fallback.
	MasterPassphrase string

	// SessionTTL is the lifetime granted to a session on each write or
	// touch.
	SessionTTL time.Duration
}

// fileConfig mirrors the YAML document shape. Durations travel as
// strings ("720h", "45m") and are parsed during Load.
type fileConfig struct {
	DatabasePath     string `yaml:"database_path"`
	MasterPassphrase string `yaml:"master_passphrase"`
	SessionTTL       string `yaml:"session_ttl"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DatabasePath:     DefaultDatabasePath,
		MasterPassphrase: insecureDefaultPassphrase,
		SessionTTL:       DefaultSessionTTL,
	}
}

// Load reads the YAML file at path and overlays it on the defaults,
// then applies environment overrides. A missing file (or empty path)
// is not an error. The error is non-nil when the file exists but is
// unreadable, is malformed, contains unknown fields (typos), or holds
// an invalid value - even then the returned Config is usable (defaults
// plus environment), so callers can warn and keep running.
func Load(path string) (*Config, error) {
	cfg := Default()
	var loadErr error

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Absent file runs on defaults.
		case err != nil:
			loadErr = fmt.Errorf("read config file: %w", err)
		default:
			// Parse YAML with strict field validation (catches typos like "databse_path:")
			var f fileConfig
			decoder := yaml.NewDecoder(bytes.NewReader(data))
			decoder.KnownFields(true) // Reject unknown fields
			if err := decoder.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
				loadErr = fmt.Errorf("parse config file: %w", err)
			} else if err := f.apply(cfg); err != nil {
				loadErr = fmt.Errorf("invalid config: %w", err)
			}
		}
	}

	if key := os.Getenv(EnvMasterKey); key != "" {
		cfg.MasterPassphrase = key
	}

	return cfg, loadErr
}

// apply overlays the file's set fields onto cfg. Empty fields keep
// their defaults. Validation runs before any assignment so a bad field
// cannot leave cfg half-updated.
func (f *fileConfig) apply(cfg *Config) error {
	ttl := cfg.SessionTTL
	if f.SessionTTL != "" {
		parsed, err := time.ParseDuration(f.SessionTTL)
		if err != nil {
			return fmt.Errorf("parse session_ttl: %w", err)
		}
		if parsed <= 0 {
			return fmt.Errorf("session_ttl must be positive, got %s", parsed)
		}
		ttl = parsed
	}

	if f.DatabasePath != "" {
		cfg.DatabasePath = f.DatabasePath
	}
	if f.MasterPassphrase != "" {
		cfg.MasterPassphrase = f.MasterPassphrase
	}
	cfg.SessionTTL = ttl
	return nil
}

// CheckSecure reports whether the configuration is safe to run with.
// It returns ErrDefaultPassphrase while the built-in fallback is still
// in place; callers surface it as a warning and continue.
func (c *Config) CheckSecure() error {
	if c.MasterPassphrase == insecureDefaultPassphrase {
		return ErrDefaultPassphrase
	}
	return nil
}
