// Package config loads the user's passman settings from a TOML file under
// the per-user configuration root.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
)

const (
	// EnvHome overrides the configuration root.
	EnvHome = "PASSMAN_HOME"

	appDir   = "passman"
	fileName = "config.toml"
	auditDB  = "audit.db"
)

// Config is the on-disk configuration.
type Config struct {
	DefaultVault string        `toml:"default_vault"`
	Session      SessionConfig `toml:"session"`
	Backup       BackupConfig  `toml:"backup"`
	Policy       PolicyConfig  `toml:"policy"`
	Log          LogConfig     `toml:"log"`
	Audit        AuditConfig   `toml:"audit"`

	// Root is the directory the file was loaded from. It is not persisted.
	Root string `toml:"-"`
}

type SessionConfig struct {
	MaxFailedAttempts int `toml:"max_failed_attempts"`
	TimeoutMinutes    int `toml:"timeout_minutes"`
}

type BackupConfig struct {
	Retention int `toml:"retention"`
}

type PolicyConfig struct {
	MinLength   int  `toml:"min_length"`
	MinScore    int  `toml:"min_score"`
	CheckBreach bool `toml:"check_breach"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type AuditConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns the built-in configuration rooted at root.
func Default(root string) Config {
	return Config{
		DefaultVault: "default",
		Session:      SessionConfig{MaxFailedAttempts: 5, TimeoutMinutes: 15},
		Backup:       BackupConfig{Retention: 10},
		Policy:       PolicyConfig{MinLength: 12, MinScore: 3},
		Log:          LogConfig{Level: "warn", Format: "console"},
		Audit:        AuditConfig{Enabled: true},
		Root:         root,
	}
}

// DefaultRoot returns $PASSMAN_HOME, or the passman directory under the
// user's configuration directory.
func DefaultRoot() (string, error) {
	if home := strings.TrimSpace(os.Getenv(EnvHome)); home != "" {
		return home, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config directory: %w", err)
	}
	return filepath.Join(dir, appDir), nil
}

// Path returns the config file path under root.
func Path(root string) string { return filepath.Join(root, fileName) }

// AuditPath returns the audit database path.
func (c Config) AuditPath() string { return filepath.Join(c.Root, auditDB) }

// SessionTimeout returns the session lifetime.
func (c Config) SessionTimeout() time.Duration {
	return time.Duration(c.Session.TimeoutMinutes) * time.Minute
}

// Load reads root/config.toml over the defaults. A missing file is not an error.
func Load(root string) (Config, error) {
	cfg := Default(root)
	md, err := toml.DecodeFile(Path(root), &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, pmerr.Wrap(pmerr.KindInvalidInput, "load config", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, pmerr.Wrap(pmerr.KindInvalidInput, "load config", fmt.Errorf("unknown keys: %v", undecoded))
	}
	cfg.Root = root
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the vault cannot honour.
func (c Config) Validate() error {
	var errs []error
	if c.Session.MaxFailedAttempts <= 0 {
		errs = append(errs, errors.New("session.max_failed_attempts must be positive"))
	}
	if c.Session.TimeoutMinutes <= 0 {
		errs = append(errs, errors.New("session.timeout_minutes must be positive"))
	}
	if c.Backup.Retention <= 0 {
		errs = append(errs, errors.New("backup.retention must be positive"))
	}
	if c.Policy.MinScore < 0 || c.Policy.MinScore > 4 {
		errs = append(errs, errors.New("policy.min_score must be between 0 and 4"))
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be console or json", c.Log.Format))
	}
	if len(errs) > 0 {
		return pmerr.Wrap(pmerr.KindInvalidInput, "validate config", errors.Join(errs...))
	}
	return nil
}

// Save writes cfg to root/config.toml with owner-only permissions.
func Save(cfg Config) error {
	if cfg.Root == "" {
		return pmerr.Wrap(pmerr.KindInvalidInput, "save config", errors.New("config root is empty"))
	}
	if err := os.MkdirAll(cfg.Root, 0o700); err != nil {
		return pmerr.Wrap(pmerr.KindStorage, "create config directory", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return pmerr.Wrap(pmerr.KindStorage, "encode config", err)
	}

	tmp, err := os.CreateTemp(cfg.Root, ".config-*.toml")
	if err != nil {
		return pmerr.Wrap(pmerr.KindStorage, "create temp config", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return pmerr.Wrap(pmerr.KindStorage, "write temp config", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return pmerr.Wrap(pmerr.KindStorage, "close temp config", err)
	}
	if err := os.Rename(tmpPath, Path(cfg.Root)); err != nil {
		os.Remove(tmpPath)
		return pmerr.Wrap(pmerr.KindStorage, "replace config", err)
	}
	return nil
}
