// Package config implements TOML configuration loading, validation, and
// platform path resolution for hubcli. A missing config file yields the
// defaults; a malformed one is an error.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Auth    AuthConfig    `toml:"auth"`
	Cache   CacheConfig   `toml:"cache"`
	Logging LoggingConfig `toml:"logging"`
}

// AuthConfig tunes the credential lifecycle core.
type AuthConfig struct {
	// WarningThresholdSeconds is how close to expiry a credential may get
	// before it counts as expiring soon.
	WarningThresholdSeconds int `toml:"warning_threshold_seconds"`
	// MaxRetryAttempts bounds one re-authentication protocol run.
	MaxRetryAttempts int `toml:"max_retry_attempts"`
	// RetryBaseDelayMS is the backoff before the second round; it doubles
	// every round after.
	RetryBaseDelayMS int `toml:"retry_base_delay_ms"`
	// AutoRefresh enables best-effort refresh of expiring credentials.
	AutoRefresh bool `toml:"auto_refresh"`
	// ClientID overrides the built-in OAuth app client ID.
	ClientID string `toml:"client_id"`
}

// CacheConfig controls the local API response cache.
type CacheConfig struct {
	Enabled    bool   `toml:"enabled"`
	TTLSeconds int    `toml:"ttl_seconds"`
	Path       string `toml:"path"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel string `toml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Auth: AuthConfig{
			WarningThresholdSeconds: 300,
			MaxRetryAttempts:        3,
			RetryBaseDelayMS:        1000,
			AutoRefresh:             true,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 300,
		},
		Logging: LoggingConfig{
			LogLevel: "info",
		},
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving config directory: %w", err)
	}

	return filepath.Join(dir, "hubcli", "config.toml"), nil
}

// DefaultCachePath returns the per-user cache database location.
func DefaultCachePath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving cache directory: %w", err)
	}

	return filepath.Join(dir, "hubcli", "responses.db"), nil
}

// Load reads the config file at path, layering it over the defaults.
// A missing file is not an error — the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}

	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config: %s: unknown key %q", path, undecoded[0].String())
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}

	return cfg, nil
}

// validate rejects values that would break the lifecycle core.
func (c Config) validate() error {
	if c.Auth.WarningThresholdSeconds <= 0 {
		return errors.New("auth.warning_threshold_seconds must be positive")
	}

	if c.Auth.MaxRetryAttempts < 1 {
		return errors.New("auth.max_retry_attempts must be at least 1")
	}

	if c.Auth.RetryBaseDelayMS <= 0 {
		return errors.New("auth.retry_base_delay_ms must be positive")
	}

	if c.Cache.TTLSeconds < 0 {
		return errors.New("cache.ttl_seconds must not be negative")
	}

	switch c.Logging.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.log_level: unknown level %q", c.Logging.LogLevel)
	}

	return nil
}
