// Package config loads panel configuration from a YAML file with
// environment-variable overrides (prefix UD, e.g. UD_SERVER_ADDRESS).
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	// Address is the listen address, e.g. "127.0.0.1:8372".
	Address string `mapstructure:"address"`
	// Mode is "debug" or "release". Release mode marks cookies Secure.
	Mode string `mapstructure:"mode"`
}

type AuthConfig struct {
	// PasswordHash is the operator's bcrypt hash (cost 12). Generate
	// with `unitdeck hash`. Empty means the panel refuses logins with
	// a distinct not-configured error.
	PasswordHash string `mapstructure:"password_hash"`
	// SigningSecret keys the session-cookie HMAC. Rotating it logs
	// the operator out.
	SigningSecret string `mapstructure:"signing_secret"`
	// Allowlist is a comma-separated list of addresses and CIDR
	// ranges. Empty disables the check.
	Allowlist string `mapstructure:"allowlist"`
	// SessionLifetimeHours is the absolute session lifetime.
	SessionLifetimeHours int `mapstructure:"session_lifetime_hours"`
}

type RateLimitConfig struct {
	MaxAttempts      int `mapstructure:"max_attempts"`
	WindowMinutes    int `mapstructure:"window_minutes"`
	LockoutThreshold int `mapstructure:"lockout_threshold"`
	LockoutMinutes   int `mapstructure:"lockout_minutes"`
	SweepMinutes     int `mapstructure:"sweep_minutes"`
}

type SystemdConfig struct {
	// UnitDirs are the directories scanned for .service files.
	UnitDirs []string `mapstructure:"unit_dirs"`
	// CommandTimeoutSeconds bounds each systemctl/journalctl call.
	CommandTimeoutSeconds int `mapstructure:"command_timeout_seconds"`
}

type AuditConfig struct {
	// Path is the SQLite database file; empty logs JSON lines to
	// stderr instead.
	Path string `mapstructure:"path"`
	// BufferSize is the async dispatch buffer.
	BufferSize int `mapstructure:"buffer_size"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Systemd   SystemdConfig   `mapstructure:"systemd"`
	Audit     AuditConfig     `mapstructure:"audit"`
}

// Load reads configuration from path (default "config.yaml" in the
// working directory) and validates the security-critical fields.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("UD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.address", "127.0.0.1:8372")
	v.SetDefault("server.mode", "release")
	v.SetDefault("auth.session_lifetime_hours", 24)
	v.SetDefault("rate_limit.max_attempts", 5)
	v.SetDefault("rate_limit.window_minutes", 15)
	v.SetDefault("rate_limit.lockout_threshold", 10)
	v.SetDefault("rate_limit.lockout_minutes", 30)
	v.SetDefault("rate_limit.sweep_minutes", 5)
	v.SetDefault("systemd.unit_dirs", []string{"/etc/systemd/system"})
	v.SetDefault("systemd.command_timeout_seconds", 30)
	v.SetDefault("audit.buffer_size", 256)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No file is fine; env and defaults still apply.
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	if c.Auth.SigningSecret == "" {
		return errors.New("auth.signing_secret is required")
	}
	if len(c.Auth.SigningSecret) < 32 {
		return errors.New("auth.signing_secret must be at least 32 characters")
	}
	if c.RateLimit.LockoutThreshold <= c.RateLimit.MaxAttempts {
		return fmt.Errorf("rate_limit.lockout_threshold (%d) must exceed max_attempts (%d)",
			c.RateLimit.LockoutThreshold, c.RateLimit.MaxAttempts)
	}
	return nil
}
