package config

import (
	"fmt"
	"os"
	"time"
)

const (
	EnvSessionRefreshInterval = "METERDESK_SESSION_REFRESH_INTERVAL"
	EnvSessionRefreshTimeout  = "METERDESK_SESSION_REFRESH_TIMEOUT"
)

// SessionConfig controls the keep-alive token refresh.
type SessionConfig struct {
	RefreshInterval string `toml:"refresh_interval"`
	RefreshTimeout  string `toml:"refresh_timeout"`
}

// RefreshIntervalDuration returns RefreshInterval as a time.Duration.
func (c *SessionConfig) RefreshIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.RefreshInterval)
	return d
}

// RefreshTimeoutDuration returns RefreshTimeout as a time.Duration.
func (c *SessionConfig) RefreshTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.RefreshTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *SessionConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *SessionConfig) Merge(overlay *SessionConfig) {
	if overlay.RefreshInterval != "" {
		c.RefreshInterval = overlay.RefreshInterval
	}
	if overlay.RefreshTimeout != "" {
		c.RefreshTimeout = overlay.RefreshTimeout
	}
}

func (c *SessionConfig) loadDefaults() {
	if c.RefreshInterval == "" {
		c.RefreshInterval = "45m"
	}
	if c.RefreshTimeout == "" {
		c.RefreshTimeout = "15s"
	}
}

func (c *SessionConfig) loadEnv() {
	if v := os.Getenv(EnvSessionRefreshInterval); v != "" {
		c.RefreshInterval = v
	}
	if v := os.Getenv(EnvSessionRefreshTimeout); v != "" {
		c.RefreshTimeout = v
	}
}

func (c *SessionConfig) validate() error {
	interval, err := time.ParseDuration(c.RefreshInterval)
	if err != nil {
		return fmt.Errorf("invalid refresh_interval: %w", err)
	}
	if interval <= 0 {
		return fmt.Errorf("refresh_interval must be positive")
	}
	timeout, err := time.ParseDuration(c.RefreshTimeout)
	if err != nil {
		return fmt.Errorf("invalid refresh_timeout: %w", err)
	}
	if timeout <= 0 || timeout >= interval {
		return fmt.Errorf("refresh_timeout must be positive and shorter than refresh_interval")
	}
	return nil
}
