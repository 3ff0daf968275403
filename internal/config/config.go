// Package config loads the meterdesk configuration from TOML files, an
// optional .env file, and METERDESK_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/meterdesk/pkg/backend"
	"github.com/JaimeStill/meterdesk/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvMeterdeskEnv             = "METERDESK_ENV"
	EnvMeterdeskShutdownTimeout = "METERDESK_SHUTDOWN_TIMEOUT"
	EnvMeterdeskVersion         = "METERDESK_VERSION"
	EnvMeterdeskDebug           = "METERDESK_DEBUG"
)

var backendEnv = &backend.Env{
	BaseURL:       "METERDESK_BACKEND_BASE_URL",
	Timeout:       "METERDESK_BACKEND_TIMEOUT",
	UploadTimeout: "METERDESK_BACKEND_UPLOAD_TIMEOUT",
	LoginPath:     "METERDESK_BACKEND_LOGIN_PATH",
	CookieName:    "METERDESK_BACKEND_COOKIE_NAME",
	SessionCookie: "METERDESK_BACKEND_SESSION_COOKIE",
	UserAgent:     "METERDESK_BACKEND_USER_AGENT",
}

var storageEnv = &storage.Env{
	Root:   "METERDESK_STORAGE_ROOT",
	Retain: "METERDESK_STORAGE_RETAIN",
}

// Config is the root configuration for the meterdesk console.
type Config struct {
	Server          ServerConfig   `toml:"server"`
	Backend         backend.Config `toml:"backend"`
	Storage         storage.Config `toml:"storage"`
	Session         SessionConfig  `toml:"session"`
	Upload          UploadConfig   `toml:"upload"`
	Console         ConsoleConfig  `toml:"console"`
	ShutdownTimeout string         `toml:"shutdown_timeout"`
	Version         string         `toml:"version"`
	Debug           bool           `toml:"debug"`
}

// Env returns the METERDESK_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvMeterdeskEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads a .env file and the base config (both optional), applies any
// environment overlay, and finalizes all values. Variables already present in
// the process environment take precedence over the .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
// Debug only ever turns on through an overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	if overlay.Debug {
		c.Debug = true
	}
	c.Server.Merge(&overlay.Server)
	c.Backend.Merge(&overlay.Backend)
	c.Storage.Merge(&overlay.Storage)
	c.Session.Merge(&overlay.Session)
	c.Upload.Merge(&overlay.Upload)
	c.Console.Merge(&overlay.Console)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Backend.Finalize(backendEnv); err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Session.Finalize(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if err := c.Upload.Finalize(); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	if err := c.Console.Finalize(); err != nil {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvMeterdeskShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvMeterdeskVersion); v != "" {
		c.Version = v
	}
	if v := os.Getenv(EnvMeterdeskDebug); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Debug = b
		}
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvMeterdeskEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
