package backend

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Config holds connection parameters for the extraction backend.
// SessionCookie seeds the client's cookie jar with a session issued by the
// backend's own login flow.
type Config struct {
	BaseURL       string `toml:"base_url"`
	Timeout       string `toml:"timeout"`
	UploadTimeout string `toml:"upload_timeout"`
	LoginPath     string `toml:"login_path"`
	CookieName    string `toml:"cookie_name"`
	SessionCookie string `toml:"session_cookie"`
	UserAgent     string `toml:"user_agent"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	BaseURL       string
	Timeout       string
	UploadTimeout string
	LoginPath     string
	CookieName    string
	SessionCookie string
	UserAgent     string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// UploadTimeoutDuration returns UploadTimeout as a time.Duration.
func (c *Config) UploadTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.UploadTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.UploadTimeout != "" {
		c.UploadTimeout = overlay.UploadTimeout
	}
	if overlay.LoginPath != "" {
		c.LoginPath = overlay.LoginPath
	}
	if overlay.CookieName != "" {
		c.CookieName = overlay.CookieName
	}
	if overlay.SessionCookie != "" {
		c.SessionCookie = overlay.SessionCookie
	}
	if overlay.UserAgent != "" {
		c.UserAgent = overlay.UserAgent
	}
}

func (c *Config) loadDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://127.0.0.1:5000"
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
	if c.UploadTimeout == "" {
		c.UploadTimeout = "2m"
	}
	if c.LoginPath == "" {
		c.LoginPath = "/logout"
	}
	if c.CookieName == "" {
		c.CookieName = "session"
	}
	if c.UserAgent == "" {
		c.UserAgent = "meterdesk"
	}
}

func (c *Config) loadEnv(env *Env) {
	set := func(name string, target *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*target = v
		}
	}

	set(env.BaseURL, &c.BaseURL)
	set(env.Timeout, &c.Timeout)
	set(env.UploadTimeout, &c.UploadTimeout)
	set(env.LoginPath, &c.LoginPath)
	set(env.CookieName, &c.CookieName)
	set(env.SessionCookie, &c.SessionCookie)
	set(env.UserAgent, &c.UserAgent)
}

func (c *Config) validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url must be http or https: %s", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("base_url missing host: %s", c.BaseURL)
	}
	if d, err := time.ParseDuration(c.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid timeout: %q", c.Timeout)
	}
	if d, err := time.ParseDuration(c.UploadTimeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid upload_timeout: %q", c.UploadTimeout)
	}
	if !strings.HasPrefix(c.LoginPath, "/") {
		return fmt.Errorf("login_path must start with /: %s", c.LoginPath)
	}
	return nil
}
