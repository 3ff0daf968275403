package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

const (
	EnvServerHost            = "METERDESK_SERVER_HOST"
	EnvServerPort            = "METERDESK_SERVER_PORT"
	EnvServerAllowRemote     = "METERDESK_SERVER_ALLOW_REMOTE"
	EnvServerReadTimeout     = "METERDESK_SERVER_READ_TIMEOUT"
	EnvServerWriteTimeout    = "METERDESK_SERVER_WRITE_TIMEOUT"
	EnvServerShutdownTimeout = "METERDESK_SERVER_SHUTDOWN_TIMEOUT"
)

// ServerConfig holds the console listener parameters. The console acts with
// the operator's backend session, so it binds to loopback unless AllowRemote
// is set.
type ServerConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	AllowRemote     bool   `toml:"allow_remote"`
	ReadTimeout     string `toml:"read_timeout"`
	WriteTimeout    string `toml:"write_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// Addr returns the listen address. IPv6 hosts are bracketed.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// URL returns the console origin for log lines and browser hints.
func (c *ServerConfig) URL() string {
	return "http://" + c.Addr()
}

func (c *ServerConfig) ReadTimeoutDuration() time.Duration {
	return mustDuration(c.ReadTimeout)
}

func (c *ServerConfig) WriteTimeoutDuration() time.Duration {
	return mustDuration(c.WriteTimeout)
}

func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return mustDuration(c.ShutdownTimeout)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ServerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. AllowRemote only ever turns on.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	mergeString(&c.Host, overlay.Host)
	mergeString(&c.ReadTimeout, overlay.ReadTimeout)
	mergeString(&c.WriteTimeout, overlay.WriteTimeout)
	mergeString(&c.ShutdownTimeout, overlay.ShutdownTimeout)
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	if overlay.AllowRemote {
		c.AllowRemote = true
	}
}

func (c *ServerConfig) loadDefaults() {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 5050
	}
	if c.ReadTimeout == "" {
		c.ReadTimeout = "1m"
	}
	// Process and save requests wait on the backend, whose upload timeout
	// defaults to 2m.
	if c.WriteTimeout == "" {
		c.WriteTimeout = "5m"
	}
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
}

func (c *ServerConfig) loadEnv() {
	mergeString(&c.Host, os.Getenv(EnvServerHost))
	mergeString(&c.ReadTimeout, os.Getenv(EnvServerReadTimeout))
	mergeString(&c.WriteTimeout, os.Getenv(EnvServerWriteTimeout))
	mergeString(&c.ShutdownTimeout, os.Getenv(EnvServerShutdownTimeout))
	if port, err := strconv.Atoi(os.Getenv(EnvServerPort)); err == nil {
		c.Port = port
	}
	if allow, err := strconv.ParseBool(os.Getenv(EnvServerAllowRemote)); err == nil {
		c.AllowRemote = allow
	}
}

func (c *ServerConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if !c.AllowRemote && !isLoopback(c.Host) {
		return fmt.Errorf("host %s is not loopback; set allow_remote to expose the console", c.Host)
	}
	for name, v := range map[string]string{
		"read_timeout":     c.ReadTimeout,
		"write_timeout":    c.WriteTimeout,
		"shutdown_timeout": c.ShutdownTimeout,
	} {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
