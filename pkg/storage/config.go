package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds local blob storage parameters.
type Config struct {
	Root   string `toml:"root"`
	Retain bool   `toml:"retain"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Root   string
	Retain string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. Retain always applies.
func (c *Config) Merge(overlay *Config) {
	if overlay.Root != "" {
		c.Root = overlay.Root
	}
	c.Retain = overlay.Retain
}

func (c *Config) loadDefaults() {
	if c.Root == "" {
		c.Root = filepath.Join(os.TempDir(), "meterdesk")
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Root != "" {
		if v := os.Getenv(env.Root); v != "" {
			c.Root = v
		}
	}
	if env.Retain != "" {
		if v := os.Getenv(env.Retain); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Retain = b
			}
		}
	}
}

func (c *Config) validate() error {
	if c.Root == "" {
		return fmt.Errorf("root required")
	}
	return nil
}
