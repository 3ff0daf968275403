package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	EnvConsoleBasePath  = "METERDESK_CONSOLE_BASE_PATH"
	EnvConsoleTitle     = "METERDESK_CONSOLE_TITLE"
	EnvConsolePrefsPath = "METERDESK_CONSOLE_PREFS_PATH"
)

// ConsoleConfig configures the operator page.
type ConsoleConfig struct {
	BasePath  string `toml:"base_path"`
	Title     string `toml:"title"`
	PrefsPath string `toml:"prefs_path"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ConsoleConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ConsoleConfig) Merge(overlay *ConsoleConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.Title != "" {
		c.Title = overlay.Title
	}
	if overlay.PrefsPath != "" {
		c.PrefsPath = overlay.PrefsPath
	}
}

func (c *ConsoleConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/console"
	}
	if c.Title == "" {
		c.Title = "Meter Reading"
	}
	if c.PrefsPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = os.TempDir()
		}
		c.PrefsPath = filepath.Join(dir, "meterdesk", "prefs.yaml")
	}
}

func (c *ConsoleConfig) loadEnv() {
	if v := os.Getenv(EnvConsoleBasePath); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv(EnvConsoleTitle); v != "" {
		c.Title = v
	}
	if v := os.Getenv(EnvConsolePrefsPath); v != "" {
		c.PrefsPath = v
	}
}

func (c *ConsoleConfig) validate() error {
	if !strings.HasPrefix(c.BasePath, "/") || (len(c.BasePath) > 1 && strings.HasSuffix(c.BasePath, "/")) {
		return fmt.Errorf("base_path must start with '/' and have no trailing slash: %q", c.BasePath)
	}
	return nil
}
