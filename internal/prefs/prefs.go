// Package prefs persists the console's display preferences across restarts.
package prefs

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Theme is the color scheme preference.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
	// ThemeSystem defers to the operating system's color scheme.
	ThemeSystem Theme = "system"
)

// ErrInvalidTheme indicates a theme other than dark, light, or system.
var ErrInvalidTheme = errors.New("invalid theme")

// ParseTheme resolves a theme name. An empty name means ThemeSystem.
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case ThemeDark, ThemeLight, ThemeSystem:
		return t, nil
	case "":
		return ThemeSystem, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTheme, s)
	}
}

// Prefs is the persisted document.
type Prefs struct {
	Theme Theme `yaml:"theme,omitempty"`
}

// Store reads and writes Prefs as YAML.
type Store struct {
	path   string
	mu     sync.RWMutex
	prefs  Prefs
	logger *slog.Logger
}

// Open loads the store at path. A missing file yields default preferences.
func Open(path string, logger *slog.Logger) (*Store, error) {
	s := &Store{path: path, logger: logger.With("system", "prefs")}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read prefs: %w", err)
	}

	if err := yaml.Unmarshal(data, &s.prefs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if _, err := ParseTheme(string(s.prefs.Theme)); err != nil {
		s.logger.Warn("ignoring stored theme", "error", err)
		s.prefs.Theme = ""
	}
	return s, nil
}

// Theme returns the stored theme, or ThemeSystem when none is stored.
func (s *Store) Theme() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.prefs.Theme == "" {
		return ThemeSystem
	}
	return s.prefs.Theme
}

// SetTheme stores t. ThemeSystem clears the explicit preference.
func (s *Store) SetTheme(t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.prefs
	next.Theme = t
	if t == ThemeSystem {
		next.Theme = ""
	}

	if err := s.write(next); err != nil {
		return err
	}
	s.prefs = next
	s.logger.Info("theme updated", "theme", t)
	return nil
}

func (s *Store) write(p Prefs) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	tmp := s.path + ".tmp"
	header := "# meterdesk display preferences\n"
	if err := os.WriteFile(tmp, append([]byte(header), data...), 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}
