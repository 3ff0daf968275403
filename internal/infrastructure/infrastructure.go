// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, backend client, storage, preferences)
// that domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/meterdesk/internal/config"
	"github.com/JaimeStill/meterdesk/internal/prefs"
	"github.com/JaimeStill/meterdesk/pkg/backend"
	"github.com/JaimeStill/meterdesk/pkg/lifecycle"
	"github.com/JaimeStill/meterdesk/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// It provides a single point of initialization for lifecycle coordination,
// logging, backend access, blob storage, and persisted preferences.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Backend   *backend.Client
	Storage   storage.System
	Prefs     *prefs.Store
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := NewLogger(cfg.Debug)

	client, err := backend.New(&cfg.Backend, logger)
	if err != nil {
		return nil, fmt.Errorf("backend init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	p, err := prefs.Open(cfg.Console.PrefsPath, logger)
	if err != nil {
		return nil, fmt.Errorf("prefs init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Backend:   client,
		Storage:   store,
		Prefs:     p,
	}, nil
}

// NewLogger returns the process logger. Debug builds log at debug level.
func NewLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	return nil
}
