package console

import (
	"github.com/JaimeStill/meterdesk/internal/config"
	"github.com/JaimeStill/meterdesk/internal/infrastructure"
)

// Runtime extends Infrastructure with console-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Config *config.Config
}

// NewRuntime creates a console runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "console"),
			Backend:   infra.Backend,
			Storage:   infra.Storage,
			Prefs:     infra.Prefs,
		},
		Config: cfg,
	}
}
