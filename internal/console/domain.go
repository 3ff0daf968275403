package console

import (
	"fmt"

	"github.com/JaimeStill/meterdesk/internal/extraction"
	"github.com/JaimeStill/meterdesk/internal/review"
	"github.com/JaimeStill/meterdesk/internal/session"
	"github.com/JaimeStill/meterdesk/internal/workspace"
	"github.com/JaimeStill/meterdesk/pkg/lifecycle"
)

// Domain holds the systems that share one workspace.
type Domain struct {
	Workspace  *workspace.Workspace
	Session    *session.Keeper
	Extraction *extraction.Controller
	Review     *review.Controller
	Watcher    *extraction.Watcher
}

// NewDomain creates all domain systems from the console runtime. Every auth
// failure is routed to the session keeper.
func NewDomain(rt *Runtime) *Domain {
	cfg := rt.Config
	ws := workspace.New()

	keeper := session.New(
		rt.Backend,
		ws,
		cfg.Session.RefreshIntervalDuration(),
		cfg.Session.RefreshTimeoutDuration(),
		rt.Logger,
	)

	ext := extraction.New(
		rt.Backend,
		ws,
		rt.Storage,
		keeper,
		rt.Lifecycle,
		extraction.Options{
			MaxSize:      cfg.Upload.MaxSizeBytes(),
			TypePrefix:   cfg.Upload.TypePrefix,
			PreviewWidth: cfg.Upload.PreviewWidth,
		},
		rt.Logger,
	)

	rev := review.New(rt.Backend, ws, keeper, rt.Lifecycle, rt.Logger)

	watcher := extraction.NewWatcher(
		cfg.Upload.DropDir,
		cfg.Upload.DropSettleDuration(),
		cfg.Upload.TypePrefix,
		ext,
		rt.Logger,
	)

	return &Domain{
		Workspace:  ws,
		Session:    keeper,
		Extraction: ext,
		Review:     rev,
		Watcher:    watcher,
	}
}

// Start loads the user, arms the keep-alive, and begins watching the drop folder.
func (d *Domain) Start(lc *lifecycle.Coordinator) error {
	d.Session.Start(lc)
	if err := d.Watcher.Start(lc); err != nil {
		return fmt.Errorf("watcher start failed: %w", err)
	}
	return nil
}
