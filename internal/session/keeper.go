// Package session keeps the backend session alive and owns the single path
// by which any auth failure locks the console.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/JaimeStill/meterdesk/internal/workspace"
	"github.com/JaimeStill/meterdesk/pkg/backend"
	"github.com/JaimeStill/meterdesk/pkg/lifecycle"
)

// Client is the subset of the backend client the keeper needs.
type Client interface {
	Refresh(ctx context.Context) (*backend.RefreshResult, error)
	UserInfo(ctx context.Context) (*backend.UserInfo, error)
	LoginURL() string
}

// Outcome summarizes one refresh round-trip.
type Outcome string

const (
	OutcomeRefreshed Outcome = "refreshed"
	OutcomeFailed    Outcome = "failed"
	OutcomeLocked    Outcome = "locked"
	OutcomeError     Outcome = "error"
	OutcomeSkipped   Outcome = "skipped"
)

// Keeper renews the session on a fixed interval until stopped or locked.
type Keeper struct {
	client   Client
	ws       *workspace.Workspace
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	group singleflight.Group

	mu   sync.Mutex
	stop chan struct{}
}

// New creates a Keeper. interval is the tick period; timeout bounds each call.
func New(client Client, ws *workspace.Workspace, interval, timeout time.Duration, logger *slog.Logger) *Keeper {
	return &Keeper{
		client:   client,
		ws:       ws,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With("system", "session"),
	}
}

// Start loads the user's identity and arms the keep-alive timer for the
// lifetime of lc.
func (k *Keeper) Start(lc *lifecycle.Coordinator) {
	lc.OnStartup(func() {
		_ = k.LoadUser(lc.Context())
	})

	if stop := k.arm(); stop != nil {
		lc.Go(func(ctx context.Context) {
			k.run(ctx, stop)
		})
	}

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		k.StopKeepAlive()
	})
}

// StartKeepAlive arms the timer and runs it until ctx ends or StopKeepAlive
// is called. It reports false when already running or locked.
func (k *Keeper) StartKeepAlive(ctx context.Context) bool {
	stop := k.arm()
	if stop == nil {
		return false
	}
	go k.run(ctx, stop)
	return true
}

// StopKeepAlive cancels the timer. It never blocks, so it is safe to call
// from within a tick.
func (k *Keeper) StopKeepAlive() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.stop != nil {
		close(k.stop)
		k.stop = nil
	}
}

// Running reports whether the timer is armed.
func (k *Keeper) Running() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.stop != nil
}

// Refresh performs one refresh round-trip. Concurrent callers share a single
// request. Once the session is locked no request is sent.
func (k *Keeper) Refresh(ctx context.Context) Outcome {
	if k.ws.Liveness() == workspace.Locked {
		return OutcomeSkipped
	}

	v, _, _ := k.group.Do("refresh", func() (any, error) {
		return k.refresh(ctx), nil
	})
	return v.(Outcome)
}

// HandleAuthError stops the timer and locks the workspace. Repeated calls
// leave a single banner.
func (k *Keeper) HandleAuthError(err error) {
	var locked bool
	k.ws.Update(func(s *workspace.State) {
		locked = s.Lock(backend.AuthMessage(err), k.client.LoginURL())
	})
	k.StopKeepAlive()

	if locked {
		k.logger.Warn("session locked", "error", err)
	}
}

// LoadUser fetches the signed-in user's identity into the workspace.
func (k *Keeper) LoadUser(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	info, err := k.client.UserInfo(ctx)
	if err != nil {
		if backend.IsAuth(err) {
			k.HandleAuthError(err)
		} else {
			k.logger.Warn("load user info failed", "error", err)
		}
		return err
	}

	k.ws.Update(func(s *workspace.State) {
		s.User = info
	})
	k.logger.Info("user loaded", "email", info.Email)
	return nil
}

// arm checks liveness under k.mu. HandleAuthError locks the workspace before
// it takes k.mu to stop the timer, so a timer armed here is always seen and
// closed by a concurrent lock.
func (k *Keeper) arm() chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.stop != nil || k.ws.Liveness() == workspace.Locked {
		return nil
	}
	k.stop = make(chan struct{})
	return k.stop
}

func (k *Keeper) run(ctx context.Context, stop chan struct{}) {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	k.logger.Info("keep-alive started", "interval", k.interval)

	for {
		select {
		case <-ctx.Done():
			k.StopKeepAlive()
			return
		case <-stop:
			k.logger.Info("keep-alive stopped")
			return
		case <-ticker.C:
			k.Refresh(ctx)
		}
	}
}

func (k *Keeper) refresh(ctx context.Context) Outcome {
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	res, err := k.client.Refresh(ctx)
	switch {
	case err != nil && backend.IsAuth(err):
		k.HandleAuthError(err)
		return OutcomeLocked
	case err != nil:
		k.logger.Warn("session refresh failed", "error", err)
		return OutcomeError
	case res.Success:
		k.ws.Update(func(s *workspace.State) { s.MarkActive() })
		k.logger.Debug("session refreshed")
		return OutcomeRefreshed
	case res.Redirect:
		k.HandleAuthError(&backend.AuthError{Message: backend.DefaultAuthMessage})
		return OutcomeLocked
	default:
		k.ws.Update(func(s *workspace.State) { s.MarkWarned() })
		k.logger.Warn("session refresh rejected", "message", res.Message)
		return OutcomeFailed
	}
}
