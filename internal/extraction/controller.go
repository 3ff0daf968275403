// Package extraction turns a selected image into an extraction result:
// validation, local preview, and the round-trip to the backend.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/meterdesk/internal/workspace"
	"github.com/JaimeStill/meterdesk/pkg/backend"
	"github.com/JaimeStill/meterdesk/pkg/lifecycle"
	"github.com/JaimeStill/meterdesk/pkg/storage"
)

// Client is the subset of the backend client the controller needs.
type Client interface {
	Process(ctx context.Context, upload backend.Upload) (*backend.ExtractionResult, error)
}

// AuthHandler receives every auth failure.
type AuthHandler interface {
	HandleAuthError(err error)
}

// Options bound what the controller accepts.
type Options struct {
	MaxSize      int64
	TypePrefix   string
	PreviewWidth int
}

// Controller manages the single selected image and its extraction.
type Controller struct {
	client Client
	ws     *workspace.Workspace
	store  storage.System
	auth   AuthHandler
	lc     *lifecycle.Coordinator
	opts   Options
	logger *slog.Logger
}

// New creates a Controller. Background work runs on lc and is awaited at shutdown.
func New(
	client Client,
	ws *workspace.Workspace,
	store storage.System,
	auth AuthHandler,
	lc *lifecycle.Coordinator,
	opts Options,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		client: client,
		ws:     ws,
		store:  store,
		auth:   auth,
		lc:     lc,
		opts:   opts,
		logger: logger.With("system", "extraction"),
	}
}

// Select validates f and makes it the current selection. Any prior result
// becomes stale before Select returns. A rejected file leaves the current
// selection untouched and raises a notice.
func (c *Controller) Select(ctx context.Context, f File) error {
	if err := Validate(f, c.opts.TypePrefix, c.opts.MaxSize); err != nil {
		return c.reject(f, err)
	}

	id := uuid.NewString()
	key := path.Join("uploads", id+extension(f))

	n, err := c.spool(ctx, key, f)
	if err != nil {
		return c.reject(f, err)
	}

	sel := workspace.Selection{
		ID:          id,
		Name:        f.Name,
		ContentType: f.ContentType,
		Size:        n,
		Key:         key,
	}

	var prevSel *workspace.Selection
	var prevPreview *workspace.Preview
	c.ws.Update(func(s *workspace.State) {
		prevSel, prevPreview = s.Select(sel)
	})
	c.release(prevSel, prevPreview)

	c.logger.Info("file selected", "selection_id", id, "name", f.Name, "type", f.ContentType, "size", n)

	c.lc.Go(func(ctx context.Context) {
		c.renderPreview(ctx, sel)
	})
	return nil
}

// reject raises the notice carried by a validation error. Other failures
// are returned without touching the workspace.
func (c *Controller) reject(f File, err error) error {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		c.logger.Error("file select failed", "name", f.Name, "error", err)
		return err
	}
	c.ws.Update(func(s *workspace.State) {
		s.SetNotice(workspace.NoticeError, verr.Message)
	})
	c.logger.Info("file rejected", "name", f.Name, "type", f.ContentType, "size", f.Size, "error", err)
	return err
}

// RejectOversize raises the size-limit notice for an upload whose body was
// cut off before it could be inspected. The current selection is kept.
func (c *Controller) RejectOversize() error {
	err := tooLarge(c.opts.MaxSize)
	c.ws.Update(func(s *workspace.State) {
		s.SetNotice(workspace.NoticeError, err.Message)
	})
	c.logger.Info("upload rejected", "error", err)
	return err
}

// Clear resets the selection, preview, and result.
func (c *Controller) Clear() {
	var prevSel *workspace.Selection
	var prevPreview *workspace.Preview
	c.ws.Update(func(s *workspace.State) {
		prevSel, prevPreview = s.ClearSelection()
	})
	c.release(prevSel, prevPreview)
}

// Process submits the current selection for extraction. The request runs on
// the lifecycle context, and the returned channel closes once the outcome is
// applied to the workspace.
func (c *Controller) Process() (<-chan struct{}, error) {
	var sel workspace.Selection
	var err error

	c.ws.Update(func(s *workspace.State) {
		switch {
		case s.Locked():
			err = workspace.ErrLocked
		case s.Selection == nil:
			err = ErrNoSelection
		case s.Processing:
			err = ErrBusy
		default:
			s.Processing = true
			s.Notice = nil
			sel = *s.Selection
		}
	})
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	c.lc.Go(func(lcCtx context.Context) {
		defer close(done)
		c.process(lcCtx, sel)
	})
	return done, nil
}

// OpenPreview streams the scaled preview of the current selection.
func (c *Controller) OpenPreview(ctx context.Context) (io.ReadCloser, string, error) {
	var key, contentType string
	c.ws.Update(func(s *workspace.State) {
		if s.Preview != nil && s.Preview.Ready {
			key, contentType = s.Preview.Key, s.Preview.ContentType
		}
	})
	if key == "" {
		return nil, "", ErrNoPreview
	}

	rc, err := c.store.Download(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", ErrNoPreview
		}
		return nil, "", err
	}
	return rc, contentType, nil
}

func (c *Controller) process(ctx context.Context, sel workspace.Selection) {
	result, err := c.submit(ctx, sel)

	stale := false
	c.ws.Update(func(s *workspace.State) {
		if !s.Current(sel.ID) {
			stale = true
			return
		}
		s.Processing = false

		switch {
		case err == nil:
			s.SetResult(sel.ID, *result)
		case backend.IsAuth(err):
		case backend.IsTransport(err):
			s.SetNotice(workspace.NoticeError, workspace.MsgConnectivity)
		default:
			msg, ok := backend.ApplicationMessage(err)
			if !ok {
				msg = "The image could not be processed."
			}
			s.SetNotice(workspace.NoticeError, msg)
		}
	})

	if backend.IsAuth(err) {
		c.auth.HandleAuthError(err)
	}

	switch {
	case stale:
		c.logger.Info("stale extraction discarded", "selection_id", sel.ID, "error", err)
	case err != nil:
		c.logger.Warn("extraction failed", "selection_id", sel.ID, "error", err)
	default:
		c.logger.Info("extraction complete",
			"selection_id", sel.ID,
			"can_upload", result.CanUpload,
			"elapsed", result.ElapsedTime,
		)
	}
}

func (c *Controller) submit(ctx context.Context, sel workspace.Selection) (*backend.ExtractionResult, error) {
	rc, err := c.store.Download(ctx, sel.Key)
	if err != nil {
		return nil, fmt.Errorf("open selection: %w", err)
	}
	defer rc.Close()

	return c.client.Process(ctx, backend.Upload{
		Name:        sel.Name,
		ContentType: sel.ContentType,
		Body:        rc,
	})
}

func (c *Controller) spool(ctx context.Context, key string, f File) (int64, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	n, err := c.store.Upload(ctx, key, io.LimitReader(rc, c.opts.MaxSize+1))
	if err != nil {
		return 0, fmt.Errorf("spool %s: %w", f.Name, err)
	}
	if n > c.opts.MaxSize {
		_ = c.store.Delete(ctx, key)
		return 0, tooLarge(c.opts.MaxSize)
	}
	return n, nil
}

// release deletes the stored artifacts of a replaced selection.
func (c *Controller) release(sel *workspace.Selection, preview *workspace.Preview) {
	var keys []string
	if sel != nil {
		keys = append(keys, sel.Key)
	}
	if preview != nil && preview.Key != "" {
		keys = append(keys, preview.Key)
	}
	if len(keys) == 0 {
		return
	}

	c.lc.Go(func(ctx context.Context) {
		g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
		for _, key := range keys {
			g.Go(func() error {
				if err := c.store.Delete(gctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("delete %s: %w", key, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			c.logger.Warn("release artifacts failed", "error", err)
		}
	})
}

func extension(f File) string {
	if ext := strings.ToLower(filepath.Ext(f.Name)); safeExt(ext) {
		return ext
	}
	if exts, err := mime.ExtensionsByType(f.ContentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

func safeExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 6 {
		return false
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
