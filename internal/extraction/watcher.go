package extraction

import (
	"context"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/JaimeStill/meterdesk/pkg/lifecycle"
)

// Selector accepts files found in the drop folder.
type Selector interface {
	Select(ctx context.Context, f File) error
}

// Watcher turns images created in or moved into a drop folder into
// selections. Writes to the pending file extend the settle delay, so a file is
// selected once it stops growing. Only the most recent file of a burst is
// selected, since there is a single selection.
type Watcher struct {
	dir      string
	settle   time.Duration
	prefix   string
	selector Selector
	logger   *slog.Logger
}

// NewWatcher creates a Watcher for dir. An empty dir disables it.
func NewWatcher(dir string, settle time.Duration, prefix string, selector Selector, logger *slog.Logger) *Watcher {
	return &Watcher{
		dir:      dir,
		settle:   settle,
		prefix:   prefix,
		selector: selector,
		logger:   logger.With("system", "watcher"),
	}
}

// Start begins watching for the lifetime of lc.
func (w *Watcher) Start(lc *lifecycle.Coordinator) error {
	if w.dir == "" {
		w.logger.Info("drop folder disabled")
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return err
	}

	w.logger.Info("watching drop folder", "dir", w.dir)
	lc.Go(func(ctx context.Context) {
		defer fw.Close()
		w.loop(ctx, fw)
	})
	return nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	timer := time.NewTimer(w.settle)
	timer.Stop()
	defer timer.Stop()

	var pending string

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			switch {
			case ev.Has(fsnotify.Create) && w.candidate(ev.Name):
				pending = ev.Name
				timer.Reset(w.settle)
			case ev.Has(fsnotify.Write) && ev.Name == pending:
				timer.Reset(w.settle)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && ev.Name == pending:
				pending = ""
				timer.Stop()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		case <-timer.C:
			if pending == "" {
				continue
			}
			w.selectPath(ctx, pending)
			pending = ""
		}
	}
}

func (w *Watcher) selectPath(ctx context.Context, path string) {
	f, err := FileFromPath(path)
	if err != nil {
		w.logger.Warn("drop file unavailable", "path", path, "error", err)
		return
	}
	if err := w.selector.Select(ctx, f); err != nil {
		w.logger.Warn("drop file rejected", "path", path, "error", err)
		return
	}
	w.logger.Info("drop file selected", "path", path)
}

func (w *Watcher) candidate(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(base)))
	return strings.HasPrefix(t, w.prefix)
}
