package extraction_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/JaimeStill/meterdesk/internal/extraction"
	"github.com/JaimeStill/meterdesk/pkg/lifecycle"
)

type recordingSelector struct {
	mu    sync.Mutex
	files []extraction.File
}

func (r *recordingSelector) Select(_ context.Context, f extraction.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, f)
	return nil
}

func (r *recordingSelector) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, f := range r.files {
		out = append(out, f.Name)
	}
	return out
}

func TestWatcherSelectsDroppedImages(t *testing.T) {
	dir := t.TempDir()
	sel := &recordingSelector{}
	lc := lifecycle.New()
	t.Cleanup(func() { lc.Shutdown(5 * time.Second) })

	w := extraction.NewWatcher(dir, 20*time.Millisecond, "image/", sel, discard())
	if err := w.Start(lc); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "meter.jpg"), jpegBytes(t, 8, 8, 0), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for len(sel.names()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	names := sel.names()
	if len(names) == 0 {
		t.Fatal("dropped image was not selected")
	}
	for _, n := range names {
		if n != "meter.jpg" {
			t.Errorf("unexpected selection %s", n)
		}
	}
}

func waitSelected(t *testing.T, sel *recordingSelector, n int) []string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for len(sel.names()) < n && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	return sel.names()
}

func TestWatcherSelectsMovedInImage(t *testing.T) {
	dir := t.TempDir()
	staging := t.TempDir()
	sel := &recordingSelector{}
	lc := lifecycle.New()
	t.Cleanup(func() { lc.Shutdown(5 * time.Second) })

	w := extraction.NewWatcher(dir, 20*time.Millisecond, "image/", sel, discard())
	if err := w.Start(lc); err != nil {
		t.Fatalf("start: %v", err)
	}

	src := filepath.Join(staging, "scan.png")
	if err := os.WriteFile(src, jpegBytes(t, 8, 8, 0), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(src, filepath.Join(dir, "scan.png")); err != nil {
		t.Skipf("cross-directory rename unavailable: %v", err)
	}

	names := waitSelected(t, sel, 1)
	if len(names) != 1 || names[0] != "scan.png" {
		t.Errorf("selections: %v", names)
	}
}

func TestWatcherIgnoresRewrites(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "old.jpg")
	if err := os.WriteFile(existing, jpegBytes(t, 8, 8, 0), 0o644); err != nil {
		t.Fatal(err)
	}

	sel := &recordingSelector{}
	lc := lifecycle.New()
	t.Cleanup(func() { lc.Shutdown(5 * time.Second) })

	w := extraction.NewWatcher(dir, 20*time.Millisecond, "image/", sel, discard())
	if err := w.Start(lc); err != nil {
		t.Fatalf("start: %v", err)
	}

	f, err := os.OpenFile(existing, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		t.Fatal(err)
	}
	f.Write([]byte{0})
	f.Close()

	if err := os.WriteFile(filepath.Join(dir, "new.jpg"), jpegBytes(t, 8, 8, 0), 0o644); err != nil {
		t.Fatal(err)
	}

	waitSelected(t, sel, 1)
	time.Sleep(100 * time.Millisecond)
	names := sel.names()
	if len(names) != 1 || names[0] != "new.jpg" {
		t.Errorf("selections: %v", names)
	}
}

func TestWatcherDisabled(t *testing.T) {
	w := extraction.NewWatcher("", time.Second, "image/", &recordingSelector{}, discard())
	if err := w.Start(lifecycle.New()); err != nil {
		t.Errorf("disabled watcher should not fail: %v", err)
	}
}
