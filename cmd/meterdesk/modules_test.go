package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/JaimeStill/meterdesk/internal/config"
	"github.com/JaimeStill/meterdesk/internal/infrastructure"
)

func testInfra(t *testing.T) *infrastructure.Infrastructure {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{}
	cfg.Backend.BaseURL = "http://127.0.0.1:1"
	cfg.Storage.Root = filepath.Join(dir, "blobs")
	cfg.Console.PrefsPath = filepath.Join(dir, "prefs.yaml")
	if err := cfg.Backend.Finalize(nil); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Storage.Finalize(nil); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Console.Finalize(); err != nil {
		t.Fatal(err)
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { infra.Lifecycle.Shutdown(time.Second) })
	return infra
}

func status(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return rec.Code, body["status"]
}

func TestHealthAndReadiness(t *testing.T) {
	infra := testInfra(t)
	router := buildRouter(infra)

	if code, s := status(t, router, "/healthz"); code != http.StatusOK || s != "ok" {
		t.Errorf("healthz: %d %s", code, s)
	}

	if code, s := status(t, router, "/readyz"); code != http.StatusServiceUnavailable || s != "not ready" {
		t.Errorf("readyz before startup: %d %s", code, s)
	}

	infra.Lifecycle.WaitForStartup()
	if code, s := status(t, router, "/readyz"); code != http.StatusOK || s != "ready" {
		t.Errorf("readyz: %d %s", code, s)
	}
}
