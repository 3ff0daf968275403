package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/meterdesk/internal/config"
)

const baseConfig = `
shutdown_timeout = "20s"
version = "1.2.0"

[server]
port = 6060

[backend]
base_url = "https://meters.example"
timeout = "10s"

[storage]
root = "/var/tmp/meterdesk"

[session]
refresh_interval = "30m"

[upload]
max_size = "5MB"
drop_dir = "/srv/drop"

[console]
title = "Readings"
`

const overlayConfig = `
debug = true

[server]
port = 7070

[backend]
base_url = "https://staging.meters.example"
`

func writeConfig(t *testing.T, dir, filename, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", filename, err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if got := cfg.Server.Addr(); got != "127.0.0.1:5050" {
		t.Errorf("addr: got %s", got)
	}
	if cfg.Backend.TimeoutDuration() != 30*time.Second {
		t.Errorf("backend timeout: got %s", cfg.Backend.Timeout)
	}
	if cfg.Backend.LoginPath != "/logout" {
		t.Errorf("login path: got %s", cfg.Backend.LoginPath)
	}
	if cfg.Session.RefreshIntervalDuration() != 45*time.Minute {
		t.Errorf("refresh interval: got %s", cfg.Session.RefreshInterval)
	}
	if cfg.Session.RefreshTimeoutDuration() != 15*time.Second {
		t.Errorf("refresh timeout: got %s", cfg.Session.RefreshTimeout)
	}
	if cfg.Upload.MaxSizeBytes() != 10<<20 {
		t.Errorf("max size: got %d", cfg.Upload.MaxSizeBytes())
	}
	if cfg.Upload.TypePrefix != "image/" || cfg.Upload.PreviewWidth != 600 {
		t.Errorf("upload: %+v", cfg.Upload)
	}
	if cfg.Upload.DropDir != "" {
		t.Errorf("drop dir should be disabled: %s", cfg.Upload.DropDir)
	}
	if cfg.Console.BasePath != "/console" {
		t.Errorf("base path: got %s", cfg.Console.BasePath)
	}
	if !strings.HasSuffix(cfg.Console.PrefsPath, filepath.Join("meterdesk", "prefs.yaml")) {
		t.Errorf("prefs path: got %s", cfg.Console.PrefsPath)
	}
	if cfg.Debug {
		t.Error("debug should default to false")
	}
}

func TestLoadWithOverlay(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	writeConfig(t, dir, "config.staging.toml", overlayConfig)
	chdir(t, dir)
	t.Setenv(config.EnvMeterdeskEnv, "staging")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("port: got %d, want 7070", cfg.Server.Port)
	}
	if cfg.Backend.BaseURL != "https://staging.meters.example" {
		t.Errorf("base url: got %s", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != "10s" {
		t.Errorf("base timeout should survive overlay: got %s", cfg.Backend.Timeout)
	}
	if cfg.Storage.Root != "/var/tmp/meterdesk" {
		t.Errorf("storage root: got %s", cfg.Storage.Root)
	}
	if cfg.Upload.MaxSizeBytes() != 5<<20 || cfg.Upload.DropDir != "/srv/drop" {
		t.Errorf("upload: %+v", cfg.Upload)
	}
	if cfg.ShutdownTimeoutDuration() != 20*time.Second || cfg.Version != "1.2.0" {
		t.Errorf("root: %s %s", cfg.ShutdownTimeout, cfg.Version)
	}
	if !cfg.Debug {
		t.Error("overlay should enable debug")
	}
	if cfg.Env() != "staging" {
		t.Errorf("env: got %s", cfg.Env())
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	chdir(t, dir)

	t.Setenv(config.EnvServerPort, "8181")
	t.Setenv("METERDESK_BACKEND_BASE_URL", "http://10.0.0.5:5000")
	t.Setenv("METERDESK_STORAGE_ROOT", "/data/meterdesk")
	t.Setenv(config.EnvSessionRefreshInterval, "1h")
	t.Setenv(config.EnvUploadMaxSize, "2MB")
	t.Setenv(config.EnvMeterdeskDebug, "true")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 8181 {
		t.Errorf("port: got %d", cfg.Server.Port)
	}
	if cfg.Backend.BaseURL != "http://10.0.0.5:5000" {
		t.Errorf("base url: got %s", cfg.Backend.BaseURL)
	}
	if cfg.Storage.Root != "/data/meterdesk" {
		t.Errorf("storage root: got %s", cfg.Storage.Root)
	}
	if cfg.Session.RefreshIntervalDuration() != time.Hour {
		t.Errorf("refresh interval: got %s", cfg.Session.RefreshInterval)
	}
	if cfg.Upload.MaxSizeBytes() != 2<<20 {
		t.Errorf("max size: got %d", cfg.Upload.MaxSizeBytes())
	}
	if !cfg.Debug {
		t.Error("debug env should apply")
	}
}

func TestDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".env", "METERDESK_CONSOLE_TITLE=From Dotenv\n")
	chdir(t, dir)
	t.Setenv(config.EnvConsoleTitle, "")
	os.Unsetenv(config.EnvConsoleTitle)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Console.Title != "From Dotenv" {
		t.Errorf("title: got %s", cfg.Console.Title)
	}
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad port", "[server]\nport = 70000\n", "server"},
		{"remote host", "[server]\nhost = \"0.0.0.0\"\n", "allow_remote"},
		{"zero write timeout", "[server]\nwrite_timeout = \"0s\"\n", "write_timeout"},
		{"bad backend scheme", "[backend]\nbase_url = \"ftp://meters\"\n", "backend"},
		{"bad size", "[upload]\nmax_size = \"lots\"\n", "upload"},
		{"bad prefix", "[upload]\ntype_prefix = \"image\"\n", "upload"},
		{"timeout longer than interval", "[session]\nrefresh_interval = \"10s\"\nrefresh_timeout = \"20s\"\n", "session"},
		{"trailing slash", "[console]\nbase_path = \"/console/\"\n", "console"},
		{"bad shutdown", "shutdown_timeout = \"soon\"\n", "shutdown_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, "config.toml", tt.content)
			chdir(t, dir)

			_, err := config.Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestServerBinding(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.ServerConfig
		wantErr  bool
		wantAddr string
	}{
		{"default loopback", config.ServerConfig{}, false, "127.0.0.1:5050"},
		{"localhost", config.ServerConfig{Host: "localhost", Port: 8080}, false, "localhost:8080"},
		{"ipv6 loopback", config.ServerConfig{Host: "::1", Port: 8080}, false, "[::1]:8080"},
		{"remote refused", config.ServerConfig{Host: "0.0.0.0"}, true, ""},
		{"lan address refused", config.ServerConfig{Host: "192.168.1.20"}, true, ""},
		{"remote allowed", config.ServerConfig{Host: "0.0.0.0", AllowRemote: true}, false, "0.0.0.0:5050"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := cfg.Finalize()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("finalize: %v", err)
			}
			if got := cfg.Addr(); got != tt.wantAddr {
				t.Errorf("addr: got %s, want %s", got, tt.wantAddr)
			}
		})
	}
}

func TestServerAllowRemoteEnv(t *testing.T) {
	t.Setenv(config.EnvServerHost, "0.0.0.0")
	t.Setenv(config.EnvServerAllowRemote, "true")

	var cfg config.ServerConfig
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if !cfg.AllowRemote || cfg.URL() != "http://0.0.0.0:5050" {
		t.Errorf("server: %+v", cfg)
	}
}
