package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/JaimeStill/meterdesk/pkg/formatting"
)

const (
	EnvUploadMaxSize      = "METERDESK_UPLOAD_MAX_SIZE"
	EnvUploadTypePrefix   = "METERDESK_UPLOAD_TYPE_PREFIX"
	EnvUploadPreviewWidth = "METERDESK_UPLOAD_PREVIEW_WIDTH"
	EnvUploadDropDir      = "METERDESK_UPLOAD_DROP_DIR"
	EnvUploadDropSettle   = "METERDESK_UPLOAD_DROP_SETTLE"
)

// UploadConfig constrains selectable images and the optional drop folder.
// An empty DropDir disables folder watching.
type UploadConfig struct {
	MaxSize      string `toml:"max_size"`
	TypePrefix   string `toml:"type_prefix"`
	PreviewWidth int    `toml:"preview_width"`
	DropDir      string `toml:"drop_dir"`
	DropSettle   string `toml:"drop_settle"`
}

// MaxSizeBytes returns MaxSize as a byte count.
func (c *UploadConfig) MaxSizeBytes() int64 {
	n, _ := formatting.ParseBytes(c.MaxSize)
	return n
}

// DropSettleDuration returns DropSettle as a time.Duration.
func (c *UploadConfig) DropSettleDuration() time.Duration {
	d, _ := time.ParseDuration(c.DropSettle)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *UploadConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *UploadConfig) Merge(overlay *UploadConfig) {
	if overlay.MaxSize != "" {
		c.MaxSize = overlay.MaxSize
	}
	if overlay.TypePrefix != "" {
		c.TypePrefix = overlay.TypePrefix
	}
	if overlay.PreviewWidth != 0 {
		c.PreviewWidth = overlay.PreviewWidth
	}
	if overlay.DropDir != "" {
		c.DropDir = overlay.DropDir
	}
	if overlay.DropSettle != "" {
		c.DropSettle = overlay.DropSettle
	}
}

func (c *UploadConfig) loadDefaults() {
	if c.MaxSize == "" {
		c.MaxSize = "10MB"
	}
	if c.TypePrefix == "" {
		c.TypePrefix = "image/"
	}
	if c.PreviewWidth == 0 {
		c.PreviewWidth = 600
	}
	if c.DropSettle == "" {
		c.DropSettle = "500ms"
	}
}

func (c *UploadConfig) loadEnv() {
	if v := os.Getenv(EnvUploadMaxSize); v != "" {
		c.MaxSize = v
	}
	if v := os.Getenv(EnvUploadTypePrefix); v != "" {
		c.TypePrefix = v
	}
	if v := os.Getenv(EnvUploadPreviewWidth); v != "" {
		if w, err := strconv.Atoi(v); err == nil {
			c.PreviewWidth = w
		}
	}
	if v := os.Getenv(EnvUploadDropDir); v != "" {
		c.DropDir = v
	}
	if v := os.Getenv(EnvUploadDropSettle); v != "" {
		c.DropSettle = v
	}
}

func (c *UploadConfig) validate() error {
	n, err := formatting.ParseBytes(c.MaxSize)
	if err != nil {
		return fmt.Errorf("invalid max_size: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("max_size must be positive")
	}
	if !strings.HasSuffix(c.TypePrefix, "/") {
		return fmt.Errorf("type_prefix must end with '/': %q", c.TypePrefix)
	}
	if c.PreviewWidth < 1 {
		return fmt.Errorf("invalid preview_width: %d", c.PreviewWidth)
	}
	if _, err := time.ParseDuration(c.DropSettle); err != nil {
		return fmt.Errorf("invalid drop_settle: %w", err)
	}
	return nil
}
