package extraction

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"path"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/JaimeStill/meterdesk/internal/workspace"
)

const (
	previewQuality = 85
	maxPixels      = 64 << 20
)

// renderPreview decodes and scales the selection into a JPEG preview.
// A preview that finishes after its selection was replaced is discarded.
func (c *Controller) renderPreview(ctx context.Context, sel workspace.Selection) {
	key := path.Join("previews", sel.ID+".jpg")

	w, h, err := c.buildPreview(ctx, sel.Key, key)

	applied := false
	c.ws.Update(func(s *workspace.State) {
		if s.Preview == nil || s.Preview.SelectionID != sel.ID {
			return
		}
		applied = true
		if err != nil {
			s.Preview.Err = "Preview unavailable"
			return
		}
		s.Preview.Key = key
		s.Preview.ContentType = "image/jpeg"
		s.Preview.Width = w
		s.Preview.Height = h
		s.Preview.Ready = true
	})

	switch {
	case !applied:
		if err == nil {
			_ = c.store.Delete(context.WithoutCancel(ctx), key)
		}
		c.logger.Debug("stale preview discarded", "selection_id", sel.ID)
	case err != nil:
		c.logger.Warn("preview failed", "selection_id", sel.ID, "error", err)
	default:
		c.logger.Debug("preview ready", "selection_id", sel.ID, "width", w, "height", h)
	}
}

func (c *Controller) buildPreview(ctx context.Context, src, dst string) (int, int, error) {
	rc, err := c.store.Download(ctx, src)
	if err != nil {
		return 0, 0, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return 0, 0, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return 0, 0, fmt.Errorf("image too large to preview: %dx%d", cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode: %w", err)
	}

	scaled := Scale(img, c.opts.PreviewWidth)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: previewQuality}); err != nil {
		return 0, 0, fmt.Errorf("encode: %w", err)
	}
	if _, err := c.store.Upload(ctx, dst, &buf); err != nil {
		return 0, 0, err
	}

	b := scaled.Bounds()
	return b.Dx(), b.Dy(), nil
}

// Scale fits img to maxWidth preserving aspect ratio. Narrower images are
// returned unchanged.
func Scale(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}

	h := max(b.Dy()*maxWidth/b.Dx(), 1)
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
