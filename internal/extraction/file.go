package extraction

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/JaimeStill/meterdesk/pkg/formatting"
)

const sniffLen = 512

// File is a candidate image for selection.
type File struct {
	Name        string
	ContentType string
	Size        int64
	open        func() (io.ReadCloser, error)
}

// NewFile builds a File whose content is produced by open.
func NewFile(name, contentType string, size int64, open func() (io.ReadCloser, error)) File {
	return File{Name: name, ContentType: contentType, Size: size, open: open}
}

// Open returns the file content.
func (f File) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, fmt.Errorf("file %s has no content", f.Name)
	}
	return f.open()
}

// FileFromPath builds a File from a path on disk. The content type is taken
// from the extension, falling back to the file's leading bytes.
func FileFromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, err
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}

	open := func() (io.ReadCloser, error) { return os.Open(path) }
	name := filepath.Base(path)

	return File{
		Name:        name,
		ContentType: detectType(name, "", open),
		Size:        info.Size(),
		open:        open,
	}, nil
}

// FileFromHeader builds a File from an uploaded form part. A declared content
// type wins unless it is generic.
func FileFromHeader(h *multipart.FileHeader) File {
	open := func() (io.ReadCloser, error) { return h.Open() }

	return File{
		Name:        filepath.Base(h.Filename),
		ContentType: detectType(h.Filename, h.Header.Get("Content-Type"), open),
		Size:        h.Size,
		open:        open,
	}
}

// Validate checks the file against the type prefix and size limit.
// The type check runs first.
func Validate(f File, prefix string, maxSize int64) error {
	if !strings.HasPrefix(f.ContentType, prefix) {
		return &ValidationError{
			Err:     ErrNotImage,
			Message: "Please choose an image file.",
		}
	}
	if f.Size > maxSize {
		return tooLarge(maxSize)
	}
	return nil
}

func tooLarge(maxSize int64) *ValidationError {
	return &ValidationError{
		Err:     ErrTooLarge,
		Message: fmt.Sprintf("The image must not exceed %s.", formatting.FormatBytes(maxSize, 0)),
	}
}

func detectType(name, declared string, open func() (io.ReadCloser, error)) string {
	if t := baseType(declared); t != "" && t != "application/octet-stream" {
		return t
	}

	if t := baseType(mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))); t != "" {
		return t
	}

	rc, err := open()
	if err != nil {
		return "application/octet-stream"
	}
	defer rc.Close()

	buf := make([]byte, sniffLen)
	n, _ := io.ReadFull(rc, buf)
	return baseType(http.DetectContentType(buf[:n]))
}

func baseType(v string) string {
	if v == "" {
		return ""
	}
	t, _, err := mime.ParseMediaType(v)
	if err != nil {
		return ""
	}
	return strings.ToLower(t)
}
