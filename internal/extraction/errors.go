package extraction

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/meterdesk/internal/workspace"
)

var (
	// ErrNotImage indicates the selected file is not an image.
	ErrNotImage = errors.New("file is not an image")
	// ErrTooLarge indicates the selected file exceeds the size limit.
	ErrTooLarge = errors.New("file exceeds size limit")
	// ErrNoSelection indicates processing was requested without a selected file.
	ErrNoSelection = errors.New("no file selected")
	// ErrBusy indicates an extraction is already in flight.
	ErrBusy = errors.New("extraction already in progress")
	// ErrNoPreview indicates the preview of the selection is not available.
	ErrNoPreview = errors.New("preview not available")
)

// ValidationError carries a user-facing message for a rejected file.
type ValidationError struct {
	Err     error
	Message string
}

func (e *ValidationError) Error() string {
	return e.Err.Error() + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// MapHTTPStatus maps extraction errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotImage):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrNoSelection), errors.Is(err, ErrNoPreview):
		return http.StatusNotFound
	case errors.Is(err, ErrBusy):
		return http.StatusConflict
	case errors.Is(err, workspace.ErrLocked):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
