package console

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/meterdesk/internal/extraction"
	"github.com/JaimeStill/meterdesk/internal/prefs"
	"github.com/JaimeStill/meterdesk/internal/reading"
	"github.com/JaimeStill/meterdesk/internal/review"
	"github.com/JaimeStill/meterdesk/internal/workspace"
	"github.com/JaimeStill/meterdesk/pkg/backend"
)

var (
	// ErrNoFile indicates a select request without a file part.
	ErrNoFile = errors.New("no file in request")
	// ErrInvalidRequest indicates a request body that could not be decoded.
	ErrInvalidRequest = errors.New("invalid request body")
)

// MapHTTPStatus maps console errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNoFile), errors.Is(err, ErrInvalidRequest),
		errors.Is(err, prefs.ErrInvalidTheme), errors.Is(err, reading.ErrUnknownField),
		errors.Is(err, backend.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, workspace.ErrLocked), errors.Is(err, backend.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, backend.ErrImageNotFound):
		return http.StatusNotFound
	case errors.Is(err, backend.ErrTransport):
		return http.StatusBadGateway
	}

	if status := extraction.MapHTTPStatus(err); status != http.StatusInternalServerError {
		return status
	}
	return review.MapHTTPStatus(err)
}
