package review

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/meterdesk/internal/reading"
	"github.com/JaimeStill/meterdesk/internal/workspace"
)

var (
	// ErrNoResult indicates an edit without a current result.
	ErrNoResult = errors.New("no extraction result")
	// ErrStaleResult indicates an edit addressed to a replaced result.
	ErrStaleResult = errors.New("extraction result is no longer current")
	// ErrNothingToSave indicates there is no uploadable result.
	ErrNothingToSave = errors.New("no uploadable result to save")
	// ErrMissingFields indicates a required field is blank.
	ErrMissingFields = errors.New("room and meter numbers are required")
	// ErrSaveUnavailable indicates the save trigger is disabled.
	ErrSaveUnavailable = errors.New("save unavailable")
)

const (
	MsgNothingToSave = "There is no uploadable result to save. Process an image first."
	MsgMissingFields = "Room number and meter number must not be blank."
	MsgSaveFailed    = "The reading could not be saved."
	MsgSaved         = "Reading saved."
)

// MapHTTPStatus maps review errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNoResult):
		return http.StatusNotFound
	case errors.Is(err, ErrStaleResult), errors.Is(err, ErrSaveUnavailable):
		return http.StatusConflict
	case errors.Is(err, ErrNothingToSave), errors.Is(err, ErrMissingFields):
		return http.StatusUnprocessableEntity
	case errors.Is(err, reading.ErrUnknownField):
		return http.StatusBadRequest
	case errors.Is(err, workspace.ErrLocked):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
