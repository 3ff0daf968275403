package backend

import (
	"errors"
	"fmt"
)

// DefaultAuthMessage is shown when the backend signals an expired session
// without a message of its own.
const DefaultAuthMessage = "Your session has expired. Please sign in again."

var (
	// ErrAuth matches every authentication failure reported by the backend.
	ErrAuth = errors.New("authentication required")
	// ErrTransport marks network failures, timeouts, and unusable responses.
	ErrTransport = errors.New("backend unreachable")
	// ErrMalformed marks responses that could not be decoded or failed shape validation.
	// Malformed responses also match ErrTransport.
	ErrMalformed = errors.New("malformed backend response")
	// ErrInvalidName indicates a processed image name that is empty or contains a path.
	ErrInvalidName = errors.New("invalid processed image name")
	// ErrImageNotFound indicates the backend has no processed image with the given name.
	ErrImageNotFound = errors.New("processed image not found")
)

// AuthError reports an explicit authentication failure. Recovery requires an
// out-of-band re-login.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication required: %s", e.Message)
}

// Is reports ErrAuth as a match so callers can use errors.Is.
func (e *AuthError) Is(target error) bool {
	return target == ErrAuth
}

// ApplicationError reports a request the backend rejected for business reasons.
// Message is intended to be shown to the user verbatim.
type ApplicationError struct {
	Message string
	Status  int
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("backend rejected request (status %d): %s", e.Status, e.Message)
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	return errors.Is(err, ErrAuth)
}

// IsTransport reports whether err is a transport failure (including malformed responses).
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// AuthMessage returns the backend-provided message of an auth failure,
// or DefaultAuthMessage when none is available.
func AuthMessage(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	return DefaultAuthMessage
}

// ApplicationMessage returns the user-facing message of an application error.
func ApplicationMessage(err error) (string, bool) {
	var appErr *ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Message, true
	}
	return "", false
}

func transportError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
}

func malformedError(op string, err error) error {
	return fmt.Errorf("%w: %w: %s: %v", ErrTransport, ErrMalformed, op, err)
}
