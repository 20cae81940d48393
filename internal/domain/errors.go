package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the client-side error taxonomy. Validation errors are
// produced locally by the flows; the rest come out of the backend client.
var (
	// ErrUnauthorized means the backend rejected the bearer token. The
	// stored session has already been cleared by the time a caller sees
	// this; the only recovery is a redirect to /login.
	ErrUnauthorized = errors.New("session is no longer valid")

	// ErrConflict means the resource already exists (HTTP 409). Only the
	// Shopify Partner flow special-cases it.
	ErrConflict = errors.New("resource already exists")

	// ErrNetwork means the request never produced a backend response
	// (connection failure or the 30s timeout).
	ErrNetwork = errors.New("failed to reach the analytics backend")

	// ErrSyncInFlight means a sync trigger was suppressed because one is
	// already pending for the same integration.
	ErrSyncInFlight = errors.New("a sync is already in progress for this integration")
)

// BackendError is a 4xx/5xx rejection that carried a backend-provided
// message. The message is surfaced verbatim to the user.
type BackendError struct {
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend request failed with status %d", e.StatusCode)
}

// ValidationError is a local precondition failure. It never reaches the
// network and is rendered inline next to the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidation reports whether err is a local validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
