package mediasource

import (
	"errors"
	"fmt"
)

var (
	ErrBackendUnavailable = errors.New("media source backend is unavailable")
	ErrMalformedResponse  = errors.New("media source backend returned a malformed response")
	ErrNotResolvable      = errors.New("media source backend returned no url")
)

// BackendError is returned when the backend answered with a non-2xx status.
type BackendError struct {
	StatusCode int
	Path       string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("media source backend returned status %d for %s", e.StatusCode, e.Path)
}
