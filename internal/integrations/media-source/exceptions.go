package mediasource

import (
	"errors"
	"net/http"

	"github.com/egfanboy/mediapire-common/exceptions"
)

// ToApiException maps backend failures to the status the gateway answers with.
// The caller-facing message never includes backend addresses; the full error stays in the logs.
func ToApiException(err error) error {
	if err == nil {
		return nil
	}

	var backendErr *BackendError
	switch {
	case errors.Is(err, ErrNotResolvable):
		return &exceptions.ApiException{Err: ErrNotResolvable, StatusCode: http.StatusNotFound}
	case errors.As(err, &backendErr):
		return &exceptions.ApiException{Err: backendErr, StatusCode: http.StatusBadGateway}
	case errors.Is(err, ErrBackendUnavailable):
		return &exceptions.ApiException{Err: ErrBackendUnavailable, StatusCode: http.StatusBadGateway}
	case errors.Is(err, ErrMalformedResponse):
		return &exceptions.ApiException{Err: ErrMalformedResponse, StatusCode: http.StatusBadGateway}
	}

	return err
}
