package providers

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors for the provider gateway.
var (
	ErrProvider            = errors.New("provider request failed")
	ErrProviderUnavailable = errors.New("provider not configured")
	ErrUnsupportedModel    = errors.New("unsupported model")
	ErrInvalidInput        = errors.New("invalid completion request")
)

// StatusError carries the HTTP status and message of a failed provider call.
// It always wraps ErrProvider.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	return ErrProvider
}

// MapHTTPStatus maps domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrUnsupportedModel) || errors.Is(err, ErrInvalidInput) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrProviderUnavailable) {
		return http.StatusServiceUnavailable
	}
	if errors.Is(err, ErrProvider) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
