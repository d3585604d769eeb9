package chat

import (
	"errors"
	"net/http"

	"github.com/TAPUZE/project-chimera/internal/providers"
)

var (
	ErrNotFound         = errors.New("chat session not found")
	ErrInvalidInput     = errors.New("invalid chat request")
	ErrAgentUnavailable = errors.New("agent not found or inactive")
)

// MapHTTPStatus maps chat errors, deferring to the gateway's mapping for
// provider failures.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAgentUnavailable):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return providers.MapHTTPStatus(err)
	}
}
