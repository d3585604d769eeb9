package agents

import (
	"errors"
	"net/http"
)

// Domain errors for agent operations.
var (
	ErrNotFound     = errors.New("agent not found")
	ErrDuplicate    = errors.New("agent already exists")
	ErrInvalidInput = errors.New("invalid agent")
	ErrNotRunning   = errors.New("agent is not running")
	ErrCapacity     = errors.New("agent registry at capacity")
)

// MapHTTPStatus maps domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrNotRunning) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidInput) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrCapacity) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
