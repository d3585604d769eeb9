package metrics

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound     = errors.New("agent not found")
	ErrInvalidInput = errors.New("invalid metric")
)

func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
