package users

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrDuplicate          = errors.New("email or username already registered")
	ErrInvalidInput       = errors.New("invalid user")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
