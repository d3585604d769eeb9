package tasks

import (
	"errors"
	"net/http"

	"github.com/TAPUZE/project-chimera/internal/tasktype"
)

var (
	ErrNotFound         = errors.New("task not found")
	ErrDuplicate        = errors.New("task already exists")
	ErrInvalidInput     = errors.New("invalid task")
	ErrInvalidStatus    = errors.New("invalid task status for this operation")
	ErrAgentUnavailable = errors.New("agent unavailable")
	ErrCancelled        = errors.New("task run cancelled")
)

func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidStatus), errors.Is(err, tasktype.ErrInvalidType):
		return http.StatusBadRequest
	case errors.Is(err, ErrAgentUnavailable), errors.Is(err, ErrDuplicate), errors.Is(err, ErrCancelled):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
