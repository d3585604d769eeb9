package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/TAPUZE/project-chimera/internal/tasktype"
	"github.com/TAPUZE/project-chimera/pkg/handlers"
	"github.com/TAPUZE/project-chimera/pkg/pagination"
	"github.com/TAPUZE/project-chimera/pkg/routes"
)

// Handler provides HTTP handlers for task records and execution.
type Handler struct {
	sys        System
	engine     *Engine
	logger     *slog.Logger
	pagination pagination.Config
}

func NewHandler(sys System, engine *Engine, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		engine:     engine,
		logger:     logger,
		pagination: pagination,
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "/tasks",
		Tags:        []string{"Tasks"},
		Description: "Task records, execution and the run queue",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List, OpenAPI: Spec.List},
			{Method: "POST", Pattern: "/search", Handler: h.Search, OpenAPI: Spec.Search},
			{Method: "GET", Pattern: "/types", Handler: h.Types, OpenAPI: Spec.Types},
			{Method: "GET", Pattern: "/runtime", Handler: h.Runtime, OpenAPI: Spec.Runtime},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find, OpenAPI: Spec.Find},
			{Method: "POST", Pattern: "", Handler: h.Create, OpenAPI: Spec.Create},
			{Method: "PUT", Pattern: "/{id}", Handler: h.Update, OpenAPI: Spec.Update},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete, OpenAPI: Spec.Delete},
			{Method: "GET", Pattern: "/{id}/subtasks", Handler: h.Subtasks, OpenAPI: Spec.Subtasks},
			{Method: "POST", Pattern: "/{id}/execute", Handler: h.Execute, OpenAPI: Spec.Execute},
			{Method: "POST", Pattern: "/{id}/queue", Handler: h.Queue, OpenAPI: Spec.Queue},
			{Method: "POST", Pattern: "/{id}/cancel", Handler: h.Cancel, OpenAPI: Spec.Cancel},
		},
		Schemas: Spec.Schemas(),
	}
}

// ExecuteRequest carries optional parameters for a synchronous run.
type ExecuteRequest struct {
	Parameters map[string]any `json:"parameters,omitempty"`
}

// ExecuteResponse reports the outcome of a synchronous run.
type ExecuteResponse struct {
	TaskID        uuid.UUID `json:"task_id"`
	Status        Status    `json:"status"`
	Result        *Result   `json:"result,omitempty"`
	Error         string    `json:"error,omitempty"`
	ExecutionTime float64   `json:"execution_time"`
	Timestamp     time.Time `json:"timestamp"`
}

// RuntimeInfo reports the engine's tracked runs and queue.
type RuntimeInfo struct {
	Running   []uuid.UUID `json:"running"`
	QueueSize int         `json:"queue_size"`
}

// CancelResponse reports a cancellation.
type CancelResponse struct {
	Task        *Task `json:"task"`
	Interrupted bool  `json:"interrupted"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var page pagination.PageRequest
	if err := handlers.DecodeJSON(r, &page); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.sys.List(r.Context(), page, FiltersFromQuery(r.URL.Query()))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) Types(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, tasktype.Catalog())
}

func (h *Handler) Runtime(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, RuntimeInfo{
		Running:   h.engine.Running(),
		QueueSize: h.engine.QueueSize(),
	})
}

func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	result, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var cmd CreateCommand
	if err := handlers.DecodeJSON(r, &cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.sys.Create(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, result)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var cmd UpdateCommand
	if err := handlers.DecodeJSON(r, &cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.sys.Update(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.sys.Delete(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	h.engine.Cancel(id)

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Subtasks(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	result, err := h.sys.Subtasks(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Execute runs the task synchronously. The run outlives a disconnected
// client and stops only through the cancel endpoint.
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req ExecuteRequest
	if err := handlers.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	t, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	result, err := h.engine.Run(context.WithoutCancel(r.Context()), *t, req.Parameters)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	if errors.Is(result.Err, ErrAgentUnavailable) {
		handlers.RespondError(w, h.logger, http.StatusConflict, result.Err)
		return
	}

	resp := ExecuteResponse{
		TaskID:        id,
		Status:        StatusCompleted,
		ExecutionTime: result.ExecutionTime,
		Timestamp:     time.Now().UTC(),
	}
	if result.Success {
		resp.Result = &result
	} else {
		resp.Status = StatusFailed
		resp.Error = result.Error
	}

	handlers.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	t, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	if t.Status.Terminal() {
		err := fmt.Errorf("%w: task is %s", ErrInvalidStatus, t.Status)
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	h.engine.Queue(*t)

	handlers.RespondJSON(w, http.StatusAccepted, map[string]any{
		"task_id":    id,
		"queue_size": h.engine.QueueSize(),
	})
}

// Cancel marks the task cancelled, then stops its run if one is tracked.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	t, err := h.sys.Cancel(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, CancelResponse{
		Task:        t,
		Interrupted: h.engine.Cancel(id),
	})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := handlers.PathUUID(r, "id")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return uuid.Nil, false
	}
	return id, true
}
