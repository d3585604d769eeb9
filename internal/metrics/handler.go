package metrics

import (
	"log/slog"
	"net/http"

	"github.com/TAPUZE/project-chimera/pkg/handlers"
	"github.com/TAPUZE/project-chimera/pkg/pagination"
	"github.com/TAPUZE/project-chimera/pkg/routes"
)

type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger,
		pagination: pagination,
	}
}

// Routes returns the analytics endpoints. Every summary accepts an
// optional user_id query parameter.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "/analytics",
		Tags:        []string{"Analytics"},
		Description: "Agent metrics and activity summaries",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/overview", Handler: h.Overview, OpenAPI: Spec.Overview},
			{Method: "GET", Pattern: "/agents/performance", Handler: h.AgentPerformance, OpenAPI: Spec.AgentPerformance},
			{Method: "GET", Pattern: "/agents/{id}/metrics", Handler: h.ListByAgent, OpenAPI: Spec.ListByAgent},
			{Method: "GET", Pattern: "/tasks", Handler: h.TaskAnalytics, OpenAPI: Spec.TaskAnalytics},
			{Method: "GET", Pattern: "/usage/daily", Handler: h.DailyUsage, OpenAPI: Spec.DailyUsage},
			{Method: "GET", Pattern: "/export", Handler: h.Export, OpenAPI: Spec.Export},
			{Method: "POST", Pattern: "/metrics", Handler: h.Record, OpenAPI: Spec.Record},
		},
		Schemas: Spec.Schemas(),
	}
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	result, err := h.sys.Overview(r.Context(), ScopeFromQuery(r.URL.Query()))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) AgentPerformance(w http.ResponseWriter, r *http.Request) {
	result, err := h.sys.AgentPerformance(r.Context(), ScopeFromQuery(r.URL.Query()))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) TaskAnalytics(w http.ResponseWriter, r *http.Request) {
	result, err := h.sys.TaskAnalytics(r.Context(), ScopeFromQuery(r.URL.Query()))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) DailyUsage(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	result, err := h.sys.DailyUsage(r.Context(), ScopeFromQuery(values), DaysFromQuery(values))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	result, err := BuildExport(r.Context(), h.sys, ScopeFromQuery(values), DaysFromQuery(values))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) ListByAgent(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathUUID(r, "id")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.ListByAgent(r.Context(), id, page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	var cmd RecordCommand
	if err := handlers.DecodeJSON(r, &cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.sys.Record(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, result)
}
