package realtime

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/TAPUZE/project-chimera/pkg/handlers"
	"github.com/TAPUZE/project-chimera/pkg/routes"
)

var (
	ErrClientNotFound      = errors.New("client not connected")
	ErrInvalidNotification = errors.New("notification must be a JSON object")
)

// Handler exposes hub state and system notifications over HTTP.
type Handler struct {
	hub    *Hub
	logger *slog.Logger
}

func NewHandler(hub *Hub, logger *slog.Logger) *Handler {
	return &Handler{hub: hub, logger: logger}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "/realtime",
		Tags:        []string{"Realtime"},
		Description: "Connected WebSocket clients and system notifications",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/stats", Handler: h.Stats, OpenAPI: Spec.Stats},
			{Method: "GET", Pattern: "/clients/{client_id}", Handler: h.Client, OpenAPI: Spec.Client},
			{Method: "POST", Pattern: "/notifications", Handler: h.Notify, OpenAPI: Spec.Notify},
		},
		Schemas: Spec.Schemas(),
	}
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.hub.Stats())
}

func (h *Handler) Client(w http.ResponseWriter, r *http.Request) {
	info, ok := h.hub.ClientInfo(r.PathValue("client_id"))
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusNotFound, ErrClientNotFound)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, info)
}

// Notify publishes the request body to the system topic.
func (h *Handler) Notify(w http.ResponseWriter, r *http.Request) {
	var notification map[string]any
	if err := handlers.DecodeJSON(r, &notification); err != nil || notification == nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidNotification)
		return
	}

	h.hub.BroadcastSystemNotification(r.Context(), notification)

	handlers.RespondJSON(w, http.StatusAccepted, map[string]any{
		"topic":       SystemTopic,
		"subscribers": len(h.hub.TopicSubscribers(SystemTopic)),
	})
}
