package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TAPUZE/project-chimera/internal/agents"
	"github.com/TAPUZE/project-chimera/pkg/handlers"
	"github.com/TAPUZE/project-chimera/pkg/pagination"
	"github.com/TAPUZE/project-chimera/pkg/routes"
)

// AgentFinder looks up persisted agents.
type AgentFinder interface {
	Find(ctx context.Context, id uuid.UUID) (*agents.Agent, error)
}

type Handler struct {
	sys        System
	manager    *Manager
	agents     AgentFinder
	logger     *slog.Logger
	pagination pagination.Config
}

func NewHandler(sys System, manager *Manager, agents AgentFinder, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		manager:    manager,
		agents:     agents,
		logger:     logger,
		pagination: pagination,
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "/chat",
		Tags:        []string{"Chat"},
		Description: "Agent conversations and their history",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/completions", Handler: h.Complete, OpenAPI: Spec.Complete},
			{Method: "POST", Pattern: "/completions/stream", Handler: h.CompleteStream, OpenAPI: Spec.CompleteStream},
			{Method: "GET", Pattern: "/sessions", Handler: h.ListSessions, OpenAPI: Spec.ListSessions},
			{Method: "GET", Pattern: "/sessions/active", Handler: h.ActiveSessions, OpenAPI: Spec.ActiveSessions},
			{Method: "POST", Pattern: "/sessions", Handler: h.CreateSession, OpenAPI: Spec.CreateSession},
			{Method: "GET", Pattern: "/sessions/{id}", Handler: h.FindSession, OpenAPI: Spec.FindSession},
			{Method: "PUT", Pattern: "/sessions/{id}", Handler: h.UpdateSession, OpenAPI: Spec.UpdateSession},
			{Method: "DELETE", Pattern: "/sessions/{id}", Handler: h.DeleteSession, OpenAPI: Spec.DeleteSession},
			{Method: "GET", Pattern: "/sessions/{id}/messages", Handler: h.Messages, OpenAPI: Spec.Messages},
			{Method: "POST", Pattern: "/sessions/{id}/messages", Handler: h.AddMessage, OpenAPI: Spec.AddMessage},
			{Method: "GET", Pattern: "/sessions/{id}/export", Handler: h.Export, OpenAPI: Spec.Export},
			{Method: "GET", Pattern: "/sessions/{id}/summary", Handler: h.Summary, OpenAPI: Spec.Summary},
			{Method: "GET", Pattern: "/sessions/{id}/suggestions", Handler: h.Suggestions, OpenAPI: Spec.Suggestions},
			{Method: "GET", Pattern: "/sessions/{id}/context", Handler: h.Context, OpenAPI: Spec.Context},
			{Method: "DELETE", Pattern: "/sessions/{id}/context", Handler: h.ClearContext, OpenAPI: Spec.ClearContext},
		},
		Schemas: Spec.Schemas(),
	}
}

// CompletionRequest is a user message addressed to an optional agent in
// an optional session.
type CompletionRequest struct {
	Message     string     `json:"message"`
	SessionID   *uuid.UUID `json:"session_id,omitempty"`
	AgentID     *uuid.UUID `json:"agent_id,omitempty"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	Temperature *float64   `json:"temperature,omitempty"`
	MaxTokens   *int       `json:"max_tokens,omitempty"`
}

type CompletionResponse struct {
	SessionID uuid.UUID        `json:"session_id"`
	MessageID uuid.UUID        `json:"message_id"`
	Content   string           `json:"content"`
	Metadata  ResponseMetadata `json:"metadata"`
}

// begin resolves the agent and session for body and stores the user
// message. A missing session is created with a dated title.
func (h *Handler) begin(ctx context.Context, body CompletionRequest) (*Session, *agents.Agent, error) {
	if strings.TrimSpace(body.Message) == "" {
		return nil, nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}

	var agent *agents.Agent
	if body.AgentID != nil {
		a, err := h.agents.Find(ctx, *body.AgentID)
		if errors.Is(err, agents.ErrNotFound) || (err == nil && !a.IsActive) {
			return nil, nil, ErrAgentUnavailable
		}
		if err != nil {
			return nil, nil, err
		}
		agent = a
	}

	var session *Session
	var err error
	if body.SessionID != nil {
		session, err = h.sys.FindSession(ctx, *body.SessionID)
	} else {
		session, err = h.sys.CreateSession(ctx, CreateSessionCommand{
			Title:  DefaultTitle(time.Now()),
			UserID: body.UserID,
		})
	}
	if err != nil {
		return nil, nil, err
	}

	if _, err := h.sys.AddMessage(ctx, session.ID, AddMessageCommand{
		Content:     body.Message,
		MessageType: MessageTypeUser,
	}); err != nil {
		return nil, nil, err
	}

	return session, agent, nil
}

func (h *Handler) finish(ctx context.Context, session *Session, agent *agents.Agent, resp *Response) (*Message, error) {
	metadata, err := json.Marshal(resp.Metadata.asMap())
	if err != nil {
		return nil, err
	}

	var agentID *uuid.UUID
	if agent != nil {
		agentID = &agent.ID
	}

	return h.sys.AddMessage(ctx, session.ID, AddMessageCommand{
		AgentID:     agentID,
		Content:     resp.Content,
		MessageType: MessageTypeAgent,
		Metadata:    metadata,
	})
}

func (body CompletionRequest) request(session *Session, agent *agents.Agent) Request {
	id := session.ID
	return Request{
		Message:     body.Message,
		Agent:       agent,
		SessionID:   &id,
		Temperature: body.Temperature,
		MaxTokens:   body.MaxTokens,
	}
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	var body CompletionRequest
	if err := handlers.DecodeJSON(r, &body); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	session, agent, err := h.begin(r.Context(), body)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	resp, err := h.manager.GenerateResponse(r.Context(), body.request(session, agent))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	msg, err := h.finish(r.Context(), session, agent, resp)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, CompletionResponse{
		SessionID: session.ID,
		MessageID: msg.ID,
		Content:   resp.Content,
		Metadata:  resp.Metadata,
	})
}

// CompleteStream sends a session event, then content fragments, then a
// complete event carrying the stored message id.
func (h *Handler) CompleteStream(w http.ResponseWriter, r *http.Request) {
	var body CompletionRequest
	if err := handlers.DecodeJSON(r, &body); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	session, agent, err := h.begin(r.Context(), body)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	sse := handlers.StartSSE(w)
	if err := sse.Send("session", map[string]string{"session_id": session.ID.String()}); err != nil {
		h.logger.Error("failed to write session event", "error", err)
		return
	}

	resp, err := h.manager.StreamResponse(r.Context(), body.request(session, agent), func(fragment string) error {
		return sse.Send("", map[string]string{"content": fragment})
	})
	if err != nil {
		h.logger.Error("chat stream failed", "session_id", session.ID, "error", err)
		sse.Send("error", map[string]string{"error": err.Error()})
		return
	}

	msg, err := h.finish(r.Context(), session, agent, resp)
	if err != nil {
		sse.Send("error", map[string]string{"error": err.Error()})
		return
	}

	sse.Send("complete", map[string]any{
		"message_id": msg.ID,
		"metadata":   resp.Metadata,
	})
	sse.Done()
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := SessionFiltersFromQuery(r.URL.Query())

	result, err := h.sys.ListSessions(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) ActiveSessions(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.manager.ActiveSessions())
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var cmd CreateSessionCommand
	if err := handlers.DecodeJSON(r, &cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.sys.CreateSession(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, result)
}

func (h *Handler) FindSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	result, err := h.sys.FindSession(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var cmd UpdateSessionCommand
	if err := handlers.DecodeJSON(r, &cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.sys.UpdateSession(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	if err := h.sys.DeleteSession(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	h.manager.ClearSession(id)

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	result, err := h.sys.Messages(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) AddMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var cmd AddMessageCommand
	if err := handlers.DecodeJSON(r, &cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.sys.AddMessage(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, result)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	result, err := h.sys.Export(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	id, ok := h.existingSession(w, r)
	if !ok {
		return
	}

	summary, err := h.manager.Summary(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"summary":    summary,
	})
}

func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.existingSession(w, r)
	if !ok {
		return
	}

	suggestions, err := h.manager.SuggestedReplies(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, map[string]any{
		"session_id":  id,
		"suggestions": suggestions,
	})
}

func (h *Handler) Context(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	snapshot, found := h.manager.Context(id)
	if !found {
		handlers.RespondError(w, h.logger, http.StatusNotFound, fmt.Errorf("no active context for session %s", id))
		return
	}

	handlers.RespondJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) ClearContext(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	h.manager.ClearSession(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := handlers.PathUUID(r, "id")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) existingSession(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return uuid.Nil, false
	}
	if _, err := h.sys.FindSession(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return uuid.Nil, false
	}
	return id, true
}
