package providers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/TAPUZE/project-chimera/pkg/handlers"
	"github.com/TAPUZE/project-chimera/pkg/routes"
)

const defaultTemperature = 0.7

// Handler exposes the gateway for diagnostics: the model catalog,
// provider health and direct completions.
type Handler struct {
	gw     *Gateway
	logger *slog.Logger
}

func NewHandler(gw *Gateway, logger *slog.Logger) *Handler {
	return &Handler{gw: gw, logger: logger}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "",
		Tags:        []string{"Providers"},
		Description: "Model catalog and provider gateway",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/models", Handler: h.ListModels, OpenAPI: Spec.ListModels},
			{Method: "GET", Pattern: "/models/{id}", Handler: h.FindModel, OpenAPI: Spec.FindModel},
			{Method: "GET", Pattern: "/providers/health", Handler: h.Health, OpenAPI: Spec.Health},
			{Method: "POST", Pattern: "/completions", Handler: h.Complete, OpenAPI: Spec.Complete},
			{Method: "POST", Pattern: "/completions/stream", Handler: h.CompleteStream, OpenAPI: Spec.CompleteStream},
		},
		Schemas: Spec.Schemas(),
	}
}

// CompletionRequest is the body of the completion endpoints. A missing
// temperature defaults to 0.7 and a missing model to gpt-4.
type CompletionRequest struct {
	Prompt       string   `json:"prompt"`
	Model        string   `json:"model"`
	Temperature  *float64 `json:"temperature,omitempty"`
	MaxTokens    int      `json:"max_tokens"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
}

func (c CompletionRequest) request() Request {
	req := Request{
		Prompt:       c.Prompt,
		Model:        c.Model,
		Temperature:  defaultTemperature,
		MaxTokens:    c.MaxTokens,
		SystemPrompt: c.SystemPrompt,
	}
	if req.Model == "" {
		req.Model = "gpt-4"
	}
	if c.Temperature != nil {
		req.Temperature = *c.Temperature
	}
	return req
}

// CompletionResponse carries a generated completion.
type CompletionResponse struct {
	Model   string `json:"model"`
	Content string `json:"content"`
	Tokens  int    `json:"tokens"`
}

func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.gw.Models())
}

func (h *Handler) FindModel(w http.ResponseWriter, r *http.Request) {
	m, err := h.gw.Model(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusNotFound, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, m)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.gw.ValidateAPIKeys(r.Context()))
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	var body CompletionRequest
	if err := handlers.DecodeJSON(r, &body); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	req := body.request()
	content, err := h.gw.Complete(r.Context(), req)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, CompletionResponse{
		Model:   req.Model,
		Content: content,
		Tokens:  h.gw.TokenCount(content),
	})
}

func (h *Handler) CompleteStream(w http.ResponseWriter, r *http.Request) {
	var body CompletionRequest
	if err := handlers.DecodeJSON(r, &body); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	stream, err := h.gw.Stream(r.Context(), body.request())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer stream.Close()

	sse := handlers.StartSSE(w)
	for {
		fragment, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			sse.Send("error", map[string]string{"error": err.Error()})
			return
		}
		if err := sse.Send("", map[string]string{"content": fragment}); err != nil {
			h.logger.Error("failed to write fragment", "error", err)
			return
		}
	}
	sse.Done()
}
