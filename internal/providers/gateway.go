// Package providers implements the model provider gateway: a uniform
// completion interface over OpenAI, Anthropic, Gemini and a local model,
// routed by a static model table.
package providers

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/TAPUZE/project-chimera/internal/config"
)

const defaultMaxTokens = 1000

// Request is a single completion request.
type Request struct {
	Prompt       string  `json:"prompt"`
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
}

// Gateway routes completion requests to the provider serving each model.
// Provider clients are built once and shared by every caller.
type Gateway struct {
	clients map[string]client
	timeout time.Duration
	logger  *slog.Logger
}

// New builds a client for every provider with credentials plus the
// local provider.
func New(cfg *config.ProvidersConfig, logger *slog.Logger) (*Gateway, error) {
	timeout := cfg.RequestTimeoutDuration()

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	hc := &http.Client{Transport: transport}

	clients := make(map[string]client)

	if cfg.OpenAIAPIKey != "" {
		clients[OpenAI] = &openaiClient{http: hc, baseURL: cfg.OpenAIBaseURL, apiKey: cfg.OpenAIAPIKey}
	}
	if cfg.AnthropicAPIKey != "" {
		clients[Anthropic] = &anthropicClient{
			http:    hc,
			baseURL: cfg.AnthropicBaseURL,
			apiKey:  cfg.AnthropicAPIKey,
			version: cfg.AnthropicVersion,
		}
	}
	if cfg.GeminiAPIKey != "" {
		clients[Gemini] = &geminiClient{http: hc, baseURL: cfg.GeminiBaseURL, apiKey: cfg.GeminiAPIKey}
	}

	local, err := newLocalClient(cfg.LocalAgentConfig)
	if err != nil {
		return nil, err
	}
	clients[Local] = local

	logger = logger.With("system", "providers")
	for _, name := range ProviderNames() {
		_, ok := clients[name]
		logger.Info("provider registered", "provider", name, "configured", ok)
	}

	return &Gateway{
		clients: clients,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Complete returns the full completion text for req. Failures are never retried.
func (g *Gateway) Complete(ctx context.Context, req Request) (string, error) {
	c, model, err := g.resolve(&req)
	if err != nil {
		return "", err
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := c.complete(ctx, req)
	if err != nil {
		g.logger.Error("completion failed", "model", model.ID, "provider", model.Provider, "error", err)
		return "", err
	}

	g.logger.Debug("completion generated", "model", model.ID, "provider", model.Provider, "duration", time.Since(start))
	return out, nil
}

// Stream starts a streaming completion. The caller must Close the stream.
func (g *Gateway) Stream(ctx context.Context, req Request) (*Stream, error) {
	c, model, err := g.resolve(&req)
	if err != nil {
		return nil, err
	}

	s, err := c.stream(ctx, req)
	if err != nil {
		g.logger.Error("stream failed", "model", model.ID, "provider", model.Provider, "error", err)
		return nil, err
	}
	return s, nil
}

// ValidateAPIKeys probes every known provider concurrently. Unconfigured
// providers and failed probes report false.
func (g *Gateway) ValidateAPIKeys(ctx context.Context) map[string]bool {
	names := ProviderNames()
	results := make(map[string]bool, len(names))
	var mu sync.Mutex

	var eg errgroup.Group
	for _, name := range names {
		eg.Go(func() error {
			ok := false
			if c, found := g.clients[name]; found {
				probeCtx := ctx
				if g.timeout > 0 {
					var cancel context.CancelFunc
					probeCtx, cancel = context.WithTimeout(ctx, g.timeout)
					defer cancel()
				}
				err := c.probe(probeCtx)
				if err != nil {
					g.logger.Warn("provider probe failed", "provider", name, "error", err)
				}
				ok = err == nil
			}

			mu.Lock()
			results[name] = ok
			mu.Unlock()
			return nil
		})
	}
	eg.Wait()

	return results
}

// Models returns the model catalog.
func (g *Gateway) Models() []Model {
	out := make([]Model, len(catalog))
	copy(out, catalog)
	return out
}

// Model returns the catalog entry for id.
func (g *Gateway) Model(id string) (Model, error) {
	m, ok := Lookup(id)
	if !ok {
		return Model{}, fmt.Errorf("%w: %s", ErrUnsupportedModel, id)
	}
	return m, nil
}

// Supports reports whether id is in the model table.
func (g *Gateway) Supports(id string) bool {
	_, ok := Lookup(id)
	return ok
}

// Configured reports whether the named provider has a client.
func (g *Gateway) Configured(provider string) bool {
	_, ok := g.clients[provider]
	return ok
}

// TokenCount estimates the token count of text at 1.3 tokens per word.
func (g *Gateway) TokenCount(text string) int {
	return int(math.Round(float64(len(strings.Fields(text))) * 1.3))
}

func (g *Gateway) resolve(req *Request) (client, Model, error) {
	if req.Prompt == "" {
		return nil, Model{}, fmt.Errorf("%w: prompt is required", ErrInvalidInput)
	}
	if req.Temperature < 0 || req.Temperature > 2 {
		return nil, Model{}, fmt.Errorf("%w: temperature must be between 0 and 2", ErrInvalidInput)
	}
	if req.MaxTokens < 0 {
		return nil, Model{}, fmt.Errorf("%w: max_tokens cannot be negative", ErrInvalidInput)
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = defaultMaxTokens
	}

	model, err := g.Model(req.Model)
	if err != nil {
		return nil, Model{}, err
	}

	c, ok := g.clients[model.Provider]
	if !ok {
		return nil, Model{}, fmt.Errorf("%w: %s", ErrProviderUnavailable, model.Provider)
	}
	return c, model, nil
}
