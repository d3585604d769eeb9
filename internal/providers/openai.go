package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
	Stream      bool            `json:"stream,omitempty"`
}

// openaiClient speaks the Chat Completions API.
type openaiClient struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

func (c *openaiClient) call(req Request, stream bool) httpCall {
	wire := openaiRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
	if req.SystemPrompt != "" {
		wire.Messages = append(wire.Messages, openaiMessage{Role: "system", Content: req.SystemPrompt})
	}
	wire.Messages = append(wire.Messages, openaiMessage{Role: "user", Content: req.Prompt})

	return httpCall{
		provider:  OpenAI,
		method:    http.MethodPost,
		endpoint:  strings.TrimRight(c.baseURL, "/") + "/v1/chat/completions",
		headers:   map[string]string{"Authorization": "Bearer " + c.apiKey},
		body:      wire,
		streaming: stream,
	}
}

func (c *openaiClient) complete(ctx context.Context, req Request) (string, error) {
	resp, err := do(ctx, c.http, c.call(req, false))
	if err != nil {
		return "", err
	}

	body, err := readJSON(OpenAI, resp)
	if err != nil {
		return "", err
	}

	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() {
		return "", fmt.Errorf("%w: openai: response has no choices", ErrProvider)
	}
	return content.String(), nil
}

func (c *openaiClient) stream(ctx context.Context, req Request) (*Stream, error) {
	resp, err := do(ctx, c.http, c.call(req, true))
	if err != nil {
		return nil, err
	}

	return sseStream(OpenAI, resp.Body, func(ev sseEvent) (string, bool, error) {
		if ev.Data == "[DONE]" {
			return "", true, nil
		}
		if err := streamError(OpenAI, ev.Data); err != nil {
			return "", false, err
		}
		return gjson.Get(ev.Data, "choices.0.delta.content").String(), false, nil
	}), nil
}

func (c *openaiClient) probe(ctx context.Context) error {
	resp, err := do(ctx, c.http, httpCall{
		provider: OpenAI,
		method:   http.MethodGet,
		endpoint: strings.TrimRight(c.baseURL, "/") + "/v1/models",
		headers:  map[string]string{"Authorization": "Bearer " + c.apiKey},
	})
	if err != nil {
		return err
	}
	return resp.Body.Close()
}
