package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
	MaxTokens   int                `json:"max_tokens"`
	Stream      bool               `json:"stream,omitempty"`
}

// anthropicClient speaks the Messages API. The system prompt travels in
// its own field rather than as a message.
type anthropicClient struct {
	http    *http.Client
	baseURL string
	apiKey  string
	version string
}

func (c *anthropicClient) headers() map[string]string {
	return map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": c.version,
	}
}

func (c *anthropicClient) call(req Request, stream bool) httpCall {
	return httpCall{
		provider: Anthropic,
		method:   http.MethodPost,
		endpoint: strings.TrimRight(c.baseURL, "/") + "/v1/messages",
		headers:  c.headers(),
		body: anthropicRequest{
			Model:       req.Model,
			System:      req.SystemPrompt,
			Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
			Stream:      stream,
		},
		streaming: stream,
	}
}

func (c *anthropicClient) complete(ctx context.Context, req Request) (string, error) {
	resp, err := do(ctx, c.http, c.call(req, false))
	if err != nil {
		return "", err
	}

	body, err := readJSON(Anthropic, resp)
	if err != nil {
		return "", err
	}

	blocks := gjson.GetBytes(body, "content")
	if !blocks.IsArray() {
		return "", fmt.Errorf("%w: anthropic: response has no content", ErrProvider)
	}

	var sb strings.Builder
	for _, block := range blocks.Array() {
		if block.Get("type").String() == "text" {
			sb.WriteString(block.Get("text").String())
		}
	}
	return sb.String(), nil
}

func (c *anthropicClient) stream(ctx context.Context, req Request) (*Stream, error) {
	resp, err := do(ctx, c.http, c.call(req, true))
	if err != nil {
		return nil, err
	}

	return sseStream(Anthropic, resp.Body, func(ev sseEvent) (string, bool, error) {
		kind := ev.Type
		if kind == "" {
			kind = gjson.Get(ev.Data, "type").String()
		}

		switch kind {
		case "content_block_delta":
			return gjson.Get(ev.Data, "delta.text").String(), false, nil
		case "message_stop":
			return "", true, nil
		case "error":
			if err := streamError(Anthropic, ev.Data); err != nil {
				return "", false, err
			}
			return "", false, fmt.Errorf("%w: anthropic: stream error", ErrProvider)
		}
		return "", false, nil
	}), nil
}

func (c *anthropicClient) probe(ctx context.Context) error {
	resp, err := do(ctx, c.http, httpCall{
		provider: Anthropic,
		method:   http.MethodGet,
		endpoint: strings.TrimRight(c.baseURL, "/") + "/v1/models",
		headers:  c.headers(),
	})
	if err != nil {
		return err
	}
	return resp.Body.Close()
}
