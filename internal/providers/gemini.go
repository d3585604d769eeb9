package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

// geminiClient speaks the generateContent API. The system prompt is
// prepended to the user prompt.
type geminiClient struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

func (c *geminiClient) call(req Request, stream bool) httpCall {
	prompt := req.Prompt
	if req.SystemPrompt != "" {
		prompt = req.SystemPrompt + "\n\n" + req.Prompt
	}

	method := "generateContent"
	query := ""
	if stream {
		method = "streamGenerateContent"
		query = "?alt=sse"
	}

	return httpCall{
		provider: Gemini,
		method:   http.MethodPost,
		endpoint: fmt.Sprintf("%s/v1beta/models/%s:%s%s",
			strings.TrimRight(c.baseURL, "/"), url.PathEscape(req.Model), method, query),
		headers: map[string]string{"x-goog-api-key": c.apiKey},
		body: geminiRequest{
			Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
			GenerationConfig: geminiGenerationConfig{
				Temperature:     req.Temperature,
				MaxOutputTokens: req.MaxTokens,
			},
		},
		streaming: stream,
	}
}

func (c *geminiClient) complete(ctx context.Context, req Request) (string, error) {
	resp, err := do(ctx, c.http, c.call(req, false))
	if err != nil {
		return "", err
	}

	body, err := readJSON(Gemini, resp)
	if err != nil {
		return "", err
	}

	text := gjson.GetBytes(body, "candidates.0.content.parts.0.text")
	if !text.Exists() {
		return "", fmt.Errorf("%w: gemini: response has no candidates", ErrProvider)
	}
	return text.String(), nil
}

func (c *geminiClient) stream(ctx context.Context, req Request) (*Stream, error) {
	resp, err := do(ctx, c.http, c.call(req, true))
	if err != nil {
		return nil, err
	}

	return sseStream(Gemini, resp.Body, func(ev sseEvent) (string, bool, error) {
		if err := streamError(Gemini, ev.Data); err != nil {
			return "", false, err
		}
		return gjson.Get(ev.Data, "candidates.0.content.parts.0.text").String(), false, nil
	}), nil
}

func (c *geminiClient) probe(ctx context.Context) error {
	resp, err := do(ctx, c.http, httpCall{
		provider: Gemini,
		method:   http.MethodGet,
		endpoint: strings.TrimRight(c.baseURL, "/") + "/v1beta/models",
		headers:  map[string]string{"x-goog-api-key": c.apiKey},
	})
	if err != nil {
		return err
	}
	return resp.Body.Close()
}
