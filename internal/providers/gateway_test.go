package providers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/TAPUZE/project-chimera/internal/config"
	"github.com/TAPUZE/project-chimera/internal/providers"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newGateway(t *testing.T, cfg *config.ProvidersConfig) *providers.Gateway {
	t.Helper()
	if cfg.RequestTimeout == "" {
		cfg.RequestTimeout = "5s"
	}
	gw, err := providers.New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return gw
}

func TestGateway_UnsupportedModel(t *testing.T) {
	gw := newGateway(t, &config.ProvidersConfig{})

	_, err := gw.Complete(context.Background(), providers.Request{Prompt: "hi", Model: "gpt-5-ultra"})
	if !errors.Is(err, providers.ErrUnsupportedModel) {
		t.Errorf("Complete() err = %v, want ErrUnsupportedModel", err)
	}
}

func TestGateway_ProviderUnavailable(t *testing.T) {
	gw := newGateway(t, &config.ProvidersConfig{})

	tests := []string{"gpt-4", "claude-3-haiku", "gemini-pro"}
	for _, model := range tests {
		t.Run(model, func(t *testing.T) {
			_, err := gw.Complete(context.Background(), providers.Request{Prompt: "hi", Model: model})
			if !errors.Is(err, providers.ErrProviderUnavailable) {
				t.Errorf("Complete() err = %v, want ErrProviderUnavailable", err)
			}
		})
	}
}

func TestGateway_InvalidRequest(t *testing.T) {
	gw := newGateway(t, &config.ProvidersConfig{})

	tests := []struct {
		name string
		req  providers.Request
	}{
		{"empty prompt", providers.Request{Model: "local-llama"}},
		{"temperature too high", providers.Request{Prompt: "x", Model: "local-llama", Temperature: 2.5}},
		{"negative max tokens", providers.Request{Prompt: "x", Model: "local-llama", MaxTokens: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gw.Complete(context.Background(), tt.req)
			if !errors.Is(err, providers.ErrInvalidInput) {
				t.Errorf("Complete() err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestGateway_LocalMock(t *testing.T) {
	gw := newGateway(t, &config.ProvidersConfig{})

	prompt := strings.Repeat("a", 150)
	got, err := gw.Complete(context.Background(), providers.Request{Prompt: prompt, Model: "local-llama"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	want := "[Local Model Response] This is a mock response for prompt: " + strings.Repeat("a", 100) + "..."
	if got != want {
		t.Errorf("Complete() = %q, want %q", got, want)
	}
}

func TestGateway_LocalStreamSingleFragment(t *testing.T) {
	gw := newGateway(t, &config.ProvidersConfig{})

	stream, err := gw.Stream(context.Background(), providers.Request{Prompt: "hello", Model: "local-llama"})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	defer stream.Close()

	first, err := stream.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if !strings.Contains(first, "hello") {
		t.Errorf("first fragment = %q", first)
	}

	if _, err := stream.Next(); err != io.EOF {
		t.Errorf("second Next() err = %v, want io.EOF", err)
	}
}

func TestOpenAI_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"hello there"}}]}`)
	}))
	defer srv.Close()

	gw := newGateway(t, &config.ProvidersConfig{OpenAIAPIKey: "sk-test", OpenAIBaseURL: srv.URL})

	out, err := gw.Complete(context.Background(), providers.Request{
		Prompt:       "hi",
		Model:        "gpt-4",
		Temperature:  0.5,
		MaxTokens:    100,
		SystemPrompt: "be nice",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out != "hello there" {
		t.Errorf("Complete() = %q", out)
	}

	messages, _ := got["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("messages = %v, want 2 entries", got["messages"])
	}
	first := messages[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "be nice" {
		t.Errorf("first message = %v, want system prompt", first)
	}
	if got["max_tokens"] != float64(100) {
		t.Errorf("max_tokens = %v", got["max_tokens"])
	}
}

func TestOpenAI_DefaultMaxTokens(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer srv.Close()

	gw := newGateway(t, &config.ProvidersConfig{OpenAIAPIKey: "k", OpenAIBaseURL: srv.URL})
	if _, err := gw.Complete(context.Background(), providers.Request{Prompt: "x", Model: "gpt-3.5-turbo"}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if got["max_tokens"] != float64(1000) {
		t.Errorf("max_tokens = %v, want 1000", got["max_tokens"])
	}
}

func TestOpenAI_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"bad key"}}`)
	}))
	defer srv.Close()

	gw := newGateway(t, &config.ProvidersConfig{OpenAIAPIKey: "k", OpenAIBaseURL: srv.URL})

	_, err := gw.Complete(context.Background(), providers.Request{Prompt: "x", Model: "gpt-4"})
	if !errors.Is(err, providers.ErrProvider) {
		t.Fatalf("Complete() err = %v, want ErrProvider", err)
	}

	var se *providers.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Complete() err = %T, want *StatusError", err)
	}
	if se.StatusCode != http.StatusUnauthorized || se.Message != "bad key" {
		t.Errorf("StatusError = %+v", se)
	}
	if providers.MapHTTPStatus(err) != http.StatusBadGateway {
		t.Errorf("MapHTTPStatus() = %d, want 502", providers.MapHTTPStatus(err))
	}
}

func TestOpenAI_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	gw := newGateway(t, &config.ProvidersConfig{OpenAIAPIKey: "k", OpenAIBaseURL: srv.URL})

	stream, err := gw.Stream(context.Background(), providers.Request{Prompt: "x", Model: "gpt-4"})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	got, err := providers.Collect(stream)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if got != "Hello" {
		t.Errorf("Collect() = %q, want %q", got, "Hello")
	}

	if _, err := stream.Next(); err != io.EOF {
		t.Errorf("Next() after close err = %v, want io.EOF", err)
	}
}

func TestOpenAI_StreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"error\":{\"message\":\"overloaded\"}}\n\n")
	}))
	defer srv.Close()

	gw := newGateway(t, &config.ProvidersConfig{OpenAIAPIKey: "k", OpenAIBaseURL: srv.URL})

	stream, err := gw.Stream(context.Background(), providers.Request{Prompt: "x", Model: "gpt-4"})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	_, err = providers.Collect(stream)
	if !errors.Is(err, providers.ErrProvider) || !strings.Contains(err.Error(), "overloaded") {
		t.Errorf("Collect() err = %v, want provider error with message", err)
	}
}

func TestStream_CloseReleasesTransport(t *testing.T) {
	released := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"first\"}}]}\n\n")
		w.(http.Flusher).Flush()

		select {
		case <-r.Context().Done():
			close(released)
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	gw := newGateway(t, &config.ProvidersConfig{OpenAIAPIKey: "k", OpenAIBaseURL: srv.URL})

	stream, err := gw.Stream(context.Background(), providers.Request{Prompt: "x", Model: "gpt-4"})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	fragment, err := stream.Next()
	if err != nil || fragment != "first" {
		t.Fatalf("Next() = %q, %v", fragment, err)
	}

	if err := stream.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("server request still open after Close()")
	}

	if _, err := stream.Next(); err != io.EOF {
		t.Errorf("Next() after Close() err = %v, want io.EOF", err)
	}
}

func TestAnthropic_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "ak" || r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("headers = %v", r.Header)
		}
		json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"content":[{"type":"text","text":"part one, "},{"type":"text","text":"part two"}]}`)
	}))
	defer srv.Close()

	gw := newGateway(t, &config.ProvidersConfig{
		AnthropicAPIKey:  "ak",
		AnthropicBaseURL: srv.URL,
		AnthropicVersion: "2023-06-01",
	})

	out, err := gw.Complete(context.Background(), providers.Request{
		Prompt:       "hi",
		Model:        "claude-3-sonnet",
		SystemPrompt: "sys",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out != "part one, part two" {
		t.Errorf("Complete() = %q", out)
	}
	if got["system"] != "sys" {
		t.Errorf("system = %v, want %q", got["system"], "sys")
	}
	if messages, _ := got["messages"].([]any); len(messages) != 1 {
		t.Errorf("messages = %v, want only the user message", got["messages"])
	}
}

func TestAnthropic_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "event: message_start\ndata: {\"type\":\"message_start\"}\n\n")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"Hi \"}}\n\n")
		fmt.Fprint(w, "event: ping\ndata: {\"type\":\"ping\"}\n\n")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"there\"}}\n\n")
		fmt.Fprint(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"text\":\"ignored\"}}\n\n")
	}))
	defer srv.Close()

	gw := newGateway(t, &config.ProvidersConfig{AnthropicAPIKey: "ak", AnthropicBaseURL: srv.URL})

	stream, err := gw.Stream(context.Background(), providers.Request{Prompt: "x", Model: "claude-3-opus"})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	got, err := providers.Collect(stream)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if got != "Hi there" {
		t.Errorf("Collect() = %q, want %q", got, "Hi there")
	}
}

func TestGemini_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-pro:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "gk" {
			t.Errorf("x-goog-api-key = %q", r.Header.Get("x-goog-api-key"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"gemini says hi"}]}}]}`)
	}))
	defer srv.Close()

	gw := newGateway(t, &config.ProvidersConfig{GeminiAPIKey: "gk", GeminiBaseURL: srv.URL})

	out, err := gw.Complete(context.Background(), providers.Request{
		Prompt:       "question",
		Model:        "gemini-pro",
		SystemPrompt: "context",
		MaxTokens:    50,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out != "gemini says hi" {
		t.Errorf("Complete() = %q", out)
	}

	contents := got["contents"].([]any)
	parts := contents[0].(map[string]any)["parts"].([]any)
	if text := parts[0].(map[string]any)["text"]; text != "context\n\nquestion" {
		t.Errorf("prompt text = %q", text)
	}
	genCfg := got["generationConfig"].(map[string]any)
	if genCfg["maxOutputTokens"] != float64(50) {
		t.Errorf("maxOutputTokens = %v", genCfg["maxOutputTokens"])
	}
}

func TestGemini_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-pro:streamGenerateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("alt") != "sse" {
			t.Errorf("alt = %q, want sse", r.URL.Query().Get("alt"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"Gem\"}]}}]}\n\n")
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"ini\"}]}}]}\n\n")
	}))
	defer srv.Close()

	gw := newGateway(t, &config.ProvidersConfig{GeminiAPIKey: "gk", GeminiBaseURL: srv.URL})

	stream, err := gw.Stream(context.Background(), providers.Request{Prompt: "x", Model: "gemini-pro"})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	got, err := providers.Collect(stream)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if got != "Gemini" {
		t.Errorf("Collect() = %q, want %q", got, "Gemini")
	}
}

func TestGateway_ValidateAPIKeys(t *testing.T) {
	openai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer openai.Close()

	anthropic := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer anthropic.Close()

	gw := newGateway(t, &config.ProvidersConfig{
		OpenAIAPIKey:     "k",
		OpenAIBaseURL:    openai.URL,
		AnthropicAPIKey:  "bad",
		AnthropicBaseURL: anthropic.URL,
	})

	got := gw.ValidateAPIKeys(context.Background())
	want := map[string]bool{
		"openai":    true,
		"anthropic": false,
		"gemini":    false,
		"local":     true,
	}

	for name, ok := range want {
		if got[name] != ok {
			t.Errorf("ValidateAPIKeys()[%q] = %v, want %v", name, got[name], ok)
		}
	}
	if len(got) != len(want) {
		t.Errorf("len(ValidateAPIKeys()) = %d, want %d", len(got), len(want))
	}
}

func TestGateway_Catalog(t *testing.T) {
	gw := newGateway(t, &config.ProvidersConfig{})

	if n := len(gw.Models()); n != 8 {
		t.Errorf("len(Models()) = %d, want 8", n)
	}

	m, err := gw.Model("local-llama")
	if err != nil {
		t.Fatalf("Model() error = %v", err)
	}
	if m.Provider != providers.Local || m.MaxTokens != 2000 {
		t.Errorf("Model(local-llama) = %+v", m)
	}

	if !gw.Supports("claude-3-haiku") || gw.Supports("llama-70b") {
		t.Error("Supports() gave wrong answer")
	}
	if !gw.Configured(providers.Local) || gw.Configured(providers.OpenAI) {
		t.Error("Configured() gave wrong answer")
	}
}

func TestGateway_TokenCount(t *testing.T) {
	gw := newGateway(t, &config.ProvidersConfig{})

	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"one two three four five six seven eight nine ten", 13},
		{"a b c", 4},
	}

	for _, tt := range tests {
		if got := gw.TokenCount(tt.text); got != tt.want {
			t.Errorf("TokenCount(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
