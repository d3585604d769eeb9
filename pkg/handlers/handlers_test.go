package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/TAPUZE/project-chimera/pkg/handlers"
)

func TestRespondJSON(t *testing.T) {
	w := httptest.NewRecorder()

	handlers.RespondJSON(w, http.StatusCreated, map[string]string{"status": "ok"})

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestRespondError(t *testing.T) {
	w := httptest.NewRecorder()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handlers.RespondError(w, logger, http.StatusNotFound, errors.New("task not found"))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != "task not found" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestRespondError_BodyTooLarge(t *testing.T) {
	w := httptest.NewRecorder()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	err := fmt.Errorf("decode body: %w", &http.MaxBytesError{Limit: 1024})
	handlers.RespondError(w, logger, http.StatusBadRequest, err)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestRespondError_LogLevel(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusNotFound, "level=WARN"},
		{http.StatusBadGateway, "level=ERROR"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))

		handlers.RespondError(httptest.NewRecorder(), logger, tt.status, errors.New("boom"))

		if !strings.Contains(buf.String(), tt.want) {
			t.Errorf("status %d logged %q, want %s", tt.status, buf.String(), tt.want)
		}
	}
}

func TestSSE(t *testing.T) {
	w := httptest.NewRecorder()

	sse := handlers.StartSSE(w)
	if err := sse.Send("session", map[string]string{"id": "s1"}); err != nil {
		t.Fatal(err)
	}
	if err := sse.Send("", "chunk"); err != nil {
		t.Fatal(err)
	}
	sse.Done()

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	want := "event: session\ndata: {\"id\":\"s1\"}\n\n" +
		"data: \"chunk\"\n\n" +
		"data: [DONE]\n\n"
	if got := w.Body.String(); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"scout"}`))
	if err := handlers.DecodeJSON(r, &v); err != nil || v.Name != "scout" {
		t.Fatalf("DecodeJSON() = %v, name %q", err, v.Name)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	if err := handlers.DecodeJSON(r, &v); err == nil {
		t.Error("DecodeJSON() should fail on truncated input")
	}
}

func TestPathUUID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.SetPathValue("id", "6f1c1f0e-3c1a-4a51-9d65-0c2a4f7d1e11")

	id, err := handlers.PathUUID(r, "id")
	if err != nil || id.String() != "6f1c1f0e-3c1a-4a51-9d65-0c2a4f7d1e11" {
		t.Fatalf("PathUUID() = %v, %v", id, err)
	}

	r.SetPathValue("id", "nope")
	if _, err := handlers.PathUUID(r, "id"); err == nil || !strings.Contains(err.Error(), "invalid id") {
		t.Errorf("PathUUID(nope) err = %v", err)
	}
}
