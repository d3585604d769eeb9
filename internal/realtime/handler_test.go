package realtime_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/TAPUZE/project-chimera/internal/realtime"
	"github.com/TAPUZE/project-chimera/pkg/openapi"
	"github.com/TAPUZE/project-chimera/pkg/routes"
)

func newRealtimeMux(hub *realtime.Hub) *http.ServeMux {
	h := realtime.NewHandler(hub, discardLogger())
	mux := http.NewServeMux()
	routes.Register(mux, "/api", openapi.NewSpec("test", "1.0.0"), h.Routes())
	return mux
}

func TestHandler_Stats(t *testing.T) {
	hub := realtime.NewHub(discardLogger())
	connect(t, hub, "A")
	hub.Subscribe(context.Background(), "A", "news")

	w := httptest.NewRecorder()
	newRealtimeMux(hub).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/realtime/stats", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var stats realtime.Stats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.ConnectedClients != 1 || stats.TotalSubscriptions != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestHandler_Client(t *testing.T) {
	hub := realtime.NewHub(discardLogger())
	connect(t, hub, "A")
	mux := newRealtimeMux(hub)

	tests := []struct {
		id         string
		wantStatus int
	}{
		{"A", http.StatusOK},
		{"missing", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/realtime/clients/"+tt.id, nil))
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandler_Notify(t *testing.T) {
	hub := realtime.NewHub(discardLogger())
	a := connect(t, hub, "A")
	hub.Subscribe(context.Background(), "A", realtime.SystemTopic)
	mux := newRealtimeMux(hub)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"object", `{"text": "deploy at noon"}`, http.StatusAccepted},
		{"array", `[1]`, http.StatusBadRequest},
		{"null", `null`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/realtime/notifications", strings.NewReader(tt.body)))
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}

	if got := len(a.ofType("system_notification")); got != 1 {
		t.Errorf("notifications delivered = %d, want 1", got)
	}
}
