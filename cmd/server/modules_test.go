package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TAPUZE/project-chimera/internal/config"
	"github.com/TAPUZE/project-chimera/internal/infrastructure"
	"github.com/TAPUZE/project-chimera/pkg/lifecycle"
)

func TestBuildRouter_Probes(t *testing.T) {
	infra := &infrastructure.Infrastructure{Lifecycle: lifecycle.New()}
	router := buildRouter(infra)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	if rec := get("/healthz"); rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
	if rec := get("/readyz"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz before startup = %d, want 503", rec.Code)
	}

	infra.Lifecycle.WaitForStartup()

	if rec := get("/readyz"); rec.Code != http.StatusOK || rec.Body.String() != "READY" {
		t.Errorf("readyz after startup = %d %q", rec.Code, rec.Body.String())
	}
}

func TestConfigLoad_RepositoryDefaults(t *testing.T) {
	t.Chdir("../..")
	t.Setenv(config.EnvServiceEnv, "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	if cfg.API.BasePath != "/api" {
		t.Errorf("api base path = %q, want /api", cfg.API.BasePath)
	}
	if cfg.Realtime.Path != "/ws" {
		t.Errorf("realtime path = %q, want /ws", cfg.Realtime.Path)
	}
}
