// Package api assembles the HTTP API module: domain systems, their routes
// and the generated OpenAPI document.
package api

import (
	"net/http"

	"github.com/TAPUZE/project-chimera/internal/config"
	"github.com/TAPUZE/project-chimera/internal/infrastructure"
	"github.com/TAPUZE/project-chimera/internal/realtime"
	"github.com/TAPUZE/project-chimera/pkg/middleware"
	"github.com/TAPUZE/project-chimera/pkg/module"
	"github.com/TAPUZE/project-chimera/pkg/openapi"
)

// NewModule builds the domain and mounts its routes under the configured
// base path. The returned Domain must be started with the lifecycle.
func NewModule(
	cfg *config.Config,
	infra *infrastructure.Infrastructure,
	hub *realtime.Hub,
) (*module.Module, *Domain, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime, cfg, hub)

	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.Domain)

	mux := http.NewServeMux()
	registerRoutes(mux, spec, runtime, domain, cfg)

	specBytes, err := openapi.MarshalJSON(spec)
	if err != nil {
		return nil, nil, err
	}
	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(specBytes))

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.TrimSlash())
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.MaxBody(cfg.API.MaxBodySize))
	if !cfg.API.DisableCompression {
		compress, err := middleware.Compress(cfg.API.CompressMinSizeBytes())
		if err != nil {
			return nil, nil, err
		}
		m.Use(compress)
	}
	m.Use(middleware.Logger(runtime.Logger))

	return m, domain, nil
}
