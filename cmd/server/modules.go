package main

import (
	"net/http"

	"github.com/TAPUZE/project-chimera/internal/api"
	"github.com/TAPUZE/project-chimera/internal/config"
	"github.com/TAPUZE/project-chimera/internal/infrastructure"
	"github.com/TAPUZE/project-chimera/internal/realtime"
	"github.com/TAPUZE/project-chimera/pkg/lifecycle"
	"github.com/TAPUZE/project-chimera/pkg/module"
)

// Modules are the HTTP surfaces mounted on the root router.
type Modules struct {
	API      *module.Module
	Realtime *module.Module

	domain *api.Domain
	hub    *realtime.Hub
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	hub := realtime.NewHub(infra.Logger)

	apiModule, domain, err := api.NewModule(cfg, infra, hub)
	if err != nil {
		return nil, err
	}

	return &Modules{
		API:      apiModule,
		Realtime: realtime.NewModule(hub, &cfg.Realtime, infra.Logger),
		domain:   domain,
		hub:      hub,
	}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
	router.Mount(m.Realtime)
}

// Start runs the domain background work and closes every realtime client
// on shutdown.
func (m *Modules) Start(lc *lifecycle.Coordinator) {
	m.domain.Start(lc)

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		m.hub.CloseAll()
	})
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !infra.Lifecycle.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("NOT READY"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("READY"))
	})

	return router
}
