package api

import (
	"github.com/TAPUZE/project-chimera/internal/agents"
	"github.com/TAPUZE/project-chimera/internal/chat"
	"github.com/TAPUZE/project-chimera/internal/config"
	"github.com/TAPUZE/project-chimera/internal/metrics"
	"github.com/TAPUZE/project-chimera/internal/providers"
	"github.com/TAPUZE/project-chimera/internal/realtime"
	"github.com/TAPUZE/project-chimera/internal/tasks"
	"github.com/TAPUZE/project-chimera/internal/users"
	"github.com/TAPUZE/project-chimera/pkg/lifecycle"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Gateway  *providers.Gateway
	Hub      *realtime.Hub
	Agents   agents.System
	Tasks    tasks.System
	Engine   *tasks.Engine
	Users    users.System
	Metrics  metrics.System
	Chat     chat.System
	Sessions *chat.Manager
}

// NewDomain creates all domain systems from the API runtime. Agent
// runtime events and task progress are published through hub.
func NewDomain(runtime *Runtime, cfg *config.Config, hub *realtime.Hub) *Domain {
	db := runtime.Database.Connection()

	registry := agents.NewRegistry(
		runtime.Gateway,
		hub,
		agents.RegistryConfig{
			MaxAgents: cfg.Engine.MaxAgents,
			Timeout:   cfg.Engine.AgentTimeoutDuration(),
		},
		runtime.Logger,
	)

	agentsSys := agents.New(db, registry, runtime.Logger, runtime.Pagination)
	tasksSys := tasks.New(db, runtime.Logger, runtime.Pagination)
	metricsSys := metrics.New(db, runtime.Logger, runtime.Pagination)

	engine := tasks.NewEngine(tasks.NewConfig(&cfg.Engine), tasks.Deps{
		Gateway:  runtime.Gateway,
		Agents:   agentsSys,
		Registry: registry,
		Store:    tasksSys,
		Observer: realtime.NewTaskObserver(hub, runtime.Logger),
		Metrics:  metricsSys,
		Logger:   runtime.Logger,
	})

	return &Domain{
		Gateway:  runtime.Gateway,
		Hub:      hub,
		Agents:   agentsSys,
		Tasks:    tasksSys,
		Engine:   engine,
		Users:    users.New(db, runtime.Logger, runtime.Pagination),
		Metrics:  metricsSys,
		Chat:     chat.New(db, runtime.Logger, runtime.Pagination),
		Sessions: chat.NewManager(runtime.Gateway, runtime.Logger),
	}
}

// Start runs the task queue worker and stops the agent registry on
// shutdown.
func (d *Domain) Start(lc *lifecycle.Coordinator) {
	d.Engine.Start(lc)

	registry := d.Agents.Registry()
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		registry.Shutdown()
	})
}
