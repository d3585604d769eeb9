package api

import (
	"net/http"

	"github.com/TAPUZE/project-chimera/internal/agents"
	"github.com/TAPUZE/project-chimera/internal/chat"
	"github.com/TAPUZE/project-chimera/internal/config"
	"github.com/TAPUZE/project-chimera/internal/metrics"
	"github.com/TAPUZE/project-chimera/internal/providers"
	"github.com/TAPUZE/project-chimera/internal/realtime"
	"github.com/TAPUZE/project-chimera/internal/tasks"
	"github.com/TAPUZE/project-chimera/internal/users"
	"github.com/TAPUZE/project-chimera/pkg/openapi"
	"github.com/TAPUZE/project-chimera/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	spec *openapi.Spec,
	runtime *Runtime,
	domain *Domain,
	cfg *config.Config,
) {
	providersHandler := providers.NewHandler(domain.Gateway, runtime.Logger)
	agentsHandler := agents.NewHandler(domain.Agents, runtime.Logger, runtime.Pagination)
	tasksHandler := tasks.NewHandler(domain.Tasks, domain.Engine, runtime.Logger, runtime.Pagination)
	usersHandler := users.NewHandler(domain.Users, runtime.Logger, runtime.Pagination)
	metricsHandler := metrics.NewHandler(domain.Metrics, runtime.Logger, runtime.Pagination)
	chatHandler := chat.NewHandler(domain.Chat, domain.Sessions, domain.Agents, runtime.Logger, runtime.Pagination)
	realtimeHandler := realtime.NewHandler(domain.Hub, runtime.Logger)

	routes.Register(
		mux,
		cfg.API.BasePath,
		spec,
		providersHandler.Routes(),
		agentsHandler.Routes(),
		tasksHandler.Routes(),
		usersHandler.Routes(),
		metricsHandler.Routes(),
		chatHandler.Routes(),
		realtimeHandler.Routes(),
	)
}
