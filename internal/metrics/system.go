package metrics

import (
	"context"

	"github.com/google/uuid"

	"github.com/TAPUZE/project-chimera/pkg/pagination"
)

// System defines metric recording and analytics queries.
type System interface {
	Record(ctx context.Context, cmd RecordCommand) (*Metric, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Metric], error)

	Overview(ctx context.Context, scope Scope) (*Overview, error)
	AgentPerformance(ctx context.Context, scope Scope) ([]AgentPerformance, error)
	TaskAnalytics(ctx context.Context, scope Scope) ([]TaskTypeSummary, error)
	DailyUsage(ctx context.Context, scope Scope, days int) ([]DailyUsage, error)

	RecordExecution(ctx context.Context, agentID uuid.UUID, seconds float64, success bool) error
}
