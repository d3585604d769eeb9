package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/TAPUZE/project-chimera/pkg/pagination"
	"github.com/TAPUZE/project-chimera/pkg/query"
	"github.com/TAPUZE/project-chimera/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the metrics system.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "metrics"),
		pagination: pagination,
	}
}

func (r *repo) Record(ctx context.Context, cmd RecordCommand) (*Metric, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	q := `
		INSERT INTO agent_metrics (agent_id, metric_type, metric_value, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + returning

	args := []any{cmd.AgentID, cmd.MetricType, *cmd.MetricValue, cmd.metadata()}

	m, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Metric, error) {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM agents WHERE id = $1)`, cmd.AgentID).Scan(&exists); err != nil {
			return Metric{}, fmt.Errorf("check agent: %w", err)
		}
		if !exists {
			return Metric{}, ErrNotFound
		}
		return repository.QueryOne(ctx, tx, q, args, scanMetric)
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("metric recorded", "agent_id", m.AgentID, "type", m.MetricType, "value", m.MetricValue)
	return &m, nil
}

func (r *repo) RecordExecution(ctx context.Context, agentID uuid.UUID, seconds float64, success bool) error {
	metadata, err := json.Marshal(map[string]any{"success": success})
	if err != nil {
		return err
	}

	_, err = r.Record(ctx, RecordCommand{
		AgentID:     agentID,
		MetricType:  ExecutionTime,
		MetricValue: &seconds,
		Metadata:    metadata,
	})
	return err
}

func (r *repo) ListByAgent(ctx context.Context, agentID uuid.UUID, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Metric], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		OrderBy("", true).
		WhereEquals("AgentID", agentID)

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count metrics: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	metrics, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanMetric)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}

	result := pagination.NewPageResult(metrics, total, page.Page, page.PageSize)
	return &result, nil
}

// A NULL $1 disables the user scope in every analytics query.
const (
	scopedAgents   = `($1::uuid IS NULL OR a.owner_id = $1)`
	scopedTasks    = `($1::uuid IS NULL OR t.user_id = $1)`
	scopedSessions = `($1::uuid IS NULL OR s.user_id = $1)`

	taskDuration = `EXTRACT(EPOCH FROM (t.completed_at - t.created_at))`
)

func (r *repo) Overview(ctx context.Context, scope Scope) (*Overview, error) {
	q := `
		SELECT
			(SELECT COUNT(*) FROM agents a WHERE ` + scopedAgents + `),
			(SELECT COUNT(*) FROM agents a WHERE ` + scopedAgents + ` AND a.is_active),
			(SELECT COUNT(*) FROM chat_messages m
				JOIN chat_sessions s ON s.id = m.session_id
				WHERE ` + scopedSessions + `),
			(SELECT COALESCE(AVG(` + taskDuration + `), 0)::float8 FROM tasks t
				WHERE ` + scopedTasks + ` AND t.status = 'completed' AND t.completed_at IS NOT NULL)`

	o := Overview{TasksByStatus: make(map[string]int)}
	if err := r.db.QueryRowContext(ctx, q, scope.arg()).Scan(
		&o.TotalAgents, &o.ActiveAgents, &o.TotalChatMessages, &o.AverageTaskDuration,
	); err != nil {
		return nil, fmt.Errorf("query overview: %w", err)
	}

	type statusCount struct {
		status string
		count  int
	}

	counts, err := repository.QueryMany(ctx, r.db,
		`SELECT t.status, COUNT(*) FROM tasks t WHERE `+scopedTasks+` GROUP BY t.status`,
		[]any{scope.arg()},
		func(s repository.Scanner) (statusCount, error) {
			var c statusCount
			err := s.Scan(&c.status, &c.count)
			return c, err
		},
	)
	if err != nil {
		return nil, fmt.Errorf("query task status counts: %w", err)
	}

	for _, c := range counts {
		o.TasksByStatus[c.status] = c.count
		o.TotalTasks += c.count
		switch c.status {
		case "completed":
			o.CompletedTasks += c.count
		case "failed":
			o.FailedTasks += c.count
		case "pending", "in_progress":
			o.PendingTasks += c.count
		}
	}
	o.SuccessRate = SuccessRate(o.CompletedTasks, o.TotalTasks)

	return &o, nil
}

func (r *repo) AgentPerformance(ctx context.Context, scope Scope) ([]AgentPerformance, error) {
	q := `
		SELECT a.id, a.name,
			COUNT(t.id),
			COUNT(t.id) FILTER (WHERE t.status = 'completed'),
			COUNT(t.id) FILTER (WHERE t.status = 'failed'),
			COALESCE(AVG(` + taskDuration + `) FILTER (WHERE t.status = 'completed' AND t.completed_at IS NOT NULL), 0)::float8,
			MAX(t.updated_at)
		FROM agents a
		LEFT JOIN tasks t ON t.agent_id = a.id AND ` + scopedTasks + `
		WHERE ` + scopedAgents + `
		GROUP BY a.id, a.name
		ORDER BY a.name ASC`

	rows, err := repository.QueryMany(ctx, r.db, q, []any{scope.arg()}, func(s repository.Scanner) (AgentPerformance, error) {
		var p AgentPerformance
		var last sql.NullTime
		err := s.Scan(&p.AgentID, &p.AgentName, &p.TotalTasks, &p.CompletedTasks, &p.FailedTasks, &p.AverageDuration, &last)
		if last.Valid {
			p.LastActivity = &last.Time
		}
		p.SuccessRate = SuccessRate(p.CompletedTasks, p.TotalTasks)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("query agent performance: %w", err)
	}
	return rows, nil
}

func (r *repo) TaskAnalytics(ctx context.Context, scope Scope) ([]TaskTypeSummary, error) {
	q := `
		SELECT t.task_type,
			COUNT(*),
			COUNT(*) FILTER (WHERE t.status = 'completed'),
			COUNT(*) FILTER (WHERE t.status = 'failed'),
			COALESCE(AVG(` + taskDuration + `) FILTER (WHERE t.status = 'completed' AND t.completed_at IS NOT NULL), 0)::float8
		FROM tasks t
		WHERE ` + scopedTasks + `
		GROUP BY t.task_type
		ORDER BY t.task_type ASC`

	rows, err := repository.QueryMany(ctx, r.db, q, []any{scope.arg()}, func(s repository.Scanner) (TaskTypeSummary, error) {
		var ts TaskTypeSummary
		err := s.Scan(&ts.TaskType, &ts.TotalTasks, &ts.CompletedTasks, &ts.FailedTasks, &ts.AverageDuration)
		ts.SuccessRate = SuccessRate(ts.CompletedTasks, ts.TotalTasks)
		return ts, err
	})
	if err != nil {
		return nil, fmt.Errorf("query task analytics: %w", err)
	}
	return rows, nil
}

func (r *repo) DailyUsage(ctx context.Context, scope Scope, days int) ([]DailyUsage, error) {
	if days < 1 || days > maxDays {
		return nil, fmt.Errorf("%w: days must be 1 to %d", ErrInvalidInput, maxDays)
	}

	q := `
		WITH days AS (
			SELECT generate_series(
				date_trunc('day', NOW() AT TIME ZONE 'UTC') - ($2::int - 1) * INTERVAL '1 day',
				date_trunc('day', NOW() AT TIME ZONE 'UTC'),
				INTERVAL '1 day'
			) AS day
		)
		SELECT to_char(d.day, 'YYYY-MM-DD'),
			(SELECT COUNT(*) FROM tasks t
				WHERE ` + scopedTasks + ` AND t.created_at AT TIME ZONE 'UTC' >= d.day
					AND t.created_at AT TIME ZONE 'UTC' < d.day + INTERVAL '1 day'),
			(SELECT COUNT(*) FROM tasks t
				WHERE ` + scopedTasks + ` AND t.status = 'completed'
					AND t.created_at AT TIME ZONE 'UTC' >= d.day
					AND t.created_at AT TIME ZONE 'UTC' < d.day + INTERVAL '1 day'),
			(SELECT COUNT(*) FROM chat_messages m
				JOIN chat_sessions s ON s.id = m.session_id
				WHERE ` + scopedSessions + `
					AND m.created_at AT TIME ZONE 'UTC' >= d.day
					AND m.created_at AT TIME ZONE 'UTC' < d.day + INTERVAL '1 day'),
			(SELECT COUNT(DISTINCT t.agent_id) FROM tasks t
				WHERE ` + scopedTasks + ` AND t.agent_id IS NOT NULL
					AND t.created_at AT TIME ZONE 'UTC' >= d.day
					AND t.created_at AT TIME ZONE 'UTC' < d.day + INTERVAL '1 day')
		FROM days d
		ORDER BY d.day ASC`

	rows, err := repository.QueryMany(ctx, r.db, q, []any{scope.arg(), days}, func(s repository.Scanner) (DailyUsage, error) {
		var u DailyUsage
		err := s.Scan(&u.Date, &u.TotalTasks, &u.CompletedTasks, &u.TotalMessages, &u.ActiveAgents)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("query daily usage: %w", err)
	}
	return rows, nil
}

// BuildExport gathers every analytics view for scope.
func BuildExport(ctx context.Context, sys System, scope Scope, days int) (*Export, error) {
	overview, err := sys.Overview(ctx, scope)
	if err != nil {
		return nil, err
	}
	performance, err := sys.AgentPerformance(ctx, scope)
	if err != nil {
		return nil, err
	}
	byType, err := sys.TaskAnalytics(ctx, scope)
	if err != nil {
		return nil, err
	}
	usage, err := sys.DailyUsage(ctx, scope, days)
	if err != nil {
		return nil, err
	}

	return &Export{
		Overview:         *overview,
		AgentPerformance: performance,
		TaskAnalytics:    byType,
		UsageMetrics:     usage,
		ExportedAt:       time.Now().UTC(),
	}, nil
}
