package agents

import (
	"context"
	"database/sql"
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
	registry   *Registry
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the agents system. Deleting or deactivating an agent
// removes its live instance from registry.
func New(db *sql.DB, registry *Registry, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		registry:   registry,
		logger:     logger.With("system", "agents"),
		pagination: pagination,
	}
}

func (r *repo) Registry() *Registry {
	return r.registry
}

func (r *repo) List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Agent], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name", "Description")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count agents: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	agents, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanAgent)
	if err != nil {
		return nil, fmt.Errorf("query agents: %w", err)
	}

	result := pagination.NewPageResult(agents, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Agent, error) {
	a, err := find(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Agent, error) {
	cmd.normalize()
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	q := `
		INSERT INTO agents (name, description, agent_type, model, temperature, max_tokens,
			system_prompt, capabilities, config, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + returning

	args := []any{
		cmd.Name, cmd.Description, cmd.AgentType, cmd.Model, *cmd.Temperature, *cmd.MaxTokens,
		cmd.SystemPrompt, []byte(cmd.Capabilities), []byte(cmd.Config), cmd.OwnerID,
	}

	a, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Agent, error) {
		return repository.QueryOne(ctx, tx, q, args, scanAgent)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("agent created", "id", a.ID, "name", a.Name, "type", a.AgentType)
	return &a, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Agent, error) {
	q := `
		UPDATE agents
		SET name = $1, description = $2, model = $3, temperature = $4, max_tokens = $5,
			system_prompt = $6, capabilities = $7, config = $8, is_active = $9, updated_at = NOW()
		WHERE id = $10
		RETURNING ` + returning

	a, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Agent, error) {
		current, err := find(ctx, tx, id)
		if err != nil {
			return Agent{}, err
		}

		next, err := cmd.apply(current)
		if err != nil {
			return Agent{}, err
		}

		args := []any{
			next.Name, next.Description, next.Model, next.Temperature, next.MaxTokens,
			next.SystemPrompt, []byte(next.Capabilities), []byte(next.Config), next.IsActive, id,
		}
		return repository.QueryOne(ctx, tx, q, args, scanAgent)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.sync(a)
	r.logger.Info("agent updated", "id", a.ID, "name", a.Name)
	return &a, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		err := repository.ExecExpectOne(ctx, tx, "DELETE FROM agents WHERE id = $1", id)
		return struct{}{}, err
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.registry.Remove(id)
	r.logger.Info("agent deleted", "id", id)
	return nil
}

func (r *repo) SetActive(ctx context.Context, id uuid.UUID, active bool) (*Agent, error) {
	q := `
		UPDATE agents
		SET is_active = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + returning

	a, err := repository.QueryOne(ctx, r.db, q, []any{active, id}, scanAgent)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.sync(a)
	r.logger.Info("agent activation changed", "id", a.ID, "active", active)
	return &a, nil
}

func (r *repo) Status(ctx context.Context, id uuid.UUID) (*Status, error) {
	a, err := find(ctx, r.db, id)
	if err != nil {
		return nil, err
	}

	status := &Status{
		AgentID:      a.ID,
		Status:       "inactive",
		LastActivity: a.UpdatedAt,
	}
	if a.IsActive {
		status.Status = "active"
	}

	if inst, ok := r.registry.Instance(id); ok {
		s := inst.Status()
		status.Running = s.Running
		status.CurrentTask = s.CurrentTask
		status.Uptime = s.Uptime
		status.MemoryEntries = s.MemoryEntries
		status.LastActivity = s.LastActivity
	}

	return status, nil
}

// sync keeps a live instance consistent with its record.
func (r *repo) sync(a Agent) {
	if !a.IsActive {
		r.registry.Remove(a.ID)
		return
	}
	if inst, ok := r.registry.Instance(a.ID); ok {
		inst.configure(a)
	}
}

func find(ctx context.Context, q repository.Querier, id uuid.UUID) (Agent, error) {
	stmt, args := query.NewBuilder(projection, defaultSort).BuildSingle("ID", id)

	a, err := repository.QueryOne(ctx, q, stmt, args, scanAgent)
	if err != nil {
		return Agent{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return a, nil
}

// Status combines an agent record with its runtime state.
type Status struct {
	AgentID       uuid.UUID  `json:"agent_id"`
	Status        string     `json:"status"`
	Running       bool       `json:"running"`
	CurrentTask   *uuid.UUID `json:"current_task"`
	Uptime        int64      `json:"uptime"`
	MemoryEntries int        `json:"memory_entries"`
	LastActivity  time.Time  `json:"last_activity"`
}
