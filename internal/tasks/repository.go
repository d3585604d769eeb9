package tasks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/TAPUZE/project-chimera/pkg/pagination"
	"github.com/TAPUZE/project-chimera/pkg/query"
	"github.com/TAPUZE/project-chimera/pkg/repository"
)

// Status transitions. Only completed sets completed_at.
const (
	markInProgressSQL = `
		UPDATE tasks
		SET status = 'in_progress', progress = 0, completed_at = NULL, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + returning

	completeSQL = `
		UPDATE tasks
		SET status = 'completed', output_data = $1, progress = 100, completed_at = NOW(), updated_at = NOW()
		WHERE id = $2
		RETURNING ` + returning

	failSQL = `
		UPDATE tasks
		SET status = 'failed', output_data = $1, completed_at = NULL, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + returning

	cancelSQL = `
		UPDATE tasks
		SET status = 'cancelled', completed_at = NULL, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + returning
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the task repository.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "tasks"),
		pagination: pagination,
	}
}

func (r *repo) List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Task], error) {
	page.Normalize(r.pagination)

	qb := listQuery(page, filters)

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	tasks, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanTask)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}

	result := pagination.NewPageResult(tasks, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Task, error) {
	t, err := find(ctx, r.db, id, false)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repo) Subtasks(ctx context.Context, id uuid.UUID) ([]Task, error) {
	if _, err := find(ctx, r.db, id, false); err != nil {
		return nil, err
	}

	q := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = $1 ORDER BY %s ASC",
		projection.Columns(),
		projection.Table(),
		projection.Column("ParentTaskID"),
		projection.Column("CreatedAt"),
	)

	subtasks, err := repository.QueryMany(ctx, r.db, q, []any{id}, scanTask)
	if err != nil {
		return nil, fmt.Errorf("query subtasks: %w", err)
	}
	return subtasks, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Task, error) {
	taskType, priority, err := cmd.validate()
	if err != nil {
		return nil, err
	}

	q := `
		INSERT INTO tasks (title, description, task_type, priority, input_data, agent_id, user_id, parent_task_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + returning

	t, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Task, error) {
		if cmd.AgentID != nil {
			if err := requireActiveAgent(ctx, tx, *cmd.AgentID); err != nil {
				return Task{}, err
			}
		}
		if cmd.ParentTaskID != nil {
			if _, err := find(ctx, tx, *cmd.ParentTaskID, false); err != nil {
				return Task{}, fmt.Errorf("parent task: %w", err)
			}
		}

		args := []any{
			cmd.Title, cmd.Description, taskType, priority, nullJSON(cmd.InputData),
			cmd.AgentID, cmd.UserID, cmd.ParentTaskID,
		}
		return repository.QueryOne(ctx, tx, q, args, scanTask)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("task created", "id", t.ID, "title", t.Title, "type", t.TaskType)
	return &t, nil
}

// CreateSubtask persists a child of parent. The child inherits the
// parent's priority, agent and user.
func (r *repo) CreateSubtask(ctx context.Context, parent Task, sub Subtask) (*Task, error) {
	q := `
		INSERT INTO tasks (title, description, task_type, priority, agent_id, user_id, parent_task_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + returning

	args := []any{sub.Title, sub.Description, sub.TaskType, parent.Priority, parent.AgentID, parent.UserID, parent.ID}

	t, err := repository.QueryOne(ctx, r.db, q, args, scanTask)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Debug("subtask created", "id", t.ID, "parent_id", parent.ID)
	return &t, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Task, error) {
	q := `
		UPDATE tasks
		SET title = $1, description = $2, priority = $3, agent_id = $4, input_data = $5,
			progress = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING ` + returning

	t, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Task, error) {
		current, err := find(ctx, tx, id, true)
		if err != nil {
			return Task{}, err
		}

		next, err := cmd.apply(current)
		if err != nil {
			return Task{}, err
		}

		if cmd.AgentID != nil {
			if err := requireActiveAgent(ctx, tx, *cmd.AgentID); err != nil {
				return Task{}, err
			}
		}

		args := []any{
			next.Title, next.Description, next.Priority, next.AgentID, nullJSON(next.InputData),
			next.Progress, id,
		}
		return repository.QueryOne(ctx, tx, q, args, scanTask)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("task updated", "id", t.ID)
	return &t, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		err := repository.ExecExpectOne(ctx, tx, "DELETE FROM tasks WHERE id = $1", id)
		return struct{}{}, err
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("task deleted", "id", id)
	return nil
}

func (r *repo) MarkInProgress(ctx context.Context, id uuid.UUID) (*Task, error) {
	t, err := r.transition(ctx, id, markInProgressSQL, []any{id}, Status.Startable)
	if err != nil {
		return nil, err
	}

	r.logger.Info("task started", "id", id)
	return &t, nil
}

// ApplyResult records the outcome of an execution. It applies only while
// the task is in progress, so a cancellation that landed first wins.
func (r *repo) ApplyResult(ctx context.Context, id uuid.UUID, result Result) (*Task, error) {
	q := failSQL
	var output any = map[string]any{"error": result.Error}
	if result.Success {
		q = completeSQL
		output = result.OutputData
	}

	data, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("marshal output: %w", err)
	}

	t, err := r.transition(ctx, id, q, []any{data, id}, func(s Status) bool {
		return s == StatusInProgress
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("task finished", "id", id, "status", t.Status)
	return &t, nil
}

// Cancel moves a pending or in-progress task to cancelled. Completed and
// failed tasks are rejected with ErrInvalidStatus and left unchanged.
func (r *repo) Cancel(ctx context.Context, id uuid.UUID) (*Task, error) {
	t, err := r.transition(ctx, id, cancelSQL, []any{id}, Status.Cancellable)
	if err != nil {
		return nil, err
	}

	r.logger.Info("task cancelled", "id", id)
	return &t, nil
}

// transition locks the task row, checks allowed against its current
// status and runs stmt.
func (r *repo) transition(ctx context.Context, id uuid.UUID, stmt string, args []any, allowed func(Status) bool) (Task, error) {
	t, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Task, error) {
		current, err := find(ctx, tx, id, true)
		if err != nil {
			return Task{}, err
		}
		if !allowed(current.Status) {
			return Task{}, fmt.Errorf("%w: task is %s", ErrInvalidStatus, current.Status)
		}
		return repository.QueryOne(ctx, tx, stmt, args, scanTask)
	})
	if err != nil {
		return Task{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return t, nil
}

func find(ctx context.Context, q repository.Querier, id uuid.UUID, lock bool) (Task, error) {
	stmt, args := query.NewBuilder(projection, defaultSort).BuildSingle("ID", id)
	if lock {
		stmt += " FOR UPDATE"
	}

	t, err := repository.QueryOne(ctx, q, stmt, args, scanTask)
	if err != nil {
		return Task{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return t, nil
}

func requireActiveAgent(ctx context.Context, q repository.Querier, id uuid.UUID) error {
	var active bool
	err := q.QueryRowContext(ctx, "SELECT is_active FROM agents WHERE id = $1", id).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !active) {
		return fmt.Errorf("%w: agent not found or inactive", ErrNotFound)
	}
	return err
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return []byte(raw)
}
