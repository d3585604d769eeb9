package tasks

import (
	"context"

	"github.com/google/uuid"

	"github.com/TAPUZE/project-chimera/pkg/pagination"
)

// System defines task persistence and the status transitions the engine
// relies on.
type System interface {
	Store

	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Task], error)
	Find(ctx context.Context, id uuid.UUID) (*Task, error)
	Subtasks(ctx context.Context, id uuid.UUID) ([]Task, error)
	Create(ctx context.Context, cmd CreateCommand) (*Task, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Cancel(ctx context.Context, id uuid.UUID) (*Task, error)
}

// Store is the persistence the engine writes execution progress through.
type Store interface {
	MarkInProgress(ctx context.Context, id uuid.UUID) (*Task, error)
	ApplyResult(ctx context.Context, id uuid.UUID, result Result) (*Task, error)
	CreateSubtask(ctx context.Context, parent Task, sub Subtask) (*Task, error)
}
