package agents

import (
	"context"

	"github.com/google/uuid"

	"github.com/TAPUZE/project-chimera/pkg/pagination"
)

// System manages persisted agents and their live instances.
type System interface {
	Registry() *Registry

	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Agent], error)
	Find(ctx context.Context, id uuid.UUID) (*Agent, error)
	Create(ctx context.Context, cmd CreateCommand) (*Agent, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Agent, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*Agent, error)
	Status(ctx context.Context, id uuid.UUID) (*Status, error)
}
