package users

import (
	"context"

	"github.com/google/uuid"

	"github.com/TAPUZE/project-chimera/pkg/pagination"
)

// System defines user account management.
type System interface {
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[User], error)
	Find(ctx context.Context, id uuid.UUID) (*User, error)
	Create(ctx context.Context, cmd CreateCommand) (*User, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Authenticate(ctx context.Context, creds Credentials) (*User, error)
}
