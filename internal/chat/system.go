package chat

import (
	"context"

	"github.com/google/uuid"

	"github.com/TAPUZE/project-chimera/pkg/pagination"
)

// System defines persistence for chat sessions and their messages.
type System interface {
	ListSessions(ctx context.Context, page pagination.PageRequest, filters SessionFilters) (*pagination.PageResult[Session], error)
	FindSession(ctx context.Context, id uuid.UUID) (*Session, error)
	CreateSession(ctx context.Context, cmd CreateSessionCommand) (*Session, error)
	UpdateSession(ctx context.Context, id uuid.UUID, cmd UpdateSessionCommand) (*Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error

	Messages(ctx context.Context, sessionID uuid.UUID) ([]Message, error)
	AddMessage(ctx context.Context, sessionID uuid.UUID, cmd AddMessageCommand) (*Message, error)
	Export(ctx context.Context, sessionID uuid.UUID) (*Export, error)
}
