package chat

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
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the chat persistence system.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "chat-store"),
		pagination: pagination,
	}
}

func (r *repo) ListSessions(ctx context.Context, page pagination.PageRequest, filters SessionFilters) (*pagination.PageResult[Session], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(sessionProjection, sessionSort).
		OrderBy("", true).
		WhereSearch(page.Search, "Title")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count chat sessions: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	sessions, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanSession)
	if err != nil {
		return nil, fmt.Errorf("query chat sessions: %w", err)
	}

	result := pagination.NewPageResult(sessions, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) FindSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	s, err := findSession(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repo) CreateSession(ctx context.Context, cmd CreateSessionCommand) (*Session, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	q := `
		INSERT INTO chat_sessions (title, user_id)
		VALUES ($1, $2)
		RETURNING ` + sessionReturning

	s, err := repository.QueryOne(ctx, r.db, q, []any{cmd.Title, cmd.UserID}, scanSession)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrInvalidInput)
	}

	r.logger.Info("chat session created", "id", s.ID, "title", s.Title)
	return &s, nil
}

func (r *repo) UpdateSession(ctx context.Context, id uuid.UUID, cmd UpdateSessionCommand) (*Session, error) {
	q := `
		UPDATE chat_sessions
		SET title = $1, is_active = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING ` + sessionReturning

	s, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Session, error) {
		current, err := findSession(ctx, tx, id)
		if err != nil {
			return Session{}, err
		}

		next, err := cmd.apply(current)
		if err != nil {
			return Session{}, err
		}

		return repository.QueryOne(ctx, tx, q, []any{next.Title, next.IsActive, id}, scanSession)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrInvalidInput)
	}
	return &s, nil
}

// DeleteSession removes the session; its messages go with it.
func (r *repo) DeleteSession(ctx context.Context, id uuid.UUID) error {
	err := repository.ExecExpectOne(ctx, r.db, `DELETE FROM chat_sessions WHERE id = $1`, id)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrInvalidInput)
	}

	r.logger.Info("chat session deleted", "id", id)
	return nil
}

func (r *repo) Messages(ctx context.Context, sessionID uuid.UUID) ([]Message, error) {
	if _, err := findSession(ctx, r.db, sessionID); err != nil {
		return nil, err
	}
	return listMessages(ctx, r.db, sessionID)
}

// AddMessage stores a message and touches the session's updated_at.
func (r *repo) AddMessage(ctx context.Context, sessionID uuid.UUID, cmd AddMessageCommand) (*Message, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	q := `
		INSERT INTO chat_messages (session_id, agent_id, content, message_type, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + messageColumns

	args := []any{sessionID, cmd.AgentID, cmd.Content, cmd.MessageType, cmd.metadata()}

	m, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Message, error) {
		if err := repository.ExecExpectOne(ctx, tx, `UPDATE chat_sessions SET updated_at = NOW() WHERE id = $1`, sessionID); err != nil {
			return Message{}, err
		}
		return repository.QueryOne(ctx, tx, q, args, scanMessage)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrInvalidInput)
	}
	return &m, nil
}

func (r *repo) Export(ctx context.Context, sessionID uuid.UUID) (*Export, error) {
	s, err := findSession(ctx, r.db, sessionID)
	if err != nil {
		return nil, err
	}

	messages, err := listMessages(ctx, r.db, sessionID)
	if err != nil {
		return nil, err
	}

	return &Export{
		Session:    s,
		Messages:   messages,
		ExportedAt: time.Now().UTC(),
	}, nil
}

func findSession(ctx context.Context, q repository.Querier, id uuid.UUID) (Session, error) {
	qb := query.NewBuilder(sessionProjection, sessionSort)
	single, args := qb.BuildSingle("ID", id)

	s, err := repository.QueryOne(ctx, q, single, args, scanSession)
	if err != nil {
		return Session{}, repository.MapError(err, ErrNotFound, ErrInvalidInput)
	}
	return s, nil
}

func listMessages(ctx context.Context, q repository.Querier, sessionID uuid.UUID) ([]Message, error) {
	messages, err := repository.QueryMany(ctx, q,
		`SELECT `+messageColumns+` FROM chat_messages WHERE session_id = $1 ORDER BY created_at ASC, id ASC`,
		[]any{sessionID},
		scanMessage,
	)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	return messages, nil
}
