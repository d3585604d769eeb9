package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/TAPUZE/project-chimera/pkg/pagination"
	"github.com/TAPUZE/project-chimera/pkg/query"
	"github.com/TAPUZE/project-chimera/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
	cost       int
}

func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "users"),
		pagination: pagination,
		cost:       bcrypt.DefaultCost,
	}
}

func (r *repo) List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[User], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Email", "Username")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	users, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanUser)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}

	result := pagination.NewPageResult(users, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := find(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*User, error) {
	cmd.normalize()
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), r.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	q := `
		INSERT INTO users (email, username, hashed_password, full_name)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + returning

	u, err := repository.QueryOne(ctx, r.db, q, []any{cmd.Email, cmd.Username, string(hash), cmd.FullName}, scanUser)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("user created", "id", u.ID, "username", u.Username)
	return &u, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*User, error) {
	q := `
		UPDATE users
		SET full_name = $1, is_active = $2, is_admin = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING ` + returning

	u, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (User, error) {
		current, err := find(ctx, tx, id)
		if err != nil {
			return User{}, err
		}
		next := cmd.apply(current)
		return repository.QueryOne(ctx, tx, q, []any{next.FullName, next.IsActive, next.IsAdmin, id}, scanUser)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("user updated", "id", u.ID)
	return &u, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	if err := repository.ExecExpectOne(ctx, r.db, "DELETE FROM users WHERE id = $1", id); err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("user deleted", "id", id)
	return nil
}

// Authenticate verifies creds against an active account. Unknown emails,
// wrong passwords and inactive accounts are indistinguishable.
func (r *repo) Authenticate(ctx context.Context, creds Credentials) (*User, error) {
	q := `SELECT hashed_password, ` + returning + ` FROM users WHERE email = $1`

	var hash string
	u, err := repository.QueryOne(ctx, r.db, q, []any{strings.ToLower(strings.TrimSpace(creds.Email))},
		func(s repository.Scanner) (User, error) {
			var u User
			var fullName sql.NullString
			err := s.Scan(&hash, &u.ID, &u.Email, &u.Username, &fullName, &u.IsActive, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
			u.FullName = fullName.String
			return u, err
		})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(creds.Password)); err != nil {
		r.logger.Warn("authentication failed", "id", u.ID)
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		r.logger.Warn("authentication refused for inactive user", "id", u.ID)
		return nil, ErrInvalidCredentials
	}

	return &u, nil
}

func find(ctx context.Context, q repository.Querier, id uuid.UUID) (User, error) {
	stmt, args := query.NewBuilder(projection, defaultSort).BuildSingle("ID", id)

	u, err := repository.QueryOne(ctx, q, stmt, args, scanUser)
	if err != nil {
		return User{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return u, nil
}
