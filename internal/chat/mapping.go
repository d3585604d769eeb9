package chat

import (
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/TAPUZE/project-chimera/pkg/query"
	"github.com/TAPUZE/project-chimera/pkg/repository"
)

var sessionProjection = query.
	NewProjectionMap("public", "chat_sessions", "s").
	Project("id", "ID").
	Project("title", "Title").
	Project("user_id", "UserID").
	Project("is_active", "IsActive").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

const sessionSort = "UpdatedAt"

const sessionReturning = `id, title, user_id, is_active, created_at, updated_at`

const messageColumns = `id, session_id, agent_id, content, message_type, metadata, created_at`

func scanSession(s repository.Scanner) (Session, error) {
	var sess Session
	var user uuid.NullUUID
	err := s.Scan(&sess.ID, &sess.Title, &user, &sess.IsActive, &sess.CreatedAt, &sess.UpdatedAt)
	if user.Valid {
		sess.UserID = &user.UUID
	}
	return sess, err
}

func scanMessage(s repository.Scanner) (Message, error) {
	var m Message
	var agent uuid.NullUUID
	var metadata []byte
	err := s.Scan(&m.ID, &m.SessionID, &agent, &m.Content, &m.MessageType, &metadata, &m.CreatedAt)
	if agent.Valid {
		m.AgentID = &agent.UUID
	}
	if len(metadata) > 0 {
		m.Metadata = metadata
	}
	return m, err
}

// SessionFilters narrows a session listing.
type SessionFilters struct {
	UserID   *uuid.UUID
	IsActive *bool
}

func SessionFiltersFromQuery(values url.Values) SessionFilters {
	var f SessionFilters
	if v := values.Get("user_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.UserID = &id
		}
	}
	if v := values.Get("is_active"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.IsActive = &b
		}
	}
	return f
}

func (f SessionFilters) Apply(b *query.Builder) *query.Builder {
	if f.UserID != nil {
		b.WhereEquals("UserID", *f.UserID)
	}
	if f.IsActive != nil {
		b.WhereEquals("IsActive", *f.IsActive)
	}
	return b
}
