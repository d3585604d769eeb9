package chat

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const (
	MessageTypeUser  = "user"
	MessageTypeAgent = "agent"

	maxTitleLength = 200
	titleLayout    = "2006-01-02 15:04"
)

// Session is a persisted conversation.
type Session struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Message is a persisted chat message.
type Message struct {
	ID          uuid.UUID       `json:"id"`
	SessionID   uuid.UUID       `json:"session_id"`
	AgentID     *uuid.UUID      `json:"agent_id,omitempty"`
	Content     string          `json:"content"`
	MessageType string          `json:"message_type"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type CreateSessionCommand struct {
	Title  string     `json:"title"`
	UserID *uuid.UUID `json:"user_id,omitempty"`
}

type UpdateSessionCommand struct {
	Title    *string `json:"title,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

type AddMessageCommand struct {
	AgentID     *uuid.UUID      `json:"agent_id,omitempty"`
	Content     string          `json:"content"`
	MessageType string          `json:"message_type"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// Export is a session with its messages in order.
type Export struct {
	Session    Session   `json:"session"`
	Messages   []Message `json:"messages"`
	ExportedAt time.Time `json:"exported_at"`
}

// DefaultTitle names a session created at t.
func DefaultTitle(t time.Time) string {
	return "Chat " + t.UTC().Format(titleLayout)
}

func validTitle(title string) error {
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidInput, maxTitleLength)
	}
	return nil
}

func (c *CreateSessionCommand) validate() error {
	c.Title = strings.TrimSpace(c.Title)
	if c.Title == "" {
		c.Title = DefaultTitle(time.Now())
	}
	return validTitle(c.Title)
}

func (c UpdateSessionCommand) apply(s Session) (Session, error) {
	if c.Title != nil {
		title := strings.TrimSpace(*c.Title)
		if err := validTitle(title); err != nil {
			return s, err
		}
		s.Title = title
	}
	if c.IsActive != nil {
		s.IsActive = *c.IsActive
	}
	return s, nil
}

func (c *AddMessageCommand) validate() error {
	if strings.TrimSpace(c.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if c.MessageType == "" {
		c.MessageType = MessageTypeUser
	}
	if c.MessageType != MessageTypeUser && c.MessageType != MessageTypeAgent {
		return fmt.Errorf("%w: message_type must be %q or %q", ErrInvalidInput, MessageTypeUser, MessageTypeAgent)
	}
	if len(c.Metadata) > 0 && string(c.Metadata) != "null" {
		if !gjson.ValidBytes(c.Metadata) || !gjson.ParseBytes(c.Metadata).IsObject() {
			return fmt.Errorf("%w: metadata must be a JSON object", ErrInvalidInput)
		}
	}
	return nil
}

func (c AddMessageCommand) metadata() any {
	if len(c.Metadata) == 0 || string(c.Metadata) == "null" {
		return nil
	}
	return []byte(c.Metadata)
}
