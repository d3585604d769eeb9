// Package chat runs agent-backed conversations: an in-memory context per
// active session that prepares prompts for the model gateway, and the
// persisted sessions and messages behind it.
package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one role-tagged message held in a conversation context.
type Turn struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Context is the working memory of one conversation.
type Context struct {
	mu           sync.Mutex
	sessionID    *uuid.UUID
	agentID      *uuid.UUID
	agentName    string
	turns        []Turn
	createdAt    time.Time
	lastActivity time.Time
}

func newContext(sessionID, agentID *uuid.UUID, agentName string) *Context {
	now := time.Now().UTC()
	return &Context{
		sessionID:    sessionID,
		agentID:      agentID,
		agentName:    agentName,
		createdAt:    now,
		lastActivity: now,
	}
}

// AddMessage appends a turn and returns the new turn count.
func (c *Context) AddMessage(role, content string, metadata map[string]any) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	c.turns = append(c.turns, Turn{
		Role:      role,
		Content:   content,
		Timestamp: now,
		Metadata:  metadata,
	})
	c.lastActivity = now
	return len(c.turns)
}

// Recent returns a copy of the last n turns, oldest first.
func (c *Context) Recent(n int) []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := max(len(c.turns)-n, 0)
	out := make([]Turn, len(c.turns)-start)
	copy(out, c.turns[start:])
	return out
}

func (c *Context) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
	c.lastActivity = time.Now().UTC()
}

// Snapshot is a point-in-time copy of a context.
type Snapshot struct {
	SessionID    *uuid.UUID `json:"session_id"`
	AgentID      *uuid.UUID `json:"agent_id"`
	AgentName    string     `json:"agent_name,omitempty"`
	MessageCount int        `json:"message_count"`
	CreatedAt    time.Time  `json:"created_at"`
	LastActivity time.Time  `json:"last_activity"`
	Messages     []Turn     `json:"messages"`
}

func (c *Context) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	turns := make([]Turn, len(c.turns))
	copy(turns, c.turns)
	return Snapshot{
		SessionID:    c.sessionID,
		AgentID:      c.agentID,
		AgentName:    c.agentName,
		MessageCount: len(turns),
		CreatedAt:    c.createdAt,
		LastActivity: c.lastActivity,
		Messages:     turns,
	}
}
