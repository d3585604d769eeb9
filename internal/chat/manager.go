package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/TAPUZE/project-chimera/internal/agents"
	"github.com/TAPUZE/project-chimera/internal/providers"
)

const (
	DefaultModel       = "gpt-4"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000

	historyWindow = 10

	summaryModel       = "gpt-4"
	summaryTemperature = 0.3
	summaryMaxTokens   = 200

	suggestionModel       = "gpt-3.5-turbo"
	suggestionTemperature = 0.5
	suggestionMaxTokens   = 150
	suggestionWindow      = 3
	suggestionCount       = 3

	noConversation = "No active conversation found."
	noMessages     = "No messages in conversation."
	openingLine    = "Hello! How can I help you today?"
)

// Generator produces model completions.
type Generator interface {
	Complete(ctx context.Context, req providers.Request) (string, error)
	Stream(ctx context.Context, req providers.Request) (*providers.Stream, error)
}

// Request is one user message to answer. Without a SessionID the
// conversation is not remembered.
type Request struct {
	Message     string
	Agent       *agents.Agent
	SessionID   *uuid.UUID
	Temperature *float64
	MaxTokens   *int
}

type ResponseMetadata struct {
	Model         string  `json:"model"`
	Temperature   float64 `json:"temperature"`
	MaxTokens     int     `json:"max_tokens"`
	ContextLength int     `json:"context_length"`
}

func (m ResponseMetadata) asMap() map[string]any {
	return map[string]any{
		"model":          m.Model,
		"temperature":    m.Temperature,
		"max_tokens":     m.MaxTokens,
		"context_length": m.ContextLength,
	}
}

type Response struct {
	Content  string           `json:"content"`
	Metadata ResponseMetadata `json:"metadata"`
}

// Manager keeps one context per active session and answers messages
// through the gateway.
type Manager struct {
	gw     Generator
	logger *slog.Logger

	mu       sync.Mutex
	contexts map[uuid.UUID]*Context
}

func NewManager(gw Generator, logger *slog.Logger) *Manager {
	return &Manager{
		gw:       gw,
		logger:   logger.With("system", "chat"),
		contexts: make(map[uuid.UUID]*Context),
	}
}

func (m *Manager) context(sessionID *uuid.UUID, agent *agents.Agent) *Context {
	var agentID *uuid.UUID
	var agentName string
	if agent != nil {
		id := agent.ID
		agentID = &id
		agentName = agent.Name
	}

	if sessionID == nil {
		return newContext(nil, agentID, agentName)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.contexts[*sessionID]; ok {
		return c
	}
	id := *sessionID
	c := newContext(&id, agentID, agentName)
	m.contexts[id] = c
	return c
}

// prepare records the user message and builds the gateway request from
// the history that preceded it.
func (m *Manager) prepare(req Request) (*Context, providers.Request, ResponseMetadata) {
	c := m.context(req.SessionID, req.Agent)
	history := c.Recent(historyWindow)
	c.AddMessage(RoleUser, req.Message, nil)

	model := DefaultModel
	if req.Agent != nil && req.Agent.Model != "" {
		model = req.Agent.Model
	}
	temperature := DefaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := DefaultMaxTokens
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = *req.MaxTokens
	}

	pr := providers.Request{
		Prompt:       ConversationPrompt(history, req.Message),
		Model:        model,
		Temperature:  temperature,
		MaxTokens:    maxTokens,
		SystemPrompt: SystemPrompt(req.Agent),
	}
	meta := ResponseMetadata{
		Model:       model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	return c, pr, meta
}

// GenerateResponse answers req. On a gateway error only the user message
// stays in the context.
func (m *Manager) GenerateResponse(ctx context.Context, req Request) (*Response, error) {
	c, pr, meta := m.prepare(req)

	content, err := m.gw.Complete(ctx, pr)
	if err != nil {
		return nil, err
	}

	meta.ContextLength = c.AddMessage(RoleAssistant, content, nil)
	return &Response{Content: content, Metadata: meta}, nil
}

// StreamResponse answers req over the gateway stream, passing each
// fragment to onFragment. The assembled reply is recorded only when the
// stream completes.
func (m *Manager) StreamResponse(ctx context.Context, req Request, onFragment func(string) error) (*Response, error) {
	c, pr, meta := m.prepare(req)

	stream, err := m.gw.Stream(ctx, pr)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		fragment, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		sb.WriteString(fragment)
		if err := onFragment(fragment); err != nil {
			return nil, err
		}
	}

	content := sb.String()
	meta.ContextLength = c.AddMessage(RoleAssistant, content, nil)
	return &Response{Content: content, Metadata: meta}, nil
}

func (m *Manager) lookup(sessionID uuid.UUID) (*Context, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contexts[sessionID]
	return c, ok
}

// Summary asks the model to summarize the session's conversation.
func (m *Manager) Summary(ctx context.Context, sessionID uuid.UUID) (string, error) {
	c, ok := m.lookup(sessionID)
	if !ok {
		return noConversation, nil
	}

	turns := c.Snapshot().Messages
	if len(turns) == 0 {
		return noMessages, nil
	}

	return m.gw.Complete(ctx, providers.Request{
		Prompt:      summaryPrompt(turns),
		Model:       summaryModel,
		Temperature: summaryTemperature,
		MaxTokens:   summaryMaxTokens,
	})
}

// SuggestedReplies proposes up to three follow-ups for the session.
func (m *Manager) SuggestedReplies(ctx context.Context, sessionID uuid.UUID) ([]string, error) {
	c, ok := m.lookup(sessionID)
	if !ok {
		return []string{}, nil
	}

	turns := c.Recent(suggestionWindow)
	if len(turns) == 0 {
		return []string{openingLine}, nil
	}

	text, err := m.gw.Complete(ctx, providers.Request{
		Prompt:      suggestionsPrompt(turns),
		Model:       suggestionModel,
		Temperature: suggestionTemperature,
		MaxTokens:   suggestionMaxTokens,
	})
	if err != nil {
		return nil, err
	}
	return parseSuggestions(text, suggestionCount), nil
}

// ClearSession forgets the session's context. Unknown ids are ignored.
func (m *Manager) ClearSession(sessionID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.contexts[sessionID]; !ok {
		return false
	}
	delete(m.contexts, sessionID)
	m.logger.Debug("chat context cleared", "session_id", sessionID)
	return true
}

// ActiveSessions returns the ids of sessions with a live context.
func (m *Manager) ActiveSessions() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(m.contexts))
	for id := range m.contexts {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return strings.Compare(a.String(), b.String())
	})
	return ids
}

func (m *Manager) Context(sessionID uuid.UUID) (Snapshot, bool) {
	c, ok := m.lookup(sessionID)
	if !ok {
		return Snapshot{}, false
	}
	return c.Snapshot(), true
}
