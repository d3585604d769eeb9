package chat_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/TAPUZE/project-chimera/internal/agents"
	"github.com/TAPUZE/project-chimera/internal/chat"
	"github.com/TAPUZE/project-chimera/internal/providers"
)

type fakeGateway struct {
	mu        sync.Mutex
	requests  []providers.Request
	reply     func(providers.Request) (string, error)
	fragments []string
}

func (g *fakeGateway) Complete(_ context.Context, req providers.Request) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if g.reply == nil {
		return "reply", nil
	}
	return g.reply(req)
}

func (g *fakeGateway) Stream(_ context.Context, req providers.Request) (*providers.Stream, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if g.reply != nil {
		if _, err := g.reply(req); err != nil {
			return nil, err
		}
	}
	return providers.StreamOf(g.fragments...), nil
}

func (g *fakeGateway) last() providers.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[len(g.requests)-1]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sessionPtr() *uuid.UUID {
	id := uuid.New()
	return &id
}

func TestConversationPrompt(t *testing.T) {
	history := []chat.Turn{
		{Role: chat.RoleUser, Content: "hi"},
		{Role: chat.RoleAssistant, Content: "hello"},
	}

	got := chat.ConversationPrompt(history, "how are you?")
	want := "Human: hi\nAssistant: hello\nHuman: how are you?\nAssistant:"
	if got != want {
		t.Errorf("ConversationPrompt() = %q, want %q", got, want)
	}

	if got := chat.ConversationPrompt(nil, "first"); got != "Human: first\nAssistant:" {
		t.Errorf("empty history prompt = %q", got)
	}
}

func TestSystemPrompt(t *testing.T) {
	if got := chat.SystemPrompt(nil); !strings.Contains(got, "helpful AI assistant") {
		t.Errorf("default prompt = %q", got)
	}

	tests := []struct {
		name  string
		agent agents.Agent
		want  []string
	}{
		{
			name: "object capabilities",
			agent: agents.Agent{
				Name:         "Ada",
				AgentType:    "analyst",
				Description:  "Reads numbers",
				SystemPrompt: "Be terse.",
				Capabilities: json.RawMessage(`{"forecasting":true,"analysis":true,"web":false}`),
			},
			want: []string{
				"You are Ada, a analyst agent in Project Chimera.",
				"Agent Description: Reads numbers",
				"Your capabilities include: analysis, forecasting",
				"Additional Instructions: Be terse.",
				"data-driven recommendations",
			},
		},
		{
			name: "array capabilities",
			agent: agents.Agent{
				Name:         "Rex",
				AgentType:    "researcher",
				Capabilities: json.RawMessage(`["summarize","search"]`),
			},
			want: []string{
				"Agent Description: No description provided",
				"Your capabilities include: search, summarize",
				"well-researched",
			},
		},
		{
			name:  "no capabilities",
			agent: agents.Agent{Name: "Pat", AgentType: "coordinator", Capabilities: json.RawMessage(`{}`)},
			want:  []string{"Your capabilities include: General assistance"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chat.SystemPrompt(&tt.agent)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("prompt missing %q:\n%s", want, got)
				}
			}
		})
	}
}

func TestDefaultTitle(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 59, 0, time.UTC)
	if got := chat.DefaultTitle(at); got != "Chat 2024-03-09 14:05" {
		t.Errorf("DefaultTitle() = %q", got)
	}
}

func TestManager_GenerateResponse(t *testing.T) {
	gw := &fakeGateway{reply: func(req providers.Request) (string, error) {
		return "answer", nil
	}}
	m := chat.NewManager(gw, discardLogger())
	session := sessionPtr()

	resp, err := m.GenerateResponse(context.Background(), chat.Request{Message: "first", SessionID: session})
	if err != nil {
		t.Fatalf("GenerateResponse: %v", err)
	}
	if resp.Content != "answer" {
		t.Errorf("content = %q", resp.Content)
	}

	want := chat.ResponseMetadata{Model: "gpt-4", Temperature: 0.7, MaxTokens: 1000, ContextLength: 2}
	if resp.Metadata != want {
		t.Errorf("metadata = %+v, want %+v", resp.Metadata, want)
	}

	req := gw.last()
	if req.Prompt != "Human: first\nAssistant:" {
		t.Errorf("first prompt = %q", req.Prompt)
	}
	if !strings.Contains(req.SystemPrompt, "helpful AI assistant") {
		t.Errorf("system prompt = %q", req.SystemPrompt)
	}

	resp, err = m.GenerateResponse(context.Background(), chat.Request{Message: "second", SessionID: session})
	if err != nil {
		t.Fatalf("GenerateResponse: %v", err)
	}
	if resp.Metadata.ContextLength != 4 {
		t.Errorf("context_length = %d, want 4", resp.Metadata.ContextLength)
	}
	if got := gw.last().Prompt; got != "Human: first\nAssistant: answer\nHuman: second\nAssistant:" {
		t.Errorf("second prompt = %q", got)
	}
}

func TestManager_AgentSettings(t *testing.T) {
	gw := &fakeGateway{}
	m := chat.NewManager(gw, discardLogger())

	agent := &agents.Agent{ID: uuid.New(), Name: "Cleo", AgentType: "creative", Model: "claude-3-haiku"}
	temp := 0.2
	tokens := 300

	resp, err := m.GenerateResponse(context.Background(), chat.Request{
		Message:     "write",
		Agent:       agent,
		SessionID:   sessionPtr(),
		Temperature: &temp,
		MaxTokens:   &tokens,
	})
	if err != nil {
		t.Fatalf("GenerateResponse: %v", err)
	}

	req := gw.last()
	if req.Model != "claude-3-haiku" || req.Temperature != 0.2 || req.MaxTokens != 300 {
		t.Errorf("request = %+v", req)
	}
	if resp.Metadata.Model != "claude-3-haiku" {
		t.Errorf("metadata model = %q", resp.Metadata.Model)
	}
	if !strings.Contains(req.SystemPrompt, "You are Cleo") {
		t.Errorf("system prompt = %q", req.SystemPrompt)
	}
}

func TestManager_HistoryWindow(t *testing.T) {
	gw := &fakeGateway{}
	m := chat.NewManager(gw, discardLogger())
	session := sessionPtr()

	for i := range 6 {
		if _, err := m.GenerateResponse(context.Background(), chat.Request{Message: fmt.Sprintf("message-%d", i), SessionID: session}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := m.GenerateResponse(context.Background(), chat.Request{Message: "latest", SessionID: session}); err != nil {
		t.Fatal(err)
	}

	prompt := gw.last().Prompt
	if strings.Contains(prompt, "message-0") {
		t.Errorf("prompt includes turn outside the window:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Human: message-1") || !strings.HasSuffix(prompt, "Human: latest\nAssistant:") {
		t.Errorf("prompt = %q", prompt)
	}
	if got := strings.Count(prompt, "\n"); got != 11 {
		t.Errorf("prompt lines = %d, want 12", got+1)
	}
}

func TestManager_GatewayErrorKeepsUserMessage(t *testing.T) {
	gw := &fakeGateway{reply: func(providers.Request) (string, error) {
		return "", providers.ErrProviderUnavailable
	}}
	m := chat.NewManager(gw, discardLogger())
	session := sessionPtr()

	_, err := m.GenerateResponse(context.Background(), chat.Request{Message: "hello", SessionID: session})
	if !errors.Is(err, providers.ErrProviderUnavailable) {
		t.Fatalf("err = %v", err)
	}

	snap, ok := m.Context(*session)
	if !ok {
		t.Fatal("context not kept")
	}
	if snap.MessageCount != 1 || snap.Messages[0].Role != chat.RoleUser {
		t.Errorf("context = %+v", snap.Messages)
	}
}

func TestManager_NoSessionNotRemembered(t *testing.T) {
	m := chat.NewManager(&fakeGateway{}, discardLogger())

	if _, err := m.GenerateResponse(context.Background(), chat.Request{Message: "hi"}); err != nil {
		t.Fatal(err)
	}
	if ids := m.ActiveSessions(); len(ids) != 0 {
		t.Errorf("ActiveSessions() = %v, want none", ids)
	}
}

func TestManager_StreamResponse(t *testing.T) {
	gw := &fakeGateway{fragments: []string{"Hel", "lo"}}
	m := chat.NewManager(gw, discardLogger())
	session := sessionPtr()

	var got []string
	resp, err := m.StreamResponse(context.Background(), chat.Request{Message: "hi", SessionID: session}, func(f string) error {
		got = append(got, f)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamResponse: %v", err)
	}
	if strings.Join(got, "|") != "Hel|lo" {
		t.Errorf("fragments = %v", got)
	}
	if resp.Content != "Hello" || resp.Metadata.ContextLength != 2 {
		t.Errorf("response = %+v", resp)
	}

	snap, _ := m.Context(*session)
	if snap.Messages[1].Content != "Hello" || snap.Messages[1].Role != chat.RoleAssistant {
		t.Errorf("assistant turn = %+v", snap.Messages[1])
	}
}

func TestManager_StreamAbortedNotRecorded(t *testing.T) {
	gw := &fakeGateway{fragments: []string{"a", "b"}}
	m := chat.NewManager(gw, discardLogger())
	session := sessionPtr()
	stop := errors.New("client gone")

	_, err := m.StreamResponse(context.Background(), chat.Request{Message: "hi", SessionID: session}, func(string) error {
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("err = %v, want %v", err, stop)
	}

	if snap, _ := m.Context(*session); snap.MessageCount != 1 {
		t.Errorf("message count = %d, want 1", snap.MessageCount)
	}
}

func TestManager_Summary(t *testing.T) {
	gw := &fakeGateway{reply: func(req providers.Request) (string, error) {
		if req.Model == "gpt-4" && req.MaxTokens == 200 {
			return "a short chat", nil
		}
		return "answer", nil
	}}
	m := chat.NewManager(gw, discardLogger())
	session := sessionPtr()

	got, err := m.Summary(context.Background(), *session)
	if err != nil || got != "No active conversation found." {
		t.Errorf("Summary(unknown) = %q, %v", got, err)
	}

	if _, err := m.GenerateResponse(context.Background(), chat.Request{Message: "hi", SessionID: session}); err != nil {
		t.Fatal(err)
	}

	got, err = m.Summary(context.Background(), *session)
	if err != nil || got != "a short chat" {
		t.Fatalf("Summary() = %q, %v", got, err)
	}

	req := gw.last()
	if req.Temperature != 0.3 || !strings.Contains(req.Prompt, "user: hi\nassistant: answer") {
		t.Errorf("summary request = %+v", req)
	}
}

func TestManager_SuggestedReplies(t *testing.T) {
	gw := &fakeGateway{reply: func(req providers.Request) (string, error) {
		if req.Model == "gpt-3.5-turbo" {
			return "\n1. Tell me more\n\n2. Why?\n3. Show an example\n4. Anything else", nil
		}
		return "answer", nil
	}}
	m := chat.NewManager(gw, discardLogger())
	session := sessionPtr()

	got, err := m.SuggestedReplies(context.Background(), *session)
	if err != nil || len(got) != 0 {
		t.Errorf("SuggestedReplies(unknown) = %v, %v", got, err)
	}

	if _, err := m.GenerateResponse(context.Background(), chat.Request{Message: "hi", SessionID: session}); err != nil {
		t.Fatal(err)
	}

	got, err = m.SuggestedReplies(context.Background(), *session)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"1. Tell me more", "2. Why?", "3. Show an example"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("SuggestedReplies() = %v, want %v", got, want)
	}
	if req := gw.last(); req.Temperature != 0.5 || req.MaxTokens != 150 {
		t.Errorf("suggestion request = %+v", req)
	}
}

func TestManager_ClearSession(t *testing.T) {
	m := chat.NewManager(&fakeGateway{}, discardLogger())
	a, b := sessionPtr(), sessionPtr()

	for _, id := range []*uuid.UUID{a, b} {
		if _, err := m.GenerateResponse(context.Background(), chat.Request{Message: "hi", SessionID: id}); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(m.ActiveSessions()); n != 2 {
		t.Fatalf("active = %d, want 2", n)
	}

	if !m.ClearSession(*a) {
		t.Error("ClearSession(a) = false")
	}
	if m.ClearSession(*a) {
		t.Error("second ClearSession(a) = true")
	}
	if ids := m.ActiveSessions(); len(ids) != 1 || ids[0] != *b {
		t.Errorf("ActiveSessions() = %v, want [%s]", ids, *b)
	}
	if _, ok := m.Context(*a); ok {
		t.Error("cleared context still present")
	}
}

func TestManager_ConcurrentSessions(t *testing.T) {
	m := chat.NewManager(&fakeGateway{}, discardLogger())
	session := sessionPtr()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Go(func() {
			m.GenerateResponse(context.Background(), chat.Request{Message: fmt.Sprint(i), SessionID: session})
		})
	}
	wg.Wait()

	if snap, _ := m.Context(*session); snap.MessageCount != 40 {
		t.Errorf("message count = %d, want 40", snap.MessageCount)
	}
}
