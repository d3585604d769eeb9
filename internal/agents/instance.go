package agents

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TAPUZE/project-chimera/internal/providers"
	"github.com/TAPUZE/project-chimera/internal/tasktype"
)

const (
	// MaxMemory bounds an instance's execution log; the oldest entry is evicted first.
	MaxMemory = 100

	// ContextWindow is how many recent memory entries feed each prompt.
	ContextWindow = 10
)

// Completer generates model completions.
type Completer interface {
	Complete(ctx context.Context, req providers.Request) (string, error)
}

// MemoryEntry records one task execution by an instance.
type MemoryEntry struct {
	TaskID    uuid.UUID      `json:"task_id"`
	TaskType  tasktype.Type  `json:"task_type"`
	Title     string         `json:"title"`
	Input     any            `json:"input,omitempty"`
	Output    map[string]any `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
	Success   bool           `json:"success"`
	Timestamp time.Time      `json:"timestamp"`
}

// Result is the outcome of one agent execution. Failures are reported
// through Success and Error rather than returned as errors.
type Result struct {
	Success       bool           `json:"success"`
	OutputData    map[string]any `json:"output_data,omitempty"`
	Error         string         `json:"error,omitempty"`
	ExecutionTime float64        `json:"execution_time"`
	AgentID       uuid.UUID      `json:"agent_id"`
	AgentName     string         `json:"agent_name"`
}

// InstanceStatus is a snapshot of an instance's runtime state.
type InstanceStatus struct {
	AgentID       uuid.UUID  `json:"agent_id"`
	AgentName     string     `json:"agent_name"`
	Running       bool       `json:"running"`
	CurrentTask   *uuid.UUID `json:"current_task"`
	Uptime        int64      `json:"uptime"`
	MemoryEntries int        `json:"memory_entries"`
	CreatedAt     time.Time  `json:"created_at"`
	LastActivity  time.Time  `json:"last_activity"`
}

// Instance is the live runtime of one agent. Executions are serialized
// by exec; mu guards the observable state.
type Instance struct {
	completer Completer

	exec sync.Mutex

	mu           sync.RWMutex
	agent        Agent
	running      bool
	currentTask  *uuid.UUID
	memory       []MemoryEntry
	createdAt    time.Time
	lastActivity time.Time
}

func newInstance(a Agent, completer Completer) *Instance {
	now := time.Now().UTC()
	return &Instance{
		completer:    completer,
		agent:        a,
		running:      true,
		memory:       make([]MemoryEntry, 0),
		createdAt:    now,
		lastActivity: now,
	}
}

// Agent returns the configuration the instance currently executes with.
func (i *Instance) Agent() Agent {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.agent
}

func (i *Instance) configure(a Agent) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.agent = a
}

// Running reports whether the instance accepts executions.
func (i *Instance) Running() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.running
}

// Stop marks the instance as no longer accepting executions. An
// execution already in flight completes.
func (i *Instance) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.running = false
}

// Memory returns a copy of the execution log, oldest first.
func (i *Instance) Memory() []MemoryEntry {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]MemoryEntry, len(i.memory))
	copy(out, i.memory)
	return out
}

// Recent returns the last ContextWindow memory entries.
func (i *Instance) Recent() []MemoryEntry {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.recentLocked()
}

func (i *Instance) recentLocked() []MemoryEntry {
	start := max(len(i.memory)-ContextWindow, 0)
	out := make([]MemoryEntry, len(i.memory)-start)
	copy(out, i.memory[start:])
	return out
}

// Status returns a snapshot of the instance state.
func (i *Instance) Status() InstanceStatus {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var current *uuid.UUID
	if i.currentTask != nil {
		id := *i.currentTask
		current = &id
	}

	return InstanceStatus{
		AgentID:       i.agent.ID,
		AgentName:     i.agent.Name,
		Running:       i.running,
		CurrentTask:   current,
		Uptime:        int64(time.Since(i.createdAt).Seconds()),
		MemoryEntries: len(i.memory),
		CreatedAt:     i.createdAt,
		LastActivity:  i.lastActivity,
	}
}

// Execute runs one task. Concurrent calls are serialized. The only
// returned error is ErrNotRunning; model failures produce a Result with
// Success false and are still recorded in memory.
func (i *Instance) Execute(ctx context.Context, brief tasktype.Brief) (Result, error) {
	i.exec.Lock()
	defer i.exec.Unlock()

	i.mu.Lock()
	if !i.running {
		name := i.agent.Name
		i.mu.Unlock()
		return Result{}, fmt.Errorf("%w: %s", ErrNotRunning, name)
	}
	taskID := brief.ID
	i.currentTask = &taskID
	a := i.agent
	recent := i.recentLocked()
	i.mu.Unlock()

	start := time.Now()

	variant, err := tasktype.Of(brief.Type)
	if err != nil {
		variant, _ = tasktype.Of(tasktype.Custom)
	}

	profile := tasktype.Profile{
		Name:         a.Name,
		AgentType:    a.AgentType,
		SystemPrompt: a.SystemPrompt,
	}

	content, err := i.completer.Complete(ctx, providers.Request{
		Prompt:       variant.AgentPrompt(profile, brief) + recentBlock(recent),
		Model:        a.Model,
		Temperature:  a.Temperature,
		MaxTokens:    a.MaxTokens,
		SystemPrompt: variant.SystemPrompt(profile),
	})

	result := Result{
		ExecutionTime: time.Since(start).Seconds(),
		AgentID:       a.ID,
		AgentName:     a.Name,
	}

	entry := MemoryEntry{
		TaskID:    brief.ID,
		TaskType:  brief.Type,
		Title:     brief.Title,
		Input:     brief.Input,
		Timestamp: time.Now().UTC(),
	}

	if err != nil {
		result.Error = err.Error()
		entry.Error = err.Error()
	} else {
		result.Success = true
		result.OutputData = variant.Envelope(content, profile, brief)
		entry.Success = true
		entry.Output = result.OutputData
	}

	i.mu.Lock()
	i.remember(entry)
	i.currentTask = nil
	i.lastActivity = time.Now().UTC()
	i.mu.Unlock()

	return result, nil
}

func (i *Instance) remember(entry MemoryEntry) {
	i.memory = append(i.memory, entry)
	if over := len(i.memory) - MaxMemory; over > 0 {
		i.memory = append(i.memory[:0:0], i.memory[over:]...)
	}
}

func recentBlock(entries []MemoryEntry) string {
	if len(entries) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n\nRecent tasks:")
	for _, e := range entries {
		outcome := "succeeded"
		if !e.Success {
			outcome = "failed"
		}
		fmt.Fprintf(&sb, "\n- [%s] %s: %s", e.TaskType, e.Title, outcome)
	}
	return sb.String()
}
