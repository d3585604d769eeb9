// Package tasks persists tasks and executes them: directly against the
// provider gateway, delegated to an agent instance, or decomposed into
// subtasks whose results are aggregated.
package tasks

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/TAPUZE/project-chimera/internal/tasktype"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Startable reports whether an execution may begin from s.
func (s Status) Startable() bool {
	return s == StatusPending || s == StatusInProgress
}

// Cancellable reports whether s may move to cancelled. Completed and
// failed tasks keep their status.
func (s Status) Cancellable() bool {
	return s != StatusCompleted && s != StatusFailed
}

// Priority orders tasks for humans; the engine does not schedule by it.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

const maxTitleLength = 200

// Task is a persisted unit of work. Tasks form a forest through
// ParentTaskID. CompletedAt is set iff Status is completed.
type Task struct {
	ID           uuid.UUID       `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	TaskType     tasktype.Type   `json:"task_type"`
	Priority     Priority        `json:"priority"`
	Status       Status          `json:"status"`
	InputData    json.RawMessage `json:"input_data,omitempty"`
	OutputData   json.RawMessage `json:"output_data,omitempty"`
	Progress     float64         `json:"progress"`
	AgentID      *uuid.UUID      `json:"agent_id,omitempty"`
	UserID       *uuid.UUID      `json:"user_id,omitempty"`
	ParentTaskID *uuid.UUID      `json:"parent_task_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// Brief is the view of the task an agent instance works from.
func (t Task) Brief() tasktype.Brief {
	var input any
	if len(t.InputData) > 0 {
		if err := json.Unmarshal(t.InputData, &input); err != nil {
			input = string(t.InputData)
		}
	}

	return tasktype.Brief{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Type:        t.TaskType,
		Priority:    string(t.Priority),
		Input:       input,
	}
}

// CreateCommand contains the data for creating a task.
type CreateCommand struct {
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	TaskType     string          `json:"task_type"`
	Priority     string          `json:"priority"`
	InputData    json.RawMessage `json:"input_data,omitempty"`
	AgentID      *uuid.UUID      `json:"agent_id,omitempty"`
	UserID       *uuid.UUID      `json:"user_id,omitempty"`
	ParentTaskID *uuid.UUID      `json:"parent_task_id,omitempty"`
}

func (c *CreateCommand) validate() (tasktype.Type, Priority, error) {
	if err := validateTitle(c.Title); err != nil {
		return "", "", err
	}

	t, err := tasktype.Parse(c.TaskType)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	p := Priority(c.Priority)
	if p == "" {
		p = PriorityMedium
	}
	if !p.Valid() {
		return "", "", fmt.Errorf("%w: priority %q must be one of low, medium, high, urgent", ErrInvalidInput, c.Priority)
	}

	if err := validateInput(c.InputData); err != nil {
		return "", "", err
	}
	return t, p, nil
}

// UpdateCommand is a partial update. Status moves only through
// execution and cancellation.
type UpdateCommand struct {
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Priority    *string         `json:"priority,omitempty"`
	AgentID     *uuid.UUID      `json:"agent_id,omitempty"`
	InputData   json.RawMessage `json:"input_data,omitempty"`
	Progress    *float64        `json:"progress,omitempty"`
}

func (c *UpdateCommand) apply(t Task) (Task, error) {
	if c.Title != nil {
		if err := validateTitle(*c.Title); err != nil {
			return Task{}, err
		}
		t.Title = *c.Title
	}
	if c.Description != nil {
		t.Description = *c.Description
	}
	if c.Priority != nil {
		p := Priority(*c.Priority)
		if !p.Valid() {
			return Task{}, fmt.Errorf("%w: priority %q must be one of low, medium, high, urgent", ErrInvalidInput, *c.Priority)
		}
		t.Priority = p
	}
	if c.AgentID != nil {
		id := *c.AgentID
		t.AgentID = &id
	}
	if len(c.InputData) > 0 {
		if err := validateInput(c.InputData); err != nil {
			return Task{}, err
		}
		t.InputData = c.InputData
	}
	if c.Progress != nil {
		if *c.Progress < 0 || *c.Progress > 100 {
			return Task{}, fmt.Errorf("%w: progress must be between 0 and 100", ErrInvalidInput)
		}
		t.Progress = *c.Progress
	}
	return t, nil
}

func validateTitle(title string) error {
	if n := utf8.RuneCountInString(title); n < 1 || n > maxTitleLength {
		return fmt.Errorf("%w: title must be 1 to %d characters", ErrInvalidInput, maxTitleLength)
	}
	return nil
}

func validateInput(raw json.RawMessage) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("%w: input_data must be a JSON object", ErrInvalidInput)
	}
	return nil
}
