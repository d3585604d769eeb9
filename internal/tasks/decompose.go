package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/TAPUZE/project-chimera/internal/tasktype"
)

var decompositionKeys = []string{"steps", "phases", "multiple_outputs"}

var errMalformedSubtasks = errors.New("malformed subtask list")

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// NeedsDecomposition reports whether t is split into subtasks: its input
// is a JSON object with a steps, phases or multiple_outputs key, or its
// description is longer than threshold characters.
func NeedsDecomposition(t Task, threshold int) bool {
	if utf8.RuneCountInString(t.Description) > threshold {
		return true
	}

	if len(t.InputData) == 0 || !gjson.ValidBytes(t.InputData) {
		return false
	}

	input := gjson.ParseBytes(t.InputData)
	if !input.IsObject() {
		return false
	}
	for _, key := range decompositionKeys {
		if input.Get(key).Exists() {
			return true
		}
	}
	return false
}

// Subtask is one entry of a decomposition.
type Subtask struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	TaskType    tasktype.Type `json:"task_type"`
}

// task builds the in-memory child of parent.
func (s Subtask) task(parent Task) Task {
	now := time.Now().UTC()
	parentID := parent.ID
	return Task{
		ID:           uuid.New(),
		Title:        s.Title,
		Description:  s.Description,
		TaskType:     s.TaskType,
		Priority:     parent.Priority,
		Status:       StatusPending,
		AgentID:      parent.AgentID,
		UserID:       parent.UserID,
		ParentTaskID: &parentID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func placeholderSubtask(parent Task) Subtask {
	return Subtask{
		Title:       "Subtask of " + parent.Title,
		Description: "Auto-generated subtask for " + parent.Title,
		TaskType:    parent.TaskType,
	}
}

// ParseSubtasks reads a JSON array of {title, description, task_type}
// from a model answer, either bare, fenced, or embedded in prose. Entries
// without a title are skipped; an invalid task_type becomes fallback.
func ParseSubtasks(content string, fallback tasktype.Type) ([]Subtask, error) {
	raw := strings.TrimSpace(content)
	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		raw = strings.TrimSpace(m[1])
	}

	if !gjson.Valid(raw) || !gjson.Parse(raw).IsArray() {
		start, end := strings.Index(raw, "["), strings.LastIndex(raw, "]")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("%w: no JSON array found", errMalformedSubtasks)
		}
		raw = raw[start : end+1]
		if !gjson.Valid(raw) {
			return nil, fmt.Errorf("%w: invalid JSON", errMalformedSubtasks)
		}
	}

	var specs []Subtask
	gjson.Parse(raw).ForEach(func(_, entry gjson.Result) bool {
		title := strings.TrimSpace(entry.Get("title").String())
		if title == "" {
			return true
		}

		t := tasktype.Type(entry.Get("task_type").String())
		if !t.Valid() {
			t = fallback
		}

		specs = append(specs, Subtask{
			Title:       title,
			Description: entry.Get("description").String(),
			TaskType:    t,
		})
		return true
	})

	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: no usable entries", errMalformedSubtasks)
	}
	return specs, nil
}

// aggregate combines subtask results. It succeeds iff at least one
// subtask succeeded; execution time is the sum over all subtasks.
func aggregate(taskID uuid.UUID, results []Result) Result {
	var total float64
	successful := make([]Result, 0, len(results))
	for _, r := range results {
		total += r.ExecutionTime
		if r.Success {
			successful = append(successful, r)
		}
	}

	if len(successful) == 0 {
		return Result{
			Error:          "All subtasks failed",
			SubtaskResults: results,
			ExecutionTime:  total,
			TaskID:         taskID,
		}
	}

	return Result{
		Success: true,
		OutputData: map[string]any{
			"subtask_count":    len(results),
			"successful_count": len(successful),
			"failed_count":     len(results) - len(successful),
			"results":          successful,
		},
		ExecutionTime: total,
		TaskID:        taskID,
	}
}

func decompositionPrompt(t Task) string {
	return fmt.Sprintf(`You are a task decomposition expert. Break down the following complex task into smaller, manageable subtasks.

Main Task: %s
Description: %s
Input Data: %s

Please provide a list of subtasks that:
1. Are specific and actionable
2. Can be executed independently
3. Together accomplish the main task
4. Are ordered logically

Format as a JSON array of subtask objects with title, description, and task_type.`,
		t.Title, t.Description, tasktype.FormatInput(t.Brief().Input))
}

func directPrompt(v tasktype.Variant, b tasktype.Brief, params map[string]any) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Task: %s\nDescription: %s\nType: %s\nPriority: %s", b.Title, b.Description, b.Type, b.Priority)

	if b.Input != nil {
		sb.WriteString("\nInput Data: " + tasktype.FormatInput(b.Input))
	}
	if len(params) > 0 {
		if data, err := json.Marshal(params); err == nil {
			sb.WriteString("\nParameters: " + string(data))
		}
	}

	sb.WriteString("\n\n" + v.DirectInstruction())
	return sb.String()
}
