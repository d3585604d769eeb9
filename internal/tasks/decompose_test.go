package tasks_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/TAPUZE/project-chimera/internal/tasks"
	"github.com/TAPUZE/project-chimera/internal/tasktype"
)

func TestNeedsDecomposition(t *testing.T) {
	tests := []struct {
		name        string
		description string
		input       string
		want        bool
	}{
		{"plain", "short", "", false},
		{"steps key", "short", `{"steps": [1, 2]}`, true},
		{"phases key", "short", `{"phases": null}`, true},
		{"multiple_outputs key", "short", `{"multiple_outputs": true}`, true},
		{"other keys", "short", `{"topic": "solar", "depth": 2}`, false},
		{"nested key ignored", "short", `{"plan": {"steps": [1]}}`, false},
		{"array input", "short", `["steps"]`, false},
		{"string input", "short", `"steps"`, false},
		{"invalid json", "short", `{steps`, false},
		{"exactly threshold", strings.Repeat("a", 1000), "", false},
		{"over threshold", strings.Repeat("a", 1001), "", true},
		{"multibyte under threshold", strings.Repeat("é", 1000), "", false},
		{"long with input", strings.Repeat("a", 1200), `{"topic": "x"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := tasks.Task{Description: tt.description}
			if tt.input != "" {
				task.InputData = json.RawMessage(tt.input)
			}
			if got := tasks.NeedsDecomposition(task, 1000); got != tt.want {
				t.Errorf("NeedsDecomposition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseSubtasks(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantCount int
		wantTypes []tasktype.Type
		wantErr   bool
	}{
		{
			name:      "bare array",
			content:   `[{"title": "a", "description": "da", "task_type": "analysis"}, {"title": "b", "task_type": "summary"}]`,
			wantCount: 2,
			wantTypes: []tasktype.Type{tasktype.Analysis, tasktype.Summary},
		},
		{
			name:      "fenced block",
			content:   "Here you go:\n```json\n[{\"title\": \"a\", \"task_type\": \"generation\"}]\n```\nGood luck.",
			wantCount: 1,
			wantTypes: []tasktype.Type{tasktype.Generation},
		},
		{
			name:      "embedded in prose",
			content:   `The plan is [{"title": "a", "task_type": "research"}] as requested.`,
			wantCount: 1,
			wantTypes: []tasktype.Type{tasktype.Research},
		},
		{
			name:      "invalid type inherits fallback",
			content:   `[{"title": "a", "task_type": "dance"}, {"title": "b"}]`,
			wantCount: 2,
			wantTypes: []tasktype.Type{tasktype.Classification, tasktype.Classification},
		},
		{
			name:      "untitled entries skipped",
			content:   `[{"title": ""}, {"description": "x"}, {"title": "kept"}]`,
			wantCount: 1,
			wantTypes: []tasktype.Type{tasktype.Classification},
		},
		{name: "no array", content: "I cannot help with that.", wantErr: true},
		{name: "broken json", content: `[{"title": "a"`, wantErr: true},
		{name: "empty array", content: `[]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			specs, err := tasks.ParseSubtasks(tt.content, tasktype.Classification)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseSubtasks() = %+v, want error", specs)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSubtasks() error = %v", err)
			}
			if len(specs) != tt.wantCount {
				t.Fatalf("got %d subtasks, want %d", len(specs), tt.wantCount)
			}
			for i, want := range tt.wantTypes {
				if specs[i].TaskType != want {
					t.Errorf("subtask %d type = %s, want %s", i, specs[i].TaskType, want)
				}
			}
		})
	}
}

func TestStatusRules(t *testing.T) {
	tests := []struct {
		status      tasks.Status
		terminal    bool
		startable   bool
		cancellable bool
	}{
		{tasks.StatusPending, false, true, true},
		{tasks.StatusInProgress, false, true, true},
		{tasks.StatusCompleted, true, false, false},
		{tasks.StatusFailed, true, false, false},
		{tasks.StatusCancelled, true, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.terminal {
				t.Errorf("Terminal() = %v", got)
			}
			if got := tt.status.Startable(); got != tt.startable {
				t.Errorf("Startable() = %v", got)
			}
			if got := tt.status.Cancellable(); got != tt.cancellable {
				t.Errorf("Cancellable() = %v", got)
			}
		})
	}
}
