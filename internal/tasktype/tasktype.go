// Package tasktype defines the closed set of task types and the
// per-type prompt templates and result envelopes used by agents and the
// task engine.
package tasktype

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidType indicates a task type outside the closed set.
var ErrInvalidType = errors.New("invalid task type")

// Type identifies a task variant.
type Type string

const (
	Research       Type = "research"
	Analysis       Type = "analysis"
	Generation     Type = "generation"
	Classification Type = "classification"
	Summary        Type = "summary"
	Custom         Type = "custom"
)

// All returns every task type in catalog order.
func All() []Type {
	return []Type{Research, Analysis, Generation, Classification, Summary, Custom}
}

// Parse validates s as a task type.
func Parse(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

// Valid reports whether t is one of the known types.
func (t Type) Valid() bool {
	_, err := Of(t)
	return err == nil
}

// Profile is the agent identity a variant renders into prompts and envelopes.
type Profile struct {
	Name         string
	AgentType    string
	SystemPrompt string
}

// Brief is the task a variant renders. Input is the decoded input payload.
type Brief struct {
	ID          uuid.UUID
	Title       string
	Description string
	Type        Type
	Priority    string
	Input       any
}

// Variant carries the behavior that differs between task types.
// The set is closed; Of is the only constructor.
type Variant interface {
	Type() Type
	Name() string
	Description() string

	// AgentPrompt renders the prompt an agent instance sends for this task.
	AgentPrompt(p Profile, b Brief) string

	// SystemPrompt returns the system prompt to pass alongside AgentPrompt.
	SystemPrompt(p Profile) string

	// DirectInstruction is the closing line of a direct-execution prompt.
	DirectInstruction() string

	// Envelope wraps model output in the type-tagged result shape.
	Envelope(content string, p Profile, b Brief) map[string]any

	sealed()
}

// Of resolves the variant for t.
func Of(t Type) (Variant, error) {
	switch t {
	case Research:
		return research{}, nil
	case Analysis:
		return analysis{}, nil
	case Generation:
		return generation{}, nil
	case Classification:
		return classification{}, nil
	case Summary:
		return summary{}, nil
	case Custom:
		return custom{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, string(t))
	}
}

// Info is the catalog entry for a task type.
type Info struct {
	Type        Type   `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Catalog lists every task type with its display name and description.
func Catalog() []Info {
	types := All()
	out := make([]Info, 0, len(types))
	for _, t := range types {
		v, _ := Of(t)
		out = append(out, Info{Type: t, Name: v.Name(), Description: v.Description()})
	}
	return out
}

// FormatInput renders an input payload for inclusion in a prompt.
func FormatInput(input any) string {
	if input == nil {
		return "none"
	}
	if s, ok := input.(string); ok {
		return s
	}
	b, err := json.Marshal(input)
	if err != nil {
		return fmt.Sprint(input)
	}
	return string(b)
}
