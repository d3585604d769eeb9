// Package agents manages persisted agent configurations and the runtime
// registry of live agent instances that execute tasks on their behalf.
package agents

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/TAPUZE/project-chimera/internal/providers"
)

const (
	DefaultModel       = "gpt-4"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4000

	maxNameLength = 100
	maxTokenLimit = 8000
)

// Agent is a persisted agent configuration.
type Agent struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	AgentType    string          `json:"agent_type"`
	Model        string          `json:"model"`
	Temperature  float64         `json:"temperature"`
	MaxTokens    int             `json:"max_tokens"`
	SystemPrompt string          `json:"system_prompt"`
	Capabilities json.RawMessage `json:"capabilities"`
	Config       json.RawMessage `json:"config"`
	IsActive     bool            `json:"is_active"`
	OwnerID      *uuid.UUID      `json:"owner_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CreateCommand contains the data required to create a new agent.
// Zero values take the defaults: gpt-4, temperature 0.7, 4000 tokens.
type CreateCommand struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	AgentType    string          `json:"agent_type"`
	Model        string          `json:"model"`
	Temperature  *float64        `json:"temperature,omitempty"`
	MaxTokens    *int            `json:"max_tokens,omitempty"`
	SystemPrompt string          `json:"system_prompt"`
	Capabilities json.RawMessage `json:"capabilities,omitempty"`
	Config       json.RawMessage `json:"config,omitempty"`
	OwnerID      *uuid.UUID      `json:"owner_id,omitempty"`
}

// UpdateCommand applies a partial update; nil fields are left unchanged.
type UpdateCommand struct {
	Name         *string         `json:"name,omitempty"`
	Description  *string         `json:"description,omitempty"`
	Model        *string         `json:"model,omitempty"`
	Temperature  *float64        `json:"temperature,omitempty"`
	MaxTokens    *int            `json:"max_tokens,omitempty"`
	SystemPrompt *string         `json:"system_prompt,omitempty"`
	Capabilities json.RawMessage `json:"capabilities,omitempty"`
	Config       json.RawMessage `json:"config,omitempty"`
	IsActive     *bool           `json:"is_active,omitempty"`
}

// TypeInfo describes an agent type.
type TypeInfo struct {
	Type              string   `json:"type"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	RecommendedModels []string `json:"recommended_models"`
}

var typeCatalog = []TypeInfo{
	{
		Type:              "researcher",
		Name:              "Research Agent",
		Description:       "Specialized in gathering and analyzing information from various sources",
		RecommendedModels: []string{"gpt-4", "claude-3-opus", "gemini-pro"},
	},
	{
		Type:              "analyst",
		Name:              "Data Analyst",
		Description:       "Focused on data analysis, pattern recognition, and insights generation",
		RecommendedModels: []string{"gpt-4", "claude-3-sonnet", "gemini-pro"},
	},
	{
		Type:              "creative",
		Name:              "Creative Agent",
		Description:       "Designed for creative tasks like writing, brainstorming, and content generation",
		RecommendedModels: []string{"gpt-4", "claude-3-opus", "gemini-pro"},
	},
	{
		Type:              "assistant",
		Name:              "General Assistant",
		Description:       "Versatile agent for general-purpose tasks and conversations",
		RecommendedModels: []string{"gpt-3.5-turbo", "claude-3-haiku", "gemini-pro"},
	},
	{
		Type:              "specialist",
		Name:              "Domain Specialist",
		Description:       "Customizable agent for specific domain expertise",
		RecommendedModels: []string{"gpt-4", "claude-3-opus", "gemini-pro"},
	},
}

// Types returns the agent type catalog.
func Types() []TypeInfo {
	return slices.Clone(typeCatalog)
}

// ValidType reports whether t is a known agent type.
func ValidType(t string) bool {
	return slices.ContainsFunc(typeCatalog, func(info TypeInfo) bool {
		return info.Type == t
	})
}

func (c *CreateCommand) normalize() {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Temperature == nil {
		t := DefaultTemperature
		c.Temperature = &t
	}
	if c.MaxTokens == nil {
		n := DefaultMaxTokens
		c.MaxTokens = &n
	}
	if len(c.Capabilities) == 0 {
		c.Capabilities = json.RawMessage(`{}`)
	}
	if len(c.Config) == 0 {
		c.Config = json.RawMessage(`{}`)
	}
}

func (c *CreateCommand) validate() error {
	if !ValidType(c.AgentType) {
		return fmt.Errorf("%w: agent_type %q must be one of researcher, analyst, creative, assistant, specialist", ErrInvalidInput, c.AgentType)
	}
	return validateFields(c.Name, c.Model, *c.Temperature, *c.MaxTokens, c.Capabilities, c.Config)
}

// apply merges the update into a, returning the updated copy.
func (c *UpdateCommand) apply(a Agent) (Agent, error) {
	if c.Name != nil {
		a.Name = *c.Name
	}
	if c.Description != nil {
		a.Description = *c.Description
	}
	if c.Model != nil {
		a.Model = *c.Model
	}
	if c.Temperature != nil {
		a.Temperature = *c.Temperature
	}
	if c.MaxTokens != nil {
		a.MaxTokens = *c.MaxTokens
	}
	if c.SystemPrompt != nil {
		a.SystemPrompt = *c.SystemPrompt
	}
	if len(c.Capabilities) > 0 {
		a.Capabilities = c.Capabilities
	}
	if len(c.Config) > 0 {
		a.Config = c.Config
	}
	if c.IsActive != nil {
		a.IsActive = *c.IsActive
	}

	if err := validateFields(a.Name, a.Model, a.Temperature, a.MaxTokens, a.Capabilities, a.Config); err != nil {
		return Agent{}, err
	}
	return a, nil
}

func validateFields(name, model string, temperature float64, maxTokens int, capabilities, config json.RawMessage) error {
	if n := utf8.RuneCountInString(name); n < 1 || n > maxNameLength {
		return fmt.Errorf("%w: name must be 1 to %d characters", ErrInvalidInput, maxNameLength)
	}
	if _, ok := providers.Lookup(model); !ok {
		return fmt.Errorf("%w: unknown model %q", ErrInvalidInput, model)
	}
	if temperature < 0 || temperature > 2 {
		return fmt.Errorf("%w: temperature must be between 0 and 2", ErrInvalidInput)
	}
	if maxTokens <= 0 || maxTokens > maxTokenLimit {
		return fmt.Errorf("%w: max_tokens must be in (0, %d]", ErrInvalidInput, maxTokenLimit)
	}
	for field, raw := range map[string]json.RawMessage{"capabilities": capabilities, "config": config} {
		if len(raw) > 0 && !isJSONObject(raw) {
			return fmt.Errorf("%w: %s must be a JSON object", ErrInvalidInput, field)
		}
	}
	return nil
}

func isJSONObject(raw json.RawMessage) bool {
	var m map[string]any
	return json.Unmarshal(raw, &m) == nil && m != nil
}
