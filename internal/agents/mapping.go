package agents

import (
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/TAPUZE/project-chimera/pkg/query"
	"github.com/TAPUZE/project-chimera/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "agents", "a").
	Project("id", "ID").
	Project("name", "Name").
	Project("description", "Description").
	Project("agent_type", "AgentType").
	Project("model", "Model").
	Project("temperature", "Temperature").
	Project("max_tokens", "MaxTokens").
	Project("system_prompt", "SystemPrompt").
	Project("capabilities", "Capabilities").
	Project("config", "Config").
	Project("is_active", "IsActive").
	Project("owner_id", "OwnerID").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

const defaultSort = "Name"

const returning = `id, name, description, agent_type, model, temperature, max_tokens,
		system_prompt, capabilities, config, is_active, owner_id, created_at, updated_at`

func scanAgent(s repository.Scanner) (Agent, error) {
	var a Agent
	var owner uuid.NullUUID
	err := s.Scan(
		&a.ID, &a.Name, &a.Description, &a.AgentType, &a.Model, &a.Temperature, &a.MaxTokens,
		&a.SystemPrompt, &a.Capabilities, &a.Config, &a.IsActive, &owner, &a.CreatedAt, &a.UpdatedAt,
	)
	if owner.Valid {
		a.OwnerID = &owner.UUID
	}
	return a, err
}

// Filters contains optional filtering criteria for agent queries.
type Filters struct {
	Name      *string
	AgentType *string
	OwnerID   *uuid.UUID
	IsActive  *bool
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Unparseable owner_id and is_active values are ignored.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if n := values.Get("name"); n != "" {
		f.Name = &n
	}
	if t := values.Get("agent_type"); t != "" {
		f.AgentType = &t
	}
	if o := values.Get("owner_id"); o != "" {
		if id, err := uuid.Parse(o); err == nil {
			f.OwnerID = &id
		}
	}
	if a := values.Get("is_active"); a != "" {
		if active, err := strconv.ParseBool(a); err == nil {
			f.IsActive = &active
		}
	}

	return f
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	b.WhereContains("Name", f.Name)
	if f.AgentType != nil {
		b.WhereEquals("AgentType", *f.AgentType)
	}
	if f.OwnerID != nil {
		b.WhereEquals("OwnerID", *f.OwnerID)
	}
	if f.IsActive != nil {
		b.WhereEquals("IsActive", *f.IsActive)
	}
	return b
}
