package agents

import "github.com/TAPUZE/project-chimera/pkg/openapi"

type spec struct {
	List       *openapi.Operation
	Search     *openapi.Operation
	Types      *openapi.Operation
	Runtime    *openapi.Operation
	Find       *openapi.Operation
	Create     *openapi.Operation
	Update     *openapi.Operation
	Delete     *openapi.Operation
	Activate   *openapi.Operation
	Deactivate *openapi.Operation
	Status     *openapi.Operation
}

// Spec contains OpenAPI operation definitions for all agent endpoints.
var Spec = spec{
	List: &openapi.Operation{
		Summary:     "List agents",
		Description: "Returns a paginated list of agents with optional filtering and sorting",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("page", "integer", "Page number (1-indexed)", false),
			openapi.QueryParam("page_size", "integer", "Results per page", false),
			openapi.QueryParam("skip", "integer", "Offset alternative to page", false),
			openapi.QueryParam("limit", "integer", "Alias for page_size", false),
			openapi.QueryParam("search", "string", "Search query (matches name and description)", false),
			openapi.QueryParam("sort", "string", "Comma-separated sort fields. Prefix with - for descending", false),
			openapi.QueryParam("name", "string", "Filter by agent name (contains)", false),
			openapi.QueryParam("agent_type", "string", "Filter by agent type", false),
			openapi.QueryParam("owner_id", "string", "Filter by owner UUID", false),
			openapi.QueryParam("is_active", "boolean", "Filter by activation", false),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Paginated list of agents", "AgentPageResult"),
		},
	},
	Search: &openapi.Operation{
		Summary:     "Search agents",
		Description: "Search agents with paging in the request body",
		RequestBody: openapi.RequestBodyJSON("PageRequest", true),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Paginated list of agents", "AgentPageResult"),
			400: openapi.ResponseRef("BadRequest"),
		},
	},
	Types: &openapi.Operation{
		Summary:     "List agent types",
		Description: "Returns the agent-type catalog with recommended models",
		Responses: map[int]*openapi.Response{
			200: {
				Description: "Agent types",
				Content: map[string]*openapi.MediaType{
					"application/json": {Schema: &openapi.Schema{Type: "array", Items: openapi.SchemaRef("AgentTypeInfo")}},
				},
			},
		},
	},
	Runtime: &openapi.Operation{
		Summary:     "List live instances",
		Description: "Returns the runtime state of every instance in the registry",
		Responses: map[int]*openapi.Response{
			200: {
				Description: "Instance states",
				Content: map[string]*openapi.MediaType{
					"application/json": {Schema: &openapi.Schema{Type: "array", Items: openapi.SchemaRef("InstanceStatus")}},
				},
			},
		},
	},
	Find: &openapi.Operation{
		Summary: "Get agent by ID",
		Parameters: []*openapi.Parameter{
			openapi.PathParam("id", "Agent UUID"),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Agent", "Agent"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Create: &openapi.Operation{
		Summary:     "Create agent",
		Description: "Validates and stores a new agent",
		RequestBody: openapi.RequestBodyJSON("CreateAgentCommand", true),
		Responses: map[int]*openapi.Response{
			201: openapi.ResponseJSON("Agent created", "Agent"),
			400: openapi.ResponseRef("BadRequest"),
			409: openapi.ResponseRef("Conflict"),
		},
	},
	Update: &openapi.Operation{
		Summary:     "Update agent",
		Description: "Applies a partial update. A live instance picks up the new configuration",
		Parameters: []*openapi.Parameter{
			openapi.PathParam("id", "Agent UUID"),
		},
		RequestBody: openapi.RequestBodyJSON("UpdateAgentCommand", true),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Agent updated", "Agent"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Delete: &openapi.Operation{
		Summary:     "Delete agent",
		Description: "Removes the agent and stops its live instance",
		Parameters: []*openapi.Parameter{
			openapi.PathParam("id", "Agent UUID"),
		},
		Responses: map[int]*openapi.Response{
			204: {Description: "Agent deleted"},
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Activate: &openapi.Operation{
		Summary: "Activate agent",
		Parameters: []*openapi.Parameter{
			openapi.PathParam("id", "Agent UUID"),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Agent activated", "Agent"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Deactivate: &openapi.Operation{
		Summary:     "Deactivate agent",
		Description: "Marks the agent inactive and stops its live instance",
		Parameters: []*openapi.Parameter{
			openapi.PathParam("id", "Agent UUID"),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Agent deactivated", "Agent"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Status: &openapi.Operation{
		Summary:     "Agent status",
		Description: "Combines the agent record with the state of its live instance",
		Parameters: []*openapi.Parameter{
			openapi.PathParam("id", "Agent UUID"),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Agent status", "AgentStatus"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
}

func (spec) Schemas() map[string]*openapi.Schema {
	agentTypes := []any{"researcher", "analyst", "creative", "assistant", "specialist"}

	return map[string]*openapi.Schema{
		"Agent": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":            {Type: "string", Format: "uuid"},
				"name":          {Type: "string"},
				"description":   {Type: "string"},
				"agent_type":    {Type: "string", Enum: agentTypes},
				"model":         {Type: "string", Example: DefaultModel},
				"temperature":   {Type: "number", Minimum: openapi.Range(0), Maximum: openapi.Range(2)},
				"max_tokens":    {Type: "integer", Minimum: openapi.Range(1), Maximum: openapi.Range(maxTokenLimit)},
				"system_prompt": {Type: "string"},
				"capabilities":  {Type: "object"},
				"config":        {Type: "object"},
				"is_active":     {Type: "boolean"},
				"owner_id":      {Type: "string", Format: "uuid"},
				"created_at":    {Type: "string", Format: "date-time"},
				"updated_at":    {Type: "string", Format: "date-time"},
			},
		},
		"CreateAgentCommand": {
			Type:     "object",
			Required: []string{"name", "agent_type"},
			Properties: map[string]*openapi.Schema{
				"name":          {Type: "string", Description: "1 to 100 characters"},
				"description":   {Type: "string"},
				"agent_type":    {Type: "string", Enum: agentTypes},
				"model":         {Type: "string", Example: DefaultModel},
				"temperature":   {Type: "number", Example: DefaultTemperature},
				"max_tokens":    {Type: "integer", Example: DefaultMaxTokens},
				"system_prompt": {Type: "string"},
				"capabilities":  {Type: "object"},
				"config":        {Type: "object"},
				"owner_id":      {Type: "string", Format: "uuid"},
			},
		},
		"UpdateAgentCommand": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"name":          {Type: "string"},
				"description":   {Type: "string"},
				"model":         {Type: "string"},
				"temperature":   {Type: "number"},
				"max_tokens":    {Type: "integer"},
				"system_prompt": {Type: "string"},
				"capabilities":  {Type: "object"},
				"config":        {Type: "object"},
				"is_active":     {Type: "boolean"},
			},
		},
		"AgentPageResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":        {Type: "array", Items: openapi.SchemaRef("Agent")},
				"total":       {Type: "integer"},
				"page":        {Type: "integer"},
				"page_size":   {Type: "integer"},
				"total_pages": {Type: "integer"},
			},
		},
		"AgentTypeInfo": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"type":               {Type: "string", Enum: agentTypes},
				"name":               {Type: "string"},
				"description":        {Type: "string"},
				"recommended_models": {Type: "array", Items: &openapi.Schema{Type: "string"}},
			},
		},
		"InstanceStatus": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"agent_id":       {Type: "string", Format: "uuid"},
				"agent_name":     {Type: "string"},
				"running":        {Type: "boolean"},
				"current_task":   {Type: "string", Format: "uuid"},
				"uptime":         {Type: "integer", Description: "Seconds since the instance started"},
				"memory_entries": {Type: "integer"},
				"created_at":     {Type: "string", Format: "date-time"},
				"last_activity":  {Type: "string", Format: "date-time"},
			},
		},
		"AgentStatus": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"agent_id":       {Type: "string", Format: "uuid"},
				"status":         {Type: "string", Enum: []any{"active", "inactive"}},
				"running":        {Type: "boolean"},
				"current_task":   {Type: "string", Format: "uuid"},
				"uptime":         {Type: "integer"},
				"memory_entries": {Type: "integer"},
				"last_activity":  {Type: "string", Format: "date-time"},
			},
		},
	}
}
