package chat

import "github.com/TAPUZE/project-chimera/pkg/openapi"

type spec struct {
	Complete       *openapi.Operation
	CompleteStream *openapi.Operation
	ListSessions   *openapi.Operation
	ActiveSessions *openapi.Operation
	CreateSession  *openapi.Operation
	FindSession    *openapi.Operation
	UpdateSession  *openapi.Operation
	DeleteSession  *openapi.Operation
	Messages       *openapi.Operation
	AddMessage     *openapi.Operation
	Export         *openapi.Operation
	Summary        *openapi.Operation
	Suggestions    *openapi.Operation
	Context        *openapi.Operation
	ClearContext   *openapi.Operation
}

func sessionParam() *openapi.Parameter {
	return openapi.PathParam("id", "Chat session UUID")
}

var Spec = spec{
	Complete: &openapi.Operation{
		Summary:     "Chat completion",
		Description: "Stores the user message, answers it and stores the reply. A session is created when session_id is omitted.",
		RequestBody: openapi.RequestBodyJSON("ChatCompletionRequest", true),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Reply", "ChatCompletionResponse"),
			400: openapi.ResponseRef("BadRequest"),
			404: {Description: "Session not found, or agent not found or inactive"},
			502: {Description: "Provider request failed"},
			503: {Description: "Provider not configured"},
		},
	},
	CompleteStream: &openapi.Operation{
		Summary:     "Streaming chat completion",
		Description: "Server-sent events: a session event, content fragments, then a complete event and [DONE].",
		RequestBody: openapi.RequestBodyJSON("ChatCompletionRequest", true),
		Responses: map[int]*openapi.Response{
			200: {
				Description: "Event stream",
				Content: map[string]*openapi.MediaType{
					"text/event-stream": {Schema: &openapi.Schema{Type: "string"}},
				},
			},
			400: openapi.ResponseRef("BadRequest"),
			404: {Description: "Session not found, or agent not found or inactive"},
		},
	},
	ListSessions: &openapi.Operation{
		Summary: "List chat sessions",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("page", "integer", "Page number (1-indexed)", false),
			openapi.QueryParam("page_size", "integer", "Results per page", false),
			openapi.QueryParam("skip", "integer", "Offset alternative to page", false),
			openapi.QueryParam("limit", "integer", "Alias for page_size", false),
			openapi.QueryParam("search", "string", "Search titles", false),
			openapi.QueryParam("sort", "string", "Comma-separated sort fields. Prefix with - for descending", false),
			openapi.QueryParam("user_id", "string", "Filter by owning user", false),
			openapi.QueryParam("is_active", "boolean", "Filter by active flag", false),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Paginated sessions, most recently updated first", "ChatSessionPageResult"),
		},
	},
	ActiveSessions: &openapi.Operation{
		Summary: "Sessions with a live context",
		Responses: map[int]*openapi.Response{
			200: {
				Description: "Session ids",
				Content: map[string]*openapi.MediaType{
					"application/json": {Schema: &openapi.Schema{Type: "array", Items: &openapi.Schema{Type: "string", Format: "uuid"}}},
				},
			},
		},
	},
	CreateSession: &openapi.Operation{
		Summary:     "Create chat session",
		RequestBody: openapi.RequestBodyJSON("CreateChatSessionCommand", true),
		Responses: map[int]*openapi.Response{
			201: openapi.ResponseJSON("Created session", "ChatSession"),
			400: openapi.ResponseRef("BadRequest"),
		},
	},
	FindSession: &openapi.Operation{
		Summary:    "Get chat session",
		Parameters: []*openapi.Parameter{sessionParam()},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Session", "ChatSession"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	UpdateSession: &openapi.Operation{
		Summary:     "Update chat session",
		Parameters:  []*openapi.Parameter{sessionParam()},
		RequestBody: openapi.RequestBodyJSON("UpdateChatSessionCommand", true),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Updated session", "ChatSession"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	DeleteSession: &openapi.Operation{
		Summary:    "Delete chat session",
		Parameters: []*openapi.Parameter{sessionParam()},
		Responses: map[int]*openapi.Response{
			204: {Description: "Session, messages and context removed"},
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Messages: &openapi.Operation{
		Summary:    "List session messages",
		Parameters: []*openapi.Parameter{sessionParam()},
		Responses: map[int]*openapi.Response{
			200: {
				Description: "Messages, oldest first",
				Content: map[string]*openapi.MediaType{
					"application/json": {Schema: &openapi.Schema{Type: "array", Items: openapi.SchemaRef("ChatMessage")}},
				},
			},
			404: openapi.ResponseRef("NotFound"),
		},
	},
	AddMessage: &openapi.Operation{
		Summary:     "Add session message",
		Parameters:  []*openapi.Parameter{sessionParam()},
		RequestBody: openapi.RequestBodyJSON("AddChatMessageCommand", true),
		Responses: map[int]*openapi.Response{
			201: openapi.ResponseJSON("Stored message", "ChatMessage"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Export: &openapi.Operation{
		Summary:    "Export chat session",
		Parameters: []*openapi.Parameter{sessionParam()},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Session with messages", "ChatExport"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Summary: &openapi.Operation{
		Summary:    "Summarize conversation",
		Parameters: []*openapi.Parameter{sessionParam()},
		Responses: map[int]*openapi.Response{
			200: {Description: "session_id and summary"},
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Suggestions: &openapi.Operation{
		Summary:    "Suggested replies",
		Parameters: []*openapi.Parameter{sessionParam()},
		Responses: map[int]*openapi.Response{
			200: {Description: "session_id and up to three suggestions"},
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Context: &openapi.Operation{
		Summary:    "Get conversation context",
		Parameters: []*openapi.Parameter{sessionParam()},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Context snapshot", "ChatContext"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	ClearContext: &openapi.Operation{
		Summary:    "Clear conversation context",
		Parameters: []*openapi.Parameter{sessionParam()},
		Responses: map[int]*openapi.Response{
			204: {Description: "Context cleared"},
			400: openapi.ResponseRef("BadRequest"),
		},
	},
}

func (spec) Schemas() map[string]*openapi.Schema {
	metadata := &openapi.Schema{
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"model":          {Type: "string"},
			"temperature":    {Type: "number"},
			"max_tokens":     {Type: "integer"},
			"context_length": {Type: "integer"},
		},
	}

	return map[string]*openapi.Schema{
		"ChatCompletionRequest": {
			Type:     "object",
			Required: []string{"message"},
			Properties: map[string]*openapi.Schema{
				"message":     {Type: "string"},
				"session_id":  {Type: "string", Format: "uuid"},
				"agent_id":    {Type: "string", Format: "uuid"},
				"user_id":     {Type: "string", Format: "uuid"},
				"temperature": {Type: "number", Minimum: openapi.Range(0), Maximum: openapi.Range(2), Example: DefaultTemperature},
				"max_tokens":  {Type: "integer", Example: DefaultMaxTokens},
			},
		},
		"ChatCompletionResponse": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"session_id": {Type: "string", Format: "uuid"},
				"message_id": {Type: "string", Format: "uuid"},
				"content":    {Type: "string"},
				"metadata":   metadata,
			},
		},
		"ChatSession": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":         {Type: "string", Format: "uuid"},
				"title":      {Type: "string"},
				"user_id":    {Type: "string", Format: "uuid"},
				"is_active":  {Type: "boolean"},
				"created_at": {Type: "string", Format: "date-time"},
				"updated_at": {Type: "string", Format: "date-time"},
			},
		},
		"CreateChatSessionCommand": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"title":   {Type: "string", Description: "Defaults to \"Chat YYYY-MM-DD HH:MM\""},
				"user_id": {Type: "string", Format: "uuid"},
			},
		},
		"UpdateChatSessionCommand": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"title":     {Type: "string"},
				"is_active": {Type: "boolean"},
			},
		},
		"ChatMessage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":           {Type: "string", Format: "uuid"},
				"session_id":   {Type: "string", Format: "uuid"},
				"agent_id":     {Type: "string", Format: "uuid"},
				"content":      {Type: "string"},
				"message_type": {Type: "string", Enum: []any{MessageTypeUser, MessageTypeAgent}},
				"metadata":     {Type: "object"},
				"created_at":   {Type: "string", Format: "date-time"},
			},
		},
		"AddChatMessageCommand": {
			Type:     "object",
			Required: []string{"content"},
			Properties: map[string]*openapi.Schema{
				"agent_id":     {Type: "string", Format: "uuid"},
				"content":      {Type: "string"},
				"message_type": {Type: "string", Enum: []any{MessageTypeUser, MessageTypeAgent}},
				"metadata":     {Type: "object"},
			},
		},
		"ChatExport": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"session":     openapi.SchemaRef("ChatSession"),
				"messages":    {Type: "array", Items: openapi.SchemaRef("ChatMessage")},
				"exported_at": {Type: "string", Format: "date-time"},
			},
		},
		"ChatContext": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"session_id":    {Type: "string", Format: "uuid"},
				"agent_id":      {Type: "string", Format: "uuid"},
				"agent_name":    {Type: "string"},
				"message_count": {Type: "integer"},
				"created_at":    {Type: "string", Format: "date-time"},
				"last_activity": {Type: "string", Format: "date-time"},
				"messages": {Type: "array", Items: &openapi.Schema{
					Type: "object",
					Properties: map[string]*openapi.Schema{
						"role":      {Type: "string", Enum: []any{RoleUser, RoleAssistant}},
						"content":   {Type: "string"},
						"timestamp": {Type: "string", Format: "date-time"},
					},
				}},
			},
		},
		"ChatSessionPageResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":        {Type: "array", Items: openapi.SchemaRef("ChatSession")},
				"total":       {Type: "integer"},
				"page":        {Type: "integer"},
				"page_size":   {Type: "integer"},
				"total_pages": {Type: "integer"},
			},
		},
	}
}
