package providers

import "github.com/TAPUZE/project-chimera/pkg/openapi"

type spec struct {
	ListModels     *openapi.Operation
	FindModel      *openapi.Operation
	Health         *openapi.Operation
	Complete       *openapi.Operation
	CompleteStream *openapi.Operation
}

// Spec contains OpenAPI operation definitions for the gateway endpoints.
var Spec = spec{
	ListModels: &openapi.Operation{
		Summary:     "List models",
		Description: "Returns every model id the gateway can route",
		Responses: map[int]*openapi.Response{
			200: {
				Description: "Model catalog",
				Content: map[string]*openapi.MediaType{
					"application/json": {Schema: &openapi.Schema{Type: "array", Items: openapi.SchemaRef("Model")}},
				},
			},
		},
	},
	FindModel: &openapi.Operation{
		Summary: "Get model",
		Parameters: []*openapi.Parameter{
			openapi.StringPathParam("id", "Model id"),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Model info", "Model"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Health: &openapi.Operation{
		Summary:     "Provider health",
		Description: "Probes each provider and reports whether it is reachable with the configured credentials",
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Reachability by provider", "ProviderHealth"),
		},
	},
	Complete: &openapi.Operation{
		Summary:     "Generate completion",
		Description: "Sends a single completion request through the gateway",
		RequestBody: openapi.RequestBodyJSON("CompletionRequest", true),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Completion", "CompletionResponse"),
			400: openapi.ResponseRef("BadRequest"),
			502: {Description: "Provider error"},
			503: {Description: "Provider not configured"},
		},
	},
	CompleteStream: &openapi.Operation{
		Summary:     "Stream completion",
		Description: "Streams completion fragments as Server-Sent Events",
		RequestBody: openapi.RequestBodyJSON("CompletionRequest", true),
		Responses: map[int]*openapi.Response{
			200: {
				Description: "SSE stream of {content} events terminated by [DONE]",
				Content: map[string]*openapi.MediaType{
					"text/event-stream": {Schema: &openapi.Schema{Type: "string"}},
				},
			},
			400: openapi.ResponseRef("BadRequest"),
		},
	},
}

func (spec) Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"Model": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":              {Type: "string", Example: "gpt-4"},
				"provider":        {Type: "string", Enum: []any{OpenAI, Anthropic, Gemini, Local}},
				"name":            {Type: "string"},
				"description":     {Type: "string"},
				"max_tokens":      {Type: "integer"},
				"supports_vision": {Type: "boolean"},
			},
		},
		"ProviderHealth": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				OpenAI:    {Type: "boolean"},
				Anthropic: {Type: "boolean"},
				Gemini:    {Type: "boolean"},
				Local:     {Type: "boolean"},
			},
		},
		"CompletionRequest": {
			Type:     "object",
			Required: []string{"prompt"},
			Properties: map[string]*openapi.Schema{
				"prompt":        {Type: "string"},
				"model":         {Type: "string", Example: "gpt-4"},
				"temperature":   {Type: "number", Minimum: openapi.Range(0), Maximum: openapi.Range(2)},
				"max_tokens":    {Type: "integer", Minimum: openapi.Range(1)},
				"system_prompt": {Type: "string"},
			},
		},
		"CompletionResponse": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"model":   {Type: "string"},
				"content": {Type: "string"},
				"tokens":  {Type: "integer", Description: "Estimated token count"},
			},
		},
	}
}
