package realtime

import "github.com/TAPUZE/project-chimera/pkg/openapi"

type spec struct {
	Stats  *openapi.Operation
	Client *openapi.Operation
	Notify *openapi.Operation
}

var Spec = spec{
	Stats: &openapi.Operation{
		Summary:     "Realtime statistics",
		Description: "Counts connected clients and subscriptions and lists active topics",
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Hub statistics", "RealtimeStats"),
		},
	},
	Client: &openapi.Operation{
		Summary: "Get connected client",
		Parameters: []*openapi.Parameter{
			openapi.StringPathParam("client_id", "WebSocket client id"),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Client session", "RealtimeClient"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Notify: &openapi.Operation{
		Summary:     "Broadcast system notification",
		Description: "Publishes the body to every subscriber of the system topic",
		RequestBody: &openapi.RequestBody{
			Required: true,
			Content: map[string]*openapi.MediaType{
				"application/json": {Schema: &openapi.Schema{Type: "object"}},
			},
		},
		Responses: map[int]*openapi.Response{
			202: {Description: "Notification published"},
			400: openapi.ResponseRef("BadRequest"),
		},
	},
}

func (spec) Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"RealtimeStats": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"connected_clients":   {Type: "integer"},
				"total_subscriptions": {Type: "integer"},
				"topics":              {Type: "array", Items: &openapi.Schema{Type: "string"}},
				"timestamp":           {Type: "string", Format: "date-time"},
			},
		},
		"RealtimeClient": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"client_id":     {Type: "string"},
				"connected_at":  {Type: "string", Format: "date-time"},
				"last_activity": {Type: "string", Format: "date-time"},
				"subscriptions": {Type: "array", Items: &openapi.Schema{Type: "string"}},
			},
		},
	}
}
