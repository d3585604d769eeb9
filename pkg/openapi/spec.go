package openapi

import (
	"encoding/json"
	"maps"
	"net/http"
)

// NewSpec creates an empty 3.1 document with the shared components.
func NewSpec(title, version string) *Spec {
	return &Spec{
		OpenAPI:    "3.1.0",
		Info:       &Info{Title: title, Version: version},
		Paths:      make(map[string]*PathItem),
		Components: NewComponents(),
	}
}

// SetDescription sets the document description.
func (s *Spec) SetDescription(desc string) {
	s.Info.Description = desc
}

// AddServer appends a server URL.
func (s *Spec) AddServer(url string) {
	s.Servers = append(s.Servers, &Server{URL: url})
}

// NewComponents returns the components every API shares: the page request
// schema and the standard error responses.
func NewComponents() *Components {
	errorResponse := func(description string) *Response {
		return &Response{Description: description, Content: jsonContent(SchemaRef("Error"))}
	}

	return &Components{
		Schemas: map[string]*Schema{
			"PageRequest": {
				Type: "object",
				Properties: map[string]*Schema{
					"page":      {Type: "integer", Minimum: Range(1)},
					"page_size": {Type: "integer", Minimum: Range(1)},
					"search":    {Type: "string"},
					"sort":      {Type: "string", Description: "Comma-separated fields, '-' prefix for descending"},
				},
			},
			"Error": {
				Type:       "object",
				Properties: map[string]*Schema{"error": {Type: "string"}},
			},
		},
		Responses: map[string]*Response{
			"BadRequest":      errorResponse("Invalid request"),
			"NotFound":        errorResponse("Resource not found"),
			"Conflict":        errorResponse("Resource state conflict"),
			"PayloadTooLarge": errorResponse("Request body exceeds the configured limit"),
		},
	}
}

// AddSchemas merges schemas into the components.
func (c *Components) AddSchemas(schemas map[string]*Schema) {
	maps.Copy(c.Schemas, schemas)
}

// MarshalJSON renders the document as indented JSON.
func MarshalJSON(spec *Spec) ([]byte, error) {
	return json.MarshalIndent(spec, "", "  ")
}

// ServeSpec serves pre-rendered document bytes.
func ServeSpec(spec []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	}
}
