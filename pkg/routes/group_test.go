package routes_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TAPUZE/project-chimera/pkg/openapi"
	"github.com/TAPUZE/project-chimera/pkg/routes"
)

func write(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}
}

func TestGroup_AddToSpec(t *testing.T) {
	spec := openapi.NewSpec("Test API", "1.0.0")

	group := routes.Group{
		Prefix: "/tasks",
		Tags:   []string{"Tasks"},
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: write(""), OpenAPI: &openapi.Operation{Summary: "List tasks"}},
			{Method: "POST", Pattern: "/{id}/cancel", Handler: write(""), OpenAPI: &openapi.Operation{Summary: "Cancel", Tags: []string{"Runtime"}}},
			{Method: "DELETE", Pattern: "/{id}", Handler: write(""), OpenAPI: nil},
		},
		Schemas: map[string]*openapi.Schema{"Task": {Type: "object"}},
	}

	group.AddToSpec("/api", spec)

	list := spec.Paths["/api/tasks"]
	if list == nil || list.Get == nil {
		t.Fatal("GET /api/tasks not documented")
	}
	if len(list.Get.Tags) != 1 || list.Get.Tags[0] != "Tasks" {
		t.Errorf("inherited tags = %v", list.Get.Tags)
	}

	cancel := spec.Paths["/api/tasks/{id}/cancel"]
	if cancel == nil || cancel.Post.Tags[0] != "Runtime" {
		t.Error("explicit tags should be preserved")
	}

	if spec.Paths["/api/tasks/{id}"] != nil {
		t.Error("routes without OpenAPI should not be documented")
	}

	if spec.Components.Schemas["Task"] == nil {
		t.Error("group schemas not added")
	}
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()
	spec := openapi.NewSpec("Test API", "1.0.0")

	group := routes.Group{
		Prefix: "/agents",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: write("list"), OpenAPI: &openapi.Operation{Summary: "List"}},
			{Method: "GET", Pattern: "/{id}", Handler: write("detail"), OpenAPI: &openapi.Operation{Summary: "Find"}},
		},
		Children: []routes.Group{
			{
				Prefix: "/types",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "", Handler: write("types")},
				},
			},
		},
	}

	routes.Register(mux, "/api", spec, group)

	tests := []struct {
		path string
		want string
	}{
		{"/agents", "list"},
		{"/agents/123", "detail"},
		{"/agents/types", "types"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			body, _ := io.ReadAll(w.Result().Body)
			if string(body) != tt.want {
				t.Errorf("body = %q, want %q", body, tt.want)
			}
		})
	}

	if spec.Paths["/api/agents/{id}"] == nil {
		t.Error("spec path /api/agents/{id} not added")
	}
}
