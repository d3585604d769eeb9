package users

import "github.com/TAPUZE/project-chimera/pkg/openapi"

type spec struct {
	List         *openapi.Operation
	Find         *openapi.Operation
	Create       *openapi.Operation
	Update       *openapi.Operation
	Delete       *openapi.Operation
	Authenticate *openapi.Operation
}

var Spec = spec{
	List: &openapi.Operation{
		Summary: "List users",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("page", "integer", "Page number (1-indexed)", false),
			openapi.QueryParam("page_size", "integer", "Results per page", false),
			openapi.QueryParam("skip", "integer", "Offset alternative to page", false),
			openapi.QueryParam("limit", "integer", "Alias for page_size", false),
			openapi.QueryParam("search", "string", "Search query (matches email and username)", false),
			openapi.QueryParam("sort", "string", "Comma-separated sort fields. Prefix with - for descending", false),
			openapi.QueryParam("is_active", "boolean", "Filter by account state", false),
			openapi.QueryParam("is_admin", "boolean", "Filter by administrator flag", false),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Paginated list of users", "UserPageResult"),
		},
	},
	Find: &openapi.Operation{
		Summary:    "Get user",
		Parameters: []*openapi.Parameter{openapi.PathParam("id", "User UUID")},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("User", "User"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Create: &openapi.Operation{
		Summary:     "Register user",
		RequestBody: openapi.RequestBodyJSON("CreateUserCommand", true),
		Responses: map[int]*openapi.Response{
			201: openapi.ResponseJSON("Created user", "User"),
			400: openapi.ResponseRef("BadRequest"),
			409: {Description: "Email or username already registered"},
		},
	},
	Update: &openapi.Operation{
		Summary:     "Update user",
		Parameters:  []*openapi.Parameter{openapi.PathParam("id", "User UUID")},
		RequestBody: openapi.RequestBodyJSON("UpdateUserCommand", true),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Updated user", "User"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Delete: &openapi.Operation{
		Summary:    "Delete user",
		Parameters: []*openapi.Parameter{openapi.PathParam("id", "User UUID")},
		Responses: map[int]*openapi.Response{
			204: {Description: "User deleted"},
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Authenticate: &openapi.Operation{
		Summary:     "Authenticate",
		Description: "Verifies an email and password against an active account",
		RequestBody: openapi.RequestBodyJSON("Credentials", true),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Authenticated user", "User"),
			401: {Description: "Invalid credentials"},
		},
	},
}

func (spec) Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"User": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":         {Type: "string", Format: "uuid"},
				"email":      {Type: "string", Format: "email"},
				"username":   {Type: "string"},
				"full_name":  {Type: "string"},
				"is_active":  {Type: "boolean"},
				"is_admin":   {Type: "boolean"},
				"created_at": {Type: "string", Format: "date-time"},
				"updated_at": {Type: "string", Format: "date-time"},
			},
		},
		"CreateUserCommand": {
			Type:     "object",
			Required: []string{"email", "username", "password"},
			Properties: map[string]*openapi.Schema{
				"email":     {Type: "string", Format: "email"},
				"username":  {Type: "string", Description: "3 to 50 characters"},
				"password":  {Type: "string", Format: "password", Description: "8 to 72 bytes"},
				"full_name": {Type: "string"},
			},
		},
		"UpdateUserCommand": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"full_name": {Type: "string"},
				"is_active": {Type: "boolean"},
				"is_admin":  {Type: "boolean"},
			},
		},
		"Credentials": {
			Type:     "object",
			Required: []string{"email", "password"},
			Properties: map[string]*openapi.Schema{
				"email":    {Type: "string", Format: "email"},
				"password": {Type: "string", Format: "password"},
			},
		},
		"UserPageResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":        {Type: "array", Items: openapi.SchemaRef("User")},
				"total":       {Type: "integer"},
				"page":        {Type: "integer"},
				"page_size":   {Type: "integer"},
				"total_pages": {Type: "integer"},
			},
		},
	}
}
