package tasks

import (
	"github.com/TAPUZE/project-chimera/internal/tasktype"
	"github.com/TAPUZE/project-chimera/pkg/openapi"
)

type spec struct {
	List     *openapi.Operation
	Search   *openapi.Operation
	Types    *openapi.Operation
	Runtime  *openapi.Operation
	Find     *openapi.Operation
	Create   *openapi.Operation
	Update   *openapi.Operation
	Delete   *openapi.Operation
	Subtasks *openapi.Operation
	Execute  *openapi.Operation
	Queue    *openapi.Operation
	Cancel   *openapi.Operation
}

var Spec = spec{
	List: &openapi.Operation{
		Summary:     "List tasks",
		Description: "Returns a paginated list of tasks, newest first unless sorted",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("page", "integer", "Page number (1-indexed)", false),
			openapi.QueryParam("page_size", "integer", "Results per page", false),
			openapi.QueryParam("skip", "integer", "Offset alternative to page", false),
			openapi.QueryParam("limit", "integer", "Alias for page_size", false),
			openapi.QueryParam("search", "string", "Search title and description", false),
			openapi.QueryParam("sort", "string", "Comma-separated sort fields. Prefix with - for descending", false),
			openapi.QueryParam("status", "string", "Filter by status", false),
			openapi.QueryParam("task_type", "string", "Filter by task type", false),
			openapi.QueryParam("priority", "string", "Filter by priority", false),
			openapi.QueryParam("agent_id", "string", "Filter by agent UUID", false),
			openapi.QueryParam("user_id", "string", "Filter by user UUID", false),
			openapi.QueryParam("parent_task_id", "string", "Filter by parent task UUID", false),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Paginated list of tasks", "TaskPageResult"),
		},
	},
	Search: &openapi.Operation{
		Summary:     "Search tasks",
		RequestBody: openapi.RequestBodyJSON("PageRequest", true),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Paginated list of tasks", "TaskPageResult"),
			400: openapi.ResponseRef("BadRequest"),
		},
	},
	Types: &openapi.Operation{
		Summary: "List task types",
		Responses: map[int]*openapi.Response{
			200: {
				Description: "Task types",
				Content: map[string]*openapi.MediaType{
					"application/json": {Schema: &openapi.Schema{Type: "array", Items: openapi.SchemaRef("TaskTypeInfo")}},
				},
			},
		},
	},
	Runtime: &openapi.Operation{
		Summary:     "Engine runtime",
		Description: "Lists tracked runs and the number of queued tasks",
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Runtime state", "TaskRuntime"),
		},
	},
	Find: &openapi.Operation{
		Summary: "Get task by ID",
		Parameters: []*openapi.Parameter{
			openapi.PathParam("id", "Task UUID"),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Task", "Task"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Create: &openapi.Operation{
		Summary:     "Create task",
		RequestBody: openapi.RequestBodyJSON("CreateTaskCommand", true),
		Responses: map[int]*openapi.Response{
			201: openapi.ResponseJSON("Task created", "Task"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Update: &openapi.Operation{
		Summary:     "Update task",
		Description: "Applies a partial update. Status changes only through execute and cancel",
		Parameters: []*openapi.Parameter{
			openapi.PathParam("id", "Task UUID"),
		},
		RequestBody: openapi.RequestBodyJSON("UpdateTaskCommand", true),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Task updated", "Task"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Delete: &openapi.Operation{
		Summary:     "Delete task",
		Description: "Deletes the task and its subtasks and stops its run",
		Parameters: []*openapi.Parameter{
			openapi.PathParam("id", "Task UUID"),
		},
		Responses: map[int]*openapi.Response{
			204: {Description: "Task deleted"},
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Subtasks: &openapi.Operation{
		Summary: "List subtasks",
		Parameters: []*openapi.Parameter{
			openapi.PathParam("id", "Parent task UUID"),
		},
		Responses: map[int]*openapi.Response{
			200: {
				Description: "Subtasks in creation order",
				Content: map[string]*openapi.MediaType{
					"application/json": {Schema: &openapi.Schema{Type: "array", Items: openapi.SchemaRef("Task")}},
				},
			},
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Execute: &openapi.Operation{
		Summary:     "Execute task",
		Description: "Runs the task synchronously and records the outcome on the task",
		Parameters: []*openapi.Parameter{
			openapi.PathParam("id", "Task UUID"),
		},
		RequestBody: openapi.RequestBodyJSON("ExecuteTaskRequest", false),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Execution outcome", "ExecuteTaskResponse"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
			409: openapi.ResponseRef("Conflict"),
		},
	},
	Queue: &openapi.Operation{
		Summary: "Queue task",
		Parameters: []*openapi.Parameter{
			openapi.PathParam("id", "Task UUID"),
		},
		Responses: map[int]*openapi.Response{
			202: {Description: "Task queued"},
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Cancel: &openapi.Operation{
		Summary:     "Cancel task",
		Description: "Marks a pending or in-progress task cancelled and stops its run. Completed and failed tasks are rejected",
		Parameters: []*openapi.Parameter{
			openapi.PathParam("id", "Task UUID"),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Task cancelled", "CancelTaskResponse"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
}

func (spec) Schemas() map[string]*openapi.Schema {
	types := make([]any, 0, len(tasktype.All()))
	for _, t := range tasktype.All() {
		types = append(types, string(t))
	}
	priorities := []any{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
	statuses := []any{StatusPending, StatusInProgress, StatusCompleted, StatusFailed, StatusCancelled}

	return map[string]*openapi.Schema{
		"Task": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":             {Type: "string", Format: "uuid"},
				"title":          {Type: "string"},
				"description":    {Type: "string"},
				"task_type":      {Type: "string", Enum: types},
				"priority":       {Type: "string", Enum: priorities},
				"status":         {Type: "string", Enum: statuses},
				"input_data":     {Type: "object"},
				"output_data":    {Type: "object"},
				"progress":       {Type: "number", Minimum: openapi.Range(0), Maximum: openapi.Range(100)},
				"agent_id":       {Type: "string", Format: "uuid"},
				"user_id":        {Type: "string", Format: "uuid"},
				"parent_task_id": {Type: "string", Format: "uuid"},
				"created_at":     {Type: "string", Format: "date-time"},
				"updated_at":     {Type: "string", Format: "date-time"},
				"completed_at":   {Type: "string", Format: "date-time"},
			},
		},
		"CreateTaskCommand": {
			Type:     "object",
			Required: []string{"title", "task_type"},
			Properties: map[string]*openapi.Schema{
				"title":          {Type: "string", Description: "1 to 200 characters"},
				"description":    {Type: "string"},
				"task_type":      {Type: "string", Enum: types},
				"priority":       {Type: "string", Enum: priorities, Example: PriorityMedium},
				"input_data":     {Type: "object"},
				"agent_id":       {Type: "string", Format: "uuid"},
				"user_id":        {Type: "string", Format: "uuid"},
				"parent_task_id": {Type: "string", Format: "uuid"},
			},
		},
		"UpdateTaskCommand": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"title":       {Type: "string"},
				"description": {Type: "string"},
				"priority":    {Type: "string", Enum: priorities},
				"agent_id":    {Type: "string", Format: "uuid"},
				"input_data":  {Type: "object"},
				"progress":    {Type: "number", Minimum: openapi.Range(0), Maximum: openapi.Range(100)},
			},
		},
		"TaskPageResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":        {Type: "array", Items: openapi.SchemaRef("Task")},
				"total":       {Type: "integer"},
				"page":        {Type: "integer"},
				"page_size":   {Type: "integer"},
				"total_pages": {Type: "integer"},
			},
		},
		"TaskTypeInfo": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"type":        {Type: "string", Enum: types},
				"name":        {Type: "string"},
				"description": {Type: "string"},
			},
		},
		"TaskRuntime": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"running":    {Type: "array", Items: &openapi.Schema{Type: "string", Format: "uuid"}},
				"queue_size": {Type: "integer"},
			},
		},
		"TaskResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"success":         {Type: "boolean"},
				"output_data":     {Type: "object"},
				"error":           {Type: "string"},
				"subtask_results": {Type: "array", Items: openapi.SchemaRef("TaskResult")},
				"execution_time":  {Type: "number"},
				"task_id":         {Type: "string", Format: "uuid"},
				"agent_id":        {Type: "string", Format: "uuid"},
				"agent_name":      {Type: "string"},
			},
		},
		"ExecuteTaskRequest": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"parameters": {Type: "object"},
			},
		},
		"ExecuteTaskResponse": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"task_id":        {Type: "string", Format: "uuid"},
				"status":         {Type: "string", Enum: []any{StatusCompleted, StatusFailed}},
				"result":         openapi.SchemaRef("TaskResult"),
				"error":          {Type: "string"},
				"execution_time": {Type: "number"},
				"timestamp":      {Type: "string", Format: "date-time"},
			},
		},
		"CancelTaskResponse": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"task":        openapi.SchemaRef("Task"),
				"interrupted": {Type: "boolean", Description: "Whether a tracked run was stopped"},
			},
		},
	}
}
