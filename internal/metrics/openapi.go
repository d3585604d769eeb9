package metrics

import "github.com/TAPUZE/project-chimera/pkg/openapi"

type spec struct {
	Overview         *openapi.Operation
	AgentPerformance *openapi.Operation
	ListByAgent      *openapi.Operation
	TaskAnalytics    *openapi.Operation
	DailyUsage       *openapi.Operation
	Export           *openapi.Operation
	Record           *openapi.Operation
}

func scopeParam() *openapi.Parameter {
	return openapi.QueryParam("user_id", "string", "Restrict to one user's agents, tasks and chats", false)
}

func daysParam() *openapi.Parameter {
	return openapi.QueryParam("days", "integer", "Number of days ending today (default 30, max 365)", false)
}

var Spec = spec{
	Overview: &openapi.Operation{
		Summary:    "Analytics overview",
		Parameters: []*openapi.Parameter{scopeParam()},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Overview", "AnalyticsOverview"),
		},
	},
	AgentPerformance: &openapi.Operation{
		Summary:    "Per-agent task performance",
		Parameters: []*openapi.Parameter{scopeParam()},
		Responses: map[int]*openapi.Response{
			200: {
				Description: "Performance of every agent",
				Content: map[string]*openapi.MediaType{
					"application/json": {Schema: &openapi.Schema{Type: "array", Items: openapi.SchemaRef("AgentPerformance")}},
				},
			},
		},
	},
	ListByAgent: &openapi.Operation{
		Summary: "List agent metrics",
		Parameters: []*openapi.Parameter{
			openapi.PathParam("id", "Agent UUID"),
			openapi.QueryParam("page", "integer", "Page number (1-indexed)", false),
			openapi.QueryParam("page_size", "integer", "Results per page", false),
			openapi.QueryParam("skip", "integer", "Offset alternative to page", false),
			openapi.QueryParam("limit", "integer", "Alias for page_size", false),
			openapi.QueryParam("metric_type", "string", "Filter by metric type", false),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Paginated metrics, newest first", "MetricPageResult"),
			400: openapi.ResponseRef("BadRequest"),
		},
	},
	TaskAnalytics: &openapi.Operation{
		Summary:    "Task analytics by type",
		Parameters: []*openapi.Parameter{scopeParam()},
		Responses: map[int]*openapi.Response{
			200: {
				Description: "One summary per task type",
				Content: map[string]*openapi.MediaType{
					"application/json": {Schema: &openapi.Schema{Type: "array", Items: openapi.SchemaRef("TaskTypeSummary")}},
				},
			},
		},
	},
	DailyUsage: &openapi.Operation{
		Summary:    "Daily usage",
		Parameters: []*openapi.Parameter{scopeParam(), daysParam()},
		Responses: map[int]*openapi.Response{
			200: {
				Description: "One entry per day, oldest first",
				Content: map[string]*openapi.MediaType{
					"application/json": {Schema: &openapi.Schema{Type: "array", Items: openapi.SchemaRef("DailyUsage")}},
				},
			},
		},
	},
	Export: &openapi.Operation{
		Summary:    "Export analytics",
		Parameters: []*openapi.Parameter{scopeParam(), daysParam()},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("All analytics views", "AnalyticsExport"),
		},
	},
	Record: &openapi.Operation{
		Summary:     "Record metric",
		RequestBody: openapi.RequestBodyJSON("RecordMetricCommand", true),
		Responses: map[int]*openapi.Response{
			201: openapi.ResponseJSON("Recorded metric", "Metric"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
}

func (spec) Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"Metric": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":           {Type: "string", Format: "uuid"},
				"agent_id":     {Type: "string", Format: "uuid"},
				"metric_type":  {Type: "string", Example: ExecutionTime},
				"metric_value": {Type: "number", Format: "double"},
				"metadata":     {Type: "object"},
				"timestamp":    {Type: "string", Format: "date-time"},
			},
		},
		"RecordMetricCommand": {
			Type:     "object",
			Required: []string{"agent_id", "metric_type", "metric_value"},
			Properties: map[string]*openapi.Schema{
				"agent_id":     {Type: "string", Format: "uuid"},
				"metric_type":  {Type: "string"},
				"metric_value": {Type: "number", Format: "double"},
				"metadata":     {Type: "object"},
			},
		},
		"MetricPageResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":        {Type: "array", Items: openapi.SchemaRef("Metric")},
				"total":       {Type: "integer"},
				"page":        {Type: "integer"},
				"page_size":   {Type: "integer"},
				"total_pages": {Type: "integer"},
			},
		},
		"AnalyticsOverview": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"total_agents":          {Type: "integer"},
				"active_agents":         {Type: "integer"},
				"total_tasks":           {Type: "integer"},
				"completed_tasks":       {Type: "integer"},
				"pending_tasks":         {Type: "integer", Description: "pending and in_progress"},
				"failed_tasks":          {Type: "integer"},
				"tasks_by_status":       {Type: "object"},
				"total_chat_messages":   {Type: "integer"},
				"success_rate":          {Type: "number", Description: "Percentage of tasks completed"},
				"average_task_duration": {Type: "number", Description: "Seconds from creation to completion"},
			},
		},
		"AgentPerformance": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"agent_id":         {Type: "string", Format: "uuid"},
				"agent_name":       {Type: "string"},
				"total_tasks":      {Type: "integer"},
				"completed_tasks":  {Type: "integer"},
				"failed_tasks":     {Type: "integer"},
				"success_rate":     {Type: "number"},
				"average_duration": {Type: "number"},
				"last_activity":    {Type: "string", Format: "date-time"},
			},
		},
		"TaskTypeSummary": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"task_type":        {Type: "string"},
				"total_tasks":      {Type: "integer"},
				"completed_tasks":  {Type: "integer"},
				"failed_tasks":     {Type: "integer"},
				"success_rate":     {Type: "number"},
				"average_duration": {Type: "number"},
			},
		},
		"DailyUsage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"date":            {Type: "string", Format: "date"},
				"total_tasks":     {Type: "integer"},
				"completed_tasks": {Type: "integer"},
				"total_messages":  {Type: "integer"},
				"active_agents":   {Type: "integer"},
			},
		},
		"AnalyticsExport": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"overview":          openapi.SchemaRef("AnalyticsOverview"),
				"agent_performance": {Type: "array", Items: openapi.SchemaRef("AgentPerformance")},
				"task_analytics":    {Type: "array", Items: openapi.SchemaRef("TaskTypeSummary")},
				"usage_metrics":     {Type: "array", Items: openapi.SchemaRef("DailyUsage")},
				"exported_at":       {Type: "string", Format: "date-time"},
			},
		},
	}
}
