package tasks

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/TAPUZE/project-chimera/pkg/pagination"
	"github.com/TAPUZE/project-chimera/pkg/query"
	"github.com/TAPUZE/project-chimera/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "tasks", "t").
	Project("id", "ID").
	Project("title", "Title").
	Project("description", "Description").
	Project("task_type", "TaskType").
	Project("priority", "Priority").
	Project("status", "Status").
	Project("input_data", "InputData").
	Project("output_data", "OutputData").
	Project("progress", "Progress").
	Project("agent_id", "AgentID").
	Project("user_id", "UserID").
	Project("parent_task_id", "ParentTaskID").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt").
	Project("completed_at", "CompletedAt")

const defaultSort = "CreatedAt"

// listQuery builds the task listing: newest first unless page carries
// sort fields.
func listQuery(page pagination.PageRequest, filters Filters) *query.Builder {
	qb := query.
		NewBuilder(projection, defaultSort).
		OrderBy("", true).
		WhereSearch(page.Search, "Title", "Description")

	filters.Apply(qb)
	return qb.OrderByFields(page.Sort)
}

const returning = `id, title, description, task_type, priority, status, input_data, output_data,
		progress, agent_id, user_id, parent_task_id, created_at, updated_at, completed_at`

func scanTask(s repository.Scanner) (Task, error) {
	var t Task
	var agent, user, parent uuid.NullUUID
	var input, output []byte
	err := s.Scan(
		&t.ID, &t.Title, &t.Description, &t.TaskType, &t.Priority, &t.Status, &input, &output,
		&t.Progress, &agent, &user, &parent, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt,
	)
	if len(input) > 0 {
		t.InputData = input
	}
	if len(output) > 0 {
		t.OutputData = output
	}
	t.AgentID = nullable(agent)
	t.UserID = nullable(user)
	t.ParentTaskID = nullable(parent)
	return t, err
}

func nullable(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	return &id.UUID
}

// Filters contains optional filtering criteria for task queries.
type Filters struct {
	Status       *string
	TaskType     *string
	Priority     *string
	AgentID      *uuid.UUID
	UserID       *uuid.UUID
	ParentTaskID *uuid.UUID
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Unparseable ids are ignored.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}
	if t := values.Get("task_type"); t != "" {
		f.TaskType = &t
	}
	if p := values.Get("priority"); p != "" {
		f.Priority = &p
	}
	f.AgentID = parseID(values.Get("agent_id"))
	f.UserID = parseID(values.Get("user_id"))
	f.ParentTaskID = parseID(values.Get("parent_task_id"))

	return f
}

func parseID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	if f.Status != nil {
		b.WhereEquals("Status", *f.Status)
	}
	if f.TaskType != nil {
		b.WhereEquals("TaskType", *f.TaskType)
	}
	if f.Priority != nil {
		b.WhereEquals("Priority", *f.Priority)
	}
	if f.AgentID != nil {
		b.WhereEquals("AgentID", *f.AgentID)
	}
	if f.UserID != nil {
		b.WhereEquals("UserID", *f.UserID)
	}
	if f.ParentTaskID != nil {
		b.WhereEquals("ParentTaskID", *f.ParentTaskID)
	}
	return b
}
