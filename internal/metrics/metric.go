// Package metrics records per-agent measurements and derives analytics
// over agents, tasks and chat activity.
package metrics

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// ExecutionTime is recorded by the task engine for agent-delegated runs.
const ExecutionTime = "execution_time"

// Metric is one persisted measurement for an agent.
type Metric struct {
	ID          uuid.UUID       `json:"id"`
	AgentID     uuid.UUID       `json:"agent_id"`
	MetricType  string          `json:"metric_type"`
	MetricValue float64         `json:"metric_value"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// RecordCommand contains the data required to record a metric.
type RecordCommand struct {
	AgentID     uuid.UUID       `json:"agent_id"`
	MetricType  string          `json:"metric_type"`
	MetricValue *float64        `json:"metric_value"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

func (c *RecordCommand) validate() error {
	c.MetricType = strings.TrimSpace(c.MetricType)

	if c.AgentID == uuid.Nil {
		return fmt.Errorf("%w: agent_id is required", ErrInvalidInput)
	}
	if c.MetricType == "" {
		return fmt.Errorf("%w: metric_type is required", ErrInvalidInput)
	}
	if c.MetricValue == nil {
		return fmt.Errorf("%w: metric_value is required", ErrInvalidInput)
	}
	if len(c.Metadata) > 0 && string(c.Metadata) != "null" {
		if !gjson.ValidBytes(c.Metadata) || !gjson.ParseBytes(c.Metadata).IsObject() {
			return fmt.Errorf("%w: metadata must be a JSON object", ErrInvalidInput)
		}
	}
	return nil
}

func (c RecordCommand) metadata() any {
	if len(c.Metadata) == 0 || string(c.Metadata) == "null" {
		return nil
	}
	return []byte(c.Metadata)
}

// Overview summarizes the whole system, or one user's share of it.
type Overview struct {
	TotalAgents         int            `json:"total_agents"`
	ActiveAgents        int            `json:"active_agents"`
	TotalTasks          int            `json:"total_tasks"`
	CompletedTasks      int            `json:"completed_tasks"`
	PendingTasks        int            `json:"pending_tasks"`
	FailedTasks         int            `json:"failed_tasks"`
	TasksByStatus       map[string]int `json:"tasks_by_status"`
	TotalChatMessages   int            `json:"total_chat_messages"`
	SuccessRate         float64        `json:"success_rate"`
	AverageTaskDuration float64        `json:"average_task_duration"`
}

// AgentPerformance summarizes the tasks assigned to one agent.
type AgentPerformance struct {
	AgentID         uuid.UUID  `json:"agent_id"`
	AgentName       string     `json:"agent_name"`
	TotalTasks      int        `json:"total_tasks"`
	CompletedTasks  int        `json:"completed_tasks"`
	FailedTasks     int        `json:"failed_tasks"`
	SuccessRate     float64    `json:"success_rate"`
	AverageDuration float64    `json:"average_duration"`
	LastActivity    *time.Time `json:"last_activity"`
}

// TaskTypeSummary summarizes the tasks of one task type.
type TaskTypeSummary struct {
	TaskType        string  `json:"task_type"`
	TotalTasks      int     `json:"total_tasks"`
	CompletedTasks  int     `json:"completed_tasks"`
	FailedTasks     int     `json:"failed_tasks"`
	SuccessRate     float64 `json:"success_rate"`
	AverageDuration float64 `json:"average_duration"`
}

// DailyUsage counts activity on one calendar day (UTC).
type DailyUsage struct {
	Date           string `json:"date"`
	TotalTasks     int    `json:"total_tasks"`
	CompletedTasks int    `json:"completed_tasks"`
	TotalMessages  int    `json:"total_messages"`
	ActiveAgents   int    `json:"active_agents"`
}

// Export bundles every analytics view.
type Export struct {
	Overview         Overview           `json:"overview"`
	AgentPerformance []AgentPerformance `json:"agent_performance"`
	TaskAnalytics    []TaskTypeSummary  `json:"task_analytics"`
	UsageMetrics     []DailyUsage       `json:"usage_metrics"`
	ExportedAt       time.Time          `json:"exported_at"`
}

// SuccessRate is completed as a percentage of total, or 0 without tasks.
func SuccessRate(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}
