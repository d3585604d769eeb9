package metrics

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/TAPUZE/project-chimera/pkg/query"
	"github.com/TAPUZE/project-chimera/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "agent_metrics", "m").
	Project("id", "ID").
	Project("agent_id", "AgentID").
	Project("metric_type", "MetricType").
	Project("metric_value", "MetricValue").
	Project("metadata", "Metadata").
	Project("timestamp", "Timestamp")

const defaultSort = "Timestamp"

const returning = `id, agent_id, metric_type, metric_value, metadata, timestamp`

func scanMetric(s repository.Scanner) (Metric, error) {
	var m Metric
	var metadata []byte
	err := s.Scan(&m.ID, &m.AgentID, &m.MetricType, &m.MetricValue, &metadata, &m.Timestamp)
	if len(metadata) > 0 {
		m.Metadata = metadata
	}
	return m, err
}

const (
	defaultDays = 30
	maxDays     = 365
)

// Filters narrows a metric listing.
type Filters struct {
	MetricType *string
}

func FiltersFromQuery(values url.Values) Filters {
	var f Filters
	if v := strings.TrimSpace(values.Get("metric_type")); v != "" {
		f.MetricType = &v
	}
	return f
}

func (f Filters) Apply(b *query.Builder) *query.Builder {
	if f.MetricType != nil {
		b.WhereEquals("MetricType", *f.MetricType)
	}
	return b
}

// Scope restricts analytics to one user's agents, tasks and chats. The
// zero Scope covers everything.
type Scope struct {
	UserID *uuid.UUID
}

func ScopeFromQuery(values url.Values) Scope {
	var s Scope
	if v := values.Get("user_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			s.UserID = &id
		}
	}
	return s
}

func (s Scope) arg() uuid.NullUUID {
	if s.UserID == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *s.UserID, Valid: true}
}

// DaysFromQuery reads the days parameter, defaulting to 30 and clamped
// to [1, 365].
func DaysFromQuery(values url.Values) int {
	days, err := strconv.Atoi(values.Get("days"))
	if err != nil || days < 1 {
		return defaultDays
	}
	return min(days, maxDays)
}
