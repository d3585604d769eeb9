package query

import "strings"

// SortField is a single ordering instruction.
type SortField struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending"`
}

// ParseSortFields parses "name,-created_at" style sort parameters.
// A leading "-" means descending.
func ParseSortFields(s string) []SortField {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	fields := make([]SortField, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, "-") {
			fields = append(fields, SortField{Field: p[1:], Descending: true})
			continue
		}
		fields = append(fields, SortField{Field: p})
	}
	return fields
}
