package pagination

import (
	"net/url"
	"strconv"

	"github.com/TAPUZE/project-chimera/pkg/query"
)

// PageRequest is a request for one page with optional search and sorting.
type PageRequest struct {
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Search   *string           `json:"search,omitempty"`
	Sort     []query.SortField `json:"sort,omitempty"`
}

// Normalize clamps the page to at least 1 and the page size into
// [1, cfg.MaxPageSize], substituting the default for unset sizes.
func (r *PageRequest) Normalize(cfg Config) {
	r.Page = max(r.Page, 1)
	if r.PageSize < 1 {
		r.PageSize = cfg.DefaultPageSize
	}
	r.PageSize = min(r.PageSize, cfg.MaxPageSize)
}

func (r *PageRequest) Offset() int {
	return (r.Page - 1) * r.PageSize
}

// PageRequestFromQuery reads page, page_size, search and sort (comma
// separated, "-" prefix for descending). Offset-style skip and limit are
// accepted when page and page_size are absent; skip is rounded down to
// the page containing it. The result is normalized.
func PageRequestFromQuery(values url.Values, cfg Config) PageRequest {
	req := PageRequest{
		Page:     intParam(values, "page"),
		PageSize: intParam(values, "page_size"),
		Sort:     query.ParseSortFields(values.Get("sort")),
	}
	if s := values.Get("search"); s != "" {
		req.Search = &s
	}

	if !values.Has("page_size") {
		req.PageSize = intParam(values, "limit")
	}
	req.Normalize(cfg)

	if !values.Has("page") && values.Has("skip") {
		req.Page = max(intParam(values, "skip"), 0)/req.PageSize + 1
	}
	return req
}

func intParam(values url.Values, key string) int {
	n, _ := strconv.Atoi(values.Get(key))
	return n
}

// PageResult holds a page of data along with pagination metadata.
type PageResult[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// NewPageResult computes TotalPages, which is at least 1, and replaces a
// nil data slice with an empty one.
func NewPageResult[T any](data []T, total, page, pageSize int) PageResult[T] {
	totalPages := max((total+pageSize-1)/pageSize, 1)

	if data == nil {
		data = []T{}
	}

	return PageResult[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
