package query

import "strings"

// ProjectionMap maps view-level field names to qualified table columns.
type ProjectionMap struct {
	schema  string
	table   string
	alias   string
	columns []string
	views   map[string]string
}

// NewProjectionMap creates a projection over schema.table aliased as alias.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		schema:  schema,
		table:   table,
		alias:   alias,
		columns: make([]string, 0),
		views:   make(map[string]string),
	}
}

// Project registers column under viewName. Columns keep registration order.
func (p *ProjectionMap) Project(column, viewName string) *ProjectionMap {
	qualified := p.alias + "." + column
	p.columns = append(p.columns, qualified)
	p.views[viewName] = qualified
	return p
}

// Table returns the FROM clause target, e.g. "public.users u".
func (p *ProjectionMap) Table() string {
	return p.schema + "." + p.table + " " + p.alias
}

// Alias returns the table alias.
func (p *ProjectionMap) Alias() string {
	return p.alias
}

// Column resolves a view name. Unknown names are returned unchanged.
func (p *ProjectionMap) Column(viewName string) string {
	if col, ok := p.views[viewName]; ok {
		return col
	}
	return viewName
}

// Lookup resolves a view name and reports whether it is projected.
func (p *ProjectionMap) Lookup(viewName string) (string, bool) {
	col, ok := p.views[viewName]
	return col, ok
}

// Columns returns the comma-separated select list.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.columns, ", ")
}

// ColumnList returns a copy of the qualified columns.
func (p *ProjectionMap) ColumnList() []string {
	out := make([]string, len(p.columns))
	copy(out, p.columns)
	return out
}
