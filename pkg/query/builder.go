package query

import (
	"fmt"
	"strconv"
	"strings"
)

// predicate renders one WHERE clause, drawing a numbered placeholder from
// bind for every argument it needs.
type predicate func(bind func(arg any) string) string

// Builder assembles SELECT and COUNT statements over a ProjectionMap.
// Field names are view names; they are translated to qualified columns
// through the projection. Placeholders are numbered at build time, so
// predicates may be added in any order.
type Builder struct {
	projection  *ProjectionMap
	predicates  []predicate
	sort        []SortField
	defaultSort string
	defaultDesc bool
}

// NewBuilder returns a Builder that orders ascending by defaultSort when
// no sort fields are applied. OrderBy changes that fallback.
func NewBuilder(projection *ProjectionMap, defaultSort string) *Builder {
	return &Builder{
		projection:  projection,
		defaultSort: defaultSort,
	}
}

func (b *Builder) BuildCount() (string, []any) {
	where, args := b.where()
	return "SELECT COUNT(*) FROM " + b.projection.Table() + where, args
}

// BuildPage selects every projected column for the 1-based page.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	where, args := b.where()

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(b.projection.Columns())
	sb.WriteString(" FROM ")
	sb.WriteString(b.projection.Table())
	sb.WriteString(where)
	sb.WriteString(b.orderBy())
	fmt.Fprintf(&sb, " LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)

	return sb.String(), args
}

// BuildSingle selects one row by its key field. Predicates are ignored.
func (b *Builder) BuildSingle(keyField string, key any) (string, []any) {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		b.projection.Columns(), b.projection.Table(), b.projection.Column(keyField)), []any{key}
}

// OrderBy sets the fallback sort used when no sort fields are applied.
// An empty field keeps the default sort field.
func (b *Builder) OrderBy(field string, descending bool) *Builder {
	if field != "" {
		b.defaultSort = field
	}
	b.defaultDesc = descending
	return b
}

// OrderByFields appends sort fields. Fields the projection does not
// expose are dropped, which keeps client input out of the statement.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	for _, f := range fields {
		if _, ok := b.projection.Lookup(f.Field); ok {
			b.sort = append(b.sort, f)
		}
	}
	return b
}

// WhereEquals adds field = value. A nil value adds nothing.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	if value == nil {
		return b
	}
	col := b.projection.Column(field)
	b.predicates = append(b.predicates, func(bind func(any) string) string {
		return col + " = " + bind(value)
	})
	return b
}

// WhereContains adds a case-insensitive substring match on field.
func (b *Builder) WhereContains(field string, value *string) *Builder {
	if value == nil || *value == "" {
		return b
	}
	return b.WhereSearch(value, field)
}

// WhereSearch matches value as a case-insensitive substring of any of
// fields.
func (b *Builder) WhereSearch(value *string, fields ...string) *Builder {
	if value == nil || *value == "" || len(fields) == 0 {
		return b
	}
	pattern := "%" + *value + "%"
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = b.projection.Column(f)
	}
	b.predicates = append(b.predicates, func(bind func(any) string) string {
		terms := make([]string, len(cols))
		for i, col := range cols {
			terms[i] = col + " ILIKE " + bind(pattern)
		}
		return "(" + strings.Join(terms, " OR ") + ")"
	})
	return b
}

func (b *Builder) where() (string, []any) {
	if len(b.predicates) == 0 {
		return "", nil
	}

	var args []any
	bind := func(arg any) string {
		args = append(args, arg)
		return "$" + strconv.Itoa(len(args))
	}

	clauses := make([]string, len(b.predicates))
	for i, p := range b.predicates {
		clauses[i] = p(bind)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (b *Builder) orderBy() string {
	sort := b.sort
	if len(sort) == 0 {
		sort = []SortField{{Field: b.defaultSort, Descending: b.defaultDesc}}
	}

	terms := make([]string, len(sort))
	for i, f := range sort {
		dir := " ASC"
		if f.Descending {
			dir = " DESC"
		}
		terms[i] = b.projection.Column(f.Field) + dir
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}
