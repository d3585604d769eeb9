package users

import (
	"database/sql"
	"net/url"
	"strconv"

	"github.com/TAPUZE/project-chimera/pkg/query"
	"github.com/TAPUZE/project-chimera/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "users", "u").
	Project("id", "ID").
	Project("email", "Email").
	Project("username", "Username").
	Project("full_name", "FullName").
	Project("is_active", "IsActive").
	Project("is_admin", "IsAdmin").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

const defaultSort = "Username"

const returning = `id, email, username, full_name, is_active, is_admin, created_at, updated_at`

func scanUser(s repository.Scanner) (User, error) {
	var u User
	var fullName sql.NullString
	err := s.Scan(&u.ID, &u.Email, &u.Username, &fullName, &u.IsActive, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	u.FullName = fullName.String
	return u, err
}

// Filters contains optional filtering criteria for user queries.
type Filters struct {
	IsActive *bool
	IsAdmin  *bool
}

func FiltersFromQuery(values url.Values) Filters {
	var f Filters
	if v := values.Get("is_active"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.IsActive = &b
		}
	}
	if v := values.Get("is_admin"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.IsAdmin = &b
		}
	}
	return f
}

func (f Filters) Apply(b *query.Builder) *query.Builder {
	if f.IsActive != nil {
		b.WhereEquals("IsActive", *f.IsActive)
	}
	if f.IsAdmin != nil {
		b.WhereEquals("IsAdmin", *f.IsAdmin)
	}
	return b
}
