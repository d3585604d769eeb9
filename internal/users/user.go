// Package users manages user accounts and password authentication.
package users

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 50
	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordLength = 72
)

// User is a persisted account. The password hash never leaves the package.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateCommand contains the data required to register a user.
type CreateCommand struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// UpdateCommand applies a partial update; nil fields are left unchanged.
type UpdateCommand struct {
	FullName *string `json:"full_name,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
	IsAdmin  *bool   `json:"is_admin,omitempty"`
}

// Credentials identify a user for authentication.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *CreateCommand) normalize() {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Username = strings.TrimSpace(c.Username)
	c.FullName = strings.TrimSpace(c.FullName)
}

func (c *CreateCommand) validate() error {
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return fmt.Errorf("%w: email: %v", ErrInvalidInput, err)
	}
	if n := utf8.RuneCountInString(c.Username); n < minUsernameLength || n > maxUsernameLength {
		return fmt.Errorf("%w: username must be %d to %d characters", ErrInvalidInput, minUsernameLength, maxUsernameLength)
	}
	if n := len(c.Password); n < minPasswordLength || n > maxPasswordLength {
		return fmt.Errorf("%w: password must be %d to %d bytes", ErrInvalidInput, minPasswordLength, maxPasswordLength)
	}
	return nil
}

func (c UpdateCommand) apply(u User) User {
	if c.FullName != nil {
		u.FullName = strings.TrimSpace(*c.FullName)
	}
	if c.IsActive != nil {
		u.IsActive = *c.IsActive
	}
	if c.IsAdmin != nil {
		u.IsAdmin = *c.IsAdmin
	}
	return u
}
