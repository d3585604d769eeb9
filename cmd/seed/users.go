package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

// EnvAdminPassword supplies the demo administrator's password.
const EnvAdminPassword = "SEED_ADMIN_PASSWORD"

func init() {
	registerSeeder(&UserSeeder{})
}

// UserSeeder creates the demo administrator account once.
type UserSeeder struct{}

func (s *UserSeeder) Name() string { return "users" }

func (s *UserSeeder) Description() string {
	return "Seeds the admin@chimera.local administrator (password from " + EnvAdminPassword + ")"
}

func (s *UserSeeder) Seed(ctx context.Context, tx *sql.Tx) error {
	password := os.Getenv(EnvAdminPassword)
	if password == "" {
		return fmt.Errorf("%s is required", EnvAdminPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	const query = `
		INSERT INTO users (email, username, hashed_password, full_name, is_admin)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (email) DO NOTHING`

	_, err = tx.ExecContext(ctx, query, "admin@chimera.local", "admin", string(hash), "Chimera Administrator")
	return err
}
