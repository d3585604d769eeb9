// Package main provides the seed command for populating the database with
// demo data. Seeders run individually or together within one transaction.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"
)

// Seeder populates one domain's data inside a caller-owned transaction.
type Seeder interface {
	Name() string
	Description() string
	Seed(ctx context.Context, tx *sql.Tx) error
}

var seeders = map[string]Seeder{}

// registerSeeder is called from init functions.
func registerSeeder(s Seeder) {
	seeders[s.Name()] = s
}

func getSeeder(name string) (Seeder, bool) {
	s, ok := seeders[name]
	return s, ok
}

// listSeeders returns the registered seeders ordered by name.
func listSeeders() []Seeder {
	result := make([]Seeder, 0, len(seeders))
	for _, name := range slices.Sorted(maps.Keys(seeders)) {
		result = append(result, seeders[name])
	}
	return result
}

// runSeeders executes the named seeders in order within a single
// transaction. Any failure rolls back every seeder.
func runSeeders(ctx context.Context, db *sql.DB, names ...string) error {
	selected := make([]Seeder, 0, len(names))
	for _, name := range names {
		s, ok := getSeeder(name)
		if !ok {
			return fmt.Errorf("seeder not found: %s", name)
		}
		selected = append(selected, s)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	for _, s := range selected {
		if err := s.Seed(ctx, tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("seed %s: %w", s.Name(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
