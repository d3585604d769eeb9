package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/TAPUZE/project-chimera/internal/config"
	"github.com/TAPUZE/project-chimera/migrations"
	"github.com/TAPUZE/project-chimera/pkg/database"
)

func main() {
	var (
		all     = flag.Bool("all", false, "Run all seeders")
		agentsF = flag.Bool("agents", false, "Seed demo agents")
		usersF  = flag.Bool("users", false, "Seed the administrator account")
		file    = flag.String("file", "", "External agent seed file, .json or .yaml (overrides embedded)")
		migrate = flag.Bool("migrate", false, "Apply schema migrations before seeding")
		list    = flag.Bool("list", false, "List available seeders")
	)
	flag.Parse()

	if *list {
		fmt.Println("Available seeders:")
		for _, s := range listSeeders() {
			fmt.Printf("  - %s: %s\n", s.Name(), s.Description())
		}
		return
	}

	var names []string
	switch {
	case *all:
		for _, s := range listSeeders() {
			names = append(names, s.Name())
		}
	default:
		if *usersF {
			names = append(names, "users")
		}
		if *agentsF {
			names = append(names, "agents")
		}
	}

	if len(names) == 0 {
		fmt.Println("usage: seed [-all|-users|-agents] [-file <path>] [-migrate] [-list]")
		flag.PrintDefaults()
		return
	}

	if *file != "" {
		if s, ok := getSeeder("agents"); ok {
			s.(*AgentSeeder).SetFile(*file)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if *migrate {
		if err := database.Migrate(&cfg.Database, migrations.FS, "."); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
	}

	db, err := sql.Open("pgx", cfg.Database.Dsn())
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := runSeeders(context.Background(), db, names...); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	fmt.Println("seeding completed successfully")
}
