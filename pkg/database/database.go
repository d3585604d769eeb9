// Package database opens and supervises the PostgreSQL connection pool.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/TAPUZE/project-chimera/pkg/lifecycle"
)

// ErrNotReady indicates the connection has not been verified yet.
var ErrNotReady = errors.New("database not ready")

// System exposes the shared connection pool and its readiness.
type System interface {
	Connection() *sql.DB
	Start(lc *lifecycle.Coordinator) error
	Ready() bool
}

type database struct {
	conn   *sql.DB
	cfg    *Config
	logger *slog.Logger
	ready  bool
}

// New opens the pool using the pgx stdlib driver. The connection is not
// verified until Start.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	conn, err := sql.Open("pgx", cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &database{
		conn:   conn,
		cfg:    cfg,
		logger: logger.With("system", "database"),
	}, nil
}

func (d *database) Connection() *sql.DB {
	return d.conn
}

func (d *database) Ready() bool {
	return d.ready
}

// Start pings the database within the configured connection timeout and
// registers the pool close on shutdown.
func (d *database) Start(lc *lifecycle.Coordinator) error {
	ctx, cancel := context.WithTimeout(lc.Context(), d.cfg.ConnTimeoutDuration())
	defer cancel()

	if err := d.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	d.ready = true

	d.logger.Info(
		"database connected",
		"host", d.cfg.Host,
		"port", d.cfg.Port,
		"name", d.cfg.Name,
	)

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		if err := d.conn.Close(); err != nil {
			d.logger.Error("database close failed", "error", err)
			return
		}
		d.logger.Info("database connection closed")
	})

	return nil
}
