// Package postgres stores character documents in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/realm/internal/config"
)

// applicationName tags the server's sessions in pg_stat_activity.
const applicationName = "realm-gameserver"

// Pool owns the pgx connection pool shared by the character store.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool opens a pool sized by cfg and verifies the server answers.
//
// Precondition: cfg must contain valid database connection parameters.
// Postcondition: Returns a connected Pool or a non-nil error; nothing is left
// open on error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = applicationName

	db, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &Pool{pool: db}, nil
}

// Health pings the database, failing when it does not answer within timeout.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("database health: %w", err)
	}
	return nil
}

// InUse reports acquired and total connections.
func (p *Pool) InUse() (acquired, total int32) {
	s := p.pool.Stat()
	return s.AcquiredConns(), s.TotalConns()
}

// Close releases all pool resources.
func (p *Pool) Close() { p.pool.Close() }

// DB returns the underlying pgxpool.Pool.
func (p *Pool) DB() *pgxpool.Pool { return p.pool }
