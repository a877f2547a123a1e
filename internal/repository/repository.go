// Package repository stores waitlist submissions in PostgreSQL.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the authoritative store for the artists_waitlist table.
type Repository struct {
	pool *pgxpool.Pool
}

// PoolOptions sizes the connection pool. Zero values keep the defaults.
type PoolOptions struct {
	MaxConns int32
	MinConns int32
}

// Intake traffic is a public form, so a small pool is enough.
const (
	defaultMaxConns int32 = 5
	defaultMinConns int32 = 1
)

// New connects to databaseURL and verifies the connection.
func New(ctx context.Context, databaseURL string, opts ...PoolOptions) (*Repository, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	applyPoolOptions(config, opts...)

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{pool: pool}, nil
}

func applyPoolOptions(config *pgxpool.Config, opts ...PoolOptions) {
	config.MaxConns = defaultMaxConns
	config.MinConns = defaultMinConns
	for _, o := range opts {
		if o.MaxConns > 0 {
			config.MaxConns = o.MaxConns
		}
		if o.MinConns > 0 {
			config.MinConns = o.MinConns
		}
	}
	if config.MinConns > config.MaxConns {
		config.MinConns = config.MaxConns
	}
}

// Ping checks database connectivity for /readyz.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying pool for test schema setup.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}
