// Package postgres owns the database connections. The row stores (users,
// channels, access sessions) share a pgx pool; the audit store uses a
// separate database/sql handle so its best-effort writes never compete with
// request-path queries for pool slots.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
)

// Client bundles the two database handles.
type Client struct {
	Pool  *pgxpool.Pool
	Audit *sql.DB
}

// New connects to Postgres and verifies the connection. Returns nil if the
// URL is empty (store-less dev mode with in-memory backends).
func New(ctx context.Context, databaseURL string, timeout time.Duration) (*Client, error) {
	if databaseURL == "" {
		return nil, nil
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	cfg.ConnConfig.ConnectTimeout = timeout

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	auditDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("open audit connection: %w", err)
	}
	auditDB.SetMaxOpenConns(4)
	auditDB.SetConnMaxIdleTime(time.Minute)

	return &Client{Pool: pool, Audit: auditDB}, nil
}

// Health checks both handles.
func (c *Client) Health(ctx context.Context) error {
	if err := c.Pool.Ping(ctx); err != nil {
		return err
	}
	return c.Audit.PingContext(ctx)
}

// Close releases both handles.
func (c *Client) Close() {
	c.Pool.Close()
	_ = c.Audit.Close()
}
