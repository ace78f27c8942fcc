//go:build integration

// Package containers starts throwaway backing services for integration
// tests. Containers are terminated through t.Cleanup.
package containers

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// PostgresContainer wraps a disposable Postgres with the project schema
// applied. Pool serves the row stores; DB serves the audit store.
type PostgresContainer struct {
	URL  string
	Pool *pgxpool.Pool
	DB   *sql.DB
}

// NewPostgresContainer starts Postgres and applies migrations/001_init.sql.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("portalx_test"),
		tcpostgres.WithUsername("portalx"),
		tcpostgres.WithPassword("portalx"),
		tcpostgres.WithInitScripts(filepath.Join(repoRoot(t), "migrations", "001_init.sql")),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("create pgx pool: %v", err)
	}
	t.Cleanup(pool.Close)

	db, err := sql.Open("postgres", url)
	if err != nil {
		t.Fatalf("open database/sql handle: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	db.SetConnMaxIdleTime(time.Minute)

	return &PostgresContainer{URL: url, Pool: pool, DB: db}
}

// TruncateTables clears the named tables between tests.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if _, err := p.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return err
		}
	}
	return nil
}

// repoRoot walks up from the package directory to the module root so init
// scripts resolve regardless of which package runs the test.
func repoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("go.mod not found above test directory")
		}
		dir = parent
	}
}
