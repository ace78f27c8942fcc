package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"portalx/internal/accesscode/models"
	"portalx/pkg/platform/sentinel"
)

// PostgresStore persists access sessions in the access_sessions table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO access_sessions (session_token, access_type, ip_address, user_agent, expires_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, query,
		session.Token, session.AccessType, session.IPAddress, session.UserAgent, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert access session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, token, accessType string) (*models.Session, error) {
	query := `
		SELECT session_token, access_type, COALESCE(ip_address, ''), COALESCE(user_agent, ''),
			expires_at, created_at
		FROM access_sessions
		WHERE session_token = $1 AND access_type = $2
		LIMIT 1`

	var session models.Session
	err := s.pool.QueryRow(ctx, query, token, accessType).Scan(
		&session.Token, &session.AccessType, &session.IPAddress, &session.UserAgent,
		&session.ExpiresAt, &session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find access session: %w", err)
	}
	if !time.Now().Before(session.ExpiresAt) {
		return nil, sentinel.ErrExpired
	}
	return &session, nil
}
