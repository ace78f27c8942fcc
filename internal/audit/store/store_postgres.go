package store

import (
	"context"
	"database/sql"
	"fmt"

	"portalx/internal/audit/models"
)

// PostgresStore appends audit records to the admin_access_logs table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, record *models.Record) error {
	query := `
		INSERT INTO admin_access_logs
			(user_id, action, ip_address, user_agent, path, method, attempted_code, success, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, NOW())`

	var actorID sql.NullInt64
	if record.ActorID != nil {
		actorID = sql.NullInt64{Int64: *record.ActorID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		actorID, record.Action, record.IPAddress, record.UserAgent,
		record.Path, record.Method, record.AttemptedCode, record.Success,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*models.Record, error) {
	query := `
		SELECT id, user_id, action, COALESCE(ip_address, ''), COALESCE(user_agent, ''),
			COALESCE(path, ''), COALESCE(method, ''), COALESCE(attempted_code, ''),
			success, created_at
		FROM admin_access_logs
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		var r models.Record
		var actorID sql.NullInt64
		err := rows.Scan(&r.ID, &actorID, &r.Action, &r.IPAddress, &r.UserAgent,
			&r.Path, &r.Method, &r.AttemptedCode, &r.Success, &r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		if actorID.Valid {
			r.ActorID = &actorID.Int64
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}
