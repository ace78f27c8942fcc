// Package store persists access audit records.
package store

import (
	"context"

	"portalx/internal/audit/models"
)

// Store is the audit persistence contract. Records are append-only.
type Store interface {
	Insert(ctx context.Context, record *models.Record) error
	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]*models.Record, error)
}
