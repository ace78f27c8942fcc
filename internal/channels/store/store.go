// Package store persists channel listings.
package store

import (
	"context"

	"portalx/internal/channels/models"
)

// Store is the channel persistence contract. Missing rows are
// sentinel.ErrNotFound.
type Store interface {
	Create(ctx context.Context, channel *models.Channel) (*models.Channel, error)
	FindByID(ctx context.Context, id int64) (*models.Channel, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Channel, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	// BulkUpdateStatus updates every listed channel that exists and returns
	// the number of rows changed. Missing ids are skipped, not errors.
	BulkUpdateStatus(ctx context.Context, ids []int64, status string) (int64, error)
	Delete(ctx context.Context, id int64) error
	IncrementClicks(ctx context.Context, id int64) error
	IncrementViews(ctx context.Context, id int64) error
	// UserTotals sums channels, members and views over a user's active
	// channels.
	UserTotals(ctx context.Context, userID int64) (channels, members, views int64, err error)
	// PlatformTotals counts channels by status.
	PlatformTotals(ctx context.Context) (map[string]int64, error)
}
