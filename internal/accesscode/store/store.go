// Package store persists pre-authentication access sessions.
package store

import (
	"context"

	"portalx/internal/accesscode/models"
)

// Store is the access-session persistence contract. Find returns
// sentinel.ErrNotFound for an unknown token and sentinel.ErrExpired for one
// past its expiry.
type Store interface {
	Insert(ctx context.Context, session *models.Session) error
	Find(ctx context.Context, token, accessType string) (*models.Session, error)
}
