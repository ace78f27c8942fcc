// Package store defines the persistence contract for user accounts and
// password resets.
package store

import (
	"context"
	"time"

	"portalx/internal/auth/models"
)

// Store is the account persistence contract. Implementations return
// sentinel.ErrNotFound for missing rows and sentinel.ErrConflict for
// uniqueness violations; services translate those into domain errors.
type Store interface {
	// Create inserts a new user and returns the stored row with its
	// assigned id and timestamps.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// FindByEmail returns the user for an email, any status.
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindByID returns the user for an id, any status.
	FindByID(ctx context.Context, id int64) (*models.User, error)

	// FindActiveByID returns the user only when its status is active.
	// A user that exists but is pending or blocked is ErrNotFound: gates
	// must not distinguish "no such account" from "account not usable".
	FindActiveByID(ctx context.Context, id int64) (*models.User, error)

	// FindByReferralCode returns the user owning a referral code.
	FindByReferralCode(ctx context.Context, code string) (*models.User, error)

	// List returns users matching the filter, newest first.
	List(ctx context.Context, filter models.ListFilter) ([]*models.User, error)

	// UpdateStatus sets a user's status.
	UpdateStatus(ctx context.Context, id int64, status string) error

	// UpdatePassword replaces a user's password hash.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// TouchLogin bumps the user's updated_at after a successful login.
	TouchLogin(ctx context.Context, id int64) error

	// Delete removes a user.
	Delete(ctx context.Context, id int64) error

	// SaveResetToken stores a password reset token for a user, replacing
	// any pending one.
	SaveResetToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error

	// ConsumeResetToken atomically looks up a non-expired reset token,
	// deletes it and returns the owning user id. Expired or unknown tokens
	// are ErrNotFound.
	ConsumeResetToken(ctx context.Context, token string) (int64, error)
}
