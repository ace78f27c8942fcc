// Package service implements the admin moderation operations: account
// approval, blocking, deletion and platform statistics.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"portalx/internal/admin/cache"
	authcache "portalx/internal/auth/cache"
	authmodels "portalx/internal/auth/models"
	authstore "portalx/internal/auth/store"
	dErrors "portalx/pkg/domain-errors"
	"portalx/pkg/platform/sentinel"
)

const maxBulkSize = 100

// StatsProvider aggregates channel counts for the dashboard.
type StatsProvider interface {
	PlatformStats(ctx context.Context) (map[string]int64, error)
}

type Service struct {
	users  authstore.Store
	tokens *authcache.TokenCache
	grants *cache.GrantCache
	stats  StatsProvider
	logger *slog.Logger
}

type Option func(*Service)

// WithStatsProvider enables channel aggregates in the stats response.
func WithStatsProvider(p StatsProvider) Option {
	return func(s *Service) { s.stats = p }
}

func New(users authstore.Store, tokens *authcache.TokenCache, grants *cache.GrantCache, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		users:  users,
		tokens: tokens,
		grants: grants,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ApproveUser activates a pending account.
func (s *Service) ApproveUser(ctx context.Context, adminID, userID int64) error {
	return s.setStatus(ctx, adminID, userID, authmodels.StatusActive)
}

// RejectUser blocks an account. Any cached identity or admin grant for the
// user is dropped immediately so revocation takes effect on the next
// request, not at cache expiry.
func (s *Service) RejectUser(ctx context.Context, adminID, userID int64) error {
	return s.setStatus(ctx, adminID, userID, authmodels.StatusBlocked)
}

func (s *Service) setStatus(ctx context.Context, adminID, userID int64, status string) error {
	if userID == adminID {
		return dErrors.New(dErrors.CodeBadRequest, "cannot change your own account status")
	}
	if err := s.users.UpdateStatus(ctx, userID, status); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return fmt.Errorf("update user status: %w", err)
	}

	s.tokens.Invalidate(userID)
	s.grants.Invalidate(userID)

	s.logger.Info("user status changed",
		"admin_id", adminID,
		"user_id", userID,
		"status", status,
	)
	return nil
}

// DeleteUser removes an account entirely.
func (s *Service) DeleteUser(ctx context.Context, adminID, userID int64) error {
	if userID == adminID {
		return dErrors.New(dErrors.CodeBadRequest, "cannot delete your own account")
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return fmt.Errorf("delete user: %w", err)
	}

	s.tokens.Invalidate(userID)
	s.grants.Invalidate(userID)

	s.logger.Info("user deleted", "admin_id", adminID, "user_id", userID)
	return nil
}

// BulkSetStatus applies a status change to several accounts at once. The
// batch is bounded and the admin's own account is skipped, not errored, so
// one bad id does not fail the rest.
func (s *Service) BulkSetStatus(ctx context.Context, adminID int64, userIDs []int64, status string) (int, error) {
	if status != authmodels.StatusActive && status != authmodels.StatusBlocked {
		return 0, dErrors.New(dErrors.CodeBadRequest, "status must be active or blocked")
	}
	if len(userIDs) == 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "no user ids given")
	}
	if len(userIDs) > maxBulkSize {
		return 0, dErrors.Newf(dErrors.CodeBadRequest, "at most %d users per bulk action", maxBulkSize)
	}

	updated := 0
	for _, id := range userIDs {
		if id == adminID {
			continue
		}
		if err := s.users.UpdateStatus(ctx, id, status); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return updated, fmt.Errorf("bulk update status: %w", err)
		}
		s.tokens.Invalidate(id)
		s.grants.Invalidate(id)
		updated++
	}

	s.logger.Info("bulk status change",
		"admin_id", adminID,
		"status", status,
		"requested", len(userIDs),
		"updated", updated,
	)
	return updated, nil
}

// ListUsers returns accounts for the moderation view.
func (s *Service) ListUsers(ctx context.Context, filter authmodels.ListFilter) ([]*authmodels.User, error) {
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// PlatformStats aggregates account counts by status, plus channel aggregates
// when a provider is wired.
func (s *Service) PlatformStats(ctx context.Context) (map[string]int64, error) {
	stats := make(map[string]int64)
	for _, status := range []string{authmodels.StatusPending, authmodels.StatusActive, authmodels.StatusBlocked} {
		users, err := s.users.List(ctx, authmodels.ListFilter{Status: status})
		if err != nil {
			return nil, fmt.Errorf("count users: %w", err)
		}
		stats["users_"+status] = int64(len(users))
	}

	if s.stats != nil {
		channelStats, err := s.stats.PlatformStats(ctx)
		if err != nil {
			s.logger.Warn("failed to load channel stats", "error", err)
		} else {
			for k, v := range channelStats {
				stats[k] = v
			}
		}
	}
	return stats, nil
}
