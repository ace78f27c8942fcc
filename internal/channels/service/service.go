// Package service implements the channel directory: public listing,
// owner submissions and moderation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	authmodels "portalx/internal/auth/models"
	"portalx/internal/channels/models"
	"portalx/internal/channels/store"
	dErrors "portalx/pkg/domain-errors"
	"portalx/pkg/platform/sentinel"
)

const (
	minNameLength = 3

	userChannelLimit  = 10
	adminChannelLimit = 100

	defaultPageSize = 20
	maxPageSize     = 100
)

// Service handles channel listing and lifecycle operations.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

func New(st store.Store, logger *slog.Logger) *Service {
	return &Service{store: st, logger: logger}
}

// SubmitInput carries a new channel submission.
type SubmitInput struct {
	Name        string `json:"name"`
	Link        string `json:"link"`
	Category    string `json:"category"`
	State       string `json:"state"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	BotLink     string `json:"botLink"`
	IsPremium   bool   `json:"isPremium"`
}

// Submit validates and stores a new channel. Submissions always start
// pending; admins hold a higher per-account channel cap than regular users.
func (s *Service) Submit(ctx context.Context, owner authmodels.Identity, in SubmitInput) (*models.Channel, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Link = strings.TrimSpace(in.Link)
	in.Category = strings.TrimSpace(in.Category)

	if len(in.Name) < minNameLength {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "channel name must be at least %d characters", minNameLength)
	}
	if !models.ValidTelegramLink(in.Link) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "link must be a valid t.me address")
	}
	if in.Category == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "category is required")
	}

	limit := userChannelLimit
	if owner.IsAdmin {
		limit = adminChannelLimit
	}
	count, err := s.store.CountByUser(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("count channels: %w", err)
	}
	if count >= limit {
		return nil, dErrors.Newf(dErrors.CodeForbidden, "channel limit of %d reached", limit)
	}

	channel, err := s.store.Create(ctx, &models.Channel{
		Name:        in.Name,
		Link:        in.Link,
		TelegramID:  models.ExtractTelegramID(in.Link),
		Category:    in.Category,
		State:       strings.TrimSpace(in.State),
		Description: strings.TrimSpace(in.Description),
		ImageURL:    strings.TrimSpace(in.ImageURL),
		BotLink:     strings.TrimSpace(in.BotLink),
		UserID:      owner.ID,
		IsPremium:   in.IsPremium,
		Status:      models.StatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}

	s.logger.Info("channel submitted", "channel_id", channel.ID, "user_id", owner.ID)
	return channel, nil
}

// List returns a page of channels. Unknown sort columns fall back to
// members, descending.
func (s *Service) List(ctx context.Context, filter models.ListFilter) ([]*models.Channel, error) {
	if !models.ValidSorts[filter.Sort] {
		filter.Sort = "members"
	}
	if filter.Order != "asc" {
		filter.Order = "desc"
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}

	channels, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return channels, nil
}

// Get returns a single channel and counts the lookup as a click when the
// channel is live. Non-active channels are visible only to their owner and
// to admins; everyone else gets a not-found.
func (s *Service) Get(ctx context.Context, viewer authmodels.Identity, id int64) (*models.Channel, error) {
	channel, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "channel not found")
		}
		return nil, fmt.Errorf("find channel: %w", err)
	}
	if channel.Status != models.StatusActive {
		if channel.UserID != viewer.ID && !viewer.IsAdmin {
			return nil, dErrors.New(dErrors.CodeNotFound, "channel not found")
		}
		return channel, nil
	}

	if err := s.store.IncrementClicks(ctx, id); err != nil {
		// Click counting is best effort.
		s.logger.Warn("failed to count channel click", "channel_id", id, "error", err)
	} else {
		channel.Clicks++
	}
	return channel, nil
}

// RecordView bumps the view counter for a live channel.
func (s *Service) RecordView(ctx context.Context, id int64) error {
	channel, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "channel not found")
		}
		return fmt.Errorf("find channel: %w", err)
	}
	if channel.Status != models.StatusActive {
		return dErrors.New(dErrors.CodeNotFound, "channel not found")
	}
	if err := s.store.IncrementViews(ctx, id); err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return nil
}

// Delete removes a channel. Only the owner or an admin may delete it.
func (s *Service) Delete(ctx context.Context, actor authmodels.Identity, id int64) error {
	channel, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "channel not found")
		}
		return fmt.Errorf("find channel: %w", err)
	}
	if channel.UserID != actor.ID && !actor.IsAdmin {
		return dErrors.New(dErrors.CodeForbidden, "only the channel owner may delete it")
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "channel not found")
		}
		return fmt.Errorf("delete channel: %w", err)
	}

	s.logger.Info("channel deleted", "channel_id", id, "actor_id", actor.ID)
	return nil
}

// SetStatus moves a channel between pending, active and rejected. Intended
// for moderation; callers gate it behind admin access.
func (s *Service) SetStatus(ctx context.Context, id int64, status string) error {
	switch status {
	case models.StatusPending, models.StatusActive, models.StatusRejected:
	default:
		return dErrors.Newf(dErrors.CodeBadRequest, "invalid channel status %q", status)
	}

	if err := s.store.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "channel not found")
		}
		return fmt.Errorf("update channel status: %w", err)
	}

	s.logger.Info("channel status changed", "channel_id", id, "status", status)
	return nil
}

// BulkSetStatus moves several channels at once. Ids that no longer exist are
// skipped; the returned count covers only the channels actually changed.
func (s *Service) BulkSetStatus(ctx context.Context, ids []int64, status string) (int, error) {
	switch status {
	case models.StatusPending, models.StatusActive, models.StatusRejected:
	default:
		return 0, dErrors.Newf(dErrors.CodeBadRequest, "invalid channel status %q", status)
	}
	if len(ids) == 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "channel ids are required")
	}

	updated, err := s.store.BulkUpdateStatus(ctx, ids, status)
	if err != nil {
		return 0, fmt.Errorf("bulk update channel status: %w", err)
	}

	s.logger.Info("channels bulk status change", "count", updated, "status", status)
	return int(updated), nil
}

// Mine lists every channel owned by the user, regardless of status.
func (s *Service) Mine(ctx context.Context, userID int64) ([]*models.Channel, error) {
	channels, err := s.store.List(ctx, models.ListFilter{
		UserID: userID,
		Sort:   "created_at",
		Order:  "desc",
	})
	if err != nil {
		return nil, fmt.Errorf("list user channels: %w", err)
	}
	return channels, nil
}

// UserTotals sums the user's live channels, members and views.
func (s *Service) UserTotals(ctx context.Context, userID int64) (channels, members, views int64, err error) {
	channels, members, views, err = s.store.UserTotals(ctx, userID)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("user channel totals: %w", err)
	}
	return channels, members, views, nil
}

// PlatformStats counts channels by status for the admin dashboard.
func (s *Service) PlatformStats(ctx context.Context) (map[string]int64, error) {
	totals, err := s.store.PlatformTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("platform channel totals: %w", err)
	}
	return totals, nil
}
