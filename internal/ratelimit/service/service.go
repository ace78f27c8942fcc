// Package service implements admission control: it decides whether a request
// fits inside its sliding-window quota. The limiter is protective, not
// correctness-critical, so any store failure fails open.
package service

import (
	"context"
	"log/slog"
	"time"

	"portalx/internal/ratelimit/config"
	"portalx/internal/ratelimit/metrics"
	"portalx/internal/ratelimit/models"
)

// WindowStore is the persistence contract for sliding-window counters.
type WindowStore interface {
	// Increment records an attempt and returns the in-window count
	// including this one.
	Increment(ctx context.Context, key string, window time.Duration) (int, error)
	// RetractLast removes the most recent timestamp for key.
	RetractLast(ctx context.Context, key string) error
	// Reset clears the counter for key.
	Reset(ctx context.Context, key string) error
}

type Service struct {
	store   WindowStore
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithConfig(cfg *config.Config) Option {
	return func(s *Service) { s.cfg = cfg }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store WindowStore, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		cfg:    config.Default(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check records a request attempt for (ip, route) and decides admission
// against the class quota. Store errors are logged and the request admitted:
// rate limiting never blocks traffic on its own failure.
func (s *Service) Check(ctx context.Context, ip, route string, class models.RouteClass) *models.Result {
	limit, ok := s.cfg.ClassLimit(class)
	if !ok {
		// Unknown class means a wiring bug; admit and complain loudly.
		s.logger.Error("no rate limit configured for class", "class", class)
		return &models.Result{Allowed: true}
	}
	res := s.check(ctx, models.ClientKey(ip, route), limit, string(class))
	if !res.Allowed && s.metrics != nil {
		s.metrics.RecordRejection(string(class))
	}
	return res
}

// MarkSuccess retracts the most recent attempt for (ip, route) when the
// class runs in skip-successful mode. Called after the response completes
// with a success status so only failed attempts consume the auth quota.
func (s *Service) MarkSuccess(ctx context.Context, ip, route string, class models.RouteClass) {
	limit, ok := s.cfg.ClassLimit(class)
	if !ok || !limit.SkipSuccessful {
		return
	}
	if err := s.store.RetractLast(ctx, models.ClientKey(ip, route)); err != nil {
		s.logger.Warn("failed to retract successful request", "class", class, "error", err)
	}
}

// CheckAdminAction records an attempt for (admin, action) against the
// per-action quota. Independent of the per-IP limiter: it protects against a
// single authenticated admin's scripting or misclick storms.
func (s *Service) CheckAdminAction(ctx context.Context, adminID int64, action models.AdminAction) *models.Result {
	limit, ok := s.cfg.AdminLimit(action)
	if !ok {
		s.logger.Error("no rate limit configured for admin action", "action", action)
		return &models.Result{Allowed: true}
	}
	res := s.check(ctx, models.AdminKey(adminID, action), limit, "admin:"+string(action))
	if !res.Allowed && s.metrics != nil {
		s.metrics.RecordAdminRejection(string(action))
	}
	return res
}

// Reset clears the counter for one (ip, route) pair. Intended for tests and
// operational unblocking.
func (s *Service) Reset(ctx context.Context, ip, route string) error {
	return s.store.Reset(ctx, models.ClientKey(ip, route))
}

func (s *Service) check(ctx context.Context, key string, limit config.Limit, label string) *models.Result {
	count, err := s.store.Increment(ctx, key, limit.Window)
	if err != nil {
		s.logger.Error("window store failure, admitting request", "key_class", label, "error", err)
		if s.metrics != nil {
			s.metrics.RecordStoreFailure()
		}
		return &models.Result{Allowed: true, Limit: limit.Max, Remaining: limit.Max}
	}

	remaining := limit.Max - count
	if remaining < 0 {
		remaining = 0
	}

	res := &models.Result{
		Allowed:   count <= limit.Max,
		Limit:     limit.Max,
		Remaining: remaining,
		ResetAt:   time.Now().Add(limit.Window),
		Message:   limit.Message,
	}
	if !res.Allowed {
		res.RetryAfter = int(limit.Window.Seconds())
	}
	return res
}
