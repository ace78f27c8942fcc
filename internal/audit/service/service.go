// Package service records authorization decisions. Auditing is best-effort
// observability: a write failure is logged and swallowed, never surfaced to
// the request that triggered it.
package service

import (
	"context"
	"log/slog"

	"portalx/internal/audit/models"
	"portalx/internal/audit/store"
)

// Publisher streams records to an external sink after they are persisted.
type Publisher interface {
	Publish(ctx context.Context, record *models.Record)
}

type Service struct {
	store     store.Store
	publisher Publisher
	logger    *slog.Logger
}

type Option func(*Service)

// WithPublisher adds a streaming sink alongside the persistent store.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func New(st store.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  st,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record persists an audit record. The raw User-Agent is summarized before
// storage. Failures are logged only.
func (s *Service) Record(ctx context.Context, record models.Record) {
	record.UserAgent = models.SummarizeUserAgent(record.UserAgent)

	if err := s.store.Insert(ctx, &record); err != nil {
		s.logger.Error("failed to write audit record",
			"action", record.Action,
			"error", err,
		)
	}
	if s.publisher != nil {
		s.publisher.Publish(ctx, &record)
	}
}

// ListRecent returns the newest records for the admin activity view.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]*models.Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ListRecent(ctx, limit)
}
