package store

import (
	"context"
	"sync"
	"time"

	"portalx/internal/audit/models"
)

// InMemoryStore keeps audit records in a slice, for tests and demo mode.
type InMemoryStore struct {
	mu      sync.Mutex
	records []*models.Record
	nextID  int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1}
}

func (s *InMemoryStore) Insert(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *record
	stored.ID = s.nextID
	s.nextID++
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.records = append(s.records, &stored)
	return nil
}

func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Record, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		clone := *s.records[i]
		out = append(out, &clone)
	}
	return out, nil
}
