package store

import (
	"context"
	"sync"
	"time"

	"portalx/internal/accesscode/models"
	"portalx/pkg/platform/sentinel"
)

// InMemoryStore keeps access sessions in a map, for tests and demo mode.
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	clock    func() time.Time
}

type InMemoryOption func(*InMemoryStore)

// WithClock overrides the time source for tests.
func WithClock(clock func() time.Time) InMemoryOption {
	return func(s *InMemoryStore) { s.clock = clock }
}

func NewInMemoryStore(opts ...InMemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		sessions: make(map[string]*models.Session),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Insert(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *session
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.clock()
	}
	s.sessions[stored.Token] = &stored
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, token, accessType string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok || session.AccessType != accessType {
		return nil, sentinel.ErrNotFound
	}
	if !s.clock().Before(session.ExpiresAt) {
		delete(s.sessions, token)
		return nil, sentinel.ErrExpired
	}
	clone := *session
	return &clone, nil
}
