package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"portalx/internal/auth/models"
	"portalx/pkg/platform/sentinel"
)

// InMemoryStore is a map-backed Store for tests and demo mode.
type InMemoryStore struct {
	mu     sync.Mutex
	users  map[int64]*models.User
	resets map[string]*models.PasswordReset // keyed by token
	nextID int64
	clock  func() time.Time
}

type InMemoryOption func(*InMemoryStore)

// WithClock overrides the time source for tests.
func WithClock(clock func() time.Time) InMemoryOption {
	return func(s *InMemoryStore) { s.clock = clock }
}

func NewInMemoryStore(opts ...InMemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		users:  make(map[int64]*models.User),
		resets: make(map[string]*models.PasswordReset),
		nextID: 1,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Create(_ context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return nil, sentinel.ErrConflict
		}
	}

	stored := *user
	stored.ID = s.nextID
	s.nextID++
	now := s.clock()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.users[stored.ID] = &stored

	clone := stored
	return &clone, nil
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *InMemoryStore) FindActiveByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || u.Status != models.StatusActive {
		return nil, sentinel.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *InMemoryStore) FindByReferralCode(_ context.Context, code string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.ReferralCode == code {
			clone := *u
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context, filter models.ListFilter) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.User
	for _, u := range s.users {
		if filter.Status != "" && u.Status != filter.Status {
			continue
		}
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		clone := *u
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	u.Status = status
	u.UpdatedAt = s.clock()
	return nil
}

func (s *InMemoryStore) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = s.clock()
	return nil
}

func (s *InMemoryStore) TouchLogin(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	u.UpdatedAt = s.clock()
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *InMemoryStore) SaveResetToken(_ context.Context, userID int64, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// One pending reset per user: drop any previous token.
	for t, r := range s.resets {
		if r.UserID == userID {
			delete(s.resets, t)
		}
	}
	s.resets[token] = &models.PasswordReset{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: s.clock(),
	}
	return nil
}

func (s *InMemoryStore) ConsumeResetToken(_ context.Context, token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.resets[token]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	delete(s.resets, token)
	if s.clock().After(r.ExpiresAt) {
		return 0, sentinel.ErrNotFound
	}
	return r.UserID, nil
}
