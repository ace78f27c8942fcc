package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"portalx/internal/channels/models"
	"portalx/pkg/platform/sentinel"
)

// InMemoryStore is a map-backed Store for tests and demo mode.
type InMemoryStore struct {
	mu       sync.Mutex
	channels map[int64]*models.Channel
	nextID   int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		channels: make(map[int64]*models.Channel),
		nextID:   1,
	}
}

func (s *InMemoryStore) Create(_ context.Context, channel *models.Channel) (*models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *channel
	stored.ID = s.nextID
	s.nextID++
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.channels[stored.ID] = &stored

	clone := stored
	return &clone, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id int64) (*models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.channels[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (s *InMemoryStore) List(_ context.Context, filter models.ListFilter) ([]*models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Channel
	for _, c := range s.channels {
		if !matches(c, filter) {
			continue
		}
		clone := *c
		out = append(out, &clone)
	}

	sortChannels(out, filter.Sort, filter.Order)

	if filter.Limit > 0 {
		start := (filter.Page - 1) * filter.Limit
		if start < 0 {
			start = 0
		}
		if start >= len(out) {
			return nil, nil
		}
		end := min(start+filter.Limit, len(out))
		out = out[start:end]
	}
	return out, nil
}

func matches(c *models.Channel, f models.ListFilter) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Category != "" && c.Category != f.Category {
		return false
	}
	if f.State != "" && c.State != f.State {
		return false
	}
	if f.UserID != 0 && c.UserID != f.UserID {
		return false
	}
	if f.Premium != nil && c.IsPremium != *f.Premium {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(c.Name), needle) &&
			!strings.Contains(strings.ToLower(c.Description), needle) {
			return false
		}
	}
	return true
}

func sortChannels(channels []*models.Channel, sortBy, order string) {
	less := func(a, b *models.Channel) bool {
		switch sortBy {
		case "views":
			return a.Views < b.Views
		case "created_at":
			return a.CreatedAt.Before(b.CreatedAt)
		case "updated_at":
			return a.UpdatedAt.Before(b.UpdatedAt)
		default:
			return a.Members < b.Members
		}
	}
	sort.SliceStable(channels, func(i, j int) bool {
		if order == "asc" {
			return less(channels[i], channels[j])
		}
		return less(channels[j], channels[i])
	})
}

func (s *InMemoryStore) CountByUser(_ context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, c := range s.channels {
		if c.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.channels[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) BulkUpdateStatus(_ context.Context, ids []int64, status string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated int64
	now := time.Now()
	for _, id := range ids {
		c, ok := s.channels[id]
		if !ok {
			continue
		}
		c.Status = status
		c.UpdatedAt = now
		updated++
	}
	return updated, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.channels[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.channels, id)
	return nil
}

func (s *InMemoryStore) IncrementClicks(_ context.Context, id int64) error {
	return s.increment(id, func(c *models.Channel) { c.Clicks++ })
}

func (s *InMemoryStore) IncrementViews(_ context.Context, id int64) error {
	return s.increment(id, func(c *models.Channel) { c.Views++ })
}

func (s *InMemoryStore) increment(id int64, apply func(*models.Channel)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.channels[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	apply(c)
	return nil
}

func (s *InMemoryStore) UserTotals(_ context.Context, userID int64) (int64, int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var channels, members, views int64
	for _, c := range s.channels {
		if c.UserID == userID && c.Status == models.StatusActive {
			channels++
			members += c.Members
			views += c.Views
		}
	}
	return channels, members, views, nil
}

func (s *InMemoryStore) PlatformTotals(_ context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := map[string]int64{
		"channels_pending":  0,
		"channels_active":   0,
		"channels_rejected": 0,
	}
	for _, c := range s.channels {
		totals["channels_"+c.Status]++
	}
	return totals, nil
}
