// Package cache holds short-lived admin permission grants so that every
// admin request does not re-query the user's role and status.
package cache

import (
	"sync"
	"time"

	"portalx/internal/admin/models"
)

// DefaultTTL bounds how long a revoked admin can keep acting on a cached
// grant.
const DefaultTTL = 10 * time.Minute

// GrantCache is a TTL map from admin user id to permission grant.
type GrantCache struct {
	mu     sync.Mutex
	grants map[int64]*models.Grant
	ttl    time.Duration
	clock  func() time.Time
}

type Option func(*GrantCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *GrantCache) { c.ttl = ttl }
}

// WithClock overrides the time source for tests.
func WithClock(clock func() time.Time) Option {
	return func(c *GrantCache) { c.clock = clock }
}

func New(opts ...Option) *GrantCache {
	c := &GrantCache{
		grants: make(map[int64]*models.Grant),
		ttl:    DefaultTTL,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the grant for a user if present and not expired.
func (c *GrantCache) Get(userID int64) (*models.Grant, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	grant, ok := c.grants[userID]
	if !ok {
		return nil, false
	}
	if !c.clock().Before(grant.ExpiresAt) {
		delete(c.grants, userID)
		return nil, false
	}
	clone := *grant
	return &clone, true
}

// Set caches a grant with the configured TTL.
func (c *GrantCache) Set(userID int64, permissions models.PermissionSet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.grants[userID] = &models.Grant{
		UserID:      userID,
		Permissions: permissions,
		ExpiresAt:   c.clock().Add(c.ttl),
	}
}

// Invalidate drops the grant for one user (role change, block).
func (c *GrantCache) Invalidate(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.grants, userID)
}

// InvalidateAll clears every grant.
func (c *GrantCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grants = make(map[int64]*models.Grant)
}
