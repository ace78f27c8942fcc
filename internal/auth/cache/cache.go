// Package cache memoizes bearer-token-to-identity resolutions so that every
// authenticated request does not cost a database round trip.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"portalx/internal/auth/models"
)

const (
	// DefaultCapacity bounds the entry count; the oldest-inserted entry is
	// evicted when full.
	DefaultCapacity = 1000
	// DefaultTTL is measured from insertion, not last access.
	DefaultTTL = 5 * time.Minute
)

type entry struct {
	token     string
	identity  models.Identity
	expiresAt time.Time
}

// TokenCache is a bounded TTL cache from bearer token to resolved identity.
//
// Eviction is insertion-order (oldest entry first), an approximation of LRU
// kept deliberately simple: entries live at most DefaultTTL anyway, so strict
// recency tracking buys little. Safe for concurrent use.
type TokenCache struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List // front = oldest insertion
	capacity int
	ttl      time.Duration
	clock    func() time.Time
}

type Option func(*TokenCache)

func WithCapacity(n int) Option {
	return func(c *TokenCache) { c.capacity = n }
}

func WithTTL(ttl time.Duration) Option {
	return func(c *TokenCache) { c.ttl = ttl }
}

// WithClock overrides the time source for tests.
func WithClock(clock func() time.Time) Option {
	return func(c *TokenCache) { c.clock = clock }
}

func New(opts ...Option) *TokenCache {
	c := &TokenCache{
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		capacity: DefaultCapacity,
		ttl:      DefaultTTL,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached identity for a token if present and not expired.
// Expired entries are removed on access.
func (c *TokenCache) Get(token string) (models.Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[token]
	if !ok {
		return models.Identity{}, false
	}
	e := el.Value.(*entry)
	if !c.clock().Before(e.expiresAt) {
		c.remove(el)
		return models.Identity{}, false
	}
	return e.identity, true
}

// Set inserts or overwrites the entry for a token. At capacity, the
// oldest-inserted entry is evicted first. Overwriting counts as a fresh
// insertion for both TTL and eviction order.
func (c *TokenCache) Set(token string, identity models.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[token]; ok {
		c.remove(el)
	}
	for c.order.Len() >= c.capacity {
		c.remove(c.order.Front())
	}

	el := c.order.PushBack(&entry{
		token:     token,
		identity:  identity,
		expiresAt: c.clock().Add(c.ttl),
	})
	c.entries[token] = el
}

// Invalidate removes every entry whose identity matches the given user id.
// Used on logout and password change: the user may hold several tokens.
func (c *TokenCache) Invalidate(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var next *list.Element
	for el := c.order.Front(); el != nil; el = next {
		next = el.Next()
		if el.Value.(*entry).identity.ID == userID {
			c.remove(el)
		}
	}
}

// InvalidateAll clears the cache entirely (global logout).
func (c *TokenCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Len reports the current entry count, expired entries included.
func (c *TokenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Sweep removes all expired entries regardless of access pattern.
func (c *TokenCache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	var next *list.Element
	for el := c.order.Front(); el != nil; el = next {
		next = el.Next()
		if !now.Before(el.Value.(*entry).expiresAt) {
			c.remove(el)
		}
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (c *TokenCache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// remove must be called with the mutex held.
func (c *TokenCache) remove(el *list.Element) {
	delete(c.entries, el.Value.(*entry).token)
	c.order.Remove(el)
}
