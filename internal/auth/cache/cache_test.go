package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"portalx/internal/auth/models"
)

type TokenCacheSuite struct {
	suite.Suite
	cache *TokenCache
	now   time.Time
}

func TestTokenCacheSuite(t *testing.T) {
	suite.Run(t, new(TokenCacheSuite))
}

func (s *TokenCacheSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.cache = New(WithClock(func() time.Time { return s.now }))
}

func identity(id int64) models.Identity {
	return models.Identity{
		ID:    id,
		Email: fmt.Sprintf("user%d@example.com", id),
		Role:  models.RoleUser,
	}
}

func (s *TokenCacheSuite) TestSetGet() {
	s.cache.Set("tok-1", identity(1))

	got, ok := s.cache.Get("tok-1")
	s.True(ok)
	s.Equal(identity(1), got)

	_, ok = s.cache.Get("tok-unknown")
	s.False(ok)
}

func (s *TokenCacheSuite) TestTTL() {
	s.cache.Set("tok-1", identity(1))

	s.now = s.now.Add(DefaultTTL + time.Second)

	_, ok := s.cache.Get("tok-1")
	s.False(ok, "entry past its TTL must not be returned")
	s.Equal(0, s.cache.Len(), "expired entry is removed on access")
}

func (s *TokenCacheSuite) TestTTLNotSliding() {
	s.cache.Set("tok-1", identity(1))

	// Repeated access must not extend the entry's life.
	s.now = s.now.Add(4 * time.Minute)
	_, ok := s.cache.Get("tok-1")
	s.Require().True(ok)

	s.now = s.now.Add(2 * time.Minute)
	_, ok = s.cache.Get("tok-1")
	s.False(ok)
}

func (s *TokenCacheSuite) TestCapacityEviction() {
	for i := 1; i <= DefaultCapacity; i++ {
		s.cache.Set(fmt.Sprintf("tok-%d", i), identity(int64(i)))
	}
	s.Require().Equal(DefaultCapacity, s.cache.Len())

	// One over capacity evicts exactly the oldest-inserted entry.
	s.cache.Set("tok-extra", identity(9999))

	s.Equal(DefaultCapacity, s.cache.Len())
	_, ok := s.cache.Get("tok-1")
	s.False(ok, "oldest entry should have been evicted")
	_, ok = s.cache.Get("tok-2")
	s.True(ok, "second-oldest entry must survive")
	_, ok = s.cache.Get("tok-extra")
	s.True(ok)
}

func (s *TokenCacheSuite) TestOverwriteRefreshesInsertionOrder() {
	small := New(WithClock(func() time.Time { return s.now }), WithCapacity(2))

	small.Set("tok-a", identity(1))
	small.Set("tok-b", identity(2))
	small.Set("tok-a", identity(1)) // re-inserted, now newest

	small.Set("tok-c", identity(3)) // evicts tok-b, the oldest

	_, ok := small.Get("tok-a")
	s.True(ok)
	_, ok = small.Get("tok-b")
	s.False(ok)
}

func (s *TokenCacheSuite) TestInvalidate() {
	// A user can hold several tokens (multiple devices).
	s.cache.Set("tok-a1", identity(1))
	s.cache.Set("tok-a2", identity(1))
	s.cache.Set("tok-b", identity(2))

	s.cache.Invalidate(1)

	_, ok := s.cache.Get("tok-a1")
	s.False(ok)
	_, ok = s.cache.Get("tok-a2")
	s.False(ok)
	_, ok = s.cache.Get("tok-b")
	s.True(ok, "other identities must be untouched")
}

func (s *TokenCacheSuite) TestInvalidateAll() {
	s.cache.Set("tok-a", identity(1))
	s.cache.Set("tok-b", identity(2))

	s.cache.InvalidateAll()

	s.Equal(0, s.cache.Len())
	_, ok := s.cache.Get("tok-a")
	s.False(ok)
}

func (s *TokenCacheSuite) TestSweep() {
	s.cache.Set("tok-old", identity(1))
	s.now = s.now.Add(3 * time.Minute)
	s.cache.Set("tok-fresh", identity(2))

	s.now = s.now.Add(3 * time.Minute) // tok-old is now past TTL, tok-fresh is not
	s.cache.Sweep()

	s.Equal(1, s.cache.Len())
	_, ok := s.cache.Get("tok-fresh")
	s.True(ok)
}
