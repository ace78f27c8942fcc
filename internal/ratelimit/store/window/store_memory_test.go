package window

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

const testWindow = 15 * time.Minute

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.store = NewInMemoryStore(WithClock(func() time.Time { return s.now }))
}

func (s *InMemoryStoreSuite) advance(d time.Duration) {
	s.now = s.now.Add(d)
}

func (s *InMemoryStoreSuite) TestIncrement() {
	s.Run("count never exceeds calls made", func() {
		for i := 1; i <= 5; i++ {
			count, err := s.store.Increment(s.ctx, "ip:a", testWindow)
			s.Require().NoError(err)
			s.Equal(i, count)
		}
	})

	s.Run("fresh call after window elapses reports one", func() {
		_, err := s.store.Increment(s.ctx, "ip:b", testWindow)
		s.Require().NoError(err)

		s.advance(testWindow + time.Second)

		count, err := s.store.Increment(s.ctx, "ip:b", testWindow)
		s.Require().NoError(err)
		s.Equal(1, count)
	})

	s.Run("window slides rather than resetting on a boundary", func() {
		_, err := s.store.Increment(s.ctx, "ip:c", testWindow) // t=0
		s.Require().NoError(err)

		s.advance(testWindow - time.Second) // t=window-1
		count, err := s.store.Increment(s.ctx, "ip:c", testWindow)
		s.Require().NoError(err)
		s.Equal(2, count)

		s.advance(2 * time.Second) // t=window+1: the t=0 call must not count
		count, err = s.store.Increment(s.ctx, "ip:c", testWindow)
		s.Require().NoError(err)
		s.Equal(2, count)
	})
}

func (s *InMemoryStoreSuite) TestRetractLast() {
	for range 3 {
		_, err := s.store.Increment(s.ctx, "ip:r", testWindow)
		s.Require().NoError(err)
	}

	s.Require().NoError(s.store.RetractLast(s.ctx, "ip:r"))

	count, err := s.store.Count(s.ctx, "ip:r")
	s.Require().NoError(err)
	s.Equal(2, count)

	s.Run("retract on unknown key is a no-op", func() {
		s.Require().NoError(s.store.RetractLast(s.ctx, "ip:unknown"))
	})
}

func (s *InMemoryStoreSuite) TestReset() {
	_, err := s.store.Increment(s.ctx, "ip:reset", testWindow)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Reset(s.ctx, "ip:reset"))

	count, err := s.store.Count(s.ctx, "ip:reset")
	s.Require().NoError(err)
	s.Equal(0, count)
}

func (s *InMemoryStoreSuite) TestSweep() {
	_, err := s.store.Increment(s.ctx, "ip:old", time.Minute)
	s.Require().NoError(err)
	_, err = s.store.Increment(s.ctx, "ip:fresh", time.Hour)
	s.Require().NoError(err)

	// Entries older than twice their window are dropped, keys left empty
	// are removed entirely.
	s.advance(3 * time.Minute)
	s.store.Sweep()

	s.store.mu.Lock()
	_, oldExists := s.store.windows["ip:old"]
	_, freshExists := s.store.windows["ip:fresh"]
	s.store.mu.Unlock()

	s.False(oldExists)
	s.True(freshExists)
}

func TestInMemoryStoreConcurrent(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	const goroutines = 100

	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Increment(ctx, "ip:conc", testWindow)
			if err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	count, err := store.Count(ctx, "ip:conc")
	if err != nil {
		t.Fatal(err)
	}
	if count != goroutines {
		t.Fatalf("expected %d recorded requests, got %d", goroutines, count)
	}
}
