// Package window implements the sliding-window request counters behind the
// rate limiter. The in-memory store is the default single-process backend;
// the Redis store shares state across instances.
package window

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore tracks request timestamps per key under a single mutex.
// The lock also serializes RetractLast against concurrent Increment calls,
// so "retract the most recent timestamp" is unambiguous even with parallel
// requests on the same key.
type InMemoryStore struct {
	mu      sync.Mutex
	windows map[string]*slidingWindow
	clock   func() time.Time
}

// slidingWindow tracks request timestamps for one key. Timestamps are in
// arrival order; only entries inside the trailing window count.
type slidingWindow struct {
	timestamps []time.Time
	window     time.Duration
}

// Option configures an InMemoryStore.
type Option func(*InMemoryStore)

// WithClock substitutes the time source. Intended for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *InMemoryStore) {
		s.clock = clock
	}
}

// NewInMemoryStore creates an empty in-memory window store.
func NewInMemoryStore(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		windows: make(map[string]*slidingWindow),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Increment records a request attempt now and returns the number of requests
// within the trailing window, including this one.
func (s *InMemoryStore) Increment(_ context.Context, key string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	sw := s.windows[key]
	if sw == nil {
		sw = &slidingWindow{window: window}
		s.windows[key] = sw
	}
	sw.window = window
	sw.prune(now)
	sw.timestamps = append(sw.timestamps, now)

	return len(sw.timestamps), nil
}

// RetractLast removes the most recently recorded timestamp for key. Used by
// the skip-successful policy so completed requests hand their slot back.
func (s *InMemoryStore) RetractLast(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sw := s.windows[key]
	if sw == nil || len(sw.timestamps) == 0 {
		return nil
	}
	sw.timestamps = sw.timestamps[:len(sw.timestamps)-1]
	return nil
}

// Reset clears the counter for a key.
func (s *InMemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

// Count returns the current in-window request count for a key.
func (s *InMemoryStore) Count(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sw := s.windows[key]
	if sw == nil {
		return 0, nil
	}
	sw.prune(s.clock())
	return len(sw.timestamps), nil
}

// Sweep prunes every key to entries newer than twice its window and drops
// keys left empty. Bounds memory independent of traffic shape.
func (s *InMemoryStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	for key, sw := range s.windows {
		cutoff := now.Add(-2 * sw.window)
		i := 0
		for ; i < len(sw.timestamps); i++ {
			if sw.timestamps[i].After(cutoff) {
				break
			}
		}
		sw.timestamps = sw.timestamps[i:]
		if len(sw.timestamps) == 0 {
			delete(s.windows, key)
		}
	}
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (s *InMemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// prune drops timestamps older than the trailing window.
// Must be called while holding s.mu.
func (sw *slidingWindow) prune(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}
