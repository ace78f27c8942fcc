package window

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "rl:win:"

// RedisStore is a Redis-backed sliding window, for deployments where several
// instances must share rate-limit state. Each request is a sorted-set member
// scored by its nanosecond arrival time; pruning is a range deletion and the
// key expires at twice the window so idle keys clean themselves up.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed window store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Increment records a request attempt and returns the in-window count
// including this one.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int, error) {
	now := time.Now()
	rkey := redisKeyPrefix + key
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, rkey, "0", cutoff)
	pipe.ZAdd(ctx, rkey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.NewString(),
	})
	card := pipe.ZCard(ctx, rkey)
	pipe.Expire(ctx, rkey, 2*window)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis window increment: %w", err)
	}
	return int(card.Val()), nil
}

// RetractLast removes the most recently scored member for key.
func (s *RedisStore) RetractLast(ctx context.Context, key string) error {
	if err := s.client.ZPopMax(ctx, redisKeyPrefix+key, 1).Err(); err != nil {
		return fmt.Errorf("redis window retract: %w", err)
	}
	return nil
}

// Reset clears the counter for a key.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis window reset: %w", err)
	}
	return nil
}
