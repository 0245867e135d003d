package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var _ Limiter = (*RedisLimiter)(nil)

// RedisLimiter implements the sliding window over a Redis sorted set so the
// budget is shared across API instances. Each attempt is a set member scored
// with its unix-millisecond timestamp; pruning is a range delete below the
// window threshold.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration, prefix string) *RedisLimiter {
	if limit < 1 {
		limit = 1
	}

	if window < time.Second {
		window = time.Second
	}

	if prefix == "" {
		prefix = "ratelimit:"
	}

	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: prefix,
	}
}

func (l *RedisLimiter) key(key string) string {
	return l.prefix + key
}

func (l *RedisLimiter) IsLimited(ctx context.Context, key string) (bool, int, error) {
	now := time.Now()
	redisKey := l.key(key)
	threshold := now.Add(-l.window).UnixMilli()

	if err := l.client.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%d", threshold)).Err(); err != nil {
		return false, 0, fmt.Errorf("failed to prune rate limit window: %w", err)
	}

	count, err := l.client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to count rate limit attempts: %w", err)
	}

	if count < int64(l.limit) {
		return false, 0, nil
	}

	oldest, err := l.client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to read oldest rate limit attempt: %w", err)
	}

	retryAfter := 1
	if len(oldest) > 0 {
		oldestAt := time.UnixMilli(int64(oldest[0].Score))

		secs := int(oldestAt.Add(l.window).Sub(now).Seconds())
		if secs > retryAfter {
			retryAfter = secs
		}
	}

	return true, retryAfter, nil
}

func (l *RedisLimiter) Hit(ctx context.Context, key string) error {
	now := time.Now()
	redisKey := l.key(key)

	pipe := l.client.TxPipeline()
	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: uuid.NewString(),
	})
	pipe.Expire(ctx, redisKey, l.window+time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record rate limit attempt: %w", err)
	}

	return nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to reset rate limit key: %w", err)
	}

	return nil
}
