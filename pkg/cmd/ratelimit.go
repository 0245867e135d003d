package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lodecms/lode/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
)

// NewTriggerLimiter picks the rate limiter for the public trigger endpoint.
// With a redis URL the budget is shared across instances; without one each
// instance counts alone in memory.
func NewTriggerLimiter(logger *slog.Logger, limit int, window time.Duration, redisURL string) ratelimit.Limiter {
	if redisURL == "" {
		return ratelimit.NewSlidingWindow(limit, window, clockwork.NewRealClock())
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		panic(fmt.Errorf("failed to parse redis URL: %w", err))
	}

	logger.Info("using redis-backed trigger rate limiter", "addr", opts.Addr)

	return ratelimit.NewRedisLimiter(redis.NewClient(opts), limit, window, "lode:ratelimit:")
}
