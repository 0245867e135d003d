package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

var _ Limiter = (*SlidingWindow)(nil)

// SlidingWindow is a thread-safe in-memory sliding-window limiter. Suitable
// for single-instance deployments; use RedisLimiter when several instances
// must share one budget.
type SlidingWindow struct {
	limit  int
	window time.Duration
	clock  clockwork.Clock

	mu       sync.Mutex
	attempts map[string][]time.Time
}

// NewSlidingWindow creates a limiter allowing limit attempts per key within
// the window. The clock is injected so tests can drive time.
func NewSlidingWindow(limit int, window time.Duration, clock clockwork.Clock) *SlidingWindow {
	if limit < 1 {
		limit = 1
	}

	if window < time.Second {
		window = time.Second
	}

	return &SlidingWindow{
		limit:    limit,
		window:   window,
		clock:    clock,
		attempts: make(map[string][]time.Time),
	}
}

func (l *SlidingWindow) IsLimited(_ context.Context, key string) (bool, int, error) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	attempts := l.prune(key, now)
	if len(attempts) < l.limit {
		return false, 0, nil
	}

	retryAfter := int(attempts[0].Add(l.window).Sub(now).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}

	return true, retryAfter, nil
}

func (l *SlidingWindow) Hit(_ context.Context, key string) error {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.attempts[key] = append(l.prune(key, now), now)

	return nil
}

func (l *SlidingWindow) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.attempts, key)

	return nil
}

// prune drops attempts older than the window and cleans up empty keys so
// the map does not grow with one entry per caller forever. Callers must
// hold the mutex.
func (l *SlidingWindow) prune(key string, now time.Time) []time.Time {
	attempts := l.attempts[key]
	threshold := now.Add(-l.window)

	kept := 0
	for kept < len(attempts) && !attempts[kept].After(threshold) {
		kept++
	}

	attempts = attempts[kept:]

	if len(attempts) > 0 {
		l.attempts[key] = attempts
	} else {
		delete(l.attempts, key)
	}

	return attempts
}
