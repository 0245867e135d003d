// Package ratelimit provides the sliding-window limiters that guard the
// public flow trigger endpoint.
package ratelimit

import "context"

// Limiter is a sliding-window rate limiter keyed by caller identity.
// Checking and counting are separate so a denied request does not consume
// budget.
type Limiter interface {
	// IsLimited reports whether key is over its limit right now and, when
	// it is, how many whole seconds to wait before retrying (at least 1).
	IsLimited(ctx context.Context, key string) (limited bool, retryAfter int, err error)

	// Hit records one attempt for key.
	Hit(ctx context.Context, key string) error

	// Reset forgets all attempts for key.
	Reset(ctx context.Context, key string) error
}
