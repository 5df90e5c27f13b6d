package redis

import (
	"context"
	"fmt"
	"time"
)

const rateLimitPrefix = "chat:ratelimit:"

// RateLimit is the outcome of one Allow call
type RateLimit struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimiter counts chat submissions per client in fixed one-minute windows
type RateLimiter struct {
	client *Client
	limit  int
	now    func() time.Time
}

// NewRateLimiter allows requestsPerMinute plus burst submissions per window
func NewRateLimiter(client *Client, requestsPerMinute, burst int) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  requestsPerMinute + burst,
		now:    time.Now,
	}
}

// Allow records a submission for clientKey and reports whether it fits the window
func (r *RateLimiter) Allow(ctx context.Context, clientKey string) (RateLimit, error) {
	windowStart := r.now().Truncate(time.Minute)
	key := fmt.Sprintf("%s%s:%d", rateLimitPrefix, clientKey, windowStart.Unix())

	pipe := r.client.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return RateLimit{}, fmt.Errorf("failed to execute rate limit check: %w", err)
	}

	count := int(incr.Val())
	remaining := r.limit - count
	if remaining < 0 {
		remaining = 0
	}

	return RateLimit{
		Allowed:   count <= r.limit,
		Limit:     r.limit,
		Remaining: remaining,
		ResetAt:   windowStart.Add(time.Minute),
	}, nil
}
