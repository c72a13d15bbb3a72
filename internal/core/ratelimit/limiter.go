package ratelimit

import (
	"context"
	"fmt"
	"time"

	"reverse-logistics/internal/core/cache"
)

// Decision is the outcome of a limiter check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is a fixed-window counter shared by every process through the
// cache, so the limit holds across workers.
type Limiter struct {
	cache  cache.Cache
	prefix string
	limit  int
	window time.Duration
}

// New builds a limiter allowing limit hits per window for each key.
func New(c cache.Cache, prefix string, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{cache: c, prefix: prefix, limit: limit, window: window}
}

// Allow counts a hit against key.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	if key == "" {
		return Decision{}, fmt.Errorf("rate limit key is empty")
	}

	k := l.prefix + ":" + key
	n, err := l.cache.Incr(ctx, k, l.window)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit incr %s: %w", k, err)
	}

	if int(n) <= l.limit {
		return Decision{Allowed: true, Remaining: l.limit - int(n)}, nil
	}

	ttl, err := l.cache.TTL(ctx, k)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit ttl %s: %w", k, err)
	}
	if ttl <= 0 {
		ttl = l.window
	}
	return Decision{Allowed: false, RetryAfter: ttl}, nil
}

// AllowAll checks every key and rejects if any is over its limit. The
// longest retry hint is returned.
func (l *Limiter) AllowAll(ctx context.Context, keys ...string) (Decision, error) {
	out := Decision{Allowed: true, Remaining: l.limit}
	for _, key := range keys {
		d, err := l.Allow(ctx, key)
		if err != nil {
			return Decision{}, err
		}
		if !d.Allowed {
			out.Allowed = false
			if d.RetryAfter > out.RetryAfter {
				out.RetryAfter = d.RetryAfter
			}
			continue
		}
		if d.Remaining < out.Remaining {
			out.Remaining = d.Remaining
		}
	}
	if !out.Allowed {
		out.Remaining = 0
	}
	return out, nil
}
