// Package ratelimit implements fixed-window request limiting for the public
// API. Challenge issuance and signed transitions are cheap for an attacker to
// spam, so every mutating endpoint is counted per client IP.
package ratelimit

import (
	"context"
	"time"
)

// Result reports a single limit check.
type Result struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
}

// Store counts hits per key inside a fixed window. The first hit of a window
// starts its clock; implementations must be safe for concurrent use.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

// Limiter applies one limit/window pair across all keys.
type Limiter struct {
	store  Store
	limit  int64
	window time.Duration
}

func New(store Store, limit int64, window time.Duration) *Limiter {
	return &Limiter{store: store, limit: limit, window: window}
}

// Allow counts one hit for key and reports whether it stays within the limit.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	count, ttl, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		return Result{}, err
	}
	res := Result{
		Allowed:   count <= l.limit,
		Limit:     l.limit,
		Remaining: max(l.limit-count, 0),
	}
	if !res.Allowed {
		res.RetryAfter = ttl
	}
	return res, nil
}
