// Package ratelimit provides per-identity fixed-window rate limiting.
//
// A Limiter bounds each caller identity to a fixed number of requests per
// window. The window is fixed, not sliding: the counter resets at window
// boundaries, which means a caller can make up to twice the configured
// quota across a boundary (the tail of one window plus the head of the
// next). That is an accepted property of fixed-window limiting, not a bug.
//
// Each Limiter owns its own table, so quotas configured for different
// endpoint classes never cross-contaminate. A single process enforces its
// quota independently of any other process; there is no shared state.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// sweepThreshold is the table size above which expired records are swept
// before processing a request. Sweeping on access keeps the table bounded
// without a background timer.
const sweepThreshold = 10000

// Result describes the outcome of a single rate limit check.
type Result struct {
	// Allowed reports whether the request may proceed.
	Allowed bool
	// Limit is the configured quota for the window.
	Limit int
	// Remaining is the number of requests left in the current window.
	Remaining int
	// Reset is when the current window expires.
	Reset time.Time
	// RetryAfter is how long the caller should wait before retrying.
	// It is zero unless the request was denied.
	RetryAfter time.Duration
}

// record tracks one identity's usage within the current window. A record
// whose window has lapsed is logically absent: it is replaced, never
// incremented across the boundary.
type record struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window rate limiter keyed by caller identity.
// It is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	requests int
	window   time.Duration
	records  map[string]*record
	now      func() time.Time
}

// NewLimiter creates an independent limiter allowing requests occurrences
// per window per identity. Both arguments must be positive.
func NewLimiter(requests int, window time.Duration) *Limiter {
	return NewLimiterWithClock(requests, window, time.Now)
}

// NewLimiterWithClock creates a limiter with an injected clock, used by
// tests to exercise window rollover deterministically.
func NewLimiterWithClock(requests int, window time.Duration, now func() time.Time) *Limiter {
	return &Limiter{
		requests: requests,
		window:   window,
		records:  make(map[string]*record),
		now:      now,
	}
}

// Check records one attempt by identity and reports whether it is allowed.
// The attempt counts against the quota even when the result is a denial.
// Check never fails; denial is a normal result, not an error. Identities
// must be normalized by the caller before being passed in.
func (l *Limiter) Check(identity string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if len(l.records) > sweepThreshold {
		l.sweep(now)
	}

	rec, exists := l.records[identity]
	if !exists || !now.Before(rec.resetAt) {
		rec = &record{count: 1, resetAt: now.Add(l.window)}
		l.records[identity] = rec
		return Result{
			Allowed:   true,
			Limit:     l.requests,
			Remaining: l.requests - 1,
			Reset:     rec.resetAt,
		}
	}

	rec.count++
	if rec.count > l.requests {
		retryAfter := time.Duration(math.Ceil(rec.resetAt.Sub(now).Seconds())) * time.Second
		return Result{
			Allowed:    false,
			Limit:      l.requests,
			Remaining:  0,
			Reset:      rec.resetAt,
			RetryAfter: retryAfter,
		}
	}

	return Result{
		Allowed:   true,
		Limit:     l.requests,
		Remaining: l.requests - rec.count,
		Reset:     rec.resetAt,
	}
}

// sweep removes every record whose window has already lapsed.
// Callers must hold l.mu.
func (l *Limiter) sweep(now time.Time) {
	for identity, rec := range l.records {
		if !now.Before(rec.resetAt) {
			delete(l.records, identity)
		}
	}
}

// Size returns the number of tracked identities, including records whose
// windows have lapsed but have not been swept yet.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
