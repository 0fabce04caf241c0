package ratelimit

import (
	"context"
	"math"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/decidefyi/decide/internal/common/logging"
)

// RedisLimiter is a fixed-window limiter backed by a shared Redis store,
// for deployments where multiple processes must enforce one global quota.
// It exposes the same Check surface as the in-memory Limiter, so callers
// can swap backends without changing their contracts.
//
// On Redis failure the limiter fails open: the request is allowed and the
// error is logged. A policy lookup is cheap; dropping traffic because the
// limiter's store is down would be worse than briefly over-admitting.
type RedisLimiter struct {
	client    *redis.Client
	requests  int
	window    time.Duration
	keyPrefix string
	now       func() time.Time
}

// NewRedisLimiter creates a Redis-backed fixed-window limiter.
func NewRedisLimiter(client *redis.Client, requests int, window time.Duration, keyPrefix string) *RedisLimiter {
	if keyPrefix == "" {
		keyPrefix = "ratelimit:"
	}
	return &RedisLimiter{
		client:    client,
		requests:  requests,
		window:    window,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

// Check records one attempt by identity and reports whether it is allowed.
// The counter key is incremented before the verdict is computed, so the
// attempt counts against the quota even on denial.
func (l *RedisLimiter) Check(identity string) Result {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := l.keyPrefix + identity

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return l.failOpen(err)
	}

	count, err := incr.Result()
	if err != nil {
		return l.failOpen(err)
	}

	remainingTTL, err := ttl.Result()
	if err != nil {
		return l.failOpen(err)
	}
	if remainingTTL < 0 {
		// First hit in this window (or a key left without an expiry):
		// start a fresh window.
		remainingTTL = l.window
		if err := l.client.PExpire(ctx, key, l.window).Err(); err != nil {
			return l.failOpen(err)
		}
	}

	reset := l.now().Add(remainingTTL)

	if int(count) > l.requests {
		return Result{
			Allowed:    false,
			Limit:      l.requests,
			Remaining:  0,
			Reset:      reset,
			RetryAfter: time.Duration(math.Ceil(remainingTTL.Seconds())) * time.Second,
		}
	}

	return Result{
		Allowed:   true,
		Limit:     l.requests,
		Remaining: l.requests - int(count),
		Reset:     reset,
	}
}

func (l *RedisLimiter) failOpen(err error) Result {
	logging.Error("rate limit store unavailable, allowing request", err)
	return Result{
		Allowed:   true,
		Limit:     l.requests,
		Remaining: l.requests - 1,
		Reset:     l.now().Add(l.window),
	}
}
