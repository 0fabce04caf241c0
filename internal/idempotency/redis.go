package idempotency

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/decidefyi/decide/internal/common/logging"
)

// RedisStore is an idempotency store backed by a shared Redis instance,
// for deployments where replays must be recognized across processes. It
// exposes the same Get/Put surface as the in-memory Cache; TTL expiry is
// delegated to Redis.
//
// Store failures degrade to cache misses: the request recomputes instead
// of replaying, which is the documented best-effort behavior.
type RedisStore struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
}

// NewRedisStore creates a Redis-backed idempotency store.
func NewRedisStore(client *redis.Client, ttl time.Duration, keyPrefix string) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if keyPrefix == "" {
		keyPrefix = "idempotency:"
	}
	return &RedisStore{
		client:    client,
		ttl:       ttl,
		keyPrefix: keyPrefix,
	}
}

// Get returns the stored response for key, or false on a miss or store
// error.
func (s *RedisStore) Get(key string) (json.RawMessage, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	value, err := s.client.Get(ctx, s.keyPrefix+key).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logging.Error("idempotency store lookup failed", err, logging.String("key", key))
		return nil, false
	}

	return json.RawMessage(value), true
}

// Put stores response under key with the configured TTL. Errors are
// logged and otherwise ignored; a lost write only costs a recompute on
// replay.
func (s *RedisStore) Put(key string, response json.RawMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.client.Set(ctx, s.keyPrefix+key, []byte(response), s.ttl).Err(); err != nil {
		logging.Error("idempotency store write failed", err, logging.String("key", key))
	}
}
