// Package idempotency provides a Redis-backed dedupe.Deduper so idempotency
// keys survive restarts and are shared between instances.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/betpool/internal/domain/dedupe"
)

const (
	keyPrefix  = "betpool:idem:"
	defaultTTL = 24 * time.Hour
)

// client is the slice of *redis.Client the deduper uses.
type client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	SetArgs(ctx context.Context, key string, value interface{}, a redis.SetArgs) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// RedisDeduper claims keys with SETNX and a TTL.
type RedisDeduper struct {
	rdb    client
	ttl    time.Duration
	claims atomic.Int64
}

// Connect opens a client for addr and pings it.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return rdb, nil
}

// NewRedisDeduper wraps rdb. A non-positive ttl falls back to 24h.
func NewRedisDeduper(rdb *redis.Client, ttl time.Duration) *RedisDeduper {
	return newRedisDeduper(rdb, ttl)
}

func newRedisDeduper(rdb client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

func redisKey(key string) string {
	return keyPrefix + key
}

// SeenAndRecord implements dedupe.Deduper.
func (d *RedisDeduper) SeenAndRecord(ctx context.Context, key string) (string, bool, error) {
	k := redisKey(key)
	ok, err := d.rdb.SetNX(ctx, k, "", d.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis: claim %s: %w", key, err)
	}
	if ok {
		d.claims.Add(1)
		return "", false, nil
	}

	value, err := d.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; report it as in flight
		return "", true, nil
	}
	if err != nil {
		return "", true, fmt.Errorf("redis: read %s: %w", key, err)
	}
	return value, true, nil
}

// Record implements dedupe.Deduper. The key keeps its original TTL.
func (d *RedisDeduper) Record(ctx context.Context, key, value string) error {
	err := d.rdb.SetArgs(ctx, redisKey(key), value, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if errors.Is(err, redis.Nil) {
		return dedupe.ErrUnknownKey
	}
	if err != nil {
		return fmt.Errorf("redis: record %s: %w", key, err)
	}
	return nil
}

// Unrecord implements dedupe.Deduper.
func (d *RedisDeduper) Unrecord(ctx context.Context, key string) error {
	n, err := d.rdb.Del(ctx, redisKey(key)).Result()
	if err != nil {
		return fmt.Errorf("redis: unrecord %s: %w", key, err)
	}
	if n > 0 {
		d.claims.Add(-1)
	}
	return nil
}

// Size reports the keys claimed through this instance that were not unrecorded.
// Expiry inside Redis is not reflected.
func (d *RedisDeduper) Size() int64 {
	return d.claims.Load()
}

// Close closes the underlying client.
func (d *RedisDeduper) Close() error {
	return d.rdb.Close()
}

var _ dedupe.Deduper = (*RedisDeduper)(nil)
