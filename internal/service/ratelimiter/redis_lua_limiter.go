// Package ratelimiter meters AI-backed calls per user with a token bucket kept in Redis.
package ratelimiter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether key may spend cost tokens now.
type Limiter interface {
	Allow(ctx context.Context, key string, cost int64) (allowed bool, retryAfter time.Duration, err error)
}

// BucketConfig sizes a token bucket.
type BucketConfig struct {
	Capacity   int64
	RefillRate float64 // tokens per second
}

// PerMinute returns a bucket holding n tokens that refills fully once a minute.
func PerMinute(n int) BucketConfig {
	if n <= 0 {
		return BucketConfig{}
	}
	return BucketConfig{Capacity: int64(n), RefillRate: float64(n) / 60.0}
}

// Enabled reports whether the bucket limits anything.
func (b BucketConfig) Enabled() bool { return b.Capacity > 0 && b.RefillRate > 0 }

// RedisLuaLimiter runs the refill-and-take step atomically inside Redis, so every API
// replica shares the same per-user buckets.
type RedisLuaLimiter struct {
	redis  redis.Scripter
	bucket BucketConfig
	prefix string
	ttl    time.Duration
	script *redis.Script
	now    func() time.Time
}

// NewRedisLuaLimiter returns nil when rdb is nil or the bucket is disabled; a nil limiter allows everything.
func NewRedisLuaLimiter(rdb redis.Scripter, prefix string, bucket BucketConfig) *RedisLuaLimiter {
	if rdb == nil || !bucket.Enabled() {
		return nil
	}
	// idle buckets expire once they would have refilled completely
	ttl := time.Duration(float64(bucket.Capacity)/bucket.RefillRate*float64(time.Second)) + time.Minute
	return &RedisLuaLimiter{
		redis:  rdb,
		bucket: bucket,
		prefix: prefix,
		ttl:    ttl,
		script: redis.NewScript(luaTokenBucketScript),
		now:    time.Now,
	}
}

const luaTokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])
local ttl_ms = tonumber(ARGV[5])

local tokens = capacity
local last_refill = now

local data = redis.call("HMGET", key, "tokens", "last_refill")
if data[1] then
  tokens = tonumber(data[1])
end
if data[2] then
  last_refill = tonumber(data[2])
end

local delta = math.max(0, now - last_refill)
tokens = math.min(capacity, tokens + delta * refill_rate)

local allowed = 0
local retry_after_ms = 0
if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
else
  retry_after_ms = math.ceil((cost - tokens) / refill_rate * 1000)
end

redis.call("HSET", key, "tokens", tostring(tokens), "last_refill", tostring(now))
redis.call("PEXPIRE", key, ttl_ms)

return { allowed, retry_after_ms }
`

// Allow takes cost tokens from key's bucket. Redis failures fail open: the call is allowed
// and the error is returned for logging only.
func (l *RedisLuaLimiter) Allow(ctx context.Context, key string, cost int64) (bool, time.Duration, error) {
	if l == nil {
		return true, 0, nil
	}
	if cost <= 0 {
		cost = 1
	}
	nowSec := float64(l.now().UnixNano()) / 1e9
	res, err := l.script.Run(ctx, l.redis, []string{l.prefix + key},
		l.bucket.Capacity, l.bucket.RefillRate, nowSec, cost, l.ttl.Milliseconds()).Int64Slice()
	if err != nil {
		slog.Warn("rate limiter unavailable, allowing", slog.String("key", key), slog.Any("error", err))
		return true, 0, fmt.Errorf("op=ratelimiter.allow: %w", err)
	}
	if len(res) < 2 {
		return true, 0, fmt.Errorf("op=ratelimiter.allow: unexpected script result %v", res)
	}
	if res[0] == 1 {
		return true, 0, nil
	}
	return false, time.Duration(res[1]) * time.Millisecond, nil
}
