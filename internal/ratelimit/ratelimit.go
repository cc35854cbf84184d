// Package ratelimit implements a token bucket shared between service instances via Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultCapacity       = 10
	DefaultRefillInterval = 6 * time.Second
	DefaultPrefix         = "earlypulse:ratelimit"
)

// Bucket holds capacity tokens, one token is added back every refill interval.
// Returns {allowed, tokens left, milliseconds until next token}
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_ms = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

local elapsed = math.max(0, now_ms - last_refill)
local intervals = math.floor(elapsed / interval_ms)
if intervals > 0 then
	tokens = math.min(capacity, tokens + intervals)
	last_refill = last_refill + intervals * interval_ms
end

local allowed = 0
local retry_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('PEXPIRE', key, ttl_ms)

return {allowed, tokens, retry_ms}
`)

type Config struct {
	Capacity       int
	RefillInterval time.Duration

	// Prepended to every key
	Prefix string

	// Clock, time.Now if not set
	Now func() time.Time
}

type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type Limiter struct {
	client   redis.Scripter
	capacity int
	interval time.Duration
	prefix   string
	now      func() time.Time
}

func New(client redis.Scripter, cfg Config) *Limiter {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = DefaultRefillInterval
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Limiter{
		client:   client,
		capacity: cfg.Capacity,
		interval: cfg.RefillInterval,
		prefix:   cfg.Prefix,
		now:      cfg.Now,
	}
}

func (l *Limiter) Capacity() int {
	return l.capacity
}

// Take one token from the bucket of key
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	// bucket is full again after capacity intervals, keeping it longer is useless
	ttl := time.Duration(l.capacity+1) * l.interval

	vals, err := tokenBucket.Run(ctx, l.client, []string{l.prefix + ":" + key},
		l.now().UnixMilli(), l.capacity, l.interval.Milliseconds(), ttl.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit script failed: %w", err)
	}
	if len(vals) != 3 {
		return Result{}, fmt.Errorf("rate limit script returned %d values", len(vals))
	}

	return Result{
		Allowed:    vals[0] == 1,
		Remaining:  int(vals[1]),
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}
