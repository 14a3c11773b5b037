package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter allows at most limit events per window for a key.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, retryAfter time.Duration, err error)
}

// RedisLimiter is a fixed-window counter shared by all API instances.
type RedisLimiter struct {
	redis  *redis.Client
	prefix string
	script *redis.Script
}

func NewRedisLimiter(rdb *redis.Client) *RedisLimiter {
	return &RedisLimiter{
		redis:  rdb,
		prefix: "rl:",
		script: redis.NewScript(luaFixedWindowScript),
	}
}

const luaFixedWindowScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return { count, ttl }
`

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	if l == nil || l.redis == nil || limit <= 0 {
		return true, 0, nil
	}

	res, err := l.script.Run(ctx, l.redis, []string{l.prefix + key}, window.Milliseconds()).Result()
	if err != nil {
		slog.Error("redis rate limiter script error", slog.String("key", key), slog.Any("error", err))
		// fail open: a Redis outage must not block sign-in
		return true, 0, err
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		slog.Error("redis rate limiter unexpected script result", slog.String("key", key), slog.Any("result", res))
		return true, 0, nil
	}

	count, _ := vals[0].(int64)
	ttl, _ := vals[1].(int64)
	if count > int64(limit) {
		return false, time.Duration(ttl) * time.Millisecond, nil
	}
	return true, 0, nil
}

// MemoryLimiter keeps one token bucket per key in process. Used when Redis is not configured.
type MemoryLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	now      func() time.Time
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const maxMemoryKeys = 50000

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		limiters: make(map[string]*entry),
		now:      time.Now,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	if limit <= 0 || window <= 0 {
		return true, 0, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= maxMemoryKeys {
			l.sweep(now)
		}
		e = &entry{limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)}
		l.limiters[key] = e
	}
	e.lastSeen = now

	r := e.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, window, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay, nil
	}
	return true, 0, nil
}

// sweep drops keys idle for more than an hour.
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, e := range l.limiters {
		if now.Sub(e.lastSeen) > time.Hour {
			delete(l.limiters, k)
		}
	}
}

// New returns a Redis limiter when a client is given, otherwise an in-process one.
func New(rdb *redis.Client) Limiter {
	if rdb == nil {
		return NewMemoryLimiter()
	}
	return NewRedisLimiter(rdb)
}
