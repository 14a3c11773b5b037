package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisLimiter(t *testing.T) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLimiter(rdb), mr
}

func TestRedisLimiter_BlocksAfterLimit(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestRedisLimiter(t)

	for i := 0; i < 3; i++ {
		allowed, _, err := l.Allow(ctx, "otp:ip:1.2.3.4", 3, time.Hour)
		require.NoError(t, err)
		assert.True(t, allowed, "call %d", i)
	}

	allowed, retryAfter, err := l.Allow(ctx, "otp:ip:1.2.3.4", 3, time.Hour)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, 59*time.Minute)

	// window expiry resets the counter
	mr.FastForward(time.Hour + time.Second)
	allowed, _, err = l.Allow(ctx, "otp:ip:1.2.3.4", 3, time.Hour)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisLimiter_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestRedisLimiter(t)

	allowed, _, _ := l.Allow(ctx, "a", 1, time.Minute)
	assert.True(t, allowed)
	allowed, _, _ = l.Allow(ctx, "b", 1, time.Minute)
	assert.True(t, allowed)
	allowed, _, _ = l.Allow(ctx, "a", 1, time.Minute)
	assert.False(t, allowed)
}

func TestRedisLimiter_FailOpenWhenDown(t *testing.T) {
	l, mr := newTestRedisLimiter(t)
	mr.Close()

	allowed, _, err := l.Allow(context.Background(), "k", 1, time.Minute)
	assert.Error(t, err)
	assert.True(t, allowed)
}

func TestMemoryLimiter(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	allowed, _, _ := l.Allow(ctx, "otp:email:a@b.cn", 1, time.Minute)
	assert.True(t, allowed)

	allowed, retryAfter, _ := l.Allow(ctx, "otp:email:a@b.cn", 1, time.Minute)
	assert.False(t, allowed)
	assert.InDelta(t, float64(time.Minute), float64(retryAfter), float64(time.Second))

	now = now.Add(61 * time.Second)
	allowed, _, _ = l.Allow(ctx, "otp:email:a@b.cn", 1, time.Minute)
	assert.True(t, allowed)
}
