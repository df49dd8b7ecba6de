package ratelimiter

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(t *testing.T, perMinute int) (*RedisLuaLimiter, *miniredis.Miniredis, *fakeClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	l := NewRedisLuaLimiter(rdb, "quota:ai:", PerMinute(perMinute))
	require.NotNil(t, l)
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l.now = clock.now
	return l, mr, clock
}

func TestPerMinute(t *testing.T) {
	b := PerMinute(60)
	assert.Equal(t, int64(60), b.Capacity)
	assert.InDelta(t, 1.0, b.RefillRate, 1e-9)
	assert.True(t, b.Enabled())
	assert.False(t, PerMinute(0).Enabled())
	assert.False(t, PerMinute(-3).Enabled())
}

func TestNewRedisLuaLimiter_DisabledIsNil(t *testing.T) {
	assert.Nil(t, NewRedisLuaLimiter(nil, "x:", PerMinute(10)))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	assert.Nil(t, NewRedisLuaLimiter(rdb, "x:", PerMinute(0)))
}

func TestAllow_NilLimiterAllows(t *testing.T) {
	var l *RedisLuaLimiter
	ok, retry, err := l.Allow(context.Background(), "u1", 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, retry)
}

func TestAllow_ExhaustsThenRefills(t *testing.T) {
	ctx := context.Background()
	l, _, clock := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		ok, retry, err := l.Allow(ctx, "u1", 1)
		require.NoError(t, err)
		assert.True(t, ok, "call %d", i)
		assert.Zero(t, retry)
	}

	ok, retry, err := l.Allow(ctx, "u1", 1)
	require.NoError(t, err)
	assert.False(t, ok)
	// one token every 20s
	assert.InDelta(t, float64(20*time.Second), float64(retry), float64(time.Second))

	clock.advance(21 * time.Second)
	ok, _, err = l.Allow(ctx, "u1", 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllow_BucketsArePerKey(t *testing.T) {
	ctx := context.Background()
	l, mr, _ := newTestLimiter(t, 1)

	ok, _, _ := l.Allow(ctx, "alice", 1)
	assert.True(t, ok)
	ok, _, _ = l.Allow(ctx, "alice", 1)
	assert.False(t, ok)
	ok, _, _ = l.Allow(ctx, "bob", 1)
	assert.True(t, ok)

	assert.True(t, mr.Exists("quota:ai:alice"))
	assert.Greater(t, mr.TTL("quota:ai:alice"), time.Duration(0))
}

func TestAllow_RedisDownFailsOpen(t *testing.T) {
	l, mr, _ := newTestLimiter(t, 1)
	mr.Close()

	ok, retry, err := l.Allow(context.Background(), "u1", 1)
	assert.Error(t, err)
	assert.True(t, ok)
	assert.Zero(t, retry)
}
