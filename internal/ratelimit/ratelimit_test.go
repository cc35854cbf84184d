package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/earlypulse/internal/testutil"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLimiter(t *testing.T) {
	t.Parallel()

	rd := testutil.StartRedisContainer(t)
	t.Cleanup(rd.Terminate)

	newLimiter := func(t *testing.T, clock *fakeClock) *Limiter {
		return New(rd.Client, Config{
			Capacity:       3,
			RefillInterval: time.Second,
			Prefix:         "test:" + t.Name(),
			Now:            clock.Now,
		})
	}

	t.Run("defaults", func(t *testing.T) {
		l := New(rd.Client, Config{})

		require.Equal(t, DefaultCapacity, l.Capacity())
		require.Equal(t, DefaultRefillInterval, l.interval)
		require.Equal(t, DefaultPrefix, l.prefix)
	})

	t.Run("bucket drains then refills", func(t *testing.T) {
		clock := &fakeClock{now: time.Now()}
		l := newLimiter(t, clock)

		for i := range 3 {
			res, err := l.Allow(t.Context(), "127.0.0.1")
			require.NoError(t, err)
			require.True(t, res.Allowed, "request %d should pass", i)
			require.Equal(t, 2-i, res.Remaining)
		}

		res, err := l.Allow(t.Context(), "127.0.0.1")
		require.NoError(t, err)
		require.False(t, res.Allowed, "bucket is empty")
		require.Equal(t, time.Second, res.RetryAfter)

		clock.Advance(400 * time.Millisecond)
		res, err = l.Allow(t.Context(), "127.0.0.1")
		require.NoError(t, err)
		require.False(t, res.Allowed)
		require.Equal(t, 600*time.Millisecond, res.RetryAfter, "retry after counts down")

		clock.Advance(600 * time.Millisecond)
		res, err = l.Allow(t.Context(), "127.0.0.1")
		require.NoError(t, err)
		require.True(t, res.Allowed, "one token refilled")
	})

	t.Run("keys are independent", func(t *testing.T) {
		clock := &fakeClock{now: time.Now()}
		l := newLimiter(t, clock)

		for range 3 {
			_, err := l.Allow(t.Context(), "10.0.0.1")
			require.NoError(t, err)
		}

		res, err := l.Allow(t.Context(), "10.0.0.2")
		require.NoError(t, err)
		require.True(t, res.Allowed)
	})

	t.Run("refill never exceeds capacity", func(t *testing.T) {
		clock := &fakeClock{now: time.Now()}
		l := newLimiter(t, clock)

		_, err := l.Allow(t.Context(), "k")
		require.NoError(t, err)

		clock.Advance(time.Hour)
		res, err := l.Allow(t.Context(), "k")
		require.NoError(t, err)
		require.Equal(t, 2, res.Remaining)
	})

	t.Run("redis unreachable", func(t *testing.T) {
		port, err := testutil.RandomPort()
		require.NoError(t, err)
		client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("127.0.0.1:%d", port), MaxRetries: -1})
		defer client.Close() //nolint:errcheck

		_, err = New(client, Config{}).Allow(t.Context(), "k")

		require.Error(t, err)
	})
}
