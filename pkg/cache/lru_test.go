package cache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/cache"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLRU_GetSetDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := cache.NewLRU(3)

	val, err := c.Get(ctx, "prefs:user-1")
	require.NoError(t, err)
	assert.Nil(t, val)

	buf := []byte(`{"enabled":true}`)
	require.NoError(t, c.Set(ctx, "prefs:user-1", buf, 0))
	buf[2] = 'X'

	val, err = c.Get(ctx, "prefs:user-1")
	require.NoError(t, err)
	assert.Equal(t, `{"enabled":true}`, string(val), "stored value must not alias the caller's buffer")

	require.NoError(t, c.Delete(ctx, "prefs:user-1"))
	require.NoError(t, c.Delete(ctx, "prefs:user-1"))
	val, err = c.Get(ctx, "prefs:user-1")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := cache.NewLRU(2)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	_, _ = c.Get(ctx, "a")
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))

	assert.Equal(t, 2, c.Len())
	b, _ := c.Get(ctx, "b")
	assert.Nil(t, b)
	a, _ := c.Get(ctx, "a")
	assert.Equal(t, []byte("1"), a)
}

func TestLRU_TTL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := &clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := cache.NewLRU(10, cache.WithClock(clk.Now))

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	clk.Advance(59 * time.Second)
	val, _ := c.Get(ctx, "k")
	assert.Equal(t, []byte("v"), val)

	clk.Advance(time.Second)
	val, _ = c.Get(ctx, "k")
	assert.Nil(t, val)
	assert.Zero(t, c.Len())
}

func TestLRU_Concurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := cache.NewLRU(16)

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := string(rune('a' + i%26))
			_ = c.Set(ctx, key, []byte{byte(i)}, time.Minute)
			_, _ = c.Get(ctx, key)
			if i%4 == 0 {
				_ = c.Delete(ctx, key)
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 16)
}
