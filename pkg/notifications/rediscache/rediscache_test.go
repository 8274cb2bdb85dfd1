package rediscache_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/cache"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/notifications/rediscache"
)

type memCache struct {
	mu      sync.Mutex
	items   map[string][]byte
	ttls    map[string]time.Duration
	failing bool
}

func newMemCache() *memCache {
	return &memCache{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return nil, errors.New("connection refused")
	}
	return c.items[key], nil
}

func (c *memCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errors.New("connection refused")
	}
	c.items[key] = val
	c.ttls[key] = ttl
	return nil
}

// valueKey returns the key holding the user's record in the current generation.
func (c *memCache) valueKey(userID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return "prefs:" + userID + ":" + string(c.items["prefs:"+userID+":gen"])
}

type countingStore struct {
	*notifications.MemoryPreferenceStore
	mu   sync.Mutex
	gets int

	// afterGet runs once the record has been loaded.
	afterGet func()
}

func (s *countingStore) Get(ctx context.Context, userID string) (*notifications.Preferences, error) {
	s.mu.Lock()
	s.gets++
	hook := s.afterGet
	s.afterGet = nil
	s.mu.Unlock()

	p, err := s.MemoryPreferenceStore.Get(ctx, userID)
	if hook != nil {
		hook()
	}
	return p, err
}

func (s *countingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

func newStore(cache rediscache.Cache) (*rediscache.PreferenceStore, *countingStore) {
	backing := &countingStore{MemoryPreferenceStore: notifications.NewMemoryPreferenceStore()}
	return rediscache.New(backing, cache,
		rediscache.WithTTL(time.Minute),
		rediscache.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	), backing
}

func TestPreferenceStore_ReadThrough(t *testing.T) {
	t.Parallel()

	cache := newMemCache()
	store, backing := newStore(cache)
	ctx := context.Background()

	_, err := store.Upsert(ctx, "user-1", notifications.PreferencesPatch{
		Categories: map[string]bool{"marketing": false},
	})
	require.NoError(t, err)

	for range 3 {
		p, err := store.Get(ctx, "user-1")
		require.NoError(t, err)
		assert.False(t, p.CategoryEnabled("marketing"))
	}
	assert.Equal(t, 1, backing.count())
	assert.Equal(t, time.Minute, cache.ttls[cache.valueKey("user-1")])
}

func TestPreferenceStore_UpsertInvalidates(t *testing.T) {
	t.Parallel()

	cache := newMemCache()
	store, _ := newStore(cache)
	ctx := context.Background()

	_, err := store.Upsert(ctx, "user-1", notifications.PreferencesPatch{})
	require.NoError(t, err)
	p, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, p.Enabled)

	disabled := false
	_, err = store.Upsert(ctx, "user-1", notifications.PreferencesPatch{Enabled: &disabled})
	require.NoError(t, err)

	p, err = store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, p.Enabled)
}

func TestPreferenceStore_NotFoundIsNotCached(t *testing.T) {
	t.Parallel()

	cache := newMemCache()
	store, _ := newStore(cache)

	_, err := store.Get(context.Background(), "nobody")
	require.ErrorIs(t, err, notifications.ErrPreferencesNotFound)
	assert.NotContains(t, cache.items, cache.valueKey("nobody"))
	assert.Len(t, cache.items, 1, "only the generation is written")
}

func TestPreferenceStore_CacheOutage(t *testing.T) {
	t.Parallel()

	cache := newMemCache()
	cache.failing = true
	store, backing := newStore(cache)
	ctx := context.Background()

	_, err := store.Upsert(ctx, "user-1", notifications.PreferencesPatch{})
	require.NoError(t, err)

	p, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, 1, backing.count())
}

func TestPreferenceStore_CorruptEntry(t *testing.T) {
	t.Parallel()

	cache := newMemCache()
	cache.items["prefs:user-1:gen"] = []byte("g1")
	cache.items["prefs:user-1:g1"] = []byte("{not json")
	store, backing := newStore(cache)
	ctx := context.Background()

	_, err := backing.Upsert(ctx, "user-1", notifications.PreferencesPatch{})
	require.NoError(t, err)

	p, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	assert.True(t, json.Valid(cache.items["prefs:user-1:g1"]), "corrupt entry replaced")
}

func TestPreferenceStore_WriteDuringReadMissIsNotMasked(t *testing.T) {
	t.Parallel()

	cache := newMemCache()
	store, backing := newStore(cache)
	ctx := context.Background()

	_, err := backing.Upsert(ctx, "user-1", notifications.PreferencesPatch{Enabled: boolPtr(true)})
	require.NoError(t, err)

	// The write lands after the reader loaded the old record and before it
	// populates the cache.
	backing.afterGet = func() {
		_, err := store.Upsert(ctx, "user-1", notifications.PreferencesPatch{Enabled: boolPtr(false)})
		require.NoError(t, err)
	}

	p, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, p.Enabled, "reader returns what it loaded")

	p, err = store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, p.Enabled, "stale record must not be served from the cache")
	assert.Equal(t, 2, backing.count())

	p, err = store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, p.Enabled)
	assert.Equal(t, 2, backing.count())
}

func TestPreferenceStore_InProcessLRU(t *testing.T) {
	t.Parallel()

	store, backing := newStore(cache.NewLRU(16))
	ctx := context.Background()

	_, err := store.Upsert(ctx, "user-1", notifications.PreferencesPatch{Enabled: boolPtr(false)})
	require.NoError(t, err)

	for range 2 {
		p, err := store.Get(ctx, "user-1")
		require.NoError(t, err)
		assert.False(t, p.Enabled)
	}
	assert.Equal(t, 1, backing.count())

	_, err = store.Upsert(ctx, "user-1", notifications.PreferencesPatch{Enabled: boolPtr(true)})
	require.NoError(t, err)
	p, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, p.Enabled)
	assert.Equal(t, 2, backing.count())
}

func boolPtr(b bool) *bool { return &b }
