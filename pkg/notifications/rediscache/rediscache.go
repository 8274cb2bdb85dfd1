// Package rediscache adds a read-through Redis cache in front of a
// notifications.PreferenceStore.
package rediscache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

const DefaultTTL = 5 * time.Minute

// Cache is satisfied by *redis.Storage and *cache.LRU.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// PreferenceStore caches preference records. Cache failures are logged and
// the underlying store is used instead; they never fail a request.
type PreferenceStore struct {
	next   notifications.PreferenceStore
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

type Option func(*PreferenceStore)

func WithTTL(ttl time.Duration) Option {
	return func(s *PreferenceStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *PreferenceStore) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(next notifications.PreferenceStore, cache Cache, opts ...Option) *PreferenceStore {
	s := &PreferenceStore{
		next:   next,
		cache:  cache,
		ttl:    DefaultTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Values live under a per-user generation. Upsert moves the user to a fresh
// generation, so a reader that loaded a record before the write can only
// populate a key nobody reads anymore.
func genKey(userID string) string {
	return "prefs:" + userID + ":gen"
}

func valueKey(userID, gen string) string {
	return "prefs:" + userID + ":" + gen
}

func (s *PreferenceStore) Get(ctx context.Context, userID string) (*notifications.Preferences, error) {
	gen, err := s.generation(ctx, userID)
	if err != nil {
		s.warn(ctx, "preference cache read failed", userID, err)
		return s.next.Get(ctx, userID)
	}

	raw, err := s.cache.Get(ctx, valueKey(userID, gen))
	if err != nil {
		s.warn(ctx, "preference cache read failed", userID, err)
	}
	if len(raw) > 0 {
		var p notifications.Preferences
		if err := json.Unmarshal(raw, &p); err == nil {
			return &p, nil
		}
		s.warn(ctx, "discarding undecodable cached preferences", userID, err)
	}

	p, err := s.next.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.store(ctx, gen, p)
	return p, nil
}

func (s *PreferenceStore) Upsert(ctx context.Context, userID string, patch notifications.PreferencesPatch) (*notifications.Preferences, error) {
	p, err := s.next.Upsert(ctx, userID, patch)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, genKey(userID), []byte(ulid.Make().String()), s.ttl); err != nil {
		s.warn(ctx, "preference cache invalidation failed", userID, err)
	}
	return p, nil
}

// generation returns the user's current generation, starting a new one when
// none is cached. It is written before the backing store is read.
func (s *PreferenceStore) generation(ctx context.Context, userID string) (string, error) {
	raw, err := s.cache.Get(ctx, genKey(userID))
	if err != nil {
		return "", err
	}
	if len(raw) > 0 {
		return string(raw), nil
	}
	gen := ulid.Make().String()
	if err := s.cache.Set(ctx, genKey(userID), []byte(gen), s.ttl); err != nil {
		return "", err
	}
	return gen, nil
}

func (s *PreferenceStore) store(ctx context.Context, gen string, p *notifications.Preferences) {
	raw, err := json.Marshal(p)
	if err != nil {
		s.warn(ctx, "preference cache encode failed", p.UserID, err)
		return
	}
	if err := s.cache.Set(ctx, valueKey(p.UserID, gen), raw, s.ttl); err != nil {
		s.warn(ctx, "preference cache write failed", p.UserID, err)
	}
}

func (s *PreferenceStore) warn(ctx context.Context, msg, userID string, err error) {
	s.logger.LogAttrs(ctx, slog.LevelWarn, msg, logger.UserID(userID), logger.Error(err))
}
