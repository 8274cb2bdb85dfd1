package cache

import (
	"container/list"
	"context"
	"slices"
	"sync"
	"time"
)

const DefaultCapacity = 10000

type entry struct {
	key     string
	val     []byte
	expires time.Time // zero means no expiry
}

// LRU is a size-bounded in-process byte cache with per-key TTL. It has the
// same Get/Set/Delete shape as redis.Storage, so either can back the
// preference cache.
type LRU struct {
	capacity int
	now      func() time.Time

	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List
}

// Option configures an LRU.
type Option func(*LRU)

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *LRU) {
		if now != nil {
			c.now = now
		}
	}
}

// NewLRU returns a cache holding at most capacity keys. A non-positive
// capacity uses DefaultCapacity.
func NewLRU(capacity int, opts ...Option) *LRU {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &LRU{
		capacity: capacity,
		now:      time.Now,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the value, or nil when the key is missing or expired.
func (c *LRU) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, nil
	}
	e := elem.Value.(*entry)
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		c.remove(elem)
		return nil, nil
	}
	c.order.MoveToFront(elem)
	return slices.Clone(e.val), nil
}

// Set stores a copy of val. A non-positive ttl never expires.
func (c *LRU) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	var expires time.Time
	if ttl > 0 {
		expires = c.now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry)
		e.val, e.expires = slices.Clone(val), expires
		c.order.MoveToFront(elem)
		return nil
	}

	c.items[key] = c.order.PushFront(&entry{key: key, val: slices.Clone(val), expires: expires})
	if c.order.Len() > c.capacity {
		c.remove(c.order.Back())
	}
	return nil
}

// Delete drops key. Missing keys are not an error.
func (c *LRU) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
	return nil
}

// Len reports the number of stored keys, expired ones included until touched.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// caller holds mu
func (c *LRU) remove(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*entry).key)
}
