// Package cache is a small in-process read-through cache with
// stale-while-revalidate and singleflight loading.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type Options struct {
	TTL                  time.Duration
	StaleWhileRevalidate time.Duration
	NegativeTTL          time.Duration
	MaxEntries           int
}

type MetricsHooks struct {
	OnHit   func(key string)
	OnMiss  func(key string)
	OnStale func(key string)
}

// Loader fetches a value on miss. ok=false with a nil error is a negative
// result (e.g. not found) and is cached for NegativeTTL.
type Loader[V any] func(ctx context.Context, key string) (V, bool, error)

type entry[V any] struct {
	value     V
	err       error
	negative  bool
	expiresAt time.Time
	staleAt   time.Time
}

type Cache[V any] struct {
	mu      sync.RWMutex
	items   map[string]*entry[V]
	order   []string
	opts    Options
	metrics MetricsHooks
	sf      singleflight.Group
	now     func() time.Time
}

type loadResult[V any] struct {
	val V
	ok  bool
	err error
}

func New[V any](opts Options, hooks MetricsHooks) *Cache[V] {
	return &Cache[V]{
		items:   make(map[string]*entry[V]),
		order:   make([]string, 0, 128),
		opts:    opts,
		metrics: hooks,
		now:     time.Now,
	}
}

// Get returns the cached value for key, loading it on miss. Entries past TTL
// but inside the stale window are served while one background refresh runs.
func (c *Cache[V]) Get(ctx context.Context, key string, loader Loader[V]) (V, bool, error) {
	now := c.now()
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if ok {
		switch {
		case now.Before(e.expiresAt):
			c.hook(c.metrics.OnHit, key)
			return e.value, !e.negative, e.err
		case now.Before(e.staleAt):
			c.hook(c.metrics.OnStale, key)
			go func() {
				_, _, _ = c.sf.Do("refresh:"+key, func() (interface{}, error) {
					val, ok, err := loader(context.WithoutCancel(ctx), key)
					c.store(key, val, ok, err)
					return nil, nil
				})
			}()
			return e.value, !e.negative, e.err
		default:
			c.Delete(key)
		}
	}

	c.hook(c.metrics.OnMiss, key)
	result, _, _ := c.sf.Do(key, func() (interface{}, error) {
		val, ok, err := loader(ctx, key)
		c.store(key, val, ok, err)
		return loadResult[V]{val: val, ok: ok, err: err}, nil
	})
	res := result.(loadResult[V])
	return res.val, res.ok, res.err
}

// Set stores a value with an explicit TTL
func (c *Cache[V]) Set(key string, val V, ttl time.Duration) {
	now := c.now()
	c.put(key, &entry[V]{
		value:     val,
		expiresAt: now.Add(ttl),
		staleAt:   now.Add(ttl).Add(c.opts.StaleWhileRevalidate),
	})
}

// Peek returns a cached positive value without loading. Stale entries count.
func (c *Cache[V]) Peek(key string) (V, bool) {
	var zero V
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	if !ok || e.negative || c.now().After(e.staleAt) {
		return zero, false
	}
	return e.value, true
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; !ok {
		return
	}
	delete(c.items, key)
	c.removeFromOrder(key)
}

// Len reports the number of entries, including stale ones
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[V]) store(key string, val V, ok bool, err error) {
	now := c.now()
	if ok {
		c.put(key, &entry[V]{
			value:     val,
			expiresAt: now.Add(c.opts.TTL),
			staleAt:   now.Add(c.opts.TTL).Add(c.opts.StaleWhileRevalidate),
		})
		return
	}
	// Errors are never cached; only clean negative results are
	if err != nil || c.opts.NegativeTTL <= 0 {
		return
	}
	c.put(key, &entry[V]{
		negative:  true,
		expiresAt: now.Add(c.opts.NegativeTTL),
		staleAt:   now.Add(c.opts.NegativeTTL),
	})
}

func (c *Cache[V]) put(key string, e *entry[V]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.items[key]; !exists {
		c.order = append(c.order, key)
	}
	c.items[key] = e
	c.evictIfNeeded()
}

func (c *Cache[V]) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// FIFO eviction
func (c *Cache[V]) evictIfNeeded() {
	if c.opts.MaxEntries <= 0 {
		return
	}
	for len(c.items) > c.opts.MaxEntries && len(c.order) > 0 {
		victim := c.order[0]
		c.order = c.order[1:]
		delete(c.items, victim)
	}
}

func (c *Cache[V]) hook(fn func(string), key string) {
	if fn != nil {
		fn(key)
	}
}
