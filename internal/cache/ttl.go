package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// entry is the value stored in the recency list.
type entry[K comparable, V any] struct {
	key          K
	value        V
	expiresAt    time.Time
	lastAccessed time.Time
}

// Option configures a TTL cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now as the cache's time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// TTL is a generic TTL cache with LRU eviction. It is safe for concurrent use.
type TTL[K comparable, V any] struct {
	mu       sync.Mutex
	name     string
	ttl      time.Duration
	capacity int
	now      func() time.Time

	// order holds entries from most (front) to least (back) recently accessed.
	order *list.List
	items map[K]*list.Element

	hits, misses, expirations, evictions prometheus.Counter
}

// New creates a cache holding at most capacity entries, each living for ttl
// after its last Set. name labels the cache's metrics. A capacity below one
// is treated as one.
func New[K comparable, V any](name string, ttl time.Duration, capacity int, opts ...Option) *TTL[K, V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if capacity < 1 {
		capacity = 1
	}

	return &TTL[K, V]{
		name:        name,
		ttl:         ttl,
		capacity:    capacity,
		now:         o.now,
		order:       list.New(),
		items:       make(map[K]*list.Element, capacity),
		hits:        cacheEventsTotal.WithLabelValues(name, eventHit),
		misses:      cacheEventsTotal.WithLabelValues(name, eventMiss),
		expirations: cacheEventsTotal.WithLabelValues(name, eventExpire),
		evictions:   cacheEventsTotal.WithLabelValues(name, eventEvict),
	}
}

// Get returns the value stored under key. A missing key and an expired key
// both report a miss; an expired entry is removed by the lookup.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key, c.now())
	if !ok {
		c.misses.Inc()
		var zero V
		return zero, false
	}
	c.hits.Inc()
	return e.value, true
}

// Set inserts or overwrites key, resetting its expiry to now+ttl. When the
// cache is full the least recently accessed entry is evicted first.
func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store(key, value, c.now())
}

// Update atomically replaces the value under key with the result of fn.
// fn receives the current value and whether it was present (and unexpired).
// If fn returns false the cache is left unchanged. Update reports whether a
// write happened.
func (c *TTL[K, V]) Update(key K, fn func(current V, found bool) (V, bool)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var current V
	e, found := c.lookup(key, now)
	if found {
		current = e.value
	}

	next, ok := fn(current, found)
	if !ok {
		return false
	}
	c.store(key, next, now)
	return true
}

// Delete removes key if present.
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.remove(el)
	}
}

// Len returns the number of stored entries, including expired entries that
// have not been looked up since they expired.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear removes every entry.
func (c *TTL[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	clear(c.items)
}

// Name returns the label the cache was created with.
func (c *TTL[K, V]) Name() string {
	return c.name
}

// lookup finds an unexpired entry, marks it most recently accessed and
// evicts it instead if it has expired. c.mu must be held.
func (c *TTL[K, V]) lookup(key K, now time.Time) (*entry[K, V], bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}

	e := el.Value.(*entry[K, V])
	if now.After(e.expiresAt) {
		c.remove(el)
		c.expirations.Inc()
		return nil, false
	}

	e.lastAccessed = now
	c.order.MoveToFront(el)
	return e, true
}

// store writes key and enforces capacity. c.mu must be held.
func (c *TTL[K, V]) store(key K, value V, now time.Time) {
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		e.value = value
		e.expiresAt = now.Add(c.ttl)
		e.lastAccessed = now
		c.order.MoveToFront(el)
		return
	}

	for c.order.Len() >= c.capacity {
		c.remove(c.order.Back())
		c.evictions.Inc()
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{
		key:          key,
		value:        value,
		expiresAt:    now.Add(c.ttl),
		lastAccessed: now,
	})
}

// remove unlinks el from both indexes. c.mu must be held.
func (c *TTL[K, V]) remove(el *list.Element) {
	e := c.order.Remove(el).(*entry[K, V])
	delete(c.items, e.key)
}
