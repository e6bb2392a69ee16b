// Package memo implements the memoization cache shared by every execution
// context: the cooperative loop, pooled worker goroutines and inline callers.
//
// All operations are serialized by a single mutex. Retention is unbounded
// when the capacity is zero or negative; otherwise the least-recently-used
// unpinned entry is evicted once the number of unpinned entries exceeds the
// capacity. Pinned entries are never evicted and do not count against the
// capacity, so the cache can temporarily hold more than capacity entries.
package memo

import (
	"context"
	"errors"
	"math"
	"math/big"
	"strconv"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/sync/singleflight"
)

// EvictFunc observes an eviction. It runs with the cache lock held and must
// not call back into the cache.
type EvictFunc func(n uint64, v *big.Int)

// Option configures a Cache.
type Option func(*Cache)

// WithOnEvict registers an eviction observer.
func WithOnEvict(fn EvictFunc) Option {
	return func(c *Cache) { c.onEvict = fn }
}

// WithName sets the label used for the cache's metrics.
func WithName(name string) Option {
	return func(c *Cache) { c.name = name }
}

type pinned struct {
	value *big.Int
	refs  int
}

// Cache maps a Fibonacci index to its value.
type Cache struct {
	mu       sync.Mutex
	capacity int
	lru      *simplelru.LRU[uint64, *big.Int]
	pins     map[uint64]*pinned
	claims   map[uint64]struct{}
	released chan struct{}
	flight   singleflight.Group
	onEvict  EvictFunc
	name     string
	metrics  *cacheMetrics

	// moving is set while an entry is taken out of the LRU to be pinned;
	// simplelru reports removals through the eviction callback.
	moving bool
}

// New returns an empty cache. capacity <= 0 means unbounded.
func New(capacity int, opts ...Option) *Cache {
	c := &Cache{
		capacity: capacity,
		pins:     make(map[uint64]*pinned),
		claims:   make(map[uint64]struct{}),
		released: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.name == "" {
		c.name = defaultName(capacity)
	}
	c.metrics = metricsFor(c.name)

	size := capacity
	if size <= 0 {
		size = math.MaxInt
	}
	// NewLRU only fails for a non-positive size.
	c.lru, _ = simplelru.NewLRU[uint64, *big.Int](size, c.evicted)
	return c
}

func defaultName(capacity int) string {
	if capacity <= 0 {
		return "unbounded"
	}
	return "lru-" + strconv.Itoa(capacity)
}

func (c *Cache) evicted(n uint64, v *big.Int) {
	if c.moving {
		return
	}
	c.metrics.evictions.Inc()
	if c.onEvict != nil {
		c.onEvict(n, v)
	}
}

// Capacity returns the configured capacity (<= 0 for unbounded).
func (c *Cache) Capacity() int { return c.capacity }

// Name returns the metrics label of the cache.
func (c *Cache) Name() string { return c.name }

// Get returns a copy of the value stored for n and marks it most recently used.
func (c *Cache) Get(n uint64) (*big.Int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lookup(n, true)
	if !ok {
		c.metrics.misses.Inc()
		return nil, false
	}
	c.metrics.hits.Inc()
	return new(big.Int).Set(v), true
}

// Peek returns a copy of the value stored for n without touching recency.
func (c *Cache) Peek(n uint64) (*big.Int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lookup(n, false)
	if !ok {
		return nil, false
	}
	return new(big.Int).Set(v), true
}

// Contains reports whether n is stored, without touching recency.
func (c *Cache) Contains(n uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.lookup(n, false)
	return ok
}

func (c *Cache) lookup(n uint64, touch bool) (*big.Int, bool) {
	if p, ok := c.pins[n]; ok {
		return p.value, true
	}
	if touch {
		return c.lru.Get(n)
	}
	return c.lru.Peek(n)
}

// Put stores a copy of v for n and clears any claim on n. Storing into the
// LRU may evict the least-recently-used unpinned entry.
func (c *Cache) Put(n uint64, v *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(n, v)
}

// PutPinned stores v for n and pins it in one step, so that the entry cannot
// be evicted before the caller's next use of it.
func (c *Cache) PutPinned(n uint64, v *big.Int) {
	cp := new(big.Int).Set(v)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.release(n)
	if p, ok := c.pins[n]; ok {
		p.value = cp
		p.refs++
		return
	}
	if c.lru.Contains(n) {
		c.moving = true
		c.lru.Remove(n)
		c.moving = false
	}
	c.pins[n] = &pinned{value: cp, refs: 1}
	c.metrics.size.Set(float64(c.lru.Len()))
}

// GetPinned is Get followed by Pin under the same lock.
func (c *Cache) GetPinned(n uint64) (*big.Int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lookup(n, true)
	if !ok {
		c.metrics.misses.Inc()
		return nil, false
	}
	c.metrics.hits.Inc()
	c.pin(n)
	return new(big.Int).Set(v), true
}

func (c *Cache) put(n uint64, v *big.Int) {
	cp := new(big.Int).Set(v)
	c.release(n)
	if p, ok := c.pins[n]; ok {
		p.value = cp
		return
	}
	c.lru.Add(n, cp)
	c.metrics.size.Set(float64(c.lru.Len()))
}

// release drops the claim on n, waking goroutines waiting in Load.
func (c *Cache) release(n uint64) {
	if _, ok := c.claims[n]; !ok {
		return
	}
	delete(c.claims, n)
	close(c.released)
	c.released = make(chan struct{})
}

// Pin marks n as in use so that it cannot be evicted. Pins are counted; each
// successful Pin must be matched by one Unpin. It returns false if n is not
// stored.
func (c *Cache) Pin(n uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pin(n)
}

func (c *Cache) pin(n uint64) bool {
	if p, ok := c.pins[n]; ok {
		p.refs++
		return true
	}
	v, ok := c.lru.Peek(n)
	if !ok {
		return false
	}
	c.moving = true
	c.lru.Remove(n)
	c.moving = false
	c.pins[n] = &pinned{value: v, refs: 1}
	c.metrics.size.Set(float64(c.lru.Len()))
	return true
}

// Unpin drops one pin on n. When the last pin goes the entry re-enters the
// LRU as most recently used, which may evict the oldest unpinned entry.
func (c *Cache) Unpin(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pins[n]
	if !ok {
		return
	}
	p.refs--
	if p.refs > 0 {
		return
	}
	delete(c.pins, n)
	c.lru.Add(n, p.value)
	c.metrics.size.Set(float64(c.lru.Len()))
}

// Pinned returns the number of distinct pinned indices.
func (c *Cache) Pinned() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pins)
}

// Len returns the number of stored entries, pinned ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len() + len(c.pins)
}

// Keys returns the unpinned indices from least to most recently used.
func (c *Cache) Keys() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Keys()
}

// Claim marks n as being computed by the caller. It fails if n is already
// stored or claimed by someone else. A claim ends with Put or Abandon.
func (c *Cache) Claim(n uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.claims[n]; ok {
		return false
	}
	if _, ok := c.lookup(n, false); ok {
		return false
	}
	c.claims[n] = struct{}{}
	return true
}

// Claimed reports whether n is currently claimed.
func (c *Cache) Claimed(n uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.claims[n]
	return ok
}

// Abandon releases a claim without storing a value.
func (c *Cache) Abandon(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.release(n)
}

// Load returns the value for n, computing it at most once across concurrent
// callers. Goroutines asking for an index that is already being loaded share
// that computation's outcome. An index claimed by a cooperative task is waited
// for rather than recomputed; ctx bounds only that wait, so compute must watch
// ctx itself.
//
// A caller that joined another goroutine's load retries when that load ends
// because of the other goroutine's context while its own ctx is still live.
func (c *Cache) Load(ctx context.Context, n uint64, compute func() (*big.Int, error)) (*big.Int, error) {
	key := strconv.FormatUint(n, 10)
	for {
		if v, ok := c.Get(n); ok {
			return v, nil
		}
		led := false
		res, err, _ := c.flight.Do(key, func() (any, error) {
			led = true
			v, err := c.claimOrWait(ctx, n)
			if err != nil {
				return nil, err
			}
			if v != nil {
				return v, nil
			}
			v, err = compute()
			if err != nil {
				c.Abandon(n)
				return nil, err
			}
			c.Put(n, v)
			return v, nil
		})
		if err != nil {
			if !led && isContextErr(err) && ctx.Err() == nil {
				continue
			}
			return nil, err
		}
		return new(big.Int).Set(res.(*big.Int)), nil
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// claimOrWait returns the stored value for n, or claims n and returns nil.
func (c *Cache) claimOrWait(ctx context.Context, n uint64) (*big.Int, error) {
	for {
		c.mu.Lock()
		if v, ok := c.lookup(n, false); ok {
			cp := new(big.Int).Set(v)
			c.mu.Unlock()
			return cp, nil
		}
		if _, claimed := c.claims[n]; !claimed {
			c.claims[n] = struct{}{}
			c.mu.Unlock()
			return nil, nil
		}
		wait := c.released
		c.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
