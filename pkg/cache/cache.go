package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pario-ai/scoregate/pkg/models"
)

const (
	DefaultTTL      = time.Hour
	DefaultCapacity = 1000
)

type entry struct {
	models.CacheEntry
	seq uint64
}

// Cache is a bounded in-memory result cache keyed by fingerprint.
// Entries expire lazily after the TTL and the oldest entry is evicted
// when an insert pushes the size over capacity.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	ttl      time.Duration
	capacity int
	now      func() time.Time
	seq      uint64

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New creates an empty Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:  make(map[string]*entry),
		ttl:      DefaultTTL,
		capacity: DefaultCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the cached result for key. An entry older than the
// TTL is removed and reported as a miss.
func (c *Cache) Get(key string) (models.ScoreResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return models.ScoreResult{}, false
	}
	if c.now().Sub(e.CreatedAt) > c.ttl {
		delete(c.entries, key)
		c.misses.Add(1)
		return models.ScoreResult{}, false
	}

	c.hits.Add(1)
	return e.Value.Clone(), true
}

// Put stores value under key, replacing any previous entry.
func (c *Cache) Put(key string, value models.ScoreResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.entries[key] = &entry{
		CacheEntry: models.CacheEntry{Key: key, Value: value.Clone(), CreatedAt: c.now()},
		seq:        c.seq,
	}

	if len(c.entries) > c.capacity {
		c.evictOldest()
	}
}

// evictOldest removes the entry with the smallest creation time. Equal
// timestamps fall back to insertion order. Callers hold c.mu.
func (c *Cache) evictOldest() {
	var oldest *entry
	for _, e := range c.entries {
		if oldest == nil ||
			e.CreatedAt.Before(oldest.CreatedAt) ||
			(e.CreatedAt.Equal(oldest.CreatedAt) && e.seq < oldest.seq) {
			oldest = e
		}
	}
	if oldest != nil {
		delete(c.entries, oldest.Key)
		c.evictions.Add(1)
	}
}

// Len returns the number of stored entries, including expired ones not yet read.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cache performance metrics.
func (c *Cache) Stats() models.CacheStats {
	return models.CacheStats{
		Entries:   int64(c.Len()),
		Capacity:  c.capacity,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Clear removes cache entries. If expiredOnly is true, only expired entries are removed.
// It returns the number of entries removed.
func (c *Cache) Clear(expiredOnly bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !expiredOnly {
		n := len(c.entries)
		c.entries = make(map[string]*entry)
		return n
	}

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if now.Sub(e.CreatedAt) > c.ttl {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}
