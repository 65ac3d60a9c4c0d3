package cache

import "time"

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the maximum age of an entry. Non-positive values are ignored.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithCapacity sets the maximum number of entries. Non-positive values are ignored.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}
