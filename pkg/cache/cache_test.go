package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/scoregate/pkg/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func result(score int) models.ScoreResult {
	return models.ScoreResult{Score: score, Provider: models.ProviderTierA}
}

func TestGetReturnsIndependentCopy(t *testing.T) {
	c := New()
	in := models.ScoreResult{Score: 60, MissingKeywords: []string{"kubernetes", "docker"}}
	c.Put("k1", in)

	// mutating the caller's value after Put must not reach the entry
	in.MissingKeywords[0] = "changed"

	got, ok := c.Get("k1")
	require.True(t, ok)
	got.MissingKeywords[1] = "mutated"
	got.MissingKeywords = append(got.MissingKeywords, "extra")

	again, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, []string{"kubernetes", "docker"}, again.MissingKeywords)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("candidate text", "requirement text")
	b := Fingerprint("candidate text", "requirement text")
	c := Fingerprint("candidate text", "other requirement")

	assert.Equal(t, a, b, "same input should produce same fingerprint")
	assert.NotEqual(t, a, c, "different requirement should produce different fingerprint")
	assert.Len(t, a, 64)
}

func TestFingerprintBoundary(t *testing.T) {
	assert.NotEqual(t, Fingerprint("ab", "c"), Fingerprint("a", "bc"))
}

func TestPutAndGet(t *testing.T) {
	c := New()
	c.Put("k1", result(80))

	got, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, 80, got.Score)

	_, ok = c.Get("k2")
	assert.False(t, ok)
}

func TestPutOverwrites(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now), WithTTL(time.Minute))

	c.Put("k", result(10))
	clock.Advance(50 * time.Second)
	c.Put("k", result(20))
	clock.Advance(50 * time.Second)

	got, ok := c.Get("k")
	require.True(t, ok, "overwrite should refresh createdAt")
	assert.Equal(t, 20, got.Score)
	assert.Equal(t, 1, c.Len())
}

func TestTTLBoundary(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now), WithTTL(time.Hour))

	c.Put("k", result(50))

	clock.Advance(time.Hour - time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok, "entry should be served just before TTL")

	clock.Advance(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry should be absent after TTL")
	assert.Equal(t, 0, c.Len(), "expired entry should be evicted on read")
}

func TestCapacityEvictsOldest(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now), WithCapacity(3))

	for i := 0; i < 4; i++ {
		c.Put(fmt.Sprintf("k%d", i), result(i))
		clock.Advance(time.Second)
	}

	assert.Equal(t, 3, c.Len())
	_, ok := c.Get("k0")
	assert.False(t, ok, "oldest entry should be evicted")
	for i := 1; i < 4; i++ {
		_, ok := c.Get(fmt.Sprintf("k%d", i))
		assert.True(t, ok, "k%d should remain", i)
	}
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestCapacityTieBreakIsInsertionOrder(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now), WithCapacity(2))

	c.Put("first", result(1))
	c.Put("second", result(2))
	c.Put("third", result(3))

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("first")
	assert.False(t, ok)
	_, ok = c.Get("second")
	assert.True(t, ok)
}

func TestStats(t *testing.T) {
	c := New(WithCapacity(10))
	c.Put("h1", result(1))
	c.Get("h1")
	c.Get("h2")

	s := c.Stats()
	assert.Equal(t, int64(1), s.Entries)
	assert.Equal(t, 10, s.Capacity)
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
}

func TestClear(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now), WithTTL(time.Minute))

	c.Put("old", result(1))
	clock.Advance(2 * time.Minute)
	c.Put("fresh", result(2))

	assert.Equal(t, 1, c.Clear(true))
	assert.Equal(t, 1, c.Len())

	assert.Equal(t, 1, c.Clear(false))
	assert.Equal(t, 0, c.Len())
}

func TestConcurrentAccess(t *testing.T) {
	c := New(WithCapacity(50))
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d-%d", i, j)
				c.Put(key, result(j))
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 50)
}
