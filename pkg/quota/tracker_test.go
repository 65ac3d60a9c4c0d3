package quota

import (
	"errors"
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

func newTracker(t *testing.T, a, b int64) (*Tracker, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	tr := New([]Limit{
		{Provider: models.ProviderTierA, Daily: a},
		{Provider: models.ProviderTierB, Daily: b},
	}, WithClock(clock.Now))
	return tr, clock
}

func TestAvailableProviderPriority(t *testing.T) {
	tr, _ := newTracker(t, 2, 2)

	p, ok := tr.AvailableProvider()
	require.True(t, ok)
	assert.Equal(t, models.ProviderTierA, p)

	p, ok = tr.AvailableProvider(models.ProviderTierA)
	require.True(t, ok)
	assert.Equal(t, models.ProviderTierB, p)

	_, ok = tr.AvailableProvider(models.ProviderTierA, models.ProviderTierB)
	assert.False(t, ok)
}

func TestGatingAndWindowReset(t *testing.T) {
	tr, clock := newTracker(t, 2, 1)

	tr.RecordUsage(models.ProviderTierA)
	tr.RecordUsage(models.ProviderTierA)

	p, ok := tr.AvailableProvider()
	require.True(t, ok)
	assert.Equal(t, models.ProviderTierB, p, "exhausted tierA should be skipped")

	tr.RecordUsage(models.ProviderTierB)
	_, ok = tr.AvailableProvider()
	assert.False(t, ok, "both tiers exhausted")

	clock.Advance(24*time.Hour + time.Second)

	p, ok = tr.AvailableProvider()
	require.True(t, ok)
	assert.Equal(t, models.ProviderTierA, p)
	for _, s := range tr.Status() {
		assert.Equal(t, int64(0), s.Used, "%s should be reset", s.Provider)
	}
}

func TestWindowNotResetAtBoundary(t *testing.T) {
	tr, clock := newTracker(t, 1, 0)
	tr.RecordUsage(models.ProviderTierA)

	clock.Advance(24 * time.Hour)
	_, ok := tr.AvailableProvider()
	assert.False(t, ok, "window resets only once now passes resetAt")
}

func TestClaimCountsPending(t *testing.T) {
	tr, _ := newTracker(t, 1, 1)

	p, err := tr.Claim()
	require.NoError(t, err)
	assert.Equal(t, models.ProviderTierA, p)

	p, err = tr.Claim()
	require.NoError(t, err)
	assert.Equal(t, models.ProviderTierB, p, "pending claim should hold tierA's last slot")

	_, err = tr.Claim()
	assert.True(t, errors.Is(err, ErrQuotaExhausted))

	tr.Release(models.ProviderTierA)
	tr.RecordUsage(models.ProviderTierB)

	p, err = tr.Claim()
	require.NoError(t, err)
	assert.Equal(t, models.ProviderTierA, p, "released slot is available again")
}

func TestConcurrentClaimsNeverOverbook(t *testing.T) {
	tr, _ := newTracker(t, 10, 5)

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := map[models.Provider]int{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := tr.Claim()
			if err != nil {
				return
			}
			tr.RecordUsage(p)
			mu.Lock()
			granted[p]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, granted[models.ProviderTierA])
	assert.Equal(t, 5, granted[models.ProviderTierB])
}

func TestRecordUsageIgnoresLocal(t *testing.T) {
	tr, _ := newTracker(t, 1, 1)
	tr.RecordUsage(models.ProviderLocal)

	status := tr.Status()
	require.Len(t, status, 2)
	for _, s := range status {
		assert.Equal(t, int64(0), s.Used)
	}
}

func TestStatus(t *testing.T) {
	tr, _ := newTracker(t, 1500, 14000)
	tr.RecordUsage(models.ProviderTierA)
	_, err := tr.Claim(models.ProviderTierA)
	require.NoError(t, err)

	status := tr.Status()
	require.Len(t, status, 2)
	assert.Equal(t, models.ProviderTierA, status[0].Provider)
	assert.Equal(t, int64(1499), status[0].Remaining)
	assert.Equal(t, int64(1), status[1].Pending)
	assert.Equal(t, int64(13999), status[1].Remaining)
}
