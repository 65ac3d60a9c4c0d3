package quota

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/pario-ai/scoregate/pkg/models"
)

// ErrQuotaExhausted is reported when no remote provider has quota left.
var ErrQuotaExhausted = errors.New("quota exhausted")

// DefaultWindow is the length of a quota window.
const DefaultWindow = 24 * time.Hour

// Limit is the number of dispatches a provider accepts per window.
type Limit struct {
	Provider models.Provider
	Daily    int64
}

type counter struct {
	limit   int64
	count   int64
	pending int64
	resetAt time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithWindow sets the quota window length. Non-positive values are ignored.
func WithWindow(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.window = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// Tracker gates remote providers by their usage in the current window.
// Providers are considered in the order their limits were given.
type Tracker struct {
	mu       sync.Mutex
	order    []models.Provider
	counters map[models.Provider]*counter
	window   time.Duration
	now      func() time.Time
}

// New creates a Tracker for the given provider limits.
func New(limits []Limit, opts ...Option) *Tracker {
	t := &Tracker{
		counters: make(map[models.Provider]*counter, len(limits)),
		window:   DefaultWindow,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	start := t.now()
	for _, l := range limits {
		if _, dup := t.counters[l.Provider]; dup {
			continue
		}
		t.order = append(t.order, l.Provider)
		t.counters[l.Provider] = &counter{limit: l.Daily, resetAt: start.Add(t.window)}
	}
	return t
}

// AvailableProvider returns the highest-priority provider with quota left,
// skipping any in exclude. Expired windows are reset first.
func (t *Tracker) AvailableProvider(exclude ...models.Provider) (models.Provider, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pick(exclude)
}

// Claim is AvailableProvider plus a reservation of one slot on the chosen
// provider. The reservation must be settled with RecordUsage or Release.
func (t *Tracker) Claim(exclude ...models.Provider) (models.Provider, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.pick(exclude)
	if !ok {
		return "", ErrQuotaExhausted
	}
	t.counters[p].pending++
	return p, nil
}

// RecordUsage counts one successful dispatch to p, settling a claim if one
// is outstanding. Providers without a limit (local) are ignored.
func (t *Tracker) RecordUsage(p models.Provider) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.counters[p]
	if !ok {
		return
	}
	t.resetIfExpired(c)
	if c.pending > 0 {
		c.pending--
	}
	c.count++
}

// Release drops a claim on p without counting usage.
func (t *Tracker) Release(p models.Provider) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.counters[p]; ok && c.pending > 0 {
		c.pending--
	}
}

// Status returns the usage of every tracked provider. Expired windows are
// reported as reset but not mutated.
func (t *Tracker) Status() []models.QuotaStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	out := make([]models.QuotaStatus, 0, len(t.order))
	for _, p := range t.order {
		c := t.counters[p]
		used, resetAt := c.count, c.resetAt
		if now.After(resetAt) {
			used, resetAt = 0, now.Add(t.window)
		}
		remaining := c.limit - used - c.pending
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, models.QuotaStatus{
			Provider:  p,
			Used:      used,
			Pending:   c.pending,
			Limit:     c.limit,
			Remaining: remaining,
			ResetAt:   resetAt,
		})
	}
	return out
}

// pick requires t.mu.
func (t *Tracker) pick(exclude []models.Provider) (models.Provider, bool) {
	for _, p := range t.order {
		c := t.counters[p]
		t.resetIfExpired(c)
		if slices.Contains(exclude, p) {
			continue
		}
		if c.count+c.pending < c.limit {
			return p, true
		}
	}
	return "", false
}

func (t *Tracker) resetIfExpired(c *counter) {
	now := t.now()
	if now.After(c.resetAt) {
		c.count = 0
		c.resetAt = now.Add(t.window)
	}
}
