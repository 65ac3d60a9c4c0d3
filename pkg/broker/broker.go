// Package broker admits scoring requests, serves them from cache when
// possible and otherwise runs them through the tier fallback chain.
package broker

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/pario-ai/scoregate/pkg/audit"
	"github.com/pario-ai/scoregate/pkg/cache"
	"github.com/pario-ai/scoregate/pkg/config"
	"github.com/pario-ai/scoregate/pkg/models"
	"github.com/pario-ai/scoregate/pkg/provider"
	"github.com/pario-ai/scoregate/pkg/queue"
	"github.com/pario-ai/scoregate/pkg/quota"
	"github.com/pario-ai/scoregate/pkg/router"
)

// Response is a scored result and whether it came from the cache.
type Response struct {
	models.ScoreResult
	Cached bool `json:"cached"`
}

type settings struct {
	cacheOpts []cache.Option
	queueOpts []queue.Option
	quotaOpts []quota.Option
	auditor   *audit.Logger
}

// Option configures a Broker.
type Option func(*settings)

// WithCacheOptions passes options to the result cache.
func WithCacheOptions(opts ...cache.Option) Option {
	return func(s *settings) { s.cacheOpts = append(s.cacheOpts, opts...) }
}

// WithQueueOptions passes options to the admission queue.
func WithQueueOptions(opts ...queue.Option) Option {
	return func(s *settings) { s.queueOpts = append(s.queueOpts, opts...) }
}

// WithQuotaOptions passes options to the quota tracker.
func WithQuotaOptions(opts ...quota.Option) Option {
	return func(s *settings) { s.quotaOpts = append(s.quotaOpts, opts...) }
}

// WithAudit records every tier attempt in l.
func WithAudit(l *audit.Logger) Option {
	return func(s *settings) { s.auditor = l }
}

// Broker owns the cache, quota tracker and queue of one scoring service.
type Broker struct {
	cache *cache.Cache
	quota *quota.Tracker
	queue *queue.Queue
	orch  *Orchestrator
	tiers []models.Provider
}

// New creates a Broker over the given remote tiers, highest priority first.
func New(tiers []Tier, opts ...Option) *Broker {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	limits := make([]quota.Limit, 0, len(tiers))
	order := make([]models.Provider, 0, len(tiers)+1)
	for _, t := range tiers {
		limits = append(limits, quota.Limit{Provider: t.Provider, Daily: t.DailyLimit})
		order = append(order, t.Provider)
	}
	order = append(order, models.ProviderLocal)

	b := &Broker{
		cache: cache.New(s.cacheOpts...),
		quota: quota.New(limits, s.quotaOpts...),
		tiers: order,
	}
	b.orch = NewOrchestrator(tiers, b.quota, s.auditor)
	b.queue = queue.New(b.handle, s.queueOpts...)
	return b
}

// FromConfig builds a Broker with remote tiers resolved from cfg.
func FromConfig(ctx context.Context, cfg *config.Config, auditor *audit.Logger) (*Broker, error) {
	routes, err := router.New(cfg).Resolve()
	if err != nil {
		return nil, fmt.Errorf("resolve tiers: %w", err)
	}

	tiers := make([]Tier, 0, len(routes))
	for _, r := range routes {
		client := &http.Client{Timeout: r.Provider.Timeout}
		s, err := provider.New(ctx, r.Tier, r.Provider, client)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, Tier{
			Provider:   r.Tier,
			Scorer:     s,
			Optimizer:  s,
			Timeout:    r.Provider.Timeout,
			DailyLimit: r.Provider.DailyLimit,
		})
		logrus.WithFields(logrus.Fields{
			"tier":        r.Tier,
			"backend":     r.Provider.Type,
			"model":       r.Provider.Model,
			"daily_limit": r.Provider.DailyLimit,
		}).Info("[BROKER] Tier enabled")
	}
	if len(tiers) == 0 {
		logrus.Warn("[BROKER] No remote tiers enabled, all requests use the local scorer")
	}

	return New(tiers,
		WithCacheOptions(cache.WithTTL(cfg.Cache.TTL), cache.WithCapacity(cfg.Cache.Capacity)),
		WithQueueOptions(queue.WithMaxConcurrent(cfg.Queue.MaxConcurrent), queue.WithDispatchDelay(cfg.Queue.DispatchDelay)),
		WithQuotaOptions(quota.WithWindow(cfg.Quota.Window)),
		WithAudit(auditor),
	), nil
}

// handle runs a dispatched job and caches its result. Caching here keeps
// the result even when the submitter stopped waiting.
func (b *Broker) handle(ctx context.Context, job *queue.Job) (models.ScoreResult, error) {
	r, err := b.orch.Score(ctx, job)
	if err != nil {
		return r, err
	}
	b.cache.Put(cache.Fingerprint(job.Candidate, job.Requirement), r)
	return r, nil
}

// Submit scores a candidate/requirement pair. Validation failures return a
// *ValidationError; once admitted, a request always yields a result.
func (b *Broker) Submit(ctx context.Context, candidate, requirement string) (Response, error) {
	if err := Validate(candidate, requirement); err != nil {
		return Response{}, err
	}

	key := cache.Fingerprint(candidate, requirement)
	if r, ok := b.cache.Get(key); ok {
		logrus.WithField("fingerprint", key[:12]).Debug("[BROKER] Cache hit")
		return Response{ScoreResult: r, Cached: true}, nil
	}

	job, err := b.queue.Submit(candidate, requirement)
	if err != nil {
		return Response{}, fmt.Errorf("admit request: %w", err)
	}

	r, err := job.Wait(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return Response{}, err
		}
		logrus.WithField("job_id", job.ID).WithError(err).Error("[BROKER] Job failed, using local scorer")
		return Response{ScoreResult: provider.LocalScore(candidate, requirement)}, nil
	}
	return Response{ScoreResult: r}, nil
}

// Status returns a read-only snapshot of cache, queue and quota state.
func (b *Broker) Status() models.Status {
	cs := b.cache.Stats()
	qs := b.queue.Stats()
	return models.Status{
		CacheSize:  cs.Entries,
		QueueDepth: qs.Depth,
		Cache:      cs,
		Queue:      qs,
		Quota:      b.quota.Status(),
		Tiers:      append([]models.Provider(nil), b.tiers...),
	}
}

// Close stops admission and waits for admitted jobs to finish.
func (b *Broker) Close(ctx context.Context) error {
	return b.queue.Close(ctx)
}
