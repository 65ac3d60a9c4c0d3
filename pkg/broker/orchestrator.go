package broker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pario-ai/scoregate/pkg/audit"
	"github.com/pario-ai/scoregate/pkg/cache"
	"github.com/pario-ai/scoregate/pkg/models"
	"github.com/pario-ai/scoregate/pkg/provider"
	"github.com/pario-ai/scoregate/pkg/queue"
	"github.com/pario-ai/scoregate/pkg/quota"
)

// DefaultTierTimeout bounds a single remote attempt when a tier sets none.
const DefaultTierTimeout = 30 * time.Second

// Tier is a remote backend in the fallback chain. A tier without an
// Optimizer is skipped for rewrites.
type Tier struct {
	Provider   models.Provider
	Scorer     provider.Scorer
	Optimizer  provider.Optimizer
	Timeout    time.Duration
	DailyLimit int64
}

// Orchestrator runs one job through the tier chain: each quota-eligible
// remote tier is tried at most once in priority order and the local
// scorer serves whatever is left.
type Orchestrator struct {
	tiers   map[models.Provider]Tier
	order   []models.Provider
	quota   *quota.Tracker
	local   provider.Scorer
	auditor *audit.Logger
}

// NewOrchestrator creates an Orchestrator over tiers, gated by q.
func NewOrchestrator(tiers []Tier, q *quota.Tracker, auditor *audit.Logger) *Orchestrator {
	o := &Orchestrator{
		tiers:   make(map[models.Provider]Tier, len(tiers)),
		quota:   q,
		local:   provider.NewLocal(),
		auditor: auditor,
	}
	for _, t := range tiers {
		if t.Timeout <= 0 {
			t.Timeout = DefaultTierTimeout
		}
		o.tiers[t.Provider] = t
		o.order = append(o.order, t.Provider)
	}
	return o
}

// Score implements queue.Handler. It never returns an error: unexpected
// failures are converted into a local result.
func (o *Orchestrator) Score(ctx context.Context, job *queue.Job) (result models.ScoreResult, err error) {
	fp := cache.Fingerprint(job.Candidate, job.Requirement)
	log := logrus.WithFields(logrus.Fields{"job_id": job.ID, "fingerprint": fp[:12]})

	// claimed holds a reservation not yet settled
	var claimed models.Provider
	defer func() {
		if rec := recover(); rec != nil {
			if claimed != "" {
				o.quota.Release(claimed)
			}
			log.WithField("panic", rec).Error("[BROKER] Orchestration panicked, using local scorer")
			result = o.fallback(ctx, job, fp, fmt.Errorf("panic: %v", rec))
			err = nil
		}
	}()

	var tried []models.Provider
	for {
		p, claimErr := o.quota.Claim(tried...)
		if claimErr != nil {
			break
		}
		tried = append(tried, p)
		claimed = p

		tier, ok := o.tiers[p]
		if !ok {
			o.quota.Release(p)
			claimed = ""
			continue
		}

		start := time.Now()
		tctx, cancel := context.WithTimeout(ctx, tier.Timeout)
		r, scoreErr := tier.Scorer.Score(tctx, job.Candidate, job.Requirement)
		cancel()
		latency := time.Since(start).Milliseconds()

		if scoreErr != nil {
			o.quota.Release(p)
			claimed = ""
			log.WithFields(logrus.Fields{
				"tier":       p,
				"latency_ms": latency,
			}).WithError(scoreErr).Warn("[BROKER] Tier failed, trying next")
			o.record(ctx, models.AuditEntry{
				JobID:       job.ID,
				Fingerprint: fp,
				Provider:    p,
				Outcome:     models.OutcomeFailed,
				StatusCode:  statusOf(scoreErr),
				Error:       scoreErr.Error(),
				LatencyMs:   latency,
				Input:       job.Candidate,
			})
			continue
		}

		o.quota.RecordUsage(p)
		claimed = ""
		if len(o.order) > 0 && p != o.order[0] {
			r.Warning = fmt.Sprintf("Primary scoring tier unavailable. Result served by %s.", p)
		}
		log.WithFields(logrus.Fields{
			"tier":       p,
			"score":      r.Score,
			"latency_ms": latency,
		}).Info("[BROKER] Job scored")
		o.record(ctx, models.AuditEntry{
			JobID:       job.ID,
			Fingerprint: fp,
			Provider:    p,
			Outcome:     models.OutcomeSuccess,
			Score:       r.Score,
			LatencyMs:   latency,
			Input:       job.Candidate,
		})
		return r, nil
	}

	for _, p := range o.order {
		if slices.Contains(tried, p) {
			continue
		}
		o.record(ctx, models.AuditEntry{
			JobID:       job.ID,
			Fingerprint: fp,
			Provider:    p,
			Outcome:     models.OutcomeExhausted,
			Error:       quota.ErrQuotaExhausted.Error(),
		})
	}

	reason := quota.ErrQuotaExhausted
	if len(tried) > 0 {
		reason = errors.New("all remote tiers failed")
	}
	return o.fallback(ctx, job, fp, reason), nil
}

func (o *Orchestrator) fallback(ctx context.Context, job *queue.Job, fp string, reason error) models.ScoreResult {
	start := time.Now()
	r, _ := o.local.Score(ctx, job.Candidate, job.Requirement)

	logrus.WithFields(logrus.Fields{
		"job_id": job.ID,
		"reason": reason.Error(),
		"score":  r.Score,
	}).Warn("[BROKER] Serving local fallback")
	o.record(ctx, models.AuditEntry{
		JobID:       job.ID,
		Fingerprint: fp,
		Provider:    models.ProviderLocal,
		Outcome:     models.OutcomeFallback,
		Error:       reason.Error(),
		Score:       r.Score,
		LatencyMs:   time.Since(start).Milliseconds(),
		Input:       job.Candidate,
	})
	return r
}

func (o *Orchestrator) record(ctx context.Context, e models.AuditEntry) {
	if o.auditor == nil {
		return
	}
	if err := o.auditor.Log(ctx, e); err != nil {
		logrus.WithError(err).Warn("[BROKER] Audit write failed")
	}
}

func statusOf(err error) int {
	var pe *provider.ProviderError
	if errors.As(err, &pe) {
		return pe.StatusCode
	}
	return 0
}
