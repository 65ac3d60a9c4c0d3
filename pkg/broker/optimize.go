package broker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pario-ai/scoregate/pkg/cache"
	"github.com/pario-ai/scoregate/pkg/models"
	"github.com/pario-ai/scoregate/pkg/provider"
	"github.com/pario-ai/scoregate/pkg/quota"
)

// Optimize rewrites candidate through the tier chain using the same quota
// as scoring. It never fails: when no remote tier can serve, candidate is
// returned unchanged with a warning.
func (o *Orchestrator) Optimize(ctx context.Context, candidate, requirement string, missing []string) (result models.OptimizeResult) {
	jobID := uuid.NewString()
	fp := cache.Fingerprint(candidate, requirement)
	log := logrus.WithFields(logrus.Fields{"job_id": jobID, "fingerprint": fp[:12]})

	var claimed models.Provider
	defer func() {
		if rec := recover(); rec != nil {
			if claimed != "" {
				o.quota.Release(claimed)
			}
			log.WithField("panic", rec).Error("[BROKER] Optimize panicked, returning original text")
			result = o.passthrough(ctx, jobID, fp, candidate, missing, fmt.Errorf("panic: %v", rec))
		}
	}()

	var tried []models.Provider
	for ctx.Err() == nil {
		p, claimErr := o.quota.Claim(tried...)
		if claimErr != nil {
			break
		}
		tried = append(tried, p)
		claimed = p

		tier, ok := o.tiers[p]
		if !ok || tier.Optimizer == nil {
			o.quota.Release(p)
			claimed = ""
			continue
		}

		start := time.Now()
		tctx, cancel := context.WithTimeout(ctx, tier.Timeout)
		r, optErr := tier.Optimizer.Optimize(tctx, candidate, requirement, missing)
		cancel()
		latency := time.Since(start).Milliseconds()

		if optErr != nil {
			o.quota.Release(p)
			claimed = ""
			log.WithFields(logrus.Fields{
				"tier":       p,
				"latency_ms": latency,
			}).WithError(optErr).Warn("[BROKER] Tier failed to optimize, trying next")
			o.record(ctx, models.AuditEntry{
				JobID:       jobID,
				Operation:   models.OperationOptimize,
				Fingerprint: fp,
				Provider:    p,
				Outcome:     models.OutcomeFailed,
				StatusCode:  statusOf(optErr),
				Error:       optErr.Error(),
				LatencyMs:   latency,
				Input:       candidate,
			})
			continue
		}

		o.quota.RecordUsage(p)
		claimed = ""
		if p != o.order[0] {
			r.Warning = fmt.Sprintf("Primary tier unavailable. Rewrite served by %s.", p)
		}
		log.WithFields(logrus.Fields{
			"tier":       p,
			"latency_ms": latency,
		}).Info("[BROKER] Text optimized")
		o.record(ctx, models.AuditEntry{
			JobID:       jobID,
			Operation:   models.OperationOptimize,
			Fingerprint: fp,
			Provider:    p,
			Outcome:     models.OutcomeSuccess,
			LatencyMs:   latency,
			Input:       candidate,
		})
		return r
	}

	for _, p := range o.order {
		if slices.Contains(tried, p) {
			continue
		}
		o.record(ctx, models.AuditEntry{
			JobID:       jobID,
			Operation:   models.OperationOptimize,
			Fingerprint: fp,
			Provider:    p,
			Outcome:     models.OutcomeExhausted,
			Error:       quota.ErrQuotaExhausted.Error(),
		})
	}

	var reason error = quota.ErrQuotaExhausted
	switch {
	case ctx.Err() != nil:
		reason = ctx.Err()
	case len(tried) > 0:
		reason = errors.New("all remote tiers failed")
	}
	return o.passthrough(ctx, jobID, fp, candidate, missing, reason)
}

func (o *Orchestrator) passthrough(ctx context.Context, jobID, fp, candidate string, missing []string, reason error) models.OptimizeResult {
	logrus.WithFields(logrus.Fields{
		"job_id": jobID,
		"reason": reason.Error(),
	}).Warn("[BROKER] Returning original text")
	o.record(ctx, models.AuditEntry{
		JobID:       jobID,
		Operation:   models.OperationOptimize,
		Fingerprint: fp,
		Provider:    models.ProviderLocal,
		Outcome:     models.OutcomeFallback,
		Error:       reason.Error(),
		Input:       candidate,
	})
	return provider.LocalOptimize(candidate, missing)
}

// Optimize rewrites candidate to cover the keywords requirement asks for.
// When missing is empty the keyword gap is taken from the local scorer.
// Rewrites bypass the admission queue and are not cached.
func (b *Broker) Optimize(ctx context.Context, candidate, requirement string, missing []string) (models.OptimizeResult, error) {
	if err := Validate(candidate, requirement); err != nil {
		return models.OptimizeResult{}, err
	}
	if len(missing) == 0 {
		missing = provider.LocalScore(candidate, requirement).MissingKeywords
	}
	r := b.orch.Optimize(ctx, candidate, requirement, uniq(missing))
	if err := ctx.Err(); err != nil {
		return models.OptimizeResult{}, err
	}
	return r, nil
}

// uniq drops repeated keywords, keeping first occurrences in order.
func uniq(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if !slices.Contains(out, w) {
			out = append(out, w)
		}
	}
	return out
}
