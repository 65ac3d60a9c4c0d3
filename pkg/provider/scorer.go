// Package provider implements the scoring backends behind each tier.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pario-ai/scoregate/pkg/config"
	"github.com/pario-ai/scoregate/pkg/models"
)

// Scorer compares a candidate text against a requirement text.
type Scorer interface {
	Score(ctx context.Context, candidate, requirement string) (models.ScoreResult, error)
}

// Optimizer rewrites a candidate text so it covers the keywords the
// requirement asks for.
type Optimizer interface {
	Optimize(ctx context.Context, candidate, requirement string, missing []string) (models.OptimizeResult, error)
}

// Client is a remote tier backend.
type Client interface {
	Scorer
	Optimizer
}

// ProviderError reports a failed call to a remote tier. StatusCode is zero
// for network, timeout and parse failures.
type ProviderError struct {
	Provider   models.Provider
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// New builds the remote Client for a configured tier.
func New(ctx context.Context, tier models.Provider, cfg config.ProviderConfig, client *http.Client) (Client, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	switch cfg.Type {
	case "gemini":
		return NewGemini(ctx, tier, cfg, client)
	case "groq":
		return NewGroq(tier, cfg, client), nil
	default:
		return nil, fmt.Errorf("tier %s: unknown provider type %q", tier, cfg.Type)
	}
}

func stamp(r models.ScoreResult, tier models.Provider, backend, model string) models.ScoreResult {
	r.Provider = tier
	r.Backend = backend
	r.Model = model
	r.Timestamp = time.Now().UTC()
	return r
}
