package router

import (
	"fmt"

	"github.com/pario-ai/scoregate/pkg/config"
	"github.com/pario-ai/scoregate/pkg/models"
)

// Route binds a remote tier to the provider configuration serving it.
type Route struct {
	Tier     models.Provider
	Provider config.ProviderConfig
}

// Router resolves the configured providers into the tier order used for fallback.
type Router struct {
	cfg *config.Config
}

// New creates a Router from the given configuration.
func New(cfg *config.Config) *Router {
	return &Router{cfg: cfg}
}

// Resolve returns the enabled remote tiers in priority order. Tiers without
// an API key or with a zero limit are left out. An empty chain is valid:
// every request is then served by the local tier.
func (r *Router) Resolve() ([]Route, error) {
	byTier := make(map[models.Provider]config.ProviderConfig, len(r.cfg.Providers))
	for _, p := range r.cfg.Providers {
		if _, dup := byTier[p.Tier]; dup {
			return nil, fmt.Errorf("tier %s configured twice", p.Tier)
		}
		byTier[p.Tier] = p
	}

	var routes []Route
	for _, tier := range models.RemoteProviders {
		p, ok := byTier[tier]
		if !ok || !p.Enabled() {
			continue
		}
		routes = append(routes, Route{Tier: tier, Provider: p})
	}
	return routes, nil
}
