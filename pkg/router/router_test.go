package router

import (
	"testing"

	"github.com/pario-ai/scoregate/pkg/config"
	"github.com/pario-ai/scoregate/pkg/models"
)

func TestResolveOrdersByTier(t *testing.T) {
	cfg := &config.Config{
		Providers: []config.ProviderConfig{
			{Tier: models.ProviderTierB, Type: "groq", APIKey: "gsk-1", DailyLimit: 14000},
			{Tier: models.ProviderTierA, Type: "gemini", APIKey: "g-1", DailyLimit: 1500},
		},
	}
	routes, err := New(cfg).Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if len(routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(routes))
	}
	if routes[0].Tier != models.ProviderTierA || routes[0].Provider.Type != "gemini" {
		t.Errorf("unexpected first route: %+v", routes[0])
	}
	if routes[1].Tier != models.ProviderTierB || routes[1].Provider.Type != "groq" {
		t.Errorf("unexpected second route: %+v", routes[1])
	}
}

func TestResolveSkipsDisabled(t *testing.T) {
	cfg := &config.Config{
		Providers: []config.ProviderConfig{
			{Tier: models.ProviderTierA, Type: "gemini", DailyLimit: 1500},
			{Tier: models.ProviderTierB, Type: "groq", APIKey: "gsk-1", DailyLimit: 14000},
		},
	}
	routes, err := New(cfg).Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if len(routes) != 1 || routes[0].Tier != models.ProviderTierB {
		t.Fatalf("expected only tierB, got %+v", routes)
	}
}

func TestResolveNoProviders(t *testing.T) {
	routes, err := New(&config.Config{}).Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if len(routes) != 0 {
		t.Errorf("expected empty chain, got %d routes", len(routes))
	}
}

func TestResolveDuplicateTier(t *testing.T) {
	cfg := &config.Config{
		Providers: []config.ProviderConfig{
			{Tier: models.ProviderTierA, Type: "gemini", APIKey: "a", DailyLimit: 1},
			{Tier: models.ProviderTierA, Type: "groq", APIKey: "b", DailyLimit: 1},
		},
	}
	if _, err := New(cfg).Resolve(); err == nil {
		t.Fatal("expected error for duplicate tier")
	}
}
