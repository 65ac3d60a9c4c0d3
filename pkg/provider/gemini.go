package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"github.com/pario-ai/scoregate/pkg/config"
	"github.com/pario-ai/scoregate/pkg/models"
)

// Gemini scores through the Gemini generateContent API.
type Gemini struct {
	tier   models.Provider
	model  string
	client *genai.Client
}

// NewGemini creates a Gemini scorer. cfg.URL overrides the API base URL.
func NewGemini(ctx context.Context, tier models.Provider, cfg config.ProviderConfig, httpClient *http.Client) (*Gemini, error) {
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.URL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.URL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{tier: tier, model: cfg.Model, client: client}, nil
}

// Score implements Scorer.
func (g *Gemini) Score(ctx context.Context, candidate, requirement string) (models.ScoreResult, error) {
	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, ""),
		Temperature:       genai.Ptr[float32](0.3),
		MaxOutputTokens:   2048,
		ResponseMIMEType:  "application/json",
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(userPrompt(candidate, requirement)), genCfg)
	if err != nil {
		return models.ScoreResult{}, &ProviderError{Provider: g.tier, StatusCode: geminiStatus(err), Err: err}
	}

	parsed, err := parseResult(result.Text())
	if err != nil {
		return models.ScoreResult{}, &ProviderError{Provider: g.tier, Err: err}
	}

	logrus.WithFields(logrus.Fields{
		"tier":  g.tier,
		"model": g.model,
		"score": parsed.Score,
	}).Debug("[GEMINI] Score completed")

	return stamp(parsed, g.tier, "gemini", g.model), nil
}

// Optimize implements Optimizer.
func (g *Gemini) Optimize(ctx context.Context, candidate, requirement string, missing []string) (models.OptimizeResult, error) {
	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(optimizeSystemPrompt, ""),
		Temperature:       genai.Ptr[float32](0.5),
		MaxOutputTokens:   4096,
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(optimizePrompt(candidate, requirement, missing)), genCfg)
	if err != nil {
		return models.OptimizeResult{}, &ProviderError{Provider: g.tier, StatusCode: geminiStatus(err), Err: err}
	}

	text, err := parseText(result.Text())
	if err != nil {
		return models.OptimizeResult{}, &ProviderError{Provider: g.tier, Err: err}
	}

	logrus.WithFields(logrus.Fields{
		"tier":  g.tier,
		"model": g.model,
		"chars": len(text),
	}).Debug("[GEMINI] Optimize completed")
	return models.OptimizeResult{
		Text:            text,
		MissingKeywords: nonNil(slices.Clone(missing)),
		Provider:        g.tier,
		Backend:         "gemini",
		Model:           g.model,
		Timestamp:       time.Now().UTC(),
	}, nil
}

func geminiStatus(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
