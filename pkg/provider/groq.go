package provider

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sirupsen/logrus"

	"github.com/pario-ai/scoregate/pkg/config"
	"github.com/pario-ai/scoregate/pkg/models"
)

// DefaultGroqURL is Groq's OpenAI-compatible endpoint.
const DefaultGroqURL = "https://api.groq.com/openai/v1"

// Groq scores through an OpenAI-compatible chat completions API.
type Groq struct {
	tier   models.Provider
	model  string
	client openai.Client
}

// NewGroq creates a Groq scorer. SDK retries are disabled; fallback
// between tiers is handled by the caller.
func NewGroq(tier models.Provider, cfg config.ProviderConfig, httpClient *http.Client) *Groq {
	baseURL := cfg.URL
	if baseURL == "" {
		baseURL = DefaultGroqURL
	}
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)
	return &Groq{tier: tier, model: cfg.Model, client: client}
}

// Score implements Scorer.
func (g *Groq) Score(ctx context.Context, candidate, requirement string) (models.ScoreResult, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt(candidate, requirement)),
		},
		Temperature:         openai.Float(0.3),
		MaxCompletionTokens: openai.Int(2000),
	}

	content, err := g.complete(ctx, params)
	if err != nil {
		return models.ScoreResult{}, err
	}

	parsed, err := parseResult(content)
	if err != nil {
		return models.ScoreResult{}, &ProviderError{Provider: g.tier, Err: err}
	}

	logrus.WithFields(logrus.Fields{
		"tier":  g.tier,
		"model": g.model,
		"score": parsed.Score,
	}).Debug("[GROQ] Score completed")

	return stamp(parsed, g.tier, "groq", g.model), nil
}

// Optimize implements Optimizer.
func (g *Groq) Optimize(ctx context.Context, candidate, requirement string, missing []string) (models.OptimizeResult, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(optimizeSystemPrompt),
			openai.UserMessage(optimizePrompt(candidate, requirement, missing)),
		},
		Temperature:         openai.Float(0.5),
		MaxCompletionTokens: openai.Int(3000),
	}

	content, err := g.complete(ctx, params)
	if err != nil {
		return models.OptimizeResult{}, err
	}
	text, err := parseText(content)
	if err != nil {
		return models.OptimizeResult{}, &ProviderError{Provider: g.tier, Err: err}
	}

	logrus.WithFields(logrus.Fields{
		"tier":  g.tier,
		"model": g.model,
		"chars": len(text),
	}).Debug("[GROQ] Optimize completed")
	return models.OptimizeResult{
		Text:            text,
		MissingKeywords: nonNil(slices.Clone(missing)),
		Provider:        g.tier,
		Backend:         "groq",
		Model:           g.model,
		Timestamp:       time.Now().UTC(),
	}, nil
}

// complete makes one chat completion call and returns the first choice.
func (g *Groq) complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		pe := &ProviderError{Provider: g.tier, Err: err}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			pe.StatusCode = apiErr.StatusCode
		}
		return "", pe
	}
	if len(completion.Choices) == 0 {
		return "", &ProviderError{Provider: g.tier, Err: errors.New("no choices in response")}
	}
	return completion.Choices[0].Message.Content, nil
}
