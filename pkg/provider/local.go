package provider

import (
	"context"
	"math"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/pario-ai/scoregate/pkg/models"
)

const (
	maxLocalScore   = 95
	maxLocalMissing = 10

	// DegradedWarning accompanies every result produced by the local tier.
	DegradedWarning = "AI services temporarily unavailable. Showing keyword analysis."

	// OptimizeDegradedWarning accompanies an unchanged text returned when no
	// remote tier could rewrite it.
	OptimizeDegradedWarning = "AI services temporarily unavailable. Returning the original text unchanged."
)

var tokenPattern = regexp.MustCompile(`\b\w{4,}\b`)

// vocabulary is the occupational skill list the local scorer filters
// requirement tokens against. Terms shorter than four characters can never
// be produced by the tokenizer and are omitted.
var vocabulary = toSet(
	"accounting", "administration", "analysis", "analytical", "analytics",
	"application", "applications", "assessment", "audit", "banking",
	"budget", "budgeting", "business", "certification", "client",
	"cloud", "communication", "compliance", "consulting", "coordination",
	"customer", "data", "database", "design", "development",
	"documentation", "engineering", "evaluation", "finance", "financial",
	"healthcare", "implementation", "insurance", "integration", "leadership",
	"management", "marketing", "microsoft", "network", "networking",
	"operations", "optimization", "planning", "policy", "presentation",
	"process", "product", "project", "quality", "reporting",
	"research", "risk", "sales", "security", "software",
	"solution", "statistics", "strategic", "strategy",
	"support", "system", "systems", "team", "technical",
	"technology", "testing", "training", "user", "validation",
	"vendor", "workflow", "agile", "algorithm",
	"architecture", "authentication", "automation", "azure",
	"backup", "code", "coding", "configuration", "container",
	"continuous", "dashboard", "debugging", "deployment", "devops",
	"docker", "framework", "frontend", "backend",
	"github", "graphql", "infrastructure", "java", "javascript",
	"kubernetes", "linux", "maintenance", "methodology", "metrics",
	"mobile", "monitoring", "node", "nosql", "performance",
	"pipeline", "problem", "prototyping", "python", "react",
	"refactoring", "reliability", "repository", "requirements", "rest",
	"scalability", "scrum", "server", "service", "storage",
	"typescript", "virtual", "virtualization",
)

var localSuggestions = []string{
	"Add more recognized industry keywords from the job description",
	"Use standard industry terminology",
	"Quantify achievements with metrics",
	"Include relevant technical skills",
}

var localFormattingIssues = []string{
	"Use standard headers: Experience, Education, Skills",
	"Ensure consistent formatting",
}

// Local is the network-free keyword scorer used when no remote tier can serve.
type Local struct{}

// NewLocal returns the local scorer.
func NewLocal() *Local { return &Local{} }

// Score implements Scorer. It never returns an error.
func (l *Local) Score(_ context.Context, candidate, requirement string) (models.ScoreResult, error) {
	return LocalScore(candidate, requirement), nil
}

// LocalScore computes the keyword-gap score of candidate against requirement.
func LocalScore(candidate, requirement string) models.ScoreResult {
	candidateLower := strings.ToLower(candidate)
	tokens := tokenPattern.FindAllString(strings.ToLower(requirement), -1)

	// repeated terms count once per occurrence
	missing := []string{}
	for _, tok := range tokens {
		if len(missing) == maxLocalMissing {
			break
		}
		if vocabulary[tok] && !strings.Contains(candidateLower, tok) {
			missing = append(missing, tok)
		}
	}

	ratio := 1 - float64(len(missing))/float64(max(len(tokens), 1))
	score := min(maxLocalScore, int(math.Round(ratio*100)))

	return models.ScoreResult{
		Score:            score,
		MissingKeywords:  missing,
		Suggestions:      append([]string(nil), localSuggestions...),
		FormattingIssues: append([]string(nil), localFormattingIssues...),
		Provider:         models.ProviderLocal,
		Backend:          "keyword",
		Timestamp:        time.Now().UTC(),
		Warning:          DegradedWarning,
	}
}

// LocalOptimize returns candidate unchanged. The local tier cannot rewrite
// text; missing is echoed so callers still see the keyword gap.
func LocalOptimize(candidate string, missing []string) models.OptimizeResult {
	return models.OptimizeResult{
		Text:            candidate,
		MissingKeywords: nonNil(slices.Clone(missing)),
		Provider:        models.ProviderLocal,
		Backend:         "passthrough",
		Timestamp:       time.Now().UTC(),
		Warning:         OptimizeDegradedWarning,
	}
}

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
