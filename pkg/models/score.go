package models

import (
	"slices"
	"time"
)

// Provider identifies a scoring tier.
type Provider string

const (
	ProviderTierA Provider = "tierA"
	ProviderTierB Provider = "tierB"
	ProviderLocal Provider = "local"
)

// RemoteProviders lists the quota-gated tiers in priority order.
var RemoteProviders = []Provider{ProviderTierA, ProviderTierB}

// ScoreResult is the outcome of comparing a candidate text against a
// requirement text. It is never mutated after a tier produces it.
type ScoreResult struct {
	Score            int       `json:"score"`
	MissingKeywords  []string  `json:"missingKeywords"`
	Suggestions      []string  `json:"suggestions"`
	FormattingIssues []string  `json:"formattingIssues"`
	Provider         Provider  `json:"provider"`
	Backend          string    `json:"backend,omitempty"`
	Model            string    `json:"model,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	Warning          string    `json:"warning,omitempty"`
}

// Degraded reports whether the result carries a degraded-mode warning.
func (r ScoreResult) Degraded() bool {
	return r.Warning != ""
}

// Clone returns a copy of r that shares no slices with it.
func (r ScoreResult) Clone() ScoreResult {
	r.MissingKeywords = slices.Clone(r.MissingKeywords)
	r.Suggestions = slices.Clone(r.Suggestions)
	r.FormattingIssues = slices.Clone(r.FormattingIssues)
	return r
}
