package models

import (
	"slices"
	"time"
)

// OptimizeResult is a candidate text rewritten to cover the keywords a
// requirement asks for.
type OptimizeResult struct {
	Text            string    `json:"optimizedText"`
	MissingKeywords []string  `json:"missingKeywords"`
	Provider        Provider  `json:"provider"`
	Backend         string    `json:"backend,omitempty"`
	Model           string    `json:"model,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	Warning         string    `json:"warning,omitempty"`
}

// Degraded reports whether the rewrite carries a degraded-mode warning.
func (r OptimizeResult) Degraded() bool {
	return r.Warning != ""
}

// Clone returns a copy of r that shares no slices with it.
func (r OptimizeResult) Clone() OptimizeResult {
	r.MissingKeywords = slices.Clone(r.MissingKeywords)
	return r
}
