package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/pario-ai/scoregate/pkg/models"
)

var (
	errNoScore   = errors.New("response has no score")
	errEmptyText = errors.New("response has no text")
)

// remoteResult accepts both field vocabularies returned by the backends.
type remoteResult struct {
	Score            *float64 `json:"score"`
	ATSScore         *float64 `json:"atsScore"`
	MissingKeywords  []string `json:"missingKeywords"`
	KeywordsMissing  []string `json:"keywordsMissing"`
	Suggestions      []string `json:"suggestions"`
	Recommendations  []string `json:"recommendations"`
	FormattingIssues []string `json:"formattingIssues"`
	FormatIssues     []string `json:"formatIssues"`
}

// parseResult decodes a model reply into a ScoreResult. Markdown fences and
// text around the outermost JSON object are ignored.
func parseResult(text string) (models.ScoreResult, error) {
	body := stripFences(text)
	if start, end := strings.Index(body, "{"), strings.LastIndex(body, "}"); start >= 0 && end > start {
		body = body[start : end+1]
	}

	var raw remoteResult
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return models.ScoreResult{}, fmt.Errorf("decode response: %w", err)
	}

	score := raw.Score
	if score == nil {
		score = raw.ATSScore
	}
	if score == nil {
		return models.ScoreResult{}, errNoScore
	}

	return models.ScoreResult{
		Score:            clampScore(*score),
		MissingKeywords:  nonNil(firstNonEmpty(raw.MissingKeywords, raw.KeywordsMissing)),
		Suggestions:      nonNil(firstNonEmpty(raw.Suggestions, raw.Recommendations)),
		FormattingIssues: nonNil(firstNonEmpty(raw.FormattingIssues, raw.FormatIssues)),
	}, nil
}

// parseText extracts a rewritten document from a model reply. A reply
// wrapped in a single fenced block is unwrapped.
func parseText(text string) (string, error) {
	body := strings.TrimSpace(text)
	if strings.HasPrefix(body, "```") && strings.HasSuffix(body, "```") && len(body) > 6 {
		body = strings.TrimSuffix(body, "```")
		if i := strings.IndexByte(body, '\n'); i >= 0 {
			body = body[i+1:]
		} else {
			body = ""
		}
		body = strings.TrimSpace(body)
	}
	if body == "" {
		return "", errEmptyText
	}
	return body, nil
}

func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func clampScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(100, v))))
}

func firstNonEmpty(a, b []string) []string {
	if len(a) > 0 {
		return a
	}
	return b
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
