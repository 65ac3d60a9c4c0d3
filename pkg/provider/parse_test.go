package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResult(t *testing.T) {
	got, err := parseResult(`{"score": 72.6, "missingKeywords": ["kubernetes"], "suggestions": ["a"], "formattingIssues": []}`)
	require.NoError(t, err)
	assert.Equal(t, 73, got.Score)
	assert.Equal(t, []string{"kubernetes"}, got.MissingKeywords)
	assert.Equal(t, []string{"a"}, got.Suggestions)
	assert.Empty(t, got.FormattingIssues)
}

func TestParseResultAliases(t *testing.T) {
	got, err := parseResult(`{"atsScore": 64, "keywordsMissing": ["sql"], "recommendations": ["r"], "formatIssues": ["tables"]}`)
	require.NoError(t, err)
	assert.Equal(t, 64, got.Score)
	assert.Equal(t, []string{"sql"}, got.MissingKeywords)
	assert.Equal(t, []string{"r"}, got.Suggestions)
	assert.Equal(t, []string{"tables"}, got.FormattingIssues)
}

func TestParseResultStripsFencesAndProse(t *testing.T) {
	text := "Here is the analysis:\n```json\n{\"score\": 88, \"missingKeywords\": []}\n```\nThanks"
	got, err := parseResult(text)
	require.NoError(t, err)
	assert.Equal(t, 88, got.Score)
	assert.NotNil(t, got.Suggestions)
}

func TestParseResultClamps(t *testing.T) {
	got, err := parseResult(`{"score": 140}`)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Score)

	got, err = parseResult(`{"score": -3}`)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Score)
}

func TestParseResultErrors(t *testing.T) {
	_, err := parseResult("not json at all")
	assert.Error(t, err)

	_, err = parseResult(`{"missingKeywords": ["x"]}`)
	assert.True(t, errors.Is(err, errNoScore))
}

func TestProviderErrorFormat(t *testing.T) {
	err := &ProviderError{Provider: "tierA", StatusCode: 503, Err: errors.New("unavailable")}
	assert.Equal(t, "provider tierA: status 503: unavailable", err.Error())

	err = &ProviderError{Provider: "tierB", Err: errNoScore}
	assert.Equal(t, "provider tierB: response has no score", err.Error())
	assert.True(t, errors.Is(err, errNoScore))
}

func TestParseText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  Jane Doe\nEngineer  \n", "Jane Doe\nEngineer"},
		{"fenced", "```\nJane Doe\nEngineer\n```", "Jane Doe\nEngineer"},
		{"fenced with language", "```markdown\nJane Doe\n```", "Jane Doe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseText(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTextEmpty(t *testing.T) {
	for _, in := range []string{"", "   \n", "```\n```"} {
		_, err := parseText(in)
		assert.True(t, errors.Is(err, errEmptyText), "input %q", in)
	}
}
