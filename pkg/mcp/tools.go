package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/pario-ai/scoregate/pkg/broker"
	"github.com/pario-ai/scoregate/pkg/models"
)

// toolHandler is a function that handles a tool call.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

// toolHandlers maps tool names to their handlers.
var toolHandlers = map[string]toolHandler{
	"scoregate_status":       handleStatus,
	"scoregate_score":        handleScore,
	"scoregate_optimize":     handleOptimize,
	"scoregate_audit_search": handleAuditSearch,
	"scoregate_audit_stats":  handleAuditStats,
}

// allTools is the list of tool definitions exposed via tools/list.
var allTools = []ToolDefinition{
	{
		Name:        "scoregate_status",
		Description: "Show broker status: provider quota, queue depth and cache statistics.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name:        "scoregate_score",
		Description: "Score a candidate document against a requirement document.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"candidate", "requirement"},
			"properties": map[string]any{
				"candidate": map[string]any{
					"type":        "string",
					"description": "Candidate document text (at least 100 characters)",
				},
				"requirement": map[string]any{
					"type":        "string",
					"description": "Requirement document text (at least 50 characters)",
				},
			},
		},
	},
	{
		Name:        "scoregate_optimize",
		Description: "Rewrite a candidate document to cover the keywords a requirement asks for. Returns the original text with a warning when no remote tier is available.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"candidate", "requirement"},
			"properties": map[string]any{
				"candidate": map[string]any{
					"type":        "string",
					"description": "Candidate document text (at least 100 characters)",
				},
				"requirement": map[string]any{
					"type":        "string",
					"description": "Requirement document text (at least 50 characters)",
				},
				"missing_keywords": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Keywords to work in (optional, defaults to the local keyword gap)",
				},
			},
		},
	},
	{
		Name:        "scoregate_audit_search",
		Description: "Search the tier attempt audit log with optional filters.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"job_id": map[string]any{
					"type":        "string",
					"description": "Filter by job ID (optional)",
				},
				"fingerprint": map[string]any{
					"type":        "string",
					"description": "Filter by request fingerprint (optional)",
				},
				"provider": map[string]any{
					"type":        "string",
					"description": "Filter by provider: tierA, tierB or local (optional)",
				},
				"outcome": map[string]any{
					"type":        "string",
					"description": "Filter by outcome: success, failed, exhausted or fallback (optional)",
				},
				"operation": map[string]any{
					"type":        "string",
					"description": "Filter by operation: score or optimize (optional)",
				},
				"since": map[string]any{
					"type":        "string",
					"description": "Start date in YYYY-MM-DD format (optional)",
				},
			},
		},
	},
	{
		Name:        "scoregate_audit_stats",
		Description: "Show attempt counts grouped by provider and outcome.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

func handleStatus(_ context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	return textResult(formatStatus(s.broker.Status()))
}

type scoreArgs struct {
	Candidate   string `json:"candidate"`
	Requirement string `json:"requirement"`
}

func handleScore(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args scoreArgs
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return errorResult("Invalid arguments: " + err.Error())
		}
	}
	resp, err := s.broker.Submit(ctx, args.Candidate, args.Requirement)
	if err != nil {
		var verr *broker.ValidationError
		if errors.As(err, &verr) {
			return errorResult(verr.Error())
		}
		return errorResult("Error scoring documents: " + err.Error())
	}
	return textResult(formatScore(resp))
}

type optimizeArgs struct {
	scoreArgs
	MissingKeywords []string `json:"missing_keywords"`
}

func handleOptimize(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args optimizeArgs
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return errorResult("Invalid arguments: " + err.Error())
		}
	}
	res, err := s.broker.Optimize(ctx, args.Candidate, args.Requirement, args.MissingKeywords)
	if err != nil {
		var verr *broker.ValidationError
		if errors.As(err, &verr) {
			return errorResult(verr.Error())
		}
		return errorResult("Error optimizing document: " + err.Error())
	}
	return textResult(formatOptimize(res))
}

type auditSearchArgs struct {
	JobID       string `json:"job_id"`
	Fingerprint string `json:"fingerprint"`
	Provider    string `json:"provider"`
	Outcome     string `json:"outcome"`
	Operation   string `json:"operation"`
	Since       string `json:"since"`
}

func handleAuditSearch(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.auditor == nil {
		return textResult("Audit logging is not configured.")
	}
	var args auditSearchArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}

	opts := models.AuditQueryOpts{
		JobID:       args.JobID,
		Fingerprint: args.Fingerprint,
		Provider:    models.Provider(args.Provider),
		Outcome:     models.AttemptOutcome(args.Outcome),
		Operation:   models.Operation(args.Operation),
		Limit:       50,
	}
	if args.Since != "" {
		t, err := time.Parse("2006-01-02", args.Since)
		if err != nil {
			return errorResult("Invalid since date (use YYYY-MM-DD): " + err.Error())
		}
		opts.Since = t
	}

	entries, err := s.auditor.Query(ctx, opts)
	if err != nil {
		return errorResult("Error searching audit log: " + err.Error())
	}
	return textResult(formatAuditEntries(entries))
}

func handleAuditStats(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	if s.auditor == nil {
		return textResult("Audit logging is not configured.")
	}
	stats, err := s.auditor.Stats(ctx)
	if err != nil {
		return errorResult("Error fetching audit stats: " + err.Error())
	}
	return textResult(formatAuditStats(stats))
}
