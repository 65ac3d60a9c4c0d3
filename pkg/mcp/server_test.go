package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/pario-ai/scoregate/pkg/audit"
	"github.com/pario-ai/scoregate/pkg/broker"
	"github.com/pario-ai/scoregate/pkg/models"
)

// fakeBroker implements Broker for testing.
type fakeBroker struct {
	resp   broker.Response
	err    error
	status models.Status
	calls  int

	optimized models.OptimizeResult
	missing   []string
}

func (f *fakeBroker) Submit(_ context.Context, candidate, requirement string) (broker.Response, error) {
	f.calls++
	if f.err != nil {
		return broker.Response{}, f.err
	}
	if err := broker.Validate(candidate, requirement); err != nil {
		return broker.Response{}, err
	}
	return f.resp, nil
}

func (f *fakeBroker) Optimize(_ context.Context, candidate, requirement string, missing []string) (models.OptimizeResult, error) {
	f.calls++
	if err := broker.Validate(candidate, requirement); err != nil {
		return models.OptimizeResult{}, err
	}
	f.missing = missing
	return f.optimized, nil
}

func (f *fakeBroker) Status() models.Status { return f.status }

func sendAndReceive(t *testing.T, srv *Server, req Request) Response {
	t.Helper()
	line, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	line = append(line, '\n')

	var out bytes.Buffer
	if err := srv.Run(context.Background(), bytes.NewReader(line), &out); err != nil {
		t.Fatal(err)
	}

	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, out.String())
	}
	return resp
}

func callTool(t *testing.T, srv *Server, name string, args any) ToolCallResult {
	t.Helper()
	rawArgs, _ := json.Marshal(args)
	params, _ := json.Marshal(ToolCallParams{Name: name, Arguments: rawArgs})
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`3`),
		Method:  "tools/call",
		Params:  params,
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
	data, _ := json.Marshal(resp.Result)
	var result ToolCallResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Content) == 0 {
		t.Fatal("expected content")
	}
	return result
}

func TestInitialize(t *testing.T) {
	srv := New(&fakeBroker{}, nil, "test")
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  "initialize",
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result InitializeResult
	json.Unmarshal(data, &result)

	if result.ProtocolVersion != "2024-11-05" {
		t.Errorf("protocol version = %s, want 2024-11-05", result.ProtocolVersion)
	}
	if result.ServerInfo.Name != "scoregate" {
		t.Errorf("server name = %s, want scoregate", result.ServerInfo.Name)
	}
	if result.Capabilities.Tools == nil {
		t.Error("expected tools capability to be advertised")
	}
	if !strings.Contains(string(data), `"capabilities":{"tools":{}}`) {
		t.Errorf("unexpected capabilities encoding: %s", data)
	}
}

func TestToolsList(t *testing.T) {
	srv := New(&fakeBroker{}, nil, "test")
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`2`),
		Method:  "tools/list",
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result ToolsListResult
	json.Unmarshal(data, &result)

	if len(result.Tools) != len(toolHandlers) {
		t.Errorf("got %d tools, want %d", len(result.Tools), len(toolHandlers))
	}
	for _, tool := range result.Tools {
		if _, ok := toolHandlers[tool.Name]; !ok {
			t.Errorf("tool %s has no handler", tool.Name)
		}
	}
}

func TestToolCallStatus(t *testing.T) {
	fb := &fakeBroker{status: models.Status{
		Quota: []models.QuotaStatus{
			{Provider: models.ProviderTierA, Used: 3, Limit: 10, Remaining: 7, ResetAt: time.Now().Add(time.Hour)},
		},
		Queue: models.QueueStats{Depth: 2, InFlight: 1, MaxConcurrent: 3},
		Cache: models.CacheStats{Entries: 4, Capacity: 1000, Hits: 3, Misses: 1},
	}}
	srv := New(fb, nil, "test")

	result := callTool(t, srv, "scoregate_status", map[string]any{})
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", result.Content[0].Text)
	}
	text := result.Content[0].Text
	for _, want := range []string{"tierA", "In Flight:  1/3", "Hit Rate:  75.0%"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got:\n%s", want, text)
		}
	}
}

func TestToolCallStatusNoProviders(t *testing.T) {
	srv := New(&fakeBroker{}, nil, "test")
	result := callTool(t, srv, "scoregate_status", nil)
	if !strings.Contains(result.Content[0].Text, "local scorer") {
		t.Errorf("expected local scorer notice, got: %s", result.Content[0].Text)
	}
}

func TestToolCallScore(t *testing.T) {
	fb := &fakeBroker{resp: broker.Response{
		ScoreResult: models.ScoreResult{
			Score:           82,
			MissingKeywords: []string{"terraform"},
			Provider:        models.ProviderTierB,
			Model:           "llama",
			Warning:         "Primary scoring tier unavailable. Result served by tierB.",
		},
	}}
	srv := New(fb, nil, "test")

	result := callTool(t, srv, "scoregate_score", scoreArgs{
		Candidate:   strings.Repeat("c", 100),
		Requirement: strings.Repeat("r", 50),
	})
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", result.Content[0].Text)
	}
	text := result.Content[0].Text
	for _, want := range []string{"Score: 82/100", "tierB (llama)", "Warning:", "- terraform"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got:\n%s", want, text)
		}
	}
}

func TestToolCallScoreValidation(t *testing.T) {
	srv := New(&fakeBroker{}, nil, "test")
	result := callTool(t, srv, "scoregate_score", scoreArgs{Candidate: "short"})
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(result.Content[0].Text, "candidate") {
		t.Errorf("expected candidate field in message, got: %s", result.Content[0].Text)
	}
}

func TestToolCallOptimize(t *testing.T) {
	fb := &fakeBroker{optimized: models.OptimizeResult{
		Text:            "Rewritten resume mentioning terraform.",
		MissingKeywords: []string{"terraform"},
		Provider:        models.ProviderTierB,
		Model:           "llama",
		Warning:         "Primary tier unavailable. Rewrite served by tierB.",
	}}
	srv := New(fb, nil, "test")

	result := callTool(t, srv, "scoregate_optimize", optimizeArgs{
		scoreArgs:       scoreArgs{Candidate: strings.Repeat("c", 120), Requirement: strings.Repeat("r", 60)},
		MissingKeywords: []string{"terraform"},
	})
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.Content[0].Text)
	}
	text := result.Content[0].Text
	for _, want := range []string{"tierB (llama)", "Warning: Primary tier", "  - terraform", "Rewritten resume mentioning terraform."} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got: %s", want, text)
		}
	}
	if len(fb.missing) != 1 || fb.missing[0] != "terraform" {
		t.Errorf("missing keywords = %v, want [terraform]", fb.missing)
	}
}

func TestToolCallOptimizeValidation(t *testing.T) {
	srv := New(&fakeBroker{}, nil, "test")
	result := callTool(t, srv, "scoregate_optimize", optimizeArgs{scoreArgs: scoreArgs{Candidate: "short"}})
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(result.Content[0].Text, "candidate") {
		t.Errorf("expected candidate field in error, got: %s", result.Content[0].Text)
	}
}

func TestToolCallAuditNotConfigured(t *testing.T) {
	srv := New(&fakeBroker{}, nil, "test")
	for _, name := range []string{"scoregate_audit_search", "scoregate_audit_stats"} {
		result := callTool(t, srv, name, nil)
		if result.IsError {
			t.Errorf("%s: expected non-error result", name)
		}
		if !strings.Contains(result.Content[0].Text, "not configured") {
			t.Errorf("%s: expected not configured message, got: %s", name, result.Content[0].Text)
		}
	}
}

func newAuditor(t *testing.T) *audit.Logger {
	t.Helper()
	l, err := audit.New(models.AuditConfig{Enabled: true})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })

	ctx := context.Background()
	entries := []models.AuditEntry{
		{JobID: "job-1", Fingerprint: "fp1", Provider: models.ProviderTierA, Outcome: models.OutcomeFailed, StatusCode: 429, Error: "rate limited"},
		{JobID: "job-1", Fingerprint: "fp1", Provider: models.ProviderTierB, Outcome: models.OutcomeSuccess, Score: 70, LatencyMs: 120},
		{JobID: "job-2", Fingerprint: "fp2", Provider: models.ProviderLocal, Outcome: models.OutcomeFallback, Score: 40},
	}
	for _, e := range entries {
		if err := l.Log(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	return l
}

func TestToolCallAuditSearch(t *testing.T) {
	srv := New(&fakeBroker{}, newAuditor(t), "test")

	result := callTool(t, srv, "scoregate_audit_search", auditSearchArgs{JobID: "job-1"})
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", result.Content[0].Text)
	}
	text := result.Content[0].Text
	if !strings.Contains(text, "rate limited") || !strings.Contains(text, "429") {
		t.Errorf("expected failed attempt in output, got:\n%s", text)
	}
	if strings.Contains(text, "job-2") {
		t.Errorf("expected job-2 filtered out, got:\n%s", text)
	}
}

func TestToolCallAuditSearchByOperation(t *testing.T) {
	srv := New(&fakeBroker{}, newAuditor(t), "test")

	result := callTool(t, srv, "scoregate_audit_search", auditSearchArgs{Operation: "optimize"})
	if !strings.Contains(result.Content[0].Text, "No audit entries found") {
		t.Errorf("expected no optimize entries, got:\n%s", result.Content[0].Text)
	}
	result = callTool(t, srv, "scoregate_audit_search", auditSearchArgs{Operation: "score"})
	if !strings.Contains(result.Content[0].Text, "job-2") {
		t.Errorf("expected score entries, got:\n%s", result.Content[0].Text)
	}
}

func TestToolCallAuditSearchBadSince(t *testing.T) {
	srv := New(&fakeBroker{}, newAuditor(t), "test")
	result := callTool(t, srv, "scoregate_audit_search", auditSearchArgs{Since: "yesterday"})
	if !result.IsError {
		t.Fatal("expected error for invalid since date")
	}
}

func TestToolCallAuditStats(t *testing.T) {
	srv := New(&fakeBroker{}, newAuditor(t), "test")
	result := callTool(t, srv, "scoregate_audit_stats", nil)
	text := result.Content[0].Text
	for _, want := range []string{"tierA", "failed", "local", "fallback"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got:\n%s", want, text)
		}
	}
}

func TestUnknownTool(t *testing.T) {
	srv := New(&fakeBroker{}, nil, "test")
	result := callTool(t, srv, "nope", nil)
	if !result.IsError {
		t.Error("expected error result for unknown tool")
	}
}

func TestNotificationNoResponse(t *testing.T) {
	srv := New(&fakeBroker{}, nil, "test")
	line, _ := json.Marshal(Request{JSONRPC: "2.0", Method: "notifications/initialized"})
	line = append(line, '\n')

	var out bytes.Buffer
	if err := srv.Run(context.Background(), bytes.NewReader(line), &out); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no output for notification, got: %s", out.String())
	}
}

func TestUnknownMethod(t *testing.T) {
	srv := New(&fakeBroker{}, nil, "test")
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`9`),
		Method:  "bogus/method",
	})
	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
	if resp.Error.Code != CodeMethodNotFound {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeMethodNotFound)
	}
}

func TestParseError(t *testing.T) {
	srv := New(&fakeBroker{}, nil, "test")
	var out bytes.Buffer
	if err := srv.Run(context.Background(), strings.NewReader("{not json\n"), &out); err != nil {
		t.Fatal(err)
	}
	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || resp.Error.Code != CodeParseError {
		t.Errorf("expected parse error, got %+v", resp.Error)
	}
}
