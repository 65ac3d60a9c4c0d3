package models

import "time"

// AttemptOutcome is the result of a single tier attempt.
type AttemptOutcome string

const (
	OutcomeSuccess   AttemptOutcome = "success"
	OutcomeFailed    AttemptOutcome = "failed"
	OutcomeExhausted AttemptOutcome = "exhausted"
	OutcomeFallback  AttemptOutcome = "fallback"
)

// Operation names the kind of work a tier attempt served.
type Operation string

const (
	OperationScore    Operation = "score"
	OperationOptimize Operation = "optimize"
)

// AuditEntry records one tier attempt made while scoring a job.
type AuditEntry struct {
	ID          int64          `json:"id"`
	JobID       string         `json:"job_id"`
	Operation   Operation      `json:"operation"`
	Fingerprint string         `json:"fingerprint"`
	Provider    Provider       `json:"provider"`
	Outcome     AttemptOutcome `json:"outcome"`
	StatusCode  int            `json:"status_code,omitempty"`
	Error       string         `json:"error,omitempty"`
	Score       int            `json:"score"`
	LatencyMs   int64          `json:"latency_ms"`
	Input       string         `json:"input,omitempty"` // sealed ivHex:cipherHex excerpt
	CreatedAt   time.Time      `json:"created_at"`
}

// AuditConfig controls the audit ledger.
type AuditConfig struct {
	Enabled     bool          `yaml:"enabled"`
	DBPath      string        `yaml:"db_path"`
	Retention   time.Duration `yaml:"retention"`
	StoreInputs bool          `yaml:"store_inputs"`
	MaxInput    int           `yaml:"max_input"` // bytes of candidate text sealed per entry
}

// AuditQueryOpts specifies filters for querying audit entries.
type AuditQueryOpts struct {
	JobID       string
	Operation   Operation
	Fingerprint string
	Provider    Provider
	Outcome     AttemptOutcome
	Since       time.Time
	Limit       int
}

// AuditStat holds aggregate attempt counts for a provider/outcome pair.
type AuditStat struct {
	Provider Provider       `json:"provider"`
	Outcome  AttemptOutcome `json:"outcome"`
	Count    int            `json:"count"`
}
