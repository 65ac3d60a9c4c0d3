package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/pario-ai/scoregate/pkg/models"
)

// Sealer encrypts input excerpts before they are stored.
type Sealer interface {
	Encrypt(plaintext string) (string, error)
}

// Option configures a Logger.
type Option func(*Logger)

// WithSealer enables storing sealed input excerpts when the config asks for it.
func WithSealer(s Sealer) Option {
	return func(l *Logger) { l.sealer = s }
}

// Logger records tier attempts in a SQLite database. The default path
// ":memory:" keeps the ledger for the lifetime of the process only.
type Logger struct {
	db     *sql.DB
	cfg    models.AuditConfig
	sealer Sealer
	done   chan struct{}
	wg     sync.WaitGroup
}

// New opens the audit database and creates the schema.
func New(cfg models.AuditConfig, opts ...Option) (*Logger, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = ":memory:"
	}
	dsn := cfg.DBPath
	if dsn != ":memory:" {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	l := &Logger{db: db, cfg: cfg, done: make(chan struct{})}
	for _, opt := range opts {
		opt(l)
	}

	if cfg.Retention > 0 {
		l.wg.Add(1)
		go l.retentionLoop()
	}
	return l, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS attempts (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id      TEXT NOT NULL,
		operation   TEXT NOT NULL DEFAULT 'score',
		fingerprint TEXT NOT NULL,
		provider    TEXT NOT NULL,
		outcome     TEXT NOT NULL,
		status_code INTEGER,
		error       TEXT,
		score       INTEGER,
		latency_ms  INTEGER,
		input       TEXT,
		created_at  INTEGER NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_attempts_job ON attempts(job_id)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_attempts_created ON attempts(created_at)`)
	return err
}

// Log inserts an attempt. A nil Logger discards entries.
func (l *Logger) Log(ctx context.Context, entry models.AuditEntry) error {
	if l == nil || l.db == nil {
		return nil
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.Operation == "" {
		entry.Operation = models.OperationScore
	}

	input := ""
	if l.cfg.StoreInputs && l.sealer != nil && entry.Input != "" {
		sealed, err := l.sealer.Encrypt(truncate(entry.Input, l.cfg.MaxInput))
		if err != nil {
			return fmt.Errorf("seal audit input: %w", err)
		}
		input = sealed
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO attempts
		(job_id, operation, fingerprint, provider, outcome, status_code, error, score, latency_ms, input, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.JobID, string(entry.Operation), entry.Fingerprint, string(entry.Provider), string(entry.Outcome),
		entry.StatusCode, entry.Error, entry.Score, entry.LatencyMs, input,
		entry.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Query returns attempts matching the given options, newest first.
func (l *Logger) Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, error) {
	q := `SELECT id, job_id, operation, fingerprint, provider, outcome, status_code, error,
		score, latency_ms, input, created_at
		FROM attempts WHERE 1=1`
	var args []any

	if opts.JobID != "" {
		q += " AND job_id = ?"
		args = append(args, opts.JobID)
	}
	if opts.Operation != "" {
		q += " AND operation = ?"
		args = append(args, string(opts.Operation))
	}
	if opts.Fingerprint != "" {
		q += " AND fingerprint = ?"
		args = append(args, opts.Fingerprint)
	}
	if opts.Provider != "" {
		q += " AND provider = ?"
		args = append(args, string(opts.Provider))
	}
	if opts.Outcome != "" {
		q += " AND outcome = ?"
		args = append(args, string(opts.Outcome))
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since.UnixMilli())
	}

	q += " ORDER BY created_at DESC, id DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var operation, provider, outcome string
		var errText, input sql.NullString
		var createdAt int64
		if err := rows.Scan(
			&e.ID, &e.JobID, &operation, &e.Fingerprint, &provider, &outcome,
			&e.StatusCode, &errText, &e.Score, &e.LatencyMs, &input, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		e.Operation = models.Operation(operation)
		e.Provider = models.Provider(provider)
		e.Outcome = models.AttemptOutcome(outcome)
		e.Error = errText.String
		e.Input = input.String
		e.CreatedAt = time.UnixMilli(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns attempt counts grouped by provider and outcome.
func (l *Logger) Stats(ctx context.Context) ([]models.AuditStat, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT provider, outcome, count(*) FROM attempts
		 GROUP BY provider, outcome ORDER BY provider, outcome`)
	if err != nil {
		return nil, fmt.Errorf("audit stats: %w", err)
	}
	defer rows.Close()

	var stats []models.AuditStat
	for rows.Next() {
		var s models.AuditStat
		var provider, outcome string
		if err := rows.Scan(&provider, &outcome, &s.Count); err != nil {
			return nil, fmt.Errorf("scan audit stat: %w", err)
		}
		s.Provider = models.Provider(provider)
		s.Outcome = models.AttemptOutcome(outcome)
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Cleanup deletes entries older than the retention period.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-l.cfg.Retention).UnixMilli()
	res, err := l.db.ExecContext(ctx, `DELETE FROM attempts WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Logger) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			n, err := l.Cleanup(context.Background())
			if err != nil {
				logrus.WithError(err).Warn("[AUDIT] Cleanup failed")
				continue
			}
			if n > 0 {
				logrus.WithField("removed", n).Debug("[AUDIT] Expired entries removed")
			}
		}
	}
}
