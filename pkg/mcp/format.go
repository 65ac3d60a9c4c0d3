package mcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pario-ai/scoregate/pkg/broker"
	"github.com/pario-ai/scoregate/pkg/models"
)

// formatStatus formats a broker snapshot as text tables.
func formatStatus(st models.Status) string {
	var b strings.Builder
	b.WriteString(formatQuota(st.Quota))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Queue\n"+
		"  Depth:      %d\n"+
		"  In Flight:  %d/%d\n"+
		"  Completed:  %s\n"+
		"  Failed:     %s\n",
		st.Queue.Depth, st.Queue.InFlight, st.Queue.MaxConcurrent,
		humanize.Comma(st.Queue.Completed), humanize.Comma(st.Queue.Failed))
	b.WriteString("\n")
	b.WriteString(formatCacheStats(st.Cache))
	return b.String()
}

// formatQuota formats provider quota as a text table.
func formatQuota(rows []models.QuotaStatus) string {
	if len(rows) == 0 {
		return "No remote providers enabled. All requests use the local scorer.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %10s %8s %10s %10s  %s\n",
		"Provider", "Used", "Pending", "Limit", "Remaining", "Resets")
	b.WriteString(strings.Repeat("-", 70) + "\n")
	for _, q := range rows {
		fmt.Fprintf(&b, "%-10s %10d %8d %10d %10d  %s\n",
			q.Provider, q.Used, q.Pending, q.Limit, q.Remaining, humanize.Time(q.ResetAt))
	}
	return b.String()
}

// formatCacheStats formats cache stats as text.
func formatCacheStats(stats models.CacheStats) string {
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	return fmt.Sprintf("Cache\n"+
		"  Entries:   %d/%d\n"+
		"  Hits:      %d\n"+
		"  Misses:    %d\n"+
		"  Evictions: %d\n"+
		"  Hit Rate:  %.1f%%\n",
		stats.Entries, stats.Capacity, stats.Hits, stats.Misses, stats.Evictions, hitRate)
}

// formatScore formats a scored result for display.
func formatScore(resp broker.Response) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Score: %d/100\n", resp.Score)
	fmt.Fprintf(&b, "Provider: %s", resp.Provider)
	if resp.Model != "" {
		fmt.Fprintf(&b, " (%s)", resp.Model)
	}
	if resp.Cached {
		b.WriteString(" [cached]")
	}
	b.WriteString("\n")
	if resp.Warning != "" {
		fmt.Fprintf(&b, "Warning: %s\n", resp.Warning)
	}
	writeList(&b, "Missing Keywords", resp.MissingKeywords)
	writeList(&b, "Suggestions", resp.Suggestions)
	writeList(&b, "Formatting Issues", resp.FormattingIssues)
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "  - %s\n", it)
	}
}

func formatOptimize(r models.OptimizeResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Provider: %s", r.Provider)
	if r.Model != "" {
		fmt.Fprintf(&b, " (%s)", r.Model)
	}
	b.WriteString("\n")
	if r.Warning != "" {
		fmt.Fprintf(&b, "Warning: %s\n", r.Warning)
	}
	writeList(&b, "Targeted Keywords", r.MissingKeywords)
	fmt.Fprintf(&b, "\nOptimized Text:\n%s\n", r.Text)
	return b.String()
}

// formatAuditEntries formats audit entries as a text table.
func formatAuditEntries(entries []models.AuditEntry) string {
	if len(entries) == 0 {
		return "No audit entries found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-36s %-8s %-8s %-10s %6s %5s %8s  %s\n",
		"Time", "Job ID", "Op", "Provider", "Outcome", "Status", "Score", "Latency", "Error")
	b.WriteString(strings.Repeat("-", 129) + "\n")
	for _, e := range entries {
		status := "-"
		if e.StatusCode > 0 {
			status = fmt.Sprintf("%d", e.StatusCode)
		}
		errText := e.Error
		if r := []rune(errText); len(r) > 40 {
			errText = string(r[:37]) + "..."
		}
		fmt.Fprintf(&b, "%-20s %-36s %-8s %-8s %-10s %6s %5d %8s  %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.JobID, e.Operation, e.Provider, e.Outcome, status, e.Score,
			(time.Duration(e.LatencyMs) * time.Millisecond).String(), errText)
	}
	return b.String()
}

// formatAuditStats formats grouped attempt counts as a text table.
func formatAuditStats(stats []models.AuditStat) string {
	if len(stats) == 0 {
		return "No audit entries found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %-10s %10s\n", "Provider", "Outcome", "Attempts")
	b.WriteString(strings.Repeat("-", 32) + "\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "%-10s %-10s %10d\n", s.Provider, s.Outcome, s.Count)
	}
	return b.String()
}
