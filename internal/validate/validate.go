// Package validate enforces the safety and performance policy on generated
// queries before anything executes them at full scale.
//
// Every check runs independently: blocking issues (unsafe keyword, syntax
// failure) make the result invalid, warnings (large result set, empty
// result, approximate estimate) never block continuation.
package validate

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/cohort/internal/catalog"
	"github.com/roach88/cohort/internal/querygen"
)

// blockedKeywords are rejected anywhere in the query text, case-insensitive,
// as standalone tokens. CREATE is included alongside the write/DDL set;
// ATTACH and PRAGMA close off SQLite-specific escape hatches.
var blockedKeywords = []string{
	"DELETE", "UPDATE", "DROP", "INSERT", "ALTER",
	"TRUNCATE", "EXEC", "ATTACH", "PRAGMA", "CREATE",
}

var blockedRE = regexp.MustCompile(`(?i)\b(` + strings.Join(blockedKeywords, "|") + `)\b`)

// limitClauseRE strips the trailing row cap for counting.
var limitClauseRE = regexp.MustCompile(`(?i)\s+LIMIT\s+\d+\s*;?\s*$`)

// Result is the validator's verdict. IsValid is true iff Issues is empty.
type Result struct {
	IsValid  bool          `json:"is_valid"`
	Issues   []string      `json:"issues,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
	Sample   []catalog.Row `json:"sample,omitempty"`
	// RowCount is the estimated result size; querygen.RowsUnknown when no
	// estimate could be obtained.
	RowCount int64    `json:"row_count"`
	Notes    []string `json:"notes,omitempty"`
}

// Options configures the validator's policy knobs.
type Options struct {
	// SafeRows is the threshold above which a (non-blocking) large-result
	// warning is emitted.
	SafeRows int64
	// ProbeLimit caps the syntax probe; 1 catches malformed syntax cheaply.
	ProbeLimit int
	// SampleSize caps the captured sample rows.
	SampleSize int
}

// DefaultOptions mirrors the pipeline defaults.
func DefaultOptions() Options {
	return Options{SafeRows: 10000, ProbeLimit: 1, SampleSize: 5}
}

// Validator applies the safety policy against the data source.
// Stateless beyond its read-only collaborators; safe for concurrent use.
type Validator struct {
	cat  *catalog.Catalog
	opts Options
}

// New creates a Validator over the catalog with the given options.
// Zero-valued options fall back to defaults.
func New(cat *catalog.Catalog, opts Options) *Validator {
	def := DefaultOptions()
	if opts.SafeRows <= 0 {
		opts.SafeRows = def.SafeRows
	}
	if opts.ProbeLimit <= 0 {
		opts.ProbeLimit = def.ProbeLimit
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = def.SampleSize
	}
	return &Validator{cat: cat, opts: opts}
}

// Validate applies every check and returns the combined verdict.
// The only side effects are the bounded probe and count queries.
// A non-nil error is returned only for context cancellation.
func (v *Validator) Validate(ctx context.Context, q *querygen.GeneratedQuery) (*Result, error) {
	result := &Result{RowCount: querygen.RowsUnknown}

	// Keyword policy. A match inside a quoted literal still blocks: a
	// reviewable query string must not contain write keywords at all.
	if matches := blockedRE.FindAllString(q.Text, -1); len(matches) > 0 {
		result.Issues = append(result.Issues, fmt.Sprintf(
			"query contains blocked keywords: %s", strings.Join(dedupeUpper(matches), ", ")))
	}

	// Syntax probe with a tight cap, independent of the keyword verdict.
	probe := fmt.Sprintf("SELECT * FROM (%s) LIMIT %d", stripTrailingSemicolon(q.Text), v.opts.ProbeLimit)
	if _, err := v.cat.Execute(ctx, probe, v.opts.ProbeLimit); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		result.Issues = append(result.Issues, fmt.Sprintf("query execution failed: %v", err))
		result.IsValid = false
		return result, nil
	}

	// Bounded sample for the caller's eyeballs.
	sampleQuery := fmt.Sprintf("SELECT * FROM (%s) LIMIT %d", stripTrailingSemicolon(q.Text), v.opts.SampleSize)
	sample, err := v.cat.Execute(ctx, sampleQuery, v.opts.SampleSize)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		result.Issues = append(result.Issues, fmt.Sprintf("sample capture failed: %v", err))
	} else {
		result.Sample = sample
	}

	v.estimateRows(ctx, q, result)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// Performance policy: warnings only, never blocking.
	switch {
	case result.RowCount == 0:
		result.Warnings = append(result.Warnings, "query matches 0 rows - check criteria")
	case result.RowCount > v.opts.SafeRows:
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"query matches %d rows, above the safe threshold of %d", result.RowCount, v.opts.SafeRows))
	}

	result.IsValid = len(result.Issues) == 0
	return result, nil
}

// estimateRows obtains a row count via COUNT(*) over the un-limited
// predicate, falling back to a bounded sample projection marked approximate.
func (v *Validator) estimateRows(ctx context.Context, q *querygen.GeneratedQuery, result *Result) {
	unlimited := limitClauseRE.ReplaceAllString(q.Text, "")
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM (%s)", unlimited)

	if n, err := v.cat.Count(ctx, countQuery); err == nil {
		result.RowCount = n
		return
	}
	if ctx.Err() != nil {
		return
	}

	// Counting failed; project a bounded sample instead.
	rows, err := v.cat.Execute(ctx, stripTrailingSemicolon(q.Text), int(v.opts.SafeRows)+1)
	if err != nil {
		result.Notes = append(result.Notes, "row estimate unavailable")
		return
	}
	result.RowCount = int64(len(rows))
	result.Notes = append(result.Notes, "row estimate is approximate (bounded sample projection)")
}

func stripTrailingSemicolon(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), ";")
}

// dedupeUpper uppercases and deduplicates keyword matches in first-seen
// order.
func dedupeUpper(matches []string) []string {
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		u := strings.ToUpper(m)
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}
