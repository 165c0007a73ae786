package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Row is a single result row as an ordered field -> value mapping.
// Field order follows the query's column order, preserved through JSON
// serialization for deterministic traces.
type Row struct {
	Columns []string
	Values  []any
}

// Get returns the value for a named column, if present.
func (r Row) Get(column string) (any, bool) {
	for i, c := range r.Columns {
		if c == column {
			return r.Values[i], true
		}
	}
	return nil, false
}

// MarshalJSON renders the row as a JSON object in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf strings.Builder
	buf.WriteByte('{')
	for i, col := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.Values[i])
		if err != nil {
			return nil, fmt.Errorf("marshal column %q: %w", col, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return []byte(buf.String()), nil
}

// Execute runs a read-only query and returns at most maxRows rows.
// maxRows <= 0 means no additional bound beyond the query's own LIMIT.
//
// Multi-statement input is rejected here, at the transport boundary, before
// the driver sees it. The query_only pragma (when opened via Open) is a
// second line of defense against mutation.
func (c *Catalog) Execute(ctx context.Context, query string, maxRows int) ([]Row, error) {
	if err := rejectMultiStatement(query); err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	var result []Row
	for rows.Next() {
		if maxRows > 0 && len(result) >= maxRows {
			break
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i := range values {
			values[i] = normalizeScanned(values[i])
		}
		result = append(result, Row{Columns: columns, Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return result, nil
}

// Count runs a counting query and returns its single integer result.
func (c *Catalog) Count(ctx context.Context, query string) (int64, error) {
	if err := rejectMultiStatement(query); err != nil {
		return 0, err
	}

	var n int64
	if err := c.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}
	return n, nil
}

// rejectMultiStatement fails any input containing a statement separator
// outside a single-quoted literal. A single trailing separator is tolerated.
func rejectMultiStatement(query string) error {
	trimmed := strings.TrimRight(strings.TrimSpace(query), ";")
	inQuote := false
	for _, r := range trimmed {
		switch {
		case r == '\'':
			inQuote = !inQuote
		case r == ';' && !inQuote:
			return fmt.Errorf("multi-statement input rejected")
		}
	}
	return nil
}

// normalizeScanned converts driver byte slices to strings so rows serialize
// as text rather than base64.
func normalizeScanned(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
