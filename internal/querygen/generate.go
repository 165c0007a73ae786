// Package querygen compiles mapped criteria to a single read-only SQL
// statement for SQLite.
//
// Clause order follows condition order, contiguous OR-joined runs are
// parenthesized so precedence never depends on the engine's defaults, and
// exactly one LIMIT clause bounds every query.
package querygen

import (
	"fmt"
	"strings"

	"github.com/roach88/cohort/internal/criteria"
	"github.com/roach88/cohort/internal/mapping"
)

// RowsUnknown marks an estimate that has not been computed yet.
const RowsUnknown int64 = -1

// GeneratedQuery is the generator's output: the query text plus the
// metadata the validator and audit trail need.
type GeneratedQuery struct {
	// Text is the complete statement. Always begins with SELECT and
	// contains exactly one LIMIT clause.
	Text string `json:"text"`
	// TablesUsed lists every table the text references.
	TablesUsed []string `json:"tables_used"`
	// EstimatedRows is filled in by the validator; RowsUnknown until then.
	EstimatedRows int64 `json:"estimated_rows"`
	// Optimized reports whether the generator altered the query beyond
	// direct translation (currently: auto-added row cap).
	Optimized bool `json:"optimized"`
	// Limit is the row cap applied in the LIMIT clause.
	Limit int `json:"limit"`
	// Notes records generator decisions for the audit trail.
	Notes []string `json:"notes,omitempty"`
}

// QueryGenerationError indicates malformed criteria reached the generator.
// This should not occur when the field mapper succeeded, but the generator
// defends against it.
type QueryGenerationError struct {
	Issues []string
}

// Error implements the error interface.
func (e *QueryGenerationError) Error() string {
	return "query generation failed: " + strings.Join(e.Issues, "; ")
}

// Generator compiles mapped criteria into bounded SELECT statements.
// Stateless and safe for concurrent use.
type Generator struct {
	defaultLimit int
}

// New creates a Generator with the given default row cap.
func New(defaultLimit int) *Generator {
	if defaultLimit <= 0 {
		defaultLimit = 1000
	}
	return &Generator{defaultLimit: defaultLimit}
}

// Generate compiles mapped criteria to a GeneratedQuery.
//
// limit overrides the default row cap when positive; either way exactly one
// LIMIT clause is emitted, and an auto-applied cap is recorded as an
// optimization note.
func (g *Generator) Generate(mc *mapping.MappedCriteria, limit int) (*GeneratedQuery, error) {
	if mc == nil {
		return nil, &QueryGenerationError{Issues: []string{"nil criteria"}}
	}
	if issues := criteria.Validate(mc.Criteria); len(issues) > 0 {
		return nil, &QueryGenerationError{Issues: issues}
	}
	switch len(mc.Tables) {
	case 1:
		// single-table query, the supported shape
	case 0:
		return nil, &QueryGenerationError{Issues: []string{"criteria reference no table"}}
	default:
		return nil, &QueryGenerationError{Issues: []string{fmt.Sprintf(
			"criteria span %d tables; joins are not supported", len(mc.Tables))}}
	}

	where, err := g.compileWhere(mc.Criteria)
	if err != nil {
		return nil, err
	}

	q := &GeneratedQuery{
		TablesUsed:    []string{mc.Tables[0]},
		EstimatedRows: RowsUnknown,
		Limit:         limit,
	}
	if q.Limit <= 0 {
		q.Limit = g.defaultLimit
		q.Optimized = true
		q.Notes = append(q.Notes, fmt.Sprintf("added LIMIT %d row cap", q.Limit))
	}

	q.Text = fmt.Sprintf("SELECT * FROM %s WHERE %s LIMIT %d", mc.Tables[0], where, q.Limit)
	return q, nil
}

// compileWhere renders conditions in original order, wrapping each
// contiguous OR-joined run in parentheses before combining with AND.
//
//	a AND b OR c AND d  →  a AND (b OR c) AND d
func (g *Generator) compileWhere(c criteria.Criteria) (string, error) {
	rendered := make([]string, len(c.Conditions))
	for i, cond := range c.Conditions {
		s, err := compileCondition(cond)
		if err != nil {
			return "", &QueryGenerationError{Issues: []string{fmt.Sprintf("conditions[%d]: %v", i, err)}}
		}
		rendered[i] = s
	}

	// Split into AND-joined groups; each group is a maximal OR-run.
	var groups []string
	run := []string{rendered[0]}
	for i, op := range c.Operators {
		if op == criteria.LogicalOr {
			run = append(run, rendered[i+1])
			continue
		}
		groups = append(groups, closeRun(run))
		run = []string{rendered[i+1]}
	}
	groups = append(groups, closeRun(run))

	return strings.Join(groups, " AND "), nil
}

// closeRun joins an OR-run, parenthesizing when it holds more than one
// condition.
func closeRun(run []string) string {
	if len(run) == 1 {
		return run[0]
	}
	return "(" + strings.Join(run, " OR ") + ")"
}

// compileCondition renders one predicate as "field OP literal". The field
// is always double-quoted; bare column names collide with SQL keywords
// ("default" in the bank dataset).
func compileCondition(cond criteria.Condition) (string, error) {
	lit, err := criteria.SQLLiteral(cond.Value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", quoteIdent(cond.Field), cond.Operator, lit), nil
}

// quoteIdent double-quotes an identifier for SQLite.
func quoteIdent(name string) string {
	return `"` + name + `"`
}
