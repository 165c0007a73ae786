package querygen

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cohort/internal/criteria"
	"github.com/roach88/cohort/internal/mapping"
)

func mapped(conds []criteria.Condition, ops []criteria.LogicalOp) *mapping.MappedCriteria {
	return &mapping.MappedCriteria{
		Criteria: criteria.Criteria{Conditions: conds, Operators: ops},
		Tables:   []string{"bank_customers"},
	}
}

func TestGenerate_HousingAndBalanceScenario(t *testing.T) {
	g := New(1000)

	q, err := g.Generate(mapped(
		[]criteria.Condition{
			{Field: "housing", Operator: criteria.OpEquals, Value: criteria.String("yes")},
			{Field: "balance", Operator: criteria.OpGreater, Value: criteria.Int(1000)},
		},
		[]criteria.LogicalOp{criteria.LogicalAnd},
	), 0)
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT * FROM bank_customers WHERE "housing" = 'yes' AND "balance" > 1000 LIMIT 1000`,
		q.Text)
	assert.Equal(t, []string{"bank_customers"}, q.TablesUsed)
	assert.True(t, q.Optimized)
	assert.Equal(t, RowsUnknown, q.EstimatedRows)
	require.Len(t, q.Notes, 1)
	assert.Contains(t, q.Notes[0], "added LIMIT 1000")
}

func TestGenerate_QuotesKeywordColumn(t *testing.T) {
	g := New(1000)

	// "default" is a SQL keyword; SQLite rejects it unquoted.
	q, err := g.Generate(mapped(
		[]criteria.Condition{
			{Field: "default", Operator: criteria.OpEquals, Value: criteria.String("yes")},
		},
		nil,
	), 0)
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT * FROM bank_customers WHERE "default" = 'yes' LIMIT 1000`,
		q.Text)
}

func TestGenerate_CallerSuppliedCap(t *testing.T) {
	g := New(1000)

	q, err := g.Generate(mapped(
		[]criteria.Condition{{Field: "age", Operator: criteria.OpGreater, Value: criteria.Int(30)}},
		nil,
	), 50)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(q.Text, "LIMIT 50"))
	assert.False(t, q.Optimized, "caller-supplied cap is not an optimization")
	assert.Empty(t, q.Notes)
}

func TestGenerate_ExactlyOneLimitClause(t *testing.T) {
	g := New(1000)
	limitRE := regexp.MustCompile(`\bLIMIT\b`)

	q, err := g.Generate(mapped(
		[]criteria.Condition{{Field: "job", Operator: criteria.OpEquals, Value: criteria.String("retired")}},
		nil,
	), 0)
	require.NoError(t, err)
	assert.Len(t, limitRE.FindAllString(q.Text, -1), 1)
	assert.True(t, strings.HasPrefix(q.Text, "SELECT"))
}

func TestGenerate_ORRunParenthesization(t *testing.T) {
	g := New(1000)

	// a AND b OR c AND d → a AND (b OR c) AND d
	q, err := g.Generate(mapped(
		[]criteria.Condition{
			{Field: "housing", Operator: criteria.OpEquals, Value: criteria.String("yes")},
			{Field: "job", Operator: criteria.OpEquals, Value: criteria.String("retired")},
			{Field: "job", Operator: criteria.OpEquals, Value: criteria.String("student")},
			{Field: "balance", Operator: criteria.OpGreater, Value: criteria.Int(0)},
		},
		[]criteria.LogicalOp{criteria.LogicalAnd, criteria.LogicalOr, criteria.LogicalAnd},
	), 0)
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT * FROM bank_customers WHERE "housing" = 'yes' AND ("job" = 'retired' OR "job" = 'student') AND "balance" > 0 LIMIT 1000`,
		q.Text)
}

func TestGenerate_AllOrRun(t *testing.T) {
	g := New(1000)

	q, err := g.Generate(mapped(
		[]criteria.Condition{
			{Field: "marital", Operator: criteria.OpEquals, Value: criteria.String("married")},
			{Field: "marital", Operator: criteria.OpEquals, Value: criteria.String("single")},
		},
		[]criteria.LogicalOp{criteria.LogicalOr},
	), 0)
	require.NoError(t, err)
	assert.Contains(t, q.Text, `("marital" = 'married' OR "marital" = 'single')`)
}

func TestGenerate_LiteralFormatting(t *testing.T) {
	g := New(1000)

	q, err := g.Generate(mapped(
		[]criteria.Condition{
			{Field: "job", Operator: criteria.OpIn, Value: criteria.List{
				criteria.String("admin."), criteria.String("technician")}},
			{Field: "month", Operator: criteria.OpLike, Value: criteria.String("ma%")},
			{Field: "balance", Operator: criteria.OpGreaterEqual, Value: criteria.Float(99.5)},
		},
		[]criteria.LogicalOp{criteria.LogicalAnd, criteria.LogicalAnd},
	), 0)
	require.NoError(t, err)

	assert.Contains(t, q.Text, `"job" IN ('admin.', 'technician')`)
	assert.Contains(t, q.Text, `"month" LIKE 'ma%'`)
	assert.Contains(t, q.Text, `"balance" >= 99.5`)
}

func TestGenerate_EscapesQuotesInValues(t *testing.T) {
	g := New(1000)

	q, err := g.Generate(mapped(
		[]criteria.Condition{
			{Field: "job", Operator: criteria.OpEquals,
				Value: criteria.String("x'; DROP TABLE bank_customers; --")},
		},
		nil,
	), 0)
	require.NoError(t, err)

	assert.Contains(t, q.Text, `"job" = 'x''; DROP TABLE bank_customers; --'`)
	// The injected separator stays inside one quoted literal.
	assert.Equal(t, 1, strings.Count(q.Text, "SELECT"))
}

func TestGenerate_DefendsAgainstMalformedCriteria(t *testing.T) {
	g := New(1000)

	_, err := g.Generate(mapped(
		[]criteria.Condition{
			{Field: "a", Operator: criteria.OpEquals, Value: criteria.Int(1)},
			{Field: "b", Operator: criteria.OpEquals, Value: criteria.Int(2)},
		},
		nil, // missing joiner
	), 0)
	require.Error(t, err)

	var genErr *QueryGenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Contains(t, genErr.Issues[0], "logical operator count mismatch")
}

func TestGenerate_RejectsMultiTableCriteria(t *testing.T) {
	g := New(1000)

	mc := mapped(
		[]criteria.Condition{{Field: "a", Operator: criteria.OpEquals, Value: criteria.Int(1)}},
		nil,
	)
	mc.Tables = []string{"bank_customers", "campaigns"}

	_, err := g.Generate(mc, 0)
	var genErr *QueryGenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Contains(t, genErr.Issues[0], "joins are not supported")
}

func TestGenerate_NilCriteria(t *testing.T) {
	g := New(1000)
	_, err := g.Generate(nil, 0)
	require.Error(t, err)
}
