package criteria

import "encoding/json"

// Operator is a comparison operator allowed in a Condition.
type Operator string

const (
	OpEquals       Operator = "="
	OpNotEquals    Operator = "!="
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpLike         Operator = "LIKE"
	OpIn           Operator = "IN"
)

// ValidOperators defines the allowed operator set.
var ValidOperators = map[Operator]bool{
	OpEquals:       true,
	OpNotEquals:    true,
	OpGreater:      true,
	OpLess:         true,
	OpGreaterEqual: true,
	OpLessEqual:    true,
	OpLike:         true,
	OpIn:           true,
}

// LogicalOp joins two adjacent conditions.
type LogicalOp string

const (
	LogicalAnd LogicalOp = "AND"
	LogicalOr  LogicalOp = "OR"
)

// Condition is a single field/operator/value predicate.
//
// Field starts as a business-facing term (e.g. "balance") and is rewritten
// by the field mapper to a concrete schema column before query generation.
type Condition struct {
	Field    string
	Operator Operator
	Value    Value
}

// Criteria is the structured intermediate form of a natural-language
// population description: an ordered sequence of conditions joined by
// logical operators.
//
// INVARIANT: len(Operators) == len(Conditions) - 1 when len(Conditions) > 1.
type Criteria struct {
	Conditions []Condition
	Operators  []LogicalOp
}

// ParseResult is the output contract shared by every parsing strategy.
// Both the rule-based matcher and the external NLU collaborator produce
// exactly this shape; downstream stages never branch on which strategy
// produced it.
//
// Immutable once produced.
type ParseResult struct {
	Criteria       Criteria
	Confidence     float64  // in [0, 1]
	AmbiguousTerms []string // condition-like phrases that matched no template
	Notes          []string
}

// MarshalJSON serializes a Condition with its value as a native JSON type.
func (c Condition) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"field":    c.Field,
		"operator": string(c.Operator),
		"value":    GoValue(c.Value),
	})
}

// MarshalJSON serializes Criteria for traces and CLI output.
func (c Criteria) MarshalJSON() ([]byte, error) {
	conds := make([]json.RawMessage, len(c.Conditions))
	for i, cond := range c.Conditions {
		b, err := cond.MarshalJSON()
		if err != nil {
			return nil, err
		}
		conds[i] = b
	}
	ops := make([]string, len(c.Operators))
	for i, op := range c.Operators {
		ops[i] = string(op)
	}
	return json.Marshal(map[string]any{
		"conditions":        conds,
		"logical_operators": ops,
	})
}
