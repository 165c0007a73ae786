package criteria

import "fmt"

// Validate checks the structural invariants of Criteria and returns every
// violation found. An empty slice means the criteria are well-formed.
//
// Checked invariants:
//  1. At least one condition.
//  2. len(Operators) == len(Conditions) - 1 (operator count mismatch is the
//     classic hand-off bug between parser and generator).
//  3. Every operator is in the allowed set.
//  4. IN takes a non-empty list; every other operator takes a scalar.
//  5. No empty field names, no nil values.
//
// Validate is a pure function with no side effects.
func Validate(c Criteria) []string {
	var issues []string

	if len(c.Conditions) == 0 {
		issues = append(issues, "criteria must contain at least one condition")
	}

	if len(c.Conditions) > 0 && len(c.Operators) != len(c.Conditions)-1 {
		issues = append(issues, fmt.Sprintf(
			"logical operator count mismatch: %d conditions require %d operators, got %d",
			len(c.Conditions), len(c.Conditions)-1, len(c.Operators)))
	}

	for i, op := range c.Operators {
		if op != LogicalAnd && op != LogicalOr {
			issues = append(issues, fmt.Sprintf("operators[%d]: unknown logical operator %q", i, op))
		}
	}

	for i, cond := range c.Conditions {
		issues = append(issues, validateCondition(i, cond)...)
	}

	return issues
}

func validateCondition(i int, cond Condition) []string {
	var issues []string

	if cond.Field == "" {
		issues = append(issues, fmt.Sprintf("conditions[%d]: empty field name", i))
	}
	if !ValidOperators[cond.Operator] {
		issues = append(issues, fmt.Sprintf("conditions[%d]: unknown operator %q", i, cond.Operator))
	}
	if cond.Value == nil {
		issues = append(issues, fmt.Sprintf("conditions[%d]: nil value", i))
		return issues
	}

	list, isList := cond.Value.(List)
	switch {
	case cond.Operator == OpIn && !isList:
		issues = append(issues, fmt.Sprintf("conditions[%d]: IN requires a list value, got %T", i, cond.Value))
	case cond.Operator == OpIn && len(list) == 0:
		issues = append(issues, fmt.Sprintf("conditions[%d]: IN requires a non-empty list", i))
	case cond.Operator != OpIn && isList:
		issues = append(issues, fmt.Sprintf("conditions[%d]: operator %q requires a scalar value, got a list", i, cond.Operator))
	}

	return issues
}
