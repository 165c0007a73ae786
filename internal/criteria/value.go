package criteria

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Value is a sealed interface representing the scalar and list value types
// a Condition may carry. Only String, Int, Float, Bool, and List implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the query generator.
type Value interface {
	conditionValue() // Sealed - only types in this package implement it
}

// String represents a string or categorical value.
type String string

func (String) conditionValue() {}

// Int represents an integer value. Always int64.
type Int int64

func (Int) conditionValue() {}

// Float represents a floating-point value (e.g. balance thresholds).
type Float float64

func (Float) conditionValue() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) conditionValue() {}

// List represents an ordered list of scalar values, used with the IN operator.
// Elements must themselves be scalars (String, Int, Float, Bool), never List.
type List []Value

func (List) conditionValue() {}

// SQLLiteral renders a Value as an inline SQL literal.
//
// Formatting rules:
//   - Numbers and booleans are unquoted (booleans as 1/0 for SQLite).
//   - Strings are NFC-normalized, single-quoted, with internal single quotes
//     doubled so the literal can never terminate early and open a second
//     statement.
//   - Lists render as a parenthesized comma-separated literal list.
func SQLLiteral(v Value) (string, error) {
	switch val := v.(type) {
	case String:
		return quoteString(string(val)), nil
	case Int:
		return strconv.FormatInt(int64(val), 10), nil
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64), nil
	case Bool:
		if val {
			return "1", nil
		}
		return "0", nil
	case List:
		if len(val) == 0 {
			return "", fmt.Errorf("empty list cannot be rendered as a literal")
		}
		parts := make([]string, 0, len(val))
		for i, elem := range val {
			if _, nested := elem.(List); nested {
				return "", fmt.Errorf("list[%d]: nested lists are not allowed", i)
			}
			lit, err := SQLLiteral(elem)
			if err != nil {
				return "", fmt.Errorf("list[%d]: %w", i, err)
			}
			parts = append(parts, lit)
		}
		return "(" + strings.Join(parts, ", ") + ")", nil
	default:
		return "", fmt.Errorf("unsupported value type: %T", v)
	}
}

// quoteString produces a single-quoted SQL string literal.
// The input is NFC-normalized first so visually identical text produces
// identical query bytes regardless of the Unicode composition of the input.
func quoteString(s string) string {
	s = norm.NFC.String(s)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// FromAny converts a decoded JSON value into a Value.
// Used when an external NLU collaborator returns criteria as JSON.
// Numbers are preserved as Int when integral, Float otherwise.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is not a valid condition value")
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case float64:
		if val == float64(int64(val)) {
			return Int(int64(val)), nil
		}
		return Float(val), nil
	case int:
		return Int(int64(val)), nil
	case int64:
		return Int(val), nil
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return Int(n), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number out of range: %s", val)
		}
		return Float(f), nil
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			cv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			if _, nested := cv.(List); nested {
				return nil, fmt.Errorf("list[%d]: nested lists are not allowed", i)
			}
			list[i] = cv
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}

// GoValue returns the native Go representation of a Value.
// Used for JSON serialization of traces and CLI output.
func GoValue(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = GoValue(elem)
		}
		return out
	default:
		return nil
	}
}
