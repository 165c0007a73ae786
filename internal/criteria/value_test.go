package criteria

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLLiteral_Scalars(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"string", String("married"), "'married'"},
		{"string with quote", String("o'brien"), "'o''brien'"},
		{"int", Int(1000), "1000"},
		{"negative int", Int(-42), "-42"},
		{"float", Float(2.5), "2.5"},
		{"bool true", Bool(true), "1"},
		{"bool false", Bool(false), "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SQLLiteral(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSQLLiteral_QuoteEscapingKeepsSingleStatement(t *testing.T) {
	// A value trying to close the literal and start a second statement must
	// stay inside one quoted literal after escaping.
	got, err := SQLLiteral(String("x'; DROP TABLE bank_customers; --"))
	require.NoError(t, err)
	assert.Equal(t, "'x''; DROP TABLE bank_customers; --'", got)
}

func TestSQLLiteral_NFCNormalization(t *testing.T) {
	// "é" as precomposed U+00E9 vs decomposed "e" + U+0301 must render
	// identical bytes.
	precomposed, err := SQLLiteral(String("café"))
	require.NoError(t, err)
	decomposed, err := SQLLiteral(String("café"))
	require.NoError(t, err)
	assert.Equal(t, precomposed, decomposed)
}

func TestSQLLiteral_List(t *testing.T) {
	got, err := SQLLiteral(List{String("admin."), String("technician"), Int(3)})
	require.NoError(t, err)
	assert.Equal(t, "('admin.', 'technician', 3)", got)
}

func TestSQLLiteral_EmptyListRejected(t *testing.T) {
	_, err := SQLLiteral(List{})
	require.Error(t, err)
}

func TestSQLLiteral_NestedListRejected(t *testing.T) {
	_, err := SQLLiteral(List{List{String("a")}})
	require.Error(t, err)
}

func TestFromAny(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  Value
	}{
		{"string", "yes", String("yes")},
		{"bool", true, Bool(true)},
		{"integral float64", float64(1000), Int(1000)},
		{"fractional float64", 2.5, Float(2.5)},
		{"int", 7, Int(7)},
		{"json.Number int", json.Number("42"), Int(42)},
		{"json.Number float", json.Number("0.5"), Float(0.5)},
		{"list", []any{"a", float64(1)}, List{String("a"), Int(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromAny_Rejections(t *testing.T) {
	_, err := FromAny(nil)
	assert.Error(t, err, "null values are not representable")

	_, err = FromAny([]any{[]any{"nested"}})
	assert.Error(t, err, "nested lists are not representable")

	_, err = FromAny(map[string]any{"k": "v"})
	assert.Error(t, err, "objects are not representable")
}

func TestGoValue_RoundTrip(t *testing.T) {
	assert.Equal(t, "yes", GoValue(String("yes")))
	assert.Equal(t, int64(3), GoValue(Int(3)))
	assert.Equal(t, []any{"a", int64(1)}, GoValue(List{String("a"), Int(1)}))
}
