package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"google.golang.org/genai"

	"github.com/roach88/cohort/internal/criteria"
)

// defaultGeminiModel is used when no model is configured.
const defaultGeminiModel = "gemini-2.0-flash"

// GeminiParser delegates intent parsing to the Gemini API.
//
// It receives the raw text and the catalog-derived vocabulary, and returns a
// ParseResult of exactly the same shape as RuleParser. Downstream stages
// cannot tell the two strategies apart.
type GeminiParser struct {
	client *genai.Client
	model  string
}

// NewGeminiParser creates a Gemini-backed parsing strategy.
func NewGeminiParser(ctx context.Context, apiKey, model string) (*GeminiParser, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiParser{client: client, model: model}, nil
}

// Parse implements Strategy.
func (p *GeminiParser) Parse(ctx context.Context, text string, vocab Vocabulary) (*criteria.ParseResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &IntentParseError{Reason: "empty input"}
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model,
		genai.Text(buildPrompt(text, vocab)),
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr[float32](0.1),
			ResponseMIMEType: "application/json",
		})
	if err != nil {
		return nil, &IntentParseError{Reason: fmt.Sprintf("NLU collaborator failed: %v", err)}
	}

	result, err := decodeNLUResponse(resp.Text())
	if err != nil {
		return nil, &IntentParseError{Reason: err.Error()}
	}
	return result, nil
}

// buildPrompt renders the extraction instruction with the schema vocabulary.
func buildPrompt(text string, vocab Vocabulary) string {
	var b strings.Builder
	b.WriteString("Extract structured segment criteria from this population description:\n")
	fmt.Fprintf(&b, "%q\n\n", text)
	b.WriteString("Available fields:\n")
	for _, f := range vocab.Fields {
		fmt.Fprintf(&b, "- %s (%s)", f.Column, f.DeclaredType)
		if len(f.Samples) > 0 {
			parts := make([]string, len(f.Samples))
			for i, s := range f.Samples {
				parts[i] = fmt.Sprint(s)
			}
			fmt.Fprintf(&b, " e.g. %s", strings.Join(parts, ", "))
		}
		b.WriteString("\n")
	}
	b.WriteString(`
Respond with JSON only:
{
  "conditions": [{"field": "...", "operator": "=|!=|>|<|>=|<=|LIKE|IN", "value": ...}],
  "logical_operators": ["AND"|"OR", ...],
  "confidence": 0.0-1.0,
  "ambiguous_terms": ["..."]
}
Use field names exactly as listed. logical_operators must contain one entry
fewer than conditions. List any phrase you could not map in ambiguous_terms.
`)
	return b.String()
}

// nluResponse is the wire shape returned by the collaborator.
type nluResponse struct {
	Conditions []struct {
		Field    string `json:"field"`
		Operator string `json:"operator"`
		Value    any    `json:"value"`
	} `json:"conditions"`
	LogicalOperators []string `json:"logical_operators"`
	Confidence       *float64 `json:"confidence"`
	AmbiguousTerms   []string `json:"ambiguous_terms"`
}

// jsonObjectRE extracts the first JSON object from a response that may be
// wrapped in prose or fencing despite the JSON MIME type.
var jsonObjectRE = regexp.MustCompile(`(?s)\{.*\}`)

// decodeNLUResponse converts raw collaborator output into a ParseResult,
// enforcing the shared output contract.
func decodeNLUResponse(raw string) (*criteria.ParseResult, error) {
	payload := jsonObjectRE.FindString(raw)
	if payload == "" {
		return nil, fmt.Errorf("collaborator returned no JSON object")
	}

	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	var wire nluResponse
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("collaborator returned malformed JSON: %w", err)
	}
	if len(wire.Conditions) == 0 {
		return nil, fmt.Errorf("collaborator extracted no conditions")
	}

	result := &criteria.ParseResult{
		AmbiguousTerms: wire.AmbiguousTerms,
		Notes:          []string{"parsed by NLU collaborator"},
	}
	for i, c := range wire.Conditions {
		value, err := criteria.FromAny(c.Value)
		if err != nil {
			return nil, fmt.Errorf("conditions[%d]: %w", i, err)
		}
		result.Criteria.Conditions = append(result.Criteria.Conditions, criteria.Condition{
			Field:    c.Field,
			Operator: criteria.Operator(strings.ToUpper(strings.TrimSpace(c.Operator))),
			Value:    value,
		})
	}
	for _, op := range wire.LogicalOperators {
		result.Criteria.Operators = append(result.Criteria.Operators,
			criteria.LogicalOp(strings.ToUpper(strings.TrimSpace(op))))
	}

	if issues := criteria.Validate(result.Criteria); len(issues) > 0 {
		return nil, fmt.Errorf("collaborator output violates criteria invariants: %s",
			strings.Join(issues, "; "))
	}

	result.Confidence = 0.9 // collaborator did not self-report
	if wire.Confidence != nil {
		result.Confidence = *wire.Confidence
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		return nil, fmt.Errorf("collaborator confidence %v outside [0,1]", result.Confidence)
	}
	return result, nil
}
