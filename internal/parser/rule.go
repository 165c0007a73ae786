package parser

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/cohort/internal/criteria"
	"github.com/roach88/cohort/internal/lexicon"
)

// RuleParser is the lexicon-driven parsing strategy.
//
// The input is segmented into candidate clauses at connector tokens
// (and/or/commas). Each clause is evaluated repeatedly against the
// lexicon's templates: the longest-span match wins each round and its span
// is consumed, so one phrase cannot double-match but a single clause like
// "married customers with age over 30" still yields every condition it
// contains. Clauses that look like a condition but match nothing become
// ambiguous terms instead of conditions.
//
// Confidence is the ratio of recognized conditions to total candidates.
type RuleParser struct {
	lex *lexicon.Lexicon
}

// NewRuleParser creates a RuleParser over the loaded lexicon.
func NewRuleParser(lex *lexicon.Lexicon) *RuleParser {
	return &RuleParser{lex: lex}
}

// clauseSplitRE segments text at connector tokens. A comma directly followed
// by a connector word collapses into that connector.
var clauseSplitRE = regexp.MustCompile(`\s*,\s*(and|or)\s+|\s+(and|or)\s+|\s*,\s*`)

// numberRE extracts the first numeric literal following a comparative.
var numberRE = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// Parse implements Strategy.
func (p *RuleParser) Parse(_ context.Context, text string, _ Vocabulary) (*criteria.ParseResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &IntentParseError{Reason: "empty input"}
	}

	clauses, connectors := splitClauses(strings.ToLower(text))

	type matchedClause struct {
		idx   int // position in clauses
		conds []criteria.Condition
	}

	var (
		result     criteria.ParseResult
		matched    []matchedClause
		recognized int
		candidates int
	)

	for i, clause := range clauses {
		conds := p.matchConditions(clause)
		if len(conds) > 0 {
			recognized += len(conds)
			candidates += len(conds)
			matched = append(matched, matchedClause{idx: i, conds: conds})

			// The matched templates consumed their spans only; ambiguity
			// markers elsewhere in the clause still look like conditions and
			// dilute confidence.
			markers := p.markersIn(clause)
			candidates += len(markers)
			result.AmbiguousTerms = append(result.AmbiguousTerms, markers...)
			continue
		}

		terms := p.ambiguousTerms(clause)
		if len(terms) == 0 {
			continue // filler like "customers", not a candidate clause
		}
		candidates += len(terms)
		result.AmbiguousTerms = append(result.AmbiguousTerms, terms...)
	}

	if recognized == 0 {
		return nil, &IntentParseError{
			Reason:         "no condition could be extracted",
			AmbiguousTerms: result.AmbiguousTerms,
		}
	}

	// Join recognized conditions. Within a clause the connector is always
	// AND; across clauses it defaults to AND unless an explicit "or"
	// appears between the two clauses' boundaries.
	for ci, mc := range matched {
		for k, cond := range mc.conds {
			result.Criteria.Conditions = append(result.Criteria.Conditions, cond)
			if ci == 0 && k == 0 {
				continue
			}
			op := criteria.LogicalAnd
			if k == 0 {
				for j := matched[ci-1].idx; j < mc.idx; j++ {
					if connectors[j] == "or" {
						op = criteria.LogicalOr
						break
					}
				}
			}
			result.Criteria.Operators = append(result.Criteria.Operators, op)
		}
	}

	result.Confidence = float64(recognized) / float64(candidates)
	result.Notes = append(result.Notes, fmt.Sprintf(
		"rule parser recognized %d of %d candidate conditions", recognized, candidates))
	if len(result.AmbiguousTerms) > 0 {
		result.Notes = append(result.Notes, fmt.Sprintf(
			"unresolved terms: %s", strings.Join(result.AmbiguousTerms, ", ")))
	}
	return &result, nil
}

// splitClauses returns the clauses and, for each clause except the last, the
// connector token ("and" or "or") that followed it.
func splitClauses(text string) (clauses []string, connectors []string) {
	last := 0
	for _, m := range clauseSplitRE.FindAllStringSubmatchIndex(text, -1) {
		clause := strings.TrimSpace(text[last:m[0]])
		if clause != "" {
			clauses = append(clauses, clause)
			connectors = append(connectors, connectorAt(text, m))
		}
		last = m[1]
	}
	if tail := strings.TrimSpace(text[last:]); tail != "" {
		clauses = append(clauses, tail)
	}
	// connectors[i] follows clauses[i]; pad so both are indexable together.
	for len(connectors) < len(clauses) {
		connectors = append(connectors, "")
	}
	return clauses, connectors
}

// connectorAt extracts the connector word from a split match, defaulting a
// bare comma to "and".
func connectorAt(text string, m []int) string {
	for _, g := range []int{2, 4} { // submatch groups for the two alternations
		if g < len(m) && m[g] >= 0 {
			return text[m[g]:m[g+1]]
		}
	}
	return "and"
}

// clauseMatch is one template match within a clause. start/end bound the
// consumed span; the longest span wins each round.
type clauseMatch struct {
	cond  criteria.Condition
	start int
	end   int
}

// matchConditions extracts every condition a clause contains. Each round
// the most specific (longest-span) template match wins and its span is
// blanked out, so templates cannot double-match the same words. The
// returned conditions are in text order.
func (p *RuleParser) matchConditions(clause string) []criteria.Condition {
	var found []clauseMatch

	text := clause
	for {
		m, ok := p.bestMatch(text)
		if !ok {
			break
		}
		found = append(found, m)
		// Blanking keeps offsets stable across rounds.
		text = text[:m.start] + strings.Repeat(" ", m.end-m.start) + text[m.end:]
	}

	sort.Slice(found, func(i, j int) bool { return found[i].start < found[j].start })
	conds := make([]criteria.Condition, 0, len(found))
	for _, m := range found {
		conds = append(conds, m.cond)
	}
	return conds
}

// bestMatch evaluates all templates and returns the longest-span match.
func (p *RuleParser) bestMatch(text string) (clauseMatch, bool) {
	var best clauseMatch
	found := false

	consider := func(m clauseMatch) {
		if !found || m.end-m.start > best.end-best.start {
			best = m
			found = true
		}
	}

	if m, ok := p.matchNumeric(text); ok {
		consider(m)
	}
	if m, ok := p.matchFlag(text); ok {
		consider(m)
	}
	if m, ok := p.matchCategorical(text); ok {
		consider(m)
	}
	return best, found
}

// matchNumeric recognizes "<term> <comparative> <number>" shapes, e.g.
// "balance over 1000" or "age at least 30".
func (p *RuleParser) matchNumeric(clause string) (clauseMatch, bool) {
	for _, term := range p.lex.NumericTerms {
		pos := wordIndex(clause, term.Term)
		if pos < 0 {
			continue
		}
		restStart := pos + len(term.Term)
		rest := clause[restStart:]
		for _, cmp := range p.lex.Comparatives {
			cmpPos := wordIndex(rest, cmp.Phrase)
			if cmpPos < 0 {
				continue
			}
			numStart := cmpPos + len(cmp.Phrase)
			loc := numberRE.FindStringIndex(rest[numStart:])
			if loc == nil {
				continue
			}
			value, err := parseNumber(rest[numStart+loc[0] : numStart+loc[1]])
			if err != nil {
				continue
			}
			return clauseMatch{
				cond: criteria.Condition{
					Field:    term.Field,
					Operator: criteria.Operator(cmp.Operator),
					Value:    value,
				},
				start: pos,
				end:   restStart + numStart + loc[1],
			}, true
		}
	}
	return clauseMatch{}, false
}

// matchFlag recognizes boolean-flag phrases ("has a housing loan"),
// inverting the value when a negation token immediately precedes the phrase.
func (p *RuleParser) matchFlag(clause string) (clauseMatch, bool) {
	for _, flag := range p.lex.Flags {
		pos := wordIndex(clause, flag.Phrase)
		if pos < 0 {
			continue
		}
		value := "yes"
		if p.negatedBefore(clause[:pos]) {
			value = "no"
		}
		return clauseMatch{
			cond: criteria.Condition{
				Field:    flag.Field,
				Operator: criteria.OpEquals,
				Value:    criteria.String(value),
			},
			start: pos,
			end:   pos + len(flag.Phrase),
		}, true
	}
	return clauseMatch{}, false
}

// negationWindow bounds how many words before a flag phrase a negation
// token may appear; wide enough for "do not have a", narrow enough that a
// negation earlier in the clause cannot flip an unrelated flag.
const negationWindow = 4

// negatedBefore reports whether a negation token ends the prefix, scanning
// only the last few words so "without a personal loan" cannot negate a
// later flag, and matching on word boundaries so "cannot" is not "not".
func (p *RuleParser) negatedBefore(prefix string) bool {
	words := strings.Fields(prefix)
	if len(words) > negationWindow {
		words = words[len(words)-negationWindow:]
	}
	window := strings.Join(words, " ")
	for _, neg := range p.lex.Negations {
		if wordIndex(window, strings.TrimSpace(neg)) >= 0 {
			return true
		}
	}
	return false
}

// matchCategorical recognizes categorical synonyms ("married", "retired").
func (p *RuleParser) matchCategorical(clause string) (clauseMatch, bool) {
	for _, cat := range p.lex.Categoricals {
		pos := wordIndex(clause, cat.Phrase)
		if pos < 0 {
			continue
		}
		return clauseMatch{
			cond: criteria.Condition{
				Field:    cat.Field,
				Operator: criteria.OpEquals,
				Value:    criteria.String(cat.Value),
			},
			start: pos,
			end:   pos + len(cat.Phrase),
		}, true
	}
	return clauseMatch{}, false
}

// markersIn returns every known ambiguity marker present in the clause.
func (p *RuleParser) markersIn(clause string) []string {
	var terms []string
	for _, marker := range p.lex.AmbiguityMarkers {
		if strings.Contains(clause, marker) {
			terms = append(terms, marker)
		}
	}
	return terms
}

// ambiguousTerms decides whether an unmatched clause counts as a candidate.
// Known ambiguity markers are reported individually; otherwise, a clause
// with substance left after stopword stripping is reported whole.
func (p *RuleParser) ambiguousTerms(clause string) []string {
	if terms := p.markersIn(clause); len(terms) > 0 {
		return terms
	}

	var rest []string
	for _, word := range strings.Fields(clause) {
		if !p.isStopword(word) {
			rest = append(rest, word)
		}
	}
	if len(rest) == 0 {
		return nil
	}
	return []string{strings.Join(rest, " ")}
}

func (p *RuleParser) isStopword(word string) bool {
	word = strings.Trim(word, ".,!?")
	for _, sw := range p.lex.Stopwords {
		if word == sw {
			return true
		}
	}
	return false
}

// wordIndex returns the index of phrase in s respecting word boundaries,
// or -1 when absent.
func wordIndex(s, phrase string) int {
	re, err := regexp.Compile(`(?:^|[^a-z0-9])(` + regexp.QuoteMeta(phrase) + `)(?:[^a-z0-9]|$)`)
	if err != nil {
		return -1
	}
	m := re.FindStringSubmatchIndex(s)
	if m == nil {
		return -1
	}
	return m[2]
}

// parseNumber converts a numeric literal to Int when integral, Float
// otherwise.
func parseNumber(s string) (criteria.Value, error) {
	if !strings.Contains(s, ".") {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, err
		}
		return criteria.Int(n), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return criteria.Float(f), nil
}
