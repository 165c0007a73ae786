// Package mapping resolves business-facing field names in parsed criteria
// to concrete schema columns, using the lexicon's field-mapping table
// validated against the live catalog.
package mapping

import (
	"fmt"
	"strings"

	"github.com/roach88/cohort/internal/catalog"
	"github.com/roach88/cohort/internal/criteria"
	"github.com/roach88/cohort/internal/lexicon"
)

// DataMappingError reports every field that could not be resolved, in one
// error, so the caller sees the complete set rather than the first failure.
type DataMappingError struct {
	// Unmapped lists business terms with no mapping entry.
	Unmapped []string
	// Drifted lists terms whose mapped column is absent from the live
	// schema (static table out of sync with the data source).
	Drifted []string
}

// Error implements the error interface.
func (e *DataMappingError) Error() string {
	var parts []string
	if len(e.Unmapped) > 0 {
		parts = append(parts, fmt.Sprintf("unmapped fields: %s", strings.Join(e.Unmapped, ", ")))
	}
	if len(e.Drifted) > 0 {
		parts = append(parts, fmt.Sprintf("schema drift: %s", strings.Join(e.Drifted, ", ")))
	}
	return "data mapping failed: " + strings.Join(parts, "; ")
}

// MappedCriteria is criteria whose every condition field has been rewritten
// to a concrete column, plus the tables those columns live in.
type MappedCriteria struct {
	criteria.Criteria
	// Tables holds the referenced physical tables in first-use order.
	Tables []string
	// Fields maps each original business term to its resolved column,
	// recorded for the audit trail.
	Fields map[string]string
}

// Mapper rewrites business terms to schema columns.
// Read-only after construction; safe for concurrent use.
type Mapper struct {
	lex *lexicon.Lexicon
	cat *catalog.Catalog
}

// New builds a Mapper and validates the entire mapping table against the
// live catalog up front, so drift is rejected at startup rather than
// surfacing mid-request.
func New(lex *lexicon.Lexicon, cat *catalog.Catalog) (*Mapper, error) {
	var drifted []string
	for _, m := range lex.Mappings {
		if !cat.HasColumn(m.Table, m.Column) {
			drifted = append(drifted, fmt.Sprintf("%s -> %s.%s", m.Term, m.Table, m.Column))
		}
	}
	if len(drifted) > 0 {
		return nil, &DataMappingError{Drifted: drifted}
	}
	return &Mapper{lex: lex, cat: cat}, nil
}

// Map rewrites every condition field to its schema column. Fails with a
// DataMappingError listing every unresolved field if any lookup fails.
// The input criteria are not modified.
func (m *Mapper) Map(c criteria.Criteria) (*MappedCriteria, error) {
	mapped := &MappedCriteria{
		Criteria: criteria.Criteria{
			Conditions: make([]criteria.Condition, len(c.Conditions)),
			Operators:  append([]criteria.LogicalOp(nil), c.Operators...),
		},
		Fields: make(map[string]string, len(c.Conditions)),
	}

	mappingErr := &DataMappingError{}
	seen := make(map[string]bool)

	for i, cond := range c.Conditions {
		entry, ok := m.lex.MappingFor(cond.Field)
		if !ok {
			mappingErr.Unmapped = append(mappingErr.Unmapped, cond.Field)
			continue
		}
		// Re-check against the live schema: the startup validation protects
		// the static table, this protects per-request custom terms.
		if !m.cat.HasColumn(entry.Table, entry.Column) {
			mappingErr.Drifted = append(mappingErr.Drifted,
				fmt.Sprintf("%s -> %s.%s", cond.Field, entry.Table, entry.Column))
			continue
		}

		mapped.Conditions[i] = criteria.Condition{
			Field:    entry.Column,
			Operator: cond.Operator,
			Value:    cond.Value,
		}
		mapped.Fields[cond.Field] = entry.Column
		if !seen[entry.Table] {
			seen[entry.Table] = true
			mapped.Tables = append(mapped.Tables, entry.Table)
		}
	}

	if len(mappingErr.Unmapped) > 0 || len(mappingErr.Drifted) > 0 {
		return nil, mappingErr
	}
	return mapped, nil
}
