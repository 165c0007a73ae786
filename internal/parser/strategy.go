// Package parser extracts structured segment criteria from free-text
// population descriptions.
//
// Two interchangeable strategies implement the same contract: RuleParser
// (lexicon-driven, always available) and GeminiParser (external NLU
// collaborator, optional). The pipeline is written against Strategy only
// and never branches on which implementation produced the result.
package parser

import (
	"context"

	"github.com/roach88/cohort/internal/catalog"
	"github.com/roach88/cohort/internal/criteria"
)

// Strategy converts free text plus the schema vocabulary into a ParseResult.
//
// Implementations must be pure with respect to process state: the result is
// a function of the input text and the vocabulary snapshot only.
type Strategy interface {
	Parse(ctx context.Context, text string, vocab Vocabulary) (*criteria.ParseResult, error)
}

// VocabField describes one queryable column for term disambiguation.
type VocabField struct {
	Table        string `json:"table"`
	Column       string `json:"column"`
	DeclaredType string `json:"declared_type"`
	Samples      []any  `json:"samples,omitempty"`
}

// Vocabulary is the field/value vocabulary derived from the schema catalog,
// handed to every strategy (and, verbatim, to the NLU collaborator).
type Vocabulary struct {
	Fields []VocabField `json:"fields"`
}

// BuildVocabulary derives the vocabulary from a catalog snapshot.
func BuildVocabulary(cat *catalog.Catalog) Vocabulary {
	var vocab Vocabulary
	for _, table := range cat.Tables() {
		for _, col := range table.Columns {
			vocab.Fields = append(vocab.Fields, VocabField{
				Table:        table.Name,
				Column:       col.Name,
				DeclaredType: col.DeclaredType,
				Samples:      col.SampleValues,
			})
		}
	}
	return vocab
}
