// Package lexicon loads the business vocabulary that drives rule-based
// intent parsing and field mapping.
//
// The lexicon and the field-mapping table are data, not branching logic:
// they are CUE configuration validated against an embedded schema at load
// time, and read-only thereafter. An embedded default covers the
// bank-marketing dataset; deployments override it with a lexicon directory.
package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

//go:embed schema.cue
var schemaCUE []byte

//go:embed default.cue
var defaultCUE []byte

// Comparative maps a comparative phrase to a comparison operator.
// Longer phrases are matched before shorter ones ("greater than or equal to"
// must win over "greater than").
type Comparative struct {
	Phrase   string `json:"phrase"`
	Operator string `json:"operator"`
}

// NumericTerm names a business term that carries numeric comparisons.
type NumericTerm struct {
	Term  string `json:"term"`
	Field string `json:"field"`
}

// Categorical maps a recognizable phrase to an equality condition.
type Categorical struct {
	Phrase string `json:"phrase"`
	Field  string `json:"field"`
	Value  string `json:"value"`
}

// Flag maps a boolean-flag phrase to a yes/no field.
type Flag struct {
	Phrase string `json:"phrase"`
	Field  string `json:"field"`
}

// Mapping resolves a business term to a concrete (table, column) pair.
type Mapping struct {
	Term   string `json:"term"`
	Table  string `json:"table"`
	Column string `json:"column"`
}

// Lexicon is the complete loaded vocabulary. Read-only after load.
type Lexicon struct {
	Comparatives     []Comparative `json:"comparatives"`
	NumericTerms     []NumericTerm `json:"numericTerms"`
	Categoricals     []Categorical `json:"categoricals"`
	Flags            []Flag        `json:"flags"`
	Negations        []string      `json:"negations"`
	AmbiguityMarkers []string      `json:"ambiguityMarkers"`
	Stopwords        []string      `json:"stopwords"`
	Mappings         []Mapping     `json:"mappings"`
}

// Default returns the embedded bank-marketing lexicon.
func Default() (*Lexicon, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile embedded schema: %w", err)
	}
	data := ctx.CompileBytes(defaultCUE, cue.Filename("default.cue"))
	if err := data.Err(); err != nil {
		return nil, fmt.Errorf("compile embedded lexicon: %w", err)
	}
	return decode(schema.Unify(data))
}

// Load reads every CUE file in dir, unifies the result with the lexicon
// schema, and decodes it. The directory replaces the embedded default
// entirely; partial overrides unify within the directory itself.
func Load(dir string) (*Lexicon, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("lexicon directory not found: %s", dir)
	}
	if err != nil {
		return nil, fmt.Errorf("error accessing lexicon directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, fmt.Errorf("error scanning lexicon directory: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile embedded schema: %w", err)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances in %s", dir)
	}
	if instances[0].Err != nil {
		return nil, fmt.Errorf("load lexicon: %w", instances[0].Err)
	}

	value := ctx.BuildInstance(instances[0])
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("build lexicon: %w", err)
	}
	return decode(schema.Unify(value))
}

// decode validates the unified value and decodes it into a Lexicon,
// then normalizes ordering for deterministic matching.
func decode(v cue.Value) (*Lexicon, error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("lexicon does not satisfy schema: %w", err)
	}

	var lex Lexicon
	if err := v.Decode(&lex); err != nil {
		return nil, fmt.Errorf("decode lexicon: %w", err)
	}
	if len(lex.Mappings) == 0 {
		return nil, fmt.Errorf("lexicon defines no field mappings")
	}

	// Longest phrase first so specific templates win over generic ones.
	sort.SliceStable(lex.Comparatives, func(i, j int) bool {
		return len(lex.Comparatives[i].Phrase) > len(lex.Comparatives[j].Phrase)
	})
	sort.SliceStable(lex.Categoricals, func(i, j int) bool {
		return len(lex.Categoricals[i].Phrase) > len(lex.Categoricals[j].Phrase)
	})
	sort.SliceStable(lex.Flags, func(i, j int) bool {
		return len(lex.Flags[i].Phrase) > len(lex.Flags[j].Phrase)
	})
	return &lex, nil
}

// MappingFor resolves a business term to its mapping entry.
// Lookup is case-insensitive.
func (l *Lexicon) MappingFor(term string) (Mapping, bool) {
	term = strings.ToLower(strings.TrimSpace(term))
	for _, m := range l.Mappings {
		if strings.ToLower(m.Term) == term {
			return m, true
		}
	}
	return Mapping{}, false
}
