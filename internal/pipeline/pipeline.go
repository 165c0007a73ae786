// Package pipeline orchestrates segment creation end to end.
//
// A run executes five stages in a fixed order: intent parsing, data
// mapping, query generation, validation, activation. Each stage is bounded
// by its own timeout and appends exactly one StageRecord to the audit
// trail; a failing stage truncates the trail there and nothing downstream
// runs.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/cohort/internal/activate"
	"github.com/roach88/cohort/internal/catalog"
	"github.com/roach88/cohort/internal/config"
	"github.com/roach88/cohort/internal/criteria"
	"github.com/roach88/cohort/internal/lexicon"
	"github.com/roach88/cohort/internal/mapping"
	"github.com/roach88/cohort/internal/parser"
	"github.com/roach88/cohort/internal/querygen"
	"github.com/roach88/cohort/internal/segment"
	"github.com/roach88/cohort/internal/trace"
	"github.com/roach88/cohort/internal/validate"
)

// Response status values.
const (
	StatusSuccess          = "success"
	StatusValidationFailed = "validation_failed"
	StatusActivationFailed = "activation_failed"
	StatusError            = "error"
)

// Response is the structured result of a segment-creation run, shaped for
// an outer protocol layer. ProcessingSteps is always populated; on failure
// it is truncated at the failing stage.
type Response struct {
	Status            string              `json:"status"`
	Query             string              `json:"query"`
	SegmentID         string              `json:"segment_id,omitempty"`
	// CustomerCount and EstimatedRows stay in the payload even at zero; an
	// empty segment is a legitimate result, not an absent field.
	CustomerCount     int                 `json:"customer_count"`
	DownstreamSystems []string            `json:"downstream_systems,omitempty"`
	GeneratedQuery    string              `json:"generated_query,omitempty"`
	ValidationSample  []catalog.Row       `json:"validation_sample,omitempty"`
	EstimatedRows     int64               `json:"estimated_rows"`
	Issues            []string            `json:"issues,omitempty"`
	Error             string              `json:"error,omitempty"`
	ProcessingSteps   []trace.StageRecord `json:"processing_steps"`
}

// Pipeline wires the five stages over one catalog and one segment store.
// Safe for concurrent use once constructed.
type Pipeline struct {
	strategy     parser.Strategy
	strategyName string
	vocab        parser.Vocabulary
	mapper       *mapping.Mapper
	generator    *querygen.Generator
	validator    *validate.Validator
	activator    *activate.Activator
	store        *segment.Store

	minConfidence float64
	stageTimeout  time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

// Option customizes pipeline construction.
type Option func(*options)

type options struct {
	strategy     parser.Strategy
	strategyName string
	logger       *slog.Logger
	now          func() time.Time
	ids          activate.IDGenerator
}

// WithStrategy replaces the rule-based parsing strategy. The name appears
// in the intent-parsing trace payload.
func WithStrategy(name string, s parser.Strategy) Option {
	return func(o *options) {
		o.strategy = s
		o.strategyName = name
	}
}

// WithLogger replaces the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock replaces the wall clock, for deterministic traces in tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator replaces the segment id source, for deterministic tests.
func WithIDGenerator(ids activate.IDGenerator) Option {
	return func(o *options) { o.ids = ids }
}

// New assembles a pipeline over the catalog and store from configuration.
// Fails when the vocabulary cannot be loaded or the lexicon's mapping
// table has drifted from the live schema.
func New(cat *catalog.Catalog, store *segment.Store, cfg config.Config, opts ...Option) (*Pipeline, error) {
	o := options{
		strategyName: "rule_based",
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		lex *lexicon.Lexicon
		err error
	)
	if cfg.LexiconDir != "" {
		lex, err = lexicon.Load(cfg.LexiconDir)
	} else {
		lex, err = lexicon.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}

	mapper, err := mapping.New(lex, cat)
	if err != nil {
		return nil, err
	}

	if o.strategy == nil {
		o.strategy = parser.NewRuleParser(lex)
	}

	p := &Pipeline{
		strategy:     o.strategy,
		strategyName: o.strategyName,
		vocab:        parser.BuildVocabulary(cat),
		mapper:       mapper,
		generator:    querygen.New(cfg.DefaultLimit),
		validator: validate.New(cat, validate.Options{
			SafeRows:   cfg.SafeRows,
			ProbeLimit: 1,
			SampleSize: cfg.SampleSize,
		}),
		store:         store,
		minConfidence: cfg.MinConfidence,
		stageTimeout:  cfg.StageTimeout.Std(),
		now:           o.now,
		logger:        o.logger,
	}
	p.activator = activate.New(cat, store, activate.Options{
		IDs:        o.ids,
		Targets:    cfg.DownstreamTargets,
		SampleSize: cfg.SampleSize,
		Now:        o.now,
		Logger:     o.logger,
	})
	return p, nil
}

// Store exposes the segment registry backing this pipeline.
func (p *Pipeline) Store() *segment.Store {
	return p.store
}

// CreateSegment runs the full pipeline for one population description.
//
// Failures are encoded in the response rather than returned: Status names
// the outcome, Error carries the description, and ProcessingSteps ends at
// the stage that failed.
func (p *Pipeline) CreateSegment(ctx context.Context, text string) *Response {
	resp := &Response{Query: text, EstimatedRows: querygen.RowsUnknown}

	p.logger.Info("processing segment request", "query", text)

	// Stage 1: intent parsing.
	var parsed *criteria.ParseResult
	err := p.runStage(ctx, trace.StageIntentParsing, &resp.ProcessingSteps, func(sctx context.Context) (trace.Payload, error) {
		result, err := p.strategy.Parse(sctx, text, p.vocab)
		if err != nil {
			return nil, err
		}
		if result.Confidence < p.minConfidence {
			return nil, &parser.IntentParseError{
				Reason:         fmt.Sprintf("confidence %.2f below required %.2f", result.Confidence, p.minConfidence),
				AmbiguousTerms: result.AmbiguousTerms,
			}
		}
		parsed = result
		return trace.IntentPayload{
			Strategy:       p.strategyName,
			Conditions:     len(result.Criteria.Conditions),
			Confidence:     result.Confidence,
			AmbiguousTerms: result.AmbiguousTerms,
			Notes:          result.Notes,
		}, nil
	})
	if err != nil {
		return p.fail(resp, err)
	}

	// Stage 2: data mapping.
	var mapped *mapping.MappedCriteria
	err = p.runStage(ctx, trace.StageDataMapping, &resp.ProcessingSteps, func(context.Context) (trace.Payload, error) {
		mc, err := p.mapper.Map(parsed.Criteria)
		if err != nil {
			return nil, err
		}
		mapped = mc
		return trace.MappingPayload{Fields: mc.Fields, Tables: mc.Tables}, nil
	})
	if err != nil {
		return p.fail(resp, err)
	}

	// Stage 3: query generation.
	var query *querygen.GeneratedQuery
	err = p.runStage(ctx, trace.StageQueryGeneration, &resp.ProcessingSteps, func(context.Context) (trace.Payload, error) {
		q, err := p.generator.Generate(mapped, 0)
		if err != nil {
			return nil, err
		}
		query = q
		return trace.QueryPayload{
			Text:      q.Text,
			Limit:     q.Limit,
			Optimized: q.Optimized,
			Notes:     q.Notes,
		}, nil
	})
	if err != nil {
		return p.fail(resp, err)
	}
	resp.GeneratedQuery = query.Text

	// Stage 4: validation.
	var verdict *validate.Result
	err = p.runStage(ctx, trace.StageValidation, &resp.ProcessingSteps, func(sctx context.Context) (trace.Payload, error) {
		vr, err := p.validator.Validate(sctx, query)
		if err != nil {
			return nil, err
		}
		verdict = vr
		return trace.ValidationPayload{
			IsValid:    vr.IsValid,
			Issues:     vr.Issues,
			Warnings:   vr.Warnings,
			RowCount:   vr.RowCount,
			SampleSize: len(vr.Sample),
		}, nil
	})
	if err != nil {
		return p.fail(resp, err)
	}
	resp.ValidationSample = verdict.Sample
	resp.EstimatedRows = verdict.RowCount

	if !verdict.IsValid {
		resp.Status = StatusValidationFailed
		resp.Issues = verdict.Issues
		p.logger.Warn("segment request rejected by validation", "issues", verdict.Issues)
		return resp
	}

	// Stage 5: activation. The segment keeps the trail as of this point;
	// the activation record itself lands in the response only.
	var seg *segment.Segment
	err = p.runStage(ctx, trace.StageActivation, &resp.ProcessingSteps, func(sctx context.Context) (trace.Payload, error) {
		s, err := p.activator.Activate(sctx, query, verdict, resp.ProcessingSteps)
		if err != nil {
			return nil, err
		}
		seg = s
		return trace.ActivationPayload{
			SegmentID:         s.ID,
			CustomerCount:     s.CustomerCount,
			DownstreamTargets: s.DownstreamTargets,
		}, nil
	})
	if err != nil {
		resp.Status = StatusActivationFailed
		resp.Error = err.Error()
		return resp
	}

	resp.Status = StatusSuccess
	resp.SegmentID = seg.ID
	resp.CustomerCount = seg.CustomerCount
	resp.DownstreamSystems = seg.DownstreamTargets
	return resp
}

// runStage executes one stage under its timeout and appends its record.
// A cancelled request stops at the stage boundary, before the stage runs.
func (p *Pipeline) runStage(ctx context.Context, stage trace.Stage, steps *[]trace.StageRecord, fn func(context.Context) (trace.Payload, error)) error {
	if err := ctx.Err(); err != nil {
		started := p.now()
		*steps = append(*steps, trace.Failed(stage, started, started, err))
		return err
	}

	sctx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	started := p.now()
	payload, err := fn(sctx)
	finished := p.now()

	if err != nil {
		*steps = append(*steps, trace.Failed(stage, started, finished, err))
		p.logger.Error("pipeline stage failed", "stage", string(stage), "error", err)
		return err
	}
	*steps = append(*steps, trace.Completed(stage, started, finished, payload))
	return nil
}

// fail finalizes an error response. The failing stage's record is already
// the last entry in the trail.
func (p *Pipeline) fail(resp *Response, err error) *Response {
	resp.Status = StatusError
	resp.Error = err.Error()
	return resp
}
