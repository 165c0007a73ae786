// Package trace builds the audit trail of a pipeline run.
//
// Every stage produces one StageRecord carrying a stage-specific payload, a
// timestamp, and elapsed duration. The record is a single tagged-variant
// type so the trail can be built, serialized, and truncated uniformly on
// both success and failure paths.
package trace

import (
	"encoding/json"
	"time"
)

// Stage identifies the pipeline stage that produced a record.
type Stage string

const (
	StageIntentParsing   Stage = "intent_parsing"
	StageDataMapping     Stage = "data_mapping"
	StageQueryGeneration Stage = "query_generation"
	StageValidation      Stage = "validation"
	StageActivation      Stage = "activation"
)

// Payload is a sealed interface over the per-stage payload variants.
// Only types in this package implement it; exhaustive type switches over
// payloads stay safe.
type Payload interface {
	stagePayload()
}

// IntentPayload captures what the parsing strategy extracted.
type IntentPayload struct {
	Strategy       string   `json:"strategy"`
	Conditions     int      `json:"conditions"`
	Confidence     float64  `json:"confidence"`
	AmbiguousTerms []string `json:"ambiguous_terms,omitempty"`
	Notes          []string `json:"notes,omitempty"`
}

func (IntentPayload) stagePayload() {}

// MappingPayload captures the business-term resolution.
type MappingPayload struct {
	Fields map[string]string `json:"fields"`
	Tables []string          `json:"tables"`
}

func (MappingPayload) stagePayload() {}

// QueryPayload captures the generated statement.
type QueryPayload struct {
	Text      string   `json:"text"`
	Limit     int      `json:"limit"`
	Optimized bool     `json:"optimized"`
	Notes     []string `json:"notes,omitempty"`
}

func (QueryPayload) stagePayload() {}

// ValidationPayload captures the safety verdict.
type ValidationPayload struct {
	IsValid    bool     `json:"is_valid"`
	Issues     []string `json:"issues,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	RowCount   int64    `json:"row_count"`
	SampleSize int      `json:"sample_size"`
}

func (ValidationPayload) stagePayload() {}

// ActivationPayload captures the materialized segment.
type ActivationPayload struct {
	SegmentID         string   `json:"segment_id"`
	CustomerCount     int      `json:"customer_count"`
	DownstreamTargets []string `json:"downstream_targets"`
}

func (ActivationPayload) stagePayload() {}

// StageRecord is one entry in the audit trail.
type StageRecord struct {
	Stage     Stage
	Timestamp time.Time
	Duration  time.Duration
	// Err is set when the stage failed; a failed record is always the last
	// one in a trace.
	Err string
	// Payload is nil on failure when the stage produced nothing.
	Payload Payload
}

// Completed builds a successful record.
func Completed(stage Stage, started time.Time, finished time.Time, payload Payload) StageRecord {
	return StageRecord{
		Stage:     stage,
		Timestamp: started,
		Duration:  finished.Sub(started),
		Payload:   payload,
	}
}

// Failed builds a failure record; the trace is truncated after it.
func Failed(stage Stage, started time.Time, finished time.Time, err error) StageRecord {
	return StageRecord{
		Stage:     stage,
		Timestamp: started,
		Duration:  finished.Sub(started),
		Err:       err.Error(),
	}
}

// MarshalJSON serializes the record in the response-contract shape, with
// the duration in whole milliseconds.
func (r StageRecord) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"stage":              string(r.Stage),
		"timestamp":          r.Timestamp.UTC().Format(time.RFC3339Nano),
		"processing_time_ms": r.Duration.Milliseconds(),
		"status":             "completed",
	}
	if r.Err != "" {
		out["status"] = "failed"
		out["error"] = r.Err
	}
	if r.Payload != nil {
		out["payload"] = r.Payload
	}
	return json.Marshal(out)
}
