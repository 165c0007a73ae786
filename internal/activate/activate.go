// Package activate materializes a validated query as a stored segment and
// simulates dispatch to downstream systems.
//
// Downstream activation is a pure stub: the configured target names are
// recorded and logged, no network call happens. Real CRM/email/ad
// integration is explicitly out of scope.
package activate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/cohort/internal/catalog"
	"github.com/roach88/cohort/internal/querygen"
	"github.com/roach88/cohort/internal/segment"
	"github.com/roach88/cohort/internal/trace"
	"github.com/roach88/cohort/internal/validate"
)

// ActivationError reports an execution failure or timeout during
// materialization. No segment is published when it is returned.
type ActivationError struct {
	TimedOut bool
	Err      error
}

// Error implements the error interface.
func (e *ActivationError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("activation timed out: %v", e.Err)
	}
	return fmt.Sprintf("activation failed: %v", e.Err)
}

// Unwrap exposes the underlying error.
func (e *ActivationError) Unwrap() error {
	return e.Err
}

// idAllocationAttempts bounds conflict retries before giving up.
const idAllocationAttempts = 4

// Activator executes validated queries and registers the resulting
// segments. Safe for concurrent use; the store serializes insertion.
type Activator struct {
	cat        *catalog.Catalog
	store      *segment.Store
	ids        IDGenerator
	targets    []string
	sampleSize int
	now        func() time.Time
	logger     *slog.Logger
}

// Options configures an Activator.
type Options struct {
	// IDs overrides the id generator; defaults to RandomIDGenerator.
	IDs IDGenerator
	// Targets is the static downstream system list recorded per segment.
	Targets []string
	// SampleSize caps the rows copied into Segment.Sample.
	SampleSize int
	// Now overrides the clock for deterministic tests.
	Now func() time.Time
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// New creates an Activator over the catalog and store.
func New(cat *catalog.Catalog, store *segment.Store, opts Options) *Activator {
	a := &Activator{
		cat:        cat,
		store:      store,
		ids:        opts.IDs,
		targets:    opts.Targets,
		sampleSize: opts.SampleSize,
		now:        opts.Now,
		logger:     opts.Logger,
	}
	if a.ids == nil {
		a.ids = RandomIDGenerator{}
	}
	if a.sampleSize <= 0 {
		a.sampleSize = 5
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// Activate executes the validated query, captures a bounded sample, and
// publishes a new segment to the store.
//
// The query executes bounded by its own LIMIT clause; the stored sample is
// additionally capped at the configured sample size. Fails with
// ActivationError on execution failure or timeout; no partial segment is
// ever published.
func (a *Activator) Activate(ctx context.Context, q *querygen.GeneratedQuery, vr *validate.Result, steps []trace.StageRecord) (*segment.Segment, error) {
	if vr == nil || !vr.IsValid {
		return nil, &ActivationError{Err: errors.New("query has not passed validation")}
	}

	rows, err := a.cat.Execute(ctx, q.Text, 0)
	if err != nil {
		return nil, &ActivationError{
			TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
			Err:      err,
		}
	}

	sample := rows
	if len(sample) > a.sampleSize {
		sample = sample[:a.sampleSize]
	}

	seg := &segment.Segment{
		Query:             *q,
		Sample:            sample,
		EstimatedRows:     vr.RowCount,
		CustomerCount:     len(rows),
		DownstreamTargets: append([]string(nil), a.targets...),
		ProcessingSteps:   steps,
		CreatedAt:         a.now(),
	}

	if err := a.publish(seg); err != nil {
		return nil, &ActivationError{Err: err}
	}

	a.logger.Info("segment activated in downstream systems",
		"segment_id", seg.ID,
		"customer_count", seg.CustomerCount,
		"downstream_systems", seg.DownstreamTargets,
	)
	return seg, nil
}

// publish allocates an id and inserts, retrying on the (practically
// unreachable) id collision.
func (a *Activator) publish(seg *segment.Segment) error {
	var lastErr error
	for attempt := 0; attempt < idAllocationAttempts; attempt++ {
		seg.ID = a.ids.Generate()
		lastErr = a.store.Create(seg)
		if lastErr == nil {
			return nil
		}
		var conflict *segment.ConflictError
		if !errors.As(lastErr, &conflict) {
			return lastErr
		}
	}
	return fmt.Errorf("could not allocate a unique segment id: %w", lastErr)
}
