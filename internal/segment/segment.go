// Package segment defines materialized segments and their process-lifetime
// registry.
//
// The store is deliberately ephemeral: segments live exactly as long as the
// process, with no eviction and no persistence. That is a stated limitation
// of the design, not an oversight.
package segment

import (
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/roach88/cohort/internal/catalog"
	"github.com/roach88/cohort/internal/querygen"
	"github.com/roach88/cohort/internal/trace"
)

// Segment is a materialized population query with its sample and audit
// trail. Immutable after creation; owned exclusively by the Store.
type Segment struct {
	ID                string                  `json:"id"`
	Query             querygen.GeneratedQuery `json:"query"`
	Sample            []catalog.Row           `json:"sample"`
	EstimatedRows     int64                   `json:"estimated_rows"`
	CustomerCount     int                     `json:"customer_count"`
	DownstreamTargets []string                `json:"downstream_targets"`
	ProcessingSteps   []trace.StageRecord     `json:"processing_steps"`
	CreatedAt         time.Time               `json:"created_at"`
}

// ConflictError reports an insert with an id that already exists.
// Should not occur under the id allocation policy, but the contract is
// explicit about it.
type ConflictError struct {
	ID string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("segment %q already exists", e.ID)
}

// NotFoundError reports a lookup for an unknown segment id.
type NotFoundError struct {
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("segment %q not found", e.ID)
}

// Store is the in-memory segment registry.
//
// Create is atomic with respect to id allocation and insertion: concurrent
// requests never collide on an id or observe a partially constructed
// segment. All methods are safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	segments map[string]*Segment
	order    []string // insertion order for List
}

// NewStore creates an empty registry.
func NewStore() *Store {
	return &Store{segments: make(map[string]*Segment)}
}

// Create inserts a segment by its id.
// Fails with ConflictError when the id already exists.
func (s *Store) Create(seg *Segment) error {
	if seg == nil || seg.ID == "" {
		return fmt.Errorf("segment must have an id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.segments[seg.ID]; exists {
		return &ConflictError{ID: seg.ID}
	}
	s.segments[seg.ID] = seg
	s.order = append(s.order, seg.ID)
	return nil
}

// Get returns the segment or fails with NotFoundError.
func (s *Store) Get(id string) (*Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seg, ok := s.segments[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return seg, nil
}

// Len returns the number of stored segments.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// List yields stored segments in insertion order.
//
// The sequence is restartable: each range starts from a fresh snapshot of
// the insertion order taken when iteration begins, so a caller can range
// over the same sequence multiple times.
func (s *Store) List() iter.Seq[*Segment] {
	return func(yield func(*Segment) bool) {
		s.mu.RLock()
		ids := append([]string(nil), s.order...)
		s.mu.RUnlock()

		for _, id := range ids {
			s.mu.RLock()
			seg := s.segments[id]
			s.mu.RUnlock()
			if !yield(seg) {
				return
			}
		}
	}
}
