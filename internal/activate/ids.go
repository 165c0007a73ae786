package activate

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator allocates segment identifiers.
// Implemented by RandomIDGenerator (production) and FixedIDGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// RandomIDGenerator produces "SEG_" plus eight uppercase hex characters
// derived from a random UUID. The store's insert-if-absent contract backs
// this up: on the practically unreachable collision the activator
// reallocates and retries.
//
// Thread-safety: stateless and safe for concurrent use.
type RandomIDGenerator struct{}

// Generate creates a new segment id, e.g. "SEG_3F2A9C01".
func (RandomIDGenerator) Generate() string {
	hex := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "SEG_" + hex[:8]
}

// FixedIDGenerator returns predetermined ids for deterministic tests and
// golden trace comparison.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDGenerator creates a generator that returns ids in order.
// Panics when exhausted, a fail-fast guard against test misconfiguration.
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids}
}

// Generate returns the next predetermined id.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic("FixedIDGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
