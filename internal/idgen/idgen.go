// Package idgen supplies the engine's injected id-generation collaborator.
package idgen

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator yields a fresh identifier on each call, matching spec's
// `idGen() -> string` collaborator interface exactly.
type Generator interface {
	Next() string
}

// UUID generates RFC 4122 identifiers via google/uuid. The production
// default — embedders who need reproducible ids for replay should
// supply Sequence or their own Generator instead.
type UUID struct{}

// Next returns a new random UUID string.
func (UUID) Next() string {
	return uuid.New().String()
}

// Sequence yields "evt_1", "evt_2", ... deterministically, matching
// Scenario A's replay-determinism fixture.
type Sequence struct {
	prefix  string
	counter int64
}

// NewSequence creates a Sequence generator with the given prefix
// (e.g. "evt" yields "evt_1", "evt_2", ...).
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

// Next returns the next id in the sequence. Safe for concurrent use,
// though the engine itself does not require that guarantee.
func (s *Sequence) Next() string {
	n := atomic.AddInt64(&s.counter, 1)
	return fmt.Sprintf("%s_%d", s.prefix, n)
}
