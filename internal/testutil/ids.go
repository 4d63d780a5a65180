// Package testutil provides deterministic identifier sources for tests.
package testutil

import (
	"encoding/binary"
	"sync"

	"github.com/google/uuid"
)

// SeqID returns the identifier SequentialIDs produces on its nth call:
// the UUID whose low 64 bits hold n.
func SeqID(n uint64) uuid.UUID {
	var id uuid.UUID
	binary.BigEndian.PutUint64(id[8:], n)
	return id
}

// SequentialIDs generates 00000000-0000-0000-0000-000000000001, ...002,
// and so on.
//
// Unlike random UUIDs, SequentialIDs can be reset for test reuse, so the
// same scenario run twice produces identical identifiers.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu sync.Mutex
	n  uint64
}

// NewSequentialIDs creates a generator whose first identifier is SeqID(1).
func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{}
}

// NewID returns the next identifier.
func (g *SequentialIDs) NewID() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return SeqID(g.n)
}

// Count returns how many identifiers have been generated since the last
// reset.
func (g *SequentialIDs) Count() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// Reset restarts the sequence. The next call to NewID returns SeqID(1).
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}

// FixedIDs returns predetermined identifiers in order.
//
// Thread-safety: FixedIDs is safe for concurrent use via internal mutex.
type FixedIDs struct {
	mu  sync.Mutex
	ids []uuid.UUID
	idx int
}

// NewFixedIDs creates a generator that returns ids in order.
//
// Example:
//
//	gen := NewFixedIDs(a, b)
//	gen.NewID() // a
//	gen.NewID() // b
//	gen.NewID() // panic: all identifiers exhausted
func NewFixedIDs(ids ...uuid.UUID) *FixedIDs {
	return &FixedIDs{ids: ids}
}

// NewID returns the next predetermined identifier.
//
// Panics if all identifiers have been consumed. A test that allocates more
// entities than it planned for is wrong and should fail loudly.
func (g *FixedIDs) NewID() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic("testutil.FixedIDs: all identifiers exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// Remaining returns how many identifiers are left.
func (g *FixedIDs) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.ids) - g.idx
}
