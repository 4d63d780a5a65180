package testutil

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeqIDFormat(t *testing.T) {
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", SeqID(1).String())
	assert.Equal(t, "00000000-0000-0000-0000-0000000000ff", SeqID(255).String())
}

func TestSequentialIDs_Reset(t *testing.T) {
	g := NewSequentialIDs()
	assert.Equal(t, SeqID(1), g.NewID())
	assert.Equal(t, SeqID(2), g.NewID())
	assert.Equal(t, uint64(2), g.Count())

	g.Reset()
	assert.Equal(t, uint64(0), g.Count())
	assert.Equal(t, SeqID(1), g.NewID())
}

func TestSequentialIDs_ThreadSafe(t *testing.T) {
	g := NewSequentialIDs()
	const numGoroutines = 50
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	results := make([][]uuid.UUID, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		results[i] = make([]uuid.UUID, callsPerGoroutine)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				results[idx][j] = g.NewID()
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[uuid.UUID]bool)
	for _, row := range results {
		for _, id := range row {
			require.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
		}
	}
	assert.Len(t, seen, numGoroutines*callsPerGoroutine)
}

func TestFixedIDs(t *testing.T) {
	a, b := uuid.MustParse("11111111-1111-1111-1111-111111111111"), SeqID(7)
	g := NewFixedIDs(a, b)

	assert.Equal(t, 2, g.Remaining())
	assert.Equal(t, a, g.NewID())
	assert.Equal(t, b, g.NewID())
	assert.Equal(t, 0, g.Remaining())
	assert.Panics(t, func() { g.NewID() })
}
