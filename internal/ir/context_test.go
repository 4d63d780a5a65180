package ir

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rina-forks/gtirb/internal/testutil"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	return NewContext(
		WithIDGenerator(testutil.NewSequentialIDs()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func TestIdentifiersAreUnique(t *testing.T) {
	ctx := NewContext()
	const n = 500

	seen := make(map[uuid.UUID]bool)
	for i := 0; i < n; i++ {
		b := NewCodeBlock(ctx, 1)
		require.False(t, seen[b.UUID()], "duplicate id %s", b.UUID())
		seen[b.UUID()] = true
	}
	assert.Equal(t, n, ctx.Len())
}

func TestLookup(t *testing.T) {
	ctx := newTestContext(t)
	s := NewSection(ctx, ".text")
	b := NewCodeBlock(ctx, 4)

	assert.Same(t, s, ctx.Lookup(s.UUID()))

	got, ok := Lookup[*CodeBlock](ctx, b.UUID())
	require.True(t, ok)
	assert.Same(t, b, got)

	_, ok = Lookup[*Section](ctx, b.UUID())
	assert.False(t, ok, "wrong kind must not resolve")

	assert.Nil(t, ctx.Lookup(uuid.New()))
	_, ok = Lookup[*Symbol](ctx, uuid.New())
	assert.False(t, ok)
}

func TestSetUUID(t *testing.T) {
	ctx := newTestContext(t)
	b := NewCodeBlock(ctx, 4)
	old := b.UUID()
	fresh := uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")

	require.NoError(t, ctx.SetUUID(b, fresh))
	assert.Equal(t, fresh, b.UUID())
	assert.Same(t, b, ctx.Lookup(fresh))
	assert.Nil(t, ctx.Lookup(old))
	assert.Equal(t, 1, ctx.Len())

	require.NoError(t, ctx.SetUUID(b, fresh), "reassigning to the current id is a no-op")
}

func TestSetUUIDDuplicateLeavesBothMappings(t *testing.T) {
	ctx := newTestContext(t)
	a := NewCodeBlock(ctx, 1)
	b := NewDataBlock(ctx, 1)
	aID, bID := a.UUID(), b.UUID()

	err := ctx.SetUUID(a, bID)
	require.Error(t, err)
	assert.True(t, IsDuplicateIdentifier(err))
	assert.Contains(t, err.Error(), string(ErrCodeDuplicateIdentifier))

	assert.Equal(t, aID, a.UUID())
	assert.Same(t, a, ctx.Lookup(aID))
	assert.Same(t, b, ctx.Lookup(bID))
}

func TestGeneratorCollisionRetries(t *testing.T) {
	x, y := testutil.SeqID(1), testutil.SeqID(2)
	ctx := NewContext(
		WithIDGenerator(testutil.NewFixedIDs(x, x, y)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	first := NewProxyBlock(ctx)
	second := NewProxyBlock(ctx)
	assert.Equal(t, x, first.UUID())
	assert.Equal(t, y, second.UUID())
}

func TestReleaseSubtree(t *testing.T) {
	ctx := newTestContext(t)
	m := NewModule(ctx, "m")
	s := NewSection(ctx, ".text")
	bi := NewByteInterval(ctx, 0x1000, 16)
	b := NewCodeBlock(ctx, 16)
	m.AddSection(s)
	s.AddByteInterval(bi)
	bi.AddCodeBlock(0, b)
	require.Equal(t, 4, ctx.Len())

	ctx.Release(s)

	assert.Equal(t, 1, ctx.Len())
	assert.Same(t, m, ctx.Lookup(m.UUID()))
	for _, n := range []Node{s, bi, b} {
		assert.Nil(t, ctx.Lookup(n.UUID()), "%s still live", n.Kind())
	}
	// Release only touches identity; the structure is unchanged.
	assert.Equal(t, []*CodeBlock{b}, m.FindCodeBlocksAt(0x1000))
}

func TestCloseReleasesEverything(t *testing.T) {
	ctx := newTestContext(t)
	x := NewIR(ctx)
	m := NewModule(ctx, "m")
	x.AddModule(m)
	ids := []uuid.UUID{x.UUID(), m.UUID()}

	ctx.Close()

	assert.Equal(t, 0, ctx.Len())
	for _, id := range ids {
		assert.Nil(t, ctx.Lookup(id))
	}
	assert.PanicsWithError(t, "ir: invariant violation: use of closed context", func() {
		NewSection(ctx, ".text")
	})
}

func TestCrossContextOwnershipPanics(t *testing.T) {
	a, b := newTestContext(t), newTestContext(t)
	m := NewModule(a, "m")
	s := NewSection(b, ".text")

	assert.Panics(t, func() { m.AddSection(s) })
}

type bogus struct{ node }

func (*bogus) Kind() Kind { return Kind(99) }

func TestUnrecognizedKindIsFatal(t *testing.T) {
	n := &bogus{}
	for name, op := range map[string]func(){
		"add":    func() { addToIndices(n) },
		"remove": func() { removeFromIndices(n) },
		"mutate": func() { mutateIndices(n, func() {}) },
	} {
		t.Run(name, func(t *testing.T) {
			defer func() {
				r := recover()
				require.NotNil(t, r)
				_, ok := r.(*InvariantViolation)
				assert.True(t, ok, "panic value %T", r)
			}()
			op()
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "ByteInterval", KindByteInterval.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}
