package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rina-forks/gtirb/internal/addr"
)

func addModule(t *testing.T, x *IR, name string, start addr.Addr, size uint64) *Module {
	t.Helper()
	ctx := x.Context()
	m := NewModule(ctx, name)
	s := NewSection(ctx, ".text")
	m.AddSection(s)
	s.AddByteInterval(NewByteInterval(ctx, start, size))
	x.AddModule(m)
	return m
}

func TestFindModulesOn(t *testing.T) {
	ctx := newTestContext(t)
	x := NewIR(ctx)
	lo := addModule(t, x, "lo", 0x1000, 0x100)
	hi := addModule(t, x, "hi", 0x1080, 0x100)

	assert.Equal(t, []*Module{lo}, x.FindModulesOn(0x1000))
	assert.Equal(t, []*Module{lo, hi}, x.FindModulesOn(0x10ff))
	assert.Equal(t, []*Module{hi}, x.FindModulesOn(0x1100))
	assert.Empty(t, x.FindModulesOn(0x1180), "the end address is excluded")
	assert.Empty(t, x.FindModulesOn(0xfff))
}

func TestFindModulesWithPreferredAddr(t *testing.T) {
	ctx := newTestContext(t)
	x := NewIR(ctx)
	a := addModule(t, x, "a", 0x1000, 0x10)
	b := addModule(t, x, "b", 0x2000, 0x10)
	a.SetPreferredAddr(0x400000)
	b.SetPreferredAddr(0x400000)

	assert.Equal(t, []*Module{a, b}, x.FindModulesWithPreferredAddr(0x400000))
	assert.Empty(t, x.FindModulesWithPreferredAddr(0x1000))
	assert.Equal(t, []*Module{b}, x.FindModules("b"))
}

func TestMainModule(t *testing.T) {
	ctx := newTestContext(t)
	x := NewIR(ctx)
	assert.Nil(t, x.MainModule())

	m := x.GetOrCreateMainModule()
	require.NotNil(t, m)
	assert.Equal(t, "main", m.Name())
	assert.Same(t, m, x.GetOrCreateMainModule())
	assert.Same(t, x, m.IR())
	assert.Len(t, x.Modules(), 1)
}

func TestMoveModuleBetweenIRs(t *testing.T) {
	ctx := newTestContext(t)
	a, b := NewIR(ctx), NewIR(ctx)
	m := addModule(t, a, "m", 0x1000, 0x10)

	b.AddModule(m)

	assert.Empty(t, a.Modules())
	assert.Equal(t, []*Module{m}, b.Modules())
	assert.Same(t, b, m.IR())
	assert.False(t, a.RemoveModule(m))
	assert.True(t, b.RemoveModule(m))
	assert.Nil(t, m.IR())
}
