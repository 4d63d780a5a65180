package ir

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rina-forks/gtirb/internal/addr"
	"github.com/rina-forks/gtirb/internal/bytemap"
	"github.com/rina-forks/gtirb/internal/wire"
)

type richFixture struct {
	*textFixture
	x     *IR
	data  *DataBlock
	proxy *ProxyBlock
	foo   *Symbol
	bar   *Symbol
	se    *SymbolicExpression
}

func newRichFixture(t *testing.T) *richFixture {
	t.Helper()
	f := &richFixture{textFixture: newTextFixture(t)}
	ctx, m := f.ctx, f.m

	m.SetBinaryPath("/bin/hello")
	m.SetPreferredAddr(0x400000)
	m.SetRebaseDelta(-16)
	m.SetFileFormat(ELF)
	m.SetISA(X64)
	f.text.AddFlags(SectionReadable, SectionExecutable)
	f.bi.SetContents([]byte{0x55, 0x48, 0x89, 0xe5, 0xc3})
	require.NoError(t, m.SetEntryPoint(f.b0))

	dataSec := NewSection(ctx, ".data")
	m.AddSection(dataSec)
	dbi := NewByteInterval(ctx, addr.Bad, 8)
	dataSec.AddByteInterval(dbi)
	f.data = NewDataBlock(ctx, 8)
	dbi.AddDataBlock(0, f.data)

	f.proxy = NewProxyBlock(ctx)
	m.AddProxyBlock(f.proxy)

	f.foo = NewSymbolFor(ctx, "foo", f.b8)
	f.bar = NewSymbolAt(ctx, "bar", 0x2000)
	puts := NewSymbolFor(ctx, "puts", f.proxy)
	end := NewSymbolFor(ctx, "data_end", f.data)
	end.SetAtEnd(true)
	for _, s := range []*Symbol{f.foo, f.bar, puts, end} {
		m.AddSymbol(s)
	}

	f.se = NewSymbolicExpression(ctx, AddrAddr, 4, f.foo, f.bar)
	f.se.SetScale(2)
	f.bi.SetSymbolicExpression(1, f.se)

	img := m.ImageByteMap()
	require.True(t, img.SetAddrMinMax(0x1000, 0x1fff))
	img.SetByteOrder(bytemap.BigEndian)
	img.SetFileName("hello")
	img.SetBaseAddress(0x1000)
	require.NoError(t, bytemap.SetData(img, 0x1000, uint32(0xAABBCCDD)))

	f.x = NewIR(ctx)
	f.x.AddModule(m)
	addModule(t, f.x, "libc", 0x7000, 0x10)
	return f
}

func TestIRRoundTrip(t *testing.T) {
	f := newRichFixture(t)
	msg := f.x.ToWire()

	ctx2 := newTestContext(t)
	y, err := IRFromWire(ctx2, msg)
	require.NoError(t, err)

	assert.Equal(t, msg, y.ToWire())
	assert.Equal(t, f.ctx.Len(), ctx2.Len())
	assert.Equal(t, f.x.UUID(), y.UUID())
	assert.Equal(t, Version, y.Version())

	var a, b bytes.Buffer
	require.NoError(t, Dump(&a, f.x, WithUUIDs()))
	require.NoError(t, Dump(&b, y, WithUUIDs()))
	assert.Equal(t, a.String(), b.String())

	m2 := y.Modules()[0]
	blocks := m2.FindCodeBlocksAt(0x1008)
	require.Len(t, blocks, 1)
	assert.Equal(t, f.b8.UUID(), blocks[0].UUID())
	assert.Equal(t, f.b0.UUID(), m2.EntryPoint().UUID())

	syms := m2.FindSymbolsAt(0x1008)
	require.Len(t, syms, 1)
	assert.Equal(t, "foo", syms[0].Name())
	assert.Same(t, blocks[0], syms[0].Referent())

	bi2 := blocks[0].ByteInterval()
	se2 := m2.FindSymbolicExpression(bi2, 1)
	require.NotNil(t, se2)
	require.Len(t, se2.Symbols(), 2)
	assert.Same(t, syms[0], se2.Symbols()[0])
	assert.Equal(t, int64(2), se2.Scale())

	raw, err := m2.ImageByteMap().GetBytes(0x1000, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD}, raw)
	assert.Equal(t, bytemap.BigEndian, m2.ImageByteMap().ByteOrder())

	// The copy does not depend on the original's identifiers.
	f.ctx.Release(f.x)
	assert.Same(t, y, ctx2.Lookup(y.UUID()))
	assert.Same(t, m2, ctx2.Lookup(f.m.UUID()))
}

// checkReload releases orig, rebuilds it from its wire form in the same
// context and checks the copy replaces it in the registry.
func checkReload[T Node, M any](t *testing.T, ctx *Context, orig T, toWire func(T) M, load func(M) (T, error)) {
	t.Helper()
	msg := toWire(orig)
	before := ctx.Len()

	ctx.Release(orig)
	require.Nil(t, ctx.Lookup(orig.UUID()))

	cp, err := load(msg)
	require.NoError(t, err)
	assert.NotSame(t, orig, cp)
	assert.Equal(t, orig.UUID(), cp.UUID())
	assert.Same(t, cp, ctx.Lookup(orig.UUID()))
	assert.Equal(t, msg, toWire(cp))
	assert.Equal(t, before, ctx.Len())
}

func TestEntityRoundTrips(t *testing.T) {
	t.Run("module", func(t *testing.T) {
		f := newRichFixture(t)
		checkReload(t, f.ctx, f.m, (*Module).ToWire, func(msg *wire.Module) (*Module, error) {
			return ModuleFromWire(f.ctx, nil, msg)
		})
	})
	t.Run("section", func(t *testing.T) {
		f := newRichFixture(t)
		checkReload(t, f.ctx, f.text, (*Section).ToWire, func(msg *wire.Section) (*Section, error) {
			return SectionFromWire(f.ctx, nil, msg)
		})
	})
	t.Run("byte interval", func(t *testing.T) {
		f := newRichFixture(t)
		checkReload(t, f.ctx, f.bi, (*ByteInterval).ToWire, func(msg *wire.ByteInterval) (*ByteInterval, error) {
			return ByteIntervalFromWire(f.ctx, nil, msg)
		})
	})
	t.Run("code block", func(t *testing.T) {
		f := newRichFixture(t)
		f.b8.SetDecodeMode(1)
		checkReload(t, f.ctx, f.b8, (*CodeBlock).ToWire, func(msg *wire.CodeBlock) (*CodeBlock, error) {
			return CodeBlockFromWire(f.ctx, nil, 0, msg)
		})
	})
	t.Run("data block", func(t *testing.T) {
		f := newRichFixture(t)
		checkReload(t, f.ctx, f.data, (*DataBlock).ToWire, func(msg *wire.DataBlock) (*DataBlock, error) {
			return DataBlockFromWire(f.ctx, nil, 0, msg)
		})
	})
	t.Run("proxy block", func(t *testing.T) {
		f := newRichFixture(t)
		checkReload(t, f.ctx, f.proxy, (*ProxyBlock).ToWire, func(msg *wire.ProxyBlock) (*ProxyBlock, error) {
			return ProxyBlockFromWire(f.ctx, nil, msg)
		})
	})
	t.Run("symbol with referent", func(t *testing.T) {
		f := newRichFixture(t)
		checkReload(t, f.ctx, f.foo, (*Symbol).ToWire, func(msg *wire.Symbol) (*Symbol, error) {
			return SymbolFromWire(f.ctx, nil, msg)
		})
	})
	t.Run("symbol with address", func(t *testing.T) {
		f := newRichFixture(t)
		checkReload(t, f.ctx, f.bar, (*Symbol).ToWire, func(msg *wire.Symbol) (*Symbol, error) {
			return SymbolFromWire(f.ctx, nil, msg)
		})
	})
	t.Run("symbolic expression", func(t *testing.T) {
		f := newRichFixture(t)
		checkReload(t, f.ctx, f.se, (*SymbolicExpression).ToWire, func(msg *wire.SymbolicExpression) (*SymbolicExpression, error) {
			return SymbolicExpressionFromWire(f.ctx, nil, msg)
		})
	})
	t.Run("ir", func(t *testing.T) {
		f := newRichFixture(t)
		checkReload(t, f.ctx, f.x, (*IR).ToWire, func(msg *wire.IR) (*IR, error) {
			return IRFromWire(f.ctx, msg)
		})
	})
}

func TestReloadIntoModuleIsIndexed(t *testing.T) {
	f := newTextFixture(t)
	require.True(t, f.m.RemoveSection(f.text))
	msg := f.text.ToWire()
	f.ctx.Release(f.text)

	cp, err := SectionFromWire(f.ctx, f.m, msg)
	require.NoError(t, err)

	assert.Same(t, f.m, cp.Module())
	assert.Equal(t, []*Section{cp}, f.m.FindSectionsAt(0x1000))
	blocks := f.m.FindCodeBlocksAt(0x1008)
	require.Len(t, blocks, 1)
	assert.Equal(t, f.b8.UUID(), blocks[0].UUID())
	assert.NotSame(t, f.b8, blocks[0])
}

func TestLoadDuplicateIdentifier(t *testing.T) {
	f := newTextFixture(t)
	before := f.ctx.Len()

	_, err := SectionFromWire(f.ctx, nil, f.text.ToWire())
	require.Error(t, err)
	assert.True(t, IsDuplicateIdentifier(err))
	assert.Equal(t, before, f.ctx.Len())
}

func TestLoadAbortUnregistersPartialSubtree(t *testing.T) {
	ctx := newTestContext(t)
	dup := uuid.New()
	msg := &wire.Section{
		UUID: uuid.New(),
		Name: ".text",
		ByteIntervals: []wire.ByteInterval{{
			UUID: uuid.New(),
			Size: 8,
			Blocks: []wire.Block{
				{Offset: 0, Code: &wire.CodeBlock{UUID: dup, Size: 4}},
				{Offset: 4, Code: &wire.CodeBlock{UUID: dup, Size: 4}},
			},
		}},
	}

	_, err := SectionFromWire(ctx, nil, msg)
	require.Error(t, err)
	assert.True(t, IsDuplicateIdentifier(err))
	assert.Equal(t, 0, ctx.Len())
	assert.Nil(t, ctx.Lookup(msg.UUID))
}

func TestLoadRejectsBadMessages(t *testing.T) {
	ctx := newTestContext(t)

	tests := []struct {
		name  string
		load  func() error
		check func(error) bool
	}{
		{
			name: "dangling referent",
			load: func() error {
				_, err := SymbolFromWire(ctx, nil, &wire.Symbol{UUID: uuid.New(), Name: "x", Referent: wire.ID(uuid.New())})
				return err
			},
			check: IsUnresolvedReference,
		},
		{
			name: "address and referent",
			load: func() error {
				_, err := SymbolFromWire(ctx, nil, &wire.Symbol{
					UUID: uuid.New(), Name: "x", Address: wire.Addr(1), Referent: wire.ID(uuid.New()),
				})
				return err
			},
			check: IsInvalidMessage,
		},
		{
			name: "block with code and data",
			load: func() error {
				_, err := ByteIntervalFromWire(ctx, nil, &wire.ByteInterval{
					UUID: uuid.New(),
					Size: 4,
					Blocks: []wire.Block{{
						Code: &wire.CodeBlock{UUID: uuid.New()},
						Data: &wire.DataBlock{UUID: uuid.New()},
					}},
				})
				return err
			},
			check: IsInvalidMessage,
		},
		{
			name: "contents exceed size",
			load: func() error {
				_, err := ByteIntervalFromWire(ctx, nil, &wire.ByteInterval{
					UUID: uuid.New(), Size: 1, Contents: wire.Bytes{1, 2},
				})
				return err
			},
			check: IsInvalidMessage,
		},
		{
			name: "unknown form",
			load: func() error {
				_, err := SymbolicExpressionFromWire(ctx, nil, &wire.SymbolicExpression{UUID: uuid.New(), Form: "Weird"})
				return err
			},
			check: IsInvalidMessage,
		},
		{
			name: "wrong symbol count",
			load: func() error {
				_, err := SymbolicExpressionFromWire(ctx, nil, &wire.SymbolicExpression{
					UUID: uuid.New(), Form: "AddrAddr", Symbols: []uuid.UUID{uuid.New()},
				})
				return err
			},
			check: IsInvalidMessage,
		},
		{
			name: "dangling expression symbol",
			load: func() error {
				_, err := SymbolicExpressionFromWire(ctx, nil, &wire.SymbolicExpression{
					UUID: uuid.New(), Form: "AddrConst", Symbols: []uuid.UUID{uuid.New()},
				})
				return err
			},
			check: IsUnresolvedReference,
		},
		{
			name: "unknown isa",
			load: func() error {
				_, err := ModuleFromWire(ctx, nil, &wire.Module{UUID: uuid.New(), ISA: "Z80"})
				return err
			},
			check: IsInvalidMessage,
		},
		{
			name: "inverted image range",
			load: func() error {
				_, err := ModuleFromWire(ctx, nil, &wire.Module{
					UUID:         uuid.New(),
					ImageByteMap: &wire.ImageByteMap{AddrMin: wire.Addr(0x2000), AddrMax: wire.Addr(0x1000)},
				})
				return err
			},
			check: IsInvalidMessage,
		},
		{
			name: "region outside range",
			load: func() error {
				_, err := ModuleFromWire(ctx, nil, &wire.Module{
					UUID: uuid.New(),
					ImageByteMap: &wire.ImageByteMap{
						AddrMin: wire.Addr(0x1000),
						AddrMax: wire.Addr(0x1003),
						Regions: []wire.Region{{Address: 0x1002, Data: wire.Bytes{1, 2, 3}}},
					},
				})
				return err
			},
			check: bytemap.IsRangeError,
		},
		{
			name: "future version",
			load: func() error {
				_, err := IRFromWire(ctx, &wire.IR{UUID: uuid.New(), Version: Version + 1})
				return err
			},
			check: IsInvalidMessage,
		},
		{
			name: "dangling entry point",
			load: func() error {
				_, err := ModuleFromWire(ctx, nil, &wire.Module{UUID: uuid.New(), EntryPoint: wire.ID(uuid.New())})
				return err
			},
			check: IsUnresolvedReference,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.load()
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
			assert.Equal(t, 0, ctx.Len(), "failed loads leave nothing registered")
		})
	}
}
