package store

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rina-forks/gtirb/internal/addr"
	"github.com/rina-forks/gtirb/internal/ir"
	"github.com/rina-forks/gtirb/internal/testutil"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// newArena returns a context whose identifiers start at 1, so IRs built in
// separate arenas by the same steps share UUIDs.
func newArena() *ir.Context {
	return ir.NewContext(
		ir.WithIDGenerator(testutil.NewSequentialIDs()),
		ir.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

// createTestIR builds an IR with one module per name. Each module gets a
// .text section at preferred+0x1000 holding one code block.
func createTestIR(t *testing.T, arena *ir.Context, names ...string) *ir.IR {
	t.Helper()
	x := ir.NewIR(arena)
	for i, name := range names {
		m := ir.NewModule(arena, name)
		m.SetISA(ir.X64)
		m.SetFileFormat(ir.ELF)
		m.SetPreferredAddr(addr.Addr(0x400000 * (i + 1)))
		x.AddModule(m)

		s := ir.NewSection(arena, ".text")
		m.AddSection(s)
		bi := ir.NewByteInterval(arena, m.PreferredAddr()+0x1000, 0x10)
		s.AddByteInterval(bi)
		b := ir.NewCodeBlock(arena, 0x10)
		bi.AddCodeBlock(0, b)
		require.NoError(t, m.SetEntryPoint(b))
		m.AddSymbol(ir.NewSymbolFor(arena, "_start", b))
	}
	return x
}
