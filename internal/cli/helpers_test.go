package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rina-forks/gtirb/internal/bytemap"
	"github.com/rina-forks/gtirb/internal/codec"
	"github.com/rina-forks/gtirb/internal/ir"
	"github.com/rina-forks/gtirb/internal/testutil"
)

// buildSampleIR returns a single-module IR: .text at 0x1000 with two code
// blocks, a main symbol on the first and a symbolic expression at 0x1004
// referring to an external puts.
func buildSampleIR(t *testing.T) *ir.IR {
	t.Helper()
	ctx := ir.NewContext(
		ir.WithIDGenerator(testutil.NewSequentialIDs()),
		ir.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	x := ir.NewIR(ctx)
	m := ir.NewModule(ctx, "hello")
	m.SetISA(ir.X64)
	m.SetFileFormat(ir.ELF)
	m.SetPreferredAddr(0x400000)
	x.AddModule(m)

	text := ir.NewSection(ctx, ".text")
	text.AddFlags(ir.SectionReadable, ir.SectionExecutable)
	m.AddSection(text)
	bi := ir.NewByteInterval(ctx, 0x1000, 0x10)
	text.AddByteInterval(bi)
	b0, b8 := ir.NewCodeBlock(ctx, 8), ir.NewCodeBlock(ctx, 8)
	bi.AddCodeBlock(0, b0)
	bi.AddCodeBlock(8, b8)
	require.NoError(t, m.SetEntryPoint(b0))

	proxy := ir.NewProxyBlock(ctx)
	m.AddProxyBlock(proxy)
	mainSym := ir.NewSymbolFor(ctx, "main", b0)
	puts := ir.NewSymbolFor(ctx, "puts", proxy)
	m.AddSymbol(mainSym)
	m.AddSymbol(puts)
	bi.SetSymbolicExpression(4, ir.NewSymbolicExpression(ctx, ir.AddrConst, 0, puts))

	img := m.ImageByteMap()
	require.True(t, img.SetAddrMinMax(0x1000, 0x100f))
	img.SetByteOrder(bytemap.LittleEndian)
	require.NoError(t, img.SetBytes(0x1000, []byte{0x55, 0xc3}))
	return x
}

// writeSample saves the sample IR to dir/name, in the format implied by
// the extension.
func writeSample(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := codec.DetectFormat(path)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, codec.Save(&buf, f, buildSampleIR(t)))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decodeResponse parses a JSON CLI response and re-decodes its data into
// data when non-nil.
func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "output: %s", out)
	if data != nil {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return CLIResponse{Status: raw.Status, Data: data, Error: raw.Error}
}
