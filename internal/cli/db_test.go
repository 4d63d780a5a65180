package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rina-forks/gtirb/internal/codec"
)

const sampleUUID = "00000000-0000-0000-0000-000000000001"

func TestDBRoundTrip(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "ir.db")
	src := writeSample(t, dir, "hello.json")

	out, err := execute(t, "db", "import", "--db", db, src)
	require.NoError(t, err)
	assert.Equal(t, sampleUUID+" saved "+src+"\n", out)

	out, err = execute(t, "db", "import", "--db", db, src)
	require.NoError(t, err)
	assert.Equal(t, sampleUUID+" unchanged "+src+"\n", out)

	out, err = execute(t, "db", "list", "--db", db)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, sampleUUID+" version=1 modules=1 digest="), out)

	dst := filepath.Join(dir, "exported.gtirb")
	out, err = execute(t, "db", "export", "--db", db, "-o", dst, sampleUUID)
	require.NoError(t, err)
	assert.Contains(t, out, "exported "+sampleUUID)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	msg, err := codec.Decode(codec.CBOR, data)
	require.NoError(t, err)
	got, err := codec.Digest(msg)
	require.NoError(t, err)
	want, err := codec.Digest(buildSampleIR(t).ToWire())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	out, err = execute(t, "db", "rm", "--db", db, sampleUUID)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted "+sampleUUID)

	out, err = execute(t, "db", "list", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "no snapshots\n", out)
}

func TestDBFind(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "ir.db")
	src := writeSample(t, dir, "hello.yaml")
	_, err := execute(t, "db", "import", "--db", db, src)
	require.NoError(t, err)

	out, err := execute(t, "--format", "json", "db", "find", "--db", db, "hello")
	require.NoError(t, err)
	var entries []ModuleEntry
	resp := decodeResponse(t, out, &entries)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, entries, 1)
	assert.Equal(t, sampleUUID, entries[0].IR)
	assert.Equal(t, "hello", entries[0].Name)
	assert.Equal(t, "X64", entries[0].ISA)
	assert.Equal(t, "0x400000", entries[0].PreferredAddr)

	out, err = execute(t, "db", "find", "--db", db, "nobody")
	require.NoError(t, err)
	assert.Equal(t, "no module named \"nobody\"\n", out)
}

func TestDBErrors(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "ir.db")

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"export unknown", []string{"db", "export", "--db", db, "-o", filepath.Join(dir, "x.json"), sampleUUID}, ErrCodeNotFound},
		{"export bad uuid", []string{"db", "export", "--db", db, "-o", filepath.Join(dir, "x.json"), "nope"}, ErrCodeBadArgument},
		{"rm unknown", []string{"db", "rm", "--db", db, sampleUUID}, ErrCodeNotFound},
		{"import missing", []string{"db", "import", "--db", db, filepath.Join(dir, "absent.gtirb")}, ErrCodeNotFound},
		{"unopenable db", []string{"db", "list", "--db", filepath.Join(dir, "no", "such", "dir", "ir.db")}, ErrCodeDatabase},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.code)
		})
	}
}

func TestDBRequiresDatabaseFlag(t *testing.T) {
	_, err := execute(t, "db", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db")
}
