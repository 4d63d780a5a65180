package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDoc(t *testing.T, name, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestValidateValidFiles(t *testing.T) {
	for _, name := range []string{"hello.gtirb", "hello.json", "hello.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := writeSample(t, t.TempDir(), name)

			out, err := execute(t, "validate", path)
			require.NoError(t, err)
			assert.Contains(t, out, "✓ "+path+" is valid (1 modules, ")
		})
	}
}

func TestValidateValidJSONOutput(t *testing.T) {
	path := writeSample(t, t.TempDir(), "hello.yaml")

	out, err := execute(t, "--format", "json", "validate", path)
	require.NoError(t, err)

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.Equal(t, 1, result.Modules)
	// IR, module, section, interval, two code blocks, symbolic expression,
	// proxy block and two symbols.
	assert.Equal(t, 10, result.Entities)
}

func TestValidateSchemaViolation(t *testing.T) {
	path := writeDoc(t, "bad.json", `{"uuid":"00000000-0000-0000-0000-000000000001","version":1,"modules":[
		{"uuid":"00000000-0000-0000-0000-000000000002","name":"m","isa":"Z80"}]}`)

	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, ErrCodeSchema)
}

func TestValidateSchemaViolationJSON(t *testing.T) {
	path := writeDoc(t, "bad.yaml", "uuid: 00000000-0000-0000-0000-000000000001\nversion: 1\nsurprise: true\n")

	out, err := execute(t, "--format", "json", "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, ErrCodeSchema, result.Errors[0].Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSchema, resp.Error.Code)
}

func TestValidateUnresolvedReference(t *testing.T) {
	path := writeDoc(t, "dangling.json", `{"uuid":"00000000-0000-0000-0000-000000000001","version":1,"modules":[
		{"uuid":"00000000-0000-0000-0000-000000000002","name":"m",
		 "entry_point":"00000000-0000-0000-0000-0000000000ff"}]}`)

	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeLoadFailed)
	assert.Contains(t, out, "UNRESOLVED_REFERENCE")
}

func TestValidateDuplicateIdentifier(t *testing.T) {
	path := writeDoc(t, "dup.json", `{"uuid":"00000000-0000-0000-0000-000000000001","version":1,"modules":[
		{"uuid":"00000000-0000-0000-0000-000000000001","name":"m"}]}`)

	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Contains(t, out, "DUPLICATE_IDENTIFIER")
}

func TestValidateMalformed(t *testing.T) {
	path := writeDoc(t, "broken.json", `{"uuid":`)

	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeDecodeFailed)
}

func TestValidateMissingFile(t *testing.T) {
	_, err := execute(t, "validate", filepath.Join(t.TempDir(), "absent.gtirb"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
}
