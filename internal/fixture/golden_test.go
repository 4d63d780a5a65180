package fixture

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rina-forks/gtirb/internal/codec"
	"github.com/rina-forks/gtirb/internal/ir"
)

func TestGoldenDump(t *testing.T) {
	_, err := RunWithGolden(t, "testdata/fixtures/hello.yaml")
	require.NoError(t, err)
}

func TestGoldenDumpWithUUIDs(t *testing.T) {
	res := buildHello(t)
	require.NoError(t, AssertGolden(t, "hello_uuids", res.IR, WithDumpOptions(ir.WithUUIDs())))
}

func TestGoldenSurvivesSerialization(t *testing.T) {
	res := buildHello(t)

	for _, f := range codec.Formats {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, codec.Save(&buf, f, res.IR))

			loaded, err := codec.Load(ir.NewContext(), &buf, f)
			require.NoError(t, err)
			require.NoError(t, AssertGolden(t, "hello", loaded))
			require.NoError(t, AssertGolden(t, "hello_uuids", loaded, WithDumpOptions(ir.WithUUIDs())))
		})
	}
}

func TestRunWithGoldenReportsLoadErrors(t *testing.T) {
	_, err := RunWithGolden(t, "testdata/fixtures/absent.yaml")
	require.Error(t, err)
}
