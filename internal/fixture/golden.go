package fixture

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/rina-forks/gtirb/internal/ir"
)

// GoldenOption configures golden comparisons.
type GoldenOption func(*goldenConfig)

type goldenConfig struct {
	dump []ir.DumpOption
}

// WithDumpOptions passes opts through to ir.Dump.
func WithDumpOptions(opts ...ir.DumpOption) GoldenOption {
	return func(c *goldenConfig) { c.dump = append(c.dump, opts...) }
}

// RunWithGolden loads the fixture at path, builds it into a fresh
// NewContext and compares its dump against testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/fixture -update
func RunWithGolden(t *testing.T, path string, opts ...GoldenOption) (*Result, error) {
	t.Helper()

	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	res, err := Build(NewContext(), f)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, f.Name, res.IR, opts...); err != nil {
		return nil, err
	}
	return res, nil
}

// AssertGolden compares the dump of x against the named golden file.
func AssertGolden(t *testing.T, name string, x *ir.IR, opts ...GoldenOption) error {
	t.Helper()

	var cfg goldenConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	var buf bytes.Buffer
	if err := ir.Dump(&buf, x, cfg.dump...); err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, buf.Bytes())
	return nil
}
