package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rina-forks/gtirb/internal/addr"
	"github.com/rina-forks/gtirb/internal/codec"
	"github.com/rina-forks/gtirb/internal/ir"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	InputFormat string
	UUIDs       bool
	At          string
}

// InspectResult is the JSON payload of inspect.
type InspectResult struct {
	File    string          `json:"file"`
	Format  string          `json:"format"`
	UUID    string          `json:"uuid"`
	Version int             `json:"version"`
	Digest  string          `json:"digest"`
	Modules []ModuleSummary `json:"modules"`
}

// ModuleSummary describes one module.
type ModuleSummary struct {
	UUID                string `json:"uuid"`
	Name                string `json:"name"`
	ISA                 string `json:"isa"`
	FileFormat          string `json:"file_format"`
	PreferredAddr       string `json:"preferred_addr,omitempty"`
	Extent              string `json:"extent,omitempty"`
	EntryPoint          string `json:"entry_point,omitempty"`
	Sections            int    `json:"sections"`
	ByteIntervals       int    `json:"byte_intervals"`
	CodeBlocks          int    `json:"code_blocks"`
	DataBlocks          int    `json:"data_blocks"`
	ProxyBlocks         int    `json:"proxy_blocks"`
	Symbols             int    `json:"symbols"`
	SymbolicExpressions int    `json:"symbolic_expressions"`
}

// AddressResult is the JSON payload of inspect --at.
type AddressResult struct {
	Address string `json:"address"`
	Hits    []Hit  `json:"hits"`
}

// Hit is an entity found at or covering an address.
type Hit struct {
	Module string `json:"module"`
	Kind   string `json:"kind"`
	UUID   string `json:"uuid"`
	Name   string `json:"name,omitempty"`
	Extent string `json:"extent,omitempty"`
}

func (h Hit) String() string {
	s := fmt.Sprintf("%s %s", h.Module, h.Kind)
	if h.Name != "" {
		s += fmt.Sprintf(" %q", h.Name)
	}
	if h.Extent != "" {
		s += " " + h.Extent
	}
	return s
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the contents of an IR file",
		Long: `Print a serialized IR.

Text output is an indented dump of every module, section, byte interval,
block, symbolic expression and symbol. JSON output summarises each module.

With --at, only the entities covering the given address are listed.

Example:
  gtirb inspect hello.gtirb
  gtirb inspect --uuids hello.json
  gtirb inspect --at 0x401000 hello.gtirb`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.InputFormat, "input-format", "", "input encoding (cbor|json|yaml), inferred from the extension by default")
	cmd.Flags().BoolVar(&opts.UUIDs, "uuids", false, "include identifiers in the text dump")
	cmd.Flags().StringVar(&opts.At, "at", "", "list only entities covering this address")

	return cmd
}

func runInspect(opts *InspectOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	var at addr.Addr
	if opts.At != "" {
		a, err := parseAddr(opts.At)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeBadArgument, err.Error(), nil)
		}
		at = a
	}

	in, err := readInput(formatter, path, opts.InputFormat)
	if err != nil {
		return err
	}
	x, err := in.build(formatter, ExitCommandError)
	if err != nil {
		return err
	}

	if opts.At != "" {
		return outputHits(formatter, at, findAt(x, at))
	}

	if formatter.Format == "json" {
		digest, err := codec.Digest(in.msg)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "cannot digest input", err)
		}
		result := InspectResult{
			File:    path,
			Format:  string(in.format),
			UUID:    x.UUID().String(),
			Version: x.Version(),
			Digest:  digest,
			Modules: []ModuleSummary{},
		}
		for _, m := range x.Modules() {
			result.Modules = append(result.Modules, summarize(m))
		}
		return formatter.Success(result)
	}

	var dumpOpts []ir.DumpOption
	if opts.UUIDs {
		dumpOpts = append(dumpOpts, ir.WithUUIDs())
	}
	return ir.Dump(formatter.Writer, x, dumpOpts...)
}

func summarize(m *ir.Module) ModuleSummary {
	s := ModuleSummary{
		UUID:                m.UUID().String(),
		Name:                m.Name(),
		ISA:                 m.ISA().String(),
		FileFormat:          m.FileFormat().String(),
		Sections:            len(m.Sections()),
		ByteIntervals:       len(m.ByteIntervals()),
		CodeBlocks:          len(m.CodeBlocks()),
		DataBlocks:          len(m.DataBlocks()),
		ProxyBlocks:         len(m.ProxyBlocks()),
		Symbols:             len(m.Symbols()),
		SymbolicExpressions: len(m.SymbolicExpressions()),
	}
	if a := m.PreferredAddr(); a.Valid() {
		s.PreferredAddr = a.String()
	}
	if r, ok := m.Extent(); ok {
		s.Extent = r.String()
	}
	if b := m.EntryPoint(); b != nil {
		s.EntryPoint = b.Address().String()
	}
	return s
}

// findAt lists, per module, the sections, intervals and blocks covering a
// and the symbols and symbolic expressions located exactly at a.
func findAt(x *ir.IR, a addr.Addr) []Hit {
	hits := []Hit{}
	for _, m := range x.Modules() {
		add := func(n ir.Node, name, where string) {
			hits = append(hits, Hit{
				Module: m.Name(),
				Kind:   n.Kind().String(),
				UUID:   n.UUID().String(),
				Name:   name,
				Extent: where,
			})
		}
		for _, s := range m.FindSectionsOn(a) {
			r, _ := s.Extent()
			add(s, s.Name(), r.String())
		}
		for _, bi := range m.FindByteIntervalsOn(a) {
			add(bi, "", bi.Extent().String())
		}
		for _, b := range m.FindCodeBlocksOn(a) {
			add(b, "", addr.Range{Start: b.Address(), Size: b.Size()}.String())
		}
		for _, b := range m.FindDataBlocksOn(a) {
			add(b, "", addr.Range{Start: b.Address(), Size: b.Size()}.String())
		}
		for _, s := range m.FindSymbolsAt(a) {
			add(s, s.Name(), a.String())
		}
		for _, se := range m.FindSymbolicExpressionsAt(a) {
			add(se, se.Form().String(), a.String())
		}
	}
	return hits
}

func outputHits(formatter *OutputFormatter, a addr.Addr, hits []Hit) error {
	if formatter.Format == "json" {
		return formatter.Success(AddressResult{Address: a.String(), Hits: hits})
	}
	if len(hits) == 0 {
		fmt.Fprintf(formatter.Writer, "nothing at %s\n", a)
		return nil
	}
	for _, h := range hits {
		fmt.Fprintln(formatter.Writer, h)
	}
	return nil
}
