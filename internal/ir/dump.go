package ir

import (
	"fmt"
	"io"
	"strings"

	"github.com/rina-forks/gtirb/internal/addr"
)

// DumpOption configures Dump.
type DumpOption func(*dumper)

// WithUUIDs appends each entity's identifier to its line.
func WithUUIDs() DumpOption {
	return func(d *dumper) { d.uuids = true }
}

type dumper struct {
	b     strings.Builder
	uuids bool
}

// Dump writes a line-oriented, indented description of x to w. The output
// is deterministic for a given IR.
func Dump(w io.Writer, x *IR, opts ...DumpOption) error {
	d := &dumper{}
	for _, opt := range opts {
		opt(d)
	}
	d.line(0, x, "IR version=%d modules=%d", x.version, len(x.modules))
	for _, m := range x.modules {
		d.module(1, m)
	}
	_, err := io.WriteString(w, d.b.String())
	return err
}

func (d *dumper) line(depth int, n Node, format string, args ...any) {
	d.b.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(&d.b, format, args...)
	if d.uuids && n != nil {
		fmt.Fprintf(&d.b, " uuid=%s", n.UUID())
	}
	d.b.WriteByte('\n')
}

func fmtAddr(a addr.Addr) string {
	if !a.Valid() {
		return "none"
	}
	return a.String()
}

func fmtRange(r addr.Range, ok bool) string {
	if !ok || !r.Start.Valid() {
		return "none"
	}
	return r.String()
}

func (d *dumper) module(depth int, m *Module) {
	entry := "none"
	if m.entryPoint != nil {
		entry = fmtAddr(m.entryPoint.Address())
	}
	r, ok := m.Extent()
	d.line(depth, m, "Module %q isa=%s format=%s preferred=%s extent=%s entry=%s",
		m.name, m.isa, m.fileFormat, fmtAddr(m.preferredAddr), fmtRange(r, ok), entry)

	img := m.image
	lo, hi := img.AddrMinMax()
	imgRange := "none"
	if img.HasRange() {
		imgRange = fmt.Sprintf("[%s, %s]", lo, hi)
	}
	written := 0
	for _, reg := range img.Regions() {
		written += len(reg.Data)
	}
	d.line(depth+1, nil, "ImageByteMap range=%s order=%s written=%d", imgRange, img.ByteOrder(), written)

	for _, s := range m.sections {
		d.section(depth+1, s)
	}
	for _, p := range m.proxies {
		d.line(depth+1, p, "ProxyBlock")
	}
	for _, s := range m.symbols {
		d.symbol(depth+1, s)
	}
}

func (d *dumper) section(depth int, s *Section) {
	flags := "-"
	if len(s.flags) > 0 {
		names := make([]string, len(s.flags))
		for i, f := range s.flags {
			names[i] = f.String()
		}
		flags = strings.Join(names, ",")
	}
	r, ok := s.Extent()
	d.line(depth, s, "Section %q extent=%s flags=%s", s.name, fmtRange(r, ok), flags)
	for _, bi := range s.intervals {
		d.byteInterval(depth+1, bi)
	}
}

func (d *dumper) byteInterval(depth int, bi *ByteInterval) {
	d.line(depth, bi, "ByteInterval extent=%s size=%d contents=%d",
		fmtRange(bi.Extent(), true), bi.size, len(bi.contents))
	for _, b := range bi.codeBlocks {
		d.line(depth+1, b, "CodeBlock addr=%s offset=%d size=%d mode=%d",
			fmtAddr(b.Address()), b.offset, b.size, b.decodeMode)
	}
	for _, b := range bi.dataBlocks {
		d.line(depth+1, b, "DataBlock addr=%s offset=%d size=%d",
			fmtAddr(b.Address()), b.offset, b.size)
	}
	for _, se := range bi.sortedSymExprs() {
		d.line(depth+1, se, "SymbolicExpression addr=%s offset=%d %s %s",
			fmtAddr(se.Address()), se.offset, se.form, exprString(se))
	}
}

func exprString(se *SymbolicExpression) string {
	names := make([]string, len(se.symbols))
	for i, s := range se.symbols {
		names[i] = s.name
	}
	if se.form == AddrAddr && len(names) == 2 {
		return fmt.Sprintf("(%s-%s)/%d%+d", names[0], names[1], se.scale, se.addend)
	}
	return fmt.Sprintf("%s%+d", strings.Join(names, ","), se.addend)
}

func (d *dumper) symbol(depth int, s *Symbol) {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol %q addr=%s", s.name, fmtAddr(s.Address()))
	if s.referent != nil {
		fmt.Fprintf(&b, " -> %s", s.referent.Kind())
	}
	if s.atEnd {
		b.WriteString(" at_end")
	}
	d.line(depth, s, "%s", b.String())
}
