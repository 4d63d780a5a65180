package fixture

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/rina-forks/gtirb/internal/addr"
	"github.com/rina-forks/gtirb/internal/bytemap"
	"github.com/rina-forks/gtirb/internal/ir"
	"github.com/rina-forks/gtirb/internal/testutil"
)

// NewContext returns a Context whose identifiers are 00000000-...-0001,
// ...0002 and so on, with registry diagnostics discarded.
func NewContext() *ir.Context {
	return ir.NewContext(
		ir.WithIDGenerator(testutil.NewSequentialIDs()),
		ir.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

// Result is a built fixture.
type Result struct {
	IR *ir.IR

	// Blocks maps "module/label" to the block built for it.
	Blocks map[string]ir.Block

	// Symbols maps "module/label" to the symbol built for it.
	Symbols map[string]*ir.Symbol
}

// Block returns the block labelled label in the named module, or nil.
func (r *Result) Block(module, label string) ir.Block {
	return r.Blocks[module+"/"+label]
}

// Symbol returns the symbol labelled label in the named module, or nil.
func (r *Result) Symbol(module, label string) *ir.Symbol {
	return r.Symbols[module+"/"+label]
}

// Build allocates the fixture's entities in ctx. Entities are allocated in
// a fixed order, so a fresh NewContext always yields the same identifiers.
//
// Per module the order is: module, sections with their intervals and
// blocks, proxy blocks, symbols, symbolic expressions.
func Build(ctx *ir.Context, f *Fixture) (*Result, error) {
	res := &Result{
		IR:      ir.NewIR(ctx),
		Blocks:  make(map[string]ir.Block),
		Symbols: make(map[string]*ir.Symbol),
	}
	for i := range f.Modules {
		m, err := res.buildModule(ctx, &f.Modules[i])
		if err != nil {
			return nil, fmt.Errorf("module %q: %w", f.Modules[i].Name, err)
		}
		res.IR.AddModule(m)
	}
	return res, nil
}

func (r *Result) buildModule(ctx *ir.Context, fm *Module) (*ir.Module, error) {
	m := ir.NewModule(ctx, fm.Name)
	m.SetBinaryPath(fm.BinaryPath)
	m.SetRebaseDelta(fm.RebaseDelta)
	if fm.PreferredAddr != nil {
		m.SetPreferredAddr(addr.Addr(*fm.PreferredAddr))
	}
	if fm.ISA != "" {
		isa, err := ir.ParseISA(fm.ISA)
		if err != nil {
			return nil, err
		}
		m.SetISA(isa)
	}
	if fm.FileFormat != "" {
		ff, err := ir.ParseFileFormat(fm.FileFormat)
		if err != nil {
			return nil, err
		}
		m.SetFileFormat(ff)
	}
	if fm.Image != nil {
		if err := fillImage(m.ImageByteMap(), fm.Image); err != nil {
			return nil, err
		}
	}

	key := func(label string) string { return fm.Name + "/" + label }
	intervals := make(map[*Interval]*ir.ByteInterval)

	for si := range fm.Sections {
		fs := &fm.Sections[si]
		s := ir.NewSection(ctx, fs.Name)
		for _, name := range fs.Flags {
			flag, err := ir.ParseSectionFlag(name)
			if err != nil {
				return nil, err
			}
			s.AddFlags(flag)
		}
		m.AddSection(s)

		for ii := range fs.Intervals {
			fi := &fs.Intervals[ii]
			a := addr.Bad
			if fi.Address != nil {
				a = addr.Addr(*fi.Address)
			}
			bi := ir.NewByteInterval(ctx, a, fi.Size)
			contents, err := decodeHex(fi.Contents)
			if err != nil {
				return nil, fmt.Errorf("section %q: contents: %w", fs.Name, err)
			}
			if len(contents) > 0 {
				bi.SetContents(contents)
			}
			s.AddByteInterval(bi)
			intervals[fi] = bi

			for _, fb := range fi.Code {
				b := ir.NewCodeBlock(ctx, fb.Size)
				b.SetDecodeMode(fb.DecodeMode)
				bi.AddCodeBlock(fb.Offset, b)
				r.Blocks[key(fb.Label)] = b
			}
			for _, fb := range fi.Data {
				b := ir.NewDataBlock(ctx, fb.Size)
				bi.AddDataBlock(fb.Offset, b)
				r.Blocks[key(fb.Label)] = b
			}
		}
	}

	for _, label := range fm.Proxies {
		p := ir.NewProxyBlock(ctx)
		m.AddProxyBlock(p)
		r.Blocks[key(label)] = p
	}

	for i := range fm.Symbols {
		fs := &fm.Symbols[i]
		var sym *ir.Symbol
		switch {
		case fs.Block != "":
			b := r.Blocks[key(fs.Block)]
			if b == nil {
				return nil, fmt.Errorf("symbol %q: unknown block %q", fs.Name, fs.Block)
			}
			sym = ir.NewSymbolFor(ctx, fs.Name, b)
		case fs.Address != nil:
			sym = ir.NewSymbolAt(ctx, fs.Name, addr.Addr(*fs.Address))
		default:
			sym = ir.NewSymbol(ctx, fs.Name)
		}
		sym.SetAtEnd(fs.AtEnd)
		m.AddSymbol(sym)
		r.Symbols[key(fs.label())] = sym
	}

	for si := range fm.Sections {
		for ii := range fm.Sections[si].Intervals {
			fi := &fm.Sections[si].Intervals[ii]
			for _, fe := range fi.SymExprs {
				form, err := ir.ParseSymExprForm(fe.Form)
				if err != nil {
					return nil, err
				}
				syms := make([]*ir.Symbol, len(fe.Symbols))
				for j, label := range fe.Symbols {
					if syms[j] = r.Symbols[key(label)]; syms[j] == nil {
						return nil, fmt.Errorf("symbolic expression: unknown symbol %q", label)
					}
				}
				se := ir.NewSymbolicExpression(ctx, form, fe.Addend, syms...)
				if fe.Scale != 0 {
					se.SetScale(fe.Scale)
				}
				intervals[fi].SetSymbolicExpression(fe.Offset, se)
			}
		}
	}

	if fm.Entry != "" {
		b, ok := r.Blocks[key(fm.Entry)].(*ir.CodeBlock)
		if !ok {
			return nil, fmt.Errorf("entry %q is not a code block", fm.Entry)
		}
		if err := m.SetEntryPoint(b); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func fillImage(img *bytemap.ImageByteMap, fi *Image) error {
	if fi.ByteOrder != "" {
		order, err := bytemap.ParseByteOrder(fi.ByteOrder)
		if err != nil {
			return err
		}
		img.SetByteOrder(order)
	}
	if fi.Min != nil && fi.Max != nil {
		if !img.SetAddrMinMax(addr.Addr(*fi.Min), addr.Addr(*fi.Max)) {
			return fmt.Errorf("image: invalid range [0x%x, 0x%x]", *fi.Min, *fi.Max)
		}
	}
	for _, w := range fi.Writes {
		data, err := decodeHex(w.Hex)
		if err != nil {
			return fmt.Errorf("image: %w", err)
		}
		if err := img.SetBytes(addr.Addr(w.At), data); err != nil {
			return fmt.Errorf("image: %w", err)
		}
	}
	return nil
}
