package ir

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/rina-forks/gtirb/internal/addr"
	"github.com/rina-forks/gtirb/internal/bytemap"
	"github.com/rina-forks/gtirb/internal/wire"
)

func optAddr(a addr.Addr) *uint64 {
	if !a.Valid() {
		return nil
	}
	return wire.Addr(uint64(a))
}

func fromOptAddr(p *uint64) addr.Addr {
	if p == nil {
		return addr.Bad
	}
	return addr.Addr(*p)
}

// ToWire converts x and everything it owns.
func (x *IR) ToWire() *wire.IR {
	msg := &wire.IR{UUID: x.id, Version: x.version}
	for _, m := range x.modules {
		msg.Modules = append(msg.Modules, *m.ToWire())
	}
	return msg
}

// ToWire converts m and everything it owns. Symbols are written as a flat
// sequence in insertion order.
func (m *Module) ToWire() *wire.Module {
	msg := &wire.Module{
		UUID:          m.id,
		Name:          m.name,
		BinaryPath:    m.binaryPath,
		PreferredAddr: optAddr(m.preferredAddr),
		RebaseDelta:   m.rebaseDelta,
		FileFormat:    m.fileFormat.String(),
		ISA:           m.isa.String(),
		ImageByteMap:  imageToWire(m.image),
	}
	if m.entryPoint != nil {
		msg.EntryPoint = wire.ID(m.entryPoint.id)
	}
	for _, s := range m.sections {
		msg.Sections = append(msg.Sections, *s.ToWire())
	}
	for _, p := range m.proxies {
		msg.ProxyBlocks = append(msg.ProxyBlocks, *p.ToWire())
	}
	for _, s := range m.symbols {
		msg.Symbols = append(msg.Symbols, *s.ToWire())
	}
	return msg
}

// ToWire converts s and its intervals to their message form.
func (s *Section) ToWire() *wire.Section {
	msg := &wire.Section{UUID: s.id, Name: s.name}
	for _, f := range s.flags {
		msg.Flags = append(msg.Flags, f.String())
	}
	for _, bi := range s.intervals {
		msg.ByteIntervals = append(msg.ByteIntervals, *bi.ToWire())
	}
	return msg
}

// ToWire converts bi, its blocks and its symbolic expressions to their
// message form.
func (bi *ByteInterval) ToWire() *wire.ByteInterval {
	msg := &wire.ByteInterval{
		UUID:     bi.id,
		Address:  optAddr(bi.addr),
		Size:     bi.size,
		Contents: wire.Bytes(slices.Clone(bi.contents)),
	}
	for _, b := range bi.codeBlocks {
		msg.Blocks = append(msg.Blocks, wire.Block{Offset: b.offset, Code: b.ToWire()})
	}
	for _, b := range bi.dataBlocks {
		msg.Blocks = append(msg.Blocks, wire.Block{Offset: b.offset, Data: b.ToWire()})
	}
	for _, se := range bi.sortedSymExprs() {
		msg.SymbolicExpressions = append(msg.SymbolicExpressions, *se.ToWire())
	}
	return msg
}

// ToWire converts b to its message form.
func (b *CodeBlock) ToWire() *wire.CodeBlock {
	return &wire.CodeBlock{UUID: b.id, Size: b.size, DecodeMode: b.decodeMode}
}

// ToWire converts b to its message form.
func (b *DataBlock) ToWire() *wire.DataBlock {
	return &wire.DataBlock{UUID: b.id, Size: b.size}
}

// ToWire converts p to its message form.
func (p *ProxyBlock) ToWire() *wire.ProxyBlock {
	return &wire.ProxyBlock{UUID: p.id}
}

// ToWire converts s to its message form. Referents are written by UUID.
func (s *Symbol) ToWire() *wire.Symbol {
	msg := &wire.Symbol{UUID: s.id, Name: s.name, AtEnd: s.atEnd}
	if s.referent != nil {
		msg.Referent = wire.ID(s.referent.UUID())
	} else {
		msg.Address = optAddr(s.addr)
	}
	return msg
}

// ToWire converts se to its message form. Symbols are written by UUID.
func (se *SymbolicExpression) ToWire() *wire.SymbolicExpression {
	msg := &wire.SymbolicExpression{
		UUID:    se.id,
		Offset:  se.offset,
		Form:    se.form.String(),
		Symbols: make([]uuid.UUID, 0, len(se.symbols)),
		Scale:   se.scale,
		Addend:  se.addend,
	}
	for _, s := range se.symbols {
		msg.Symbols = append(msg.Symbols, s.id)
	}
	return msg
}

func imageToWire(m *bytemap.ImageByteMap) *wire.ImageByteMap {
	lo, hi := m.AddrMinMax()
	msg := &wire.ImageByteMap{
		FileName:    m.FileName(),
		BaseAddress: optAddr(m.BaseAddress()),
		EntryPoint:  optAddr(m.EntryPointAddress()),
		AddrMin:     optAddr(lo),
		AddrMax:     optAddr(hi),
		RebaseDelta: m.RebaseDelta(),
		Relocated:   m.IsRelocated(),
		ByteOrder:   m.ByteOrder().String(),
	}
	for _, r := range m.Regions() {
		msg.Regions = append(msg.Regions, wire.Region{Address: uint64(r.Addr), Data: r.Data})
	}
	return msg
}

func imageFromWire(msg *wire.ImageByteMap) (*bytemap.ImageByteMap, error) {
	m := bytemap.New()
	m.SetFileName(msg.FileName)
	m.SetBaseAddress(fromOptAddr(msg.BaseAddress))
	m.SetEntryPointAddress(fromOptAddr(msg.EntryPoint))
	m.SetRebaseDelta(msg.RebaseDelta)
	if msg.Relocated {
		m.SetRelocated()
	}
	if msg.ByteOrder != "" {
		order, err := bytemap.ParseByteOrder(msg.ByteOrder)
		if err != nil {
			return nil, newInvalidMessageError("image byte map: %v", err)
		}
		m.SetByteOrder(order)
	}
	if msg.AddrMin != nil || msg.AddrMax != nil {
		lo, hi := fromOptAddr(msg.AddrMin), fromOptAddr(msg.AddrMax)
		if !m.SetAddrMinMax(lo, hi) {
			return nil, newInvalidMessageError("image byte map: invalid range [%s, %s]", lo, hi)
		}
	}
	for _, r := range msg.Regions {
		if err := m.SetBytes(addr.Addr(r.Address), r.Data); err != nil {
			return nil, fmt.Errorf("image byte map region: %w", err)
		}
	}
	return m, nil
}

// loader rebuilds entities from wire messages. References to entities
// outside the subtree being built are resolved immediately, or, when
// deferRefs is set, after the whole subtree exists.
type loader struct {
	ctx       *Context
	deferRefs bool
	created   []Node
	fixups    []func() error
}

func load[T Node](ctx *Context, deferRefs bool, build func(*loader) (T, error)) (T, error) {
	l := &loader{ctx: ctx, deferRefs: deferRefs}
	n, err := build(l)
	if err == nil {
		err = l.finish()
	}
	if err != nil {
		l.abort()
		var zero T
		return zero, err
	}
	return n, nil
}

func (l *loader) adopt(n Node, id uuid.UUID) error {
	if err := l.ctx.adopt(n, id); err != nil {
		return err
	}
	l.created = append(l.created, n)
	return nil
}

func (l *loader) resolve(fix func() error) error {
	if l.deferRefs {
		l.fixups = append(l.fixups, fix)
		return nil
	}
	return fix()
}

func (l *loader) finish() error {
	for _, fix := range l.fixups {
		if err := fix(); err != nil {
			return err
		}
	}
	l.fixups = nil
	return nil
}

// abort unregisters everything the loader registered.
func (l *loader) abort() {
	for _, n := range l.created {
		l.ctx.forget(n)
	}
	l.ctx.logger.Debug("wire load aborted", "entities", len(l.created))
}

// IRFromWire rebuilds an IR and everything it owns in ctx.
func IRFromWire(ctx *Context, msg *wire.IR) (*IR, error) {
	return load(ctx, true, func(l *loader) (*IR, error) { return l.ir(msg) })
}

// ModuleFromWire rebuilds a module in ctx and, if parent is not nil,
// attaches it to parent.
func ModuleFromWire(ctx *Context, parent *IR, msg *wire.Module) (*Module, error) {
	m, err := load(ctx, true, func(l *loader) (*Module, error) { return l.module(msg) })
	if err != nil {
		return nil, err
	}
	if parent != nil {
		parent.AddModule(m)
	}
	return m, nil
}

// SectionFromWire rebuilds a section in ctx and, if parent is not nil,
// attaches it to parent. Symbols referenced by its symbolic expressions
// must already be live in ctx.
func SectionFromWire(ctx *Context, parent *Module, msg *wire.Section) (*Section, error) {
	s, err := load(ctx, false, func(l *loader) (*Section, error) { return l.section(msg) })
	if err != nil {
		return nil, err
	}
	if parent != nil {
		parent.AddSection(s)
	}
	return s, nil
}

// ByteIntervalFromWire rebuilds an interval in ctx and, if parent is not
// nil, attaches it to parent.
func ByteIntervalFromWire(ctx *Context, parent *Section, msg *wire.ByteInterval) (*ByteInterval, error) {
	bi, err := load(ctx, false, func(l *loader) (*ByteInterval, error) { return l.byteInterval(msg) })
	if err != nil {
		return nil, err
	}
	if parent != nil {
		parent.AddByteInterval(bi)
	}
	return bi, nil
}

// CodeBlockFromWire rebuilds a code block in ctx and, if parent is not
// nil, places it at offset in parent.
func CodeBlockFromWire(ctx *Context, parent *ByteInterval, offset uint64, msg *wire.CodeBlock) (*CodeBlock, error) {
	b, err := load(ctx, false, func(l *loader) (*CodeBlock, error) { return l.codeBlock(msg) })
	if err != nil {
		return nil, err
	}
	if parent != nil {
		parent.AddCodeBlock(offset, b)
	}
	return b, nil
}

// DataBlockFromWire rebuilds a data block in ctx and, if parent is not
// nil, places it at offset in parent.
func DataBlockFromWire(ctx *Context, parent *ByteInterval, offset uint64, msg *wire.DataBlock) (*DataBlock, error) {
	b, err := load(ctx, false, func(l *loader) (*DataBlock, error) { return l.dataBlock(msg) })
	if err != nil {
		return nil, err
	}
	if parent != nil {
		parent.AddDataBlock(offset, b)
	}
	return b, nil
}

// ProxyBlockFromWire rebuilds a proxy block in ctx and, if parent is not
// nil, attaches it to parent.
func ProxyBlockFromWire(ctx *Context, parent *Module, msg *wire.ProxyBlock) (*ProxyBlock, error) {
	p, err := load(ctx, false, func(l *loader) (*ProxyBlock, error) { return l.proxyBlock(msg) })
	if err != nil {
		return nil, err
	}
	if parent != nil {
		parent.AddProxyBlock(p)
	}
	return p, nil
}

// SymbolFromWire rebuilds a symbol in ctx and, if parent is not nil,
// attaches it to parent. Its referent, if any, must already be live.
func SymbolFromWire(ctx *Context, parent *Module, msg *wire.Symbol) (*Symbol, error) {
	s, err := load(ctx, false, func(l *loader) (*Symbol, error) { return l.symbol(msg) })
	if err != nil {
		return nil, err
	}
	if parent != nil {
		parent.AddSymbol(s)
	}
	return s, nil
}

// SymbolicExpressionFromWire rebuilds an expression in ctx and, if parent
// is not nil, places it in parent at the message offset. Its symbols must
// already be live.
func SymbolicExpressionFromWire(ctx *Context, parent *ByteInterval, msg *wire.SymbolicExpression) (*SymbolicExpression, error) {
	se, err := load(ctx, false, func(l *loader) (*SymbolicExpression, error) { return l.symbolicExpression(msg) })
	if err != nil {
		return nil, err
	}
	if parent != nil {
		parent.SetSymbolicExpression(se.offset, se)
	}
	return se, nil
}

func (l *loader) ir(msg *wire.IR) (*IR, error) {
	if msg.Version > Version {
		return nil, newInvalidMessageError("unsupported IR version %d (max %d)", msg.Version, Version)
	}
	x := &IR{version: msg.Version}
	if x.version == 0 {
		x.version = Version
	}
	if err := l.adopt(x, msg.UUID); err != nil {
		return nil, err
	}
	for i := range msg.Modules {
		m, err := l.module(&msg.Modules[i])
		if err != nil {
			return nil, fmt.Errorf("module %d: %w", i, err)
		}
		x.AddModule(m)
	}
	return x, nil
}

func (l *loader) module(msg *wire.Module) (*Module, error) {
	m := newModule(msg.Name)
	if err := l.adopt(m, msg.UUID); err != nil {
		return nil, err
	}
	m.binaryPath = msg.BinaryPath
	m.preferredAddr = fromOptAddr(msg.PreferredAddr)
	m.rebaseDelta = msg.RebaseDelta

	var err error
	if msg.FileFormat != "" {
		if m.fileFormat, err = ParseFileFormat(msg.FileFormat); err != nil {
			return nil, newInvalidMessageError("module %q: %v", msg.Name, err)
		}
	}
	if msg.ISA != "" {
		if m.isa, err = ParseISA(msg.ISA); err != nil {
			return nil, newInvalidMessageError("module %q: %v", msg.Name, err)
		}
	}
	if msg.ImageByteMap != nil {
		if m.image, err = imageFromWire(msg.ImageByteMap); err != nil {
			return nil, fmt.Errorf("module %q: %w", msg.Name, err)
		}
	}

	for i := range msg.Sections {
		s, err := l.section(&msg.Sections[i])
		if err != nil {
			return nil, fmt.Errorf("module %q section %d: %w", msg.Name, i, err)
		}
		m.AddSection(s)
	}
	for i := range msg.ProxyBlocks {
		p, err := l.proxyBlock(&msg.ProxyBlocks[i])
		if err != nil {
			return nil, fmt.Errorf("module %q proxy block %d: %w", msg.Name, i, err)
		}
		m.AddProxyBlock(p)
	}
	for i := range msg.Symbols {
		s, err := l.symbol(&msg.Symbols[i])
		if err != nil {
			return nil, fmt.Errorf("module %q symbol %d: %w", msg.Name, i, err)
		}
		m.AddSymbol(s)
	}

	if msg.EntryPoint != nil {
		id := *msg.EntryPoint
		b, ok := Lookup[*CodeBlock](l.ctx, id)
		if !ok {
			return nil, newUnresolvedError(id, "code block")
		}
		if err := m.SetEntryPoint(b); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (l *loader) section(msg *wire.Section) (*Section, error) {
	s := &Section{name: msg.Name}
	if err := l.adopt(s, msg.UUID); err != nil {
		return nil, err
	}
	for _, name := range msg.Flags {
		f, err := ParseSectionFlag(name)
		if err != nil {
			return nil, newInvalidMessageError("section %q: %v", msg.Name, err)
		}
		s.AddFlags(f)
	}
	for i := range msg.ByteIntervals {
		bi, err := l.byteInterval(&msg.ByteIntervals[i])
		if err != nil {
			return nil, fmt.Errorf("section %q interval %d: %w", msg.Name, i, err)
		}
		s.AddByteInterval(bi)
	}
	return s, nil
}

func (l *loader) byteInterval(msg *wire.ByteInterval) (*ByteInterval, error) {
	if uint64(len(msg.Contents)) > msg.Size {
		return nil, newInvalidMessageError("interval %s: %d bytes of contents exceed size %d",
			msg.UUID, len(msg.Contents), msg.Size)
	}
	bi := newByteInterval(fromOptAddr(msg.Address), msg.Size)
	if err := l.adopt(bi, msg.UUID); err != nil {
		return nil, err
	}
	bi.contents = slices.Clone([]byte(msg.Contents))

	for i, blk := range msg.Blocks {
		switch {
		case blk.Code != nil && blk.Data == nil:
			b, err := l.codeBlock(blk.Code)
			if err != nil {
				return nil, err
			}
			bi.AddCodeBlock(blk.Offset, b)
		case blk.Data != nil && blk.Code == nil:
			b, err := l.dataBlock(blk.Data)
			if err != nil {
				return nil, err
			}
			bi.AddDataBlock(blk.Offset, b)
		default:
			return nil, newInvalidMessageError("interval %s block %d: exactly one of code or data required", msg.UUID, i)
		}
	}
	for i := range msg.SymbolicExpressions {
		se, err := l.symbolicExpression(&msg.SymbolicExpressions[i])
		if err != nil {
			return nil, err
		}
		if bi.symExprs[se.offset] != nil {
			return nil, newInvalidMessageError("interval %s: two symbolic expressions at offset %d", msg.UUID, se.offset)
		}
		bi.SetSymbolicExpression(se.offset, se)
	}
	return bi, nil
}

func (l *loader) codeBlock(msg *wire.CodeBlock) (*CodeBlock, error) {
	b := &CodeBlock{size: msg.Size, decodeMode: msg.DecodeMode}
	if err := l.adopt(b, msg.UUID); err != nil {
		return nil, err
	}
	return b, nil
}

func (l *loader) dataBlock(msg *wire.DataBlock) (*DataBlock, error) {
	b := &DataBlock{size: msg.Size}
	if err := l.adopt(b, msg.UUID); err != nil {
		return nil, err
	}
	return b, nil
}

func (l *loader) proxyBlock(msg *wire.ProxyBlock) (*ProxyBlock, error) {
	p := &ProxyBlock{}
	if err := l.adopt(p, msg.UUID); err != nil {
		return nil, err
	}
	return p, nil
}

func (l *loader) symbol(msg *wire.Symbol) (*Symbol, error) {
	if msg.Address != nil && msg.Referent != nil {
		return nil, newInvalidMessageError("symbol %q: address and referent are exclusive", msg.Name)
	}
	s := &Symbol{name: msg.Name, addr: fromOptAddr(msg.Address), atEnd: msg.AtEnd}
	if err := l.adopt(s, msg.UUID); err != nil {
		return nil, err
	}
	if msg.Referent != nil {
		id := *msg.Referent
		err := l.resolve(func() error {
			b, ok := l.ctx.Lookup(id).(Block)
			if !ok {
				return newUnresolvedError(id, "block")
			}
			s.SetReferent(b)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (l *loader) symbolicExpression(msg *wire.SymbolicExpression) (*SymbolicExpression, error) {
	form, err := ParseSymExprForm(msg.Form)
	if err != nil {
		return nil, newInvalidMessageError("symbolic expression %s: %v", msg.UUID, err)
	}
	if len(msg.Symbols) != form.arity() {
		return nil, newInvalidMessageError("symbolic expression %s: %s takes %d symbols, got %d",
			msg.UUID, form, form.arity(), len(msg.Symbols))
	}
	se := &SymbolicExpression{offset: msg.Offset, form: form, scale: msg.Scale, addend: msg.Addend}
	if err := l.adopt(se, msg.UUID); err != nil {
		return nil, err
	}
	ids := slices.Clone(msg.Symbols)
	err = l.resolve(func() error {
		syms := make([]*Symbol, len(ids))
		for i, id := range ids {
			s, ok := Lookup[*Symbol](l.ctx, id)
			if !ok {
				return newUnresolvedError(id, "symbol")
			}
			syms[i] = s
		}
		se.symbols = syms
		return nil
	})
	if err != nil {
		return nil, err
	}
	return se, nil
}
