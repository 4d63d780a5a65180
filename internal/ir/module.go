package ir

import (
	"fmt"
	"slices"

	"github.com/rina-forks/gtirb/internal/addr"
	"github.com/rina-forks/gtirb/internal/bytemap"
)

// Module is one binary (executable or library) with everything recovered
// from it. It owns sections, symbols and proxy blocks, and keeps the
// secondary indices used by the Find queries.
type Module struct {
	node
	ir            *IR
	name          string
	binaryPath    string
	preferredAddr addr.Addr
	rebaseDelta   int64
	fileFormat    FileFormat
	isa           ISA
	entryPoint    *CodeBlock
	image         *bytemap.ImageByteMap

	sections []*Section
	symbols  []*Symbol
	proxies  []*ProxyBlock

	index *moduleIndex
}

// NewModule allocates a detached, empty module.
func NewModule(ctx *Context, name string) *Module {
	m := newModule(name)
	ctx.allocate(m)
	return m
}

func newModule(name string) *Module {
	m := &Module{
		name:          name,
		preferredAddr: addr.Bad,
		image:         bytemap.New(),
	}
	m.index = newModuleIndex(m)
	return m
}

// Kind returns KindModule.
func (m *Module) Kind() Kind { return KindModule }

// IR returns the owning IR, or nil.
func (m *Module) IR() *IR { return m.ir }

// Name is the module name, usually the file name of the binary.
func (m *Module) Name() string { return m.name }

// SetName renames the module.
func (m *Module) SetName(name string) { m.name = name }

// BinaryPath is the path of the file the module was loaded from.
func (m *Module) BinaryPath() string { return m.binaryPath }

// SetBinaryPath records where the module was loaded from.
func (m *Module) SetBinaryPath(p string) { m.binaryPath = p }

// PreferredAddr is the address the binary asks to be loaded at.
func (m *Module) PreferredAddr() addr.Addr { return m.preferredAddr }

// SetPreferredAddr sets the preferred load address; addr.Bad clears it.
func (m *Module) SetPreferredAddr(a addr.Addr) { m.preferredAddr = a }

// RebaseDelta is the difference between the load address and the
// preferred address.
func (m *Module) RebaseDelta() int64 { return m.rebaseDelta }

// SetRebaseDelta sets the load address minus the preferred address.
func (m *Module) SetRebaseDelta(d int64) { m.rebaseDelta = d }

// FileFormat is the container format of the binary.
func (m *Module) FileFormat() FileFormat { return m.fileFormat }

// SetFileFormat sets the container format.
func (m *Module) SetFileFormat(f FileFormat) { m.fileFormat = f }

// ISA is the instruction set the code blocks are decoded with.
func (m *Module) ISA() ISA { return m.isa }

// SetISA sets the instruction set.
func (m *Module) SetISA(i ISA) { m.isa = i }

// ImageByteMap returns the module's loaded image.
func (m *Module) ImageByteMap() *bytemap.ImageByteMap { return m.image }

// EntryPoint returns the entry block, or nil.
func (m *Module) EntryPoint() *CodeBlock { return m.entryPoint }

// SetEntryPoint sets the entry block. b must be indexed in m; nil clears
// the entry point. The entry point is cleared automatically when its
// block leaves the module.
func (m *Module) SetEntryPoint(b *CodeBlock) error {
	if b != nil {
		if _, ok := m.index.codeBlocks[b]; !ok {
			return &Error{
				Code:    ErrCodeForeignEntity,
				Message: fmt.Sprintf("code block is not part of module %q", m.name),
				ID:      b.id,
			}
		}
	}
	m.entryPoint = b
	return nil
}

// Address returns the lowest address of any addressed section, or
// addr.Bad.
func (m *Module) Address() addr.Addr {
	r, _ := m.Extent()
	return r.Start
}

// Size returns the span from the lowest to the highest address covered by
// the module's addressed sections.
func (m *Module) Size() uint64 {
	r, _ := m.Extent()
	return r.Size
}

// Extent returns the range spanned by the module's addressed sections.
func (m *Module) Extent() (addr.Range, bool) {
	secs := m.index.sectionAddrs.all()
	if len(secs) == 0 {
		return addr.Range{Start: addr.Bad}, false
	}
	lo, hi := secs[0].nodeBase().indexed, addr.Addr(0)
	for _, s := range secs {
		r, _ := s.Extent()
		hi = max(hi, r.End())
	}
	return addr.Range{Start: lo, Size: uint64(hi - lo)}, true
}

// Sections returns the owned sections in insertion order.
func (m *Module) Sections() []*Section {
	return slices.Clone(m.sections)
}

// AddSection moves s into m, detaching it from its previous module.
func (m *Module) AddSection(s *Section) {
	sameContext(m, s)
	if s.module == m {
		return
	}
	if s.module != nil {
		s.module.RemoveSection(s)
	}
	s.module = m
	m.sections = append(m.sections, s)
	addToIndices(s)
}

// RemoveSection detaches s. It reports false if m does not own s.
func (m *Module) RemoveSection(s *Section) bool {
	if s.module != m {
		return false
	}
	removeFromIndices(s)
	m.sections = slices.DeleteFunc(m.sections, func(o *Section) bool { return o == s })
	s.module = nil
	m.dropLostEntryPoint()
	return true
}

// dropLostEntryPoint clears the entry point once its block is no longer
// indexed in m. It runs after a structural move completes, so a block
// moved within m keeps its role. A nil m is ignored.
func (m *Module) dropLostEntryPoint() {
	if m != nil && m.entryPoint != nil && indexOwner(m.entryPoint) != m {
		m.entryPoint = nil
	}
}

// Symbols returns the owned symbols in insertion order.
func (m *Module) Symbols() []*Symbol {
	return slices.Clone(m.symbols)
}

// AddSymbol moves s into m, detaching it from its previous module.
func (m *Module) AddSymbol(s *Symbol) {
	sameContext(m, s)
	if s.module == m {
		return
	}
	if s.module != nil {
		s.module.RemoveSymbol(s)
	}
	s.module = m
	m.symbols = append(m.symbols, s)
	addToIndices(s)
}

// RemoveSymbol detaches s. It reports false if m does not own s.
func (m *Module) RemoveSymbol(s *Symbol) bool {
	if s.module != m {
		return false
	}
	removeFromIndices(s)
	m.symbols = slices.DeleteFunc(m.symbols, func(o *Symbol) bool { return o == s })
	s.module = nil
	return true
}

// ProxyBlocks returns the owned proxy blocks in insertion order.
func (m *Module) ProxyBlocks() []*ProxyBlock {
	return slices.Clone(m.proxies)
}

// AddProxyBlock moves p into m, detaching it from its previous module.
func (m *Module) AddProxyBlock(p *ProxyBlock) {
	sameContext(m, p)
	if p.module == m {
		return
	}
	if p.module != nil {
		p.module.RemoveProxyBlock(p)
	}
	p.module = m
	m.proxies = append(m.proxies, p)
	addToIndices(p)
}

// RemoveProxyBlock detaches p. It reports false if m does not own p.
func (m *Module) RemoveProxyBlock(p *ProxyBlock) bool {
	if p.module != m {
		return false
	}
	removeFromIndices(p)
	m.proxies = slices.DeleteFunc(m.proxies, func(o *ProxyBlock) bool { return o == p })
	p.module = nil
	return true
}

// ByteIntervals returns every interval in the module, section by section.
func (m *Module) ByteIntervals() []*ByteInterval {
	var out []*ByteInterval
	for _, s := range m.sections {
		out = append(out, s.intervals...)
	}
	return out
}

// CodeBlocks returns every code block in the module in ownership order.
func (m *Module) CodeBlocks() []*CodeBlock {
	var out []*CodeBlock
	for _, bi := range m.ByteIntervals() {
		out = append(out, bi.codeBlocks...)
	}
	return out
}

// DataBlocks returns every data block in the module in ownership order.
func (m *Module) DataBlocks() []*DataBlock {
	var out []*DataBlock
	for _, bi := range m.ByteIntervals() {
		out = append(out, bi.dataBlocks...)
	}
	return out
}

// SymbolicExpressions returns every symbolic expression in the module,
// interval by interval and by offset within each.
func (m *Module) SymbolicExpressions() []*SymbolicExpression {
	var out []*SymbolicExpression
	for _, bi := range m.ByteIntervals() {
		out = append(out, bi.sortedSymExprs()...)
	}
	return out
}

// Contains reports whether n is indexed in m.
func (m *Module) Contains(n Node) bool {
	x := m.index
	var ok bool
	switch n := n.(type) {
	case *Section:
		_, ok = x.sections[n]
	case *ByteInterval:
		_, ok = x.intervals[n]
	case *CodeBlock:
		_, ok = x.codeBlocks[n]
	case *DataBlock:
		_, ok = x.dataBlocks[n]
	case *ProxyBlock:
		_, ok = x.proxies[n]
	case *Symbol:
		_, ok = x.symbols[n]
	case *SymbolicExpression:
		ok = n.interval != nil && x.symExprs[symExprKey{n.interval, n.offset}] == n
	}
	return ok
}

// FindSections returns the sections named name.
func (m *Module) FindSections(name string) []*Section {
	var out []*Section
	for _, s := range m.sections {
		if s.name == name {
			out = append(out, s)
		}
	}
	return out
}

// FindSectionsOn returns the sections whose extent contains a.
func (m *Module) FindSectionsOn(a addr.Addr) []*Section {
	return m.index.sectionAddrs.on(a)
}

// FindSectionsAt returns the sections starting at a.
func (m *Module) FindSectionsAt(a addr.Addr) []*Section {
	return m.index.sectionAddrs.at(a)
}

// FindSectionsIn returns the sections starting in [lo, hi).
func (m *Module) FindSectionsIn(lo, hi addr.Addr) []*Section {
	return m.index.sectionAddrs.in(lo, hi)
}

// FindByteIntervalsOn returns the intervals whose extent contains a.
func (m *Module) FindByteIntervalsOn(a addr.Addr) []*ByteInterval {
	return m.index.intervalAddrs.on(a)
}

// FindByteIntervalsAt returns the intervals starting at a.
func (m *Module) FindByteIntervalsAt(a addr.Addr) []*ByteInterval {
	return m.index.intervalAddrs.at(a)
}

// FindByteIntervalsIn returns the intervals starting in [lo, hi).
func (m *Module) FindByteIntervalsIn(lo, hi addr.Addr) []*ByteInterval {
	return m.index.intervalAddrs.in(lo, hi)
}

// FindCodeBlocksOn returns the code blocks whose extent contains a.
func (m *Module) FindCodeBlocksOn(a addr.Addr) []*CodeBlock {
	return m.index.codeAddrs.on(a)
}

// FindCodeBlocksAt returns the code blocks starting at a.
func (m *Module) FindCodeBlocksAt(a addr.Addr) []*CodeBlock {
	return m.index.codeAddrs.at(a)
}

// FindCodeBlocksIn returns the code blocks starting in [lo, hi).
func (m *Module) FindCodeBlocksIn(lo, hi addr.Addr) []*CodeBlock {
	return m.index.codeAddrs.in(lo, hi)
}

// FindDataBlocksOn returns the data blocks whose extent contains a.
func (m *Module) FindDataBlocksOn(a addr.Addr) []*DataBlock {
	return m.index.dataAddrs.on(a)
}

// FindDataBlocksAt returns the data blocks starting at a.
func (m *Module) FindDataBlocksAt(a addr.Addr) []*DataBlock {
	return m.index.dataAddrs.at(a)
}

// FindDataBlocksIn returns the data blocks starting in [lo, hi).
func (m *Module) FindDataBlocksIn(lo, hi addr.Addr) []*DataBlock {
	return m.index.dataAddrs.in(lo, hi)
}

// FindSymbols returns the symbols named name. Names are compared after
// NFC normalization.
func (m *Module) FindSymbols(name string) []*Symbol {
	set := m.index.symbolNames[nameKey(name)]
	out := make([]*Symbol, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return sortBySeq(out)
}

// FindSymbolsAt returns the symbols whose address is a.
func (m *Module) FindSymbolsAt(a addr.Addr) []*Symbol {
	return m.index.symbolAddrs.at(a)
}

// FindSymbolsIn returns the symbols whose address is in [lo, hi).
func (m *Module) FindSymbolsIn(lo, hi addr.Addr) []*Symbol {
	return m.index.symbolAddrs.in(lo, hi)
}

// GetSymbol returns the first symbol at a, or nil.
func (m *Module) GetSymbol(a addr.Addr) *Symbol {
	if syms := m.index.symbolAddrs.at(a); len(syms) > 0 {
		return syms[0]
	}
	return nil
}

// GetOrCreateSymbol returns the first symbol at a, creating an unnamed
// symbol there if none exists. It returns nil and creates nothing when a
// is addr.Bad.
func (m *Module) GetOrCreateSymbol(a addr.Addr) *Symbol {
	if !a.Valid() {
		return nil
	}
	if s := m.GetSymbol(a); s != nil {
		return s
	}
	s := NewSymbolAt(m.ctx, "", a)
	m.AddSymbol(s)
	return s
}

// FindSymbolicExpression returns the expression at offset in bi, or nil.
func (m *Module) FindSymbolicExpression(bi *ByteInterval, offset uint64) *SymbolicExpression {
	return m.index.symExprs[symExprKey{bi, offset}]
}

// FindSymbolicExpressionsAt returns the expressions located at a.
func (m *Module) FindSymbolicExpressionsAt(a addr.Addr) []*SymbolicExpression {
	return m.index.symExprAddrs.at(a)
}

// FindSymbolicExpressionsIn returns the expressions located in [lo, hi).
func (m *Module) FindSymbolicExpressionsIn(lo, hi addr.Addr) []*SymbolicExpression {
	return m.index.symExprAddrs.in(lo, hi)
}
