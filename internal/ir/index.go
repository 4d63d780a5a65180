package ir

import (
	"cmp"
	"math"
	"slices"

	"github.com/google/btree"
	"golang.org/x/text/unicode/norm"

	"github.com/rina-forks/gtirb/internal/addr"
)

// btreeDegree is the branching factor of the address indices.
const btreeDegree = 16

type addrEntry[T Node] struct {
	addr addr.Addr
	seq  uint64
	node T
}

func lessAddrEntry[T Node](a, b addrEntry[T]) bool {
	if a.addr != b.addr {
		return a.addr < b.addr
	}
	return a.seq < b.seq
}

// addrIndex orders entities of one kind by address. Each entity remembers
// the key it was stored under, so removal never depends on the entity's
// current fields.
type addrIndex[T Node] struct {
	tree *btree.BTreeG[addrEntry[T]]

	// span is the extent size of an entity; nil for point entities.
	span func(T) uint64

	// maxSpan bounds the span of every entity inserted so far. Size
	// changes always re-insert, so the bound never goes stale.
	maxSpan uint64
}

func newAddrIndex[T Node](span func(T) uint64) *addrIndex[T] {
	return &addrIndex[T]{tree: btree.NewG(btreeDegree, lessAddrEntry[T]), span: span}
}

func (x *addrIndex[T]) insert(n T, a addr.Addr) {
	b := n.nodeBase()
	if b.indexed.Valid() {
		invariantf("%s %s already indexed at %s", n.Kind(), b.id, b.indexed)
	}
	if !a.Valid() {
		return
	}
	x.tree.ReplaceOrInsert(addrEntry[T]{addr: a, seq: b.seq, node: n})
	b.indexed = a
	if x.span != nil {
		x.maxSpan = max(x.maxSpan, x.span(n))
	}
}

func (x *addrIndex[T]) remove(n T) {
	b := n.nodeBase()
	if !b.indexed.Valid() {
		return
	}
	if _, ok := x.tree.Delete(addrEntry[T]{addr: b.indexed, seq: b.seq}); !ok {
		invariantf("%s %s missing from address index at %s", n.Kind(), b.id, b.indexed)
	}
	b.indexed = addr.Bad
}

func (x *addrIndex[T]) len() int {
	return x.tree.Len()
}

// at returns the entities keyed exactly at a.
func (x *addrIndex[T]) at(a addr.Addr) []T {
	var out []T
	x.tree.AscendGreaterOrEqual(addrEntry[T]{addr: a}, func(e addrEntry[T]) bool {
		if e.addr != a {
			return false
		}
		out = append(out, e.node)
		return true
	})
	return out
}

// in returns the entities keyed in [lo, hi).
func (x *addrIndex[T]) in(lo, hi addr.Addr) []T {
	var out []T
	if lo >= hi {
		return out
	}
	x.tree.AscendRange(addrEntry[T]{addr: lo}, addrEntry[T]{addr: hi}, func(e addrEntry[T]) bool {
		out = append(out, e.node)
		return true
	})
	return out
}

// on returns the entities whose extent [key, key+span) contains a, in
// address order. The walk stops once keys fall more than maxSpan below a,
// so its cost is O(log n) plus the entries keyed in (a-maxSpan, a].
func (x *addrIndex[T]) on(a addr.Addr) []T {
	var out []T
	if !a.Valid() || x.span == nil {
		return out
	}
	x.tree.DescendLessOrEqual(addrEntry[T]{addr: a, seq: math.MaxUint64}, func(e addrEntry[T]) bool {
		if uint64(a-e.addr) >= x.maxSpan {
			return false
		}
		if (addr.Range{Start: e.addr, Size: x.span(e.node)}).Contains(a) {
			out = append(out, e.node)
		}
		return true
	})
	slices.Reverse(out)
	return out
}

func (x *addrIndex[T]) all() []T {
	out := make([]T, 0, x.tree.Len())
	x.tree.Ascend(func(e addrEntry[T]) bool {
		out = append(out, e.node)
		return true
	})
	return out
}

type symExprKey struct {
	interval *ByteInterval
	offset   uint64
}

// moduleIndex holds the secondary indices a Module maintains over every
// entity it transitively owns.
type moduleIndex struct {
	module *Module

	sections   map[*Section]struct{}
	intervals  map[*ByteInterval]struct{}
	codeBlocks map[*CodeBlock]struct{}
	dataBlocks map[*DataBlock]struct{}
	proxies    map[*ProxyBlock]struct{}
	symbols    map[*Symbol]struct{}
	symExprs   map[symExprKey]*SymbolicExpression

	sectionAddrs  *addrIndex[*Section]
	intervalAddrs *addrIndex[*ByteInterval]
	codeAddrs     *addrIndex[*CodeBlock]
	dataAddrs     *addrIndex[*DataBlock]
	symbolAddrs   *addrIndex[*Symbol]
	symExprAddrs  *addrIndex[*SymbolicExpression]

	// symbolNames is keyed by the NFC form of the symbol name.
	symbolNames map[string]map[*Symbol]struct{}

	// referrers maps a block to the symbols of this module that refer to
	// it, so their address keys follow the block.
	referrers map[Node]map[*Symbol]struct{}
}

func newModuleIndex(m *Module) *moduleIndex {
	return &moduleIndex{
		module:        m,
		sections:      make(map[*Section]struct{}),
		intervals:     make(map[*ByteInterval]struct{}),
		codeBlocks:    make(map[*CodeBlock]struct{}),
		dataBlocks:    make(map[*DataBlock]struct{}),
		proxies:       make(map[*ProxyBlock]struct{}),
		symbols:       make(map[*Symbol]struct{}),
		symExprs:      make(map[symExprKey]*SymbolicExpression),
		sectionAddrs:  newAddrIndex((*Section).Size),
		intervalAddrs: newAddrIndex((*ByteInterval).Size),
		codeAddrs:     newAddrIndex((*CodeBlock).Size),
		dataAddrs:     newAddrIndex((*DataBlock).Size),
		symbolAddrs:   newAddrIndex[*Symbol](nil),
		symExprAddrs:  newAddrIndex[*SymbolicExpression](nil),
		symbolNames:   make(map[string]map[*Symbol]struct{}),
		referrers:     make(map[Node]map[*Symbol]struct{}),
	}
}

func nameKey(name string) string {
	return norm.NFC.String(name)
}

func mustDelete[K comparable](m map[K]struct{}, k K, what string) {
	if _, ok := m[k]; !ok {
		invariantf("%s missing from identity index", what)
	}
	delete(m, k)
}

func addToSet[K comparable, V comparable](m map[K]map[V]struct{}, k K, v V) {
	set := m[k]
	if set == nil {
		set = make(map[V]struct{})
		m[k] = set
	}
	set[v] = struct{}{}
}

func removeFromSet[K comparable, V comparable](m map[K]map[V]struct{}, k K, v V) {
	set := m[k]
	if _, ok := set[v]; !ok {
		invariantf("set entry missing")
	}
	delete(set, v)
	if len(set) == 0 {
		delete(m, k)
	}
}

// indexOwner returns the module whose indices cover n, or nil when n is
// not reachable from a module.
func indexOwner(n Node) *Module {
	switch n := n.(type) {
	case *IR, *Module:
		return nil
	case *Section:
		return n.module
	case *ByteInterval:
		if n.section != nil {
			return n.section.module
		}
	case *CodeBlock:
		if n.interval != nil {
			return indexOwner(n.interval)
		}
	case *DataBlock:
		if n.interval != nil {
			return indexOwner(n.interval)
		}
	case *SymbolicExpression:
		if n.interval != nil {
			return indexOwner(n.interval)
		}
	case *Symbol:
		return n.module
	case *ProxyBlock:
		return n.module
	default:
		invariantf("unrecognized entity %T", n)
	}
	return nil
}

// addToIndices inserts n, and for containers everything n owns, into the
// indices of its owning module. It is a no-op for detached entities.
func addToIndices(n Node) {
	if m := indexOwner(n); m != nil {
		m.index.add(n)
	}
}

// removeFromIndices removes n and everything it owns from the indices of
// its current owning module. It must run before the structural detach.
func removeFromIndices(n Node) {
	if m := indexOwner(n); m != nil {
		m.index.remove(n)
	}
}

// mutateIndices runs mutation with n un-keyed from every index whose key
// depends on the mutated fields, then re-keys n from its new state.
func mutateIndices(n Node, mutation func()) {
	m := indexOwner(n)
	if m == nil {
		mutation()
		return
	}
	m.index.rekey(n, mutation)
}

func (x *moduleIndex) add(n Node) {
	switch n := n.(type) {
	case *Section:
		x.sections[n] = struct{}{}
		for _, bi := range n.intervals {
			x.add(bi)
		}
		x.sectionAddrs.insert(n, n.Address())
	case *ByteInterval:
		x.intervals[n] = struct{}{}
		x.intervalAddrs.insert(n, n.addr)
		for _, b := range n.codeBlocks {
			x.add(b)
		}
		for _, b := range n.dataBlocks {
			x.add(b)
		}
		for _, se := range n.symExprs {
			x.add(se)
		}
	case *CodeBlock:
		x.codeBlocks[n] = struct{}{}
		x.codeAddrs.insert(n, n.Address())
		x.rekeyReferrers(n)
	case *DataBlock:
		x.dataBlocks[n] = struct{}{}
		x.dataAddrs.insert(n, n.Address())
		x.rekeyReferrers(n)
	case *ProxyBlock:
		x.proxies[n] = struct{}{}
	case *Symbol:
		x.symbols[n] = struct{}{}
		x.keySymbol(n)
	case *SymbolicExpression:
		k := symExprKey{n.interval, n.offset}
		if other, ok := x.symExprs[k]; ok && other != n {
			invariantf("two symbolic expressions at %s+%d", n.interval.id, n.offset)
		}
		x.symExprs[k] = n
		x.symExprAddrs.insert(n, n.Address())
	default:
		invariantf("cannot index %T", n)
	}
}

func (x *moduleIndex) remove(n Node) {
	switch n := n.(type) {
	case *Section:
		x.sectionAddrs.remove(n)
		for _, bi := range n.intervals {
			x.remove(bi)
		}
		mustDelete(x.sections, n, "section")
	case *ByteInterval:
		for _, b := range n.codeBlocks {
			x.remove(b)
		}
		for _, b := range n.dataBlocks {
			x.remove(b)
		}
		for _, se := range n.symExprs {
			x.remove(se)
		}
		x.intervalAddrs.remove(n)
		mustDelete(x.intervals, n, "byte interval")
	case *CodeBlock:
		x.codeAddrs.remove(n)
		mustDelete(x.codeBlocks, n, "code block")
		x.rekeyReferrers(n)
	case *DataBlock:
		x.dataAddrs.remove(n)
		mustDelete(x.dataBlocks, n, "data block")
		x.rekeyReferrers(n)
	case *ProxyBlock:
		mustDelete(x.proxies, n, "proxy block")
	case *Symbol:
		x.unkeySymbol(n)
		mustDelete(x.symbols, n, "symbol")
	case *SymbolicExpression:
		k := symExprKey{n.interval, n.offset}
		if x.symExprs[k] != n {
			invariantf("symbolic expression %s missing from composite index", n.id)
		}
		delete(x.symExprs, k)
		x.symExprAddrs.remove(n)
	default:
		invariantf("cannot unindex %T", n)
	}
}

func (x *moduleIndex) rekey(n Node, mutation func()) {
	switch n := n.(type) {
	case *Section:
		x.sectionAddrs.remove(n)
		mutation()
		x.sectionAddrs.insert(n, n.Address())
	case *ByteInterval:
		// Outermost first: the section extent depends on the interval.
		s := n.section
		x.sectionAddrs.remove(s)
		x.intervalAddrs.remove(n)
		x.unkeyContents(n)
		mutation()
		x.keyContents(n)
		x.intervalAddrs.insert(n, n.addr)
		x.sectionAddrs.insert(s, s.Address())
	case *CodeBlock:
		x.codeAddrs.remove(n)
		mutation()
		x.codeAddrs.insert(n, n.Address())
		x.rekeyReferrers(n)
	case *DataBlock:
		x.dataAddrs.remove(n)
		mutation()
		x.dataAddrs.insert(n, n.Address())
		x.rekeyReferrers(n)
	case *ProxyBlock:
		mutation()
	case *Symbol:
		x.unkeySymbol(n)
		mutation()
		x.keySymbol(n)
	case *SymbolicExpression:
		k := symExprKey{n.interval, n.offset}
		if x.symExprs[k] != n {
			invariantf("symbolic expression %s missing from composite index", n.id)
		}
		delete(x.symExprs, k)
		x.symExprAddrs.remove(n)
		mutation()
		x.symExprs[symExprKey{n.interval, n.offset}] = n
		x.symExprAddrs.insert(n, n.Address())
	default:
		invariantf("cannot re-key %T", n)
	}
}

func (x *moduleIndex) unkeyContents(bi *ByteInterval) {
	for _, b := range bi.codeBlocks {
		x.codeAddrs.remove(b)
	}
	for _, b := range bi.dataBlocks {
		x.dataAddrs.remove(b)
	}
	for _, se := range bi.symExprs {
		x.symExprAddrs.remove(se)
	}
}

func (x *moduleIndex) keyContents(bi *ByteInterval) {
	for _, b := range bi.codeBlocks {
		x.codeAddrs.insert(b, b.Address())
		x.rekeyReferrers(b)
	}
	for _, b := range bi.dataBlocks {
		x.dataAddrs.insert(b, b.Address())
		x.rekeyReferrers(b)
	}
	for _, se := range bi.symExprs {
		x.symExprAddrs.insert(se, se.Address())
	}
}

func (x *moduleIndex) keySymbol(s *Symbol) {
	addToSet(x.symbolNames, nameKey(s.name), s)
	if s.referent != nil {
		addToSet(x.referrers, Node(s.referent), s)
	}
	x.symbolAddrs.insert(s, x.symbolKey(s))
}

func (x *moduleIndex) unkeySymbol(s *Symbol) {
	x.symbolAddrs.remove(s)
	if s.referent != nil {
		removeFromSet(x.referrers, Node(s.referent), s)
	}
	removeFromSet(x.symbolNames, nameKey(s.name), s)
}

func (x *moduleIndex) rekeyReferrers(n Node) {
	for s := range x.referrers[n] {
		x.symbolAddrs.remove(s)
		x.symbolAddrs.insert(s, x.symbolKey(s))
	}
}

// symbolKey is the explicit address of s, or the address of its referent
// block when that block is indexed in this module.
func (x *moduleIndex) symbolKey(s *Symbol) addr.Addr {
	switch r := s.referent.(type) {
	case nil:
		return s.addr
	case *CodeBlock:
		if _, ok := x.codeBlocks[r]; ok {
			return referentAddr(r.Address(), r.size, s.atEnd)
		}
	case *DataBlock:
		if _, ok := x.dataBlocks[r]; ok {
			return referentAddr(r.Address(), r.size, s.atEnd)
		}
	}
	return addr.Bad
}

func referentAddr(a addr.Addr, size uint64, atEnd bool) addr.Addr {
	if atEnd {
		return a.AddUnsigned(size)
	}
	return a
}

// sortBySeq orders entities by allocation order.
func sortBySeq[T Node](ns []T) []T {
	slices.SortFunc(ns, func(a, b T) int {
		return cmp.Compare(a.nodeBase().seq, b.nodeBase().seq)
	})
	return ns
}
