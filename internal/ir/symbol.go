package ir

import "github.com/rina-forks/gtirb/internal/addr"

// Symbol names an address or a block. Its payload is either nothing, an
// explicit address, or a referent block; setting one clears the other.
type Symbol struct {
	node
	module   *Module
	name     string
	addr     addr.Addr
	referent Block
	atEnd    bool
}

// NewSymbol allocates a detached symbol with no payload.
func NewSymbol(ctx *Context, name string) *Symbol {
	s := &Symbol{name: name, addr: addr.Bad}
	ctx.allocate(s)
	return s
}

// NewSymbolAt allocates a detached symbol naming a.
func NewSymbolAt(ctx *Context, name string, a addr.Addr) *Symbol {
	s := NewSymbol(ctx, name)
	s.addr = a
	return s
}

// NewSymbolFor allocates a detached symbol referring to b.
func NewSymbolFor(ctx *Context, name string, b Block) *Symbol {
	s := NewSymbol(ctx, name)
	sameContext(s, b)
	s.referent = b
	return s
}

// Kind returns KindSymbol.
func (s *Symbol) Kind() Kind { return KindSymbol }

// Module returns the owning module, or nil.
func (s *Symbol) Module() *Module { return s.module }

// Name is the symbol name as written; lookups compare NFC forms.
func (s *Symbol) Name() string { return s.name }

// SetName renames the symbol and moves it in the name index.
func (s *Symbol) SetName(name string) {
	if name == s.name {
		return
	}
	mutateIndices(s, func() { s.name = name })
}

// Address returns the explicit address, or the address of the referent
// block (its end when AtEnd is set). It is addr.Bad when neither exists.
func (s *Symbol) Address() addr.Addr {
	switch r := s.referent.(type) {
	case nil:
		return s.addr
	case *CodeBlock:
		return referentAddr(r.Address(), r.size, s.atEnd)
	case *DataBlock:
		return referentAddr(r.Address(), r.size, s.atEnd)
	}
	return addr.Bad
}

// HasAddress reports whether the payload is an explicit address.
func (s *Symbol) HasAddress() bool {
	return s.referent == nil && s.addr.Valid()
}

// SetAddress makes a the payload, clearing any referent.
func (s *Symbol) SetAddress(a addr.Addr) {
	mutateIndices(s, func() {
		s.addr = a
		s.referent = nil
	})
}

// Referent returns the referent block, or nil.
func (s *Symbol) Referent() Block { return s.referent }

// SetReferent makes b the payload, clearing any explicit address. A nil b
// leaves the symbol without payload.
func (s *Symbol) SetReferent(b Block) {
	if b != nil {
		sameContext(s, b)
	}
	mutateIndices(s, func() {
		s.referent = b
		s.addr = addr.Bad
	})
}

// AtEnd reports whether the symbol refers to the end of its referent.
func (s *Symbol) AtEnd() bool { return s.atEnd }

// SetAtEnd places the symbol at the end of its referent instead of the start.
func (s *Symbol) SetAtEnd(atEnd bool) {
	if atEnd == s.atEnd {
		return
	}
	mutateIndices(s, func() { s.atEnd = atEnd })
}
