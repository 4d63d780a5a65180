package ir

import (
	"maps"
	"slices"

	"github.com/rina-forks/gtirb/internal/addr"
)

// ByteInterval is a contiguous run of bytes inside a section. It may or may
// not have an address; blocks and symbolic expressions inside it are
// positioned by offset.
type ByteInterval struct {
	node
	section    *Section
	addr       addr.Addr
	size       uint64
	contents   []byte
	codeBlocks []*CodeBlock
	dataBlocks []*DataBlock
	symExprs   map[uint64]*SymbolicExpression
}

// NewByteInterval allocates a detached interval of the given size. Pass
// addr.Bad for an interval without an address.
func NewByteInterval(ctx *Context, a addr.Addr, size uint64) *ByteInterval {
	bi := newByteInterval(a, size)
	ctx.allocate(bi)
	return bi
}

func newByteInterval(a addr.Addr, size uint64) *ByteInterval {
	return &ByteInterval{
		addr:     a,
		size:     size,
		symExprs: make(map[uint64]*SymbolicExpression),
	}
}

// Kind returns KindByteInterval.
func (bi *ByteInterval) Kind() Kind { return KindByteInterval }

// Section returns the owning section, or nil.
func (bi *ByteInterval) Section() *Section { return bi.section }

// Module returns the module the interval is indexed in, or nil.
func (bi *ByteInterval) Module() *Module { return indexOwner(bi) }

// Address returns the interval's address, or addr.Bad.
func (bi *ByteInterval) Address() addr.Addr { return bi.addr }

// Size is the extent of the interval, which may exceed its contents.
func (bi *ByteInterval) Size() uint64 { return bi.size }

// Extent returns [Address, Address+Size).
func (bi *ByteInterval) Extent() addr.Range {
	return addr.Range{Start: bi.addr, Size: bi.size}
}

// SetAddress moves the interval, re-keying everything positioned inside it.
func (bi *ByteInterval) SetAddress(a addr.Addr) {
	if a == bi.addr {
		return
	}
	mutateIndices(bi, func() { bi.addr = a })
}

// SetSize resizes the interval. Shrinking below the initialized contents
// truncates them; growing never touches them.
func (bi *ByteInterval) SetSize(size uint64) {
	if size == bi.size {
		return
	}
	mutateIndices(bi, func() {
		bi.size = size
		if uint64(len(bi.contents)) > size {
			bi.contents = bi.contents[:size]
		}
	})
}

// Contents returns a copy of the initialized bytes.
func (bi *ByteInterval) Contents() []byte {
	return slices.Clone(bi.contents)
}

// SetContents replaces the initialized bytes, growing the interval if
// data is longer than its size.
func (bi *ByteInterval) SetContents(data []byte) {
	if n := uint64(len(data)); n > bi.size {
		bi.SetSize(n)
	}
	bi.contents = slices.Clone(data)
}

// CodeBlocks returns the owned code blocks in insertion order.
func (bi *ByteInterval) CodeBlocks() []*CodeBlock {
	return slices.Clone(bi.codeBlocks)
}

// DataBlocks returns the owned data blocks in insertion order.
func (bi *ByteInterval) DataBlocks() []*DataBlock {
	return slices.Clone(bi.dataBlocks)
}

// AddCodeBlock places b at offset inside bi, detaching it from its previous
// interval.
func (bi *ByteInterval) AddCodeBlock(offset uint64, b *CodeBlock) {
	sameContext(bi, b)
	if b.interval == bi {
		b.SetOffset(offset)
		return
	}
	from := indexOwner(b)
	if b.interval != nil {
		b.interval.detachCodeBlock(b)
	}
	b.interval = bi
	b.offset = offset
	bi.codeBlocks = append(bi.codeBlocks, b)
	addToIndices(b)
	from.dropLostEntryPoint()
}

// RemoveCodeBlock detaches b. It reports false if bi does not own b.
func (bi *ByteInterval) RemoveCodeBlock(b *CodeBlock) bool {
	if b.interval != bi {
		return false
	}
	from := indexOwner(b)
	bi.detachCodeBlock(b)
	from.dropLostEntryPoint()
	return true
}

func (bi *ByteInterval) detachCodeBlock(b *CodeBlock) {
	removeFromIndices(b)
	bi.codeBlocks = slices.DeleteFunc(bi.codeBlocks, func(o *CodeBlock) bool { return o == b })
	b.interval = nil
}

// AddDataBlock places b at offset inside bi, detaching it from its previous
// interval.
func (bi *ByteInterval) AddDataBlock(offset uint64, b *DataBlock) {
	sameContext(bi, b)
	if b.interval == bi {
		b.SetOffset(offset)
		return
	}
	if b.interval != nil {
		b.interval.RemoveDataBlock(b)
	}
	b.interval = bi
	b.offset = offset
	bi.dataBlocks = append(bi.dataBlocks, b)
	addToIndices(b)
}

// RemoveDataBlock detaches b. It reports false if bi does not own b.
func (bi *ByteInterval) RemoveDataBlock(b *DataBlock) bool {
	if b.interval != bi {
		return false
	}
	removeFromIndices(b)
	bi.dataBlocks = slices.DeleteFunc(bi.dataBlocks, func(o *DataBlock) bool { return o == b })
	b.interval = nil
	return true
}

// SymbolicExpressionAt returns the expression at offset, or nil.
func (bi *ByteInterval) SymbolicExpressionAt(offset uint64) *SymbolicExpression {
	return bi.symExprs[offset]
}

// SymbolicExpressions returns the owned expressions ordered by offset.
func (bi *ByteInterval) SymbolicExpressions() []*SymbolicExpression {
	return bi.sortedSymExprs()
}

func (bi *ByteInterval) sortedSymExprs() []*SymbolicExpression {
	out := make([]*SymbolicExpression, 0, len(bi.symExprs))
	for _, off := range slices.Sorted(maps.Keys(bi.symExprs)) {
		out = append(out, bi.symExprs[off])
	}
	return out
}

// SetSymbolicExpression places se at offset, replacing and detaching any
// expression already there.
func (bi *ByteInterval) SetSymbolicExpression(offset uint64, se *SymbolicExpression) {
	sameContext(bi, se)
	if se.interval == bi && se.offset == offset {
		return
	}
	if old := bi.symExprs[offset]; old != nil {
		bi.RemoveSymbolicExpression(old)
	}
	if se.interval != nil {
		se.interval.RemoveSymbolicExpression(se)
	}
	se.interval = bi
	se.offset = offset
	bi.symExprs[offset] = se
	addToIndices(se)
}

// RemoveSymbolicExpression detaches se. It reports false if bi does not
// own se.
func (bi *ByteInterval) RemoveSymbolicExpression(se *SymbolicExpression) bool {
	if se.interval != bi {
		return false
	}
	removeFromIndices(se)
	delete(bi.symExprs, se.offset)
	se.interval = nil
	return true
}
