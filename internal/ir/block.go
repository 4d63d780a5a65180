package ir

import "github.com/rina-forks/gtirb/internal/addr"

// CodeBlock is a run of instructions at an offset within a byte interval.
type CodeBlock struct {
	node
	interval   *ByteInterval
	offset     uint64
	size       uint64
	decodeMode uint64
}

// NewCodeBlock allocates a detached code block.
func NewCodeBlock(ctx *Context, size uint64) *CodeBlock {
	b := &CodeBlock{size: size}
	ctx.allocate(b)
	return b
}

// Kind returns KindCodeBlock.
func (b *CodeBlock) Kind() Kind { return KindCodeBlock }

// ByteInterval returns the owning interval, or nil.
func (b *CodeBlock) ByteInterval() *ByteInterval { return b.interval }

// Module returns the module the block is indexed in, or nil.
func (b *CodeBlock) Module() *Module { return indexOwner(b) }

// Offset is the position of the block within its interval.
func (b *CodeBlock) Offset() uint64 { return b.offset }

// Size is the number of bytes the block covers.
func (b *CodeBlock) Size() uint64 { return b.size }

// DecodeMode distinguishes instruction sets sharing an ISA, such as ARM
// and Thumb.
func (b *CodeBlock) DecodeMode() uint64 { return b.decodeMode }

// SetDecodeMode sets the ISA-specific decode mode, such as Thumb on ARM.
func (b *CodeBlock) SetDecodeMode(m uint64) { b.decodeMode = m }

// Address returns the interval address plus the offset, or addr.Bad when
// the block is detached or its interval has no address.
func (b *CodeBlock) Address() addr.Addr {
	return blockAddress(b.interval, b.offset)
}

// SetOffset repositions the block within its interval.
func (b *CodeBlock) SetOffset(off uint64) {
	if off == b.offset {
		return
	}
	mutateIndices(b, func() { b.offset = off })
}

// SetSize resizes the block, re-keying symbols placed at its end.
func (b *CodeBlock) SetSize(size uint64) {
	if size == b.size {
		return
	}
	mutateIndices(b, func() { b.size = size })
}

// DataBlock is a run of data at an offset within a byte interval.
type DataBlock struct {
	node
	interval *ByteInterval
	offset   uint64
	size     uint64
}

// NewDataBlock allocates a detached data block.
func NewDataBlock(ctx *Context, size uint64) *DataBlock {
	b := &DataBlock{size: size}
	ctx.allocate(b)
	return b
}

// Kind returns KindDataBlock.
func (b *DataBlock) Kind() Kind { return KindDataBlock }

// ByteInterval returns the owning interval, or nil.
func (b *DataBlock) ByteInterval() *ByteInterval { return b.interval }

// Module returns the module the block is indexed in, or nil.
func (b *DataBlock) Module() *Module { return indexOwner(b) }

// Offset is the position of the block within its interval.
func (b *DataBlock) Offset() uint64 { return b.offset }

// Size is the number of bytes the block covers.
func (b *DataBlock) Size() uint64 { return b.size }

// Address returns the interval address plus the offset, or addr.Bad.
func (b *DataBlock) Address() addr.Addr {
	return blockAddress(b.interval, b.offset)
}

// SetOffset repositions the block within its interval.
func (b *DataBlock) SetOffset(off uint64) {
	if off == b.offset {
		return
	}
	mutateIndices(b, func() { b.offset = off })
}

// SetSize resizes the block, re-keying symbols placed at its end.
func (b *DataBlock) SetSize(size uint64) {
	if size == b.size {
		return
	}
	mutateIndices(b, func() { b.size = size })
}

func blockAddress(bi *ByteInterval, off uint64) addr.Addr {
	if bi == nil {
		return addr.Bad
	}
	return bi.addr.AddUnsigned(off)
}

// ProxyBlock stands in for code outside the module, such as an imported
// function, so symbols and edges can refer to it.
type ProxyBlock struct {
	node
	module *Module
}

// NewProxyBlock allocates a detached proxy block.
func NewProxyBlock(ctx *Context) *ProxyBlock {
	p := &ProxyBlock{}
	ctx.allocate(p)
	return p
}

// Kind returns KindProxyBlock.
func (p *ProxyBlock) Kind() Kind { return KindProxyBlock }

// Module returns the owning module, or nil.
func (p *ProxyBlock) Module() *Module { return p.module }

// Block is a symbol referent: a CodeBlock, DataBlock or ProxyBlock.
type Block interface {
	Node
	isBlock()
}

func (*CodeBlock) isBlock()  {}
func (*DataBlock) isBlock()  {}
func (*ProxyBlock) isBlock() {}
