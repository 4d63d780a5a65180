package wire

import "github.com/google/uuid"

// IR is the top-level message.
type IR struct {
	UUID    uuid.UUID `cbor:"1,keyasint" json:"uuid" yaml:"uuid"`
	Version int       `cbor:"2,keyasint" json:"version" yaml:"version"`
	Modules []Module  `cbor:"3,keyasint,omitempty" json:"modules,omitempty" yaml:"modules,omitempty"`
}

// Module carries a module's scalar attributes and owned children. Symbols
// form a flat, order-independent sequence.
type Module struct {
	UUID          uuid.UUID     `cbor:"1,keyasint" json:"uuid" yaml:"uuid"`
	Name          string        `cbor:"2,keyasint" json:"name" yaml:"name"`
	BinaryPath    string        `cbor:"3,keyasint,omitempty" json:"binary_path,omitempty" yaml:"binary_path,omitempty"`
	PreferredAddr *uint64       `cbor:"4,keyasint,omitempty" json:"preferred_addr,omitempty" yaml:"preferred_addr,omitempty"`
	RebaseDelta   int64         `cbor:"5,keyasint,omitempty" json:"rebase_delta,omitempty" yaml:"rebase_delta,omitempty"`
	FileFormat    string        `cbor:"6,keyasint,omitempty" json:"file_format,omitempty" yaml:"file_format,omitempty"`
	ISA           string        `cbor:"7,keyasint,omitempty" json:"isa,omitempty" yaml:"isa,omitempty"`
	EntryPoint    *uuid.UUID    `cbor:"8,keyasint,omitempty" json:"entry_point,omitempty" yaml:"entry_point,omitempty"`
	Sections      []Section     `cbor:"9,keyasint,omitempty" json:"sections,omitempty" yaml:"sections,omitempty"`
	ProxyBlocks   []ProxyBlock  `cbor:"10,keyasint,omitempty" json:"proxy_blocks,omitempty" yaml:"proxy_blocks,omitempty"`
	Symbols       []Symbol      `cbor:"11,keyasint,omitempty" json:"symbols,omitempty" yaml:"symbols,omitempty"`
	ImageByteMap  *ImageByteMap `cbor:"12,keyasint,omitempty" json:"image_byte_map,omitempty" yaml:"image_byte_map,omitempty"`
}

// Section carries a section and its intervals.
type Section struct {
	UUID          uuid.UUID      `cbor:"1,keyasint" json:"uuid" yaml:"uuid"`
	Name          string         `cbor:"2,keyasint" json:"name" yaml:"name"`
	Flags         []string       `cbor:"3,keyasint,omitempty" json:"flags,omitempty" yaml:"flags,omitempty"`
	ByteIntervals []ByteInterval `cbor:"4,keyasint,omitempty" json:"byte_intervals,omitempty" yaml:"byte_intervals,omitempty"`
}

// ByteInterval carries an interval, its contents and everything positioned
// inside it.
type ByteInterval struct {
	UUID                uuid.UUID            `cbor:"1,keyasint" json:"uuid" yaml:"uuid"`
	Address             *uint64              `cbor:"2,keyasint,omitempty" json:"address,omitempty" yaml:"address,omitempty"`
	Size                uint64               `cbor:"3,keyasint" json:"size" yaml:"size"`
	Contents            Bytes                `cbor:"4,keyasint,omitempty" json:"contents,omitempty" yaml:"contents,omitempty"`
	Blocks              []Block              `cbor:"5,keyasint,omitempty" json:"blocks,omitempty" yaml:"blocks,omitempty"`
	SymbolicExpressions []SymbolicExpression `cbor:"6,keyasint,omitempty" json:"symbolic_expressions,omitempty" yaml:"symbolic_expressions,omitempty"`
}

// Block positions exactly one of Code or Data at an offset in its interval.
type Block struct {
	Offset uint64     `cbor:"1,keyasint" json:"offset" yaml:"offset"`
	Code   *CodeBlock `cbor:"2,keyasint,omitempty" json:"code,omitempty" yaml:"code,omitempty"`
	Data   *DataBlock `cbor:"3,keyasint,omitempty" json:"data,omitempty" yaml:"data,omitempty"`
}

// CodeBlock is a run of instructions.
type CodeBlock struct {
	UUID       uuid.UUID `cbor:"1,keyasint" json:"uuid" yaml:"uuid"`
	Size       uint64    `cbor:"2,keyasint" json:"size" yaml:"size"`
	DecodeMode uint64    `cbor:"3,keyasint,omitempty" json:"decode_mode,omitempty" yaml:"decode_mode,omitempty"`
}

// DataBlock is a run of data.
type DataBlock struct {
	UUID uuid.UUID `cbor:"1,keyasint" json:"uuid" yaml:"uuid"`
	Size uint64    `cbor:"2,keyasint" json:"size" yaml:"size"`
}

// ProxyBlock has identity only.
type ProxyBlock struct {
	UUID uuid.UUID `cbor:"1,keyasint" json:"uuid" yaml:"uuid"`
}

// Symbol carries at most one of Address or Referent.
type Symbol struct {
	UUID     uuid.UUID  `cbor:"1,keyasint" json:"uuid" yaml:"uuid"`
	Name     string     `cbor:"2,keyasint" json:"name" yaml:"name"`
	Address  *uint64    `cbor:"3,keyasint,omitempty" json:"address,omitempty" yaml:"address,omitempty"`
	Referent *uuid.UUID `cbor:"4,keyasint,omitempty" json:"referent,omitempty" yaml:"referent,omitempty"`
	AtEnd    bool       `cbor:"5,keyasint,omitempty" json:"at_end,omitempty" yaml:"at_end,omitempty"`
}

// SymbolicExpression refers to its symbols by identifier.
type SymbolicExpression struct {
	UUID    uuid.UUID   `cbor:"1,keyasint" json:"uuid" yaml:"uuid"`
	Offset  uint64      `cbor:"2,keyasint" json:"offset" yaml:"offset"`
	Form    string      `cbor:"3,keyasint" json:"form" yaml:"form"`
	Symbols []uuid.UUID `cbor:"4,keyasint" json:"symbols" yaml:"symbols"`
	Scale   int64       `cbor:"5,keyasint,omitempty" json:"scale,omitempty" yaml:"scale,omitempty"`
	Addend  int64       `cbor:"6,keyasint,omitempty" json:"addend,omitempty" yaml:"addend,omitempty"`
}

// ImageByteMap carries the loaded image. Contents are sparse: only written
// regions are stored.
type ImageByteMap struct {
	FileName    string   `cbor:"1,keyasint,omitempty" json:"file_name,omitempty" yaml:"file_name,omitempty"`
	BaseAddress *uint64  `cbor:"2,keyasint,omitempty" json:"base_address,omitempty" yaml:"base_address,omitempty"`
	EntryPoint  *uint64  `cbor:"3,keyasint,omitempty" json:"entry_point,omitempty" yaml:"entry_point,omitempty"`
	AddrMin     *uint64  `cbor:"4,keyasint,omitempty" json:"addr_min,omitempty" yaml:"addr_min,omitempty"`
	AddrMax     *uint64  `cbor:"5,keyasint,omitempty" json:"addr_max,omitempty" yaml:"addr_max,omitempty"`
	RebaseDelta int64    `cbor:"6,keyasint,omitempty" json:"rebase_delta,omitempty" yaml:"rebase_delta,omitempty"`
	Relocated   bool     `cbor:"7,keyasint,omitempty" json:"relocated,omitempty" yaml:"relocated,omitempty"`
	ByteOrder   string   `cbor:"8,keyasint,omitempty" json:"byte_order,omitempty" yaml:"byte_order,omitempty"`
	Regions     []Region `cbor:"9,keyasint,omitempty" json:"regions,omitempty" yaml:"regions,omitempty"`
}

// Region is a contiguous run of image bytes.
type Region struct {
	Address uint64 `cbor:"1,keyasint" json:"address" yaml:"address"`
	Data    Bytes  `cbor:"2,keyasint" json:"data" yaml:"data"`
}

// Addr returns a pointer to a, for optional address fields.
func Addr(a uint64) *uint64 {
	return &a
}

// ID returns a pointer to id, for optional reference fields.
func ID(id uuid.UUID) *uuid.UUID {
	return &id
}
