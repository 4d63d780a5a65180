// Package bytemap implements the byte image store: sparse storage for the
// loaded contents of a binary over an inclusive [min, max] address range,
// with endian-aware typed access.
//
// Every accessor validates its address arguments against the configured
// range and fails with a *RangeError instead of truncating. The range is
// never extended implicitly; SetAddrMinMax is the only way to grow it.
//
// An ImageByteMap is not safe for concurrent use. Callers serialize access
// the same way they serialize access to the owning Module.
package bytemap

import (
	"sort"

	"github.com/rina-forks/gtirb/internal/addr"
)

// pageSize is the granularity of the sparse backing store.
const pageSize = 4096

type page [pageSize]byte

// ImageByteMap holds the loaded raw image data for a module.
type ImageByteMap struct {
	fileName    string
	baseAddr    addr.Addr
	entryPoint  addr.Addr
	minAddr     addr.Addr
	maxAddr     addr.Addr
	rebaseDelta int64
	relocated   bool
	order       ByteOrder

	pages map[addr.Addr]*page

	// swaps counts element byte-order conversions; zero when the store
	// order is native.
	swaps int
}

// New returns an empty image with no address range and native byte order.
func New() *ImageByteMap {
	return &ImageByteMap{
		baseAddr:   addr.Bad,
		entryPoint: addr.Bad,
		minAddr:    addr.Bad,
		maxAddr:    addr.Bad,
		order:      NativeOrder(),
		pages:      make(map[addr.Addr]*page),
	}
}

// FileName returns the loaded file name and path.
func (m *ImageByteMap) FileName() string { return m.fileName }

// SetFileName sets the loaded file name and path.
func (m *ImageByteMap) SetFileName(name string) { m.fileName = name }

// BaseAddress returns the base address of the loaded file.
func (m *ImageByteMap) BaseAddress() addr.Addr { return m.baseAddr }

// SetBaseAddress sets the base address of the loaded file.
func (m *ImageByteMap) SetBaseAddress(a addr.Addr) { m.baseAddr = a }

// EntryPointAddress returns the entry point of the loaded file.
func (m *ImageByteMap) EntryPointAddress() addr.Addr { return m.entryPoint }

// SetEntryPointAddress sets the entry point of the loaded file.
func (m *ImageByteMap) SetEntryPointAddress(a addr.Addr) { m.entryPoint = a }

// RebaseDelta returns the relocation delta applied by the loader.
func (m *ImageByteMap) RebaseDelta() int64 { return m.rebaseDelta }

// SetRebaseDelta sets the relocation delta.
func (m *ImageByteMap) SetRebaseDelta(d int64) { m.rebaseDelta = d }

// IsRelocated reports whether the loaded image has been relocated.
func (m *ImageByteMap) IsRelocated() bool { return m.relocated }

// SetRelocated marks the image as already relocated, which is useful for
// loaders that read from sources providing relocated content.
func (m *ImageByteMap) SetRelocated() { m.relocated = true }

// ByteOrder returns the order used for typed access.
func (m *ImageByteMap) ByteOrder() ByteOrder { return m.order }

// SetByteOrder sets the order used for typed access.
func (m *ImageByteMap) SetByteOrder(o ByteOrder) { m.order = o }

// AddrMinMax returns the inclusive address range. Both bounds are addr.Bad
// when no range is set.
func (m *ImageByteMap) AddrMinMax() (addr.Addr, addr.Addr) {
	return m.minAddr, m.maxAddr
}

// SetAddrMinMax sets the inclusive address range. An inverted or invalid
// pair leaves the range unset (both bounds addr.Bad) and returns false.
func (m *ImageByteMap) SetAddrMinMax(minAddr, maxAddr addr.Addr) bool {
	if !minAddr.Valid() || !maxAddr.Valid() || minAddr > maxAddr {
		m.minAddr, m.maxAddr = addr.Bad, addr.Bad
		return false
	}
	m.minAddr, m.maxAddr = minAddr, maxAddr
	return true
}

// HasRange reports whether a valid range is configured.
func (m *ImageByteMap) HasRange() bool {
	return m.minAddr.Valid() && m.maxAddr.Valid()
}

func (m *ImageByteMap) checkRange(op string, a addr.Addr, count uint64) error {
	if !m.HasRange() || !a.Valid() || a < m.minAddr || a > m.maxAddr {
		return newRangeError(op, a, count, m.minAddr, m.maxAddr)
	}
	if count > 0 && count-1 > uint64(m.maxAddr-a) {
		return newRangeError(op, a, count, m.minAddr, m.maxAddr)
	}
	return nil
}

// SetBytes writes data starting at a without any byte-order conversion.
func (m *ImageByteMap) SetBytes(a addr.Addr, data []byte) error {
	if err := m.checkRange("set bytes", a, uint64(len(data))); err != nil {
		return err
	}
	m.write(a, data)
	return nil
}

// SetFill writes count copies of value starting at a.
func (m *ImageByteMap) SetFill(a addr.Addr, count uint64, value byte) error {
	if err := m.checkRange("fill", a, count); err != nil {
		return err
	}
	for count > 0 {
		p, off := m.pageFor(a, true)
		n := min(uint64(pageSize-off), count)
		for i := uint64(0); i < n; i++ {
			p[off+int(i)] = value
		}
		a = a.AddUnsigned(n)
		count -= n
	}
	return nil
}

// GetBytes returns a copy of the count bytes starting at a. Bytes that were
// never written read as zero.
func (m *ImageByteMap) GetBytes(a addr.Addr, count uint64) ([]byte, error) {
	if err := m.checkRange("get bytes", a, count); err != nil {
		return nil, err
	}
	out := make([]byte, count)
	m.read(a, out)
	return out, nil
}

// Extent is anything that occupies an address range, such as a code or
// data block.
type Extent interface {
	Address() addr.Addr
	Size() uint64
}

// Bytes returns the bytes covered by obj.
func (m *ImageByteMap) Bytes(obj Extent) ([]byte, error) {
	return m.GetBytes(obj.Address(), obj.Size())
}

func (m *ImageByteMap) pageFor(a addr.Addr, create bool) (*page, int) {
	base := a &^ (pageSize - 1)
	p := m.pages[base]
	if p == nil && create {
		p = new(page)
		m.pages[base] = p
	}
	return p, int(a - base)
}

func (m *ImageByteMap) write(a addr.Addr, data []byte) {
	for len(data) > 0 {
		p, off := m.pageFor(a, true)
		n := copy(p[off:], data)
		data = data[n:]
		a = a.AddUnsigned(uint64(n))
	}
}

func (m *ImageByteMap) read(a addr.Addr, out []byte) {
	for len(out) > 0 {
		p, off := m.pageFor(a, false)
		n := min(pageSize-off, len(out))
		if p != nil {
			copy(out[:n], p[off:off+n])
		}
		out = out[n:]
		a = a.AddUnsigned(uint64(n))
	}
}

// Region is a contiguous run of stored bytes.
type Region struct {
	Addr addr.Addr
	Data []byte
}

// Regions returns the written extents of the image in address order,
// clipped to the configured range. Adjacent pages are merged.
func (m *ImageByteMap) Regions() []Region {
	if !m.HasRange() || len(m.pages) == 0 {
		return nil
	}
	bases := make([]addr.Addr, 0, len(m.pages))
	for base := range m.pages {
		bases = append(bases, base)
	}
	sort.Slice(bases, func(i, j int) bool { return bases[i] < bases[j] })

	var regions []Region
	for _, base := range bases {
		lo, hi := base, base.AddUnsigned(pageSize-1)
		lo = max(lo, m.minAddr)
		hi = min(hi, m.maxAddr)
		if lo > hi {
			continue
		}
		p := m.pages[base]
		chunk := p[lo-base : hi-base+1]
		if n := len(regions); n > 0 {
			last := &regions[n-1]
			if last.Addr.AddUnsigned(uint64(len(last.Data))) == lo {
				last.Data = append(last.Data, chunk...)
				continue
			}
		}
		regions = append(regions, Region{Addr: lo, Data: append([]byte(nil), chunk...)})
	}
	return regions
}
