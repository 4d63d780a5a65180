package ir

import (
	"fmt"
	"slices"

	"github.com/rina-forks/gtirb/internal/addr"
)

// SectionFlag is a property of a section.
type SectionFlag uint8

const (
	SectionUndefined SectionFlag = iota
	SectionReadable
	SectionWritable
	SectionExecutable
	SectionLoaded
	SectionInitialized
	SectionThreadLocal
)

var sectionFlagNames = []string{
	SectionUndefined:   "Undefined",
	SectionReadable:    "Readable",
	SectionWritable:    "Writable",
	SectionExecutable:  "Executable",
	SectionLoaded:      "Loaded",
	SectionInitialized: "Initialized",
	SectionThreadLocal: "ThreadLocal",
}

func (f SectionFlag) String() string {
	if int(f) < len(sectionFlagNames) {
		return sectionFlagNames[f]
	}
	return fmt.Sprintf("SectionFlag(%d)", uint8(f))
}

// ParseSectionFlag converts a flag name back to a SectionFlag.
func ParseSectionFlag(s string) (SectionFlag, error) {
	if i := slices.Index(sectionFlagNames, s); i >= 0 {
		return SectionFlag(i), nil
	}
	return 0, fmt.Errorf("unknown section flag %q", s)
}

// Section is a named region of a module made of byte intervals.
type Section struct {
	node
	module    *Module
	name      string
	flags     []SectionFlag
	intervals []*ByteInterval
}

// NewSection allocates a detached section in ctx.
func NewSection(ctx *Context, name string) *Section {
	s := &Section{name: name}
	ctx.allocate(s)
	return s
}

// Kind returns KindSection.
func (s *Section) Kind() Kind { return KindSection }

// Module returns the owning module, or nil.
func (s *Section) Module() *Module { return s.module }

// Name is the section name, such as ".text".
func (s *Section) Name() string { return s.name }

// SetName renames the section.
func (s *Section) SetName(name string) { s.name = name }

// Flags returns the section's flags in ascending order.
func (s *Section) Flags() []SectionFlag {
	return slices.Clone(s.flags)
}

// IsFlagSet reports whether f is set.
func (s *Section) IsFlagSet(f SectionFlag) bool {
	_, found := slices.BinarySearch(s.flags, f)
	return found
}

// AddFlags sets each of fs.
func (s *Section) AddFlags(fs ...SectionFlag) {
	for _, f := range fs {
		if i, found := slices.BinarySearch(s.flags, f); !found {
			s.flags = slices.Insert(s.flags, i, f)
		}
	}
}

// RemoveFlags clears each of fs.
func (s *Section) RemoveFlags(fs ...SectionFlag) {
	for _, f := range fs {
		if i, found := slices.BinarySearch(s.flags, f); found {
			s.flags = slices.Delete(s.flags, i, i+1)
		}
	}
}

// ByteIntervals returns the owned intervals in insertion order.
func (s *Section) ByteIntervals() []*ByteInterval {
	return slices.Clone(s.intervals)
}

// Address returns the lowest address of the section. It is addr.Bad unless
// the section owns at least one interval and every interval is addressed.
func (s *Section) Address() addr.Addr {
	r, ok := s.Extent()
	if !ok {
		return addr.Bad
	}
	return r.Start
}

// Size returns the distance from the lowest to the highest address the
// section's intervals cover, or 0 when the address is undefined.
func (s *Section) Size() uint64 {
	r, _ := s.Extent()
	return r.Size
}

// Extent returns the address range covered by the section.
func (s *Section) Extent() (addr.Range, bool) {
	if len(s.intervals) == 0 {
		return addr.Range{Start: addr.Bad}, false
	}
	lo, hi := addr.Bad, addr.Addr(0)
	for _, bi := range s.intervals {
		if !bi.addr.Valid() {
			return addr.Range{Start: addr.Bad}, false
		}
		lo = min(lo, bi.addr)
		hi = max(hi, bi.addr.AddUnsigned(bi.size))
	}
	return addr.Range{Start: lo, Size: uint64(hi - lo)}, true
}

// AddByteInterval moves bi into s, detaching it from its previous section.
func (s *Section) AddByteInterval(bi *ByteInterval) {
	sameContext(s, bi)
	if bi.section == s {
		return
	}
	from := indexOwner(bi)
	if bi.section != nil {
		bi.section.detachByteInterval(bi)
	}
	mutateIndices(s, func() {
		bi.section = s
		s.intervals = append(s.intervals, bi)
	})
	addToIndices(bi)
	from.dropLostEntryPoint()
}

// RemoveByteInterval detaches bi from s. It reports false if s does not
// own bi.
func (s *Section) RemoveByteInterval(bi *ByteInterval) bool {
	if bi.section != s {
		return false
	}
	from := indexOwner(bi)
	s.detachByteInterval(bi)
	from.dropLostEntryPoint()
	return true
}

func (s *Section) detachByteInterval(bi *ByteInterval) {
	removeFromIndices(bi)
	mutateIndices(s, func() {
		s.intervals = slices.DeleteFunc(s.intervals, func(o *ByteInterval) bool { return o == bi })
		bi.section = nil
	})
}

// FindByteIntervalsOn returns the intervals of s whose extent contains a.
func (s *Section) FindByteIntervalsOn(a addr.Addr) []*ByteInterval {
	var out []*ByteInterval
	for _, bi := range s.intervals {
		if bi.Extent().Contains(a) {
			out = append(out, bi)
		}
	}
	return out
}
