// Package addr provides the address value type shared by every package that
// talks about locations in a loaded binary.
//
// Addr is a plain uint64 so it is comparable, hashable and usable as a map
// key. The all-ones value is reserved as Bad ("no address"). Offset
// arithmetic wraps modulo 2^64; Bad is sticky and never produced by wrapping
// from a valid operand unless the result lands exactly on it.
package addr

import "fmt"

// Addr is a 64-bit memory address.
type Addr uint64

// Bad is the sentinel meaning "no address".
const Bad Addr = ^Addr(0)

// Valid reports whether a is not the Bad sentinel.
func (a Addr) Valid() bool {
	return a != Bad
}

// Add returns a+off, wrapping on overflow. Bad stays Bad.
func (a Addr) Add(off int64) Addr {
	if a == Bad {
		return Bad
	}
	return Addr(uint64(a) + uint64(off))
}

// AddUnsigned returns a+off, wrapping on overflow. Bad stays Bad.
func (a Addr) AddUnsigned(off uint64) Addr {
	if a == Bad {
		return Bad
	}
	return Addr(uint64(a) + off)
}

// Sub returns a-off, wrapping on underflow. Bad stays Bad.
func (a Addr) Sub(off int64) Addr {
	if a == Bad {
		return Bad
	}
	return Addr(uint64(a) - uint64(off))
}

// Diff returns the signed distance a-b.
func (a Addr) Diff(b Addr) int64 {
	return int64(uint64(a) - uint64(b))
}

// String prints the address as lower-case hexadecimal.
func (a Addr) String() string {
	if a == Bad {
		return "<bad>"
	}
	return fmt.Sprintf("0x%x", uint64(a))
}

// Range is a half-open address range [Start, Start+Size).
type Range struct {
	Start Addr
	Size  uint64
}

// End returns the first address past the range.
func (r Range) End() Addr {
	return r.Start.AddUnsigned(r.Size)
}

// Contains reports whether a lies inside the range.
func (r Range) Contains(a Addr) bool {
	if !r.Start.Valid() || !a.Valid() {
		return false
	}
	return a >= r.Start && uint64(a-r.Start) < r.Size
}

// Overlaps reports whether the half-open ranges r and o share any address.
func (r Range) Overlaps(o Range) bool {
	if !r.Start.Valid() || !o.Start.Valid() || r.Size == 0 || o.Size == 0 {
		return false
	}
	return r.Start < o.End() && o.Start < r.End()
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start, r.End())
}
