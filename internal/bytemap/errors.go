package bytemap

import (
	"errors"
	"fmt"

	"github.com/rina-forks/gtirb/internal/addr"
)

// ErrRange is the sentinel matched by every *RangeError.
var ErrRange = errors.New("address out of range")

// RangeError reports an access outside the image's [min, max] range.
type RangeError struct {
	// Op names the accessor that failed.
	Op string

	// Addr and Count describe the rejected access.
	Addr  addr.Addr
	Count uint64

	// Min and Max are the configured bounds (addr.Bad when unset).
	Min addr.Addr
	Max addr.Addr
}

func newRangeError(op string, a addr.Addr, count uint64, lo, hi addr.Addr) *RangeError {
	return &RangeError{Op: op, Addr: a, Count: count, Min: lo, Max: hi}
}

// Error implements the error interface.
func (e *RangeError) Error() string {
	if !e.Min.Valid() {
		return fmt.Sprintf("%s: %s (addr=%s, count=%d, no range set)", e.Op, ErrRange, e.Addr, e.Count)
	}
	return fmt.Sprintf("%s: %s (addr=%s, count=%d, range=[%s, %s])", e.Op, ErrRange, e.Addr, e.Count, e.Min, e.Max)
}

// Unwrap lets errors.Is match ErrRange.
func (e *RangeError) Unwrap() error {
	return ErrRange
}

// IsRangeError returns true if err is or wraps a *RangeError.
func IsRangeError(err error) bool {
	var re *RangeError
	return errors.As(err, &re)
}
