package bytemap

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
	"slices"

	"github.com/rina-forks/gtirb/internal/addr"
)

// Fixed is the set of fixed-size plain-data kinds supported by typed access.
type Fixed interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 |
		~float32 | ~float64
}

// encode returns the bytes of v in the image order, reversing the native
// representation only when the orders differ.
func encode[T Fixed](m *ImageByteMap, v T) []byte {
	buf, err := binary.Append(nil, binary.NativeEndian, v)
	if err != nil {
		// Fixed kinds always have a binary size.
		panic(fmt.Sprintf("bytemap: encode %T: %v", v, err))
	}
	if m.order.Swapped() && len(buf) > 1 {
		slices.Reverse(buf)
		m.swaps++
	}
	return buf
}

func decode[T Fixed](m *ImageByteMap, buf []byte) T {
	var v T
	if m.order.Swapped() && len(buf) > 1 {
		slices.Reverse(buf)
		m.swaps++
	}
	if _, err := binary.Decode(buf, binary.NativeEndian, &v); err != nil {
		panic(fmt.Sprintf("bytemap: decode %T: %v", v, err))
	}
	return v
}

func sizeOf[T Fixed]() uint64 {
	var v T
	return uint64(binary.Size(v))
}

// SetData stores v at a, converting from native order to the image order.
func SetData[T Fixed](m *ImageByteMap, a addr.Addr, v T) error {
	if err := m.checkRange("set data", a, sizeOf[T]()); err != nil {
		return err
	}
	m.write(a, encode(m, v))
	return nil
}

// GetData loads a T from a, converting from the image order to native order.
func GetData[T Fixed](m *ImageByteMap, a addr.Addr) (T, error) {
	size := sizeOf[T]()
	if err := m.checkRange("get data", a, size); err != nil {
		var zero T
		return zero, err
	}
	buf := make([]byte, size)
	m.read(a, buf)
	return decode[T](m, buf), nil
}

// SetArray stores vs contiguously from a. Element i lands at
// a + i*sizeof(T) and is converted independently.
func SetArray[T Fixed](m *ImageByteMap, a addr.Addr, vs []T) error {
	size := sizeOf[T]()
	if err := m.checkRange("set array", a, size*uint64(len(vs))); err != nil {
		return err
	}
	for i, v := range vs {
		m.write(a.AddUnsigned(uint64(i)*size), encode(m, v))
	}
	return nil
}

// GetArray loads n contiguous T values starting at a. A negative n, or
// one whose byte length overflows, is a range error.
func GetArray[T Fixed](m *ImageByteMap, a addr.Addr, n int) ([]T, error) {
	size := sizeOf[T]()
	count, ok := arrayBytes(size, n)
	if !ok {
		return nil, newRangeError("get array", a, math.MaxUint64, m.minAddr, m.maxAddr)
	}
	if err := m.checkRange("get array", a, count); err != nil {
		return nil, err
	}
	out := make([]T, n)
	buf := make([]byte, size)
	for i := range out {
		m.read(a.AddUnsigned(uint64(i)*size), buf)
		out[i] = decode[T](m, buf)
	}
	return out, nil
}

// arrayBytes returns n*size, or false when n is negative or the product
// does not fit in a uint64.
func arrayBytes(size uint64, n int) (uint64, bool) {
	if n < 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(size, uint64(n))
	return lo, hi == 0
}
