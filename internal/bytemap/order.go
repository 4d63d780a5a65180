package bytemap

import (
	"encoding/binary"
	"fmt"
)

// ByteOrder selects how multi-byte values are laid out in the image.
type ByteOrder uint8

const (
	// OrderUndefined marks an image whose order was never recorded.
	OrderUndefined ByteOrder = iota
	LittleEndian
	BigEndian
)

var nativeOrder = func() ByteOrder {
	var b [2]byte
	binary.NativeEndian.PutUint16(b[:], 1)
	if b[0] == 1 {
		return LittleEndian
	}
	return BigEndian
}()

// NativeOrder returns the byte order of the host.
func NativeOrder() ByteOrder {
	return nativeOrder
}

// Swapped reports whether values stored in order o must be reversed to be
// read natively. OrderUndefined is treated as native.
func (o ByteOrder) Swapped() bool {
	return o != OrderUndefined && o != nativeOrder
}

func (o ByteOrder) String() string {
	switch o {
	case OrderUndefined:
		return "undefined"
	case LittleEndian:
		return "little"
	case BigEndian:
		return "big"
	default:
		return fmt.Sprintf("ByteOrder(%d)", uint8(o))
	}
}

// ParseByteOrder is the inverse of ByteOrder.String.
func ParseByteOrder(s string) (ByteOrder, error) {
	switch s {
	case "undefined", "":
		return OrderUndefined, nil
	case "little":
		return LittleEndian, nil
	case "big":
		return BigEndian, nil
	default:
		return OrderUndefined, fmt.Errorf("unknown byte order %q", s)
	}
}
