// Package message implements the MUSCLE typed-message codec: a
// platform-neutral, little-endian binary serialization format for
// heterogeneous, multi-valued, named-field records ("Messages"),
// grounded on jfriesne/muscle's lang/python3/message.py.
package message

import (
	"fmt"
	"io"
)

// TypeCode is a 32-bit tag identifying a field's payload kind. On the
// wire it is a little-endian u32; for human readability it is
// conventionally chosen so that its four bytes, read big-endian, spell
// an ASCII mnemonic (e.g. "BOOL").
type TypeCode uint32

// The fixed registry of well-known type codes (spec.md §3.1).
const (
	TypeAny       TypeCode = 0x414e5954 // 'ANYT' wildcard; query only, never on the wire
	TypeBool      TypeCode = 0x424f4f4c // 'BOOL'
	TypeInt8      TypeCode = 0x42595445 // 'BYTE'
	TypeInt16     TypeCode = 0x53485254 // 'SHRT'
	TypeInt32     TypeCode = 0x4c4f4e47 // 'LONG'
	TypeInt64     TypeCode = 0x4c4c4e47 // 'LLNG'
	TypeFloat32   TypeCode = 0x464c4f54 // 'FLOT'
	TypeFloat64   TypeCode = 0x44424c45 // 'DBLE'
	TypePoint     TypeCode = 0x42504e54 // 'BPNT'
	TypeRect      TypeCode = 0x52454354 // 'RECT'
	TypeString    TypeCode = 0x43535452 // 'CSTR'
	TypeMessage   TypeCode = 0x4d534747 // 'MSGG'
	TypeObject    TypeCode = 0x4f505452 // 'OPTR'
	TypeRaw       TypeCode = 0x52415754 // 'RAWT'
	TypeBitChord  TypeCode = 0x42544348 // 'BTCH'
	TypePointer   TypeCode = 0x504e5452 // 'PNTR' — never transmitted; see ErrPointerType
)

// ProtocolVersion is the 'PM00' magic written as the first four bytes
// of every flattened Message.
const ProtocolVersion uint32 = 0x504d3030 // 'PM00'

// String renders a TypeCode as its four-character ASCII mnemonic when
// every byte is printable, falling back to a hex dump otherwise —
// mirrors GetHumanReadableTypeString in the Python reference.
func (t TypeCode) String() string {
	b := [4]byte{byte(t >> 24), byte(t >> 16), byte(t >> 8), byte(t)}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return fmt.Sprintf("0x%08x", uint32(t))
		}
	}
	return string(b[:])
}

// Point is a pair of 32-bit floats (x, y).
type Point struct {
	X, Y float32
}

// Rect is four 32-bit floats: left, top, right, bottom.
type Rect struct {
	Left, Top, Right, Bottom float32
}

// Flattenable is implemented by any value that can be stored via
// PutFlat/GetFlat: it knows its own wire type code and how to
// serialize/deserialize itself.
type Flattenable interface {
	TypeCode() TypeCode
	FlattenedSize() int
	Flatten(w io.Writer) error
	Unflatten(r io.Reader) error
}
