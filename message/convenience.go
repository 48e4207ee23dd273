package message

import "io"

// This file implements the "one Put and one Get wrapper per well-known
// type tag" convenience API (spec.md §4.2), grounded on the PutString/
// GetFieldContents-derived accessors in lang/python3/message.py. Each
// list-getter defaults to an empty list; each scalar-getter defaults to
// the type's zero value (or (0,0)/(0,0,0,0) for Point/Rect).

func toInterfaceSlice[T any](values []T) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func typedList[T any](m *Message, name string, typeCode TypeCode) []T {
	raw := m.GetFieldContents(name, typeCode, nil)
	out := make([]T, 0, len(raw))
	for _, v := range raw {
		if tv, ok := v.(T); ok {
			out = append(out, tv)
		}
	}
	return out
}

func typedScalar[T any](m *Message, name string, typeCode TypeCode, def T) T {
	v := m.GetFieldItem(name, typeCode, nil, 0)
	if v == nil {
		return def
	}
	tv, ok := v.(T)
	if !ok {
		return def
	}
	return tv
}

// PutBool stores one or more bool values under name (type BOOL).
func (m *Message) PutBool(name string, values ...bool) {
	m.PutFieldContents(name, TypeBool, toInterfaceSlice(values))
}

// GetBool returns the first bool stored under name, or false.
func (m *Message) GetBool(name string) bool {
	return typedScalar[bool](m, name, TypeBool, false)
}

// GetBoolList returns every bool stored under name, or an empty list.
func (m *Message) GetBoolList(name string) []bool {
	return typedList[bool](m, name, TypeBool)
}

// PutInt8 stores one or more int8 values under name (type BYTE).
func (m *Message) PutInt8(name string, values ...int8) {
	m.PutFieldContents(name, TypeInt8, toInterfaceSlice(values))
}

// GetInt8 returns the first int8 stored under name, or 0.
func (m *Message) GetInt8(name string) int8 {
	return typedScalar[int8](m, name, TypeInt8, 0)
}

// GetInt8List returns every int8 stored under name, or an empty list.
func (m *Message) GetInt8List(name string) []int8 {
	return typedList[int8](m, name, TypeInt8)
}

// PutInt16 stores one or more int16 values under name (type SHRT).
func (m *Message) PutInt16(name string, values ...int16) {
	m.PutFieldContents(name, TypeInt16, toInterfaceSlice(values))
}

// GetInt16 returns the first int16 stored under name, or 0.
func (m *Message) GetInt16(name string) int16 {
	return typedScalar[int16](m, name, TypeInt16, 0)
}

// GetInt16List returns every int16 stored under name, or an empty list.
func (m *Message) GetInt16List(name string) []int16 {
	return typedList[int16](m, name, TypeInt16)
}

// PutInt32 stores one or more int32 values under name (type LONG).
func (m *Message) PutInt32(name string, values ...int32) {
	m.PutFieldContents(name, TypeInt32, toInterfaceSlice(values))
}

// GetInt32 returns the first int32 stored under name, or 0.
func (m *Message) GetInt32(name string) int32 {
	return typedScalar[int32](m, name, TypeInt32, 0)
}

// GetInt32List returns every int32 stored under name, or an empty list.
func (m *Message) GetInt32List(name string) []int32 {
	return typedList[int32](m, name, TypeInt32)
}

// PutInt64 stores one or more int64 values under name (type LLNG).
func (m *Message) PutInt64(name string, values ...int64) {
	m.PutFieldContents(name, TypeInt64, toInterfaceSlice(values))
}

// GetInt64 returns the first int64 stored under name, or 0.
func (m *Message) GetInt64(name string) int64 {
	return typedScalar[int64](m, name, TypeInt64, 0)
}

// GetInt64List returns every int64 stored under name, or an empty list.
func (m *Message) GetInt64List(name string) []int64 {
	return typedList[int64](m, name, TypeInt64)
}

// PutFloat32 stores one or more float32 values under name (type FLOT).
func (m *Message) PutFloat32(name string, values ...float32) {
	m.PutFieldContents(name, TypeFloat32, toInterfaceSlice(values))
}

// GetFloat32 returns the first float32 stored under name, or 0.0.
func (m *Message) GetFloat32(name string) float32 {
	return typedScalar[float32](m, name, TypeFloat32, 0)
}

// GetFloat32List returns every float32 stored under name, or an empty list.
func (m *Message) GetFloat32List(name string) []float32 {
	return typedList[float32](m, name, TypeFloat32)
}

// PutFloat64 stores one or more float64 values under name (type DBLE).
func (m *Message) PutFloat64(name string, values ...float64) {
	m.PutFieldContents(name, TypeFloat64, toInterfaceSlice(values))
}

// GetFloat64 returns the first float64 stored under name, or 0.0.
func (m *Message) GetFloat64(name string) float64 {
	return typedScalar[float64](m, name, TypeFloat64, 0)
}

// GetFloat64List returns every float64 stored under name, or an empty list.
func (m *Message) GetFloat64List(name string) []float64 {
	return typedList[float64](m, name, TypeFloat64)
}

// PutString stores one or more strings under name (type CSTR).
func (m *Message) PutString(name string, values ...string) {
	m.PutFieldContents(name, TypeString, toInterfaceSlice(values))
}

// GetString returns the first string stored under name, or "".
func (m *Message) GetString(name string) string {
	return typedScalar[string](m, name, TypeString, "")
}

// GetStringList returns every string stored under name, or an empty list.
func (m *Message) GetStringList(name string) []string {
	return typedList[string](m, name, TypeString)
}

// PutPoint stores one or more Points under name (type BPNT).
func (m *Message) PutPoint(name string, values ...Point) {
	m.PutFieldContents(name, TypePoint, toInterfaceSlice(values))
}

// GetPoint returns the first Point stored under name, or (0,0).
func (m *Message) GetPoint(name string) Point {
	return typedScalar[Point](m, name, TypePoint, Point{})
}

// GetPointList returns every Point stored under name, or an empty list.
func (m *Message) GetPointList(name string) []Point {
	return typedList[Point](m, name, TypePoint)
}

// PutRect stores one or more Rects under name (type RECT).
func (m *Message) PutRect(name string, values ...Rect) {
	m.PutFieldContents(name, TypeRect, toInterfaceSlice(values))
}

// GetRect returns the first Rect stored under name, or (0,0,0,0).
func (m *Message) GetRect(name string) Rect {
	return typedScalar[Rect](m, name, TypeRect, Rect{})
}

// GetRectList returns every Rect stored under name, or an empty list.
func (m *Message) GetRectList(name string) []Rect {
	return typedList[Rect](m, name, TypeRect)
}

// PutMessage stores one or more nested Messages under name (type MSGG).
func (m *Message) PutMessage(name string, values ...*Message) {
	m.PutFieldContents(name, TypeMessage, toInterfaceSlice(values))
}

// GetMessage returns the first nested Message stored under name, or nil.
func (m *Message) GetMessage(name string) *Message {
	return typedScalar[*Message](m, name, TypeMessage, nil)
}

// GetMessageList returns every nested Message stored under name, or an
// empty list.
func (m *Message) GetMessageList(name string) []*Message {
	return typedList[*Message](m, name, TypeMessage)
}

// PutRaw stores one or more opaque byte buffers under name (type RAWT).
func (m *Message) PutRaw(name string, values ...[]byte) {
	m.PutFieldContents(name, TypeRaw, toInterfaceSlice(values))
}

// GetRaw returns the first byte buffer stored under name, or nil.
func (m *Message) GetRaw(name string) []byte {
	return typedScalar[[]byte](m, name, TypeRaw, nil)
}

// GetRawList returns every byte buffer stored under name, or an empty list.
func (m *Message) GetRawList(name string) [][]byte {
	return typedList[[]byte](m, name, TypeRaw)
}

// PutFlat serializes one or more Flattenable objects and stores the
// resulting byte buffers under their own TypeCode(), per "Put
// flattenable" in spec.md §4.2. All objects must report the same
// TypeCode(); otherwise PutFlat returns ErrTypeMismatch and leaves the
// Message unchanged, mirroring the single-type-per-field invariant
// enforced everywhere else in this package.
func (m *Message) PutFlat(name string, objects ...Flattenable) error {
	if len(objects) == 0 {
		return nil
	}
	tc := objects[0].TypeCode()
	bufs := make([][]byte, len(objects))
	for i, obj := range objects {
		if obj.TypeCode() != tc {
			return ErrTypeMismatch
		}
		buf, err := flattenToBytes(obj)
		if err != nil {
			return err
		}
		bufs[i] = buf
	}
	m.PutFieldContents(name, tc, toInterfaceSlice(bufs))
	return nil
}

// GetFlat decodes the named field's raw buffers into Flattenable
// objects freshly constructed by newObj, one per stored buffer. newObj
// must return a zero-valued instance whose Unflatten method populates it.
func GetFlat[T Flattenable](m *Message, name string, newObj func() T) ([]T, error) {
	tc, ok := m.FieldType(name)
	if !ok {
		return nil, nil
	}
	bufs := typedList[[]byte](m, name, tc)
	out := make([]T, 0, len(bufs))
	for _, buf := range bufs {
		obj := newObj()
		if err := obj.Unflatten(&sliceReader{buf: buf}); err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

// sliceReader is a minimal io.Reader over a byte slice.
type sliceReader struct {
	buf []byte
	pos int
}

func (r *sliceReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.buf) {
		return 0, io.EOF
	}
	n := copy(p, r.buf[r.pos:])
	r.pos += n
	return n, nil
}

func flattenToBytes(obj Flattenable) ([]byte, error) {
	buf := make([]byte, 0, obj.FlattenedSize())
	w := &sliceWriter{buf: buf}
	if err := obj.Flatten(w); err != nil {
		return nil, err
	}
	return w.buf, nil
}

// sliceWriter is a minimal io.Writer over a growable byte slice, used
// instead of bytes.Buffer where we already know the final capacity.
type sliceWriter struct{ buf []byte }

func (w *sliceWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}
