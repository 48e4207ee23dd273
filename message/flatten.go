package message

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

const headerSize = 12 // protocol_version(4) + what(4) + num_fields(4)

// FlattenedSize returns the exact number of bytes Flatten will write
// (spec.md §4.2.3's FlattenedSize law).
func (m *Message) FlattenedSize() int {
	size := headerSize
	for _, name := range m.order {
		f := m.fields[name]
		size += 4 + len(name) + 1 + 4 + 4
		size += fieldPayloadSize(f.typeCode, f.values)
	}
	return size
}

func fieldPayloadSize(typeCode TypeCode, values []interface{}) int {
	n := len(values)
	switch typeCode {
	case TypeBool, TypeInt8:
		return n * 1
	case TypeInt16:
		return n * 2
	case TypeInt32, TypeFloat32:
		return n * 4
	case TypeInt64, TypeFloat64, TypePoint:
		return n * 8
	case TypeRect:
		return n * 16
	case TypeString:
		size := 4
		for _, v := range values {
			size += 4 + len(v.(string)) + 1
		}
		return size
	case TypeMessage:
		size := 0
		for _, v := range values {
			size += 4 + v.(*Message).FlattenedSize()
		}
		return size
	default:
		size := 4
		for _, v := range values {
			size += 4 + len(v.([]byte))
		}
		return size
	}
}

// Flatten writes this Message's wire form to w (spec.md §4.2.1).
// Attempting to flatten a PNTR field is a fatal error.
func (m *Message) Flatten(w io.Writer) error {
	var hdr [headerSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], ProtocolVersion)
	binary.LittleEndian.PutUint32(hdr[4:], m.What)
	binary.LittleEndian.PutUint32(hdr[8:], uint32(len(m.order)))
	if _, err := w.Write(hdr[:]); err != nil {
		return errors.Wrap(err, "message: write header")
	}

	for _, name := range m.order {
		f := m.fields[name]
		if f.typeCode == TypePointer {
			return ErrPointerType
		}
		if err := writeNameHeader(w, name); err != nil {
			return err
		}
		var fieldHdr [8]byte
		binary.LittleEndian.PutUint32(fieldHdr[0:], uint32(f.typeCode))
		binary.LittleEndian.PutUint32(fieldHdr[4:], uint32(fieldPayloadSize(f.typeCode, f.values)))
		if _, err := w.Write(fieldHdr[:]); err != nil {
			return errors.Wrap(err, "message: write field header")
		}
		if err := writeFieldPayload(w, f.typeCode, f.values); err != nil {
			return err
		}
	}
	return nil
}

func writeNameHeader(w io.Writer, name string) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(name)+1))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return errors.Wrap(err, "message: write name length")
	}
	if _, err := io.WriteString(w, name); err != nil {
		return errors.Wrap(err, "message: write name")
	}
	if _, err := w.Write([]byte{0}); err != nil {
		return errors.Wrap(err, "message: write name NUL")
	}
	return nil
}

func writeFieldPayload(w io.Writer, typeCode TypeCode, values []interface{}) error {
	switch typeCode {
	case TypeBool:
		buf := make([]byte, len(values))
		for i, v := range values {
			if v.(bool) {
				buf[i] = 1
			}
		}
		return writeAll(w, buf)
	case TypeInt8:
		buf := make([]byte, len(values))
		for i, v := range values {
			buf[i] = byte(v.(int8))
		}
		return writeAll(w, buf)
	case TypeInt16:
		buf := make([]byte, 2*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint16(buf[i*2:], uint16(v.(int16)))
		}
		return writeAll(w, buf)
	case TypeInt32:
		buf := make([]byte, 4*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint32(buf[i*4:], uint32(v.(int32)))
		}
		return writeAll(w, buf)
	case TypeInt64:
		buf := make([]byte, 8*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint64(buf[i*8:], uint64(v.(int64)))
		}
		return writeAll(w, buf)
	case TypeFloat32:
		buf := make([]byte, 4*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v.(float32)))
		}
		return writeAll(w, buf)
	case TypeFloat64:
		buf := make([]byte, 8*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v.(float64)))
		}
		return writeAll(w, buf)
	case TypePoint:
		buf := make([]byte, 8*len(values))
		for i, v := range values {
			p := v.(Point)
			binary.LittleEndian.PutUint32(buf[i*8:], math.Float32bits(p.X))
			binary.LittleEndian.PutUint32(buf[i*8+4:], math.Float32bits(p.Y))
		}
		return writeAll(w, buf)
	case TypeRect:
		buf := make([]byte, 16*len(values))
		for i, v := range values {
			r := v.(Rect)
			binary.LittleEndian.PutUint32(buf[i*16:], math.Float32bits(r.Left))
			binary.LittleEndian.PutUint32(buf[i*16+4:], math.Float32bits(r.Top))
			binary.LittleEndian.PutUint32(buf[i*16+8:], math.Float32bits(r.Right))
			binary.LittleEndian.PutUint32(buf[i*16+12:], math.Float32bits(r.Bottom))
		}
		return writeAll(w, buf)
	case TypeString:
		var countBuf [4]byte
		binary.LittleEndian.PutUint32(countBuf[:], uint32(len(values)))
		if err := writeAll(w, countBuf[:]); err != nil {
			return err
		}
		for _, v := range values {
			if err := writeNameHeader(w, v.(string)); err != nil {
				return err
			}
		}
		return nil
	case TypeMessage:
		for _, v := range values {
			sub := v.(*Message)
			var sizeBuf [4]byte
			binary.LittleEndian.PutUint32(sizeBuf[:], uint32(sub.FlattenedSize()))
			if err := writeAll(w, sizeBuf[:]); err != nil {
				return err
			}
			if err := sub.Flatten(w); err != nil {
				return err
			}
		}
		return nil
	default:
		var countBuf [4]byte
		binary.LittleEndian.PutUint32(countBuf[:], uint32(len(values)))
		if err := writeAll(w, countBuf[:]); err != nil {
			return err
		}
		for _, v := range values {
			buf, ok := v.([]byte)
			if !ok {
				return errors.Wrapf(ErrMalformedMessage, "non-[]byte value stored under opaque type %s", typeCode)
			}
			var lenBuf [4]byte
			binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(buf)))
			if err := writeAll(w, lenBuf[:]); err != nil {
				return err
			}
			if err := writeAll(w, buf); err != nil {
				return err
			}
		}
		return nil
	}
}

func writeAll(w io.Writer, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	_, err := w.Write(buf)
	if err != nil {
		return errors.Wrap(err, "message: write payload")
	}
	return nil
}

// Unflatten replaces this Message's contents by reading the wire form
// produced by Flatten from r (spec.md §4.2.2).
func (m *Message) Unflatten(r io.Reader) error {
	m.Clear()

	var hdr [headerSize]byte
	if err := readFull(r, hdr[:]); err != nil {
		return err
	}
	version := binary.LittleEndian.Uint32(hdr[0:])
	if version != ProtocolVersion {
		return errors.Wrapf(ErrBadProtocolVersion, "got %#x, want %#x", version, ProtocolVersion)
	}
	m.What = binary.LittleEndian.Uint32(hdr[4:])
	numFields := binary.LittleEndian.Uint32(hdr[8:])

	for i := uint32(0); i < numFields; i++ {
		name, err := readName(r)
		if err != nil {
			return err
		}
		var fieldHdr [8]byte
		if err := readFull(r, fieldHdr[:]); err != nil {
			return err
		}
		typeCode := TypeCode(binary.LittleEndian.Uint32(fieldHdr[0:]))
		payloadSize := binary.LittleEndian.Uint32(fieldHdr[4:])

		values, err := readFieldPayload(r, typeCode, payloadSize)
		if err != nil {
			return err
		}
		m.PutFieldContents(name, typeCode, values)
	}
	return nil
}

func readFull(r io.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return errors.Wrap(ErrTruncatedStream, err.Error())
		}
		return errors.Wrap(err, "message: read")
	}
	return nil
}

func readName(r io.Reader) (string, error) {
	var lenBuf [4]byte
	if err := readFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	nameLenInclNul := binary.LittleEndian.Uint32(lenBuf[:])
	if nameLenInclNul == 0 {
		return "", errors.Wrap(ErrMalformedMessage, "zero-length field name")
	}
	buf := make([]byte, nameLenInclNul-1)
	if err := readFull(r, buf); err != nil {
		return "", err
	}
	var nul [1]byte
	if err := readFull(r, nul[:]); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readFieldPayload(r io.Reader, typeCode TypeCode, payloadSize uint32) ([]interface{}, error) {
	lr := &io.LimitedReader{R: r, N: int64(payloadSize)}

	switch typeCode {
	case TypeBool:
		n := payloadSize
		buf := make([]byte, n)
		if err := readFull(lr, buf); err != nil {
			return nil, err
		}
		out := make([]interface{}, n)
		for i, b := range buf {
			out[i] = b != 0
		}
		return out, nil
	case TypeInt8:
		buf := make([]byte, payloadSize)
		if err := readFull(lr, buf); err != nil {
			return nil, err
		}
		out := make([]interface{}, len(buf))
		for i, b := range buf {
			out[i] = int8(b)
		}
		return out, nil
	case TypeInt16:
		return readFixedWidth(lr, payloadSize, 2, func(b []byte) interface{} {
			return int16(binary.LittleEndian.Uint16(b))
		})
	case TypeInt32:
		return readFixedWidth(lr, payloadSize, 4, func(b []byte) interface{} {
			return int32(binary.LittleEndian.Uint32(b))
		})
	case TypeInt64:
		return readFixedWidth(lr, payloadSize, 8, func(b []byte) interface{} {
			return int64(binary.LittleEndian.Uint64(b))
		})
	case TypeFloat32:
		return readFixedWidth(lr, payloadSize, 4, func(b []byte) interface{} {
			return math.Float32frombits(binary.LittleEndian.Uint32(b))
		})
	case TypeFloat64:
		return readFixedWidth(lr, payloadSize, 8, func(b []byte) interface{} {
			return math.Float64frombits(binary.LittleEndian.Uint64(b))
		})
	case TypePoint:
		return readFixedWidth(lr, payloadSize, 8, func(b []byte) interface{} {
			return Point{
				X: math.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
				Y: math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
			}
		})
	case TypeRect:
		return readFixedWidth(lr, payloadSize, 16, func(b []byte) interface{} {
			return Rect{
				Left:   math.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
				Top:    math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
				Right:  math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
				Bottom: math.Float32frombits(binary.LittleEndian.Uint32(b[12:])),
			}
		})
	case TypeString:
		var countBuf [4]byte
		if err := readFull(lr, countBuf[:]); err != nil {
			return nil, err
		}
		numItems := binary.LittleEndian.Uint32(countBuf[:])
		out := make([]interface{}, numItems)
		for i := uint32(0); i < numItems; i++ {
			s, err := readName(lr)
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil
	case TypeMessage:
		var out []interface{}
		var consumed uint32
		for consumed < payloadSize {
			var sizeBuf [4]byte
			if err := readFull(lr, sizeBuf[:]); err != nil {
				return nil, err
			}
			subSize := binary.LittleEndian.Uint32(sizeBuf[:])
			consumed += 4
			if consumed+subSize > payloadSize {
				return nil, errors.Wrap(ErrMalformedMessage, "nested Message overruns its field's payload size")
			}
			sub := New(0)
			if err := sub.Unflatten(&io.LimitedReader{R: lr, N: int64(subSize)}); err != nil {
				return nil, err
			}
			consumed += subSize
			out = append(out, sub)
		}
		if consumed != payloadSize {
			return nil, errors.Wrap(ErrMalformedMessage, "nested Message accounting did not exactly exhaust payload")
		}
		return out, nil
	default:
		// Any other type code, including OPTR, RAWT, BTCH, and unrecognized
		// tags, round-trips as opaque length-prefixed byte buffers.
		var countBuf [4]byte
		if err := readFull(lr, countBuf[:]); err != nil {
			return nil, err
		}
		numItems := binary.LittleEndian.Uint32(countBuf[:])
		out := make([]interface{}, numItems)
		for i := uint32(0); i < numItems; i++ {
			var lenBuf [4]byte
			if err := readFull(lr, lenBuf[:]); err != nil {
				return nil, err
			}
			itemLen := binary.LittleEndian.Uint32(lenBuf[:])
			buf := make([]byte, itemLen)
			if err := readFull(lr, buf); err != nil {
				return nil, err
			}
			out[i] = buf
		}
		return out, nil
	}
}

func readFixedWidth(r io.Reader, payloadSize, itemWidth uint32, decode func([]byte) interface{}) ([]interface{}, error) {
	if payloadSize%itemWidth != 0 {
		return nil, errors.Wrapf(ErrMalformedMessage, "payload size %d not a multiple of item width %d", payloadSize, itemWidth)
	}
	n := payloadSize / itemWidth
	buf := make([]byte, payloadSize)
	if err := readFull(r, buf); err != nil {
		return nil, err
	}
	out := make([]interface{}, n)
	for i := uint32(0); i < n; i++ {
		out[i] = decode(buf[i*itemWidth : (i+1)*itemWidth])
	}
	return out, nil
}

// GetFlattenedBuffer is a convenience wrapper returning the flattened
// byte form of this Message.
func (m *Message) GetFlattenedBuffer() ([]byte, error) {
	w := &sliceWriter{buf: make([]byte, 0, m.FlattenedSize())}
	if err := m.Flatten(w); err != nil {
		return nil, err
	}
	return w.buf, nil
}

// SetFromFlattenedBuffer is a convenience wrapper that unflattens buf
// into this Message.
func (m *Message) SetFromFlattenedBuffer(buf []byte) error {
	return m.Unflatten(&sliceReader{buf: buf})
}
