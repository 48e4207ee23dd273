// Package zlibenvelope implements the optional zlib compression envelope
// for Messages (spec.md §6), grounded on
// original_source/python/zlib_utility_functions.py's DeflateMessage/
// InflateMessage pair. A deflated Message is a plain Message carrying a
// single opaque "_zlib" field whose payload is an 8-byte header
// (magic, original flattened size) followed by a zlib stream.
package zlibenvelope

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"

	"github.com/jfriesne/muscle/message"
)

// FieldName is the reserved field under which the compressed payload is
// stored. A Message carrying this field is considered already-deflated.
const FieldName = "_zlib"

// headerMagic identifies the "independent" zlib envelope variant (the
// only one this package implements; 'zlic' in ASCII).
const headerMagic uint32 = 0x7a6c6963

const headerSize = 8 // magic(4) + originalFlatSize(4)

// Deflate returns a new Message wrapping msg's flattened bytes in a
// zlib stream, preserving msg.What. level must be in [0,9]
// (zlib.NoCompression..zlib.BestCompression). If msg is already a zlib
// envelope (carries a RAWT "_zlib" field), it is returned unaltered:
// double-deflation is a no-op, matching DeflateMessage's idempotence
// check. If force is false and the compressed form would not be
// smaller than the original, the original msg is returned instead of
// the envelope.
func Deflate(msg *message.Message, level int, force bool) (*message.Message, error) {
	if level < zlib.NoCompression || level > zlib.BestCompression {
		return nil, errors.Errorf("zlibenvelope: compression level %d out of range", level)
	}
	if msg.HasField(FieldName, message.TypeRaw) {
		return msg, nil
	}

	origSize := msg.FlattenedSize()
	var body bytes.Buffer
	if err := msg.Flatten(&body); err != nil {
		return nil, errors.Wrap(err, "zlibenvelope: flatten original message")
	}

	var out bytes.Buffer
	var hdr [headerSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], headerMagic)
	binary.LittleEndian.PutUint32(hdr[4:], uint32(origSize))
	out.Write(hdr[:])

	zw, err := zlib.NewWriterLevel(&out, level)
	if err != nil {
		return nil, errors.Wrap(err, "zlibenvelope: create zlib writer")
	}
	if _, err := zw.Write(body.Bytes()); err != nil {
		zw.Close()
		return nil, errors.Wrap(err, "zlibenvelope: compress message body")
	}
	if err := zw.Flush(); err != nil {
		zw.Close()
		return nil, errors.Wrap(err, "zlibenvelope: flush zlib stream")
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "zlibenvelope: close zlib stream")
	}

	envelope := message.New(msg.What)
	envelope.PutRaw(FieldName, append([]byte(nil), out.Bytes()...))

	if !force && envelope.FlattenedSize() >= origSize {
		return msg, nil
	}
	return envelope, nil
}

// Inflate reverses Deflate. If msg is not a zlib envelope, msg is
// returned unaltered (matching InflateMessage's pass-through behavior).
func Inflate(msg *message.Message) (*message.Message, error) {
	compressed := msg.GetRaw(FieldName)
	if compressed == nil || len(compressed) < headerSize {
		return msg, nil
	}
	magic := binary.LittleEndian.Uint32(compressed[0:4])
	if magic != headerMagic {
		return msg, nil
	}
	origSize := binary.LittleEndian.Uint32(compressed[4:8])

	zr, err := zlib.NewReader(bytes.NewReader(compressed[headerSize:]))
	if err != nil {
		return nil, errors.Wrap(err, "zlibenvelope: open zlib stream")
	}
	defer zr.Close()

	body := make([]byte, 0, origSize)
	buf := bytes.NewBuffer(body)
	if _, err := io.Copy(buf, zr); err != nil {
		return nil, errors.Wrap(err, "zlibenvelope: decompress message body")
	}

	out := message.New(msg.What)
	if err := out.SetFromFlattenedBuffer(buf.Bytes()); err != nil {
		return nil, errors.Wrap(err, "zlibenvelope: unflatten decompressed body")
	}
	return out, nil
}
