package transceiver

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/jfriesne/muscle/message"
)

// frameMagic is 'Enc0', the constant distinguishing MUSCLE frames
// (spec.md §6.1).
const frameMagic uint32 = 1164862256

const frameHeaderSize = 8 // body_size(4) + magic(4)

// errBadMagic signals a header whose magic field doesn't match
// frameMagic; the caller converts this to a Disconnected event.
var errBadMagic = errors.New("transceiver: frame magic mismatch")

// readFrame blocks until one full frame has arrived on r (or an error
// occurs), decoding its body into a Message. Partial reads across
// multiple TCP segments are handled transparently by io.ReadFull.
func readFrame(r io.Reader) (*message.Message, error) {
	var hdr [frameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	bodySize := binary.LittleEndian.Uint32(hdr[0:])
	magic := binary.LittleEndian.Uint32(hdr[4:])
	if magic != frameMagic {
		return nil, errBadMagic
	}

	body := io.LimitReader(r, int64(bodySize))
	msg := message.New(0)
	if err := msg.Unflatten(body); err != nil {
		return nil, err
	}
	return msg, nil
}

// writeFrame writes one complete frame for msg to w. A single Send may
// require several underlying socket writes; io.Writer.Write on a
// net.Conn already loops until the full buffer is written or an error
// occurs, so no separate byte-accounting state machine is needed here.
func writeFrame(w io.Writer, msg *message.Message) error {
	bodySize := msg.FlattenedSize()
	var hdr [frameHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(bodySize))
	binary.LittleEndian.PutUint32(hdr[4:], frameMagic)
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	return msg.Flatten(w)
}
