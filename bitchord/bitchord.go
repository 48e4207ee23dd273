// Package bitchord implements the MUSCLE BitChord type: a fixed-length
// bit vector with its own wire form (type code BTCH), grounded on
// jfriesne/muscle's lang/python3/bit_chord.py.
package bitchord

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/jfriesne/muscle/message"
)

const bitsPerWord = 32

// ErrIndexOutOfRange is returned by any bit/word accessor given an index
// outside the BitChord's configured range.
var ErrIndexOutOfRange = errors.New("bitchord: index out of range")

// BitChord is a fixed-size sequence of bits packed into 32-bit
// little-endian words, LSB-first within each word. Bits at or beyond
// NumBits (the unused tail of the last word) are always held at zero.
type BitChord struct {
	numBits uint32
	words   []uint32
}

// New constructs a BitChord of exactly numBits bits, all clear.
func New(numBits uint32) *BitChord {
	return &BitChord{
		numBits: numBits,
		words:   make([]uint32, wordCountForBits(numBits)),
	}
}

func wordCountForBits(numBits uint32) uint32 {
	return (numBits + (bitsPerWord - 1)) / bitsPerWord
}

// NumBits returns the number of addressable bits.
func (b *BitChord) NumBits() uint32 { return b.numBits }

// NumWords returns the number of 32-bit words backing this BitChord.
func (b *BitChord) NumWords() uint32 { return uint32(len(b.words)) }

func wordAndShift(whichBit uint32) (word, shift uint32) {
	return whichBit / bitsPerWord, whichBit % bitsPerWord
}

func (b *BitChord) checkBit(whichBit uint32) error {
	if whichBit >= b.numBits {
		return errors.Wrapf(ErrIndexOutOfRange, "bit %d (numBits=%d)", whichBit, b.numBits)
	}
	return nil
}

// IsBitSet reports whether the given bit is currently set.
func (b *BitChord) IsBitSet(whichBit uint32) (bool, error) {
	if err := b.checkBit(whichBit); err != nil {
		return false, err
	}
	word, shift := wordAndShift(whichBit)
	return b.words[word]&(1<<shift) != 0, nil
}

// SetBit sets or clears the given bit.
func (b *BitChord) SetBit(whichBit uint32, value bool) error {
	if err := b.checkBit(whichBit); err != nil {
		return err
	}
	word, shift := wordAndShift(whichBit)
	if value {
		b.words[word] |= 1 << shift
	} else {
		b.words[word] &^= 1 << shift
	}
	return nil
}

// ClearBit clears the given bit.
func (b *BitChord) ClearBit(whichBit uint32) error {
	return b.SetBit(whichBit, false)
}

// ToggleBit flips the given bit and returns an error if out of range.
func (b *BitChord) ToggleBit(whichBit uint32) error {
	cur, err := b.IsBitSet(whichBit)
	if err != nil {
		return err
	}
	return b.SetBit(whichBit, !cur)
}

// GetAndSetBit returns the bit's prior value and leaves it set.
func (b *BitChord) GetAndSetBit(whichBit uint32) (prior bool, err error) {
	if prior, err = b.IsBitSet(whichBit); err != nil {
		return false, err
	}
	return prior, b.SetBit(whichBit, true)
}

// GetAndClearBit returns the bit's prior value and leaves it clear.
func (b *BitChord) GetAndClearBit(whichBit uint32) (prior bool, err error) {
	if prior, err = b.IsBitSet(whichBit); err != nil {
		return false, err
	}
	return prior, b.SetBit(whichBit, false)
}

// GetAndToggleBit returns the bit's prior value and flips it.
func (b *BitChord) GetAndToggleBit(whichBit uint32) (prior bool, err error) {
	if prior, err = b.IsBitSet(whichBit); err != nil {
		return false, err
	}
	return prior, b.SetBit(whichBit, !prior)
}

// SetAllBits sets every addressable bit.
func (b *BitChord) SetAllBits() {
	for i := range b.words {
		b.words[i] = 0xFFFFFFFF
	}
	b.clearUnusedTail()
}

// ClearAllBits clears every bit.
func (b *BitChord) ClearAllBits() {
	for i := range b.words {
		b.words[i] = 0
	}
}

// ToggleAllBits flips every addressable bit.
func (b *BitChord) ToggleAllBits() {
	for i := range b.words {
		b.words[i] ^= 0xFFFFFFFF
	}
	b.clearUnusedTail()
}

// GetWord returns the raw contents of word index whichWord.
func (b *BitChord) GetWord(whichWord uint32) (uint32, error) {
	if whichWord >= uint32(len(b.words)) {
		return 0, errors.Wrapf(ErrIndexOutOfRange, "word %d (numWords=%d)", whichWord, len(b.words))
	}
	return b.words[whichWord], nil
}

// SetWord overwrites the raw contents of word index whichWord. Bits of
// value that fall beyond NumBits in the last word are masked back to
// zero before SetWord returns.
func (b *BitChord) SetWord(whichWord uint32, value uint32) error {
	if whichWord >= uint32(len(b.words)) {
		return errors.Wrapf(ErrIndexOutOfRange, "word %d (numWords=%d)", whichWord, len(b.words))
	}
	b.words[whichWord] = value
	b.clearUnusedTail()
	return nil
}

// AnyBitsSet reports whether any word is nonzero.
func (b *BitChord) AnyBitsSet() bool {
	for _, w := range b.words {
		if w != 0 {
			return true
		}
	}
	return false
}

// AllBitsSet reports whether every addressable bit is set.
func (b *BitChord) AllBitsSet() bool {
	full := len(b.words)
	if b.numBits%bitsPerWord != 0 {
		full--
	}
	for i := 0; i < full; i++ {
		if b.words[i] != 0xFFFFFFFF {
			return false
		}
	}
	for bit := uint32(full) * bitsPerWord; bit < b.numBits; bit++ {
		set, _ := b.IsBitSet(bit)
		if !set {
			return false
		}
	}
	return true
}

func (b *BitChord) clearUnusedTail() {
	leftover := b.numBits % bitsPerWord
	if leftover == 0 {
		return
	}
	lastWord := len(b.words) - 1
	mask := uint32(1)<<leftover - 1
	b.words[lastWord] &= mask
}

// TypeCode implements message.Flattenable, so a BitChord can be stored
// via Message.PutFlat/GetFlat without a manual PutRaw.
func (b *BitChord) TypeCode() message.TypeCode {
	return message.TypeBitChord
}

// FlattenedSize returns the exact byte count Flatten will write.
func (b *BitChord) FlattenedSize() int {
	return 4 + 4*len(b.words)
}

// Flatten writes the wire form: u32 numBits, followed by NumWords
// little-endian u32 words.
func (b *BitChord) Flatten(w io.Writer) error {
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], b.numBits)
	if _, err := w.Write(hdr[:]); err != nil {
		return errors.Wrap(err, "bitchord: write numBits")
	}
	buf := make([]byte, 4*len(b.words))
	for i, word := range b.words {
		binary.LittleEndian.PutUint32(buf[i*4:], word)
	}
	if _, err := w.Write(buf); err != nil {
		return errors.Wrap(err, "bitchord: write words")
	}
	return nil
}

// Unflatten reads the wire form produced by Flatten. It never resizes
// this BitChord: all local words are cleared first, then the first
// min(NumWords, encoded word count) words are copied in, and encoded
// words beyond NumWords are consumed but discarded.
func (b *BitChord) Unflatten(r io.Reader) error {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return errors.Wrap(err, "bitchord: read numBits")
	}
	encodedBits := binary.LittleEndian.Uint32(hdr[:])
	encodedWords := wordCountForBits(encodedBits)

	b.ClearAllBits()
	var wordBuf [4]byte
	for i := uint32(0); i < encodedWords; i++ {
		if _, err := io.ReadFull(r, wordBuf[:]); err != nil {
			return errors.Wrap(err, "bitchord: read word")
		}
		if i < uint32(len(b.words)) {
			b.words[i] = binary.LittleEndian.Uint32(wordBuf[:])
		}
	}
	b.clearUnusedTail()
	return nil
}

func (b *BitChord) String() string {
	s := fmt.Sprintf("BitChord(%d bits):", b.numBits)
	for _, w := range b.words {
		s += fmt.Sprintf(" %#08x", w)
	}
	return s
}
