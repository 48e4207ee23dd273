package bitchord_test

import (
	"bytes"
	"testing"

	"github.com/jfriesne/muscle/bitchord"
	"github.com/jfriesne/muscle/message"
)

func TestSetGetToggle(t *testing.T) {
	b := bitchord.New(40)
	if set, _ := b.IsBitSet(3); set {
		t.Fatalf("bit 3 should start clear")
	}
	if err := b.SetBit(3, true); err != nil {
		t.Fatal(err)
	}
	if set, _ := b.IsBitSet(3); !set {
		t.Fatalf("bit 3 should be set")
	}
	if err := b.ToggleBit(3); err != nil {
		t.Fatal(err)
	}
	if set, _ := b.IsBitSet(3); set {
		t.Fatalf("bit 3 should be clear after toggle")
	}
}

func TestGetAndSetBit(t *testing.T) {
	b := bitchord.New(8)
	prior, err := b.GetAndSetBit(2)
	if err != nil {
		t.Fatal(err)
	}
	if prior {
		t.Fatalf("prior value should have been false")
	}
	set, _ := b.IsBitSet(2)
	if !set {
		t.Fatalf("bit 2 should now be set")
	}
}

func TestOutOfRange(t *testing.T) {
	b := bitchord.New(10)
	if _, err := b.IsBitSet(10); err == nil {
		t.Fatalf("expected out-of-range error")
	}
	if err := b.SetBit(999, true); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}

// S3 from spec.md: BitChord(129); set_bit(0); set_all_bits(); bits
// [129, numWords*32) must stay clear, and AllBitsSet() must be true.
func TestTailMasking(t *testing.T) {
	b := bitchord.New(129)
	if err := b.SetBit(0, true); err != nil {
		t.Fatal(err)
	}
	b.SetAllBits()
	for i := uint32(129); i < b.NumWords()*32; i++ {
		word, shift := i/32, i%32
		raw, _ := b.GetWord(word)
		if raw&(1<<shift) != 0 {
			t.Fatalf("tail bit %d should be clear, word=%#x", i, raw)
		}
	}
	if !b.AllBitsSet() {
		t.Fatalf("AllBitsSet() should be true with only the tail masked off")
	}
}

func TestAllBitsSetNonMultipleOf32(t *testing.T) {
	b := bitchord.New(5)
	if b.AllBitsSet() {
		t.Fatalf("fresh BitChord should not have all bits set")
	}
	for i := uint32(0); i < 5; i++ {
		if err := b.SetBit(i, true); err != nil {
			t.Fatal(err)
		}
	}
	if !b.AllBitsSet() {
		t.Fatalf("all 5 bits set but AllBitsSet() returned false")
	}
}

func TestFlattenUnflattenRoundTrip(t *testing.T) {
	b := bitchord.New(70)
	for _, bit := range []uint32{0, 1, 31, 32, 33, 69} {
		if err := b.SetBit(bit, true); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	if err := b.Flatten(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != b.FlattenedSize() {
		t.Fatalf("FlattenedSize() = %d, Flatten wrote %d", b.FlattenedSize(), buf.Len())
	}

	b2 := bitchord.New(70)
	if err := b2.Unflatten(&buf); err != nil {
		t.Fatal(err)
	}
	for _, bit := range []uint32{0, 1, 31, 32, 33, 69} {
		set, _ := b2.IsBitSet(bit)
		if !set {
			t.Fatalf("bit %d lost in round trip", bit)
		}
	}
}

func TestUnflattenNeverResizes(t *testing.T) {
	src := bitchord.New(200)
	if err := src.SetBit(150, true); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := src.Flatten(&buf); err != nil {
		t.Fatal(err)
	}

	dst := bitchord.New(40) // fewer words than encoded
	if err := dst.Unflatten(&buf); err != nil {
		t.Fatal(err)
	}
	if dst.NumBits() != 40 {
		t.Fatalf("Unflatten must not resize; NumBits() = %d, want 40", dst.NumBits())
	}
	// Bit 150 is beyond dst's word range, so it must simply be discarded.
	if dst.AnyBitsSet() {
		t.Fatalf("bit beyond local word range should be discarded, not set")
	}
}

// A BitChord must satisfy message.Flattenable and round-trip through
// PutFlat/GetFlat without a manual PutRaw (spec.md §3.3/§4.2).
func TestRoundTripsThroughMessagePutFlat(t *testing.T) {
	b := bitchord.New(40)
	for _, bit := range []uint32{0, 7, 39} {
		if err := b.SetBit(bit, true); err != nil {
			t.Fatal(err)
		}
	}

	m := message.New(123)
	if err := m.PutFlat("flags", b); err != nil {
		t.Fatal(err)
	}
	if !m.HasField("flags", message.TypeBitChord) {
		t.Fatalf("expected field stored under TypeBitChord")
	}

	got, err := message.GetFlat(m, "flags", func() *bitchord.BitChord { return bitchord.New(40) })
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d BitChords, want 1", len(got))
	}
	for _, bit := range []uint32{0, 7, 39} {
		set, _ := got[0].IsBitSet(bit)
		if !set {
			t.Fatalf("bit %d lost round-tripping through PutFlat/GetFlat", bit)
		}
	}
}
