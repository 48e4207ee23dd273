package zlibenvelope_test

import (
	"testing"

	"github.com/jfriesne/muscle/message"
	"github.com/jfriesne/muscle/zlibenvelope"
)

func bigMessage() *message.Message {
	m := message.New(12345)
	m.PutString("A String", "Yes it is")
	m.PutInt32("A Number", 666)
	m.PutFloat64("Some Floats", 1.0, 2.2, 3.3, 4.4, 5.5, 6.6)
	ints := make([]int8, 0, 64)
	for i := 0; i < 64; i++ {
		ints = append(ints, 1)
	}
	m.PutInt8("Some Ints", ints...)
	return m
}

// S2 from spec.md, plus testable property 3: inflate(deflate(m, level,
// true)) == m for every level in 0..=9.
func TestDeflateInflateRoundTrip(t *testing.T) {
	for level := 0; level <= 9; level++ {
		m := bigMessage()
		deflated, err := zlibenvelope.Deflate(m, level, true)
		if err != nil {
			t.Fatalf("level %d: Deflate: %v", level, err)
		}
		if !deflated.HasField(zlibenvelope.FieldName, message.TypeRaw) {
			t.Fatalf("level %d: expected a _zlib field", level)
		}
		if deflated.What != m.What {
			t.Fatalf("level %d: what-code changed: got %d, want %d", level, deflated.What, m.What)
		}

		inflated, err := zlibenvelope.Inflate(deflated)
		if err != nil {
			t.Fatalf("level %d: Inflate: %v", level, err)
		}
		origBuf, _ := m.GetFlattenedBuffer()
		gotBuf, _ := inflated.GetFlattenedBuffer()
		if string(origBuf) != string(gotBuf) {
			t.Fatalf("level %d: round trip mismatch", level)
		}
	}
}

// Testable property 4: deflate(deflate(m)) == deflate(m).
func TestDeflateIsIdempotent(t *testing.T) {
	m := bigMessage()
	once, err := zlibenvelope.Deflate(m, 6, true)
	if err != nil {
		t.Fatal(err)
	}
	twice, err := zlibenvelope.Deflate(once, 6, true)
	if err != nil {
		t.Fatal(err)
	}
	onceBuf, _ := once.GetFlattenedBuffer()
	twiceBuf, _ := twice.GetFlattenedBuffer()
	if string(onceBuf) != string(twiceBuf) {
		t.Fatalf("deflate is not idempotent under the _zlib guard")
	}
}

func TestInflateNonEnvelopePassesThrough(t *testing.T) {
	m := bigMessage()
	got, err := zlibenvelope.Inflate(m)
	if err != nil {
		t.Fatal(err)
	}
	if got != m {
		t.Fatalf("expected Inflate to pass a non-envelope Message through unchanged")
	}
}

func TestForceFalseSkipsUncompressibleMessages(t *testing.T) {
	m := message.New(1)
	m.PutInt32("n", 1)
	got, err := zlibenvelope.Deflate(m, 9, false)
	if err != nil {
		t.Fatal(err)
	}
	if got != m {
		t.Fatalf("expected the tiny message to be returned unchanged when force=false")
	}
}

func TestLevelOutOfRangeIsFatal(t *testing.T) {
	m := bigMessage()
	if _, err := zlibenvelope.Deflate(m, 10, true); err == nil {
		t.Fatalf("expected an error for level 10")
	}
	if _, err := zlibenvelope.Deflate(m, -1, true); err == nil {
		t.Fatalf("expected an error for level -1")
	}
}
