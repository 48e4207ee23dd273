package message_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jfriesne/muscle/message"
)

// S1 from spec.md: a trivial round trip through an int32 field.
func TestTrivialRoundTrip(t *testing.T) {
	m := message.New(666)
	m.PutInt32("n", 1, 2, 3)

	buf, err := m.GetFlattenedBuffer()
	if err != nil {
		t.Fatal(err)
	}
	const want = 12 + (4 + 1 + 1 + 4 + 4) + (4 * 3)
	if len(buf) != want {
		t.Fatalf("flattened size = %d, want %d", len(buf), want)
	}
	if m.FlattenedSize() != len(buf) {
		t.Fatalf("FlattenedSize() = %d, len(buf) = %d", m.FlattenedSize(), len(buf))
	}

	got := message.New(0)
	if err := got.SetFromFlattenedBuffer(buf); err != nil {
		t.Fatal(err)
	}
	if got.What != 666 {
		t.Fatalf("What = %d, want 666", got.What)
	}
	if diff := cmp.Diff([]int32{1, 2, 3}, got.GetInt32List("n")); diff != "" {
		t.Fatalf("field n mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyMessage(t *testing.T) {
	m := message.New(0)
	buf, err := m.GetFlattenedBuffer()
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) != 12 {
		t.Fatalf("empty Message should flatten to 12 bytes, got %d", len(buf))
	}
	got := message.New(1)
	if err := got.SetFromFlattenedBuffer(buf); err != nil {
		t.Fatal(err)
	}
	if got.What != 0 {
		t.Fatalf("What = %d, want 0", got.What)
	}
	if len(got.FieldNames()) != 0 {
		t.Fatalf("expected zero fields, got %d", len(got.FieldNames()))
	}
}

func TestUTF8StringRoundTrip(t *testing.T) {
	m := message.New(1)
	const s = "héllo wörld — 日本語"
	m.PutString("greeting", s)

	buf, err := m.GetFlattenedBuffer()
	if err != nil {
		t.Fatal(err)
	}
	got := message.New(0)
	if err := got.SetFromFlattenedBuffer(buf); err != nil {
		t.Fatal(err)
	}
	if got.GetString("greeting") != s {
		t.Fatalf("greeting = %q, want %q", got.GetString("greeting"), s)
	}
}

func TestNestedMessagesDifferingSizes(t *testing.T) {
	sub1 := message.New(1)
	sub1.PutString("a", "x")
	sub2 := message.New(2)
	sub2.PutString("a", "xx")
	sub2.PutInt32("b", 7)
	sub3 := message.New(3)
	sub3.PutInt64("big", 1, 2, 3, 4, 5)

	m := message.New(0)
	m.PutMessage("subs", sub1, sub2, sub3)

	buf, err := m.GetFlattenedBuffer()
	if err != nil {
		t.Fatal(err)
	}
	got := message.New(0)
	if err := got.SetFromFlattenedBuffer(buf); err != nil {
		t.Fatal(err)
	}
	subs := got.GetMessageList("subs")
	if len(subs) != 3 {
		t.Fatalf("expected 3 sub-Messages, got %d", len(subs))
	}
	if subs[0].What != 1 || subs[0].GetString("a") != "x" {
		t.Fatalf("sub[0] mismatch: %+v", subs[0])
	}
	if subs[1].What != 2 || subs[1].GetString("a") != "xx" || subs[1].GetInt32("b") != 7 {
		t.Fatalf("sub[1] mismatch: %+v", subs[1])
	}
	if diff := cmp.Diff([]int64{1, 2, 3, 4, 5}, subs[2].GetInt64List("big")); diff != "" {
		t.Fatalf("sub[2] mismatch (-want +got):\n%s", diff)
	}
}

func TestUnknownTypeCodeRoundTrips(t *testing.T) {
	// S4 from spec.md: hand-craft a field with an unrecognized type code.
	m := message.New(42)
	m.PutFieldContents("weird", 0xDEADBEEF, []interface{}{[]byte{1, 2, 3, 4, 5}})

	buf, err := m.GetFlattenedBuffer()
	if err != nil {
		t.Fatal(err)
	}
	got := message.New(0)
	if err := got.SetFromFlattenedBuffer(buf); err != nil {
		t.Fatal(err)
	}
	tc, ok := got.FieldType("weird")
	if !ok || tc != 0xDEADBEEF {
		t.Fatalf("field type = %v, ok = %v, want 0xDEADBEEF, true", tc, ok)
	}
	values := got.GetFieldContents("weird", 0xDEADBEEF, nil)
	if len(values) != 1 {
		t.Fatalf("expected 1 value, got %d", len(values))
	}
	if diff := cmp.Diff([]byte{1, 2, 3, 4, 5}, values[0].([]byte)); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestPointerFieldRefusesToFlatten(t *testing.T) {
	m := message.New(0)
	m.PutFieldContents("p", message.TypePointer, []interface{}{[]byte{0, 0, 0, 0}})
	if _, err := m.GetFlattenedBuffer(); err == nil {
		t.Fatalf("expected PNTR field to be refused")
	}
}

func TestBadProtocolVersion(t *testing.T) {
	buf := []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	m := message.New(0)
	if err := m.SetFromFlattenedBuffer(buf); err == nil {
		t.Fatalf("expected bad protocol version error")
	}
}

func TestTruncatedStream(t *testing.T) {
	m := message.New(1)
	m.PutString("s", "hello")
	buf, err := m.GetFlattenedBuffer()
	if err != nil {
		t.Fatal(err)
	}
	short := message.New(0)
	if err := short.SetFromFlattenedBuffer(buf[:len(buf)-2]); err == nil {
		t.Fatalf("expected truncated-stream error")
	}
}

func TestPointAndRect(t *testing.T) {
	m := message.New(1)
	m.PutPoint("pt", message.Point{X: 1.5, Y: -2.5})
	m.PutRect("rc", message.Rect{Left: 1, Top: 2, Right: 3, Bottom: 4})

	buf, err := m.GetFlattenedBuffer()
	if err != nil {
		t.Fatal(err)
	}
	got := message.New(0)
	if err := got.SetFromFlattenedBuffer(buf); err != nil {
		t.Fatal(err)
	}
	if got.GetPoint("pt") != (message.Point{X: 1.5, Y: -2.5}) {
		t.Fatalf("point mismatch: %+v", got.GetPoint("pt"))
	}
	if got.GetRect("rc") != (message.Rect{Left: 1, Top: 2, Right: 3, Bottom: 4}) {
		t.Fatalf("rect mismatch: %+v", got.GetRect("rc"))
	}
}

func TestFieldOrderPreserved(t *testing.T) {
	m := message.New(0)
	m.PutInt32("z", 1)
	m.PutInt32("a", 2)
	m.PutInt32("m", 3)
	if diff := cmp.Diff([]string{"z", "a", "m"}, m.FieldNames()); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}

	buf, _ := m.GetFlattenedBuffer()
	got := message.New(0)
	got.SetFromFlattenedBuffer(buf)
	if diff := cmp.Diff([]string{"z", "a", "m"}, got.FieldNames()); diff != "" {
		t.Fatalf("field order not preserved across round trip (-want +got):\n%s", diff)
	}
}

func TestPutFieldContentsReplacesRegardlessOfType(t *testing.T) {
	m := message.New(0)
	m.PutString("x", "hello")
	m.PutInt32("x", 5)
	if tc, _ := m.FieldType("x"); tc != message.TypeInt32 {
		t.Fatalf("expected field x to become LONG, got %v", tc)
	}
	if m.GetInt32("x") != 5 {
		t.Fatalf("expected 5, got %d", m.GetInt32("x"))
	}
}

func TestRemoveNameIsSilentNoOp(t *testing.T) {
	m := message.New(0)
	m.RemoveName("nonexistent") // must not panic
	m.PutInt32("x", 1)
	m.RemoveName("x")
	if m.HasField("x", message.TypeAny) {
		t.Fatalf("x should have been removed")
	}
}

func TestGetFieldItemNegativeIndexAndOutOfRange(t *testing.T) {
	m := message.New(0)
	m.PutInt32("n", 10, 20, 30)
	if m.GetFieldItem("n", message.TypeInt32, nil, -1) != int32(30) {
		t.Fatalf("index -1 should be the last element")
	}
	if m.GetFieldItem("n", message.TypeInt32, "default", 99) != "default" {
		t.Fatalf("out-of-range index should return the default")
	}
}

func TestStringMentionsFieldsAndNestsOneLevel(t *testing.T) {
	inner := message.New(1)
	inner.PutString("leaf", "deep")

	outer := message.New(666)
	outer.PutInt32("n", 1, 2, 3)
	outer.PutMessage("child", inner)

	s := outer.String()
	for _, want := range []string{"n:LONG", "child:MSGG", "leaf"} {
		if !strings.Contains(s, want) {
			t.Fatalf("String() = %q, want substring %q", s, want)
		}
	}
}
