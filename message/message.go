package message

import (
	"fmt"
	"strings"
)

// field holds one named entry: a type code and the list of values
// sharing that type. All values in a field always share one type.
type field struct {
	typeCode TypeCode
	values   []interface{}
}

// Message is a typed, named, multivalued, nestable record: the codec's
// unit of transport (spec.md §3.2). The zero value is usable — What
// defaults to 0 and the field set is empty.
type Message struct {
	What uint32

	order  []string
	fields map[string]*field
}

// New constructs an empty Message with the given what-code.
func New(what uint32) *Message {
	return &Message{What: what}
}

func (m *Message) ensureFields() {
	if m.fields == nil {
		m.fields = make(map[string]*field)
	}
}

// PutFieldContents adds (or entirely replaces) a field, regardless of
// the type of any field previously stored under the same name.
func (m *Message) PutFieldContents(name string, typeCode TypeCode, values []interface{}) {
	m.ensureFields()
	if _, exists := m.fields[name]; !exists {
		m.order = append(m.order, name)
	}
	cp := make([]interface{}, len(values))
	copy(cp, values)
	m.fields[name] = &field{typeCode: typeCode, values: cp}
}

// RemoveName removes a field by name; a no-op if absent.
func (m *Message) RemoveName(name string) {
	if m.fields == nil {
		return
	}
	if _, exists := m.fields[name]; !exists {
		return
	}
	delete(m.fields, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Clear removes every field and resets What to zero.
func (m *Message) Clear() {
	m.What = 0
	m.fields = nil
	m.order = nil
}

// FieldNames returns field names in insertion order.
func (m *Message) FieldNames() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// FieldType returns the type code of the named field, and whether it exists.
func (m *Message) FieldType(name string) (TypeCode, bool) {
	if m.fields == nil {
		return 0, false
	}
	f, ok := m.fields[name]
	if !ok {
		return 0, false
	}
	return f.typeCode, true
}

// HasField reports whether name exists with the given type code, or
// with any type code when expectedType is TypeAny.
func (m *Message) HasField(name string, expectedType TypeCode) bool {
	tc, ok := m.FieldType(name)
	if !ok {
		return false
	}
	return expectedType == TypeAny || tc == expectedType
}

// GetFieldContents returns the field's full value list on an exact type
// match (or when expectedType is TypeAny), else def.
func (m *Message) GetFieldContents(name string, expectedType TypeCode, def []interface{}) []interface{} {
	if m.fields == nil {
		return def
	}
	f, ok := m.fields[name]
	if !ok {
		return def
	}
	if expectedType != TypeAny && f.typeCode != expectedType {
		return def
	}
	out := make([]interface{}, len(f.values))
	copy(out, f.values)
	return out
}

// GetFieldItem returns the index'th value of the named field (negative
// indices count from the end), or def if the field is absent, the
// wrong type, or the index is out of range.
func (m *Message) GetFieldItem(name string, expectedType TypeCode, def interface{}, index int) interface{} {
	values := m.GetFieldContents(name, expectedType, nil)
	if values == nil {
		return def
	}
	n := len(values)
	if index < 0 {
		index += n
	}
	if index < 0 || index >= n {
		return def
	}
	return values[index]
}

// String renders a one-level-deep summary of the Message's what-code and
// fields; for nested sub-Messages only their what-code and field
// names/types are shown, with values elided as "...". Not a full
// PrintToStream equivalent, just enough for log lines and test failures
// to be readable.
func (m *Message) String() string {
	return m.stringAtDepth(defaultStringMaxDepth)
}

func (m *Message) stringAtDepth(maxDepth int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Message(what=%s, fields={", TypeCode(m.What))
	for i, name := range m.order {
		if i > 0 {
			b.WriteString(", ")
		}
		f := m.fields[name]
		fmt.Fprintf(&b, "%s:%s=", name, f.typeCode)
		if maxDepth <= 0 {
			b.WriteString("...")
			continue
		}
		b.WriteString("[")
		for j, v := range f.values {
			if j > 0 {
				b.WriteString(" ")
			}
			if sub, ok := v.(*Message); ok {
				b.WriteString(sub.stringAtDepth(maxDepth - 1))
			} else {
				fmt.Fprintf(&b, "%v", v)
			}
		}
		b.WriteString("]")
	}
	b.WriteString("})")
	return b.String()
}

// defaultStringMaxDepth bounds String's recursion into nested sub-Messages.
const defaultStringMaxDepth = 1
