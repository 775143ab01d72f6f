package bencode

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Type is the wire kind of a Value.
type Type uint8

const (
	TypeInvalid Type = iota
	TypeInt
	TypeString
	TypeList
	TypeDict
)

// String returns the type name.
func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeString:
		return "string"
	case TypeList:
		return "list"
	case TypeDict:
		return "dict"
	default:
		return "invalid"
	}
}

// Value is a decoded bencode value of any kind. Dictionary entries keep
// wire order.
type Value struct {
	typ     Type
	intVal  int64
	strVal  []byte
	listVal []*Value
	dictVal []Entry
}

// Entry is one key/value pair of a dictionary. Key holds the raw key
// bytes, which need not be UTF-8.
type Entry struct {
	Key   string
	Value *Value
}

// NewInt returns an integer value.
func NewInt(n int64) *Value {
	return &Value{typ: TypeInt, intVal: n}
}

// NewString returns a byte string value holding s.
func NewString(s string) *Value {
	return &Value{typ: TypeString, strVal: []byte(s)}
}

// NewBytes returns a byte string value holding a copy of b.
func NewBytes(b []byte) *Value {
	return &Value{typ: TypeString, strVal: append([]byte{}, b...)}
}

// NewList returns a list value.
func NewList(items ...*Value) *Value {
	if items == nil {
		items = []*Value{}
	}
	return &Value{typ: TypeList, listVal: items}
}

// NewDict returns a dictionary value with entries in the given order.
func NewDict(entries ...Entry) *Value {
	if entries == nil {
		entries = []Entry{}
	}
	return &Value{typ: TypeDict, dictVal: entries}
}

// Type returns the value's kind.
func (v *Value) Type() Type {
	if v == nil {
		return TypeInvalid
	}
	return v.typ
}

// AsInt returns the integer held by v.
func (v *Value) AsInt() (int64, error) {
	if v.Type() != TypeInt {
		return 0, fmt.Errorf("bencode: value is %s, not int", v.Type())
	}
	return v.intVal, nil
}

// AsBytes returns the byte string held by v. The slice is shared with v.
func (v *Value) AsBytes() ([]byte, error) {
	if v.Type() != TypeString {
		return nil, fmt.Errorf("bencode: value is %s, not string", v.Type())
	}
	return v.strVal, nil
}

// AsString returns the byte string held by v as a Go string.
func (v *Value) AsString() (string, error) {
	b, err := v.AsBytes()
	return string(b), err
}

// List returns the elements of a list value, or nil.
func (v *Value) List() []*Value {
	if v.Type() != TypeList {
		return nil
	}
	return v.listVal
}

// Entries returns the entries of a dictionary value, or nil.
func (v *Value) Entries() []Entry {
	if v.Type() != TypeDict {
		return nil
	}
	return v.dictVal
}

// Get returns the value stored under key in a dictionary, or nil. With
// duplicate keys the first one wins.
func (v *Value) Get(key string) *Value {
	for _, e := range v.Entries() {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}

// Len returns the number of list elements, dictionary entries or
// string bytes.
func (v *Value) Len() int {
	switch v.Type() {
	case TypeString:
		return len(v.strVal)
	case TypeList:
		return len(v.listVal)
	case TypeDict:
		return len(v.dictVal)
	default:
		return 0
	}
}

// Append adds items to a list value.
func (v *Value) Append(items ...*Value) {
	if v.Type() == TypeList {
		v.listVal = append(v.listVal, items...)
	}
}

// Set replaces the first entry stored under key, or appends a new one.
func (v *Value) Set(key string, val *Value) {
	if v.Type() != TypeDict {
		return
	}
	for i := range v.dictVal {
		if v.dictVal[i].Key == key {
			v.dictVal[i].Value = val
			return
		}
	}
	v.dictVal = append(v.dictVal, Entry{Key: key, Value: val})
}

// Equal reports whether v and o hold the same value, comparing
// dictionary entries in order.
func (v *Value) Equal(o *Value) bool {
	if v.Type() != o.Type() {
		return false
	}
	switch v.Type() {
	case TypeInt:
		return v.intVal == o.intVal
	case TypeString:
		return bytes.Equal(v.strVal, o.strVal)
	case TypeList:
		if len(v.listVal) != len(o.listVal) {
			return false
		}
		for i := range v.listVal {
			if !v.listVal[i].Equal(o.listVal[i]) {
				return false
			}
		}
		return true
	case TypeDict:
		if len(v.dictVal) != len(o.dictVal) {
			return false
		}
		for i := range v.dictVal {
			if v.dictVal[i].Key != o.dictVal[i].Key || !v.dictVal[i].Value.Equal(o.dictVal[i].Value) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String renders v for debugging: 42, "text", [a b], {k: v}.
func (v *Value) String() string {
	var sb strings.Builder
	v.format(&sb)
	return sb.String()
}

func (v *Value) format(sb *strings.Builder) {
	switch v.Type() {
	case TypeInt:
		sb.WriteString(strconv.FormatInt(v.intVal, 10))
	case TypeString:
		sb.WriteString(strconv.Quote(string(v.strVal)))
	case TypeList:
		sb.WriteByte('[')
		for i, item := range v.listVal {
			if i > 0 {
				sb.WriteByte(' ')
			}
			item.format(sb)
		}
		sb.WriteByte(']')
	case TypeDict:
		sb.WriteByte('{')
		for i, e := range v.dictVal {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strconv.Quote(e.Key))
			sb.WriteString(": ")
			e.Value.format(sb)
		}
		sb.WriteByte('}')
	default:
		sb.WriteString("<invalid>")
	}
}

// MarshalBencode writes v.
func (v *Value) MarshalBencode(e *Encoder) error {
	switch v.Type() {
	case TypeInt:
		return e.EncodeInt(v.intVal)
	case TypeString:
		return e.EncodeBytes(v.strVal)
	case TypeList:
		l, err := e.EncodeList()
		if err != nil {
			return err
		}
		for _, item := range v.listVal {
			if err := l.Element(item); err != nil {
				return err
			}
		}
		return l.End()
	case TypeDict:
		m, err := e.EncodeDict()
		if err != nil {
			return err
		}
		for _, entry := range v.dictVal {
			if err := m.Entry(entry.Key, entry.Value); err != nil {
				return err
			}
		}
		return m.End()
	default:
		return Errorf("cannot encode invalid value")
	}
}

// UnmarshalBencode reads one value of any kind into v.
func (v *Value) UnmarshalBencode(d *Decoder) error {
	c, err := d.Peek()
	if err != nil {
		return err
	}
	visitor := valueVisitor{v: v}
	switch {
	case c == 'i':
		return d.DecodeInt(visitor)
	case isDigit(c):
		return d.DecodeBytes(visitor)
	case c == 'l':
		return d.DecodeList(visitor)
	case c == 'd':
		return d.DecodeDict(visitor)
	default:
		return newError(KindSyntax, d.Offset(), fmt.Sprintf("unexpected %q", c))
	}
}

// Decode parses data as exactly one value.
func Decode(data []byte) (*Value, error) {
	v := &Value{}
	if err := Unmarshal(data, v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeWithOptions parses data as exactly one value with custom options.
func DecodeWithOptions(data []byte, opts DecodeOptions) (*Value, error) {
	v := &Value{}
	if err := UnmarshalWithOptions(data, v, opts); err != nil {
		return nil, err
	}
	return v, nil
}

type valueVisitor struct {
	BaseVisitor
	v *Value
}

func (vv valueVisitor) VisitInt(n int64) error {
	*vv.v = Value{typ: TypeInt, intVal: n}
	return nil
}

func (vv valueVisitor) VisitString(s string) error {
	*vv.v = Value{typ: TypeString, strVal: []byte(s)}
	return nil
}

func (vv valueVisitor) VisitBytes(b []byte) error {
	*vv.v = Value{typ: TypeString, strVal: append([]byte{}, b...)}
	return nil
}

func (vv valueVisitor) VisitList(seq *SeqAccess) error {
	items := []*Value{}
	for {
		item := &Value{}
		ok, err := seq.NextElement(item)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		items = append(items, item)
	}
	*vv.v = Value{typ: TypeList, listVal: items}
	return nil
}

func (vv valueVisitor) VisitDict(m *MapAccess) error {
	entries := []Entry{}
	for {
		key, ok, err := m.NextKeyBytes()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		entry := Entry{Key: string(key), Value: &Value{}}
		if err := m.NextValue(entry.Value); err != nil {
			return err
		}
		entries = append(entries, entry)
	}
	*vv.v = Value{typ: TypeDict, dictVal: entries}
	return nil
}
