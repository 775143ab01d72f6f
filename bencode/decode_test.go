package bencode

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// record mirrors a struct with one text field "a".
type record struct {
	A string
}

func (r *record) UnmarshalBencode(d *Decoder) error {
	return d.Fields(func(key string, d *Decoder) (err error) {
		switch key {
		case "a":
			r.A, err = d.Text()
		default:
			err = d.Skip()
		}
		return err
	})
}

func (r record) MarshalBencode(e *Encoder) error {
	m, err := e.EncodeStruct()
	if err != nil {
		return err
	}
	if err := m.Entry("a", String(r.A)); err != nil {
		return err
	}
	return m.End()
}

// nested has a text field and a record field.
type nested struct {
	A string
	B record
}

func (n *nested) UnmarshalBencode(d *Decoder) error {
	return d.Fields(func(key string, d *Decoder) (err error) {
		switch key {
		case "a":
			n.A, err = d.Text()
		case "b":
			err = n.B.UnmarshalBencode(d)
		default:
			err = d.Skip()
		}
		return err
	})
}

func (n nested) MarshalBencode(e *Encoder) error {
	m, err := e.EncodeStruct()
	if err != nil {
		return err
	}
	if err := m.Entry("a", String(n.A)); err != nil {
		return err
	}
	if err := m.Entry("b", n.B); err != nil {
		return err
	}
	return m.End()
}

// ============================================================
// Scenarios
// ============================================================

func TestDecode_Record(t *testing.T) {
	var r record
	require.NoError(t, UnmarshalString("d1:a5:helloe", &r))
	assert.Equal(t, "hello", r.A)
}

func TestDecode_NestedRecord(t *testing.T) {
	var n nested
	require.NoError(t, UnmarshalString("d1:a5:hello1:bd1:a5:worldee", &n))
	assert.Equal(t, "hello", n.A)
	assert.Equal(t, "world", n.B.A)
}

func TestDecode_UnknownFieldsSkipped(t *testing.T) {
	var r record
	require.NoError(t, UnmarshalString("d1:xli1eli2ed1:yi3eee1:a2:ok1:zi-4ee", &r))
	assert.Equal(t, "ok", r.A)
}

func TestDecode_StringList(t *testing.T) {
	var s Strings
	require.NoError(t, UnmarshalString("l1:a1:b1:ce", &s))
	assert.Equal(t, Strings{"a", "b", "c"}, s)
}

func TestDecode_Integers(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"i10e", 10},
		{"i-3e", -3},
		{"i0e", 0},
		{"i-5e", -5},
		{"i03e", 3},
		{"i-0e", 0},
		{"i9223372036854775807e", math.MaxInt64},
		{"i-9223372036854775808e", math.MinInt64},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var n Int
			require.NoError(t, UnmarshalString(tt.input, &n))
			assert.Equal(t, tt.expected, int64(n))
		})
	}
}

func TestDecode_Strings(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"0:", ""},
		{"1:a", "a"},
		{"5:hello", "hello"},
		{"11:hello world", "hello world"},
		{"4:d1:e", "d1:e"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var s String
			require.NoError(t, UnmarshalString(tt.input, &s))
			assert.Equal(t, tt.expected, string(s))

			var b Bytes
			require.NoError(t, Unmarshal([]byte(tt.input), &b))
			assert.Equal(t, tt.expected, string(b))
		})
	}
}

func TestDecode_BinaryBytes(t *testing.T) {
	var b Bytes
	require.NoError(t, Unmarshal([]byte("3:\x00\xff\x10"), &b))
	assert.Equal(t, Bytes{0x00, 0xff, 0x10}, b)

	var s String
	err := Unmarshal([]byte("2:\xff\xfe"), &s)
	assert.True(t, errors.Is(err, ErrInvalidText))
}

func TestDecode_EmptyContainers(t *testing.T) {
	var s Strings
	require.NoError(t, UnmarshalString("le", &s))
	assert.Empty(t, s)

	var r record
	require.NoError(t, UnmarshalString("de", &r))
	assert.Equal(t, "", r.A)
}

// ============================================================
// Malformed input
// ============================================================

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		target func() Unmarshaler
		want   error
	}{
		{"length exceeds input", "3:ab", func() Unmarshaler { return new(String) }, ErrBufferTooShort},
		{"malformed integer", "ix e", func() Unmarshaler { return new(Int) }, ErrExpectedInteger},
		{"sign without digits", "i-e", func() Unmarshaler { return new(Int) }, ErrExpectedInteger},
		{"empty integer", "ie", func() Unmarshaler { return new(Int) }, ErrExpectedInteger},
		{"junk in digits", "i12xe", func() Unmarshaler { return new(Int) }, ErrUnexpectedCharacter},
		{"double sign", "i--1e", func() Unmarshaler { return new(Int) }, ErrExpectedInteger},
		{"unterminated integer", "i12", func() Unmarshaler { return new(Int) }, ErrUnexpectedEnd},
		{"missing i", "1:a", func() Unmarshaler { return new(Int) }, ErrExpectedI},
		{"integer overflow", "i9223372036854775808e", func() Unmarshaler { return new(Int) }, ErrIntegerOverflow},
		{"negative overflow", "i-9223372036854775809e", func() Unmarshaler { return new(Int) }, ErrIntegerOverflow},
		{"missing colon", "3x:abc", func() Unmarshaler { return new(String) }, ErrExpectedColon},
		{"length not a digit", "x:abc", func() Unmarshaler { return new(String) }, ErrExpectedInteger},
		{"empty input", "", func() Unmarshaler { return new(String) }, ErrUnexpectedEnd},
		{"dangling key", "d1:ae", func() Unmarshaler { return new(record) }, ErrExpectedInteger},
		{"dangling key dynamic", "d1:ae", func() Unmarshaler { return new(Value) }, ErrSyntax},
		{"integer key", "di1ei2ee", func() Unmarshaler { return new(Value) }, ErrExpectedInteger},
		{"unterminated list", "l1:a", func() Unmarshaler { return new(Strings) }, ErrUnexpectedEnd},
		{"unterminated dict", "d1:a1:b", func() Unmarshaler { return new(record) }, ErrUnexpectedEnd},
		{"list for record", "le", func() Unmarshaler { return new(record) }, ErrExpectedMap},
		{"record for list", "de", func() Unmarshaler { return new(Strings) }, ErrExpectedList},
		{"trailing bytes", "i1ei2e", func() Unmarshaler { return new(Int) }, ErrTrailingCharacters},
		{"trailing after record", "d1:a1:bex", func() Unmarshaler { return new(record) }, ErrTrailingCharacters},
		{"unknown marker", "x", func() Unmarshaler { return new(Value) }, ErrSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := UnmarshalString(tt.input, tt.target())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v, want kind %v", err, tt.want)
		})
	}
}

func TestDecode_ErrorOffset(t *testing.T) {
	err := UnmarshalString("3x:abc", new(String))
	var berr *Error
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, KindExpectedColon, berr.Kind)
	assert.Equal(t, 1, berr.Offset)
	assert.Contains(t, err.Error(), "expected ':'")
	assert.Contains(t, err.Error(), "offset 1")

	err = UnmarshalString("i1ei2e", new(Int))
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, 3, berr.Offset)
}

// firstOnly reads a single element and stops, leaving the list open.
type firstOnly struct {
	BaseVisitor
	got string
}

func (f *firstOnly) VisitList(seq *SeqAccess) error {
	var s String
	_, err := seq.NextElement(&s)
	f.got = string(s)
	return err
}

func (f *firstOnly) VisitDict(m *MapAccess) error {
	key, _, err := m.NextKeyString()
	if err != nil {
		return err
	}
	f.got = key
	return m.SkipValue()
}

func TestDecode_ContainerStoppedEarly(t *testing.T) {
	v := &firstOnly{}
	err := UnmarshalString("l1:a1:be", UnmarshalerFunc(func(d *Decoder) error {
		return d.DecodeList(v)
	}))
	assert.True(t, errors.Is(err, ErrExpectedListEnd))
	assert.Equal(t, "a", v.got)

	v = &firstOnly{}
	err = UnmarshalString("d1:ai1e1:bi2ee", UnmarshalerFunc(func(d *Decoder) error {
		return d.DecodeDict(v)
	}))
	assert.True(t, errors.Is(err, ErrExpectedMapEnd))
	assert.Equal(t, "a", v.got)
}

// upperKeys reads dictionary keys through NextKey with its own key
// decoder, upper-casing them.
type upperKeys struct {
	BaseVisitor
	keys []string
	vals []int64
}

func (u *upperKeys) VisitDict(m *MapAccess) error {
	for {
		var key string
		ok, err := m.NextKey(UnmarshalerFunc(func(d *Decoder) error {
			b, err := d.ByteString()
			key = strings.ToUpper(string(b))
			return err
		}))
		if err != nil || !ok {
			return err
		}
		var v Int
		if err := m.NextValue(&v); err != nil {
			return err
		}
		u.keys = append(u.keys, key)
		u.vals = append(u.vals, int64(v))
	}
}

func TestDecode_NextKey(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		keys   []string
		vals   []int64
		want   error
		offset int
	}{
		{"custom keys", "d1:ai1e2:bbi2ee", []string{"A", "BB"}, []int64{1, 2}, nil, 0},
		{"empty", "de", nil, nil, nil, 0},
		{"integer key", "di1ei2ee", nil, nil, ErrExpectedInteger, 1},
		{"list key", "dli1eei1ee", nil, nil, ErrExpectedInteger, 1},
		{"integer key after entry", "d1:ai1ei2ei3ee", []string{"A"}, []int64{1}, ErrExpectedInteger, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &upperKeys{}
			err := UnmarshalString(tt.input, UnmarshalerFunc(func(d *Decoder) error {
				return d.DecodeDict(u)
			}))
			assert.Equal(t, tt.keys, u.keys)
			assert.Equal(t, tt.vals, u.vals)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			var berr *Error
			require.True(t, errors.As(err, &berr))
			assert.Equal(t, tt.offset, berr.Offset)
		})
	}
}

// anyVisitor records which visit method DecodeAny chose.
type anyVisitor struct {
	BaseVisitor
	kind string
}

func (a *anyVisitor) VisitString(string) error {
	a.kind = "string"
	return nil
}

func (a *anyVisitor) VisitDict(m *MapAccess) error {
	a.kind = "dict"
	for {
		_, ok, err := m.NextKeyBytes()
		if err != nil || !ok {
			return err
		}
		if err := m.SkipValue(); err != nil {
			return err
		}
	}
}

func TestDecode_Any(t *testing.T) {
	tests := []struct {
		input string
		kind  string
		err   error
	}{
		{"d1:ai1ee", "dict", nil},
		{"3:abc", "string", nil},
		{"i1e", "", ErrSyntax},
		{"le", "", ErrSyntax},
		{"", "", ErrUnexpectedEnd},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v := &anyVisitor{}
			err := UnmarshalString(tt.input, UnmarshalerFunc(func(d *Decoder) error {
				return d.DecodeAny(v)
			}))
			if tt.err != nil {
				assert.True(t, errors.Is(err, tt.err), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.kind)
		})
	}
}

func TestDecode_UnsupportedKinds(t *testing.T) {
	kinds := map[string]func(*Decoder) error{
		"bool":    func(d *Decoder) error { return d.DecodeBool(BaseVisitor{}) },
		"float":   func(d *Decoder) error { return d.DecodeFloat(BaseVisitor{}) },
		"option":  func(d *Decoder) error { return d.DecodeOption(BaseVisitor{}) },
		"unit":    func(d *Decoder) error { return d.DecodeUnit(BaseVisitor{}) },
		"enum":    func(d *Decoder) error { return d.DecodeEnum(BaseVisitor{}) },
		"bytebuf": func(d *Decoder) error { return d.DecodeByteBuf(BaseVisitor{}) },
	}

	for name, fn := range kinds {
		t.Run(name, func(t *testing.T) {
			err := UnmarshalString("i1e", UnmarshalerFunc(fn))
			assert.True(t, errors.Is(err, ErrUnsupported), "got %v", err)
		})
	}
}

func TestDecode_VisitorTypeMismatch(t *testing.T) {
	err := UnmarshalString("i1e", UnmarshalerFunc(func(d *Decoder) error {
		return d.DecodeInt(BaseVisitor{Expecting: "a peer record"})
	}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCustom))
	assert.Contains(t, err.Error(), "invalid type: integer, expected a peer record")
}

func TestDecode_AccessAfterClose(t *testing.T) {
	var kept *SeqAccess
	err := UnmarshalString("le", UnmarshalerFunc(func(d *Decoder) error {
		return d.DecodeList(listFunc(func(seq *SeqAccess) error {
			kept = seq
			_, err := seq.NextElement(new(Int))
			return err
		}))
	}))
	require.NoError(t, err)

	_, err = kept.NextElement(new(Int))
	assert.True(t, errors.Is(err, ErrCustom))
}

type listFunc func(seq *SeqAccess) error

func (f listFunc) VisitInt(int64) error           { return Errorf("unexpected") }
func (f listFunc) VisitString(string) error       { return Errorf("unexpected") }
func (f listFunc) VisitBytes([]byte) error        { return Errorf("unexpected") }
func (f listFunc) VisitList(seq *SeqAccess) error { return f(seq) }
func (f listFunc) VisitDict(*MapAccess) error     { return Errorf("unexpected") }

func TestDecode_FieldValueNotConsumed(t *testing.T) {
	err := UnmarshalString("d1:ai1ee", UnmarshalerFunc(func(d *Decoder) error {
		return d.Fields(func(string, *Decoder) error { return nil })
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "a": value not consumed`)
}

// ============================================================
// Options
// ============================================================

func TestDecode_Strict(t *testing.T) {
	tests := []struct {
		input  string
		strict error
	}{
		{"i03e", ErrLeadingZero},
		{"i-0e", ErrLeadingZero},
		{"i-03e", ErrLeadingZero},
		{"i0e", nil},
		{"i30e", nil},
		{"03:abc", ErrLeadingZero},
		{"0:", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := DecodeWithOptions([]byte(tt.input), DefaultDecodeOptions())
			require.NoError(t, err, "lenient mode accepts leading zeros")

			_, err = DecodeWithOptions([]byte(tt.input), StrictDecodeOptions())
			if tt.strict == nil {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, tt.strict), "got %v", err)
			}
		})
	}
}

func TestDecode_MaxDepth(t *testing.T) {
	deep := strings.Repeat("l", 10) + strings.Repeat("e", 10)

	_, err := DecodeWithOptions([]byte(deep), DecodeOptions{MaxDepth: 10})
	require.NoError(t, err)

	_, err = DecodeWithOptions([]byte(deep), DecodeOptions{MaxDepth: 9})
	assert.True(t, errors.Is(err, ErrNestingTooDeep))

	hostile := strings.Repeat("l", DefaultMaxDepth+1)
	_, err = Decode([]byte(hostile))
	assert.True(t, errors.Is(err, ErrNestingTooDeep))
}

func TestDecode_SkipAllKinds(t *testing.T) {
	input := "i-12e5:helloli1el1:aee" + "d1:kd1:xi1eee"
	d := NewDecoder(NewStringInput(input), DefaultDecodeOptions())
	for i := 0; i < 4; i++ {
		require.NoError(t, d.Skip(), "value %d", i)
	}
	assert.NoError(t, d.End())
}
