package bencode

import (
	"fmt"
	"math"
)

// DefaultMaxDepth bounds container nesting when DecodeOptions.MaxDepth
// is zero.
const DefaultMaxDepth = 512

// Visitor receives the values the Decoder parses. A target shape
// implements the methods for the wire kinds it accepts and embeds
// BaseVisitor for the rest.
type Visitor interface {
	VisitInt(v int64) error
	VisitString(s string) error
	VisitBytes(b []byte) error
	VisitList(seq *SeqAccess) error
	VisitDict(m *MapAccess) error
}

// Unmarshaler is implemented by values that can construct themselves
// from a Decoder. Implementations decode exactly one value.
type Unmarshaler interface {
	UnmarshalBencode(d *Decoder) error
}

// UnmarshalerFunc adapts a function to the Unmarshaler interface.
type UnmarshalerFunc func(d *Decoder) error

// UnmarshalBencode calls f(d).
func (f UnmarshalerFunc) UnmarshalBencode(d *Decoder) error { return f(d) }

// DecodeOptions configures the decoder.
type DecodeOptions struct {
	// MaxDepth limits nested lists and dictionaries (0 = DefaultMaxDepth).
	MaxDepth int

	// Strict rejects integers and length prefixes with leading zeros
	// ("i03e", "i-0e", "03:abc").
	Strict bool
}

// DefaultDecodeOptions returns the lenient defaults.
func DefaultDecodeOptions() DecodeOptions {
	return DecodeOptions{MaxDepth: DefaultMaxDepth}
}

// StrictDecodeOptions returns options that reject non-canonical numbers.
func StrictDecodeOptions() DecodeOptions {
	return DecodeOptions{MaxDepth: DefaultMaxDepth, Strict: true}
}

// Decoder parses bencode from an Input and drives Visitors.
type Decoder struct {
	in    *Input
	opts  DecodeOptions
	depth int
}

// NewDecoder returns a Decoder reading from in.
func NewDecoder(in *Input, opts DecodeOptions) *Decoder {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &Decoder{in: in, opts: opts}
}

// Unmarshal decodes data into v. The whole input must be exactly one value.
func Unmarshal(data []byte, v Unmarshaler) error {
	return UnmarshalWithOptions(data, v, DefaultDecodeOptions())
}

// UnmarshalString decodes text into v. Strings produced while decoding
// share memory with text.
func UnmarshalString(text string, v Unmarshaler) error {
	return UnmarshalStringWithOptions(text, v, DefaultDecodeOptions())
}

// UnmarshalWithOptions decodes data into v with custom options.
func UnmarshalWithOptions(data []byte, v Unmarshaler, opts DecodeOptions) error {
	return decodeAll(NewInput(data), v, opts)
}

// UnmarshalStringWithOptions decodes text into v with custom options.
func UnmarshalStringWithOptions(text string, v Unmarshaler, opts DecodeOptions) error {
	return decodeAll(NewStringInput(text), v, opts)
}

func decodeAll(in *Input, v Unmarshaler, opts DecodeOptions) error {
	d := NewDecoder(in, opts)
	if err := v.UnmarshalBencode(d); err != nil {
		return err
	}
	return d.End()
}

// End reports TrailingCharacters if any input is left.
func (d *Decoder) End() error {
	if _, err := d.in.Peek(); err == nil {
		return newError(KindTrailingCharacters, d.in.Offset(), fmt.Sprintf("%d bytes", d.in.Remaining()))
	}
	return nil
}

// Peek returns the next unread byte without consuming it.
func (d *Decoder) Peek() (byte, error) {
	return d.in.Peek()
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int {
	return d.in.Offset()
}

// DecodeAny decodes whatever the wire holds next. Only dictionaries and
// byte strings can be inferred; integers and lists must be requested
// explicitly.
func (d *Decoder) DecodeAny(v Visitor) error {
	c, err := d.in.Peek()
	if err != nil {
		return err
	}
	switch {
	case c == 'd':
		return d.DecodeDict(v)
	case isDigit(c):
		return d.DecodeString(v)
	default:
		return newError(KindSyntax, d.in.Offset(), fmt.Sprintf("unexpected %q", c))
	}
}

// DecodeInt parses a signed integer and passes it to v.VisitInt.
func (d *Decoder) DecodeInt(v Visitor) error {
	n, err := d.parseInt()
	if err != nil {
		return err
	}
	return v.VisitInt(n)
}

// DecodeString parses a byte string that must be UTF-8 text and passes
// it to v.VisitString.
func (d *Decoder) DecodeString(v Visitor) error {
	n, err := d.parseLength()
	if err != nil {
		return err
	}
	s, err := d.in.ReadString(n)
	if err != nil {
		return err
	}
	return v.VisitString(s)
}

// DecodeBytes parses a byte string of arbitrary content and passes it to
// v.VisitBytes.
func (d *Decoder) DecodeBytes(v Visitor) error {
	n, err := d.parseLength()
	if err != nil {
		return err
	}
	b, err := d.in.ReadBytes(n)
	if err != nil {
		return err
	}
	return v.VisitBytes(b)
}

// DecodeList parses a list, handing v a SeqAccess for its elements.
func (d *Decoder) DecodeList(v Visitor) error {
	start := d.in.Offset()
	c, err := d.in.Next()
	if err != nil {
		return err
	}
	if c != 'l' {
		return newError(KindExpectedList, start, fmt.Sprintf("found %q", c))
	}
	if err := d.enter(start); err != nil {
		return err
	}
	seq := &SeqAccess{d: d}
	err = v.VisitList(seq)
	seq.d = nil
	d.depth--
	if err != nil {
		return err
	}

	end := d.in.Offset()
	c, err = d.in.Next()
	if err != nil {
		return err
	}
	if c != 'e' {
		return newError(KindExpectedListEnd, end, fmt.Sprintf("found %q", c))
	}
	return nil
}

// DecodeDict parses a dictionary, handing v a MapAccess for its entries.
func (d *Decoder) DecodeDict(v Visitor) error {
	start := d.in.Offset()
	c, err := d.in.Next()
	if err != nil {
		return err
	}
	if c != 'd' {
		return newError(KindExpectedMap, start, fmt.Sprintf("found %q", c))
	}
	if err := d.enter(start); err != nil {
		return err
	}
	m := &MapAccess{d: d}
	err = v.VisitDict(m)
	m.d = nil
	d.depth--
	if err != nil {
		return err
	}

	end := d.in.Offset()
	c, err = d.in.Next()
	if err != nil {
		return err
	}
	if c != 'e' {
		return newError(KindExpectedMapEnd, end, fmt.Sprintf("found %q", c))
	}
	return nil
}

// DecodeStruct decodes a record. On the wire a record is a dictionary
// keyed by field name; matching keys to fields is up to v.
func (d *Decoder) DecodeStruct(v Visitor) error {
	return d.DecodeDict(v)
}

// The kinds below have no bencode representation.

func (d *Decoder) DecodeBool(Visitor) error    { return d.unsupported("bool") }
func (d *Decoder) DecodeFloat(Visitor) error   { return d.unsupported("float") }
func (d *Decoder) DecodeOption(Visitor) error  { return d.unsupported("option") }
func (d *Decoder) DecodeUnit(Visitor) error    { return d.unsupported("unit") }
func (d *Decoder) DecodeEnum(Visitor) error    { return d.unsupported("enum") }
func (d *Decoder) DecodeByteBuf(Visitor) error { return d.unsupported("owned byte buffer") }

func (d *Decoder) unsupported(what string) error {
	return newError(KindUnsupported, d.in.Offset(), what)
}

// Skip consumes one well-formed value of any kind.
func (d *Decoder) Skip() error {
	c, err := d.in.Peek()
	if err != nil {
		return err
	}
	switch {
	case c == 'i':
		_, err := d.parseInt()
		return err
	case isDigit(c):
		n, err := d.parseLength()
		if err != nil {
			return err
		}
		return d.in.skip(n)
	case c == 'l':
		return d.DecodeList(skipVisitor{})
	case c == 'd':
		return d.DecodeDict(skipVisitor{})
	default:
		return newError(KindSyntax, d.in.Offset(), fmt.Sprintf("unexpected %q", c))
	}
}

func (d *Decoder) enter(offset int) error {
	if d.depth >= d.opts.MaxDepth {
		return newError(KindNestingTooDeep, offset, fmt.Sprintf("limit %d", d.opts.MaxDepth))
	}
	d.depth++
	return nil
}

// parseInt parses i<digits>e with an optional single '-'.
func (d *Decoder) parseInt() (int64, error) {
	start := d.in.Offset()
	c, err := d.in.Next()
	if err != nil {
		return 0, err
	}
	if c != 'i' {
		return 0, newError(KindExpectedI, start, fmt.Sprintf("found %q", c))
	}

	c, err = d.in.Next()
	if err != nil {
		return 0, err
	}
	neg := c == '-'
	if neg {
		if c, err = d.in.Next(); err != nil {
			return 0, err
		}
	}
	if !isDigit(c) {
		return 0, newError(KindExpectedInteger, d.in.Offset()-1, fmt.Sprintf("found %q", c))
	}

	limit := uint64(math.MaxInt64)
	if neg {
		limit++
	}
	first := c
	digits := 1
	mag := uint64(c - '0')
	for {
		if c, err = d.in.Next(); err != nil {
			return 0, err
		}
		if c == 'e' {
			break
		}
		if !isDigit(c) {
			return 0, newError(KindUnexpectedCharacter, d.in.Offset()-1, fmt.Sprintf("found %q", c))
		}
		digit := uint64(c - '0')
		if mag > (limit-digit)/10 {
			return 0, newError(KindIntegerOverflow, start, "")
		}
		mag = mag*10 + digit
		digits++
	}

	if d.opts.Strict && first == '0' && (digits > 1 || neg) {
		return 0, newError(KindLeadingZero, start, "")
	}
	if neg {
		return int64(-mag), nil
	}
	return int64(mag), nil
}

// parseLength parses the <digits>: prefix of a byte string.
func (d *Decoder) parseLength() (int, error) {
	start := d.in.Offset()
	c, err := d.in.Next()
	if err != nil {
		return 0, err
	}
	if !isDigit(c) {
		return 0, newError(KindExpectedInteger, start, fmt.Sprintf("found %q", c))
	}

	first := c
	digits := 1
	n := int(c - '0')
	for {
		if c, err = d.in.Next(); err != nil {
			return 0, err
		}
		if c == ':' {
			break
		}
		if !isDigit(c) {
			return 0, newError(KindExpectedColon, d.in.Offset()-1, fmt.Sprintf("found %q", c))
		}
		digit := int(c - '0')
		if n > (math.MaxInt-digit)/10 {
			return 0, newError(KindIntegerOverflow, start, "string length")
		}
		n = n*10 + digit
		digits++
	}

	if d.opts.Strict && first == '0' && digits > 1 {
		return 0, newError(KindLeadingZero, start, "string length")
	}
	return n, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

type skipVisitor struct{ BaseVisitor }

var skipValue = UnmarshalerFunc(func(d *Decoder) error { return d.Skip() })

func (skipVisitor) VisitList(seq *SeqAccess) error {
	for {
		ok, err := seq.NextElement(skipValue)
		if err != nil || !ok {
			return err
		}
	}
}

func (skipVisitor) VisitDict(m *MapAccess) error {
	for {
		_, ok, err := m.NextKeyBytes()
		if err != nil || !ok {
			return err
		}
		if err := m.NextValue(skipValue); err != nil {
			return err
		}
	}
}
