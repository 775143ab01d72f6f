package bencode

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Marshaler is implemented by values that can describe themselves to an
// Encoder. Implementations emit exactly one value.
type Marshaler interface {
	MarshalBencode(e *Encoder) error
}

// MarshalerFunc adapts a function to the Marshaler interface.
type MarshalerFunc func(e *Encoder) error

// MarshalBencode calls f(e).
func (f MarshalerFunc) MarshalBencode(e *Encoder) error { return f(e) }

// EncodeOptions configures the encoder.
type EncodeOptions struct {
	// Canonical sorts dictionary entries by raw key bytes and rejects
	// duplicate keys. When false, entries are written in the order the
	// Marshaler presents them.
	Canonical bool
}

// DefaultEncodeOptions returns options that keep declaration order.
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{}
}

// CanonicalEncodeOptions returns options producing sorted dictionaries.
func CanonicalEncodeOptions() EncodeOptions {
	return EncodeOptions{Canonical: true}
}

// Encoder accumulates bencode output.
type Encoder struct {
	buf  []byte
	opts EncodeOptions

	// keyMode is set while a dictionary key is being marshaled; only
	// byte strings are accepted then.
	keyMode  bool
	keyCount int

	depth  int // open lists and dictionaries
	values int // complete top-level values
}

// NewEncoder returns an empty Encoder.
func NewEncoder(opts EncodeOptions) *Encoder {
	return &Encoder{opts: opts}
}

// Marshal encodes v.
func Marshal(v Marshaler) ([]byte, error) {
	return MarshalWithOptions(v, DefaultEncodeOptions())
}

// MarshalString encodes v and returns the output as a string.
func MarshalString(v Marshaler) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// MarshalWithOptions encodes v with custom options.
func MarshalWithOptions(v Marshaler, opts EncodeOptions) ([]byte, error) {
	e := NewEncoder(opts)
	if err := e.Encode(v); err != nil {
		return nil, err
	}
	if err := e.Complete(); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// Complete reports an error unless the output holds exactly one value
// with every list and dictionary closed.
func (e *Encoder) Complete() error {
	if e.depth > 0 {
		return Errorf("%d list or dictionary left open", e.depth)
	}
	if e.values != 1 {
		return Errorf("%d top-level values written, want 1", e.values)
	}
	return nil
}

// wrote counts a finished value.
func (e *Encoder) wrote() {
	if e.depth == 0 {
		e.values++
	}
}

// Bytes returns the output written so far. The Encoder must not be
// used after the caller starts modifying the result.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Reset discards the output, keeping the allocated buffer.
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
	e.keyMode = false
	e.keyCount = 0
	e.depth = 0
	e.values = 0
}

// Encode asks v to describe itself to e.
func (e *Encoder) Encode(v Marshaler) error {
	if v == nil {
		return unsupported("nil value")
	}
	return v.MarshalBencode(e)
}

// EncodeInt writes i<n>e.
func (e *Encoder) EncodeInt(n int64) error {
	if e.keyMode {
		return invalidKey("integer")
	}
	e.buf = append(e.buf, 'i')
	e.buf = strconv.AppendInt(e.buf, n, 10)
	e.buf = append(e.buf, 'e')
	e.wrote()
	return nil
}

// EncodeUint writes n as an integer. Values above math.MaxInt64 cannot
// be decoded back and are rejected.
func (e *Encoder) EncodeUint(n uint64) error {
	if n > math.MaxInt64 {
		return &Error{Kind: KindIntegerOverflow, Offset: -1, Msg: strconv.FormatUint(n, 10)}
	}
	return e.EncodeInt(int64(n))
}

// EncodeString writes <len>:<s>.
func (e *Encoder) EncodeString(s string) error {
	if e.keyMode {
		e.keyCount++
	}
	e.buf = strconv.AppendInt(e.buf, int64(len(s)), 10)
	e.buf = append(e.buf, ':')
	e.buf = append(e.buf, s...)
	e.wrote()
	return nil
}

// EncodeBytes writes <len>:<b>.
func (e *Encoder) EncodeBytes(b []byte) error {
	if e.keyMode {
		e.keyCount++
	}
	e.buf = strconv.AppendInt(e.buf, int64(len(b)), 10)
	e.buf = append(e.buf, ':')
	e.buf = append(e.buf, b...)
	e.wrote()
	return nil
}

// EncodeRaw writes raw, which must hold exactly one well-formed value.
func (e *Encoder) EncodeRaw(raw []byte) error {
	if len(raw) == 0 {
		return Errorf("empty raw value")
	}
	if e.keyMode && !isDigit(raw[0]) {
		return invalidKey("raw value")
	}
	d := NewDecoder(NewInput(raw), DefaultDecodeOptions())
	if err := d.Skip(); err != nil {
		return fmt.Errorf("raw value: %w", err)
	}
	if err := d.End(); err != nil {
		return fmt.Errorf("raw value: %w", err)
	}
	if e.keyMode {
		e.keyCount++
	}
	e.buf = append(e.buf, raw...)
	e.wrote()
	return nil
}

// EncodeList writes the opening 'l' and returns the list's element
// writer. The list is closed by ListEncoder.End.
func (e *Encoder) EncodeList() (*ListEncoder, error) {
	if e.keyMode {
		return nil, invalidKey("list")
	}
	e.buf = append(e.buf, 'l')
	e.depth++
	return &ListEncoder{e: e}, nil
}

// EncodeDict writes the opening 'd' and returns the dictionary's entry
// writer. The dictionary is closed by DictEncoder.End.
func (e *Encoder) EncodeDict() (*DictEncoder, error) {
	if e.keyMode {
		return nil, invalidKey("dictionary")
	}
	e.buf = append(e.buf, 'd')
	e.depth++
	return &DictEncoder{e: e, start: len(e.buf)}, nil
}

// EncodeStruct is EncodeDict; record fields become dictionary entries
// keyed by field name.
func (e *Encoder) EncodeStruct() (*DictEncoder, error) {
	return e.EncodeDict()
}

// The kinds below have no bencode representation.

func (e *Encoder) EncodeBool(bool) error     { return unsupported("bool") }
func (e *Encoder) EncodeFloat(float64) error { return unsupported("float") }
func (e *Encoder) EncodeRune(rune) error     { return unsupported("char") }
func (e *Encoder) EncodeNone() error         { return unsupported("option") }
func (e *Encoder) EncodeUnit() error         { return unsupported("unit") }
func (e *Encoder) EncodeTuple(n int) error   { return unsupported(fmt.Sprintf("tuple of %d", n)) }

func (e *Encoder) EncodeEnum(name, variant string) error {
	return unsupported(fmt.Sprintf("enum %s::%s", name, variant))
}

func invalidKey(got string) error {
	return &Error{Kind: KindInvalidKey, Offset: -1, Msg: got}
}

// ListEncoder writes the elements of one open list.
type ListEncoder struct {
	e      *Encoder
	closed bool
}

// Element encodes one element.
func (l *ListEncoder) Element(v Marshaler) error {
	if l.closed {
		return Errorf("list element written after End")
	}
	return l.e.Encode(v)
}

// End writes the closing 'e'.
func (l *ListEncoder) End() error {
	if l.closed {
		return Errorf("list closed twice")
	}
	l.closed = true
	l.e.buf = append(l.e.buf, 'e')
	l.e.depth--
	l.e.wrote()
	return nil
}

// DictEncoder writes the entries of one open dictionary.
type DictEncoder struct {
	e       *Encoder
	start   int // offset of the first entry
	key     int // offset of the pending key
	value   int // offset of the pending value
	pending bool
	closed  bool
	entries []entrySpan // canonical mode only
}

type entrySpan struct {
	key, value, end int
}

// Key encodes a key, which must produce exactly one byte string.
func (m *DictEncoder) Key(k Marshaler) error {
	if err := m.check(false); err != nil {
		return err
	}
	e := m.e
	m.key = len(e.buf)
	e.keyMode, e.keyCount = true, 0
	err := e.Encode(k)
	count := e.keyCount
	e.keyMode, e.keyCount = false, 0
	if err != nil {
		return err
	}
	if count != 1 {
		e.buf = e.buf[:m.key]
		return invalidKey(fmt.Sprintf("%d strings written", count))
	}
	m.value = len(e.buf)
	m.pending = true
	return nil
}

// Value encodes the value for the last key.
func (m *DictEncoder) Value(v Marshaler) error {
	if err := m.check(true); err != nil {
		return err
	}
	if err := m.e.Encode(v); err != nil {
		return err
	}
	m.pending = false
	if m.e.opts.Canonical {
		m.entries = append(m.entries, entrySpan{key: m.key, value: m.value, end: len(m.e.buf)})
	}
	return nil
}

// Entry encodes key followed by its value.
func (m *DictEncoder) Entry(key string, v Marshaler) error {
	if err := m.check(false); err != nil {
		return err
	}
	m.key = len(m.e.buf)
	if err := m.e.EncodeString(key); err != nil {
		return err
	}
	m.value = len(m.e.buf)
	m.pending = true
	return m.Value(v)
}

// End writes the closing 'e'. In canonical mode entries are sorted
// first.
func (m *DictEncoder) End() error {
	if m.closed {
		return Errorf("dictionary closed twice")
	}
	if m.pending {
		return Errorf("dictionary key %q has no value", m.keyText(entrySpan{key: m.key, value: m.value}))
	}
	if m.e.opts.Canonical {
		if err := m.sort(); err != nil {
			return err
		}
	}
	m.closed = true
	m.e.buf = append(m.e.buf, 'e')
	m.e.depth--
	m.e.wrote()
	return nil
}

func (m *DictEncoder) check(wantPending bool) error {
	if m.closed {
		return Errorf("dictionary entry written after End")
	}
	if m.pending != wantPending {
		if wantPending {
			return Errorf("dictionary value written without a key")
		}
		return Errorf("dictionary key written before the previous value")
	}
	return nil
}

// keyText returns the payload of the encoded key in span.
func (m *DictEncoder) keyText(span entrySpan) []byte {
	raw := m.e.buf[span.key:span.value]
	if i := bytes.IndexByte(raw, ':'); i >= 0 {
		return raw[i+1:]
	}
	return raw
}

func (m *DictEncoder) sort() error {
	if len(m.entries) < 2 {
		return nil
	}
	entries := m.entries
	sort.SliceStable(entries, func(i, j int) bool {
		return bytes.Compare(m.keyText(entries[i]), m.keyText(entries[j])) < 0
	})
	for i := 1; i < len(entries); i++ {
		if bytes.Equal(m.keyText(entries[i-1]), m.keyText(entries[i])) {
			return Errorf("duplicate dictionary key %q", m.keyText(entries[i]))
		}
	}

	sorted := make([]byte, 0, len(m.e.buf)-m.start)
	for _, span := range entries {
		sorted = append(sorted, m.e.buf[span.key:span.end]...)
	}
	copy(m.e.buf[m.start:], sorted)
	return nil
}
