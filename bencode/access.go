package bencode

import (
	"fmt"
)

// MapAccess iterates the entries of one open dictionary. It is only
// valid inside the Visitor.VisitDict call that received it.
//
// Keys and values are adjacent on the wire; there is no separator.
type MapAccess struct {
	d *Decoder
}

// NextKey decodes the next key into k. It returns false, without
// touching k, once the closing 'e' is reached.
//
// Keys are byte strings: k is only called when the key starts with a
// length prefix, otherwise KindExpectedInteger is returned.
func (m *MapAccess) NextKey(k Unmarshaler) (bool, error) {
	if more, err := m.more(); err != nil || !more {
		return false, err
	}
	c, err := m.d.in.Peek()
	if err != nil {
		return false, err
	}
	if !isDigit(c) {
		return false, newError(KindExpectedInteger, m.d.in.Offset(), fmt.Sprintf("dictionary key starts with %q", c))
	}
	if err := k.UnmarshalBencode(m.d); err != nil {
		return false, err
	}
	return true, nil
}

// NextKeyString returns the next key as UTF-8 text.
func (m *MapAccess) NextKeyString() (string, bool, error) {
	if more, err := m.more(); err != nil || !more {
		return "", false, err
	}
	n, err := m.d.parseLength()
	if err != nil {
		return "", false, err
	}
	s, err := m.d.in.ReadString(n)
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

// NextKeyBytes returns the next key as raw bytes.
func (m *MapAccess) NextKeyBytes() ([]byte, bool, error) {
	if more, err := m.more(); err != nil || !more {
		return nil, false, err
	}
	n, err := m.d.parseLength()
	if err != nil {
		return nil, false, err
	}
	b, err := m.d.in.ReadBytes(n)
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// NextValue decodes the value that follows the last key.
func (m *MapAccess) NextValue(v Unmarshaler) error {
	if m.d == nil {
		return errAccessClosed("dictionary")
	}
	return v.UnmarshalBencode(m.d)
}

// SkipValue discards the value that follows the last key.
func (m *MapAccess) SkipValue() error {
	if m.d == nil {
		return errAccessClosed("dictionary")
	}
	return m.d.Skip()
}

func (m *MapAccess) more() (bool, error) {
	if m.d == nil {
		return false, errAccessClosed("dictionary")
	}
	c, err := m.d.in.Peek()
	if err != nil {
		return false, err
	}
	return c != 'e', nil
}

// SeqAccess iterates the elements of one open list. It is only valid
// inside the Visitor.VisitList call that received it.
type SeqAccess struct {
	d *Decoder
}

// NextElement decodes the next element into v. It returns false once
// the closing 'e' is reached.
func (s *SeqAccess) NextElement(v Unmarshaler) (bool, error) {
	if s.d == nil {
		return false, errAccessClosed("list")
	}
	c, err := s.d.in.Peek()
	if err != nil {
		return false, err
	}
	if c == 'e' {
		return false, nil
	}
	if err := v.UnmarshalBencode(s.d); err != nil {
		return false, err
	}
	return true, nil
}

func errAccessClosed(container string) error {
	return Errorf("%s access used after the %s was closed", container, container)
}

// BaseVisitor rejects every wire kind. Embed it in a Visitor and
// override the methods for the kinds the target accepts.
type BaseVisitor struct {
	// Expecting names the target in error messages.
	Expecting string
}

func (b BaseVisitor) VisitInt(int64) error       { return b.invalid("integer") }
func (b BaseVisitor) VisitString(string) error   { return b.invalid("string") }
func (b BaseVisitor) VisitBytes([]byte) error    { return b.invalid("byte string") }
func (b BaseVisitor) VisitList(*SeqAccess) error { return b.invalid("list") }
func (b BaseVisitor) VisitDict(*MapAccess) error { return b.invalid("dictionary") }

func (b BaseVisitor) invalid(got string) error {
	want := b.Expecting
	if want == "" {
		want = "a different kind"
	}
	return &Error{Kind: KindCustom, Offset: -1, Msg: fmt.Sprintf("invalid type: %s, expected %s", got, want)}
}
