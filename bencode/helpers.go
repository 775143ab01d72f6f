package bencode

// Scalar helpers for hand-written Unmarshalers.

// Int64 decodes an integer.
func (d *Decoder) Int64() (int64, error) {
	var v intVisitor
	err := d.DecodeInt(&v)
	return v.n, err
}

// Text decodes a byte string that must be UTF-8.
func (d *Decoder) Text() (string, error) {
	var v textVisitor
	err := d.DecodeString(&v)
	return v.s, err
}

// ByteString decodes a byte string of any content. The result follows
// the aliasing rules documented on Input.
func (d *Decoder) ByteString() ([]byte, error) {
	var v bytesVisitor
	err := d.DecodeBytes(&v)
	return v.b, err
}

// Fields decodes a dictionary, calling fn once per entry with the key.
// fn must consume the entry's value from d, using d.Skip to ignore it.
func (d *Decoder) Fields(fn func(key string, d *Decoder) error) error {
	return d.DecodeStruct(fieldsVisitor{fn: fn})
}

// Elements decodes a list, calling fn once per element. fn must consume
// the element from d.
func (d *Decoder) Elements(fn func(d *Decoder) error) error {
	return d.DecodeList(elementsVisitor{fn: fn})
}

type intVisitor struct {
	BaseVisitor
	n int64
}

func (v *intVisitor) VisitInt(n int64) error {
	v.n = n
	return nil
}

type textVisitor struct {
	BaseVisitor
	s string
}

func (v *textVisitor) VisitString(s string) error {
	v.s = s
	return nil
}

type bytesVisitor struct {
	BaseVisitor
	b []byte
}

func (v *bytesVisitor) VisitBytes(b []byte) error {
	v.b = b
	return nil
}

type fieldsVisitor struct {
	BaseVisitor
	fn func(key string, d *Decoder) error
}

func (v fieldsVisitor) VisitDict(m *MapAccess) error {
	for {
		key, ok, err := m.NextKeyString()
		if err != nil || !ok {
			return err
		}
		err = m.NextValue(UnmarshalerFunc(func(d *Decoder) error {
			start := d.Offset()
			if err := v.fn(key, d); err != nil {
				return err
			}
			if d.Offset() == start {
				return Errorf("field %q: value not consumed", key)
			}
			return nil
		}))
		if err != nil {
			return err
		}
	}
}

type elementsVisitor struct {
	BaseVisitor
	fn func(d *Decoder) error
}

func (v elementsVisitor) VisitList(seq *SeqAccess) error {
	index := 0
	for {
		ok, err := seq.NextElement(UnmarshalerFunc(func(d *Decoder) error {
			start := d.Offset()
			if err := v.fn(d); err != nil {
				return err
			}
			if d.Offset() == start {
				return Errorf("element %d: value not consumed", index)
			}
			return nil
		}))
		if err != nil || !ok {
			return err
		}
		index++
	}
}

// Int is an integer that encodes and decodes itself.
type Int int64

func (i Int) MarshalBencode(e *Encoder) error { return e.EncodeInt(int64(i)) }

func (i *Int) UnmarshalBencode(d *Decoder) error {
	n, err := d.Int64()
	*i = Int(n)
	return err
}

// String is UTF-8 text that encodes and decodes itself.
type String string

func (s String) MarshalBencode(e *Encoder) error { return e.EncodeString(string(s)) }

func (s *String) UnmarshalBencode(d *Decoder) error {
	t, err := d.Text()
	*s = String(t)
	return err
}

// Bytes is a byte string with arbitrary content.
type Bytes []byte

func (b Bytes) MarshalBencode(e *Encoder) error { return e.EncodeBytes(b) }

func (b *Bytes) UnmarshalBencode(d *Decoder) error {
	raw, err := d.ByteString()
	*b = raw
	return err
}

// Strings is a list of text values.
type Strings []string

func (s Strings) MarshalBencode(e *Encoder) error {
	l, err := e.EncodeList()
	if err != nil {
		return err
	}
	for _, item := range s {
		if err := l.Element(String(item)); err != nil {
			return err
		}
	}
	return l.End()
}

func (s *Strings) UnmarshalBencode(d *Decoder) error {
	out := Strings{}
	err := d.Elements(func(d *Decoder) error {
		item, err := d.Text()
		out = append(out, item)
		return err
	})
	*s = out
	return err
}

// Ints is a list of integers.
type Ints []int64

func (s Ints) MarshalBencode(e *Encoder) error {
	l, err := e.EncodeList()
	if err != nil {
		return err
	}
	for _, item := range s {
		if err := l.Element(Int(item)); err != nil {
			return err
		}
	}
	return l.End()
}

func (s *Ints) UnmarshalBencode(d *Decoder) error {
	out := Ints{}
	err := d.Elements(func(d *Decoder) error {
		n, err := d.Int64()
		out = append(out, n)
		return err
	})
	*s = out
	return err
}
