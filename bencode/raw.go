package bencode

// RawMessage is one encoded value kept verbatim. Decoding into a
// RawMessage copies the value's exact wire bytes; encoding writes them
// back unchanged. It is used where the original bytes matter, such as
// hashing a torrent's info dictionary.
type RawMessage []byte

// MarshalBencode writes m as-is after checking it holds one value.
func (m RawMessage) MarshalBencode(e *Encoder) error {
	return e.EncodeRaw(m)
}

// UnmarshalBencode captures the next value's bytes.
func (m *RawMessage) UnmarshalBencode(d *Decoder) error {
	start := d.Offset()
	if err := d.Skip(); err != nil {
		return err
	}
	*m = d.in.Span(start, d.Offset())
	return nil
}

// Value decodes m into a dynamic Value.
func (m RawMessage) Value() (*Value, error) {
	return Decode(m)
}
