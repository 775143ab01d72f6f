// Package bencode implements the length-prefixed bencode encoding used by
// BitTorrent metainfo files and KRPC messages.
//
// # Wire Format
//
//	integer  := 'i' '-'? digit+ 'e'          i42e, i-3e
//	string   := length ':' byte{length}     5:hello, 0:
//	list     := 'l' value* 'e'              l1:a1:be
//	dict     := 'd' (string value)* 'e'     d1:ai1ee
//
// There are no type tags beyond the four markers, no floats, booleans or
// null.
//
// # Decoding
//
// A target implements Unmarshaler and asks the Decoder for the shape it
// expects (DecodeInt, DecodeString, DecodeList, DecodeDict, ...). The
// Decoder parses and hands the result to a Visitor; containers are
// walked through a SeqAccess or MapAccess that is only valid for the
// duration of the visit.
//
//	type Peer struct {
//	    IP   string
//	    Port int64
//	}
//
//	func (p *Peer) UnmarshalBencode(d *bencode.Decoder) error {
//	    return d.Fields(func(key string, d *bencode.Decoder) (err error) {
//	        switch key {
//	        case "ip":
//	            p.IP, err = d.Text()
//	        case "port":
//	            p.Port, err = d.Int64()
//	        default:
//	            err = d.Skip()
//	        }
//	        return err
//	    })
//	}
//
// Unmarshal rejects input with bytes left over after the top-level value.
// Strings decoded by UnmarshalString share memory with the input text;
// byte slices decoded by Unmarshal share memory with the input buffer.
//
// # Encoding
//
// A source implements Marshaler and describes itself to the Encoder:
//
//	func (p Peer) MarshalBencode(e *bencode.Encoder) error {
//	    m, err := e.EncodeStruct()
//	    if err != nil {
//	        return err
//	    }
//	    if err := m.Entry("ip", bencode.String(p.IP)); err != nil {
//	        return err
//	    }
//	    if err := m.Entry("port", bencode.Int(p.Port)); err != nil {
//	        return err
//	    }
//	    return m.End()
//	}
//
// Dictionary entries are written in the order presented. Use
// CanonicalEncodeOptions to sort them by raw key bytes.
//
// # Dynamic Values
//
// Value holds any decoded value when the shape is not known up front.
// RawMessage keeps a value's exact bytes.
package bencode
