package bridge

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/Neumenon/bencode/bencode"
)

// ============================================================
// FromJSON - JSON to Value
// ============================================================

// FromJSON converts JSON bytes to a Value using default options.
func FromJSON(data []byte) (*bencode.Value, error) {
	return FromJSONWithOpts(data, DefaultBridgeOpts())
}

// FromJSONWithOpts converts JSON bytes to a Value with options.
// Object member order is kept.
func FromJSONWithOpts(data []byte, opts BridgeOpts) (*bencode.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := readJSON(dec, opts)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("JSON parse error: trailing data after value")
	}
	return v, nil
}

func readJSON(dec *json.Decoder, opts BridgeOpts) (*bencode.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("JSON parse error: %w", err)
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			list := bencode.NewList()
			for i := 0; dec.More(); i++ {
				item, err := readJSON(dec, opts)
				if err != nil {
					return nil, fmt.Errorf("array[%d]: %w", i, err)
				}
				list.Append(item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("JSON parse error: %w", err)
			}
			return list, nil

		case '{':
			dict := bencode.NewDict()
			for dec.More() {
				tok, err := dec.Token()
				if err != nil {
					return nil, fmt.Errorf("JSON parse error: %w", err)
				}
				key, _ := tok.(string)
				item, err := readJSON(dec, opts)
				if err != nil {
					return nil, fmt.Errorf("object[%q]: %w", key, err)
				}
				dict.Set(key, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("JSON parse error: %w", err)
			}
			if opts.Extended {
				if b, ok, err := fromMarker(dict); err != nil || ok {
					return b, err
				}
			}
			return dict, nil
		}
		return nil, fmt.Errorf("JSON parse error: unexpected %v", t)

	case json.Number:
		if n, err := t.Int64(); err == nil {
			return bencode.NewInt(n), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %s is out of range", t)
		}
		return fromFloat(f)

	case string:
		return bencode.NewString(t), nil

	case bool:
		return nil, fmt.Errorf("boolean has no bencode form")

	case nil:
		return nil, fmt.Errorf("null has no bencode form")

	default:
		return nil, fmt.Errorf("unsupported JSON token: %T", tok)
	}
}

// ============================================================
// ToJSON - Value to JSON
// ============================================================

// ToJSON converts a Value to JSON bytes using default options.
func ToJSON(v *bencode.Value) ([]byte, error) {
	return ToJSONWithOpts(v, DefaultBridgeOpts())
}

// ToJSONWithOpts converts a Value to JSON bytes with options.
func ToJSONWithOpts(v *bencode.Value, opts BridgeOpts) ([]byte, error) {
	jsonVal, err := ToJSONValue(v, opts)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonVal)
}

// ToJSONValue converts a Value to a Go value suitable for json.Marshal.
// Dictionaries become an ordered object type.
func ToJSONValue(v *bencode.Value, opts BridgeOpts) (any, error) {
	switch v.Type() {
	case bencode.TypeInt:
		return v.AsInt()

	case bencode.TypeString:
		b, _ := v.AsBytes()
		if isText(b) {
			return string(b), nil
		}
		if opts.Extended {
			return bytesMarker(b), nil
		}
		return base64.StdEncoding.EncodeToString(b), nil

	case bencode.TypeList:
		items := make([]any, 0, v.Len())
		for i, elem := range v.List() {
			jsonElem, err := ToJSONValue(elem, opts)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			items = append(items, jsonElem)
		}
		return items, nil

	case bencode.TypeDict:
		obj := make(object, 0, v.Len())
		for _, entry := range v.Entries() {
			if !utf8.ValidString(entry.Key) {
				return nil, fmt.Errorf("dictionary key %q is not UTF-8 text", entry.Key)
			}
			jsonVal, err := ToJSONValue(entry.Value, opts)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", entry.Key, err)
			}
			obj = append(obj, member{Key: entry.Key, Value: jsonVal})
		}
		return obj, nil

	default:
		return nil, fmt.Errorf("unsupported value type: %s", v.Type())
	}
}

// member is one key/value pair of an ordered JSON object.
type member struct {
	Key   string
	Value any
}

// object is a JSON object that marshals its members in order.
type object []member

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(m.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// JSONEqual checks if two JSON byte slices represent equal values,
// ignoring object member order.
func JSONEqual(a, b []byte) (bool, error) {
	var va, vb any
	if err := json.Unmarshal(a, &va); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, &vb); err != nil {
		return false, err
	}
	ja, _ := json.Marshal(va)
	jb, _ := json.Marshal(vb)
	return bytes.Equal(ja, jb), nil
}
