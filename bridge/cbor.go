package bridge

import (
	"fmt"
	"math"
	"math/big"
	"sort"
	"unicode/utf8"

	"github.com/fxamacker/cbor/v2"

	"github.com/Neumenon/bencode/bencode"
)

// cborEncMode uses Core Deterministic Encoding (RFC 8949 §4.2): map
// keys are sorted, so dictionary order is not kept.
var cborEncMode cbor.EncMode

// cborDecMode decodes into map[any]any so byte string keys survive.
var cborDecMode cbor.DecMode

func init() {
	var err error
	cborEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("bridge: CBOR encoder initialization failed: " + err.Error())
	}

	cborDecMode, err = cbor.DecOptions{
		MaxNestedLevels: bencode.DefaultMaxDepth,
	}.DecMode()
	if err != nil {
		panic("bridge: CBOR decoder initialization failed: " + err.Error())
	}
}

// ToCBOR converts a Value to CBOR. UTF-8 strings become text strings,
// other strings become byte strings.
func ToCBOR(v *bencode.Value) ([]byte, error) {
	goVal, err := toCBORValue(v)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(goVal)
}

func toCBORValue(v *bencode.Value) (any, error) {
	switch v.Type() {
	case bencode.TypeInt:
		return v.AsInt()

	case bencode.TypeString:
		b, _ := v.AsBytes()
		if isText(b) {
			return string(b), nil
		}
		return b, nil

	case bencode.TypeList:
		items := make([]any, 0, v.Len())
		for i, elem := range v.List() {
			item, err := toCBORValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			items = append(items, item)
		}
		return items, nil

	case bencode.TypeDict:
		m := make(map[any]any, v.Len())
		for _, entry := range v.Entries() {
			var key any = entry.Key
			if !utf8.ValidString(entry.Key) {
				key = cbor.ByteString(entry.Key)
			}
			if _, dup := m[key]; dup {
				return nil, fmt.Errorf("duplicate dictionary key %q", entry.Key)
			}
			val, err := toCBORValue(entry.Value)
			if err != nil {
				return nil, fmt.Errorf("map[%q]: %w", entry.Key, err)
			}
			m[key] = val
		}
		return m, nil

	default:
		return nil, fmt.Errorf("unsupported value type: %s", v.Type())
	}
}

// FromCBOR converts one CBOR data item to a Value. Map entries are
// sorted by raw key bytes.
func FromCBOR(data []byte) (*bencode.Value, error) {
	var v any
	if err := cborDecMode.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("CBOR parse error: %w", err)
	}
	return fromCBORValue(v)
}

func fromCBORValue(v any) (*bencode.Value, error) {
	switch t := v.(type) {
	case uint64:
		if t > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d is out of range", t)
		}
		return bencode.NewInt(int64(t)), nil

	case int64:
		return bencode.NewInt(t), nil

	case big.Int:
		return nil, fmt.Errorf("integer %s is out of range", t.String())

	case string:
		return bencode.NewString(t), nil

	case []byte:
		return bencode.NewBytes(t), nil

	case cbor.ByteString:
		return bencode.NewString(string(t)), nil

	case float64:
		return fromFloat(t)

	case []any:
		list := bencode.NewList()
		for i, elem := range t {
			item, err := fromCBORValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			list.Append(item)
		}
		return list, nil

	case map[any]any:
		entries := make([]bencode.Entry, 0, len(t))
		for k, elem := range t {
			var key string
			switch kt := k.(type) {
			case string:
				key = kt
			case cbor.ByteString:
				key = string(kt)
			default:
				return nil, fmt.Errorf("map key of type %T has no bencode form", k)
			}
			item, err := fromCBORValue(elem)
			if err != nil {
				return nil, fmt.Errorf("map[%q]: %w", key, err)
			}
			entries = append(entries, bencode.Entry{Key: key, Value: item})
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Key < entries[j].Key
		})
		return bencode.NewDict(entries...), nil

	case cbor.Tag:
		return nil, fmt.Errorf("CBOR tag %d has no bencode form", t.Number)

	case bool:
		return nil, fmt.Errorf("boolean has no bencode form")

	case nil:
		return nil, fmt.Errorf("null has no bencode form")

	default:
		return nil, fmt.Errorf("unsupported CBOR type: %T", v)
	}
}
