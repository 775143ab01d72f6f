// Package bridge converts dynamic bencode values to and from JSON, YAML
// and CBOR.
//
// Bencode has four kinds: integers, byte strings, lists and
// dictionaries. Byte strings holding valid UTF-8 become text. Other
// byte strings have no direct text form:
//   - Default: they become base64 strings (JSON) or !!binary scalars
//     (YAML). JSON output is then lossy.
//   - Extended: JSON uses {"$bencode": "bytes", "base64": "..."} markers
//     for a lossless round trip.
//
// CBOR has native byte strings and needs neither mode.
//
// Dictionary order is preserved in JSON and YAML. Floats, booleans and
// nulls have no bencode form and are rejected on input, except floats
// with an integral value.
package bridge

import (
	"encoding/base64"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/Neumenon/bencode/bencode"
)

// BridgeOpts configures conversion behavior.
type BridgeOpts struct {
	// Extended enables $bencode markers for lossless round-trip of
	// binary strings. When false (default), they become base64 text.
	Extended bool
}

// DefaultBridgeOpts returns the default (plain JSON) options.
func DefaultBridgeOpts() BridgeOpts {
	return BridgeOpts{Extended: false}
}

// ExtendedBridgeOpts returns options that keep binary strings lossless.
func ExtendedBridgeOpts() BridgeOpts {
	return BridgeOpts{Extended: true}
}

const (
	markerKey   = "$bencode"
	markerBytes = "bytes"
	base64Key   = "base64"
)

// bytesMarker returns the extended-mode object for a binary string.
func bytesMarker(b []byte) object {
	return object{
		{Key: markerKey, Value: markerBytes},
		{Key: base64Key, Value: base64.StdEncoding.EncodeToString(b)},
	}
}

// fromMarker recognises an extended-mode bytes object.
func fromMarker(v *bencode.Value) (*bencode.Value, bool, error) {
	if v.Len() != 2 {
		return nil, false, nil
	}
	tag, err := v.Get(markerKey).AsString()
	if err != nil {
		return nil, false, nil
	}
	if tag != markerBytes {
		return nil, false, fmt.Errorf("unknown %s marker type: %s", markerKey, tag)
	}
	b64, err := v.Get(base64Key).AsString()
	if err != nil {
		return nil, false, fmt.Errorf("%s bytes marker missing base64", markerKey)
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, false, fmt.Errorf("invalid base64: %w", err)
	}
	return bencode.NewBytes(data), true, nil
}

// fromFloat accepts floats with an integral value in int64 range.
func fromFloat(f float64) (*bencode.Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("NaN/Infinity has no bencode form")
	}
	if f != math.Trunc(f) || f < -9007199254740991 || f > 9007199254740991 {
		return nil, fmt.Errorf("float %v has no bencode form", f)
	}
	return bencode.NewInt(int64(f)), nil
}

func isText(b []byte) bool {
	return utf8.Valid(b)
}
