// Package stream reads and writes sequences of concatenated bencode
// values, such as KRPC message captures or tracker response dumps.
//
// A stream is a series of top-level values with optional ASCII
// whitespace between them:
//
//	d1:ti1ee
//	d1:ti2ee
//	li1ei2ee
//
// Values are not length-prefixed; the Reader finds each value's end by
// scanning the grammar, then validates it with the bencode decoder.
// Inputs may be gzip, zstd or lz4 compressed (see Decompress).
package stream

import (
	"fmt"

	"github.com/Neumenon/bencode/bencode"
)

// MaxPayloadSize is the default maximum size of one value (64 MiB).
const MaxPayloadSize = 64 * 1024 * 1024

// Frame is one value read from a stream.
type Frame struct {
	Seq    uint64             // Position in the stream, from 0
	Offset int64              // Byte offset of the value's first byte
	Raw    bencode.RawMessage // Exact encoded bytes

	// Digest of Raw, nil unless the Reader was given WithDigest.
	Digest []byte
}

// Size returns the encoded size of the value.
func (f *Frame) Size() int {
	return len(f.Raw)
}

// Value decodes the frame into a dynamic value.
func (f *Frame) Value() (*bencode.Value, error) {
	return bencode.Decode(f.Raw)
}

// Decode decodes the frame into v.
func (f *Frame) Decode(v bencode.Unmarshaler) error {
	return bencode.Unmarshal(f.Raw, v)
}

// ParseError reports a stream that cannot be split into values.
type ParseError struct {
	Reason string
	Offset int64
}

func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("stream: %s at offset %d", e.Reason, e.Offset)
	}
	return fmt.Sprintf("stream: %s", e.Reason)
}

// DigestMismatchError is returned when a frame's digest differs from
// the expected one.
type DigestMismatchError struct {
	Algorithm Algorithm
	Expected  []byte
	Got       []byte
}

func (e *DigestMismatchError) Error() string {
	return fmt.Sprintf("stream: %s mismatch: expected %s, got %s",
		e.Algorithm, HashToHex(e.Expected), HashToHex(e.Got))
}

// Verify recomputes the frame's digest with alg and compares it with
// expected.
func (f *Frame) Verify(alg Algorithm, expected []byte) error {
	got, err := Sum(alg, f.Raw)
	if err != nil {
		return err
	}
	if !VerifyDigest(got, expected) {
		return &DigestMismatchError{Algorithm: alg, Expected: expected, Got: got}
	}
	return nil
}
