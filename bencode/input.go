package bencode

import (
	"unicode/utf8"
	"unsafe"
)

// Input is a cursor over an immutable byte buffer. The Decoder is the
// only component that reads from it.
//
// Views returned by ReadBytes and ReadString avoid copying where that is
// safe:
//
//   - An Input built with NewStringInput returns strings that alias the
//     source string. ReadBytes copies, since a string's memory must not
//     be written through a slice.
//   - An Input built with NewInput returns byte slices that alias the
//     source buffer. They stay valid for as long as the caller keeps that
//     buffer unmodified. ReadString copies.
type Input struct {
	buf  []byte
	pos  int
	text bool // buf aliases a Go string
}

// NewInput returns an Input reading from b.
func NewInput(b []byte) *Input {
	return &Input{buf: b}
}

// NewStringInput returns an Input reading from s without copying it.
func NewStringInput(s string) *Input {
	return &Input{buf: unsafe.Slice(unsafe.StringData(s), len(s)), text: true}
}

// Peek returns the byte at the cursor without advancing.
func (in *Input) Peek() (byte, error) {
	if in.pos >= len(in.buf) {
		return 0, newError(KindUnexpectedEnd, in.pos, "")
	}
	return in.buf[in.pos], nil
}

// Next returns the byte at the cursor and advances by one.
func (in *Input) Next() (byte, error) {
	if in.pos >= len(in.buf) {
		return 0, newError(KindUnexpectedEnd, in.pos, "")
	}
	c := in.buf[in.pos]
	in.pos++
	return c, nil
}

// ReadBytes returns the next n bytes and advances past them.
func (in *Input) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n > len(in.buf)-in.pos {
		return nil, newError(KindBufferTooShort, in.pos, "")
	}
	b := in.buf[in.pos : in.pos+n : in.pos+n]
	in.pos += n
	if in.text {
		return append([]byte(nil), b...), nil
	}
	return b, nil
}

// ReadString returns the next n bytes as text and advances past them.
// The bytes must be valid UTF-8.
func (in *Input) ReadString(n int) (string, error) {
	if n < 0 || n > len(in.buf)-in.pos {
		return "", newError(KindBufferTooShort, in.pos, "")
	}
	b := in.buf[in.pos : in.pos+n]
	if !utf8.Valid(b) {
		return "", newError(KindInvalidText, in.pos, "")
	}
	in.pos += n
	if in.text && n > 0 {
		return unsafe.String(&b[0], n), nil
	}
	return string(b), nil
}

func (in *Input) skip(n int) error {
	if n < 0 || n > len(in.buf)-in.pos {
		return newError(KindBufferTooShort, in.pos, "")
	}
	in.pos += n
	return nil
}

// Offset returns the cursor position.
func (in *Input) Offset() int { return in.pos }

// Remaining returns the number of unread bytes.
func (in *Input) Remaining() int { return len(in.buf) - in.pos }

// Span returns a copy of buf[start:end]. Both bounds must lie in the
// already consumed part of the input.
func (in *Input) Span(start, end int) []byte {
	if start < 0 || end > in.pos || start > end {
		return nil
	}
	return append([]byte(nil), in.buf[start:end]...)
}
