package bencode

import (
	"fmt"
)

// ErrorKind classifies a codec failure.
type ErrorKind uint8

const (
	KindUnexpectedEnd ErrorKind = iota + 1 // peek/next past the end of input
	KindBufferTooShort                      // fixed-length read exceeds the input
	KindInvalidText                         // text-typed bytes are not UTF-8
	KindSyntax                              // leading byte matches no value kind
	KindExpectedInteger
	KindExpectedI
	KindUnexpectedCharacter
	KindExpectedColon
	KindExpectedMap
	KindExpectedMapEnd
	KindExpectedList
	KindExpectedListEnd
	KindTrailingCharacters
	KindUnsupported // primitive kind this codec does not implement
	KindCustom      // failure reported by a Marshaler or Unmarshaler
	KindIntegerOverflow
	KindNestingTooDeep
	KindLeadingZero // only in strict mode
	KindInvalidKey  // dictionary key is not a byte string
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindUnexpectedEnd:
		return "unexpected end of input"
	case KindBufferTooShort:
		return "buffer too short"
	case KindInvalidText:
		return "invalid utf-8 text"
	case KindSyntax:
		return "syntax error"
	case KindExpectedInteger:
		return "expected integer"
	case KindExpectedI:
		return "expected 'i'"
	case KindUnexpectedCharacter:
		return "unexpected character"
	case KindExpectedColon:
		return "expected ':'"
	case KindExpectedMap:
		return "expected 'd'"
	case KindExpectedMapEnd:
		return "expected dictionary end"
	case KindExpectedList:
		return "expected 'l'"
	case KindExpectedListEnd:
		return "expected list end"
	case KindTrailingCharacters:
		return "trailing characters"
	case KindUnsupported:
		return "unsupported kind"
	case KindCustom:
		return "custom"
	case KindIntegerOverflow:
		return "integer overflow"
	case KindNestingTooDeep:
		return "nesting too deep"
	case KindLeadingZero:
		return "leading zero"
	case KindInvalidKey:
		return "invalid dictionary key"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Error is the single error type returned by the codec.
// Offset is the input position where decoding failed, or -1 when the
// failure has no input position (encoding, custom errors).
type Error struct {
	Kind   ErrorKind
	Offset int
	Msg    string
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Msg != "" {
		if e.Kind == KindCustom {
			msg = e.Msg
		} else {
			msg += ": " + e.Msg
		}
	}
	if e.Offset >= 0 {
		return fmt.Sprintf("bencode: %s at offset %d", msg, e.Offset)
	}
	return "bencode: " + msg
}

// Is reports whether target is an *Error of the same kind, so that the
// sentinels below work with errors.Is regardless of offset or message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrUnexpectedEnd       = &Error{Kind: KindUnexpectedEnd, Offset: -1}
	ErrBufferTooShort      = &Error{Kind: KindBufferTooShort, Offset: -1}
	ErrInvalidText         = &Error{Kind: KindInvalidText, Offset: -1}
	ErrSyntax              = &Error{Kind: KindSyntax, Offset: -1}
	ErrExpectedInteger     = &Error{Kind: KindExpectedInteger, Offset: -1}
	ErrExpectedI           = &Error{Kind: KindExpectedI, Offset: -1}
	ErrUnexpectedCharacter = &Error{Kind: KindUnexpectedCharacter, Offset: -1}
	ErrExpectedColon       = &Error{Kind: KindExpectedColon, Offset: -1}
	ErrExpectedMap         = &Error{Kind: KindExpectedMap, Offset: -1}
	ErrExpectedMapEnd      = &Error{Kind: KindExpectedMapEnd, Offset: -1}
	ErrExpectedList        = &Error{Kind: KindExpectedList, Offset: -1}
	ErrExpectedListEnd     = &Error{Kind: KindExpectedListEnd, Offset: -1}
	ErrTrailingCharacters  = &Error{Kind: KindTrailingCharacters, Offset: -1}
	ErrUnsupported         = &Error{Kind: KindUnsupported, Offset: -1}
	ErrCustom              = &Error{Kind: KindCustom, Offset: -1}
	ErrIntegerOverflow     = &Error{Kind: KindIntegerOverflow, Offset: -1}
	ErrNestingTooDeep      = &Error{Kind: KindNestingTooDeep, Offset: -1}
	ErrLeadingZero         = &Error{Kind: KindLeadingZero, Offset: -1}
	ErrInvalidKey          = &Error{Kind: KindInvalidKey, Offset: -1}
)

// Errorf builds a custom error. Marshaler and Unmarshaler
// implementations use it to report their own failures.
func Errorf(format string, args ...any) error {
	return &Error{Kind: KindCustom, Offset: -1, Msg: fmt.Sprintf(format, args...)}
}

func newError(kind ErrorKind, offset int, msg string) *Error {
	return &Error{Kind: kind, Offset: offset, Msg: msg}
}

func unsupported(what string) *Error {
	return &Error{Kind: KindUnsupported, Offset: -1, Msg: what}
}
