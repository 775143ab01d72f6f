package stream

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/Neumenon/bencode/bencode"
)

// Reader reads concatenated bencode values from an io.Reader.
type Reader struct {
	r          *bufio.Reader
	maxPayload int
	opts       bencode.DecodeOptions
	digest     Algorithm

	offset int64
	seq    uint64
	buf    []byte
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxPayload sets the maximum size of one value (default: 64 MiB).
func WithMaxPayload(max int) ReaderOption {
	return func(r *Reader) {
		r.maxPayload = max
	}
}

// WithMaxDepth limits container nesting inside one value.
func WithMaxDepth(depth int) ReaderOption {
	return func(r *Reader) {
		r.opts.MaxDepth = depth
	}
}

// WithStrict rejects integers and lengths with leading zeros.
func WithStrict() ReaderOption {
	return func(r *Reader) {
		r.opts.Strict = true
	}
}

// WithDigest computes a digest of every value into Frame.Digest.
func WithDigest(alg Algorithm) ReaderOption {
	return func(r *Reader) {
		r.digest = alg
	}
}

// NewReader creates a new value reader.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	reader := &Reader{
		r:          bufio.NewReader(r),
		maxPayload: MaxPayloadSize,
		opts:       bencode.DefaultDecodeOptions(),
	}
	for _, opt := range opts {
		opt(reader)
	}
	if reader.opts.MaxDepth <= 0 {
		reader.opts.MaxDepth = bencode.DefaultMaxDepth
	}
	return reader
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Next reads and returns the next value.
// Returns io.EOF when no more values are available.
func (r *Reader) Next() (*Frame, error) {
	if err := r.skipSpace(); err != nil {
		return nil, err
	}

	start := r.offset
	r.buf = r.buf[:0]
	if err := r.scanValue(); err != nil {
		Logger().Warn("stream: unreadable value", zap.Int64("offset", start), zap.Error(err))
		return nil, err
	}

	frame := &Frame{
		Seq:    r.seq,
		Offset: start,
		Raw:    append(bencode.RawMessage(nil), r.buf...),
	}

	// The scanner only finds the value's end; the decoder checks the rest.
	d := bencode.NewDecoder(bencode.NewInput(frame.Raw), r.opts)
	err := d.Skip()
	if err == nil {
		err = d.End()
	}
	if err != nil {
		Logger().Warn("stream: invalid value", zap.Uint64("seq", r.seq), zap.Int64("offset", start), zap.Error(err))
		return nil, fmt.Errorf("value %d at offset %d: %w", r.seq, start, err)
	}

	if r.digest != DigestNone {
		sum, err := Sum(r.digest, frame.Raw)
		if err != nil {
			return nil, err
		}
		frame.Digest = sum
	}

	Logger().Debug("stream: value",
		zap.Uint64("seq", frame.Seq),
		zap.Int64("offset", frame.Offset),
		zap.Int("size", frame.Size()))
	r.seq++
	return frame, nil
}

// Decode reads the next value into v.
func (r *Reader) Decode(v bencode.Unmarshaler) error {
	frame, err := r.Next()
	if err != nil {
		return err
	}
	if err := bencode.UnmarshalWithOptions(frame.Raw, v, r.opts); err != nil {
		return fmt.Errorf("value %d at offset %d: %w", frame.Seq, frame.Offset, err)
	}
	return nil
}

// ReadAll reads all values until EOF.
func (r *Reader) ReadAll() ([]*Frame, error) {
	var frames []*Frame
	for {
		frame, err := r.Next()
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, frame)
	}
}

// skipSpace discards whitespace between values. It returns io.EOF at
// the clean end of the stream.
func (r *Reader) skipSpace() error {
	for {
		b, err := r.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return io.EOF
			}
			return fmt.Errorf("read: %w", err)
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			r.offset++
		default:
			r.r.UnreadByte()
			return nil
		}
	}
}

// scanValue copies one value's bytes into r.buf, following just enough
// of the grammar to find where it ends.
func (r *Reader) scanValue() error {
	depth := 0
	for {
		c, err := r.readByte()
		if err != nil {
			return err
		}

		switch {
		case c == 'i':
			if err := r.scanInt(); err != nil {
				return err
			}
		case c >= '0' && c <= '9':
			if err := r.scanString(int(c - '0')); err != nil {
				return err
			}
		case c == 'l' || c == 'd':
			depth++
			if depth > r.opts.MaxDepth {
				return &ParseError{Reason: fmt.Sprintf("nesting deeper than %d", r.opts.MaxDepth), Offset: r.offset - 1}
			}
			continue
		case c == 'e' && depth > 0:
			depth--
		default:
			return &ParseError{Reason: fmt.Sprintf("unexpected %q", c), Offset: r.offset - 1}
		}

		if depth == 0 {
			return nil
		}
	}
}

func (r *Reader) scanInt() error {
	for {
		c, err := r.readByte()
		if err != nil {
			return err
		}
		if c == 'e' {
			return nil
		}
		if c != '-' && (c < '0' || c > '9') {
			return &ParseError{Reason: fmt.Sprintf("unexpected %q in integer", c), Offset: r.offset - 1}
		}
	}
}

func (r *Reader) scanString(n int) error {
	for {
		c, err := r.readByte()
		if err != nil {
			return err
		}
		if c == ':' {
			break
		}
		if c < '0' || c > '9' {
			return &ParseError{Reason: fmt.Sprintf("unexpected %q in string length", c), Offset: r.offset - 1}
		}
		digit := int(c - '0')
		if n > (r.maxPayload-digit)/10 {
			return r.tooLarge(n)
		}
		n = n*10 + digit
		if n > r.maxPayload {
			return r.tooLarge(n)
		}
	}

	if n > r.maxPayload-len(r.buf) {
		return r.tooLarge(len(r.buf) + n)
	}
	// The buffer grows as bytes arrive, not by the declared length.
	buf := bytes.NewBuffer(r.buf)
	read, err := io.CopyN(buf, r.r, int64(n))
	r.buf = buf.Bytes()
	r.offset += read
	if err != nil {
		return r.truncated(err)
	}
	return nil
}

func (r *Reader) readByte() (byte, error) {
	if len(r.buf) >= r.maxPayload {
		return 0, r.tooLarge(len(r.buf) + 1)
	}
	c, err := r.r.ReadByte()
	if err != nil {
		return 0, r.truncated(err)
	}
	r.buf = append(r.buf, c)
	r.offset++
	return c, nil
}

func (r *Reader) tooLarge(n int) error {
	return &ParseError{Reason: fmt.Sprintf("payload too large: %d > %d", n, r.maxPayload), Offset: r.offset}
}

func (r *Reader) truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("read value at offset %d: %w", r.offset, io.ErrUnexpectedEOF)
	}
	return fmt.Errorf("read value: %w", err)
}
