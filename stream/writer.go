package stream

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/Neumenon/bencode/bencode"
)

// Writer writes concatenated bencode values to an io.Writer.
type Writer struct {
	w         io.Writer
	enc       *bencode.Encoder
	opts      bencode.EncodeOptions
	separator []byte
	seq       uint64
	written   int64
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCanonical sorts dictionary keys in every value written.
func WithCanonical() WriterOption {
	return func(w *Writer) {
		w.opts.Canonical = true
	}
}

// WithNewline writes a newline after every value.
func WithNewline() WriterOption {
	return func(w *Writer) {
		w.separator = []byte{'\n'}
	}
}

// NewWriter creates a new value writer.
func NewWriter(w io.Writer, opts ...WriterOption) *Writer {
	writer := &Writer{w: w, opts: bencode.DefaultEncodeOptions()}
	for _, opt := range opts {
		opt(writer)
	}
	writer.enc = bencode.NewEncoder(writer.opts)
	return writer
}

// Write encodes v and writes it as the next value.
func (w *Writer) Write(v bencode.Marshaler) error {
	w.enc.Reset()
	err := w.enc.Encode(v)
	if err == nil {
		err = w.enc.Complete()
	}
	if err != nil {
		return fmt.Errorf("encode value %d: %w", w.seq, err)
	}
	return w.emit(w.enc.Bytes())
}

// WriteFrame writes a frame's raw bytes after checking they hold
// exactly one value.
func (w *Writer) WriteFrame(f *Frame) error {
	w.enc.Reset()
	if err := w.enc.EncodeRaw(f.Raw); err != nil {
		return fmt.Errorf("encode value %d: %w", w.seq, err)
	}
	return w.emit(w.enc.Bytes())
}

// Count returns the number of values written.
func (w *Writer) Count() uint64 {
	return w.seq
}

// Written returns the number of bytes written.
func (w *Writer) Written() int64 {
	return w.written
}

func (w *Writer) emit(data []byte) error {
	n, err := w.w.Write(data)
	w.written += int64(n)
	if err != nil {
		return fmt.Errorf("write value %d: %w", w.seq, err)
	}
	if len(w.separator) > 0 {
		n, err := w.w.Write(w.separator)
		w.written += int64(n)
		if err != nil {
			return fmt.Errorf("write separator: %w", err)
		}
	}
	Logger().Debug("stream: wrote value", zap.Uint64("seq", w.seq), zap.Int("size", len(data)))
	w.seq++
	return nil
}
