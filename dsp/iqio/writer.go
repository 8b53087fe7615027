package iqio

import (
	"bufio"
	"fmt"
	"io"
)

// Writer encodes samples into an io.Writer through an internal buffer.
// Call Flush when done.
type Writer struct {
	w      *bufio.Writer
	format Format
	buf    []byte
	count  int64
}

// NewWriter returns a buffered sample writer. Unknown formats are reported
// on the first write.
func NewWriter(w io.Writer, format Format) *Writer {
	return &Writer{
		w:      bufio.NewWriterSize(w, 64*1024),
		format: format,
		buf:    make([]byte, 0, 8),
	}
}

// WriteIQ encodes and buffers one sample.
func (w *Writer) WriteIQ(i, q float64) error {
	if !w.format.Valid() {
		return fmt.Errorf("%w: %v", ErrUnknownFormat, w.format)
	}

	w.buf = w.format.AppendSample(w.buf[:0], i, q)
	if _, err := w.w.Write(w.buf); err != nil {
		return fmt.Errorf("iqio: write: %w", err)
	}
	w.count++

	return nil
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("iqio: flush: %w", err)
	}
	return nil
}

// Count returns the number of samples accepted so far.
func (w *Writer) Count() int64 { return w.count }

// Format returns the sample encoding.
func (w *Writer) Format() Format { return w.format }
