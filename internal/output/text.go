package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// textSeparator separates consecutive items in text output.
const textSeparator = "\n\n===\n\n"

// TextWriter writes each item's plain-text rendering as it arrives.
type TextWriter struct {
	w     *bufio.Writer
	count int
}

// NewTextWriter creates a text writer.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{
		w: bufio.NewWriter(w),
	}
}

// Write renders one item. Items must be a Texter, a string or a
// fmt.Stringer.
func (w *TextWriter) Write(data any) error {
	var text string
	switch v := data.(type) {
	case Texter:
		text = v.Text()
	case string:
		text = v
	case fmt.Stringer:
		text = v.String()
	default:
		return fmt.Errorf("text output not supported for %T", data)
	}

	if w.count > 0 {
		if _, err := w.w.WriteString(textSeparator); err != nil {
			return err
		}
	}
	if _, err := w.w.WriteString(strings.TrimRight(text, "\n")); err != nil {
		return err
	}
	if _, err := w.w.WriteString("\n"); err != nil {
		return err
	}
	w.count++

	return w.w.Flush()
}

// Flush flushes the buffer.
func (w *TextWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes the writer.
func (w *TextWriter) Close() error {
	return w.Flush()
}
