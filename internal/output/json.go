package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
)

// JSONWriter buffers items and writes them on Flush: a single item as an
// object, several as an array.
type JSONWriter struct {
	w       *bufio.Writer
	pretty  bool
	indent  string
	items   []any
	flushed bool
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{
		w:      bufio.NewWriter(w),
		pretty: pretty,
		indent: indent,
	}
}

// Write buffers a single item.
func (w *JSONWriter) Write(data any) error {
	w.items = append(w.items, data)
	w.flushed = false
	return nil
}

// Flush writes the buffered items. Nothing is written when no item was
// buffered or the items were already flushed.
func (w *JSONWriter) Flush() error {
	if w.flushed || len(w.items) == 0 {
		return w.w.Flush()
	}

	var value any = w.items
	if len(w.items) == 1 {
		value = w.items[0]
	}

	indent := ""
	if w.pretty {
		indent = w.indent
	}
	output, err := encodeJSON(value, indent)
	if err != nil {
		return err
	}

	if _, err := w.w.Write(output); err != nil {
		return err
	}
	w.items = nil
	w.flushed = true
	return w.w.Flush()
}

// Close flushes the writer.
func (w *JSONWriter) Close() error {
	return w.Flush()
}

// JSONLWriter writes newline-delimited JSON (JSONL).
type JSONLWriter struct {
	w *bufio.Writer
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return &JSONLWriter{
		w: bufio.NewWriter(w),
	}
}

// Write writes a single item as a JSON line.
func (w *JSONLWriter) Write(data any) error {
	output, err := encodeJSON(data, "")
	if err != nil {
		return err
	}

	if _, err := w.w.Write(output); err != nil {
		return err
	}

	return w.w.Flush()
}

// Flush flushes the buffer.
func (w *JSONLWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes the writer.
func (w *JSONLWriter) Close() error {
	return w.Flush()
}

// encodeJSON encodes value with a trailing newline, leaving HTML characters
// unescaped so ad copy reads as written.
func encodeJSON(value any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
