package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLWriter buffers items and writes them as one YAML document on Flush.
// Keys and field order follow the json tags of the values written, so YAML
// and JSON output of an ad kit use the same names.
type YAMLWriter struct {
	w       *bufio.Writer
	items   []any
	flushed bool
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{
		w: bufio.NewWriter(w),
	}
}

// Write buffers a single item.
func (w *YAMLWriter) Write(data any) error {
	w.items = append(w.items, data)
	w.flushed = false
	return nil
}

// Flush writes the buffered items as YAML: a single item on its own, more
// than one as a sequence.
func (w *YAMLWriter) Flush() error {
	if w.flushed || len(w.items) == 0 {
		return w.w.Flush()
	}

	var value any = w.items
	if len(w.items) == 1 {
		value = w.items[0]
	}
	doc, err := yamlNode(value)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w.w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	w.items = nil
	w.flushed = true
	return w.w.Flush()
}

// Close flushes the writer.
func (w *YAMLWriter) Close() error {
	return w.Flush()
}

// yamlNode reads value's JSON encoding back as a YAML node tree.
func yamlNode(value any) (*yaml.Node, error) {
	data, err := encodeJSON(value, "")
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to convert to YAML: %w", err)
	}
	blockStyle(&doc)
	return &doc, nil
}

// blockStyle clears the flow and quoting styles left by JSON input.
// Multi-line strings become literal blocks.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	if n.Kind == yaml.ScalarNode && strings.Contains(n.Value, "\n") {
		n.Style = yaml.LiteralStyle
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}
