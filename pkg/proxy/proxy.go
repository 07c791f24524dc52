// Package proxy defines the ordered table of CORS relay endpoints used to
// reach listing pages that cannot be fetched directly.
//
// A Descriptor is a pure mapping from a target URL to the request that asks
// the relay for it. A Table is an immutable, validated, ordered set of
// descriptors; its order is the fallback order.
package proxy

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// Template placeholders.
const (
	// PlaceholderEncoded is replaced by the percent-encoded target URL.
	PlaceholderEncoded = "{url}"
	// PlaceholderRaw is replaced by the target URL as-is, for relays that
	// take the target as a path suffix.
	PlaceholderRaw = "{raw}"
)

// ErrInvalidTable is returned when a proxy table fails validation.
var ErrInvalidTable = errors.New("invalid proxy table")

// Request is what a descriptor produces for one target.
type Request struct {
	URL     string
	Headers map[string]string
}

// Descriptor describes one relay endpoint.
type Descriptor struct {
	// Name identifies the relay in logs and diagnostics.
	Name string `mapstructure:"name" json:"name"`

	// Template is the relay URL with a {url} or {raw} placeholder.
	Template string `mapstructure:"template" json:"template"`

	// Headers are sent with every request to this relay.
	Headers map[string]string `mapstructure:"headers" json:"headers,omitempty"`

	// Envelope is a gjson path. When set, the relay answers with JSON and
	// the page HTML lives at this path.
	Envelope string `mapstructure:"envelope" json:"envelope,omitempty"`
}

// Build maps a target URL to the relay request.
func (d Descriptor) Build(target string) Request {
	u := strings.ReplaceAll(d.Template, PlaceholderEncoded, EncodeComponent(target))
	u = strings.ReplaceAll(u, PlaceholderRaw, target)

	return Request{URL: u, Headers: cloneHeaders(d.Headers)}
}

func cloneHeaders(h map[string]string) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// Unwrap returns the HTML carried by a relay response body. Raw relays
// return the body unchanged.
func (d Descriptor) Unwrap(body []byte) (string, error) {
	if d.Envelope == "" {
		return string(body), nil
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%s: response is not a JSON envelope", d.Name)
	}
	res := gjson.GetBytes(body, d.Envelope)
	if !res.Exists() {
		return "", fmt.Errorf("%s: envelope field %q missing", d.Name, d.Envelope)
	}
	return res.String(), nil
}

func (d Descriptor) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: descriptor with template %q has no name", ErrInvalidTable, d.Template)
	}
	if !strings.Contains(d.Template, PlaceholderEncoded) && !strings.Contains(d.Template, PlaceholderRaw) {
		return fmt.Errorf("%w: %s: template %q has no %s or %s placeholder",
			ErrInvalidTable, d.Name, d.Template, PlaceholderEncoded, PlaceholderRaw)
	}
	probe, err := url.Parse(d.Build("https://example.com/").URL)
	if err != nil {
		return fmt.Errorf("%w: %s: template does not produce a URL: %v", ErrInvalidTable, d.Name, err)
	}
	if (probe.Scheme != "http" && probe.Scheme != "https") || probe.Host == "" {
		return fmt.Errorf("%w: %s: template must produce an absolute http(s) URL", ErrInvalidTable, d.Name)
	}
	if d.Envelope != "" && strings.TrimSpace(d.Envelope) == "" {
		return fmt.Errorf("%w: %s: envelope path is blank", ErrInvalidTable, d.Name)
	}
	return nil
}

// Table is an ordered, immutable list of descriptors.
type Table struct {
	descriptors []Descriptor
}

// NewTable validates the descriptors and freezes them in the given order.
func NewTable(descriptors ...Descriptor) (*Table, error) {
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("%w: no proxies configured", ErrInvalidTable)
	}

	seen := make(map[string]bool, len(descriptors))
	frozen := make([]Descriptor, 0, len(descriptors))
	for _, d := range descriptors {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("%w: duplicate proxy name %q", ErrInvalidTable, d.Name)
		}
		seen[d.Name] = true
		d.Headers = cloneHeaders(d.Headers)
		frozen = append(frozen, d)
	}

	return &Table{descriptors: frozen}, nil
}

// MustTable is NewTable for static tables; it panics on invalid input.
func MustTable(descriptors ...Descriptor) *Table {
	t, err := NewTable(descriptors...)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of descriptors.
func (t *Table) Len() int {
	return len(t.descriptors)
}

// Descriptors returns a copy of the descriptors in fallback order.
func (t *Table) Descriptors() []Descriptor {
	out := make([]Descriptor, len(t.descriptors))
	for i, d := range t.descriptors {
		d.Headers = cloneHeaders(d.Headers)
		out[i] = d
	}
	return out
}

// Names returns the descriptor names in fallback order.
func (t *Table) Names() []string {
	names := make([]string, len(t.descriptors))
	for i, d := range t.descriptors {
		names[i] = d.Name
	}
	return names
}

// EncodeComponent percent-encodes s the way a browser's
// encodeURIComponent does.
func EncodeComponent(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	for _, keep := range []struct{ enc, raw string }{
		{"%21", "!"}, {"%27", "'"}, {"%28", "("}, {"%29", ")"}, {"%2A", "*"},
	} {
		escaped = strings.ReplaceAll(escaped, keep.enc, keep.raw)
	}
	return escaped
}
