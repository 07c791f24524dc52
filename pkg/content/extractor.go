package content

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/jmylchreest/adforge/internal/logger"
)

// ErrEmptyContent is returned when no usable text survives cleaning.
var ErrEmptyContent = errors.New("no usable text after cleaning")

// Extracted is the cleaned content of one page.
type Extracted struct {
	Text   string   `json:"text"`
	Images []string `json:"images"`
	Title  string   `json:"title,omitempty"`
}

// Extractor cleans listing HTML. It holds no per-call state and is safe for
// concurrent use.
type Extractor struct {
	config *Config
}

// New creates an Extractor. Fields left at their zero value in config take
// their DefaultConfig() value; a nil config is DefaultConfig().
func New(config *Config) *Extractor {
	return &Extractor{config: DefaultConfig().Merge(config)}
}

// Name returns the extractor name for logging.
func (e *Extractor) Name() string {
	return "content"
}

// Config returns the extractor configuration.
func (e *Extractor) Config() *Config {
	return e.config
}

// parse builds the document with scripting disabled, so <noscript> content
// is parsed as elements instead of raw text.
func parse(page string) (*goquery.Document, error) {
	root, err := html.ParseWithOptions(strings.NewReader(page), html.ParseOptionEnableScripting(false))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}

// Extract parses page fetched from sourceURL and returns its text and images.
// Images are discovered before any elements are stripped.
func (e *Extractor) Extract(page, sourceURL string) (*Extracted, error) {
	doc, err := parse(page)
	if err != nil {
		return nil, err
	}

	out := &Extracted{
		Title:  strings.TrimSpace(doc.Find("title").First().Text()),
		Images: e.images(doc, sourceURL),
	}
	out.Text = e.text(doc)

	logger.Debug("extracted content",
		"url", sourceURL,
		"text_chars", len(out.Text),
		"images", len(out.Images))

	if out.Text == "" {
		return out, ErrEmptyContent
	}
	return out, nil
}
