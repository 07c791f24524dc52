// Package fetcher acquires listing HTML through an ordered table of CORS
// relays, falling back to the next relay when one times out, errors, or
// returns nothing usable.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jmylchreest/adforge/pkg/content"
)

// Reason classifies why a single attempt failed.
type Reason string

const (
	ReasonHTTPError    Reason = "http_error"
	ReasonTimeout      Reason = "timeout"
	ReasonNetworkError Reason = "network_error"
	ReasonEmptyContent Reason = "empty_content"
)

// Error types for distinguishing failure reasons.
// Check with errors.Is(err, fetcher.ErrInvalidURL).
var (
	// ErrInvalidURL indicates the target is not an http(s) URL with a host.
	// No network call is made.
	ErrInvalidURL = errors.New("invalid URL")
	// ErrAllProxiesExhausted indicates every relay failed.
	ErrAllProxiesExhausted = errors.New("all proxies exhausted")
)

// AttemptFailure records one failed attempt.
type AttemptFailure struct {
	Proxy      string        `json:"proxy"`
	Reason     Reason        `json:"reason"`
	Detail     string        `json:"detail,omitempty"`
	StatusCode int           `json:"status_code,omitempty"`
	Duration   time.Duration `json:"duration"`
}

func (f AttemptFailure) String() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("%s: %s %d", f.Proxy, f.Reason, f.StatusCode)
	}
	if f.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", f.Proxy, f.Reason, f.Detail)
	}
	return fmt.Sprintf("%s: %s", f.Proxy, f.Reason)
}

// ExhaustedError is returned when no relay produced usable content.
// It matches errors.Is(err, ErrAllProxiesExhausted).
type ExhaustedError struct {
	Failures     []AttemptFailure
	LastTimedOut bool
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.String()
	}
	return fmt.Sprintf("%s (tried: %s)", ErrAllProxiesExhausted, strings.Join(parts, ", "))
}

func (e *ExhaustedError) Unwrap() error {
	return ErrAllProxiesExhausted
}

// Hint returns the message to show a user after exhaustion.
func (e *ExhaustedError) Hint() string {
	if e.LastTimedOut {
		return "The site took too long to respond. It may be slow right now; try again later, or paste the content manually."
	}
	return "All URL fetch attempts failed. The site may be blocking proxy access. Please paste the content manually."
}

// Extractor turns fetched HTML into content. *content.Extractor implements it.
type Extractor interface {
	Extract(html, sourceURL string) (*content.Extracted, error)
}

// Renderer is an optional last resort tried after every relay failed,
// typically a headless browser.
type Renderer interface {
	// Render returns the rendered HTML of url.
	Render(ctx context.Context, url string) (string, error)

	// Close releases any resources (browser instances, etc.).
	Close() error

	// Name identifies the renderer in failures and logs.
	Name() string
}

// Chrome user agent for better compatibility
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultTimeout bounds a single relay attempt.
const DefaultTimeout = 15 * time.Second

// DefaultRenderTimeout bounds the renderer attempt.
const DefaultRenderTimeout = 30 * time.Second

// Config holds configuration for the proxy fetcher.
type Config struct {
	// Timeout bounds each relay attempt. Default 15s.
	Timeout time.Duration

	// UserAgent is sent on every relay request.
	UserAgent string

	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper

	// Renderer is tried once after every relay failed. Nil disables it.
	Renderer Renderer

	// RenderTimeout bounds the renderer attempt. Default 30s.
	RenderTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:       DefaultTimeout,
		UserAgent:     DefaultUserAgent,
		RenderTimeout: DefaultRenderTimeout,
	}
}

// Result is a successful acquisition.
type Result struct {
	URL       string             `json:"url"`
	Proxy     string             `json:"proxy"`
	HTML      string             `json:"-"`
	Content   *content.Extracted `json:"content,omitempty"`
	Failures  []AttemptFailure   `json:"failures,omitempty"`
	FetchedAt time.Time          `json:"fetched_at"`
	Duration  time.Duration      `json:"duration"`
}
