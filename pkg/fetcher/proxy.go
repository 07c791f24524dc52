package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmylchreest/adforge/internal/logger"
	"github.com/jmylchreest/adforge/pkg/content"
	"github.com/jmylchreest/adforge/pkg/proxy"
)

// ProxyFetcher tries each relay of a proxy table in order until one returns
// usable content. Attempts are sequential; at most one request is in flight.
type ProxyFetcher struct {
	table     *proxy.Table
	extractor Extractor
	config    Config
}

// NewProxyFetcher creates a fetcher over table. A nil extractor uses the
// default content extractor; zero config fields take their defaults.
func NewProxyFetcher(table *proxy.Table, extractor Extractor, cfg Config) *ProxyFetcher {
	if table == nil {
		table = proxy.DefaultTable()
	}
	if extractor == nil {
		extractor = content.New(nil)
	}
	defaults := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = defaults.RenderTimeout
	}
	return &ProxyFetcher{table: table, extractor: extractor, config: cfg}
}

// Table returns the relay table in use.
func (f *ProxyFetcher) Table() *proxy.Table {
	return f.table
}

// ValidateURL checks that target is an absolute http(s) URL with a host.
func ValidateURL(target string) error {
	u, err := url.Parse(strings.TrimSpace(target))
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidURL, target, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q must start with http:// or https://", ErrInvalidURL, target)
	}
	return nil
}

// AcquireHTML returns the raw HTML of targetURL from the first relay that
// answers 2xx with a non-blank body.
func (f *ProxyFetcher) AcquireHTML(ctx context.Context, targetURL string) (string, error) {
	res, err := f.acquire(ctx, targetURL, false)
	if err != nil {
		return "", err
	}
	return res.HTML, nil
}

// Acquire fetches targetURL and extracts its content. A relay whose payload
// extracts to nothing counts as failed and the next relay is tried.
func (f *ProxyFetcher) Acquire(ctx context.Context, targetURL string) (*Result, error) {
	return f.acquire(ctx, targetURL, true)
}

// Close releases the renderer, if any.
func (f *ProxyFetcher) Close() error {
	if f.config.Renderer != nil {
		return f.config.Renderer.Close()
	}
	return nil
}

func (f *ProxyFetcher) acquire(ctx context.Context, targetURL string, extract bool) (*Result, error) {
	targetURL = strings.TrimSpace(targetURL)
	if err := ValidateURL(targetURL); err != nil {
		return nil, err
	}

	start := time.Now()
	var failures []AttemptFailure

	for _, d := range f.table.Descriptors() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("acquisition cancelled: %w", err)
		}

		res, failure, err := f.tryProxy(ctx, d, targetURL, extract)
		if err != nil {
			return nil, err
		}
		if failure != nil {
			failures = append(failures, *failure)
			continue
		}
		return f.finish(res, failures, start), nil
	}

	if f.config.Renderer != nil {
		logger.Debug("all proxies failed, trying renderer",
			"url", targetURL,
			"renderer", f.config.Renderer.Name())
		res, failure, err := f.tryRenderer(ctx, targetURL, extract)
		if err != nil {
			return nil, err
		}
		if failure == nil {
			return f.finish(res, failures, start), nil
		}
		failures = append(failures, *failure)
	}

	exhausted := &ExhaustedError{Failures: failures}
	if n := len(failures); n > 0 {
		exhausted.LastTimedOut = failures[n-1].Reason == ReasonTimeout
	}
	return nil, exhausted
}

func (f *ProxyFetcher) finish(res *Result, failures []AttemptFailure, start time.Time) *Result {
	res.Failures = failures
	res.FetchedAt = time.Now()
	res.Duration = elapsed(start)
	return res
}

// tryProxy runs one relay attempt under its own deadline. A non-nil error
// means the caller's context ended and the loop must stop.
func (f *ProxyFetcher) tryProxy(ctx context.Context, d proxy.Descriptor, targetURL string, extract bool) (*Result, *AttemptFailure, error) {
	attemptStart := time.Now()
	req := d.Build(targetURL)

	attemptCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	logger.Debug("proxy attempt starting", "proxy", d.Name, "url", targetURL)

	body, err := f.fetchStatic(attemptCtx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, fmt.Errorf("acquisition cancelled: %w", ctxErr)
		}
		return nil, f.failure(d.Name, err, attemptStart), nil
	}

	html, err := d.Unwrap(body)
	if err != nil {
		return nil, f.failure(d.Name, &attemptError{reason: ReasonEmptyContent, detail: err.Error()}, attemptStart), nil
	}

	return f.accept(d.Name, targetURL, html, extract, attemptStart)
}

func (f *ProxyFetcher) tryRenderer(ctx context.Context, targetURL string, extract bool) (*Result, *AttemptFailure, error) {
	attemptStart := time.Now()
	name := f.config.Renderer.Name()

	renderCtx, cancel := context.WithTimeout(ctx, f.config.RenderTimeout)
	defer cancel()

	html, err := f.config.Renderer.Render(renderCtx, targetURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, fmt.Errorf("acquisition cancelled: %w", ctxErr)
		}
		return nil, f.failure(name, classify(renderCtx, err), attemptStart), nil
	}
	return f.accept(name, targetURL, html, extract, attemptStart)
}

// accept turns a fetched payload into a result, or an empty_content failure.
func (f *ProxyFetcher) accept(source, targetURL, html string, extract bool, attemptStart time.Time) (*Result, *AttemptFailure, error) {
	if strings.TrimSpace(html) == "" {
		return nil, f.failure(source, &attemptError{reason: ReasonEmptyContent, detail: "empty body"}, attemptStart), nil
	}

	res := &Result{URL: targetURL, Proxy: source, HTML: html}
	if extract {
		extracted, err := f.extractor.Extract(html, targetURL)
		if err != nil {
			return nil, f.failure(source, &attemptError{reason: ReasonEmptyContent, detail: err.Error()}, attemptStart), nil
		}
		res.Content = extracted
	}

	logger.Debug("proxy attempt succeeded",
		"proxy", source,
		"url", targetURL,
		"duration", elapsed(attemptStart))
	return res, nil, nil
}

func (f *ProxyFetcher) failure(source string, err error, attemptStart time.Time) *AttemptFailure {
	failure := &AttemptFailure{
		Proxy:    source,
		Reason:   ReasonNetworkError,
		Detail:   err.Error(),
		Duration: elapsed(attemptStart),
	}
	var ae *attemptError
	if errors.As(err, &ae) {
		failure.Reason = ae.reason
		failure.StatusCode = ae.status
		failure.Detail = ae.detail
	}

	logger.Debug("proxy attempt failed",
		"proxy", failure.Proxy,
		"reason", failure.Reason,
		"status", failure.StatusCode,
		"detail", failure.Detail,
		"duration", failure.Duration)
	return failure
}
