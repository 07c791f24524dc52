package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/adforge/internal/logger"
	"github.com/jmylchreest/adforge/pkg/proxy"
)

// attemptError is a classified per-attempt failure.
type attemptError struct {
	reason Reason
	status int
	detail string
}

func (e *attemptError) Error() string {
	if e.status != 0 {
		return fmt.Sprintf("%s: status %d", e.reason, e.status)
	}
	return fmt.Sprintf("%s: %s", e.reason, e.detail)
}

// fetchStatic performs one relay request with a fresh collector. The
// collector is bound to ctx, which carries the attempt deadline.
func (f *ProxyFetcher) fetchStatic(ctx context.Context, req proxy.Request) ([]byte, error) {
	c := colly.NewCollector(
		colly.UserAgent(f.config.UserAgent),
		colly.StdlibContext(ctx),
	)
	if f.config.Transport != nil {
		c.WithTransport(f.config.Transport)
	}
	c.SetRequestTimeout(f.config.Timeout)
	c.ParseHTTPErrorResponse = true

	c.OnRequest(func(r *colly.Request) {
		for k, v := range req.Headers {
			r.Headers.Set(k, v)
		}
	})

	var (
		status int
		body   []byte
	)
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
		logger.Debug("static fetch response received",
			"status", r.StatusCode,
			"content_type", r.Headers.Get("Content-Type"),
			"size", humanize.Bytes(uint64(len(r.Body))))
	})

	if err := c.Visit(req.URL); err != nil {
		return nil, classify(ctx, err)
	}
	if status < 200 || status > 299 {
		return nil, &attemptError{reason: ReasonHTTPError, status: status}
	}
	return body, nil
}

// classify maps a transport error to a timeout or network failure.
func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &attemptError{reason: ReasonTimeout, detail: err.Error()}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &attemptError{reason: ReasonTimeout, detail: err.Error()}
	}
	return &attemptError{reason: ReasonNetworkError, detail: err.Error()}
}

// elapsed rounds a duration for logs.
func elapsed(start time.Time) time.Duration {
	return time.Since(start).Round(time.Millisecond)
}
