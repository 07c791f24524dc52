// Package browser provides a headless Chrome renderer, tried by the fetcher
// after every relay has failed.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/adforge/internal/logger"
	"github.com/jmylchreest/adforge/pkg/fetcher"
)

// ErrChallenge indicates the page served a bot challenge instead of the listing.
var ErrChallenge = errors.New("challenge page detected")

// Config holds configuration for the renderer.
type Config struct {
	UserAgent string

	// ChromePath overrides Chrome binary discovery.
	ChromePath string

	// WaitDuration is an extra settle time after the body is ready.
	WaitDuration time.Duration
}

// Renderer loads pages in headless Chrome. It implements fetcher.Renderer.
type Renderer struct {
	config    Config
	allocCtx  context.Context
	cancelCtx context.CancelFunc
	closeOnce sync.Once
}

var _ fetcher.Renderer = (*Renderer)(nil)

// New creates a renderer with a browser allocator. Chrome starts on the first
// Render call.
func New(cfg Config) (*Renderer, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = fetcher.DefaultUserAgent
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)

	chromePath := cfg.ChromePath
	if chromePath == "" {
		chromePath = FindChromePath()
	}
	if chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	logger.Debug("browser renderer created", "chrome", chromePath, "user_agent", cfg.UserAgent)

	return &Renderer{
		config:    cfg,
		allocCtx:  allocCtx,
		cancelCtx: cancelAlloc,
	}, nil
}

// Name identifies the renderer in attempt failures.
func (r *Renderer) Name() string {
	return "browser"
}

// Render navigates to targetURL and returns the document HTML. The deadline
// and cancellation of ctx apply to the browser tab.
func (r *Renderer) Render(ctx context.Context, targetURL string) (string, error) {
	browserCtx, cancelBrowser := chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)
	defer cancelBrowser()

	stop := context.AfterFunc(ctx, cancelBrowser)
	defer stop()

	runCtx := browserCtx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(browserCtx, deadline)
		defer cancel()
	}

	var html, title string
	actions := []chromedp.Action{
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body"),
	}
	if r.config.WaitDuration > 0 {
		actions = append(actions, chromedp.Sleep(r.config.WaitDuration))
	}
	actions = append(actions,
		chromedp.OuterHTML("html", &html),
		chromedp.Title(&title),
	)

	logger.Debug("browser render", "url", targetURL, "action_count", len(actions))

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("browser render: %w", ctxErr)
		}
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "deadline exceeded") {
			return "", fmt.Errorf("browser render: %w", context.DeadlineExceeded)
		}
		return "", fmt.Errorf("browser automation failed: %w", err)
	}

	if challenge := detectChallengePage(title, html); challenge != "" {
		logger.Warn("challenge page detected", "url", targetURL, "type", challenge)
		return "", fmt.Errorf("%w: %s", ErrChallenge, challenge)
	}

	logger.Debug("browser render complete", "url", targetURL, "title", title, "html_size", len(html))
	return html, nil
}

// detectChallengePage checks if the page content indicates a challenge/CAPTCHA page.
func detectChallengePage(title, html string) string {
	titleLower := strings.ToLower(title)
	htmlLower := strings.ToLower(html)

	switch {
	case strings.Contains(titleLower, "just a moment"),
		strings.Contains(titleLower, "attention required"),
		strings.Contains(htmlLower, "cf-challenge"),
		strings.Contains(htmlLower, "cf_chl_opt"):
		return "cloudflare"
	case strings.Contains(htmlLower, "challenges.cloudflare.com/turnstile"),
		strings.Contains(htmlLower, "cf-turnstile"):
		return "cloudflare-turnstile"
	case strings.Contains(htmlLower, "hcaptcha.com"),
		strings.Contains(htmlLower, "h-captcha"):
		return "hcaptcha"
	case strings.Contains(htmlLower, "google.com/recaptcha"),
		strings.Contains(htmlLower, "g-recaptcha"):
		return "recaptcha"
	case strings.Contains(titleLower, "access denied"),
		strings.Contains(titleLower, "bot detection"),
		strings.Contains(htmlLower, "robot or human"):
		return "anti-bot"
	}
	return ""
}

// Close releases browser resources. It is safe to call more than once.
func (r *Renderer) Close() error {
	r.closeOnce.Do(func() {
		if r.cancelCtx != nil {
			r.cancelCtx()
		}
	})
	return nil
}
