// Package adforge provides the public API for turning a property listing
// into a real-estate ad kit.
package adforge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmylchreest/adforge/internal/logger"
	"github.com/jmylchreest/adforge/pkg/adkit"
	"github.com/jmylchreest/adforge/pkg/fetcher"
	"github.com/jmylchreest/adforge/pkg/llm"
)

// ErrEmptyPrompt is returned when an image prompt is blank.
var ErrEmptyPrompt = errors.New("image prompt is empty")

// Result is a generated ad kit with its source.
type Result struct {
	URL              string        `json:"url,omitempty"`
	Proxy            string        `json:"proxy,omitempty"`
	Title            string        `json:"title,omitempty"`
	Images           []string      `json:"images,omitempty"`
	Kit              *adkit.AdKit  `json:"kit"`
	Market           string        `json:"market"`
	Currency         string        `json:"currency"`
	Provider         string        `json:"provider"`
	Model            string        `json:"model"`
	Usage            llm.Usage     `json:"usage"`
	Cost             float64       `json:"cost_usd"`
	RetryCount       int           `json:"retry_count"`
	FetchedAt        time.Time     `json:"fetched_at,omitzero"`
	FetchDuration    time.Duration `json:"fetch_duration,omitempty"`
	GenerateDuration time.Duration `json:"generate_duration"`
}

// Text renders the kit as the plain-text export.
func (r *Result) Text() string {
	if r == nil {
		return ""
	}
	return adkit.Text(r.Kit)
}

// AdForge is the main entry point: it acquires listing pages through CORS
// relays and writes ad kits from them.
type AdForge struct {
	fetcher   *fetcher.ProxyFetcher
	generator *adkit.Generator
	images    llm.ImageGenerator
	config    Config
}

// New creates a new AdForge instance.
func New(opts ...Option) (*AdForge, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.FetchTimeout < 0 {
		return nil, fmt.Errorf("fetch timeout must not be negative: %s", cfg.FetchTimeout)
	}
	if cfg.MaxDescriptionSize < 0 {
		return nil, fmt.Errorf("max description size must not be negative: %d", cfg.MaxDescriptionSize)
	}
	if cfg.Market == "" {
		cfg.Market = adkit.DefaultMarket
	}
	if cfg.Currency == "" {
		cfg.Currency = adkit.DefaultCurrency
	}

	f := fetcher.NewProxyFetcher(cfg.ProxyTable, cfg.Extractor, fetcher.Config{
		Timeout:       cfg.FetchTimeout,
		UserAgent:     cfg.UserAgent,
		Transport:     cfg.Transport,
		Renderer:      cfg.Renderer,
		RenderTimeout: cfg.RenderTimeout,
	})

	gen := adkit.NewGenerator(cfg.Provider,
		adkit.WithMaxRetries(cfg.MaxRetries),
		adkit.WithTemperature(cfg.Temperature),
		adkit.WithMaxTokens(cfg.MaxTokens),
		adkit.WithMaxDescriptionSize(cfg.MaxDescriptionSize),
	)

	images := cfg.ImageGenerator
	if images == nil && cfg.Provider != nil {
		if ig, err := llm.AsImageGenerator(cfg.Provider); err == nil {
			images = ig
		}
	}

	return &AdForge{
		fetcher:   f,
		generator: gen,
		images:    images,
		config:    cfg,
	}, nil
}

// Config returns the effective configuration.
func (a *AdForge) Config() Config {
	return a.config
}

// Fetcher returns the underlying proxy fetcher.
func (a *AdForge) Fetcher() *fetcher.ProxyFetcher {
	return a.fetcher
}

// Fetch acquires and extracts a listing page without generating.
func (a *AdForge) Fetch(ctx context.Context, url string) (*fetcher.Result, error) {
	return a.fetcher.Acquire(ctx, url)
}

// FromURL acquires a listing page and generates an ad kit from its text.
// When every relay fails the error wraps *fetcher.ExhaustedError; its
// Hint suggests pasting the description instead.
func (a *AdForge) FromURL(ctx context.Context, url string) (*Result, error) {
	fetched, err := a.fetcher.Acquire(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}

	logger.Debug("listing acquired",
		"url", fetched.URL,
		"proxy", fetched.Proxy,
		"text_size", len(fetched.Content.Text),
		"images", len(fetched.Content.Images),
		"duration", fetched.Duration)

	res, err := a.generate(ctx, fetched.Content.Text)
	if err != nil {
		return nil, err
	}

	res.URL = fetched.URL
	res.Proxy = fetched.Proxy
	res.Title = fetched.Content.Title
	res.Images = fetched.Content.Images
	res.FetchedAt = fetched.FetchedAt
	res.FetchDuration = fetched.Duration
	return res, nil
}

// FromText generates an ad kit from a pasted description.
func (a *AdForge) FromText(ctx context.Context, description string) (*Result, error) {
	return a.generate(ctx, description)
}

func (a *AdForge) generate(ctx context.Context, description string) (*Result, error) {
	gen, err := a.generator.Generate(ctx, adkit.Request{
		Description: description,
		Market:      a.config.Market,
		Currency:    a.config.Currency,
	})
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	return &Result{
		Kit:              gen.Kit,
		Market:           gen.Market,
		Currency:         gen.Currency,
		Provider:         gen.Provider,
		Model:            gen.Model,
		Usage:            gen.Usage,
		Cost:             gen.Cost,
		RetryCount:       gen.RetryCount,
		GenerateDuration: gen.Duration,
	}, nil
}

// Image renders one image for prompt and returns it base64-encoded.
func (a *AdForge) Image(ctx context.Context, prompt string) (string, error) {
	img, err := a.GenerateImage(ctx, prompt)
	if err != nil {
		return "", err
	}
	return img.Base64(), nil
}

// GenerateImage renders one image for prompt.
func (a *AdForge) GenerateImage(ctx context.Context, prompt string) (*llm.Image, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	if a.images == nil {
		return nil, llm.ErrImageUnsupported
	}

	start := time.Now()
	img, err := a.images.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}

	logger.Debug("image generated",
		"mime_type", img.MIMEType,
		"bytes", len(img.Data),
		"duration", time.Since(start))
	return img, nil
}

// Close releases the renderer, if any.
func (a *AdForge) Close() error {
	return a.fetcher.Close()
}
