package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmylchreest/adforge/internal/logger"
)

// ErrNoProviderAvailable is returned when a fallback chain has no providers.
var ErrNoProviderAvailable = errors.New("no LLM provider available")

// Fallback tries each provider in order until one succeeds.
type Fallback struct {
	providers []Provider
}

// NewFallback creates a provider chain. Nil providers are skipped.
func NewFallback(providers ...Provider) *Fallback {
	chain := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			chain = append(chain, p)
		}
	}
	return &Fallback{providers: chain}
}

// Execute runs the request against each provider in turn. A cancelled
// context stops the chain immediately.
func (f *Fallback) Execute(ctx context.Context, req Request) (*Response, error) {
	if len(f.providers) == 0 {
		return nil, ErrNoProviderAvailable
	}

	var tried []string
	var lastErr error
	for _, p := range f.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := p.Execute(ctx, req)
		if err == nil {
			return resp, nil
		}

		tried = append(tried, p.Name())
		lastErr = err
		logger.Debug("provider failed, trying next", "provider", p.Name(), "model", p.Model(), "error", err)

		if ctx.Err() != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("all providers failed (tried: %s): %w", strings.Join(tried, ", "), lastErr)
}

// GenerateImage uses the first provider in the chain that can generate
// images, falling through to the next on error.
func (f *Fallback) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	lastErr := ErrImageUnsupported
	for _, p := range f.providers {
		ig, ok := p.(ImageGenerator)
		if !ok {
			continue
		}
		img, err := ig.GenerateImage(ctx, prompt)
		if err == nil {
			return img, nil
		}
		lastErr = err
		logger.Debug("image generation failed, trying next", "provider", p.Name(), "error", err)
		if ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// Name returns the provider identifier.
func (f *Fallback) Name() string {
	if len(f.providers) == 0 {
		return "fallback"
	}
	return f.providers[0].Name()
}

// Model returns the primary provider's model.
func (f *Fallback) Model() string {
	if len(f.providers) == 0 {
		return ""
	}
	return f.providers[0].Model()
}

// Providers returns the chain in order.
func (f *Fallback) Providers() []Provider {
	return append([]Provider(nil), f.providers...)
}

var (
	_ Provider       = (*Fallback)(nil)
	_ ImageGenerator = (*Fallback)(nil)
)
