package adforge

import (
	"net/http"
	"time"

	"github.com/jmylchreest/adforge/pkg/adkit"
	"github.com/jmylchreest/adforge/pkg/fetcher"
	"github.com/jmylchreest/adforge/pkg/llm"
	"github.com/jmylchreest/adforge/pkg/proxy"
)

// Config holds all AdForge configuration.
type Config struct {
	// Acquisition settings
	ProxyTable    *proxy.Table
	FetchTimeout  time.Duration
	UserAgent     string
	Transport     http.RoundTripper
	Renderer      fetcher.Renderer
	RenderTimeout time.Duration
	Extractor     fetcher.Extractor

	// Generation settings
	Provider           llm.Provider
	ImageGenerator     llm.ImageGenerator
	Market             string
	Currency           string
	MaxRetries         int
	Temperature        float64
	MaxTokens          int
	MaxDescriptionSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	gen := adkit.DefaultConfig()
	return Config{
		FetchTimeout:       fetcher.DefaultTimeout,
		UserAgent:          fetcher.DefaultUserAgent,
		RenderTimeout:      fetcher.DefaultRenderTimeout,
		Market:             adkit.DefaultMarket,
		Currency:           adkit.DefaultCurrency,
		MaxRetries:         gen.MaxRetries,
		Temperature:        gen.Temperature,
		MaxTokens:          gen.MaxTokens,
		MaxDescriptionSize: gen.MaxDescriptionSize,
	}
}

// Option configures AdForge.
type Option func(*Config)

// WithProxyTable sets the ordered relay table.
func WithProxyTable(t *proxy.Table) Option {
	return func(c *Config) {
		c.ProxyTable = t
	}
}

// WithFetchTimeout sets the per-relay timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.FetchTimeout = d
	}
}

// WithUserAgent sets the HTTP user agent.
func WithUserAgent(ua string) Option {
	return func(c *Config) {
		c.UserAgent = ua
	}
}

// WithTransport sets the HTTP transport used for relay requests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Config) {
		c.Transport = rt
	}
}

// WithRenderer enables a renderer fallback after every relay failed.
func WithRenderer(r fetcher.Renderer) Option {
	return func(c *Config) {
		c.Renderer = r
	}
}

// WithRenderTimeout sets the renderer timeout.
func WithRenderTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.RenderTimeout = d
	}
}

// WithExtractor replaces the content extractor.
func WithExtractor(e fetcher.Extractor) Option {
	return func(c *Config) {
		c.Extractor = e
	}
}

// WithProvider sets the LLM provider used for ad kits. If it can also
// generate images it is used for that too, unless WithImageGenerator is set.
func WithProvider(p llm.Provider) Option {
	return func(c *Config) {
		c.Provider = p
	}
}

// WithImageGenerator sets the image generator.
func WithImageGenerator(g llm.ImageGenerator) Option {
	return func(c *Config) {
		c.ImageGenerator = g
	}
}

// WithMarket sets the target market.
func WithMarket(market string) Option {
	return func(c *Config) {
		c.Market = market
	}
}

// WithCurrency sets the price currency.
func WithCurrency(currency string) Option {
	return func(c *Config) {
		c.Currency = currency
	}
}

// WithMaxRetries sets the maximum generation retry attempts.
func WithMaxRetries(n int) Option {
	return func(c *Config) {
		c.MaxRetries = n
	}
}

// WithTemperature sets the LLM temperature.
func WithTemperature(t float64) Option {
	return func(c *Config) {
		c.Temperature = t
	}
}

// WithMaxTokens sets the maximum tokens for responses.
func WithMaxTokens(n int) Option {
	return func(c *Config) {
		c.MaxTokens = n
	}
}

// WithMaxDescriptionSize caps the description sent to the model, in bytes.
func WithMaxDescriptionSize(n int) Option {
	return func(c *Config) {
		c.MaxDescriptionSize = n
	}
}
