package adkit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmylchreest/adforge/internal/logger"
	"github.com/jmylchreest/adforge/pkg/llm"
	"github.com/jmylchreest/adforge/pkg/schema"
)

var (
	// ErrEmptyDescription is returned when there is no description to work from.
	ErrEmptyDescription = errors.New("property description is empty")

	// ErrGenerationFailed is returned when no attempt produced a valid kit.
	ErrGenerationFailed = errors.New("the AI model failed to generate a valid response, please check the property description and try again")
)

// Request is one generation request.
type Request struct {
	Description string `json:"description"`
	Market      string `json:"market,omitempty"`
	Currency    string `json:"currency,omitempty"`
}

// Result holds a generated kit and call metadata.
type Result struct {
	Kit          *AdKit                   `json:"kit"`
	Raw          string                   `json:"-"`
	Errors       []schema.ValidationError `json:"-"`
	Market       string                   `json:"market"`
	Currency     string                   `json:"currency"`
	Provider     string                   `json:"provider"`
	Model        string                   `json:"model"`
	Usage        llm.Usage                `json:"usage"`
	Cost         float64                  `json:"cost_usd"`
	FinishReason string                   `json:"finish_reason,omitempty"`
	RetryCount   int                      `json:"retry_count"`
	Duration     time.Duration            `json:"duration"`
}

// Config holds generator settings.
type Config struct {
	// MaxRetries is the number of extra attempts after the first one.
	MaxRetries int

	// Temperature for LLM responses.
	Temperature float64

	// MaxTokens for LLM responses.
	MaxTokens int

	// MaxDescriptionSize limits the description in bytes (0 = unlimited).
	MaxDescriptionSize int

	// RetryBackoff is the wait before retrying a rate-limited call. It
	// doubles on each rate-limited attempt.
	RetryBackoff time.Duration

	// StrictMode requests strict JSON schema handling where supported.
	StrictMode bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:         2,
		Temperature:        0.7,
		MaxTokens:          16384,
		MaxDescriptionSize: 100000,
		RetryBackoff:       2 * time.Second,
	}
}

// Option configures the generator.
type Option func(*Config)

// WithMaxRetries sets the maximum number of retry attempts.
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

// WithMaxDescriptionSize caps the description size in bytes.
func WithMaxDescriptionSize(n int) Option {
	return func(c *Config) {
		c.MaxDescriptionSize = n
	}
}

// WithRetryBackoff sets the initial rate-limit backoff.
func WithRetryBackoff(d time.Duration) Option {
	return func(c *Config) {
		c.RetryBackoff = d
	}
}

// WithStrictMode enables strict JSON schema handling.
func WithStrictMode(strict bool) Option {
	return func(c *Config) {
		c.StrictMode = strict
	}
}

// Generator writes ad kits with an LLM provider.
type Generator struct {
	provider llm.Provider
	config   Config
}

// NewGenerator creates a Generator.
func NewGenerator(provider llm.Provider, opts ...Option) *Generator {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	return &Generator{
		provider: provider,
		config:   cfg,
	}
}

// Config returns the generator configuration.
func (g *Generator) Config() Config {
	return g.config
}

// Generate produces a validated ad kit for the request, retrying with the
// validation errors fed back into the prompt.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, ErrEmptyDescription
	}
	if g.provider == nil {
		return nil, llm.ErrNoProviderAvailable
	}
	if req.Market == "" {
		req.Market = DefaultMarket
	}
	if req.Currency == "" {
		req.Currency = DefaultCurrency
	}

	logger.Debug("generator starting",
		"provider", g.provider.Name(),
		"model", g.provider.Model(),
		"market", req.Market,
		"description_size", len(req.Description),
		"max_retries", g.config.MaxRetries)

	var lastErr error
	var last *Result
	var totalUsage llm.Usage
	var totalCost float64
	var totalDuration time.Duration
	backoff := g.config.RetryBackoff

	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		logger.Debug("generator attempt", "attempt", attempt+1, "max_attempts", g.config.MaxRetries+1)

		start := time.Now()
		result, err := g.generateOnce(ctx, req, lastErr)
		totalDuration += time.Since(start)
		totalUsage.InputTokens += result.Usage.InputTokens
		totalUsage.OutputTokens += result.Usage.OutputTokens
		totalCost += result.Cost
		last = result

		if err == nil {
			validationErrors := kitSchema.Validate(result.Kit)
			logger.Debug("generator validation complete", "validation_errors", len(validationErrors))

			if len(validationErrors) == 0 {
				result.Usage = totalUsage
				result.Cost = totalCost
				result.RetryCount = attempt
				result.Duration = totalDuration
				logger.Info("ad kit generated",
					"provider", result.Provider,
					"model", result.Model,
					"attempts", attempt+1,
					"input_tokens", totalUsage.InputTokens,
					"output_tokens", totalUsage.OutputTokens,
					"duration", totalDuration)
				return result, nil
			}

			lastErr = &validationError{errors: validationErrors}
			result.Errors = validationErrors
			logger.Debug("generator validation failed, will retry", "errors", validationErrors)
		} else {
			lastErr = err
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("generation cancelled: %w", ctx.Err())
		}
		if attempt >= g.config.MaxRetries {
			logger.Debug("generator max retries reached", "max_retries", g.config.MaxRetries)
			break
		}
		if !isRetryable(lastErr) {
			logger.Debug("generator error not retryable", "error", lastErr)
			break
		}

		if isRateLimited(lastErr) && backoff > 0 {
			logger.Debug("generator rate limited, backing off", "wait", backoff)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("generation cancelled: %w", ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	logger.Warn("ad kit generation failed", "provider", g.provider.Name(), "error", lastErr)
	if last != nil {
		last.Usage = totalUsage
		last.Cost = totalCost
		last.Duration = totalDuration
	}
	return last, fmt.Errorf("%w: %w", ErrGenerationFailed, lastErr)
}

// generateOnce performs a single generation attempt. The returned result is
// never nil so usage can be accumulated on failure.
func (g *Generator) generateOnce(ctx context.Context, req Request, previousErr error) (*Result, error) {
	prompt := buildPrompt(req.Description, req.Market, req.Currency, previousErr, g.config.MaxDescriptionSize)
	logger.Debug("generator prompt built",
		"has_previous_error", previousErr != nil,
		"prompt_size", len(prompt))

	jsonSchema, err := kitSchema.ToJSONSchema()
	if err != nil {
		return &Result{}, fmt.Errorf("failed to generate JSON schema: %w", err)
	}

	resp, err := g.provider.Execute(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: SystemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
		JSONSchema:  jsonSchema,
		StrictMode:  g.config.StrictMode,
	})
	if err != nil {
		logger.Debug("generator LLM call failed", "error", err)
		return &Result{}, fmt.Errorf("LLM call failed: %w", err)
	}

	logger.Debug("generator LLM response received",
		"response_size", len(resp.Content),
		"finish_reason", resp.FinishReason,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens)

	result := &Result{
		Raw:          resp.Content,
		Market:       req.Market,
		Currency:     req.Currency,
		Provider:     g.provider.Name(),
		Model:        resp.Model,
		Usage:        resp.Usage,
		Cost:         resp.Cost,
		FinishReason: resp.FinishReason,
	}
	if result.Model == "" {
		result.Model = g.provider.Model()
	}

	cleaned := StripCodeFence(resp.Content)
	if cleaned == "" {
		return result, &parseError{err: errors.New("empty response")}
	}

	data, err := kitSchema.Unmarshal([]byte(cleaned))
	if err != nil {
		return result, &parseError{err: err, response: cleaned}
	}
	result.Kit = data.(*AdKit)

	return result, nil
}

// validationError carries validation failures into the retry prompt.
type validationError struct {
	errors []schema.ValidationError
}

func (e *validationError) Error() string {
	var sb strings.Builder
	for _, err := range e.errors {
		sb.WriteString("- Field \"")
		sb.WriteString(err.Field)
		sb.WriteString("\": ")
		sb.WriteString(err.Message)
		sb.WriteString("\n")
	}
	return sb.String()
}

// parseError is a response that was not valid AdKit JSON.
type parseError struct {
	err      error
	response string
}

func (e *parseError) Error() string {
	if e.response == "" {
		return "failed to parse response: " + e.err.Error()
	}
	return fmt.Sprintf("failed to parse response as JSON: %v (response: %s)", e.err, truncateForError(e.response))
}

func (e *parseError) Unwrap() error {
	return e.err
}

// isRetryable determines if an error should trigger a retry.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var ve *validationError
	var pe *parseError
	if errors.As(err, &ve) || errors.As(err, &pe) {
		return true
	}

	return isRateLimited(err)
}

// isRateLimited reports provider rate-limit and overload errors.
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "resource_exhausted") ||
		strings.Contains(errStr, "overloaded")
}

// truncateForError truncates content for error messages.
func truncateForError(s string) string {
	if len(s) <= 200 {
		return s
	}
	return s[:200] + "..."
}
