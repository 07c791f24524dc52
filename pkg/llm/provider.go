// Package llm provides a unified interface over the generative-AI providers
// used to write ad kits and render images.
package llm

import (
	"context"
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a chat message.
type Message struct {
	Role    Role
	Content string
}

// Request represents a completion request to the LLM.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONSchema  map[string]any // For structured output
	StrictMode  bool           // Use strict JSON schema validation (only for supported models)
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response represents the result of an LLM execution.
type Response struct {
	Content      string
	FinishReason string
	Usage        Usage
	Model        string  // Actual model used
	Cost         float64 // Estimated cost in USD (0 if unknown)
	Duration     time.Duration
}

// Provider is the core interface that all LLM backends must implement.
type Provider interface {
	// Execute sends a completion request and returns the response.
	Execute(ctx context.Context, req Request) (*Response, error)

	// Name returns the provider identifier (e.g., "gemini", "anthropic").
	Name() string

	// Model returns the configured model name.
	Model() string
}

// CostEstimator is an optional interface for providers that can estimate
// costs based on token counts without making an API call.
type CostEstimator interface {
	EstimateCost(ctx context.Context, modelID string, inputTokens, outputTokens int) (float64, error)
}

// ProviderConfig holds common configuration for providers.
type ProviderConfig struct {
	APIKey     string
	BaseURL    string // For custom or OpenAI-compatible endpoints
	Model      string
	ImageModel string // Model used by ImageGenerator implementations
	MaxRetries int
	Timeout    time.Duration
}

// DefaultProviderConfig returns sensible defaults.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		MaxRetries: 3,
		Timeout:    120 * time.Second,
	}
}

// CanEstimateCost returns true if the provider implements CostEstimator.
func CanEstimateCost(p Provider) bool {
	_, ok := p.(CostEstimator)
	return ok
}

// tokenPrice is a per-token price pair in USD.
type tokenPrice struct {
	prompt     float64
	completion float64
}

// estimate prices a call from a table, trying an exact model match, then a
// prefix match, then the fallback.
func estimate(table map[string]tokenPrice, fallback tokenPrice, modelID string, inputTokens, outputTokens int) float64 {
	price, ok := table[modelID]
	if !ok {
		price = fallback
		best := 0
		for id, p := range table {
			if len(id) > best && len(modelID) >= len(id) && modelID[:len(id)] == id {
				price, best = p, len(id)
			}
		}
	}
	return float64(inputTokens)*price.prompt + float64(outputTokens)*price.completion
}
