package llm

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ProviderFactory creates providers from config.
type ProviderFactory func(cfg ProviderConfig) (Provider, error)

// DefaultModels maps provider names to their default models.
var DefaultModels = map[string]string{
	"gemini":     DefaultGeminiModel,
	"anthropic":  "claude-sonnet-4-20250514",
	"openai":     "gpt-4o",
	"openrouter": "google/gemini-2.5-flash",
	"ollama":     "llama3.2",
}

var registry = map[string]ProviderFactory{}

func init() {
	// Register all built-in providers
	RegisterProvider("gemini", func(cfg ProviderConfig) (Provider, error) {
		return NewGeminiProvider(cfg)
	})
	RegisterProvider("anthropic", func(cfg ProviderConfig) (Provider, error) {
		return NewAnthropicProvider(cfg)
	})
	RegisterProvider("openai", func(cfg ProviderConfig) (Provider, error) {
		return NewOpenAIProvider(cfg)
	})
	RegisterProvider("openrouter", func(cfg ProviderConfig) (Provider, error) {
		return NewOpenRouterProvider(cfg)
	})
	RegisterProvider("ollama", func(cfg ProviderConfig) (Provider, error) {
		return NewOllamaProvider(cfg)
	})
}

// NewProvider creates a provider by name.
func NewProvider(name string, cfg ProviderConfig) (Provider, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s (available: %s)", name, strings.Join(AvailableProviders(), ", "))
	}
	return factory(cfg)
}

// RegisterProvider adds a custom provider factory.
func RegisterProvider(name string, factory ProviderFactory) {
	registry[name] = factory
}

// AvailableProviders returns the registered provider names, sorted.
func AvailableProviders() []string {
	providers := make([]string, 0, len(registry))
	for name := range registry {
		providers = append(providers, name)
	}
	sort.Strings(providers)
	return providers
}

// providerEnvKeys maps provider names to their API key environment
// variables, in lookup order.
var providerEnvKeys = map[string][]string{
	"gemini":     {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"anthropic":  {"ANTHROPIC_API_KEY"},
	"openai":     {"OPENAI_API_KEY"},
	"openrouter": {"OPENROUTER_API_KEY"},
}

// detectOrder is the DetectProvider priority.
var detectOrder = []string{"gemini", "anthropic", "openai", "openrouter"}

// DetectProvider auto-detects the provider based on available API keys.
// Returns the provider name and API key.
// Priority: GEMINI_API_KEY/GOOGLE_API_KEY > ANTHROPIC_API_KEY > OPENAI_API_KEY
// > OPENROUTER_API_KEY. With no key set it returns "gemini" and an empty key,
// so the caller reports the missing key for the default provider.
func DetectProvider() (provider string, apiKey string) {
	for _, name := range detectOrder {
		if key := APIKeyFromEnv(name); key != "" {
			return name, key
		}
	}
	return "gemini", ""
}

// APIKeyFromEnv returns the first non-empty API key environment variable
// for the provider.
func APIKeyFromEnv(provider string) string {
	for _, env := range providerEnvKeys[provider] {
		if key := os.Getenv(env); key != "" {
			return key
		}
	}
	return ""
}

// HasAPIKey checks if an API key environment variable is set for the given provider.
func HasAPIKey(provider string) bool {
	return APIKeyFromEnv(provider) != ""
}

// EnvKeys returns the environment variables checked for a provider's key.
func EnvKeys(provider string) []string {
	return providerEnvKeys[provider]
}

// GetDefaultModel returns the default model for a provider.
func GetDefaultModel(provider string) string {
	if model, ok := DefaultModels[provider]; ok {
		return model
	}
	return ""
}

// IsRegistered returns true if a provider is registered.
func IsRegistered(name string) bool {
	_, ok := registry[name]
	return ok
}
