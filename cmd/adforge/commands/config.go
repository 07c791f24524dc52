package commands

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/jmylchreest/adforge/cmd/adforge/browser"
	"github.com/jmylchreest/adforge/internal/logger"
	"github.com/jmylchreest/adforge/pkg/adforge"
	"github.com/jmylchreest/adforge/pkg/llm"
	"github.com/jmylchreest/adforge/pkg/proxy"
)

// ProviderConfig holds provider-specific settings from config file.
type ProviderConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	ImageModel  string  `mapstructure:"image_model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	BaseURL     string  `mapstructure:"base_url"`
}

// Default fallback order: gemini → anthropic → openai → openrouter
var defaultFallbackOrder = []string{"gemini", "anthropic", "openai", "openrouter"}

// keyless providers run locally and join the chain without an API key.
var keyless = map[string]bool{"ollama": true}

func providerKey(name, field string) string {
	return "providers." + name + "." + field
}

// providerSettings returns the config file settings for one provider.
func providerSettings(name string) (ProviderConfig, error) {
	var pc ProviderConfig
	if err := viper.UnmarshalKey("providers."+name, &pc); err != nil {
		return pc, fmt.Errorf("invalid providers.%s config: %w", name, err)
	}
	if pc.APIKey == "" {
		pc.APIKey = viper.GetString(providerKey(name, "api_key"))
	}
	return pc, nil
}

// providerChain is the resolved fallback chain and the settings of its head.
type providerChain struct {
	provider llm.Provider
	names    []string
	head     ProviderConfig
}

// buildProviderChain creates the LLM fallback chain.
// If preferred is set (via --provider), it goes first, and modelOverride and
// apiKey (via --model and --api-key) apply to it alone. Then the order comes
// from fallback_order in config, or gemini → anthropic → openai → openrouter.
// Providers without an API key are skipped, except keyless local ones.
func buildProviderChain(preferred, modelOverride, apiKey string) (*providerChain, error) {
	if preferred != "" && !llm.IsRegistered(preferred) {
		return nil, fmt.Errorf("unknown provider: %s (available: %s)",
			preferred, strings.Join(llm.AvailableProviders(), ", "))
	}

	order := viper.GetStringSlice("fallback_order")
	if len(order) == 0 {
		order = defaultFallbackOrder
	}
	if preferred != "" {
		newOrder := []string{preferred}
		for _, p := range order {
			if p != preferred {
				newOrder = append(newOrder, p)
			}
		}
		order = newOrder
	}

	chain := &providerChain{}
	var providers []llm.Provider
	for _, name := range order {
		pc, err := providerSettings(name)
		if err != nil {
			return nil, err
		}
		isPreferred := name == preferred
		if isPreferred && apiKey != "" {
			pc.APIKey = apiKey
		}
		if isPreferred && modelOverride != "" {
			pc.Model = modelOverride
		}
		if pc.APIKey == "" && !keyless[name] {
			logger.Debug("skipping provider without API key", "provider", name, "env", llm.EnvKeys(name))
			continue
		}

		cfg := llm.DefaultProviderConfig()
		cfg.APIKey = pc.APIKey
		cfg.BaseURL = pc.BaseURL
		cfg.Model = pc.Model
		cfg.ImageModel = pc.ImageModel

		p, err := llm.NewProvider(name, cfg)
		if err != nil {
			if isPreferred {
				return nil, err
			}
			logger.Debug("failed to create provider", "provider", name, "error", err)
			continue
		}
		if len(providers) == 0 {
			chain.head = pc
		}
		providers = append(providers, p)
		chain.names = append(chain.names, name)
		logger.Debug("added provider to chain", "provider", name, "model", p.Model())
	}

	switch len(providers) {
	case 0:
		return nil, fmt.Errorf("%w: set GEMINI_API_KEY (or GOOGLE_API_KEY), ANTHROPIC_API_KEY or OPENAI_API_KEY, or pass --api-key",
			llm.ErrNoProviderAvailable)
	case 1:
		chain.provider = providers[0]
	default:
		chain.provider = llm.NewFallback(providers...)
	}
	return chain, nil
}

// proxyTable returns the relay table from config, or the built-in one.
func proxyTable() (*proxy.Table, error) {
	if !viper.IsSet("proxies") {
		return proxy.DefaultTable(), nil
	}
	var descriptors []proxy.Descriptor
	if err := viper.UnmarshalKey("proxies", &descriptors); err != nil {
		return nil, fmt.Errorf("invalid proxies config: %w", err)
	}
	return proxy.NewTable(descriptors...)
}

// parseSize parses a humanized byte size. Empty or "0" means unlimited.
func parseSize(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return int(n), nil
}

// acquisitionOptions returns the facade options for fetching pages.
func acquisitionOptions(useBrowser bool) ([]adforge.Option, error) {
	table, err := proxyTable()
	if err != nil {
		return nil, err
	}
	opts := []adforge.Option{
		adforge.WithProxyTable(table),
		adforge.WithFetchTimeout(viper.GetDuration("fetch.timeout")),
		adforge.WithUserAgent(viper.GetString("fetch.user_agent")),
		adforge.WithRenderTimeout(viper.GetDuration("fetch.render_timeout")),
	}
	if useBrowser {
		r, err := browser.New(browser.Config{
			UserAgent:  viper.GetString("fetch.user_agent"),
			ChromePath: viper.GetString("fetch.chrome_path"),
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, adforge.WithRenderer(r))
	}
	logger.Debug("acquisition configured",
		"proxies", table.Names(),
		"timeout", viper.GetDuration("fetch.timeout"),
		"browser", useBrowser)
	return opts, nil
}
