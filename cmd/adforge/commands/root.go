// Package commands implements the CLI commands for adforge.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/adforge/internal/logger"
	"github.com/jmylchreest/adforge/pkg/adkit"
	"github.com/jmylchreest/adforge/pkg/fetcher"
	"github.com/jmylchreest/adforge/pkg/llm"
)

var rootCmd = &cobra.Command{
	Use:   "adforge",
	Short: "Real-estate ad kits from a listing URL or description",
	Long: `AdForge turns a property listing into a complete ad kit: extracted
facts, market insights, persona-targeted copy, short-form video prompts,
platform packs, SEO and image prompts.

Listing pages are fetched through a chain of CORS relays; if every relay
fails, paste the description with --text or --file instead.

Examples:
  # Generate from a listing page
  adforge generate --url "https://example.com/listing/123"

  # Generate from a pasted description, as plain text
  adforge generate --file listing.txt --format text

  # Try it without a listing
  adforge generate --sample

  # See what the relays return for a page
  adforge fetch "https://example.com/listing/123"`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logger.Options{
			Debug: viper.GetBool("debug"),
			Quiet: viper.GetBool("quiet"),
			JSON:  viper.GetBool("log_json"),
		})
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.adforge.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress output")
	rootCmd.PersistentFlags().Bool("log-json", false, "write logs as JSON")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log_json", rootCmd.PersistentFlags().Lookup("log-json"))

	viper.SetDefault("market", adkit.DefaultMarket)
	viper.SetDefault("currency", adkit.DefaultCurrency)
	viper.SetDefault("fetch.timeout", fetcher.DefaultTimeout)
	viper.SetDefault("fetch.user_agent", fetcher.DefaultUserAgent)
	viper.SetDefault("fetch.render_timeout", fetcher.DefaultRenderTimeout)
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".adforge")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("ADFORGE")
	viper.AutomaticEnv()

	bindProviderEnv()

	// Read config file (ignore error if not found)
	if err := viper.ReadInConfig(); err == nil {
		logger.Debug("config file loaded", "path", viper.ConfigFileUsed())
	}
}

// bindProviderEnv lets provider keys come from their usual env vars.
func bindProviderEnv() {
	for _, name := range llm.AvailableProviders() {
		if keys := llm.EnvKeys(name); len(keys) > 0 {
			input := append([]string{providerKey(name, "api_key")}, keys...)
			if err := viper.BindEnv(input...); err != nil {
				logger.Debug("failed to bind provider env", "provider", name, "error", err)
			}
		}
	}
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
