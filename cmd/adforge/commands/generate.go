package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/adforge/internal/favorites"
	"github.com/jmylchreest/adforge/internal/logger"
	"github.com/jmylchreest/adforge/internal/output"
	"github.com/jmylchreest/adforge/pkg/adforge"
	"github.com/jmylchreest/adforge/pkg/adkit"
	"github.com/jmylchreest/adforge/pkg/fetcher"
)

// wrappedResult wraps the ad kit with metadata.
type wrappedResult struct {
	Metadata resultMetadata `json:"_metadata"`
	Kit      *adkit.AdKit   `json:"kit"`
}

type resultMetadata struct {
	URL                string   `json:"url,omitempty"`
	Proxy              string   `json:"proxy,omitempty"`
	Images             []string `json:"images,omitempty"`
	FetchedAt          string   `json:"fetched_at,omitempty"`
	Market             string   `json:"market"`
	Currency           string   `json:"currency"`
	Model              string   `json:"model"`
	Provider           string   `json:"provider"`
	InputTokens        int      `json:"input_tokens"`
	OutputTokens       int      `json:"output_tokens"`
	CostUSD            float64  `json:"cost_usd,omitempty"`
	FetchDurationMs    int64    `json:"fetch_duration_ms,omitempty"`
	GenerateDurationMs int64    `json:"generate_duration_ms"`
	RetryCount         int      `json:"retry_count,omitempty"`
}

func wrap(res *adforge.Result) wrappedResult {
	md := resultMetadata{
		URL:                res.URL,
		Proxy:              res.Proxy,
		Images:             res.Images,
		Market:             res.Market,
		Currency:           res.Currency,
		Model:              res.Model,
		Provider:           res.Provider,
		InputTokens:        res.Usage.InputTokens,
		OutputTokens:       res.Usage.OutputTokens,
		CostUSD:            res.Cost,
		FetchDurationMs:    res.FetchDuration.Milliseconds(),
		GenerateDurationMs: res.GenerateDuration.Milliseconds(),
		RetryCount:         res.RetryCount,
	}
	if !res.FetchedAt.IsZero() {
		md.FetchedAt = res.FetchedAt.Format(time.RFC3339)
	}
	return wrappedResult{Metadata: md, Kit: res.Kit}
}

// manualEntryHint follows the fetcher's exhaustion hint.
const manualEntryHint = "Use --text or --file to provide the listing description directly."

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an ad kit from a listing",
	Long: `Generate a complete real-estate ad kit with an LLM.

The listing comes from exactly one of --url, --text, --file or --sample.
URLs are fetched through the CORS relay chain; when every relay fails the
command prints a hint and exits, and the description can be pasted instead.

Examples:
  adforge generate --url "https://example.com/listing/123"
  adforge generate --file listing.txt --format text -o ad-kit.txt
  pbpaste | adforge generate --file - --market Ghana --currency "GHS (₵)"
  adforge generate --sample -p anthropic`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	flags := generateCmd.Flags()

	// Input
	flags.StringP("url", "u", "", "listing URL to fetch")
	flags.StringP("text", "t", "", "listing description text")
	flags.StringP("file", "f", "", "file with the listing description (- for stdin)")
	flags.Bool("sample", false, "use the built-in sample listing")

	// Market
	flags.String("market", "", "primary market (default \""+adkit.DefaultMarket+"\")")
	flags.String("currency", "", "currency label (default \""+adkit.DefaultCurrency+"\")")

	// LLM settings
	flags.StringP("provider", "p", "", "LLM provider: gemini, anthropic, openai, openrouter, ollama (auto-detects from env vars)")
	flags.StringP("model", "m", "", "model name (provider-specific)")
	flags.StringP("api-key", "k", "", "API key (or use env var)")

	// Output settings
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "json", "output format: json, jsonl, yaml, text")
	flags.Bool("include-metadata", true, "wrap output with _metadata and kit keys (use --include-metadata=false to disable)")

	// Generation settings
	flags.Int("max-retries", adkit.DefaultConfig().MaxRetries, "max generation retries")
	flags.String("max-content-size", "100KB", "max description size sent to the LLM (e.g., 100KB, 1MB, 0=unlimited)")
	flags.Bool("browser", false, "fall back to headless Chrome when every relay fails")

	_ = viper.BindPFlag("provider", flags.Lookup("provider"))
	_ = viper.BindPFlag("model", flags.Lookup("model"))
	_ = viper.BindPFlag("api_key", flags.Lookup("api-key"))
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	in, err := readInput(cmd, os.Stdin)
	if err != nil {
		return err
	}

	formatStr, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	maxContentSizeStr, _ := cmd.Flags().GetString("max-content-size")
	maxContentSize, err := parseSize(maxContentSizeStr)
	if err != nil {
		logger.Error("invalid max-content-size", "value", maxContentSizeStr, "error", err)
		return err
	}
	maxRetries, _ := cmd.Flags().GetInt("max-retries")
	useBrowser, _ := cmd.Flags().GetBool("browser")

	chain, err := buildProviderChain(viper.GetString("provider"), viper.GetString("model"), viper.GetString("api_key"))
	if err != nil {
		logger.Error("failed to build provider chain", "error", err)
		return err
	}

	opts := []adforge.Option{
		adforge.WithProvider(chain.provider),
		adforge.WithMarket(stringFlagOr(cmd, "market", viper.GetString("market"))),
		adforge.WithCurrency(stringFlagOr(cmd, "currency", viper.GetString("currency"))),
		adforge.WithMaxRetries(maxRetries),
		adforge.WithMaxDescriptionSize(maxContentSize),
	}
	if chain.head.Temperature > 0 {
		opts = append(opts, adforge.WithTemperature(chain.head.Temperature))
	}
	if chain.head.MaxTokens > 0 {
		opts = append(opts, adforge.WithMaxTokens(chain.head.MaxTokens))
	}
	if in.url != "" {
		acq, err := acquisitionOptions(useBrowser)
		if err != nil {
			logger.Error("failed to configure acquisition", "error", err)
			return err
		}
		opts = append(opts, acq...)
	}

	forge, err := adforge.New(opts...)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return err
	}
	defer func() { _ = forge.Close() }()

	logger.Info("generating ad kit",
		"source", in.source,
		"providers", chain.names,
		"market", forge.Config().Market,
		"max_content_size", humanize.Bytes(uint64(maxContentSize)))

	var res *adforge.Result
	if in.url != "" {
		res, err = forge.FromURL(ctx, in.url)
	} else {
		res, err = forge.FromText(ctx, in.text)
	}
	if err != nil {
		var exhausted *fetcher.ExhaustedError
		if errors.As(err, &exhausted) {
			logger.Error("could not fetch listing", "url", in.url, "attempts", len(exhausted.Failures))
			fmt.Fprintf(os.Stderr, "%s\n%s\n", exhausted.Hint(), manualEntryHint)
			return err
		}
		logger.Error("generation failed", "error", err)
		return err
	}

	logger.Info("ad kit generated",
		"provider", res.Provider,
		"model", res.Model,
		"personas", len(res.Kit.PersonaVariants),
		"input_tokens", res.Usage.InputTokens,
		"output_tokens", res.Usage.OutputTokens,
		"retries", res.RetryCount,
		"duration", res.GenerateDuration.Round(time.Millisecond))
	reportFavorites(res.Kit)

	includeMetadata, _ := cmd.Flags().GetBool("include-metadata")
	var out any = res.Kit
	switch {
	case format == output.FormatText:
		out = res
	case includeMetadata:
		out = wrap(res)
	}

	outPath, _ := cmd.Flags().GetString("output")
	if err := writeOutput(os.Stdout, outPath, format, out); err != nil {
		logger.Error("failed to write output", "path", outPath, "error", err)
		return err
	}
	return nil
}

// writeOutput writes out to path, or to stdout when path is empty. A failed
// close of the output file is reported.
func writeOutput(stdout io.Writer, path string, format output.Format, out any) (err error) {
	dst := stdout
	if path != "" {
		f, cerr := os.Create(path) //#nosec G304 -- CLI tool writes to user-specified output file
		if cerr != nil {
			return fmt.Errorf("failed to create output file: %w", cerr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("failed to close output file: %w", cerr)
			}
		}()
		dst = f
	}

	writer, err := output.NewWriter(dst, format)
	if err != nil {
		return err
	}
	if err := writer.Write(out); err != nil {
		return err
	}
	return writer.Close()
}

// input is the resolved listing source.
type input struct {
	source string
	url    string
	text   string
}

// readInput resolves exactly one of --url, --text, --file and --sample.
func readInput(cmd *cobra.Command, stdin io.Reader) (input, error) {
	url, _ := cmd.Flags().GetString("url")
	text, _ := cmd.Flags().GetString("text")
	file, _ := cmd.Flags().GetString("file")
	sample, _ := cmd.Flags().GetBool("sample")

	set := 0
	for _, given := range []bool{url != "", text != "", file != "", sample} {
		if given {
			set++
		}
	}
	if set != 1 {
		return input{}, errors.New("provide exactly one of --url, --text, --file or --sample")
	}

	switch {
	case url != "":
		if err := fetcher.ValidateURL(url); err != nil {
			return input{}, err
		}
		return input{source: "url", url: url}, nil
	case text != "":
		return textInput("text", text)
	case sample:
		return input{source: "sample", text: adkit.SampleDescription}, nil
	}

	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file) //#nosec G304 -- CLI tool reads a user-specified file
	}
	if err != nil {
		return input{}, fmt.Errorf("failed to read listing: %w", err)
	}
	return textInput("file", string(data))
}

func textInput(source, text string) (input, error) {
	if strings.TrimSpace(text) == "" {
		return input{}, adkit.ErrEmptyDescription
	}
	return input{source: source, text: text}, nil
}

// stringFlagOr returns the flag value when it was set, otherwise fallback.
func stringFlagOr(cmd *cobra.Command, name, fallback string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return fallback
}

// reportFavorites logs which of the kit's personas are favorited.
func reportFavorites(kit *adkit.AdKit) {
	path, err := favoritesPath()
	if err != nil {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	store, err := favorites.Open(path)
	if err != nil {
		logger.Debug("favorites unavailable", "path", path, "error", err)
		return
	}
	defer func() { _ = store.Close() }()

	names, err := store.List()
	if err != nil {
		logger.Debug("favorites unavailable", "path", path, "error", err)
		return
	}
	if matched := kit.Favorited(names); len(matched) > 0 {
		personas := make([]string, len(matched))
		for i, p := range matched {
			personas[i] = p.Persona
		}
		logger.Info("favorited personas in kit", "personas", personas)
	}
}
