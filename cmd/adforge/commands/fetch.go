package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/adforge/internal/logger"
	"github.com/jmylchreest/adforge/internal/output"
	"github.com/jmylchreest/adforge/pkg/adforge"
	"github.com/jmylchreest/adforge/pkg/fetcher"
)

// fetchOutput is what `adforge fetch` writes for one page.
type fetchOutput struct {
	URL      string                   `json:"url"`
	Proxy    string                   `json:"proxy"`
	Title    string                   `json:"title,omitempty"`
	Text     string                   `json:"text"`
	Images   []string                 `json:"images"`
	Attempts []fetcher.AttemptFailure `json:"attempts,omitempty"`
}

// String renders the page the way it is sent to the LLM.
func (o fetchOutput) String() string {
	s := o.Text
	if o.Title != "" {
		s = o.Title + "\n\n" + s
	}
	for _, img := range o.Images {
		s += "\n" + img
	}
	return s
}

func newFetchOutput(res *fetcher.Result) fetchOutput {
	out := fetchOutput{
		URL:      res.URL,
		Proxy:    res.Proxy,
		Images:   []string{},
		Attempts: res.Failures,
	}
	if res.Content != nil {
		out.Title = res.Content.Title
		out.Text = res.Content.Text
		if res.Content.Images != nil {
			out.Images = res.Content.Images
		}
	}
	return out
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Fetch a listing page through the relay chain",
	Long: `Fetch a listing page through the CORS relay chain and print the cleaned
text and images that would be sent to the LLM.

Relays are tried in order until one returns usable content. Failed attempts
are listed under "attempts".

Examples:
  adforge fetch "https://example.com/listing/123"
  adforge fetch "https://example.com/listing/123" --html > page.html
  adforge fetch "https://example.com/listing/123" --browser --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	flags := fetchCmd.Flags()
	flags.Bool("html", false, "print the raw HTML instead of the cleaned content")
	flags.Bool("browser", false, "fall back to headless Chrome when every relay fails")
	flags.String("format", "json", "output format: json, jsonl, yaml, text")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	targetURL := args[0]
	rawHTML, _ := cmd.Flags().GetBool("html")
	useBrowser, _ := cmd.Flags().GetBool("browser")
	formatStr, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	opts, err := acquisitionOptions(useBrowser)
	if err != nil {
		logger.Error("failed to configure acquisition", "error", err)
		return err
	}
	forge, err := adforge.New(opts...)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return err
	}
	defer func() { _ = forge.Close() }()

	if rawHTML {
		html, err := forge.Fetcher().AcquireHTML(ctx, targetURL)
		if err != nil {
			return reportFetchError(targetURL, err)
		}
		logger.Info("fetched page", "url", targetURL, "size", humanize.Bytes(uint64(len(html))))
		_, err = fmt.Fprint(os.Stdout, html)
		return err
	}

	res, err := forge.Fetch(ctx, targetURL)
	if err != nil {
		return reportFetchError(targetURL, err)
	}
	logger.Info("fetched page",
		"url", targetURL,
		"proxy", res.Proxy,
		"failed_attempts", len(res.Failures),
		"duration", res.Duration)

	writer, err := output.NewWriter(os.Stdout, format)
	if err != nil {
		return err
	}
	if err := writer.Write(newFetchOutput(res)); err != nil {
		return err
	}
	return writer.Close()
}

func reportFetchError(targetURL string, err error) error {
	var exhausted *fetcher.ExhaustedError
	if errors.As(err, &exhausted) {
		for _, f := range exhausted.Failures {
			logger.Warn("proxy attempt failed", "proxy", f.Proxy, "reason", f.Reason, "status", f.StatusCode, "detail", f.Detail)
		}
		fmt.Fprintln(os.Stderr, exhausted.Hint())
	}
	logger.Error("fetch failed", "url", targetURL, "error", err)
	return err
}
