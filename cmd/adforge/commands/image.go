package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/adforge/internal/logger"
	"github.com/jmylchreest/adforge/pkg/adforge"
)

var imageCmd = &cobra.Command{
	Use:   "image <prompt>",
	Short: "Generate one image from a prompt",
	Long: `Generate a single image, typically from one of the kit's imageGenPrompts.

With --output the decoded image is written to a file; otherwise the base64
data is printed.

Examples:
  adforge image "Golden-hour exterior of a 4-bedroom terrace duplex, Lekki"
  adforge image -o hero.png "Bright open-plan living room, staged for a young family"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImage,
}

func init() {
	rootCmd.AddCommand(imageCmd)

	flags := imageCmd.Flags()
	flags.StringP("provider", "p", "", "image provider: gemini, openai (auto-detects from env vars)")
	flags.StringP("model", "m", "", "text model of the provider (image model comes from providers.<name>.image_model)")
	flags.StringP("api-key", "k", "", "API key (or use env var)")
	flags.StringP("output", "o", "", "write the decoded image to this file")
	flags.Bool("data-uri", false, "print a data: URI instead of bare base64")
}

func runImage(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	prompt := strings.Join(args, " ")

	provider, _ := cmd.Flags().GetString("provider")
	if provider == "" {
		provider = viper.GetString("provider")
	}
	model, _ := cmd.Flags().GetString("model")
	apiKey, _ := cmd.Flags().GetString("api-key")

	chain, err := buildProviderChain(provider, model, apiKey)
	if err != nil {
		logger.Error("failed to build provider chain", "error", err)
		return err
	}

	forge, err := adforge.New(adforge.WithProvider(chain.provider))
	if err != nil {
		return err
	}
	defer func() { _ = forge.Close() }()

	logger.Info("generating image", "providers", chain.names)

	img, err := forge.GenerateImage(ctx, prompt)
	if err != nil {
		logger.Error("image generation failed", "error", err)
		return err
	}

	if outPath, _ := cmd.Flags().GetString("output"); outPath != "" {
		if err := os.WriteFile(outPath, img.Data, 0o644); err != nil { //#nosec G306 -- user-requested output file
			logger.Error("failed to write image", "path", outPath, "error", err)
			return err
		}
		logger.Info("image written", "path", outPath, "mime_type", img.MIMEType, "size", humanize.Bytes(uint64(len(img.Data))))
		return nil
	}

	if dataURI, _ := cmd.Flags().GetBool("data-uri"); dataURI {
		_, err = fmt.Fprintln(os.Stdout, img.DataURI())
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, img.Base64())
	return err
}
