package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/adforge/internal/output"
	"github.com/jmylchreest/adforge/pkg/proxy"
)

var proxiesCmd = &cobra.Command{
	Use:   "proxies",
	Short: "Print the effective relay table",
	Long: `Print the CORS relays in the order they are tried. Override the
built-in table with a "proxies:" list in the config file:

  proxies:
    - name: allorigins
      template: "https://api.allorigins.win/get?url={url}"
      envelope: contents
    - name: corsproxy
      template: "https://corsproxy.io/?{url}"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := proxyTable()
		if err != nil {
			return err
		}

		formatStr, _ := cmd.Flags().GetString("format")
		format, err := output.ParseFormat(formatStr)
		if err != nil {
			return err
		}
		w, err := output.NewWriter(os.Stdout, format)
		if err != nil {
			return err
		}
		var out any = table.Descriptors()
		if format == output.FormatText {
			out = describeTable(table)
		}
		if err := w.Write(out); err != nil {
			return err
		}
		return w.Close()
	},
}

func init() {
	rootCmd.AddCommand(proxiesCmd)
	proxiesCmd.Flags().String("format", "yaml", "output format: json, yaml, text")
}

func describeTable(t *proxy.Table) string {
	var sb strings.Builder
	for i, d := range t.Descriptors() {
		fmt.Fprintf(&sb, "%d. %s  %s", i+1, d.Name, d.Template)
		if d.Envelope != "" {
			fmt.Fprintf(&sb, "  (envelope: %s)", d.Envelope)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
