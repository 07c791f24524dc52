package commands

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/adforge/internal/output"
	"github.com/jmylchreest/adforge/pkg/adforge"
	"github.com/jmylchreest/adforge/pkg/adkit"
	"github.com/jmylchreest/adforge/pkg/content"
	"github.com/jmylchreest/adforge/pkg/fetcher"
	"github.com/jmylchreest/adforge/pkg/llm"
)

// resetConfig gives each test a clean viper and no provider keys.
func resetConfig(t *testing.T) {
	t.Helper()
	for _, env := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "ANTHROPIC_API_KEY", "OPENAI_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(env, "")
	}
	viper.Reset()
	bindProviderEnv()
	t.Cleanup(viper.Reset)
}

func newInputCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "generate"}
	flags := cmd.Flags()
	flags.String("url", "", "")
	flags.String("text", "", "")
	flags.String("file", "", "")
	flags.Bool("sample", false, "")
	flags.String("market", "", "")
	if err := flags.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return cmd
}

func TestReadInput(t *testing.T) {
	listing := filepath.Join(t.TempDir(), "listing.txt")
	if err := os.WriteFile(listing, []byte("3 bed flat in Yaba"), 0o600); err != nil {
		t.Fatal(err)
	}
	blank := filepath.Join(t.TempDir(), "blank.txt")
	if err := os.WriteFile(blank, []byte("  \n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		args       []string
		stdin      string
		wantSource string
		wantURL    string
		wantText   string
		wantErr    error
		errPart    string
	}{
		{name: "url", args: []string{"--url", "https://example.com/l/1"}, wantSource: "url", wantURL: "https://example.com/l/1"},
		{name: "text", args: []string{"--text", "Duplex in Lekki"}, wantSource: "text", wantText: "Duplex in Lekki"},
		{name: "file", args: []string{"--file", listing}, wantSource: "file", wantText: "3 bed flat in Yaba"},
		{name: "stdin", args: []string{"--file", "-"}, stdin: "from stdin", wantSource: "file", wantText: "from stdin"},
		{name: "sample", args: []string{"--sample"}, wantSource: "sample", wantText: adkit.SampleDescription},
		{name: "none", args: nil, errPart: "exactly one"},
		{name: "two sources", args: []string{"--text", "a", "--sample"}, errPart: "exactly one"},
		{name: "invalid url", args: []string{"--url", "ftp://example.com"}, wantErr: fetcher.ErrInvalidURL},
		{name: "blank text", args: []string{"--text", "   "}, wantErr: adkit.ErrEmptyDescription},
		{name: "blank file", args: []string{"--file", blank}, wantErr: adkit.ErrEmptyDescription},
		{name: "missing file", args: []string{"--file", filepath.Join(t.TempDir(), "nope.txt")}, errPart: "failed to read listing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := readInput(newInputCmd(t, tt.args...), strings.NewReader(tt.stdin))
			if tt.wantErr != nil || tt.errPart != "" {
				if err == nil {
					t.Fatal("expected error")
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				if tt.errPart != "" && !strings.Contains(err.Error(), tt.errPart) {
					t.Errorf("expected error containing %q, got %v", tt.errPart, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("readInput() error = %v", err)
			}
			if in.source != tt.wantSource || in.url != tt.wantURL || in.text != tt.wantText {
				t.Errorf("readInput() = %+v", in)
			}
		})
	}
}

func TestStringFlagOr(t *testing.T) {
	cmd := newInputCmd(t)
	if got := stringFlagOr(cmd, "market", "Nigeria"); got != "Nigeria" {
		t.Errorf("unset flag = %q, want fallback", got)
	}
	cmd = newInputCmd(t, "--market", "Ghana")
	if got := stringFlagOr(cmd, "market", "Nigeria"); got != "Ghana" {
		t.Errorf("set flag = %q, want Ghana", got)
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"100KB", 100000, false},
		{"1MiB", 1 << 20, false},
		{"512", 512, false},
		{"lots", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSize(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseSize(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestBuildProviderChain(t *testing.T) {
	t.Run("no keys", func(t *testing.T) {
		resetConfig(t)
		_, err := buildProviderChain("", "", "")
		if !errors.Is(err, llm.ErrNoProviderAvailable) {
			t.Fatalf("expected ErrNoProviderAvailable, got %v", err)
		}
		if !strings.Contains(err.Error(), "GEMINI_API_KEY") {
			t.Errorf("error should name the default key: %v", err)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		resetConfig(t)
		_, err := buildProviderChain("bard", "", "")
		if err == nil || !strings.Contains(err.Error(), "unknown provider") {
			t.Fatalf("expected unknown provider error, got %v", err)
		}
	})

	t.Run("detects from env", func(t *testing.T) {
		resetConfig(t)
		t.Setenv("OPENAI_API_KEY", "sk-test")
		chain, err := buildProviderChain("", "", "")
		if err != nil {
			t.Fatalf("buildProviderChain() error = %v", err)
		}
		if strings.Join(chain.names, ",") != "openai" {
			t.Errorf("names = %v, want [openai]", chain.names)
		}
		if chain.provider.Name() != "openai" || chain.provider.Model() != llm.GetDefaultModel("openai") {
			t.Errorf("unexpected provider %s/%s", chain.provider.Name(), chain.provider.Model())
		}
	})

	t.Run("preferred goes first with overrides", func(t *testing.T) {
		resetConfig(t)
		t.Setenv("OPENAI_API_KEY", "sk-test")
		chain, err := buildProviderChain("anthropic", "claude-3-5-haiku-latest", "sk-ant-test")
		if err != nil {
			t.Fatalf("buildProviderChain() error = %v", err)
		}
		if strings.Join(chain.names, ",") != "anthropic,openai" {
			t.Errorf("names = %v", chain.names)
		}
		fb, ok := chain.provider.(*llm.Fallback)
		if !ok {
			t.Fatalf("expected *llm.Fallback, got %T", chain.provider)
		}
		ps := fb.Providers()
		if ps[0].Model() != "claude-3-5-haiku-latest" {
			t.Errorf("model override not applied: %s", ps[0].Model())
		}
		if ps[1].Model() != llm.GetDefaultModel("openai") {
			t.Errorf("model override leaked to %s: %s", ps[1].Name(), ps[1].Model())
		}
	})

	t.Run("config order and settings", func(t *testing.T) {
		resetConfig(t)
		viper.Set("fallback_order", []string{"ollama", "openai"})
		viper.Set("providers", map[string]any{
			"ollama": map[string]any{"model": "qwen2.5", "temperature": 0.4, "max_tokens": 4096},
		})
		chain, err := buildProviderChain("", "", "")
		if err != nil {
			t.Fatalf("buildProviderChain() error = %v", err)
		}
		if strings.Join(chain.names, ",") != "ollama" {
			t.Errorf("names = %v, want [ollama]", chain.names)
		}
		if chain.provider.Model() != "qwen2.5" {
			t.Errorf("model = %s, want qwen2.5", chain.provider.Model())
		}
		if chain.head.Temperature != 0.4 || chain.head.MaxTokens != 4096 {
			t.Errorf("head settings = %+v", chain.head)
		}
	})

	t.Run("malformed provider config", func(t *testing.T) {
		resetConfig(t)
		t.Setenv("OPENAI_API_KEY", "sk-test")
		viper.Set("providers", map[string]any{"openai": "oops"})
		_, err := buildProviderChain("", "", "")
		if err == nil || !strings.Contains(err.Error(), "invalid providers.openai config") {
			t.Fatalf("expected invalid providers.openai config error, got %v", err)
		}
	})
}

func TestBindProviderEnv(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		provider string
		want     string
	}{
		{name: "gemini key", env: map[string]string{"GEMINI_API_KEY": "gm-test"}, provider: "gemini", want: "gm-test"},
		{name: "google key fallback", env: map[string]string{"GOOGLE_API_KEY": "gg-test"}, provider: "gemini", want: "gg-test"},
		{name: "anthropic key", env: map[string]string{"ANTHROPIC_API_KEY": "sk-ant"}, provider: "anthropic", want: "sk-ant"},
		{name: "unset", provider: "openai", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetConfig(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if got := viper.GetString(providerKey(tt.provider, "api_key")); got != tt.want {
				t.Errorf("%s api_key = %q, want %q", tt.provider, got, tt.want)
			}
		})
	}
}

func TestProxyTable(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		resetConfig(t)
		table, err := proxyTable()
		if err != nil {
			t.Fatalf("proxyTable() error = %v", err)
		}
		if strings.Join(table.Names(), ",") != "corsproxy.io,allorigins" {
			t.Errorf("names = %v", table.Names())
		}
	})

	t.Run("from config", func(t *testing.T) {
		resetConfig(t)
		viper.Set("proxies", []map[string]any{
			{"name": "mine", "template": "https://relay.example/?{url}", "headers": map[string]string{"X-Key": "k"}},
			{"name": "json", "template": "https://relay.example/get?u={url}", "envelope": "contents"},
		})
		table, err := proxyTable()
		if err != nil {
			t.Fatalf("proxyTable() error = %v", err)
		}
		ds := table.Descriptors()
		if len(ds) != 2 || ds[0].Headers["X-Key"] != "k" || ds[1].Envelope != "contents" {
			t.Errorf("unexpected descriptors %+v", ds)
		}
		text := describeTable(table)
		if !strings.Contains(text, "1. mine") || !strings.Contains(text, "(envelope: contents)") {
			t.Errorf("describeTable() = %q", text)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		resetConfig(t)
		viper.Set("proxies", []map[string]any{{"name": "broken", "template": "https://relay.example/"}})
		if _, err := proxyTable(); err == nil {
			t.Error("expected error for template without placeholder")
		}
	})
}

func TestWrap(t *testing.T) {
	res := &adforge.Result{
		URL:              "https://example.com/l/1",
		Proxy:            "allorigins",
		Kit:              &adkit.AdKit{},
		Market:           "Nigeria",
		Provider:         "gemini",
		Usage:            llm.Usage{InputTokens: 1200, OutputTokens: 3400},
		FetchedAt:        time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		FetchDuration:    1500 * time.Millisecond,
		GenerateDuration: 8 * time.Second,
	}
	w := wrap(res)
	if w.Kit != res.Kit {
		t.Error("kit not carried")
	}
	md := w.Metadata
	if md.FetchedAt != "2026-03-01T09:00:00Z" || md.FetchDurationMs != 1500 || md.GenerateDurationMs != 8000 {
		t.Errorf("unexpected metadata %+v", md)
	}
	if md.InputTokens != 1200 || md.OutputTokens != 3400 || md.Proxy != "allorigins" {
		t.Errorf("unexpected metadata %+v", md)
	}

	if got := wrap(&adforge.Result{Kit: res.Kit}).Metadata.FetchedAt; got != "" {
		t.Errorf("text input should have no fetched_at, got %q", got)
	}
}

func TestFetchOutput(t *testing.T) {
	res := &fetcher.Result{
		URL:   "https://example.com/l/1",
		Proxy: "corsproxy.io",
		Content: &content.Extracted{
			Title:  "Duplex",
			Text:   "4 bedrooms, pool",
			Images: []string{"https://example.com/a.jpg"},
		},
		Failures: []fetcher.AttemptFailure{{Proxy: "allorigins", Reason: fetcher.ReasonTimeout}},
	}
	out := newFetchOutput(res)
	if out.Title != "Duplex" || len(out.Attempts) != 1 || len(out.Images) != 1 {
		t.Errorf("unexpected output %+v", out)
	}
	if got := out.String(); got != "Duplex\n\n4 bedrooms, pool\nhttps://example.com/a.jpg" {
		t.Errorf("String() = %q", got)
	}

	empty := newFetchOutput(&fetcher.Result{URL: "https://example.com"})
	if empty.Images == nil {
		t.Error("images should be an empty list, not null")
	}
}

func TestWriteOutput(t *testing.T) {
	dir := t.TempDir()
	kit := map[string]string{"headline": "Duplex in Lekki"}

	t.Run("file", func(t *testing.T) {
		var stdout bytes.Buffer
		path := filepath.Join(dir, "kit.json")
		if err := writeOutput(&stdout, path, output.FormatJSON, kit); err != nil {
			t.Fatalf("writeOutput() error = %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), `"headline": "Duplex in Lekki"`) {
			t.Errorf("file content = %q", data)
		}
		if stdout.Len() != 0 {
			t.Errorf("stdout should be empty, got %q", stdout.String())
		}
	})

	t.Run("stdout", func(t *testing.T) {
		var stdout bytes.Buffer
		if err := writeOutput(&stdout, "", output.FormatText, "plain kit"); err != nil {
			t.Fatalf("writeOutput() error = %v", err)
		}
		if strings.TrimSpace(stdout.String()) != "plain kit" {
			t.Errorf("stdout = %q", stdout.String())
		}
	})

	t.Run("unwritable path", func(t *testing.T) {
		err := writeOutput(&bytes.Buffer{}, filepath.Join(dir, "missing", "kit.json"), output.FormatJSON, kit)
		if err == nil || !strings.Contains(err.Error(), "failed to create output file") {
			t.Fatalf("expected create error, got %v", err)
		}
	})
}
