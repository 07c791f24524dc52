package llm

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"google.golang.org/genai"
)

// fakeProvider is a scripted Provider for chain tests.
type fakeProvider struct {
	name  string
	resp  *Response
	err   error
	image *Image
	calls int
}

func (f *fakeProvider) Execute(ctx context.Context, req Request) (*Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeProvider) Name() string  { return f.name }
func (f *fakeProvider) Model() string { return f.name + "-model" }

// fakeImageProvider also generates images.
type fakeImageProvider struct {
	fakeProvider
}

func (f *fakeImageProvider) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.image, nil
}

// --- Fallback Tests ---

func TestFallback_Empty(t *testing.T) {
	f := NewFallback()
	_, err := f.Execute(context.Background(), Request{})
	if !errors.Is(err, ErrNoProviderAvailable) {
		t.Fatalf("expected ErrNoProviderAvailable, got %v", err)
	}
}

func TestFallback_SkipsNil(t *testing.T) {
	p := &fakeProvider{name: "a", resp: &Response{Content: "ok"}}
	f := NewFallback(nil, p, nil)
	if got := len(f.Providers()); got != 1 {
		t.Fatalf("expected 1 provider, got %d", got)
	}
	if f.Name() != "a" || f.Model() != "a-model" {
		t.Errorf("unexpected identity %q/%q", f.Name(), f.Model())
	}
}

func TestFallback_Order(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		providers []*fakeProvider
		want      string
		wantCalls []int
		wantErr   bool
	}{
		{
			name: "first succeeds",
			providers: []*fakeProvider{
				{name: "a", resp: &Response{Content: "from a"}},
				{name: "b", resp: &Response{Content: "from b"}},
			},
			want:      "from a",
			wantCalls: []int{1, 0},
		},
		{
			name: "second succeeds",
			providers: []*fakeProvider{
				{name: "a", err: boom},
				{name: "b", resp: &Response{Content: "from b"}},
			},
			want:      "from b",
			wantCalls: []int{1, 1},
		},
		{
			name: "all fail",
			providers: []*fakeProvider{
				{name: "a", err: errors.New("first")},
				{name: "b", err: boom},
			},
			wantCalls: []int{1, 1},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := make([]Provider, len(tt.providers))
			for i, p := range tt.providers {
				chain[i] = p
			}

			resp, err := NewFallback(chain...).Execute(context.Background(), Request{})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, boom) {
					t.Errorf("expected last error to be wrapped, got %v", err)
				}
				if !strings.Contains(err.Error(), "tried: a, b") {
					t.Errorf("expected tried list in %q", err.Error())
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if resp.Content != tt.want {
					t.Errorf("expected %q, got %q", tt.want, resp.Content)
				}
			}

			for i, p := range tt.providers {
				if p.calls != tt.wantCalls[i] {
					t.Errorf("provider %s: expected %d calls, got %d", p.name, tt.wantCalls[i], p.calls)
				}
			}
		})
	}
}

func TestFallback_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &fakeProvider{name: "a", resp: &Response{Content: "ok"}}
	_, err := NewFallback(p).Execute(ctx, Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if p.calls != 0 {
		t.Errorf("expected no calls, got %d", p.calls)
	}
}

func TestFallback_GenerateImage(t *testing.T) {
	textOnly := &fakeProvider{name: "text"}
	failing := &fakeImageProvider{fakeProvider{name: "broken", err: errors.New("quota")}}
	working := &fakeImageProvider{fakeProvider{name: "img", image: &Image{Data: []byte("png"), MIMEType: "image/png"}}}

	img, err := NewFallback(textOnly, failing, working).GenerateImage(context.Background(), "a house")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(img.Data) != "png" {
		t.Errorf("unexpected image data %q", img.Data)
	}
	if failing.calls != 1 || working.calls != 1 {
		t.Errorf("expected one call each, got %d and %d", failing.calls, working.calls)
	}

	_, err = NewFallback(textOnly).GenerateImage(context.Background(), "a house")
	if !errors.Is(err, ErrImageUnsupported) {
		t.Errorf("expected ErrImageUnsupported, got %v", err)
	}
}

// --- Image Tests ---

func TestImage_Encoding(t *testing.T) {
	img := &Image{Data: []byte("hello")}
	if got := img.Base64(); got != "aGVsbG8=" {
		t.Errorf("Base64() = %q", got)
	}
	if got := img.DataURI(); got != "data:image/png;base64,aGVsbG8=" {
		t.Errorf("DataURI() = %q", got)
	}

	img.MIMEType = "image/jpeg"
	if got := img.DataURI(); !strings.HasPrefix(got, "data:image/jpeg;base64,") {
		t.Errorf("DataURI() = %q", got)
	}
}

func TestAsImageGenerator(t *testing.T) {
	if _, err := AsImageGenerator(&fakeProvider{name: "a"}); !errors.Is(err, ErrImageUnsupported) {
		t.Errorf("expected ErrImageUnsupported, got %v", err)
	}
	if _, err := AsImageGenerator(&fakeImageProvider{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// --- Registry Tests ---

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		wantName string
		wantKey  string
	}{
		{
			name:     "no keys defaults to gemini",
			wantName: "gemini",
		},
		{
			name:     "gemini key",
			env:      map[string]string{"GEMINI_API_KEY": "g", "OPENAI_API_KEY": "o"},
			wantName: "gemini",
			wantKey:  "g",
		},
		{
			name:     "google key",
			env:      map[string]string{"GOOGLE_API_KEY": "goog"},
			wantName: "gemini",
			wantKey:  "goog",
		},
		{
			name:     "anthropic beats openai",
			env:      map[string]string{"ANTHROPIC_API_KEY": "a", "OPENAI_API_KEY": "o"},
			wantName: "anthropic",
			wantKey:  "a",
		},
		{
			name:     "openai only",
			env:      map[string]string{"OPENAI_API_KEY": "o"},
			wantName: "openai",
			wantKey:  "o",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, keys := range providerEnvKeys {
				for _, k := range keys {
					t.Setenv(k, "")
				}
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			name, key := DetectProvider()
			if name != tt.wantName || key != tt.wantKey {
				t.Errorf("DetectProvider() = %q, %q; want %q, %q", name, key, tt.wantName, tt.wantKey)
			}
		})
	}
}

func TestNewProvider(t *testing.T) {
	if _, err := NewProvider("nope", ProviderConfig{}); err == nil || !strings.Contains(err.Error(), "gemini") {
		t.Errorf("expected unknown provider error listing gemini, got %v", err)
	}

	for _, name := range []string{"gemini", "anthropic", "openai", "openrouter"} {
		if _, err := NewProvider(name, ProviderConfig{}); err == nil {
			t.Errorf("%s: expected missing key error", name)
		}
	}

	p, err := NewProvider("ollama", ProviderConfig{})
	if err != nil {
		t.Fatalf("ollama: unexpected error: %v", err)
	}
	if p.Name() != "ollama" || p.Model() != "llama3.2" {
		t.Errorf("ollama: got %q/%q", p.Name(), p.Model())
	}
	if _, err := AsImageGenerator(p); err != nil {
		t.Fatalf("ollama provider should satisfy ImageGenerator: %v", err)
	}
	if _, err := p.(ImageGenerator).GenerateImage(context.Background(), "x"); !errors.Is(err, ErrImageUnsupported) {
		t.Errorf("ollama images: expected ErrImageUnsupported, got %v", err)
	}
}

func TestNewProvider_Defaults(t *testing.T) {
	tests := []struct {
		name  string
		model string
	}{
		{"gemini", "gemini-2.5-flash"},
		{"anthropic", "claude-sonnet-4-20250514"},
		{"openai", "gpt-4o"},
		{"openrouter", "google/gemini-2.5-flash"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.name, ProviderConfig{APIKey: "test-key"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name() != tt.name {
				t.Errorf("Name() = %q", p.Name())
			}
			if p.Model() != tt.model {
				t.Errorf("Model() = %q, want %q", p.Model(), tt.model)
			}
			if !CanEstimateCost(p) {
				t.Error("expected provider to estimate cost")
			}
		})
	}
}

func TestAvailableProviders_Sorted(t *testing.T) {
	got := AvailableProviders()
	for i := 1; i < len(got); i++ {
		if got[i-1] > got[i] {
			t.Fatalf("not sorted: %v", got)
		}
	}
	for _, name := range []string{"anthropic", "gemini", "ollama", "openai", "openrouter"} {
		if !IsRegistered(name) {
			t.Errorf("expected %s to be registered", name)
		}
	}
}

// --- Cost Tests ---

func TestEstimate(t *testing.T) {
	table := map[string]tokenPrice{
		"gpt-4o":      {2, 10},
		"gpt-4o-mini": {1, 1},
	}
	fallback := tokenPrice{100, 100}

	tests := []struct {
		model string
		want  float64
	}{
		{"gpt-4o", 2*3 + 10*4},
		{"gpt-4o-mini-2024-07-18", 1*3 + 1*4},
		{"gpt-4o-2024-08-06", 2*3 + 10*4},
		{"unknown", 100*3 + 100*4},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got := estimate(table, fallback, tt.model, 3, 4)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("estimate() = %v, want %v", got, tt.want)
			}
		})
	}
}

// --- Gemini Schema Tests ---

func TestConvertToGeminiSchema(t *testing.T) {
	in := map[string]any{
		"type":                 "object",
		"description":          "An ad kit",
		"additionalProperties": false,
		"required":             []string{"insights"},
		"properties": map[string]any{
			"insights": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"type", "text"},
					"properties": map[string]any{
						"type": map[string]any{
							"type": "string",
							"enum": []string{"Pro", "Con"},
						},
						"text":  map[string]any{"type": "string"},
						"score": map[string]any{"type": "number"},
						"rank":  map[string]any{"type": "integer"},
						"ok":    map[string]any{"type": "boolean"},
					},
				},
			},
		},
	}

	s := convertToGeminiSchema(in)
	if s.Type != genai.TypeObject {
		t.Fatalf("root type = %v", s.Type)
	}
	if s.Description != "An ad kit" {
		t.Errorf("description = %q", s.Description)
	}
	if len(s.Required) != 1 || s.Required[0] != "insights" {
		t.Errorf("required = %v", s.Required)
	}

	insights := s.Properties["insights"]
	if insights == nil || insights.Type != genai.TypeArray {
		t.Fatalf("insights = %+v", insights)
	}
	item := insights.Items
	if item == nil || item.Type != genai.TypeObject {
		t.Fatalf("items = %+v", item)
	}
	if strings.Join(item.Required, ",") != "type,text" {
		t.Errorf("item required = %v", item.Required)
	}

	kind := item.Properties["type"]
	if kind.Type != genai.TypeString || strings.Join(kind.Enum, "|") != "Pro|Con" {
		t.Errorf("enum field = %+v", kind)
	}

	types := map[string]genai.Type{
		"score": genai.TypeNumber,
		"rank":  genai.TypeInteger,
		"ok":    genai.TypeBoolean,
	}
	for name, want := range types {
		if got := item.Properties[name].Type; got != want {
			t.Errorf("%s type = %v, want %v", name, got, want)
		}
	}
}

func TestStringList(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"nil", nil, nil},
		{"strings", []string{"a", "b"}, []string{"a", "b"}},
		{"empty strings", []string{}, nil},
		{"any", []any{"a", 1, "b"}, []string{"a", "b"}},
		{"wrong type", "a", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stringList(tt.in)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") || len(got) != len(tt.want) {
				t.Errorf("stringList() = %v, want %v", got, tt.want)
			}
		})
	}
}
