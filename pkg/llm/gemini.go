package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	// DefaultGeminiModel is the text model used when none is configured.
	DefaultGeminiModel = "gemini-2.5-flash"

	// DefaultImagenModel is the image model used when none is configured.
	DefaultImagenModel = "imagen-3.0-generate-002"
)

// Known Gemini model pricing (per token, USD)
var geminiPricing = map[string]tokenPrice{
	"gemini-2.5-pro":        {1.25 / 1_000_000, 10.0 / 1_000_000},
	"gemini-2.5-flash":      {0.30 / 1_000_000, 2.50 / 1_000_000},
	"gemini-2.5-flash-lite": {0.10 / 1_000_000, 0.40 / 1_000_000},
	"gemini-2.0-flash":      {0.10 / 1_000_000, 0.40 / 1_000_000},
}

// GeminiProvider implements Provider and ImageGenerator for Google's Gemini API.
type GeminiProvider struct {
	client     *genai.Client
	model      string
	imageModel string
	cfg        ProviderConfig
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(cfg ProviderConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key required")
	}

	config := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		config.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	// NewClient only validates config; the context is not retained.
	client, err := genai.NewClient(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	imageModel := cfg.ImageModel
	if imageModel == "" {
		imageModel = DefaultImagenModel
	}

	return &GeminiProvider{
		client:     client,
		model:      model,
		imageModel: imageModel,
		cfg:        cfg,
	}, nil
}

// Execute sends a completion request to Gemini.
func (p *GeminiProvider) Execute(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	config := &genai.GenerateContentConfig{}
	contents := make([]*genai.Content, 0, len(req.Messages))

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			config.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: msg.Content}},
			}
		case RoleUser:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		case RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		}
	}

	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		config.Temperature = &temp
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	// Gemini takes its own schema type rather than raw JSON Schema
	if req.JSONSchema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = convertToGeminiSchema(req.JSONSchema)
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	var content strings.Builder
	var finishReason string
	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					content.WriteString(part.Text)
				}
			}
		}
		if candidate.FinishReason != "" {
			finishReason = string(candidate.FinishReason)
		}
	}

	var usage Usage
	if resp.UsageMetadata != nil {
		usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	model := resp.ModelVersion
	if model == "" {
		model = p.model
	}

	cost, _ := p.EstimateCost(ctx, p.model, usage.InputTokens, usage.OutputTokens)

	return &Response{
		Content:      content.String(),
		FinishReason: finishReason,
		Usage:        usage,
		Model:        model,
		Cost:         cost,
		Duration:     time.Since(start),
	}, nil
}

// GenerateImage renders one image with Imagen.
func (p *GeminiProvider) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	resp, err := p.client.Models.GenerateImages(ctx, p.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("imagen API error: %w", err)
	}

	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, fmt.Errorf("no image in response")
	}

	img := resp.GeneratedImages[0].Image
	if len(img.ImageBytes) == 0 {
		return nil, fmt.Errorf("empty image in response")
	}

	return &Image{Data: img.ImageBytes, MIMEType: img.MIMEType}, nil
}

// Name returns the provider identifier.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Model returns the configured model name.
func (p *GeminiProvider) Model() string {
	return p.model
}

// EstimateCost calculates cost based on known Gemini pricing.
func (p *GeminiProvider) EstimateCost(ctx context.Context, modelID string, inputTokens, outputTokens int) (float64, error) {
	return estimate(geminiPricing, geminiPricing["gemini-2.5-flash"], modelID, inputTokens, outputTokens), nil
}

// convertToGeminiSchema converts a JSON Schema map to Gemini's schema type.
// Keywords Gemini does not accept (additionalProperties, examples) are dropped.
func convertToGeminiSchema(params map[string]any) *genai.Schema {
	schema := &genai.Schema{}

	if typeStr, ok := params["type"].(string); ok {
		switch typeStr {
		case "object":
			schema.Type = genai.TypeObject
		case "array":
			schema.Type = genai.TypeArray
		case "string":
			schema.Type = genai.TypeString
		case "number":
			schema.Type = genai.TypeNumber
		case "integer":
			schema.Type = genai.TypeInteger
		case "boolean":
			schema.Type = genai.TypeBoolean
		}
	}

	if props, ok := params["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema)
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				schema.Properties[name] = convertToGeminiSchema(propMap)
			}
		}
	}

	if items, ok := params["items"].(map[string]any); ok {
		schema.Items = convertToGeminiSchema(items)
	}

	schema.Required = stringList(params["required"])
	schema.Enum = stringList(params["enum"])

	if desc, ok := params["description"].(string); ok {
		schema.Description = desc
	}

	return schema
}

// stringList reads a JSON Schema string list, which is []string when built
// in Go and []any when decoded from JSON.
func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		if len(list) == 0 {
			return nil
		}
		return list
	case []any:
		var out []string
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

var (
	_ Provider       = (*GeminiProvider)(nil)
	_ ImageGenerator = (*GeminiProvider)(nil)
	_ CostEstimator  = (*GeminiProvider)(nil)
)
