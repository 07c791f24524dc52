package adkit

import (
	"fmt"
	"strings"

	"github.com/jmylchreest/adforge/internal/logger"
	"github.com/jmylchreest/adforge/pkg/schema"
)

const (
	// DefaultMarket is the market ad kits are written for.
	DefaultMarket = "Nigeria"

	// DefaultCurrency is the currency prices are expressed in.
	DefaultCurrency = "NGN (₦)"
)

// SystemPrompt frames every generation.
const SystemPrompt = `You are AdForge RE, a production-grade, real-estate product-marketing generator.
Your task is to analyze a property description and generate a complete ad kit.

Respond with ONLY valid JSON matching the schema. No explanations.`

// SampleDescription is a ready-made listing for trying the generator.
const SampleDescription = `Stunning 4-Bedroom Terrace Duplex in Lekki Phase 1

Discover luxury living in this brand new, fully serviced 4-bedroom terrace duplex located in the heart of Lekki Phase 1, Lagos. Each bedroom is en-suite with fitted wardrobes. The property features a spacious living room with a guest toilet, a fully fitted modern kitchen with a pantry, and a dedicated BQ (boys quarters).

Amenities include 24/7 power supply, treated water, a swimming pool, a fully equipped gym, CCTV surveillance and ample parking space.

Price: 150 million Naira. Service charge applies.`

// schemaDescription is the output section header for the kit schema.
const schemaDescription = "Return the complete ad kit as structured data.\n"

// kitSchema describes AdKit for prompts, structured output and validation.
var kitSchema = schema.MustSchema[AdKit](
	schema.WithTitle("Ad kit"),
	schema.WithDescription(schemaDescription),
)

// Schema returns the AdKit schema.
func Schema() schema.Schema {
	return kitSchema
}

// BuildPrompt creates the generation prompt for a property description.
func BuildPrompt(description, market, currency string) string {
	return buildPrompt(description, market, currency, nil, 0)
}

func buildPrompt(description, market, currency string, previousErr error, maxSize int) string {
	if market == "" {
		market = DefaultMarket
	}
	if currency == "" {
		currency = DefaultCurrency
	}

	var prompt strings.Builder

	prompt.WriteString("## Market Context\n")
	fmt.Fprintf(&prompt, "- Primary Market: %s\n", market)
	fmt.Fprintf(&prompt, "- Currency: %s\n", currency)
	prompt.WriteString("- Language Style: English, concise, benefits-first.\n\n")

	prompt.WriteString("## Core Rules\n")
	prompt.WriteString("1. NEVER hallucinate prices, specs, or legal claims.\n")
	fmt.Fprintf(&prompt, "2. If any piece of information is missing or ambiguous from the provided text, use the string %q for that field.\n", TBD)
	fmt.Fprintf(&prompt, "3. For every %q field, add a clear, actionable question to the 'questionsToConfirm' list for the user to clarify.\n", TBD)
	prompt.WriteString("4. All generated content must be tailored to the specified market and currency.\n")
	prompt.WriteString("5. Investor metrics should be based on conservative, realistic estimates for the specified market. Clearly state your assumptions.\n\n")

	prompt.WriteString(kitSchema.ToPromptDescription())

	if previousErr != nil {
		prompt.WriteString("\n## Previous Attempt Errors\n")
		prompt.WriteString("The previous attempt had these errors that need to be fixed:\n")
		prompt.WriteString(previousErr.Error())
		prompt.WriteString("\n\nPlease correct these errors in your response.\n")
	}

	prompt.WriteString("\n## Property Description to Analyze\n")
	prompt.WriteString("---\n")
	prompt.WriteString(truncateDescription(strings.TrimSpace(description), maxSize))
	prompt.WriteString("\n---\n\n")
	prompt.WriteString("Now, generate the complete ad kit based on the schema provided.\n")

	return prompt.String()
}

// truncateDescription limits description size to avoid token limits.
// maxLen of 0 means no limit.
func truncateDescription(description string, maxLen int) string {
	if maxLen <= 0 || len(description) <= maxLen {
		return description
	}
	logger.Warn("description truncated due to length",
		"original_bytes", len(description),
		"max_bytes", maxLen)

	cut := maxLen
	for cut > 0 && !isRuneStart(description[cut]) {
		cut--
	}
	return description[:cut] + "\n\n[Description truncated due to length...]"
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// StripCodeFence removes a markdown code fence wrapped around a JSON
// response.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	} else {
		return s
	}

	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}
