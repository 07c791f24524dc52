// Package adkit generates real-estate ad kits from property descriptions.
package adkit

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TBD marks a fact the description did not contain.
const TBD = "TBD"

// FlexString decodes from either a JSON string or a JSON number. Models
// return beds, baths and character limits as either.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = FlexString(n.String())
	return nil
}

// String returns the value.
func (f FlexString) String() string {
	return string(f)
}

// AdKit is the complete generated marketing kit for one property.
type AdKit struct {
	ExtractedData      ExtractedData     `json:"extractedData" description:"Facts taken from the description only"`
	Insights           Insights          `json:"insights" description:"Market positioning for the property"`
	InvestorMetrics    InvestorMetrics   `json:"investorMetrics" description:"Conservative yield estimates with stated assumptions"`
	StagingPresets     []StagingPreset   `json:"stagingPresets" description:"Virtual staging styles with image prompts"`
	PersonaVariants    []PersonaVariant  `json:"personaVariants" description:"Ad copy written for distinct buyer personas" validate:"min=1,dive"`
	ShortFormVideo     ShortFormVideo    `json:"Short_Form_Video" description:"A 30 second vertical video plan"`
	Voiceover          Voiceover         `json:"Voiceover" description:"Voiceover script for the short-form video"`
	PlatformPacks      []PlatformContent `json:"platformPacks" description:"Copy sized for each ad platform"`
	SEO                SEO               `json:"seo" description:"Listing page search metadata"`
	ImageGenPrompts    []ImageGenPrompt  `json:"imageGenPrompts" description:"Prompts for generating marketing images"`
	QuestionsToConfirm []string          `json:"questionsToConfirm" description:"One actionable question for every TBD field"`
}

// ExtractedData holds the listing facts.
type ExtractedData struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Price        string     `json:"price" description:"Price with currency. Use 'TBD' if not found."`
	Beds         FlexString `json:"beds" description:"Number of bedrooms. Use 'TBD' if not found."`
	Baths        FlexString `json:"baths" description:"Number of bathrooms. Use 'TBD' if not found."`
	Area         string     `json:"area" description:"e.g., '250 sqm'. Use 'TBD' if not found."`
	PropertyType string     `json:"propertyType"`
	Location     string     `json:"location"`
	Amenities    []string   `json:"amenities"`
	AgentName    string     `json:"agentName" description:"Use 'TBD' if not found."`
}

// Insights positions the property in its market.
type Insights struct {
	NeighborhoodSummary string   `json:"neighborhoodSummary"`
	PricePosition       string   `json:"pricePosition" enum:"Below Market|In Range|Above Market|TBD" validate:"enum"`
	PriceRationale      string   `json:"priceRationale"`
	StockSearchQueries  []string `json:"stockSearchQueries" description:"Stock photo search queries for the neighborhood"`
}

// InvestorMetrics holds estimated returns.
type InvestorMetrics struct {
	GrossYield  string `json:"grossYield"`
	NetYield    string `json:"netYield"`
	CapRate     string `json:"capRate"`
	CashOnCash  string `json:"cashOnCash"`
	Assumptions string `json:"assumptions" description:"A brief summary of assumptions made for calculation."`
}

// StagingPreset is one virtual staging style.
type StagingPreset struct {
	Style   string `json:"style"`
	Prompt  string `json:"prompt"`
	AltText string `json:"altText"`
}

// PersonaVariant is ad copy for one buyer persona.
type PersonaVariant struct {
	Persona     string   `json:"persona" validate:"required"`
	Hook        string   `json:"hook"`
	PrimaryText string   `json:"primaryText"`
	Headline    string   `json:"headline"`
	CTA         string   `json:"cta"`
	Hashtags    []string `json:"hashtags"`
}

// ShortFormVideo is the clip plan for a 30 second video.
type ShortFormVideo struct {
	ClipPrompts []ClipPrompt `json:"Clip_Prompts_6x5s" description:"Six 5-second clips in order"`
}

// ClipPrompt is one video clip.
type ClipPrompt struct {
	ID               int           `json:"id"`
	Prompt           string        `json:"prompt"`
	ContinuityTags   []string      `json:"continuity_tags"`
	OnScreenText     string        `json:"on_screen_text"`
	SFXSuggestion    string        `json:"sfx_suggestion"`
	TransitionToNext string        `json:"transition_to_next"`
	SoraSettings     *SoraSettings `json:"sora_settings,omitempty"`
	AltVariations    []string      `json:"alt_variations"`
}

// SoraSettings are text-to-video generation settings for a clip.
type SoraSettings struct {
	DurationSeconds float64  `json:"duration_seconds"`
	AspectRatio     string   `json:"ar" description:"e.g., '9:16' for vertical video"`
	FPS             int      `json:"fps"`
	Motion          string   `json:"motion"`
	Camera          string   `json:"camera"`
	Lighting        string   `json:"lighting"`
	Negatives       []string `json:"negatives"`
}

// Voiceover holds the narration script.
type Voiceover struct {
	Script30s string `json:"30s_VO"`
}

// PlatformContent is copy for one ad platform.
type PlatformContent struct {
	Platform  string     `json:"platform"`
	Copy      string     `json:"copy"`
	CharLimit FlexString `json:"charLimit"`
}

// SEO is listing page metadata.
type SEO struct {
	MetaTitle       string   `json:"metaTitle"`
	MetaDescription string   `json:"metaDescription"`
	Keywords        []string `json:"keywords"`
}

// ImageGenPrompt is a prompt for one marketing image.
type ImageGenPrompt struct {
	UseCase string `json:"useCase"`
	Prompt  string `json:"prompt"`
	AltText string `json:"altText"`
}

// PersonaNames returns the persona of each variant, in order.
func (k *AdKit) PersonaNames() []string {
	names := make([]string, 0, len(k.PersonaVariants))
	for _, v := range k.PersonaVariants {
		names = append(names, v.Persona)
	}
	return names
}

// Favorited returns the variants whose persona is in names, in kit order.
func (k *AdKit) Favorited(names []string) []PersonaVariant {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	var out []PersonaVariant
	for _, v := range k.PersonaVariants {
		if _, ok := set[v.Persona]; ok {
			out = append(out, v)
		}
	}
	return out
}
