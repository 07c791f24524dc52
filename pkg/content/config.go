// Package content turns a fetched listing page into clean prose and a short
// list of property photo URLs.
package content

// Config defines the thresholds and filters used by the Extractor.
type Config struct {
	// === Text ===

	// StripSelectors are removed from the document before its text is read.
	StripSelectors []string `json:"strip_selectors" mapstructure:"strip_selectors"`

	// MinLineLength drops trimmed lines shorter than this many characters.
	MinLineLength int `json:"min_line_length" mapstructure:"min_line_length"`

	// === Images ===

	// MaxImages caps the image list.
	MaxImages int `json:"max_images" mapstructure:"max_images"`

	// MinImageDimension rejects images that declare a width or height below it.
	MinImageDimension int `json:"min_image_dimension" mapstructure:"min_image_dimension"`

	// ExcludedImageKeywords drops any image URL containing one of these
	// (case-insensitive).
	ExcludedImageKeywords []string `json:"excluded_image_keywords" mapstructure:"excluded_image_keywords"`

	// ExcludedImageExtensions drops images whose path ends in one of these.
	ExcludedImageExtensions []string `json:"excluded_image_extensions" mapstructure:"excluded_image_extensions"`
}

// DefaultConfig returns the configuration used for listing pages.
func DefaultConfig() *Config {
	return &Config{
		StripSelectors: []string{
			"script", "style", "link", "nav", "header",
			"footer", "aside", "form", "button", "input",
		},
		MinLineLength:     20,
		MaxImages:         10,
		MinImageDimension: 100,
		ExcludedImageKeywords: []string{
			"logo", "icon", "avatar", "spinner", "placeholder",
		},
		ExcludedImageExtensions: []string{".svg", ".gif"},
	}
}

// Merge overlays non-zero values from other onto a copy of c.
func (c *Config) Merge(other *Config) *Config {
	merged := *c
	if other == nil {
		return &merged
	}
	if len(other.StripSelectors) > 0 {
		merged.StripSelectors = other.StripSelectors
	}
	if other.MinLineLength > 0 {
		merged.MinLineLength = other.MinLineLength
	}
	if other.MaxImages > 0 {
		merged.MaxImages = other.MaxImages
	}
	if other.MinImageDimension > 0 {
		merged.MinImageDimension = other.MinImageDimension
	}
	if len(other.ExcludedImageKeywords) > 0 {
		merged.ExcludedImageKeywords = other.ExcludedImageKeywords
	}
	if len(other.ExcludedImageExtensions) > 0 {
		merged.ExcludedImageExtensions = other.ExcludedImageExtensions
	}
	return &merged
}
