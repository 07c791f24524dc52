package adkit

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"unicode"
)

// DefaultJSONFilename is the file name used when saving a kit as JSON.
const DefaultJSONFilename = "ad-kit.json"

// sectionSeparator joins sections in the text export.
const sectionSeparator = "\n\n---\n\n"

// section is one top-level kit entry in wire order.
type section struct {
	key   string
	value any
}

func (k *AdKit) sections() []section {
	return []section{
		{"extractedData", k.ExtractedData},
		{"insights", k.Insights},
		{"investorMetrics", k.InvestorMetrics},
		{"stagingPresets", k.StagingPresets},
		{"personaVariants", k.PersonaVariants},
		{"Short_Form_Video", k.ShortFormVideo},
		{"Voiceover", k.Voiceover},
		{"platformPacks", k.PlatformPacks},
		{"seo", k.SEO},
		{"imageGenPrompts", k.ImageGenPrompts},
		{"questionsToConfirm", k.QuestionsToConfirm},
	}
}

// Text renders the kit as plain text: one heading per top-level section,
// list items as indented JSON separated by blank lines, and objects as
// indented JSON. Sections are separated by a horizontal rule.
func Text(kit *AdKit) string {
	if kit == nil {
		return ""
	}

	parts := make([]string, 0, 11)
	for _, s := range kit.sections() {
		var sb strings.Builder
		sb.WriteString("## ")
		sb.WriteString(heading(s.key))
		sb.WriteString("\n\n")
		sb.WriteString(sectionBody(s.value))
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, sectionSeparator)
}

// sectionBody renders lists item by item and everything else whole.
func sectionBody(value any) string {
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice {
		return indentJSON(value)
	}

	items := make([]string, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		items = append(items, indentJSON(v.Index(i).Interface()))
	}
	return strings.Join(items, "\n\n")
}

func indentJSON(value any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return ""
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// heading turns a wire key into an upper-case heading: a space goes before
// each capital and underscores become spaces, so "personaVariants" reads
// "PERSONA VARIANTS" and "Short_Form_Video" reads "SHORT FORM VIDEO".
func heading(key string) string {
	var sb strings.Builder
	for _, r := range key {
		switch {
		case r == '_':
			sb.WriteRune(' ')
		case unicode.IsUpper(r):
			sb.WriteRune(' ')
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	return strings.ToUpper(strings.Join(strings.Fields(sb.String()), " "))
}

// JSON renders the kit as indented JSON, as saved to DefaultJSONFilename.
func JSON(kit *AdKit) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(kit); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
